package deliver

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"pagewatch/internal/storage"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name        string
		ref         storage.FileRef
		contentType string
		want        string
	}{
		{
			name: "extension from url path",
			ref:  storage.FileRef{Name: "Report", URL: "https://example.com/files/report.pdf"},
			want: "Report.pdf",
		},
		{
			name: "uppercase extension lowered",
			ref:  storage.FileRef{Name: "Report", URL: "https://example.com/REPORT.PDF"},
			want: "Report.pdf",
		},
		{
			name:        "audio content type fallback",
			ref:         storage.FileRef{Name: "Episode", URL: "https://example.com/stream"},
			contentType: "audio/mpeg",
			want:        "Episode.mp3",
		},
		{
			name:        "video content type fallback",
			ref:         storage.FileRef{Name: "Clip", URL: "https://example.com/watch"},
			contentType: "video/mp4",
			want:        "Clip.mp4",
		},
		{
			name:        "image content type fallback",
			ref:         storage.FileRef{Name: "Pic", URL: "https://example.com/raw"},
			contentType: "image/webp",
			want:        "Pic.jpg",
		},
		{
			name:        "pdf content type fallback",
			ref:         storage.FileRef{Name: "Doc", URL: "https://example.com/view"},
			contentType: "application/pdf",
			want:        "Doc.pdf",
		},
		{
			name:        "unknown content type falls back to bin",
			ref:         storage.FileRef{Name: "Blob", URL: "https://example.com/data"},
			contentType: "application/octet-stream",
			want:        "Blob.bin",
		},
		{
			name: "unsafe characters replaced",
			ref:  storage.FileRef{Name: `a/b\c:d*e?f"g<h>i|j`, URL: "https://example.com/x.txt"},
			want: "a_b_c_d_e_f_g_h_i_j.txt",
		},
		{
			name: "empty name falls back to url base",
			ref:  storage.FileRef{URL: "https://example.com/files/notes.txt"},
			want: "notes.txt",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, filename(tt.ref, tt.contentType))
		})
	}
}

func TestFilename_AllUnsafeName(t *testing.T) {
	got := filename(storage.FileRef{Name: `???`, URL: "https://example.com/x.pdf"}, "")
	assert.NotEqual(t, ".pdf", got, "a name that sanitizes to underscores keeps them")
	assert.Equal(t, "___.pdf", got)
}

func TestBatch_Claim(t *testing.T) {
	b := &batch{dir: "/tmp/batch", used: make(map[string]bool)}

	first := b.claim("report.pdf")
	second := b.claim("report.pdf")
	third := b.claim("report.pdf")

	assert.Equal(t, filepath.Join("/tmp/batch", "report.pdf"), first)
	assert.Equal(t, filepath.Join("/tmp/batch", "report_2.pdf"), second)
	assert.Equal(t, filepath.Join("/tmp/batch", "report_3.pdf"), third)

	assert.Equal(t, filepath.Join("/tmp/batch", "other.png"), b.claim("other.png"))
}
