package notify

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"pagewatch/internal/storage"
)

func TestTrackStarted(t *testing.T) {
	msg := TrackStarted(&storage.TrackedURL{
		URL:       "https://example.com/releases",
		Interval:  45 * time.Minute,
		NightMode: true,
	})

	assert.Contains(t, msg, "✅ Tracking started for https://example.com/releases")
	assert.Contains(t, msg, "Interval: 45 minutes")
	assert.Contains(t, msg, "Night mode: ON")

	msg = TrackStarted(&storage.TrackedURL{URL: "https://example.com", Interval: 30 * time.Minute})
	assert.Contains(t, msg, "Night mode: OFF")
}

func TestTrackedList(t *testing.T) {
	assert.Equal(t, "No tracked URLs.", TrackedList(nil))

	list := TrackedList([]*storage.TrackedURL{
		{URL: "https://a.example", Interval: 30 * time.Minute},
		{URL: "https://b.example", Interval: 60 * time.Minute, NightMode: true,
			LastCheckedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)},
	})

	assert.Contains(t, list, "https://a.example (every 30 minutes, last checked never)")
	assert.Contains(t, list, "https://b.example (every 60 minutes, night mode, last checked 2025-03-01 09:30)")
}

func TestManifest(t *testing.T) {
	files := []storage.FileRef{
		{Name: "Report", URL: "https://example.com/r.pdf", Kind: storage.KindDocument},
		{Name: "Chart", URL: "https://example.com/c.png", Kind: storage.KindImage},
	}

	m := Manifest("https://example.com", files)
	lines := strings.Split(m, "\n")
	assert.Equal(t, "📄 New files on https://example.com:", lines[0])
	assert.Contains(t, m, "[document] Report")
	assert.Contains(t, m, "https://example.com/r.pdf")
	assert.Contains(t, m, "[image] Chart")
}

func TestFileList(t *testing.T) {
	assert.Equal(t, "No files recorded for https://example.com yet.", FileList("https://example.com", nil))

	list := FileList("https://example.com", []storage.FileRef{
		{Name: "Report", URL: "https://example.com/r.pdf", Kind: storage.KindDocument},
	})
	lines := strings.Split(list, "\n")
	assert.Equal(t, "📄 Files recorded for https://example.com:", lines[0])
	assert.Contains(t, list, "[document] Report")
}

func TestDeliveryFailed(t *testing.T) {
	msg := DeliveryFailed("https://example.com", []storage.FileRef{
		{Name: "Report", URL: "https://example.com/r.pdf", Kind: storage.KindDocument},
	})

	assert.Contains(t, msg, "❌ 1 of the new files on https://example.com failed to deliver:")
	assert.Contains(t, msg, "• Report")
	assert.Contains(t, msg, "offered again on the next check")
}

func TestCaption(t *testing.T) {
	c := Caption(storage.FileRef{Name: "Episode 1", URL: "https://example.com/e1.mp3", Kind: storage.KindAudio})
	assert.Equal(t, "Episode 1\n[audio] https://example.com/e1.mp3", c)
}
