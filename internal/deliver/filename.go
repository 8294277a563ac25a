package deliver

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"pagewatch/internal/storage"
)

var unsafeChars = regexp.MustCompile(`[\\/*?:"<>|]`)

// batch tracks filenames claimed inside one delivery's temp directory so
// concurrent downloads never write to the same path.
type batch struct {
	dir  string
	mu   sync.Mutex
	used map[string]bool
}

// claim reserves name inside the batch directory, appending a numeric
// suffix on clash, and returns the full local path.
func (b *batch) claim(name string) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	candidate := name
	for i := 2; b.used[candidate]; i++ {
		candidate = fmt.Sprintf("%s_%d%s", stem, i, ext)
	}
	b.used[candidate] = true
	return filepath.Join(b.dir, candidate)
}

// filename derives the local filename for f: the ref's display name (or the
// URL's base name), sanitized, plus an extension taken from the URL path
// or, failing that, from the declared content type.
func filename(f storage.FileRef, contentType string) string {
	var parsed *url.URL
	if u, err := url.Parse(f.URL); err == nil {
		parsed = u
	}

	ext := ""
	if parsed != nil {
		ext = strings.ToLower(path.Ext(parsed.Path))
	}
	if ext == "" {
		ext = extFromContentType(contentType)
	}

	base := f.Name
	if base == "" && parsed != nil {
		b := path.Base(parsed.Path)
		base = strings.TrimSuffix(b, path.Ext(b))
	}
	base = strings.TrimSpace(unsafeChars.ReplaceAllString(base, "_"))
	if base == "" || base == "." {
		base = uuid.New().String()
	}
	return base + ext
}

// extFromContentType maps a declared content type to a conservative
// extension. The catch-all is .bin.
func extFromContentType(ct string) string {
	ct = strings.ToLower(ct)
	switch {
	case strings.Contains(ct, "audio"):
		return ".mp3"
	case strings.Contains(ct, "video"):
		return ".mp4"
	case strings.Contains(ct, "image"):
		return ".jpg"
	case strings.Contains(ct, "pdf"):
		return ".pdf"
	default:
		return ".bin"
	}
}
