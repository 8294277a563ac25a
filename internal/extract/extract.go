// Package extract turns raw page content into the set of downloadable file
// references discoverable on it.
package extract

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"pagewatch/internal/storage"
)

// Allowed extensions per file kind. References whose URL path carries any
// other extension (or none) are silently dropped: matching on extension is
// a deliberate precision/recall tradeoff, there is no content-type fallback
// for extensionless URLs.
var extensionGroups = map[storage.FileKind][]string{
	storage.KindDocument: {".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt"},
	storage.KindImage:    {".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp"},
	storage.KindAudio:    {".mp3", ".wav", ".ogg"},
	storage.KindVideo:    {".mp4", ".mov", ".avi", ".mkv"},
}

var kindByExt = func() map[string]storage.FileKind {
	m := make(map[string]storage.FileKind)
	for kind, exts := range extensionGroups {
		for _, ext := range exts {
			m[ext] = kind
		}
	}
	return m
}()

// mediaSelector matches every element that can reference an embeddable
// source; anchors are handled separately because their display name comes
// from the link text rather than alt/title attributes.
const mediaSelector = "img[src], audio[src], video[src], source[src], embed[src]"

// Extractor produces deduplicated, typed file sets from page content.
type Extractor struct {
	feedParser *gofeed.Parser
}

func New() *Extractor {
	return &Extractor{feedParser: gofeed.NewParser()}
}

// Extract resolves every discovered reference against baseURL and returns
// the file set in first-occurrence document order, deduplicated by URL.
// Content that parses as an RSS/Atom feed contributes item enclosures and
// images instead of HTML elements. The same input always yields the same
// output ordering.
func (e *Extractor) Extract(content []byte, contentType, baseURL string) ([]storage.FileRef, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}

	c := &collector{base: base, seen: make(map[string]bool)}

	if isFeed(content, contentType) {
		if feed, parseErr := e.feedParser.Parse(bytes.NewReader(content)); parseErr == nil {
			e.collectFeed(c, feed)
			return c.refs, nil
		}
		// A feed that fails to parse is still worth an HTML pass; pages
		// occasionally mislabel themselves.
	}

	if err := e.collectHTML(c, content); err != nil {
		return nil, err
	}
	return c.refs, nil
}

func (e *Extractor) collectHTML(c *collector, content []byte) error {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(content))
	if err != nil {
		return fmt.Errorf("parsing html: %w", err)
	}

	doc.Find("a[href], " + mediaSelector).Each(func(_ int, sel *goquery.Selection) {
		if goquery.NodeName(sel) == "a" {
			href, _ := sel.Attr("href")
			c.add(href, sel.Text())
			return
		}
		src, _ := sel.Attr("src")
		name := sel.AttrOr("alt", "")
		if name == "" {
			name = sel.AttrOr("title", "")
		}
		c.add(src, name)
	})
	return nil
}

func (e *Extractor) collectFeed(c *collector, feed *gofeed.Feed) {
	for _, item := range feed.Items {
		for _, enc := range item.Enclosures {
			c.add(enc.URL, item.Title)
		}
		if item.Image != nil {
			c.add(item.Image.URL, item.Title)
		}
	}
	if feed.Image != nil {
		c.add(feed.Image.URL, feed.Title)
	}
}

// isFeed reports whether content should go through the feed path. The
// content type is checked first because sniffing reads the body.
func isFeed(content []byte, contentType string) bool {
	ct := strings.ToLower(contentType)
	if strings.Contains(ct, "rss") || strings.Contains(ct, "atom") {
		return true
	}
	if strings.Contains(ct, "html") {
		return false
	}
	return gofeed.DetectFeedType(bytes.NewReader(content)) != gofeed.FeedTypeUnknown
}

type collector struct {
	base *url.URL
	seen map[string]bool
	refs []storage.FileRef
}

func (c *collector) add(ref, name string) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return
	}
	resolved := c.base.ResolveReference(parsed)

	kind, ok := kindFor(resolved.Path)
	if !ok {
		return
	}

	abs := resolved.String()
	if c.seen[abs] {
		return
	}
	c.seen[abs] = true

	name = strings.TrimSpace(name)
	if name == "" {
		name = baseName(resolved)
	}

	c.refs = append(c.refs, storage.FileRef{Name: name, URL: abs, Kind: kind})
}

// kindFor matches the lowercased path extension against the allowed groups.
// Query strings and fragments never reach here; they are not part of Path.
func kindFor(urlPath string) (storage.FileKind, bool) {
	ext := strings.ToLower(path.Ext(urlPath))
	if ext == "" {
		return "", false
	}
	kind, ok := kindByExt[ext]
	return kind, ok
}

// baseName derives a display name from the URL: the final path element
// without its extension.
func baseName(u *url.URL) string {
	b := path.Base(u.Path)
	return strings.TrimSuffix(b, path.Ext(b))
}
