// Package deliver materializes new files into a scoped temporary directory
// and ships them to the owner, isolating per-file failures and cleaning up
// every artifact regardless of outcome.
package deliver

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pagewatch/internal/notify"
	"pagewatch/internal/storage"
)

const (
	defaultMaxFileBytes = 45 << 20
	defaultManifestMax  = 4096
	defaultConcurrency  = 3
	defaultTimeout      = 2 * time.Minute
)

type Config struct {
	TempDir          string
	MaxFileBytes     int64
	ManifestMaxChars int
	Concurrency      int
	DownloadTimeout  time.Duration
}

// Result reports the outcome for one file. A nil Err means the file reached
// the owner.
type Result struct {
	File storage.FileRef
	Err  error
}

// Delivered filters results down to the files that made it through; the
// detector merges exactly these into the stored set.
func Delivered(results []Result) []storage.FileRef {
	var out []storage.FileRef
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.File)
		}
	}
	return out
}

type Pipeline struct {
	client      *http.Client
	messenger   notify.Messenger
	log         *zap.Logger
	tempBase    string
	maxBytes    int64
	manifestMax int
	concurrency int
}

func New(messenger notify.Messenger, log *zap.Logger, cfg Config) *Pipeline {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = defaultMaxFileBytes
	}
	if cfg.ManifestMaxChars <= 0 {
		cfg.ManifestMaxChars = defaultManifestMax
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = defaultTimeout
	}

	return &Pipeline{
		client:      &http.Client{Timeout: cfg.DownloadTimeout},
		messenger:   messenger,
		log:         log,
		tempBase:    cfg.TempDir,
		maxBytes:    cfg.MaxFileBytes,
		manifestMax: cfg.ManifestMaxChars,
		concurrency: cfg.Concurrency,
	}
}

// Deliver ships files to chatID: one manifest message first (skipped
// entirely when it exceeds the size cap), then each file independently with
// bounded download concurrency. One failed file never aborts the rest; the
// caller reads per-file outcomes from the returned slice, index-aligned
// with files. The batch temp directory is removed before return on every
// path.
func (p *Pipeline) Deliver(ctx context.Context, chatID int64, pageURL string, files []storage.FileRef) []Result {
	if len(files) == 0 {
		return nil
	}

	results := make([]Result, len(files))
	for i, f := range files {
		results[i].File = f
	}

	batchID := uuid.NewString()
	dir := filepath.Join(p.tempBase, "pagewatch-"+batchID)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		err = fmt.Errorf("creating batch temp dir: %w", err)
		for i := range results {
			results[i].Err = err
		}
		return results
	}
	defer os.RemoveAll(dir)

	log := p.log.With(zap.String("batch", batchID), zap.String("page", pageURL))

	manifest := notify.Manifest(pageURL, files)
	if utf8.RuneCountInString(manifest) <= p.manifestMax {
		if err := p.messenger.SendMessage(ctx, chatID, manifest); err != nil {
			log.Warn("manifest send failed", zap.Error(err))
		}
	} else {
		log.Info("manifest exceeds size cap, skipped",
			zap.Int("chars", utf8.RuneCountInString(manifest)),
			zap.Int("cap", p.manifestMax))
	}

	b := &batch{dir: dir, used: make(map[string]bool)}

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i := range files {
		i := i
		g.Go(func() error {
			if err := p.deliverOne(ctx, b, chatID, files[i]); err != nil {
				log.Error("file delivery failed",
					zap.String("url", files[i].URL), zap.Error(err))
				results[i].Err = err
			}
			return nil
		})
	}
	g.Wait()

	return results
}

// deliverOne runs one file's download, send, cleanup sequence. The local
// artifact is removed on every exit path.
func (p *Pipeline) deliverOne(ctx context.Context, b *batch, chatID int64, f storage.FileRef) error {
	localPath, err := p.download(ctx, b, f)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", f.URL, err)
	}
	defer os.Remove(localPath)

	if err := p.messenger.SendFile(ctx, chatID, localPath, notify.Caption(f)); err != nil {
		return fmt.Errorf("sending %s: %w", f.Name, err)
	}
	return nil
}
