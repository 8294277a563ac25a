// Package watch runs one change-detection cycle for a tracked URL: fetch,
// fingerprint, diff against the stored file set, deliver what is new, and
// commit the result in a single store update.
package watch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pagewatch/internal/deliver"
	"pagewatch/internal/fetch"
	"pagewatch/internal/fingerprint"
	"pagewatch/internal/notify"
	"pagewatch/internal/storage"
)

// PageFetcher retrieves raw page content.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*fetch.Page, error)
}

// FileExtractor turns page content into file references.
type FileExtractor interface {
	Extract(content []byte, contentType, baseURL string) ([]storage.FileRef, error)
}

// Deliverer ships a batch of new files to an owner.
type Deliverer interface {
	Deliver(ctx context.Context, chatID int64, pageURL string, files []storage.FileRef) []deliver.Result
}

type Outcome string

const (
	// OutcomeUnchanged means the content hash matched the stored one.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeChanged means the hash differed and the cycle committed.
	OutcomeChanged Outcome = "changed"
)

// Report summarizes one completed cycle. Failed cycles return an error
// instead.
type Report struct {
	Outcome   Outcome
	NewFiles  []storage.FileRef
	Delivered []storage.FileRef
	Failed    []storage.FileRef
}

// Detector orchestrates check cycles. Collaborators are injected so the
// cycle logic stays independent of transport details.
type Detector struct {
	store     *storage.Store
	fetcher   PageFetcher
	extractor FileExtractor
	pipeline  Deliverer
	messenger notify.Messenger
	log       *zap.Logger
	now       func() time.Time
}

func New(store *storage.Store, fetcher PageFetcher, extractor FileExtractor, pipeline Deliverer, messenger notify.Messenger, log *zap.Logger) *Detector {
	return &Detector{
		store:     store,
		fetcher:   fetcher,
		extractor: extractor,
		pipeline:  pipeline,
		messenger: messenger,
		log:       log,
		now:       time.Now,
	}
}

// Check runs one cycle for the owner's tracked URL.
//
// A fetch failure leaves the stored hash and file set untouched and returns
// an error; the next scheduled fire proceeds normally. When the hash matches
// the stored one only the check timestamp is refreshed. When it differs, the
// owner is always told the page changed, new files (by URL, against the
// stored set) go through the delivery pipeline, and exactly one
// read-modify-write commit records the outcome. Delivered files merge into
// the stored set immediately so they are never sent twice; the new hash is
// recorded only when every new file was delivered. After a partial failure
// the old hash stays in place, so the next cycle diffs again and re-offers
// exactly the files that failed.
func (d *Detector) Check(ctx context.Context, ownerID int64, url string) (*Report, error) {
	tracked, err := d.store.GetTracked(ownerID, url)
	if err != nil {
		return nil, fmt.Errorf("loading tracked url: %w", err)
	}

	page, err := d.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", url, err)
	}

	hash := fingerprint.Sum(page.Body)
	log := d.log.With(zap.Int64("owner", ownerID), zap.String("url", url))

	if hash == tracked.Hash {
		if err := d.touch(ownerID, url); err != nil {
			log.Debug("refreshing check timestamp failed", zap.Error(err))
		}
		return &Report{Outcome: OutcomeUnchanged}, nil
	}

	current, err := d.extractor.Extract(page.Body, page.ContentType, page.FinalURL)
	if err != nil {
		// The page did change; treat the file set as empty and commit the
		// hash so the change is not re-announced every cycle.
		log.Warn("extraction failed, continuing with empty file set", zap.Error(err))
		current = nil
	}

	if err := d.messenger.SendMessage(ctx, ownerID, notify.PageChanged(url)); err != nil {
		log.Warn("change notification failed", zap.Error(err))
	}

	fresh := newFiles(current, tracked)

	var delivered, failed []storage.FileRef
	if len(fresh) > 0 {
		results := d.pipeline.Deliver(ctx, ownerID, url, fresh)
		delivered = deliver.Delivered(results)
		for _, r := range results {
			if r.Err != nil {
				failed = append(failed, r.File)
			}
		}
	}

	err = d.store.UpdateTracked(ownerID, url, func(t *storage.TrackedURL) error {
		t.MergeFiles(delivered)
		if len(failed) == 0 {
			t.Hash = hash
		}
		t.LastCheckedAt = d.now()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("committing check cycle: %w", err)
	}

	if len(failed) > 0 {
		if err := d.messenger.SendMessage(ctx, ownerID, notify.DeliveryFailed(url, failed)); err != nil {
			log.Warn("delivery failure notice failed", zap.Error(err))
		}
		log.Warn("page changed, some files failed delivery",
			zap.Int("new_files", len(fresh)),
			zap.Int("delivered", len(delivered)),
			zap.Int("failed", len(failed)))
	} else {
		log.Info("page changed",
			zap.Int("new_files", len(fresh)),
			zap.Int("delivered", len(delivered)))
	}

	return &Report{
		Outcome:   OutcomeChanged,
		NewFiles:  fresh,
		Delivered: delivered,
		Failed:    failed,
	}, nil
}

func (d *Detector) touch(ownerID int64, url string) error {
	return d.store.UpdateTracked(ownerID, url, func(t *storage.TrackedURL) error {
		t.LastCheckedAt = d.now()
		return nil
	})
}

// newFiles returns the refs in current whose URL is absent from the stored
// set. Name and kind are descriptive only; identity is the URL.
func newFiles(current []storage.FileRef, stored *storage.TrackedURL) []storage.FileRef {
	var out []storage.FileRef
	for _, f := range current {
		if !stored.HasFile(f.URL) {
			out = append(out, f)
		}
	}
	return out
}
