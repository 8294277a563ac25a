// Package track is the command surface behind /track, /untrack, /list and
// /files. It owns the lifecycle of a tracking entry: validated URL, stored
// record, schedule registration and the immediate first check.
package track

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"pagewatch/internal/storage"
	"pagewatch/internal/validation"
	"pagewatch/internal/watch"
)

// DefaultInterval applies when a track request does not name one.
const DefaultInterval = 30 * time.Minute

// ErrNotTracked is returned when an operation names a URL the owner does
// not track.
var ErrNotTracked = errors.New("url is not tracked")

// Checker runs one check cycle on demand. Satisfied by watch.Detector.
type Checker interface {
	Check(ctx context.Context, ownerID int64, url string) (*watch.Report, error)
}

// Registrar manages schedule entries. Satisfied by schedule.Scheduler.
type Registrar interface {
	Register(ownerID int64, url string, interval time.Duration, nightMode bool) (string, error)
	Unregister(ownerID int64, url string) error
}

// Service implements the tracking commands.
type Service struct {
	store           *storage.Store
	validator       *validation.PageURLValidator
	scheduler       Registrar
	detector        Checker
	defaultInterval time.Duration
	log             *zap.Logger
}

func NewService(store *storage.Store, validator *validation.PageURLValidator, scheduler Registrar, detector Checker, defaultInterval time.Duration, log *zap.Logger) *Service {
	if defaultInterval <= 0 {
		defaultInterval = DefaultInterval
	}
	return &Service{
		store:           store,
		validator:       validator,
		scheduler:       scheduler,
		detector:        detector,
		defaultInterval: defaultInterval,
		log:             log,
	}
}

// Track starts watching a URL for the owner. The URL is validated and
// normalized, the record persisted, the schedule registered, and one check
// cycle runs immediately so files already on the page are delivered. A
// failed first cycle does not undo the tracking; the schedule retries it.
func (s *Service) Track(ctx context.Context, ownerID int64, rawURL string, interval time.Duration, nightMode bool) (*storage.TrackedURL, error) {
	url, err := s.validator.ValidateAndNormalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("validating url: %w", err)
	}

	if interval <= 0 {
		interval = s.defaultInterval
	}

	tracked := &storage.TrackedURL{
		URL:       url,
		OwnerID:   ownerID,
		Interval:  interval,
		NightMode: nightMode,
	}
	if err := s.store.CreateTracked(tracked); err != nil {
		return nil, err
	}

	scheduleID, err := s.scheduler.Register(ownerID, url, interval, nightMode)
	if err != nil {
		// Roll the record back so the command can be retried cleanly.
		if delErr := s.store.DeleteTracked(ownerID, url); delErr != nil {
			s.log.Error("rollback after schedule failure", zap.String("url", url), zap.Error(delErr))
		}
		return nil, fmt.Errorf("registering schedule: %w", err)
	}

	err = s.store.UpdateTracked(ownerID, url, func(t *storage.TrackedURL) error {
		t.ScheduleID = scheduleID
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("recording schedule id: %w", err)
	}
	tracked.ScheduleID = scheduleID

	s.log.Info("tracking started",
		zap.Int64("owner", ownerID),
		zap.String("url", url),
		zap.Duration("interval", interval),
		zap.Bool("night_mode", nightMode))

	if _, err := s.detector.Check(ctx, ownerID, url); err != nil {
		s.log.Warn("initial check failed", zap.String("url", url), zap.Error(err))
	}

	return tracked, nil
}

// Untrack stops watching a URL and removes its schedule entry.
func (s *Service) Untrack(ownerID int64, rawURL string) error {
	url, err := s.validator.ValidateAndNormalize(rawURL)
	if err != nil {
		return fmt.Errorf("validating url: %w", err)
	}

	if err := s.scheduler.Unregister(ownerID, url); err != nil {
		return fmt.Errorf("unregistering schedule: %w", err)
	}

	if err := s.store.DeleteTracked(ownerID, url); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("%s: %w", url, ErrNotTracked)
		}
		return err
	}

	s.log.Info("tracking stopped", zap.Int64("owner", ownerID), zap.String("url", url))
	return nil
}

// List returns the owner's tracked URLs.
func (s *Service) List(ownerID int64) ([]*storage.TrackedURL, error) {
	return s.store.ListTracked(ownerID)
}

// Files returns the tracked record for a URL, for rendering its stored
// file set.
func (s *Service) Files(ownerID int64, rawURL string) (*storage.TrackedURL, error) {
	url, err := s.validator.ValidateAndNormalize(rawURL)
	if err != nil {
		return nil, fmt.Errorf("validating url: %w", err)
	}

	tracked, err := s.store.GetTracked(ownerID, url)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", url, ErrNotTracked)
		}
		return nil, err
	}
	return tracked, nil
}
