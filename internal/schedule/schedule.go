// Package schedule drives periodic check cycles for tracked URLs. Entries
// are durable, so a restart resumes where the process left off; fires
// missed beyond a grace period coalesce into one catch-up run.
package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"pagewatch/internal/fingerprint"
	"pagewatch/internal/storage"
)

const (
	defaultTick     = 30 * time.Second
	defaultGrace    = time.Hour
	defaultWorkers  = 4
	defaultTimezone = "Asia/Kolkata"

	// Quiet-hours window: night-mode entries fire only when the hour of
	// day in the reference timezone falls inside [start, end].
	defaultActiveStart = 6
	defaultActiveEnd   = 22
)

// RunFunc executes one check cycle for a tracked URL. The scheduler never
// inspects the outcome; failures are the runner's to log.
type RunFunc func(ctx context.Context, ownerID int64, url string)

type Config struct {
	Tick             time.Duration
	MisfireGrace     time.Duration
	Timezone         string
	ActiveHoursStart int
	ActiveHoursEnd   int
	Workers          int
}

// EntryID derives the stable schedule key for an owner's URL. Registering
// the same pair twice yields the same ID, so the entry is replaced rather
// than duplicated.
func EntryID(ownerID int64, url string) string {
	return fmt.Sprintf("%d_%s", ownerID, fingerprint.Sum([]byte(url)))
}

type job struct {
	entryID string
	ownerID int64
	url     string
}

// Scheduler is a timer-driven dispatcher. Each tick it scans the persisted
// entries, advances due ones, and hands runnable ones to a bounded worker
// pool. At most one run per entry is in flight at a time; dispatch never
// blocks on a saturated pool.
type Scheduler struct {
	store *storage.Store
	run   RunFunc
	clock Clock
	log   *zap.Logger
	loc   *time.Location

	tick      time.Duration
	grace     time.Duration
	startHour int
	endHour   int
	workers   int

	mu       sync.Mutex
	inflight map[string]bool
}

func New(store *storage.Store, run RunFunc, log *zap.Logger, cfg Config) (*Scheduler, error) {
	if cfg.Tick <= 0 {
		cfg.Tick = defaultTick
	}
	if cfg.MisfireGrace <= 0 {
		cfg.MisfireGrace = defaultGrace
	}
	if cfg.Timezone == "" {
		cfg.Timezone = defaultTimezone
	}
	if cfg.ActiveHoursStart == 0 && cfg.ActiveHoursEnd == 0 {
		cfg.ActiveHoursStart = defaultActiveStart
		cfg.ActiveHoursEnd = defaultActiveEnd
	}
	if cfg.Workers <= 0 {
		cfg.Workers = defaultWorkers
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", cfg.Timezone, err)
	}

	return &Scheduler{
		store:     store,
		run:       run,
		clock:     RealClock{},
		log:       log,
		loc:       loc,
		tick:      cfg.Tick,
		grace:     cfg.MisfireGrace,
		startHour: cfg.ActiveHoursStart,
		endHour:   cfg.ActiveHoursEnd,
		workers:   cfg.Workers,
		inflight:  make(map[string]bool),
	}, nil
}

// Register creates or replaces the schedule entry for the owner's URL and
// returns its ID. The first fire comes one interval from now; the immediate
// check at track time is the caller's business.
func (s *Scheduler) Register(ownerID int64, url string, interval time.Duration, nightMode bool) (string, error) {
	entry := &storage.ScheduleEntry{
		ID:        EntryID(ownerID, url),
		OwnerID:   ownerID,
		URL:       url,
		Interval:  interval,
		NightMode: nightMode,
		NextRunAt: s.clock.Now().Add(interval),
	}
	if err := s.store.SaveSchedule(entry); err != nil {
		return "", fmt.Errorf("saving schedule entry: %w", err)
	}
	return entry.ID, nil
}

// Unregister removes the entry for the owner's URL. Removing an absent
// entry is a no-op.
func (s *Scheduler) Unregister(ownerID int64, url string) error {
	return s.store.DeleteSchedule(EntryID(ownerID, url))
}

// Run dispatches until ctx is cancelled, then drains in-flight work. One
// dispatch pass happens immediately on startup so entries that came due
// while the process was down are caught up right away.
func (s *Scheduler) Run(ctx context.Context) error {
	jobs := make(chan job, s.workers)

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go s.worker(ctx, &wg, jobs)
	}

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Duration("tick", s.tick),
		zap.Int("workers", s.workers),
		zap.String("timezone", s.loc.String()))

	s.dispatch(s.clock.Now(), jobs)
	for {
		select {
		case <-ctx.Done():
			close(jobs)
			wg.Wait()
			s.log.Info("scheduler stopped")
			return nil
		case <-ticker.C:
			s.dispatch(s.clock.Now(), jobs)
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, wg *sync.WaitGroup, jobs <-chan job) {
	defer wg.Done()
	for j := range jobs {
		s.run(ctx, j.ownerID, j.url)
		s.release(j.entryID)
	}
}

// dispatch performs one scan over the persisted entries. Due entries inside
// a quiet window advance without executing; runnable ones are claimed,
// advanced, and queued. A saturated pool leaves the entry due, so the next
// tick retries instead of dropping the run.
func (s *Scheduler) dispatch(now time.Time, jobs chan<- job) {
	entries, err := s.store.ListSchedules()
	if err != nil {
		s.log.Error("listing schedule entries", zap.Error(err))
		return
	}

	for _, entry := range entries {
		if now.Before(entry.NextRunAt) {
			continue
		}

		if !s.shouldFireNow(now, entry) {
			entry.NextRunAt = entry.NextRunAt.Add(entry.Interval)
			if err := s.store.SaveSchedule(entry); err != nil {
				s.log.Error("advancing suppressed entry", zap.String("id", entry.ID), zap.Error(err))
			}
			continue
		}

		if !s.claim(entry.ID) {
			continue
		}

		select {
		case jobs <- job{entryID: entry.ID, ownerID: entry.OwnerID, url: entry.URL}:
		default:
			s.release(entry.ID)
			continue
		}

		entry.NextRunAt = s.nextRun(now, entry)
		if err := s.store.SaveSchedule(entry); err != nil {
			s.log.Error("advancing schedule entry", zap.String("id", entry.ID), zap.Error(err))
		}
	}
}

// shouldFireNow is the single firing predicate: the entry is due and, for
// night-mode entries, the hour of day in the reference timezone falls
// inside the allowed window.
func (s *Scheduler) shouldFireNow(now time.Time, entry *storage.ScheduleEntry) bool {
	if now.Before(entry.NextRunAt) {
		return false
	}
	if !entry.NightMode {
		return true
	}
	hour := now.In(s.loc).Hour()
	return hour >= s.startHour && hour <= s.endHour
}

// nextRun computes the due time following a fire at now. A fire detected
// late beyond the grace period rebases to now; otherwise the cadence stays
// anchored to the scheduled time, skipping any slots that already passed so
// missed intervals collapse into the one run that just happened.
func (s *Scheduler) nextRun(now time.Time, entry *storage.ScheduleEntry) time.Time {
	if now.Sub(entry.NextRunAt) > s.grace {
		return now.Add(entry.Interval)
	}
	next := entry.NextRunAt.Add(entry.Interval)
	for !next.After(now) {
		next = next.Add(entry.Interval)
	}
	return next
}

func (s *Scheduler) claim(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inflight[id] {
		return false
	}
	s.inflight[id] = true
	return true
}

func (s *Scheduler) release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, id)
}
