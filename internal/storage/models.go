package storage

import (
	"time"
)

// FileKind classifies a discovered file by its extension group.
type FileKind string

const (
	KindDocument FileKind = "document"
	KindImage    FileKind = "image"
	KindAudio    FileKind = "audio"
	KindVideo    FileKind = "video"
)

// FileRef is one downloadable file discovered on a tracked page.
// Identity is the URL alone; Name and Kind are descriptive.
type FileRef struct {
	Name string   `json:"name"`
	URL  string   `json:"url"`
	Kind FileKind `json:"kind"`
}

// TrackedURL is one page watched on behalf of one owner. Hash and Files
// reflect the content as of the last successfully processed check cycle,
// never a cycle that failed partway.
type TrackedURL struct {
	URL           string        `json:"url"`
	OwnerID       int64         `json:"owner_id"`
	Hash          string        `json:"hash"`
	Files         []FileRef     `json:"files"`
	Interval      time.Duration `json:"interval"`
	NightMode     bool          `json:"night_mode"`
	LastCheckedAt time.Time     `json:"last_checked_at"`
	ScheduleID    string        `json:"schedule_id"`
}

// HasFile reports whether url is already in the stored file set.
func (t *TrackedURL) HasFile(url string) bool {
	for _, f := range t.Files {
		if f.URL == url {
			return true
		}
	}
	return false
}

// MergeFiles adds refs to the stored file set, skipping URLs already
// present. The stored set keeps unique URLs.
func (t *TrackedURL) MergeFiles(refs []FileRef) {
	for _, ref := range refs {
		if !t.HasFile(ref.URL) {
			t.Files = append(t.Files, ref)
		}
	}
}

// ScheduleEntry drives periodic checks for one tracked URL. Entries survive
// restarts; ID is derived from owner+URL so re-registration replaces the
// prior entry instead of duplicating it.
type ScheduleEntry struct {
	ID        string        `json:"id"`
	OwnerID   int64         `json:"owner_id"`
	URL       string        `json:"url"`
	Interval  time.Duration `json:"interval"`
	NightMode bool          `json:"night_mode"`
	NextRunAt time.Time     `json:"next_run_at"`
}

// AllowKind distinguishes allow-list record types.
type AllowKind string

const (
	AllowChannel AllowKind = "channel"
	AllowSudo    AllowKind = "sudo"
)

// AllowEntry is one authorization allow-list record.
type AllowEntry struct {
	Kind    AllowKind `json:"kind"`
	ID      int64     `json:"id"`
	AddedAt time.Time `json:"added_at"`
}
