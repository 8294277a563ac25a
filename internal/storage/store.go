package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	trackedBucket   = []byte("tracked")
	schedulesBucket = []byte("schedules")
	allowlistBucket = []byte("allowlist")
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a create would overwrite an existing record.
	ErrDuplicate = errors.New("already exists")
)

// Store persists tracked URLs, schedule entries and allow-list records as
// JSON values in bbolt. Every mutation touches exactly one record inside
// one transaction, so concurrent check cycles for different URLs cannot
// clobber each other's updates.
type Store struct {
	db *bolt.DB
}

func NewStore(dbPath string) (*Store, error) {
	db, err := bolt.Open(dbPath, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{trackedBucket, schedulesBucket, allowlistBucket} {
			if _, createErr := tx.CreateBucketIfNotExists(bucket); createErr != nil {
				return createErr
			}
		}
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("creating buckets: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// trackedKey builds the per-record key. The colon after the owner ID keeps
// owner 12 from matching keys of owner 123 during prefix scans.
func trackedKey(ownerID int64, url string) []byte {
	return []byte(fmt.Sprintf("%d:%s", ownerID, url))
}

func ownerPrefix(ownerID int64) []byte {
	return []byte(fmt.Sprintf("%d:", ownerID))
}

// CreateTracked inserts a new tracked URL and fails with ErrDuplicate when
// the owner already tracks that URL.
func (s *Store) CreateTracked(t *TrackedURL) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(trackedBucket)
		key := trackedKey(t.OwnerID, t.URL)
		if b.Get(key) != nil {
			return fmt.Errorf("tracked url %q for owner %d: %w", t.URL, t.OwnerID, ErrDuplicate)
		}
		data, err := json.Marshal(t)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *Store) GetTracked(ownerID int64, url string) (*TrackedURL, error) {
	var tracked TrackedURL
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(trackedBucket)
		data := b.Get(trackedKey(ownerID, url))
		if data == nil {
			return fmt.Errorf("tracked url %q for owner %d: %w", url, ownerID, ErrNotFound)
		}
		return json.Unmarshal(data, &tracked)
	})
	if err != nil {
		return nil, err
	}
	return &tracked, nil
}

func (s *Store) ListTracked(ownerID int64) ([]*TrackedURL, error) {
	var tracked []*TrackedURL
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(trackedBucket).Cursor()
		prefix := ownerPrefix(ownerID)
		for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			var t TrackedURL
			if err := json.Unmarshal(v, &t); err != nil {
				return err
			}
			tracked = append(tracked, &t)
		}
		return nil
	})
	sort.Slice(tracked, func(i, j int) bool {
		return tracked[i].URL < tracked[j].URL
	})
	return tracked, err
}

// UpdateTracked applies fn to the stored record under one transaction.
// This is the read-modify-write primitive check cycles commit through: the
// cycle's result lands atomically or, when fn fails, not at all.
func (s *Store) UpdateTracked(ownerID int64, url string, fn func(*TrackedURL) error) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(trackedBucket)
		key := trackedKey(ownerID, url)
		data := b.Get(key)
		if data == nil {
			return fmt.Errorf("tracked url %q for owner %d: %w", url, ownerID, ErrNotFound)
		}

		var tracked TrackedURL
		if err := json.Unmarshal(data, &tracked); err != nil {
			return err
		}

		if err := fn(&tracked); err != nil {
			return err
		}

		data, err := json.Marshal(&tracked)
		if err != nil {
			return err
		}
		return b.Put(key, data)
	})
}

func (s *Store) DeleteTracked(ownerID int64, url string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(trackedBucket)
		key := trackedKey(ownerID, url)
		if b.Get(key) == nil {
			return fmt.Errorf("tracked url %q for owner %d: %w", url, ownerID, ErrNotFound)
		}
		return b.Delete(key)
	})
}

// SaveSchedule upserts a schedule entry keyed by its stable ID, replacing
// any prior entry for the same owner+URL.
func (s *Store) SaveSchedule(e *ScheduleEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(schedulesBucket)
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return b.Put([]byte(e.ID), data)
	})
}

func (s *Store) GetSchedule(id string) (*ScheduleEntry, error) {
	var entry ScheduleEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(schedulesBucket).Get([]byte(id))
		if data == nil {
			return fmt.Errorf("schedule %q: %w", id, ErrNotFound)
		}
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (s *Store) ListSchedules() ([]*ScheduleEntry, error) {
	var entries []*ScheduleEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(schedulesBucket).ForEach(func(_ []byte, v []byte) error {
			var e ScheduleEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			entries = append(entries, &e)
			return nil
		})
	})
	return entries, err
}

func (s *Store) DeleteSchedule(id string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(schedulesBucket).Delete([]byte(id))
	})
}

func allowKey(kind AllowKind, id int64) []byte {
	return []byte(fmt.Sprintf("%s:%d", kind, id))
}

func (s *Store) SaveAllow(e *AllowEntry) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		data, err := json.Marshal(e)
		if err != nil {
			return err
		}
		return tx.Bucket(allowlistBucket).Put(allowKey(e.Kind, e.ID), data)
	})
}

func (s *Store) DeleteAllow(kind AllowKind, id int64) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(allowlistBucket)
		key := allowKey(kind, id)
		if b.Get(key) == nil {
			return fmt.Errorf("allow entry %s %d: %w", kind, id, ErrNotFound)
		}
		return b.Delete(key)
	})
}

func (s *Store) IsAllowed(kind AllowKind, id int64) (bool, error) {
	var allowed bool
	err := s.db.View(func(tx *bolt.Tx) error {
		allowed = tx.Bucket(allowlistBucket).Get(allowKey(kind, id)) != nil
		return nil
	})
	return allowed, err
}

func (s *Store) ListAllow(kind AllowKind) ([]*AllowEntry, error) {
	var entries []*AllowEntry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(allowlistBucket).ForEach(func(_ []byte, v []byte) error {
			var e AllowEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return err
			}
			if e.Kind == kind {
				entries = append(entries, &e)
			}
			return nil
		})
	})
	return entries, err
}
