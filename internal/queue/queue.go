// Package queue implements the per-day offline queue: an ordered,
// durably persisted list of payloads that could not be delivered to the
// remote entry store. The queue is the engine's crash-safe memory of
// undelivered mutations; it is empty exactly when nothing is owed to
// the server.
package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/storage"
)

// keyPrefix namespaces queue entries in the shared key-value store.
const keyPrefix = "journalQueue:"

// Entry is one undelivered payload with the time it was queued.
type Entry struct {
	Timestamp time.Time      `json:"timestamp"`
	Payload   journal.Fields `json:"payload"`
}

// Key returns the storage key holding the queue for a day.
func Key(day journal.DayKey) string {
	return keyPrefix + day.String()
}

// Queue is the offline queue for a single day key. All persistence goes
// through the injected store; the queue itself holds no state between
// calls, so a process restart loses nothing.
type Queue struct {
	store storage.Store
	day   journal.DayKey
	now   func() time.Time
}

// New creates a queue bound to a store and day key.
func New(store storage.Store, day journal.DayKey) *Queue {
	return NewWithNow(store, day, time.Now)
}

// NewWithNow creates a queue with an injected time source for entry
// timestamps.
func NewWithNow(store storage.Store, day journal.DayKey, now func() time.Time) *Queue {
	return &Queue{
		store: store,
		day:   day,
		now:   now,
	}
}

// Load reads the persisted queue. A missing key or unparseable stored
// value yields an empty queue, never an error: corrupt entries from a
// previous session are dropped rather than wedging the engine.
func (q *Queue) Load() ([]Entry, error) {
	raw, ok, err := q.store.Get(Key(q.day))
	if err != nil {
		return nil, fmt.Errorf("failed to read queue for %s: %w", q.day, err)
	}
	if !ok {
		return nil, nil
	}

	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		// Corrupt persisted data heals itself as an empty queue.
		return nil, nil
	}
	return entries, nil
}

// Append pushes a payload onto the queue and persists the whole list
// synchronously, so a crash immediately after still finds the entry.
func (q *Queue) Append(payload journal.Fields) error {
	entries, err := q.Load()
	if err != nil {
		return err
	}

	entries = append(entries, Entry{
		Timestamp: q.now(),
		Payload:   payload.Clone(),
	})

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("failed to encode queue for %s: %w", q.day, err)
	}
	if err := q.store.Set(Key(q.day), raw); err != nil {
		return fmt.Errorf("failed to persist queue for %s: %w", q.day, err)
	}
	return nil
}

// Len returns the number of queued entries. Storage errors count as an
// empty queue; the caller cannot act on them anyway.
func (q *Queue) Len() int {
	entries, err := q.Load()
	if err != nil {
		return 0
	}
	return len(entries)
}

// Clear removes the persisted list entirely. The key is deleted, not
// set to an empty array, so the store never carries a vacuous value.
func (q *Queue) Clear() error {
	if err := q.store.Delete(Key(q.day)); err != nil {
		return fmt.Errorf("failed to clear queue for %s: %w", q.day, err)
	}
	return nil
}

// PendingDays returns every day key with a non-empty persisted queue,
// sorted. Keys that do not parse as days are skipped; they belong to
// other users of the store.
func PendingDays(store storage.Store) ([]journal.DayKey, error) {
	keys, err := store.Keys(keyPrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list queue keys: %w", err)
	}

	var days []journal.DayKey
	for _, k := range keys {
		day, err := journal.ParseDayKey(k[len(keyPrefix):])
		if err != nil {
			continue
		}
		days = append(days, day)
	}
	return days, nil
}

// Merge folds queued payloads in chronological order, later entries
// overwriting earlier ones key by key. The result is what the server
// would see if everything were sent now. Merge is a pure last-write-wins
// fold: merging the same queue twice yields the same map.
func Merge(entries []Entry) journal.Fields {
	merged := journal.Fields{}
	for _, e := range entries {
		merged = journal.Overlay(merged, e.Payload)
	}
	return merged
}
