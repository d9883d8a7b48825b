package queue

import (
	"testing"
	"time"

	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/storage"
)

func newTestQueue(t *testing.T) (*Queue, *storage.MemoryStore) {
	t.Helper()

	store := storage.NewMemoryStore()
	q := New(store, "2024-03-09")

	// Deterministic timestamps for ordering assertions.
	base := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	n := 0
	q.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}
	return q, store
}

func TestLoadEmptyWhenAbsent(t *testing.T) {
	q, _ := newTestQueue(t)

	entries, err := q.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty queue, got %v", entries)
	}
}

func TestAppendPersistsOrder(t *testing.T) {
	q, _ := newTestQueue(t)

	if err := q.Append(journal.Fields{"mood": 2}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}
	if err := q.Append(journal.Fields{"mood": 4}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	entries, err := q.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if !entries[0].Timestamp.Before(entries[1].Timestamp) {
		t.Error("entries out of chronological order")
	}
}

func TestAppendSurvivesReload(t *testing.T) {
	q, store := newTestQueue(t)

	if err := q.Append(journal.Fields{"energy": 3}); err != nil {
		t.Fatalf("Append failed: %v", err)
	}

	// A fresh queue over the same store simulates a process restart.
	reloaded := New(store, "2024-03-09")
	entries, err := reloaded.Load()
	if err != nil {
		t.Fatalf("Load after reload failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry after reload, got %d", len(entries))
	}
	if !journal.Equal(entries[0].Payload["energy"], 3) {
		t.Errorf("unexpected payload after reload: %v", entries[0].Payload)
	}
}

func TestMergeLastWriteWins(t *testing.T) {
	q, _ := newTestQueue(t)

	_ = q.Append(journal.Fields{"mood": 2})
	_ = q.Append(journal.Fields{"mood": 4})

	entries, _ := q.Load()
	merged := Merge(entries)

	if !journal.Equal(merged["mood"], 4) {
		t.Errorf("expected mood=4 after merge, got %v", merged["mood"])
	}
}

func TestMergeAccumulatesAcrossFields(t *testing.T) {
	q, _ := newTestQueue(t)

	_ = q.Append(journal.Fields{"mood": 2, "energy": 5})
	_ = q.Append(journal.Fields{"mood": 3})
	_ = q.Append(journal.Fields{"stress": 1})

	entries, _ := q.Load()
	merged := Merge(entries)

	want := journal.Fields{"mood": 3, "energy": 5, "stress": 1}
	if len(merged) != len(want) {
		t.Fatalf("unexpected merged map: %v", merged)
	}
	for k, v := range want {
		if !journal.Equal(merged[k], v) {
			t.Errorf("merged[%s] = %v, want %v", k, merged[k], v)
		}
	}
}

func TestMergeIdempotent(t *testing.T) {
	q, _ := newTestQueue(t)

	_ = q.Append(journal.Fields{"mood": 2, "energy": 4})
	_ = q.Append(journal.Fields{"mood": 5})

	entries, _ := q.Load()
	once := Merge(entries)

	// Re-wrapping the merged map as a single-entry queue and merging
	// again must be a fixed point.
	twice := Merge([]Entry{{Timestamp: time.Now(), Payload: once}})

	if len(once) != len(twice) {
		t.Fatalf("merge not idempotent: %v vs %v", once, twice)
	}
	for k := range once {
		if !journal.Equal(once[k], twice[k]) {
			t.Errorf("merge not idempotent at %s: %v vs %v", k, once[k], twice[k])
		}
	}
}

func TestClearRemovesKeyEntirely(t *testing.T) {
	q, store := newTestQueue(t)

	_ = q.Append(journal.Fields{"mood": 4})
	if err := q.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	if _, ok, _ := store.Get(Key("2024-03-09")); ok {
		t.Error("expected storage key to be removed, not emptied")
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after clear, got %d", q.Len())
	}
}

func TestCorruptDataTreatedAsEmpty(t *testing.T) {
	q, store := newTestQueue(t)

	if err := store.Set(Key("2024-03-09"), []byte("{not json")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	entries, err := q.Load()
	if err != nil {
		t.Fatalf("corrupt data must not surface as an error, got: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected corrupt queue to read as empty, got %v", entries)
	}

	// Appending over corrupt data starts a fresh queue.
	if err := q.Append(journal.Fields{"mood": 1}); err != nil {
		t.Fatalf("Append over corrupt data failed: %v", err)
	}
	if q.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", q.Len())
	}
}

func TestPendingDaysListsNonEmptyQueues(t *testing.T) {
	store := storage.NewMemoryStore()

	_ = New(store, "2024-03-10").Append(journal.Fields{"mood": 1})
	_ = New(store, "2024-03-09").Append(journal.Fields{"mood": 2})

	// Unrelated keys in the shared store are not queues.
	if err := store.Set("other:thing", []byte("x")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	days, err := PendingDays(store)
	if err != nil {
		t.Fatalf("PendingDays failed: %v", err)
	}
	if len(days) != 2 {
		t.Fatalf("expected 2 days, got %v", days)
	}
	if days[0] != "2024-03-09" || days[1] != "2024-03-10" {
		t.Errorf("days not sorted: %v", days)
	}
}

func TestQueuesAreIsolatedPerDay(t *testing.T) {
	store := storage.NewMemoryStore()
	a := New(store, "2024-03-09")
	b := New(store, "2024-03-10")

	_ = a.Append(journal.Fields{"mood": 1})

	if b.Len() != 0 {
		t.Error("queue for another day must be unaffected")
	}
	if a.Len() != 1 {
		t.Error("expected 1 entry for first day")
	}
}
