package engine

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BartoszJatczyszyn/journai/internal/connectivity"
	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/queue"
	"github.com/BartoszJatczyszyn/journai/internal/remote"
	"github.com/BartoszJatczyszyn/journai/internal/storage"
)

const testDay = journal.DayKey("2026-08-30")

func testLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

// waitFor polls until cond is true or the deadline passes.
func waitFor(t *testing.T, cond func() bool, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// fakeTimer captures the scheduled callback so tests fire the debounce
// deterministically.
type fakeTimer struct {
	mu sync.Mutex
	fn func()
}

func (f *fakeTimer) Schedule(d time.Duration, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func (f *fakeTimer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = nil
}

// Fire invokes the pending callback, if any, the way a real expiry
// would.
func (f *fakeTimer) Fire() {
	f.mu.Lock()
	fn := f.fn
	f.fn = nil
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// fakeClock hands out strictly increasing timestamps.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

// fakeClient records every payload it receives and answers from a
// script: err fails the call, entry (when set) is returned as the
// server's authoritative entry.
type fakeClient struct {
	mu       sync.Mutex
	payloads []journal.Fields
	err      error
	entry    journal.Fields
}

func (c *fakeClient) Update(ctx context.Context, day journal.DayKey, payload journal.Fields) (*remote.UpdateResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.payloads = append(c.payloads, payload.Clone())
	if c.err != nil {
		return nil, c.err
	}

	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return &remote.UpdateResult{UpdatedFields: keys, Entry: c.entry}, nil
}

func (c *fakeClient) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.payloads)
}

func (c *fakeClient) lastPayload() journal.Fields {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.payloads) == 0 {
		return nil
	}
	return c.payloads[len(c.payloads)-1]
}

func (c *fakeClient) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.err = err
}

// blockingClient parks the first call until released, for exercising
// the in-flight guard.
type blockingClient struct {
	started chan struct{}
	release chan struct{}
	inner   *fakeClient
}

func newBlockingClient() *blockingClient {
	return &blockingClient{
		started: make(chan struct{}),
		release: make(chan struct{}),
		inner:   &fakeClient{},
	}
}

func (c *blockingClient) Update(ctx context.Context, day journal.DayKey, payload journal.Fields) (*remote.UpdateResult, error) {
	close(c.started)
	<-c.release
	return c.inner.Update(ctx, day, payload)
}

func networkErr() error {
	return &url.Error{Op: "Patch", URL: "http://localhost:1", Err: errors.New("connection refused")}
}

type harness struct {
	engine  *Engine
	timer   *fakeTimer
	client  *fakeClient
	monitor *connectivity.Monitor
	store   *storage.MemoryStore
	labels  []string
	mu      sync.Mutex
}

func (h *harness) lastLabel() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.labels) == 0 {
		return ""
	}
	return h.labels[len(h.labels)-1]
}

func newHarness(t *testing.T, initial journal.Fields) *harness {
	t.Helper()

	h := &harness{
		timer:   &fakeTimer{},
		client:  &fakeClient{},
		monitor: connectivity.NewMonitor(nil, testLogger()),
		store:   storage.NewMemoryStore(),
	}
	config := &Config{
		DebounceInterval: 1200 * time.Millisecond,
		Timer:            h.timer,
		Clock:            newFakeClock(),
		Logger:           testLogger(),
	}
	h.engine = New(testDay, initial, h.store, h.client, h.monitor, config)
	h.engine.OnStatus(func(s Snapshot) {
		h.mu.Lock()
		h.labels = append(h.labels, s.Label)
		h.mu.Unlock()
	})
	t.Cleanup(h.engine.Close)
	return h
}

func TestAutoSaveSendsOnlyTheDiff(t *testing.T) {
	h := newHarness(t, journal.Fields{"mood": 3.0, "energy": 5.0})

	h.engine.SetField("energy", 4.0)
	h.timer.Fire()

	if got := h.client.calls(); got != 1 {
		t.Fatalf("expected 1 send, got %d", got)
	}
	want := journal.Fields{"energy": 4.0}
	if !payloadEqual(h.client.lastPayload(), want) {
		t.Errorf("payload = %v, want %v", h.client.lastPayload(), want)
	}
	if h.lastLabel() != "Auto-saved" {
		t.Errorf("label = %q, want Auto-saved", h.lastLabel())
	}
}

func TestAutoSaveNoChangesSkipsNetwork(t *testing.T) {
	h := newHarness(t, journal.Fields{"mood": 3.0})

	h.engine.SetField("mood", 3.0)
	h.timer.Fire()

	if got := h.client.calls(); got != 0 {
		t.Fatalf("expected no sends, got %d", got)
	}
	if h.lastLabel() != "No changes" {
		t.Errorf("label = %q, want No changes", h.lastLabel())
	}
}

func TestDebounceCoalescesEdits(t *testing.T) {
	h := newHarness(t, journal.Fields{})

	// Three rapid edits, one expiry.
	h.engine.SetField("mood", 2.0)
	h.engine.SetField("mood", 3.0)
	h.engine.SetField("energy", 4.0)
	h.timer.Fire()

	if got := h.client.calls(); got != 1 {
		t.Fatalf("expected 1 coalesced send, got %d", got)
	}
	want := journal.Fields{"mood": 3.0, "energy": 4.0}
	if !payloadEqual(h.client.lastPayload(), want) {
		t.Errorf("payload = %v, want %v", h.client.lastPayload(), want)
	}
}

func TestOfflineEditQueuesWithoutNetworkCall(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.monitor.MarkOffline()

	h.engine.SetField("mood", 4.0)
	h.timer.Fire()

	if got := h.client.calls(); got != 0 {
		t.Fatalf("expected no sends while offline, got %d", got)
	}
	if h.lastLabel() != "Queued offline" {
		t.Errorf("label = %q, want Queued offline", h.lastLabel())
	}

	entries, err := queue.NewWithNow(h.store, testDay, time.Now).Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 queued entry, got %d", len(entries))
	}
	if !payloadEqual(entries[0].Payload, journal.Fields{"mood": 4.0}) {
		t.Errorf("queued payload = %v", entries[0].Payload)
	}
}

func TestNetworkFailureQueuesAndMarksOffline(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.client.setErr(networkErr())

	h.engine.SetField("mood", 2.0)
	h.timer.Fire()

	if h.lastLabel() != "Queued offline" {
		t.Errorf("label = %q, want Queued offline", h.lastLabel())
	}
	if h.monitor.Online() {
		t.Error("monitor should be marked offline after a transport failure")
	}
	if h.engine.Snapshot().QueuedCount != 1 {
		t.Errorf("queued count = %d, want 1", h.engine.Snapshot().QueuedCount)
	}
}

func TestSemanticErrorSurfacesWithoutQueueing(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.client.setErr(&remote.APIError{StatusCode: 422, Message: "rating out of range"})

	h.engine.SetField("mood", 9.0)
	h.timer.Fire()

	if h.lastLabel() != "Auto-save failed" {
		t.Errorf("label = %q, want Auto-save failed", h.lastLabel())
	}
	if h.monitor.Online() != true {
		t.Error("semantic errors must not flip connectivity")
	}
	if h.engine.Snapshot().QueuedCount != 0 {
		t.Errorf("queued count = %d, want 0", h.engine.Snapshot().QueuedCount)
	}
}

func TestManualSaveSemanticErrorReturnsError(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.client.setErr(&remote.APIError{StatusCode: 400, Message: "bad field"})

	h.engine.SetField("mood", 3.0)
	err := h.engine.Save(context.Background())
	if err == nil {
		t.Fatal("manual save should surface the semantic error")
	}
	if h.lastLabel() != "Error: bad field" {
		t.Errorf("label = %q", h.lastLabel())
	}
}

func TestQueueUnderlaysNewPayload(t *testing.T) {
	// Pre-seed the store with a queued edit from a previous session,
	// then make a new edit online: the wire payload must carry both,
	// with the fresh edit winning conflicts.
	store := storage.NewMemoryStore()
	seed := []queue.Entry{
		{Timestamp: time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC), Payload: journal.Fields{"mood": 2.0, "stress": 5.0}},
	}
	raw, err := json.Marshal(seed)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Set(queue.Key(testDay), raw); err != nil {
		t.Fatal(err)
	}

	timer := &fakeTimer{}
	client := &fakeClient{}
	monitor := connectivity.NewMonitor(nil, testLogger())
	config := &Config{DebounceInterval: time.Second, Timer: timer, Clock: newFakeClock(), Logger: testLogger()}
	e := New(testDay, journal.Fields{}, store, client, monitor, config)
	defer e.Close()

	e.SetField("mood", 4.0)
	timer.Fire()

	want := journal.Fields{"mood": 4.0, "stress": 5.0}
	if !payloadEqual(client.lastPayload(), want) {
		t.Errorf("payload = %v, want %v", client.lastPayload(), want)
	}

	// Success empties the queue.
	if e.Snapshot().QueuedCount != 0 {
		t.Errorf("queued count = %d, want 0 after success", e.Snapshot().QueuedCount)
	}
}

func TestReconnectFlushesQueue(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.client.setErr(networkErr())

	h.engine.SetField("mood", 2.0)
	h.timer.Fire()
	h.engine.SetField("energy", 3.0)
	h.timer.Fire()

	if h.engine.Snapshot().QueuedCount != 2 {
		t.Fatalf("queued count = %d, want 2", h.engine.Snapshot().QueuedCount)
	}

	failedCalls := h.client.calls()
	h.client.setErr(nil)
	h.monitor.SetState(connectivity.Online)

	waitFor(t, func() bool { return h.client.calls() > failedCalls }, time.Second)
	waitFor(t, func() bool { return h.engine.Snapshot().QueuedCount == 0 }, time.Second)

	want := journal.Fields{"mood": 2.0, "energy": 3.0}
	if !payloadEqual(h.client.lastPayload(), want) {
		t.Errorf("flushed payload = %v, want %v", h.client.lastPayload(), want)
	}
}

func TestManualSaveSendsFullPayloadWithTrimmedNotes(t *testing.T) {
	h := newHarness(t, journal.Fields{"mood": 3.0})

	h.engine.SetField("energy", 4.0)
	h.engine.SetNotes("  slept well  ")

	if err := h.engine.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := h.client.lastPayload()
	want := journal.Fields{"mood": 3.0, "energy": 4.0, "notes": "slept well"}
	if !payloadEqual(got, want) {
		t.Errorf("payload = %v, want %v", got, want)
	}
	if h.lastLabel() != "Saved: updated [energy, mood, notes]" {
		t.Errorf("label = %q", h.lastLabel())
	}
}

func TestManualSaveEmptyNotesSendsExplicitNull(t *testing.T) {
	h := newHarness(t, journal.Fields{"mood": 3.0, "notes": "old note"})

	h.engine.SetField("mood", 4.0)
	h.engine.SetNotes("   ")

	if err := h.engine.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := h.client.lastPayload()
	v, present := got["notes"]
	if !present || v != nil {
		t.Errorf("notes = %v (present=%v), want explicit nil", v, present)
	}
}

func TestManualSaveNoPendingWorkIsSilent(t *testing.T) {
	h := newHarness(t, journal.Fields{"mood": 3.0})

	if err := h.engine.Save(context.Background()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if h.client.calls() != 0 {
		t.Errorf("expected no sends, got %d", h.client.calls())
	}
	if len(h.labels) != 0 {
		t.Errorf("expected no status emissions, got %v", h.labels)
	}
}

func TestServerEntryAdvancesBaseline(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.client.entry = journal.Fields{"mood": 4.0, "sleep_hours": 7.5}

	h.engine.SetField("mood", 4.0)
	h.timer.Fire()

	base := h.engine.Baseline()
	if !payloadEqual(base, journal.Fields{"mood": 4.0, "sleep_hours": 7.5}) {
		t.Errorf("baseline = %v, want server entry", base)
	}
}

func TestOptimisticBaselineWithoutServerEntry(t *testing.T) {
	h := newHarness(t, journal.Fields{"mood": 2.0})

	h.engine.SetField("energy", 3.0)
	h.timer.Fire()

	base := h.engine.Baseline()
	if !payloadEqual(base, journal.Fields{"mood": 2.0, "energy": 3.0}) {
		t.Errorf("baseline = %v", base)
	}

	// No spurious re-send: the draft now matches the baseline.
	h.timer.Fire()
	if h.client.calls() != 1 {
		t.Errorf("expected 1 send total, got %d", h.client.calls())
	}
}

func TestSavingGuardDropsConcurrentTrigger(t *testing.T) {
	blocking := newBlockingClient()
	timer := &fakeTimer{}
	monitor := connectivity.NewMonitor(nil, testLogger())
	config := &Config{DebounceInterval: time.Second, Timer: timer, Clock: newFakeClock(), Logger: testLogger()}
	e := New(testDay, journal.Fields{}, storage.NewMemoryStore(), blocking, monitor, config)
	defer e.Close()

	e.SetField("mood", 2.0)
	go timer.Fire()
	<-blocking.started

	// A second expiry while the first send is parked must not start
	// another send.
	e.SetField("energy", 3.0)
	timer.Fire()

	close(blocking.release)
	waitFor(t, func() bool { return blocking.inner.calls() == 1 }, time.Second)

	time.Sleep(20 * time.Millisecond)
	if got := blocking.inner.calls(); got != 1 {
		t.Errorf("expected exactly 1 send, got %d", got)
	}
}

func TestCloseSuppressesLateStatus(t *testing.T) {
	blocking := newBlockingClient()
	timer := &fakeTimer{}
	monitor := connectivity.NewMonitor(nil, testLogger())
	config := &Config{DebounceInterval: time.Second, Timer: timer, Clock: newFakeClock(), Logger: testLogger()}
	e := New(testDay, journal.Fields{}, storage.NewMemoryStore(), blocking, monitor, config)

	var labels []string
	var mu sync.Mutex
	e.OnStatus(func(s Snapshot) {
		mu.Lock()
		labels = append(labels, s.Label)
		mu.Unlock()
	})

	e.SetField("mood", 2.0)
	done := make(chan struct{})
	go func() {
		timer.Fire()
		close(done)
	}()
	<-blocking.started

	e.Close()
	close(blocking.release)
	<-done

	mu.Lock()
	defer mu.Unlock()
	for _, l := range labels {
		if l != savingLabel {
			t.Errorf("unexpected status %q after Close", l)
		}
	}
}

func TestSnapshotReflectsQueueAndConnectivity(t *testing.T) {
	h := newHarness(t, journal.Fields{})
	h.monitor.MarkOffline()

	h.engine.SetField("mood", 4.0)
	h.timer.Fire()

	snap := h.engine.Snapshot()
	if snap.Day != testDay {
		t.Errorf("day = %s", snap.Day)
	}
	if snap.Status != StatusQueuedOffline {
		t.Errorf("status = %s, want queued-offline", snap.Status)
	}
	if snap.QueuedCount != 1 {
		t.Errorf("queued count = %d, want 1", snap.QueuedCount)
	}
	if !snap.Offline {
		t.Error("snapshot should report offline")
	}
}

// payloadEqual compares two payload maps including explicit nils.
func payloadEqual(a, b journal.Fields) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		if av == nil || bv == nil {
			if av != bv {
				return false
			}
			continue
		}
		if !journal.Equal(av, bv) {
			return false
		}
	}
	return true
}
