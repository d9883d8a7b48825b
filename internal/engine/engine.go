// Package engine orchestrates offline-first synchronization for one
// day's diary entry.
//
// The engine owns the draft (current in-memory edits), the baseline
// (last state known to be on the server), and the offline queue for its
// day key. On every edit it restarts a debounce timer; when the quiet
// period elapses it diffs the draft against the baseline and either
// sends the delta, or parks it in the durable queue if the network is
// down. A reconnect flushes the queue in one merged send.
//
// There is no stored "dirty" flag: dirtiness is always derived from the
// diff and the queue length, so the flag can never disagree with the
// data.
package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BartoszJatczyszyn/journai/internal/connectivity"
	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/queue"
	"github.com/BartoszJatczyszyn/journai/internal/remote"
	"github.com/BartoszJatczyszyn/journai/internal/storage"
)

const savingLabel = "Saving…"

// Config holds engine tuning knobs.
type Config struct {
	// DebounceInterval is the quiet period after the last edit before
	// an automatic save fires.
	DebounceInterval time.Duration

	// Timer drives the debounce. Defaults to a real timer.
	Timer Timer

	// Clock stamps queue entries. Defaults to wall time.
	Clock Clock

	// Logger for engine activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		DebounceInterval: 1200 * time.Millisecond,
		Timer:            NewWallTimer(),
		Clock:            WallClock{},
		Logger:           log.New(os.Stderr, "[engine] ", log.LstdFlags),
	}
}

// Snapshot is the engine's externally visible state: one status label
// for the presentation layer plus the queue and connectivity counters.
type Snapshot struct {
	Day         journal.DayKey `json:"day" yaml:"day"`
	Status      Status         `json:"status" yaml:"status"`
	Label       string         `json:"label" yaml:"label"`
	QueuedCount int            `json:"queued_count" yaml:"queued_count"`
	Offline     bool           `json:"offline" yaml:"offline"`
}

// Engine is the per-day sync orchestrator. One instance exists per open
// day key; all draft/baseline/queue mutation funnels through it, and the
// saving guard serializes sends, so no lock beyond the engine's own is
// needed.
type Engine struct {
	mu       sync.Mutex
	day      journal.DayKey
	draft    journal.Fields
	baseline journal.Fields
	notes    string
	notesSet bool
	saving   bool
	closed   bool
	status   Status
	label    string
	onStatus func(Snapshot)

	queue   *queue.Queue
	remote  remote.Client
	monitor *connectivity.Monitor
	config  *Config
}

// New creates the engine for a day, seeding both baseline and draft
// from the sanitized initial snapshot. It subscribes to connectivity
// transitions so a reconnect triggers a queue flush.
func New(day journal.DayKey, initial journal.Fields, store storage.Store, client remote.Client, monitor *connectivity.Monitor, config *Config) *Engine {
	if config == nil {
		config = DefaultConfig()
	} else {
		// Copy so defaulting never leaks into a shared config, and a
		// nil Timer always yields one timer per engine.
		c := *config
		config = &c
	}
	if config.Timer == nil {
		config.Timer = NewWallTimer()
	}
	if config.Clock == nil {
		config.Clock = WallClock{}
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}
	if config.DebounceInterval <= 0 {
		config.DebounceInterval = 1200 * time.Millisecond
	}

	baseline := journal.Sanitize(initial)
	e := &Engine{
		day:      day,
		draft:    baseline.Clone(),
		baseline: baseline,
		status:   StatusIdle,
		queue:    queue.NewWithNow(store, day, config.Clock.Now),
		remote:   client,
		monitor:  monitor,
		config:   config,
	}

	monitor.OnChange(func(online bool) {
		if !online {
			return
		}
		go func() {
			if err := e.Flush(context.Background()); err != nil {
				config.Logger.Printf("Flush after reconnect failed for %s: %v", day, err)
			}
		}()
	})

	return e
}

// Day returns the day key this engine owns.
func (e *Engine) Day() journal.DayKey { return e.day }

// SetField records one field edit and restarts the debounce window.
func (e *Engine) SetField(name string, value any) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.draft[name] = value
	e.mu.Unlock()

	e.schedule()
}

// SetNotes records the notes text. The trimmed text participates in
// diffs like any field; an emptied note only travels on the
// full-payload path, as an explicit null.
func (e *Engine) SetNotes(text string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.notes = text
	e.notesSet = true
	e.draft["notes"] = strings.TrimSpace(text)
	e.mu.Unlock()

	e.schedule()
}

// ApplyDraft records a batch of field edits under one debounce restart.
// The daemon uses this when a spool file changes.
func (e *Engine) ApplyDraft(fields journal.Fields) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	for k, v := range fields {
		if k == "notes" {
			if s, ok := v.(string); ok {
				e.notes = s
				e.notesSet = true
				e.draft["notes"] = strings.TrimSpace(s)
				continue
			}
		}
		e.draft[k] = v
	}
	e.mu.Unlock()

	e.schedule()
}

// Draft returns a copy of the current draft.
func (e *Engine) Draft() journal.Fields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Baseline returns a copy of the last synced baseline.
func (e *Engine) Baseline() journal.Fields {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.baseline.Clone()
}

// Snapshot returns the current status surface.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Snapshot{
		Day:         e.day,
		Status:      e.status,
		Label:       e.label,
		QueuedCount: e.queue.Len(),
		Offline:     !e.monitor.Online(),
	}
}

// OnStatus registers an observer for status changes. The observer is
// called synchronously and must not call back into the engine.
func (e *Engine) OnStatus(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatus = fn
}

// Close cancels the debounce timer and stops further edits. An
// in-flight send is not cancelled: its response still advances the
// baseline and clears the queue, but no further status is emitted.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.config.Timer.Stop()
}

// Save performs a manual, full-payload save: the entire sanitized draft
// plus the trimmed notes, an empty note transmitted as an explicit null
// so the server clears it. With no pending work it silently does
// nothing; with a save already in flight it is a no-op.
func (e *Engine) Save(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || e.saving {
		e.mu.Unlock()
		return nil
	}
	diff := journal.Diff(e.draft, e.baseline)
	if len(diff) == 0 && e.queue.Len() == 0 {
		e.mu.Unlock()
		return nil
	}
	payload := journal.Sanitize(e.draft)
	if e.notesSet {
		trimmed := strings.TrimSpace(e.notes)
		if trimmed == "" {
			payload["notes"] = nil
		} else {
			payload["notes"] = trimmed
		}
	}
	e.saving = true
	e.mu.Unlock()

	// A pending debounce would only re-discover an empty diff.
	e.config.Timer.Stop()
	e.setStatus(StatusSaving, savingLabel)
	return e.performSave(ctx, payload, true)
}

// Flush attempts one send of the merged queue. Called on reconnect and
// periodically by the daemon; with an empty queue it is a no-op.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	if e.closed || e.saving {
		e.mu.Unlock()
		return nil
	}
	entries, err := e.queue.Load()
	if err != nil {
		e.mu.Unlock()
		return err
	}
	if len(entries) == 0 {
		e.mu.Unlock()
		return nil
	}
	e.saving = true
	e.mu.Unlock()

	e.setStatus(StatusSaving, savingLabel)

	merged := queue.Merge(entries)
	res, err := e.remote.Update(ctx, e.day, merged)
	if err != nil {
		// Queue stays untouched for the next reconnect.
		e.clearSaving()
		e.setStatus(StatusQueuedOffline, "Queued offline")
		if remote.IsNetworkError(err) {
			e.monitor.MarkOffline()
		}
		return fmt.Errorf("queue flush for %s failed: %w", e.day, err)
	}

	e.finishSuccess(res, merged, false)
	return nil
}

// schedule (re)starts the debounce window. The timer always restarts;
// the fired callback re-checks the saving guard, so a trigger landing
// mid-send is simply dropped and the next edit re-arms it.
func (e *Engine) schedule() {
	e.config.Timer.Schedule(e.config.DebounceInterval, e.autoSave)
}

// autoSave is the debounce expiry path.
func (e *Engine) autoSave() {
	e.mu.Lock()
	if e.closed || e.saving {
		e.mu.Unlock()
		return
	}
	diff := journal.Diff(e.draft, e.baseline)
	if len(diff) == 0 && e.queue.Len() == 0 {
		e.mu.Unlock()
		e.setStatus(StatusIdle, "No changes")
		return
	}
	e.saving = true
	e.mu.Unlock()

	e.setStatus(StatusSaving, savingLabel)
	_ = e.performSave(context.Background(), diff, false)
}

// performSave drives one send attempt. payload is the increment built
// by the caller (diff for automatic saves, full draft for manual ones);
// the merged queue is layered underneath so the wire always carries the
// complete outstanding delta. Only the increment is ever queued on
// failure: the prior queue contents are already persisted.
func (e *Engine) performSave(ctx context.Context, payload journal.Fields, manual bool) error {
	if !e.monitor.Online() {
		e.queueOffline(payload, false)
		return nil
	}

	entries, err := e.queue.Load()
	if err != nil {
		e.config.Logger.Printf("Warning: failed to load queue for %s: %v", e.day, err)
	}
	merged := journal.Overlay(queue.Merge(entries), payload)

	res, err := e.remote.Update(ctx, e.day, merged)
	switch {
	case err == nil:
		e.finishSuccess(res, merged, manual)
		return nil

	case remote.IsNetworkError(err):
		e.config.Logger.Printf("Network failure for %s, queueing payload: %v", e.day, err)
		e.queueOffline(payload, true)
		return nil

	default:
		e.clearSaving()
		if manual {
			e.setStatus(StatusError, "Error: "+err.Error())
			return err
		}
		e.config.Logger.Printf("Auto-save for %s failed: %v", e.day, err)
		e.setStatus(StatusAutoSaveFailed, "Auto-save failed")
		return nil
	}
}

// finishSuccess advances the baseline and empties the queue after a
// successful round-trip. The server-returned entry, when present, is
// authoritative; otherwise the merged payload is assumed fully
// accepted.
func (e *Engine) finishSuccess(res *remote.UpdateResult, merged journal.Fields, manual bool) {
	e.mu.Lock()
	if res.Entry != nil {
		e.baseline = journal.Sanitize(res.Entry)
	} else {
		e.baseline = journal.Sanitize(journal.Overlay(e.baseline, merged))
	}
	e.saving = false
	e.mu.Unlock()

	if err := e.queue.Clear(); err != nil {
		e.config.Logger.Printf("Warning: failed to clear queue for %s: %v", e.day, err)
	}

	label := "Auto-saved"
	if manual {
		label = fmt.Sprintf("Saved: updated [%s]", strings.Join(res.UpdatedFields, ", "))
	}
	e.setStatus(StatusSaved, label)
}

// queueOffline parks the increment in the durable queue. The baseline
// is not advanced: the server has seen nothing.
func (e *Engine) queueOffline(payload journal.Fields, markOffline bool) {
	if len(payload) > 0 {
		if err := e.queue.Append(payload); err != nil {
			e.config.Logger.Printf("Warning: failed to queue payload for %s: %v", e.day, err)
		}
	}
	e.clearSaving()
	e.setStatus(StatusQueuedOffline, "Queued offline")
	if markOffline {
		e.monitor.MarkOffline()
	}
}

func (e *Engine) clearSaving() {
	e.mu.Lock()
	e.saving = false
	e.mu.Unlock()
}

// setStatus records and emits a status transition. After Close the
// engine stays silent, even for an in-flight send landing late.
func (e *Engine) setStatus(status Status, label string) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.status = status
	e.label = label
	fn := e.onStatus
	e.mu.Unlock()

	if fn != nil {
		fn(e.Snapshot())
	}
}
