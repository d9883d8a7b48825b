// Package daemon provides the background sync service.
//
// The daemon:
// 1. Watches the spool directory for draft file changes
// 2. Routes parsed edits into per-day sync engines
// 3. Periodically retries offline queues
// 4. Handles graceful shutdown
//
// A spool file is named {day}.json (e.g. 2026-08-30.json) and holds a
// flat JSON object of entry fields. Editors and scripts write drafts
// there; the daemon picks them up, debounces rapid rewrites, and lets
// the engines do the rest.
package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/BartoszJatczyszyn/journai/internal/connectivity"
	"github.com/BartoszJatczyszyn/journai/internal/engine"
	"github.com/BartoszJatczyszyn/journai/internal/journal"
	"github.com/BartoszJatczyszyn/journai/internal/remote"
	"github.com/BartoszJatczyszyn/journai/internal/storage"
)

// Config holds configuration for the daemon.
type Config struct {
	// FlushInterval is how often queued offline payloads are retried.
	FlushInterval time.Duration

	// FileDebounceInterval is how long to wait before processing spool
	// file changes. This batches rapid rewrites by editors together.
	FileDebounceInterval time.Duration

	// Engine configures the per-day engines the daemon creates.
	Engine *engine.Config

	// Logger for daemon activity.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		FlushInterval:        30 * time.Second,
		FileDebounceInterval: 200 * time.Millisecond,
		Logger:               log.New(os.Stderr, "[daemon] ", log.LstdFlags),
	}
}

// Daemon orchestrates spool watching and entry synchronization.
type Daemon struct {
	store    storage.Store
	client   remote.Client
	monitor  *connectivity.Monitor
	spoolDir string
	config   *Config

	watcher       *fsnotify.Watcher
	changeQueue   map[string]time.Time // filepath -> timestamp
	changeQueueMu sync.Mutex

	engines   map[journal.DayKey]*engine.Engine
	enginesMu sync.Mutex
	onStatus  func(engine.Snapshot)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a new Daemon instance.
//
// The daemon requires:
//   - store: durable key-value store for the offline queues
//   - client: remote entry store client
//   - monitor: connectivity monitor shared with the engines
//   - spoolDir: directory containing draft files ({day}.json)
//
// Use Start() to begin watching and syncing.
func New(store storage.Store, client remote.Client, monitor *connectivity.Monitor, spoolDir string, config *Config) (*Daemon, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if client == nil {
		return nil, fmt.Errorf("client cannot be nil")
	}
	if monitor == nil {
		return nil, fmt.Errorf("monitor cannot be nil")
	}
	if spoolDir == "" {
		return nil, fmt.Errorf("spoolDir cannot be empty")
	}
	if config == nil {
		config = DefaultConfig()
	}
	if config.Logger == nil {
		config.Logger = log.New(os.Stderr, "[daemon] ", log.LstdFlags)
	}
	if config.FlushInterval <= 0 {
		config.FlushInterval = 30 * time.Second
	}
	if config.FileDebounceInterval <= 0 {
		config.FileDebounceInterval = 200 * time.Millisecond
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Daemon{
		store:       store,
		client:      client,
		monitor:     monitor,
		spoolDir:    spoolDir,
		config:      config,
		watcher:     watcher,
		changeQueue: make(map[string]time.Time),
		engines:     make(map[journal.DayKey]*engine.Engine),
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

// OnStatus registers an observer for status changes from any engine.
// Must be called before Start.
func (d *Daemon) OnStatus(fn func(engine.Snapshot)) {
	d.onStatus = fn
}

// Start begins the daemon's operation.
//
// The daemon will:
// 1. Process any draft files already in the spool
// 2. Start watching for spool file changes
// 3. Periodically retry offline queues
// 4. Process file changes with debouncing
//
// This blocks until ctx is cancelled or an error occurs.
func (d *Daemon) Start(ctx context.Context) error {
	d.config.Logger.Println("Starting daemon")

	if err := os.MkdirAll(d.spoolDir, 0o755); err != nil {
		return fmt.Errorf("failed to create spool directory: %w", err)
	}

	if err := d.processSpool(); err != nil {
		return fmt.Errorf("initial spool scan failed: %w", err)
	}

	if err := d.watcher.Add(d.spoolDir); err != nil {
		return fmt.Errorf("failed to watch spool directory: %w", err)
	}

	d.config.Logger.Printf("Watching: %s", d.spoolDir)

	d.wg.Add(3)
	go d.watchFileEvents()
	go d.processChangeQueue()
	go d.flushLoop()

	select {
	case <-ctx.Done():
		d.config.Logger.Println("Shutdown signal received")
		return d.Stop()
	case <-d.ctx.Done():
		return nil
	}
}

// Stop gracefully shuts down the daemon.
func (d *Daemon) Stop() error {
	d.config.Logger.Println("Stopping daemon")

	d.cancel()

	if err := d.watcher.Close(); err != nil {
		d.config.Logger.Printf("Error closing watcher: %v", err)
	}

	d.wg.Wait()

	d.enginesMu.Lock()
	for _, e := range d.engines {
		e.Close()
	}
	d.enginesMu.Unlock()

	d.config.Logger.Println("Daemon stopped")
	return nil
}

// processSpool applies every draft file already present in the spool.
// Called on startup so edits made while the daemon was down still sync.
func (d *Daemon) processSpool() error {
	entries, err := os.ReadDir(d.spoolDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read spool directory: %w", err)
	}

	count := 0
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		path := filepath.Join(d.spoolDir, entry.Name())
		if err := d.applySpoolFile(path); err != nil {
			d.config.Logger.Printf("Warning: failed to apply %s: %v", path, err)
			continue
		}
		count++
	}

	d.config.Logger.Printf("Applied %d spool files", count)
	return nil
}

// watchFileEvents monitors filesystem events and queues changes.
func (d *Daemon) watchFileEvents() {
	defer d.wg.Done()

	for {
		select {
		case <-d.ctx.Done():
			return

		case event, ok := <-d.watcher.Events:
			if !ok {
				return
			}

			// Only care about Create and Write. A removed draft is
			// not an undo: queued payloads stay queued.
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			if filepath.Ext(event.Name) != ".json" {
				continue
			}

			d.queueChange(event.Name)

		case err, ok := <-d.watcher.Errors:
			if !ok {
				return
			}
			d.config.Logger.Printf("Watcher error: %v", err)
		}
	}
}

// queueChange adds a file to the change queue with debouncing.
func (d *Daemon) queueChange(path string) {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	d.changeQueue[path] = time.Now()
}

// processChangeQueue processes queued file changes with debouncing.
func (d *Daemon) processChangeQueue() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FileDebounceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.processPendingChanges()
		}
	}
}

// processPendingChanges applies spool files that have been quiet for
// long enough.
func (d *Daemon) processPendingChanges() {
	d.changeQueueMu.Lock()
	defer d.changeQueueMu.Unlock()

	now := time.Now()
	for path, queuedAt := range d.changeQueue {
		if now.Sub(queuedAt) < d.config.FileDebounceInterval {
			continue
		}

		if err := d.applySpoolFile(path); err != nil {
			d.config.Logger.Printf("Error applying %s: %v", path, err)
		}

		delete(d.changeQueue, path)
	}
}

// applySpoolFile parses one draft file and feeds its fields into the
// day's engine. Unknown or invalid fields are skipped with a warning so
// one bad value never blocks the rest of the draft.
func (d *Daemon) applySpoolFile(path string) error {
	day, err := dayFromPath(path)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read draft file: %w", err)
	}

	var fields journal.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return fmt.Errorf("failed to parse draft file: %w", err)
	}

	accepted := journal.Fields{}
	for name, value := range fields {
		if err := journal.ValidateField(name, value); err != nil {
			d.config.Logger.Printf("Warning: skipping %s in %s: %v", name, filepath.Base(path), err)
			continue
		}
		accepted[name] = value
	}
	if len(accepted) == 0 {
		return nil
	}

	d.config.Logger.Printf("Applying draft for %s (%d fields)", day, len(accepted))
	d.engineFor(day).ApplyDraft(accepted)
	return nil
}

// engineFor returns the engine for a day, creating it on first use.
func (d *Daemon) engineFor(day journal.DayKey) *engine.Engine {
	d.enginesMu.Lock()
	defer d.enginesMu.Unlock()

	if e, ok := d.engines[day]; ok {
		return e
	}

	e := engine.New(day, nil, d.store, d.client, d.monitor, d.config.Engine)
	if d.onStatus != nil {
		e.OnStatus(d.onStatus)
	}
	d.engines[day] = e
	return e
}

// Snapshots returns the current status of every active engine.
func (d *Daemon) Snapshots() []engine.Snapshot {
	d.enginesMu.Lock()
	defer d.enginesMu.Unlock()

	snaps := make([]engine.Snapshot, 0, len(d.engines))
	for _, e := range d.engines {
		snaps = append(snaps, e.Snapshot())
	}
	return snaps
}

// flushLoop periodically retries offline queues. The engines skip the
// attempt when nothing is queued or the monitor still reports offline
// work in flight, so the loop is cheap.
func (d *Daemon) flushLoop() {
	defer d.wg.Done()

	ticker := time.NewTicker(d.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.ctx.Done():
			return

		case <-ticker.C:
			d.flushAll()
		}
	}
}

// flushAll attempts one queue flush per active engine.
func (d *Daemon) flushAll() {
	if !d.monitor.Online() {
		return
	}

	d.enginesMu.Lock()
	engines := make([]*engine.Engine, 0, len(d.engines))
	for _, e := range d.engines {
		engines = append(engines, e)
	}
	d.enginesMu.Unlock()

	for _, e := range engines {
		if err := e.Flush(d.ctx); err != nil {
			d.config.Logger.Printf("Flush failed for %s: %v", e.Day(), err)
		}
	}
}

// dayFromPath extracts the day key from a spool file path.
func dayFromPath(path string) (journal.DayKey, error) {
	name := strings.TrimSuffix(filepath.Base(path), ".json")
	day, err := journal.ParseDayKey(name)
	if err != nil {
		return "", fmt.Errorf("spool file %s is not named after a day: %w", filepath.Base(path), err)
	}
	return day, nil
}
