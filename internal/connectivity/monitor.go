// Package connectivity tracks the online/offline state the sync engine
// reacts to. The engine never detects the network itself: it consumes a
// Source of discrete transition events and queries the current state
// through a Monitor. A failed send can also mark the monitor offline
// directly, since a refused connection is as good a signal as any probe.
package connectivity

import (
	"log"
	"os"
	"sync"
)

// State is the connectivity state.
type State int

const (
	// Offline means sends should be queued, not attempted.
	Offline State = iota
	// Online means sends may be attempted.
	Online
)

// String returns a human-readable state name.
func (s State) String() string {
	if s == Online {
		return "online"
	}
	return "offline"
}

// Source emits connectivity transitions. Implementations own their
// detection mechanism; the Monitor only consumes the signal.
type Source interface {
	// Current returns the state as of now. Queried once at Monitor
	// construction.
	Current() State

	// Events returns the stream of state transitions.
	Events() <-chan State
}

// Monitor owns the current connectivity state for a set of engines and
// fans transition notifications out to subscribed handlers.
type Monitor struct {
	mu       sync.Mutex
	online   bool
	handlers []func(online bool)
	source   Source
	logger   *log.Logger
	done     chan struct{}
	wg       sync.WaitGroup
	started  bool
}

// NewMonitor creates a monitor over the given source. A nil source
// yields a monitor that starts online and changes state only through
// SetState. If logger is nil, a default stderr logger is used.
func NewMonitor(source Source, logger *log.Logger) *Monitor {
	if logger == nil {
		logger = log.New(os.Stderr, "[connectivity] ", log.LstdFlags)
	}

	online := true
	if source != nil {
		online = source.Current() == Online
	}

	return &Monitor{
		online: online,
		source: source,
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Start begins consuming source events. It is a no-op for a monitor
// without a source, or one already started.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.started || m.source == nil {
		m.mu.Unlock()
		return
	}
	m.started = true
	m.mu.Unlock()

	m.wg.Add(1)
	go m.consume()
}

// Stop stops consuming source events and waits for the loop to exit.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return
	}
	m.started = false
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

func (m *Monitor) consume() {
	defer m.wg.Done()

	for {
		select {
		case <-m.done:
			return
		case state, ok := <-m.source.Events():
			if !ok {
				return
			}
			m.SetState(state)
		}
	}
}

// Online reports the current state.
func (m *Monitor) Online() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// MarkOffline records a connectivity failure observed elsewhere, e.g. a
// send that died with a network-class error.
func (m *Monitor) MarkOffline() {
	m.SetState(Offline)
}

// SetState applies a transition. Handlers run only on an actual change,
// outside the monitor's lock.
func (m *Monitor) SetState(state State) {
	online := state == Online

	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	handlers := make([]func(bool), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	m.logger.Printf("Connectivity changed: %s", state)
	for _, fn := range handlers {
		fn(online)
	}
}

// OnChange subscribes a handler to connectivity transitions. Handlers
// must not block; anything slow belongs in its own goroutine.
func (m *Monitor) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers = append(m.handlers, fn)
}
