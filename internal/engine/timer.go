package engine

import (
	"sync"
	"time"
)

// Timer is the cancellable single-shot timer behind debounced
// auto-save. Schedule replaces any pending timer, so every edit
// restarts the quiet period; Stop makes teardown deterministic.
type Timer interface {
	Schedule(d time.Duration, fn func())
	Stop()
}

// Clock supplies the current time. Injected so tests can pin queue
// entry timestamps.
type Clock interface {
	Now() time.Time
}

// WallClock is the real-time Clock.
type WallClock struct{}

// Now implements Clock.
func (WallClock) Now() time.Time { return time.Now() }

type wallTimer struct {
	mu sync.Mutex
	t  *time.Timer
}

// NewWallTimer returns a Timer backed by time.AfterFunc.
func NewWallTimer() Timer {
	return &wallTimer{}
}

func (w *wallTimer) Schedule(d time.Duration, fn func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.t != nil {
		w.t.Stop()
	}
	w.t = time.AfterFunc(d, fn)
}

func (w *wallTimer) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.t != nil {
		w.t.Stop()
		w.t = nil
	}
}
