package connectivity

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// ChannelSource is a Source driven by explicit Set calls. Tests and the
// CLI use it to script connectivity transitions.
type ChannelSource struct {
	mu    sync.Mutex
	state State
	ch    chan State
}

// NewChannelSource creates a source with an initial state.
func NewChannelSource(initial State) *ChannelSource {
	return &ChannelSource{
		state: initial,
		ch:    make(chan State, 16),
	}
}

// Current implements Source.
func (s *ChannelSource) Current() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events implements Source.
func (s *ChannelSource) Events() <-chan State { return s.ch }

// Set records a new state and emits it. Emission is non-blocking; if
// the consumer is behind, only the freshest transition matters anyway.
func (s *ChannelSource) Set(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()

	select {
	case s.ch <- state:
	default:
	}
}

// ProbeSource detects connectivity by periodically requesting a health
// endpoint. It emits a transition whenever the probe outcome flips.
type ProbeSource struct {
	url      string
	interval time.Duration
	httpc    *http.Client

	mu    sync.Mutex
	state State
	ch    chan State
	done  chan struct{}
	wg    sync.WaitGroup
}

// NewProbeSource creates a probe against url (typically the entry
// store's /health endpoint). The first probe runs on Start; until then
// the source reports Online so an initial save is at least attempted.
func NewProbeSource(url string, interval time.Duration) *ProbeSource {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &ProbeSource{
		url:      url,
		interval: interval,
		httpc:    &http.Client{Timeout: 5 * time.Second},
		state:    Online,
		ch:       make(chan State, 16),
		done:     make(chan struct{}),
	}
}

// Current implements Source.
func (p *ProbeSource) Current() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Events implements Source.
func (p *ProbeSource) Events() <-chan State { return p.ch }

// Start begins probing in the background.
func (p *ProbeSource) Start() {
	p.wg.Add(1)
	go p.loop()
}

// Stop halts probing and waits for the loop to exit.
func (p *ProbeSource) Stop() {
	close(p.done)
	p.wg.Wait()
}

func (p *ProbeSource) loop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.probe()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.probe()
		}
	}
}

func (p *ProbeSource) probe() {
	ctx, cancel := context.WithTimeout(context.Background(), p.httpc.Timeout)
	defer cancel()

	state := Offline
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.url, nil)
	if err == nil {
		resp, err := p.httpc.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode < 500 {
				state = Online
			}
		}
	}

	p.mu.Lock()
	changed := p.state != state
	p.state = state
	p.mu.Unlock()

	if changed {
		select {
		case p.ch <- state:
		default:
		}
	}
}
