package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Probe implements Observer by polling a health endpoint at a fixed
// interval and firing callbacks on state transitions.
type Probe struct {
	url      string
	interval time.Duration
	client   *http.Client

	mu        sync.Mutex
	online    bool
	checked   bool
	callbacks []func(online bool)
}

// NewProbe creates a probe against the given health URL.
func NewProbe(url string, interval time.Duration, timeout time.Duration) *Probe {
	return &Probe{
		url:      url,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
	}
}

// IsOnline reports the most recently probed state. Before the first
// probe completes the agent is assumed offline.
func (p *Probe) IsOnline() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.online
}

// OnChange registers a transition callback.
func (p *Probe) OnChange(fn func(online bool)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// Run starts the probe loop. It checks immediately, then on every tick,
// and blocks until ctx is cancelled.
func (p *Probe) Run(ctx context.Context) {
	slog.Info("connectivity probe started",
		"component", "connectivity",
		"url", p.url,
		"interval", p.interval.String(),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			slog.Info("connectivity probe stopped",
				"component", "connectivity",
				"reason", "context_cancelled",
			)
			return
		case <-ticker.C:
			p.Check(ctx)
		}
	}
}

// Check performs one probe and fires callbacks if the state changed.
func (p *Probe) Check(ctx context.Context) {
	online := p.probe(ctx)

	p.mu.Lock()
	changed := !p.checked || online != p.online
	p.checked = true
	p.online = online
	callbacks := make([]func(bool), len(p.callbacks))
	copy(callbacks, p.callbacks)
	p.mu.Unlock()

	if !changed {
		return
	}

	slog.Info("connectivity changed",
		"component", "connectivity",
		"online", online,
	)
	for _, fn := range callbacks {
		fn(online)
	}
}

func (p *Probe) probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
