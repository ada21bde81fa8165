package connectivity

import "sync"

// Manual is an Observer driven by explicit SetOnline calls. Used in
// tests and by deployments that receive connectivity events from the
// host platform instead of probing.
type Manual struct {
	mu        sync.Mutex
	online    bool
	callbacks []func(online bool)
}

// NewManual creates a manual observer with the given initial state.
func NewManual(online bool) *Manual {
	return &Manual{online: online}
}

// IsOnline reports the current state.
func (m *Manual) IsOnline() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.online
}

// OnChange registers a transition callback.
func (m *Manual) OnChange(fn func(online bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// SetOnline updates the state and fires callbacks on transitions.
func (m *Manual) SetOnline(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	callbacks := make([]func(bool), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	for _, fn := range callbacks {
		fn(online)
	}
}
