// Package connectivity abstracts the online/offline signal behind an
// Observer interface so the sync coordinator never touches the platform
// directly.
package connectivity

// Observer reports connectivity and notifies on transitions.
type Observer interface {
	// IsOnline reports the current connectivity state synchronously.
	IsOnline() bool
	// OnChange registers a callback invoked on every online/offline
	// transition with the new state.
	OnChange(fn func(online bool))
}
