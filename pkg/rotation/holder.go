package rotation

import "sync/atomic"

// Holder provides an atomically swappable reference to a State. The
// forwarder reads through a Holder so that configuration hot reload can
// replace the gateway and key lists without pausing in-flight requests.
// Requests that already loaded the old state finish against it.
type Holder struct {
	state atomic.Pointer[State]
}

// NewHolder creates a holder wrapping the given state.
func NewHolder(s *State) *Holder {
	h := &Holder{}
	h.state.Store(s)
	return h
}

// Load returns the current state.
func (h *Holder) Load() *State {
	return h.state.Load()
}

// Swap replaces the current state. Rotation counters of the new state
// start at zero.
func (h *Holder) Swap(s *State) {
	h.state.Store(s)
}
