// Package oommsg carries frame-pool-exhaustion notifications out of the
// frame table. Adapted from biscuit's oommsg.go (a global OomCh of
// Oommsg_t) unchanged in shape; here it reports a GetFrame call that
// eviction could not satisfy because the in-use list was empty (an
// all-pinned pool panics instead), rather than a general kernel
// allocator failure. Each message carries a fresh Resume channel;
// GetFrame does not wait on it.
package oommsg

// / OomCh is sent an Oommsg_t (without blocking, dropped if the buffer
// / is full) whenever GetFrame returns ENOMEM because eviction had no
// / in-use frame to sweep.
var OomCh chan Oommsg_t = make(chan Oommsg_t, 16)

// / Oommsg_t describes one frame-exhaustion event.
type Oommsg_t struct {
	Need   int // / frames required by the stalled request
	Resume chan bool
}
