// Package clock implements the Lamport logical clock shared by a replica's
// client reactor, peer reactor, and deliverer.
//
// Big idea:
//
// A Lamport clock gives every event on a replica a scalar timestamp such
// that, across the whole cluster, "happened-before" never produces a later
// timestamp than its cause. Two rules are enough:
//
//  1. Local event (we are about to send something): bump our own counter.
//  2. Remote event (we just received something stamped t): jump our counter
//     to max(ours, t) and then bump it.
//
// Both rules live here as Tick and Observe. Nothing else in this package
// mutates the counter.
package clock

import "sync"

// Clock is a monotonically non-decreasing scalar counter. The zero value is
// ready to use, starting at 0.
type Clock struct {
	mu  sync.Mutex
	val uint64
}

// Tick advances the clock by one and returns the new value. Call this when
// originating a local event (forming a proposal to broadcast).
func (c *Clock) Tick() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.val++
	return c.val
}

// Observe advances the clock past t and returns the new value. Call this
// when receiving a timestamped message from a peer, before acting on it.
func (c *Clock) Observe(t uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if t > c.val {
		c.val = t
	}
	c.val++
	return c.val
}

// Value returns the current counter without advancing it. Useful for
// diagnostics and tests; the protocols themselves only ever Tick or Observe.
func (c *Clock) Value() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.val
}
