package store

import "sync"

// Log is an in-memory, append-only record of proposals as they are applied
// to a Store, in apply order.
//
// This plays the role the teacher's on-disk WAL played — append before
// mutating visible state, replay to rebuild state from scratch — but
// without a file or fsync. The spec's Non-goals rule out persistence and
// crash recovery entirely (this module is memory-only for the lifetime of
// a test), so there is nothing to recover from disk. What is worth keeping
// from the WAL is the log shape itself: it is what lets a replica answer
// "what did I apply, and in what order" (I4), and it is what T7 replays
// into a fresh Store to check that the apply step is deterministic.
type Log struct {
	mu      sync.Mutex
	entries []Proposal
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{}
}

// Append records p as the next applied proposal. Callers append in apply
// order — the order the deliverer actually applies proposals in, which for
// the totally-ordered protocols is the same on every replica (I5).
func (l *Log) Append(p Proposal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, p)
}

// Entries returns a copy of the applied proposals in apply order.
func (l *Log) Entries() []Proposal {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Proposal, len(l.entries))
	copy(out, l.entries)
	return out
}

// ReplayInto applies every logged Set proposal, in order, to dst. Get
// proposals have no store effect and are skipped. Replaying a replica's
// own log into a fresh Store must reproduce that replica's final state
// (T7) — this is only true because Set is idempotent given the same
// sequence of (key, value) pairs in the same order.
func (l *Log) ReplayInto(dst *Store) {
	l.mu.Lock()
	entries := make([]Proposal, len(l.entries))
	copy(entries, l.entries)
	l.mu.Unlock()

	for _, p := range entries {
		if p.Op.Kind == OpSet {
			dst.Set(p.Op.Key, p.Op.Value)
		}
	}
}
