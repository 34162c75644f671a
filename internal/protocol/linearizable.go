package protocol

import (
	"context"
	"sync"

	"consistentkv/internal/store"
	"consistentkv/internal/transport"
)

// Linearizer implements linearizability (C6): every operation, including
// reads, is totally ordered by Lamport timestamp and applied only once
// every replica has acknowledged it. Grounded in the source's total-order
// multicast with all-ack delivery; here the holdback queue and its own
// deliverer goroutine (owned by the replica shell) do the ordering work
// this struct only feeds and reacts to.
type Linearizer struct {
	Deps

	mu      sync.Mutex
	pending map[store.Proposal]chan string
}

// NewLinearizer builds a Linearizer over d.
func NewLinearizer(d Deps) *Linearizer {
	return &Linearizer{
		Deps:    d,
		pending: make(map[store.Proposal]chan string),
	}
}

// OnClientRequest stamps op with a fresh timestamp, enqueues and self-acks
// it, broadcasts the proposal, and blocks until the replica's deliverer
// goroutine applies it and calls OnDeliver — at which point the reply is
// handed back on the proposal's own channel.
func (l *Linearizer) OnClientRequest(ctx context.Context, op store.Op) (string, error) {
	ts := l.Clock.Tick()
	p := store.Proposal{Timestamp: ts, Origin: l.Self, Op: op}

	reply := make(chan string, 1)
	l.mu.Lock()
	l.pending[p] = reply
	l.mu.Unlock()

	l.Queue.Enqueue(p)
	l.Queue.AckArrived(p)
	l.Transport.Broadcast(transport.ProposeMessage(p))

	select {
	case r := <-reply:
		return r, nil
	case <-ctx.Done():
		l.mu.Lock()
		delete(l.pending, p)
		l.mu.Unlock()
		return "", ctx.Err()
	}
}

// OnPeerMessage enqueues and acks an incoming proposal, or records an
// incoming ack. A propose message whose origin is this replica is this
// replica's own broadcast looping back (§4.3 edge case c, pub/sub
// loopback); it is a no-op, since OnClientRequest already enqueued and
// self-acked it.
func (l *Linearizer) OnPeerMessage(ctx context.Context, msg transport.PeerMessage) {
	l.Clock.Observe(msg.Timestamp)

	if msg.Ack {
		l.Queue.AckArrived(msg.Proposal())
		return
	}

	if msg.ID == l.Self {
		return
	}

	p := msg.Proposal()
	l.Queue.Enqueue(p)

	// Two acks for one message: this replica's own self-ack, plus the
	// origin's — the origin only ever broadcasts the propose, never an
	// ack for its own proposal (it already counted that ack locally in
	// OnClientRequest). Every other replica has to credit it here, or
	// the count tops out at n-1 everywhere but the origin and the
	// proposal never clears any non-origin queue.
	l.Queue.AckArrived(p)
	l.Queue.AckArrived(p)

	ackTS := l.Clock.Tick()
	l.Transport.Broadcast(transport.AckMessage(p, ackTS))
}

// OnDeliver applies p to the store and log, then — if p originated here —
// wakes the blocked client handler with the reply.
func (l *Linearizer) OnDeliver(p store.Proposal) {
	if p.Op.Kind == store.OpSet {
		l.Store.Set(p.Op.Key, p.Op.Value)
	}
	l.Log.Append(p)

	if p.Origin != l.Self {
		return
	}

	l.mu.Lock()
	reply, ok := l.pending[p]
	delete(l.pending, p)
	l.mu.Unlock()
	if !ok {
		return
	}
	reply <- formatReply(p.Op, l.Store.Get(p.Op.Key))
}
