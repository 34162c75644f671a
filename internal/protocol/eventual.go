package protocol

import (
	"context"
	"sync"

	"consistentkv/internal/store"
	"consistentkv/internal/transport"
)

// lastWrite records the (timestamp, origin) of the write currently applied
// to a key, for last-writer-wins conflict resolution.
type lastWrite struct {
	ts     uint64
	origin int
}

// wins reports whether candidate should overwrite current under the
// timestamp-then-origin tiebreak §4.8 specifies.
func (candidate lastWrite) wins(current lastWrite) bool {
	if candidate.ts != current.ts {
		return candidate.ts > current.ts
	}
	return candidate.origin > current.origin
}

// Eventual implements eventual consistency (C8): a set is applied locally
// immediately and broadcast best-effort; a peer's set is applied only if it
// wins last-writer-wins against whatever is currently recorded for that
// key. No ordering guarantee is made across replicas, so the holdback
// queue is never used here — grounded in the source's dedicated eventual
// path, which applies writes synchronously and fans them out asynchronously
// with no acknowledgment wait.
type Eventual struct {
	Deps

	mu   sync.RWMutex
	wins map[string]lastWrite
}

// NewEventual builds an Eventual over d.
func NewEventual(d Deps) *Eventual {
	return &Eventual{Deps: d, wins: make(map[string]lastWrite)}
}

// OnClientRequest applies a set immediately and broadcasts it; a get reads
// whatever is locally present, which may be stale relative to other
// replicas.
func (e *Eventual) OnClientRequest(ctx context.Context, op store.Op) (string, error) {
	if op.Kind == store.OpGet {
		return formatReply(op, e.Store.Get(op.Key)), nil
	}

	ts := e.Clock.Tick()
	w := lastWrite{ts: ts, origin: e.Self}

	e.mu.Lock()
	e.wins[op.Key] = w
	e.mu.Unlock()

	e.Store.Set(op.Key, op.Value)
	e.Log.Append(store.Proposal{Timestamp: ts, Origin: e.Self, Op: op})

	e.Transport.Broadcast(transport.ProposeMessage(store.Proposal{
		Timestamp: ts, Origin: e.Self, Op: op,
	}))
	return formatReply(op, op.Value), nil
}

// OnPeerMessage applies an incoming set only if it wins last-writer-wins
// against the key's current record; acks and gets never occur on the wire
// under eventual consistency and are ignored if they arrive.
func (e *Eventual) OnPeerMessage(ctx context.Context, msg transport.PeerMessage) {
	e.Clock.Observe(msg.Timestamp)
	if msg.Ack || msg.Operation != string(store.OpSet) {
		return
	}

	candidate := lastWrite{ts: msg.Timestamp, origin: msg.ID}

	e.mu.Lock()
	current, ok := e.wins[msg.Key]
	if ok && !candidate.wins(current) {
		e.mu.Unlock()
		return
	}
	e.wins[msg.Key] = candidate
	e.mu.Unlock()

	e.Store.Set(msg.Key, msg.Value)
	e.Log.Append(msg.Proposal())
}

// OnDeliver is never called for Eventual: nothing is ever enqueued under
// this protocol.
func (e *Eventual) OnDeliver(p store.Proposal) {}

var _ Protocol = (*Eventual)(nil)
