// Package transport abstracts the two channels a replica depends on: the
// peer broadcast channel and the client request/response channel. The
// core protocols in internal/protocol only ever see these interfaces —
// never a concrete socket — so the same protocol code runs over the real
// HTTP adapter or over an in-memory fake used by tests.
package transport

import "consistentkv/internal/store"

// PeerMessage is the wire message exchanged between replicas. Field names
// follow the canonical schema resolved in the spec's open questions
// (timestamp/id/operation/key/value/ack/msg_timestamp), not the earlier
// illustrative kind/ts/origin/op/ackOf sketch — the open question names
// this one as canonical.
type PeerMessage struct {
	Timestamp    uint64  `json:"timestamp"`
	ID           int     `json:"id"`
	Operation    string  `json:"operation"` // "set" or "get"
	Key          string  `json:"key"`
	Value        int64   `json:"value"`
	Ack          bool    `json:"ack"`
	MsgTimestamp *uint64 `json:"msg_timestamp,omitempty"`
}

// Proposal reconstructs the store.Proposal this message concerns. For a
// propose (Ack == false) that is this message's own (Timestamp, ID); for an
// ack it is (MsgTimestamp, ID) — the ack carries the origin of the
// proposal being acknowledged, not the acker's own identity, per §4.3.
func (m PeerMessage) Proposal() store.Proposal {
	ts := m.Timestamp
	if m.Ack && m.MsgTimestamp != nil {
		ts = *m.MsgTimestamp
	}
	kind := store.OpGet
	if m.Operation == string(store.OpSet) {
		kind = store.OpSet
	}
	return store.Proposal{
		Timestamp: ts,
		Origin:    m.ID,
		Op:        store.Op{Kind: kind, Key: m.Key, Value: m.Value},
	}
}

// ProposeMessage builds the wire message for broadcasting a fresh proposal.
func ProposeMessage(p store.Proposal) PeerMessage {
	return PeerMessage{
		Timestamp: p.Timestamp,
		ID:        p.Origin,
		Operation: string(p.Op.Kind),
		Key:       p.Op.Key,
		Value:     p.Op.Value,
		Ack:       false,
	}
}

// AckMessage builds the wire message acknowledging p, sent with the
// acker's own fresh timestamp ackTS.
func AckMessage(p store.Proposal, ackTS uint64) PeerMessage {
	msgTS := p.Timestamp
	return PeerMessage{
		Timestamp:    ackTS,
		ID:           p.Origin,
		Operation:    string(p.Op.Kind),
		Key:          p.Op.Key,
		Value:        p.Op.Value,
		Ack:          true,
		MsgTimestamp: &msgTS,
	}
}

// PeerTransport abstracts the publish/subscribe broadcast channel: every
// replica publishes on its own outbound channel and subscribes to each
// peer's. Broadcast fans msg out to every other replica; delivery to self
// is the caller's concern (the protocols enqueue+self-ack locally before
// ever calling Broadcast).
type PeerTransport interface {
	Broadcast(msg PeerMessage)
}

// ClientRequest is the client wire protocol's request body.
type ClientRequest struct {
	Type  string `json:"type"` // "set", "get", or "sleep"
	Key   string `json:"key"`
	Value int64  `json:"value"`
}
