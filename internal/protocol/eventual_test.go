package protocol

import (
	"context"
	"testing"

	"consistentkv/internal/clock"
	"consistentkv/internal/store"
	"consistentkv/internal/transport"
)

type captureTransport struct {
	sent []transport.PeerMessage
}

func (c *captureTransport) Broadcast(msg transport.PeerMessage) {
	c.sent = append(c.sent, msg)
}

func newTestEventual(self int) (*Eventual, *captureTransport) {
	tr := &captureTransport{}
	d := Deps{
		Self:      self,
		N:         1,
		Clock:     &clock.Clock{},
		Store:     store.New(),
		Log:       store.NewLog(),
		Transport: tr,
	}
	return NewEventual(d), tr
}

func TestEventualSetAppliesLocallyAndBroadcasts(t *testing.T) {
	e, tr := newTestEventual(0)
	reply, err := e.OnClientRequest(context.Background(), store.Op{Kind: store.OpSet, Key: "a", Value: 5})
	if err != nil || reply != "success" {
		t.Fatalf("reply = (%q, %v), want (success, nil)", reply, err)
	}
	if v := e.Store.Get("a"); v != 5 {
		t.Fatalf("store value = %d, want 5", v)
	}
	if len(tr.sent) != 1 || tr.sent[0].Key != "a" {
		t.Fatalf("broadcast = %+v, want one message for key a", tr.sent)
	}
}

func TestEventualLastWriterWinsByTimestamp(t *testing.T) {
	e, _ := newTestEventual(2)

	e.OnPeerMessage(context.Background(), transport.ProposeMessage(
		store.Proposal{Timestamp: 10, Origin: 1, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 5}}))
	if v := e.Store.Get("a"); v != 5 {
		t.Fatalf("after first write, value = %d, want 5", v)
	}

	// A lower timestamp loses even if applied later in wall-clock time.
	e.OnPeerMessage(context.Background(), transport.ProposeMessage(
		store.Proposal{Timestamp: 3, Origin: 0, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 99}}))
	if v := e.Store.Get("a"); v != 5 {
		t.Fatalf("stale write overwrote the store: value = %d, want 5", v)
	}

	// A higher timestamp wins.
	e.OnPeerMessage(context.Background(), transport.ProposeMessage(
		store.Proposal{Timestamp: 20, Origin: 0, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 7}}))
	if v := e.Store.Get("a"); v != 7 {
		t.Fatalf("newer write did not apply: value = %d, want 7", v)
	}
}

func TestEventualLastWriterWinsTiebreaksOnOrigin(t *testing.T) {
	e, _ := newTestEventual(2)

	e.OnPeerMessage(context.Background(), transport.ProposeMessage(
		store.Proposal{Timestamp: 10, Origin: 1, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 5}}))

	// Same timestamp, higher origin wins.
	e.OnPeerMessage(context.Background(), transport.ProposeMessage(
		store.Proposal{Timestamp: 10, Origin: 3, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 9}}))
	if v := e.Store.Get("a"); v != 9 {
		t.Fatalf("higher-origin tiebreak did not win: value = %d, want 9", v)
	}

	// Same timestamp, lower origin loses.
	e.OnPeerMessage(context.Background(), transport.ProposeMessage(
		store.Proposal{Timestamp: 10, Origin: 0, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 1}}))
	if v := e.Store.Get("a"); v != 9 {
		t.Fatalf("lower-origin tiebreak overwrote the winner: value = %d, want 9", v)
	}
}

func TestEventualIgnoresAcksAndGets(t *testing.T) {
	e, _ := newTestEventual(0)
	ackTS := uint64(9)
	e.OnPeerMessage(context.Background(), transport.PeerMessage{
		Timestamp: 1, ID: 1, Operation: "set", Key: "a", Value: 5, Ack: true, MsgTimestamp: &ackTS,
	})
	if v := e.Store.Get("a"); v != 0 {
		t.Fatalf("ack message was applied as a write: value = %d, want 0", v)
	}

	e.OnPeerMessage(context.Background(), transport.PeerMessage{
		Timestamp: 2, ID: 1, Operation: "get", Key: "b", Value: 7,
	})
	if v := e.Store.Get("b"); v != 0 {
		t.Fatalf("get message was applied as a write: value = %d, want 0", v)
	}
}
