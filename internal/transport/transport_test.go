package transport

import (
	"testing"

	"consistentkv/internal/store"
)

func TestProposeMessageRoundTrips(t *testing.T) {
	p := store.Proposal{Timestamp: 7, Origin: 2, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 1}}
	msg := ProposeMessage(p)

	if msg.Ack {
		t.Fatal("propose message marked as ack")
	}
	if got := msg.Proposal(); got != p {
		t.Fatalf("round trip = %+v, want %+v", got, p)
	}
}

func TestAckMessageCarriesOriginalIdentity(t *testing.T) {
	p := store.Proposal{Timestamp: 7, Origin: 2, Op: store.Op{Kind: store.OpSet, Key: "a", Value: 1}}
	ack := AckMessage(p, 9)

	if !ack.Ack {
		t.Fatal("ack message not marked as ack")
	}
	if ack.MsgTimestamp == nil || *ack.MsgTimestamp != 7 {
		t.Fatalf("ack.MsgTimestamp = %v, want 7", ack.MsgTimestamp)
	}
	if ack.Timestamp != 9 {
		t.Fatalf("ack.Timestamp = %d, want 9 (the acker's own fresh tick)", ack.Timestamp)
	}
	if got := ack.Proposal(); got != p {
		t.Fatalf("ack.Proposal() = %+v, want %+v (the proposal being acked)", got, p)
	}
}

func TestFakeNetworkDeliversInOrderPerSender(t *testing.T) {
	net := NewFakeNetwork([]int{0, 1})
	t0 := net.Transport(0)

	for i := uint64(1); i <= 5; i++ {
		t0.Broadcast(PeerMessage{Timestamp: i, ID: 0})
	}

	inbox := net.Inbox(1)
	for i := uint64(1); i <= 5; i++ {
		msg := <-inbox
		if msg.Timestamp != i {
			t.Fatalf("got message %d out of order, timestamp %d", i, msg.Timestamp)
		}
	}
}

func TestFakeNetworkDoesNotDeliverToSelf(t *testing.T) {
	net := NewFakeNetwork([]int{0, 1})
	t0 := net.Transport(0)
	t0.Broadcast(PeerMessage{Timestamp: 1, ID: 0})

	select {
	case <-net.Inbox(0):
		t.Fatal("message delivered to sender's own inbox")
	default:
	}
}
