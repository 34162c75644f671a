package transport

import "sync"

// FakeNetwork wires together an in-memory PeerTransport per replica, for
// tests that want to exercise a protocol's message exchange without real
// sockets. Each replica has one buffered inbox channel that every other
// replica's Broadcast sends into directly, so a sender's messages reach a
// given receiver in the order they were sent — FIFO per sender, as §4.3
// requires of the real transport.
type FakeNetwork struct {
	mu      sync.Mutex
	inboxes map[int]chan PeerMessage
	peers   []int
}

// NewFakeNetwork returns a network connecting the given replica IDs.
func NewFakeNetwork(ids []int) *FakeNetwork {
	n := &FakeNetwork{
		inboxes: make(map[int]chan PeerMessage),
		peers:   append([]int{}, ids...),
	}
	for _, id := range ids {
		n.inboxes[id] = make(chan PeerMessage, 1024)
	}
	return n
}

// Transport returns the PeerTransport self should use to broadcast; it
// delivers to every other registered replica's inbox in the order sent.
func (n *FakeNetwork) Transport(self int) *FakeTransport {
	return &FakeTransport{net: n, self: self}
}

// Inbox returns the channel of messages addressed to id, for a replica's
// peer reactor to range over.
func (n *FakeNetwork) Inbox(id int) <-chan PeerMessage {
	return n.inboxes[id]
}

// FakeTransport is the PeerTransport handed to one replica in a FakeNetwork.
type FakeTransport struct {
	net  *FakeNetwork
	self int
}

// Broadcast delivers msg to every peer's inbox in registration order. Each
// inbox is a buffered channel fed only by sends like this one, so messages
// from a given sender arrive at a given receiver in the order they were
// sent — the FIFO-per-sender-pair guarantee §4.3 requires of the transport.
func (t *FakeTransport) Broadcast(msg PeerMessage) {
	t.net.mu.Lock()
	peers := append([]int{}, t.net.peers...)
	t.net.mu.Unlock()

	for _, id := range peers {
		if id == t.self {
			continue
		}
		t.net.inboxes[id] <- msg
	}
}
