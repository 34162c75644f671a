package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net/http"
	"time"
)

// HTTPPeerTransport broadcasts PeerMessages to a fixed set of peer
// addresses over HTTP POST — directly grounded in the teacher's
// Replicator.sendReplicateRequest fan-out, generalized from "replicate one
// value to W peers" to "broadcast one message to every peer". Each peer
// gets its own long-lived sender goroutine reading off a private channel,
// one POST at a time, so two messages broadcast to the same peer are
// delivered in send order — the FIFO-per-sender-pair contract §4.3/§5
// assume and that FakeTransport already gives tests for free. The peer
// channel's fault model (§1: reliable, non-faulty transport for a test's
// lifetime) means a failed POST is logged and dropped, not retried;
// retries only happen at startup (see Dial).
type HTTPPeerTransport struct {
	selfAddr   string
	peers      []string // "host:port" of every other replica
	httpClient *http.Client
	outbox     map[string]chan PeerMessage
}

// NewHTTPPeerTransport returns a transport that POSTs to path "/peer" on
// each of peers, and starts that peer's sender goroutine.
func NewHTTPPeerTransport(selfAddr string, peers []string) *HTTPPeerTransport {
	t := &HTTPPeerTransport{
		selfAddr:   selfAddr,
		peers:      peers,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		outbox:     make(map[string]chan PeerMessage, len(peers)),
	}
	for _, peer := range peers {
		ch := make(chan PeerMessage, 1024)
		t.outbox[peer] = ch
		go t.sendLoop(peer, ch)
	}
	return t
}

// Broadcast hands msg to every peer's sender goroutine. It only blocks if a
// peer's outbox is backed up past its buffer, which under §1's reliable-
// transport assumption does not happen in practice.
func (t *HTTPPeerTransport) Broadcast(msg PeerMessage) {
	for _, peer := range t.peers {
		t.outbox[peer] <- msg
	}
}

// sendLoop POSTs every message enqueued for addr, one at a time and in
// order, for the lifetime of the transport.
func (t *HTTPPeerTransport) sendLoop(addr string, ch <-chan PeerMessage) {
	url := fmt.Sprintf("http://%s/peer", addr)
	for msg := range ch {
		body, err := json.Marshal(msg)
		if err != nil {
			log.Printf("peer broadcast to %s: marshal: %v", addr, err)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			log.Printf("peer broadcast to %s: %v", addr, err)
			cancel()
			continue
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.httpClient.Do(req)
		cancel()
		if err != nil {
			log.Printf("peer broadcast to %s: %v", addr, err)
			continue
		}
		resp.Body.Close()
	}
}

// Dial probes every peer address until each one accepts a connection or
// the overall window elapses, with exponential backoff between rounds.
// Replicas may start in any order (§7), so a peer refusing to connect at
// startup is expected, not fatal, until the window runs out — the same
// bounded-retry shape as the teacher's replication backoff
// (100ms * 2^attempt), applied once at startup instead of per message.
func (t *HTTPPeerTransport) Dial(ctx context.Context, window time.Duration) error {
	deadline := time.Now().Add(window)
	remaining := make(map[string]bool, len(t.peers))
	for _, p := range t.peers {
		remaining[p] = true
	}

	for attempt := 0; len(remaining) > 0; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(2, float64(attempt-1))*100) * time.Millisecond
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		for addr := range remaining {
			if probe(ctx, addr) {
				delete(remaining, addr)
			}
		}
		if time.Now().After(deadline) {
			break
		}
	}

	if len(remaining) > 0 {
		unreachable := make([]string, 0, len(remaining))
		for addr := range remaining {
			unreachable = append(unreachable, addr)
		}
		return fmt.Errorf("peers unreachable after %s: %v", window, unreachable)
	}
	return nil
}

func probe(ctx context.Context, addr string) bool {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/health", addr), nil)
	if err != nil {
		return false
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode < 500
}
