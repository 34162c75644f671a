// Package replica wires one node's clock, store, log, holdback queue,
// transport, and consistency protocol together and runs its three
// activities: the client reactor, the peer reactor, and the deliverer.
// Grounded in the teacher's cmd/server/main.go, which wires store,
// membership, and replicator together and launches the HTTP server,
// snapshot ticker, and signal handler each as their own goroutine.
package replica

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"consistentkv/internal/api"
	"consistentkv/internal/clock"
	"consistentkv/internal/holdback"
	"consistentkv/internal/protocol"
	"consistentkv/internal/store"
	"consistentkv/internal/transport"
)

// Config is everything one replica needs to start: its identity, its
// consistency level, the two addresses it listens on, and the addresses of
// its peers' peer-in listeners.
type Config struct {
	ID          int
	Consistency string
	PeerAddr    string   // this replica's peer_in listen address, e.g. ":5010"
	ClientAddr  string   // this replica's client_api listen address, e.g. ":5012"
	Peers       []string // peer_in addresses of every other replica
	N           int      // cluster size; defaults to len(Peers)+1 if zero
}

// Replica is one running node: the fabric (clock/store/log/queue/transport)
// plus the consistency protocol layered on it, plus the two HTTP listeners
// that expose it.
type Replica struct {
	cfg   Config
	clock *clock.Clock
	store *store.Store
	log   *store.Log
	queue *holdback.Queue
	peer  *transport.HTTPPeerTransport
	proto protocol.Protocol

	peerSrv   *http.Server
	clientSrv *http.Server
}

// New builds a Replica for cfg. It does not start listening or running
// goroutines; call Run for that.
func New(cfg Config) (*Replica, error) {
	n := cfg.N
	if n == 0 {
		n = len(cfg.Peers) + 1
	}

	r := &Replica{
		cfg:   cfg,
		clock: &clock.Clock{},
		store: store.New(),
		log:   store.NewLog(),
		queue: holdback.New(n),
		peer:  transport.NewHTTPPeerTransport(cfg.PeerAddr, cfg.Peers),
	}

	proto, err := protocol.New(cfg.Consistency, protocol.Deps{
		Self:      cfg.ID,
		N:         n,
		Clock:     r.clock,
		Store:     r.store,
		Log:       r.log,
		Queue:     r.queue,
		Transport: r.peer,
	})
	if err != nil {
		return nil, fmt.Errorf("replica %d: %w", cfg.ID, err)
	}
	r.proto = proto

	r.peerSrv = &http.Server{Addr: cfg.PeerAddr, Handler: r.peerRouter()}
	r.clientSrv = &http.Server{Addr: cfg.ClientAddr, Handler: r.clientRouter()}
	return r, nil
}

// Store exposes the underlying key/value map, for tests and diagnostics.
func (r *Replica) Store() *store.Store { return r.store }

// peerRouter mounts the inbound peer channel and the liveness probe that
// HTTPPeerTransport.Dial polls at startup.
func (r *Replica) peerRouter() *gin.Engine {
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"node":        r.cfg.ID,
			"consistency": r.cfg.Consistency,
			"peers":       len(r.cfg.Peers),
		})
	})

	router.POST("/peer", func(c *gin.Context) {
		var msg transport.PeerMessage
		if err := c.ShouldBindJSON(&msg); err != nil {
			// Malformed peer messages are dropped, not surfaced as a
			// protocol error — §7's malformed-wire-message handling.
			log.Printf("replica %d: dropping malformed peer message: %v", r.cfg.ID, err)
			c.Status(http.StatusBadRequest)
			return
		}
		if msg.Ack && msg.MsgTimestamp == nil {
			log.Printf("replica %d: dropping ack with no msg_timestamp", r.cfg.ID)
			c.Status(http.StatusBadRequest)
			return
		}
		r.proto.OnPeerMessage(c.Request.Context(), msg)
		c.Status(http.StatusOK)
	})

	return router
}

// clientRouter mounts the client wire protocol.
func (r *Replica) clientRouter() *gin.Engine {
	router := gin.New()
	router.Use(api.Logger(), api.Recovery())

	router.POST("/request", func(c *gin.Context) {
		var req transport.ClientRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.String(http.StatusBadRequest, "bad request: %v", err)
			return
		}

		op, err := toOp(req)
		if err != nil {
			c.String(http.StatusBadRequest, err.Error())
			return
		}

		reply, err := r.proto.OnClientRequest(c.Request.Context(), op)
		if err != nil {
			c.String(http.StatusInternalServerError, err.Error())
			return
		}
		c.String(http.StatusOK, reply)
	})

	return router
}

func toOp(req transport.ClientRequest) (store.Op, error) {
	switch req.Type {
	case "set":
		return store.Op{Kind: store.OpSet, Key: req.Key, Value: req.Value}, nil
	case "get":
		return store.Op{Kind: store.OpGet, Key: req.Key}, nil
	default:
		return store.Op{}, fmt.Errorf("unsupported request type %q (sleep is a client-side directive, not sent to a replica)", req.Type)
	}
}

// Run starts the peer listener, the client listener, and the deliverer
// goroutine, and blocks until ctx is cancelled. It mirrors the teacher's
// go func(){ srv.ListenAndServe() }() style, one goroutine per concern.
func (r *Replica) Run(ctx context.Context) error {
	errCh := make(chan error, 2)

	go func() {
		log.Printf("replica %d: peer listener on %s", r.cfg.ID, r.cfg.PeerAddr)
		if err := r.peerSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("peer listener: %w", err)
		}
	}()

	go func() {
		log.Printf("replica %d: client listener on %s", r.cfg.ID, r.cfg.ClientAddr)
		if err := r.clientSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("client listener: %w", err)
		}
	}()

	go r.deliverLoop()

	select {
	case <-ctx.Done():
		return r.Shutdown()
	case err := <-errCh:
		return err
	}
}

// deliverLoop is the dedicated deliverer activity (§5): it blocks on the
// holdback queue's condition variable instead of busy-waiting, and applies
// every proposal that clears the queue by calling OnDeliver.
func (r *Replica) deliverLoop() {
	for {
		p, ok := r.queue.WaitDeliver()
		if !ok {
			return
		}
		r.proto.OnDeliver(p)
	}
}

// Shutdown drains both listeners and stops the deliverer, giving in-flight
// requests time to complete — carried over from the teacher's graceful
// shutdown even though there is nothing to snapshot.
func (r *Replica) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	var errs []error
	if err := r.peerSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("peer listener shutdown: %w", err))
	}
	if err := r.clientSrv.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("client listener shutdown: %w", err))
	}
	r.queue.Close()

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// DialPeers waits for every peer's peer_in address to become reachable,
// bounded by window — replicas may start in any order (§7). Callers
// typically call this once after Run has started the peer listener, to
// know when the cluster has finished forming before issuing client
// requests.
func (r *Replica) DialPeers(ctx context.Context, window time.Duration) error {
	return r.peer.Dial(ctx, window)
}
