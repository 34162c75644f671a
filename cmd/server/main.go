// cmd/server runs a single replica by hand, outside of a cluster config
// file — useful for manual testing and for running each node of a cluster
// as its own OS process.
//
// Example — 3-node cluster, linearizability:
//
//	./server --id 0 --peer-addr :5010 --client-addr :5012 \
//	          --peers localhost:5110,localhost:5210 --consistency linearizability
//	./server --id 1 --peer-addr :5110 --client-addr :5112 \
//	          --peers localhost:5010,localhost:5210 --consistency linearizability
//	./server --id 2 --peer-addr :5210 --client-addr :5212 \
//	          --peers localhost:5010,localhost:5110 --consistency linearizability
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"consistentkv/internal/replica"
)

func main() {
	id := flag.Int("id", 0, "This replica's numeric id")
	peerAddr := flag.String("peer-addr", ":5010", "Listen address for the peer channel (POST /peer, GET /health)")
	clientAddr := flag.String("client-addr", ":5012", "Listen address for the client channel (POST /request)")
	peersFlag := flag.String("peers", "", "Comma-separated peer_in addresses of every other replica")
	consistency := flag.String("consistency", "linearizability", "linearizability, sequential, eventual, or causal")
	dialWindow := flag.Duration("dial-window", 10*time.Second, "How long to wait for peers to become reachable at startup")
	flag.Parse()

	var peers []string
	if *peersFlag != "" {
		peers = strings.Split(*peersFlag, ",")
	}

	r, err := replica.New(replica.Config{
		ID:          *id,
		Consistency: *consistency,
		PeerAddr:    *peerAddr,
		ClientAddr:  *clientAddr,
		Peers:       peers,
	})
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Run(ctx)
	}()

	if err := r.DialPeers(ctx, *dialWindow); err != nil {
		log.Printf("warning: %v", err)
	} else {
		log.Printf("replica %d: all peers reachable", *id)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Printf("replica %d: shutting down", *id)
		cancel()
		<-errCh
	case err := <-errCh:
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
	}
}
