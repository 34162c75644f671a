package bootstrap

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"
	"time"

	"consistentkv/internal/client"
	"consistentkv/internal/replica"
)

// startupWindow bounds how long a replica waits for its peers to become
// reachable — replicas may start in any order (§7).
const startupWindow = 10 * time.Second

// Launch starts one replica.Replica per server_number in cfg, waits for the
// peer fabric to form, then runs every client's request script to
// completion, and finally tears the whole cluster down.
//
// The original Python Cluster forks one OS process per server (and one per
// client) via subprocess.Popen; a library that must also run in a single
// test process cannot do that, so each server becomes a goroutine bound to
// its own pair of listeners instead — the practical Go equivalent of "a
// cluster of processes" without losing the ability to unit-test the whole
// cluster in-process.
func Launch(parent context.Context, cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	replicas := make([]*replica.Replica, cfg.NumServers)
	peerAddr := make(map[int]string, cfg.NumServers)
	clientAddr := make(map[int]string, cfg.NumServers)

	for i := 0; i < cfg.NumServers; i++ {
		ports, ok := cfg.PortNumber[strconv.Itoa(i)]
		if !ok {
			return fmt.Errorf("missing port_number entry for server %d", i)
		}
		peerAddr[i] = fmt.Sprintf("127.0.0.1:%d", ports.peerIn())
		clientAddr[i] = fmt.Sprintf("127.0.0.1:%d", ports.clientAPI())
	}

	for i := 0; i < cfg.NumServers; i++ {
		var peers []string
		for j := 0; j < cfg.NumServers; j++ {
			if j != i {
				peers = append(peers, peerAddr[j])
			}
		}
		r, err := replica.New(replica.Config{
			ID:          i,
			Consistency: cfg.Consistency,
			PeerAddr:    peerAddr[i],
			ClientAddr:  clientAddr[i],
			Peers:       peers,
			N:           cfg.NumServers,
		})
		if err != nil {
			return fmt.Errorf("construct replica %d: %w", i, err)
		}
		replicas[i] = r
	}

	var replicaWG sync.WaitGroup
	for i, r := range replicas {
		i, r := i, r
		replicaWG.Add(1)
		go func() {
			defer replicaWG.Done()
			if err := r.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("replica %d: %v", i, err)
			}
		}()
	}

	// Mirrors main.py's `time.sleep(2)` before spawning client processes,
	// but bounded and driven by real readiness instead of a fixed delay.
	for i, r := range replicas {
		if err := r.DialPeers(ctx, startupWindow); err != nil {
			cancel()
			replicaWG.Wait()
			return fmt.Errorf("replica %d: %w", i, err)
		}
	}

	var clientWG sync.WaitGroup
	for _, cs := range cfg.Clients {
		cs := cs
		addr, ok := clientAddr[cs.ServerNumber]
		if !ok {
			log.Printf("client %d: unknown server_number %d, skipping", cs.ClientNumber, cs.ServerNumber)
			continue
		}
		clientWG.Add(1)
		go func() {
			defer clientWG.Done()
			runScript(ctx, cs, addr)
		}()
	}
	clientWG.Wait()

	// All client scripts have finished; tear the cluster down, playing the
	// role of the original Cluster._destroy()'s subprocess kill fan-out.
	cancel()
	replicaWG.Wait()
	return nil
}

// runScript executes one client's request sequence against addr,
// sequentially — "one request per round-trip" (§6) means a client never
// has two requests in flight at once.
func runScript(ctx context.Context, cs ClientSpec, addr string) {
	c := client.New(addr, 10*time.Second)
	for _, req := range cs.Requests {
		switch req.Type {
		case "sleep":
			// A sleep request never reaches a replica — it stalls the
			// client locally, emulating network delay (§6). The request's
			// value is the delay in milliseconds.
			select {
			case <-time.After(time.Duration(req.Value) * time.Millisecond):
			case <-ctx.Done():
				return
			}
		case "set":
			reply, err := c.Set(ctx, req.Key, req.Value)
			logClientResult(cs.ClientNumber, req, reply, err)
		case "get":
			reply, err := c.Get(ctx, req.Key)
			logClientResult(cs.ClientNumber, req, reply, err)
		default:
			log.Printf("client %d: unknown request type %q, skipping", cs.ClientNumber, req.Type)
		}
	}
}

func logClientResult(clientNumber int, req ClientRequestSpec, reply string, err error) {
	if err != nil {
		log.Printf("client %d: %s %s: %v", clientNumber, req.Type, req.Key, err)
		return
	}
	log.Printf("client %d: %s %s -> %s", clientNumber, req.Type, req.Key, reply)
}
