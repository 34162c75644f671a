// Package bootstrap loads a cluster configuration file and launches the
// whole cluster — replicas and scripted clients — in one process. It plays
// the role of the original Python implementation's main.py (which forks
// one OS process per server and per client via subprocess.Popen); see
// bootstrap.go for why this module launches goroutines instead.
package bootstrap

import (
	"encoding/json"
	"fmt"
	"io"
)

// consistencyLevels mirrors the four values original_source/server.py's
// Cluster.__init__ validates against.
var consistencyLevels = map[string]bool{
	"linearizability": true,
	"sequential":      true,
	"eventual":        true,
	"causal":          true,
}

// Ports is the three-element [peer_in, peer_out, client_api] tuple spec.md
// §6 assigns to each server number. peer_out is parsed but unused — see
// DESIGN.md.
type Ports [3]int

func (p Ports) peerIn() int    { return p[0] }
func (p Ports) clientAPI() int { return p[2] }

// ClientRequestSpec is one entry in a client's request script.
type ClientRequestSpec struct {
	Type  string `json:"type"` // "set", "get", or "sleep"
	Key   string `json:"key"`
	Value int64  `json:"value"`
}

// ClientSpec is one scripted client: which replica it talks to and the
// sequence of requests it sends.
type ClientSpec struct {
	ClientNumber int                 `json:"client_number"`
	ServerNumber int                 `json:"server_number"`
	Requests     []ClientRequestSpec `json:"requests"`
}

// Config is the cluster configuration file's JSON shape from spec.md §6.
type Config struct {
	NumServers  int              `json:"num_servers"`
	Consistency string           `json:"consistency_level"`
	PortNumber  map[string]Ports `json:"port_number"`
	Clients     []ClientSpec     `json:"clients"`
}

// Load parses a Config from r and validates it.
func Load(r io.Reader) (Config, error) {
	var cfg Config
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode cluster config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the two invariants original_source/server.py's
// Cluster.__init__ checks at startup: a known consistency level, and one
// port triple per declared server. It also rejects a client whose
// server_number has no port_number entry. All are Configuration errors (§7) —
// fail fast before any replica starts, rather than partway through launch.
func (c Config) Validate() error {
	if !consistencyLevels[c.Consistency] {
		return fmt.Errorf("consistency_level %q is not one of linearizability, sequential, eventual, causal", c.Consistency)
	}
	if len(c.PortNumber) != c.NumServers {
		return fmt.Errorf("num_servers (%d) does not match the number of entries in port_number (%d)", c.NumServers, len(c.PortNumber))
	}
	for _, client := range c.Clients {
		key := fmt.Sprintf("%d", client.ServerNumber)
		if _, ok := c.PortNumber[key]; !ok {
			return fmt.Errorf("client %d targets unknown server_number %d", client.ClientNumber, client.ServerNumber)
		}
	}
	return nil
}
