package protocol

import (
	"context"

	"consistentkv/internal/store"
)

// Sequential implements sequential consistency (C7): writes go through the
// same total-order multicast as linearizability, but a read is answered
// straight from the local store without waiting on the queue, since every
// replica already applies writes in the same order and a stale-but-
// consistent read is within spec. Composition, not a parallel
// reimplementation — Sequential is a Linearizer with Get short-circuited.
type Sequential struct {
	*Linearizer
}

// NewSequential builds a Sequential over d.
func NewSequential(d Deps) *Sequential {
	return &Sequential{Linearizer: NewLinearizer(d)}
}

// OnClientRequest bypasses the queue entirely for a get; a set falls
// through to the embedded Linearizer's totally-ordered path unchanged.
func (s *Sequential) OnClientRequest(ctx context.Context, op store.Op) (string, error) {
	if op.Kind == store.OpGet {
		return formatReply(op, s.Store.Get(op.Key)), nil
	}
	return s.Linearizer.OnClientRequest(ctx, op)
}

var _ Protocol = (*Sequential)(nil)
