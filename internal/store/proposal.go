package store

// Proposal is a broadcast message carrying an operation plus the Lamport
// timestamp and replica identity that originated it. The pair
// (Timestamp, Origin) is a total order: compare by Timestamp, then by
// Origin (§3 of the spec). Proposal has no slice or map fields, so it is
// comparable and can be used directly as a map key — this is how the
// holdback queue's ack table and the deliverer's identity checks both work
// off the same value.
type Proposal struct {
	Timestamp uint64
	Origin    int
	Op        Op
}

// Less reports whether p sorts strictly before other under the
// (Timestamp, Origin) total order.
func (p Proposal) Less(other Proposal) bool {
	if p.Timestamp != other.Timestamp {
		return p.Timestamp < other.Timestamp
	}
	return p.Origin < other.Origin
}
