// Package holdback implements the per-replica holdback queue: a priority
// queue of proposals that are not yet eligible for delivery because not
// every replica has acknowledged them, plus the ack counter that tracks how
// close each one is.
//
// Big idea, grounded in the teacher's locking discipline (one mutex per
// piece of shared state, readers and a single writer): the queue and the
// ack table are really one piece of state — a proposal's position at the
// head of the queue only matters in light of its ack count — so §5 of the
// spec has them share a single lock instead of two.
package holdback

import (
	"container/heap"
	"sync"

	"consistentkv/internal/store"
)

// Queue is a priority queue over proposals ordered by (Timestamp, Origin),
// paired with an ack counter per proposal identity. It is safe for
// concurrent use.
type Queue struct {
	mu        sync.Mutex
	cond      *sync.Cond
	pq        proposalHeap
	acks      map[store.Proposal]int
	delivered map[store.Proposal]bool // already applied and popped; Enqueue on these is a no-op
	n         int                     // cluster size; a proposal is deliverable once its ack count reaches n
	closed    bool
}

// New returns an empty Queue for a cluster of size n.
func New(n int) *Queue {
	q := &Queue{
		pq:        make(proposalHeap, 0),
		acks:      make(map[store.Proposal]int),
		delivered: make(map[store.Proposal]bool),
		n:         n,
	}
	q.cond = sync.NewCond(&q.mu)
	heap.Init(&q.pq)
	return q
}

// Enqueue inserts p unless an equal proposal (by full identity) is already
// present or was already delivered. It does not touch p's ack count — acks
// may have already started arriving for a proposal that has not been
// enqueued yet (§4.4's races are legal), and Enqueue must not reset that
// progress. The delivered check also covers a replica receiving its own
// broadcast back (publish/subscribe loopback, §4.6 edge case c): by the
// time the echo arrives the proposal has usually already been enqueued (or
// even delivered) locally, so the second Enqueue is a safe no-op.
func (q *Queue) Enqueue(p store.Proposal) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.delivered[p] || q.inQueue(p) {
		return
	}
	if _, ok := q.acks[p]; !ok {
		q.acks[p] = 0
	}
	heap.Push(&q.pq, p)
	q.cond.Broadcast()
}

// AckArrived increments the ack counter for p. p may not be enqueued yet
// when its ack arrives; the counter is tracked regardless so that once p is
// eventually enqueued its ack progress is not lost.
func (q *Queue) AckArrived(p store.Proposal) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.acks[p]++
	q.cond.Broadcast()
}

// TryDeliver inspects the head of the queue. If its ack count equals the
// cluster size, it is popped and returned with ok=true; otherwise ok=false.
func (q *Queue) TryDeliver() (p store.Proposal, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.tryDeliverLocked()
}

func (q *Queue) tryDeliverLocked() (store.Proposal, bool) {
	if len(q.pq) == 0 {
		return store.Proposal{}, false
	}
	head := q.pq[0]
	if q.acks[head] < q.n {
		return store.Proposal{}, false
	}
	heap.Pop(&q.pq)
	delete(q.acks, head)
	q.delivered[head] = true
	return head, true
}

// WaitDeliver blocks until TryDeliver's precondition may have become true —
// i.e. until the next Enqueue or AckArrived — and then attempts delivery
// again. It is the condition-variable alternative to busy-waiting on
// TryDeliver that §5 explicitly licenses. It returns false only if the
// queue is closed while waiting.
func (q *Queue) WaitDeliver() (store.Proposal, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for {
		if q.closed {
			return store.Proposal{}, false
		}
		if p, ok := q.tryDeliverLocked(); ok {
			return p, true
		}
		q.cond.Wait()
	}
}

// Close unblocks any goroutine parked in WaitDeliver, for shutdown.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

// inQueue reports whether p is currently present in the heap. Only called
// with mu held.
func (q *Queue) inQueue(p store.Proposal) bool {
	for _, existing := range q.pq {
		if existing == p {
			return true
		}
	}
	return false
}

// AckCount returns the current ack count for p. Exposed for tests and
// diagnostics; the protocols never need to read it directly.
func (q *Queue) AckCount(p store.Proposal) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.acks[p]
}

// Len returns the number of proposals currently held back.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pq)
}

// proposalHeap implements container/heap.Interface ordered by
// (Timestamp, Origin) ascending — the total order from §3.
type proposalHeap []store.Proposal

func (h proposalHeap) Len() int            { return len(h) }
func (h proposalHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h proposalHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *proposalHeap) Push(x interface{}) { *h = append(*h, x.(store.Proposal)) }
func (h *proposalHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
