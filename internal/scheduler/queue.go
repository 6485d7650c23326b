package scheduler

import (
	"time"

	"github.com/halcyon-tools/lattice/internal/clock"
)

// queueCapacity bounds the pending set per project. Insertion past capacity
// evicts the single oldest entry rather than growing unbounded.
const queueCapacity = 500

type pendingChange struct {
	path        string
	firstSeenAt time.Time
}

// ChangeQueue is an ordered set of pending file paths for one project.
// Entries are ordered by arrival time; re-enqueueing a pending path is a
// no-op that preserves its original position and timestamp.
//
// ChangeQueue is not safe for concurrent use on its own; the Scheduler
// guards it with the per-project lock.
type ChangeQueue struct {
	clock   clock.Clock
	order   []*pendingChange
	pending map[string]*pendingChange
}

// NewChangeQueue creates an empty queue using the given clock for arrival
// timestamps.
func NewChangeQueue(clk clock.Clock) *ChangeQueue {
	return &ChangeQueue{
		clock:   clk,
		pending: make(map[string]*pendingChange),
	}
}

// Enqueue adds path to the pending set. If the queue is at capacity the
// oldest entry is evicted first; the evicted path is returned so the caller
// can emit exactly one backpressure warning per eviction.
func (q *ChangeQueue) Enqueue(path string) (evicted string, didEvict bool) {
	if _, ok := q.pending[path]; ok {
		return "", false
	}

	if len(q.order) >= queueCapacity {
		oldest := q.order[0]
		q.order = q.order[1:]
		delete(q.pending, oldest.path)
		evicted, didEvict = oldest.path, true
	}

	change := &pendingChange{path: path, firstSeenAt: q.clock.Now()}
	q.order = append(q.order, change)
	q.pending[path] = change
	return evicted, didEvict
}

// Drain atomically returns the full ordered set of pending paths and clears
// the queue. Events arriving after the drain accumulate in a fresh cycle.
func (q *ChangeQueue) Drain() []string {
	if len(q.order) == 0 {
		return nil
	}
	paths := make([]string, len(q.order))
	for i, change := range q.order {
		paths[i] = change.path
	}
	q.order = q.order[:0]
	q.pending = make(map[string]*pendingChange)
	return paths
}

// Len returns the number of pending changes.
func (q *ChangeQueue) Len() int {
	return len(q.order)
}
