package workerpool

import "slices"

// callQueue holds invocations waiting for a worker, ordered by priority
// (lower first) and then by arrival. It is guarded by the pool's mutex.
type callQueue struct {
	entries []*call
	maxSize int
}

func newCallQueue(maxSize int) *callQueue {
	return &callQueue{maxSize: maxSize}
}

func before(a, b *call) bool {
	if a.priority != b.priority {
		return a.priority < b.priority
	}
	return a.seq < b.seq
}

// push inserts c in order. It returns ErrQueueFull when maxSize > 0 entries
// are already queued.
func (q *callQueue) push(c *call) error {
	if q.maxSize > 0 && len(q.entries) >= q.maxSize {
		return ErrQueueFull
	}
	i, _ := slices.BinarySearchFunc(q.entries, c, func(e, target *call) int {
		if before(e, target) {
			return -1
		}
		return 1
	})
	q.entries = slices.Insert(q.entries, i, c)
	return nil
}

// pop removes and returns the first entry.
func (q *callQueue) pop() (*call, bool) {
	if len(q.entries) == 0 {
		return nil, false
	}
	c := q.entries[0]
	q.entries[0] = nil
	q.entries = q.entries[1:]
	return c, true
}

// remove takes c out of the queue and reports whether it was queued.
func (q *callQueue) remove(c *call) bool {
	i := slices.Index(q.entries, c)
	if i < 0 {
		return false
	}
	q.entries = slices.Delete(q.entries, i, i+1)
	return true
}

// setPriority repositions the queued call with id. Arrival order among equal
// priorities is preserved.
func (q *callQueue) setPriority(id string, priority int) bool {
	i := slices.IndexFunc(q.entries, func(c *call) bool { return c.id == id })
	if i < 0 {
		return false
	}
	c := q.entries[i]
	q.entries = slices.Delete(q.entries, i, i+1)
	c.priority = priority
	// Re-insertion cannot hit maxSize: one slot was just freed.
	_ = q.push(c)
	return true
}

// drain removes and returns all entries in order.
func (q *callQueue) drain() []*call {
	out := q.entries
	q.entries = nil
	return out
}

func (q *callQueue) len() int {
	return len(q.entries)
}
