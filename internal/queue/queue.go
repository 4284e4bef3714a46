// Package queue provides bounded priority queues for beam search and
// top-k selection. Ordering is deterministic: equal scores are broken
// by lower ID.
package queue

// Item is an entry in a priority queue.
// Value-based (no pointers) for cache locality and zero allocations.
type Item struct {
	ID    uint32  // Node or label index; also the deterministic tie-break.
	Score float32 // Priority of the item in the queue.
}

// PriorityQueue is a binary heap of Items. A min-queue keeps the worst
// (lowest-score) item on top, which makes bounded top-k selection a
// push-then-pop; a max-queue keeps the best on top for ordered draining.
type PriorityQueue struct {
	isMaxHeap bool
	items     []Item
}

// NewMin initializes a queue whose top is the lowest-scoring item.
func NewMin(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: false, items: make([]Item, 0, capacity)}
}

// NewMax initializes a queue whose top is the highest-scoring item.
func NewMax(capacity int) *PriorityQueue {
	return &PriorityQueue{isMaxHeap: true, items: make([]Item, 0, capacity)}
}

// Len returns the number of items in the queue.
func (pq *PriorityQueue) Len() int { return len(pq.items) }

// Top returns the top item without removing it.
func (pq *PriorityQueue) Top() (Item, bool) {
	if len(pq.items) == 0 {
		return Item{}, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue) Push(item Item) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the top item.
func (pq *PriorityQueue) Pop() (Item, bool) {
	n := len(pq.items)
	if n == 0 {
		return Item{}, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = Item{}
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// PushBounded inserts an item, evicting the worst item when the queue
// would exceed limit. Only meaningful on min-queues, where the worst is
// on top. Returns false if the item was rejected outright.
func (pq *PriorityQueue) PushBounded(item Item, limit int) bool {
	if limit <= 0 {
		return false
	}
	if len(pq.items) < limit {
		pq.Push(item)
		return true
	}
	if !pq.before(item, pq.items[0]) {
		return false
	}
	pq.items[0] = item
	pq.siftDown(0)
	return true
}

// Drain removes all items in top-first order.
func (pq *PriorityQueue) Drain() []Item {
	out := make([]Item, 0, len(pq.items))
	for {
		item, ok := pq.Pop()
		if !ok {
			return out
		}
		out = append(out, item)
	}
}

// Reset clears the queue for reuse, keeping the backing slice.
func (pq *PriorityQueue) Reset() { pq.items = pq.items[:0] }

// before reports whether a sorts strictly after the top in a min-queue
// sense (a is better than b). Higher score wins; equal scores go to the
// lower ID.
func (pq *PriorityQueue) before(a, b Item) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

func (pq *PriorityQueue) less(i, j int) bool {
	if pq.isMaxHeap {
		return pq.before(pq.items[i], pq.items[j])
	}
	return pq.before(pq.items[j], pq.items[i])
}

func (pq *PriorityQueue) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(i, p) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		if r := l + 1; r < n && pq.less(r, l) {
			best = r
		}
		if !pq.less(best, i) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
