package sorter

import "sync"

// WorkItem is one candidate file and the source root it was found under.
type WorkItem struct {
	Path string
	Root string
}

// Queue is a mutex-guarded FIFO of work items. Dequeue never blocks: the
// queue is filled before workers start, so an empty queue means done.
type Queue struct {
	mu    sync.Mutex
	items []WorkItem
	head  int
}

// NewQueue returns a queue holding items in order.
func NewQueue(items ...WorkItem) *Queue {
	q := &Queue{}
	q.Push(items...)
	return q
}

// Push appends items.
func (q *Queue) Push(items ...WorkItem) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
}

// TryPop removes the oldest item. ok is false when the queue is empty.
func (q *Queue) TryPop() (item WorkItem, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.head >= len(q.items) {
		return WorkItem{}, false
	}
	item = q.items[q.head]
	q.items[q.head] = WorkItem{}
	q.head++
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
	}
	return item, true
}

// Len returns the number of items still queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) - q.head
}
