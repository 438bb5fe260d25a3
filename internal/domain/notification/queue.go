// internal/domain/notification/queue.go
package notification

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultMinQueueSize   = 1
	DefaultQueueCapacity  = 100
	DefaultSeenIDCapacity = 10000
)

// Item is one inbound event: its text and the platform's identifier for it.
type Item struct {
	Content    string
	ExternalID string
}

// Queue buffers inbound items until enough have accumulated to be handled as
// one batch. Items are deduplicated by ExternalID until Clear is called.
//
// The seen set is bounded. It always holds at least as many IDs as the queue
// holds items, and evicts the least recently added first, so an ID still
// present in the queue is never forgotten.
type Queue struct {
	mu       sync.Mutex
	minSize  int
	capacity int
	items    []Item
	seen     *lru.Cache[string, struct{}]
}

// NewQueue creates a queue. seenCapacity must be at least capacity.
func NewQueue(minSize, capacity, seenCapacity int) (*Queue, error) {
	if minSize < 1 {
		return nil, fmt.Errorf("min queue size must be positive, got %d", minSize)
	}
	if capacity < 1 {
		return nil, fmt.Errorf("queue capacity must be positive, got %d", capacity)
	}
	if seenCapacity < capacity {
		return nil, fmt.Errorf("seen id capacity %d is smaller than queue capacity %d", seenCapacity, capacity)
	}
	seen, err := lru.New[string, struct{}](seenCapacity)
	if err != nil {
		return nil, fmt.Errorf("failed to create seen id cache: %w", err)
	}
	return &Queue{
		minSize:  minSize,
		capacity: capacity,
		items:    make([]Item, 0, capacity),
		seen:     seen,
	}, nil
}

// Add appends items whose ExternalID has not been seen since the last Clear.
// The oldest items are evicted once capacity is exceeded. It returns the items
// that were actually added.
func (q *Queue) Add(batch []Item) []Item {
	q.mu.Lock()
	defer q.mu.Unlock()

	var added []Item
	for _, it := range batch {
		if q.seen.Contains(it.ExternalID) {
			continue
		}
		if len(q.items) == q.capacity {
			copy(q.items, q.items[1:])
			q.items = q.items[:len(q.items)-1]
		}
		q.items = append(q.items, it)
		q.seen.Add(it.ExternalID, struct{}{})
		added = append(added, it)
	}
	return added
}

// IsReady reports whether the queue holds at least the minimum batch size.
func (q *Queue) IsReady() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) >= q.minSize
}

// Drain returns a snapshot of the queued items without removing them.
func (q *Queue) Drain() []Item {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]Item, len(q.items))
	copy(out, q.items)
	return out
}

// Clear empties the queue and forgets every seen ID.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = q.items[:0]
	q.seen.Purge()
}

// Len is the number of queued items.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Contents returns only the text of the given items, in order.
func Contents(items []Item) []string {
	out := make([]string, 0, len(items))
	for _, it := range items {
		out = append(out, it.Content)
	}
	return out
}
