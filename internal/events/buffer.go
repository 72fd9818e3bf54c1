package events

import (
	"strings"
	"sync"
)

// Filter selects events by name prefix and playthrough. The zero Filter
// matches everything.
type Filter struct {
	Prefixes      []string
	PlaythroughID string
}

func (f Filter) Match(e Event) bool {
	if f.PlaythroughID != "" {
		if id, _ := e.Fields["playthrough_id"].(string); id != f.PlaythroughID {
			return false
		}
	}
	if len(f.Prefixes) == 0 {
		return true
	}
	for _, p := range f.Prefixes {
		if strings.HasPrefix(e.Name, p) {
			return true
		}
	}
	return false
}

// RingBuffer keeps the most recent events in emission order.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []Event
	next  int
	count int
	total uint64
}

func NewRingBuffer(size int) *RingBuffer {
	if size < 1 {
		size = 1
	}
	return &RingBuffer{slots: make([]Event, size)}
}

func (rb *RingBuffer) Add(e Event) {
	rb.mu.Lock()
	rb.slots[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.slots)
	if rb.count < len(rb.slots) {
		rb.count++
	}
	rb.total++
	rb.mu.Unlock()
}

// Snapshot returns the buffered events, oldest first.
func (rb *RingBuffer) Snapshot() []Event {
	return rb.Query(Filter{}, 0)
}

// Query returns the newest limit events matching f, oldest first.
// limit <= 0 means no limit.
func (rb *RingBuffer) Query(f Filter, limit int) []Event {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	start := (rb.next - rb.count + len(rb.slots)) % len(rb.slots)
	out := make([]Event, 0, rb.count)
	for i := 0; i < rb.count; i++ {
		e := rb.slots[(start+i)%len(rb.slots)]
		if f.Match(e) {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Total returns the number of events ever added, including overwritten ones.
func (rb *RingBuffer) Total() uint64 {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	clear(rb.slots)
	rb.next, rb.count, rb.total = 0, 0, 0
	rb.mu.Unlock()
}
