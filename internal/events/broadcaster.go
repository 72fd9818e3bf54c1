package events

import (
	"sync"
	"sync/atomic"
)

// subscriberBuffer is how many events a slow subscriber may lag behind
// before it starts losing them.
const subscriberBuffer = 64

// Subscriber receives live events.
type Subscriber chan Event

type broadcaster struct {
	mu      sync.RWMutex
	subs    map[Subscriber]struct{}
	dropped atomic.Uint64
}

var live = &broadcaster{subs: make(map[Subscriber]struct{})}

// Subscribe registers a new live subscriber.
func Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	live.mu.Lock()
	live.subs[ch] = struct{}{}
	live.mu.Unlock()
	return ch
}

// Unsubscribe removes sub and closes it. Unknown or already closed
// subscribers are ignored.
func Unsubscribe(sub Subscriber) {
	live.mu.Lock()
	defer live.mu.Unlock()
	if _, ok := live.subs[sub]; !ok {
		return
	}
	delete(live.subs, sub)
	close(sub)
}

// broadcast never blocks Emit; a full subscriber misses the event.
func broadcast(e Event) {
	live.mu.RLock()
	defer live.mu.RUnlock()
	for sub := range live.subs {
		select {
		case sub <- e:
		default:
			live.dropped.Add(1)
		}
	}
}

// CloseAllSubscribers closes every live subscriber. Called on shutdown.
func CloseAllSubscribers() {
	live.mu.Lock()
	defer live.mu.Unlock()
	for sub := range live.subs {
		close(sub)
		delete(live.subs, sub)
	}
}

func SubscriberCount() int {
	live.mu.RLock()
	defer live.mu.RUnlock()
	return len(live.subs)
}

// DroppedCount returns how many deliveries were skipped for slow subscribers.
func DroppedCount() uint64 {
	return live.dropped.Load()
}

// Recent returns the last n buffered events matching f; n <= 0 returns all.
func Recent(f Filter, n int) []Event {
	return buffer.Query(f, n)
}
