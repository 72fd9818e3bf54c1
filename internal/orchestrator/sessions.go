package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	DefaultMaxSessions = 10000
	DefaultSessionIdle = 2 * time.Hour
)

// Lister is implemented by stores that can enumerate persisted sessions.
type Lister interface {
	Sessions(ctx context.Context) ([]string, error)
}

// Sessions tracks live sessions and restores persisted ones on demand.
// Sessions untouched for the idle period, or pushed out by the size limit,
// are dropped from memory; with a store they come back on the next Get.
type Sessions struct {
	store Store
	opts  []SessionOption

	mu   sync.Mutex
	live *expirable.LRU[string, *Session]
}

// NewSessions creates a registry with the default limits. Every session it
// creates uses store (which may be nil) plus opts.
func NewSessions(store Store, opts ...SessionOption) *Sessions {
	if store != nil {
		opts = append([]SessionOption{WithStore(store)}, opts...)
	}
	return &Sessions{
		store: store,
		opts:  opts,
		live:  expirable.NewLRU[string, *Session](DefaultMaxSessions, nil, DefaultSessionIdle),
	}
}

// WithLimits replaces the size and idle limits. Call it before use.
func (r *Sessions) WithLimits(size int, idle time.Duration) *Sessions {
	if size <= 0 {
		size = DefaultMaxSessions
	}
	if idle <= 0 {
		idle = DefaultSessionIdle
	}
	r.mu.Lock()
	r.live = expirable.NewLRU[string, *Session](size, nil, idle)
	r.mu.Unlock()
	return r
}

// Create registers a new idle session.
func (r *Sessions) Create() *Session {
	s := NewSession(uuid.NewString(), r.opts...)
	r.mu.Lock()
	r.live.Add(s.ID(), s)
	r.mu.Unlock()
	return s
}

// Remove forgets a live session. Its persisted snapshot, if any, is kept.
func (r *Sessions) Remove(id string) {
	r.mu.Lock()
	r.live.Remove(id)
	r.mu.Unlock()
}

// Get returns a live session or restores it from the store. Unknown ids
// return ErrNotFound. A hit renews the session's idle deadline.
func (r *Sessions) Get(ctx context.Context, id string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.live.Get(id)
	if ok {
		r.live.Add(id, s)
	}
	r.mu.Unlock()
	if ok {
		return s, nil
	}
	if r.store == nil {
		return nil, ErrNotFound
	}

	s = NewSession(id, r.opts...)
	restored, err := s.Restore(ctx)
	if err != nil {
		return nil, err
	}
	if !restored {
		return nil, ErrNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// another request may have restored it first
	if existing, ok := r.live.Get(id); ok {
		return existing, nil
	}
	r.live.Add(id, s)
	return s, nil
}

// RestoreAll loads every persisted session, when the store can list them.
// Snapshots that fail to restore are skipped and reported together.
func (r *Sessions) RestoreAll(ctx context.Context) (int, error) {
	lister, ok := r.store.(Lister)
	if !ok {
		return 0, nil
	}
	ids, err := lister.Sessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}
	n := 0
	var errs []error
	for _, id := range ids {
		if _, err := r.Get(ctx, id); err != nil {
			errs = append(errs, fmt.Errorf("restore session %s: %w", id, err))
			continue
		}
		n++
	}
	return n, errors.Join(errs...)
}

// Len returns the number of live sessions.
func (r *Sessions) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live.Len()
}

// Active counts sessions with a playthrough in progress.
func (r *Sessions) Active() int {
	r.mu.Lock()
	sessions := r.live.Values()
	r.mu.Unlock()
	n := 0
	for _, s := range sessions {
		if s.State() == StateActive {
			n++
		}
	}
	return n
}
