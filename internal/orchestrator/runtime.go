package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/imagegen"
)

var (
	// ErrNoPlaythrough is returned when the session is idle.
	ErrNoPlaythrough = errors.New("orchestrator: no active playthrough")
	// ErrPlaythroughActive is returned by Start when a playthrough is running.
	ErrPlaythroughActive = errors.New("orchestrator: playthrough already active")
)

// Session owns the current playthrough of one player. It is idle until Start
// and returns to idle on Restart. Safe for concurrent use.
type Session struct {
	id           string
	store        Store
	resolver     AssetResolver
	assetTimeout time.Duration
	now          func() time.Time

	mu      sync.Mutex
	current *Playthrough
}

type SessionOption func(*Session)

// WithStore persists every change of the playthrough.
func WithStore(st Store) SessionOption {
	return func(s *Session) { s.store = st }
}

// WithAssetResolver makes Start, Replace and Render confirm that images
// resolve within timeout.
func WithAssetResolver(r AssetResolver, timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.resolver = r
		if timeout > 0 {
			s.assetTimeout = timeout
		}
	}
}

func withClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

func NewSession(id string, opts ...SessionOption) *Session {
	s := &Session{
		id:           id,
		assetTimeout: DefaultAssetLoadTimeout,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Session) ID() string { return s.id }

// Start begins a playthrough on an idle session. With a resolver configured
// every image must resolve first; otherwise nothing is committed.
func (s *Session) Start(ctx context.Context, prompt string, g *Graph, images imagegen.GameImageSet) (*Playthrough, error) {
	return s.begin(ctx, prompt, g, images, false)
}

// Replace installs a new playthrough whether or not one is active. The last
// call wins.
func (s *Session) Replace(ctx context.Context, prompt string, g *Graph, images imagegen.GameImageSet) (*Playthrough, error) {
	return s.begin(ctx, prompt, g, images, true)
}

func (s *Session) begin(ctx context.Context, prompt string, g *Graph, images imagegen.GameImageSet, replace bool) (*Playthrough, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	if !images.Complete() {
		return nil, fmt.Errorf("%w: image set %+v", ErrIncompleteGame, images)
	}

	now := s.now()
	p := &Playthrough{
		ID:        uuid.NewString(),
		Prompt:    strings.TrimSpace(prompt),
		Graph:     g,
		Images:    images,
		Current:   g.Initial,
		StartedAt: now,
		UpdatedAt: now,
	}

	if s.resolver != nil {
		all := make(map[imagegen.Slot]string, len(imagegen.Slots))
		for _, slot := range imagegen.Slots {
			all[slot] = images.Path(slot)
		}
		if err := s.awaitAssets(ctx, p, all); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	prev := s.current
	if prev != nil && !replace {
		s.mu.Unlock()
		return nil, ErrPlaythroughActive
	}
	if err := s.persist(ctx, p); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.current = p
	s.mu.Unlock()

	if prev != nil {
		s.emitEvent("playthrough.replaced", map[string]interface{}{
			"playthrough_id": p.ID,
			"previous_id":    prev.ID,
		})
	}
	s.emitEvent("playthrough.started", map[string]interface{}{
		"playthrough_id": p.ID,
		"prompt":         p.Prompt,
	})
	s.emitEvent("scene.entered", map[string]interface{}{
		"playthrough_id": p.ID,
		"scene_id":       string(p.Current),
	})
	return p.clone(), nil
}

// Advance follows edge from the current scene.
func (s *Session) Advance(ctx context.Context, edge Edge) (*Playthrough, error) {
	s.mu.Lock()
	if s.current == nil {
		s.mu.Unlock()
		return nil, ErrNoPlaythrough
	}
	from := s.current.Current
	next, err := s.current.Graph.Next(from, edge)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	p := s.current.clone()
	now := s.now()
	p.Current = next
	p.UpdatedAt = now
	p.History = append(p.History, Step{From: from, Edge: edge, To: next, At: now})

	if err := s.persist(ctx, p); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.current = p
	s.mu.Unlock()

	s.emitEvent("playthrough.advanced", map[string]interface{}{
		"playthrough_id": p.ID,
		"from":           string(from),
		"edge":           string(edge),
		"to":             string(next),
	})
	s.emitEvent("scene.entered", map[string]interface{}{
		"playthrough_id": p.ID,
		"scene_id":       string(next),
	})
	if p.State() == StateCompleted {
		s.emitEvent("playthrough.completed", map[string]interface{}{
			"playthrough_id": p.ID,
			"scene_id":       string(next),
			"steps":          len(p.History),
		})
	}
	return p.clone(), nil
}

// Restart discards the playthrough, its graph and its image set, and returns
// the session to idle. Restarting an idle session is a no-op.
func (s *Session) Restart(ctx context.Context) error {
	s.mu.Lock()
	p := s.current
	if p == nil {
		s.mu.Unlock()
		return nil
	}
	if s.store != nil {
		if err := s.store.Delete(ctx, s.id); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("delete playthrough: %w", err)
		}
	}
	s.resetState()
	s.mu.Unlock()

	s.emitEvent("playthrough.restarted", map[string]interface{}{
		"playthrough_id": p.ID,
		"scene_id":       string(p.Current),
	})
	return nil
}

// Current returns a copy of the active playthrough.
func (s *Session) Current() (*Playthrough, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return nil, false
	}
	return s.current.clone(), true
}

// State returns idle, active or completed.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return StateIdle
	}
	return s.current.State()
}

// Restore loads the persisted playthrough, if any, into an idle session.
func (s *Session) Restore(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	p, err := s.store.Load(ctx, s.id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := p.Graph.Validate(); err != nil {
		return false, fmt.Errorf("restore %s: %w", s.id, err)
	}
	if _, ok := p.Graph.Scene(p.Current); !ok {
		return false, fmt.Errorf("restore %s: %w", s.id, &DanglingTransitionError{Edge: "current", Target: p.Current})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil {
		return false, ErrPlaythroughActive
	}
	s.current = p
	return true, nil
}

func (s *Session) persist(ctx context.Context, p *Playthrough) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.id, p); err != nil {
		return fmt.Errorf("save playthrough: %w", err)
	}
	return nil
}

func (s *Session) resetState() {
	s.current = nil
}

func (s *Session) emitEvent(name string, fields map[string]interface{}) {
	fields["session_id"] = s.id
	events.Emit("info", name, "", fields)
}
