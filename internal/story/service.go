package story

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/AaronLay10/lorecrafter/internal/events"
)

const DefaultAttempts = 3

// Service asks the LLM for a story, validates it and retries on bad output.
type Service struct {
	llm      LLM
	attempts int
	cache    *Cache
}

type ServiceOption func(*Service)

func WithAttempts(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.attempts = n
		}
	}
}

// WithCache enables prompt-keyed story reuse.
func WithCache(c *Cache) ServiceOption {
	return func(s *Service) { s.cache = c }
}

func NewService(llm LLM, opts ...ServiceOption) *Service {
	s := &Service{llm: llm, attempts: DefaultAttempts}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Backend returns the name of the configured LLM.
func (s *Service) Backend() string { return s.llm.Name() }

// Generate returns a validated story for prompt. It never returns a partial
// story: after the last failed attempt the error wraps ErrStoryInvalid, or
// ErrSeedRejected when the model refused the prompt.
func (s *Service) Generate(ctx context.Context, prompt string) (*GameData, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("%w: empty prompt", ErrStoryInvalid)
	}

	if s.cache != nil {
		if g, ok := s.cache.Get(prompt); ok {
			events.Emit("info", "story.cache_hit", "", map[string]interface{}{"backend": s.llm.Name()})
			return g, nil
		}
	}

	system := SystemPrompt(prompt)
	var lastErr error
	for attempt := 1; attempt <= s.attempts; attempt++ {
		events.Emit("info", "story.requested", "", map[string]interface{}{
			"backend": s.llm.Name(),
			"attempt": attempt,
		})

		raw, err := s.llm.GenerateJSON(ctx, system, prompt)
		if err != nil {
			lastErr = err
			events.Emit("warn", "story.invalid", "llm request failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			if ctx.Err() != nil || isPermanent(err) {
				break
			}
			continue
		}

		g, warnings, err := Parse(raw)
		if err != nil {
			lastErr = err
			events.Emit("warn", "story.invalid", "validation failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			if errors.Is(err, ErrSeedRejected) {
				return nil, err
			}
			continue
		}

		for _, w := range warnings {
			events.Emit("warn", "story.warning", w, map[string]interface{}{"attempt": attempt})
		}
		events.Emit("info", "story.generated", "", map[string]interface{}{
			"attempt":  attempt,
			"setting":  g.Setting,
			"role":     g.ProtagonistRole,
			"warnings": len(warnings),
		})
		if s.cache != nil {
			s.cache.Add(prompt, g)
		}
		return g, nil
	}

	if errors.Is(lastErr, ErrStoryInvalid) {
		return nil, lastErr
	}
	return nil, fmt.Errorf("%w: %d attempts failed: %v", ErrStoryInvalid, s.attempts, lastErr)
}

func isPermanent(err error) bool {
	var p *PermanentError
	return errors.As(err, &p)
}
