package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/imagegen"
)

// DefaultAssetLoadTimeout bounds how long Render waits for images to resolve.
const DefaultAssetLoadTimeout = 5 * time.Second

var (
	ErrAssetLoadTimeout = errors.New("orchestrator: asset load timed out")
	ErrAssetMissing     = errors.New("orchestrator: asset missing")
)

// AssetResolver reports whether an image path can be served.
type AssetResolver interface {
	Exists(ctx context.Context, path string) (bool, error)
}

// View is what a client needs to draw the current scene.
type View struct {
	SessionID     string                   `json:"session_id"`
	PlaythroughID string                   `json:"playthrough_id,omitempty"`
	State         State                    `json:"state"`
	SceneID       SceneID                  `json:"scene_id,omitempty"`
	Kind          Kind                     `json:"type,omitempty"`
	Scene         Scene                    `json:"data,omitempty"`
	Images        map[imagegen.Slot]string `json:"images,omitempty"`
	Edges         []Edge                   `json:"edges,omitempty"`
}

// Render describes the current scene. Image paths always come from the
// playthrough's single image set. With a resolver configured, Render fails
// unless every required image resolves within the asset timeout.
func (s *Session) Render(ctx context.Context) (*View, error) {
	p, ok := s.Current()
	if !ok {
		return &View{SessionID: s.id, State: StateIdle}, nil
	}

	scene, ok := p.Graph.Scene(p.Current)
	if !ok {
		return nil, &DanglingTransitionError{Edge: "current", Target: p.Current}
	}

	// every scene shows the whole set
	images := make(map[imagegen.Slot]string, len(imagegen.Slots))
	for _, slot := range imagegen.Slots {
		images[slot] = p.Images.Path(slot)
	}

	if s.resolver != nil {
		if err := s.awaitAssets(ctx, p, images); err != nil {
			return nil, err
		}
	}

	return &View{
		SessionID:     s.id,
		PlaythroughID: p.ID,
		State:         p.State(),
		SceneID:       p.Current,
		Kind:          scene.Kind(),
		Scene:         scene,
		Images:        images,
		Edges:         sortedEdges(scene.Edges()),
	}, nil
}

type assetResult struct {
	slot imagegen.Slot
	ok   bool
	err  error
}

func (s *Session) awaitAssets(ctx context.Context, p *Playthrough, images map[imagegen.Slot]string) error {
	ctx, cancel := context.WithTimeout(ctx, s.assetTimeout)
	defer cancel()

	results := make(chan assetResult, len(images))
	for slot, path := range images {
		go func() {
			ok, err := s.resolver.Exists(ctx, path)
			results <- assetResult{slot: slot, ok: ok, err: err}
		}()
	}

	for range images {
		select {
		case <-ctx.Done():
			return s.assetTimeoutError(p)
		case r := <-results:
			if r.err != nil && ctx.Err() != nil {
				return s.assetTimeoutError(p)
			}
			if r.err != nil || !r.ok {
				fields := map[string]interface{}{
					"playthrough_id": p.ID,
					"scene_id":       string(p.Current),
					"slot":           string(r.slot),
					"path":           images[r.slot],
				}
				if r.err != nil {
					fields["error"] = r.err.Error()
				}
				s.emitEvent("scene.asset_missing", fields)
				return fmt.Errorf("%w: %s %s", ErrAssetMissing, r.slot, images[r.slot])
			}
		}
	}
	return nil
}

func (s *Session) assetTimeoutError(p *Playthrough) error {
	s.emitEvent("scene.asset_timeout", map[string]interface{}{
		"playthrough_id": p.ID,
		"scene_id":       string(p.Current),
		"timeout_ms":     s.assetTimeout.Milliseconds(),
	})
	return fmt.Errorf("%w: scene %s after %s", ErrAssetLoadTimeout, p.Current, s.assetTimeout)
}
