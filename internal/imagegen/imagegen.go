// Package imagegen turns one prompt into the avatar, background and npc
// images of a game.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/AaronLay10/lorecrafter/internal/assets"
	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/pixelart"
)

type Slot string

const (
	SlotAvatar     Slot = "avatar"
	SlotBackground Slot = "background"
	SlotNPC        Slot = "npc"
)

// Slots lists the slots in response order.
var Slots = [3]Slot{SlotAvatar, SlotBackground, SlotNPC}

type Outcome string

const (
	OutcomeGenerated Outcome = "generated"
	OutcomeFallback  Outcome = "fallback"
)

// ErrFallbackUnavailable is returned when a slot failed and its fallback
// image could not be written either.
var ErrFallbackUnavailable = errors.New("imagegen: fallback unavailable")

// Request carries the prompt plus the story fields used as classifier hints.
type Request struct {
	Prompt   string
	Role     string
	Setting  string
	NPCName  string
	NPCTrait string
}

// GameImageSet holds the root-relative paths of one game's images.
type GameImageSet struct {
	Avatar     string `json:"avatar"`
	Background string `json:"background"`
	NPC        string `json:"npc"`
}

// Path returns the path for slot.
func (s GameImageSet) Path(slot Slot) string {
	switch slot {
	case SlotAvatar:
		return s.Avatar
	case SlotBackground:
		return s.Background
	case SlotNPC:
		return s.NPC
	}
	return ""
}

// Complete reports whether every slot has a path.
func (s GameImageSet) Complete() bool {
	return s.Avatar != "" && s.Background != "" && s.NPC != ""
}

// SlotResult records whether a slot got its requested art or a substitute.
type SlotResult struct {
	Slot    Slot    `json:"slot"`
	Path    string  `json:"path"`
	Outcome Outcome `json:"outcome"`
	Cause   string  `json:"cause,omitempty"`
}

// Selection is what the classifier picked for a request.
type Selection struct {
	Character   pixelart.CharacterID   `json:"character"`
	Environment pixelart.EnvironmentID `json:"environment"`
	NPC         pixelart.CharacterID   `json:"npc"`
	NPCVariant  bool                   `json:"npc_variant"`
}

type Generation struct {
	Images    GameImageSet  `json:"images"`
	Results   [3]SlotResult `json:"results"`
	Selection Selection     `json:"selection"`
}

// Fallbacks counts slots that were substituted.
func (g Generation) Fallbacks() int {
	n := 0
	for _, r := range g.Results {
		if r.Outcome == OutcomeFallback {
			n++
		}
	}
	return n
}

// Exporter is the part of assets.Exporter the generator needs.
type Exporter interface {
	Export(ctx context.Context, slot string, buf *pixelart.PixelBuffer) (string, error)
	ExportAs(ctx context.Context, slot, name string, buf *pixelart.PixelBuffer) (string, error)
	Exists(ctx context.Context, assetPath string) (bool, error)
}

type Option func(*Generator)

// WithBackgroundSeed jitters background features with a fixed seed.
func WithBackgroundSeed(seed int64) Option {
	return func(g *Generator) {
		g.seeded = true
		g.seed = seed
	}
}

// Generator is safe for concurrent use.
type Generator struct {
	catalog  *pixelart.Catalog
	exporter Exporter
	seeded   bool
	seed     int64

	mu        sync.Mutex
	fallbacks map[Slot]string
}

func New(catalog *pixelart.Catalog, exporter Exporter, opts ...Option) *Generator {
	g := &Generator{
		catalog:   catalog,
		exporter:  exporter,
		fallbacks: make(map[Slot]string),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Select classifies the request without drawing anything.
func (g *Generator) Select(req Request) Selection {
	text := strings.Join([]string{req.Prompt, req.Role, req.Setting}, " ")
	char, env := g.catalog.Classify(text)
	npc, variant := g.catalog.ClassifyNPC(req.NPCName+" "+req.NPCTrait, char)
	return Selection{Character: char, Environment: env, NPC: npc, NPCVariant: variant}
}

// GenerateGameImages renders the three slots concurrently. A slot whose export
// fails gets its fallback image instead; the call fails only when a fallback
// cannot be produced.
func (g *Generator) GenerateGameImages(ctx context.Context, req Request) (Generation, error) {
	sel := g.Select(req)
	gen := Generation{Selection: sel}

	grp, gctx := errgroup.WithContext(ctx)
	for i, slot := range Slots {
		grp.Go(func() error {
			res, err := g.renderSlot(gctx, slot, sel)
			if err != nil {
				return err
			}
			gen.Results[i] = res
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		events.Emit("error", "image.failed", "image generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return Generation{}, err
	}

	gen.Images = GameImageSet{
		Avatar:     gen.Results[0].Path,
		Background: gen.Results[1].Path,
		NPC:        gen.Results[2].Path,
	}
	return gen, nil
}

func (g *Generator) renderSlot(ctx context.Context, slot Slot, sel Selection) (SlotResult, error) {
	buf := g.compose(slot, sel)
	p, err := g.exporter.Export(ctx, string(slot), buf)
	if err == nil {
		events.Emit("info", "image.exported", "", map[string]interface{}{
			"slot": string(slot),
			"path": p,
		})
		return SlotResult{Slot: slot, Path: p, Outcome: OutcomeGenerated}, nil
	}

	fb, fbErr := g.fallback(ctx, slot)
	if fbErr != nil {
		return SlotResult{}, fmt.Errorf("%w: %s: %v (after %v)", ErrFallbackUnavailable, slot, fbErr, err)
	}
	events.Emit("warn", "image.fallback", "using fallback image", map[string]interface{}{
		"slot":  string(slot),
		"path":  fb,
		"cause": err.Error(),
	})
	return SlotResult{Slot: slot, Path: fb, Outcome: OutcomeFallback, Cause: err.Error()}, nil
}

func (g *Generator) compose(slot Slot, sel Selection) *pixelart.PixelBuffer {
	switch slot {
	case SlotBackground:
		var opts []pixelart.SceneOption
		if g.seeded {
			opts = append(opts, pixelart.WithSeed(g.seed))
		}
		return pixelart.ComposeBackground(g.catalog.MustEnvironment(sel.Environment), opts...)
	case SlotNPC:
		a := g.catalog.MustCharacter(sel.NPC)
		if sel.NPCVariant {
			a = a.Variant()
		}
		return pixelart.ComposeCharacter(a)
	default:
		return pixelart.ComposeCharacter(g.catalog.MustCharacter(sel.Character))
	}
}

// fallback returns the path of fallback_<slot>.png, writing it on first use
// and again whenever the written file has disappeared. A failed write is
// retried on the next call.
func (g *Generator) fallback(ctx context.Context, slot Slot) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.fallbacks[slot]; ok {
		if exists, err := g.exporter.Exists(ctx, p); err == nil && exists {
			return p, nil
		}
		delete(g.fallbacks, slot)
	}
	sel := Selection{
		Character:   g.catalog.DefaultCharacter(),
		Environment: g.catalog.DefaultEnvironment(),
		NPC:         g.catalog.DefaultCharacter(),
		NPCVariant:  true,
	}
	p, err := g.exporter.ExportAs(ctx, string(slot), FallbackName(slot), g.compose(slot, sel))
	if err != nil {
		return "", err
	}
	g.fallbacks[slot] = p
	return p, nil
}

// FallbackName is the fixed file name of a slot's fallback image.
func FallbackName(slot Slot) string {
	return "fallback_" + string(slot) + ".png"
}

// Prewarm writes all fallback images up front.
func (g *Generator) Prewarm(ctx context.Context) error {
	for _, slot := range Slots {
		if _, err := g.fallback(ctx, slot); err != nil {
			return fmt.Errorf("prewarm %s: %w", slot, err)
		}
	}
	return nil
}

var _ Exporter = (*assets.Exporter)(nil)
