// Command render draws the three game images for a prompt without any LLM
// or server, and optionally writes the scene graph document for them.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/AaronLay10/lorecrafter/internal/assets"
	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/orchestrator"
	"github.com/AaronLay10/lorecrafter/internal/pixelart"
	"github.com/AaronLay10/lorecrafter/internal/story"
)

type summary struct {
	Prompt    string                `json:"prompt"`
	Selection imagegen.Selection    `json:"selection"`
	Images    imagegen.GameImageSet `json:"images"`
	Fallbacks int                   `json:"fallbacks"`
	Graph     string                `json:"graph,omitempty"`
}

func main() {
	prompt := flag.String("prompt", "", "adventure prompt")
	out := flag.String("out", "assets", "output directory")
	size := flag.Int("size", assets.DefaultSize, "output edge in pixels")
	seed := flag.Int64("seed", 0, "background jitter seed (0 keeps the layout fixed)")
	graphPath := flag.String("graph", "", "also write the offline story's scene graph here")
	verbose := flag.Bool("v", false, "print events as JSON lines on stderr")
	flag.Parse()

	text := strings.TrimSpace(*prompt)
	if text == "" {
		text = strings.TrimSpace(strings.Join(flag.Args(), " "))
	}
	if text == "" {
		fmt.Fprintln(os.Stderr, "usage: render -prompt \"a brave knight in a haunted forest\" [-out dir] [-size 512] [-graph graph.json]")
		os.Exit(2)
	}
	if *verbose {
		events.SetOutput(os.Stderr)
	}

	ctx := context.Background()
	store, err := assets.NewDirStore(*out)
	if err != nil {
		log.Fatalf("output dir: %v", err)
	}

	var opts []imagegen.Option
	if *seed != 0 {
		opts = append(opts, imagegen.WithBackgroundSeed(*seed))
	}
	gen := imagegen.New(pixelart.DefaultCatalog(), assets.NewExporter(store, *size), opts...)

	game, err := story.NewService(story.OfflineLLM{}).Generate(ctx, text)
	if err != nil {
		log.Fatalf("story: %v", err)
	}

	result, err := gen.GenerateGameImages(ctx, imagegen.Request{
		Prompt:   text,
		Role:     game.ProtagonistRole,
		Setting:  game.Setting,
		NPCName:  game.NPC.Name,
		NPCTrait: game.NPC.Trait,
	})
	if err != nil {
		log.Fatalf("render: %v", err)
	}

	sum := summary{
		Prompt:    text,
		Selection: result.Selection,
		Images:    result.Images,
		Fallbacks: result.Fallbacks(),
	}

	if *graphPath != "" {
		g, err := orchestrator.BuildGraph(game, result.Images)
		if err != nil {
			log.Fatalf("graph: %v", err)
		}
		b, err := json.MarshalIndent(g, "", "  ")
		if err != nil {
			log.Fatalf("graph: %v", err)
		}
		if err := os.WriteFile(*graphPath, b, 0o644); err != nil {
			log.Fatalf("graph: %v", err)
		}
		// round-trip check
		if _, err := orchestrator.LoadGraph(*graphPath); err != nil {
			log.Fatalf("graph: %v", err)
		}
		sum.Graph = *graphPath
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(sum)
}
