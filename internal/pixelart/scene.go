package pixelart

import (
	"image"
	"math/rand/v2"
)

const (
	// SceneSize is the edge of the background canvas before upscaling.
	SceneSize = 128

	horizonTop   = 64
	groundTop    = 88
	featureBase  = 94
	sceneOutline = 1
)

// Background palette positions.
const (
	bandSky = iota
	bandHorizon
	bandGround
	bandFeature
	bandAccent
	bandOutline
)

type sceneOptions struct {
	seed   int64
	seeded bool
}

// SceneOption tweaks ComposeBackground.
type SceneOption func(*sceneOptions)

// WithSeed jitters feature positions with a seeded generator. The same seed
// always yields the same layout.
func WithSeed(seed int64) SceneOption {
	return func(o *sceneOptions) {
		o.seed = seed
		o.seeded = true
	}
}

// ComposeBackground fills the sky, horizon and ground bands of a SceneSize
// canvas and stands e.FeatureDensity props on the horizon line. Without a seed
// the props are evenly spaced.
func ComposeBackground(e EnvironmentArchetype, opts ...SceneOption) *PixelBuffer {
	var o sceneOptions
	for _, opt := range opts {
		opt(&o)
	}

	b := newBuffer(SceneSize, append(e.Palette(), e.Outline))
	b.fillRows(0, horizonTop, bandSky)
	b.fillRows(horizonTop, groundTop, bandHorizon)
	b.fillRows(groundTop, SceneSize, bandGround)

	for _, x := range featurePositions(e.FeatureDensity, o) {
		drawFeature(b, e.Shape, x)
	}
	return b
}

func featurePositions(n int, o sceneOptions) []int {
	if n <= 0 {
		return nil
	}
	step := SceneSize / (n + 1)
	xs := make([]int, n)
	for i := range xs {
		xs[i] = (i + 1) * step
	}
	if !o.seeded || step < 4 {
		return xs
	}
	rng := rand.New(rand.NewPCG(uint64(o.seed), uint64(o.seed)^0x9e3779b97f4a7c15))
	span := step / 2
	for i := range xs {
		xs[i] += rng.IntN(span+1) - span/2
		xs[i] = min(max(xs[i], 8), SceneSize-8)
	}
	return xs
}

func drawFeature(b *PixelBuffer, s FeatureShape, x int) {
	layer := func(sh shape, fill uint8) { b.draw(sh, fill, bandOutline, sceneOutline) }
	base := featureBase

	switch s {
	case FeatureTree:
		layer(box(x-3, base-34, x+3, base), bandAccent)
		layer(oval(x-13, base-58, x+13, base-26), bandFeature)
	case FeatureRock:
		layer(oval(x-10, base-14, x+10, base+2), bandFeature)
	case FeatureTorch:
		layer(box(x-2, base-30, x+2, base), bandAccent)
		layer(oval(x-5, base-42, x+5, base-28), bandFeature)
	case FeatureCactus:
		layer(box(x+3, base-26, x+11, base-20), bandFeature)
		layer(box(x+7, base-34, x+11, base-22), bandFeature)
		layer(box(x-4, base-36, x+4, base), bandFeature)
	case FeatureCrystal:
		layer(poly(image.Pt(x, base-36), image.Pt(x+8, base), image.Pt(x-8, base)), bandFeature)
		layer(poly(image.Pt(x, base-24), image.Pt(x+4, base-6), image.Pt(x-4, base-6)), bandAccent)
	case FeaturePeak:
		layer(poly(image.Pt(x, base-62), image.Pt(x+30, base), image.Pt(x-30, base)), bandFeature)
		layer(poly(image.Pt(x, base-62), image.Pt(x+8, base-46), image.Pt(x-8, base-46)), bandAccent)
	}
}
