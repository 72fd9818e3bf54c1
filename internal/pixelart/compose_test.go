package pixelart

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func distinctColors(b *PixelBuffer) int {
	seen := make(map[color.RGBA]struct{})
	img := b.Image()
	for _, idx := range img.Pix {
		r, g, bl, a := img.Palette[idx].RGBA()
		seen[color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(bl >> 8), uint8(a >> 8)}] = struct{}{}
	}
	return len(seen)
}

func TestComposeCharacterDeterministic(t *testing.T) {
	cat := DefaultCatalog()
	for _, id := range cat.CharacterIDs() {
		t.Run(string(id), func(t *testing.T) {
			a := ComposeCharacter(cat.MustCharacter(id))
			b := ComposeCharacter(cat.MustCharacter(id))
			assert.Equal(t, a.Pix(), b.Pix())
			assert.Equal(t, SpriteSize, a.Size())
		})
	}
}

func TestComposeCharacterPaletteBound(t *testing.T) {
	cat := DefaultCatalog()
	for _, id := range cat.CharacterIDs() {
		a := cat.MustCharacter(id)
		buf := ComposeCharacter(a)
		assert.LessOrEqual(t, len(buf.Palette()), MaxPaletteSize+1, id)
		assert.LessOrEqual(t, distinctColors(buf), MaxPaletteSize+1, id)
		for _, idx := range buf.Image().Pix {
			assert.Less(t, int(idx), len(buf.Palette()))
		}
	}
}

func TestComposeCharacterDrawsOutline(t *testing.T) {
	a := DefaultCatalog().MustCharacter(Knight)
	buf := ComposeCharacter(a)
	outline := uint8(len(a.Palette))

	// the head ellipse starts at x=20; its left edge must be outline for two pixels
	y := 20
	assert.Equal(t, uint8(slotBackdrop), buf.IndexAt(19, y))
	assert.Equal(t, outline, buf.IndexAt(20, y))
	assert.Equal(t, outline, buf.IndexAt(21, y))
	assert.Equal(t, uint8(slotSkin), buf.IndexAt(23, y))

	// corners stay transparent
	assert.Equal(t, uint8(slotBackdrop), buf.IndexAt(0, 0))
	assert.Equal(t, uint8(slotBackdrop), buf.IndexAt(SpriteSize-1, 0))
}

func TestComposeCharacterArchetypesDiffer(t *testing.T) {
	cat := DefaultCatalog()
	knight := ComposeCharacter(cat.MustCharacter(Knight))
	wizard := ComposeCharacter(cat.MustCharacter(Wizard))
	assert.NotEqual(t, knight.Pix(), wizard.Pix())
}

func TestVariantSwapsPalette(t *testing.T) {
	a := DefaultCatalog().MustCharacter(Rogue)
	v := a.Variant()

	assert.True(t, v.IsVariant())
	assert.False(t, a.IsVariant())
	assert.Equal(t, a.Palette[slotPrimary], v.Palette[slotSecondary])
	assert.Equal(t, a.Palette[slotSecondary], v.Palette[slotPrimary])

	base := ComposeCharacter(a)
	alt := ComposeCharacter(v)
	assert.Equal(t, base.Pix(), alt.Pix(), "variant keeps geometry")
	assert.NotEqual(t, base.Palette(), alt.Palette())
}

func TestComposeBackgroundDeterministic(t *testing.T) {
	cat := DefaultCatalog()
	for _, id := range cat.EnvironmentIDs() {
		t.Run(string(id), func(t *testing.T) {
			e := cat.MustEnvironment(id)
			a := ComposeBackground(e)
			b := ComposeBackground(e)
			assert.Equal(t, a.Pix(), b.Pix())
			assert.Equal(t, SceneSize, a.Size())
			assert.LessOrEqual(t, distinctColors(a), MaxPaletteSize+1)
		})
	}
}

func TestComposeBackgroundBands(t *testing.T) {
	e := DefaultCatalog().MustEnvironment(Forest)
	e.FeatureDensity = 0
	buf := ComposeBackground(e)

	assert.Equal(t, uint8(bandSky), buf.IndexAt(5, 0))
	assert.Equal(t, uint8(bandHorizon), buf.IndexAt(5, horizonTop))
	assert.Equal(t, uint8(bandGround), buf.IndexAt(5, SceneSize-1))
}

func TestComposeBackgroundSeed(t *testing.T) {
	e := DefaultCatalog().MustEnvironment(Forest)

	a := ComposeBackground(e, WithSeed(42))
	b := ComposeBackground(e, WithSeed(42))
	assert.Equal(t, a.Pix(), b.Pix(), "same seed, same layout")

	plain := ComposeBackground(e)
	differs := false
	for seed := int64(1); seed < 8 && !differs; seed++ {
		if string(ComposeBackground(e, WithSeed(seed)).Pix()) != string(plain.Pix()) {
			differs = true
		}
	}
	assert.True(t, differs, "some seed should move features")
}

func TestUpscaleNearestNeighborBlocks(t *testing.T) {
	src := ComposeCharacter(DefaultCatalog().MustCharacter(Wizard))
	const k = 8
	dst, err := Upscale(src, SpriteSize*k)
	require.NoError(t, err)
	require.Equal(t, SpriteSize*k, dst.Size())
	assert.Equal(t, src.Palette(), dst.Palette())

	for sy := 0; sy < SpriteSize; sy++ {
		for sx := 0; sx < SpriteSize; sx++ {
			want := src.IndexAt(sx, sy)
			for dy := 0; dy < k; dy++ {
				for dx := 0; dx < k; dx++ {
					if got := dst.IndexAt(sx*k+dx, sy*k+dy); got != want {
						t.Fatalf("block (%d,%d) pixel (%d,%d): got %d want %d", sx, sy, dx, dy, got, want)
					}
				}
			}
		}
	}
	assert.Equal(t, distinctColors(src), distinctColors(dst))
}

func TestUpscaleRejectsBadSize(t *testing.T) {
	src := ComposeBackground(DefaultCatalog().MustEnvironment(Ice))
	_, err := Upscale(src, 0)
	assert.ErrorIs(t, err, ErrInvalidSize)
}
