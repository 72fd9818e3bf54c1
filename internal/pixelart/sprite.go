package pixelart

import (
	"image"
	"image/color"
)

const (
	// SpriteSize is the edge of the character canvas before upscaling.
	SpriteSize = 64
	// OutlineWidth is the ring drawn around every sprite shape.
	OutlineWidth = 2
)

// ComposeCharacter draws the sprite of archetype a on a SpriteSize canvas. The
// layers go legs, arms, body, head, face, accessory; later layers cover
// earlier ones. The palette is the archetype palette followed by the outline.
func ComposeCharacter(a CharacterArchetype) *PixelBuffer {
	palette := append(append(color.Palette(nil), a.Palette...), a.Outline)
	b := newBuffer(SpriteSize, palette)
	b.fill(slotBackdrop)
	ol := uint8(len(a.Palette))

	layer := func(s shape, fill uint8) { b.draw(s, fill, ol, OutlineWidth) }

	// legs
	layer(box(24, 50, 32, 64), slotDetail)
	layer(box(32, 50, 40, 64), slotDetail)

	// arms
	layer(box(14, 34, 24, 50), slotPrimary)
	layer(box(40, 34, 50, 50), slotPrimary)

	switch a.Body {
	case BodyArmor:
		layer(box(22, 30, 42, 52), slotPrimary)
		layer(box(27, 35, 37, 45), slotSecondary)
	case BodyRobe:
		layer(poly(image.Pt(20, 30), image.Pt(44, 30), image.Pt(50, 60), image.Pt(14, 60)), slotPrimary)
		layer(box(22, 40, 42, 45), slotSecondary)
	default:
		layer(box(22, 30, 42, 52), slotPrimary)
		layer(box(22, 42, 42, 47), slotSecondary)
	}

	// head
	layer(oval(20, 8, 44, 32), slotSkin)

	// eyes are solid outline marks
	b.draw(box(26, 17, 29, 20), ol, ol, 0)
	b.draw(box(35, 17, 38, 20), ol, ol, 0)

	switch a.Accessory {
	case AccessoryHelmet:
		layer(box(19, 5, 45, 16), slotPrimary)
		layer(poly(image.Pt(29, 0), image.Pt(35, 0), image.Pt(37, 9), image.Pt(27, 9)), slotAccent)
	case AccessoryHat:
		layer(box(14, 10, 50, 16), slotPrimary)
		layer(poly(image.Pt(20, 12), image.Pt(44, 12), image.Pt(32, 0)), slotPrimary)
		layer(box(24, 8, 40, 13), slotAccent)
	case AccessoryHood:
		layer(oval(18, 3, 46, 18), slotPrimary)
	case AccessoryHeadband:
		layer(box(19, 10, 45, 16), slotAccent)
	case AccessoryMask:
		layer(box(21, 20, 43, 27), slotSecondary)
	case AccessoryCap:
		layer(oval(19, 3, 45, 15), slotAccent)
		layer(box(16, 11, 48, 16), slotAccent)
	}
	return b
}
