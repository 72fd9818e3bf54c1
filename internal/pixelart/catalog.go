// Package pixelart renders procedural pixel-art sprites and backgrounds.
//
// Everything here is deterministic: the same archetype always produces the same
// indexed pixels. Only callers that pass an explicit seed get jittered layouts.
package pixelart

import (
	"fmt"
	"image/color"
	"sort"
)

// CharacterID names a character archetype in the catalog.
type CharacterID string

// EnvironmentID names an environment archetype in the catalog.
type EnvironmentID string

const (
	Knight   CharacterID = "knight"
	Wizard   CharacterID = "wizard"
	Archer   CharacterID = "archer"
	Warrior  CharacterID = "warrior"
	Rogue    CharacterID = "rogue"
	Merchant CharacterID = "merchant"
)

const (
	Forest  EnvironmentID = "forest"
	Dungeon EnvironmentID = "dungeon"
	Desert  EnvironmentID = "desert"
	Ice     EnvironmentID = "ice"
	Fantasy EnvironmentID = "fantasy"
)

// MaxPaletteSize is the largest palette an archetype may declare, not counting
// its outline color.
const MaxPaletteSize = 8

// BodyStyle selects the torso silhouette of a sprite.
type BodyStyle string

const (
	BodyArmor BodyStyle = "armor"
	BodyRobe  BodyStyle = "robe"
	BodyTunic BodyStyle = "tunic"
)

// AccessoryShape is the last layer drawn on a sprite.
type AccessoryShape string

const (
	AccessoryHelmet   AccessoryShape = "helmet"
	AccessoryHat      AccessoryShape = "hat"
	AccessoryHood     AccessoryShape = "hood"
	AccessoryHeadband AccessoryShape = "headband"
	AccessoryMask     AccessoryShape = "mask"
	AccessoryCap      AccessoryShape = "cap"
)

// FeatureShape is the prop scattered across a background's feature band.
type FeatureShape string

const (
	FeatureTree    FeatureShape = "tree"
	FeatureRock    FeatureShape = "rock"
	FeatureTorch   FeatureShape = "torch"
	FeatureCactus  FeatureShape = "cactus"
	FeatureCrystal FeatureShape = "crystal"
	FeaturePeak    FeatureShape = "peak"
)

// Character palette positions.
const (
	slotBackdrop = iota
	slotSkin
	slotPrimary
	slotSecondary
	slotAccent
	slotDetail
	characterSlots
)

// CharacterArchetype is an immutable bundle of palette and layout parameters
// for one category of character.
type CharacterArchetype struct {
	ID        CharacterID
	Palette   color.Palette
	Outline   color.RGBA
	Body      BodyStyle
	Accessory AccessoryShape
	variant   bool
}

// Variant returns the same archetype with primary and secondary colors
// swapped. NPCs that share the avatar's archetype use it to stay distinct.
func (a CharacterArchetype) Variant() CharacterArchetype {
	v := a.clone()
	v.Palette[slotPrimary], v.Palette[slotSecondary] = v.Palette[slotSecondary], v.Palette[slotPrimary]
	v.variant = !a.variant
	return v
}

// IsVariant reports whether the palette has been swapped by Variant.
func (a CharacterArchetype) IsVariant() bool { return a.variant }

func (a CharacterArchetype) clone() CharacterArchetype {
	a.Palette = append(color.Palette(nil), a.Palette...)
	return a
}

// EnvironmentArchetype is an immutable bundle of colors and props for one
// kind of background.
type EnvironmentArchetype struct {
	ID             EnvironmentID
	Sky            color.RGBA
	Horizon        color.RGBA
	Ground         color.RGBA
	Feature        color.RGBA
	Accent         color.RGBA
	Outline        color.RGBA
	Shape          FeatureShape
	FeatureDensity int
}

// Palette returns the background palette in band order.
func (e EnvironmentArchetype) Palette() color.Palette {
	return color.Palette{e.Sky, e.Horizon, e.Ground, e.Feature, e.Accent}
}

type characterRule struct {
	id       CharacterID
	keywords []string
}

type environmentRule struct {
	id       EnvironmentID
	keywords []string
}

// Catalog is the read-only set of archetypes and the keyword tables used to
// pick them. Build it once and share it; nothing mutates it after construction.
type Catalog struct {
	characters         map[CharacterID]CharacterArchetype
	environments       map[EnvironmentID]EnvironmentArchetype
	characterRules     []characterRule
	npcRules           []characterRule
	environmentRules   []environmentRule
	defaultCharacter   CharacterID
	defaultEnvironment EnvironmentID
}

func hex(v uint32) color.RGBA {
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}
}

var transparent = color.RGBA{}

func characterPalette(skin, primary, secondary, accent, detail uint32) color.Palette {
	return color.Palette{transparent, hex(skin), hex(primary), hex(secondary), hex(accent), hex(detail)}
}

// DefaultCatalog returns the built-in catalog.
func DefaultCatalog() *Catalog {
	chars := []CharacterArchetype{
		{ID: Knight, Palette: characterPalette(0xFFDBAC, 0xC0C0C0, 0xFFD700, 0x8B0000, 0x2F2F2F), Outline: hex(0x000000), Body: BodyArmor, Accessory: AccessoryHelmet},
		{ID: Wizard, Palette: characterPalette(0xFFDBAC, 0x4B0082, 0x9370DB, 0xFFD700, 0x191970), Outline: hex(0x000000), Body: BodyRobe, Accessory: AccessoryHat},
		{ID: Archer, Palette: characterPalette(0xE8B98A, 0x228B22, 0x8B4513, 0xFFD700, 0x654321), Outline: hex(0x000000), Body: BodyTunic, Accessory: AccessoryHood},
		{ID: Warrior, Palette: characterPalette(0xD2A679, 0x8B4513, 0xCD853F, 0xB22222, 0x4A3728), Outline: hex(0x000000), Body: BodyTunic, Accessory: AccessoryHeadband},
		{ID: Rogue, Palette: characterPalette(0xF1C27D, 0x2F2F2F, 0x696969, 0x8B0000, 0x1A1A1A), Outline: hex(0x000000), Body: BodyTunic, Accessory: AccessoryMask},
		{ID: Merchant, Palette: characterPalette(0xFFDBAC, 0xDAA520, 0x8B4513, 0x2E8B57, 0x5C4033), Outline: hex(0x000000), Body: BodyRobe, Accessory: AccessoryCap},
	}
	envs := []EnvironmentArchetype{
		{ID: Forest, Sky: hex(0x87CEEB), Horizon: hex(0x2F4F2F), Ground: hex(0x32CD32), Feature: hex(0x228B22), Accent: hex(0x8B4513), Outline: hex(0x000000), Shape: FeatureTree, FeatureDensity: 4},
		{ID: Dungeon, Sky: hex(0x2F2F2F), Horizon: hex(0x696969), Ground: hex(0x4B0082), Feature: hex(0xFF4500), Accent: hex(0x8B4513), Outline: hex(0x000000), Shape: FeatureTorch, FeatureDensity: 3},
		{ID: Desert, Sky: hex(0xFFE4B5), Horizon: hex(0xDEB887), Ground: hex(0xF4A460), Feature: hex(0x6B8E23), Accent: hex(0xA0522D), Outline: hex(0x654321), Shape: FeatureCactus, FeatureDensity: 3},
		{ID: Ice, Sky: hex(0xE0FFFF), Horizon: hex(0xB0E0E6), Ground: hex(0xF0F8FF), Feature: hex(0x4682B4), Accent: hex(0x87CEEB), Outline: hex(0x191970), Shape: FeatureCrystal, FeatureDensity: 5},
		{ID: Fantasy, Sky: hex(0x87CEEB), Horizon: hex(0x8B7355), Ground: hex(0x90EE90), Feature: hex(0x9370DB), Accent: hex(0xFFFFFF), Outline: hex(0x000000), Shape: FeaturePeak, FeatureDensity: 2},
	}
	c, err := NewCatalog(chars, envs, Warrior, Fantasy)
	if err != nil {
		panic(fmt.Sprintf("pixelart: built-in catalog is invalid: %v", err))
	}
	c.characterRules = []characterRule{
		{Knight, []string{"knight", "paladin", "squire"}},
		{Wizard, []string{"wizard", " mage", "sorcer", " witch", "warlock"}},
		{Archer, []string{"archer", "ranger", "hunter", "bowman"}},
		{Warrior, []string{"warrior", "fighter", "barbarian", "gladiator"}},
		{Rogue, []string{"rogue", "thief", "assassin", "bandit"}},
		{Merchant, []string{"merchant", "trader", "peddler"}},
	}
	c.npcRules = []characterRule{
		{Merchant, []string{"merchant", "trader", " shop"}},
		{Knight, []string{"guard", "soldier", "knight"}},
		{Wizard, []string{" mage", "wizard", "magic", " sage ", "hermit"}},
		{Rogue, []string{"thief", "rogue", "assassin"}},
	}
	c.environmentRules = []environmentRule{
		{Forest, []string{"forest", " tree", "nature", "green", "woods", "jungle"}},
		{Dungeon, []string{"dungeon", " cave", " dark", "underground", "crypt", " tomb"}},
		{Desert, []string{"desert", " sand", " hot ", " dry ", " dune"}},
		{Ice, []string{" ice", " icy ", "snow", " cold ", "frozen", "glacier"}},
	}
	return c
}

// NewCatalog validates and indexes the given archetypes. The keyword tables
// start empty, so every classification falls back to the defaults.
func NewCatalog(chars []CharacterArchetype, envs []EnvironmentArchetype, defChar CharacterID, defEnv EnvironmentID) (*Catalog, error) {
	c := &Catalog{
		characters:         make(map[CharacterID]CharacterArchetype, len(chars)),
		environments:       make(map[EnvironmentID]EnvironmentArchetype, len(envs)),
		defaultCharacter:   defChar,
		defaultEnvironment: defEnv,
	}
	for _, a := range chars {
		if a.ID == "" {
			return nil, fmt.Errorf("character archetype with empty id")
		}
		if n := len(a.Palette); n < characterSlots || n > MaxPaletteSize {
			return nil, fmt.Errorf("character %s: palette has %d colors, want %d..%d", a.ID, n, characterSlots, MaxPaletteSize)
		}
		if _, dup := c.characters[a.ID]; dup {
			return nil, fmt.Errorf("duplicate character archetype %s", a.ID)
		}
		c.characters[a.ID] = a.clone()
	}
	for _, e := range envs {
		if e.ID == "" {
			return nil, fmt.Errorf("environment archetype with empty id")
		}
		if e.FeatureDensity < 0 {
			return nil, fmt.Errorf("environment %s: negative feature density", e.ID)
		}
		if _, dup := c.environments[e.ID]; dup {
			return nil, fmt.Errorf("duplicate environment archetype %s", e.ID)
		}
		c.environments[e.ID] = e
	}
	if _, ok := c.characters[defChar]; !ok {
		return nil, fmt.Errorf("default character %q not in catalog", defChar)
	}
	if _, ok := c.environments[defEnv]; !ok {
		return nil, fmt.Errorf("default environment %q not in catalog", defEnv)
	}
	return c, nil
}

// Character looks up a character archetype. The returned value owns its palette.
func (c *Catalog) Character(id CharacterID) (CharacterArchetype, bool) {
	a, ok := c.characters[id]
	if !ok {
		return CharacterArchetype{}, false
	}
	return a.clone(), true
}

// MustCharacter is Character for ids that came out of the classifier.
// An unknown id is a programming error.
func (c *Catalog) MustCharacter(id CharacterID) CharacterArchetype {
	a, ok := c.Character(id)
	if !ok {
		panic(fmt.Sprintf("pixelart: unknown character archetype %q", id))
	}
	return a
}

// Environment looks up an environment archetype.
func (c *Catalog) Environment(id EnvironmentID) (EnvironmentArchetype, bool) {
	e, ok := c.environments[id]
	return e, ok
}

// MustEnvironment panics on an unknown id.
func (c *Catalog) MustEnvironment(id EnvironmentID) EnvironmentArchetype {
	e, ok := c.Environment(id)
	if !ok {
		panic(fmt.Sprintf("pixelart: unknown environment archetype %q", id))
	}
	return e
}

// CharacterIDs returns every character id in sorted order.
func (c *Catalog) CharacterIDs() []CharacterID {
	ids := make([]CharacterID, 0, len(c.characters))
	for id := range c.characters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// EnvironmentIDs returns every environment id in sorted order.
func (c *Catalog) EnvironmentIDs() []EnvironmentID {
	ids := make([]EnvironmentID, 0, len(c.environments))
	for id := range c.environments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (c *Catalog) DefaultCharacter() CharacterID     { return c.defaultCharacter }
func (c *Catalog) DefaultEnvironment() EnvironmentID { return c.defaultEnvironment }
