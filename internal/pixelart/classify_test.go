package pixelart

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyKeywords(t *testing.T) {
	cat := DefaultCatalog()

	cases := []struct {
		text string
		char CharacterID
		env  EnvironmentID
	}{
		{"A brave knight explores a haunted forest", Knight, Forest},
		{"THE WIZARD of the Frozen Peaks", Wizard, Ice},
		{"a ranger crossing the desert sands", Archer, Desert},
		{"rogue heist in an underground crypt", Rogue, Dungeon},
		{"a travelling merchant", Merchant, Fantasy},
		{"", Warrior, Fantasy},
		{"something with no keywords at all", Warrior, Fantasy},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			char, env := cat.Classify(tc.text)
			assert.Equal(t, tc.char, char)
			assert.Equal(t, tc.env, env)
		})
	}
}

func TestClassifyFirstRuleWins(t *testing.T) {
	cat := DefaultCatalog()

	// knight precedes wizard in the table regardless of position in the text
	char, _ := cat.Classify("a wizard and a knight")
	assert.Equal(t, Knight, char)

	// forest precedes ice
	_, env := cat.Classify("a frozen forest")
	assert.Equal(t, Forest, env)
}

func TestClassifyShortKeywordsNeedWordBoundary(t *testing.T) {
	cat := DefaultCatalog()

	misses := []string{
		"a nice day at the bazaar",
		"one shot left",
		"the laundry district",
		"a chase down the street",
		"an old message in a passage",
		"a switch in the image",
	}
	for _, text := range misses {
		t.Run(text, func(t *testing.T) {
			char, env := cat.Classify(text)
			assert.Equal(t, cat.DefaultCharacter(), char)
			assert.Equal(t, Fantasy, env)
		})
	}

	hits := map[string]EnvironmentID{
		"Ice-bound ruins":          Ice,
		"an iceberg adrift":        Ice,
		"a hot, dry wasteland":     Desert,
		"under the old trees":      Forest,
		"(cave) of whispers":       Dungeon,
		"the sage of dark marshes": Dungeon,
	}
	for text, want := range hits {
		_, env := cat.Classify(text)
		assert.Equal(t, want, env, text)
	}

	id, _ := cat.ClassifyNPC("a bishop of the old faith", Archer)
	assert.Equal(t, Archer, id, "bishop is not a shop")
}

func TestClassifyAlwaysReturnsCatalogIDs(t *testing.T) {
	cat := DefaultCatalog()
	inputs := []string{
		"", " ", "ünïcödé ☃", "knightwizard", "\x00\x01", "dungeon desert ice forest",
		"a very long prompt " + string(make([]byte, 4096)),
	}
	for _, in := range inputs {
		char, env := cat.Classify(in)
		_, ok := cat.Character(char)
		assert.True(t, ok, "unknown character %q for %q", char, in)
		_, ok = cat.Environment(env)
		assert.True(t, ok, "unknown environment %q for %q", env, in)
	}
}

func TestClassifyNPC(t *testing.T) {
	cat := DefaultCatalog()

	id, variant := cat.ClassifyNPC("Bram the shopkeeper", Knight)
	assert.Equal(t, Merchant, id)
	assert.False(t, variant)

	id, variant = cat.ClassifyNPC("a city guard", Wizard)
	assert.Equal(t, Knight, id)
	assert.False(t, variant)

	id, variant = cat.ClassifyNPC("Elda, curious", Archer)
	assert.Equal(t, Archer, id)
	assert.True(t, variant)

	id, variant = cat.ClassifyNPC("old soldier", Knight)
	assert.Equal(t, Knight, id)
	assert.True(t, variant, "same archetype as avatar must be a variant")

	id, _ = cat.ClassifyNPC("nobody", CharacterID("missing"))
	assert.Equal(t, cat.DefaultCharacter(), id)
}

func TestNewCatalogValidation(t *testing.T) {
	good := DefaultCatalog().MustCharacter(Knight)
	env := DefaultCatalog().MustEnvironment(Forest)

	_, err := NewCatalog([]CharacterArchetype{good}, []EnvironmentArchetype{env}, Knight, Forest)
	require.NoError(t, err)

	short := good
	short.Palette = short.Palette[:3]
	_, err = NewCatalog([]CharacterArchetype{short}, []EnvironmentArchetype{env}, Knight, Forest)
	assert.Error(t, err)

	_, err = NewCatalog([]CharacterArchetype{good, good}, []EnvironmentArchetype{env}, Knight, Forest)
	assert.Error(t, err)

	_, err = NewCatalog([]CharacterArchetype{good}, []EnvironmentArchetype{env}, Wizard, Forest)
	assert.Error(t, err)

	_, err = NewCatalog([]CharacterArchetype{good}, []EnvironmentArchetype{env}, Knight, Ice)
	assert.Error(t, err)
}

func TestCatalogReturnsCopies(t *testing.T) {
	cat := DefaultCatalog()
	a := cat.MustCharacter(Knight)
	a.Palette[slotPrimary] = hex(0x123456)

	b := cat.MustCharacter(Knight)
	assert.NotEqual(t, hex(0x123456), b.Palette[slotPrimary])
}

func TestMustCharacterPanicsOnUnknown(t *testing.T) {
	cat := DefaultCatalog()
	assert.Panics(t, func() { cat.MustCharacter("dragon") })
	assert.Panics(t, func() { cat.MustEnvironment("moon") })
}
