package pixelart

import (
	"strings"
	"unicode"
)

// Classify picks a character and an environment archetype for free text.
// Matching is a case-insensitive substring search over the ordered keyword
// tables; the first rule with any matching keyword wins. Classification is
// total: unmatched text gets the catalog defaults.
//
// The text is lowered, punctuation becomes spaces, and it is padded with a
// space on each side, so a keyword with a leading or trailing space only
// matches at a word boundary (" ice" hits "iceberg" but not "nice").
func (c *Catalog) Classify(text string) (CharacterID, EnvironmentID) {
	lower := normalize(text)
	return c.matchCharacter(c.characterRules, lower, c.defaultCharacter), c.matchEnvironment(lower)
}

// ClassifyNPC picks the npc archetype using the npc keyword table. When no
// npc keyword matches, or the match equals the avatar, the avatar archetype
// is reused and variant is true so the caller renders it with a swapped palette.
func (c *Catalog) ClassifyNPC(text string, avatar CharacterID) (id CharacterID, variant bool) {
	if _, ok := c.characters[avatar]; !ok {
		avatar = c.defaultCharacter
	}
	id = c.matchCharacter(c.npcRules, normalize(text), avatar)
	return id, id == avatar
}

func (c *Catalog) matchCharacter(rules []characterRule, lower string, fallback CharacterID) CharacterID {
	for _, rule := range rules {
		if _, ok := c.characters[rule.id]; !ok {
			continue
		}
		if containsAny(lower, rule.keywords) {
			return rule.id
		}
	}
	return fallback
}

func (c *Catalog) matchEnvironment(lower string) EnvironmentID {
	for _, rule := range c.environmentRules {
		if _, ok := c.environments[rule.id]; !ok {
			continue
		}
		if containsAny(lower, rule.keywords) {
			return rule.id
		}
	}
	return c.defaultEnvironment
}

func normalize(text string) string {
	words := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)
	return " " + words + " "
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
