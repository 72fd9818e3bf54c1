// Package story produces the fixed-shape narrative of a game from a prompt.
package story

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrStoryInvalid is returned when no attempt produced a usable story.
	ErrStoryInvalid = errors.New("story: invalid story")
	// ErrSeedRejected is returned when the model refused the prompt.
	ErrSeedRejected = errors.New("story: seed rejected")
)

type NPC struct {
	Name  string `json:"name"`
	Trait string `json:"trait"`
}

// Images are the root-relative paths attached after image generation.
type Images struct {
	Avatar     string `json:"avatar"`
	Background string `json:"background"`
	NPC        string `json:"npc"`
}

type GameData struct {
	Setting         string  `json:"setting"`
	ProtagonistRole string  `json:"protagonist_role"`
	Objective       string  `json:"objective"`
	Twist           string  `json:"twist"`
	NPC             NPC     `json:"npc"`
	Hook            string  `json:"hook"`
	QuestOffer      string  `json:"quest_offer"`
	ChoiceA         string  `json:"choice_a"`
	ChoiceB         string  `json:"choice_b"`
	ChallengeIntro  string  `json:"challenge_intro"`
	Climax          string  `json:"climax"`
	EndingGood      string  `json:"ending_good"`
	EndingBad       string  `json:"ending_bad"`
	Epilogue        string  `json:"epilogue"`
	Images          *Images `json:"images,omitempty"`
}

// WithImages returns a copy of g carrying imgs.
func (g GameData) WithImages(imgs Images) *GameData {
	g.Images = &imgs
	return &g
}

var requiredKeys = []string{
	"setting", "protagonist_role", "objective", "twist", "npc",
	"hook", "quest_offer", "choice_a", "choice_b", "challenge_intro",
	"climax", "ending_good", "ending_bad", "epilogue",
}

// word limits per field; exceeding one is a warning
var wordLimits = []struct {
	key   string
	limit int
}{
	{"hook", 25},
	{"quest_offer", 35},
	{"choice_a", 12},
	{"choice_b", 12},
	{"challenge_intro", 20},
	{"climax", 35},
	{"ending_good", 40},
	{"ending_bad", 40},
	{"epilogue", 18},
}

// MaxTotalWords is the soft limit on the narrative beats combined.
const MaxTotalWords = 200

var dialogueKeys = []string{"quest_offer", "choice_a", "choice_b", "climax"}

// ValidationError lists every hard problem found in one model response.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "story: " + strings.Join(e.Problems, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrStoryInvalid }

// Parse decodes a model response. Structural problems (refusal, missing keys,
// empty fields, malformed npc) are errors; soft limits come back as warnings.
func Parse(raw []byte) (*GameData, []string, error) {
	raw = bytes.TrimSpace(raw)
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, nil, fmt.Errorf("%w: not a json object: %v", ErrStoryInvalid, err)
	}
	if refusal, ok := fields["error"]; ok {
		var reason string
		_ = json.Unmarshal(refusal, &reason)
		return nil, nil, fmt.Errorf("%w: %s", ErrSeedRejected, reason)
	}

	var problems []string
	for _, k := range requiredKeys {
		if _, ok := fields[k]; !ok {
			problems = append(problems, "missing "+k)
		}
	}
	if len(problems) > 0 {
		return nil, nil, &ValidationError{Problems: problems}
	}

	var g GameData
	if err := json.Unmarshal(raw, &g); err != nil {
		return nil, nil, &ValidationError{Problems: []string{"wrong field types: " + err.Error()}}
	}
	g.Images = nil

	if err := g.Validate(); err != nil {
		return nil, nil, err
	}
	return &g, g.Warnings(), nil
}

// Validate checks the structural contract: every field present and non-empty.
func (g *GameData) Validate() error {
	var problems []string
	for key, v := range g.textFields() {
		if strings.TrimSpace(v) == "" {
			problems = append(problems, "empty "+key)
		}
	}
	if strings.TrimSpace(g.NPC.Name) == "" || strings.TrimSpace(g.NPC.Trait) == "" {
		problems = append(problems, "invalid npc structure")
	}
	if len(problems) > 0 {
		slices.Sort(problems)
		return &ValidationError{Problems: problems}
	}
	return nil
}

// Warnings reports soft-limit violations: per-field and total word counts and
// dialogue fields without quotation marks.
func (g *GameData) Warnings() []string {
	fields := g.textFields()
	var warnings []string
	total := 0
	for _, wl := range wordLimits {
		n := len(strings.Fields(fields[wl.key]))
		total += n
		if n > wl.limit {
			warnings = append(warnings, fmt.Sprintf("%s exceeds %d words", wl.key, wl.limit))
		}
	}
	if total > MaxTotalWords {
		warnings = append(warnings, fmt.Sprintf("total word count exceeds %d", MaxTotalWords))
	}
	for _, k := range dialogueKeys {
		if !strings.ContainsAny(fields[k], `"'“”`) {
			warnings = append(warnings, k+" missing quotation marks for dialogue")
		}
	}
	return warnings
}

func (g *GameData) textFields() map[string]string {
	return map[string]string{
		"setting":          g.Setting,
		"protagonist_role": g.ProtagonistRole,
		"objective":        g.Objective,
		"twist":            g.Twist,
		"hook":             g.Hook,
		"quest_offer":      g.QuestOffer,
		"choice_a":         g.ChoiceA,
		"choice_b":         g.ChoiceB,
		"challenge_intro":  g.ChallengeIntro,
		"climax":           g.Climax,
		"ending_good":      g.EndingGood,
		"ending_bad":       g.EndingBad,
		"epilogue":         g.Epilogue,
	}
}
