package story

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"strings"
)

// OfflineLLM writes a template story without calling any service. The same
// user text always yields the same story.
type OfflineLLM struct{}

func (OfflineLLM) Name() string { return "offline" }

var offlineSettings = []struct {
	keywords []string
	setting  string
}{
	{[]string{"forest", "tree", "woods", "jungle"}, "Whispering Wildwood"},
	{[]string{"dungeon", "cave", "crypt", "tomb", "underground"}, "Sunken Crypts"},
	{[]string{"desert", "sand", "dune"}, "Amber Dunes"},
	{[]string{"ice", "snow", "frozen", "glacier"}, "Frostspire Peaks"},
}

var offlineRoles = []struct {
	keywords []string
	role     string
}{
	{[]string{"knight", "paladin"}, "Brave Knight"},
	{[]string{"wizard", "mage", "witch"}, "Young Wizard"},
	{[]string{"archer", "ranger", "hunter"}, "Keen Ranger"},
	{[]string{"rogue", "thief"}, "Sly Rogue"},
}

var offlineNPCs = []NPC{
	{Name: "Bram", Trait: "Wary"},
	{Name: "Elda", Trait: "Curious"},
	{Name: "Orrin", Trait: "Gruff"},
	{Name: "Sefa", Trait: "Kind"},
}

func (OfflineLLM) GenerateJSON(ctx context.Context, _ string, user string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	text := strings.ToLower(user)

	setting := "Emberfall Realm"
	for _, s := range offlineSettings {
		if containsAny(text, s.keywords) {
			setting = s.setting
			break
		}
	}
	role := "Wandering Hero"
	for _, r := range offlineRoles {
		if containsAny(text, r.keywords) {
			role = r.role
			break
		}
	}
	h := fnv.New32a()
	h.Write([]byte(text))
	npc := offlineNPCs[h.Sum32()%uint32(len(offlineNPCs))]

	g := GameData{
		Setting:         setting,
		ProtagonistRole: role,
		Objective:       "Recover the stolen family relic",
		Twist:           "Shadows guard the only path",
		NPC:             npc,
		Hook:            fmt.Sprintf("Mist curls through the %s as lanterns flicker and distant bells warn of danger.", setting),
		QuestOffer:      fmt.Sprintf(`%s: "My family relic was taken. Help me, %s, and I will guide you."`, npc.Name, role),
		ChoiceA:         `"I will fight the shadows head on."`,
		ChoiceB:         `"I will solve the old riddle gate."`,
		ChallengeIntro:  "The path narrows and the shadows close in, hiding a trap beneath your feet.",
		Climax:          fmt.Sprintf(`%s: "I swore to protect that relic when my father fell. You kept my promise alive."`, npc.Name),
		EndingGood:      "The relic glows again and the shadows retreat. The village cheers your name.",
		EndingBad:       "The shadows swallow the relic and the path. You limp home to plan another try.",
		Epilogue:        "A sealed letter arrives, hinting at a second relic far to the north.",
	}
	return json.Marshal(g)
}

func containsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
