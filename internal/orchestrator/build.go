package orchestrator

import (
	"errors"
	"fmt"

	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/story"
)

// ErrIncompleteGame is returned when a graph is built from a story or image
// set with missing parts. A playthrough never starts without all assets.
var ErrIncompleteGame = errors.New("orchestrator: incomplete game")

// BuildGraph converts the narrative fields and the image set into the fixed
// six-scene graph starting at avatar_creation.
func BuildGraph(g *story.GameData, images imagegen.GameImageSet) (*Graph, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: no story", ErrIncompleteGame)
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIncompleteGame, err)
	}
	if !images.Complete() {
		return nil, fmt.Errorf("%w: image set %+v", ErrIncompleteGame, images)
	}

	graph := &Graph{
		Initial: SceneAvatarCreation,
		Scenes: map[SceneID]Scene{
			SceneAvatarCreation: AvatarScene{
				Role:      g.ProtagonistRole,
				Setting:   g.Setting,
				Objective: g.Objective,
				Images:    images,
				Next:      SceneQuestStart,
			},
			SceneQuestStart: DialogueScene{
				Speaker:    g.NPC.Name,
				Trait:      g.NPC.Trait,
				Hook:       g.Hook,
				QuestOffer: g.QuestOffer,
				ChoiceA:    Choice{Label: g.ChoiceA, Next: SceneChallengeA},
				ChoiceB:    Choice{Label: g.ChoiceB, Next: SceneChallengeB},
				Images:     images,
			},
			SceneChallengeA: obstacle(g, g.ChoiceA, images),
			SceneChallengeB: obstacle(g, g.ChoiceB, images),
			SceneGoodEnding: ConclusionScene{
				Good:     true,
				Climax:   g.Climax,
				Text:     g.EndingGood,
				Epilogue: g.Epilogue,
				Images:   images,
			},
			SceneBadEnding: ConclusionScene{
				Good:     false,
				Climax:   g.Climax,
				Text:     g.EndingBad,
				Epilogue: g.Epilogue,
				Images:   images,
			},
		},
	}
	if err := graph.Validate(); err != nil {
		return nil, err
	}
	return graph, nil
}

func obstacle(g *story.GameData, choice string, images imagegen.GameImageSet) ObstacleRunScene {
	return ObstacleRunScene{
		Choice:  choice,
		Intro:   g.ChallengeIntro,
		Twist:   g.Twist,
		Success: SceneGoodEnding,
		Failure: SceneBadEnding,
		Images:  images,
	}
}
