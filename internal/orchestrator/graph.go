package orchestrator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/AaronLay10/lorecrafter/internal/imagegen"
)

// SceneID names a node of the scene graph.
type SceneID string

const (
	SceneAvatarCreation SceneID = "avatar_creation"
	SceneQuestStart     SceneID = "quest_start"
	SceneChallengeA     SceneID = "challenge_a"
	SceneChallengeB     SceneID = "challenge_b"
	SceneGoodEnding     SceneID = "good_ending"
	SceneBadEnding      SceneID = "bad_ending"
)

// Edge is a player action or mini-game outcome that leaves a scene.
type Edge string

const (
	EdgeContinue Edge = "continue"
	EdgeChoiceA  Edge = "choice_a"
	EdgeChoiceB  Edge = "choice_b"
	EdgeSuccess  Edge = "success"
	EdgeFailure  Edge = "failure"
)

// Kind is the variant tag of a Scene.
type Kind string

const (
	KindAvatar      Kind = "avatar"
	KindDialogue    Kind = "dialogue"
	KindObstacleRun Kind = "obstacle_run"
	KindConclusion  Kind = "conclusion"
)

// ErrDanglingTransition is returned when a scene points at a scene that is
// not in the graph.
var ErrDanglingTransition = errors.New("orchestrator: dangling transition")

// DanglingTransitionError names the offending scene, edge and target.
type DanglingTransitionError struct {
	Scene  SceneID
	Edge   Edge
	Target SceneID
}

func (e *DanglingTransitionError) Error() string {
	return fmt.Sprintf("orchestrator: scene %s edge %s targets missing scene %q", e.Scene, e.Edge, e.Target)
}

func (e *DanglingTransitionError) Is(target error) bool { return target == ErrDanglingTransition }

// Scene is one of AvatarScene, DialogueScene, ObstacleRunScene or
// ConclusionScene.
type Scene interface {
	Kind() Kind
	// Edges maps every edge the scene offers to its target.
	Edges() map[Edge]SceneID
	// ImageSet is the game's image set as captured by the scene.
	ImageSet() imagegen.GameImageSet
	sealed()
}

type AvatarScene struct {
	Role      string                `json:"role"`
	Setting   string                `json:"setting"`
	Objective string                `json:"objective"`
	Images    imagegen.GameImageSet `json:"images"`
	Next      SceneID               `json:"next_scene"`
}

type Choice struct {
	Label string  `json:"label"`
	Next  SceneID `json:"next_scene"`
}

type DialogueScene struct {
	Speaker    string                `json:"speaker"`
	Trait      string                `json:"trait"`
	Hook       string                `json:"hook"`
	QuestOffer string                `json:"quest_offer"`
	ChoiceA    Choice                `json:"choice_a"`
	ChoiceB    Choice                `json:"choice_b"`
	Images     imagegen.GameImageSet `json:"images"`
}

type ObstacleRunScene struct {
	Choice  string                `json:"choice"`
	Intro   string                `json:"intro"`
	Twist   string                `json:"twist"`
	Success SceneID               `json:"success_scene"`
	Failure SceneID               `json:"failure_scene"`
	Images  imagegen.GameImageSet `json:"images"`
}

type ConclusionScene struct {
	Good     bool                  `json:"good"`
	Climax   string                `json:"climax"`
	Text     string                `json:"text"`
	Epilogue string                `json:"epilogue"`
	Images   imagegen.GameImageSet `json:"images"`
}

func (AvatarScene) Kind() Kind      { return KindAvatar }
func (DialogueScene) Kind() Kind    { return KindDialogue }
func (ObstacleRunScene) Kind() Kind { return KindObstacleRun }
func (ConclusionScene) Kind() Kind  { return KindConclusion }

func (s AvatarScene) Edges() map[Edge]SceneID {
	return map[Edge]SceneID{EdgeContinue: s.Next}
}

func (s DialogueScene) Edges() map[Edge]SceneID {
	return map[Edge]SceneID{EdgeChoiceA: s.ChoiceA.Next, EdgeChoiceB: s.ChoiceB.Next}
}

func (s ObstacleRunScene) Edges() map[Edge]SceneID {
	return map[Edge]SceneID{EdgeSuccess: s.Success, EdgeFailure: s.Failure}
}

// Conclusions are terminal.
func (ConclusionScene) Edges() map[Edge]SceneID { return nil }

func (s AvatarScene) ImageSet() imagegen.GameImageSet      { return s.Images }
func (s DialogueScene) ImageSet() imagegen.GameImageSet    { return s.Images }
func (s ObstacleRunScene) ImageSet() imagegen.GameImageSet { return s.Images }
func (s ConclusionScene) ImageSet() imagegen.GameImageSet  { return s.Images }

func (AvatarScene) sealed()      {}
func (DialogueScene) sealed()    {}
func (ObstacleRunScene) sealed() {}
func (ConclusionScene) sealed()  {}

// Graph is the SceneDSL of one playthrough.
type Graph struct {
	Initial SceneID
	Scenes  map[SceneID]Scene
}

// Validate checks that the initial scene exists and that every transition
// resolves. Problems are reported in scene id order.
func (g *Graph) Validate() error {
	if g == nil || len(g.Scenes) == 0 {
		return errors.New("orchestrator: empty scene graph")
	}
	if _, ok := g.Scenes[g.Initial]; !ok {
		return &DanglingTransitionError{Scene: "", Edge: "initial", Target: g.Initial}
	}
	for _, id := range g.SceneIDs() {
		s := g.Scenes[id]
		if s == nil {
			return fmt.Errorf("orchestrator: scene %s is nil", id)
		}
		edges := s.Edges()
		for _, e := range sortedEdges(edges) {
			if _, ok := g.Scenes[edges[e]]; !ok {
				return &DanglingTransitionError{Scene: id, Edge: e, Target: edges[e]}
			}
		}
	}
	return nil
}

// SceneIDs returns the scene ids in sorted order.
func (g *Graph) SceneIDs() []SceneID {
	ids := make([]SceneID, 0, len(g.Scenes))
	for id := range g.Scenes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Scene looks up a scene by id.
func (g *Graph) Scene(id SceneID) (Scene, bool) {
	s, ok := g.Scenes[id]
	return s, ok
}

func sortedEdges(m map[Edge]SceneID) []Edge {
	out := make([]Edge, 0, len(m))
	for e := range m {
		out = append(out, e)
	}
	slices.Sort(out)
	return out
}
