package orchestrator

import (
	"encoding/json"
	"fmt"
	"os"
)

// GraphVersion is the only supported document version.
const GraphVersion = 1

type graphDoc struct {
	Version int                     `json:"version"`
	Initial SceneID                 `json:"initial"`
	Scenes  map[SceneID]sceneRecord `json:"scenes"`
}

type sceneRecord struct {
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	doc := graphDoc{
		Version: GraphVersion,
		Initial: g.Initial,
		Scenes:  make(map[SceneID]sceneRecord, len(g.Scenes)),
	}
	for id, s := range g.Scenes {
		data, err := json.Marshal(s)
		if err != nil {
			return nil, fmt.Errorf("marshal scene %s: %w", id, err)
		}
		doc.Scenes[id] = sceneRecord{Type: s.Kind(), Data: data}
	}
	return json.Marshal(doc)
}

// UnmarshalJSON decodes and validates a graph document.
func (g *Graph) UnmarshalJSON(b []byte) error {
	var doc graphDoc
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc.Version != GraphVersion {
		return fmt.Errorf("unsupported scene graph version: %d", doc.Version)
	}

	scenes := make(map[SceneID]Scene, len(doc.Scenes))
	for id, rec := range doc.Scenes {
		s, err := decodeScene(rec)
		if err != nil {
			return fmt.Errorf("scene %s: %w", id, err)
		}
		scenes[id] = s
	}

	parsed := Graph{Initial: doc.Initial, Scenes: scenes}
	if err := parsed.Validate(); err != nil {
		return err
	}
	*g = parsed
	return nil
}

func decodeScene(rec sceneRecord) (Scene, error) {
	switch rec.Type {
	case KindAvatar:
		var s AvatarScene
		err := json.Unmarshal(rec.Data, &s)
		return s, err
	case KindDialogue:
		var s DialogueScene
		err := json.Unmarshal(rec.Data, &s)
		return s, err
	case KindObstacleRun:
		var s ObstacleRunScene
		err := json.Unmarshal(rec.Data, &s)
		return s, err
	case KindConclusion:
		var s ConclusionScene
		err := json.Unmarshal(rec.Data, &s)
		return s, err
	default:
		return nil, fmt.Errorf("unknown scene type %q", rec.Type)
	}
}

// LoadGraph loads a scene graph from a JSON file.
func LoadGraph(path string) (*Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scene graph file: %w", err)
	}

	var g Graph
	if err := json.Unmarshal(data, &g); err != nil {
		return nil, fmt.Errorf("failed to parse scene graph JSON: %w", err)
	}
	return &g, nil
}
