package orchestrator

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidEdge is returned for an edge the current scene does not offer.
	ErrInvalidEdge = errors.New("orchestrator: invalid edge")
	// ErrTerminalScene is returned when advancing from a conclusion.
	ErrTerminalScene = errors.New("orchestrator: scene is terminal")
)

// Transition returns where edge leads from s. It does not consult any graph.
func Transition(s Scene, edge Edge) (SceneID, error) {
	edges := s.Edges()
	if len(edges) == 0 {
		return "", ErrTerminalScene
	}
	next, ok := edges[edge]
	if !ok {
		return "", fmt.Errorf("%w: %s scene has no %q edge", ErrInvalidEdge, s.Kind(), edge)
	}
	return next, nil
}

// Next applies Transition to the scene at from and checks the target exists.
func (g *Graph) Next(from SceneID, edge Edge) (SceneID, error) {
	s, ok := g.Scenes[from]
	if !ok {
		return "", fmt.Errorf("orchestrator: unknown scene %q", from)
	}
	next, err := Transition(s, edge)
	if err != nil {
		return "", err
	}
	if _, ok := g.Scenes[next]; !ok {
		return "", &DanglingTransitionError{Scene: from, Edge: edge, Target: next}
	}
	return next, nil
}

// IsTerminal reports whether a scene offers no edges.
func IsTerminal(s Scene) bool {
	return len(s.Edges()) == 0
}
