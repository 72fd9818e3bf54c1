package orchestrator

import (
	"time"

	"github.com/AaronLay10/lorecrafter/internal/imagegen"
)

// State is the lifecycle state of a session.
type State string

const (
	StateIdle      State = "idle"
	StateActive    State = "active"
	StateCompleted State = "completed"
)

// Step records one transition taken during a playthrough.
type Step struct {
	From SceneID   `json:"from"`
	Edge Edge      `json:"edge"`
	To   SceneID   `json:"to"`
	At   time.Time `json:"at"`
}

// Playthrough is one run of a graph. Its image set is fixed for its lifetime.
type Playthrough struct {
	ID        string                `json:"id"`
	Prompt    string                `json:"prompt"`
	Graph     *Graph                `json:"graph"`
	Images    imagegen.GameImageSet `json:"images"`
	Current   SceneID               `json:"current"`
	History   []Step                `json:"history"`
	StartedAt time.Time             `json:"started_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// State returns active or completed.
func (p *Playthrough) State() State {
	if s, ok := p.Graph.Scene(p.Current); ok && IsTerminal(s) {
		return StateCompleted
	}
	return StateActive
}

// clone returns a copy that shares the immutable graph.
func (p *Playthrough) clone() *Playthrough {
	cp := *p
	cp.History = append([]Step(nil), p.History...)
	return &cp
}
