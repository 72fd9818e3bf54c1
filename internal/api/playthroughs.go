package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/orchestrator"
)

const maxGameBytes = 64 << 10

type AdvanceRequest struct {
	Edge orchestrator.Edge `json:"edge"`
}

// decodeGame turns a generateGame response into a graph and its images.
func decodeGame(w http.ResponseWriter, r *http.Request) (string, *orchestrator.Graph, imagegen.GameImageSet, bool) {
	var body GenerateGameResponse
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxGameBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return "", nil, imagegen.GameImageSet{}, false
	}
	if body.GameData == nil || body.GameData.Images == nil {
		writeError(w, http.StatusBadRequest, "game_data with images is required")
		return "", nil, imagegen.GameImageSet{}, false
	}

	images := imagegen.GameImageSet(*body.GameData.Images)
	g, err := orchestrator.BuildGraph(body.GameData, images)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", nil, imagegen.GameImageSet{}, false
	}
	return strings.TrimSpace(body.Prompt), g, images, true
}

func (s *Server) createPlaythroughHandler(w http.ResponseWriter, r *http.Request) {
	prompt, g, images, ok := decodeGame(w, r)
	if !ok {
		return
	}
	session := s.sessions.Create()
	if _, err := session.Start(r.Context(), prompt, g, images); err != nil {
		s.sessions.Remove(session.ID())
		writeSessionError(w, err)
		return
	}
	view, err := session.Render(r.Context())
	if err != nil {
		// the client never learns the id, so nothing may stay behind
		if rerr := session.Restart(r.Context()); rerr != nil {
			log.Printf("roll back playthrough %s: %v", session.ID(), rerr)
		}
		s.sessions.Remove(session.ID())
		writeSessionError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) replacePlaythroughHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	prompt, g, images, ok := decodeGame(w, r)
	if !ok {
		return
	}
	if _, err := session.Replace(r.Context(), prompt, g, images); err != nil {
		writeSessionError(w, err)
		return
	}
	s.writeView(w, r, session, http.StatusOK)
}

func (s *Server) getPlaythroughHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	s.writeView(w, r, session, http.StatusOK)
}

func (s *Server) advancePlaythroughHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	var req AdvanceRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil || req.Edge == "" {
		writeError(w, http.StatusBadRequest, "edge is required")
		return
	}
	if _, err := session.Advance(r.Context(), req.Edge); err != nil {
		writeSessionError(w, err)
		return
	}
	s.writeView(w, r, session, http.StatusOK)
}

func (s *Server) restartPlaythroughHandler(w http.ResponseWriter, r *http.Request) {
	session, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	if err := session.Restart(r.Context()); err != nil {
		writeSessionError(w, err)
		return
	}
	s.writeView(w, r, session, http.StatusOK)
}

func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*orchestrator.Session, bool) {
	session, err := s.sessions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return nil, false
	}
	return session, true
}

func (s *Server) writeView(w http.ResponseWriter, r *http.Request, session *orchestrator.Session, status int) {
	view, err := session.Render(r.Context())
	if err != nil {
		writeSessionError(w, err)
		return
	}
	writeJSON(w, status, view)
}

// writeSessionError maps orchestrator errors to HTTP statuses.
func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		writeError(w, http.StatusNotFound, "playthrough not found")
	case errors.Is(err, orchestrator.ErrInvalidEdge):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrTerminalScene),
		errors.Is(err, orchestrator.ErrNoPlaythrough),
		errors.Is(err, orchestrator.ErrPlaythroughActive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrIncompleteGame),
		errors.Is(err, orchestrator.ErrDanglingTransition):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, orchestrator.ErrAssetLoadTimeout):
		writeError(w, http.StatusGatewayTimeout, "scene images did not load in time")
	case errors.Is(err, orchestrator.ErrAssetMissing):
		writeError(w, http.StatusBadGateway, "scene image missing")
	default:
		log.Printf("playthrough error: %v", err)
		writeError(w, http.StatusInternalServerError, "playthrough failed")
	}
}
