package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/story"
)

const (
	maxPromptBytes        = 4 << 10
	generationFailedReply = "generation failed, try again"
)

type GenerateGameRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateGameResponse is also the body accepted by POST /api/playthroughs.
type GenerateGameResponse struct {
	GameData *story.GameData `json:"game_data"`
	Prompt   string          `json:"prompt"`
}

func (s *Server) generateGameHandler(w http.ResponseWriter, r *http.Request) {
	var req GenerateGameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPromptBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	start := time.Now()
	events.Emit("info", "generation.started", "", map[string]interface{}{
		"prompt_chars": len(prompt),
	})

	game, err := s.stories.Generate(r.Context(), prompt)
	if err != nil {
		s.generationFailed(w, "story", err, start)
		return
	}

	gen, err := s.images.GenerateGameImages(r.Context(), imagegen.Request{
		Prompt:   prompt,
		Role:     game.ProtagonistRole,
		Setting:  game.Setting,
		NPCName:  game.NPC.Name,
		NPCTrait: game.NPC.Trait,
	})
	if err != nil {
		s.generationFailed(w, "images", err, start)
		return
	}

	fallbacks := gen.Fallbacks()
	recordGeneration(fallbacks)
	if fallbacks > 0 {
		SendAlert(AlertImageFallback, SeverityWarning, "image slots served by fallback", map[string]interface{}{
			"fallbacks": fallbacks,
		})
	}
	events.Emit("info", "generation.completed", "", map[string]interface{}{
		"duration_ms": time.Since(start).Milliseconds(),
		"fallbacks":   fallbacks,
		"character":   string(gen.Selection.Character),
		"environment": string(gen.Selection.Environment),
		"npc":         string(gen.Selection.NPC),
	})

	writeJSON(w, http.StatusOK, GenerateGameResponse{
		GameData: game.WithImages(story.Images(gen.Images)),
		Prompt:   prompt,
	})
}

// generationFailed logs the cause and answers with a generic message.
func (s *Server) generationFailed(w http.ResponseWriter, stage string, err error, start time.Time) {
	recordGenerationFailure()
	fields := map[string]interface{}{
		"stage":       stage,
		"error":       err.Error(),
		"duration_ms": time.Since(start).Milliseconds(),
	}
	if errors.Is(err, story.ErrSeedRejected) {
		fields["seed_rejected"] = true
	}
	events.Emit("error", "generation.failed", "", fields)
	SendAlert(AlertGenerationFailed, SeverityWarning, "game generation failed", fields)
	writeError(w, http.StatusInternalServerError, generationFailedReply)
}
