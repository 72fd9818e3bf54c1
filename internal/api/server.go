// Package api is the HTTP surface: game generation, playthrough sessions,
// static assets and the operational endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/imagegen"
	"github.com/AaronLay10/lorecrafter/internal/orchestrator"
	"github.com/AaronLay10/lorecrafter/internal/storage/postgres"
	"github.com/AaronLay10/lorecrafter/internal/story"
	"github.com/AaronLay10/lorecrafter/internal/version"
)

// StoryGenerator is satisfied by *story.Service.
type StoryGenerator interface {
	Generate(ctx context.Context, prompt string) (*story.GameData, error)
}

// ImageGenerator is satisfied by *imagegen.Generator.
type ImageGenerator interface {
	GenerateGameImages(ctx context.Context, req imagegen.Request) (imagegen.Generation, error)
}

// Options wires a Server. Auth and TLS may be nil.
type Options struct {
	Stories    StoryGenerator
	Images     ImageGenerator
	Sessions   *orchestrator.Sessions
	AssetsDir  string
	CORSOrigin string
	Auth       *Auth
	TLS        *TLSConfig
}

type Server struct {
	stories    StoryGenerator
	images     ImageGenerator
	sessions   *orchestrator.Sessions
	assetsDir  string
	corsOrigin string
	auth       *Auth
	tls        *TLSConfig
}

func NewServer(opts Options) *Server {
	sessions := opts.Sessions
	if sessions == nil {
		sessions = orchestrator.NewSessions(nil)
	}
	return &Server{
		stories:    opts.Stories,
		images:     opts.Images,
		sessions:   sessions,
		assetsDir:  opts.AssetsDir,
		corsOrigin: opts.CORSOrigin,
		auth:       opts.Auth,
		tls:        opts.TLS,
	}
}

// Handler returns the routed handler with CORS applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler)
	mux.HandleFunc("GET /ready", readyHandler)
	mux.HandleFunc("GET /metrics", s.metricsHandler)
	mux.HandleFunc("GET /events", s.auth.RequireAdmin(eventsHandler))
	mux.HandleFunc("GET /ws/events", s.auth.RequireAnyRole(wsEventsHandler))

	mux.HandleFunc("POST /api/generateGame", s.generateGameHandler)
	mux.HandleFunc("POST /api/playthroughs", s.createPlaythroughHandler)
	mux.HandleFunc("GET /api/playthroughs/{id}", s.getPlaythroughHandler)
	mux.HandleFunc("PUT /api/playthroughs/{id}", s.replacePlaythroughHandler)
	mux.HandleFunc("POST /api/playthroughs/{id}/advance", s.advancePlaythroughHandler)
	mux.HandleFunc("POST /api/playthroughs/{id}/restart", s.restartPlaythroughHandler)

	if s.assetsDir != "" {
		mux.Handle("GET /assets/", http.StripPrefix("/assets/", http.FileServer(http.Dir(s.assetsDir))))
	}
	return s.withCORS(mux)
}

func (s *Server) withCORS(next http.Handler) http.Handler {
	if s.corsOrigin == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.corsOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ListenAndServe serves until ctx is cancelled, then drains for up to 10s.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if s.tls.Enabled() {
			cfg, err := s.tls.Load()
			if err != nil {
				errCh <- err
				return
			}
			srv.TLSConfig = cfg
			log.Printf("API listening on %s (TLS)", addr)
			errCh <- srv.ListenAndServeTLS("", "")
			return
		}
		log.Printf("API listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	events.CloseAllSubscribers()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Hostname  string `json:"hostname"`
	Timestamp string `json:"ts"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	host, _ := os.Hostname()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Service:   "lorecrafter",
		Version:   version.Version,
		Hostname:  host,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

// readiness holds dependency state reported by /ready and /metrics.
var readiness = &readinessState{}

type readinessState struct {
	mu sync.RWMutex
	readinessValues
}

type readinessValues struct {
	generatorReady    bool
	storyBackend      string
	mqttConnected     bool
	mqttOptional      bool
	postgresConnected bool
	postgresOptional  bool
}

// SetGeneratorReady marks the pipeline usable (fallback images written).
func SetGeneratorReady(ready bool, storyBackend string) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.generatorReady = ready
	readiness.storyBackend = storyBackend
}

// SetMQTTStatus records broker connectivity. An optional dependency never
// fails readiness.
func SetMQTTStatus(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.mqttConnected = connected
	readiness.mqttOptional = optional
}

func SetPostgresStatus(connected, optional bool) {
	readiness.mu.Lock()
	defer readiness.mu.Unlock()
	readiness.postgresConnected = connected
	readiness.postgresOptional = optional
}

func (r *readinessState) snapshot() readinessValues {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readinessValues
}

type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type ReadinessResponse struct {
	Ready  bool                   `json:"ready"`
	Checks map[string]CheckResult `json:"checks"`
}

func readyHandler(w http.ResponseWriter, r *http.Request) {
	st := readiness.snapshot()

	resp := ReadinessResponse{Ready: true, Checks: make(map[string]CheckResult)}

	if st.generatorReady {
		resp.Checks["generator"] = CheckResult{Status: "ok", Message: st.storyBackend}
	} else {
		resp.Ready = false
		resp.Checks["generator"] = CheckResult{Status: "fail", Message: "fallback images not written"}
	}

	dependency := func(name string, connected, optional bool) {
		switch {
		case connected:
			resp.Checks[name] = CheckResult{Status: "ok"}
		case optional:
			resp.Checks[name] = CheckResult{Status: "skipped", Message: "not configured"}
		default:
			resp.Ready = false
			resp.Checks[name] = CheckResult{Status: "fail", Message: "not connected"}
		}
	}
	dependency("mqtt", st.mqttConnected, st.mqttOptional)
	dependency("postgres", st.postgresConnected, st.postgresOptional)

	status := http.StatusOK
	if !resp.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// eventsHandler returns buffered events (?prefix=, ?playthrough_id=, ?limit=)
// or persisted rows with ?source=db.
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	if q.Get("source") != "db" {
		writeJSON(w, http.StatusOK, events.Recent(events.Filter{
			Prefixes:      q["prefix"],
			PlaythroughID: q.Get("playthrough_id"),
		}, limit))
		return
	}

	pg := events.GetPostgresClient()
	if pg == nil {
		writeError(w, http.StatusServiceUnavailable, "event persistence not configured")
		return
	}
	rows, err := pg.Query(r.Context(), postgres.Filter{
		PlaythroughID: q.Get("playthrough_id"),
		SessionID:     q.Get("session_id"),
		Prefix:        q.Get("prefix"),
		Limit:         limit,
	})
	if err != nil {
		log.Printf("events query failed: %v", err)
		writeError(w, http.StatusInternalServerError, "event query failed")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, ErrorResponse{Detail: detail})
}
