package api

import (
	"fmt"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/version"
)

var metricsState = &MetricsState{}

// MetricsState holds runtime counters for the /metrics endpoint.
type MetricsState struct {
	mu        sync.RWMutex
	startTime time.Time
	instance  string

	generations        atomic.Uint64
	generationFailures atomic.Uint64
	imageFallbacks     atomic.Uint64
}

// InitMetrics must be called at startup.
func InitMetrics(instance string) {
	metricsState.mu.Lock()
	defer metricsState.mu.Unlock()
	metricsState.startTime = time.Now()
	metricsState.instance = instance
}

func instanceName() string {
	metricsState.mu.RLock()
	defer metricsState.mu.RUnlock()
	if metricsState.instance != "" {
		return metricsState.instance
	}
	if host, _ := os.Hostname(); host != "" {
		return host
	}
	return "unknown"
}

func recordGeneration(fallbacks int) {
	metricsState.generations.Add(1)
	metricsState.imageFallbacks.Add(uint64(fallbacks))
}

func recordGenerationFailure() {
	metricsState.generationFailures.Add(1)
}

func boolGauge(b bool) int {
	if b {
		return 1
	}
	return 0
}

// metricsHandler writes Prometheus text format.
func (s *Server) metricsHandler(w http.ResponseWriter, r *http.Request) {
	metricsState.mu.RLock()
	startTime := metricsState.startTime
	metricsState.mu.RUnlock()

	st := readiness.snapshot()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	writeMetric := func(name, mtype, help string, value interface{}, labels string) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, mtype)
		fmt.Fprintf(w, "%s{%s} %v\n", name, labels, value)
	}

	labels := fmt.Sprintf(`instance="%s",version="%s"`, instanceName(), version.Version)

	writeMetric("lorecrafter_uptime_seconds", "gauge",
		"Number of seconds since the server started", time.Since(startTime).Seconds(), labels)
	writeMetric("lorecrafter_generations_total", "counter",
		"Games generated successfully", metricsState.generations.Load(), labels)
	writeMetric("lorecrafter_generation_failures_total", "counter",
		"Game generations that returned an error", metricsState.generationFailures.Load(), labels)
	writeMetric("lorecrafter_image_fallbacks_total", "counter",
		"Image slots served by a fallback image", metricsState.imageFallbacks.Load(), labels)
	writeMetric("lorecrafter_sessions", "gauge",
		"Sessions held in memory", s.sessions.Len(), labels)
	writeMetric("lorecrafter_sessions_active", "gauge",
		"Sessions with a playthrough in progress", s.sessions.Active(), labels)
	writeMetric("lorecrafter_events_total", "counter",
		"Total number of events emitted since startup", events.TotalCount(), labels)
	writeMetric("lorecrafter_events_dropped_total", "counter",
		"Live event deliveries skipped for slow subscribers", events.DroppedCount(), labels)
	writeMetric("lorecrafter_ws_clients", "gauge",
		"Number of active WebSocket client connections", events.SubscriberCount(), labels)
	writeMetric("lorecrafter_generator_ready", "gauge",
		"Whether fallback images are in place (1) or not (0)", boolGauge(st.generatorReady), labels)
	writeMetric("lorecrafter_mqtt_connected", "gauge",
		"Whether the MQTT broker is connected (1) or not (0)", boolGauge(st.mqttConnected), labels)
	writeMetric("lorecrafter_postgres_connected", "gauge",
		"Whether PostgreSQL is connected (1) or not (0)", boolGauge(st.postgresConnected), labels)
}
