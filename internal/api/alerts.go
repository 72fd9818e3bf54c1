package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"
)

// Alert severity levels
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
	SeverityInfo     = "info"
)

// Alert event types
const (
	AlertGenerationFailed    = "generation_failed"
	AlertImageFallback       = "image_fallback"
	AlertMQTTDisconnected    = "mqtt_disconnected"
	AlertPostgresUnavailable = "postgres_unavailable"
)

// AlertPayload is the JSON structure sent to the webhook.
type AlertPayload struct {
	Instance  string                 `json:"instance"`
	Event     string                 `json:"event"`
	Timestamp string                 `json:"timestamp"`
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

var (
	alertMu     sync.Mutex
	webhookURL  string
	alertClient = &http.Client{Timeout: 10 * time.Second}

	mqttOutage     = &outageTracker{event: AlertMQTTDisconnected, what: "MQTT broker", severity: SeverityWarning, delay: 30 * time.Second}
	postgresOutage = &outageTracker{event: AlertPostgresUnavailable, what: "PostgreSQL", severity: SeverityCritical, delay: 5 * time.Second}
)

// InitAlerts sets the webhook. An empty url logs alerts instead.
func InitAlerts(url string) {
	alertMu.Lock()
	defer alertMu.Unlock()
	webhookURL = url
	if url != "" {
		log.Printf("alerts enabled: webhook configured (mqtt_delay=%s, pg_delay=%s)",
			mqttOutage.delay, postgresOutage.delay)
	}
}

// SendAlert posts to the webhook in the background.
func SendAlert(event, severity, message string, details map[string]interface{}) {
	alertMu.Lock()
	url := webhookURL
	alertMu.Unlock()

	if url == "" {
		log.Printf("[ALERT] %s severity=%s msg=%q details=%v", event, severity, message, details)
		return
	}

	payload := AlertPayload{
		Instance:  instanceName(),
		Event:     event,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Severity:  severity,
		Message:   message,
		Details:   details,
	}
	go sendWebhook(url, payload)
}

func sendWebhook(url string, payload AlertPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("alert: failed to marshal payload: %v", err)
		return
	}

	resp, err := alertClient.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("alert: webhook POST failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		log.Printf("alert: webhook returned status %d", resp.StatusCode)
	}
}

type pendingAlert struct {
	event, severity, message string
	details                  map[string]interface{}
}

// outageTracker alerts once a dependency has been down for delay, and again
// when it recovers.
type outageTracker struct {
	event    string
	what     string
	severity string
	delay    time.Duration

	mu    sync.Mutex
	down  bool
	since time.Time
	sent  bool
}

func (o *outageTracker) observe(up bool, now time.Time) *pendingAlert {
	o.mu.Lock()
	defer o.mu.Unlock()

	if up {
		recovered := o.down && o.sent
		o.down, o.sent, o.since = false, false, time.Time{}
		if recovered {
			return &pendingAlert{o.event, SeverityInfo, o.what + " connection restored",
				map[string]interface{}{"recovered_at": now.UTC().Format(time.RFC3339)}}
		}
		return nil
	}

	if !o.down {
		o.down, o.since = true, now
	}
	if o.sent || now.Sub(o.since) < o.delay {
		return nil
	}
	o.sent = true
	return &pendingAlert{o.event, o.severity, o.what + " unavailable", map[string]interface{}{
		"disconnected_since":   o.since.UTC().Format(time.RFC3339),
		"disconnected_seconds": int(now.Sub(o.since).Seconds()),
	}}
}

func checkOutage(o *outageTracker, up bool) {
	if a := o.observe(up, time.Now()); a != nil {
		SendAlert(a.event, a.severity, a.message, a.details)
	}
}

// StartAlertMonitor checks dependency state every interval until ctx ends.
// Optional dependencies are never alerted on.
func StartAlertMonitor(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			st := readiness.snapshot()
			if !st.mqttOptional {
				checkOutage(mqttOutage, st.mqttConnected)
			}
			if !st.postgresOptional {
				checkOutage(postgresOutage, st.postgresConnected)
			}
		}
	}()
}
