package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOutageTracker(t *testing.T) {
	o := &outageTracker{event: AlertMQTTDisconnected, what: "MQTT broker", severity: SeverityWarning, delay: 30 * time.Second}
	t0 := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	if a := o.observe(true, t0); a != nil {
		t.Errorf("healthy dependency must not alert, got %+v", a)
	}
	if a := o.observe(false, t0); a != nil {
		t.Errorf("outage shorter than delay must not alert, got %+v", a)
	}
	if a := o.observe(false, t0.Add(10*time.Second)); a != nil {
		t.Errorf("still inside delay, got %+v", a)
	}

	a := o.observe(false, t0.Add(31*time.Second))
	if a == nil || a.severity != SeverityWarning || a.details["disconnected_seconds"] != 31 {
		t.Fatalf("expected warning after delay, got %+v", a)
	}
	if again := o.observe(false, t0.Add(60*time.Second)); again != nil {
		t.Errorf("alert must be sent once per outage, got %+v", again)
	}

	rec := o.observe(true, t0.Add(61*time.Second))
	if rec == nil || rec.severity != SeverityInfo {
		t.Errorf("expected recovery alert, got %+v", rec)
	}
	if a := o.observe(true, t0.Add(62*time.Second)); a != nil {
		t.Errorf("no second recovery alert, got %+v", a)
	}
}

func TestSendAlertPostsWebhook(t *testing.T) {
	got := make(chan AlertPayload, 1)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var p AlertPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		got <- p
	}))
	defer hook.Close()

	InitMetrics("hall-a")
	InitAlerts(hook.URL)
	defer InitAlerts("")

	SendAlert(AlertGenerationFailed, SeverityWarning, "game generation failed", map[string]interface{}{"stage": "story"})

	select {
	case p := <-got:
		if p.Event != AlertGenerationFailed || p.Instance != "hall-a" || p.Details["stage"] != "story" {
			t.Errorf("unexpected payload %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("webhook not called")
	}
}
