package events

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestEmitRejectsUnknownEvent(t *testing.T) {
	Clear()
	if _, err := Emit("info", "node.started", "", nil); err == nil {
		t.Fatal("expected error for unregistered event")
	}
	if len(Snapshot()) != 0 {
		t.Error("rejected event must not be buffered")
	}
}

func TestEmitWritesJSONLine(t *testing.T) {
	Clear()
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	b, err := Emit("info", "generation.started", "generating", map[string]interface{}{"prompt": "knight"})
	if err != nil {
		t.Fatalf("emit: %v", err)
	}

	line := strings.TrimSpace(buf.String())
	if line != string(b) {
		t.Errorf("output line %q does not match returned bytes %q", line, b)
	}

	var e Event
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		t.Fatalf("invalid json line: %v", err)
	}
	if e.Name != "generation.started" || e.Level != "info" || e.Message != "generating" {
		t.Errorf("unexpected event %+v", e)
	}
	if TotalCount() != 1 {
		t.Errorf("expected total 1, got %d", TotalCount())
	}
}

func TestSinkReceivesEvents(t *testing.T) {
	Clear()
	ResetSinks()
	defer ResetSinks()

	var got []string
	AddSink("memory", SinkFunc(func(e Event) error {
		got = append(got, e.Name)
		return nil
	}))

	Emit("info", "playthrough.started", "", nil)
	Emit("info", "playthrough.advanced", "", nil)

	if len(got) != 2 || got[0] != "playthrough.started" || got[1] != "playthrough.advanced" {
		t.Errorf("unexpected sink events %v", got)
	}
}

func TestFailingSinkReportedOnce(t *testing.T) {
	Clear()
	ResetSinks()
	defer ResetSinks()

	calls := 0
	AddSink("broken", SinkFunc(func(e Event) error {
		calls++
		return errors.New("broker down")
	}))

	for i := 0; i < 3; i++ {
		if _, err := Emit("info", "image.exported", "", nil); err != nil {
			t.Fatalf("emit must not fail on sink error: %v", err)
		}
	}

	if calls != 3 {
		t.Errorf("sink should still be called every time, got %d", calls)
	}

	errorsSeen := 0
	for _, e := range Snapshot() {
		if e.Name == "system.error" {
			errorsSeen++
			if e.Fields["sink"] != "broken" {
				t.Errorf("expected sink=broken, got %v", e.Fields["sink"])
			}
		}
	}
	if errorsSeen != 1 {
		t.Errorf("expected exactly one system.error, got %d", errorsSeen)
	}
}

func TestRingBufferWraps(t *testing.T) {
	rb := NewRingBuffer(3)
	for i := 0; i < 5; i++ {
		rb.Add(Event{Fields: map[string]interface{}{"i": i}})
	}
	snap := rb.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("expected 3 events, got %d", len(snap))
	}
	if snap[0].Fields["i"] != 2 || snap[2].Fields["i"] != 4 {
		t.Errorf("unexpected order %v", snap)
	}
	if rb.Total() != 5 {
		t.Errorf("expected total 5, got %d", rb.Total())
	}

	rb.Clear()
	if len(rb.Snapshot()) != 0 || rb.Total() != 0 {
		t.Error("clear must empty the buffer")
	}
}
