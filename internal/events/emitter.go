package events

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/AaronLay10/lorecrafter/internal/storage/postgres"
)

var buffer = NewRingBuffer(256)

var (
	pgClient      *postgres.Client
	pgMu          sync.RWMutex
	pgErrorLogged bool
)

var (
	outMu sync.Mutex
	out   io.Writer
)

// Sink receives every emitted event after it is buffered.
type Sink interface {
	Publish(e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(e Event) error

func (f SinkFunc) Publish(e Event) error { return f(e) }

type sinkEntry struct {
	name        string
	sink        Sink
	errorLogged bool
}

var (
	sinkMu sync.Mutex
	sinks  []*sinkEntry
)

// SetPostgresClient sets the Postgres client for event persistence.
func SetPostgresClient(client *postgres.Client) {
	pgMu.Lock()
	pgClient = client
	pgErrorLogged = false
	pgMu.Unlock()
}

// GetPostgresClient returns the current Postgres client (for API queries).
func GetPostgresClient() *postgres.Client {
	pgMu.RLock()
	defer pgMu.RUnlock()
	return pgClient
}

// SetOutput makes Emit write each event as a JSON line to w. nil disables it.
func SetOutput(w io.Writer) {
	outMu.Lock()
	out = w
	outMu.Unlock()
}

// AddSink registers a named sink. A failing sink is reported once.
func AddSink(name string, s Sink) {
	sinkMu.Lock()
	sinks = append(sinks, &sinkEntry{name: name, sink: s})
	sinkMu.Unlock()
}

// ResetSinks removes all sinks.
func ResetSinks() {
	sinkMu.Lock()
	sinks = nil
	sinkMu.Unlock()
}

type Event struct {
	Timestamp string                 `json:"ts"`
	Level     string                 `json:"level"`
	Name      string                 `json:"event"`
	Message   string                 `json:"msg,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`
}

func Emit(level, name, msg string, fields map[string]interface{}) ([]byte, error) {
	if err := Validate(name); err != nil {
		return nil, err
	}

	ts := time.Now().UTC()
	e := Event{
		Timestamp: ts.Format(time.RFC3339Nano),
		Level:     level,
		Name:      name,
		Message:   msg,
		Fields:    fields,
	}

	buffer.Add(e)
	broadcast(e)

	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	writeLine(b)

	pgMu.RLock()
	client := pgClient
	pgMu.RUnlock()

	if client != nil {
		rec := postgres.Record{Time: ts, Level: level, Name: name, Message: msg, Fields: fields}
		if err := client.Append(rec); err != nil {
			pgMu.Lock()
			first := !pgErrorLogged
			pgErrorLogged = true
			pgMu.Unlock()
			if first {
				reportSinkError("postgres", err)
			}
		}
	}

	sinkMu.Lock()
	current := append([]*sinkEntry(nil), sinks...)
	sinkMu.Unlock()

	for _, s := range current {
		if err := s.sink.Publish(e); err != nil {
			sinkMu.Lock()
			first := !s.errorLogged
			s.errorLogged = true
			sinkMu.Unlock()
			if first {
				reportSinkError(s.name, err)
			}
		}
	}

	return b, nil
}

// reportSinkError adds system.error straight to the buffer and subscribers.
// It never goes back through the sinks, so a broken sink cannot recurse.
func reportSinkError(sink string, err error) {
	e := Event{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     "error",
		Name:      "system.error",
		Message:   sink + " append failed",
		Fields: map[string]interface{}{
			"sink":  sink,
			"error": err.Error(),
		},
	}
	buffer.Add(e)
	broadcast(e)
	if b, err := json.Marshal(e); err == nil {
		writeLine(b)
	}
}

func writeLine(b []byte) {
	outMu.Lock()
	defer outMu.Unlock()
	if out == nil {
		return
	}
	out.Write(append(b, '\n'))
}

func Snapshot() []Event {
	return buffer.Snapshot()
}

// TotalCount returns how many events were emitted since start (or Clear).
func TotalCount() uint64 {
	return buffer.Total()
}

// Clear resets the event buffer. Used for testing.
func Clear() {
	buffer.Clear()
}
