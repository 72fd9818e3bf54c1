package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AaronLay10/lorecrafter/internal/events"
)

type publisher interface {
	Publish(topic string, payload []byte) error
}

// EventSink publishes every event to <prefix>/events/<name with dots as slashes>,
// e.g. lorecrafter/events/scene/entered.
type EventSink struct {
	pub    publisher
	prefix string
}

var _ events.Sink = (*EventSink)(nil)

func NewEventSink(pub publisher, prefix string) *EventSink {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &EventSink{pub: pub, prefix: strings.TrimSuffix(prefix, "/")}
}

// EventTopic maps an event name to its topic.
func EventTopic(prefix, name string) string {
	return prefix + "/events/" + strings.ReplaceAll(name, ".", "/")
}

func (s *EventSink) Publish(e events.Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode event %s: %w", e.Name, err)
	}
	return s.pub.Publish(EventTopic(s.prefix, e.Name), b)
}
