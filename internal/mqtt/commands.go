package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/AaronLay10/lorecrafter/internal/events"
	"github.com/AaronLay10/lorecrafter/internal/orchestrator"
)

const commandTimeout = 10 * time.Second

type subscriber interface {
	Subscribe(topic string, handler paho.MessageHandler) error
}

// Commands lets a remote controller drive sessions:
//
//	<prefix>/sessions/<id>/advance   payload: edge name or {"edge":"choice_a"}
//	<prefix>/sessions/<id>/restart   payload ignored
//
// Subscriptions are idempotent across reconnects.
type Commands struct {
	client   subscriber
	sessions *orchestrator.Sessions
	prefix   string

	mu         sync.Mutex
	subscribed map[string]bool
}

func NewCommands(client subscriber, sessions *orchestrator.Sessions, prefix string) *Commands {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &Commands{
		client:     client,
		sessions:   sessions,
		prefix:     strings.TrimSuffix(prefix, "/"),
		subscribed: make(map[string]bool),
	}
}

// Topics returns the wildcard topics Subscribe registers.
func (c *Commands) Topics() []string {
	return []string{
		c.prefix + "/sessions/+/advance",
		c.prefix + "/sessions/+/restart",
	}
}

// Subscribe registers every command topic not yet subscribed.
func (c *Commands) Subscribe() error {
	for _, topic := range c.Topics() {
		c.mu.Lock()
		done := c.subscribed[topic]
		c.mu.Unlock()
		if done {
			continue
		}
		if err := c.client.Subscribe(topic, c.handle); err != nil {
			return err
		}
		c.mu.Lock()
		c.subscribed[topic] = true
		c.mu.Unlock()
	}
	return nil
}

// ClearSubscriptions forgets subscriptions so the next Subscribe
// re-registers them. Call it on disconnect.
func (c *Commands) ClearSubscriptions() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.subscribed = make(map[string]bool)
}

func (c *Commands) IsSubscribed(topic string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed[topic]
}

func (c *Commands) handle(_ paho.Client, msg paho.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	sessionID, action, err := c.parseTopic(msg.Topic())
	if err == nil {
		err = c.apply(ctx, sessionID, action, msg.Payload())
	}
	if err != nil {
		events.Emit("error", "system.error", "mqtt command failed", map[string]interface{}{
			"source":     "mqtt",
			"topic":      msg.Topic(),
			"session_id": sessionID,
			"error":      err.Error(),
		})
	}
}

func (c *Commands) parseTopic(topic string) (sessionID, action string, err error) {
	rest, ok := strings.CutPrefix(topic, c.prefix+"/sessions/")
	if !ok {
		return "", "", fmt.Errorf("unexpected topic %q", topic)
	}
	sessionID, action, ok = strings.Cut(rest, "/")
	if !ok || sessionID == "" || strings.Contains(action, "/") {
		return "", "", fmt.Errorf("unexpected topic %q", topic)
	}
	return sessionID, action, nil
}

func (c *Commands) apply(ctx context.Context, sessionID, action string, payload []byte) error {
	s, err := c.sessions.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	switch action {
	case "advance":
		edge, err := parseEdge(payload)
		if err != nil {
			return err
		}
		_, err = s.Advance(ctx, edge)
		return err
	case "restart":
		return s.Restart(ctx)
	default:
		return fmt.Errorf("unknown command %q", action)
	}
}

func parseEdge(payload []byte) (orchestrator.Edge, error) {
	raw := strings.TrimSpace(string(payload))
	if strings.HasPrefix(raw, "{") {
		var body struct {
			Edge string `json:"edge"`
		}
		if err := json.Unmarshal([]byte(raw), &body); err != nil {
			return "", fmt.Errorf("decode advance payload: %w", err)
		}
		raw = body.Edge
	}
	if raw == "" {
		return "", fmt.Errorf("advance payload has no edge")
	}
	return orchestrator.Edge(raw), nil
}
