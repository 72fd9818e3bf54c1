// Package mqtt fans LoreCrafter events out to an MQTT broker and accepts
// remote scene commands, so venue hardware can follow and drive playthroughs.
package mqtt

import (
	"errors"
	"log"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	// DefaultTopicPrefix roots every topic this package publishes or subscribes to.
	DefaultTopicPrefix = "lorecrafter"
	DefaultBroker      = "tcp://localhost:1883"

	StatusOnline  = "online"
	StatusOffline = "offline"

	connectTimeout   = 10 * time.Second
	publishTimeout   = 2 * time.Second
	subscribeTimeout = 10 * time.Second
	retryInterval    = 5 * time.Second
)

var ErrNotConnected = errors.New("mqtt: not connected")

// Options configures a Client. Empty Broker falls back to MQTT_URL.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Prefix   string

	// OnConnect runs after every successful (re)connect.
	OnConnect func()
	// OnConnectionLost runs when an established connection drops.
	OnConnectionLost func(error)
}

// Client is a paho client that announces itself on <prefix>/status:
// "online" retained on connect and "offline" as its last will.
type Client struct {
	client paho.Client
	broker string
	prefix string
}

// BrokerURL returns MQTT_URL or the local default.
func BrokerURL() string {
	if url := os.Getenv("MQTT_URL"); url != "" {
		return url
	}
	return DefaultBroker
}

// StatusTopic is where a client announces online/offline.
func StatusTopic(prefix string) string {
	return prefix + "/status"
}

// NewClient builds a client without connecting.
func NewClient(o Options) *Client {
	if o.Broker == "" {
		o.Broker = BrokerURL()
	}
	if o.Prefix == "" {
		o.Prefix = DefaultTopicPrefix
	}
	c := &Client{broker: o.Broker, prefix: strings.TrimSuffix(o.Prefix, "/")}
	status := StatusTopic(c.prefix)

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval).
		SetKeepAlive(30*time.Second).
		SetWill(status, StatusOffline, 1, true).
		SetOnConnectHandler(func(pc paho.Client) {
			pc.Publish(status, 1, true, StatusOnline)
			if o.OnConnect != nil {
				o.OnConnect()
			}
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection to %s lost: %v", o.Broker, err)
			if o.OnConnectionLost != nil {
				o.OnConnectionLost(err)
			}
		})
	if o.Username != "" {
		opts.SetUsername(o.Username).SetPassword(o.Password)
	}

	c.client = paho.NewClient(opts)
	return c
}

func (c *Client) Broker() string { return c.broker }

func (c *Client) Prefix() string { return c.prefix }

// Connect makes one bounded attempt. With connect retry enabled paho keeps
// trying in the background after a timeout.
func (c *Client) Connect() error {
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return &TimeoutError{Op: "connect", Topic: c.broker}
	}
	return token.Error()
}

// Publish sends payload at QoS 1 and waits briefly for the broker ack.
func (c *Client) Publish(topic string, payload []byte) error {
	if !c.client.IsConnected() {
		return ErrNotConnected
	}
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return &TimeoutError{Op: "publish", Topic: topic}
	}
	return token.Error()
}

func (c *Client) Subscribe(topic string, handler paho.MessageHandler) error {
	token := c.client.Subscribe(topic, 1, handler)
	if !token.WaitTimeout(subscribeTimeout) {
		return &TimeoutError{Op: "subscribe", Topic: topic}
	}
	return token.Error()
}

// Disconnect publishes the offline status and closes the connection.
func (c *Client) Disconnect() {
	if c.client.IsConnected() {
		c.client.Publish(StatusTopic(c.prefix), 1, true, StatusOffline).WaitTimeout(publishTimeout)
	}
	c.client.Disconnect(1000)
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// TimeoutError reports a broker operation that got no answer in time.
type TimeoutError struct {
	Op    string
	Topic string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Topic
}

// StartWithRetry connects, logging instead of failing.
func (c *Client) StartWithRetry() bool {
	if err := c.Connect(); err != nil {
		log.Printf("mqtt: failed to connect to %s: %v", c.broker, err)
		return false
	}
	log.Printf("mqtt: connected to %s", c.broker)
	return true
}
