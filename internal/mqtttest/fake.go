// Package mqtttest provides an in-process stand-in for a paho MQTT client.
package mqtttest

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Published is one message passed to Publish.
type Published struct {
	Topic    string
	Retained bool
	Payload  []byte
}

// Client records publishes and routes Deliver calls to subscription
// handlers. Methods it does not override panic through the nil embedded
// interface.
type Client struct {
	mqtt.Client

	mu         sync.Mutex
	pubs       []Published
	handlers   map[string]mqtt.MessageHandler
	PublishErr error
	SubErr     error
}

// NewClient returns an empty fake client.
func NewClient() *Client {
	return &Client{handlers: make(map[string]mqtt.MessageHandler)}
}

func (c *Client) IsConnected() bool      { return true }
func (c *Client) IsConnectionOpen() bool { return true }
func (c *Client) Connect() mqtt.Token    { return token{} }
func (c *Client) Disconnect(uint)        {}

// Publish records the payload. Only []byte and string payloads are
// supported.
func (c *Client) Publish(topic string, _ byte, retained bool, payload interface{}) mqtt.Token {
	var data []byte
	switch p := payload.(type) {
	case []byte:
		data = append([]byte(nil), p...)
	case string:
		data = []byte(p)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.PublishErr != nil {
		return token{err: c.PublishErr}
	}
	c.pubs = append(c.pubs, Published{Topic: topic, Retained: retained, Payload: data})
	return token{}
}

// Subscribe stores the handler for an exact topic match.
func (c *Client) Subscribe(topic string, _ byte, callback mqtt.MessageHandler) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.SubErr != nil {
		return token{err: c.SubErr}
	}
	c.handlers[topic] = callback
	return token{}
}

// Unsubscribe drops handlers.
func (c *Client) Unsubscribe(topics ...string) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range topics {
		delete(c.handlers, t)
	}
	return token{}
}

// Deliver invokes the handler subscribed on topic. It reports whether one
// was found.
func (c *Client) Deliver(topic string, payload []byte) bool {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()
	if !ok {
		return false
	}
	h(c, message{topic: topic, payload: payload})
	return true
}

// Published returns a copy of every recorded publish.
func (c *Client) Published() []Published {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Published(nil), c.pubs...)
}

// Subscriptions lists subscribed topics.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.handlers))
	for t := range c.handlers {
		out = append(out, t)
	}
	return out
}

type token struct{ err error }

func (t token) Wait() bool                     { return true }
func (t token) WaitTimeout(time.Duration) bool { return true }
func (t token) Error() error                   { return t.err }

func (t token) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type message struct {
	topic   string
	payload []byte
}

func (m message) Duplicate() bool   { return false }
func (m message) Qos() byte         { return 0 }
func (m message) Retained() bool    { return false }
func (m message) Topic() string     { return m.topic }
func (m message) MessageID() uint16 { return 0 }
func (m message) Payload() []byte   { return m.payload }
func (m message) Ack()              {}
