// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package signal

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// NamedValues follows a stream of JSON objects mapping axis names to values,
// e.g. {"r_knee": 12.5, "r_hip_pitch": -3.1}. Messages may carry a subset of
// the axes; missing axes keep their last value.
type NamedValues struct {
	store namedStore
	axes  []string
}

// NewNamedValues returns a reader for axes. Readings older than maxAge count
// as missing; 0 disables the check.
func NewNamedValues(axes []string, maxAge time.Duration) *NamedValues {
	return &NamedValues{store: newNamedStore(maxAge), axes: append([]string(nil), axes...)}
}

// Handle decodes one message.
func (n *NamedValues) Handle(payload []byte) error {
	var msg map[string]float64
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("named values unmarshal error: %w", err)
	}
	names := make([]string, 0, len(msg))
	values := make([]float64, 0, len(msg))
	for name, v := range msg {
		names = append(names, name)
		values = append(values, v)
	}
	n.store.set(names, values)
	return nil
}

// Subscribe feeds the reader from topic.
func (n *NamedValues) Subscribe(client mqtt.Client, topic string) error {
	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if err := n.Handle(msg.Payload()); err != nil {
			log.Printf("signal: %s: %v", topic, err)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	log.Printf("signal: subscribed to %s (%d axes)", topic, len(n.axes))
	return nil
}

// Values implements JointReader.
func (n *NamedValues) Values(buf []float64) bool { return n.store.fill(n.axes, buf) }

// Velocities implements VelocityReader.
func (n *NamedValues) Velocities(buf []float64) bool { return n.store.fill(n.axes, buf) }
