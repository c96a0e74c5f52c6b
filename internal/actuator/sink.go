// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package actuator

import (
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Sink delivers actuator commands. Send blocks until the command has been
// handed to the transport.
type Sink interface {
	Send(cmd Command) error
}

// ContactSink receives the per-cycle contact vector.
type ContactSink interface {
	SendContacts(state ContactState) error
}

// MQTTSink publishes commands on a single topic. Every publish waits for its
// token so delivery errors surface to the caller.
type MQTTSink struct {
	client        mqtt.Client
	topic         string
	contactsTopic string
	codec         Codec
}

// NewMQTTSink returns a sink publishing on topic with codec. contactsTopic
// may be empty when contacts are not published.
func NewMQTTSink(client mqtt.Client, topic, contactsTopic string, codec Codec) *MQTTSink {
	return &MQTTSink{client: client, topic: topic, contactsTopic: contactsTopic, codec: codec}
}

// Send implements Sink.
func (s *MQTTSink) Send(cmd Command) error {
	payload, err := s.codec.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("%s marshal error (%s): %w", s.codec.Name(), cmd.Name, err)
	}
	return s.publish(s.topic, payload)
}

// SendContacts implements ContactSink. Contacts are always JSON.
func (s *MQTTSink) SendContacts(state ContactState) error {
	if s.contactsTopic == "" {
		return nil
	}
	payload, err := JSON.Marshal(state)
	if err != nil {
		return fmt.Errorf("json marshal error (contacts): %w", err)
	}
	return s.publish(s.contactsTopic, payload)
}

func (s *MQTTSink) publish(topic string, payload []byte) error {
	if token := s.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("MQTT publish error (%s): %w", topic, token.Error())
	}
	return nil
}

// Recorder is an in-memory sink. The mock console uses it to print commands
// without a broker.
type Recorder struct {
	mu       sync.Mutex
	commands []Command
	contacts []ContactState
	onSend   func(Command)
}

// NewRecorder returns an empty recorder. onSend, if not nil, is called for
// every command after it is stored.
func NewRecorder(onSend func(Command)) *Recorder {
	return &Recorder{onSend: onSend}
}

// Send implements Sink.
func (r *Recorder) Send(cmd Command) error {
	r.mu.Lock()
	r.commands = append(r.commands, cmd)
	r.mu.Unlock()
	if r.onSend != nil {
		r.onSend(cmd)
	}
	return nil
}

// SendContacts implements ContactSink.
func (r *Recorder) SendContacts(state ContactState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = append(r.contacts, state)
	return nil
}

// Commands returns a copy of everything sent so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Command(nil), r.commands...)
}

// Contacts returns a copy of every contact vector sent so far.
func (r *Recorder) Contacts() []ContactState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ContactState(nil), r.contacts...)
}

// Reset drops recorded commands and contacts.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands = nil
	r.contacts = nil
}
