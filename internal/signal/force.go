package signal

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// ForcePorts follows one force stream per port. Each message is a JSON array
// [fx, fy, fz]; ports that never reported read as zero.
type ForcePorts struct {
	mu     sync.RWMutex
	ports  []string
	latest map[string][3]float64
}

// NewForcePorts returns a reader for ports in sample vector order.
func NewForcePorts(ports []string) *ForcePorts {
	return &ForcePorts{
		ports:  append([]string(nil), ports...),
		latest: make(map[string][3]float64),
	}
}

// Ports lists the followed ports.
func (f *ForcePorts) Ports() []string { return append([]string(nil), f.ports...) }

// Handle decodes one message for port.
func (f *ForcePorts) Handle(port string, payload []byte) error {
	var raw []float64
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("force port %s unmarshal error: %w", port, err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("force port %s: expected 3 components, got %d", port, len(raw))
	}
	f.mu.Lock()
	f.latest[port] = [3]float64{raw[0], raw[1], raw[2]}
	f.mu.Unlock()
	return nil
}

// Subscribe feeds every port from <prefix>/<port>.
func (f *ForcePorts) Subscribe(client mqtt.Client, prefix string) error {
	for _, port := range f.ports {
		port := port
		topic := prefix + "/" + port
		token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
			if err := f.Handle(port, msg.Payload()); err != nil {
				log.Printf("signal: %v", err)
			}
		})
		token.Wait()
		if token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
		log.Printf("signal: subscribed to %s", topic)
	}
	return nil
}

// Read returns the latest vector of port.
func (f *ForcePorts) Read(port string) ([3]float64, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.latest[port]
	return v, ok
}

// Values implements JointReader. It always succeeds.
func (f *ForcePorts) Values(buf []float64) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for i, port := range f.ports {
		v := f.latest[port]
		copy(buf[3*i:3*i+3], v[:])
	}
	return true
}
