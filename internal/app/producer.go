package app

import (
	"context"
	"encoding/json"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/signal"
)

// RunMockProducer publishes mock joint values, velocities and force vectors
// for every axis of the actuator groups file, for bench runs without the suit.
func RunMockProducer(ctx context.Context, interval time.Duration) error {
	cfg := config.Get()
	log.Println("starting haptic MQTT producer (mock)")

	gf, err := config.LoadGroups(cfg.ActuatorGroupsFile)
	if err != nil {
		return err
	}
	reg, err := groups.NewRegistry(gf, sampleWidth(cfg))
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	p := newProducer(cfg, reg.Axes(), reg.VelocityAxes(), signal.NewMock(mockAmplitude))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.publish(client); err != nil {
				log.Printf("producer: %v", err)
			}
		}
	}
}

type producer struct {
	cfg     *config.Config
	axes    []string
	velAxes []string
	src     *signal.Mock
}

func newProducer(cfg *config.Config, axes, velAxes []string, src *signal.Mock) *producer {
	return &producer{cfg: cfg, axes: axes, velAxes: velAxes, src: src}
}

// publish sends one sample of every stream the retargeting loop may follow.
func (p *producer) publish(client mqtt.Client) error {
	if p.cfg.RetargetedValue == config.RetargetForce {
		buf := make([]float64, len(p.axes))
		p.src.Values(buf)
		for i, port := range p.axes {
			// Mock load pushes down along z.
			payload, err := json.Marshal([3]float64{0, 0, -buf[i]})
			if err != nil {
				return err
			}
			if err := publishStrict(client, p.cfg.TopicForcePrefix+"/"+port, payload); err != nil {
				return err
			}
		}
	} else {
		buf := make([]float64, len(p.axes))
		p.src.Values(buf)
		if err := publishNamed(client, p.cfg.TopicJointValues, p.axes, buf); err != nil {
			return err
		}
	}

	if len(p.velAxes) == 0 {
		return nil
	}
	vel := make([]float64, len(p.velAxes))
	p.src.Velocities(vel)
	return publishNamed(client, p.cfg.TopicJointVelocities, p.velAxes, vel)
}

func publishNamed(client mqtt.Client, topic string, names []string, values []float64) error {
	msg := make(map[string]float64, len(names))
	for i, n := range names {
		msg[n] = values[i]
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return publishStrict(client, topic, payload)
}

func publishStrict(client mqtt.Client, topic string, payload []byte) error {
	token := client.Publish(topic, 0, false, payload)
	token.Wait()
	return token.Error()
}
