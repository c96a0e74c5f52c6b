package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/haptic_retargeting/internal/actuator"
	"github.com/relabs-tech/haptic_retargeting/internal/config"
)

// RunConsoleMQTT prints actuator commands, contacts and weight labels until
// ctx is cancelled.
func RunConsoleMQTT(ctx context.Context) error {
	cfg := config.Get()

	codec, err := actuator.CodecFor(cfg.ActuatorCodec)
	if err != nil {
		return err
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDConsole)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	if err := subscribeConsole(client, cfg, codec, os.Stdout); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("console: shutting down")
	return nil
}

func subscribeConsole(client mqtt.Client, cfg *config.Config, codec actuator.Codec, out io.Writer) error {
	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{cfg.TopicActuatorCommands, func(_ mqtt.Client, msg mqtt.Message) {
			var c actuator.Command
			if err := codec.Unmarshal(msg.Payload(), &c); err != nil {
				log.Printf("console: command unmarshal error: %v", err)
				return
			}
			fmt.Fprintf(out, "[CMD ] %-32s %s value=%5.0f status=%s\n", c.Name, c.Type, c.Value, c.Status)
		}},
		{cfg.TopicContacts, func(_ mqtt.Client, msg mqtt.Message) {
			var s actuator.ContactState
			if err := json.Unmarshal(msg.Payload(), &s); err != nil {
				log.Printf("console: contacts unmarshal error: %v", err)
				return
			}
			for _, c := range s.Contacts {
				fmt.Fprintf(out, "[CONT] %-16s contact=%-5v value=%8.3f\n", c.Group, c.InContact, c.Value)
			}
		}},
		{cfg.TopicWeight, func(_ mqtt.Client, msg mqtt.Message) {
			fmt.Fprintf(out, "[WGHT] %s kg\n", msg.Payload())
		}},
	}

	for _, s := range subs {
		if s.topic == "" {
			continue
		}
		token := client.Subscribe(s.topic, 0, s.handler)
		token.Wait()
		if token.Error() != nil {
			return token.Error()
		}
		log.Printf("console: subscribed to %s", s.topic)
	}
	return nil
}
