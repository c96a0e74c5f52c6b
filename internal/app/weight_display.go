package app

import (
	"context"
	"fmt"
	"image"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/signal"
	"github.com/relabs-tech/haptic_retargeting/internal/weight"
)

// RunWeightDisplay estimates the carried weight from the force ports and
// publishes it as a label, optionally mirrored on an SSD1306 OLED.
func RunWeightDisplay(ctx context.Context) error {
	cfg := config.Get()
	log.Println("starting weight display")

	if len(cfg.WeightInputPorts) == 0 {
		return fmt.Errorf("WEIGHT_INPUT_PORTS is required")
	}

	client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDWeight)
	if err != nil {
		return err
	}
	defer client.Disconnect(250)

	ports := signal.NewForcePorts(cfg.WeightInputPorts)
	if err := ports.Subscribe(client, cfg.TopicForcePrefix); err != nil {
		return err
	}

	var screen labelWriter
	if cfg.DisplayOLED {
		o, err := openOLED()
		if err != nil {
			return err
		}
		defer o.Close()
		screen = o
	}

	est := weight.NewEstimator(cfg.WeightInputPorts, cfg.WeightUseZOnly, cfg.WeightOffset, cfg.WeightMin)
	interval := time.Duration(cfg.DisplayUpdateInterval) * time.Millisecond
	return weightLoop(ctx, est, ports, interval, publishLabel(client, cfg.TopicWeight), screen)
}

// labelWriter shows a weight label somewhere.
type labelWriter interface {
	ShowLabel(label string) error
}

func publishLabel(client mqtt.Client, topic string) func(string) error {
	return func(label string) error {
		token := client.Publish(topic, 0, false, label)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish %s: %w", topic, token.Error())
		}
		return nil
	}
}

// weightLoop refreshes the label every interval. Weights below the minimum
// are neither published nor shown.
func weightLoop(ctx context.Context, est *weight.Estimator, r weight.ForceReader, interval time.Duration, publish func(string) error, screen labelWriter) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("weight: shutting down")
			return nil
		case <-ticker.C:
			label, ok := est.Label(r)
			if !ok {
				continue
			}
			if err := publish(label); err != nil {
				log.Printf("weight: %v", err)
			}
			if screen != nil {
				if err := screen.ShowLabel(label); err != nil {
					log.Printf("weight: display error: %v", err)
				}
			}
		}
	}
}

// oled draws the weight label on an SSD1306.
type oled struct {
	bus i2c.BusCloser
	dev *ssd1306.Dev
}

func openOLED() (*oled, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph: %w", err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus: %w", err)
	}
	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("failed to initialize display: %w", err)
	}
	log.Println("display: OLED initialized")

	o := &oled{bus: bus, dev: dev}
	if err := o.draw("Weight", "Waiting..."); err != nil {
		log.Printf("display: error showing splash: %v", err)
	}
	return o, nil
}

func (o *oled) ShowLabel(label string) error {
	return o.draw("Weight", label+" kg")
}

func (o *oled) draw(title, line string) error {
	return o.dev.Draw(o.dev.Bounds(), renderLabel(title, line), image.Point{})
}

func (o *oled) Close() error {
	if err := o.dev.Halt(); err != nil {
		log.Printf("display: halt: %v", err)
	}
	return o.bus.Close()
}

// renderLabel lays out a title and a value line on a 128x64 frame.
func renderLabel(title, line string) *image1bit.VerticalLSB {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, 128, 64))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}

	drawer.Dot = fixed.P(0, 13)
	drawer.DrawBytes([]byte(title))
	drawer.Dot = fixed.P(0, 39)
	drawer.DrawBytes([]byte(line))
	return img
}
