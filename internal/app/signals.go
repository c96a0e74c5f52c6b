package app

import (
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/haptic_retargeting/internal/config"
	"github.com/relabs-tech/haptic_retargeting/internal/groups"
	"github.com/relabs-tech/haptic_retargeting/internal/signal"
)

// Streamed readings older than this many loop periods count as missing.
const staleAfterPeriods = 10

// mockAmplitude is the peak value produced by the mock source.
const mockAmplitude = 10

// signals bundles the acquisition side of the loop.
type signals struct {
	joints     signal.JointReader
	velocities signal.VelocityReader
	closers    []io.Closer
}

func (s *signals) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// sampleWidth is the number of channels per joint axis.
func sampleWidth(cfg *config.Config) int {
	if cfg.RetargetedValue == config.RetargetForce {
		return groups.ForceWidth
	}
	return groups.ScalarWidth
}

// openSignals builds the readers selected by cfg for the axes of reg.
// client may be nil when no MQTT source is configured.
func openSignals(cfg *config.Config, reg *groups.Registry, client mqtt.Client) (*signals, error) {
	s := &signals{}
	maxAge := time.Duration(staleAfterPeriods*cfg.PeriodMS) * time.Millisecond
	axes := reg.Axes()
	velAxes := reg.VelocityAxes()

	var board *signal.SerialBoard

	switch {
	case cfg.RetargetedValue == config.RetargetForce && cfg.SignalSource == config.SourceMQTT:
		ports := signal.NewForcePorts(axes)
		if err := ports.Subscribe(client, cfg.TopicForcePrefix); err != nil {
			return nil, err
		}
		s.joints = ports
	case cfg.SignalSource == config.SourceMQTT:
		values := signal.NewNamedValues(axes, maxAge)
		if err := values.Subscribe(client, cfg.TopicJointValues); err != nil {
			return nil, err
		}
		s.joints = values
	case cfg.SignalSource == config.SourceSerial:
		valueType := signal.TypeTorque
		if cfg.RetargetedValue == config.RetargetMotorCurrent {
			valueType = signal.TypeCurrent
		}
		var err error
		board, err = signal.OpenSerialBoard(cfg.SerialPort, cfg.SerialBaudRate, valueType, axes, velAxes, maxAge)
		if err != nil {
			return nil, err
		}
		s.joints = board
		s.closers = append(s.closers, board)
	case cfg.SignalSource == config.SourceADC:
		adc, err := signal.OpenADC(cfg.ADCI2CBus, cfg.ADCI2CAddr, len(axes), cfg.ADCUnitsPerVolt)
		if err != nil {
			return nil, err
		}
		s.joints = adc
		s.closers = append(s.closers, adc)
	case cfg.SignalSource == config.SourceMock:
		s.joints = signal.NewMock(mockAmplitude)
	default:
		return nil, fmt.Errorf("unsupported SIGNAL_SOURCE %q", cfg.SignalSource)
	}
	log.Printf("signals: %s from %s, %d axes", cfg.RetargetedValue, cfg.SignalSource, len(axes))

	if !cfg.UseVelocity {
		return s, nil
	}

	switch cfg.VelocitySource {
	case config.SourceMQTT:
		v := signal.NewNamedValues(velAxes, maxAge)
		if err := v.Subscribe(client, cfg.TopicJointVelocities); err != nil {
			s.Close()
			return nil, err
		}
		s.velocities = v
	case config.SourceSerial:
		if board == nil {
			s.Close()
			return nil, fmt.Errorf("VELOCITY_SOURCE=serial needs SIGNAL_SOURCE=serial")
		}
		s.velocities = board
	case config.SourceIMU:
		g, err := signal.OpenIMUGyro(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUGyroLSBPerDPS, velAxes)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.velocities = g
	case config.SourceMock:
		s.velocities = signal.NewMock(mockAmplitude)
	default:
		s.Close()
		return nil, fmt.Errorf("unsupported VELOCITY_SOURCE %q", cfg.VelocitySource)
	}
	log.Printf("signals: velocities from %s, %d axes, gate at %g", cfg.VelocitySource, len(velAxes), cfg.MaxVelocity)
	return s, nil
}
