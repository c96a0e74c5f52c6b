// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package signal

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"
)

// Gyro axis names accepted as velocity axes by IMUGyro.
const (
	GyroX = "gyro_x"
	GyroY = "gyro_y"
	GyroZ = "gyro_z"
)

// Gyro is the rotation rate part of an MPU9250.
type Gyro interface {
	GetRotationX() (int16, error)
	GetRotationY() (int16, error)
	GetRotationZ() (int16, error)
}

// IMUGyro reports the angular rate of a limb-mounted IMU in deg/s.
type IMUGyro struct {
	dev       Gyro
	lsbPerDPS float64
	reads     []func() (int16, error)
}

// OpenIMUGyro initializes an MPU9250 over SPI.
func OpenIMUGyro(spiDev, csPin string, lsbPerDPS float64, axes []string) (*IMUGyro, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("IMU: periph host init: %w", err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("IMU: CS pin %q not found", csPin)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("IMU: SPI transport (%s): %w", spiDev, err)
	}

	imu, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("IMU: device creation: %w", err)
	}

	if err := imu.Init(); err != nil {
		return nil, fmt.Errorf("IMU: initialization: %w", err)
	}

	if err := imu.Calibrate(); err != nil {
		log.Printf("Warning: IMU calibration failed: %v", err)
	} else {
		log.Printf("IMU calibration complete")
	}

	return NewIMUGyro(imu, lsbPerDPS, axes)
}

// NewIMUGyro maps each velocity axis to a gyro component. Axes must be
// gyro_x, gyro_y or gyro_z.
func NewIMUGyro(dev Gyro, lsbPerDPS float64, axes []string) (*IMUGyro, error) {
	if lsbPerDPS <= 0 {
		return nil, fmt.Errorf("IMU: sensitivity must be positive, got %v", lsbPerDPS)
	}
	g := &IMUGyro{dev: dev, lsbPerDPS: lsbPerDPS}
	for _, axis := range axes {
		switch axis {
		case GyroX:
			g.reads = append(g.reads, dev.GetRotationX)
		case GyroY:
			g.reads = append(g.reads, dev.GetRotationY)
		case GyroZ:
			g.reads = append(g.reads, dev.GetRotationZ)
		default:
			return nil, fmt.Errorf("IMU: unknown velocity axis %q", axis)
		}
	}
	return g, nil
}

// Velocities implements VelocityReader.
func (g *IMUGyro) Velocities(buf []float64) bool {
	for i, read := range g.reads {
		raw, err := read()
		if err != nil {
			log.Printf("IMU: gyro read: %v", err)
			return false
		}
		buf[i] = float64(raw) / g.lsbPerDPS
	}
	return true
}
