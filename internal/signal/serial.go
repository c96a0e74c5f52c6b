// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package signal

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"sync"
	"time"

	nmea "github.com/adrianmo/go-nmea"
	"github.com/jacobsa/go-serial/serial"
)

// Sentence types emitted by the joint board. Each sentence carries
// name,value pairs, e.g. $HPTRQ,r_knee,12.5,r_hip_pitch,-3.1*4F
const (
	TypeTorque   = "TRQ"
	TypeCurrent  = "CUR"
	TypeVelocity = "VEL"
)

// Readings is a decoded board sentence.
type Readings struct {
	nmea.BaseSentence
	Names  []string
	Values []float64
}

func parseReadings(s nmea.BaseSentence) (nmea.Sentence, error) {
	if len(s.Fields)%2 != 0 {
		return nil, fmt.Errorf("nmea: %s: odd number of fields (%d)", s.Type, len(s.Fields))
	}
	p := nmea.NewParser(s)
	r := Readings{BaseSentence: s}
	for i := 0; i+1 < len(s.Fields); i += 2 {
		r.Names = append(r.Names, p.String(i, "axis name"))
		r.Values = append(r.Values, p.Float64(i+1, "axis value"))
	}
	return r, p.Err()
}

var boardParser = nmea.SentenceParser{
	CustomParsers: map[string]nmea.ParserFunc{
		TypeTorque:   parseReadings,
		TypeCurrent:  parseReadings,
		TypeVelocity: parseReadings,
	},
}

// ParseReadings decodes one board line.
func ParseReadings(line string) (Readings, error) {
	s, err := boardParser.Parse(strings.TrimSpace(line))
	if err != nil {
		return Readings{}, err
	}
	r, ok := s.(Readings)
	if !ok {
		return Readings{}, fmt.Errorf("nmea: unexpected sentence type %s", s.DataType())
	}
	return r, nil
}

// SerialBoard reads joint values and velocities from a board streaming
// NMEA-style sentences over a serial line.
type SerialBoard struct {
	valueType    string
	axes         []string
	velocityAxes []string
	values       namedStore
	velocities   namedStore

	rc   io.ReadCloser
	done chan struct{}
	mu   sync.Mutex
	err  error
}

// OpenSerialBoard opens port and starts reading. valueType selects which
// sentence feeds Values (TypeTorque or TypeCurrent).
func OpenSerialBoard(port string, baud int, valueType string, axes, velocityAxes []string, maxAge time.Duration) (*SerialBoard, error) {
	options := serial.OpenOptions{
		PortName:        port,
		BaudRate:        uint(baud),
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
		ParityMode:      serial.PARITY_NONE,
	}
	rc, err := serial.Open(options)
	if err != nil {
		return nil, fmt.Errorf("serial board: open %s: %w", port, err)
	}
	log.Printf("serial board: opened %s at %d baud", port, baud)
	return NewSerialBoard(rc, valueType, axes, velocityAxes, maxAge), nil
}

// NewSerialBoard starts reading sentences from rc until it fails or is
// closed.
func NewSerialBoard(rc io.ReadCloser, valueType string, axes, velocityAxes []string, maxAge time.Duration) *SerialBoard {
	b := &SerialBoard{
		valueType:    valueType,
		axes:         append([]string(nil), axes...),
		velocityAxes: append([]string(nil), velocityAxes...),
		values:       newNamedStore(maxAge),
		velocities:   newNamedStore(maxAge),
		rc:           rc,
		done:         make(chan struct{}),
	}
	go b.readLoop()
	return b
}

func (b *SerialBoard) readLoop() {
	defer close(b.done)
	reader := bufio.NewReader(b.rc)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if !errors.Is(err, io.EOF) {
				log.Printf("serial board: read error: %v", err)
			}
			b.mu.Lock()
			b.err = err
			b.mu.Unlock()
			return
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := b.HandleLine(line); err != nil {
			log.Printf("serial board: %v", err)
		}
	}
}

// HandleLine decodes one sentence and stores its readings. Sentence types
// other than the configured value type and VEL are ignored.
func (b *SerialBoard) HandleLine(line string) error {
	r, err := ParseReadings(line)
	if err != nil {
		return err
	}
	switch r.Type {
	case b.valueType:
		b.values.set(r.Names, r.Values)
	case TypeVelocity:
		b.velocities.set(r.Names, r.Values)
	}
	return nil
}

// Values implements JointReader.
func (b *SerialBoard) Values(buf []float64) bool { return b.values.fill(b.axes, buf) }

// Velocities implements VelocityReader.
func (b *SerialBoard) Velocities(buf []float64) bool {
	return b.velocities.fill(b.velocityAxes, buf)
}

// Done is closed when the read loop exits.
func (b *SerialBoard) Done() <-chan struct{} { return b.done }

// Err returns the error that stopped the read loop.
func (b *SerialBoard) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Close closes the port and waits for the read loop.
func (b *SerialBoard) Close() error {
	err := b.rc.Close()
	<-b.done
	return err
}
