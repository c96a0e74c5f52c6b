package signal

import (
	"fmt"
	"log"

	"periph.io/x/conn/v3/analog"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/ads1x15"
	"periph.io/x/host/v3"
)

// AnalogPin is the part of an ADC pin the reader needs.
type AnalogPin interface {
	Read() (analog.Sample, error)
}

var adcChannels = []ads1x15.Channel{
	ads1x15.Channel0,
	ads1x15.Channel1,
	ads1x15.Channel2,
	ads1x15.Channel3,
}

// ADCReader samples one analog channel per axis, e.g. current sense
// amplifiers on the motor drivers. Axis i is read from channel i.
type ADCReader struct {
	pins         []AnalogPin
	unitsPerVolt float64
	bus          i2c.BusCloser
}

// OpenADC opens an ADS1115 on the named I2C bus with one channel per axis.
func OpenADC(busName string, addr uint16, axes int, unitsPerVolt float64) (*ADCReader, error) {
	if axes > len(adcChannels) {
		return nil, fmt.Errorf("adc: %d axes requested, ADS1115 has %d channels", axes, len(adcChannels))
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("adc: periph host init: %w", err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("adc: open I2C bus %q: %w", busName, err)
	}
	dev, err := ads1x15.NewADS1115(bus, &ads1x15.Opts{I2cAddress: addr})
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("adc: ADS1115 at 0x%02x: %w", addr, err)
	}

	pins := make([]AnalogPin, 0, axes)
	for i := 0; i < axes; i++ {
		pin, err := dev.PinForChannel(adcChannels[i], 4096*physic.MilliVolt, 128*physic.Hertz, ads1x15.BestQuality)
		if err != nil {
			bus.Close()
			return nil, fmt.Errorf("adc: channel %d: %w", i, err)
		}
		pins = append(pins, pin)
	}
	log.Printf("adc: ADS1115 at 0x%02x on %q, %d channels", addr, busName, axes)

	r := NewADCReader(pins, unitsPerVolt)
	r.bus = bus
	return r, nil
}

// NewADCReader reads from already opened pins.
func NewADCReader(pins []AnalogPin, unitsPerVolt float64) *ADCReader {
	return &ADCReader{pins: pins, unitsPerVolt: unitsPerVolt}
}

// Values implements JointReader.
func (r *ADCReader) Values(buf []float64) bool {
	for i, pin := range r.pins {
		s, err := pin.Read()
		if err != nil {
			log.Printf("adc: channel %d read: %v", i, err)
			return false
		}
		buf[i] = float64(s.V) / float64(physic.Volt) * r.unitsPerVolt
	}
	return true
}

// Close releases the I2C bus.
func (r *ADCReader) Close() error {
	if r.bus == nil {
		return nil
	}
	return r.bus.Close()
}
