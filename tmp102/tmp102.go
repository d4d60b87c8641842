// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmp102

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// ConversionRate selects how often the device updates its temperature
// register. The device default is 4 readings/second.
type ConversionRate byte

const (
	RateQuarterHertz ConversionRate = iota
	RateOneHertz
	RateFourHertz
	RateEightHertz
)

const (
	// The default i2c bus address with the ADD0 pin tied to ground.
	DefaultSensorAddress uint16 = 0x48

	regTemperature   byte = 0x00
	regConfiguration byte = 0x01

	// Bit positions in the 16-bit configuration word.
	shutdownBit       = 8
	conversionRatePos = 6

	resolution physic.Temperature = 62_500 * physic.MicroKelvin
)

// Opts represents configurable options for the TMP102.
type Opts struct {
	SampleRate ConversionRate
}

// DefaultOpts matches the device's power-on configuration.
var DefaultOpts = Opts{SampleRate: RateFourHertz}

// Dev represents a TMP102 sensor.
type Dev struct {
	d    *i2c.Dev
	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// NewI2C returns a new TMP102 sensor using the specified bus and
// address. The device is taken out of shutdown and set to the requested
// conversion rate.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}}
	if err := d.configure(opts.SampleRate); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) configure(rate ConversionRate) error {
	r := make([]byte, 2)
	if err := d.d.Tx([]byte{regConfiguration}, r); err != nil {
		return fmt.Errorf("tmp102: reading configuration: %w", err)
	}
	config := uint16(r[0])<<8 | uint16(r[1])
	config &^= 1 << shutdownBit
	config &^= 0x03 << conversionRatePos
	config |= uint16(rate) << conversionRatePos
	if err := d.d.Tx([]byte{regConfiguration, byte(config >> 8), byte(config)}, nil); err != nil {
		return fmt.Errorf("tmp102: writing configuration: %w", err)
	}
	return nil
}

// countToTemperature converts the raw device count to a temperature.
// The count is 12 bits, left justified in the register pair; negative
// values are two's complement, so bit 11 is sign-extended before
// scaling by 0.0625°C per LSB.
func countToTemperature(bytes []byte) physic.Temperature {
	count := uint16(bytes[0])<<4 | uint16(bytes[1])>>4
	if count&(1<<11) != 0 {
		count |= 0xF000
	}
	return physic.ZeroCelsius + physic.Temperature(int16(count))*resolution
}

// Sense reads the temperature from the device and writes the value to
// the specified env variable. Implements physic.SenseEnv. Every call is
// an independent register read.
func (d *Dev) Sense(env *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := make([]byte, 2)
	if err := d.d.Tx([]byte{regTemperature}, r); err != nil {
		return fmt.Errorf("tmp102: reading temperature: %w", err)
	}
	env.Temperature = countToTemperature(r)
	return nil
}

// SenseContinuous continuously reads from the device and writes the
// value to the returned channel. Implements physic.SenseEnv. To
// terminate the continuous read, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	// The device converts at most 8 times per second.
	if interval < 125*time.Millisecond {
		return nil, errors.New("tmp102: minimum interval is 125ms")
	}
	d.mu.Lock()
	if d.stop != nil {
		d.mu.Unlock()
		return nil, errors.New("tmp102: already sensing continuously")
	}
	d.stop = make(chan struct{})
	d.wg.Add(1)
	d.mu.Unlock()

	sensing := make(chan physic.Env, 16)
	go func(stop <-chan struct{}) {
		defer d.wg.Done()
		defer close(sensing)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e := physic.Env{}
				if err := d.Sense(&e); err == nil && len(sensing) < cap(sensing) {
					sensing <- e
				}
			}
		}
	}(d.stop)
	return sensing, nil
}

// Precision returns the sensor's precision, or minimum value between
// steps the device can make. The specified precision is 0.0625 degrees
// Celsius. Note that the accuracy of the device is +/- 0.5 degrees
// Celsius.
func (d *Dev) Precision(env *physic.Env) {
	env.Temperature = resolution
	env.Pressure = 0
	env.Humidity = 0
}

// Halt stops a SenseContinuous operation and puts the device into
// shutdown mode. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
		d.stop = nil
	}
	r := make([]byte, 2)
	if err := d.d.Tx([]byte{regConfiguration}, r); err != nil {
		return fmt.Errorf("tmp102: reading configuration: %w", err)
	}
	config := uint16(r[0])<<8 | uint16(r[1])
	config |= 1 << shutdownBit
	if err := d.d.Tx([]byte{regConfiguration, byte(config >> 8), byte(config)}, nil); err != nil {
		return fmt.Errorf("tmp102: writing configuration: %w", err)
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("tmp102: %s", d.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
