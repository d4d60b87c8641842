// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// Oversampling selects how many raw samples the chip averages per
// measurement. Higher values reduce noise at the cost of conversion time.
type Oversampling byte

const (
	OversamplingOff Oversampling = iota
	Oversampling1x
	Oversampling2x
	Oversampling4x
	Oversampling8x
	Oversampling16x
)

// Mode is the chip power mode written to the ctrl_meas register.
type Mode byte

const (
	Sleep  Mode = 0
	Forced Mode = 1
	Normal Mode = 3
)

// Standby is the inactive period between measurements in Normal mode.
type Standby byte

const (
	StandbyHalfMs Standby = iota
	Standby62ms
	Standby125ms
	Standby250ms
	Standby500ms
	Standby1s
	Standby2s
	Standby4s
)

// Filter selects the IIR filter coefficient.
type Filter byte

const (
	FilterOff Filter = iota
	Filter2
	Filter4
	Filter8
	Filter16
)

const (
	// The default i2c bus address for this device. Some breakouts strap
	// SDO high and respond at 0x77 instead.
	DefaultSensorAddress uint16 = 0x76

	regCalibration byte = 0x88
	regChipID      byte = 0xD0
	regSoftReset   byte = 0xE0
	regStatus      byte = 0xF3
	regCtrlMeas    byte = 0xF4
	regConfig      byte = 0xF5
	regPressure    byte = 0xF7
	regTemperature byte = 0xFA

	chipID       byte = 0x58
	softResetKey byte = 0xB6
)

// Opts holds the measurement configuration written at construction.
type Opts struct {
	Temperature Oversampling
	Pressure    Oversampling
	Standby     Standby
	Filter      Filter
	Mode        Mode
}

// DefaultOpts is the recommended indoor navigation setting from the
// datasheet, minus the IIR filter.
var DefaultOpts = Opts{
	Temperature: Oversampling2x,
	Pressure:    Oversampling16x,
	Standby:     Standby500ms,
	Filter:      FilterOff,
	Mode:        Normal,
}

// calibration holds the 12 compensation coefficients read from NVM.
// dig_t1 and dig_p1 are unsigned, the rest are signed.
type calibration struct {
	t1         uint16
	t2, t3     int16
	p1         uint16
	p2, p3, p4 int16
	p5, p6, p7 int16
	p8, p9     int16
}

// newCalibration decodes the raw 24-byte little-endian register block
// starting at 0x88.
func newCalibration(b []byte) calibration {
	return calibration{
		t1: binary.LittleEndian.Uint16(b[0:2]),
		t2: int16(binary.LittleEndian.Uint16(b[2:4])),
		t3: int16(binary.LittleEndian.Uint16(b[4:6])),
		p1: binary.LittleEndian.Uint16(b[6:8]),
		p2: int16(binary.LittleEndian.Uint16(b[8:10])),
		p3: int16(binary.LittleEndian.Uint16(b[10:12])),
		p4: int16(binary.LittleEndian.Uint16(b[12:14])),
		p5: int16(binary.LittleEndian.Uint16(b[14:16])),
		p6: int16(binary.LittleEndian.Uint16(b[16:18])),
		p7: int16(binary.LittleEndian.Uint16(b[18:20])),
		p8: int16(binary.LittleEndian.Uint16(b[20:22])),
		p9: int16(binary.LittleEndian.Uint16(b[22:24])),
	}
}

// compensateTemperature applies the datasheet's integer temperature
// formula to a raw 20-bit ADC code. It returns the temperature and the
// t_fine intermediate needed by compensatePressure. All arithmetic is
// int32 to match the datasheet's rounding exactly.
func (c *calibration) compensateTemperature(raw int32) (physic.Temperature, int32) {
	var1 := (((raw >> 3) - (int32(c.t1) << 1)) * int32(c.t2)) >> 11
	var2 := (((((raw >> 4) - int32(c.t1)) * ((raw >> 4) - int32(c.t1))) >> 12) * int32(c.t3)) >> 14
	tFine := var1 + var2
	// Centi-degrees Celsius.
	t := (tFine*5 + 128) >> 8
	return physic.ZeroCelsius + physic.Temperature(t)*10*physic.MilliKelvin, tFine
}

// compensatePressure applies the datasheet's 64-bit integer pressure
// formula. tFine must come from a temperature sample taken at the same
// instant. A zero first-stage denominator means the calibration is
// degenerate; the datasheet defines the result as 0 in that case.
func (c *calibration) compensatePressure(raw int32, tFine int32) physic.Pressure {
	var1 := int64(tFine) - 128000
	var2 := var1 * var1 * int64(c.p6)
	var2 += (var1 * int64(c.p5)) << 17
	var2 += int64(c.p4) << 35
	var1 = ((var1 * var1 * int64(c.p3)) >> 8) + ((var1 * int64(c.p2)) << 12)
	var1 = ((int64(1) << 47) + var1) * int64(c.p1) >> 33
	if var1 == 0 {
		return 0
	}
	p := int64(1048576) - int64(raw)
	p = (((p << 31) - var2) * 3125) / var1
	var1 = (int64(c.p9) * (p >> 13) * (p >> 13)) >> 25
	var2 = (int64(c.p8) * p) >> 19
	// Q24.8 Pascal.
	p = ((p + var1 + var2) >> 8) + (int64(c.p7) << 4)
	return physic.Pressure(p) * (physic.Pascal / 256)
}

// Dev represents a BMP280 sensor.
type Dev struct {
	d    *i2c.Dev
	opts Opts

	mu         sync.Mutex
	cal        calibration
	calibrated bool
	// t_fine from the most recent temperature compensation. Only valid
	// for a pressure computation in the same sampling instant.
	tFine int32
	stop  chan struct{}
	wg    sync.WaitGroup
}

// NewI2C returns a new BMP280 using the specified bus and address. The
// chip identity is verified, then the chip is soft-reset and configured
// from opts. The caller must call LoadCalibration before the first
// reading.
func NewI2C(b i2c.Bus, addr uint16, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, opts: *opts}
	if err := d.start(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dev) start() error {
	r := make([]byte, 1)
	if err := d.d.Tx([]byte{regChipID}, r); err != nil {
		return fmt.Errorf("bmp280: reading chip ID: %w", err)
	}
	if r[0] != chipID {
		return &UnexpectedChipIDError{Got: r[0]}
	}
	if err := d.d.Tx([]byte{regSoftReset, softResetKey}, nil); err != nil {
		return fmt.Errorf("bmp280: soft reset: %w", err)
	}
	// Datasheet start-up time after reset.
	time.Sleep(2 * time.Millisecond)
	config := byte(d.opts.Standby)<<5 | byte(d.opts.Filter)<<2
	if err := d.d.Tx([]byte{regConfig, config}, nil); err != nil {
		return fmt.Errorf("bmp280: writing config: %w", err)
	}
	ctrl := byte(d.opts.Temperature)<<5 | byte(d.opts.Pressure)<<2 | byte(d.opts.Mode)
	if err := d.d.Tx([]byte{regCtrlMeas, ctrl}, nil); err != nil {
		return fmt.Errorf("bmp280: writing ctrl_meas: %w", err)
	}
	return nil
}

// LoadCalibration reads the compensation coefficients from the chip's
// NVM. It must be called exactly once before the first reading; readings
// attempted beforehand fail with NotCalibratedError.
func (d *Dev) LoadCalibration() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	raw := make([]byte, 24)
	if err := d.d.Tx([]byte{regCalibration}, raw); err != nil {
		return fmt.Errorf("bmp280: reading calibration: %w", err)
	}
	d.cal = newCalibration(raw)
	d.calibrated = true
	return nil
}

// readRaw reads one 3-byte data register and assembles the 20-bit ADC
// code.
func (d *Dev) readRaw(reg byte) (int32, error) {
	r := make([]byte, 3)
	if err := d.d.Tx([]byte{reg}, r); err != nil {
		return 0, fmt.Errorf("bmp280: reading register %#02x: %w", reg, err)
	}
	return int32(r[0])<<12 | int32(r[1])<<4 | int32(r[2])>>4, nil
}

// senseTemperature samples temperature and refreshes t_fine. Callers
// must hold d.mu.
func (d *Dev) senseTemperature() (physic.Temperature, error) {
	if !d.calibrated {
		return 0, &NotCalibratedError{}
	}
	raw, err := d.readRaw(regTemperature)
	if err != nil {
		return 0, err
	}
	t, tFine := d.cal.compensateTemperature(raw)
	d.tFine = tFine
	return t, nil
}

// SenseTemperature returns the compensated temperature.
func (d *Dev) SenseTemperature() (physic.Temperature, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.senseTemperature()
}

// SensePressure returns the compensated pressure. A fresh temperature
// sample is always taken first because the pressure formula depends on
// the temperature at the same sampling instant.
func (d *Dev) SensePressure() (physic.Pressure, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.senseTemperature(); err != nil {
		return 0, err
	}
	raw, err := d.readRaw(regPressure)
	if err != nil {
		return 0, err
	}
	return d.cal.compensatePressure(raw, d.tFine), nil
}

// Sense reads temperature and pressure from the device and writes the
// values to env. Implements physic.SenseEnv.
func (d *Dev) Sense(env *physic.Env) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	t, err := d.senseTemperature()
	if err != nil {
		return err
	}
	raw, err := d.readRaw(regPressure)
	if err != nil {
		return err
	}
	env.Temperature = t
	env.Pressure = d.cal.compensatePressure(raw, d.tFine)
	return nil
}

// SenseContinuous continuously reads from the device and writes the
// values to the returned channel. Implements physic.SenseEnv. To
// terminate the continuous read, call Halt().
func (d *Dev) SenseContinuous(interval time.Duration) (<-chan physic.Env, error) {
	if interval < 125*time.Millisecond {
		return nil, errors.New("bmp280: minimum interval is 125ms")
	}
	d.mu.Lock()
	if !d.calibrated {
		d.mu.Unlock()
		return nil, &NotCalibratedError{}
	}
	if d.stop != nil {
		d.mu.Unlock()
		return nil, errors.New("bmp280: already sensing continuously")
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

// Precision returns the smallest step the compensated outputs can
// resolve. Implements physic.SenseEnv.
func (d *Dev) Precision(env *physic.Env) {
	// Temperature is reported in centi-degrees, pressure in 1/256 Pa.
	env.Temperature = 10 * physic.MilliKelvin
	env.Pressure = physic.Pascal / 256
	env.Humidity = 0
}

// Halt stops a SenseContinuous operation and puts the chip to sleep.
// Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		close(d.stop)
		d.wg.Wait()
		d.stop = nil
	}
	ctrl := byte(d.opts.Temperature)<<5 | byte(d.opts.Pressure)<<2 | byte(Sleep)
	if err := d.d.Tx([]byte{regCtrlMeas, ctrl}, nil); err != nil {
		return fmt.Errorf("bmp280: writing ctrl_meas: %w", err)
	}
	return nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("bmp280: %s", d.d.String())
}

var _ conn.Resource = &Dev{}
var _ physic.SenseEnv = &Dev{}
