// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// MeasurementMode selects the sampling interval of the sensor.
type MeasurementMode byte

const (
	ModeIdle MeasurementMode = iota
	// One measurement per second.
	ModeEverySecond
	// One measurement every 10 seconds.
	ModeEvery10Seconds
	// One measurement every 60 seconds.
	ModeEvery60Seconds
)

const (
	// The two bus addresses the chip can be strapped to.
	SensorAddress0 uint16 = 0x5A
	SensorAddress1 uint16 = 0x5B
)

const (
	regStatus        byte = 0x00
	regMeasMode      byte = 0x01
	regAlgResultData byte = 0x02 // 8 bytes
	regEnvData       byte = 0x05 // 4 bytes
	regBaseline      byte = 0x11 // 2 bytes
	regHWID          byte = 0x20
	regHWVersion     byte = 0x21
	regFWBootVersion byte = 0x23 // 2 bytes
	regFWAppVersion  byte = 0x24 // 2 bytes
	regError         byte = 0xE0
	regAppErase      byte = 0xF1 // 4 byte key
	regAppStart      byte = 0xF4 // bare write
	regSWReset       byte = 0xFF // 4 byte key

	hardwareID byte = 0x81

	// STATUS register bits.
	statusAppMode   byte = 0x80 // else boot mode
	statusAppErase  byte = 0x40 // else no erase completed
	statusAppVerify byte = 0x20 // else no verify completed
	statusAppValid  byte = 0x10 // else no valid app firmware loaded
	statusError     byte = 0x01

	// ERROR_ID register bits.
	errWriteRegInvalid byte = 0x01
	errReadRegInvalid  byte = 0x02
	errMeasModeInvalid byte = 0x04
	errMaxResistance   byte = 0x08
	errHeaterFault     byte = 0x10
	errHeaterSupply    byte = 0x20
)

var (
	resetKey = []byte{0x11, 0xE5, 0x72, 0x8A}
	eraseKey = []byte{0xE7, 0xA7, 0xE6, 0x09}
)

// Mandatory settle times from the datasheet. Shortening them risks
// reading undefined chip state.
const (
	resetSettle    = 2 * time.Millisecond
	appStartSettle = 1 * time.Millisecond
	eraseSettle    = 500 * time.Millisecond
)

// deviceState tracks the bring-up lifecycle. Operations that need a
// running application are rejected unless the state is stateReady.
type deviceState int

const (
	stateBoot deviceState = iota
	stateResetting
	stateAwaitingHardwareID
	stateAppStarting
	stateVerifyingStatus
	stateReady
	stateFaulted
)

func (s deviceState) String() string {
	switch s {
	case stateBoot:
		return "boot"
	case stateResetting:
		return "resetting"
	case stateAwaitingHardwareID:
		return "awaiting hardware ID"
	case stateAppStarting:
		return "app starting"
	case stateVerifyingStatus:
		return "verifying status"
	case stateReady:
		return "ready"
	case stateFaulted:
		return "faulted"
	}
	return "unknown"
}

// CO2 represents an equivalent CO2 value in ppm.
type CO2 uint16

func (c CO2) String() string {
	return strconv.Itoa(int(c)) + "ppm"
}

// TVOC represents a total volatile organic compounds value in ppb.
type TVOC uint16

func (t TVOC) String() string {
	return strconv.Itoa(int(t)) + "ppb"
}

// Plausibility limits of the sensing algorithm.
const (
	minECO2 CO2  = 400
	maxECO2 CO2  = 8192
	maxTVOC TVOC = 1187
)

// Data is one measurement from the ALG_RESULT_DATA register. Raw keeps
// the full 8-byte register capture for diagnostics: bytes 4 and 5 are
// the status and error ID at sampling time, bytes 6 and 7 the raw
// current/ADC reading.
type Data struct {
	ECO2 CO2
	TVOC TVOC
	Raw  [8]byte
}

// ErrorRegister is the decoded ERROR_ID register.
type ErrorRegister struct {
	WriteRegInvalid bool
	ReadRegInvalid  bool
	MeasModeInvalid bool
	MaxResistance   bool
	HeaterFault     bool
	HeaterSupply    bool
}

// Dev represents a CCS811 sensor.
type Dev struct {
	d *i2c.Dev

	mu    sync.Mutex
	state deviceState
}

// NewI2C returns a new CCS811 using the specified bus and address. The
// address must be SensorAddress0 or SensorAddress1 depending on how the
// ADDR pin is strapped. The device is not usable until Begin has run.
func NewI2C(b i2c.Bus, addr uint16) (*Dev, error) {
	if addr != SensorAddress0 && addr != SensorAddress1 {
		return nil, fmt.Errorf("ccs811: address must be %#02x or %#02x, got %#02x", SensorAddress0, SensorAddress1, addr)
	}
	return &Dev{d: &i2c.Dev{Bus: b, Addr: addr}, state: stateBoot}, nil
}

// Begin drives the chip from power-on to a running application: soft
// reset, hardware ID check, application start and status verification.
// Any failure leaves the device faulted; Begin may then be retried from
// scratch, no partial progress survives.
func (d *Dev) Begin() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.state = stateResetting
	if err := d.reset(); err != nil {
		d.state = stateFaulted
		return err
	}
	d.state = stateAwaitingHardwareID
	if err := d.checkHardwareID(); err != nil {
		d.state = stateFaulted
		return err
	}
	d.state = stateAppStarting
	if err := d.appStart(); err != nil {
		d.state = stateFaulted
		return err
	}
	d.state = stateVerifyingStatus
	if err := d.checkStatus(statusAppMode | statusAppVerify); err != nil {
		d.state = stateFaulted
		return err
	}
	d.state = stateReady
	return nil
}

func (d *Dev) reset() error {
	if err := d.d.Tx(append([]byte{regSWReset}, resetKey...), nil); err != nil {
		return fmt.Errorf("ccs811: soft reset: %w", err)
	}
	time.Sleep(resetSettle)
	return nil
}

func (d *Dev) checkHardwareID() error {
	id, err := d.readByte(regHWID)
	if err != nil {
		return fmt.Errorf("ccs811: reading hardware ID: %w", err)
	}
	if id != hardwareID {
		return &UnexpectedHardwareIDError{Got: id}
	}
	return nil
}

func (d *Dev) appStart() error {
	// APP_START is a bare register write with no payload.
	if err := d.d.Tx([]byte{regAppStart}, nil); err != nil {
		return fmt.Errorf("ccs811: application start: %w", err)
	}
	time.Sleep(appStartSettle)
	return nil
}

func (d *Dev) checkStatus(required byte) error {
	status, err := d.readByte(regStatus)
	if err != nil {
		return fmt.Errorf("ccs811: reading status: %w", err)
	}
	if status&required != required {
		return &StatusMismatchError{Expected: required, Actual: status}
	}
	return nil
}

// Start selects the sampling interval by writing the measurement mode
// register. The first valid reading is only available after the
// selected interval has elapsed; earlier reads are not authoritative.
// The datasheet also asks for 10 minutes in ModeIdle before switching
// to a slower sampling rate.
func (d *Dev) Start(mode MeasurementMode) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return &NotReadyError{State: d.state.String()}
	}
	if err := d.d.Tx([]byte{regMeasMode, byte(mode) << 4}, nil); err != nil {
		return fmt.Errorf("ccs811: setting measurement mode: %w", err)
	}
	return nil
}

// Read returns the last sampled measurement. Values outside the
// algorithm's plausible range (400-8192ppm, 0-1187ppb) are returned
// together with an OutOfRangeError; this is typically a chip that is
// still warming up and callers may log and continue.
func (d *Dev) Read() (Data, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return Data{}, &NotReadyError{State: d.state.String()}
	}
	buf := make([]byte, 8)
	if err := d.d.Tx([]byte{regAlgResultData}, buf); err != nil {
		return Data{}, fmt.Errorf("ccs811: reading measurement: %w", err)
	}
	var data Data
	copy(data.Raw[:], buf)
	data.ECO2 = CO2(binary.BigEndian.Uint16(buf[0:2]))
	data.TVOC = TVOC(binary.BigEndian.Uint16(buf[2:4]))
	if buf[5] != 0 {
		return data, fmt.Errorf("ccs811: device reported error ID %#02x with measurement", buf[5])
	}
	if data.ECO2 < minECO2 || data.ECO2 > maxECO2 || data.TVOC > maxTVOC {
		return data, &OutOfRangeError{ECO2: data.ECO2, TVOC: data.TVOC}
	}
	return data, nil
}

// CheckError reads the status register and, only if its error bit is
// set, fetches and decodes the error register. A clear error bit
// returns an all-false record without the second bus exchange.
func (d *Dev) CheckError() (ErrorRegister, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var reg ErrorRegister
	status, err := d.readByte(regStatus)
	if err != nil {
		return reg, fmt.Errorf("ccs811: reading status: %w", err)
	}
	if status&statusError == 0 {
		return reg, nil
	}
	id, err := d.readByte(regError)
	if err != nil {
		return reg, fmt.Errorf("ccs811: reading error register: %w", err)
	}
	reg.WriteRegInvalid = id&errWriteRegInvalid != 0
	reg.MeasModeInvalid = id&errMeasModeInvalid != 0
	reg.MaxResistance = id&errMaxResistance != 0
	reg.HeaterFault = id&errHeaterFault != 0
	// ReadRegInvalid and HeaterSupply are documented fault bits this
	// driver does not decode; they always read false.
	return reg, nil
}

// Baseline returns the chip's adaptive baseline correction value as a
// raw 16-bit pass-through, SMBus word order.
func (d *Dev) Baseline() (uint16, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return 0, &NotReadyError{State: d.state.String()}
	}
	r := make([]byte, 2)
	if err := d.d.Tx([]byte{regBaseline}, r); err != nil {
		return 0, fmt.Errorf("ccs811: reading baseline: %w", err)
	}
	return uint16(r[0]) | uint16(r[1])<<8, nil
}

// SetBaseline restores a previously saved baseline. The chip corrects
// its baseline automatically on a 24 hour interval; setting it manually
// shortcuts the warm-up after a power cycle.
func (d *Dev) SetBaseline(baseline uint16) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return &NotReadyError{State: d.state.String()}
	}
	if err := d.d.Tx([]byte{regBaseline, byte(baseline), byte(baseline >> 8)}, nil); err != nil {
		return fmt.Errorf("ccs811: writing baseline: %w", err)
	}
	return nil
}

// encodeEnvValue packs a humidity or temperature value into the chip's
// 2-byte fixed-point format: 7 integer bits, then 9 fraction bits with
// 1/512 resolution. Values outside [0, 128) are not representable and
// are an error, not clamped.
func encodeEnvValue(v float64) ([2]byte, error) {
	if v < 0 || v >= 128 || math.IsNaN(v) {
		return [2]byte{}, &EnvDataRangeError{Value: v}
	}
	base := math.Floor(v)
	frac := uint16((v - base) * 512)
	if frac > 511 {
		frac = 511
	}
	hi := byte(base)<<1 | byte(frac>>8)
	lo := byte(frac)
	return [2]byte{hi, lo}, nil
}

// SetEnvironmentData uploads externally measured relative humidity (%)
// and temperature (degrees Celsius) so the chip can include them in its
// compensation. Both values must be in [0, 128).
func (d *Dev) SetEnvironmentData(humidity, temperature float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return &NotReadyError{State: d.state.String()}
	}
	h, err := encodeEnvValue(humidity)
	if err != nil {
		return err
	}
	t, err := encodeEnvValue(temperature)
	if err != nil {
		return err
	}
	w := []byte{regEnvData, h[0], h[1], t[0], t[1]}
	if err := d.d.Tx(w, nil); err != nil {
		return fmt.Errorf("ccs811: writing environment data: %w", err)
	}
	return nil
}

// HardwareVersion returns the hardware version byte, 0x1X for this chip
// generation.
func (d *Dev) HardwareVersion() (byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, err := d.readByte(regHWVersion)
	if err != nil {
		return 0, fmt.Errorf("ccs811: reading hardware version: %w", err)
	}
	return v, nil
}

// BootloaderVersion returns the two firmware bootloader version bytes.
func (d *Dev) BootloaderVersion() ([2]byte, error) {
	return d.readVersion(regFWBootVersion)
}

// ApplicationVersion returns the two application firmware version
// bytes.
func (d *Dev) ApplicationVersion() ([2]byte, error) {
	return d.readVersion(regFWAppVersion)
}

func (d *Dev) readVersion(reg byte) ([2]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	r := make([]byte, 2)
	if err := d.d.Tx([]byte{reg}, r); err != nil {
		return [2]byte{}, fmt.Errorf("ccs811: reading register %#02x: %w", reg, err)
	}
	return [2]byte{r[0], r[1]}, nil
}

// EraseApplication erases the application firmware, for instance before
// flashing a newer one. The chip falls back to the bootloader, so a new
// Begin is required afterwards. The wait is longer than the datasheet's
// 300ms, which proved insufficient on real hardware.
func (d *Dev) EraseApplication() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.d.Tx(append([]byte{regAppErase}, eraseKey...), nil); err != nil {
		return fmt.Errorf("ccs811: erasing application: %w", err)
	}
	time.Sleep(eraseSettle)
	d.state = stateBoot
	return nil
}

// Halt puts the sensor back into idle mode. Implements conn.Resource.
func (d *Dev) Halt() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateReady {
		return nil
	}
	if err := d.d.Tx([]byte{regMeasMode, byte(ModeIdle) << 4}, nil); err != nil {
		return fmt.Errorf("ccs811: setting measurement mode: %w", err)
	}
	return nil
}

func (d *Dev) readByte(reg byte) (byte, error) {
	r := make([]byte, 1)
	if err := d.d.Tx([]byte{reg}, r); err != nil {
		return 0, err
	}
	return r[0], nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ccs811: %s", d.d.String())
}

var _ conn.Resource = &Dev{}
