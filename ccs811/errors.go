// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811

import "fmt"

// UnexpectedHardwareIDError is returned by Begin when the device at the
// configured address does not identify as a CCS811.
type UnexpectedHardwareIDError struct {
	Got byte
}

func (e *UnexpectedHardwareIDError) Error() string {
	return fmt.Sprintf("ccs811: unexpected hardware ID %#02x, want %#02x", e.Got, hardwareID)
}

// StatusMismatchError is returned by Begin when the status register is
// missing required bits after the application start.
type StatusMismatchError struct {
	Expected byte
	Actual   byte
}

func (e *StatusMismatchError) Error() string {
	return fmt.Sprintf("ccs811: status %#08b does not have required bits %#08b", e.Actual, e.Expected)
}

// NotReadyError is returned by operations that need a running
// application while the device has not completed Begin, or is faulted.
type NotReadyError struct {
	State string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("ccs811: device is %s, not ready", e.State)
}

// OutOfRangeError reports a measurement outside the algorithm's
// plausible output range. The measurement is returned alongside it;
// this usually means the sensor is still warming up and is not fatal.
type OutOfRangeError struct {
	ECO2 CO2
	TVOC TVOC
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("ccs811: reading out of range: %s, %s", e.ECO2, e.TVOC)
}

// EnvDataRangeError reports a humidity or temperature value that does
// not fit the chip's 7.9 fixed-point environment format.
type EnvDataRangeError struct {
	Value float64
}

func (e *EnvDataRangeError) Error() string {
	return fmt.Sprintf("ccs811: environment value %v outside [0, 128)", e.Value)
}
