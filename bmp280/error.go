// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280

import "fmt"

// NotCalibratedError is returned by readings attempted before
// LoadCalibration has run. The raw ADC codes are meaningless without the
// chip's coefficients, so there is no usable default.
type NotCalibratedError struct{}

func (e *NotCalibratedError) Error() string {
	return "bmp280: calibration not loaded, call LoadCalibration first"
}

// UnexpectedChipIDError is returned when the device at the configured
// address does not identify as a BMP280.
type UnexpectedChipIDError struct {
	Got byte
}

func (e *UnexpectedChipIDError) Error() string {
	return fmt.Sprintf("bmp280: unexpected chip ID %#02x, want %#02x", e.Got, chipID)
}
