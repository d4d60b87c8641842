// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the Bosch BMP280 barometric
// pressure and temperature sensor.
//
// The chip returns raw ADC codes that are meaningless without the
// per-device calibration coefficients burned into its NVM, so
// LoadCalibration must be called once after construction and before the
// first reading. Pressure compensation depends on a temperature value
// sampled at the same instant; the driver always takes a fresh
// temperature sample before computing pressure.
//
// Datasheet
//
//	https://www.bosch-sensortec.com/media/boschsensortec/downloads/datasheets/bst-bmp280-ds001.pdf
package bmp280
