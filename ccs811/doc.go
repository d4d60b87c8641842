// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// This package provides a driver for the ams CCS811 digital gas sensor,
// which reports equivalent CO2 and total volatile organic compounds.
//
// The chip boots into a bootloader and needs an explicit bring-up
// sequence before it produces data: software reset, hardware ID check,
// application start and a status verification. Begin runs the whole
// sequence; a failure at any step leaves the device faulted and Begin
// must be retried from scratch. After Begin, Start selects the sampling
// interval and the first valid reading is only available once that
// interval has elapsed.
//
// Datasheet
//
//	https://cdn.sparkfun.com/assets/2/c/c/6/5/CN04-2019_attachment_CCS811_Datasheet_v1-06.pdf
package ccs811
