//go:build examples
// +build examples

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package bmp280_test

import (
	"fmt"
	"log"

	"github.com/envsense/devices/bmp280"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

func Example() {
	// Make sure periph is initialized.
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}

	// Use i2creg I²C bus registry to find the first available I²C bus.
	b, err := i2creg.Open("")
	if err != nil {
		log.Fatalf("failed to open I²C: %v", err)
	}
	defer b.Close()

	d, err := bmp280.NewI2C(b, bmp280.DefaultSensorAddress, nil)
	if err != nil {
		log.Fatalf("failed to initialize BMP280: %v", err)
	}
	if err := d.LoadCalibration(); err != nil {
		log.Fatal(err)
	}

	e := physic.Env{}
	if err := d.Sense(&e); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%8s %10s\n", e.Temperature, e.Pressure)
}
