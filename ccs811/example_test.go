//go:build examples
// +build examples

// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package ccs811_test

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/envsense/devices/ccs811"
	"periph.io/x/conn/v3/i2c/i2creg"
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

	d, err := ccs811.NewI2C(b, ccs811.SensorAddress0)
	if err != nil {
		log.Fatal(err)
	}
	if err := d.Begin(); err != nil {
		log.Fatalf("failed to initialize CCS811: %v", err)
	}
	if err := d.Start(ccs811.ModeEverySecond); err != nil {
		log.Fatal(err)
	}

	// The first valid sample is only available after the sampling
	// interval has elapsed.
	time.Sleep(time.Second)
	data, err := d.Read()
	var outOfRange *ccs811.OutOfRangeError
	if errors.As(err, &outOfRange) {
		log.Printf("sensor still warming up: %v", err)
	} else if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("%8s %8s\n", data.ECO2, data.TVOC)
}
