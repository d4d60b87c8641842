// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package tmp102

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/i2c/i2ctest"
	"periph.io/x/conn/v3/physic"
)

const addr = DefaultSensorAddress

// Configuration exchanges performed by NewI2C with DefaultOpts: read
// the configuration word, clear shutdown, set a 4Hz conversion rate.
func configOps() []i2ctest.IO {
	return []i2ctest.IO{
		{Addr: addr, W: []byte{regConfiguration}, R: []byte{0x00, 0x00}},
		{Addr: addr, W: []byte{regConfiguration, 0x00, 0x80}},
	}
}

// A set of counts, and the expected temperature value. Negative
// readings exercise the two's-complement sign extension from bit 11.
var conversions = []struct {
	bits     []byte
	expected physic.Temperature
}{
	{[]byte{0x64, 0x00}, physic.ZeroCelsius + 100*physic.Kelvin},
	{[]byte{0x19, 0x00}, physic.ZeroCelsius + 25*physic.Kelvin},
	{[]byte{0x19, 0x10}, physic.ZeroCelsius + 25*physic.Kelvin + 62_500*physic.MicroKelvin},
	{[]byte{0x00, 0x00}, physic.ZeroCelsius},
	{[]byte{0xF0, 0x00}, physic.ZeroCelsius - 16*physic.Kelvin},
	{[]byte{0xE7, 0x00}, physic.ZeroCelsius - 25*physic.Kelvin},
	{[]byte{0xC9, 0x00}, physic.ZeroCelsius - 55*physic.Kelvin},
}

func TestSense(t *testing.T) {
	ops := configOps()
	for _, test := range conversions {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{regTemperature}, R: test.bits})
	}
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	defer pb.Close()

	dev, err := NewI2C(pb, addr, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, test := range conversions {
		e := physic.Env{}
		if err := dev.Sense(&e); err != nil {
			t.Fatal(err)
		}
		if e.Temperature != test.expected {
			t.Errorf("count % x: read %.4f, expected %.4f", test.bits, e.Temperature.Celsius(), test.expected.Celsius())
		}
	}
}

func TestSenseContinuous(t *testing.T) {
	ops := configOps()
	for _, test := range conversions[:2] {
		ops = append(ops, i2ctest.IO{Addr: addr, W: []byte{regTemperature}, R: test.bits})
	}
	// Halt reads the configuration back and sets the shutdown bit.
	ops = append(ops,
		i2ctest.IO{Addr: addr, W: []byte{regConfiguration}, R: []byte{0x00, 0x80}},
		i2ctest.IO{Addr: addr, W: []byte{regConfiguration, 0x01, 0x80}},
	)
	pb := &i2ctest.Playback{Ops: ops, DontPanic: true}
	defer pb.Close()

	dev, err := NewI2C(pb, addr, nil)
	if err != nil {
		t.Fatal(err)
	}
	ch, err := dev.SenseContinuous(125 * time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	for count := 0; count < 2; count++ {
		env := <-ch
		if env.Temperature != conversions[count].expected {
			t.Errorf("read %.4f, expected %.4f", env.Temperature.Celsius(), conversions[count].expected.Celsius())
		}
	}
	if err := dev.Halt(); err != nil {
		t.Error(err)
	}
}

func TestSenseContinuousInterval(t *testing.T) {
	pb := &i2ctest.Playback{Ops: configOps(), DontPanic: true}
	defer pb.Close()
	dev, err := NewI2C(pb, addr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := dev.SenseContinuous(10 * time.Millisecond); err == nil {
		t.Error("accepted an interval faster than the device converts")
	}
}

func TestPrecision(t *testing.T) {
	pb := &i2ctest.Playback{Ops: configOps(), DontPanic: true}
	defer pb.Close()
	dev, err := NewI2C(pb, addr, nil)
	if err != nil {
		t.Fatal(err)
	}
	e := physic.Env{}
	dev.Precision(&e)
	if e.Temperature != resolution {
		t.Errorf("precision = %d, want %d", e.Temperature, resolution)
	}
}

func TestString(t *testing.T) {
	pb := &i2ctest.Playback{Ops: configOps(), DontPanic: true}
	defer pb.Close()
	dev, err := NewI2C(pb, addr, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s := dev.String(); len(s) == 0 {
		t.Error("invalid String() result")
	}
}
