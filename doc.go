// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devices is a container for environmental sensor drivers: the
// Bosch BMP280 pressure/temperature sensor, the ams CCS811 air quality
// sensor and the Texas Instruments TMP102 temperature sensor.
package devices
