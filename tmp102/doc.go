// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// tmp102 provides a package for interfacing a Texas Instruments TMP102 I2C
// temperature sensor. This driver is also compatible with the TMP112 and
// TMP75 sensors.
//
// Each reading is an independent pointer-register read of the 12-bit
// two's-complement temperature count; the driver keeps no measurement
// state between calls.
//
// Range: -40°C - 125°C
//
// Accuracy: +/- 0.5°C
//
// Resolution: 0.0625°C
//
// For detailed information, refer to the [datasheet].
//
// [datasheet]: https://www.ti.com/lit/ds/symlink/tmp102.pdf
package tmp102
