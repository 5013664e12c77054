// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.
//
// lm75 provides a package for interfacing a National Semiconductor LM75 I2C
// temperature sensor and thermal watchdog. The driver also works with the
// many software compatible parts such as the LM75A, TMP75 and STLM75.
//
// Range: -55°C - 125°C
//
// Accuracy: +/- 2°C
//
// Resolution: 0.5°C
//
// The device converts continuously and compares each result against its
// setpoint and hysteresis registers to drive the OS output pin, so it keeps
// watching the temperature even when no host is polling it.
//
// For detailed information, refer to the [datasheet].
//
// A [command line example] is available in github.com/hardwarelibs/devices/cmd/lm75
//
// [datasheet]: https://www.ti.com/lit/ds/symlink/lm75a.pdf
// [command line example]: https://github.com/hardwarelibs/devices/tree/main/cmd/lm75
package lm75
