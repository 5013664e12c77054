// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package devices holds the LM75 temperature sensor driver and the tooling
// built around it.
//
// The driver itself lives in the lm75 package. The cmd tree carries the
// command line tools: lm75 to read and configure a sensor, lm75d to record
// and publish readings, lm75top to watch them live and lm75chart to plot
// what lm75d recorded.
package devices
