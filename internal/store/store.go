// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package store persists temperature samples to an embedded key/value
// database so charts and the HTTP API can look back past process restarts.
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested sample does not exist in the log.
var ErrNotFound = errors.New("not found")

// Sample is one recorded temperature reading.
type Sample struct {
	// Time is when the reading was taken.
	Time time.Time `json:"time"`
	// Celsius is the decoded temperature.
	Celsius float64 `json:"celsius"`
	// Raw is the sensor register word the temperature decodes from.
	Raw uint16 `json:"raw"`
}
