// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package history keeps an in-memory ring of recent temperature readings
// with running minimum, peak and average statistics.
package history

import (
	"sync"
	"time"

	"periph.io/x/conn/v3/physic"
)

// Point is a single reading in the ring.
type Point struct {
	Temperature physic.Temperature
	Time        time.Time
}

// Ring stores the most recent readings of a sensor. Once full, each new
// reading evicts the oldest one. The minimum and peak cover everything ever
// pushed, not just the surviving window. Safe for concurrent use.
type Ring struct {
	mu       sync.RWMutex
	points   []Point
	capacity int
	min      physic.Temperature
	peak     physic.Temperature
	seen     bool
}

// New returns a ring holding up to capacity readings.
func New(capacity int) *Ring {
	if capacity < 1 {
		capacity = 1
	}
	return &Ring{points: make([]Point, 0, capacity), capacity: capacity}
}

// Push appends a reading.
func (r *Ring) Push(t physic.Temperature, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := Point{Temperature: t, Time: at}
	if len(r.points) >= r.capacity {
		copy(r.points, r.points[1:])
		r.points[len(r.points)-1] = p
	} else {
		r.points = append(r.points, p)
	}
	if !r.seen {
		r.min, r.peak = t, t
		r.seen = true
		return
	}
	if t < r.min {
		r.min = t
	}
	if t > r.peak {
		r.peak = t
	}
}

// Len returns the number of stored readings.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.points)
}

// Last returns the most recent reading, if any.
func (r *Ring) Last() (Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.points) == 0 {
		return Point{}, false
	}
	return r.points[len(r.points)-1], true
}

// LastN returns a copy of the n most recent readings, oldest first.
func (r *Ring) LastN(n int) []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if n <= 0 || len(r.points) == 0 {
		return nil
	}
	start := len(r.points) - n
	if start < 0 {
		start = 0
	}
	out := make([]Point, len(r.points)-start)
	copy(out, r.points[start:])
	return out
}

// Min returns the lowest temperature seen, or 0 if nothing was pushed.
func (r *Ring) Min() physic.Temperature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.min
}

// Peak returns the highest temperature seen, or 0 if nothing was pushed.
func (r *Ring) Peak() physic.Temperature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.peak
}

// Avg returns the average over the stored window, or 0 if nothing was pushed.
func (r *Ring) Avg() physic.Temperature {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(r.points) == 0 {
		return 0
	}
	var sum physic.Temperature
	for _, p := range r.points {
		sum += p.Temperature
	}
	return sum / physic.Temperature(len(r.points))
}
