// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package history

import (
	"testing"
	"time"

	"periph.io/x/conn/v3/physic"
)

func TestRing(t *testing.T) {
	r := New(5)

	now := time.Now()
	for i := 0; i < 7; i++ {
		r.Push(physic.ZeroCelsius+physic.Temperature(30+i)*physic.Kelvin, now.Add(time.Duration(i)*time.Second))
	}

	if r.Len() != 5 {
		t.Errorf("expected 5 points, got %d", r.Len())
	}

	last, ok := r.Last()
	if !ok || last.Temperature != physic.ZeroCelsius+36*physic.Kelvin {
		t.Errorf("Last(): got %s, want 36°C", last.Temperature)
	}

	// Min covers evicted points too.
	if r.Min() != physic.ZeroCelsius+30*physic.Kelvin {
		t.Errorf("Min: got %s, want 30°C", r.Min())
	}

	if r.Peak() != physic.ZeroCelsius+36*physic.Kelvin {
		t.Errorf("Peak: got %s, want 36°C", r.Peak())
	}

	// Window is 32..36, the average is 34.
	if r.Avg() != physic.ZeroCelsius+34*physic.Kelvin {
		t.Errorf("Avg: got %s, want 34°C", r.Avg())
	}

	if pts := r.LastN(3); len(pts) != 3 {
		t.Errorf("LastN(3): got %d values, want 3", len(pts))
	}
}

func TestRingEmpty(t *testing.T) {
	r := New(10)

	if _, ok := r.Last(); ok {
		t.Error("Last() on an empty ring reported a point")
	}
	if r.Min() != 0 || r.Peak() != 0 || r.Avg() != 0 {
		t.Error("statistics of an empty ring must be zero")
	}
	if pts := r.LastN(5); pts != nil {
		t.Errorf("LastN on an empty ring: got %v", pts)
	}
}

func TestRingLastN(t *testing.T) {
	r := New(100)
	base := time.Date(2026, 2, 21, 14, 0, 0, 0, time.Local)

	for i := 0; i < 120; i++ {
		r.Push(physic.ZeroCelsius+physic.Temperature(30+i%10)*physic.Kelvin, base.Add(time.Duration(i)*time.Second))
	}

	pts := r.LastN(5)
	if len(pts) != 5 {
		t.Fatalf("LastN(5): got %d, want 5", len(pts))
	}

	for _, p := range pts {
		if p.Time.IsZero() {
			t.Error("expected non-zero timestamp")
		}
	}

	last := pts[len(pts)-1]
	if last.Time != base.Add(119*time.Second) {
		t.Errorf("last point time: got %v, want %v", last.Time, base.Add(119*time.Second))
	}

	// Asking for more than is stored returns the full window.
	if pts := r.LastN(1000); len(pts) != 100 {
		t.Errorf("LastN(1000): got %d, want 100", len(pts))
	}
}
