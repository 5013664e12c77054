// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func newTestLog(t *testing.T) *Log {
	t.Helper()
	path := filepath.Join(t.TempDir(), "samples.db")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAndLatest(t *testing.T) {
	l := newTestLog(t)

	if _, err := l.Latest(); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Latest() on empty log: got %v, want ErrNotFound", err)
	}

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		s := Sample{Time: base.Add(time.Duration(i) * time.Minute), Celsius: 20 + float64(i)*0.5, Raw: uint16(0x14 + i)}
		if err := l.Append(s); err != nil {
			t.Fatal(err)
		}
	}

	got, err := l.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if got.Celsius != 22.0 {
		t.Errorf("latest celsius = %v, want 22.0", got.Celsius)
	}
	if !got.Time.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("latest time = %v, want %v", got.Time, base.Add(4*time.Minute))
	}
}

func TestRange(t *testing.T) {
	l := newTestLog(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s := Sample{Time: base.Add(time.Duration(i) * time.Minute), Celsius: float64(i)}
		if err := l.Append(s); err != nil {
			t.Fatal(err)
		}
	}

	samples, err := l.Range(base.Add(2*time.Minute), base.Add(5*time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 4 {
		t.Fatalf("Range: got %d samples, want 4", len(samples))
	}
	for i, s := range samples {
		if s.Celsius != float64(i+2) {
			t.Errorf("sample %d: celsius = %v, want %v", i, s.Celsius, float64(i+2))
		}
	}

	// A window before the first sample is empty.
	samples, err = l.Range(base.Add(-2*time.Hour), base.Add(-time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 0 {
		t.Errorf("Range before data: got %d samples, want 0", len(samples))
	}
}

func TestPrune(t *testing.T) {
	l := newTestLog(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 10; i++ {
		s := Sample{Time: base.Add(time.Duration(i) * time.Minute), Celsius: float64(i)}
		if err := l.Append(s); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := l.Prune(base.Add(4 * time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if removed != 4 {
		t.Errorf("Prune removed %d, want 4", removed)
	}

	samples, err := l.Range(base, base.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(samples) != 6 {
		t.Errorf("after prune: got %d samples, want 6", len(samples))
	}
	if samples[0].Celsius != 4.0 {
		t.Errorf("oldest surviving sample = %v, want 4.0", samples[0].Celsius)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "samples.db")
	l, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	s := Sample{Time: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), Celsius: 21.5, Raw: 0x8015}
	if err := l.Append(s); err != nil {
		t.Fatal(err)
	}
	if err := l.Close(); err != nil {
		t.Fatal(err)
	}

	l, err = Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	got, err := l.Latest()
	if err != nil {
		t.Fatal(err)
	}
	if got.Celsius != 21.5 || got.Raw != 0x8015 {
		t.Errorf("reloaded sample = %+v", got)
	}
	if !got.Time.Equal(s.Time) {
		t.Errorf("reloaded time = %v, want %v", got.Time, s.Time)
	}
}
