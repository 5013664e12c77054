// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/hardwarelibs/devices/internal/store"
	"github.com/hardwarelibs/devices/lm75"
)

// stubSensor implements Sensor with canned values.
type stubSensor struct {
	config     lm75.Config
	hysteresis physic.Temperature
	setpoint   physic.Temperature
	err        error
}

func (s *stubSensor) Configuration() (lm75.Config, error)     { return s.config, s.err }
func (s *stubSensor) Hysteresis() (physic.Temperature, error) { return s.hysteresis, s.err }
func (s *stubSensor) Setpoint() (physic.Temperature, error)   { return s.setpoint, s.err }

func (s *stubSensor) SetAlertLimits(hysteresis, setpoint physic.Temperature) error {
	if s.err != nil {
		return s.err
	}
	if hysteresis > setpoint {
		return lm75.ErrInvalidRange
	}
	s.hysteresis, s.setpoint = hysteresis, setpoint
	return nil
}

// stubSamples implements Samples with a canned sample.
type stubSamples struct {
	sample store.Sample
	err    error
}

func (s *stubSamples) Latest() (store.Sample, error) { return s.sample, s.err }

func newTestHandler(sensor Sensor, samples Samples) http.Handler {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New(logrus.NewEntry(logger), sensor, samples).Routes()
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(&stubSensor{}, &stubSamples{})

	req := httptest.NewRequest("GET", "/healthz", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp["status"] != "ok" {
		t.Errorf("status = %q, want ok", resp["status"])
	}
}

func TestReading(t *testing.T) {
	samples := &stubSamples{sample: store.Sample{
		Time:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Celsius: 25.5,
		Raw:     0x8019,
	}}
	h := newTestHandler(&stubSensor{}, samples)

	req := httptest.NewRequest("GET", "/api/reading", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	var got store.Sample
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Celsius != 25.5 {
		t.Errorf("celsius = %v, want 25.5", got.Celsius)
	}
	if got.Raw != 0x8019 {
		t.Errorf("raw = %#04x, want 0x8019", got.Raw)
	}
}

func TestReadingEmpty(t *testing.T) {
	h := newTestHandler(&stubSensor{}, &stubSamples{err: store.ErrNotFound})

	req := httptest.NewRequest("GET", "/api/reading", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusNotFound)
	}
}

func TestReadingStoreFailure(t *testing.T) {
	h := newTestHandler(&stubSensor{}, &stubSamples{err: errors.New("db locked")})

	req := httptest.NewRequest("GET", "/api/reading", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
	var resp map[string]string
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	// Internal detail must not leak to the client.
	if resp["error"] != "internal error" {
		t.Errorf("error = %q, want internal error", resp["error"])
	}
}

func TestConfig(t *testing.T) {
	sensor := &stubSensor{
		// Shutdown, active high, fault queue of six.
		config:     lm75.Config(0x1d),
		hysteresis: physic.ZeroCelsius + 75*physic.Celsius,
		setpoint:   physic.ZeroCelsius + 80*physic.Celsius,
	}
	h := newTestHandler(sensor, &stubSamples{})

	req := httptest.NewRequest("GET", "/api/config", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	var got configResponse
	if err := json.NewDecoder(w.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.Shutdown {
		t.Error("expected shutdown to be true")
	}
	if got.Mode != "comparator" {
		t.Errorf("mode = %q, want comparator", got.Mode)
	}
	if !got.ActiveHigh {
		t.Error("expected active_high to be true")
	}
	if got.FaultQueue != 6 {
		t.Errorf("fault_queue = %d, want 6", got.FaultQueue)
	}
	if got.Hysteresis != 75 {
		t.Errorf("hysteresis = %v, want 75", got.Hysteresis)
	}
	if got.SetPoint != 80 {
		t.Errorf("set_point = %v, want 80", got.SetPoint)
	}
}

func TestUpdateLimits(t *testing.T) {
	sensor := &stubSensor{}
	h := newTestHandler(sensor, &stubSamples{})

	body := `{"hysteresis": 70, "set_point": 75}`
	req := httptest.NewRequest("PUT", "/api/limits", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body = %s", w.Code, http.StatusOK, w.Body.String())
	}
	if want := physic.ZeroCelsius + 70*physic.Celsius; sensor.hysteresis != want {
		t.Errorf("hysteresis = %s, want %s", sensor.hysteresis, want)
	}
	if want := physic.ZeroCelsius + 75*physic.Celsius; sensor.setpoint != want {
		t.Errorf("setpoint = %s, want %s", sensor.setpoint, want)
	}
}

func TestUpdateLimitsValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want int
	}{
		{"inverted", `{"hysteresis": 80, "set_point": 75}`, http.StatusBadRequest},
		{"malformed", `{"hysteresis": `, http.StatusBadRequest},
		{"unknown field", `{"hysteresis": 70, "set_point": 75, "mode": 1}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&stubSensor{}, &stubSamples{})
			req := httptest.NewRequest("PUT", "/api/limits", strings.NewReader(tt.body))
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d, body = %s", w.Code, tt.want, w.Body.String())
			}
		})
	}
}

func TestUpdateLimitsSensorFailure(t *testing.T) {
	h := newTestHandler(&stubSensor{err: errors.New("i2c timeout")}, &stubSamples{})

	body := `{"hysteresis": 70, "set_point": 75}`
	req := httptest.NewRequest("PUT", "/api/limits", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusInternalServerError)
	}
}
