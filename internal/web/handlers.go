// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/hardwarelibs/devices/internal/store"
	"github.com/hardwarelibs/devices/lm75"
)

const maxBodySize = 1 << 16

// handlerFunc is an HTTP handler that reports failures as errors.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// apiError is an error carrying the HTTP status the client should see.
type apiError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *apiError) Error() string { return e.Message }

func badRequest(msg string) *apiError {
	return &apiError{Status: http.StatusBadRequest, Message: msg}
}

// handle adapts a handlerFunc. Expected errors travel to the client with
// their status; anything else is logged and becomes a generic 500.
func (s *Server) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}
		var apiErr *apiError
		if errors.As(err, &apiErr) {
			s.respondJSON(w, apiErr.Status, apiErr)
			return
		}
		s.log.WithError(err).WithField("path", r.URL.Path).Error("handler failed")
		s.respondJSON(w, http.StatusInternalServerError, &apiError{Message: "internal error"})
	}
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// The header is out already, nothing left but to log.
		s.log.WithError(err).Error("encode response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	return nil
}

func (s *Server) handleReading(w http.ResponseWriter, r *http.Request) error {
	if s.samples == nil {
		return &apiError{Status: http.StatusNotFound, Message: "sample logging disabled"}
	}
	sample, err := s.samples.Latest()
	if errors.Is(err, store.ErrNotFound) {
		return &apiError{Status: http.StatusNotFound, Message: "no samples recorded yet"}
	}
	if err != nil {
		return err
	}
	s.respondJSON(w, http.StatusOK, sample)
	return nil
}

// configResponse is the decoded CONF register plus the alert thresholds
// in °C.
type configResponse struct {
	Shutdown   bool    `json:"shutdown"`
	Mode       string  `json:"mode"`
	ActiveHigh bool    `json:"active_high"`
	FaultQueue int     `json:"fault_queue"`
	Hysteresis float64 `json:"hysteresis"`
	SetPoint   float64 `json:"set_point"`
}

func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) error {
	cfg, err := s.sensor.Configuration()
	if err != nil {
		return err
	}
	hysteresis, err := s.sensor.Hysteresis()
	if err != nil {
		return err
	}
	setpoint, err := s.sensor.Setpoint()
	if err != nil {
		return err
	}
	s.respondJSON(w, http.StatusOK, configResponse{
		Shutdown:   cfg.Shutdown(),
		Mode:       cfg.Mode().String(),
		ActiveHigh: cfg.ActiveHigh(),
		FaultQueue: cfg.FaultQueue().Faults(),
		Hysteresis: hysteresis.Celsius(),
		SetPoint:   setpoint.Celsius(),
	})
	return nil
}

// limitsRequest carries alert thresholds in °C.
type limitsRequest struct {
	Hysteresis float64 `json:"hysteresis"`
	SetPoint   float64 `json:"set_point"`
}

func (s *Server) handleLimits(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	var req limitsRequest
	if err := dec.Decode(&req); err != nil {
		return badRequest("invalid JSON payload")
	}
	err := s.sensor.SetAlertLimits(fromCelsius(req.Hysteresis), fromCelsius(req.SetPoint))
	if errors.Is(err, lm75.ErrInvalidRange) {
		return badRequest(err.Error())
	}
	if err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"hysteresis": req.Hysteresis,
		"set_point":  req.SetPoint,
	}).Info("alert limits updated")
	s.respondJSON(w, http.StatusOK, req)
	return nil
}

func fromCelsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}
