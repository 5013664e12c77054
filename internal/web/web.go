// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package web serves the sensor daemon state over a small HTTP API.
//
// Routes:
//
//	GET /healthz      liveness probe
//	GET /api/reading  most recent logged sample
//	GET /api/config   decoded device configuration and alert thresholds
//	PUT /api/limits   update the alert thresholds
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/hardwarelibs/devices/internal/store"
	"github.com/hardwarelibs/devices/lm75"
)

// Sensor is the part of the lm75 driver the API needs. Kept narrow so tests
// can substitute a stub.
type Sensor interface {
	Configuration() (lm75.Config, error)
	Hysteresis() (physic.Temperature, error)
	Setpoint() (physic.Temperature, error)
	SetAlertLimits(hysteresis, setpoint physic.Temperature) error
}

// Samples is the part of the sample log the API needs.
type Samples interface {
	Latest() (store.Sample, error)
}

// Server serves the HTTP API for one sensor.
type Server struct {
	log     *logrus.Entry
	sensor  Sensor
	samples Samples
}

// New returns a Server. The sample log may be nil when sample logging is
// disabled; /api/reading then reports 404.
func New(log *logrus.Entry, sensor Sensor, samples Samples) *Server {
	return &Server{log: log, sensor: sensor, samples: samples}
}

// Routes builds the router with request logging and panic recovery attached.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handle(s.handleHealth))
	r.Route("/api", func(r chi.Router) {
		r.Get("/reading", s.handle(s.handleReading))
		r.Get("/config", s.handle(s.handleConfig))
		r.Put("/limits", s.handle(s.handleLimits))
	})
	return r
}

// Run serves the API on addr until ctx is canceled, then drains in-flight
// requests for up to five seconds.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	s.log.WithField("addr", addr).Info("http api listening")
	select {
	case err := <-errc:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
