// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// lm75d samples an LM75 temperature sensor and fans the readings out to a
// bbolt sample log, an MQTT broker and a small HTTP API.
//
// The only argument is the path of the YAML configuration file, defaulting
// to lm75d.yaml:
//
//	lm75d /etc/lm75d.yaml
//
// The daemon runs until SIGINT or SIGTERM and shuts the pieces down in
// reverse order of startup.
package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"github.com/hardwarelibs/devices/internal/config"
	"github.com/hardwarelibs/devices/internal/history"
	"github.com/hardwarelibs/devices/internal/mqtt"
	"github.com/hardwarelibs/devices/internal/store"
	"github.com/hardwarelibs/devices/internal/web"
	"github.com/hardwarelibs/devices/lm75"
)

// statsEvery is how often the daemon logs a temperature summary.
const statsEvery = 10 * time.Minute

func main() {
	cfgPath := "lm75d.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.WithError(err).Fatal("load configuration")
	}

	logger := newLogger(cfg)
	log := logger.WithField("node", cfg.Name)
	log.Info("lm75d starting")

	samples, err := store.Open(cfg.Store.Path)
	if err != nil {
		log.WithError(err).Fatal("open sample log")
	}
	defer samples.Close()

	if _, err := host.Init(); err != nil {
		log.WithError(err).Fatal("initialize host")
	}
	bus, err := i2creg.Open(cfg.Sensor.Bus)
	if err != nil {
		log.WithError(err).Fatal("open i2c bus")
	}
	defer bus.Close()

	dev, err := lm75.NewI2C(bus, cfg.Sensor.Address, sensorOpts(cfg))
	if err != nil {
		log.WithError(err).Fatal("open sensor")
	}
	log.WithFields(logrus.Fields{
		"sensor":   dev.String(),
		"interval": cfg.SampleInterval().String(),
	}).Info("sensor ready")

	var publisher *mqtt.Publisher
	if cfg.MQTT.Enabled {
		publisher, err = mqtt.NewPublisher(mqtt.Config{
			Broker:      cfg.MQTT.Broker,
			ClientID:    cfg.MQTT.ClientID,
			Username:    cfg.MQTT.Username,
			Password:    cfg.MQTT.Password,
			TopicPrefix: cfg.MQTT.TopicPrefix,
			NodeName:    cfg.Name,
		}, logger)
		if err != nil {
			log.WithError(err).Fatal("connect to mqtt broker")
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	srv := web.New(logger.WithField("component", "web"), dev, samples)
	go func() {
		if err := srv.Run(ctx, cfg.Web.Listen); err != nil {
			log.WithError(err).Error("http api failed")
			cancel()
		}
	}()
	log.WithField("listen", cfg.Web.Listen).Info("http api ready")

	go pruneLoop(ctx, samples, cfg.Retention(), log)

	env, err := dev.SenseContinuous(cfg.SampleInterval())
	if err != nil {
		log.WithError(err).Fatal("start sampling")
	}

	ring := history.New(ringCapacity(cfg.SampleInterval()))
	lastStats := time.Now()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

loop:
	for {
		select {
		case e := <-env:
			sample := store.Sample{
				Time:    time.Now().UTC(),
				Celsius: e.Temperature.Celsius(),
				Raw:     lm75.EncodeTemperature(e.Temperature),
			}
			if err := samples.Append(sample); err != nil {
				log.WithError(err).Warn("append sample")
			}
			if publisher != nil {
				publisher.PublishSample(sample)
			}
			ring.Push(e.Temperature, sample.Time)
			if time.Since(lastStats) >= statsEvery {
				logStats(ring, log)
				lastStats = time.Now()
			}
		case s := <-sig:
			log.WithField("signal", s.String()).Info("shutting down")
			break loop
		case <-ctx.Done():
			break loop
		}
	}

	cancel()
	if err := dev.Halt(); err != nil {
		log.WithError(err).Warn("halt sensor")
	}
	if publisher != nil {
		publisher.Stop()
	}
	log.Info("goodbye")
}

// newLogger builds the root logger from the log section of the
// configuration. Unknown levels fall back to info rather than failing the
// whole daemon.
func newLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return logger
}

// sensorOpts translates the alert section of the configuration into device
// options. With no thresholds configured the device keeps its power-on
// defaults of 75/80°C.
func sensorOpts(cfg *config.Config) *lm75.Opts {
	if !cfg.AlertLimitsSet() {
		return nil
	}
	return &lm75.Opts{
		Hysteresis: fromCelsius(cfg.Alert.Hysteresis),
		Setpoint:   fromCelsius(cfg.Alert.Setpoint),
	}
}

func fromCelsius(c float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(c*float64(physic.Celsius))
}

// ringCapacity sizes the stats window to roughly the stats logging period.
func ringCapacity(interval time.Duration) int {
	n := int(statsEvery / interval)
	if n < 1 {
		n = 1
	}
	return n
}

// logStats emits a periodic summary. Min and peak run over the whole
// daemon lifetime, avg covers the last stats window.
func logStats(ring *history.Ring, log *logrus.Entry) {
	if ring.Len() == 0 {
		return
	}
	log.WithFields(logrus.Fields{
		"avg":  ring.Avg().String(),
		"min":  ring.Min().String(),
		"peak": ring.Peak().String(),
	}).Info("temperature summary")
}

// pruneLoop deletes samples older than the retention window, at startup
// and then hourly.
func pruneLoop(ctx context.Context, samples *store.Log, retention time.Duration, log *logrus.Entry) {
	t := time.NewTicker(time.Hour)
	defer t.Stop()
	for {
		n, err := samples.Prune(time.Now().UTC().Add(-retention))
		if err != nil {
			log.WithError(err).Warn("prune samples")
		} else if n > 0 {
			log.WithField("removed", n).Info("pruned old samples")
		}
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}
