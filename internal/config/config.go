// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads and validates the YAML configuration of the
// recording daemon.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration file.
type Config struct {
	// Name identifies this sensor node in MQTT topics and discovery
	// payloads.
	Name   string `yaml:"name"`
	Sensor struct {
		Bus      string `yaml:"bus"`      // i2c bus name, empty selects the first available
		Address  uint16 `yaml:"address"`  // 0x48-0x4f depending on the address pins
		Interval string `yaml:"interval"` // sampling interval, e.g. "1s"
	} `yaml:"sensor"`
	Alert struct {
		// Thresholds in °C written to the device at startup. Leaving
		// both at zero keeps the device defaults of 75/80.
		Hysteresis float64 `yaml:"hysteresis"`
		Setpoint   float64 `yaml:"setpoint"`
	} `yaml:"alert"`
	MQTT struct {
		Enabled     bool   `yaml:"enabled"`
		Broker      string `yaml:"broker"`
		ClientID    string `yaml:"client_id"`
		Username    string `yaml:"username"`
		Password    string `yaml:"password"`
		TopicPrefix string `yaml:"topic_prefix"`
	} `yaml:"mqtt"`
	Web struct {
		Listen string `yaml:"listen"`
	} `yaml:"web"`
	Store struct {
		Path      string `yaml:"path"`
		Retention string `yaml:"retention"` // how far back samples are kept, e.g. "168h"
	} `yaml:"store"`
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	interval  time.Duration
	retention time.Duration
}

// Load reads the configuration from path, fills in defaults and validates
// the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Name == "" {
		c.Name = "lm75"
	}
	if c.Sensor.Address == 0 {
		c.Sensor.Address = 0x48
	}
	if c.Sensor.Interval == "" {
		c.Sensor.Interval = "1s"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "sensors"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "lm75d-" + c.Name
	}
	if c.Web.Listen == "" {
		c.Web.Listen = "127.0.0.1:8080"
	}
	if c.Store.Path == "" {
		c.Store.Path = "lm75d.db"
	}
	if c.Store.Retention == "" {
		c.Store.Retention = "168h"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	if c.Sensor.Address < 0x08 || c.Sensor.Address > 0x77 {
		return fmt.Errorf("sensor.address 0x%02x is outside the 7 bit address range", c.Sensor.Address)
	}
	interval, err := time.ParseDuration(c.Sensor.Interval)
	if err != nil {
		return fmt.Errorf("sensor.interval: %w", err)
	}
	if interval < 100*time.Millisecond {
		return fmt.Errorf("sensor.interval %s is below the 100ms conversion time", interval)
	}
	c.interval = interval

	retention, err := time.ParseDuration(c.Store.Retention)
	if err != nil {
		return fmt.Errorf("store.retention: %w", err)
	}
	if retention <= 0 {
		return fmt.Errorf("store.retention must be positive, got %s", retention)
	}
	c.retention = retention

	if (c.Alert.Hysteresis != 0 || c.Alert.Setpoint != 0) && c.Alert.Hysteresis > c.Alert.Setpoint {
		return fmt.Errorf("alert.hysteresis %.1f must not exceed alert.setpoint %.1f", c.Alert.Hysteresis, c.Alert.Setpoint)
	}

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required when mqtt is enabled")
	}
	return nil
}

// SampleInterval returns the parsed sensor.interval value.
func (c *Config) SampleInterval() time.Duration {
	return c.interval
}

// Retention returns the parsed store.retention value.
func (c *Config) Retention() time.Duration {
	return c.retention
}

// AlertLimitsSet reports whether the configuration overrides the device's
// default alert thresholds.
func (c *Config) AlertLimitsSet() bool {
	return c.Alert.Hysteresis != 0 || c.Alert.Setpoint != 0
}
