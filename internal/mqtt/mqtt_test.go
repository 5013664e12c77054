// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mqtt

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hardwarelibs/devices/internal/store"
)

func testConfig() Config {
	return Config{
		Broker:      "tcp://broker.local:1883",
		ClientID:    "lm75d-attic",
		TopicPrefix: "sensors",
		NodeName:    "Attic Sensor",
	}
}

func TestTopics(t *testing.T) {
	cfg := testConfig()

	if got := stateTopic(cfg); got != "sensors/attic_sensor" {
		t.Errorf("state topic = %q", got)
	}
	if got := availabilityTopic(cfg); got != "sensors/attic_sensor/status" {
		t.Errorf("availability topic = %q", got)
	}
}

func TestDiscovery(t *testing.T) {
	msg := buildDiscovery(testConfig())

	if msg.Topic != "homeassistant/sensor/lm75_attic_sensor/temperature/config" {
		t.Errorf("discovery topic = %q", msg.Topic)
	}

	var payload haDiscovery
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if payload.Name != "Attic Sensor temperature" {
		t.Errorf("name = %q", payload.Name)
	}
	if payload.UniqueID != "lm75_attic_sensor_temperature" {
		t.Errorf("unique_id = %q", payload.UniqueID)
	}
	if payload.DeviceClass != "temperature" {
		t.Errorf("device_class = %q", payload.DeviceClass)
	}
	if payload.UnitOfMeasurement != "°C" {
		t.Errorf("unit = %q", payload.UnitOfMeasurement)
	}
	if payload.StateTopic != "sensors/attic_sensor" {
		t.Errorf("state_topic = %q", payload.StateTopic)
	}
	if payload.AvailabilityTopic != "sensors/attic_sensor/status" {
		t.Errorf("availability_topic = %q", payload.AvailabilityTopic)
	}
	if payload.ValueTemplate != "{{ value_json.temperature }}" {
		t.Errorf("value_template = %q", payload.ValueTemplate)
	}
	if payload.Device.Model != "LM75" {
		t.Errorf("device.model = %q", payload.Device.Model)
	}
	if len(payload.Device.Identifiers) != 1 || payload.Device.Identifiers[0] != "lm75_attic_sensor" {
		t.Errorf("device.identifiers = %v", payload.Device.Identifiers)
	}
}

func TestStatePayload(t *testing.T) {
	s := store.Sample{
		Time:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Celsius: 25.5,
		Raw:     0x8019,
	}

	var got statePayloadBody
	if err := json.Unmarshal(statePayload(s), &got); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if got.Temperature != 25.5 {
		t.Errorf("temperature = %v, want 25.5", got.Temperature)
	}
	if got.Raw != 0x8019 {
		t.Errorf("raw = %#04x, want 0x8019", got.Raw)
	}
	if got.Time != "2026-03-01T12:00:00Z" {
		t.Errorf("time = %q", got.Time)
	}
}
