// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/hardwarelibs/devices/internal/store"
)

// discoveryMsg is a Home Assistant MQTT discovery message.
type discoveryMsg struct {
	Topic   string // e.g. "homeassistant/sensor/lm75_attic/temperature/config"
	Payload []byte
}

// haDevice is the "device" block in HA discovery.
type haDevice struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
	Name         string   `json:"name"`
}

// haDiscovery is the HA discovery payload for a temperature sensor.
type haDiscovery struct {
	Name              string   `json:"name"`
	UniqueID          string   `json:"unique_id"`
	StateTopic        string   `json:"state_topic"`
	AvailabilityTopic string   `json:"availability_topic"`
	ValueTemplate     string   `json:"value_template,omitempty"`
	UnitOfMeasurement string   `json:"unit_of_measurement,omitempty"`
	DeviceClass       string   `json:"device_class,omitempty"`
	StateClass        string   `json:"state_class,omitempty"`
	Device            haDevice `json:"device"`
}

// statePayloadBody is the JSON published on the state topic.
type statePayloadBody struct {
	Temperature float64 `json:"temperature"`
	Raw         uint16  `json:"raw"`
	Time        string  `json:"time"`
}

// nodeIdentifier returns the unique identifier for the HA device registry.
func nodeIdentifier(cfg Config) string {
	return "lm75_" + topicName(cfg.NodeName)
}

// topicName sanitizes a node name for use in MQTT topics: lowercase with
// only safe characters.
func topicName(name string) string {
	name = strings.ToLower(name)
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			return r
		}
		return '_'
	}, name)
}

func stateTopic(cfg Config) string {
	return cfg.TopicPrefix + "/" + topicName(cfg.NodeName)
}

func availabilityTopic(cfg Config) string {
	return stateTopic(cfg) + "/status"
}

// buildDiscovery generates the HA discovery message for the node.
func buildDiscovery(cfg Config) discoveryMsg {
	nodeID := nodeIdentifier(cfg)
	payload := haDiscovery{
		Name:              cfg.NodeName + " temperature",
		UniqueID:          nodeID + "_temperature",
		StateTopic:        stateTopic(cfg),
		AvailabilityTopic: availabilityTopic(cfg),
		ValueTemplate:     "{{ value_json.temperature }}",
		UnitOfMeasurement: "°C",
		DeviceClass:       "temperature",
		StateClass:        "measurement",
		Device: haDevice{
			Identifiers:  []string{nodeID},
			Manufacturer: "National Semiconductor",
			Model:        "LM75",
			Name:         cfg.NodeName,
		},
	}
	return discoveryMsg{
		Topic:   "homeassistant/sensor/" + nodeID + "/temperature/config",
		Payload: mustJSON(payload),
	}
}

// statePayload renders one sample for the state topic.
func statePayload(s store.Sample) []byte {
	return mustJSON(statePayloadBody{
		Temperature: s.Celsius,
		Raw:         s.Raw,
		Time:        s.Time.Format(time.RFC3339),
	})
}

func mustJSON(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}
