// Copyright 2024 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	require := require.New(t)

	cfg, err := Load(writeConfig(t, "{}\n"))
	require.NoError(err)

	require.Equal("lm75", cfg.Name)
	require.Equal(uint16(0x48), cfg.Sensor.Address)
	require.Equal(time.Second, cfg.SampleInterval())
	require.Equal(7*24*time.Hour, cfg.Retention())
	require.Equal("sensors", cfg.MQTT.TopicPrefix)
	require.Equal("lm75d-lm75", cfg.MQTT.ClientID)
	require.Equal("127.0.0.1:8080", cfg.Web.Listen)
	require.Equal("lm75d.db", cfg.Store.Path)
	require.Equal("info", cfg.Log.Level)
	require.False(cfg.AlertLimitsSet())
}

func TestLoadFull(t *testing.T) {
	require := require.New(t)

	str := `
name: attic
sensor:
  bus: "1"
  address: 0x49
  interval: 500ms
alert:
  hysteresis: 60
  setpoint: 65
mqtt:
  enabled: true
  broker: tcp://broker.local:1883
  username: sensors
  password: secret
  topic_prefix: home
web:
  listen: ":9090"
store:
  path: /var/lib/lm75d/samples.db
  retention: 24h
log:
  level: debug
  format: json
`
	cfg, err := Load(writeConfig(t, str))
	require.NoError(err)

	require.Equal("attic", cfg.Name)
	require.Equal("1", cfg.Sensor.Bus)
	require.Equal(uint16(0x49), cfg.Sensor.Address)
	require.Equal(500*time.Millisecond, cfg.SampleInterval())
	require.Equal(24*time.Hour, cfg.Retention())
	require.True(cfg.AlertLimitsSet())
	require.Equal(60.0, cfg.Alert.Hysteresis)
	require.Equal(65.0, cfg.Alert.Setpoint)
	require.True(cfg.MQTT.Enabled)
	require.Equal("lm75d-attic", cfg.MQTT.ClientID)
	require.Equal("json", cfg.Log.Format)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing file", ""},
		{"bad interval", "sensor:\n  interval: soon\n"},
		{"interval too short", "sensor:\n  interval: 50ms\n"},
		{"bad address", "sensor:\n  address: 0x90\n"},
		{"bad retention", "store:\n  retention: -1h\n"},
		{"inverted limits", "alert:\n  hysteresis: 80\n  setpoint: 75\n"},
		{"mqtt without broker", "mqtt:\n  enabled: true\n"},
		{"not yaml", ":\n:::\n"},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "missing.yaml")
			if test.yaml != "" {
				path = writeConfig(t, test.yaml)
			}
			_, err := Load(path)
			require.Error(t, err)
		})
	}
}
