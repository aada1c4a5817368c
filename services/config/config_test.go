package config

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"tempbeacon-go/bus"
)

func envOf(m map[string]string) Getenv {
	return func(k string) string { return m[k] }
}

func TestLoadNodeDefaults(t *testing.T) {
	n, err := LoadNode(envOf(nil))
	if err != nil {
		t.Fatal(err)
	}
	if n != DefaultNode() {
		t.Fatalf("node = %+v, want defaults", n)
	}
	if n.Period != 5*time.Second || n.SensorAddr != 0x40 || n.BusTimeout != 50*time.Millisecond {
		t.Fatalf("unexpected defaults: %+v", n)
	}
}

func TestLoadNodeOverrides(t *testing.T) {
	n, err := LoadNode(envOf(map[string]string{
		"APP_ENV":            "prod",
		"LOG_LEVEL":          "WARN",
		"BEACON_PERIOD":      "2s",
		"BEACON_SETTLE":      "700us",
		"BEACON_BUS_TIMEOUT": "0",
		"BEACON_SENSOR_ADDR": "0x41",
		"BEACON_SIMULATE":    "true",
		"BEACON_I2C_BUS":     " /dev/i2c-1 ",
		"BEACON_HCI":         "hci1",
	}))
	if err != nil {
		t.Fatal(err)
	}
	want := Node{
		AppEnv:     "prod",
		LogLevel:   slog.LevelWarn,
		Period:     2 * time.Second,
		Settle:     700 * time.Microsecond,
		BusTimeout: 0,
		I2CBus:     "/dev/i2c-1",
		SensorAddr: 0x41,
		Simulate:   true,
		HCI:        "hci1",
		Heartbeat:  30 * time.Second,
	}
	if n != want {
		t.Fatalf("node = %+v\nwant   %+v", n, want)
	}
}

func TestLoadNodeInvalid(t *testing.T) {
	tests := []struct {
		key, val, wantIn string
	}{
		{"APP_ENV", "staging", "APP_ENV"},
		{"LOG_LEVEL", "loud", "LOG_LEVEL"},
		{"BEACON_PERIOD", "soon", "BEACON_PERIOD"},
		{"BEACON_PERIOD", "0s", "BEACON_PERIOD"},
		{"BEACON_BUS_TIMEOUT", "-1ms", "BEACON_BUS_TIMEOUT"},
		{"BEACON_SENSOR_ADDR", "0x80", "BEACON_SENSOR_ADDR"},
		{"BEACON_SIMULATE", "maybe", "BEACON_SIMULATE"},
		{"BEACON_SETTLE", "10s", "BEACON_SETTLE"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			_, err := LoadNode(envOf(map[string]string{tt.key: tt.val}))
			if err == nil || !strings.Contains(err.Error(), tt.wantIn) {
				t.Fatalf("err = %v, want mention of %s", err, tt.wantIn)
			}
		})
	}
}

func TestLoadScanner(t *testing.T) {
	s, err := LoadScanner(envOf(map[string]string{
		"SCAN_ADDRESS": "c0:98:e5:49:00:01",
		"MQTT_BROKER":  "broker.local",
		"MQTT_PORT":    "8883",
		"METRICS_ADDR": "-",
		"SCAN_DB":      "/var/lib/weather/readings.db",
	}))
	if err != nil {
		t.Fatal(err)
	}
	if s.Address != "C0:98:E5:49:00:01" || s.MQTTBroker != "broker.local" || s.MQTTPort != 8883 {
		t.Fatalf("scanner = %+v", s)
	}
	if s.DBPath != "/var/lib/weather/readings.db" {
		t.Fatalf("DBPath = %q", s.DBPath)
	}
	if s.MetricsAddr != "" || s.Adapter != "hci0" || s.MQTTTopic != "stations/%s/telemetry" {
		t.Fatalf("scanner = %+v", s)
	}

	for _, bad := range []map[string]string{
		{"MQTT_PORT": "http"},
		{"MQTT_PORT": "70000"},
		{"MQTT_TOPIC": "a/%s/%s"},
	} {
		if _, err := LoadScanner(envOf(bad)); err == nil {
			t.Fatalf("LoadScanner(%v) succeeded", bad)
		}
	}
}

func TestConfigServicePublishesRetained(t *testing.T) {
	b := bus.NewBus(4)
	conn := b.NewConnection("test-config")
	n := DefaultNode()
	n.Heartbeat = 2 * time.Second

	NewConfigService(n).Start(context.Background(), conn)

	sub := conn.Subscribe(TopicMonitor)
	select {
	case m := <-sub.Channel():
		cfg, ok := m.Payload.(map[string]any)
		if !ok || cfg["interval"] != 2.0 {
			t.Fatalf("monitor config = %#v", m.Payload)
		}
	case <-time.After(100 * time.Millisecond):
		t.Fatal("no retained monitor config")
	}
	if m, ok := b.Retained(TopicBeacon); !ok || m.Payload.(Node) != n {
		t.Fatalf("beacon config = %v, %v", m, ok)
	}
}

func TestConfigServiceCancelled(t *testing.T) {
	b := bus.NewBus(4)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewConfigService(DefaultNode()).Start(ctx, b.NewConnection("x"))
	if _, ok := b.Retained(TopicBeacon); ok {
		t.Fatal("published after cancel")
	}
}
