// Package config loads the node and scanner settings and publishes the
// node's effective settings as retained config messages.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"tempbeacon-go/bus"
)

const (
	serviceName  = "config"
	configPrefix = "config"
)

// Topics carrying retained per-service config.
var (
	TopicBeacon  = bus.T(configPrefix, "beacon")
	TopicMonitor = bus.T(configPrefix, "monitor")
)

// Node is the beacon node configuration.
type Node struct {
	AppEnv   string
	LogLevel slog.Level

	Period     time.Duration
	Settle     time.Duration
	BusTimeout time.Duration // 0 waits forever

	I2CBus     string
	SensorAddr uint16
	Simulate   bool
	HCI        string

	Heartbeat time.Duration
}

// DefaultNode returns the compiled-in settings.
func DefaultNode() Node {
	return Node{
		AppEnv:     "dev",
		LogLevel:   slog.LevelInfo,
		Period:     5 * time.Second,
		Settle:     time.Millisecond,
		BusTimeout: 50 * time.Millisecond,
		I2CBus:     "",
		SensorAddr: 0x40,
		HCI:        "hci0",
		Heartbeat:  30 * time.Second,
	}
}

// Getenv matches os.Getenv.
type Getenv func(string) string

// LoadNode overlays environment variables on DefaultNode.
func LoadNode(getenv Getenv) (Node, error) {
	n := DefaultNode()
	var err error
	if n.AppEnv, n.LogLevel, err = loadCommon(getenv); err != nil {
		return Node{}, err
	}
	if n.Period, err = duration(getenv, "BEACON_PERIOD", n.Period, false); err != nil {
		return Node{}, err
	}
	if n.Settle, err = duration(getenv, "BEACON_SETTLE", n.Settle, false); err != nil {
		return Node{}, err
	}
	if n.BusTimeout, err = duration(getenv, "BEACON_BUS_TIMEOUT", n.BusTimeout, true); err != nil {
		return Node{}, err
	}
	if n.Heartbeat, err = duration(getenv, "BEACON_HEARTBEAT", n.Heartbeat, false); err != nil {
		return Node{}, err
	}
	if s := env(getenv, "BEACON_SENSOR_ADDR"); s != "" {
		a, err := strconv.ParseUint(s, 0, 7)
		if err != nil {
			return Node{}, fmt.Errorf("invalid BEACON_SENSOR_ADDR %q: %w", s, err)
		}
		n.SensorAddr = uint16(a)
	}
	if s := env(getenv, "BEACON_SIMULATE"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Node{}, fmt.Errorf("invalid BEACON_SIMULATE %q: %w", s, err)
		}
		n.Simulate = b
	}
	n.I2CBus = env(getenv, "BEACON_I2C_BUS")
	if s := env(getenv, "BEACON_HCI"); s != "" {
		n.HCI = s
	}
	if n.Settle >= n.Period {
		return Node{}, fmt.Errorf("BEACON_SETTLE %v must be shorter than BEACON_PERIOD %v", n.Settle, n.Period)
	}
	return n, nil
}

// Scanner is the host decoder configuration.
type Scanner struct {
	AppEnv   string
	LogLevel slog.Level

	Adapter string
	// Address restricts decoding to one device; empty accepts any.
	Address string

	// MQTTBroker empty disables MQTT publishing.
	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string
	MQTTTopic    string

	// MetricsAddr empty disables the /metrics listener.
	MetricsAddr string

	// DBPath empty disables the sqlite reading history.
	DBPath string
}

// LoadScanner reads the scanner configuration.
func LoadScanner(getenv Getenv) (Scanner, error) {
	s := Scanner{
		Adapter:      "hci0",
		MQTTPort:     1883,
		MQTTClientID: "weather-scan",
		MQTTTopic:    "stations/%s/telemetry",
		MetricsAddr:  ":9100",
	}
	var err error
	if s.AppEnv, s.LogLevel, err = loadCommon(getenv); err != nil {
		return Scanner{}, err
	}
	if v := env(getenv, "SCAN_ADAPTER"); v != "" {
		s.Adapter = v
	}
	s.Address = strings.ToUpper(env(getenv, "SCAN_ADDRESS"))
	s.MQTTBroker = env(getenv, "MQTT_BROKER")
	if v := env(getenv, "MQTT_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p <= 0 || p > 65535 {
			return Scanner{}, fmt.Errorf("invalid MQTT_PORT %q", v)
		}
		s.MQTTPort = p
	}
	if v := env(getenv, "MQTT_CLIENT_ID"); v != "" {
		s.MQTTClientID = v
	}
	if v := env(getenv, "MQTT_TOPIC"); v != "" {
		if strings.Count(v, "%s") > 1 {
			return Scanner{}, fmt.Errorf("invalid MQTT_TOPIC %q (at most one %%s)", v)
		}
		s.MQTTTopic = v
	}
	if v, ok := lookup(getenv, "METRICS_ADDR"); ok {
		s.MetricsAddr = v
	}
	s.DBPath = env(getenv, "SCAN_DB")
	return s, nil
}

func loadCommon(getenv Getenv) (string, slog.Level, error) {
	appEnv := env(getenv, "APP_ENV")
	if appEnv == "" {
		appEnv = "dev"
	}
	switch appEnv {
	case "dev", "prod":
	default:
		return "", 0, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", appEnv)
	}
	lvl := env(getenv, "LOG_LEVEL")
	if lvl == "" {
		lvl = "info"
	}
	level, err := ParseLogLevel(lvl)
	if err != nil {
		return "", 0, err
	}
	return appEnv, level, nil
}

// ParseLogLevel accepts debug, info, warn(ing) and error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func env(getenv Getenv, key string) string {
	if getenv == nil {
		return ""
	}
	return strings.TrimSpace(getenv(key))
}

// lookup distinguishes "set to empty" by treating "-" as explicit empty.
func lookup(getenv Getenv, key string) (string, bool) {
	v := env(getenv, key)
	switch v {
	case "":
		return "", false
	case "-":
		return "", true
	}
	return v, true
}

func duration(getenv Getenv, key string, def time.Duration, zeroOK bool) (time.Duration, error) {
	s := env(getenv, key)
	if s == "" {
		return def, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if d < 0 || (d == 0 && !zeroOK) {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	return d, nil
}

// -----------------------------------------------------------------------------
// Config Service
// -----------------------------------------------------------------------------

type ConfigService struct {
	Name string
	node Node
}

func NewConfigService(n Node) *ConfigService {
	return &ConfigService{Name: serviceName, node: n}
}

// publishConfig publishes each service's section as a retained message.
func (s *ConfigService) publishConfig(conn *bus.Connection) {
	conn.Publish(bus.NewMessage(TopicBeacon, s.node, true))
	conn.Publish(bus.NewMessage(TopicMonitor, map[string]any{
		"interval": s.node.Heartbeat.Seconds(),
	}, true))
}

// Start publishes the retained config. Subscribers that arrive later still
// receive it.
func (s *ConfigService) Start(ctx context.Context, conn *bus.Connection) {
	if ctx.Err() != nil {
		return
	}
	s.publishConfig(conn)
}
