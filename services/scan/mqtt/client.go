// Package mqtt publishes decoded beacon readings to an MQTT broker.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"tempbeacon-go/services/config"
	"tempbeacon-go/services/scan"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Telemetry is the JSON document published per reading.
type Telemetry struct {
	StationID   string    `json:"station_id"`
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature_c"`
	Humidity    int16     `json:"humidity_pct"`
	RSSI        int16     `json:"rssi_dbm"`
}

type Client struct {
	client    mqtt.Client
	cfg       config.Scanner
	logger    *slog.Logger
	mu        sync.RWMutex
	connected bool

	stopCh   chan struct{}
	stopOnce sync.Once
}

var _ scan.Sink = (*Client)(nil)

func NewClient(cfg config.Scanner, logger *slog.Logger) *Client {
	c := &Client{
		cfg:    cfg,
		logger: logger.With("svc", "mqtt"),
		stopCh: make(chan struct{}),
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", cfg.MQTTBroker, cfg.MQTTPort))
	opts.SetClientID(cfg.MQTTClientID)
	opts.SetCleanSession(true)

	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(60 * time.Second)

	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)

	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		c.setConnected(true)
		c.logger.Info("mqtt connected", "broker", cfg.MQTTBroker, "port", cfg.MQTTPort)
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.setConnected(false)
		c.logger.Warn("mqtt connection lost", "error", err)
	})

	c.client = mqtt.NewClient(opts)
	return c
}

// Connect waits for the initial connection, honouring ctx and Disconnect.
func (c *Client) Connect(ctx context.Context) error {
	select {
	case <-c.stopCh:
		return fmt.Errorf("client stopped")
	default:
	}
	if c.IsConnected() {
		return nil
	}

	token := c.client.Connect()
	const poll = 200 * time.Millisecond
	for {
		if token.WaitTimeout(poll) {
			if err := token.Error(); err != nil {
				return fmt.Errorf("mqtt connect: %w", err)
			}
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stopCh:
			return fmt.Errorf("client stopped")
		default:
		}
	}
}

// Topic returns the telemetry topic for a station address.
func (c *Client) Topic(address string) string {
	t := c.cfg.MQTTTopic
	if !strings.Contains(t, "%s") {
		return t
	}
	return fmt.Sprintf(t, StationID(address))
}

// StationID turns a device address into a topic-safe id.
func StationID(address string) string {
	return strings.ToLower(strings.ReplaceAll(address, ":", ""))
}

// Publish sends one reading at QoS 1.
func (c *Client) Publish(r scan.Reading) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt client not connected")
	}
	ts := r.SeenAt
	if ts.IsZero() {
		ts = time.Now()
	}
	data, err := json.Marshal(Telemetry{
		StationID:   StationID(r.Address),
		Timestamp:   ts,
		Temperature: r.Sample.Celsius(),
		Humidity:    r.Sample.RHPercent,
		RSSI:        r.RSSI,
	})
	if err != nil {
		return fmt.Errorf("marshal telemetry: %w", err)
	}

	topic := c.Topic(r.Address)
	token := c.client.Publish(topic, 1, false, data)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish timeout for topic %s", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish telemetry: %w", err)
	}
	c.logger.Debug("published telemetry", "topic", topic)
	return nil
}

func (c *Client) IsConnected() bool {
	c.mu.RLock()
	connected := c.connected
	c.mu.RUnlock()
	return connected && c.client.IsConnected()
}

// Disconnect is idempotent. After it, Connect returns "client stopped".
func (c *Client) Disconnect() {
	c.stopOnce.Do(func() { close(c.stopCh) })
	c.client.Disconnect(250)
	c.setConnected(false)
	c.logger.Info("mqtt disconnected")
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}
