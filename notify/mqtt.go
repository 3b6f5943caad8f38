package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/hupe1980/stitchgo/codec"
)

// DefaultTopic is the topic events are published to.
const DefaultTopic = "stitchgo/patterns"

// Publisher is the subset of mqtt.Client used by MQTT.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

var _ Publisher = (mqtt.Client)(nil)

// MQTTConfig configures an MQTT notifier.
type MQTTConfig struct {
	Broker         string
	ClientID       string
	Topic          string
	QoS            byte
	ConnectTimeout time.Duration
	PublishTimeout time.Duration
}

func (c *MQTTConfig) setDefaults() {
	if c.Topic == "" {
		c.Topic = DefaultTopic
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 2 * time.Second
	}
}

// MQTT publishes events as JSON to one topic. Events of item id go to
// <topic>/<id>.
type MQTT struct {
	client Publisher
	cfg    MQTTConfig
	codec  codec.Codec
}

// NewMQTT wraps an already connected client.
func NewMQTT(client Publisher, cfg MQTTConfig) *MQTT {
	cfg.setDefaults()
	return &MQTT{client: client, cfg: cfg, codec: codec.Default}
}

// DialMQTT connects to cfg.Broker with automatic reconnects.
func DialMQTT(cfg MQTTConfig, logger *slog.Logger) (*MQTT, mqtt.Client, error) {
	cfg.setDefaults()
	if cfg.Broker == "" {
		return nil, nil, errors.New("notify: mqtt broker is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(2 * time.Second)
	opts.SetMaxReconnectInterval(30 * time.Second)

	opts.OnConnect = func(mqtt.Client) {
		logger.Info("mqtt connection established", "broker", cfg.Broker, "client_id", cfg.ClientID)
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		logger.Warn("mqtt connection lost, will auto-reconnect", "broker", cfg.Broker, "error", err)
	}

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.ConnectTimeout) {
		return nil, nil, errors.New("notify: mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, nil, fmt.Errorf("notify: mqtt connection failed: %w", err)
	}

	return NewMQTT(client, cfg), client, nil
}

// Topic returns the topic an event is published to.
func (n *MQTT) Topic(ev Event) string {
	return n.cfg.Topic + "/" + ev.ID
}

func (n *MQTT) Publish(ctx context.Context, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	payload, err := n.codec.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	token := n.client.Publish(n.Topic(ev), n.cfg.QoS, false, payload)

	timer := time.NewTimer(n.cfg.PublishTimeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		return errors.New("notify: publish timeout")
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := token.Error(); err != nil {
		return fmt.Errorf("notify: publish failed: %w", err)
	}
	return nil
}
