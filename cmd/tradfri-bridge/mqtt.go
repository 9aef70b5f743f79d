package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
	disconnectQuiesce = 1000 // milliseconds
	keepAlive         = 60 * time.Second
)

// MQTT errors.
var (
	ErrBrokerConnect = errors.New("mqtt connect failed")
	ErrPublish       = errors.New("mqtt publish failed")
	ErrSubscribe     = errors.New("mqtt subscribe failed")
)

// MessageHandler receives one message. Handlers run on paho's goroutines.
type MessageHandler func(topic string, payload []byte)

// broker is the part of an MQTT client the bridge uses.
type broker interface {
	Publish(topic string, payload []byte, retained bool) error
	Subscribe(topic string, handler MessageHandler) error
	Close()
}

// mqttClient is a broker backed by paho.
type mqttClient struct {
	client pahomqtt.Client
	qos    byte
	status string
	logger *slog.Logger
}

var _ broker = (*mqttClient)(nil)

// dialMQTT connects to the broker in cfg. The client reconnects on its own
// and restores subscriptions when it does. A retained "offline" will is
// registered on <prefix>/bridge/status.
func dialMQTT(cfg MQTTConfig, logger *slog.Logger) (*mqttClient, error) {
	m := &mqttClient{
		qos:    byte(cfg.QoS),
		status: statusTopic(cfg.Prefix),
		logger: logger,
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(false)
	opts.SetResumeSubs(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetKeepAlive(keepAlive)
	opts.SetWill(m.status, "offline", m.qos, true)

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		logger.Info("mqtt connected", "broker", cfg.Broker)
		c.Publish(m.status, m.qos, true, "online")
	})
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		logger.Warn("mqtt connection lost", "error", err)
	})

	m.client = pahomqtt.NewClient(opts)
	token := m.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrBrokerConnect, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBrokerConnect, err)
	}
	return m, nil
}

func (m *mqttClient) Publish(topic string, payload []byte, retained bool) error {
	token := m.client.Publish(topic, m.qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrPublish, topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPublish, topic, err)
	}
	return nil
}

func (m *mqttClient) Subscribe(topic string, handler MessageHandler) error {
	token := m.client.Subscribe(topic, m.qos, func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("mqtt handler panic", "topic", msg.Topic(), "panic", r)
			}
		}()
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("%w: %s: timeout after %v", ErrSubscribe, topic, publishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSubscribe, topic, err)
	}
	return nil
}

// Close publishes the retained "offline" status and disconnects.
func (m *mqttClient) Close() {
	if m.client.IsConnected() {
		m.client.Publish(m.status, m.qos, true, "offline").WaitTimeout(publishTimeout)
	}
	m.client.Disconnect(disconnectQuiesce)
}
