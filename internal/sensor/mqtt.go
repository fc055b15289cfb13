package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/muurk/sensordash/internal/logging"
	mqtt "github.com/soypat/natiu-mqtt"
	"go.uber.org/zap"
)

const (
	// DefaultMQTTTopic is where readings are published
	DefaultMQTTTopic = "sensordash/readings"

	// DefaultMQTTClientID identifies the node to the broker
	DefaultMQTTClientID = "sensordash-node"

	defaultMQTTTimeout = 5 * time.Second
)

var errNotConnected = errors.New("mqtt client not connected")

// MQTTPublisher publishes readings as JSON to an MQTT broker at QoS 0.
// It connects on first use and again after any failed publish.
type MQTTPublisher struct {
	Broker   string // host:port
	Topic    string
	ClientID string
	Username string
	Password string
	Timeout  time.Duration

	mu       sync.Mutex
	conn     net.Conn
	client   *mqtt.Client
	packetID uint16
}

// NewMQTTPublisher creates a publisher with the default topic and client ID
func NewMQTTPublisher(broker string) *MQTTPublisher {
	return &MQTTPublisher{
		Broker:   broker,
		Topic:    DefaultMQTTTopic,
		ClientID: DefaultMQTTClientID,
		Timeout:  defaultMQTTTimeout,
	}
}

// Connect dials the broker and waits for CONNACK
func (m *MQTTPublisher) Connect(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectLocked(ctx)
}

func (m *MQTTPublisher) connectLocked(ctx context.Context) error {
	m.closeLocked()

	timeout := m.timeout()
	dialer := net.Dialer{Timeout: timeout}
	conn, err := dialer.DialContext(ctx, "tcp", m.Broker)
	if err != nil {
		return fmt.Errorf("failed to connect to MQTT broker %s: %w", m.Broker, err)
	}

	client := mqtt.NewClient(mqtt.ClientConfig{
		Decoder: mqtt.DecoderNoAlloc{UserBuffer: make([]byte, 4096)},
		OnPub: func(_ mqtt.Header, varPub mqtt.VariablesPublish, r io.Reader) error {
			logging.Debug("MQTT message received", zap.String("topic", string(varPub.TopicName)))
			return nil
		},
	})

	var varconn mqtt.VariablesConnect
	varconn.SetDefaultMQTT([]byte(m.ClientID))
	if m.Username != "" {
		varconn.Username = []byte(m.Username)
		if m.Password != "" {
			varconn.Password = []byte(m.Password)
		}
	}

	deadline := time.Now().Add(timeout)
	_ = conn.SetDeadline(deadline)
	if err := client.StartConnect(conn, &varconn); err != nil {
		conn.Close()
		return fmt.Errorf("mqtt connect: %w", err)
	}

	for !client.IsConnected() && time.Now().Before(deadline) {
		if err := client.HandleNext(); err != nil {
			logging.Debug("MQTT handle next failed", zap.Error(err))
			break
		}
	}
	if !client.IsConnected() {
		conn.Close()
		cause := client.Err()
		if cause == nil {
			cause = errors.New("no CONNACK before timeout")
		}
		return fmt.Errorf("mqtt connect to %s: %w", m.Broker, cause)
	}
	_ = conn.SetDeadline(time.Time{})

	m.conn = conn
	m.client = client
	logging.Info("Connected to MQTT broker",
		zap.String("broker", m.Broker),
		zap.String("client_id", m.ClientID),
	)
	return nil
}

// Publish sends one reading. A failed publish drops the connection so the
// next call reconnects.
func (m *MQTTPublisher) Publish(ctx context.Context, r Reading) error {
	payload, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode reading: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.client == nil || !m.client.IsConnected() {
		if err := m.connectLocked(ctx); err != nil {
			return err
		}
	}

	flags, err := mqtt.NewPublishFlags(mqtt.QoS0, false, false)
	if err != nil {
		return err
	}
	m.packetID++
	if m.packetID == 0 {
		m.packetID = 1
	}
	vars := mqtt.VariablesPublish{
		TopicName:        []byte(m.Topic),
		PacketIdentifier: m.packetID,
	}

	_ = m.conn.SetWriteDeadline(time.Now().Add(m.timeout()))
	if err := m.client.PublishPayload(flags, vars, payload); err != nil {
		m.closeLocked()
		return fmt.Errorf("mqtt publish to %s: %w", m.Topic, err)
	}

	logging.Debug("Reading published",
		zap.String("topic", m.Topic),
		zap.Int("bytes", len(payload)),
	)
	return nil
}

// Connected reports whether the publisher holds a live session
func (m *MQTTPublisher) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.client != nil && m.client.IsConnected()
}

// Close drops the broker connection
func (m *MQTTPublisher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
	return nil
}

func (m *MQTTPublisher) closeLocked() {
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.conn = nil
	m.client = nil
}

func (m *MQTTPublisher) timeout() time.Duration {
	if m.Timeout > 0 {
		return m.Timeout
	}
	return defaultMQTTTimeout
}

var _ Publisher = (*MQTTPublisher)(nil)
