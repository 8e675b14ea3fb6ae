package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/roach88/animdiff/internal/ir"
)

// DefaultBrokerURL is used when neither the config nor MQTT_URL names a
// broker.
const DefaultBrokerURL = "tcp://localhost:1883"

// BrokerURL returns url, falling back to MQTT_URL and then the default.
func BrokerURL(url string) string {
	if url != "" {
		return url
	}
	if env := os.Getenv("MQTT_URL"); env != "" {
		return env
	}
	return DefaultBrokerURL
}

// Publisher is the part of paho.Client the MQTT sink needs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// MQTTConfig configures the MQTT sink.
type MQTTConfig struct {
	Broker   string        `yaml:"broker"`
	ClientID string        `yaml:"client_id"`
	Topic    string        `yaml:"topic"`
	QoS      byte          `yaml:"qos"`
	Retain   bool          `yaml:"retain"`
	Timeout  time.Duration `yaml:"timeout"`
}

func (c MQTTConfig) timeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return 10 * time.Second
}

// MQTT publishes the run to <topic>/start, <topic>/frame and <topic>/stop.
type MQTT struct {
	client Publisher
	cfg    MQTTConfig
	seq    Sequence
	log    *slog.Logger
}

// NewMQTT returns a sink publishing through client.
func NewMQTT(client Publisher, cfg MQTTConfig, logger *slog.Logger) *MQTT {
	if cfg.Topic == "" {
		cfg.Topic = "animdiff"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &MQTT{client: client, cfg: cfg, log: logger}
}

// ConnectMQTT dials the broker and returns the connected client.
// The caller disconnects it.
func ConnectMQTT(cfg MQTTConfig, logger *slog.Logger) (paho.Client, error) {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "animdiff-" + uuid.NewString()
	}
	broker := BrokerURL(cfg.Broker)
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(cfg.timeout()) {
		return nil, &ConnectTimeoutError{Broker: broker}
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", broker, err)
	}
	if logger != nil {
		logger.Info("mqtt connected", "broker", broker, "client_id", clientID)
	}
	return client, nil
}

// ConnectTimeoutError indicates the broker did not answer in time.
type ConnectTimeoutError struct {
	Broker string
}

func (e *ConnectTimeoutError) Error() string {
	return "mqtt connect timeout: " + e.Broker
}

// PublishTimeoutError indicates a publish was not acknowledged in time.
type PublishTimeoutError struct {
	Topic string
}

func (e *PublishTimeoutError) Error() string {
	return "mqtt publish timeout: " + e.Topic
}

type frameMessage struct {
	Index int       `json:"index"`
	Delta ir.Object `json:"delta"`
}

func (m *MQTT) SendStart(ctx context.Context, h Header) error {
	if err := m.seq.Start(); err != nil {
		return err
	}
	payload, err := json.Marshal(h)
	if err != nil {
		return err
	}
	return m.publish(ctx, "start", payload)
}

func (m *MQTT) SendFrame(ctx context.Context, f Frame) error {
	if err := m.seq.Frame(f.Index); err != nil {
		return err
	}
	payload, err := json.Marshal(frameMessage{Index: f.Index, Delta: f.Delta})
	if err != nil {
		return err
	}
	return m.publish(ctx, "frame", payload)
}

func (m *MQTT) SendStop(ctx context.Context) error {
	if err := m.seq.Stop(); err != nil {
		return err
	}
	return m.publish(ctx, "stop", []byte("{}"))
}

func (m *MQTT) publish(ctx context.Context, suffix string, payload []byte) error {
	topic := m.cfg.Topic + "/" + suffix
	token := m.client.Publish(topic, m.cfg.QoS, m.cfg.Retain, payload)

	timer := time.NewTimer(m.cfg.timeout())
	defer timer.Stop()
	select {
	case <-token.Done():
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return &PublishTimeoutError{Topic: topic}
	}
	if err := token.Error(); err != nil {
		m.log.Warn("mqtt publish failed", "topic", topic, "error", err)
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}
