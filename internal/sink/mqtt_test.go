package sink

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// doneToken is an already completed paho.Token.
type doneToken struct {
	err error
}

func (t doneToken) Wait() bool                     { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error                   { return t.err }
func (t doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// pendingToken never completes.
type pendingToken struct{}

func (pendingToken) Wait() bool                     { return false }
func (pendingToken) WaitTimeout(time.Duration) bool { return false }
func (pendingToken) Error() error                   { return nil }
func (pendingToken) Done() <-chan struct{}          { return make(chan struct{}) }

type published struct {
	topic   string
	qos     byte
	retain  bool
	payload []byte
}

type fakePublisher struct {
	mu    sync.Mutex
	msgs  []published
	token paho.Token
}

func (f *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{topic: topic, qos: qos, retain: retained, payload: payload.([]byte)})
	if f.token != nil {
		return f.token
	}
	return doneToken{}
}

func TestMQTT_PublishesRun(t *testing.T) {
	ctx := context.Background()
	pub := &fakePublisher{}
	m := NewMQTT(pub, MQTTConfig{Topic: "scene", QoS: 1, Retain: true}, nil)

	require.NoError(t, m.SendStart(ctx, Header{Name: "demo", FPS: 10}))
	require.NoError(t, m.SendFrame(ctx, frame(1, "car", "x", 3)))
	require.NoError(t, m.SendStop(ctx))

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "scene/start", pub.msgs[0].topic)
	assert.JSONEq(t, `{"name":"demo","fps":10}`, string(pub.msgs[0].payload))
	assert.Equal(t, "scene/frame", pub.msgs[1].topic)
	assert.JSONEq(t, `{"index":1,"delta":{"car":{"x":3}}}`, string(pub.msgs[1].payload))
	assert.Equal(t, "scene/stop", pub.msgs[2].topic)
	assert.Equal(t, "{}", string(pub.msgs[2].payload))
	for _, msg := range pub.msgs {
		assert.Equal(t, byte(1), msg.qos)
		assert.True(t, msg.retain)
	}
}

func TestMQTT_DefaultTopic(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, MQTTConfig{}, nil)
	require.NoError(t, m.SendStart(context.Background(), Header{}))
	assert.Equal(t, "animdiff/start", pub.msgs[0].topic)
}

func TestMQTT_PublishErrors(t *testing.T) {
	pub := &fakePublisher{token: doneToken{err: assert.AnError}}
	m := NewMQTT(pub, MQTTConfig{}, nil)
	err := m.SendStart(context.Background(), Header{})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestMQTT_PublishTimeout(t *testing.T) {
	pub := &fakePublisher{token: pendingToken{}}
	m := NewMQTT(pub, MQTTConfig{Timeout: 10 * time.Millisecond}, nil)
	err := m.SendStart(context.Background(), Header{})
	var timeout *PublishTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, "animdiff/start", timeout.Topic)
}

func TestMQTT_ContextCancel(t *testing.T) {
	pub := &fakePublisher{token: pendingToken{}}
	m := NewMQTT(pub, MQTTConfig{}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendStart(ctx, Header{}), context.Canceled)
}

func TestMQTT_EnforcesOrder(t *testing.T) {
	pub := &fakePublisher{}
	m := NewMQTT(pub, MQTTConfig{}, nil)
	assert.ErrorIs(t, m.SendFrame(context.Background(), frame(1, "")), ErrNotStarted)
	assert.Empty(t, pub.msgs)
}

func TestBrokerURL(t *testing.T) {
	t.Setenv("MQTT_URL", "")
	assert.Equal(t, DefaultBrokerURL, BrokerURL(""))

	t.Setenv("MQTT_URL", "tcp://broker:1883")
	assert.Equal(t, "tcp://broker:1883", BrokerURL(""))
	assert.Equal(t, "tcp://other:1883", BrokerURL("tcp://other:1883"))
}

func TestHeaderJSONOmitsUnset(t *testing.T) {
	data, err := json.Marshal(Header{Name: "n", FPS: 1, StartY: intp(0), RunID: "r"})
	require.NoError(t, err)
	assert.Equal(t, `{"name":"n","fps":1,"startY":0}`, string(data))
}
