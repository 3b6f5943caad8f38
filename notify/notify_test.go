package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/stitchgo/ledger"
)

type fakeToken struct {
	done chan struct{}
	err  error
}

func newFakeToken(complete bool, err error) *fakeToken {
	t := &fakeToken{done: make(chan struct{}), err: err}
	if complete {
		close(t.done)
	}
	return t
}

func (t *fakeToken) Wait() bool {
	<-t.done
	return true
}

func (t *fakeToken) WaitTimeout(d time.Duration) bool {
	select {
	case <-t.done:
		return true
	case <-time.After(d):
		return false
	}
}

func (t *fakeToken) Done() <-chan struct{} { return t.done }
func (t *fakeToken) Error() error          { return t.err }

type message struct {
	topic   string
	qos     byte
	payload []byte
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []message
	token    func() mqtt.Token
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message{topic: topic, qos: qos, payload: payload.([]byte)})
	if p.token != nil {
		return p.token()
	}
	return newFakeToken(true, nil)
}

func TestMQTT_Publish(t *testing.T) {
	pub := &fakePublisher{}
	n := NewMQTT(pub, MQTTConfig{QoS: 1})

	ev := EventFromRecord(ledger.Record{
		ID:         "item-1",
		Key:        "patterns/item-1.json",
		Status:     ledger.StatusPartial,
		Rows:       12,
		FailedRows: 2,
	})
	require.NoError(t, n.Publish(context.Background(), ev))

	require.Len(t, pub.messages, 1)
	msg := pub.messages[0]
	assert.Equal(t, "stitchgo/patterns/item-1", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, map[string]any{
		"id":          "item-1",
		"key":         "patterns/item-1.json",
		"status":      "partial",
		"rows":        float64(12),
		"failed_rows": float64(2),
	}, got)
}

func TestMQTT_PublishErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("BrokerError", func(t *testing.T) {
		pub := &fakePublisher{token: func() mqtt.Token { return newFakeToken(true, errors.New("not authorized")) }}
		err := NewMQTT(pub, MQTTConfig{}).Publish(ctx, Event{ID: "a"})
		assert.ErrorContains(t, err, "not authorized")
	})

	t.Run("Timeout", func(t *testing.T) {
		pub := &fakePublisher{token: func() mqtt.Token { return newFakeToken(false, nil) }}
		err := NewMQTT(pub, MQTTConfig{PublishTimeout: 10 * time.Millisecond}).Publish(ctx, Event{ID: "a"})
		assert.ErrorContains(t, err, "timeout")
	})

	t.Run("Canceled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		pub := &fakePublisher{}
		err := NewMQTT(pub, MQTTConfig{}).Publish(cctx, Event{ID: "a"})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Empty(t, pub.messages)
	})
}

func TestDialMQTT_RequiresBroker(t *testing.T) {
	_, _, err := DialMQTT(MQTTConfig{}, nil)
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.Publish(context.Background(), Event{}))
}
