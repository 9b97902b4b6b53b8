package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"thermal-backend/internal/models"
	"thermal-backend/pkg/logger"
)

func TestMain(m *testing.M) {
	logger.SetForTest()
	os.Exit(m.Run())
}

type fakeToken struct {
	err error
}

func (t *fakeToken) Wait() bool                     { return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (t *fakeToken) Error() error { return t.err }

type message struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeClient struct {
	mu       sync.Mutex
	messages []message
	err      error
}

func (c *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messages = append(c.messages, message{topic: topic, qos: qos, payload: payload.([]byte)})
	return &fakeToken{err: c.err}
}

func (c *fakeClient) sent() []message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]message(nil), c.messages...)
}

func TestPublisherDeliversDecision(t *testing.T) {
	client := &fakeClient{}
	p := NewPublisher(client, DefaultPublisherConfig())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Start(ctx)

	decision := &models.ComfortDecision{
		DeviceID:    "ac-1",
		Timestamp:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Temperature: 35.1,
		Category:    "comfortable",
		Label:       "적정",
	}
	require.NoError(t, p.Publish(ctx, decision))

	require.Eventually(t, func() bool { return len(client.sent()) == 1 }, time.Second, 5*time.Millisecond)
	msg := client.sent()[0]
	assert.Equal(t, "thermal/ac-1/comfort", msg.topic)
	assert.Equal(t, byte(1), msg.qos)

	var got models.ComfortDecision
	require.NoError(t, json.Unmarshal(msg.payload, &got))
	assert.Equal(t, "적정", got.Label)
	assert.Equal(t, 35.1, got.Temperature)
}

func TestPublishDropsWhenFull(t *testing.T) {
	cfg := DefaultPublisherConfig()
	cfg.ChannelSize = 1
	cfg.EnqueueTimeout = 10 * time.Millisecond
	p := NewPublisher(&fakeClient{}, cfg)

	d := &models.ComfortDecision{DeviceID: "ac-1"}
	require.NoError(t, p.Publish(context.Background(), d))
	err := p.Publish(context.Background(), d)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "channel full")
}

func TestPublishDecisionError(t *testing.T) {
	p := NewPublisher(&fakeClient{err: errors.New("not connected")}, DefaultPublisherConfig())
	err := p.publishDecision(&models.ComfortDecision{DeviceID: "x"})
	assert.ErrorContains(t, err, "not connected")
}

func TestStartStopsOnClose(t *testing.T) {
	p := NewPublisher(&fakeClient{}, DefaultPublisherConfig())
	done := make(chan struct{})
	go func() {
		p.Start(context.Background())
		close(done)
	}()
	close(p.DecisionChan)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher did not stop")
	}
}

func TestFormatTopic(t *testing.T) {
	assert.Equal(t, "thermal/ac-9/comfort", formatTopic("thermal/{device_id}/comfort", "ac-9"))
	assert.Equal(t, "thermal/default/comfort", formatTopic("thermal/{device_id}/comfort", ""))
}
