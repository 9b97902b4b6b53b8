package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"thermal-backend/internal/models"
	"thermal-backend/pkg/logger"
)

// TokenPublisher is the part of the paho client the publisher needs
type TokenPublisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Publisher publishes comfort decisions from a buffered channel
type Publisher struct {
	client TokenPublisher

	// Input channel (read by publisher, written by the prediction service)
	DecisionChan chan *models.ComfortDecision

	decisionTopic  string // e.g., "thermal/{device_id}/comfort"
	qos            byte
	enqueueTimeout time.Duration
}

// PublisherConfig holds configuration for MQTT publisher
type PublisherConfig struct {
	DecisionTopic  string
	QoS            byte
	ChannelSize    int
	EnqueueTimeout time.Duration
}

// DefaultPublisherConfig returns default configuration
func DefaultPublisherConfig() PublisherConfig {
	return PublisherConfig{
		DecisionTopic:  "thermal/{device_id}/comfort",
		QoS:            1,
		ChannelSize:    100,
		EnqueueTimeout: 100 * time.Millisecond,
	}
}

// NewPublisher creates a new MQTT publisher with its input channel
func NewPublisher(client TokenPublisher, config PublisherConfig) *Publisher {
	return &Publisher{
		client:         client,
		DecisionChan:   make(chan *models.ComfortDecision, config.ChannelSize),
		decisionTopic:  config.DecisionTopic,
		qos:            config.QoS,
		enqueueTimeout: config.EnqueueTimeout,
	}
}

// Start begins publishing decisions from the channel
// Runs until context is cancelled or channel is closed
func (p *Publisher) Start(ctx context.Context) {
	logger.Info("MQTT Publisher: starting")

	for {
		select {
		case <-ctx.Done():
			logger.Info("MQTT Publisher: context cancelled, shutting down")
			return

		case decision, ok := <-p.DecisionChan:
			if !ok {
				logger.Info("MQTT Publisher: decision channel closed, shutting down")
				return
			}

			if err := p.publishDecision(decision); err != nil {
				logger.Errorf("MQTT Publisher: %v", err)
			}
		}
	}
}

// Publish hands a decision to the publishing goroutine, dropping it if the
// channel stays full past the enqueue timeout
func (p *Publisher) Publish(ctx context.Context, decision *models.ComfortDecision) error {
	select {
	case p.DecisionChan <- decision:
		return nil
	case <-time.After(p.enqueueTimeout):
		return fmt.Errorf("decision channel full, dropping decision for %s", decision.DeviceID)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// publishDecision publishes one comfort decision
func (p *Publisher) publishDecision(decision *models.ComfortDecision) error {
	payload, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to marshal comfort decision: %w", err)
	}

	topic := formatTopic(p.decisionTopic, decision.DeviceID)

	token := p.client.Publish(topic, p.qos, false, payload)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to publish comfort decision: %w", token.Error())
	}

	logger.Debugf("MQTT Publisher: published %s decision for device %s to %s", decision.Category, decision.DeviceID, topic)
	return nil
}

// formatTopic replaces {device_id} placeholder with actual device ID
func formatTopic(topicPattern, deviceID string) string {
	if deviceID == "" {
		deviceID = "default"
	}
	return strings.ReplaceAll(topicPattern, "{device_id}", deviceID)
}
