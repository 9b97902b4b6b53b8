package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"thermal-backend/pkg/config"
	"thermal-backend/pkg/logger"
)

const (
	keepAlive      = 60 * time.Second
	pingTimeout    = 10 * time.Second
	connectTimeout = 10 * time.Second
	disconnectWait = 250 // ms
)

// Client owns the broker connection used by the decision publisher
type Client struct {
	client mqtt.Client
	broker string
}

// NewClient connects to the configured broker and waits up to
// connectTimeout for the session.
func NewClient(cfg config.MQTTConfig) (*Client, error) {
	client := mqtt.NewClient(clientOptions(cfg))

	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		client.Disconnect(0)
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: timed out after %s", cfg.Broker, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	logger.Infof("MQTT Client: connected to %s", cfg.Broker)
	return &Client{client: client, broker: cfg.Broker}, nil
}

// clientOptions maps configuration onto paho options. An empty client id
// gets a random suffix.
func clientOptions(cfg config.MQTTConfig) *mqtt.ClientOptions {
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "thermal-backend-" + uuid.NewString()[:8]
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(clientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetOrderMatters(false)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(keepAlive)
	opts.SetPingTimeout(pingTimeout)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(onConnect)
	opts.SetConnectionLostHandler(onConnectionLost)
	opts.SetReconnectingHandler(onReconnecting)
	return opts
}

// GetNativeClient returns the underlying paho client for the publisher
func (c *Client) GetNativeClient() mqtt.Client {
	return c.client
}

func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects, letting in-flight publishes drain briefly
func (c *Client) Close() {
	c.client.Disconnect(disconnectWait)
	logger.Infof("MQTT Client: disconnected from %s", c.broker)
}

func onConnect(client mqtt.Client) {
	logger.Info("MQTT Client: connection established")
}

func onConnectionLost(client mqtt.Client, err error) {
	logger.Warnf("MQTT Client: connection lost: %v", err)
}

func onReconnecting(client mqtt.Client, opts *mqtt.ClientOptions) {
	logger.Infof("MQTT Client: reconnecting to %d broker(s)", len(opts.Servers))
}
