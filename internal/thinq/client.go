package thinq

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "thermal-backend/pkg/errors"
	"thermal-backend/pkg/logger"
)

// ClientConfig holds the device API credentials
type ClientConfig struct {
	BaseURL            string
	Token              string
	APIKey             string
	Country            string
	ClientID           string
	Timeout            time.Duration
	ConditionalControl bool
}

// Client talks to the device API. It never retries and never caches.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a device API client
func NewClient(config ClientConfig) *Client {
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// State fetches the current state of a device
func (c *Client) State(ctx context.Context, deviceID string) (*DeviceState, error) {
	var envelope StateEnvelope
	if err := c.do(ctx, http.MethodGet, c.devicePath(deviceID, "state"), nil, false, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Response, nil
}

// Control sends one command to a device
func (c *Client) Control(ctx context.Context, deviceID string, command Command) error {
	return c.do(ctx, http.MethodPost, c.devicePath(deviceID, "control"), command, c.config.ConditionalControl, nil)
}

func (c *Client) devicePath(deviceID, op string) string {
	return fmt.Sprintf("%s/devices/%s/%s", c.config.BaseURL, deviceID, op)
}

func (c *Client) do(ctx context.Context, method, url string, body interface{}, conditional bool, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal device command: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to build device request: %w", err)
	}
	c.setHeaders(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if conditional {
		req.Header.Set("x-conditional-control", "true")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warnf("ThinQ Client: %s %s unreachable: %v", method, url, err)
		return &apperrors.UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		logger.Warnf("ThinQ Client: %s %s body read failed after %d: %v", method, url, resp.StatusCode, err)
		return &apperrors.UpstreamError{
			StatusCode: http.StatusBadGateway,
			Body:       "failed to read device response",
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnf("ThinQ Client: %s %s returned %d", method, url, resp.StatusCode)
		return &apperrors.UpstreamError{
			StatusCode: resp.StatusCode,
			Body:       errorMessage(raw),
		}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &apperrors.UpstreamError{
			StatusCode: http.StatusBadGateway,
			Body:       "malformed device response",
			Err:        err,
		}
	}
	return nil
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.config.Token)
	req.Header.Set("x-message-id", NewMessageID())
	req.Header.Set("x-country", c.config.Country)
	req.Header.Set("x-client-id", c.config.ClientID)
	req.Header.Set("x-api-key", c.config.APIKey)
}

// NewMessageID returns a random UUID as unpadded URL-safe base64 (22 chars)
func NewMessageID() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

type errorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// errorMessage extracts the API's error message, falling back to the raw body
func errorMessage(raw []byte) string {
	var env errorEnvelope
	if err := json.Unmarshal(raw, &env); err == nil && env.Error.Message != "" {
		return env.Error.Message
	}
	return strings.TrimSpace(string(raw))
}
