package sms

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"prentma/internal/config"
)

// Package sms forwards text messages to the TelcoSMS gateway.

var (
	// ErrInvalidMessage is returned when the phone number or body is missing.
	ErrInvalidMessage = errors.New("phone_number and message_body are required")
	// ErrNotConfigured is returned when no gateway API key is set.
	ErrNotConfigured = errors.New("sms gateway api key is not configured")
)

// Message is one outbound SMS.
type Message struct {
	PhoneNumber string `json:"phone_number"`
	MessageBody string `json:"message_body"`
}

// Payload is the gateway request body.
type Payload struct {
	Message     int    `json:"message"`
	APIKey      string `json:"api_key_app"`
	PhoneNumber string `json:"phone_number"`
	MessageBody string `json:"message_body"`
}

// Result is what the gateway answered. Payload echoes the request with the API key redacted.
type Result struct {
	Status   int     `json:"status"`
	Response string  `json:"response"`
	Payload  Payload `json:"payload"`
}

// Client posts messages to the gateway.
type Client struct {
	url    string
	apiKey string
	http   *resty.Client
	log    zerolog.Logger
}

// NewClient builds a traced client from cfg.
func NewClient(cfg config.SMSConfig, log zerolog.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if cfg.APIKey == "" {
		log.Warn().Str("event", "sms_not_configured").Msg("SMS_API_KEY is empty; sms sending is disabled")
	}
	return &Client{
		url:    cfg.GatewayURL,
		apiKey: cfg.APIKey,
		http: resty.New().
			SetTimeout(timeout).
			SetTransport(otelhttp.NewTransport(http.DefaultTransport)).
			SetHeader("Content-Type", "application/json"),
		log: log,
	}
}

// Send forwards msg. Any HTTP status from the gateway is a Result, not an error;
// errors mean the gateway could not be reached or no API key is configured.
func (c *Client) Send(ctx context.Context, msg Message) (*Result, error) {
	msg.PhoneNumber = strings.TrimSpace(msg.PhoneNumber)
	if msg.PhoneNumber == "" || strings.TrimSpace(msg.MessageBody) == "" {
		return nil, ErrInvalidMessage
	}
	if c.apiKey == "" {
		return nil, ErrNotConfigured
	}

	payload := Payload{Message: 1, APIKey: c.apiKey, PhoneNumber: msg.PhoneNumber, MessageBody: msg.MessageBody}

	c.log.Info().Str("phone_number", payload.PhoneNumber).Int("body_len", len(payload.MessageBody)).Msg("sms_send")

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		Post(c.url)
	if err != nil {
		c.log.Error().Err(err).Msg("sms_send_failed")
		return nil, fmt.Errorf("sms gateway: %w", err)
	}
	c.log.Info().Int("status", resp.StatusCode()).Msg("sms_gateway_response")

	payload.APIKey = redact(c.apiKey)
	return &Result{Status: resp.StatusCode(), Response: resp.String(), Payload: payload}, nil
}

func redact(key string) string {
	if len(key) <= 4 {
		return "***"
	}
	return key[:3] + "***"
}
