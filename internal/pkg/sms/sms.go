// Package sms sends text messages through an HTTP SMS gateway.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned when the phone number is empty
var ErrNoRecipient = errors.New("sms has no recipient")

// Sender delivers SMS messages
type Sender interface {
	Send(ctx context.Context, to, message string) error
}

// Config holds gateway settings
type Config struct {
	Enabled  bool
	URL      string
	APIKey   string
	SenderID string
	Timeout  time.Duration
}

// NewSender returns an HTTP sender when the gateway is configured, else a log-only sender
func NewSender(cfg Config, logger zerolog.Logger) Sender {
	if !cfg.Enabled || cfg.URL == "" {
		return &LogSender{logger: logger}
	}
	return NewHTTPSender(cfg, logger)
}

// HTTPSender posts messages as JSON to the configured gateway
type HTTPSender struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHTTPSender creates an HTTPSender
func NewHTTPSender(cfg Config, logger zerolog.Logger) *HTTPSender {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &HTTPSender{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	From    string `json:"from"`
	Message string `json:"message"`
}

// Send implements Sender
func (s *HTTPSender) Send(ctx context.Context, to, message string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	body, err := json.Marshal(sendRequest{To: to, From: s.cfg.SenderID, Message: message})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		s.logger.Warn().Int("status", resp.StatusCode).Str("body", string(snippet)).Msg("SMS gateway rejected message")
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}
	return nil
}

// LogSender only logs messages
type LogSender struct {
	logger zerolog.Logger
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, to, message string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	s.logger.Info().Str("to", to).Int("length", len(message)).Msg("SMS delivery skipped (gateway disabled)")
	return nil
}
