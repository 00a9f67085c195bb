package email

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNoRecipient is returned for messages without a destination address
var ErrNoRecipient = errors.New("email has no recipient")

// Attachment is a file sent with a message
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Message is a rendered email ready for delivery
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLBody    string
	TextBody    string
	Attachments []Attachment
}

// Validate checks the message has a recipient and some content
func (m *Message) Validate() error {
	if strings.TrimSpace(m.To) == "" {
		return ErrNoRecipient
	}
	if m.HTMLBody == "" && m.TextBody == "" && len(m.Attachments) == 0 {
		return errors.New("email has no content")
	}
	return nil
}

// Sender delivers email messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Config selects and configures the delivery provider
type Config struct {
	Provider       string // smtp, sendgrid or log
	SMTP           SMTPConfig
	SendGridAPIKey string
	SendGridHost   string
	FromName       string
	FromEmail      string
	SubjectPrefix  string
}

// NewSender builds the configured sender. Unknown or unconfigured providers
// fall back to logging the message.
func NewSender(cfg Config, logger zerolog.Logger) Sender {
	switch strings.ToLower(cfg.Provider) {
	case "smtp":
		if cfg.SMTP.Host != "" {
			smtpCfg := cfg.SMTP
			smtpCfg.FromName, smtpCfg.FromEmail = cfg.FromName, cfg.FromEmail
			return NewSMTPSender(smtpCfg, logger)
		}
	case "sendgrid":
		if cfg.SendGridAPIKey != "" {
			return NewSendGridSender(cfg.SendGridAPIKey, cfg.SendGridHost, cfg.FromName, cfg.FromEmail, cfg.SubjectPrefix, logger)
		}
	}
	logger.Warn().Str("provider", cfg.Provider).Msg("Email provider not configured - messages will be logged only")
	return NewLogSender(logger)
}

// LogSender logs messages instead of delivering them
type LogSender struct {
	logger zerolog.Logger
}

// NewLogSender creates a LogSender
func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send implements Sender
func (s *LogSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	s.logger.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Strs("attachments", names).
		Msg("Email delivery skipped (log provider)")
	return nil
}
