package notifications

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/pkg/email"
	"github.com/yigit/uniadmit/internal/pkg/sms"
	"github.com/yigit/uniadmit/internal/pkg/websocket"
)

// Publisher pushes realtime events to hub rooms
type Publisher interface {
	Publish(event websocket.Event, rooms ...string) error
}

// FileResolver maps a stored file URL to a filesystem path
type FileResolver interface {
	GetFullPath(fileURL string) (string, error)
}

// Dispatcher fans a message out to every channel that applies to it
type Dispatcher struct {
	email   email.Sender
	sms     sms.Sender
	hub     Publisher
	files   FileResolver
	timeout time.Duration
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher; hub and files may be nil
func NewDispatcher(emailSender email.Sender, smsSender sms.Sender, hub Publisher, files FileResolver, timeout time.Duration, logger zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Dispatcher{
		email:   emailSender,
		sms:     smsSender,
		hub:     hub,
		files:   files,
		timeout: timeout,
		logger:  logger.With().Str("component", "notifications").Logger(),
	}
}

// Dispatch delivers msg. Every channel is attempted; their errors are joined.
func (d *Dispatcher) Dispatch(ctx context.Context, msg Message) error {
	content, err := render(msg)
	if err != nil {
		return err
	}
	log := d.logger.With().Str("kind", string(msg.Kind)).Int64("accountID", msg.AccountID).Logger()

	var errs []error
	if msg.To != "" && d.email != nil && (content.HTML != "" || content.Text != "") {
		if err := d.sendEmail(ctx, msg, content); err != nil {
			log.Error().Err(err).Str("to", msg.To).Msg("Email delivery failed")
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}

	if msg.Phone != "" && d.sms != nil && content.SMS != "" {
		sctx, cancel := context.WithTimeout(ctx, d.timeout)
		err := d.sms.Send(sctx, msg.Phone, content.SMS)
		cancel()
		if err != nil {
			log.Error().Err(err).Msg("SMS delivery failed")
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}

	if d.hub != nil {
		if err := d.publish(msg); err != nil {
			log.Warn().Err(err).Msg("Realtime publish failed")
			errs = append(errs, fmt.Errorf("realtime: %w", err))
		}
	}

	if len(errs) == 0 {
		log.Debug().Msg("Notification dispatched")
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) sendEmail(ctx context.Context, msg Message, content *rendered) error {
	out := email.Message{
		To:       msg.To,
		ToName:   msg.ToName,
		Subject:  content.Subject,
		HTMLBody: content.HTML,
		TextBody: content.Text,
	}

	if msg.AttachmentPath != "" && d.files != nil {
		path, err := d.files.GetFullPath(msg.AttachmentPath)
		if err != nil {
			return fmt.Errorf("resolve attachment: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read attachment: %w", err)
		}
		out.Attachments = append(out.Attachments, email.Attachment{
			Filename:    filepath.Base(path),
			ContentType: "application/pdf",
			Data:        data,
		})
	}

	ectx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.email.Send(ectx, out)
}

func (d *Dispatcher) publish(msg Message) error {
	def := registry[msg.Kind]
	rooms := make([]string, 0, len(def.staffRooms)+1)
	if msg.AccountID > 0 {
		rooms = append(rooms, websocket.AccountRoom(msg.AccountID))
	}
	for _, role := range def.staffRooms {
		rooms = append(rooms, websocket.RoleRoom(role))
	}

	payload := make(map[string]string, len(msg.Data))
	for k, v := range msg.Data {
		// credentials are only ever emailed
		if k == "pin" {
			continue
		}
		payload[k] = v
	}
	return d.hub.Publish(websocket.Event{Type: def.event, Payload: payload, Timestamp: time.Now().UTC()}, rooms...)
}
