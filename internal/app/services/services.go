// Package services holds the admission, finance and academic business logic.
// Services own transaction boundaries; controllers only translate HTTP.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/pkg/apperrors"
	"github.com/yigit/uniadmit/internal/pkg/validation"
)

// Clock returns the current time
type Clock func() time.Time

func utcNow() time.Time { return time.Now().UTC() }

// ruleError turns a validation rule failure into a client-facing validation error
func ruleError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, validation.ErrRuleViolation) {
		msg := strings.TrimPrefix(err.Error(), validation.ErrRuleViolation.Error()+": ")
		return apperrors.NewValidationError(msg)
	}
	return err
}

// firstError returns the first non-nil rule failure
func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return ruleError(err)
		}
	}
	return nil
}

// enqueueAfterCommit hands messages to the queue once the state change is
// durable. Failures are logged and never reported to the caller.
func enqueueAfterCommit(ctx context.Context, queue notifications.Queue, logger zerolog.Logger, msgs ...notifications.Message) {
	if queue == nil || len(msgs) == 0 {
		return
	}
	if err := queue.Enqueue(context.WithoutCancel(ctx), msgs...); err != nil {
		kinds := make([]string, 0, len(msgs))
		for _, m := range msgs {
			kinds = append(kinds, string(m.Kind))
		}
		logger.Error().Err(err).Strs("kinds", kinds).Msg("Failed to enqueue notifications")
	}
}
