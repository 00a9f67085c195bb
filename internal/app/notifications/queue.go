package notifications

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sink delivers one message; Dispatcher is the production sink
type Sink interface {
	Dispatch(ctx context.Context, msg Message) error
}

// InlineQueue dispatches each message on its own goroutine, detached from
// the request context and bounded by timeout.
type InlineQueue struct {
	sink    Sink
	timeout time.Duration
	logger  zerolog.Logger
	wg      sync.WaitGroup
}

// NewInlineQueue creates an in-process queue
func NewInlineQueue(sink Sink, timeout time.Duration, logger zerolog.Logger) *InlineQueue {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &InlineQueue{sink: sink, timeout: timeout, logger: logger}
}

// Enqueue implements Queue
func (q *InlineQueue) Enqueue(_ context.Context, msgs ...Message) error {
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return err
		}
	}
	for _, msg := range msgs {
		q.wg.Add(1)
		go func(msg Message) {
			defer q.wg.Done()
			defer func() {
				if r := recover(); r != nil {
					q.logger.Error().Interface("panic", r).Str("kind", string(msg.Kind)).Msg("Notification dispatch panicked")
				}
			}()
			ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
			defer cancel()
			if err := q.sink.Dispatch(ctx, msg); err != nil {
				q.logger.Error().Err(err).Str("kind", string(msg.Kind)).Msg("Notification dispatch failed")
			}
		}(msg)
	}
	return nil
}

// Close waits for in-flight dispatches
func (q *InlineQueue) Close() {
	q.wg.Wait()
}

// FanoutQueue hands every message to each queue. In broker mode the API
// pairs the AMQP queue with an inline realtime-only queue, since websocket
// clients are connected to the API process.
type FanoutQueue []Queue

// Enqueue implements Queue
func (f FanoutQueue) Enqueue(ctx context.Context, msgs ...Message) error {
	var errs []error
	for _, q := range f {
		if err := q.Enqueue(ctx, msgs...); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
