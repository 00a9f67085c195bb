package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

const exchangeKind = "topic"

// AMQPConfig names the broker resources used for notifications
type AMQPConfig struct {
	URL      string
	Exchange string
	Queue    string
	Prefetch int
}

// amqpChannel is the part of *amqp.Channel the queue uses
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPQueue publishes messages as JSON to a durable topic exchange, routed by kind
type AMQPQueue struct {
	conn     *amqp.Connection
	ch       amqpChannel
	exchange string
	logger   zerolog.Logger
}

// DialAMQPQueue connects and declares the exchange
func DialAMQPQueue(cfg AMQPConfig, logger zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPQueue{
		conn:     conn,
		ch:       ch,
		exchange: cfg.Exchange,
		logger:   logger.With().Str("component", "amqp_queue").Logger(),
	}, nil
}

// Enqueue implements Queue
func (q *AMQPQueue) Enqueue(ctx context.Context, msgs ...Message) error {
	for _, msg := range msgs {
		if err := msg.Validate(); err != nil {
			return err
		}
		body, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("marshal notification: %w", err)
		}
		err = q.ch.PublishWithContext(ctx, q.exchange, string(msg.Kind), false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
		if err != nil {
			return fmt.Errorf("publish %s: %w", msg.Kind, err)
		}
		q.logger.Debug().Str("kind", string(msg.Kind)).Msg("Notification published")
	}
	return nil
}

// Close closes the broker connection
func (q *AMQPQueue) Close() error {
	if q.conn == nil {
		return nil
	}
	return q.conn.Close()
}

// Consumer drains the notification queue into a Sink
type Consumer struct {
	conn   *amqp.Connection
	ch     *amqp.Channel
	cfg    AMQPConfig
	sink   Sink
	logger zerolog.Logger
}

// NewConsumer connects, declares the queue and binds it to every kind
func NewConsumer(cfg AMQPConfig, sink Sink, logger zerolog.Logger) (*Consumer, error) {
	conn, err := amqp.DialConfig(cfg.URL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(cfg.Exchange, exchangeKind, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}
	for kind := range registry {
		if err := ch.QueueBind(q.Name, string(kind), cfg.Exchange, false, nil); err != nil {
			conn.Close()
			return nil, fmt.Errorf("bind %s: %w", kind, err)
		}
	}
	if cfg.Prefetch > 0 {
		if err := ch.Qos(cfg.Prefetch, 0, false); err != nil {
			conn.Close()
			return nil, fmt.Errorf("set qos: %w", err)
		}
	}
	return &Consumer{
		conn:   conn,
		ch:     ch,
		cfg:    cfg,
		sink:   sink,
		logger: logger.With().Str("component", "amqp_consumer").Logger(),
	}, nil
}

// Run consumes until ctx is cancelled or the channel closes
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.ConsumeWithContext(ctx, c.cfg.Queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}
	c.logger.Info().Str("queue", c.cfg.Queue).Msg("Consuming notifications")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle dispatches one delivery. A failed message is requeued once and
// dropped on its second failure.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error().Err(err).Msg("Dropping malformed notification")
		_ = d.Nack(false, false)
		return
	}

	if err := c.sink.Dispatch(ctx, msg); err != nil {
		if d.Redelivered {
			c.logger.Error().Err(err).Str("kind", string(msg.Kind)).Msg("Notification failed twice, dropping")
			_ = d.Nack(false, false)
			return
		}
		c.logger.Warn().Err(err).Str("kind", string(msg.Kind)).Msg("Notification failed, requeueing")
		_ = d.Nack(false, true)
		return
	}
	_ = d.Ack(false)
}

// Close closes the broker connection
func (c *Consumer) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}
