// Command worker consumes notification messages from RabbitMQ and delivers
// them by email and SMS.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/bootstrap"
	"github.com/yigit/uniadmit/internal/pkg/logger"
)

func main() {
	cfg, lgr, err := bootstrap.LoadConfigAndSetupLogger()
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	if !cfg.RabbitMQ.Enabled {
		lgr.Error().Msg("RabbitMQ is disabled; the API dispatches notifications inline")
		os.Exit(1)
	}

	files, err := bootstrap.NewFileStorage(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to open file storage")
		os.Exit(1)
	}

	// realtime events are published by the API process
	dispatcher := bootstrap.NewDispatcher(cfg, files, nil, lgr)
	if err := run(bootstrap.AMQPConfig(cfg), dispatcher); err != nil {
		lgr.Error().Err(err).Msg("Notification worker stopped")
		os.Exit(1)
	}
	lgr.Info().Msg("Notification worker finished gracefully.")
}

func run(cfg notifications.AMQPConfig, sink notifications.Sink) error {
	lgr := logger.Component("worker")
	consumer, err := notifications.NewConsumer(cfg, sink, lgr)
	if err != nil {
		return err
	}
	defer consumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lgr.Info().Str("queue", cfg.Queue).Msg("Notification worker started")
	if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
