package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/kirillkom/document-qa-assistant/internal/config"
	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	natsnotify "github.com/kirillkom/document-qa-assistant/internal/infrastructure/notify/nats"
	"github.com/kirillkom/document-qa-assistant/internal/observability/logging"
)

const serviceName = "events"

// events prints every session notification published on the bus as one JSON line.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	if cfg.NATSURL == "" {
		logger.Error("events_disabled", "reason", "NATS_URL is empty")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bus, err := natsnotify.New(cfg.NATSURL, cfg.NATSSubject, natsnotify.Options{})
	if err != nil {
		logger.Error("events_connect_failed", "url", cfg.NATSURL, "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	out := json.NewEncoder(os.Stdout)
	logger.Info("events_following", "subject", cfg.NATSSubject)
	err = bus.Follow(ctx, func(_ context.Context, notification domain.Notification) error {
		return out.Encode(notification)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("events_follow_failed", "error", err)
		os.Exit(1)
	}
}
