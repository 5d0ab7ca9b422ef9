package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	mcpadapter "github.com/kirillkom/document-qa-assistant/internal/adapters/mcp"
	"github.com/kirillkom/document-qa-assistant/internal/bootstrap"
	"github.com/kirillkom/document-qa-assistant/internal/config"
	"github.com/kirillkom/document-qa-assistant/internal/observability/logging"
)

const serviceName = "mcp"

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	// stdout carries the protocol.
	logger := logging.NewJSONLoggerTo(os.Stderr, serviceName, cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(cfg, serviceName, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	srv := mcpadapter.NewServer(app.Session, app.Credentials, mcpadapter.Options{
		CredentialPrefix: cfg.CredentialPrefix,
		QuestionMaxChars: cfg.QuestionMaxChars,
	})
	logger.Info("mcp_serving")
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		logger.Error("mcp_serve_failed", "error", err)
		os.Exit(1)
	}
}
