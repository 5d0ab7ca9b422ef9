package bootstrap

import (
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kirillkom/document-qa-assistant/internal/config"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
	"github.com/kirillkom/document-qa-assistant/internal/core/usecase"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/credentials/localfs"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/extractor"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/llm/openai"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/notify"
	natsnotify "github.com/kirillkom/document-qa-assistant/internal/infrastructure/notify/nats"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/repository/memory"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/resilience"
	"github.com/kirillkom/document-qa-assistant/internal/observability/metrics"
)

const spreadsheetMaxRows = 200

type App struct {
	Config config.Config

	Session     *usecase.Session
	Credentials *usecase.CredentialUseCase
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

// New wires a single-user session around in-memory stores. service labels logs and metrics.
func New(cfg config.Config, service string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	credentialStore, err := localfs.New(cfg.CredentialDir, cfg.CredentialKey)
	if err != nil {
		return nil, fmt.Errorf("init credential store: %w", err)
	}

	notifiers := notify.Multi{notify.NewLogNotifier(logger)}
	var bus *natsnotify.Bus
	if cfg.NATSURL != "" {
		bus, err = natsnotify.New(cfg.NATSURL, cfg.NATSSubject, natsnotify.Options{})
		if err != nil {
			return nil, fmt.Errorf("init notification bus: %w", err)
		}
		notifiers = append(notifiers, bus)
	}

	var (
		telemetry   ports.Telemetry
		httpMetrics *metrics.HTTPServerMetrics
	)
	if cfg.MetricsEnabled {
		registry := prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		httpMetrics = metrics.NewHTTPServerMetrics(service, registry)
		telemetry = metrics.NewSessionMetrics(service, registry)
	}

	llmPolicy := resilience.DefaultPolicy()
	llmPolicy.MaxAttempts = cfg.LLMRetryMaxAttempts
	llmPolicy.BreakerEnabled = cfg.LLMBreakerEnabled
	llm := openai.New(openai.Options{
		BaseURL:  cfg.OpenAIBaseURL,
		Model:    cfg.OpenAIModel,
		Timeout:  cfg.OpenAITimeout(),
		Executor: resilience.NewExecutor(llmPolicy),
	})

	var routes []extractor.Route
	if cfg.ExtractSpreadsheets {
		routes = append(routes, extractor.Route{
			Name:      "spreadsheet",
			Match:     spreadsheet.Supports,
			Extractor: spreadsheet.NewExtractor(spreadsheetMaxRows),
		})
	}
	textExtractor := extractor.NewRouter(
		pdf.NewExtractor(pdf.Options{
			MaxPages:         cfg.PDFMaxPages,
			Workers:          cfg.PDFWorkers,
			FallbackMinChars: cfg.FallbackMinChars,
			FallbackMaxChars: cfg.FallbackMaxChars,
			Attempts:         cfg.PDFParseAttempts,
		}),
		plaintext.NewExtractor(),
		routes...,
	)

	docs := memory.NewDocumentStore()
	conversations := memory.NewConversationStore()

	uploads := usecase.NewUploadDocumentUseCase(docs, textExtractor, telemetry, usecase.UploadOptions{
		TickInterval: cfg.ProgressTick(),
		MaxIncrement: cfg.ProgressMaxIncrement,
	})
	answers := usecase.NewAnswerUseCase(docs, conversations, credentialStore, llm, telemetry, usecase.AnswerOptions{
		HistoryWindow: cfg.HistoryWindow,
	})
	session := usecase.NewSession(docs, conversations, uploads, answers, notifiers)
	credentialUC := usecase.NewCredentialUseCase(credentialStore, notifiers)

	logger.Info("bootstrap_ready",
		"model", llm.Model(),
		"metrics", cfg.MetricsEnabled,
		"nats", bus != nil,
		"spreadsheets", cfg.ExtractSpreadsheets,
		"progress_tick", cfg.ProgressTick().String(),
	)

	return &App{
		Config:      cfg,
		Session:     session,
		Credentials: credentialUC,
		HTTPMetrics: httpMetrics,
		closeFn: func() {
			session.Close()
			if bus != nil {
				bus.Close()
			}
		},
	}, nil
}

// Close stops in-flight uploads and releases the notification bus.
func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
