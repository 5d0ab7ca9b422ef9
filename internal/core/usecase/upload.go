package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

const (
	DefaultProgressTick         = 200 * time.Millisecond
	DefaultProgressMaxIncrement = 20.0
)

// UploadOptions tune the progress simulation. Progress is decorative: it advances on a fixed
// tick by a random step in (0, MaxIncrement] and is not derived from bytes transferred.
type UploadOptions struct {
	TickInterval time.Duration
	MaxIncrement float64
	// Rand returns a value in [0, 1).
	Rand func() float64
	Now  func() time.Time
}

type UploadDocumentUseCase struct {
	docs      ports.DocumentStore
	extractor ports.TextExtractor
	telemetry ports.Telemetry
	opts      UploadOptions
}

func NewUploadDocumentUseCase(
	docs ports.DocumentStore,
	extractor ports.TextExtractor,
	telemetry ports.Telemetry,
	opts UploadOptions,
) *UploadDocumentUseCase {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultProgressTick
	}
	if opts.MaxIncrement <= 0 {
		opts.MaxIncrement = DefaultProgressMaxIncrement
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return &UploadDocumentUseCase{
		docs:      docs,
		extractor: extractor,
		telemetry: telemetry,
		opts:      opts,
	}
}

// Create stores a new document in the uploading state with zero progress.
func (uc *UploadDocumentUseCase) Create(ctx context.Context, file domain.SourceFile) (*domain.Document, error) {
	name := strings.TrimSpace(file.Name)
	if name == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("file name is required"))
	}
	if file.Open == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "create document", errors.New("file has no content"))
	}

	uploadedAt := file.UploadedAt
	if uploadedAt.IsZero() {
		uploadedAt = uc.opts.Now()
	}
	doc := &domain.Document{
		ID:         uuid.NewString(),
		Name:       name,
		Size:       file.Size,
		Type:       file.MimeType,
		UploadDate: uploadedAt.UTC(),
		Status:     domain.StatusUploading,
		Progress:   0,
	}
	if err := uc.docs.Add(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	slog.Info("document_upload_started",
		"document_id", doc.ID,
		"name", doc.Name,
		"mime_type", doc.Type,
		"size", doc.Size,
	)
	return doc, nil
}

// Upload creates the document and drives it to ready or error.
func (uc *UploadDocumentUseCase) Upload(ctx context.Context, file domain.SourceFile) (*domain.Document, error) {
	doc, err := uc.Create(ctx, file)
	if err != nil {
		return nil, err
	}
	return uc.Process(ctx, doc.ID, file)
}

type extractionOutcome struct {
	extraction domain.Extraction
	err        error
}

// Process runs extraction alongside the progress simulation for a document created by Create.
// ctx is the document's lifetime: once it is done no further state is written. The document
// becomes ready only when progress has reached 100 and extraction has finished; an extraction
// error moves it to error immediately and stops the ticker; the failed record is returned along
// with that error.
func (uc *UploadDocumentUseCase) Process(ctx context.Context, documentID string, file domain.SourceFile) (*domain.Document, error) {
	started := time.Now()

	extracted := make(chan extractionOutcome, 1)
	go func() {
		extraction, err := uc.extractor.Extract(ctx, file)
		extracted <- extractionOutcome{extraction: extraction, err: err}
	}()

	ticker := time.NewTicker(uc.opts.TickInterval)
	defer ticker.Stop()
	ticks := ticker.C

	progress := 0.0
	var outcome *extractionOutcome

	for {
		select {
		case <-ctx.Done():
			return nil, abandoned(documentID, ctx.Err())

		case o := <-extracted:
			extracted = nil
			if o.err != nil {
				return uc.fail(ctx, documentID, o.err, started)
			}
			outcome = &o
			uc.telemetry.ObserveExtraction(o.extraction.Strategy, o.extraction.Degraded)
			if progress >= 100 {
				return uc.finish(ctx, documentID, o.extraction, started)
			}

		case <-ticks:
			progress = min(100, progress+uc.increment())
			if err := uc.setProgress(ctx, documentID, progress); err != nil {
				return nil, err
			}
			if progress < 100 {
				continue
			}
			ticks = nil
			if outcome != nil {
				return uc.finish(ctx, documentID, outcome.extraction, started)
			}
		}
	}
}

func (uc *UploadDocumentUseCase) increment() float64 {
	// 1 - [0,1) keeps the step strictly positive.
	return uc.opts.MaxIncrement * (1 - uc.opts.Rand())
}

func (uc *UploadDocumentUseCase) setProgress(ctx context.Context, documentID string, progress float64) error {
	if ctx.Err() != nil {
		return abandoned(documentID, ctx.Err())
	}
	_, err := uc.docs.Update(ctx, documentID, func(doc *domain.Document) error {
		if doc.Status != domain.StatusUploading {
			return nil
		}
		doc.Progress = max(doc.Progress, progress)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update upload progress: %w", err)
	}
	return nil
}

func (uc *UploadDocumentUseCase) finish(ctx context.Context, documentID string, extraction domain.Extraction, started time.Time) (*domain.Document, error) {
	if ctx.Err() != nil {
		return nil, abandoned(documentID, ctx.Err())
	}

	content := extraction.Text
	doc, err := uc.docs.Update(ctx, documentID, func(doc *domain.Document) error {
		doc.Status = domain.StatusReady
		doc.Progress = 100
		doc.Content = &content
		doc.Error = ""
		doc.ExtractionStrategy = extraction.Strategy
		doc.ExtractionDegraded = extraction.Degraded
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark document ready: %w", err)
	}

	uc.telemetry.ObserveUpload("ready", time.Since(started))
	slog.Info("document_ready",
		"document_id", documentID,
		"strategy", extraction.Strategy,
		"degraded", extraction.Degraded,
		"content_len", len(content),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return doc, nil
}

func (uc *UploadDocumentUseCase) fail(ctx context.Context, documentID string, cause error, started time.Time) (*domain.Document, error) {
	if ctx.Err() != nil {
		return nil, abandoned(documentID, ctx.Err())
	}

	doc, err := uc.docs.Update(ctx, documentID, func(doc *domain.Document) error {
		doc.Status = domain.StatusError
		doc.Content = nil
		doc.Error = cause.Error()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("mark document failed: %w", errors.Join(cause, err))
	}

	uc.telemetry.ObserveUpload("error", time.Since(started))
	slog.Warn("document_upload_failed",
		"document_id", documentID,
		"error", cause.Error(),
	)
	return doc, cause
}

func abandoned(documentID string, cause error) error {
	return domain.WrapError(domain.ErrDocumentNotFound, "upload", fmt.Errorf("document %s was removed: %w", documentID, cause))
}
