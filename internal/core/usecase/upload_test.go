package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

func fastUploadOptions() UploadOptions {
	return UploadOptions{
		TickInterval: time.Millisecond,
		MaxIncrement: 20,
		Rand:         func() float64 { return 0 },
	}
}

func TestUploadPlainTextBecomesReadyWithExactContent(t *testing.T) {
	text := "Meeting notes: ship v2 on Friday. Owner is Dana!!\n"
	docs := newDocStoreFake()
	extractor := &extractorFake{extraction: domain.Extraction{Text: text, Strategy: domain.StrategyText}}
	uc := NewUploadDocumentUseCase(docs, extractor, nil, fastUploadOptions())

	doc, err := uc.Upload(context.Background(), domain.NewBytesFile("notes.txt", "text/plain", []byte(text)))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if doc.Status != domain.StatusReady || doc.Progress != 100 {
		t.Fatalf("unexpected final state: status=%s progress=%v", doc.Status, doc.Progress)
	}
	if doc.ContentText() != text {
		t.Fatalf("content = %q, want %q", doc.ContentText(), text)
	}
	if doc.ExtractionStrategy != domain.StrategyText || doc.Name != "notes.txt" || doc.Size != int64(len(text)) {
		t.Fatalf("unexpected document: %+v", doc)
	}
}

func TestUploadWaitsForExtractionBeforeReady(t *testing.T) {
	docs := newDocStoreFake()
	release := make(chan struct{})
	extractor := &extractorFake{extraction: domain.Extraction{Text: "late", Strategy: domain.StrategyText}, release: release}
	uc := NewUploadDocumentUseCase(docs, extractor, nil, fastUploadOptions())

	doc, err := uc.Create(context.Background(), domain.NewBytesFile("a.txt", "text/plain", []byte("late")))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if doc.Status != domain.StatusUploading || doc.Progress != 0 || doc.HasContent() {
		t.Fatalf("unexpected initial record: %+v", doc)
	}

	done := make(chan *domain.Document, 1)
	go func() {
		final, _ := uc.Process(context.Background(), doc.ID, domain.NewBytesFile("a.txt", "text/plain", []byte("late")))
		done <- final
	}()

	deadline := time.After(2 * time.Second)
	for {
		stored, _ := docs.get(doc.ID)
		if stored.Progress >= 100 {
			if stored.Status != domain.StatusUploading || stored.HasContent() {
				t.Fatalf("document must stay uploading without content until extraction ends: %+v", stored)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("progress never reached 100")
		case <-time.After(time.Millisecond):
		}
	}

	close(release)
	final := <-done
	if final == nil || final.Status != domain.StatusReady || final.ContentText() != "late" {
		t.Fatalf("unexpected final document: %+v", final)
	}
}

func TestUploadProgressIsMonotonicAndClamped(t *testing.T) {
	docs := newDocStoreFake()
	release := make(chan struct{})
	extractor := &extractorFake{extraction: domain.Extraction{Text: "x"}, release: release}
	opts := fastUploadOptions()
	opts.MaxIncrement = 30
	uc := NewUploadDocumentUseCase(docs, extractor, nil, opts)

	doc, err := uc.Create(context.Background(), domain.NewBytesFile("a.txt", "text/plain", []byte("x")))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	go func() {
		_, _ = uc.Process(context.Background(), doc.ID, domain.NewBytesFile("a.txt", "text/plain", []byte("x")))
	}()

	last := 0.0
	for last < 100 {
		stored, _ := docs.get(doc.ID)
		if stored.Progress < last || stored.Progress > 100 {
			t.Fatalf("progress went from %v to %v", last, stored.Progress)
		}
		last = stored.Progress
		time.Sleep(time.Millisecond)
	}
	close(release)
}

func TestUploadReadFailureMovesToError(t *testing.T) {
	docs := newDocStoreFake()
	readErr := domain.WrapError(domain.ErrReadFailure, "read text file", errors.New("failed to read file notes.txt"))
	uc := NewUploadDocumentUseCase(docs, &extractorFake{err: readErr}, nil, UploadOptions{TickInterval: time.Hour})

	doc, err := uc.Upload(context.Background(), domain.NewBytesFile("notes.txt", "text/plain", []byte("x")))
	if !domain.IsKind(err, domain.ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
	if doc == nil || doc.Status != domain.StatusError || doc.HasContent() || doc.Error == "" {
		t.Fatalf("expected error record without content, got %+v", doc)
	}
	stored, _ := docs.get(doc.ID)
	if stored.Status != domain.StatusError {
		t.Fatalf("store must reflect error status, got %s", stored.Status)
	}
}

func TestUploadStopsWhenLifetimeEnds(t *testing.T) {
	docs := newDocStoreFake()
	extractor := &extractorFake{extraction: domain.Extraction{Text: "x"}, release: make(chan struct{})}
	uc := NewUploadDocumentUseCase(docs, extractor, nil, fastUploadOptions())

	doc, err := uc.Create(context.Background(), domain.NewBytesFile("a.txt", "text/plain", []byte("x")))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = uc.Process(ctx, doc.ID, domain.NewBytesFile("a.txt", "text/plain", []byte("x")))
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected abandoned upload, got %v", err)
	}
	stored, _ := docs.get(doc.ID)
	if stored.Status != domain.StatusUploading || stored.Progress != 0 {
		t.Fatalf("no state may be written after cancellation, got %+v", stored)
	}
}

func TestUploadRejectsNamelessFile(t *testing.T) {
	uc := NewUploadDocumentUseCase(newDocStoreFake(), &extractorFake{}, nil, fastUploadOptions())
	_, err := uc.Upload(context.Background(), domain.NewBytesFile(" ", "text/plain", []byte("x")))
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIncrementIsWithinBounds(t *testing.T) {
	for _, r := range []float64{0, 0.5, 0.999999} {
		uc := NewUploadDocumentUseCase(newDocStoreFake(), &extractorFake{}, nil, UploadOptions{
			MaxIncrement: 20,
			Rand:         func() float64 { return r },
		})
		got := uc.increment()
		if got <= 0 || got > 20 {
			t.Fatalf("increment(%v) = %v, want (0, 20]", r, got)
		}
	}
}
