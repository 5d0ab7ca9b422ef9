package ports

import (
	"context"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

// DocumentStore keeps documents in upload order.
type DocumentStore interface {
	Add(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context) ([]domain.Document, error)
	// Update applies fn to the stored record under the store lock and returns the result.
	Update(ctx context.Context, id string, fn func(doc *domain.Document) error) (*domain.Document, error)
	Delete(ctx context.Context, id string) error
}

// ConversationStore is the append-only question/answer log.
type ConversationStore interface {
	Append(ctx context.Context, item domain.QAItem) error
	List(ctx context.Context) ([]domain.QAItem, error)
	ListByDocument(ctx context.Context, documentID string) ([]domain.QAItem, error)
	Search(ctx context.Context, query string) ([]domain.QAItem, error)
	DeleteByDocument(ctx context.Context, documentID string) (int, error)
}

// TextExtractor produces plain text from a raw file.
type TextExtractor interface {
	Extract(ctx context.Context, file domain.SourceFile) (domain.Extraction, error)
}

// CredentialStore holds the single answering-service credential.
type CredentialStore interface {
	Get(ctx context.Context) (string, error)
	Set(ctx context.Context, value string) error
	Clear(ctx context.Context) error
}

// ChatCompleter submits one chat-style request and returns the completion text.
type ChatCompleter interface {
	Complete(ctx context.Context, apiKey string, messages []domain.ChatMessage) (string, error)
}

// Notifier delivers transient notifications to whoever renders them.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notification) error
}

// Telemetry receives lifecycle observations for metrics.
type Telemetry interface {
	ObserveUpload(status string, duration time.Duration)
	ObserveExtraction(strategy string, degraded bool)
	ObserveAnswer(status string, duration time.Duration)
	AnswerStarted()
	AnswerFinished()
}
