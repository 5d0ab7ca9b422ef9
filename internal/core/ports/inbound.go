package ports

import (
	"context"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

// UploadResult is delivered once an upload reaches ready or error.
type UploadResult struct {
	Document *domain.Document
	Err      error
}

// SessionService is the contract presentation adapters use.
type SessionService interface {
	Documents(ctx context.Context, nameQuery string) ([]domain.Document, error)
	Document(ctx context.Context, id string) (*domain.Document, error)
	CurrentDocument(ctx context.Context) (*domain.Document, error)
	Select(ctx context.Context, documentID string) (*domain.Document, error)

	Upload(ctx context.Context, file domain.SourceFile) (*domain.Document, error)
	StartUpload(ctx context.Context, file domain.SourceFile) (*domain.Document, <-chan UploadResult, error)
	Delete(ctx context.Context, documentID string) error

	Ask(ctx context.Context, question, documentID string) (*domain.QAItem, error)
	Search(ctx context.Context, query string) ([]domain.QAItem, error)
	History(ctx context.Context) ([]domain.QAItem, error)
	DocumentHistory(ctx context.Context, documentID string) ([]domain.QAItem, error)

	IsLoading(documentID string) bool
	Loading() map[string]bool
	Stats(ctx context.Context) (domain.SessionStats, error)
}

// CredentialManager is the settings-side contract for the answering-service key.
type CredentialManager interface {
	HasCredential(ctx context.Context) (bool, error)
	SaveCredential(ctx context.Context, value string) error
	ClearCredential(ctx context.Context) error
}
