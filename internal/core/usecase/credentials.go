package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

// CredentialUseCase manages the answering-service key. Format checks belong to the caller.
type CredentialUseCase struct {
	store    ports.CredentialStore
	notifier ports.Notifier
}

func NewCredentialUseCase(store ports.CredentialStore, notifier ports.Notifier) *CredentialUseCase {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &CredentialUseCase{store: store, notifier: notifier}
}

func (uc *CredentialUseCase) HasCredential(ctx context.Context) (bool, error) {
	value, err := uc.store.Get(ctx)
	if domain.IsKind(err, domain.ErrMissingCredential) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read credential: %w", err)
	}
	return strings.TrimSpace(value) != "", nil
}

func (uc *CredentialUseCase) SaveCredential(ctx context.Context, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return domain.WrapError(domain.ErrInvalidInput, "save credential", errors.New("api key is empty"))
	}
	if err := uc.store.Set(ctx, value); err != nil {
		return fmt.Errorf("save credential: %w", err)
	}
	uc.notify(ctx, domain.NotifyCredentialSaved, "API Key Saved", "Your API key has been saved.")
	return nil
}

func (uc *CredentialUseCase) ClearCredential(ctx context.Context) error {
	if err := uc.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	uc.notify(ctx, domain.NotifyCredentialRemoved, "API Key Removed", "Your API key has been removed.")
	return nil
}

func (uc *CredentialUseCase) notify(ctx context.Context, kind domain.NotificationKind, title, message string) {
	_ = uc.notifier.Notify(ctx, domain.Notification{
		Kind:    kind,
		Level:   domain.LevelInfo,
		Title:   title,
		Message: message,
		At:      time.Now().UTC(),
	})
}
