package notify

import (
	"context"
	"errors"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

// Multi fans a notification out to every notifier and joins their errors.
type Multi []ports.Notifier

func (m Multi) Notify(ctx context.Context, notification domain.Notification) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, notification); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
