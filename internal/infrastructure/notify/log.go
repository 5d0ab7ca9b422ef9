package notify

import (
	"context"
	"log/slog"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

// LogNotifier writes notifications to the structured log. It is always wired so that
// notifications stay visible when no broker is configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, notification domain.Notification) error {
	level := slog.LevelInfo
	if notification.Level == domain.LevelDestructive {
		level = slog.LevelWarn
	}
	n.logger.Log(ctx, level, "notification",
		"kind", string(notification.Kind),
		"title", notification.Title,
		"message", notification.Message,
		"document_id", notification.DocumentID,
	)
	return nil
}
