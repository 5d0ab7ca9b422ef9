package domain

import "time"

type NotificationKind string

const (
	NotifyUploadComplete    NotificationKind = "upload_complete"
	NotifyUploadFailed      NotificationKind = "upload_failed"
	NotifyQuestionFailed    NotificationKind = "question_failed"
	NotifyDocumentDeleted   NotificationKind = "document_deleted"
	NotifyCredentialSaved   NotificationKind = "credential_saved"
	NotifyCredentialRemoved NotificationKind = "credential_removed"
)

type NotificationLevel string

const (
	LevelInfo        NotificationLevel = "info"
	LevelDestructive NotificationLevel = "destructive"
)

// Notification is a transient, user-facing message about something that happened in the session.
type Notification struct {
	Kind       NotificationKind  `json:"kind"`
	Level      NotificationLevel `json:"level"`
	Title      string            `json:"title"`
	Message    string            `json:"message"`
	DocumentID string            `json:"document_id,omitempty"`
	At         time.Time         `json:"at"`
}
