package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

const (
	DefaultHistoryWindow = 5
	RefusalAnswer        = "I couldn't find that information in the document."

	contentPreviewChars = 200
)

const answerSystemPrompt = "You are a helpful document analysis assistant. Answer questions using only the document " +
	"content and metadata you are given. If the requested information is not in the document, say: \"" + RefusalAnswer + "\""

type AnswerOptions struct {
	HistoryWindow int
	Now           func() time.Time
}

type AnswerUseCase struct {
	docs          ports.DocumentStore
	conversations ports.ConversationStore
	credentials   ports.CredentialStore
	llm           ports.ChatCompleter
	telemetry     ports.Telemetry
	historyWindow int
	now           func() time.Time
}

func NewAnswerUseCase(
	docs ports.DocumentStore,
	conversations ports.ConversationStore,
	credentials ports.CredentialStore,
	llm ports.ChatCompleter,
	telemetry ports.Telemetry,
	opts AnswerOptions,
) *AnswerUseCase {
	if opts.HistoryWindow <= 0 {
		opts.HistoryWindow = DefaultHistoryWindow
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if telemetry == nil {
		telemetry = noopTelemetry{}
	}
	return &AnswerUseCase{
		docs:          docs,
		conversations: conversations,
		credentials:   credentials,
		llm:           llm,
		telemetry:     telemetry,
		historyWindow: opts.HistoryWindow,
		now:           opts.Now,
	}
}

// Ask checks its preconditions in a fixed order (question, credential, document, readiness)
// and appends the resulting item only after a successful completion.
func (uc *AnswerUseCase) Ask(ctx context.Context, question, documentID string) (*domain.QAItem, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is empty"))
	}

	apiKey, err := uc.apiKey(ctx)
	if err != nil {
		return nil, err
	}

	doc, err := uc.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	if doc.Status != domain.StatusReady {
		return nil, domain.WrapError(domain.ErrDocumentNotReady, "ask", fmt.Errorf("document %s is %s", doc.Name, doc.Status))
	}

	previous, err := uc.conversations.ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document history: %w", err)
	}
	messages, err := BuildAnswerMessages(doc, previous, question, uc.historyWindow)
	if err != nil {
		return nil, err
	}

	uc.telemetry.AnswerStarted()
	defer uc.telemetry.AnswerFinished()
	started := time.Now()

	answer, err := uc.llm.Complete(ctx, apiKey, messages)
	if ctxErr := ctx.Err(); ctxErr != nil {
		uc.telemetry.ObserveAnswer("canceled", time.Since(started))
		return nil, fmt.Errorf("ask: %w", ctxErr)
	}
	if err != nil {
		uc.telemetry.ObserveAnswer("error", time.Since(started))
		return nil, domain.WrapError(domain.ErrServiceFailure, "ask", err)
	}

	answer = strings.TrimSpace(answer)
	if answer == "" {
		answer = RefusalAnswer
	}

	item := domain.QAItem{
		ID:         uuid.NewString(),
		Question:   question,
		Answer:     answer,
		Timestamp:  uc.now().UTC(),
		DocumentID: documentID,
	}

	// Appending under the document's update keeps the item from outliving a concurrent delete:
	// either the delete cascades it or the update reports the document gone.
	if _, err := uc.docs.Update(ctx, documentID, func(*domain.Document) error {
		return uc.conversations.Append(ctx, item)
	}); err != nil {
		uc.telemetry.ObserveAnswer("discarded", time.Since(started))
		return nil, fmt.Errorf("record answer: %w", err)
	}

	uc.telemetry.ObserveAnswer("ok", time.Since(started))
	slog.Info("answer_completed",
		"document_id", documentID,
		"history_items", min(len(previous), uc.historyWindow),
		"answer_len", len(answer),
		"duration_ms", time.Since(started).Milliseconds(),
	)
	return &item, nil
}

func (uc *AnswerUseCase) apiKey(ctx context.Context) (string, error) {
	key, err := uc.credentials.Get(ctx)
	if err != nil {
		if domain.IsKind(err, domain.ErrMissingCredential) {
			return "", err
		}
		return "", fmt.Errorf("read credential: %w", err)
	}
	if strings.TrimSpace(key) == "" {
		return "", domain.WrapError(domain.ErrMissingCredential, "ask", errors.New("no api key stored"))
	}
	return key, nil
}

// BuildAnswerMessages assembles the request sent to the answering service: the grounding
// instruction, the last window prior exchanges for this document oldest first, then the
// document itself with the question.
func BuildAnswerMessages(doc *domain.Document, previous []domain.QAItem, question string, window int) ([]domain.ChatMessage, error) {
	if window <= 0 {
		window = DefaultHistoryWindow
	}

	own := make([]domain.QAItem, 0, len(previous))
	for _, item := range previous {
		if item.DocumentID == doc.ID {
			own = append(own, item)
		}
	}
	sort.SliceStable(own, func(i, j int) bool {
		return own[i].Timestamp.Before(own[j].Timestamp)
	})
	if len(own) > window {
		own = own[len(own)-window:]
	}

	messages := make([]domain.ChatMessage, 0, 2+2*len(own))
	messages = append(messages, domain.ChatMessage{Role: domain.RoleSystem, Content: answerSystemPrompt})
	for _, item := range own {
		messages = append(messages,
			domain.ChatMessage{Role: domain.RoleUser, Content: "Previous Q: " + item.Question},
			domain.ChatMessage{Role: domain.RoleAssistant, Content: "Previous A: " + item.Answer},
		)
	}

	metadata, err := json.MarshalIndent(newDocumentMetadata(doc), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document metadata: %w", err)
	}

	var prompt strings.Builder
	prompt.WriteString("Document Metadata:\n")
	prompt.Write(metadata)
	prompt.WriteString("\n\nDocument Content:\n")
	prompt.WriteString(groundingContent(doc))
	prompt.WriteString("\n\nUser Question: ")
	prompt.WriteString(question)
	prompt.WriteString("\n\nInstructions:\n")
	prompt.WriteString("- Answer only from the document content and metadata above\n")
	prompt.WriteString("- If the answer is not in the document, respond with: \"" + RefusalAnswer + "\"\n")
	prompt.WriteString("- If you can answer only in part, say what is known and what is missing\n")
	prompt.WriteString("- Quote or reference the document where possible\n")
	prompt.WriteString("- Keep the response to 2-4 sentences\n")
	prompt.WriteString("- Use the metadata when it helps answer the question")

	messages = append(messages, domain.ChatMessage{Role: domain.RoleUser, Content: prompt.String()})
	return messages, nil
}

type documentMetadata struct {
	ID             string                `json:"id"`
	Name           string                `json:"name"`
	Type           string                `json:"type"`
	Size           int64                 `json:"size"`
	UploadDate     time.Time             `json:"uploadDate"`
	Status         domain.DocumentStatus `json:"status"`
	Progress       float64               `json:"progress"`
	HasContent     bool                  `json:"hasContent"`
	ContentPreview string                `json:"contentPreview"`
}

func newDocumentMetadata(doc *domain.Document) documentMetadata {
	content := doc.ContentText()
	preview := "No content extracted"
	if content != "" {
		runes := []rune(content)
		if len(runes) > contentPreviewChars {
			runes = runes[:contentPreviewChars]
		}
		preview = string(runes) + "..."
	}
	return documentMetadata{
		ID:             doc.ID,
		Name:           doc.Name,
		Type:           doc.Type,
		Size:           doc.Size,
		UploadDate:     doc.UploadDate,
		Status:         doc.Status,
		Progress:       doc.Progress,
		HasContent:     content != "",
		ContentPreview: preview,
	}
}

func groundingContent(doc *domain.Document) string {
	if content := doc.ContentText(); content != "" {
		return content
	}
	return fmt.Sprintf("No text could be extracted from %s, so only its metadata is available. "+
		"Answer from the metadata where possible and say plainly when the question needs the document's text.", doc.Name)
}

type noopTelemetry struct{}

func (noopTelemetry) ObserveUpload(string, time.Duration) {}
func (noopTelemetry) ObserveExtraction(string, bool) {}
func (noopTelemetry) ObserveAnswer(string, time.Duration) {}
func (noopTelemetry) AnswerStarted() {}
func (noopTelemetry) AnswerFinished() {}
