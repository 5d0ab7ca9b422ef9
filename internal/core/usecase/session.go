package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

// Session is the only mutator of the document and conversation stores. It owns the
// current-document cursor, per-document loading state and each document's lifetime.
type Session struct {
	docs          ports.DocumentStore
	conversations ports.ConversationStore
	uploads       *UploadDocumentUseCase
	answers       *AnswerUseCase
	notifier      ports.Notifier
	now           func() time.Time

	root context.Context
	stop context.CancelFunc
	wg   sync.WaitGroup

	mu        sync.Mutex
	current   string
	lifetimes map[string]lifetime
	loading   map[string]int
}

type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSession(
	docs ports.DocumentStore,
	conversations ports.ConversationStore,
	uploads *UploadDocumentUseCase,
	answers *AnswerUseCase,
	notifier ports.Notifier,
) *Session {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	root, stop := context.WithCancel(context.Background())
	return &Session{
		docs:          docs,
		conversations: conversations,
		uploads:       uploads,
		answers:       answers,
		notifier:      notifier,
		now:           time.Now,
		root:          root,
		stop:          stop,
		lifetimes:     make(map[string]lifetime),
		loading:       make(map[string]int),
	}
}

// Close cancels every in-flight upload and waits for them to stop.
func (s *Session) Close() {
	s.stop()
	s.wg.Wait()
}

func (s *Session) Documents(ctx context.Context, nameQuery string) ([]domain.Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	query := strings.ToLower(strings.TrimSpace(nameQuery))
	if query == "" {
		return docs, nil
	}
	out := make([]domain.Document, 0, len(docs))
	for _, doc := range docs {
		if strings.Contains(strings.ToLower(doc.Name), query) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (s *Session) Document(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// CurrentDocument returns nil when no document is selected.
func (s *Session) CurrentDocument(ctx context.Context) (*domain.Document, error) {
	s.mu.Lock()
	id := s.current
	s.mu.Unlock()
	if id == "" {
		return nil, nil
	}

	doc, err := s.docs.GetByID(ctx, id)
	if domain.IsKind(err, domain.ErrDocumentNotFound) {
		return nil, nil
	}
	return doc, err
}

// Select moves the cursor to any existing document, ready or not.
func (s *Session) Select(ctx context.Context, documentID string) (*domain.Document, error) {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.current = doc.ID
	s.mu.Unlock()
	return doc, nil
}

// Upload waits for the document to become ready or fail. If ctx ends first the upload keeps
// running and ctx's error is returned.
func (s *Session) Upload(ctx context.Context, file domain.SourceFile) (*domain.Document, error) {
	_, results, err := s.StartUpload(ctx, file)
	if err != nil {
		return nil, err
	}
	select {
	case result := <-results:
		if result.Err != nil {
			return nil, result.Err
		}
		return result.Document, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// StartUpload stores the uploading record and returns it together with a channel that
// receives exactly one result. Uploads do not move the cursor.
func (s *Session) StartUpload(ctx context.Context, file domain.SourceFile) (*domain.Document, <-chan ports.UploadResult, error) {
	doc, err := s.uploads.Create(ctx, file)
	if err != nil {
		return nil, nil, err
	}

	life := s.register(doc.ID)
	results := make(chan ports.UploadResult, 1)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(results)

		final, err := s.uploads.Process(life.ctx, doc.ID, file)
		switch {
		case err == nil:
			s.notify(domain.Notification{
				Kind:       domain.NotifyUploadComplete,
				Level:      domain.LevelInfo,
				Title:      "Upload complete",
				Message:    fmt.Sprintf("%s has been processed and is ready for questions.", final.Name),
				DocumentID: doc.ID,
			})
		case life.ctx.Err() != nil || domain.IsKind(err, domain.ErrDocumentNotFound):
			slog.Info("document_upload_abandoned", "document_id", doc.ID)
		default:
			s.notify(domain.Notification{
				Kind:       domain.NotifyUploadFailed,
				Level:      domain.LevelDestructive,
				Title:      "Upload failed",
				Message:    fmt.Sprintf("Failed to process %s: %v", doc.Name, err),
				DocumentID: doc.ID,
			})
		}
		results <- ports.UploadResult{Document: final, Err: err}
	}()

	return doc, results, nil
}

// Delete removes the document, cancels its in-flight work and cascades to its history.
func (s *Session) Delete(ctx context.Context, documentID string) error {
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	life, tracked := s.lifetimes[documentID]
	delete(s.lifetimes, documentID)
	s.mu.Unlock()
	if tracked {
		life.cancel()
	}

	if err := s.docs.Delete(ctx, documentID); err != nil {
		return err
	}
	removed, err := s.conversations.DeleteByDocument(ctx, documentID)
	if err != nil {
		return fmt.Errorf("delete document history: %w", err)
	}

	if err := s.moveCursorFrom(ctx, documentID); err != nil {
		return err
	}

	slog.Info("document_deleted", "document_id", documentID, "qa_items_removed", removed)
	s.notify(domain.Notification{
		Kind:       domain.NotifyDocumentDeleted,
		Level:      domain.LevelInfo,
		Title:      "Document deleted",
		Message:    fmt.Sprintf("%s and its conversation history have been removed.", doc.Name),
		DocumentID: documentID,
	})
	return nil
}

func (s *Session) moveCursorFrom(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != documentID {
		return nil
	}

	remaining, err := s.docs.List(ctx)
	if err != nil {
		s.current = ""
		return fmt.Errorf("list documents: %w", err)
	}
	s.current = ""
	if len(remaining) > 0 {
		s.current = remaining[0].ID
	}
	return nil
}

// Ask marks the document as loading for the duration of the call. Deleting the document
// cancels the call.
func (s *Session) Ask(ctx context.Context, question, documentID string) (*domain.QAItem, error) {
	s.setLoading(documentID, true)
	defer s.setLoading(documentID, false)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	life, tracked := s.lifetimes[documentID]
	s.mu.Unlock()
	if tracked {
		stop := context.AfterFunc(life.ctx, cancel)
		defer stop()
	}

	item, err := s.answers.Ask(ctx, question, documentID)
	if err != nil {
		if tracked && life.ctx.Err() != nil {
			err = domain.WrapError(domain.ErrDocumentNotFound, "ask", errors.New("document was deleted"))
		}
		s.notify(domain.Notification{
			Kind:       domain.NotifyQuestionFailed,
			Level:      domain.LevelDestructive,
			Title:      "Error",
			Message:    err.Error(),
			DocumentID: documentID,
		})
		return nil, err
	}
	return item, nil
}

func (s *Session) Search(ctx context.Context, query string) ([]domain.QAItem, error) {
	return s.conversations.Search(ctx, query)
}

func (s *Session) History(ctx context.Context) ([]domain.QAItem, error) {
	return s.conversations.List(ctx)
}

func (s *Session) DocumentHistory(ctx context.Context, documentID string) ([]domain.QAItem, error) {
	return s.conversations.ListByDocument(ctx, documentID)
}

func (s *Session) IsLoading(documentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading[documentID] > 0
}

// Loading lists the documents with a question in flight.
func (s *Session) Loading() map[string]bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.loading))
	for id := range s.loading {
		out[id] = true
	}
	return out
}

func (s *Session) Stats(ctx context.Context) (domain.SessionStats, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("list documents: %w", err)
	}
	history, err := s.conversations.List(ctx)
	if err != nil {
		return domain.SessionStats{}, fmt.Errorf("list history: %w", err)
	}

	stats := domain.SessionStats{Documents: len(docs), Questions: len(history)}
	for _, doc := range docs {
		if doc.Status == domain.StatusReady {
			stats.ReadyDocuments++
		}
	}
	return stats, nil
}

func (s *Session) register(documentID string) lifetime {
	ctx, cancel := context.WithCancel(s.root)
	life := lifetime{ctx: ctx, cancel: cancel}
	s.mu.Lock()
	s.lifetimes[documentID] = life
	s.mu.Unlock()
	return life
}

func (s *Session) setLoading(documentID string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.loading[documentID]++
		return
	}
	if s.loading[documentID] <= 1 {
		delete(s.loading, documentID)
		return
	}
	s.loading[documentID]--
}

func (s *Session) notify(n domain.Notification) {
	if n.At.IsZero() {
		n.At = s.now().UTC()
	}
	if err := s.notifier.Notify(s.root, n); err != nil {
		slog.Warn("notification_failed", "kind", n.Kind, "error", err.Error())
	}
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, domain.Notification) error { return nil }
