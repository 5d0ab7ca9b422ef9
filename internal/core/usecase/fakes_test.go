package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

type docStoreFake struct {
	mu    sync.Mutex
	order []string
	docs  map[string]domain.Document
}

func newDocStoreFake(docs ...domain.Document) *docStoreFake {
	f := &docStoreFake{docs: make(map[string]domain.Document)}
	for _, doc := range docs {
		f.order = append(f.order, doc.ID)
		f.docs[doc.ID] = doc
	}
	return f
}

func (f *docStoreFake) Add(_ context.Context, doc *domain.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.order = append(f.order, doc.ID)
	f.docs[doc.ID] = *doc
	return nil
}

func (f *docStoreFake) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get", errors.New(id))
	}
	return &doc, nil
}

func (f *docStoreFake) List(context.Context) ([]domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Document, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.docs[id])
	}
	return out, nil
}

func (f *docStoreFake) Update(_ context.Context, id string, fn func(doc *domain.Document) error) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "update", errors.New(id))
	}
	if err := fn(&doc); err != nil {
		return nil, err
	}
	f.docs[id] = doc
	return &doc, nil
}

func (f *docStoreFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete", errors.New(id))
	}
	delete(f.docs, id)
	for i, existing := range f.order {
		if existing == id {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return nil
}

func (f *docStoreFake) get(id string) (domain.Document, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	return doc, ok
}

type conversationFake struct {
	mu    sync.Mutex
	items []domain.QAItem
}

func (f *conversationFake) Append(_ context.Context, item domain.QAItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, item)
	return nil
}

func (f *conversationFake) List(context.Context) ([]domain.QAItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.QAItem(nil), f.items...), nil
}

func (f *conversationFake) ListByDocument(_ context.Context, documentID string) ([]domain.QAItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.QAItem
	for _, item := range f.items {
		if item.DocumentID == documentID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *conversationFake) Search(_ context.Context, query string) ([]domain.QAItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	query = strings.ToLower(strings.TrimSpace(query))
	var out []domain.QAItem
	for _, item := range f.items {
		if query == "" || strings.Contains(strings.ToLower(item.Question+"\n"+item.Answer), query) {
			out = append(out, item)
		}
	}
	return out, nil
}

func (f *conversationFake) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	kept := f.items[:0]
	removed := 0
	for _, item := range f.items {
		if item.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	f.items = kept
	return removed, nil
}

func (f *conversationFake) len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}

type credentialFake struct {
	value string
	err   error
	reads int
}

func (f *credentialFake) Get(context.Context) (string, error) {
	f.reads++
	if f.err != nil {
		return "", f.err
	}
	if f.value == "" {
		return "", domain.WrapError(domain.ErrMissingCredential, "get credential", errors.New("not set"))
	}
	return f.value, nil
}

func (f *credentialFake) Set(_ context.Context, value string) error {
	if f.err != nil {
		return f.err
	}
	f.value = value
	return nil
}

func (f *credentialFake) Clear(context.Context) error {
	f.value = ""
	return nil
}

type completerFake struct {
	mu       sync.Mutex
	answer   string
	err      error
	calls    int
	apiKey   string
	messages []domain.ChatMessage
	// block, when set, holds Complete until it is closed or ctx ends.
	block chan struct{}
}

func (f *completerFake) Complete(ctx context.Context, apiKey string, messages []domain.ChatMessage) (string, error) {
	f.mu.Lock()
	f.calls++
	f.apiKey = apiKey
	f.messages = messages
	block := f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.answer, f.err
}

func (f *completerFake) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type extractorFake struct {
	extraction domain.Extraction
	err        error
	// release, when set, holds Extract until it is closed.
	release chan struct{}
}

func (f *extractorFake) Extract(ctx context.Context, file domain.SourceFile) (domain.Extraction, error) {
	if f.release != nil {
		select {
		case <-f.release:
		case <-ctx.Done():
			return domain.Extraction{}, ctx.Err()
		}
	}
	return f.extraction, f.err
}

type notifierFake struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (f *notifierFake) Notify(_ context.Context, n domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, n)
	return nil
}

func (f *notifierFake) kinds() []domain.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.NotificationKind, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.Kind)
	}
	return out
}

func readyDoc(id, content string) domain.Document {
	return domain.Document{
		ID:         id,
		Name:       id + ".txt",
		Size:       int64(len(content)),
		Type:       "text/plain",
		UploadDate: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Status:     domain.StatusReady,
		Progress:   100,
		Content:    &content,
	}
}
