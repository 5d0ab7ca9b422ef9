package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

// DocumentStore keeps documents in insertion order. Callers always receive copies.
type DocumentStore struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]*domain.Document
}

func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]*domain.Document)}
}

func (s *DocumentStore) Add(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "add document", errors.New("document id is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.docs[doc.ID]; exists {
		return domain.WrapError(domain.ErrInvalidInput, "add document", fmt.Errorf("duplicate id=%s", doc.ID))
	}
	stored := *doc
	s.docs[doc.ID] = &stored
	s.order = append(s.order, doc.ID)
	return nil
}

func (s *DocumentStore) GetByID(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, notFound("get document", id)
	}
	out := *doc
	return &out, nil
}

func (s *DocumentStore) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Document, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.docs[id])
	}
	return out, nil
}

func (s *DocumentStore) Update(_ context.Context, id string, fn func(doc *domain.Document) error) (*domain.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, notFound("update document", id)
	}

	working := *doc
	if err := fn(&working); err != nil {
		return nil, err
	}
	// id is immutable
	working.ID = id
	*doc = working

	out := working
	return &out, nil
}

func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return notFound("delete document", id)
	}
	delete(s.docs, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func notFound(operation, id string) error {
	return domain.WrapError(domain.ErrDocumentNotFound, operation, fmt.Errorf("id=%s", id))
}
