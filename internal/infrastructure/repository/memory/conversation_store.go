package memory

import (
	"context"
	"strings"
	"sync"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

// ConversationStore is an append-only log of question/answer exchanges.
type ConversationStore struct {
	mu    sync.RWMutex
	items []domain.QAItem
}

func NewConversationStore() *ConversationStore {
	return &ConversationStore{}
}

func (s *ConversationStore) Append(_ context.Context, item domain.QAItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, item)
	return nil
}

func (s *ConversationStore) List(_ context.Context) ([]domain.QAItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.QAItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *ConversationStore) ListByDocument(_ context.Context, documentID string) ([]domain.QAItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(func(item domain.QAItem) bool {
		return item.DocumentID == documentID
	}), nil
}

// Search matches question or answer case-insensitively. A blank query returns everything.
func (s *ConversationStore) Search(ctx context.Context, query string) ([]domain.QAItem, error) {
	if strings.TrimSpace(query) == "" {
		return s.List(ctx)
	}

	needle := strings.ToLower(query)
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.filter(func(item domain.QAItem) bool {
		return strings.Contains(strings.ToLower(item.Question), needle) ||
			strings.Contains(strings.ToLower(item.Answer), needle)
	}), nil
}

func (s *ConversationStore) DeleteByDocument(_ context.Context, documentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.items[:0]
	removed := 0
	for _, item := range s.items {
		if item.DocumentID == documentID {
			removed++
			continue
		}
		kept = append(kept, item)
	}
	// zero the tail so removed items are not retained by the backing array
	for i := len(kept); i < len(s.items); i++ {
		s.items[i] = domain.QAItem{}
	}
	s.items = kept
	return removed, nil
}

func (s *ConversationStore) filter(keep func(domain.QAItem) bool) []domain.QAItem {
	out := make([]domain.QAItem, 0)
	for _, item := range s.items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}
