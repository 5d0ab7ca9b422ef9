package memory

import (
	"context"
	"testing"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

func seedConversation(t *testing.T) *ConversationStore {
	t.Helper()
	store := NewConversationStore()
	base := time.Date(2025, 8, 23, 10, 0, 0, 0, time.UTC)
	items := []domain.QAItem{
		{ID: "1", DocumentID: "A", Question: "What are the main features?", Answer: "Authentication and search.", Timestamp: base},
		{ID: "2", DocumentID: "B", Question: "Timeline?", Answer: "Three PHASES over six months.", Timestamp: base.Add(time.Minute)},
		{ID: "3", DocumentID: "A", Question: "Who owns it?", Answer: "The platform team.", Timestamp: base.Add(2 * time.Minute)},
	}
	for _, item := range items {
		if err := store.Append(context.Background(), item); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	return store
}

func TestSearchBlankQueryReturnsEverything(t *testing.T) {
	store := seedConversation(t)
	for _, query := range []string{"", "   ", "\t\n"} {
		items, err := store.Search(context.Background(), query)
		if err != nil {
			t.Fatalf("Search(%q) error = %v", query, err)
		}
		if len(items) != 3 {
			t.Fatalf("Search(%q): expected 3 items, got %d", query, len(items))
		}
	}
}

func TestSearchMatchesQuestionOrAnswerCaseInsensitive(t *testing.T) {
	store := seedConversation(t)

	items, _ := store.Search(context.Background(), "phases")
	if len(items) != 1 || items[0].ID != "2" {
		t.Fatalf("expected answer match on item 2, got %+v", items)
	}

	items, _ = store.Search(context.Background(), "WHO OWNS")
	if len(items) != 1 || items[0].ID != "3" {
		t.Fatalf("expected question match on item 3, got %+v", items)
	}

	items, _ = store.Search(context.Background(), "nothing like this")
	if len(items) != 0 {
		t.Fatalf("expected no matches, got %+v", items)
	}
}

func TestDeleteByDocumentRemovesOnlyMatchingItems(t *testing.T) {
	store := seedConversation(t)

	removed, err := store.DeleteByDocument(context.Background(), "A")
	if err != nil {
		t.Fatalf("DeleteByDocument() error = %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	items, _ := store.List(context.Background())
	if len(items) != 1 || items[0].ID != "2" {
		t.Fatalf("expected only item 2 to remain, got %+v", items)
	}
}

func TestListByDocumentKeepsAppendOrder(t *testing.T) {
	store := seedConversation(t)
	items, _ := store.ListByDocument(context.Background(), "A")
	if len(items) != 2 || items[0].ID != "1" || items[1].ID != "3" {
		t.Fatalf("unexpected items: %+v", items)
	}
}
