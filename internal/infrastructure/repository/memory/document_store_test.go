package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

func TestDocumentStoreKeepsInsertionOrder(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	for _, id := range []string{"b", "a", "c"} {
		if err := store.Add(ctx, &domain.Document{ID: id, Name: id + ".txt"}); err != nil {
			t.Fatalf("Add(%s) error = %v", id, err)
		}
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(docs) != 3 || docs[0].ID != "b" || docs[1].ID != "a" || docs[2].ID != "c" {
		t.Fatalf("unexpected order: %+v", docs)
	}
}

func TestDocumentStoreRejectsDuplicateID(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	if err := store.Add(ctx, &domain.Document{ID: "doc-1"}); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	err := store.Add(ctx, &domain.Document{ID: "doc-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDocumentStoreUpdateKeepsIDImmutable(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	_ = store.Add(ctx, &domain.Document{ID: "doc-1", Status: domain.StatusUploading})

	updated, err := store.Update(ctx, "doc-1", func(doc *domain.Document) error {
		doc.ID = "other"
		doc.Status = domain.StatusReady
		return nil
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.ID != "doc-1" || updated.Status != domain.StatusReady {
		t.Fatalf("unexpected update result: %+v", updated)
	}
	if _, err := store.GetByID(ctx, "other"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected id to stay immutable, got %v", err)
	}
}

func TestDocumentStoreUpdateErrorLeavesRecordUntouched(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	_ = store.Add(ctx, &domain.Document{ID: "doc-1", Progress: 10})

	boom := errors.New("boom")
	_, err := store.Update(ctx, "doc-1", func(doc *domain.Document) error {
		doc.Progress = 90
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected callback error, got %v", err)
	}
	doc, _ := store.GetByID(ctx, "doc-1")
	if doc.Progress != 10 {
		t.Fatalf("expected progress 10, got %v", doc.Progress)
	}
}

func TestDocumentStoreMissingDocumentIsNotFound(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	if _, err := store.Update(ctx, "missing", func(*domain.Document) error { return nil }); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Update: expected ErrDocumentNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("Delete: expected ErrDocumentNotFound, got %v", err)
	}
}

func TestDocumentStoreReturnsCopies(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	_ = store.Add(ctx, &domain.Document{ID: "doc-1", Name: "a.txt"})

	doc, _ := store.GetByID(ctx, "doc-1")
	doc.Name = "mutated"

	again, _ := store.GetByID(ctx, "doc-1")
	if again.Name != "a.txt" {
		t.Fatalf("expected stored name to be unchanged, got %s", again.Name)
	}
}
