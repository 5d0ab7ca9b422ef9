package localfs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

func TestStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir, "openai-api-key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if _, err := store.Get(ctx); !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential before Set, got %v", err)
	}

	if err := store.Set(ctx, "sk-secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	got, err := store.Get(ctx)
	if err != nil || got != "sk-secret" {
		t.Fatalf("Get() = %q, %v", got, err)
	}

	info, err := os.Stat(filepath.Join(dir, "openai-api-key"))
	if err != nil {
		t.Fatalf("stat credential file: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Fatalf("expected 0600 permissions, got %o", perm)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if _, err := store.Get(ctx); !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential after Clear, got %v", err)
	}
	if err := store.Clear(ctx); err != nil {
		t.Fatalf("second Clear() must be a no-op, got %v", err)
	}
}

func TestStoreTreatsBlankFileAsMissing(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "key"), []byte(" \n"), 0o600); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	store, err := New(dir, "key")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := store.Get(context.Background()); !domain.IsKind(err, domain.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestNewRejectsPathLikeKey(t *testing.T) {
	if _, err := New(t.TempDir(), "../escape"); err == nil {
		t.Fatalf("expected error for key with path separator")
	}
}
