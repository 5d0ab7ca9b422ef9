package localfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

const (
	DefaultDir = "./data/credentials"
	DefaultKey = "openai-api-key"
)

// Store keeps a single credential value in a file named after its key.
type Store struct {
	mu   sync.Mutex
	path string
}

func New(dir, key string) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if key == "" {
		key = DefaultKey
	}
	if strings.ContainsAny(key, `/\`) || key == "." || key == ".." {
		return nil, fmt.Errorf("invalid credential key %q", key)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create credential dir: %w", err)
	}
	return &Store{path: filepath.Join(dir, key)}, nil
}

func (s *Store) Get(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", domain.WrapError(domain.ErrMissingCredential, "read credential", errors.New("no api key stored"))
	}
	if err != nil {
		return "", fmt.Errorf("read credential file: %w", err)
	}

	value := strings.TrimSpace(string(raw))
	if value == "" {
		return "", domain.WrapError(domain.ErrMissingCredential, "read credential", errors.New("stored api key is empty"))
	}
	return value, nil
}

// Set replaces the stored value through a temp file so readers never see a partial write.
func (s *Store) Set(_ context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credential-*")
	if err != nil {
		return fmt.Errorf("create temp credential file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod credential file: %w", err)
	}
	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close credential file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

func (s *Store) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove credential file: %w", err)
	}
	return nil
}
