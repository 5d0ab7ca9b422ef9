package httpadapter

import (
	"context"
	"io"
	"sync"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
)

type sessionFake struct {
	mu sync.Mutex

	docs         []domain.Document
	current      *domain.Document
	history      []domain.QAItem
	loading      map[string]bool
	stats        domain.SessionStats
	err          error
	askItem      *domain.QAItem
	uploaded     []domain.SourceFile
	uploadedBody []string
	asked        []string
	deleted      []string
	selected     string
	searched     string
	filtered     string
}

func (f *sessionFake) Documents(_ context.Context, nameQuery string) ([]domain.Document, error) {
	f.filtered = nameQuery
	return f.docs, f.err
}

func (f *sessionFake) Document(_ context.Context, id string) (*domain.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, doc := range f.docs {
		if doc.ID == id {
			out := doc
			return &out, nil
		}
	}
	return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", io.EOF)
}

func (f *sessionFake) CurrentDocument(context.Context) (*domain.Document, error) {
	return f.current, nil
}

func (f *sessionFake) Select(ctx context.Context, id string) (*domain.Document, error) {
	doc, err := f.Document(ctx, id)
	if err != nil {
		return nil, err
	}
	f.selected = id
	return doc, nil
}

func (f *sessionFake) Upload(_ context.Context, file domain.SourceFile) (*domain.Document, error) {
	if err := f.recordUpload(file); err != nil {
		return nil, err
	}
	content := "body"
	return &domain.Document{ID: "doc-new", Name: file.Name, Type: file.MimeType, Size: file.Size, Status: domain.StatusReady, Progress: 100, Content: &content}, nil
}

func (f *sessionFake) StartUpload(_ context.Context, file domain.SourceFile) (*domain.Document, <-chan ports.UploadResult, error) {
	if err := f.recordUpload(file); err != nil {
		return nil, nil, err
	}
	results := make(chan ports.UploadResult)
	close(results)
	return &domain.Document{ID: "doc-new", Name: file.Name, Type: file.MimeType, Size: file.Size, Status: domain.StatusUploading}, results, nil
}

func (f *sessionFake) recordUpload(file domain.SourceFile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, file)
	rc, err := file.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	raw, err := io.ReadAll(rc)
	if err != nil {
		return err
	}
	f.uploadedBody = append(f.uploadedBody, string(raw))
	return f.err
}

func (f *sessionFake) Delete(_ context.Context, id string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *sessionFake) Ask(_ context.Context, question, documentID string) (*domain.QAItem, error) {
	f.asked = append(f.asked, question)
	if f.err != nil {
		return nil, f.err
	}
	if f.askItem != nil {
		return f.askItem, nil
	}
	return &domain.QAItem{ID: "qa-1", Question: question, Answer: "42", DocumentID: documentID}, nil
}

func (f *sessionFake) Search(_ context.Context, query string) ([]domain.QAItem, error) {
	f.searched = query
	return f.history, f.err
}

func (f *sessionFake) History(context.Context) ([]domain.QAItem, error) {
	return f.history, f.err
}

func (f *sessionFake) DocumentHistory(_ context.Context, documentID string) ([]domain.QAItem, error) {
	var out []domain.QAItem
	for _, item := range f.history {
		if item.DocumentID == documentID {
			out = append(out, item)
		}
	}
	return out, f.err
}

func (f *sessionFake) IsLoading(documentID string) bool {
	return f.loading[documentID]
}

func (f *sessionFake) Loading() map[string]bool {
	out := make(map[string]bool, len(f.loading))
	for k, v := range f.loading {
		out[k] = v
	}
	return out
}

func (f *sessionFake) Stats(context.Context) (domain.SessionStats, error) {
	return f.stats, f.err
}

type credentialsFake struct {
	configured bool
	saved      string
	cleared    bool
	err        error
}

func (f *credentialsFake) HasCredential(context.Context) (bool, error) {
	return f.configured, f.err
}

func (f *credentialsFake) SaveCredential(_ context.Context, value string) error {
	if f.err != nil {
		return f.err
	}
	f.saved = value
	f.configured = true
	return nil
}

func (f *credentialsFake) ClearCredential(context.Context) error {
	if f.err != nil {
		return f.err
	}
	f.cleared = true
	f.configured = false
	return nil
}
