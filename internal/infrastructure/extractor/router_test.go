package extractor

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

type extractorFake struct {
	name  string
	calls int
	err   error
}

func (f *extractorFake) Extract(context.Context, domain.SourceFile) (domain.Extraction, error) {
	f.calls++
	if f.err != nil {
		return domain.Extraction{}, f.err
	}
	return domain.Extraction{Text: f.name, Strategy: f.name}, nil
}

func TestRouterDispatchesByType(t *testing.T) {
	pdfFake := &extractorFake{name: "pdf"}
	textFake := &extractorFake{name: "text"}
	router := NewRouter(pdfFake, textFake)

	cases := []struct {
		file domain.SourceFile
		want string
	}{
		{domain.SourceFile{Name: "a.pdf", MimeType: "application/pdf"}, "pdf"},
		{domain.SourceFile{Name: "notes.txt", MimeType: "text/plain"}, "text"},
		{domain.SourceFile{Name: "README.md", MimeType: ""}, "text"},
		{domain.SourceFile{Name: "data.csv", MimeType: "application/vnd.ms-excel"}, "text"},
	}
	for _, tc := range cases {
		got, err := router.Extract(context.Background(), tc.file)
		if err != nil {
			t.Fatalf("Extract(%s) error = %v", tc.file.Name, err)
		}
		if got.Strategy != tc.want {
			t.Fatalf("Extract(%s) strategy = %s, want %s", tc.file.Name, got.Strategy, tc.want)
		}
	}
}

func TestRouterStubsUnknownTypesWithoutReading(t *testing.T) {
	router := NewRouter(&extractorFake{name: "pdf"}, &extractorFake{name: "text"})
	opened := false
	file := domain.SourceFile{
		Name:       "proposal.docx",
		MimeType:   "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		Size:       1536000,
		UploadedAt: time.Date(2025, 8, 23, 0, 0, 0, 0, time.UTC),
		Open: func() (io.ReadCloser, error) {
			opened = true
			return nil, errors.New("should not be opened")
		},
	}

	got, err := router.Extract(context.Background(), file)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if opened {
		t.Fatalf("stub path must not read the file")
	}
	if got.Strategy != domain.StrategyStub || !got.Degraded {
		t.Fatalf("unexpected extraction: %+v", got)
	}
	for _, want := range []string{"proposal.docx", "wordprocessingml", "1536000 bytes", "2025-08-23T00:00:00Z", "specialized parsing"} {
		if !strings.Contains(got.Text, want) {
			t.Fatalf("stub missing %q: %s", want, got.Text)
		}
	}
}

func TestRouterUsesSpecializedRouteAndFallsBackOnFailure(t *testing.T) {
	xlsx := &extractorFake{name: "spreadsheet"}
	router := NewRouter(&extractorFake{name: "pdf"}, &extractorFake{name: "text"}, Route{
		Name:      "xlsx",
		Match:     func(f domain.SourceFile) bool { return strings.HasSuffix(f.Name, ".xlsx") },
		Extractor: xlsx,
	})

	got, _ := router.Extract(context.Background(), domain.SourceFile{Name: "a.xlsx", MimeType: "application/octet-stream"})
	if got.Strategy != "spreadsheet" {
		t.Fatalf("expected specialized route, got %+v", got)
	}

	xlsx.err = errors.New("corrupt")
	got, err := router.Extract(context.Background(), domain.SourceFile{Name: "a.xlsx", MimeType: "application/octet-stream"})
	if err != nil {
		t.Fatalf("parse failures must degrade to a stub, got %v", err)
	}
	if got.Strategy != domain.StrategyStub {
		t.Fatalf("expected stub after specialized failure, got %+v", got)
	}
}

func TestRouterPropagatesTextReadFailure(t *testing.T) {
	readErr := domain.WrapError(domain.ErrReadFailure, "read text file", errors.New("io"))
	router := NewRouter(&extractorFake{name: "pdf"}, &extractorFake{err: readErr})

	_, err := router.Extract(context.Background(), domain.SourceFile{Name: "a.txt", MimeType: "text/plain"})
	if !domain.IsKind(err, domain.ErrReadFailure) {
		t.Fatalf("expected ErrReadFailure, got %v", err)
	}
}
