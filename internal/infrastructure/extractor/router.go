package extractor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
	"github.com/kirillkom/document-qa-assistant/internal/core/ports"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/document-qa-assistant/internal/infrastructure/extractor/plaintext"
)

// Route is an optional specialized parser consulted for files that are neither PDF nor text.
type Route struct {
	Name      string
	Match     func(domain.SourceFile) bool
	Extractor ports.TextExtractor
}

// Router picks an extraction strategy by declared type: PDF, then text, then specialized routes, then a stub.
type Router struct {
	pdf         ports.TextExtractor
	text        ports.TextExtractor
	specialized []Route
}

func NewRouter(pdfExtractor, textExtractor ports.TextExtractor, specialized ...Route) *Router {
	return &Router{
		pdf:         pdfExtractor,
		text:        textExtractor,
		specialized: specialized,
	}
}

func (r *Router) Extract(ctx context.Context, file domain.SourceFile) (domain.Extraction, error) {
	switch {
	case pdf.Supports(file):
		return r.pdf.Extract(ctx, file)
	case plaintext.Supports(file):
		return r.text.Extract(ctx, file)
	}

	for _, route := range r.specialized {
		if route.Match == nil || !route.Match(file) {
			continue
		}
		extraction, err := route.Extractor.Extract(ctx, file)
		if err == nil {
			return extraction, nil
		}
		if domain.IsKind(err, domain.ErrReadFailure) {
			return domain.Extraction{}, err
		}
		slog.Warn("specialized_extraction_failed", "route", route.Name, "file", file.Name, "error", err)
		break
	}

	return domain.Extraction{
		Text:     Stub(file),
		Strategy: domain.StrategyStub,
		Degraded: true,
	}, nil
}

// Stub describes a file whose content is not decoded.
func Stub(file domain.SourceFile) string {
	uploaded := file.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return fmt.Sprintf(`[%s] - File: %s
This file type requires specialized parsing to extract text content.
Current file info: %d bytes, uploaded on %s`, file.MimeType, file.Name, file.Size, uploaded.UTC().Format(time.RFC3339))
}
