package plaintext

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

var textExtensions = map[string]struct{}{
	".txt": {},
	".md":  {},
	".csv": {},
}

// Supports reports whether the file is decoded verbatim as text.
func Supports(file domain.SourceFile) bool {
	mimeType := strings.ToLower(strings.TrimSpace(file.MimeType))
	if strings.HasPrefix(mimeType, "text/") {
		return true
	}
	_, ok := textExtensions[strings.ToLower(filepath.Ext(file.Name))]
	return ok
}

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract decodes the file as UTF-8. This is the only extraction path that can fail.
func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile) (domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}
	if file.Open == nil {
		return domain.Extraction{}, readFailure(file, fmt.Errorf("no file handle"))
	}

	reader, err := file.Open()
	if err != nil {
		return domain.Extraction{}, readFailure(file, err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return domain.Extraction{}, readFailure(file, err)
	}

	return domain.Extraction{
		Text:     decode(raw),
		Strategy: domain.StrategyText,
	}, nil
}

func decode(raw []byte) string {
	text := strings.TrimPrefix(string(raw), "\uFEFF")
	return strings.ToValidUTF8(text, "\uFFFD")
}

func readFailure(file domain.SourceFile, err error) error {
	return domain.WrapError(domain.ErrReadFailure, "read text file", fmt.Errorf("failed to read file %s: %w", file.Name, err))
}
