package pdf

import (
	"bytes"
	"fmt"
	"strings"

	lpdf "github.com/ledongthuc/pdf"
)

// document is the page-indexed view the extractor needs from a parsing engine.
type document interface {
	NumPage() int
	PageText(n int) (string, error)
}

type openFunc func(raw []byte) (document, error)

type ledongthucDocument struct {
	reader *lpdf.Reader
}

func openLedongthuc(raw []byte) (doc document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("pdf engine panic: %v", rec)
		}
	}()

	reader, err := lpdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	return &ledongthucDocument{reader: reader}, nil
}

func (d *ledongthucDocument) NumPage() int {
	return d.reader.NumPage()
}

func (d *ledongthucDocument) PageText(n int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", n, rec)
		}
	}()

	page := d.reader.Page(n)
	if page.V.IsNull() {
		return "", fmt.Errorf("page %d: missing page object", n)
	}
	content, err := page.GetPlainText(nil)
	if err != nil {
		return "", fmt.Errorf("page %d: %w", n, err)
	}
	return strings.Join(strings.Fields(content), " "), nil
}
