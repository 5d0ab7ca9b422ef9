package spreadsheet

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

const MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func Supports(file domain.SourceFile) bool {
	mimeType := strings.ToLower(strings.TrimSpace(file.MimeType))
	return mimeType == MimeXLSX || strings.EqualFold(filepath.Ext(file.Name), ".xlsx")
}

// Extractor renders every sheet as tab-separated rows under a "Sheet: <name>" header.
type Extractor struct {
	maxRows int
}

func NewExtractor(maxRowsPerSheet int) *Extractor {
	if maxRowsPerSheet <= 0 {
		maxRowsPerSheet = 1000
	}
	return &Extractor{maxRows: maxRowsPerSheet}
}

func (e *Extractor) Extract(ctx context.Context, file domain.SourceFile) (domain.Extraction, error) {
	if err := ctx.Err(); err != nil {
		return domain.Extraction{}, err
	}
	if file.Open == nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrReadFailure, "read spreadsheet", fmt.Errorf("no file handle for %s", file.Name))
	}

	reader, err := file.Open()
	if err != nil {
		return domain.Extraction{}, domain.WrapError(domain.ErrReadFailure, "read spreadsheet", err)
	}
	defer reader.Close()

	book, err := excelize.OpenReader(reader)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("open workbook %s: %w", file.Name, err)
	}
	defer book.Close()

	var b strings.Builder
	sheets := book.GetSheetList()
	for _, sheet := range sheets {
		rows, err := book.GetRows(sheet)
		if err != nil {
			return domain.Extraction{}, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		fmt.Fprintf(&b, "Sheet: %s\n", sheet)
		for i, row := range rows {
			if i >= e.maxRows {
				fmt.Fprintf(&b, "[Note: Only first %d rows extracted. Sheet has %d rows.]\n", e.maxRows, len(rows))
				break
			}
			b.WriteString(strings.Join(row, "\t"))
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
	}

	return domain.Extraction{
		Text:     strings.TrimSpace(b.String()),
		Strategy: domain.StrategySpreadsheet,
		Pages:    len(sheets),
	}, nil
}
