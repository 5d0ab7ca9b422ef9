package spreadsheet

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

func buildWorkbook(t *testing.T) []byte {
	t.Helper()
	book := excelize.NewFile()
	defer book.Close()

	sheet := book.GetSheetName(0)
	if err := book.SetSheetRow(sheet, "A1", &[]any{"region", "revenue"}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}
	if err := book.SetSheetRow(sheet, "A2", &[]any{"north", 42}); err != nil {
		t.Fatalf("SetSheetRow() error = %v", err)
	}

	var buf bytes.Buffer
	if err := book.Write(&buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	return buf.Bytes()
}

func TestExtractRendersSheetRows(t *testing.T) {
	data := buildWorkbook(t)
	got, err := NewExtractor(0).Extract(context.Background(), domain.NewBytesFile("sales.xlsx", MimeXLSX, data))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if got.Strategy != domain.StrategySpreadsheet {
		t.Fatalf("unexpected strategy %s", got.Strategy)
	}
	if !strings.Contains(got.Text, "Sheet: Sheet1") || !strings.Contains(got.Text, "region\trevenue") || !strings.Contains(got.Text, "north\t42") {
		t.Fatalf("unexpected text: %q", got.Text)
	}
}

func TestExtractRejectsCorruptWorkbook(t *testing.T) {
	_, err := NewExtractor(0).Extract(context.Background(), domain.NewBytesFile("bad.xlsx", MimeXLSX, []byte("nope")))
	if err == nil {
		t.Fatalf("expected error for corrupt workbook")
	}
}
