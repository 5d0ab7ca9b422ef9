package pdf

import (
	"fmt"
	"time"

	"github.com/kirillkom/document-qa-assistant/internal/core/domain"
)

func fileFooter(file domain.SourceFile) string {
	uploaded := file.UploadedAt
	if uploaded.IsZero() {
		uploaded = time.Now().UTC()
	}
	return fmt.Sprintf("File size: %d bytes, uploaded on %s", file.Size, uploaded.UTC().Format(time.RFC3339))
}

func unreadableStub(file domain.SourceFile) string {
	return fmt.Sprintf(`[PDF Content] - File: %s
Unable to extract readable text from this PDF. It may consist of scanned images or be password protected.
%s`, file.Name, fileFooter(file))
}

func lowConfidenceText(file domain.SourceFile, span string) string {
	return fmt.Sprintf(`[PDF Content - Text Extraction] - File: %s
Note: Structured PDF parsing failed; this is a low-confidence byte-level extraction.

Extracted Text (may contain formatting artifacts):
%s...

%s`, file.Name, span, fileFooter(file))
}

func failureStub(file domain.SourceFile, cause error) string {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return fmt.Sprintf(`[PDF Content] - File: %s
Error extracting text from PDF: %s
%s

The file was uploaded but no text could be extracted. Likely causes:
- The PDF contains scanned images instead of selectable text
- The PDF is password protected
- The PDF uses features the parser does not support
Questions can still be answered from the file name and metadata.`, file.Name, reason, fileFooter(file))
}
