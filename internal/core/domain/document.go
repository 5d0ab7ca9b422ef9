package domain

import "time"

type DocumentStatus string

const (
	StatusUploading DocumentStatus = "uploading"
	// StatusProcessing is reserved for multi-stage pipelines; uploads never enter it.
	StatusProcessing DocumentStatus = "processing"
	StatusReady      DocumentStatus = "ready"
	StatusError      DocumentStatus = "error"
)

type Document struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Size       int64          `json:"size"`
	Type       string         `json:"type"`
	UploadDate time.Time      `json:"upload_date"`
	Status     DocumentStatus `json:"status"`
	Progress   float64        `json:"progress"`
	Content    *string        `json:"content,omitempty"`
	Error      string         `json:"error,omitempty"`

	ExtractionStrategy string `json:"extraction_strategy,omitempty"`
	ExtractionDegraded bool   `json:"extraction_degraded,omitempty"`
}

func (d *Document) HasContent() bool {
	return d != nil && d.Content != nil
}

// ContentText returns the extracted text or an empty string.
func (d *Document) ContentText() string {
	if d == nil || d.Content == nil {
		return ""
	}
	return *d.Content
}

type Extraction struct {
	Text     string `json:"text"`
	Strategy string `json:"strategy"`
	Degraded bool   `json:"degraded"`
	Pages    int    `json:"pages,omitempty"`
}

const (
	StrategyPDF         = "pdf"
	StrategyPDFFallback = "pdf_fallback"
	StrategyPDFStub     = "pdf_stub"
	StrategyText        = "text"
	StrategySpreadsheet = "spreadsheet"
	StrategyStub        = "stub"
)

type SessionStats struct {
	Documents      int `json:"documents"`
	ReadyDocuments int `json:"ready_documents"`
	Questions      int `json:"questions"`
}
