package domain

import (
	"bytes"
	"io"
	"time"
)

// SourceFile is the transient handle to an uploaded file. Open may be called
// more than once; extractors must close what they open.
type SourceFile struct {
	Name       string
	MimeType   string
	Size       int64
	UploadedAt time.Time
	Open       func() (io.ReadCloser, error)
}

func NewBytesFile(name, mimeType string, data []byte) SourceFile {
	return SourceFile{
		Name:     name,
		MimeType: mimeType,
		Size:     int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}
