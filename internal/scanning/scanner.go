package scanning

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeText = "text/plain"
)

var (
	// ErrUnsupported is returned by an Extractor that cannot read the content type
	ErrUnsupported = errors.New("unsupported content type")
	// ErrNoText is returned when a document holds no readable text
	ErrNoText = errors.New("no readable text")
)

// Extractor defines the interface for getting the text out of a receipt document
type Extractor interface {
	// ExtractText returns the text of each page of the document
	ExtractText(data []byte, contentType string) ([]string, error)
	// Close closes the extractor and releases resources
	Close() error
}

// ContentType normalizes a declared MIME type, falling back to the file
// extension and finally to sniffing the data
func ContentType(declared, filename string, data []byte) string {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType != "" && mimeType != "application/octet-stream" {
		return mimeType
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return ContentTypePDF
	case ".txt":
		return ContentTypeText
	}

	sniffed := http.DetectContentType(data)
	if i := strings.IndexByte(sniffed, ';'); i >= 0 {
		sniffed = sniffed[:i]
	}
	return sniffed
}
