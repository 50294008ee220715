package scanning

import (
	"fmt"
	"strings"
)

// Plain implements the Extractor interface for documents that already are
// text, such as receipts copied out of a PDF viewer. Form feeds separate pages.
type Plain struct{}

// NewPlain creates a new Plain Extractor instance
func NewPlain() *Plain {
	return &Plain{}
}

// ExtractText splits the document into pages
func (p *Plain) ExtractText(data []byte, contentType string) ([]string, error) {
	if contentType != ContentTypeText {
		return nil, fmt.Errorf("plain: %s: %w", contentType, ErrUnsupported)
	}
	return strings.Split(string(data), "\f"), nil
}

// Close is a no-op
func (p *Plain) Close() error {
	return nil
}
