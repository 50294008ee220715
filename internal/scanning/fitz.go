package scanning

import (
	"fmt"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Fitz implements the Extractor interface using MuPDF
type Fitz struct{}

// NewFitz creates a new Fitz Extractor instance
func NewFitz() *Fitz {
	return &Fitz{}
}

// ExtractText reads the text layer of every page of a PDF
func (f *Fitz) ExtractText(data []byte, contentType string) ([]string, error) {
	if contentType != ContentTypePDF {
		return nil, fmt.Errorf("fitz: %s: %w", contentType, ErrUnsupported)
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := make([]string, 0, doc.NumPage())
	for i := 0; i < doc.NumPage(); i++ {
		text, err := doc.Text(i)
		if err != nil {
			return nil, fmt.Errorf("reading PDF page %d: %w", i+1, err)
		}
		pages = append(pages, text)
	}

	if strings.TrimSpace(strings.Join(pages, "")) == "" {
		// scanned receipts have no text layer
		return nil, fmt.Errorf("fitz: %w", ErrNoText)
	}
	return pages, nil
}

// Close is a no-op; documents are closed after each extraction
func (f *Fitz) Close() error {
	return nil
}
