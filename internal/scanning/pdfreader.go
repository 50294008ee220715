package scanning

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFReader implements the Extractor interface with a pure Go PDF reader.
// Words of a row are joined with single spaces.
type PDFReader struct{}

// NewPDFReader creates a new PDFReader Extractor instance
func NewPDFReader() *PDFReader {
	return &PDFReader{}
}

// ExtractText reads the text of every page row by row
func (p *PDFReader) ExtractText(data []byte, contentType string) (pages []string, err error) {
	if contentType != ContentTypePDF {
		return nil, fmt.Errorf("pdf reader: %s: %w", contentType, ErrUnsupported)
	}

	defer func() {
		if r := recover(); r != nil {
			pages, err = nil, fmt.Errorf("pdf reader crashed: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	if r.NumPage() == 0 {
		return nil, fmt.Errorf("pdf reader: %w", ErrNoText)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("reading PDF page %d: %w", i, err)
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			if line := strings.TrimSpace(strings.Join(words, " ")); line != "" {
				lines = append(lines, line)
			}
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}

	if strings.TrimSpace(strings.Join(pages, "")) == "" {
		return nil, fmt.Errorf("pdf reader: %w", ErrNoText)
	}
	return pages, nil
}

// Close is a no-op
func (p *PDFReader) Close() error {
	return nil
}
