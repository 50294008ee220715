package scanning

import (
	"errors"
	"fmt"
	"log/slog"
)

// Chain implements the Extractor interface by trying extractors in order.
// The first readable result wins; extractors that do not support the content
// type are skipped.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a new Chain Extractor instance
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// NewDefault returns the extractor chain used for uploads: MuPDF first, the
// pure Go reader for PDFs MuPDF cannot decode, then plain text
func NewDefault() *Chain {
	return NewChain(NewFitz(), NewPDFReader(), NewPlain())
}

// ExtractText returns the pages of the first extractor producing readable text
func (c *Chain) ExtractText(data []byte, contentType string) ([]string, error) {
	var errs []error
	supported := false
	for _, e := range c.extractors {
		pages, err := e.ExtractText(data, contentType)
		if errors.Is(err, ErrUnsupported) {
			continue
		}
		supported = true
		if err != nil {
			slog.Debug("Extractor failed, trying next", "extractor", fmt.Sprintf("%T", e), "error", err)
			errs = append(errs, err)
			continue
		}
		pages = NormalizePages(pages)
		if contentType == ContentTypePDF && !Readable(pages) {
			errs = append(errs, fmt.Errorf("%T: %w", e, ErrNoText))
			continue
		}
		return pages, nil
	}

	if !supported {
		return nil, fmt.Errorf("extracting text: %s: %w", contentType, ErrUnsupported)
	}
	return nil, fmt.Errorf("extracting text: %w", errors.Join(errs...))
}

// Close closes every extractor in the chain
func (c *Chain) Close() error {
	var errs []error
	for _, e := range c.extractors {
		if err := e.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
