// Package ticket turns the text of a cash-register receipt into line items.
package ticket

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNotText is returned for input that is not text at all
	ErrNotText = errors.New("input is not text")
	// ErrNoItems is the soft warning for a receipt without recognized products
	ErrNoItems = errors.New("no products recognized")
)

// Options configures a Parser
type Options struct {
	Exclusions   []string
	Units        []Unit
	HeadingLines int
}

// DefaultOptions returns the vocabulary and layout of the supported receipts
func DefaultOptions() Options {
	return Options{
		Exclusions:   append([]string(nil), DefaultExclusions...),
		Units:        append([]Unit(nil), DefaultUnits...),
		HeadingLines: DefaultHeadingLines,
	}
}

// Parser parses receipt texts. It holds no per-receipt state and is safe
// for concurrent use.
type Parser struct {
	classifier *Classifier
	normalizer *Normalizer
	dates      DateExtractor
}

// NewParser creates a Parser from opts
func NewParser(opts Options) *Parser {
	return &Parser{
		classifier: NewClassifier(opts.Exclusions, opts.Units),
		normalizer: NewNormalizer(opts.Units),
		dates:      DateExtractor{HeadingLines: opts.HeadingLines},
	}
}

// Parse extracts the line items of one receipt.
// A receipt without product lines is not an error; check Receipt.Empty.
func (p *Parser) Parse(sourceID, text string) (Receipt, error) {
	if !utf8.ValidString(text) || strings.ContainsRune(text, 0) {
		return Receipt{}, fmt.Errorf("parsing %s: %w", sourceID, ErrNotText)
	}

	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	date, _ := p.dates.Extract(lines)

	receipt := Receipt{
		SourceID:     sourceID,
		PurchaseDate: date,
		Items:        []LineItem{},
		Stats:        Stats{Lines: len(lines)},
	}
	for i, line := range lines {
		c, ok := p.classifier.Classify(line)
		if !ok {
			continue
		}
		receipt.Stats.Classified++

		price, err := parseAmount(c.UnitPrice)
		if err != nil {
			receipt.Stats.Discarded++
			continue
		}
		total, err := parseAmount(c.LineTotal)
		if err != nil {
			receipt.Stats.Discarded++
			continue
		}

		receipt.Items = append(receipt.Items, LineItem{
			SourceID:      sourceID,
			PurchaseDate:  date,
			Name:          c.Name,
			QuantityToken: c.QuantityToken,
			UnitPrice:     price,
			LineTotal:     total,
			Quantity:      p.normalizer.Normalize(c.QuantityToken),
			Line:          i + 1,
		})
	}
	return receipt, nil
}

// ParsePages parses a receipt delivered as one text per page
func (p *Parser) ParsePages(sourceID string, pages []string) (Receipt, error) {
	return p.Parse(sourceID, strings.Join(pages, "\n"))
}

// Warning returns ErrNoItems wrapped with the source id for empty receipts
func (r Receipt) Warning() error {
	if r.Empty() {
		return fmt.Errorf("%s: %w", r.SourceID, ErrNoItems)
	}
	return nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSuffix(s, "."))
	if err != nil {
		return decimal.Zero, fmt.Errorf("parsing amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative amount %q", s)
	}
	return d, nil
}

// Document is the extracted text of one receipt
type Document struct {
	SourceID string
	Pages    []string
}

// ParseBatch parses documents on up to workers goroutines. Receipts are
// returned in input order whatever the scheduling; use SortBySource before
// aggregating batches assembled in arbitrary order. A document that fails
// does not stop its siblings: it is left out of the result and its error is
// joined into the returned error.
func (p *Parser) ParseBatch(ctx context.Context, docs []Document, workers int) ([]Receipt, error) {
	receipts := make([]Receipt, len(docs))
	errs := make([]error, len(docs))

	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, doc := range docs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			receipts[i], errs[i] = p.ParsePages(doc.SourceID, doc.Pages)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make([]Receipt, 0, len(docs))
	for i := range receipts {
		if errs[i] == nil {
			out = append(out, receipts[i])
		}
	}
	return out, errors.Join(errs...)
}

// SortBySource orders receipts by source id, keeping the relative order of
// receipts that share one
func SortBySource(receipts []Receipt) {
	sort.SliceStable(receipts, func(i, j int) bool {
		return receipts[i].SourceID < receipts[j].SourceID
	})
}

// Items flattens receipts into one ordered item sequence
func Items(receipts []Receipt) []LineItem {
	var items []LineItem
	for _, r := range receipts {
		items = append(items, r.Items...)
	}
	return items
}
