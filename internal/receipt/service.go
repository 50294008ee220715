package receipt

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zombor/kasticket/internal/report"
	"github.com/zombor/kasticket/internal/scanning"
	"github.com/zombor/kasticket/internal/ticket"
	"golang.org/x/sync/errgroup"
)

// ErrNoDocuments is returned when a batch holds nothing to process
var ErrNoDocuments = errors.New("no documents provided")

// DefaultWorkers bounds parallel extraction and parsing
const DefaultWorkers = 4

// IDGenerator generates unique IDs for batches
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service handles receipt operations. It owns the in-memory dataset of
// parsed receipts, keyed by source id.
type Service struct {
	extractor   scanning.Extractor
	parser      *ticket.Parser
	storage     Storage // uploaded documents; may be nil
	idGenerator IDGenerator
	timeSource  TimeSource
	workers     int

	mu       sync.RWMutex
	receipts map[string]stored
}

// NewService creates a new Service with default ID generator and time source
func NewService(extractor scanning.Extractor, parser *ticket.Parser, storage Storage) *Service {
	return NewServiceWithDeps(extractor, parser, storage, &uuidGenerator{}, &defaultTimeSource{})
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(extractor scanning.Extractor, parser *ticket.Parser, storage Storage, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		extractor:   extractor,
		parser:      parser,
		storage:     storage,
		idGenerator: idGen,
		timeSource:  timeSrc,
		workers:     DefaultWorkers,
		receipts:    make(map[string]stored),
	}
}

// WithWorkers sets how many documents are extracted and parsed in parallel
func (s *Service) WithWorkers(n int) *Service {
	if n > 0 {
		s.workers = n
	}
	return s
}

var (
	filenameSpecialChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	filenameSpaces       = regexp.MustCompile(`\s+`)
)

// sanitizeFilename cleans up a filename by removing special characters and truncating length
func sanitizeFilename(filename string) string {
	filename = filepath.Base(filepath.ToSlash(filename))
	ext := strings.ToLower(filenameSpecialChars.ReplaceAllString(filepath.Ext(filename), ""))
	base := strings.TrimSuffix(filename, filepath.Ext(filename))

	base = filenameSpecialChars.ReplaceAllString(base, "")
	base = strings.TrimSpace(filenameSpaces.ReplaceAllString(base, " "))

	maxLen := 50
	if len(base) > maxLen {
		base = base[:maxLen]
	}
	if base == "" {
		base = "receipt"
	}
	if ext != "" {
		ext = "." + ext
	}
	return base + ext
}

// sourceIDs derives a distinct source id for every document of a batch
func sourceIDs(docs []Document) []string {
	taken := make(map[string]bool, len(docs))
	ids := make([]string, len(docs))
	for i, doc := range docs {
		id := sanitizeFilename(doc.Filename)
		ext := filepath.Ext(id)
		base := strings.TrimSuffix(id, ext)
		for n := 2; taken[id]; n++ {
			id = fmt.Sprintf("%s-%d%s", base, n, ext)
		}
		taken[id] = true
		ids[i] = id
	}
	return ids
}

// ProcessDocuments extracts and parses docs and stores the receipts,
// replacing earlier receipts with the same source id. Documents that cannot
// be read are reported in Batch.Errors; an error is returned only when no
// document could be processed.
func (s *Service) ProcessDocuments(ctx context.Context, docs []Document) (*Batch, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}

	batch := &Batch{
		ID:        s.idGenerator.Generate(),
		CreatedAt: s.timeSource.Now(),
		Receipts:  []ticket.Receipt{},
		Warnings:  []string{},
		Errors:    []string{},
	}
	ids := sourceIDs(docs)

	pages := make([][]string, len(docs))
	extractErrs := make([]error, len(docs))
	contentTypes := make([]string, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i, doc := range docs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			contentTypes[i] = scanning.ContentType(doc.ContentType, doc.Filename, doc.Data)
			p, err := s.extractor.ExtractText(doc.Data, contentTypes[i])
			if err != nil {
				slog.Error("Failed to extract text",
					"filename", doc.Filename,
					"content_type", contentTypes[i],
					"file_size", len(doc.Data),
					"error", err,
				)
				extractErrs[i] = fmt.Errorf("%s: %w", ids[i], err)
				return nil
			}
			pages[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("extracting text: %w", err)
	}

	var errs []error
	index := make(map[string]int, len(docs))
	texts := make([]ticket.Document, 0, len(docs))
	for i := range docs {
		if extractErrs[i] != nil {
			errs = append(errs, extractErrs[i])
			continue
		}
		index[ids[i]] = i
		texts = append(texts, ticket.Document{SourceID: ids[i], Pages: pages[i]})
	}

	receipts, err := s.parser.ParseBatch(ctx, texts, s.workers)
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, fmt.Errorf("parsing receipts: %w", ctxErr)
	}
	if err != nil {
		for _, e := range unwrapJoined(err) {
			slog.Error("Failed to parse receipt", "error", e)
			errs = append(errs, e)
		}
	}
	ticket.SortBySource(receipts)

	entries := make([]stored, 0, len(receipts))
	for _, r := range receipts {
		if warning := r.Warning(); warning != nil {
			slog.Warn("Receipt has no products", "source", r.SourceID, "lines", r.Stats.Lines)
			batch.Warnings = append(batch.Warnings, warning.Error())
		}
		doc := docs[index[r.SourceID]]
		entries = append(entries, stored{
			receipt:     r,
			path:        s.saveDocument(batch.ID, r.SourceID, doc.Data),
			contentType: contentTypes[index[r.SourceID]],
		})
		batch.Receipts = append(batch.Receipts, r)
	}

	var replaced []string
	s.mu.Lock()
	for _, e := range entries {
		if old, ok := s.receipts[e.receipt.SourceID]; ok && old.path != "" {
			replaced = append(replaced, old.path)
		}
		s.receipts[e.receipt.SourceID] = e
	}
	s.mu.Unlock()
	for _, path := range replaced {
		s.deleteDocument(path)
	}

	for _, e := range errs {
		batch.Errors = append(batch.Errors, e.Error())
	}
	if len(receipts) == 0 && len(errs) > 0 {
		return nil, fmt.Errorf("processing documents: %w", errors.Join(errs...))
	}

	slog.Info("Processed batch",
		"batch", batch.ID,
		"documents", len(docs),
		"receipts", len(batch.Receipts),
		"warnings", len(batch.Warnings),
		"errors", len(batch.Errors),
	)
	return batch, nil
}

// ProcessReceipt processes a single uploaded document
func (s *Service) ProcessReceipt(ctx context.Context, filename string, data []byte, contentType string) (*ticket.Receipt, error) {
	batch, err := s.ProcessDocuments(ctx, []Document{{
		Filename:    filename,
		ContentType: contentType,
		Data:        data,
	}})
	if err != nil {
		return nil, err
	}
	return &batch.Receipts[0], nil
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

func (s *Service) saveDocument(batchID, sourceID string, data []byte) string {
	if s.storage == nil {
		return ""
	}
	path, err := s.storage.Save(fmt.Sprintf("%s_%s", batchID, sourceID), data)
	if err != nil {
		slog.Warn("Failed to save document", "source", sourceID, "error", err)
		return ""
	}
	return path
}

func (s *Service) deleteDocument(path string) {
	if s.storage == nil || path == "" {
		return
	}
	if err := s.storage.Delete(path); err != nil {
		slog.Warn("Failed to delete file", "filename", path, "error", err)
	}
}

// ListReceipts returns all receipts ordered by source id
func (s *Service) ListReceipts() []ticket.Receipt {
	s.mu.RLock()
	receipts := make([]ticket.Receipt, 0, len(s.receipts))
	for _, e := range s.receipts {
		receipts = append(receipts, e.receipt)
	}
	s.mu.RUnlock()

	ticket.SortBySource(receipts)
	return receipts
}

// GetReceipt retrieves a receipt by source id
func (s *Service) GetReceipt(id string) (ticket.Receipt, error) {
	s.mu.RLock()
	e, ok := s.receipts[id]
	s.mu.RUnlock()
	if !ok {
		return ticket.Receipt{}, fmt.Errorf("getting receipt %s: %w", id, ErrNotFound)
	}
	return e.receipt, nil
}

// GetReceiptFile retrieves the uploaded document of a receipt
func (s *Service) GetReceiptFile(id string) ([]byte, string, error) {
	s.mu.RLock()
	e, ok := s.receipts[id]
	s.mu.RUnlock()
	if !ok || e.path == "" || s.storage == nil {
		return nil, "", fmt.Errorf("getting receipt file %s: %w", id, ErrNotFound)
	}

	data, err := s.storage.Get(e.path)
	if err != nil {
		return nil, "", fmt.Errorf("getting receipt file: %w", err)
	}
	return data, e.contentType, nil
}

// DeleteReceipt removes a receipt and its document
func (s *Service) DeleteReceipt(id string) error {
	s.mu.Lock()
	e, ok := s.receipts[id]
	delete(s.receipts, id)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("deleting receipt %s: %w", id, ErrNotFound)
	}

	s.deleteDocument(e.path)
	return nil
}

// Items returns every line item ordered by source id, then line
func (s *Service) Items() []ticket.LineItem {
	items := ticket.Items(s.ListReceipts())
	if items == nil {
		return []ticket.LineItem{}
	}
	return items
}

// Summary recomputes every summary view from the current dataset
func (s *Service) Summary() report.Summary {
	return report.Summarize(s.Items())
}

// Export writes one view as CSV
func (s *Service) Export(w io.Writer, view report.View) error {
	writer := &report.CSVWriter{IncludeTotals: true}
	if err := writer.Write(w, view, s.Items()); err != nil {
		return fmt.Errorf("exporting %s: %w", view, err)
	}
	return nil
}

// WriteReports saves every view as a CSV file to storage and returns the
// names the files were saved under
func (s *Service) WriteReports(storage Storage) ([]string, error) {
	items := s.Items()
	writer := &report.CSVWriter{IncludeTotals: true}

	names := make([]string, 0, len(report.Views))
	for _, view := range report.Views {
		var buf bytes.Buffer
		if err := writer.Write(&buf, view, items); err != nil {
			return names, fmt.Errorf("rendering %s: %w", view, err)
		}
		name, err := storage.Save(view.Filename(), buf.Bytes())
		if err != nil {
			return names, fmt.Errorf("saving %s: %w", view, err)
		}
		names = append(names, name)
	}
	return names, nil
}
