package receipt

import (
	"errors"
	"time"

	"github.com/zombor/kasticket/internal/ticket"
)

// ErrNotFound is returned for an unknown receipt id
var ErrNotFound = errors.New("receipt not found")

// Document is one uploaded receipt file
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Batch is the outcome of processing a set of documents together
type Batch struct {
	ID        string           `json:"id"`
	CreatedAt time.Time        `json:"created_at"`
	Receipts  []ticket.Receipt `json:"receipts"`
	Warnings  []string         `json:"warnings"` // receipts without recognized products
	Errors    []string         `json:"errors"`   // documents that could not be read
}

// stored is a parsed receipt kept in the dataset with its original document
type stored struct {
	receipt     ticket.Receipt
	path        string
	contentType string
}
