package ticket

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// QuantityKind tells which variant of a Quantity is populated
type QuantityKind string

const (
	// Piece is a count of articles
	Piece QuantityKind = "piece"
	// Weight is a mass or volume in kilograms-equivalent
	Weight QuantityKind = "weight"
)

// Quantity is the normalized measurement of a line item.
// Exactly one of Pieces and Kilograms is non-zero for a non-empty quantity.
type Quantity struct {
	Kind  QuantityKind `json:"kind"`
	Value float64      `json:"value"`
}

// PieceCount returns a piece quantity
func PieceCount(n float64) Quantity {
	return Quantity{Kind: Piece, Value: n}
}

// Kilograms returns a weight quantity in the canonical base unit
func Kilograms(kg float64) Quantity {
	return Quantity{Kind: Weight, Value: kg}
}

// Pieces returns the piece count, or 0 for weight quantities
func (q Quantity) Pieces() float64 {
	if q.Kind == Piece {
		return q.Value
	}
	return 0
}

// Kilograms returns the weight in kilograms, or 0 for piece quantities
func (q Quantity) Kilograms() float64 {
	if q.Kind == Weight {
		return q.Value
	}
	return 0
}

// LineItem is one recognized product line of a receipt
type LineItem struct {
	SourceID      string          `json:"source_id"`
	PurchaseDate  time.Time       `json:"-"`
	Name          string          `json:"name"`
	QuantityToken string          `json:"quantity_token"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	LineTotal     decimal.Decimal `json:"line_total"`
	Quantity      Quantity        `json:"quantity"`
	Line          int             `json:"line"` // 1-based line number within the receipt text
}

// Dated reports whether the item carries a purchase date
func (i LineItem) Dated() bool {
	return !i.PurchaseDate.IsZero()
}

// MarshalJSON renders the purchase date as YYYY-MM-DD, or omits it when absent
func (i LineItem) MarshalJSON() ([]byte, error) {
	type plain LineItem
	out := struct {
		plain
		PurchaseDate string `json:"purchase_date,omitempty"`
	}{plain: plain(i)}
	if i.Dated() {
		out.PurchaseDate = i.PurchaseDate.Format(DateLayout)
	}
	return json.Marshal(out)
}

// DateLayout is how purchase dates are rendered outside the core
const DateLayout = "2006-01-02"

// Stats counts what happened to the lines of one receipt
type Stats struct {
	Lines      int `json:"lines"`
	Classified int `json:"classified"`
	Discarded  int `json:"discarded"`
}

// Receipt is the result of parsing one receipt's text
type Receipt struct {
	SourceID     string     `json:"source_id"`
	PurchaseDate time.Time  `json:"-"`
	Items        []LineItem `json:"items"`
	Stats        Stats      `json:"stats"`
}

// Dated reports whether a purchase date was found
func (r Receipt) Dated() bool {
	return !r.PurchaseDate.IsZero()
}

// Empty reports whether no product lines were recognized
func (r Receipt) Empty() bool {
	return len(r.Items) == 0
}

// Total sums the line totals of the receipt
func (r Receipt) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineTotal)
	}
	return total
}

// MarshalJSON adds the rendered date and the receipt total
func (r Receipt) MarshalJSON() ([]byte, error) {
	type plain Receipt
	out := struct {
		plain
		PurchaseDate string          `json:"purchase_date,omitempty"`
		Total        decimal.Decimal `json:"total"`
	}{plain: plain(r), Total: r.Total()}
	if r.Dated() {
		out.PurchaseDate = r.PurchaseDate.Format(DateLayout)
	}
	return json.Marshal(out)
}
