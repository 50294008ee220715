// Package report aggregates parsed receipt items into summary tables.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zombor/kasticket/internal/ticket"
)

const (
	monthLayout = "2006-01"
	yearLayout  = "2006"
)

// Amounts sums the measurable parts of a group of items
type Amounts struct {
	Items     int             `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Pieces    float64         `json:"pieces"`
	Kilograms float64         `json:"kilograms"`
}

func (a *Amounts) add(item ticket.LineItem) {
	a.Items++
	a.Total = a.Total.Add(item.LineTotal)
	a.Pieces = roundQuantity(a.Pieces + item.Quantity.Pieces())
	a.Kilograms = roundQuantity(a.Kilograms + item.Quantity.Kilograms())
}

// quantityPrecision is the number of fraction digits kept in quantity sums,
// well below a milligram
const quantityPrecision = 1e6

// roundQuantity drops float noise such as 0.30000000000000004
func roundQuantity(v float64) float64 {
	return math.Round(v*quantityPrecision) / quantityPrecision
}

// ProductRow is one product within a month or year
type ProductRow struct {
	Period  string `json:"period"`
	Product string `json:"product"`
	Amounts
}

// ReceiptRow sums one receipt
type ReceiptRow struct {
	SourceID     string    `json:"source_id"`
	PurchaseDate time.Time `json:"-"`
	Date         string    `json:"purchase_date,omitempty"`
	Amounts
}

// PeriodRow sums one month or year
type PeriodRow struct {
	Period   string `json:"period"`
	Receipts int    `json:"receipts"`
	Amounts
}

// Summary holds every aggregate view of an item set
type Summary struct {
	ByMonthProduct []ProductRow `json:"by_month_product"`
	ByYearProduct  []ProductRow `json:"by_year_product"`
	ByReceipt      []ReceiptRow `json:"by_receipt"`
	ByMonth        []PeriodRow  `json:"by_month"`
	ByYear         []PeriodRow  `json:"by_year"`
	// Undated counts items left out of the month and year views
	Undated int     `json:"undated"`
	Overall Amounts `json:"overall"`
	// Dated sums the items that appear in the month and year views
	Dated   Amounts `json:"dated"`
}

type productKey struct {
	period, product string
}

// Summarize computes all views from items. Product names are grouped by exact
// match. Items without a purchase date only appear in the receipt view and
// the overall amounts.
func Summarize(items []ticket.LineItem) Summary {
	monthProducts := map[productKey]*Amounts{}
	yearProducts := map[productKey]*Amounts{}
	receipts := map[string]*ReceiptRow{}
	months := map[string]*periodAcc{}
	years := map[string]*periodAcc{}

	var s Summary
	for _, item := range items {
		s.Overall.add(item)

		r, ok := receipts[item.SourceID]
		if !ok {
			r = &ReceiptRow{SourceID: item.SourceID, PurchaseDate: item.PurchaseDate}
			if item.Dated() {
				r.Date = item.PurchaseDate.Format(ticket.DateLayout)
			}
			receipts[item.SourceID] = r
		}
		r.add(item)

		if !item.Dated() {
			s.Undated++
			continue
		}
		s.Dated.add(item)
		month := item.PurchaseDate.Format(monthLayout)
		year := item.PurchaseDate.Format(yearLayout)
		accumulate(monthProducts, productKey{month, item.Name}, item)
		accumulate(yearProducts, productKey{year, item.Name}, item)
		period(months, month).add(item)
		period(years, year).add(item)
	}

	s.ByMonthProduct = productRows(monthProducts)
	s.ByYearProduct = productRows(yearProducts)
	s.ByMonth = periodRows(months)
	s.ByYear = periodRows(years)

	s.ByReceipt = make([]ReceiptRow, 0, len(receipts))
	for _, r := range receipts {
		s.ByReceipt = append(s.ByReceipt, *r)
	}
	sort.Slice(s.ByReceipt, func(i, j int) bool {
		return s.ByReceipt[i].SourceID < s.ByReceipt[j].SourceID
	})
	return s
}

func accumulate(m map[productKey]*Amounts, key productKey, item ticket.LineItem) {
	a, ok := m[key]
	if !ok {
		a = &Amounts{}
		m[key] = a
	}
	a.add(item)
}

func productRows(m map[productKey]*Amounts) []ProductRow {
	rows := make([]ProductRow, 0, len(m))
	for k, a := range m {
		rows = append(rows, ProductRow{Period: k.period, Product: k.product, Amounts: *a})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Period != rows[j].Period {
			return rows[i].Period < rows[j].Period
		}
		return rows[i].Product < rows[j].Product
	})
	return rows
}

// periodAcc tracks the distinct receipts seen in a period
type periodAcc struct {
	Amounts
	sources map[string]struct{}
}

func (p *periodAcc) add(item ticket.LineItem) {
	p.Amounts.add(item)
	p.sources[item.SourceID] = struct{}{}
}

func period(m map[string]*periodAcc, key string) *periodAcc {
	p, ok := m[key]
	if !ok {
		p = &periodAcc{sources: map[string]struct{}{}}
		m[key] = p
	}
	return p
}

func periodRows(m map[string]*periodAcc) []PeriodRow {
	rows := make([]PeriodRow, 0, len(m))
	for k, p := range m {
		rows = append(rows, PeriodRow{Period: k, Receipts: len(p.sources), Amounts: p.Amounts})
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Period < rows[j].Period
	})
	return rows
}
