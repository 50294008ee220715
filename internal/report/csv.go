package report

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/zombor/kasticket/internal/ticket"
)

// View names one exportable table
type View string

const (
	ViewItems         View = "items"
	ViewReceipts      View = "receipts"
	ViewMonths        View = "months"
	ViewYears         View = "years"
	ViewMonthProducts View = "month-products"
	ViewYearProducts  View = "year-products"
)

// Views lists every exportable table in export order
var Views = []View{ViewItems, ViewReceipts, ViewMonths, ViewYears, ViewMonthProducts, ViewYearProducts}

// ErrUnknownView is returned for a view name outside Views
var ErrUnknownView = errors.New("unknown view")

// ParseView validates a view name
func ParseView(name string) (View, error) {
	for _, v := range Views {
		if string(v) == name {
			return v, nil
		}
	}
	return "", fmt.Errorf("%q: %w", name, ErrUnknownView)
}

// Filename is the file a view is exported to
func (v View) Filename() string {
	return string(v) + ".csv"
}

// CSVWriter writes items and summary views as CSV
type CSVWriter struct {
	// IncludeTotals appends a closing row with the overall amounts
	IncludeTotals bool
}

// Write renders view for items to out
func (w *CSVWriter) Write(out io.Writer, view View, items []ticket.LineItem) error {
	var (
		header []string
		rows   [][]string
	)
	summary := Summarize(items)

	switch view {
	case ViewItems:
		header = []string{"Source", "Date", "Line", "Description", "Quantity", "Unit Price", "Total", "Pieces", "Kilograms"}
		for _, item := range items {
			date := ""
			if item.Dated() {
				date = item.PurchaseDate.Format(ticket.DateLayout)
			}
			rows = append(rows, []string{
				item.SourceID,
				date,
				strconv.Itoa(item.Line),
				item.Name,
				item.QuantityToken,
				formatAmount(item.UnitPrice),
				formatAmount(item.LineTotal),
				formatPieces(item.Quantity.Pieces()),
				formatKilograms(item.Quantity.Kilograms()),
			})
		}
	case ViewReceipts:
		header = []string{"Source", "Date", "Items", "Total", "Pieces", "Kilograms"}
		for _, r := range summary.ByReceipt {
			rows = append(rows, append([]string{r.SourceID, r.Date}, amountCells(r.Amounts)...))
		}
	case ViewMonths, ViewYears:
		header = []string{"Period", "Receipts", "Items", "Total", "Pieces", "Kilograms"}
		periods := summary.ByMonth
		if view == ViewYears {
			periods = summary.ByYear
		}
		for _, p := range periods {
			rows = append(rows, append([]string{p.Period, strconv.Itoa(p.Receipts)}, amountCells(p.Amounts)...))
		}
	case ViewMonthProducts, ViewYearProducts:
		header = []string{"Period", "Description", "Items", "Total", "Pieces", "Kilograms"}
		products := summary.ByMonthProduct
		if view == ViewYearProducts {
			products = summary.ByYearProduct
		}
		for _, p := range products {
			rows = append(rows, append([]string{p.Period, p.Product}, amountCells(p.Amounts)...))
		}
	default:
		return fmt.Errorf("writing %q: %w", view, ErrUnknownView)
	}

	writer := csv.NewWriter(out)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}
	for _, row := range rows {
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	if w.IncludeTotals {
		totals := make([]string, len(header))
		totals[0] = "Total"
		sum := summary.Overall
		if view != ViewItems && view != ViewReceipts {
			sum = summary.Dated
		}
		overall := amountCells(sum)
		if view == ViewItems {
			// items has a unit price column where the others count items
			overall[0] = ""
		}
		copy(totals[len(header)-len(overall):], overall)
		if err := writer.Write(totals); err != nil {
			return fmt.Errorf("failed to write CSV totals: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func amountCells(a Amounts) []string {
	return []string{
		strconv.Itoa(a.Items),
		formatAmount(a.Total),
		formatPieces(a.Pieces),
		formatKilograms(a.Kilograms),
	}
}

func formatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatPieces(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

func formatKilograms(kg float64) string {
	return strconv.FormatFloat(kg, 'f', 3, 64)
}
