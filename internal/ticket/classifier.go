package ticket

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
)

// Candidate holds the raw fields of a line that has the shape of a product line
type Candidate struct {
	Name          string
	QuantityToken string
	UnitPrice     string // decimal separator already normalized to "."
	LineTotal     string // decimal separator already normalized to "."
}

// MinNameLength is the shortest product name accepted after code stripping
const MinNameLength = 3

var (
	// amounts are digits with an optional single decimal separator
	amountPattern = regexp.MustCompile(`^\d+(?:[.,]\d*)?$`)
	// numbers inside quantity tokens
	numberPattern = regexp.MustCompile(`^\d+(?:[.,]\d+)?$`)
	// store-internal SKU printed before the name: optional letter, 3-6 digits
	inventoryCodePattern = regexp.MustCompile(`^[A-Z]?\d{3,6}(?:\s+|$)`)
)

// Classifier recognizes product lines.
//
// A product line is
//
//	line     := name WS quantity WS amount WS amount EOL
//	quantity := number [WS? unit]
//
// where the three trailing fields are read right to left from the end of the
// line and the name is whatever remains on the left.
type Classifier struct {
	exclusions []string
	units      unitTable
	quantity   *regexp.Regexp
}

// NewClassifier creates a Classifier with the given exclusion vocabulary and unit table
func NewClassifier(exclusions []string, units []Unit) *Classifier {
	fold := cases.Fold()
	folded := make([]string, 0, len(exclusions))
	for _, e := range exclusions {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		folded = append(folded, fold.String(e))
	}

	table := newUnitTable(units)
	symbols := append(table.symbols(), PieceSuffix)
	for i, s := range symbols {
		symbols[i] = regexp.QuoteMeta(s)
	}

	return &Classifier{
		exclusions: folded,
		units:      table,
		quantity:   regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?\s*(?:` + strings.Join(symbols, "|") + `)?$`),
	}
}

// token is a whitespace-delimited field with its byte offsets in the line
type token struct {
	text       string
	start, end int
}

func tokenize(line string) []token {
	var tokens []token
	start := -1
	for i, r := range line {
		if unicode.IsSpace(r) {
			if start >= 0 {
				tokens = append(tokens, token{text: line[start:i], start: start, end: i})
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: line[start:], start: start, end: len(line)})
	}
	return tokens
}

// Classify returns the product fields of line, or false if line is not a product line
func (c *Classifier) Classify(line string) (Candidate, bool) {
	line = strings.TrimRightFunc(line, unicode.IsSpace)
	if c.excluded(line) {
		return Candidate{}, false
	}

	tokens := tokenize(line)
	// at least one name token, quantity, unit price and total
	if len(tokens) < 4 {
		return Candidate{}, false
	}
	n := len(tokens)
	total, price := tokens[n-1], tokens[n-2]
	if !amountPattern.MatchString(total.text) || !amountPattern.MatchString(price.text) {
		return Candidate{}, false
	}

	// quantity is either one token ("2", "2st", "0.65kg") or a number
	// followed by a separate unit token ("0.65 kg", "2 st")
	qtyStart, qtyEnd := tokens[n-3].start, tokens[n-3].end
	nameEnd := n - 3
	if n >= 5 && c.isUnit(tokens[n-3].text) && numberPattern.MatchString(tokens[n-4].text) {
		qtyStart = tokens[n-4].start
		nameEnd = n - 4
	}
	qty := line[qtyStart:qtyEnd]
	if !c.quantity.MatchString(qty) {
		return Candidate{}, false
	}

	name := strings.TrimSpace(line[:tokens[nameEnd-1].end])
	name = strings.TrimSpace(inventoryCodePattern.ReplaceAllString(name, ""))
	if utf8.RuneCountInString(name) < MinNameLength {
		return Candidate{}, false
	}

	return Candidate{
		Name:          name,
		QuantityToken: qty,
		UnitPrice:     strings.ReplaceAll(price.text, ",", "."),
		LineTotal:     strings.ReplaceAll(total.text, ",", "."),
	}, true
}

func (c *Classifier) isUnit(s string) bool {
	if strings.EqualFold(s, PieceSuffix) {
		return true
	}
	_, ok := c.units.lookup(s)
	return ok
}

func (c *Classifier) excluded(line string) bool {
	if len(c.exclusions) == 0 {
		return false
	}
	folded := cases.Fold().String(line)
	for _, e := range c.exclusions {
		if strings.Contains(folded, e) {
			return true
		}
	}
	return false
}
