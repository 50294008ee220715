package ticket

import (
	"regexp"
	"strconv"
	"strings"
)

// Normalizer turns printed quantity tokens into Quantities
type Normalizer struct {
	units  unitTable
	weight *regexp.Regexp
	piece  *regexp.Regexp
}

// NewNormalizer creates a Normalizer for the given unit-conversion table
func NewNormalizer(units []Unit) *Normalizer {
	table := newUnitTable(units)
	symbols := table.symbols()
	for i, s := range symbols {
		symbols[i] = regexp.QuoteMeta(s)
	}

	n := &Normalizer{
		units: table,
		piece: regexp.MustCompile(`(?i)^\d+(?:[.,]\d+)?\s*(?:` + PieceSuffix + `)?$`),
	}
	if len(symbols) > 0 {
		n.weight = regexp.MustCompile(`(?i)(\d+(?:[.,]\d+)?)\s*(` + strings.Join(symbols, "|") + `)\b`)
	}
	return n
}

// Normalize classifies a quantity token as weight/volume or piece count.
//
// A number followed by a known unit is converted to kilograms-equivalent.
// A bare number, optionally suffixed with "st", is that many pieces; a bare
// number is never read as grams. Digits are only taken from tokens of that
// <number>[st] shape, so any other token ("x3", "doos") counts as one piece.
func (n *Normalizer) Normalize(token string) Quantity {
	token = strings.TrimSpace(token)

	if n.weight != nil {
		if m := n.weight.FindStringSubmatch(token); m != nil {
			if v, err := parseNumber(m[1]); err == nil {
				unit, _ := n.units.lookup(m[2])
				return Kilograms(v / unit.Divisor)
			}
		}
	}

	if !n.piece.MatchString(token) {
		return PieceCount(1)
	}
	digits := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' {
			return r
		}
		return -1
	}, token)
	v, err := parseNumber(digits)
	if err != nil {
		return PieceCount(1)
	}
	return PieceCount(v)
}

// parseNumber parses a decimal with either "," or "." as separator
func parseNumber(s string) (float64, error) {
	return strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
}
