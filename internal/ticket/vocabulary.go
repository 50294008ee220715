package ticket

import (
	"sort"
	"strings"
)

// DefaultExclusions are store boilerplate phrases that never name a product.
// Matching is a case-insensitive substring test on the whole line.
var DefaultExclusions = []string{
	"colruyt",
	"totaal",
	"te betalen",
	"subtotaal",
	"btw",
	"korting",
	"bancontact",
	"maestro",
	"visa",
	"wisselgeld",
	"kasticket",
	"klantenkaart",
	"xtra-kaart",
	"xtra kaart",
	"betaling",
	"bedankt",
}

// Unit is one row of the unit-conversion table.
// A quantity of n units equals n / Divisor kilograms-equivalent.
type Unit struct {
	Symbol  string
	Divisor float64
}

// DefaultUnits converts mass and volume units to kilograms, litres counted 1:1
var DefaultUnits = []Unit{
	{Symbol: "kg", Divisor: 1},
	{Symbol: "g", Divisor: 1000},
	{Symbol: "l", Divisor: 1},
	{Symbol: "ml", Divisor: 1000},
	{Symbol: "cl", Divisor: 100},
}

// PieceSuffix is the unit printed after piece counts ("3 st")
const PieceSuffix = "st"

// DefaultHeadingLines is how many leading lines are searched for the date first
const DefaultHeadingLines = 20

// unitTable indexes units by lower-case symbol
type unitTable map[string]Unit

func newUnitTable(units []Unit) unitTable {
	t := make(unitTable, len(units))
	for _, u := range units {
		if u.Symbol == "" || u.Divisor <= 0 {
			continue
		}
		t[strings.ToLower(u.Symbol)] = u
	}
	return t
}

// symbols returns the unit symbols longest first so that alternations
// prefer "kg" over "g" and "ml" over "l".
func (t unitTable) symbols() []string {
	out := make([]string, 0, len(t))
	for s := range t {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) > len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

func (t unitTable) lookup(symbol string) (Unit, bool) {
	u, ok := t[strings.ToLower(symbol)]
	return u, ok
}
