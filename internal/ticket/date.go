package ticket

import (
	"regexp"
	"time"
)

// dd/mm/yyyy or dd-mm-yyyy; the delimiter is checked by the strict layouts
var datePattern = regexp.MustCompile(`\b\d{2}[/-]\d{2}[/-]\d{4}\b`)

var dateLayouts = []string{"02/01/2006", "02-01-2006"}

// DateExtractor finds the purchase date of a receipt
type DateExtractor struct {
	// HeadingLines is the number of leading lines searched before the rest
	HeadingLines int
}

// Extract returns the first valid date in the heading region, falling back
// to the remaining lines. It returns false when no line holds a valid date.
func (d DateExtractor) Extract(lines []string) (time.Time, bool) {
	heading := d.HeadingLines
	if heading < 0 {
		heading = 0
	}
	if heading > len(lines) {
		heading = len(lines)
	}

	if t, ok := firstDate(lines[:heading]); ok {
		return t, true
	}
	return firstDate(lines[heading:])
}

func firstDate(lines []string) (time.Time, bool) {
	for _, line := range lines {
		for _, m := range datePattern.FindAllString(line, -1) {
			if t, ok := parseDate(m); ok {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
