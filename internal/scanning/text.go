package scanning

import (
	"strings"
	"unicode"
)

var pageCleaner = strings.NewReplacer(
	"\r\n", "\n",
	"\r", "\n",
	"\u00a0", " ", // no-break space between amount and unit
	"\u200b", "",
	"\u200c", "",
	"\u200d", "",
	"\ufeff", "",
)

// NormalizePages cleans extracted page text so that lines end cleanly and
// fields are separated by ordinary spaces
func NormalizePages(pages []string) []string {
	out := make([]string, len(pages))
	for i, page := range pages {
		lines := strings.Split(pageCleaner.Replace(page), "\n")
		for j, line := range lines {
			lines[j] = strings.TrimRightFunc(line, unicode.IsSpace)
		}
		out[i] = strings.Join(lines, "\n")
	}
	return out
}

// Readable reports whether pages hold enough printable text to be worth
// parsing. Fonts without a usable encoding produce long runs of control and
// private-use characters.
func Readable(pages []string) bool {
	total, printable := 0, 0
	for _, page := range pages {
		for _, r := range page {
			if unicode.IsSpace(r) {
				continue
			}
			total++
			if unicode.IsPrint(r) && !unicode.Is(unicode.Co, r) && r != unicode.ReplacementChar {
				printable++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(printable)/float64(total) > 0.6
}
