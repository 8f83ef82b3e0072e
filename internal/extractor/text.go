package extractor

import (
	"html"
	"math"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
)

var (
	whitespaceRun = regexp.MustCompile(`[\s\p{Zs}\x{2028}\x{2029}\x{FEFF}]+`)

	// first run of digits, commas and periods that holds at least one digit
	numericRun    = regexp.MustCompile(`[\d.,]*\d[\d.,]*`)
	numericPrefix = regexp.MustCompile(`^\d*\.?\d*`)

	// bidi marks that marketplaces sprinkle around labels
	bidiMarks = strings.NewReplacer("\u200e", "", "\u200f", "", "\u202a", "", "\u202b", "", "\u202c", "")

	markupPolicy = bluemonday.StrictPolicy()
)

// NormalizeText turns non-breaking spaces into spaces, collapses whitespace runs and trims
func NormalizeText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// ParsePrice extracts a positive, finite amount from a human price string.
// Thousands separators are commas; "$0.00" and "N/A" both yield nil.
func ParsePrice(s string) *float64 {
	run := numericRun.FindString(s)
	if run == "" {
		return nil
	}
	number := numericPrefix.FindString(strings.ReplaceAll(run, ",", ""))
	value, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return nil
	}
	return positive(value)
}

// positive returns &v when v is finite and strictly positive
func positive(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return nil
	}
	return &v
}

// ResolveURL resolves ref against base and keeps only absolute http(s) URLs
func ResolveURL(base *url.URL, ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(strings.ToLower(ref), "data:") {
		return "", false
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", false
	}
	if base != nil {
		u = base.ResolveReference(u)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", false
	}
	return u.String(), true
}

// FoldKey is the case-insensitive identity of a line of text
func FoldKey(s string) string {
	// Casers are stateful, so each call gets its own
	return cases.Fold().String(NormalizeText(s))
}

// DedupeStrings removes exact duplicates and empty entries, keeping first occurrences
func DedupeStrings(items []string) []string {
	return dedupeBy(items, func(s string) string { return s })
}

// DedupeFolded removes entries whose normalized, case-folded text was already seen
func DedupeFolded(items []string) []string {
	return dedupeBy(items, FoldKey)
}

func dedupeBy(items []string, key func(string) string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		k := key(item)
		if k == "" {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, item)
	}
	return out
}

// StripMarkup removes HTML tags from a text value and decodes entities
func StripMarkup(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return s
	}
	return html.UnescapeString(markupPolicy.Sanitize(s))
}

// truncate cuts s to at most n runes
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n]))
}

// lengthBetween reports whether s has between lo and hi runes, inclusive
func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

// cleanLine strips bidi marks and normalizes whitespace
func cleanLine(s string) string {
	return NormalizeText(bidiMarks.Replace(s))
}

var labelColon = regexp.MustCompile(`\s*:\s*`)

// tidyLabel rewrites the first "label : value" separator as "label: value"
func tidyLabel(s string) string {
	loc := labelColon.FindStringIndex(s)
	if loc == nil {
		return s
	}
	return strings.TrimSpace(s[:loc[0]]) + ": " + strings.TrimSpace(s[loc[1]:])
}

// splitLabel splits "name: value" at the first colon
func splitLabel(s string) (name, value string, ok bool) {
	idx := strings.Index(s, ":")
	if idx < 0 {
		return "", "", false
	}
	return strings.TrimSpace(s[:idx]), strings.TrimSpace(s[idx+1:]), true
}
