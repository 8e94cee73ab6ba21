package extract

import (
	"regexp"
	"strings"
	"unicode"
)

// codePatterns are the recharge code shapes, tried in this order. Every
// pattern runs over the whole filtered text.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b\d{4} \d{3} \d{4} \d{4}\b`),
	regexp.MustCompile(`\b\d{4} \d{4} \d{4} \d{2}\b`),
	regexp.MustCompile(`\b\d{16}\b`),
	regexp.MustCompile(`\bT\d{15}\b`),
	regexp.MustCompile(`\b\d{14}\b`),
}

// Patterns returns the source of the code patterns in matching order.
func Patterns() []string {
	out := make([]string, len(codePatterns))
	for i, re := range codePatterns {
		out[i] = re.String()
	}
	return out
}

// MatchCodes applies every code pattern to filtered and returns all
// non-overlapping matches with whitespace removed, pattern by pattern.
// Duplicates are kept; see CodeSet.
func MatchCodes(filtered string) []string {
	if filtered == "" {
		return nil
	}
	var out []string
	for _, re := range codePatterns {
		for _, m := range re.FindAllString(filtered, -1) {
			if c := stripSpace(m); c != "" {
				out = append(out, c)
			}
		}
	}
	return out
}

// ExtractCodes filters text and matches it, returning the raw candidate list.
func ExtractCodes(text string) []string {
	return MatchCodes(FilterLines(text))
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
