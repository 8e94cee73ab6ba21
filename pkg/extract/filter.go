package extract

import (
	"strings"
	"unicode/utf8"
)

// MinLineDigits is the number of decimal digits a line needs to survive FilterLines.
const MinLineDigits = 12

// FilterLines keeps the lines of text that are pure ASCII and carry at least
// MinLineDigits digits. Surviving lines are joined with '\n' in their original order.
func FilterLines(text string) string {
	if text == "" {
		return ""
	}
	var kept []string
	for _, line := range strings.Split(text, "\n") {
		if !isASCII(line) {
			continue
		}
		if countDigits(line) >= MinLineDigits {
			kept = append(kept, line)
		}
	}
	return strings.Join(kept, "\n")
}

// isASCII reports whether every rune is below 128. Invalid UTF-8 decodes to
// utf8.RuneError and therefore fails the check.
func isASCII(s string) bool {
	for _, r := range s {
		if r >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

func countDigits(s string) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			n++
		}
	}
	return n
}
