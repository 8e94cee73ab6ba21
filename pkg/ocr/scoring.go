package ocr

import "strings"

// minCodeLineDigits matches the line filter used by code extraction.
const minCodeLineDigits = 12

// scoreText rates a transcription by how many digits sit on lines that look
// like they carry a code: pure ASCII with at least minCodeLineDigits digits.
func scoreText(text string) int {
	score := 0
	for _, line := range strings.Split(text, "\n") {
		digits := 0
		ascii := true
		for _, r := range line {
			if r >= 0x80 {
				ascii = false
				break
			}
			if r >= '0' && r <= '9' {
				digits++
			}
		}
		if ascii && digits >= minCodeLineDigits {
			score += digits
		}
	}
	return score
}

// bestText returns the highest scoring text; ties go to the earlier one.
func bestText(texts []string) string {
	best, bestScore := "", -1
	for _, t := range texts {
		if s := scoreText(t); s > bestScore {
			best, bestScore = t, s
		}
	}
	return best
}
