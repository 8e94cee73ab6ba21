//go:build cgo

package ocr

import "context"

// codeWhitelist limits Tesseract to the characters recharge codes use.
const codeWhitelist = "0123456789T "

// TesseractRecognizer runs a local Tesseract through gosseract, trying
// several preprocessing passes per image.
type TesseractRecognizer struct {
	lang   string
	passes []tessPass
	// Verbose logs the score of every pass.
	Verbose bool
}

// NewTesseractRecognizer returns a recognizer for lang ("eng" when empty).
func NewTesseractRecognizer(lang string) *TesseractRecognizer {
	if lang == "" {
		lang = "eng"
	}
	return &TesseractRecognizer{lang: lang, passes: defaultPasses}
}

type tessResult struct {
	text string
	err  error
}

// Recognize runs OCR on image entirely in memory. Tesseract itself cannot be
// interrupted; on cancellation the call returns early and the running engine
// finishes in the background.
func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	done := make(chan tessResult, 1)
	go func() {
		text, err := runPasses(image, t.lang, t.passes, t.Verbose)
		done <- tessResult{text: text, err: err}
	}()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case r := <-done:
		return r.text, r.err
	}
}
