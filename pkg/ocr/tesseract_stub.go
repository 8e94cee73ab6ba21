//go:build !cgo

package ocr

import "context"

// TesseractRecognizer is unavailable without cgo.
type TesseractRecognizer struct {
	Verbose bool
}

func NewTesseractRecognizer(lang string) *TesseractRecognizer { return &TesseractRecognizer{} }

func (t *TesseractRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	return "", ErrTesseractUnavailable
}
