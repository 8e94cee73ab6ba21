package ocr

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// Recognizer turns image bytes into the recognized text. An image without
// text yields ("", nil). Errors reported by the OCR service for the image are
// returned as *DelegateError.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// RecognizerFunc adapts a function to the Recognizer interface.
type RecognizerFunc func(ctx context.Context, image []byte) (string, error)

func (f RecognizerFunc) Recognize(ctx context.Context, image []byte) (string, error) {
	return f(ctx, image)
}

// Supported providers.
const (
	ProviderVision    = "vision"
	ProviderTesseract = "tesseract"
	ProviderGemini    = "gemini"
)

// Options selects and configures a provider for New.
type Options struct {
	Provider string

	// CredentialsFile is a Google service account file for Vision. Empty
	// means application default credentials.
	CredentialsFile string

	TesseractLang string

	GeminiAPIKey string
	GeminiModel  string

	// Verbose enables per-pass logging where a provider supports it.
	Verbose bool

	// Retries is the number of extra attempts after a transient failure.
	Retries      int
	RetryBackoff time.Duration
}

// New builds the recognizer named by opts.Provider, wrapped with retries
// when opts.Retries > 0. Close the result with Close when done.
func New(ctx context.Context, opts Options) (Recognizer, error) {
	var (
		rec Recognizer
		err error
	)
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderVision, "":
		rec, err = NewVisionRecognizer(ctx, opts.CredentialsFile)
	case ProviderTesseract:
		t := NewTesseractRecognizer(opts.TesseractLang)
		t.Verbose = opts.Verbose
		rec = t
	case ProviderGemini:
		rec, err = NewGeminiRecognizer(ctx, opts.GeminiAPIKey, opts.GeminiModel)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, opts.Provider)
	}
	if err != nil {
		return nil, err
	}
	if opts.Retries > 0 {
		rec = WithRetry(rec, opts.Retries, opts.RetryBackoff)
	}
	return rec, nil
}

// Close releases the resources held by rec, if any.
func Close(rec Recognizer) error {
	if c, ok := rec.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
