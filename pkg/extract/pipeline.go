package extract

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/shnefix/Code-Extractor/pkg/ocr"
)

// Image is one uploaded image held in memory.
type Image struct {
	Name string
	Data []byte
}

// Pipeline runs images through a recognizer and extracts recharge codes
// from the recognized text.
type Pipeline struct {
	rec     ocr.Recognizer
	timeout time.Duration
	verbose bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithTimeout bounds the recognizer call for each image. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Pipeline) { p.timeout = d }
}

// WithVerbose logs a snippet of every recognized text.
func WithVerbose(v bool) Option {
	return func(p *Pipeline) { p.verbose = v }
}

// NewPipeline returns a pipeline backed by rec.
func NewPipeline(rec ocr.Recognizer, opts ...Option) *Pipeline {
	p := &Pipeline{rec: rec}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Recognizer returns the recognizer the pipeline delegates to.
func (p *Pipeline) Recognizer() ocr.Recognizer { return p.rec }

// ExtractImage recognizes one image and returns its candidate codes, possibly
// with duplicates. An image without text yields no codes and no error.
func (p *Pipeline) ExtractImage(ctx context.Context, img Image) ([]string, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	text, err := p.rec.Recognize(ctx, img.Data)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		if p.verbose {
			log.Printf("OCR %s: no text", img.Name)
		}
		return nil, nil
	}
	filtered := FilterLines(text)
	codes := MatchCodes(filtered)
	if p.verbose {
		log.Printf("OCR %s snippet=%q filtered_lines=%d candidates=%v", img.Name, snippet(text, 160), lineCount(filtered), codes)
	}
	return codes, nil
}

// ExtractBatch processes images one at a time and merges their codes into a
// single deduplicated list. The first recognizer error aborts the batch: the
// remaining images are not sent and no codes are returned.
func (p *Pipeline) ExtractBatch(ctx context.Context, images []Image) ([]string, error) {
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	var set CodeSet
	for i, img := range images {
		codes, err := p.ExtractImage(ctx, img)
		if err != nil {
			return nil, &ImageError{Index: i, Name: img.Name, Err: err}
		}
		set.Add(codes...)
	}
	return set.Codes(), nil
}

// snippet returns a shortened version of s for logging.
func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(s, "\n") + 1
}
