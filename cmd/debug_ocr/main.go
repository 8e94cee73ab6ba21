// Command debug_ocr runs the configured OCR provider on one image and prints
// every stage of code extraction.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/shnefix/Code-Extractor/pkg/config"
	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
)

func main() {
	img := flag.String("img", "testdata/card.png", "image file to run OCR on")
	provider := flag.String("provider", "", "override OCR_PROVIDER")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	opts := cfg.OCR()
	if *provider != "" {
		opts.Provider = *provider
	}
	p, _ := filepath.Abs(*img)
	data, err := os.ReadFile(p)
	if err != nil {
		log.Fatalf("read image: %v", err)
	}

	ctx := context.Background()
	if cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.OCRTimeout)
		defer cancel()
	}
	rec, err := ocr.New(ctx, opts)
	if err != nil {
		log.Fatalf("ocr: %v", err)
	}
	defer ocr.Close(rec)

	fmt.Printf("Running OCR (%s) on %s\n", opts.Provider, p)
	text, err := rec.Recognize(ctx, data)
	if err != nil {
		log.Fatalf("Recognize error: %v", err)
	}
	fmt.Printf("--- raw text ---\n%s\n", text)
	filtered := extract.FilterLines(text)
	fmt.Printf("--- lines with >= %d digits ---\n%s\n", extract.MinLineDigits, filtered)
	for i, pat := range extract.Patterns() {
		fmt.Printf("pattern %d %s\n", i+1, pat)
	}
	codes := extract.ExtractCodes(text)
	var set extract.CodeSet
	set.Add(codes...)
	fmt.Printf("--- codes (%d) ---\n%s\n", set.Len(), strings.Join(set.Codes(), "\n"))
}
