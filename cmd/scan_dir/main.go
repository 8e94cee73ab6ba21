// Command scan_dir extracts recharge codes from every image in a directory
// and optionally keeps watching it for new images.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/shnefix/Code-Extractor/pkg/config"
	"github.com/shnefix/Code-Extractor/pkg/export"
	"github.com/shnefix/Code-Extractor/pkg/extract"
	"github.com/shnefix/Code-Extractor/pkg/ocr"
	"github.com/shnefix/Code-Extractor/pkg/scan"
)

var verbose bool

func logV(format string, args ...any) {
	if verbose {
		log.Printf(format, args...)
	}
}

func main() {
	dirFlag := flag.String("dir", "images", "directory to scan for card images")
	watch := flag.Bool("watch", false, "watch the directory for new files after the initial scan")
	workers := flag.Int("workers", 0, "worker pool size (default NumCPU)")
	out := flag.String("out", "", "write the unique codes to this file")
	formatFlag := flag.String("format", "txt", "output file format: txt, csv or json")
	flag.BoolVar(&verbose, "verbose", false, "verbose per-file logging")
	flag.Parse()

	format, err := export.ParseFormat(*formatFlag)
	if err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rec, err := ocr.New(ctx, cfg.OCR())
	if err != nil {
		log.Fatalf("ocr: %v", err)
	}
	defer ocr.Close(rec)
	pipeline := extract.NewPipeline(rec, extract.WithTimeout(cfg.OCRTimeout), extract.WithVerbose(verbose))
	s := scan.NewScanner(pipeline, *workers)

	// Attach the watcher before listing so images that land during the
	// initial scan are still reported.
	var watchErr chan error
	if *watch {
		d, err := scan.NewDirWatcher(*dirFlag)
		if err != nil {
			log.Fatalf("watch %s: %v", *dirFlag, err)
		}
		watchErr = make(chan error, 1)
		go func() { watchErr <- s.Follow(ctx, d, scan.DefaultSettle, report) }()
	}

	files, err := scan.ListImageFiles(*dirFlag)
	if err != nil {
		log.Fatalf("list %s: %v", *dirFlag, err)
	}
	log.Printf("Scanning %d files", len(files))
	for _, r := range s.ScanFiles(ctx, *dirFlag, files) {
		report(r)
	}

	if watchErr != nil {
		log.Printf("Watching %s (debounced) ...", *dirFlag)
		if err := <-watchErr; err != nil {
			log.Fatalf("watch failed: %v", err)
		}
	}

	codes := s.Codes()
	log.Printf("%d unique codes", len(codes))
	if *out == "" {
		for _, c := range codes {
			fmt.Println(c)
		}
		return
	}
	if err := writeCodes(*out, format, codes); err != nil {
		log.Fatalf("write %s: %v", *out, err)
	}
}

func report(r scan.Result) {
	if r.Err != nil {
		log.Printf("skip %s: %v", r.Name, r.Err)
		return
	}
	logV("%s: %d codes %v", r.Name, len(r.Codes), r.Codes)
}

func writeCodes(path string, f export.Format, codes []string) error {
	body, err := export.Render(f, codes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, body, 0o644)
}
