// Package scan extracts codes from image files in a directory, optionally
// watching it for new files.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shnefix/Code-Extractor/pkg/extract"
)

// Result is the outcome for one file. Err is set when the file could not be
// read or recognized; such files contribute no codes.
type Result struct {
	Name  string
	Codes []string
	Err   error
}

// Scanner runs files through a pipeline with a bounded worker pool and
// accumulates the unique codes seen over its lifetime.
type Scanner struct {
	pipeline *extract.Pipeline
	workers  int

	mu  sync.Mutex
	set extract.CodeSet
}

// NewScanner returns a scanner using workers goroutines (NumCPU when <= 0).
func NewScanner(p *extract.Pipeline, workers int) *Scanner {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Scanner{pipeline: p, workers: workers}
}

// IsSupported reports whether name has an image extension the decoders handle.
func IsSupported(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return true
	}
	return false
}

// ListImageFiles returns the sorted names of supported files directly in dir.
func ListImageFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out, nil
}

// ScanFiles processes names (relative to dir) concurrently. Results come back
// in the order of names, and codes are merged into the scanner in that order.
func (s *Scanner) ScanFiles(ctx context.Context, dir string, names []string) []Result {
	results := make([]Result, len(names))
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i, name := range names {
		g.Go(func() error {
			results[i] = s.scanFile(ctx, dir, name)
			return nil
		})
	}
	_ = g.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range results {
		s.set.Add(r.Codes...)
	}
	return results
}

func (s *Scanner) scanFile(ctx context.Context, dir, name string) Result {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return Result{Name: name, Err: err}
	}
	codes, err := s.pipeline.ExtractImage(ctx, extract.Image{Name: name, Data: data})
	if err != nil {
		return Result{Name: name, Err: err}
	}
	var set extract.CodeSet
	set.Add(codes...)
	return Result{Name: name, Codes: set.Codes()}
}

// Codes returns the unique codes found so far, in first-seen order.
func (s *Scanner) Codes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Codes()
}
