package scan

import (
	"context"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a new file must stay quiet before it is scanned.
const DefaultSettle = 300 * time.Millisecond

// DirWatcher watches one directory for new image files. Events are
// buffered from NewDirWatcher on, so files created before Run starts are
// not lost.
type DirWatcher struct {
	dir string
	w   *fsnotify.Watcher
}

// NewDirWatcher attaches a watcher to dir.
func NewDirWatcher(dir string) (*DirWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	return &DirWatcher{dir: dir, w: w}, nil
}

// Dir returns the watched directory.
func (d *DirWatcher) Dir() string { return d.dir }

// Close stops the watcher. Run closes it on return.
func (d *DirWatcher) Close() error { return d.w.Close() }

// Run reports supported files created or written in the directory once they
// have been quiet for settle. It blocks until ctx is done or the watcher
// fails, and closes the watcher on return.
func (d *DirWatcher) Run(ctx context.Context, settle time.Duration, found func(name string)) error {
	defer d.w.Close()
	if settle <= 0 {
		settle = DefaultSettle
	}

	pending := map[string]time.Time{}
	ticker := time.NewTicker(settle / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-d.w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			name := filepath.Base(ev.Name)
			if IsSupported(name) {
				pending[name] = time.Now()
			}
		case now := <-ticker.C:
			for name, t := range pending {
				if now.Sub(t) >= settle {
					delete(pending, name)
					found(name)
				}
			}
		case err, ok := <-d.w.Errors:
			if !ok {
				return nil
			}
			log.Printf("watch error: %v", err)
		}
	}
}

// Watch is NewDirWatcher followed by Run.
func Watch(ctx context.Context, dir string, settle time.Duration, found func(name string)) error {
	d, err := NewDirWatcher(dir)
	if err != nil {
		return err
	}
	return d.Run(ctx, settle, found)
}

// Follow scans every file d reports and hands the result to onResult.
func (s *Scanner) Follow(ctx context.Context, d *DirWatcher, settle time.Duration, onResult func(Result)) error {
	return d.Run(ctx, settle, func(name string) {
		for _, r := range s.ScanFiles(ctx, d.Dir(), []string{name}) {
			onResult(r)
		}
	})
}

// WatchDir watches dir and scans new files until ctx is done.
func (s *Scanner) WatchDir(ctx context.Context, dir string, onResult func(Result)) error {
	d, err := NewDirWatcher(dir)
	if err != nil {
		return err
	}
	return s.Follow(ctx, d, DefaultSettle, onResult)
}
