// Package watch scans images as they appear in watched directories.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/MeKo-Tech/qrscan/internal/batch"
	"github.com/MeKo-Tech/qrscan/internal/scanner"
	"github.com/MeKo-Tech/qrscan/internal/utils"
)

// DefaultDebounce is how long a file must stay quiet before it is scanned.
const DefaultDebounce = 200 * time.Millisecond

// Config selects what is watched.
type Config struct {
	Dirs      []string
	Recursive bool
	Include   []string
	Exclude   []string
	// Debounce collapses the create and write events of one file.
	Debounce time.Duration
}

// Event reports the scan of one file. Err is set when the file could not
// be loaded or scanned.
type Event struct {
	Path   string               `json:"file"`
	Time   time.Time            `json:"time"`
	Result *scanner.ImageResult `json:"result,omitempty"`
	Err    error                `json:"-"`
	Error  string               `json:"error,omitempty"`
}

// Watcher scans new and modified images under a set of directories.
type Watcher struct {
	scanner *scanner.Scanner
	cfg     Config
	fsw     *fsnotify.Watcher

	mu      sync.Mutex
	pending map[string]*time.Timer
	ready   chan string
	done    chan struct{}
	once    sync.Once
}

// New starts watching cfg.Dirs. Call Run to process events and Close when
// done.
func New(s *scanner.Scanner, cfg Config) (*Watcher, error) {
	if len(cfg.Dirs) == 0 {
		return nil, errors.New("no directories to watch")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	w := &Watcher{
		scanner: s,
		cfg:     cfg,
		fsw:     fsw,
		pending: make(map[string]*time.Timer),
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
	}
	for _, dir := range cfg.Dirs {
		if err := w.addDir(dir); err != nil {
			_ = fsw.Close()
			return nil, err
		}
	}
	return w, nil
}

// addDir watches dir and, when recursive, every directory below it.
func (w *Watcher) addDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	if !w.cfg.Recursive {
		return w.fsw.Add(dir)
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
		}
		return nil
	})
}

// Run handles filesystem events until ctx is done, calling handle after
// each scan. handle runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context, handle func(Event)) error {
	slog.Info("Watching for images", "dirs", w.cfg.Dirs, "recursive", w.cfg.Recursive)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("Watcher error", "error", err)
		case path := <-w.ready:
			handle(w.scan(ctx, path))
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	switch {
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.cancel(ev.Name)
	case ev.Has(fsnotify.Create), ev.Has(fsnotify.Write):
		info, err := os.Stat(ev.Name)
		if err != nil {
			return
		}
		if info.IsDir() {
			if ev.Has(fsnotify.Create) && w.cfg.Recursive {
				if err := w.addDir(ev.Name); err != nil {
					slog.Warn("Failed to watch new directory", "dir", ev.Name, "error", err)
				}
			}
			return
		}
		if batch.MatchImage(ev.Name, w.cfg.Include, w.cfg.Exclude) {
			w.schedule(ev.Name)
		}
	}
}

// schedule (re)arms the debounce timer of path.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Reset(w.cfg.Debounce)
		return
	}
	w.pending[path] = time.AfterFunc(w.cfg.Debounce, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		select {
		case w.ready <- path:
		case <-w.done:
		}
	})
}

func (w *Watcher) cancel(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) scan(ctx context.Context, path string) Event {
	ev := Event{Path: path, Time: time.Now()}
	img, _, err := utils.LoadImage(path)
	if err == nil {
		ev.Result, err = w.scanner.Scan(ctx, img)
	}
	if err != nil {
		ev.Err = err
		ev.Error = err.Error()
		slog.Debug("Watched file failed", "file", path, "error", err)
		return ev
	}
	scanner.SortSymbolsTopLeft(ev.Result)
	return ev
}

// Close stops watching and cancels pending scans.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
	w.mu.Unlock()
	w.once.Do(func() { close(w.done) })
	return w.fsw.Close()
}
