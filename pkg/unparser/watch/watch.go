// Package watch re-checks source and tree files as they change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/op/go-logging"

	"github.com/sambeau/unparser/config"
	"github.com/sambeau/unparser/pkg/unparser/input"
)

// DefaultDebounce is used when the configuration leaves debounce at zero
const DefaultDebounce = 100 * time.Millisecond

// Handler is called with the path of a changed file
type Handler func(path string)

// Watcher monitors directories and calls its handler for changed .rb and
// .sexp files, compressed or not.
type Watcher struct {
	watcher  *fsnotify.Watcher
	handler  Handler
	log      *logging.Logger
	debounce time.Duration
	dirs     []string

	// Pending changes wait out the debounce period per path
	mu        sync.Mutex
	pending   map[string]*time.Timer
	ready     chan string
	done      chan struct{}
	changeSeq uint64
}

// New creates a watcher. Directories from cfg are watched once Start is
// called, along with any passed to Add.
func New(cfg config.WatchConfig, handler Handler, log *logging.Logger) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	return &Watcher{
		watcher:  fsWatcher,
		handler:  handler,
		log:      log,
		debounce: debounce,
		dirs:     append([]string(nil), cfg.Dirs...),
		pending:  make(map[string]*time.Timer),
		ready:    make(chan string, 16),
		done:     make(chan struct{}),
	}, nil
}

// Add watches dirs and their subdirectories. Hidden directories are skipped.
func (w *Watcher) Add(dirs ...string) error {
	for _, dir := range dirs {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("failed to watch %s: not a directory", dir)
		}
		if err := w.watchDirRecursive(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		w.logInfo("watching %s", dir)
	}
	return nil
}

// Start watches the configured directories and runs the event loop until
// ctx is done or the watcher is closed.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.Add(w.dirs...); err != nil {
		return err
	}
	go w.eventLoop(ctx)
	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip errors
		}
		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") && path != root {
				return filepath.SkipDir
			}
			return w.watcher.Add(path)
		}
		return nil
	})
}

// eventLoop processes file system events. The handler always runs on this
// goroutine, one file at a time.
func (w *Watcher) eventLoop(ctx context.Context) {
	defer close(w.done)
	defer w.stopTimers()

	for {
		select {
		case <-ctx.Done():
			return

		case path := <-w.ready:
			w.mu.Lock()
			w.changeSeq++
			w.mu.Unlock()
			w.handler(path)

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return
			}
			if err := w.watchDirRecursive(event.Name); err != nil {
				w.logError("failed to watch %s: %v", event.Name, err)
			}
			return
		}
	}

	if !Relevant(event.Name) {
		return
	}
	w.schedule(event.Name)
}

// schedule replaces the debounce timer for path with a fresh one
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if old, ok := w.pending[path]; ok {
		old.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(w.debounce, func() { w.fire(path, t) })
	w.pending[path] = t
}

// fire delivers path unless t has been replaced. A timer that already fired
// may still be waiting on mu when schedule swaps in its successor.
func (w *Watcher) fire(path string, t *time.Timer) {
	w.mu.Lock()
	current := w.pending[path] == t
	if current {
		delete(w.pending, path)
	}
	w.mu.Unlock()
	if !current {
		return
	}
	select {
	case w.ready <- path:
	case <-w.done:
	}
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

// Relevant reports whether path names a file the watcher reacts to:
// .rb or .sexp, optionally compressed, and not hidden.
func Relevant(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return false
	}
	return input.SourceKind(path) != input.Unknown
}

// ChangeSeq returns the number of changes handled so far
func (w *Watcher) ChangeSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}

// Close stops the watcher
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...interface{}) {
	if w.log != nil {
		w.log.Infof(format, args...)
	}
}

func (w *Watcher) logError(format string, args ...interface{}) {
	if w.log != nil {
		w.log.Errorf(format, args...)
	}
}
