package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultDebounce = 100 * time.Millisecond

// Watcher invokes a reload callback when policy files under a path
// change. Bursts of filesystem events within the debounce window
// collapse into a single reload.
type Watcher struct {
	path     string
	debounce time.Duration
	fsw      *fsnotify.Watcher
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// NewWatcher watches path, which may be a single policy file or a
// directory tree. Hidden directories are skipped.
func NewWatcher(path string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		fsw:      fsw,
		logger:   slog.Default().With("component", "policy_watcher"),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}, nil
}

// Watch blocks until the context is cancelled or Stop is called,
// calling onReload after each quiet period following a relevant change.
func (w *Watcher) Watch(ctx context.Context, onReload func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("watcher already running")
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
		close(w.done)
	}()

	if err := w.register(w.path); err != nil {
		return fmt.Errorf("watching %q: %w", w.path, err)
	}
	w.logger.Info("watching policy files", "path", w.path, "debounce", w.debounce)

	// The timer arms on the first relevant event and re-arms on each
	// further event; its expiry channel fires once the burst settles.
	settle := time.NewTimer(w.debounce)
	if !settle.Stop() {
		<-settle.C
	}
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-w.stop:
			return nil

		case <-settle.C:
			pending = false
			if err := onReload(); err != nil {
				w.logger.Error("policy reload failed", "error", err)
			} else {
				w.logger.Info("policies reloaded")
			}

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("fsnotify events channel closed")
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("policy file changed", "path", ev.Name, "op", ev.Op.String())
			if pending && !settle.Stop() {
				<-settle.C
			}
			settle.Reset(w.debounce)
			pending = true

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("fsnotify errors channel closed")
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// Stop terminates the watch loop and releases the filesystem watches.
// Safe to call on a watcher that never started.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.mu.Unlock()

	if running {
		close(w.stop)
		<-w.done
	}
	return w.fsw.Close()
}

func (w *Watcher) register(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return w.fsw.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return w.fsw.Add(p)
	})
}

// relevant filters out chmods, hidden files, and non-policy extensions.
func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if ev.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(base)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
