// Package watch triggers documentation rebuilds when source files change or
// on a fixed interval.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/sphinxctl/internal/logfields"
)

// DefaultDebounce collapses bursts of editor writes into one rebuild.
const DefaultDebounce = 500 * time.Millisecond

// RebuildFunc runs one rebuild. reason describes what triggered it.
type RebuildFunc func(ctx context.Context, reason string)

// Watcher monitors a directory tree and calls a RebuildFunc for changes to
// files matching its patterns.
type Watcher struct {
	root     string
	patterns []string
	exclude  []string
	debounce time.Duration
	watcher  *fsnotify.Watcher

	mu      sync.Mutex
	pending string
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a rebuild starts.
func WithDebounce(d time.Duration) Option { return func(w *Watcher) { w.debounce = d } }

// WithExclude ignores everything below dirs (absolute, or relative to root).
// Build output directories belong here so a rebuild never triggers itself.
func WithExclude(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if !filepath.IsAbs(d) {
				d = filepath.Join(w.root, d)
			}
			w.exclude = append(w.exclude, filepath.Clean(d))
		}
	}
}

// NewWatcher creates a watcher for root. Every pattern must be a valid
// doublestar glob evaluated against slash-separated paths relative to root.
func NewWatcher(root string, patterns []string, opts ...Option) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve watch root: %w", err)
	}
	if len(patterns) == 0 {
		return nil, errors.New("no watch patterns")
	}
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid watch pattern %q", p)
		}
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	w := &Watcher{root: abs, patterns: patterns, debounce: DefaultDebounce, watcher: fw}
	for _, o := range opts {
		o(w)
	}
	return w, nil
}

// Match reports whether path (absolute or relative to root) is a watched
// source file.
func (w *Watcher) Match(path string) bool {
	if !filepath.IsAbs(path) {
		path = filepath.Join(w.root, path)
	}
	if w.excluded(path) {
		return false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	rel = filepath.ToSlash(rel)
	for _, p := range w.patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

func (w *Watcher) excluded(path string) bool {
	for _, ex := range w.exclude {
		if path == ex || strings.HasPrefix(path, ex+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// addTree watches dir and every directory below it, skipping hidden and
// excluded directories.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && (strings.HasPrefix(d.Name(), ".") || w.excluded(path)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

// Run watches until ctx is done, calling rebuild after each debounced burst
// of matching changes. Rebuilds never overlap.
func (w *Watcher) Run(ctx context.Context, rebuild RebuildFunc) error {
	defer func() { _ = w.watcher.Close() }()

	if err := w.addTree(w.root); err != nil {
		return err
	}
	slog.Info("Watching for changes", logfields.Path(w.root), slog.Any("patterns", w.patterns))

	trigger := make(chan struct{}, 1)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		w.rebuildLoop(ctx, trigger, rebuild)
	}()
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handle(event, trigger)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying file watcher. Run closes it on return, so
// Close is only needed when Run is never called.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event, trigger chan<- struct{}) {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if fi, err := os.Stat(event.Name); err == nil && fi.IsDir() {
			w.handleNewDir(event.Name, trigger)
			return
		}
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if !w.Match(event.Name) {
		return
	}
	slog.Debug("Source change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
	w.notify(event.Name, trigger)
}

// handleNewDir watches a directory that appeared under root. Files copied or
// moved in with it produce no events of their own, so it is searched for
// watched sources.
func (w *Watcher) handleNewDir(dir string, trigger chan<- struct{}) {
	if w.excluded(dir) || strings.HasPrefix(filepath.Base(dir), ".") {
		return
	}
	if err := w.addTree(dir); err != nil {
		slog.Warn("Failed to watch new directory", logfields.Path(dir), logfields.Error(err))
	}
	if src := w.firstMatch(dir); src != "" {
		slog.Debug("Sources added with new directory", logfields.Path(dir))
		w.notify(src, trigger)
	}
}

// firstMatch returns the first watched source below dir, or "".
func (w *Watcher) firstMatch(dir string) string {
	var found string
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(d.Name(), ".") || w.excluded(path)) {
				return filepath.SkipDir
			}
			return nil
		}
		if w.Match(path) {
			found = path
			return filepath.SkipAll
		}
		return nil
	})
	return found
}

func (w *Watcher) notify(path string, trigger chan<- struct{}) {
	w.mu.Lock()
	w.pending = path
	w.mu.Unlock()
	select {
	case trigger <- struct{}{}:
	default:
	}
}

// rebuildLoop handles debounced rebuilds.
func (w *Watcher) rebuildLoop(ctx context.Context, trigger <-chan struct{}, rebuild RebuildFunc) {
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-trigger:
			timer.Reset(w.debounce)
		case <-timer.C:
			w.mu.Lock()
			reason := w.pending
			w.mu.Unlock()
			rebuild(ctx, "changed: "+reason)
		}
	}
}
