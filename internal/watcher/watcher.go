// Package watcher re-indexes folder blocks when their directories change on
// disk. Events anywhere under a registered root are debounced per root, so a
// burst of file writes triggers one re-index of the owning folder block.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/notable-labs/noteseek/internal/external"
)

const defaultDebounce = 2 * time.Second

// ReindexFunc re-indexes the folder block that owns a changed root.
type ReindexFunc func(ref external.Ref)

// Watcher watches folder block roots and invokes the reindex callback when
// their contents change.
type Watcher struct {
	onReindex ReindexFunc
	debounce  time.Duration

	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	roots    map[string]external.Ref // cleaned abs root -> owning block
	dirs     map[string][]string     // root -> watched subdirectories
	timers   map[string]*time.Timer  // root -> pending debounce
	done     chan struct{}
	started  bool
	stopOnce sync.Once
	logger   *zap.Logger
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the per-root debounce window.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// New creates a watcher. onReindex is called, debounced, with the folder
// block reference owning the changed root.
func New(onReindex ReindexFunc, opts ...Option) *Watcher {
	w := &Watcher{
		onReindex: onReindex,
		debounce:  defaultDebounce,
		roots:     make(map[string]external.Ref),
		dirs:      make(map[string][]string),
		timers:    make(map[string]*time.Timer),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start begins watching. It runs until ctx is cancelled or Stop is called.
// Roots may be added before or after Start.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return nil
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	w.watcher = watcher
	w.started = true
	// Roots registered before Start get their watches installed now.
	for root := range w.roots {
		if err := w.watchTreeLocked(root); err != nil && w.logger != nil {
			w.logger.Warn("watch folder root failed", zap.String("root", root), zap.Error(err))
		}
	}
	w.mu.Unlock()
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	root, ref, ok := w.owningRoot(ev.Name)
	if !ok {
		return
	}
	if w.logger != nil {
		w.logger.Debug("folder event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name), zap.String("root", root))
	}
	// New subdirectories must be watched too; fsnotify is not recursive.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			w.mu.Lock()
			if w.watcher != nil {
				if err := w.watcher.Add(ev.Name); err == nil {
					w.dirs[root] = append(w.dirs[root], ev.Name)
				}
			}
			w.mu.Unlock()
		}
	}
	w.scheduleReindex(root, ref)
}

// owningRoot finds the registered root containing path.
func (w *Watcher) owningRoot(path string) (string, external.Ref, bool) {
	clean := filepath.Clean(path)
	w.mu.Lock()
	defer w.mu.Unlock()
	for root, ref := range w.roots {
		if clean == root || inDir(root, clean) {
			return root, ref, true
		}
	}
	return "", external.Ref{}, false
}

func inDir(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// scheduleReindex resets the root's debounce timer.
func (w *Watcher) scheduleReindex(root string, ref external.Ref) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[root]; ok {
		t.Stop()
	}
	w.timers[root] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, root)
		logger := w.logger
		w.mu.Unlock()
		if logger != nil {
			logger.Debug("folder reindex triggered", zap.String("root", root),
				zap.String("doc_id", ref.DocID), zap.String("block_id", ref.BlockID))
		}
		if w.onReindex != nil {
			w.onReindex(ref)
		}
	})
}

// AddFolder registers a folder block's root. Safe to call before Start;
// re-registering the same root replaces its owning block.
func (w *Watcher) AddFolder(ref external.Ref) error {
	abs, err := filepath.Abs(ref.Target)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	_, known := w.roots[abs]
	w.roots[abs] = ref
	if known || w.watcher == nil {
		return nil
	}
	return w.watchTreeLocked(abs)
}

func (w *Watcher) watchTreeLocked(root string) error {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // unreadable subtrees are skipped
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return fs.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			return err
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return err
	}
	w.dirs[root] = paths
	return nil
}

// RemoveFolder stops watching a folder block's root. Indexed chunks are left
// in place.
func (w *Watcher) RemoveFolder(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	abs = filepath.Clean(abs)
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.roots[abs]; !ok {
		return nil
	}
	if t, ok := w.timers[abs]; ok {
		t.Stop()
		delete(w.timers, abs)
	}
	if w.watcher != nil {
		for _, p := range w.dirs[abs] {
			_ = w.watcher.Remove(p)
		}
	}
	delete(w.dirs, abs)
	delete(w.roots, abs)
	return nil
}

// Folders returns the currently watched folder block references.
func (w *Watcher) Folders() []external.Ref {
	w.mu.Lock()
	defer w.mu.Unlock()
	refs := make([]external.Ref, 0, len(w.roots))
	for _, ref := range w.roots {
		refs = append(refs, ref)
	}
	return refs
}

// Stop stops the watcher and releases resources.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.started || w.watcher == nil {
		w.mu.Unlock()
		return
	}
	for root, t := range w.timers {
		t.Stop()
		delete(w.timers, root)
	}
	_ = w.watcher.Close()
	w.watcher = nil
	w.started = false
	w.mu.Unlock()
	w.stopOnce.Do(func() { close(w.done) })
}
