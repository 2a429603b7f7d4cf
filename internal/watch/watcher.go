// Package watch re-runs a deployment when the source tree changes.
//
// Events are coalesced over a debounce window so an editor's write-rename
// sequence, or a git checkout touching many files, triggers a single run.
package watch

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/vvka-141/skilldeploy/pkg/skilldeploy"
)

// DefaultDebounce is the quiet period after the last event before OnChange fires.
const DefaultDebounce = 500 * time.Millisecond

// Config holds the parameters for a Watcher.
type Config struct {
	// SourceRoot is the package tree to watch recursively.
	SourceRoot string

	// Ignore are doublestar patterns over slash-separated paths relative to
	// SourceRoot. Matching events never trigger a run.
	Ignore []string

	// SkipDirs are absolute directories whose events are dropped, typically
	// the target root when it lives inside the source tree.
	SkipDirs []string

	Debounce time.Duration

	// OnChange receives the deduplicated relative paths that changed.
	OnChange func(ctx context.Context, changed []string) error

	Logger skilldeploy.Logger
}

// Watcher monitors a source tree and fires a debounced callback.
// Run must be called exactly once.
type Watcher struct {
	cfg      Config
	fsw      *fsnotify.Watcher
	root     string
	skip     []string
	debounce time.Duration
	logger   skilldeploy.Logger
	started  atomic.Bool
}

// New validates the ignore patterns and registers every directory under
// SourceRoot that is neither ignored nor skipped.
func New(cfg Config) (*Watcher, error) {
	if cfg.Logger == nil {
		panic("logger cannot be nil")
	}
	if cfg.SourceRoot == "" {
		return nil, fmt.Errorf("watch: source root is required: %w", skilldeploy.ErrInvalidConfig)
	}

	root, err := filepath.Abs(cfg.SourceRoot)
	if err != nil {
		return nil, fmt.Errorf("watch: resolve source root: %w", err)
	}

	for _, pat := range cfg.Ignore {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("watch: invalid ignore pattern %q: %w", pat, skilldeploy.ErrInvalidConfig)
		}
	}

	skip := make([]string, 0, len(cfg.SkipDirs))
	for _, d := range cfg.SkipDirs {
		abs, err := filepath.Abs(d)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %q: %w", d, err)
		}
		skip = append(skip, abs)
	}

	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		root:     root,
		skip:     skip,
		debounce: debounce,
		logger:   cfg.Logger,
	}

	if err := w.addDirectories(); err != nil {
		if closeErr := fsw.Close(); closeErr != nil {
			w.logger.Warn("watch: close after init failure: %v", closeErr)
		}
		return nil, err
	}
	return w, nil
}

// Run blocks until ctx is cancelled. It returns nil on cancellation and an
// error only when the underlying watcher breaks. Callback errors are logged.
func (w *Watcher) Run(ctx context.Context) error {
	if !w.started.CompareAndSwap(false, true) {
		return errors.New("watch: Run called more than once")
	}

	var (
		mu      sync.Mutex
		pending = make(map[string]struct{})
		timer   *time.Timer
		running atomic.Bool
	)

	fire := func() {
		if ctx.Err() != nil {
			return
		}
		// A run still in progress keeps the pending set and retries later.
		if !running.CompareAndSwap(false, true) {
			mu.Lock()
			if timer != nil {
				timer.Reset(w.debounce)
			}
			mu.Unlock()
			return
		}
		defer running.Store(false)

		mu.Lock()
		if len(pending) == 0 {
			mu.Unlock()
			return
		}
		changed := slices.Sorted(maps.Keys(pending))
		clear(pending)
		mu.Unlock()

		w.logger.Verbose("watch: %d path(s) changed", len(changed))
		if w.cfg.OnChange != nil {
			if err := w.cfg.OnChange(ctx, changed); err != nil {
				w.logger.Error("watch: redeploy failed: %v", err)
			}
		}
	}

	defer func() {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("watch: close fsnotify: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watch: event channel closed unexpectedly")
			}
			rel, relevant := w.relevant(evt.Name)
			if !relevant {
				continue
			}
			if evt.Has(fsnotify.Create) {
				w.maybeAddDir(evt.Name)
			}

			mu.Lock()
			pending[rel] = struct{}{}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, fire)
			} else {
				timer.Reset(w.debounce)
			}
			mu.Unlock()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watch: error channel closed unexpectedly")
			}
			if isFatal(err) {
				return fmt.Errorf("watch: fatal fsnotify error: %w", err)
			}
			w.logger.Warn("watch: fsnotify error: %v", err)
		}
	}
}

// relevant maps an absolute event path to its slash-separated path relative
// to the source root, and reports whether the event should count.
func (w *Watcher) relevant(path string) (string, bool) {
	if w.skipped(path) {
		return "", false
	}
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	if w.ignored(rel) {
		return "", false
	}
	return rel, true
}

func (w *Watcher) addDirectories() error {
	err := filepath.WalkDir(w.root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.logger.Warn("watch: skipping inaccessible path %s: %v", path, walkErr)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != w.root && !w.watchable(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return fmt.Errorf("watch: add directory %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch: walk source tree: %w", err)
	}
	return nil
}

func (w *Watcher) maybeAddDir(path string) {
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() || !w.watchable(path) {
		return
	}
	if err := w.fsw.Add(path); err != nil {
		w.logger.Warn("watch: add new directory %s: %v", path, err)
	}
}

// watchable reports whether a directory below the root should be registered.
func (w *Watcher) watchable(dir string) bool {
	if w.skipped(dir) {
		return false
	}
	rel, err := filepath.Rel(w.root, dir)
	if err != nil {
		return false
	}
	rel = filepath.ToSlash(rel)
	// Directory patterns such as "**/.git/**" only match their contents.
	return !w.ignored(rel) && !w.ignored(rel+"/x")
}

func (w *Watcher) skipped(path string) bool {
	for _, d := range w.skip {
		if path == d || strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (w *Watcher) ignored(rel string) bool {
	for _, pat := range w.cfg.Ignore {
		if ok, err := doublestar.Match(pat, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// isFatal reports inotify and descriptor exhaustion, after which no further
// events can be delivered.
func isFatal(err error) bool {
	return errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EMFILE) ||
		errors.Is(err, syscall.ENFILE)
}
