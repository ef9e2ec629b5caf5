package registry

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher watches a set of directories for capability-file changes and
// reinstalls the affected file into the Registry. Rapid bursts of events for
// the same file (editors that write-then-rename, or multiple writes in one
// save) are coalesced into a single reload via a debounce window.
type Watcher struct {
	reg      *Registry
	dirs     []string
	debounce time.Duration
	logger   *zap.Logger
}

// NewWatcher creates a hot-reload watcher over dirs, debouncing reloads of
// the same path within the given window.
func NewWatcher(reg *Registry, dirs []string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if debounce <= 0 {
		debounce = 200 * time.Millisecond
	}
	return &Watcher{reg: reg, dirs: dirs, debounce: debounce, logger: logger}
}

// Run loads every capability file in dirs once, then watches for changes
// until ctx is cancelled. Each watched directory's parse/validate/install
// failure is isolated to that one file: a broken file never prevents the
// rest of the tree from loading or reloading.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	for _, dir := range w.dirs {
		if err := fsw.Add(dir); err != nil {
			w.logger.Warn("failed to watch capability directory", zap.String("dir", dir), zap.Error(err))
			continue
		}
		w.loadDir(dir)
	}

	pending := make(map[string]*time.Timer)
	defer func() {
		for _, t := range pending {
			t.Stop()
		}
	}()

	fire := make(chan string, 16)

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isCapabilityFile(ev.Name) {
				continue
			}
			if t, exists := pending[ev.Name]; exists {
				t.Stop()
			}
			path := ev.Name
			pending[path] = time.AfterFunc(w.debounce, func() {
				fire <- path
			})

		case path := <-fire:
			delete(pending, path)
			w.reload(path)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", zap.Error(err))
		}
	}
}

func isCapabilityFile(path string) bool {
	ext := filepath.Ext(path)
	return ext == ".yaml" || ext == ".yml"
}

func (w *Watcher) loadDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		w.logger.Warn("failed to read capability directory", zap.String("dir", dir), zap.Error(err))
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isCapabilityFile(e.Name()) {
			continue
		}
		w.reload(filepath.Join(dir, e.Name()))
	}
}

func (w *Watcher) reload(path string) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		w.reg.RemoveSource(path)
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		w.logger.Warn("failed to read capability file", zap.String("path", path), zap.Error(err))
		return
	}

	file, err := ParseCapabilityFile(data)
	if err != nil {
		w.logger.Warn("failed to parse capability file", zap.String("path", path), zap.Error(err))
		return
	}

	if err := Validate(file); err != nil {
		w.logger.Warn("capability file failed validation", zap.String("path", path), zap.Error(err))
		return
	}

	if err := w.reg.InstallFile(path, file); err != nil {
		w.logger.Warn("failed to install capability file", zap.String("path", path), zap.Error(err))
	}
}
