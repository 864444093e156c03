package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceDelay coalesces rapid successive writes (editors doing
// write-then-rename) into a single reload, matching the file-provider
// idiom this package is grounded on.
const debounceDelay = 300 * time.Millisecond

// Holder holds the current AmbientConfig with atomic hot-swap semantics —
// readers never block, and a reload either fully replaces the snapshot or
// leaves the old one in place on error.
type Holder struct {
	loader *Loader
	logger *slog.Logger

	snapshot atomic.Pointer[AmbientConfig]

	watcher   *fsnotify.Watcher
	closeOnce sync.Once
}

// NewHolder performs an initial Load and wraps it in a Holder.
func NewHolder(loader *Loader, logger *slog.Logger) (*Holder, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	h := &Holder{loader: loader, logger: logger}
	h.snapshot.Store(&cfg)
	return h, nil
}

// Get returns the current ambient configuration (thread-safe, lock-free).
func (h *Holder) Get() AmbientConfig {
	return *h.snapshot.Load()
}

// Reload re-runs the Loader and swaps the snapshot on success. On failure
// the previous snapshot remains in effect — a bad edit never takes down a
// running process.
func (h *Holder) Reload() error {
	cfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error("config reload failed", "err", err)
		return err
	}
	h.snapshot.Store(&cfg)
	h.logger.Info("config reloaded")
	return nil
}

// WatchFile starts an fsnotify watch on path's directory (watching the
// directory, not the file, survives editors that write-and-rename), and
// triggers a debounced Reload on change. A no-op if path is empty.
func (h *Holder) WatchFile(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	file := filepath.Base(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return err
	}
	h.watcher = watcher

	h.logger.Info("watching config file for changes", "path", path)
	go h.watchLoop(ctx, file)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, configFile string) {
	defer h.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-h.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != configFile {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, func() {
				_ = h.Reload()
			})

		case err, ok := <-h.watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error("config watcher error", "err", err)
		}
	}
}

// Close stops the file watcher, if one was started. Idempotent.
func (h *Holder) Close() error {
	var err error
	h.closeOnce.Do(func() {
		if h.watcher != nil {
			err = h.watcher.Close()
		}
	})
	return err
}
