package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"floatrans/internal/workerutil"
)

// DefaultReloadDebounce coalesces the event burst an editor or atomicWrite
// produces for one save.
const DefaultReloadDebounce = 200 * time.Millisecond

// ReloadFunc receives the reloaded config. err is non-nil when the file
// could not be read or parsed; cfg then holds defaults and callers usually
// keep their current config.
type ReloadFunc func(cfg Config, err error)

// Watcher reloads a config file when it changes on disk.
type Watcher struct {
	fs       *fsnotify.Watcher
	path     string
	debounce time.Duration
	onReload ReloadFunc

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	timer  *time.Timer
	closed bool
}

// Watch starts watching path. The parent directory is watched rather than
// the file so that rename-based saves keep being observed.
func Watch(ctx context.Context, path string, debounce time.Duration, onReload ReloadFunc) (*Watcher, error) {
	if onReload == nil {
		return nil, errors.New("watch config: reload callback required")
	}
	if debounce <= 0 {
		debounce = DefaultReloadDebounce
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("watch config: resolve path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch config: create watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config: add %s: %w", filepath.Dir(absPath), err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{
		fs:       fsw,
		path:     absPath,
		debounce: debounce,
		onReload: onReload,
		cancel:   cancel,
	}
	workerutil.RunWithPanicRecovery(loopCtx, "config-watcher", &w.wg, w.loop, workerutil.RecoveryOptions{
		MaxRetries: 3,
		IsShutdown: w.isClosed,
	})
	slog.Debug("[DEBUG-CONFIG] watching config file", "path", absPath)
	return w, nil
}

func (w *Watcher) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) {
				w.schedule()
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			slog.Warn("[WARN-CONFIG] config watcher error", "error", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	if w.isClosed() {
		return
	}
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("[WARN-CONFIG] config reload failed", "path", w.path, "error", err)
	} else {
		slog.Info("[INFO-CONFIG] config reloaded", "path", w.path)
	}
	w.onReload(cfg, err)
}

func (w *Watcher) isClosed() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closed
}

// Close stops the watcher. Pending reloads are dropped. Safe to call twice.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.cancel()
	err := w.fs.Close()
	w.wg.Wait()
	return err
}
