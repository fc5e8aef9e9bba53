// Package configwatch reloads runtime settings when the config file changes.
//
// Only settings that are safe to change on a running server are applied by
// callers: the response pacing delay and the log level.
package configwatch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/usts/internal/cliconfig"
	"github.com/bft-labs/usts/pkg/log"
)

// DefaultDebounce coalesces the burst of events an editor produces on save.
const DefaultDebounce = 100 * time.Millisecond

// ReloadFunc receives the freshly parsed config file.
type ReloadFunc func(cliconfig.FileConfig)

// Watcher watches one config file.
type Watcher struct {
	path     string
	debounce time.Duration
	logger   log.Logger
	reload   ReloadFunc

	mu     sync.Mutex
	timer  *time.Timer
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a watcher for path. debounce <= 0 selects DefaultDebounce.
func New(path string, debounce time.Duration, logger log.Logger, reload ReloadFunc) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = log.NewNoopLogger()
	}
	return &Watcher{path: path, debounce: debounce, logger: logger, reload: reload}
}

// Start begins watching. The parent directory is watched so that files
// replaced by rename are still seen.
func (w *Watcher) Start(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		_ = fw.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(w.path), err)
	}

	ctx, cancel := context.WithCancel(ctx)
	w.mu.Lock()
	w.cancel = cancel
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(ctx, fw)

	w.logger.Info("watching config file", log.String("path", w.path))
	return nil
}

// Stop ends watching and waits for the loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel := w.cancel
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	w.wg.Wait()
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	defer w.wg.Done()
	defer fw.Close()

	name := filepath.Base(w.path)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.schedule(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", log.Err(err))
		}
	}
}

func (w *Watcher) schedule(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.load()
	})
}

func (w *Watcher) load() {
	fc, err := cliconfig.LoadFileConfig(w.path)
	if err != nil {
		w.logger.Warn("config reload failed, keeping current settings",
			log.String("path", w.path),
			log.Err(err),
		)
		return
	}
	w.logger.Info("config file reloaded", log.String("path", w.path))
	w.reload(fc)
}
