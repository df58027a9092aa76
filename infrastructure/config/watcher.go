package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// SettingsWatcher watches the settings file and hot-reloads it, letting a
// running explorer pick up visibility and style changes without a restart.
type SettingsWatcher struct {
	path      string
	settings  Settings
	callbacks []func(Settings)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewSettingsWatcher creates a watcher for the given settings file. An empty
// path yields a watcher that only ever serves the defaults.
func NewSettingsWatcher(path string, initial Settings, logger *zap.Logger) (*SettingsWatcher, error) {
	w := &SettingsWatcher{
		path:     path,
		settings: initial,
		logger:   logger.Named("settings"),
		stopCh:   make(chan struct{}),
	}

	if path == "" {
		return w, nil
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	w.watcher = fsWatcher

	// Watch the directory so editors that replace the file atomically
	// (rename-over) still trigger events
	if err := fsWatcher.Add(filepath.Dir(path)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch settings directory: %w", err)
	}

	go w.watchLoop()
	w.logger.Info("settings hot reloading enabled", zap.String("path", path))
	return w, nil
}

// Current returns the active settings
func (w *SettingsWatcher) Current() Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// OnChange registers a callback invoked with the new settings after a reload
func (w *SettingsWatcher) OnChange(fn func(Settings)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Stop shuts down the watcher
func (w *SettingsWatcher) Stop() {
	close(w.stopCh)
	if w.watcher != nil {
		w.watcher.Close()
	}
}

func (w *SettingsWatcher) watchLoop() {
	// Editors emit bursts of events per save; debounce before reloading
	var reload <-chan time.Time

	for {
		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(200 * time.Millisecond)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("settings watcher error", zap.Error(err))

		case <-reload:
			reload = nil
			w.reload()
		}
	}
}

func (w *SettingsWatcher) reload() {
	settings, err := LoadSettings(w.path)
	if err != nil {
		w.logger.Warn("settings reload failed, keeping previous settings", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.settings = settings
	callbacks := make([]func(Settings), len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()

	w.logger.Info("settings reloaded", zap.Int("hiddenGroups", len(settings.Hidden)))
	for _, fn := range callbacks {
		fn(settings)
	}
}
