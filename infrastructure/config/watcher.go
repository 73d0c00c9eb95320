package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Overrides are the runtime-changeable settings, loaded from a JSON file
// and hot-reloaded on change. Everything else requires a restart.
type Overrides struct {
	IPRateLimit   int  `json:"ipRateLimit"`
	UserRateLimit int  `json:"userRateLimit"`
	ReadOnly      bool `json:"readOnly"`
}

// Watcher watches the overrides file for changes
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *Overrides
	mu       sync.RWMutex
	onChange []func(*Overrides)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewWatcher creates a new overrides watcher
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	overrides, err := loadOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load overrides: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch overrides file: %w", err)
	}

	// Watch the directory too, for atomic saves (rename operations)
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warn("Failed to watch overrides directory", zap.Error(err))
	}

	return &Watcher{
		path:     path,
		watcher:  watcher,
		current:  overrides,
		onChange: make([]func(*Overrides), 0),
		logger:   logger,
		stopCh:   make(chan struct{}),
	}, nil
}

// Current returns the current overrides
func (w *Watcher) Current() *Overrides {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload
func (w *Watcher) OnChange(fn func(*Overrides)) {
	w.onChange = append(w.onChange, fn)
}

// Start begins watching for changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Overrides watcher started", zap.String("path", w.path))
}

// Stop stops watching for changes
func (w *Watcher) Stop() {
	close(w.stopCh)
	w.watcher.Close()
}

func (w *Watcher) watchLoop() {
	// Debounce to avoid reloading twice on write+rename
	var debounce *time.Timer
	const debounceDuration = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(debounceDuration, w.reload)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Overrides watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	overrides, err := loadOverrides(w.path)
	if err != nil {
		w.logger.Error("Failed to reload overrides, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = overrides
	w.mu.Unlock()

	for _, handler := range w.onChange {
		go handler(overrides)
	}

	w.logger.Info("Overrides reloaded",
		zap.Int("ipRateLimit", overrides.IPRateLimit),
		zap.Int("userRateLimit", overrides.UserRateLimit),
		zap.Bool("readOnly", overrides.ReadOnly),
	)
}

func loadOverrides(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var overrides Overrides
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, err
	}
	if overrides.IPRateLimit < 0 || overrides.UserRateLimit < 0 {
		return nil, fmt.Errorf("rate limits must be non-negative")
	}
	return &overrides, nil
}
