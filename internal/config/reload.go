// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	xglog "github.com/ManuGH/preflight/internal/log"
	"github.com/ManuGH/preflight/internal/metrics"
)

const debounceDuration = 500 * time.Millisecond

// Update describes one successful reload.
type Update struct {
	Old     AppConfig
	New     AppConfig
	Changes []string
}

// Holder holds configuration with atomic reloading capability.
// It provides thread-safe access to configuration and supports hot reloading
// from file or manual trigger.
type Holder struct {
	mu      sync.RWMutex
	current AppConfig
	loader  *Loader
	watcher *fsnotify.Watcher
	logger  zerolog.Logger

	reloadMu        sync.RWMutex
	reloadListeners []chan<- Update

	debounce time.Duration
	wg       sync.WaitGroup
}

// NewHolder creates a new configuration holder with initial config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:  initial,
		loader:   loader,
		logger:   xglog.WithComponent("config"),
		debounce: debounceDuration,
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration from file and validates it. If loading or
// validation fails, the old configuration is kept and an error is returned.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str(xglog.FieldEvent, "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		metrics.RecordConfigReload(false)
		h.logger.Error().
			Err(err).
			Str(xglog.FieldEvent, "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("reload config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	changes := Changes(oldCfg, newCfg)
	metrics.RecordConfigReload(true)
	for _, c := range changes {
		h.logger.Info().Str(xglog.FieldEvent, "config.changed").Str("setting", c).Msg("config changed")
	}
	h.notifyListeners(Update{Old: oldCfg, New: newCfg, Changes: changes})

	h.logger.Info().
		Str(xglog.FieldEvent, "config.reload_success").
		Int("changes", len(changes)).
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher starts watching the config file for changes until ctx ends.
// Without a config file this is a no-op.
func (h *Holder) StartWatcher(ctx context.Context) error {
	path := h.loader.Path()
	if path == "" {
		h.logger.Info().
			Str(xglog.FieldEvent, "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	// Watch the directory: an editor that renames a temp file over the
	// config replaces the inode and would drop a watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}
	h.watcher = watcher

	h.logger.Info().
		Str(xglog.FieldEvent, "config.watcher_started").
		Str(xglog.FieldPath, path).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go h.watchLoop(ctx, watcher, filepath.Clean(path))
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, path string) {
	defer h.wg.Done()
	defer func() { _ = watcher.Close() }()

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()
	fire := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str(xglog.FieldEvent, "config.watcher_stopped").Msg("config watcher stopped")
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != path {
				continue
			}
			// Write covers in-place edits; Create covers a file renamed over the config.
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				h.logger.Debug().
					Str(xglog.FieldEvent, "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.AfterFunc(h.debounce, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})
			}

		case <-fire:
			if err := h.Reload(ctx); err != nil {
				h.logger.Error().
					Err(err).
					Str(xglog.FieldEvent, "config.auto_reload_failed").
					Msg("automatic config reload failed")
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str(xglog.FieldEvent, "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// Wait blocks until the watcher goroutine has exited.
func (h *Holder) Wait() {
	h.wg.Wait()
}

// RegisterListener registers a channel to receive reload notifications.
// Sends are non-blocking; the caller owns the channel.
func (h *Holder) RegisterListener(ch chan<- Update) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(u Update) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- u:
		default:
			h.logger.Warn().
				Str(xglog.FieldEvent, "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}
