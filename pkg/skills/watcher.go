// Copyright 2026 © The Nabd Authors
// SPDX-License-Identifier: Apache-2.0

package skills

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const watchDebounce = 150 * time.Millisecond

// Watcher forces a registry refresh when files under the skills root change.
type Watcher struct {
	registry *Registry
	logger   *slog.Logger
	debounce time.Duration
	reloads  chan struct{}
}

// NewWatcher creates a watcher for the registry's root directory.
func NewWatcher(registry *Registry, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		registry: registry,
		logger:   logger,
		debounce: watchDebounce,
		reloads:  make(chan struct{}, 1),
	}
}

// Reloads signals after each forced refresh. Signals are dropped when nobody
// is listening.
func (w *Watcher) Reloads() <-chan struct{} {
	return w.reloads
}

// Start watches the root and its skill directories until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("new watcher: %w", err)
	}
	root, err := filepath.Abs(w.registry.Root())
	if err != nil {
		_ = fsw.Close()
		return fmt.Errorf("resolve skills root: %w", err)
	}
	if err := fsw.Add(root); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", root, err)
	}
	if entries, err := os.ReadDir(root); err == nil {
		for _, entry := range entries {
			if entry.IsDir() {
				_ = fsw.Add(filepath.Join(root, entry.Name()))
			}
		}
	}

	go w.loop(ctx, fsw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fsw *fsnotify.Watcher) {
	defer fsw.Close()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = fsw.Add(ev.Name)
				}
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			timerC = timer.C
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("skills.watch.error", slog.String("error", err.Error()))
		case <-timerC:
			timerC = nil
			w.registry.Refresh(true)
			w.logger.Info("skills.watch.reload", slog.String("root", w.registry.Root()))
			select {
			case w.reloads <- struct{}{}:
			default:
			}
		}
	}
}
