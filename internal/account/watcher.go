// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package account

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"

	"github.com/war100ck/Steam-Account-Manager/internal/logging"
)

// DefaultDebounce is how long a file must be quiet before a change is
// reported.
const DefaultDebounce = 300 * time.Millisecond

// ChangeEvent lists the maFiles that changed since the last event.
type ChangeEvent struct {
	Paths []string
}

// Watcher reports changes to maFiles in the accounts directory.
type Watcher struct {
	dir      string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *logrus.Entry

	mu      sync.Mutex
	pending map[string]time.Time // path -> last change time

	events chan ChangeEvent
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// NewWatcher creates a watcher for dir. Call Start to begin.
func NewWatcher(dir string, debounce time.Duration, logger *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		dir:      dir,
		watcher:  fw,
		debounce: debounce,
		log:      logging.Component(logger, "watcher"),
		pending:  make(map[string]time.Time),
		events:   make(chan ChangeEvent, 1),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start watches the directory.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}

	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
	return nil
}

// Events delivers debounced changes. The channel is closed by Close.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Close stops watching and releases resources. Safe to call twice.
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.cancel()
		w.closeErr = w.watcher.Close()
		w.wg.Wait()
		close(w.events)
	})
	return w.closeErr
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("panic", r).Error("watcher event loop stopped")
		}
	}()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, FileExt) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) != 0 {
				w.mu.Lock()
				w.pending[event.Name] = time.Now()
				w.mu.Unlock()
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.WithError(err).Warn("watch error")
		}
	}
}

func (w *Watcher) processPending() {
	defer w.wg.Done()

	tick := w.debounce / 3
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			now := time.Now()

			w.mu.Lock()
			var ready []string
			for path, changed := range w.pending {
				if now.Sub(changed) >= w.debounce {
					ready = append(ready, path)
					delete(w.pending, path)
				}
			}
			w.mu.Unlock()

			if len(ready) == 0 {
				continue
			}
			sort.Strings(ready)
			w.emit(ready)
		}
	}
}

// emit delivers without blocking. When an event is already queued the
// paths are merged into it.
func (w *Watcher) emit(paths []string) {
	for {
		select {
		case w.events <- ChangeEvent{Paths: paths}:
			w.log.WithField("files", len(paths)).Debug("accounts changed")
			return
		case queued := <-w.events:
			paths = mergePaths(queued.Paths, paths)
		case <-w.ctx.Done():
			return
		}
	}
}

func mergePaths(a, b []string) []string {
	all := lo.Map(append(append([]string{}, a...), b...), func(p string, _ int) string {
		return filepath.Clean(p)
	})
	out := lo.Uniq(all)
	sort.Strings(out)
	return out
}
