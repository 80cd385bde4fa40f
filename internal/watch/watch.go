// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package watch debounces filesystem change notifications into a single
// rebuild trigger (spec §5 "Shared resource policy": changes are coalesced
// rather than triggering a rebuild per file event).
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kraklabs/astra/internal/metrics"
)

// DefaultDebounce matches the ~500ms window spec §5 describes in prose.
const DefaultDebounce = 500 * time.Millisecond

// Watcher recursively watches a directory tree and calls OnChange once per
// debounce window after one or more files settle.
type Watcher struct {
	fsw      *fsnotify.Watcher
	root     string
	debounce time.Duration
	logger   *slog.Logger
	ignore   func(rel string, isDir bool) bool

	mu    sync.Mutex
	timer *time.Timer
}

// New creates a Watcher rooted at root. ignore is called with the path
// relative to root for both files and directories; returning true skips the
// entry (and, for directories, everything beneath it).
func New(root string, debounce time.Duration, ignore func(rel string, isDir bool) bool, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fsw: fsw, root: root, debounce: debounce, logger: logger, ignore: ignore}
	if err := w.addTree(root); err != nil {
		_ = fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		if rel != "." && w.ignore != nil && w.ignore(filepath.ToSlash(rel), true) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("watch.add.failed", "path", path, "err", err)
		}
		return nil
	})
}

// Run blocks until ctx is cancelled, calling onChange after each debounce
// window in which at least one relevant file event occurred.
func (w *Watcher) Run(ctx context.Context, onChange func()) {
	defer func() { _ = w.fsw.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(ev, onChange)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch.error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(ev fsnotify.Event, onChange func()) {
	rel, err := filepath.Rel(w.root, ev.Name)
	if err != nil {
		rel = ev.Name
	}
	rel = filepath.ToSlash(rel)

	if info, statErr := os.Lstat(ev.Name); statErr == nil && info.IsDir() {
		if ev.Op&fsnotify.Create != 0 && (w.ignore == nil || !w.ignore(rel, true)) {
			if err := w.fsw.Add(ev.Name); err != nil {
				w.logger.Warn("watch.add.failed", "path", ev.Name, "err", err)
			}
		}
		return
	}

	if w.ignore != nil && w.ignore(rel, false) {
		return
	}

	metrics.RecordWatchEvent()
	w.schedule(onChange)
}

func (w *Watcher) schedule(onChange func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		metrics.RecordWatchRebuild()
		onChange()
	})
}
