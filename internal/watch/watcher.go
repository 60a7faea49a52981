// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package watch re-materializes the configuration when the parameter file
// changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Event describes a change to the watched file.
type Event struct {
	Path  string
	Op    string
	Size  int64
	MTime time.Time
}

var opNames = map[fsnotify.Op]string{
	fsnotify.Create: "created",
	fsnotify.Write:  "modified",
	fsnotify.Remove: "deleted",
	fsnotify.Rename: "renamed",
}

// Watcher reports changes to a single file. It watches the parent directory
// so editors that save by rename-over are still seen.
type Watcher struct {
	path    string
	watcher *fsnotify.Watcher
	events  chan Event
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a watcher for path. The file's directory must exist.
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(absPath)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(absPath), err)
	}

	return &Watcher{
		path:    absPath,
		watcher: fsw,
		events:  make(chan Event, 100),
		logger:  logger.With(slog.String("component", "watch"), slog.String("path", absPath)),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}, nil
}

// Path returns the absolute path being watched.
func (w *Watcher) Path() string {
	return w.path
}

// Start begins delivering events until ctx is done or Stop is called.
func (w *Watcher) Start(ctx context.Context) {
	go w.loop(ctx)
	w.logger.Info("watching parameter file")
}

// Stop stops the watcher and releases its resources.
func (w *Watcher) Stop() error {
	select {
	case <-w.stopCh:
	default:
		close(w.stopCh)
	}
	<-w.doneCh
	return w.watcher.Close()
}

// Events returns the event channel. It is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.doneCh)
	defer close(w.events)

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Warn("fsnotify event channel closed")
				return
			}
			w.handle(ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Warn("fsnotify error channel closed")
				return
			}
			w.logger.Error("watch error", slog.String("error", err.Error()))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if filepath.Clean(ev.Name) != w.path {
		return
	}

	var op string
	for mask, name := range opNames {
		if ev.Op.Has(mask) {
			op = name
			break
		}
	}
	if op == "" {
		// chmod only
		return
	}

	out := Event{Path: w.path, Op: op}
	if info, err := os.Stat(w.path); err == nil {
		out.Size = info.Size()
		out.MTime = info.ModTime()
	}

	select {
	case w.events <- out:
		w.logger.Debug("parameter file event", slog.String("op", op))
	default:
		w.logger.Warn("event channel full, dropping event", slog.String("op", op))
	}
}
