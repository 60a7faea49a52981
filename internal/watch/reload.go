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

package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/tombee/zkctl/internal/params"
)

// DefaultDebounce collapses the burst of writes an editor produces on save.
const DefaultDebounce = 200 * time.Millisecond

// LoadFunc builds a fresh parameter set from the file on disk.
type LoadFunc func() (*params.Params, error)

// ApplyFunc materializes a parameter set.
type ApplyFunc func(ctx context.Context, p *params.Params) error

// Reloader ties a Watcher to a load and apply step. A parameter file that
// fails to load is logged and skipped, leaving the previously rendered files
// in place.
type Reloader struct {
	watcher  *Watcher
	load     LoadFunc
	apply    ApplyFunc
	logger   *slog.Logger
	debounce time.Duration

	// OnApplied is called after each reload attempt with its error, if any.
	OnApplied func(p *params.Params, err error)
}

// NewReloader creates a reloader for the parameter file at path.
func NewReloader(path string, load LoadFunc, apply ApplyFunc, logger *slog.Logger) (*Reloader, error) {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := NewWatcher(path, logger)
	if err != nil {
		return nil, err
	}
	return &Reloader{
		watcher:  w,
		load:     load,
		apply:    apply,
		logger:   logger.With(slog.String("component", "reload")),
		debounce: DefaultDebounce,
	}, nil
}

// WithDebounce sets the quiet window before a reload.
func (r *Reloader) WithDebounce(d time.Duration) *Reloader {
	r.debounce = d
	return r
}

// Run applies changes until ctx is done.
func (r *Reloader) Run(ctx context.Context) error {
	reloads := make(chan Event, 1)
	debouncer := NewDebouncer(r.debounce, func(ev Event) {
		select {
		case reloads <- ev:
		default:
			// a reload is already queued and will read the latest file
		}
	})
	defer debouncer.Stop()

	r.watcher.Start(ctx)
	defer r.watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-r.watcher.Events():
			if !ok {
				return ctx.Err()
			}
			if ev.Op == "deleted" || ev.Op == "renamed" {
				r.logger.Warn("parameter file went away; keeping current files", slog.String("op", ev.Op))
				continue
			}
			debouncer.Add(ev)
		case <-reloads:
			r.reload(ctx)
		}
	}
}

func (r *Reloader) reload(ctx context.Context) {
	p, err := r.load()
	if err != nil {
		r.logger.Error("invalid parameter file; keeping current files", slog.String("error", err.Error()))
		r.notify(nil, err)
		return
	}

	if err := r.apply(ctx, p); err != nil {
		r.logger.Error("failed to render configuration", slog.String("error", err.Error()))
		r.notify(p, err)
		return
	}

	r.logger.Info("configuration re-rendered", slog.Any("params", p))
	r.notify(p, nil)
}

func (r *Reloader) notify(p *params.Params, err error) {
	if r.OnApplied != nil {
		r.OnApplied(p, err)
	}
}
