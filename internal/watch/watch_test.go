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
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	zklog "github.com/tombee/zkctl/internal/log"
	"github.com/tombee/zkctl/internal/params"
	zkerrors "github.com/tombee/zkctl/pkg/errors"
)

const validParams = "clientPort: 2181\ndataDir: /tmp/d\ntickTime: 2000\n"

func writeParams(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestWatcher_ReportsWritesToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	writeParams(t, path, validParams)

	w, err := NewWatcher(path, zklog.Discard())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	// a sibling file is ignored
	writeParams(t, filepath.Join(dir, "other.yaml"), "x: 1\n")
	writeParams(t, path, validParams+"initLimit: 10\n")

	select {
	case ev := <-w.Events():
		assert.Equal(t, w.Path(), ev.Path)
		assert.Contains(t, []string{"created", "modified"}, ev.Op)
	case <-time.After(2 * time.Second):
		t.Fatal("no event for parameter file")
	}
}

func TestNewWatcher_MissingDirectory(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "params.yaml"), zklog.Discard())
	assert.Error(t, err)
}

type applyRecorder struct {
	mu      sync.Mutex
	applied []*params.Params
	errs    []error
}

func (r *applyRecorder) onApplied(p *params.Params, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.applied = append(r.applied, p)
	r.errs = append(r.errs, err)
}

func (r *applyRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.errs)
}

func (r *applyRecorder) last() (*params.Params, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.applied[len(r.applied)-1], r.errs[len(r.errs)-1]
}

func TestReloader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "params.yaml")
	writeParams(t, path, validParams)

	var renders int
	var mu sync.Mutex
	load := func() (*params.Params, error) { return params.Load(path, nil) }
	apply := func(ctx context.Context, p *params.Params) error {
		mu.Lock()
		defer mu.Unlock()
		renders++
		return nil
	}

	r, err := NewReloader(path, load, apply, zklog.Discard())
	require.NoError(t, err)
	r.WithDebounce(20 * time.Millisecond)

	rec := &applyRecorder{}
	r.OnApplied = rec.onApplied

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	// Give the watcher time to register before editing.
	time.Sleep(50 * time.Millisecond)

	t.Run("valid edit is applied", func(t *testing.T) {
		writeParams(t, path, validParams+"initLimit: 10\n")
		require.Eventually(t, func() bool { return rec.count() >= 1 }, 2*time.Second, 10*time.Millisecond)

		p, err := rec.last()
		require.NoError(t, err)
		v, ok := p.Setting("initLimit")
		assert.True(t, ok)
		assert.Equal(t, "10", v)
	})

	t.Run("invalid edit is skipped", func(t *testing.T) {
		mu.Lock()
		before := renders
		mu.Unlock()
		seen := rec.count()

		writeParams(t, path, "clientPort: 2181\ndataDir: /tmp/d\n")
		require.Eventually(t, func() bool { return rec.count() > seen }, 2*time.Second, 10*time.Millisecond)

		p, err := rec.last()
		assert.Nil(t, p)
		var vErr *zkerrors.ValidationError
		assert.True(t, errors.As(err, &vErr), "error = %v", err)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, before, renders)
	})

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
