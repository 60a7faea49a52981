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

package poll

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestUntil(t *testing.T) {
	t.Run("returns on first success without waiting", func(t *testing.T) {
		start := time.Now()
		v, err := Until(context.Background(), Options{}, func(context.Context) (string, bool) {
			return "running", true
		})
		if err != nil {
			t.Fatalf("Until() error = %v", err)
		}
		if v != "running" {
			t.Errorf("Until() = %q, want running", v)
		}
		if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
			t.Errorf("first trial took %v", elapsed)
		}
	})

	t.Run("retries until done", func(t *testing.T) {
		calls := 0
		v, err := Until(context.Background(), Options{Trials: 5, Step: 10 * time.Millisecond}, func(context.Context) (int, bool) {
			calls++
			return calls, calls == 3
		})
		if err != nil {
			t.Fatalf("Until() error = %v", err)
		}
		if v != 3 || calls != 3 {
			t.Errorf("Until() = %d after %d calls, want 3 after 3", v, calls)
		}
	})

	t.Run("exhausts the budget with fixed spacing", func(t *testing.T) {
		calls := 0
		start := time.Now()
		v, err := Until(context.Background(), Options{Trials: 4, Step: 20 * time.Millisecond}, func(context.Context) (string, bool) {
			calls++
			return "not_running", false
		})
		elapsed := time.Since(start)

		if !errors.Is(err, ErrExhausted) {
			t.Fatalf("Until() error = %v, want ErrExhausted", err)
		}
		if v != "not_running" {
			t.Errorf("last value = %q", v)
		}
		if calls != 4 {
			t.Errorf("calls = %d, want 4", calls)
		}
		// Three waits between four calls.
		if elapsed < 50*time.Millisecond {
			t.Errorf("elapsed = %v, want at least ~60ms", elapsed)
		}
	})

	t.Run("stops on cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		calls := 0
		_, err := Until(ctx, Options{Trials: 100, Step: 10 * time.Millisecond}, func(context.Context) (bool, bool) {
			calls++
			if calls == 2 {
				cancel()
			}
			return false, false
		})
		if err == nil || errors.Is(err, ErrExhausted) {
			t.Fatalf("Until() error = %v, want cancellation", err)
		}
		if calls != 2 {
			t.Errorf("calls = %d, want 2", calls)
		}
	})

	t.Run("defaults", func(t *testing.T) {
		o := Options{}.withDefaults()
		if o.Trials != 15 || o.Step != 100*time.Millisecond {
			t.Errorf("defaults = %+v", o)
		}
	})
}
