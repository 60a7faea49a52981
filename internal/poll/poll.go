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

// Package poll repeats a single-shot check with a fixed trial budget and a
// fixed delay between trials.
package poll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// ErrExhausted is returned when every trial ran without reaching the target.
var ErrExhausted = errors.New("trial budget exhausted")

// Default budget for start and stop confirmation.
const (
	DefaultTrials = 15
	DefaultStep   = 100 * time.Millisecond
)

// Options controls the trial budget.
type Options struct {
	// Trials is the maximum number of calls. Zero means DefaultTrials.
	Trials int

	// Step is the minimum delay between the start of consecutive calls.
	// Zero means DefaultStep.
	Step time.Duration
}

func (o Options) withDefaults() Options {
	if o.Trials <= 0 {
		o.Trials = DefaultTrials
	}
	if o.Step <= 0 {
		o.Step = DefaultStep
	}
	return o
}

// Until calls check until it reports done, the budget runs out or ctx is
// cancelled. It returns the last value check produced. On exhaustion the
// error wraps ErrExhausted.
func Until[T any](ctx context.Context, opts Options, check func(context.Context) (T, bool)) (T, error) {
	opts = opts.withDefaults()
	limiter := rate.NewLimiter(rate.Every(opts.Step), 1)

	var last T
	for trial := 1; trial <= opts.Trials; trial++ {
		if err := limiter.Wait(ctx); err != nil {
			return last, err
		}

		v, done := check(ctx)
		last = v
		if done {
			return v, nil
		}
	}

	return last, fmt.Errorf("%w after %d trials (last: %v)", ErrExhausted, opts.Trials, last)
}
