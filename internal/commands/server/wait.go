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

package server

import (
	"context"
	"errors"
	"fmt"

	"github.com/tombee/zkctl/internal/commands/shared"
	"github.com/tombee/zkctl/internal/controller"
	"github.com/tombee/zkctl/internal/poll"
	"github.com/tombee/zkctl/internal/probe"
)

// waitFor polls the controller until it reports want or the trial budget
// runs out.
func waitFor(ctx context.Context, ctrl *controller.Controller, want probe.Status, opts poll.Options) (probe.Status, error) {
	spinner := shared.NewSpinner()
	if !shared.GetQuiet() && !shared.GetJSON() {
		spinner.Start(fmt.Sprintf("Waiting for %s", want))
		defer spinner.Stop()
	}

	got, err := poll.Until(ctx, opts, func(ctx context.Context) (probe.Status, bool) {
		s := ctrl.Status(ctx)
		return s, s == want
	})
	if errors.Is(err, poll.ErrExhausted) {
		return got, &shared.ExitError{
			Code:    exitCodeFor(got),
			Message: fmt.Sprintf("server is %s, expected %s", got, want),
			Cause:   err,
		}
	}
	return got, err
}

func exitCodeFor(s probe.Status) int {
	var exitErr *shared.ExitError
	if errors.As(shared.NewStatusExit(s), &exitErr) {
		return exitErr.Code
	}
	return shared.ExitFailure
}
