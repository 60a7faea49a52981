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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/commands/shared"
	"github.com/tombee/zkctl/internal/poll"
	"github.com/tombee/zkctl/internal/probe"
)

// NewStopCommand creates the stop command.
func NewStopCommand() *cobra.Command {
	var (
		wait bool
		opts poll.Options
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the server",
		Long: `Send SIGTERM to the process in the pidfile, wait up to 7 seconds and
then send SIGKILL. A missing or stale pidfile is cleaned up and treated
as already stopped.

With --wait the command then probes until the server reports not running.`,
		Example: `  # Stop the server
  zkctl stop

  # Stop and confirm the port is closed
  zkctl stop --wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				ctrl, err := s.NewController()
				if err != nil {
					return err
				}
				if err := ctrl.Stop(ctx); err != nil {
					return fmt.Errorf("failed to stop server: %w", err)
				}

				res := result{PIDFile: ctrl.Params().PIDFile(), Message: "stopped"}
				if wait {
					st, err := waitFor(ctx, ctrl, probe.NotRunning, opts)
					res.Status = st.String()
					if err != nil {
						return err
					}
				}

				out := cmd.OutOrStdout()
				if shared.GetJSON() {
					return emitResult(out, "stop", true, res)
				}
				if !shared.GetQuiet() {
					fmt.Fprintln(out, shared.RenderOK("Server stopped"))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the server reports not running")
	cmd.Flags().IntVar(&opts.Trials, "wait-trials", poll.DefaultTrials, "Number of checks before giving up")
	cmd.Flags().DurationVar(&opts.Step, "wait-step", poll.DefaultStep, "Delay between checks")

	return cmd
}
