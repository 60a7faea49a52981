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

// NewRestartCommand creates the restart command.
func NewRestartCommand() *cobra.Command {
	var (
		wait bool
		opts poll.Options
	)

	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop the server and start it again",
		Long: `Restart the server by stopping it and starting it again.

This is equivalent to running 'zkctl stop --wait' followed by 'zkctl start'.
The configuration is rendered again before launch, so use this after
editing the parameter file.`,
		Example: `  # Restart after a parameter change
  zkctl restart

  # Restart and wait for the health check
  zkctl restart --wait`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				ctrl, err := s.NewController()
				if err != nil {
					return err
				}
				if err := ctrl.Stop(ctx); err != nil {
					return fmt.Errorf("failed to stop server: %w", err)
				}
				// The old process must release the client port before relaunch.
				if _, err := waitFor(ctx, ctrl, probe.NotRunning, opts); err != nil {
					return err
				}

				return runStart(ctx, cmd, s, "restart", wait, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the restarted server reports healthy")
	cmd.Flags().IntVar(&opts.Trials, "wait-trials", poll.DefaultTrials, "Number of checks before giving up")
	cmd.Flags().DurationVar(&opts.Step, "wait-step", poll.DefaultStep, "Delay between checks")

	return cmd
}
