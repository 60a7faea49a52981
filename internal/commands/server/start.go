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
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/commands/shared"
	"github.com/tombee/zkctl/internal/lifecycle"
	internallog "github.com/tombee/zkctl/internal/log"
	"github.com/tombee/zkctl/internal/poll"
	"github.com/tombee/zkctl/internal/probe"
)

// NewStartCommand creates the start command.
func NewStartCommand() *cobra.Command {
	var (
		wait bool
		opts poll.Options
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Render configuration and launch the server",
		Long: `Write the server configuration and myid files, then launch the server
in the background and record its PID in the pidfile.

The start command is idempotent: if the pidfile names a live process it
reports the existing PID and exits successfully.

With --wait the command then probes the client port until the server
answers the health check.`,
		Example: `  # Start with a parameter file
  zkctl start --params /etc/zkctl/params.yaml

  # Start and wait for the health check
  zkctl start --wait

  # Override a parameter for this launch
  zkctl start --set clientPort=2182`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				return runStart(ctx, cmd, s, "start", wait, opts)
			})
		},
	}

	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until the server reports healthy")
	cmd.Flags().IntVar(&opts.Trials, "wait-trials", poll.DefaultTrials, "Number of health checks before giving up")
	cmd.Flags().DurationVar(&opts.Step, "wait-step", poll.DefaultStep, "Delay between health checks")

	return cmd
}

func runStart(ctx context.Context, cmd *cobra.Command, s *shared.Session, name string, wait bool, opts poll.Options) error {
	ctrl, err := s.NewController()
	if err != nil {
		return err
	}
	p := ctrl.Params()
	out := cmd.OutOrStdout()

	res := result{PIDFile: p.PIDFile(), ConfigFile: p.ConfigFile()}

	pid, err := ctrl.Start(ctx)
	switch {
	case errors.Is(err, lifecycle.ErrAlreadyRunning):
		existing, _ := lifecycle.NewPIDFileManager(p.PIDFile()).Read()
		s.Logger.Info("server already running", slog.Int(internallog.PIDKey, existing))
		res.PID = existing
		res.Message = "already running"
	case err != nil:
		return fmt.Errorf("failed to start server: %w", err)
	default:
		res.PID = pid
		res.Message = "started"
	}

	if wait {
		st, err := waitFor(ctx, ctrl, probe.Running, opts)
		res.Status = st.String()
		if err != nil {
			return err
		}
	}

	if shared.GetJSON() {
		return emitResult(out, name, true, res)
	}
	if shared.GetQuiet() {
		return nil
	}

	if res.Message == "already running" {
		fmt.Fprintln(out, shared.RenderWarn(fmt.Sprintf("Server already running (pid %d)", res.PID)))
		return nil
	}
	fmt.Fprintln(out, shared.RenderOK(fmt.Sprintf("Server started (pid %d)", res.PID)))
	fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("pidfile:"), res.PIDFile)
	fmt.Fprintf(out, "  %s  %s\n", shared.RenderLabel("config:"), res.ConfigFile)
	if res.Status != "" {
		fmt.Fprintf(out, "  %s  %s\n", shared.RenderLabel("status:"), res.Status)
	}
	return nil
}
