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
	"github.com/tombee/zkctl/internal/probe"
)

// NewStatusCommand creates the status command.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report whether the server is running and healthy",
		Long: `Check the pidfile process and, if it is alive, send the four-letter
health command to the client port.

Exit codes:
  0  running
  3  not running
  4  running but not answering the health check`,
		Example: `  # Human-readable status
  zkctl status

  # Machine-readable status
  zkctl status --json | jq -r .status`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				ctrl, err := s.NewController()
				if err != nil {
					return err
				}
				p := ctrl.Params()

				st := ctrl.Status(ctx)
				res := result{Status: st.String(), PIDFile: p.PIDFile()}
				if st != probe.NotRunning {
					if info, err := s.NewDaemon(p).Info(p.PIDFile()); err == nil {
						res.PID = info.PID
						res.CommandLine = info.Command
					}
				}

				out := cmd.OutOrStdout()
				if shared.GetJSON() {
					if err := emitResult(out, "status", st == probe.Running, res); err != nil {
						return err
					}
				} else if !shared.GetQuiet() {
					line := shared.RenderStatus(st)
					if res.PID > 0 {
						line += " " + shared.RenderLabel(fmt.Sprintf("(pid %d, port %d)", res.PID, p.ProbePort()))
					}
					fmt.Fprintln(out, line)
					if shared.GetVerbose() && res.CommandLine != "" {
						fmt.Fprintf(out, "  %s %s\n", shared.RenderLabel("command:"), res.CommandLine)
					}
				}

				return shared.NewStatusExit(st)
			})
		},
	}
}
