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
	"github.com/tombee/zkctl/internal/materialize"
)

// NewRenderCommand creates the render command.
func NewRenderCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Write the server configuration and myid files",
		Long: `Write the server configuration file and <dataDir>/myid from the
parameter set without launching anything. Each file is replaced atomically.

With --dry-run the files are printed instead of written.`,
		Example: `  # Preview the generated configuration
  zkctl render --dry-run

  # Regenerate files after editing the parameters
  zkctl render`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				ctrl, err := s.NewController()
				if err != nil {
					return err
				}
				p := ctrl.Params()
				out := cmd.OutOrStdout()

				if dryRun {
					cfg, err := materialize.RenderConfig(p)
					if err != nil {
						return err
					}
					myid := materialize.RenderMyID(p)

					if shared.GetJSON() {
						return shared.EmitJSON(out, map[string]string{
							p.ConfigFile():          string(cfg),
							materialize.MyIDPath(p): string(myid),
						})
					}
					fmt.Fprintf(out, "# %s\n%s\n# %s\n%s", p.ConfigFile(), cfg, materialize.MyIDPath(p), myid)
					return nil
				}

				if err := ctrl.Render(ctx); err != nil {
					return err
				}

				res := result{ConfigFile: p.ConfigFile(), MyIDFile: materialize.MyIDPath(p), Message: "rendered"}
				if shared.GetJSON() {
					return emitResult(out, "render", true, res)
				}
				if !shared.GetQuiet() {
					fmt.Fprintln(out, shared.RenderOK("Wrote "+res.ConfigFile))
					fmt.Fprintln(out, shared.RenderOK("Wrote "+res.MyIDFile))
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the files instead of writing them")

	return cmd
}
