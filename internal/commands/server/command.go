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

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/commands/shared"
)

// NewCommandCommand creates the command command, which prints the launch
// command line.
func NewCommandCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "command",
		Short: "Print the command used to launch the server",
		Long: `Print the runtime, JVM arguments and configuration path that start
would launch, quoted for a POSIX shell.`,
		Example: `  # Run the server in the foreground by hand
  eval "$(zkctl command)"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return shared.Run(cmd, func(ctx context.Context, s *shared.Session) error {
				ctrl, err := s.NewController()
				if err != nil {
					return err
				}
				argv := ctrl.Command()

				if shared.GetJSON() {
					return shared.EmitJSON(cmd.OutOrStdout(), argv)
				}
				fmt.Fprintln(cmd.OutOrStdout(), shellquote.Join(argv...))
				return nil
			})
		},
	}
}
