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

package cli

import (
	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/commands/server"
	"github.com/tombee/zkctl/internal/commands/shared"
	versioncmd "github.com/tombee/zkctl/internal/commands/version"
)

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	shared.SetVersion(v, c, b)
}

// NewRootCommand creates the root Cobra command for zkctl
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "zkctl",
		Short: "zkctl - ZooKeeper server supervisor",
		Long: `zkctl renders the configuration and identity files for a ZooKeeper
server from a validated parameter file, launches the server as a tracked
background process, stops it, and reports its health with the "ruok"
four-letter command.

Run 'zkctl render --dry-run' to preview the generated configuration.`,
		SilenceUsage:  true, // Don't show usage on errors
		SilenceErrors: true, // We handle errors ourselves for proper exit codes
	}

	shared.RegisterFlags(cmd.PersistentFlags())

	for _, sub := range server.NewCommands() {
		cmd.AddCommand(sub)
	}
	cmd.AddCommand(versioncmd.NewVersionCommand())

	return cmd
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return shared.GetVersion()
}

// HandleExitError handles exit errors with proper exit codes
func HandleExitError(err error) {
	shared.HandleExitError(err)
}
