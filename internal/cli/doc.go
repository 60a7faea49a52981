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

/*
Package cli provides the zkctl command-line interface.

The CLI is built with Cobra. The root command carries the global flags and
the subcommands live in internal/commands.

# Commands

  - start: Render configuration and launch the server
  - stop: Stop the server
  - restart: Stop the server and start it again
  - status: Report running, not_running or broken (exit 0, 3 or 4)
  - render: Write or preview the configuration and myid files
  - command: Print the launch command line
  - watch: Re-render configuration when the parameter file changes
  - version: Show version information

# Global Flags

	--params, -p         Parameter file (default: $ZKCTL_PARAMS)
	--set key=value      Override a parameter (repeatable)
	--json               Output in JSON format
	--quiet, -q          Suppress non-error output
	--verbose, -v        Enable debug logging
	--trace              Write OpenTelemetry spans to stderr
	--metrics-textfile   Write Prometheus metrics to a file on exit

# Usage

	zkctl render --dry-run --params params.yaml
	zkctl start --wait
	zkctl status --json
*/
package cli
