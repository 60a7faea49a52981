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

package shared

import (
	"os"

	"github.com/spf13/pflag"

	"github.com/tombee/zkctl/internal/params"
)

// Global flag values - set by root command
var (
	verboseFlag     bool
	quietFlag       bool
	jsonFlag        bool
	traceFlag       bool
	paramsFlag      string
	overridesFlag   []string
	metricsTextfile string

	// Build-time version information
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

// RegisterFlags binds the global flags to fs.
func RegisterFlags(fs *pflag.FlagSet) {
	fs.BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	fs.BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-error output")
	fs.BoolVar(&jsonFlag, "json", false, "Output in JSON format")
	fs.BoolVar(&traceFlag, "trace", false, "Write OpenTelemetry spans to stderr")
	fs.StringVarP(&paramsFlag, "params", "p", "", "Path to the parameter file (default: $"+params.EnvParamsFile+")")
	fs.StringArrayVar(&overridesFlag, "set", nil, "Override a parameter (key=value, repeatable)")
	fs.StringVar(&metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file on exit")
}

// ResetFlags restores flag defaults. Tests running several commands in one
// process call it between runs.
func ResetFlags() {
	verboseFlag = false
	quietFlag = false
	jsonFlag = false
	traceFlag = false
	paramsFlag = ""
	overridesFlag = nil
	metricsTextfile = ""
}

// SetVersion sets the version information (called from main)
func SetVersion(v, c, b string) {
	version = v
	commit = c
	buildDate = b
}

// GetVersion returns version information
func GetVersion() (string, string, string) {
	return version, commit, buildDate
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verboseFlag
}

// GetQuiet returns the quiet flag value
func GetQuiet() bool {
	return quietFlag
}

// GetJSON returns the JSON output flag value
func GetJSON() bool {
	return jsonFlag
}

// GetTrace returns the trace flag value
func GetTrace() bool {
	return traceFlag
}

// GetMetricsTextfile returns the metrics textfile path, or "".
func GetMetricsTextfile() string {
	return metricsTextfile
}

// GetOverrides returns the --set assignments in the order given.
func GetOverrides() []string {
	return overridesFlag
}

// GetParamsPath returns the parameter file path from --params, falling back
// to the environment.
func GetParamsPath() string {
	if paramsFlag != "" {
		return paramsFlag
	}
	return os.Getenv(params.EnvParamsFile)
}
