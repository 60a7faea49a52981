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

// Package server implements the commands that manage the local server
// process: start, stop, restart, status, render, command and watch.
package server

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/tombee/zkctl/internal/commands/shared"
)

// NewCommands returns the server management commands. They are registered
// at the top level of the CLI.
func NewCommands() []*cobra.Command {
	return []*cobra.Command{
		NewStartCommand(),
		NewStopCommand(),
		NewRestartCommand(),
		NewStatusCommand(),
		NewRenderCommand(),
		NewCommandCommand(),
		NewWatchCommand(),
	}
}

// result is the JSON body shared by the server commands.
type result struct {
	PID         int    `json:"pid,omitempty"`
	Status      string `json:"status,omitempty"`
	PIDFile     string `json:"pidfile,omitempty"`
	ConfigFile  string `json:"config_file,omitempty"`
	MyIDFile    string `json:"myid_file,omitempty"`
	CommandLine string `json:"command_line,omitempty"`
	Message     string `json:"message,omitempty"`
}

func emitResult(w io.Writer, command string, success bool, res result) error {
	return shared.EmitJSON(w, struct {
		shared.JSONResponse
		result
	}{shared.JSONResponse{Version: "1.0", Command: command, Success: success}, res})
}
