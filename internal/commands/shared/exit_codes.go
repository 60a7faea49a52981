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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/tombee/zkctl/internal/probe"
	zkerrors "github.com/tombee/zkctl/pkg/errors"
)

// Exit codes. Status results follow the LSB init-script convention.
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitInvalidParams = 2
	ExitNotRunning    = 3
	ExitBroken        = 4
)

// ExitError is an error that carries an exit code
type ExitError struct {
	Code    int
	Message string
	Cause   error
}

func (e *ExitError) Error() string {
	if e.Cause != nil {
		if e.Message == "" {
			return e.Cause.Error()
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Cause
}

// NewStatusExit returns nil for Running and a silent ExitError otherwise.
func NewStatusExit(s probe.Status) error {
	switch s {
	case probe.Running:
		return nil
	case probe.Broken:
		return &ExitError{Code: ExitBroken}
	default:
		return &ExitError{Code: ExitNotRunning}
	}
}

// ExitCode maps err to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch zkerrors.TypeOf(err) {
	case "validation", "config":
		return ExitInvalidParams
	default:
		return ExitFailure
	}
}

// HandleExitError prints err and exits with the matching code.
func HandleExitError(err error) {
	if err == nil {
		return
	}
	printError(os.Stderr, err)
	os.Exit(ExitCode(err))
}

func printError(w io.Writer, err error) {
	// Status exits carry no message; the status line was already printed.
	if msg := err.Error(); msg != "" {
		fmt.Fprintln(w, RenderError(msg))
	}

	var vErr *zkerrors.ValidationError
	if errors.As(err, &vErr) && vErr.Suggestion != "" {
		fmt.Fprintf(w, "\nSuggestion: %s\n", vErr.Suggestion)
	}
}
