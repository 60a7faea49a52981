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

package lifecycle

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LifecycleEvent is one line of the lifecycle event log.
type LifecycleEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	Event     string            `json:"event"` // "launch", "terminate_success", "stale_pid_detected", etc.
	PID       int               `json:"pid,omitempty"`
	Success   bool              `json:"success"`
	Message   string            `json:"message,omitempty"`
	Command   []string          `json:"command,omitempty"`
	Flags     map[string]string `json:"flags,omitempty"`
	PIDFile   string            `json:"pidfile,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// LifecycleLogger appends lifecycle events as JSON lines. A logger with an
// empty path records nothing.
type LifecycleLogger struct {
	logPath string
}

// NewLifecycleLogger creates a new lifecycle logger.
func NewLifecycleLogger(logPath string) *LifecycleLogger {
	return &LifecycleLogger{
		logPath: logPath,
	}
}

// LogLaunch logs that a launch was initiated.
func (l *LifecycleLogger) LogLaunch(command []string, pidfile string) error {
	var args []string
	if len(command) > 1 {
		args = command[1:]
	}
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "launch",
		Success:   true,
		Message:   "Launch initiated",
		Command:   command,
		Flags:     parseFlags(args),
		PIDFile:   pidfile,
	})
}

// LogLaunchSuccess logs a confirmed launch.
func (l *LifecycleLogger) LogLaunchSuccess(pid int, duration time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "launch_success",
		PID:       pid,
		Success:   true,
		Message:   fmt.Sprintf("Process launched (duration: %v)", duration),
	})
}

// LogLaunchFailure logs a failed launch.
func (l *LifecycleLogger) LogLaunchFailure(err error) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "launch_failure",
		Success:   false,
		Message:   "Process failed to launch",
		Error:     err.Error(),
	})
}

// LogTerminate logs that termination was initiated.
func (l *LifecycleLogger) LogTerminate(pid int, grace time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "terminate",
		PID:       pid,
		Success:   true,
		Message:   fmt.Sprintf("Termination initiated (grace: %v)", grace),
	})
}

// LogTerminateSuccess logs a completed termination.
func (l *LifecycleLogger) LogTerminateSuccess(pid int, duration time.Duration) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "terminate_success",
		PID:       pid,
		Success:   true,
		Message:   fmt.Sprintf("Process terminated (duration: %v)", duration),
	})
}

// LogTerminateFailure logs a failed termination.
func (l *LifecycleLogger) LogTerminateFailure(pid int, err error) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "terminate_failure",
		PID:       pid,
		Success:   false,
		Message:   "Failed to terminate process",
		Error:     err.Error(),
	})
}

// LogStalePID logs detection of a stale PID file.
func (l *LifecycleLogger) LogStalePID(pid int, reason string) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "stale_pid_detected",
		PID:       pid,
		Success:   true,
		Message:   fmt.Sprintf("Stale PID file detected and removed: %s", reason),
	})
}

// LogAlreadyRunning logs that a launch found the process already running.
func (l *LifecycleLogger) LogAlreadyRunning(pid int) error {
	return l.writeEvent(LifecycleEvent{
		Timestamp: time.Now(),
		Event:     "already_running",
		PID:       pid,
		Success:   true,
		Message:   "Process already running",
	})
}

// writeEvent appends a lifecycle event to the log file.
func (l *LifecycleLogger) writeEvent(event LifecycleEvent) error {
	if l == nil || l.logPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(l.logPath), 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open lifecycle log: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// parseFlags converts runtime arguments to a map for logging.
// "-Dkey=value" style arguments are split on the first '='.
func parseFlags(args []string) map[string]string {
	flags := make(map[string]string)

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if !strings.HasPrefix(arg, "-") {
			continue
		}

		key := strings.TrimLeft(arg, "-")
		if k, v, ok := strings.Cut(key, "="); ok {
			flags[k] = v
			continue
		}

		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			flags[key] = args[i+1]
			i++
		} else {
			flags[key] = "true"
		}
	}

	return flags
}

func containsMarker(cmd, marker string) bool {
	if marker == "" {
		return true
	}
	return strings.Contains(cmd, marker)
}
