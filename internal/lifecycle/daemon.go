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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"
)

// ErrAlreadyRunning is returned by Launch when the pidfile names a live process.
var ErrAlreadyRunning = errors.New("process already running")

// ErrProcessExited is returned by Launch when the child dies before it is confirmed.
var ErrProcessExited = errors.New("process exited during launch")

// DefaultConfirmInterval is how often Launch rechecks a freshly spawned child.
const DefaultConfirmInterval = 50 * time.Millisecond

// LaunchSpec describes one detached launch.
type LaunchSpec struct {
	// Command is the executable followed by its arguments.
	Command []string

	// PIDFile records the child's PID.
	PIDFile string

	// GracePeriod bounds how long Launch waits to confirm the child.
	GracePeriod time.Duration

	// LogFile receives JSON lifecycle events. Empty disables them.
	LogFile string

	// StdoutFile and StderrFile receive the child's output. Empty discards it.
	StdoutFile string
	StderrFile string

	// User runs the child under another account when it differs from the caller.
	User string
}

// Daemon launches, tracks and terminates a single detached process per pidfile.
type Daemon struct {
	marker   string
	eventLog string
	settle   time.Duration
	logger   *slog.Logger
	env      []string
	events   func(path string) *LifecycleLogger
	spawnFor func(spec LaunchSpec) *Spawner
}

// DaemonOption configures a Daemon.
type DaemonOption func(*Daemon)

// WithMarker makes Terminate refuse PIDs whose command line lacks marker.
func WithMarker(marker string) DaemonOption {
	return func(d *Daemon) { d.marker = marker }
}

// WithEventLog sets the lifecycle event log used when a LaunchSpec names
// none, and by Terminate.
func WithEventLog(path string) DaemonOption {
	return func(d *Daemon) { d.eventLog = path }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) DaemonOption {
	return func(d *Daemon) { d.logger = logger }
}

// WithSettle makes Launch keep watching the child for d after it is first
// seen alive, so a command that fails immediately is reported.
func WithSettle(d time.Duration) DaemonOption {
	return func(dm *Daemon) { dm.settle = d }
}

// WithEnv sets the environment of launched processes.
func WithEnv(env []string) DaemonOption {
	return func(d *Daemon) { d.env = env }
}

// NewDaemon creates a Daemon.
func NewDaemon(opts ...DaemonOption) *Daemon {
	d := &Daemon{
		logger: slog.Default(),
		env:    os.Environ(),
		events: NewLifecycleLogger,
	}
	d.spawnFor = func(spec LaunchSpec) *Spawner {
		return NewSpawner().WithEnv(d.env).WithUser(spec.User)
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Launch starts spec.Command detached and records its PID. It returns the
// PID once the child is confirmed alive within spec.GracePeriod.
func (d *Daemon) Launch(ctx context.Context, spec LaunchSpec) (int, error) {
	if len(spec.Command) == 0 {
		return 0, errors.New("launch: empty command")
	}
	if spec.PIDFile == "" {
		return 0, errors.New("launch: pidfile is required")
	}

	start := time.Now()
	logFile := spec.LogFile
	if logFile == "" {
		logFile = d.eventLog
	}
	events := d.events(logFile)
	_ = events.LogLaunch(spec.Command, spec.PIDFile)

	pidMgr := NewPIDFileManager(spec.PIDFile)
	if err := d.clearStale(pidMgr, events); err != nil {
		if !errors.Is(err, ErrAlreadyRunning) {
			_ = events.LogLaunchFailure(err)
		}
		return 0, err
	}

	spawner := d.spawnFor(spec)
	pid, err := spawner.SpawnDetached(spec.Command[0], spec.Command[1:], Output{
		Stdout: spec.StdoutFile,
		Stderr: spec.StderrFile,
	})
	if err != nil && pid == 0 {
		_ = events.LogLaunchFailure(err)
		return 0, err
	}

	if err := pidMgr.Create(pid); err != nil {
		_ = SendSignal(pid, syscall.SIGKILL)
		err = fmt.Errorf("failed to record pid %d: %w", pid, err)
		_ = events.LogLaunchFailure(err)
		return 0, err
	}
	pidMgr.Release()

	if err := d.confirm(ctx, pid, spec.GracePeriod); err != nil {
		pidMgr.Remove()
		_ = events.LogLaunchFailure(err)
		return 0, err
	}

	d.logger.Debug("process launched",
		slog.Int("pid", pid),
		slog.String("pidfile", spec.PIDFile),
		slog.Duration("duration", time.Since(start)))
	_ = events.LogLaunchSuccess(pid, time.Since(start))
	return pid, nil
}

// clearStale returns ErrAlreadyRunning for a live pidfile and removes a stale one.
func (d *Daemon) clearStale(pidMgr *PIDFileManager, events *LifecycleLogger) error {
	pid, err := pidMgr.Read()
	switch {
	case err == nil:
		if IsProcessRunning(pid) {
			_ = events.LogAlreadyRunning(pid)
			return fmt.Errorf("%w (pid %d)", ErrAlreadyRunning, pid)
		}
		d.logger.Info("removing stale pidfile", slog.Int("pid", pid), slog.String("pidfile", pidMgr.Path()))
		_ = events.LogStalePID(pid, "process not running")
	case errors.Is(err, os.ErrNotExist):
		return nil
	case errors.Is(err, ErrInvalidPID):
		d.logger.Info("removing unreadable pidfile", slog.String("pidfile", pidMgr.Path()), slog.Any("error", err))
		_ = events.LogStalePID(0, err.Error())
	default:
		return err
	}
	return pidMgr.Remove()
}

// confirm waits until pid is seen alive, then for the settle window.
func (d *Daemon) confirm(ctx context.Context, pid int, grace time.Duration) error {
	if grace <= 0 {
		grace = DefaultConfirmInterval
	}
	deadline := time.Now().Add(grace)

	seen := time.Time{}
	for {
		alive := IsProcessRunning(pid)
		now := time.Now()
		switch {
		case alive && seen.IsZero():
			seen = now
		case !alive && !seen.IsZero():
			return fmt.Errorf("%w (pid %d)", ErrProcessExited, pid)
		}
		if !seen.IsZero() && now.Sub(seen) >= d.settle {
			return nil
		}
		if now.After(deadline) {
			if seen.IsZero() {
				return fmt.Errorf("%w (pid %d not seen within %v)", ErrProcessExited, pid, grace)
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(DefaultConfirmInterval):
		}
	}
}

// Terminate stops the process recorded in pidfile: SIGTERM, wait up to
// grace, then SIGKILL. An absent or stale pidfile is success.
func (d *Daemon) Terminate(ctx context.Context, pidfile string, grace time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	pidMgr := NewPIDFileManager(pidfile)
	pid, err := pidMgr.Read()
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		if errors.Is(err, ErrInvalidPID) {
			d.logger.Info("removing unreadable pidfile", slog.String("pidfile", pidfile))
			return pidMgr.Remove()
		}
		return err
	}

	events := d.events(d.eventLog)
	if !IsProcessRunning(pid) {
		_ = events.LogStalePID(pid, "process not running")
		return pidMgr.Remove()
	}

	if d.marker != "" && !IsManagedProcess(pid, d.marker) {
		return fmt.Errorf("%w: pid %d does not mention %q", ErrNotManagedProcess, pid, d.marker)
	}

	start := time.Now()
	_ = events.LogTerminate(pid, grace)
	if err := GracefulShutdown(pid, grace, true); err != nil && !errors.Is(err, ErrProcessNotRunning) {
		_ = events.LogTerminateFailure(pid, err)
		return err
	}

	d.logger.Debug("process terminated", slog.Int("pid", pid), slog.Duration("duration", time.Since(start)))
	_ = events.LogTerminateSuccess(pid, time.Since(start))
	return pidMgr.Remove()
}

// IsAlive reports whether pidfile names a running process.
func (d *Daemon) IsAlive(pidfile string) bool {
	pid, err := NewPIDFileManager(pidfile).Read()
	if err != nil {
		return false
	}
	return IsProcessRunning(pid)
}

// Info describes the process recorded in pidfile.
func (d *Daemon) Info(pidfile string) (*ProcessInfo, error) {
	pid, err := NewPIDFileManager(pidfile).Read()
	if err != nil {
		return nil, err
	}
	return GetProcessInfo(pid)
}
