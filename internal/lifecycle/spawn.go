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
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"path/filepath"
	"strconv"
	"syscall"
)

// Output names the files receiving the child's stdout and stderr.
// An empty path discards that stream.
type Output struct {
	Stdout string
	Stderr string
}

// Spawner handles detached process spawning.
type Spawner struct {
	// Env is the environment passed to the child process
	Env []string

	// User, when set and different from the invoking user, is the
	// account the child runs as.
	User string
}

// NewSpawner creates a new process spawner.
func NewSpawner() *Spawner {
	return &Spawner{
		Env: os.Environ(),
	}
}

// WithEnv sets the environment for the spawned process.
func (s *Spawner) WithEnv(env []string) *Spawner {
	s.Env = env
	return s
}

// WithUser sets the account the spawned process runs as.
func (s *Spawner) WithUser(name string) *Spawner {
	s.User = name
	return s
}

// SpawnDetached spawns a detached background process.
// The process:
// - Has a new session ID and process group, so it survives the parent
// - Has stdin closed and stdout/stderr redirected per out
//
// Returns the PID of the spawned process.
func (s *Spawner) SpawnDetached(binary string, args []string, out Output) (int, error) {
	stdout, err := openOutput(out.Stdout)
	if err != nil {
		return 0, fmt.Errorf("failed to open stdout file: %w", err)
	}
	defer stdout.Close()

	stderr := stdout
	if out.Stderr != out.Stdout {
		stderr, err = openOutput(out.Stderr)
		if err != nil {
			return 0, fmt.Errorf("failed to open stderr file: %w", err)
		}
		defer stderr.Close()
	}

	cmd := exec.Command(binary, args...)
	cmd.Env = s.Env
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Stdin = nil

	attr := &syscall.SysProcAttr{
		Setpgid: true,
		Setsid:  true,
	}
	cred, err := s.credential()
	if err != nil {
		return 0, err
	}
	attr.Credential = cred
	cmd.SysProcAttr = attr

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("failed to start process: %w", err)
	}

	pid := cmd.Process.Pid

	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("process started but failed to release: %w", err)
	}

	return pid, nil
}

// credential returns nil when the child should run as the invoking user.
func (s *Spawner) credential() (*syscall.Credential, error) {
	if s.User == "" {
		return nil, nil
	}
	if current, err := user.Current(); err == nil && current.Username == s.User {
		return nil, nil
	}

	u, err := user.Lookup(s.User)
	if err != nil {
		return nil, fmt.Errorf("failed to look up user %q: %w", s.User, err)
	}
	uid, err := strconv.ParseUint(u.Uid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid uid %q for user %q: %w", u.Uid, s.User, err)
	}
	gid, err := strconv.ParseUint(u.Gid, 10, 32)
	if err != nil {
		return nil, fmt.Errorf("invalid gid %q for user %q: %w", u.Gid, s.User, err)
	}

	return &syscall.Credential{Uid: uint32(uid), Gid: uint32(gid)}, nil
}

func openOutput(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
}
