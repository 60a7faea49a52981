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
	"errors"
	"os"
	"os/exec"
	"syscall"
	"testing"
	"time"
)

func TestIsProcessRunning(t *testing.T) {
	t.Run("returns true for current process", func(t *testing.T) {
		if !IsProcessRunning(os.Getpid()) {
			t.Error("IsProcessRunning(os.Getpid()) = false, want true")
		}
	})

	t.Run("returns false for non-existent PID", func(t *testing.T) {
		if IsProcessRunning(999999) {
			t.Error("IsProcessRunning(999999) = true, want false")
		}
	})

	t.Run("returns false for non-positive PID", func(t *testing.T) {
		if IsProcessRunning(0) || IsProcessRunning(-1) {
			t.Error("IsProcessRunning() = true for non-positive PID")
		}
	})

	t.Run("treats an unreaped child as exited", func(t *testing.T) {
		cmd := exec.Command("sh", "-c", "exit 0")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start process: %v", err)
		}
		defer cmd.Wait()

		pid := cmd.Process.Pid
		deadline := time.Now().Add(2 * time.Second)
		for IsProcessRunning(pid) && time.Now().Before(deadline) {
			time.Sleep(20 * time.Millisecond)
		}
		if IsProcessRunning(pid) {
			t.Error("IsProcessRunning(zombie) = true, want false")
		}
	})
}

func TestSendSignal(t *testing.T) {
	t.Run("sends signal to running process", func(t *testing.T) {
		cmd := exec.Command("sleep", "60")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start sleep process: %v", err)
		}
		defer func() {
			cmd.Process.Kill()
			cmd.Wait()
		}()

		if err := SendSignal(cmd.Process.Pid, syscall.Signal(0)); err != nil {
			t.Errorf("SendSignal() error = %v", err)
		}
	})

	t.Run("returns error for non-existent process", func(t *testing.T) {
		if err := SendSignal(999999, syscall.SIGTERM); err == nil {
			t.Error("SendSignal() to non-existent process succeeded, want error")
		}
	})
}

func TestWaitForExit(t *testing.T) {
	t.Run("returns nil when process exits", func(t *testing.T) {
		cmd := exec.Command("sh", "-c", "exit 0")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start process: %v", err)
		}
		pid := cmd.Process.Pid
		cmd.Wait()

		if err := WaitForExit(pid, 2*time.Second); err != nil {
			t.Errorf("WaitForExit() error = %v, want nil", err)
		}
	})

	t.Run("returns timeout error for long-running process", func(t *testing.T) {
		cmd := exec.Command("sleep", "60")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start process: %v", err)
		}
		defer func() {
			cmd.Process.Kill()
			cmd.Wait()
		}()

		err := WaitForExit(cmd.Process.Pid, 200*time.Millisecond)
		if !errors.Is(err, ErrShutdownTimeout) {
			t.Errorf("WaitForExit() error = %v, want ErrShutdownTimeout", err)
		}
	})
}

func TestGracefulShutdown(t *testing.T) {
	t.Run("stops process with SIGTERM", func(t *testing.T) {
		cmd := exec.Command("sleep", "60")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start process: %v", err)
		}
		defer cmd.Wait()

		if err := GracefulShutdown(cmd.Process.Pid, 2*time.Second, false); err != nil {
			t.Errorf("GracefulShutdown() error = %v, want nil", err)
		}
	})

	t.Run("force kills process that ignores SIGTERM", func(t *testing.T) {
		cmd := exec.Command("sh", "-c", "trap '' TERM; while :; do sleep 0.1; done")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start process: %v", err)
		}
		defer cmd.Wait()
		// Let the shell install its trap.
		time.Sleep(200 * time.Millisecond)

		start := time.Now()
		if err := GracefulShutdown(cmd.Process.Pid, 300*time.Millisecond, true); err != nil {
			t.Errorf("GracefulShutdown() error = %v, want nil", err)
		}
		if elapsed := time.Since(start); elapsed < 300*time.Millisecond {
			t.Errorf("GracefulShutdown() returned after %v, before the grace period", elapsed)
		}
	})

	t.Run("returns error for non-existent process", func(t *testing.T) {
		err := GracefulShutdown(999999, 1*time.Second, false)
		if !errors.Is(err, ErrProcessNotRunning) {
			t.Errorf("GracefulShutdown() error = %v, want ErrProcessNotRunning", err)
		}
	})
}

func TestGetProcessInfo(t *testing.T) {
	t.Run("returns info for running process", func(t *testing.T) {
		cmd := exec.Command("sleep", "60")
		if err := cmd.Start(); err != nil {
			t.Fatalf("Failed to start process: %v", err)
		}
		defer func() {
			cmd.Process.Kill()
			cmd.Wait()
		}()

		pid := cmd.Process.Pid
		info, err := GetProcessInfo(pid)
		if err != nil {
			t.Fatalf("GetProcessInfo() error = %v", err)
		}

		if info.PID != pid {
			t.Errorf("info.PID = %d, want %d", info.PID, pid)
		}
		if !info.Running {
			t.Error("info.Running = false, want true")
		}
		if info.Command == "" {
			t.Error("info.Command is empty")
		}
	})

	t.Run("returns not running for non-existent process", func(t *testing.T) {
		info, err := GetProcessInfo(999999)
		if err != nil {
			t.Fatalf("GetProcessInfo() error = %v", err)
		}
		if info.Running {
			t.Error("info.Running = true, want false")
		}
	})
}

func TestIsManagedProcess(t *testing.T) {
	cmd := exec.Command("sleep", "61")
	if err := cmd.Start(); err != nil {
		t.Fatalf("Failed to start process: %v", err)
	}
	defer func() {
		cmd.Process.Kill()
		cmd.Wait()
	}()
	pid := cmd.Process.Pid

	if !IsManagedProcess(pid, "61") {
		t.Error("IsManagedProcess(sleep 61, \"61\") = false, want true")
	}
	if IsManagedProcess(pid, "/tmp/zoo.2181.cfg") {
		t.Error("IsManagedProcess(sleep, config path) = true, want false")
	}
	if IsManagedProcess(999999, "sleep") {
		t.Error("IsManagedProcess(999999) = true, want false")
	}
}
