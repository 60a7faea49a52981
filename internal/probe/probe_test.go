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

package probe

import (
	"net"
	"testing"
	"time"
)

// serve starts a listener that hands each accepted connection to handle
// after reading the 4-byte command.
func serve(t *testing.T, handle func(conn net.Conn, cmd []byte)) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				cmd := make([]byte, 4)
				conn.SetReadDeadline(time.Now().Add(2 * time.Second))
				n, _ := conn.Read(cmd)
				handle(conn, cmd[:n])
			}()
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

// closedPort returns a port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen() error = %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestStatus_String(t *testing.T) {
	tests := map[Status]string{
		NotRunning: "not_running",
		Running:    "running",
		Broken:     "broken",
		Status(9):  "unknown(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), got, want)
		}
	}
}

func TestProber_Check(t *testing.T) {
	t.Run("no listener is not running", func(t *testing.T) {
		result := NewProber().Check("127.0.0.1", closedPort(t))

		if result.Status != NotRunning {
			t.Errorf("Status = %v, want %v", result.Status, NotRunning)
		}
		if result.Err == nil {
			t.Error("Err = nil, want dial error")
		}
		if result.Attempts != 0 {
			t.Errorf("Attempts = %d, want 0", result.Attempts)
		}
	})

	t.Run("immediate imok is running", func(t *testing.T) {
		var got []byte
		done := make(chan struct{})
		port := serve(t, func(conn net.Conn, cmd []byte) {
			got = cmd
			close(done)
			conn.Write([]byte("imok"))
		})

		result := NewProber().Check("127.0.0.1", port)
		<-done

		if result.Status != Running {
			t.Errorf("Status = %v, want %v (response %q)", result.Status, Running, result.Response)
		}
		if string(got) != "ruok" {
			t.Errorf("server received %q, want ruok", got)
		}
		if result.Elapsed >= 100*time.Millisecond {
			t.Errorf("Elapsed = %v, want well under 100ms", result.Elapsed)
		}
		if result.Attempts != 1 {
			t.Errorf("Attempts = %d, want 1", result.Attempts)
		}
	})

	t.Run("split response is accumulated", func(t *testing.T) {
		port := serve(t, func(conn net.Conn, cmd []byte) {
			conn.Write([]byte("im"))
			time.Sleep(150 * time.Millisecond)
			conn.Write([]byte("ok"))
			time.Sleep(200 * time.Millisecond)
		})

		result := NewProber().Check("127.0.0.1", port)

		if result.Status != Running {
			t.Errorf("Status = %v, want %v (response %q)", result.Status, Running, result.Response)
		}
		if result.Attempts < 2 {
			t.Errorf("Attempts = %d, want at least 2", result.Attempts)
		}
	})

	t.Run("other token is broken", func(t *testing.T) {
		port := serve(t, func(conn net.Conn, cmd []byte) {
			conn.Write([]byte("nook"))
			time.Sleep(200 * time.Millisecond)
		})

		result := NewProber().Check("127.0.0.1", port)

		if result.Status != Broken {
			t.Errorf("Status = %v, want %v", result.Status, Broken)
		}
		if string(result.Response) != "nook" {
			t.Errorf("Response = %q, want nook", result.Response)
		}
	})

	t.Run("short response then close is broken", func(t *testing.T) {
		port := serve(t, func(conn net.Conn, cmd []byte) {
			conn.Write([]byte("im"))
		})

		start := time.Now()
		result := NewProber().Check("127.0.0.1", port)
		elapsed := time.Since(start)

		if result.Status != Broken {
			t.Errorf("Status = %v, want %v", result.Status, Broken)
		}
		if result.Attempts != DefaultAttempts {
			t.Errorf("Attempts = %d, want %d after peer close", result.Attempts, DefaultAttempts)
		}
		if elapsed < 900*time.Millisecond || elapsed > 3*time.Second {
			t.Errorf("elapsed = %v, want about 1s", elapsed)
		}
		if string(result.Response) != "im" {
			t.Errorf("Response = %q, want %q", result.Response, "im")
		}
	})

	t.Run("silent listener is broken after all attempts", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		port := serve(t, func(conn net.Conn, cmd []byte) {
			<-release
		})

		start := time.Now()
		result := NewProber().Check("127.0.0.1", port)
		elapsed := time.Since(start)

		if result.Status != Broken {
			t.Errorf("Status = %v, want %v", result.Status, Broken)
		}
		if result.Attempts != DefaultAttempts {
			t.Errorf("Attempts = %d, want %d", result.Attempts, DefaultAttempts)
		}
		if elapsed < 900*time.Millisecond || elapsed > 3*time.Second {
			t.Errorf("elapsed = %v, want about 1s", elapsed)
		}
		if len(result.Response) != 0 {
			t.Errorf("Response = %q, want empty", result.Response)
		}
	})

	t.Run("custom timing", func(t *testing.T) {
		release := make(chan struct{})
		t.Cleanup(func() { close(release) })
		port := serve(t, func(conn net.Conn, cmd []byte) {
			<-release
		})

		result := NewProber().WithTiming(time.Second, 3, 10*time.Millisecond).Check("127.0.0.1", port)

		if result.Attempts != 3 {
			t.Errorf("Attempts = %d, want 3", result.Attempts)
		}
		if result.Status != Broken {
			t.Errorf("Status = %v, want %v", result.Status, Broken)
		}
	})
}

func TestProbe(t *testing.T) {
	port := serve(t, func(conn net.Conn, cmd []byte) {
		conn.Write([]byte("imok"))
	})

	if got := Probe("127.0.0.1", port); got != Running {
		t.Errorf("Probe() = %v, want %v", got, Running)
	}
	if got := Probe("127.0.0.1", closedPort(t)); got != NotRunning {
		t.Errorf("Probe() = %v, want %v", got, NotRunning)
	}
}
