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

package controller

import (
	"context"
	"errors"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/zkctl/internal/lifecycle"
	internallog "github.com/tombee/zkctl/internal/log"
	"github.com/tombee/zkctl/internal/params"
	"github.com/tombee/zkctl/internal/probe"
	zkerrors "github.com/tombee/zkctl/pkg/errors"
)

type fakeSupervisor struct {
	alive bool

	launchPID int
	launchErr error
	launched  []lifecycle.LaunchSpec

	terminateErr   error
	terminated     []string
	terminateGrace time.Duration

	aliveChecks int
}

func (f *fakeSupervisor) Launch(_ context.Context, spec lifecycle.LaunchSpec) (int, error) {
	f.launched = append(f.launched, spec)
	if f.launchErr != nil {
		return 0, f.launchErr
	}
	return f.launchPID, nil
}

func (f *fakeSupervisor) Terminate(_ context.Context, pidfile string, grace time.Duration) error {
	f.terminated = append(f.terminated, pidfile)
	f.terminateGrace = grace
	return f.terminateErr
}

func (f *fakeSupervisor) IsAlive(string) bool {
	f.aliveChecks++
	return f.alive
}

func testParams(t *testing.T, extra map[string]any) *params.Params {
	t.Helper()
	dir := t.TempDir()
	values := map[string]any{
		"clientPort": 2181,
		"dataDir":    filepath.Join(dir, "data"),
		"tickTime":   2000,
		"myid":       3,
		"configFile": filepath.Join(dir, "zoo.cfg"),
		"pidfile":    filepath.Join(dir, "zookeeper.pid"),
		"servers": map[int]any{
			1: map[string]any{"server": "h1:2888:3888"},
		},
	}
	for k, v := range extra {
		values[k] = v
	}
	p, err := params.Parse(values)
	require.NoError(t, err)
	return p
}

func newController(p *params.Params, sup Supervisor, opts ...Option) *Controller {
	opts = append([]Option{
		WithLogger(internallog.Discard()),
		WithUserResolver(func() (string, error) { return "zkuser", nil }),
	}, opts...)
	return New(p, sup, opts...)
}

func TestBuildCommand(t *testing.T) {
	p := testParams(t, map[string]any{
		"jvmArgs": `-Xmx1g -cp "/opt/zk/lib/*" org.apache.zookeeper.server.quorum.QuorumPeerMain`,
	})

	assert.Equal(t, []string{
		"java",
		"-Xmx1g",
		"-cp",
		"/opt/zk/lib/*",
		"org.apache.zookeeper.server.quorum.QuorumPeerMain",
		p.ConfigFile(),
	}, BuildCommand(p))

	bare := testParams(t, map[string]any{"runtime": "/usr/bin/java"})
	assert.Equal(t, []string{"/usr/bin/java", bare.ConfigFile()}, BuildCommand(bare))
}

func TestController_Start(t *testing.T) {
	t.Run("renders files then launches", func(t *testing.T) {
		p := testParams(t, map[string]any{
			"logFile":    "/var/log/zkctl.log",
			"stdoutFile": "/var/log/zk.out",
		})
		sup := &fakeSupervisor{launchPID: 4242}

		pid, err := newController(p, sup).Start(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 4242, pid)

		cfg, err := os.ReadFile(p.ConfigFile())
		require.NoError(t, err)
		assert.Contains(t, string(cfg), "server.1=h1:2888:3888\n")

		myid, err := os.ReadFile(filepath.Join(p.DataDir(), "myid"))
		require.NoError(t, err)
		assert.Equal(t, "3\n", string(myid))

		require.Len(t, sup.launched, 1)
		spec := sup.launched[0]
		assert.Equal(t, BuildCommand(p), spec.Command)
		assert.Equal(t, p.PIDFile(), spec.PIDFile)
		assert.Equal(t, 5*time.Second, spec.GracePeriod)
		assert.Equal(t, "/var/log/zkctl.log", spec.LogFile)
		assert.Equal(t, "/var/log/zk.out", spec.StdoutFile)
		assert.Empty(t, spec.StderrFile)
		assert.Equal(t, "zkuser", spec.User)
	})

	t.Run("explicit user wins over resolver", func(t *testing.T) {
		p := testParams(t, map[string]any{"user": "zookeeper"})
		sup := &fakeSupervisor{launchPID: 1}

		_, err := newController(p, sup).Start(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "zookeeper", sup.launched[0].User)
	})

	t.Run("render failure prevents launch", func(t *testing.T) {
		dir := t.TempDir()
		p := testParams(t, map[string]any{"configFile": filepath.Join(dir, "missing", "zoo.cfg")})
		sup := &fakeSupervisor{launchPID: 1}

		_, err := newController(p, sup).Start(context.Background())

		var fsErr *zkerrors.FileSystemError
		require.True(t, errors.As(err, &fsErr), "error = %v", err)
		assert.Empty(t, sup.launched)
	})

	t.Run("missing server address prevents launch", func(t *testing.T) {
		p := testParams(t, map[string]any{
			"servers": map[int]any{1: map[string]any{"weight": 2}},
		})
		sup := &fakeSupervisor{launchPID: 1}

		_, err := newController(p, sup).Start(context.Background())
		assert.Error(t, err)
		assert.Empty(t, sup.launched)
		assert.NoFileExists(t, p.ConfigFile())
	})

	t.Run("supervisor error is returned unchanged", func(t *testing.T) {
		p := testParams(t, nil)
		sup := &fakeSupervisor{launchErr: lifecycle.ErrAlreadyRunning}

		_, err := newController(p, sup).Start(context.Background())
		assert.Same(t, lifecycle.ErrAlreadyRunning, err)
	})

	t.Run("user resolution failure", func(t *testing.T) {
		p := testParams(t, nil)
		sup := &fakeSupervisor{}
		c := newController(p, sup, WithUserResolver(func() (string, error) {
			return "", errors.New("no passwd entry")
		}))

		_, err := c.Start(context.Background())
		assert.ErrorContains(t, err, "no passwd entry")
		assert.Empty(t, sup.launched)
	})
}

func TestController_Stop(t *testing.T) {
	p := testParams(t, nil)

	t.Run("terminates with seven second grace", func(t *testing.T) {
		sup := &fakeSupervisor{}
		require.NoError(t, newController(p, sup).Stop(context.Background()))
		assert.Equal(t, []string{p.PIDFile()}, sup.terminated)
		assert.Equal(t, 7*time.Second, sup.terminateGrace)
	})

	t.Run("returns supervisor error unchanged", func(t *testing.T) {
		sup := &fakeSupervisor{terminateErr: lifecycle.ErrShutdownTimeout}
		assert.Same(t, lifecycle.ErrShutdownTimeout, newController(p, sup).Stop(context.Background()))
	})
}

// countingListener accepts connections, counts them and answers reply.
func countingListener(t *testing.T, reply string) (int, *atomic.Int32) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	var accepted atomic.Int32
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			accepted.Add(1)
			go func(conn net.Conn) {
				defer conn.Close()
				buf := make([]byte, 4)
				if _, err := conn.Read(buf); err != nil {
					return
				}
				conn.Write([]byte(reply))
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port, &accepted
}

func TestController_Status(t *testing.T) {
	t.Run("dead process short-circuits without dialing", func(t *testing.T) {
		port, accepted := countingListener(t, "imok")
		p := testParams(t, map[string]any{"port": port})
		sup := &fakeSupervisor{alive: false}

		probed := false
		c := newController(p, sup, WithProber(func(string, int) probe.Status {
			probed = true
			return probe.Running
		}))

		assert.Equal(t, probe.NotRunning, c.Status(context.Background()))
		assert.False(t, probed)
		assert.Equal(t, 1, sup.aliveChecks)

		// Default network probe is also skipped.
		assert.Equal(t, probe.NotRunning, newController(p, sup).Status(context.Background()))
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(0), accepted.Load())
	})

	t.Run("live process is probed on configured port", func(t *testing.T) {
		port, accepted := countingListener(t, "imok")
		p := testParams(t, map[string]any{"port": port})
		c := newController(p, &fakeSupervisor{alive: true}, WithProber(func(_ string, port int) probe.Status {
			return probe.NewProber().Check("127.0.0.1", port).Status
		}))

		assert.Equal(t, probe.Running, c.Status(context.Background()))
		assert.Equal(t, int32(1), accepted.Load())
	})

	t.Run("wrong reply is broken", func(t *testing.T) {
		port, _ := countingListener(t, "nook")
		p := testParams(t, map[string]any{"port": strconv.Itoa(port)})
		c := newController(p, &fakeSupervisor{alive: true}, WithProber(func(_ string, port int) probe.Status {
			return probe.NewProber().Check("127.0.0.1", port).Status
		}))

		assert.Equal(t, probe.Broken, c.Status(context.Background()))
	})

	t.Run("probe gets localhost and client port by default", func(t *testing.T) {
		p := testParams(t, nil)
		var gotHost string
		var gotPort int
		c := newController(p, &fakeSupervisor{alive: true}, WithProber(func(host string, port int) probe.Status {
			gotHost, gotPort = host, port
			return probe.Broken
		}))

		assert.Equal(t, probe.Broken, c.Status(context.Background()))
		assert.Equal(t, "localhost", gotHost)
		assert.Equal(t, 2181, gotPort)
	})

	t.Run("parameter liveness check takes precedence", func(t *testing.T) {
		p, err := params.Parse(map[string]any{
			"clientPort": 2181,
			"dataDir":    t.TempDir(),
			"tickTime":   2000,
		}, params.WithLivenessCheck(func(string, int) probe.Status { return probe.Running }))
		require.NoError(t, err)

		c := newController(p, &fakeSupervisor{alive: true}, WithProber(func(string, int) probe.Status {
			return probe.Broken
		}))
		assert.Equal(t, probe.Running, c.Status(context.Background()))
	})
}

func TestController_Render(t *testing.T) {
	p := testParams(t, nil)
	sup := &fakeSupervisor{}

	require.NoError(t, newController(p, sup).Render(context.Background()))
	assert.FileExists(t, p.ConfigFile())
	assert.FileExists(t, filepath.Join(p.DataDir(), "myid"))
	assert.Empty(t, sup.launched)
}
