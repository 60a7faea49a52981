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

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/zkctl/internal/commands/shared"
)

func TestMain(m *testing.M) {
	shared.SetOTelRegistererForTest(nil)
	os.Setenv("LOG_LEVEL", "error")
	os.Exit(m.Run())
}

func TestNewRootCommand(t *testing.T) {
	cmd := NewRootCommand()

	if cmd.Use != "zkctl" {
		t.Errorf("expected use 'zkctl', got %q", cmd.Use)
	}

	if cmd.Short == "" {
		t.Error("expected short description to be set")
	}

	if cmd.Long == "" {
		t.Error("expected long description to be set")
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"verbose", "quiet", "json", "trace", "params", "set", "metrics-textfile"} {
		if cmd.PersistentFlags().Lookup(name) == nil {
			t.Errorf("%s flag not registered", name)
		}
	}
}

func TestSubcommands(t *testing.T) {
	cmd := NewRootCommand()

	for _, name := range []string{"start", "stop", "restart", "status", "render", "command", "watch", "version"} {
		sub, _, err := cmd.Find([]string{name})
		if err != nil || sub.Name() != name {
			t.Errorf("subcommand %q not registered", name)
		}
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3", "abc123", "2025-12-22")
	defer SetVersion("dev", "unknown", "unknown")

	v, c, b := GetVersion()
	if v != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %q", v)
	}
	if c != "abc123" {
		t.Errorf("expected commit 'abc123', got %q", c)
	}
	if b != "2025-12-22" {
		t.Errorf("expected build date '2025-12-22', got %q", b)
	}
}

// writeParamsFile writes a parameter file whose generated paths all live
// under dir.
func writeParamsFile(t *testing.T, dir string, extra string) string {
	t.Helper()
	path := filepath.Join(dir, "params.yaml")
	content := fmt.Sprintf(`clientPort: 2181
tickTime: 2000
dataDir: %s
myid: 2
configFile: %s
pidfile: %s
servers:
  1: {server: "h1:2888:3888"}
  2: {server: "h2:2888:3888"}
%s`, filepath.Join(dir, "data"), filepath.Join(dir, "zoo.cfg"), filepath.Join(dir, "zk.pid"), extra)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	shared.ResetFlags()
	t.Cleanup(shared.ResetFlags)

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestRenderDryRun(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")

	out, err := execute(t, "render", "--dry-run", "--params", path)
	require.NoError(t, err)

	assert.Contains(t, out, "clientPort=2181\n")
	assert.Contains(t, out, "server.2=h2:2888:3888\n")
	assert.Contains(t, out, "# "+filepath.Join(dir, "data", "myid")+"\n2\n")

	_, statErr := os.Stat(filepath.Join(dir, "zoo.cfg"))
	assert.True(t, os.IsNotExist(statErr), "dry run wrote the config file")
}

func TestRenderWritesFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")

	_, err := execute(t, "render", "--quiet", "--params", path)
	require.NoError(t, err)

	cfg, err := os.ReadFile(filepath.Join(dir, "zoo.cfg"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(cfg), "clientPort=2181\n"))

	myid, err := os.ReadFile(filepath.Join(dir, "data", "myid"))
	require.NoError(t, err)
	assert.Equal(t, "2\n", string(myid))
}

func TestCommandOutput(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")

	out, err := execute(t, "command", "--params", path, "--set", "jvmArgs=-Xmx1g -cp 'a b' Main")
	require.NoError(t, err)
	assert.Equal(t, "java -Xmx1g -cp 'a b' Main "+filepath.Join(dir, "zoo.cfg")+"\n", out)

	out, err = execute(t, "command", "--json", "--params", path)
	require.NoError(t, err)
	var argv []string
	require.NoError(t, json.Unmarshal([]byte(out), &argv))
	assert.Equal(t, []string{"java", filepath.Join(dir, "zoo.cfg")}, argv)
}

func TestStatusNotRunning(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")

	out, err := execute(t, "status", "--json", "--params", path)
	require.Error(t, err)
	assert.Equal(t, shared.ExitNotRunning, shared.ExitCode(err))
	assert.Empty(t, err.Error())

	var resp struct {
		Command string `json:"command"`
		Success bool   `json:"success"`
		Status  string `json:"status"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "status", resp.Command)
	assert.False(t, resp.Success)
	assert.Equal(t, "not_running", resp.Status)
}

func TestStopWithoutPIDFile(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")

	out, err := execute(t, "stop", "--params", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Server stopped")
}

func TestInvalidParameters(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")

	t.Run("bad override", func(t *testing.T) {
		_, err := execute(t, "render", "--dry-run", "--params", path, "--set", "clientPort=21x")
		require.Error(t, err)
		assert.Equal(t, shared.ExitInvalidParams, shared.ExitCode(err))
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := execute(t, "command", "--params", path, "--set", "clientport=2181")
		require.Error(t, err)
		assert.Equal(t, shared.ExitInvalidParams, shared.ExitCode(err))
	})

	t.Run("no parameter file", func(t *testing.T) {
		t.Setenv("ZKCTL_PARAMS", "")
		_, err := execute(t, "status")
		require.Error(t, err)
		assert.Equal(t, shared.ExitInvalidParams, shared.ExitCode(err))
	})
}

func TestMetricsTextfile(t *testing.T) {
	dir := t.TempDir()
	path := writeParamsFile(t, dir, "")
	textfile := filepath.Join(dir, "zkctl.prom")

	_, err := execute(t, "status", "--quiet", "--params", path, "--metrics-textfile", textfile)
	require.Error(t, err)

	data, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "zkctl_probe_results_total")
}

func TestRestart(t *testing.T) {
	if os.Getenv("SKIP_SPAWN_TESTS") != "" {
		t.Skip("SKIP_SPAWN_TESTS is set")
	}

	dir := t.TempDir()
	path := writeParamsFile(t, dir, "runtime: sh\njvmArgs: [\"-c\", \"sleep 5; exit 0\"]\n")
	t.Cleanup(func() { _, _ = execute(t, "stop", "--quiet", "--params", path) })

	type restartResult struct {
		Command string `json:"command"`
		Success bool   `json:"success"`
		PID     int    `json:"pid"`
		Message string `json:"message"`
	}
	restart := func() restartResult {
		t.Helper()
		out, err := execute(t, "restart", "--json", "--params", path)
		require.NoError(t, err)
		var res restartResult
		require.NoError(t, json.Unmarshal([]byte(out), &res), "output: %s", out)
		return res
	}

	first := restart()
	assert.Equal(t, "restart", first.Command)
	assert.True(t, first.Success)
	assert.Equal(t, "started", first.Message)
	require.Positive(t, first.PID)

	second := restart()
	assert.Equal(t, "started", second.Message)
	assert.NotEqual(t, first.PID, second.PID)

	pidfile, err := os.ReadFile(filepath.Join(dir, "zk.pid"))
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprint(second.PID), strings.TrimSpace(string(pidfile)))
}
