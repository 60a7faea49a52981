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

// Package params holds the validated, immutable parameter set that drives
// config rendering, identity rendering and process launch.
package params

import (
	"fmt"
	"log/slog"
	"maps"
	"os/user"
	"slices"

	"github.com/tombee/zkctl/internal/probe"
)

const (
	// ServiceName is the base name used for the default pidfile.
	ServiceName = "zookeeper"

	// ConfigBaseName is the base name used for the default generated config path.
	ConfigBaseName = "zoo"

	// DefaultRuntime is the executable launched when no runtime is supplied.
	DefaultRuntime = "java"

	// DefaultMyID is the node identity used when myid is absent.
	DefaultMyID = 1
)

// LivenessFunc classifies the managed process reachable at host:port.
type LivenessFunc func(host string, port int) probe.Status

// UserResolver supplies the user to run as when the parameter set has none.
type UserResolver func() (string, error)

// CurrentUser resolves to the user running this process.
func CurrentUser() (string, error) {
	u, err := user.Current()
	if err != nil {
		return "", fmt.Errorf("failed to resolve current user: %w", err)
	}
	return u.Username, nil
}

// ServerEntry is one member of the cluster membership list.
type ServerEntry struct {
	// Address is the server string, e.g. "h1:2888:3888". Empty when the
	// entry was supplied without one; rendering reports that as an error.
	Address string

	// Weight is only meaningful when HasWeight is true.
	Weight    int
	HasWeight bool
}

// Params is the validated parameter set. It is never mutated after Parse
// returns, so it can be shared between operations without locking.
type Params struct {
	settings map[string]string

	clientPort int
	tickTime   int
	dataDir    string

	servers map[int]ServerEntry
	myID    int

	user       string
	logFile    string
	stdoutFile string
	stderrFile string
	pidFile    string
	configFile string
	port       int
	hasPort    bool
	runtime    string
	jvmArgs    []string
	liveness   LivenessFunc
}

// ClientPort returns the port the managed process serves clients on.
func (p *Params) ClientPort() int { return p.clientPort }

// TickTime returns the configured tick length in milliseconds.
func (p *Params) TickTime() int { return p.tickTime }

// DataDir returns the managed process's data directory.
func (p *Params) DataDir() string { return p.dataDir }

// MyID returns the identity of the local node.
func (p *Params) MyID() int { return p.myID }

// Settings returns a copy of the scalar settings rendered into the config
// file, keyed by config key.
func (p *Params) Settings() map[string]string {
	return maps.Clone(p.settings)
}

// SettingKeys returns the rendered config keys in lexicographic order.
func (p *Params) SettingKeys() []string {
	return slices.Sorted(maps.Keys(p.settings))
}

// Setting returns the rendered value for a config key.
func (p *Params) Setting(key string) (string, bool) {
	v, ok := p.settings[key]
	return v, ok
}

// ServerIDs returns the cluster member ids in ascending order.
func (p *Params) ServerIDs() []int {
	return slices.Sorted(maps.Keys(p.servers))
}

// Server returns the membership entry for id.
func (p *Params) Server(id int) (ServerEntry, bool) {
	s, ok := p.servers[id]
	return s, ok
}

// Servers returns a copy of the membership list.
func (p *Params) Servers() map[int]ServerEntry {
	return maps.Clone(p.servers)
}

// User returns the user to run the managed process as. When the parameter
// set has no user, resolve supplies the default; a nil resolve yields "".
func (p *Params) User(resolve UserResolver) (string, error) {
	if p.user != "" {
		return p.user, nil
	}
	if resolve == nil {
		return "", nil
	}
	return resolve()
}

// LogFile returns the operational log path, or "" when not supplied.
func (p *Params) LogFile() string { return p.logFile }

// StdoutFile returns the stdout capture path, or "" when not supplied.
func (p *Params) StdoutFile() string { return p.stdoutFile }

// StderrFile returns the stderr capture path, or "" when not supplied.
func (p *Params) StderrFile() string { return p.stderrFile }

// PIDFile returns the pidfile path.
func (p *Params) PIDFile() string { return p.pidFile }

// ConfigFile returns the generated config path.
func (p *Params) ConfigFile() string { return p.configFile }

// ProbePort returns the port the health probe connects to: the explicit
// port when one was supplied, otherwise the client port.
func (p *Params) ProbePort() int {
	if p.hasPort {
		return p.port
	}
	return p.clientPort
}

// Runtime returns the executable used to launch the managed process.
func (p *Params) Runtime() string { return p.runtime }

// JVMArgs returns a copy of the opaque launch option blob.
func (p *Params) JVMArgs() []string { return slices.Clone(p.jvmArgs) }

// LivenessCheck returns the pluggable liveness check, or nil when the
// default network probe should be used.
func (p *Params) LivenessCheck() LivenessFunc { return p.liveness }

// LogValue implements slog.LogValuer.
func (p *Params) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("client_port", p.clientPort),
		slog.String("data_dir", p.dataDir),
		slog.Int("myid", p.myID),
		slog.Int("servers", len(p.servers)),
		slog.String("pidfile", p.pidFile),
		slog.String("config_file", p.configFile),
	)
}

// DefaultPIDFile returns the pidfile used when none is supplied.
func DefaultPIDFile(clientPort int) string {
	return fmt.Sprintf("/tmp/%s.%d.pid", ServiceName, clientPort)
}

// DefaultConfigFile returns the generated config path used when none is supplied.
func DefaultConfigFile(clientPort int) string {
	return fmt.Sprintf("/tmp/%s.%d.cfg", ConfigBaseName, clientPort)
}
