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

package params

import (
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/tombee/zkctl/internal/probe"
	zkerrors "github.com/tombee/zkctl/pkg/errors"
)

// Config keys rendered into the managed process's config file.
const (
	KeyClientPort = "clientPort"
	KeyTickTime   = "tickTime"
	KeyDataDir    = "dataDir"
)

// Keys with special handling.
const (
	KeyServers = "servers"
	KeyMyID    = "myid"
)

// Operational keys, never rendered into the config file.
const (
	KeyUser          = "user"
	KeyLogFile       = "logFile"
	KeyStdoutFile    = "stdoutFile"
	KeyStderrFile    = "stderrFile"
	KeyPIDFile       = "pidfile"
	KeyConfigFile    = "configFile"
	KeyPort          = "port"
	KeyRuntime       = "runtime"
	KeyJVMArgs       = "jvmArgs"
	KeyLivenessCheck = "livenessCheck"
)

// numericKeys are config keys constrained to non-negative integers.
var numericKeys = setOf(
	KeyClientPort,
	KeyTickTime,
	"initLimit",
	"syncLimit",
	"electionAlg",
	"maxClientCnxns",
	"minSessionTimeout",
	"maxSessionTimeout",
	"globalOutstandingLimit",
	"preAllocSize",
	"snapCount",
	"autopurge.snapRetainCount",
	"autopurge.purgeInterval",
	"cnxTimeout",
	"secureClientPort",
	"fsync.warningthresholdms",
	"admin.serverPort",
)

// stringKeys are config keys accepting any single-line scalar value.
var stringKeys = setOf(
	KeyDataDir,
	"dataLogDir",
	"traceFile",
	"forceSync",
	"skipACL",
	"leaderServes",
	"clientPortAddress",
	"secureClientPortAddress",
	"quorumListenOnAllIPs",
	"standaloneEnabled",
	"reconfigEnabled",
	"4lw.commands.whitelist",
	"admin.enableServer",
	"admin.serverAddress",
)

var operationalStringKeys = setOf(
	KeyUser,
	KeyLogFile,
	KeyStdoutFile,
	KeyStderrFile,
	KeyPIDFile,
	KeyConfigFile,
	KeyRuntime,
)

var requiredKeys = []string{KeyClientPort, KeyDataDir, KeyTickTime}

var digitsPattern = regexp.MustCompile(`^[0-9]+$`)

// Option adjusts a parameter set during Parse.
type Option func(*Params)

// WithLivenessCheck installs a liveness check used instead of the network probe.
func WithLivenessCheck(fn LivenessFunc) Option {
	return func(p *Params) {
		p.liveness = fn
	}
}

// IsKnownKey reports whether key is accepted by Parse.
func IsKnownKey(key string) bool {
	switch {
	case numericKeys[key], stringKeys[key], operationalStringKeys[key]:
		return true
	}
	switch key {
	case KeyServers, KeyMyID, KeyPort, KeyJVMArgs, KeyLivenessCheck:
		return true
	}
	return false
}

// Parse validates values and returns the resulting parameter set.
// Every problem is reported as a *errors.ValidationError naming the key;
// keys are checked in sorted order so the reported key is deterministic.
func Parse(values map[string]any, opts ...Option) (*Params, error) {
	p := &Params{
		settings: make(map[string]string),
		servers:  make(map[int]ServerEntry),
		myID:     DefaultMyID,
		runtime:  DefaultRuntime,
	}

	for _, key := range slices.Sorted(maps.Keys(values)) {
		if err := p.set(key, values[key]); err != nil {
			return nil, err
		}
	}

	for _, key := range requiredKeys {
		if _, ok := p.settings[key]; !ok {
			return nil, &zkerrors.ValidationError{
				Field:      key,
				Message:    "required parameter is missing",
				Suggestion: fmt.Sprintf("Set %s in the parameter file or with --set %s=...", key, key),
			}
		}
	}

	if p.pidFile == "" {
		p.pidFile = DefaultPIDFile(p.clientPort)
	}
	if p.configFile == "" {
		p.configFile = DefaultConfigFile(p.clientPort)
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

func (p *Params) set(key string, value any) error {
	switch {
	case numericKeys[key]:
		n, err := parseDigits(key, value)
		if err != nil {
			return err
		}
		p.settings[key] = strconv.Itoa(n)
		switch key {
		case KeyClientPort:
			p.clientPort = n
		case KeyTickTime:
			p.tickTime = n
		}
		return nil

	case stringKeys[key]:
		s, err := parseLine(key, value)
		if err != nil {
			return err
		}
		p.settings[key] = s
		if key == KeyDataDir {
			p.dataDir = s
		}
		return nil

	case operationalStringKeys[key]:
		s, err := parseLine(key, value)
		if err != nil {
			return err
		}
		switch key {
		case KeyUser:
			p.user = s
		case KeyLogFile:
			p.logFile = s
		case KeyStdoutFile:
			p.stdoutFile = s
		case KeyStderrFile:
			p.stderrFile = s
		case KeyPIDFile:
			p.pidFile = s
		case KeyConfigFile:
			p.configFile = s
		case KeyRuntime:
			if s == "" {
				return &zkerrors.ValidationError{Field: key, Message: "runtime must not be empty"}
			}
			p.runtime = s
		}
		return nil
	}

	switch key {
	case KeyPort:
		n, err := parseDigits(key, value)
		if err != nil {
			return err
		}
		p.port = n
		p.hasPort = true
		return nil

	case KeyMyID:
		n, err := parseDigits(key, value)
		if err != nil {
			return err
		}
		if n == 0 {
			return &zkerrors.ValidationError{
				Field:   key,
				Message: "expected a positive integer, got 0",
			}
		}
		p.myID = n
		return nil

	case KeyServers:
		servers, err := parseServers(value)
		if err != nil {
			return err
		}
		p.servers = servers
		return nil

	case KeyJVMArgs:
		args, err := parseArgs(key, value)
		if err != nil {
			return err
		}
		p.jvmArgs = args
		return nil

	case KeyLivenessCheck:
		switch fn := value.(type) {
		case LivenessFunc:
			p.liveness = fn
		case func(string, int) probe.Status:
			p.liveness = fn
		default:
			return &zkerrors.ValidationError{
				Field:   key,
				Message: fmt.Sprintf("expected a liveness function, got %T", value),
			}
		}
		return nil
	}

	return &zkerrors.ValidationError{
		Field:      key,
		Message:    "unknown parameter",
		Suggestion: "Check the spelling; config keys are case sensitive",
	}
}

// parseDigits applies the all-digits check. Integers must be non-negative;
// strings must consist only of ASCII digits. Floats, booleans and signed
// strings are rejected.
func parseDigits(key string, value any) (int, error) {
	invalid := func() error {
		return &zkerrors.ValidationError{
			Field:      key,
			Message:    fmt.Sprintf("expected a non-negative integer, got %#v", value),
			Suggestion: "Use digits only, e.g. 2181",
		}
	}

	var n int64
	switch v := value.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		n = int64(v)
	case uint8:
		n = int64(v)
	case uint16:
		n = int64(v)
	case uint32:
		n = int64(v)
	case uint64:
		if v > uint64(^uint(0)>>1) {
			return 0, invalid()
		}
		n = int64(v)
	case string:
		if !digitsPattern.MatchString(v) {
			return 0, invalid()
		}
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, invalid()
		}
		return parsed, nil
	default:
		return 0, invalid()
	}

	if n < 0 {
		return 0, invalid()
	}
	return int(n), nil
}

// parseScalar stringifies any scalar value.
func parseScalar(key string, value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return fmt.Sprint(v), nil
	default:
		return "", &zkerrors.ValidationError{
			Field:   key,
			Message: fmt.Sprintf("expected a scalar value, got %T", value),
		}
	}
}

// parseLine is parseScalar for values written as one key=value line.
func parseLine(key string, value any) (string, error) {
	s, err := parseScalar(key, value)
	if err != nil {
		return "", err
	}
	if strings.ContainsAny(s, "\r\n") {
		return "", &zkerrors.ValidationError{
			Field:   key,
			Message: "value must not contain line breaks",
		}
	}
	return s, nil
}

// parseArgs accepts a list of strings or a single string split with
// shell quoting rules. The tokens are not otherwise interpreted.
func parseArgs(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return slices.Clone(v), nil
	case []any:
		args := make([]string, 0, len(v))
		for i, item := range v {
			s, err := parseScalar(fmt.Sprintf("%s[%d]", key, i), item)
			if err != nil {
				return nil, err
			}
			args = append(args, s)
		}
		return args, nil
	case string:
		args, err := shellquote.Split(v)
		if err != nil {
			return nil, &zkerrors.ValidationError{
				Field:      key,
				Message:    fmt.Sprintf("cannot split launch arguments: %v", err),
				Suggestion: "Balance quotes or supply jvmArgs as a list",
			}
		}
		return args, nil
	default:
		return nil, &zkerrors.ValidationError{
			Field:   key,
			Message: fmt.Sprintf("expected a string or list of strings, got %T", value),
		}
	}
}

// parseServers converts the membership mapping. Only what rendering needs is
// checked: ids must be positive integers and entries must be mappings. A
// missing server string is left for the renderer to report.
func parseServers(value any) (map[int]ServerEntry, error) {
	raw, ok := asMap(value)
	if !ok {
		if typed, ok := value.(map[int]ServerEntry); ok {
			return maps.Clone(typed), nil
		}
		return nil, &zkerrors.ValidationError{
			Field:   KeyServers,
			Message: fmt.Sprintf("expected a mapping of server id to entry, got %T", value),
		}
	}

	servers := make(map[int]ServerEntry, len(raw))
	for _, idStr := range slices.Sorted(maps.Keys(raw)) {
		field := fmt.Sprintf("%s.%s", KeyServers, idStr)

		id, err := parseDigits(field, idStr)
		if err != nil || id == 0 {
			return nil, &zkerrors.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("server id must be a positive integer, got %q", idStr),
			}
		}

		if typed, ok := raw[idStr].(ServerEntry); ok {
			servers[id] = typed
			continue
		}

		entry, ok := asMap(raw[idStr])
		if !ok {
			return nil, &zkerrors.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("expected a mapping with server and optional weight, got %T", raw[idStr]),
			}
		}

		var s ServerEntry
		if addr, ok := entry["server"]; ok {
			if s.Address, err = parseLine(field+".server", addr); err != nil {
				return nil, err
			}
		}
		if w, ok := entry["weight"]; ok {
			if s.Weight, err = parseDigits(field+".weight", w); err != nil {
				return nil, err
			}
			s.HasWeight = true
		}
		servers[id] = s
	}

	return servers, nil
}

func setOf(keys ...string) map[string]bool {
	set := make(map[string]bool, len(keys))
	for _, k := range keys {
		set[k] = true
	}
	return set
}

// asMap normalizes the mapping shapes produced by YAML/JSON decoders and
// Go callers into a string-keyed map.
func asMap(value any) (map[string]any, bool) {
	switch m := value.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[fmt.Sprint(k)] = v
		}
		return out, true
	case map[int]any:
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[strconv.Itoa(k)] = v
		}
		return out, true
	default:
		return nil, false
	}
}
