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
	"os"
	"path/filepath"
	"strings"

	zkerrors "github.com/tombee/zkctl/pkg/errors"
	"gopkg.in/yaml.v3"
)

// EnvParamsFile names the parameter file used when none is given on the command line.
const EnvParamsFile = "ZKCTL_PARAMS"

// ReadFile decodes a YAML parameter file into a raw value map.
func ReadFile(path string) (map[string]any, error) {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read parameter file: %w", err)
	}

	values := make(map[string]any)
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return values, nil
}

// ApplyOverrides merges key=value assignments into values. The values stay
// strings, so numeric keys go through the same all-digits check as file input.
func ApplyOverrides(values map[string]any, overrides []string) error {
	for _, o := range overrides {
		key, value, ok := strings.Cut(o, "=")
		if !ok || key == "" {
			return &zkerrors.ConfigError{
				Key:    "set",
				Reason: fmt.Sprintf("override %q must have the form key=value", o),
			}
		}
		values[key] = value
	}
	return nil
}

// Load reads the parameter file at path (optional when overrides are
// given), applies overrides and validates the result.
func Load(path string, overrides []string, opts ...Option) (*Params, error) {
	values := make(map[string]any)

	if path != "" {
		fromFile, err := ReadFile(path)
		if err != nil {
			return nil, &zkerrors.ConfigError{
				Key:    "params_file",
				Reason: fmt.Sprintf("failed to load from %s", path),
				Cause:  err,
			}
		}
		values = fromFile
	} else if len(overrides) == 0 {
		return nil, &zkerrors.ConfigError{
			Reason: fmt.Sprintf("no parameter file given; use --params or set %s", EnvParamsFile),
		}
	}

	if err := ApplyOverrides(values, overrides); err != nil {
		return nil, err
	}

	return Parse(values, opts...)
}
