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

package materialize

import (
	"bytes"
	"fmt"

	"github.com/tombee/zkctl/internal/params"
)

// RenderConfig returns the config file content for p: sorted key=value
// lines for the scalar settings, a blank line, then server.N and weight.N
// lines in ascending id order. Operational fields never appear.
func RenderConfig(p *params.Params) ([]byte, error) {
	var buf bytes.Buffer

	settings := p.Settings()
	for _, key := range p.SettingKeys() {
		fmt.Fprintf(&buf, "%s=%s\n", key, settings[key])
	}

	buf.WriteByte('\n')

	for _, id := range p.ServerIDs() {
		s, _ := p.Server(id)
		if s.Address == "" {
			return nil, fmt.Errorf("server %d has no server address", id)
		}
		fmt.Fprintf(&buf, "server.%d=%s\n", id, s.Address)
		if s.HasWeight {
			fmt.Fprintf(&buf, "weight.%d=%d\n", id, s.Weight)
		}
	}

	return buf.Bytes(), nil
}

// WriteConfig renders p and atomically replaces p.ConfigFile().
func (w *Writer) WriteConfig(p *params.Params) error {
	data, err := RenderConfig(p)
	if err != nil {
		return fmt.Errorf("failed to render config: %w", err)
	}
	return w.WriteFile(p.ConfigFile(), data)
}

// WriteConfig renders p with the default writer.
func WriteConfig(p *params.Params) error {
	return NewWriter().WriteConfig(p)
}
