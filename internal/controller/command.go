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

import "github.com/tombee/zkctl/internal/params"

// BuildCommand returns the launch command line: the runtime executable,
// the opaque launch arguments unchanged, and the generated config path last.
func BuildCommand(p *params.Params) []string {
	args := p.JVMArgs()
	cmd := make([]string, 0, len(args)+2)
	cmd = append(cmd, p.Runtime())
	cmd = append(cmd, args...)
	return append(cmd, p.ConfigFile())
}
