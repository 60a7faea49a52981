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
	"os"
	"path/filepath"
	"strconv"

	"github.com/tombee/zkctl/internal/params"
	zkerrors "github.com/tombee/zkctl/pkg/errors"
)

// MyIDFile is the identity file name inside the data directory.
const MyIDFile = "myid"

// MyIDPath returns the identity file location for p.
func MyIDPath(p *params.Params) string {
	return filepath.Join(p.DataDir(), MyIDFile)
}

// RenderMyID returns the identity file content: the decimal id and a newline.
func RenderMyID(p *params.Params) []byte {
	return []byte(strconv.Itoa(p.MyID()) + "\n")
}

// WriteMyID atomically replaces <dataDir>/myid, creating the data
// directory if needed.
func (w *Writer) WriteMyID(p *params.Params) error {
	if err := os.MkdirAll(p.DataDir(), 0755); err != nil {
		return &zkerrors.FileSystemError{Op: "mkdir", Path: p.DataDir(), Cause: err}
	}
	return w.WriteFile(MyIDPath(p), RenderMyID(p))
}

// WriteMyID renders the identity file with the default writer.
func WriteMyID(p *params.Params) error {
	return NewWriter().WriteMyID(p)
}
