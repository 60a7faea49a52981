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

// Package materialize renders a parameter set into the files the managed
// process reads at startup: its config file and its node identity file.
// Every file is replaced atomically, so readers see either the previous
// content or the new content, never a partial write.
package materialize

import (
	"os"

	zkerrors "github.com/tombee/zkctl/pkg/errors"
)

// TempSuffix is appended to the target path to form the temporary sibling.
const TempSuffix = ".tmp"

// Writer performs atomic file replacement.
type Writer struct {
	perm   os.FileMode
	rename func(oldpath, newpath string) error
}

// NewWriter creates a writer producing files with mode 0644.
func NewWriter() *Writer {
	return &Writer{
		perm:   0644,
		rename: os.Rename,
	}
}

// WriteFile replaces path with data: it writes path+".tmp", syncs and
// closes it, then renames it over path. On any failure the temporary file
// is removed, path is left untouched and a *errors.FileSystemError is
// returned.
func (w *Writer) WriteFile(path string, data []byte) (err error) {
	tmpPath := path + TempSuffix

	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, w.perm)
	if err != nil {
		return &zkerrors.FileSystemError{Op: "open", Path: tmpPath, Cause: err}
	}

	// Clean up temp file in case of error
	defer func() {
		if err != nil {
			if f != nil {
				f.Close()
			}
			os.Remove(tmpPath)
		}
	}()

	if _, err := f.Write(data); err != nil {
		return &zkerrors.FileSystemError{Op: "write", Path: tmpPath, Cause: err}
	}

	if err := f.Sync(); err != nil {
		return &zkerrors.FileSystemError{Op: "sync", Path: tmpPath, Cause: err}
	}

	closeErr := f.Close()
	f = nil
	if closeErr != nil {
		return &zkerrors.FileSystemError{Op: "close", Path: tmpPath, Cause: closeErr}
	}

	if err := w.rename(tmpPath, path); err != nil {
		return &zkerrors.FileSystemError{Op: "rename", Path: path, Cause: err}
	}

	return nil
}
