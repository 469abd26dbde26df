/*
Copyright The Craftfetch Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package natives unpacks platform-specific native-library archives into a
// per-version directory.
package natives // import "github.com/craftfetch/craftfetch/pkg/natives"

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/pkg/errors"
)

// ExtractionError indicates an archive could not be (fully) unpacked.
// Entries extracted before the failure stay on disk; the error reports how
// far extraction got rather than hiding it.
type ExtractionError struct {
	Archive   string
	Extracted int
	Err       error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extracting %s (after %d entries): %v", e.Archive, e.Extracted, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Extract unpacks all entries of the zip archive at archivePath into
// destDir, creating intermediate directories as needed.
//
// Entry paths are resolved inside destDir with a lexical secure join, so a
// hostile archive cannot write outside it. Signature metadata under
// META-INF is skipped; it only describes the jar packaging, never a native
// library.
func Extract(archivePath, destDir string) error {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}
	defer r.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return &ExtractionError{Archive: archivePath, Err: err}
	}

	extracted := 0
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "META-INF/") {
			continue
		}
		if err := extractEntry(f, destDir); err != nil {
			return &ExtractionError{Archive: archivePath, Extracted: extracted, Err: err}
		}
		extracted++
	}
	return nil
}

func extractEntry(f *zip.File, destDir string) error {
	path, err := securejoin.SecureJoin(destDir, f.Name)
	if err != nil {
		return errors.Wrapf(err, "resolving entry %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, 0755)
	}
	if f.Mode()&os.ModeSymlink != 0 {
		return errors.Errorf("refusing symlink entry %q", f.Name)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	in, err := f.Open()
	if err != nil {
		return errors.Wrapf(err, "opening entry %q", f.Name)
	}
	defer in.Close()

	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	return err
}
