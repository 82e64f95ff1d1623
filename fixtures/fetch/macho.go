//
// Copyright (c) 2025 Sumicare
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//   http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package fetch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// bundleSearchDepth bounds how deep the bundle listing looks below the target.
const bundleSearchDepth = 3

// ErrBinaryNotFound is returned when extraction did not produce the declared binary.
var ErrBinaryNotFound = errors.New("binary not found")

// MachOExtractor unpacks app bundle archives.
type MachOExtractor struct{}

// Available reports whether the extractor can run; archives need no tools.
func (MachOExtractor) Available() error {
	return nil
}

// Extract unpacks archive into targetDir and checks that binary exists
// below it. The archive is removed whatever the outcome.
func (MachOExtractor) Extract(ctx context.Context, targetDir, binary, archive string) error {
	defer os.Remove(archive)

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := EnsureDir(targetDir); err != nil {
		return fmt.Errorf("creating %s: %w", targetDir, err)
	}

	if err := ExtractArchive(archive, targetDir); err != nil {
		return fmt.Errorf("extracting %s: %w", filepath.Base(archive), err)
	}

	if fileExists(filepath.Join(targetDir, filepath.FromSlash(binary))) {
		return nil
	}

	return fmt.Errorf("%w: %s (bundles: %s)", ErrBinaryNotFound, binary, listing(findBundles(targetDir)))
}

// findBundles lists the *.app directories below root as slash paths.
func findBundles(root string) []string {
	var bundles []string

	_ = filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil || !entry.IsDir() || path == root {
			return nil //nolint:nilerr // listing is best effort
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil //nolint:nilerr // listing is best effort
		}

		if strings.HasSuffix(entry.Name(), ".app") {
			bundles = append(bundles, filepath.ToSlash(rel))
			return filepath.SkipDir
		}

		if strings.Count(filepath.ToSlash(rel), "/") >= bundleSearchDepth-1 {
			return filepath.SkipDir
		}

		return nil
	})

	slices.Sort(bundles)

	return bundles
}

// listing joins names for a diagnostic message.
func listing(names []string) string {
	if len(names) == 0 {
		return "(none)"
	}

	return strings.Join(names, ", ")
}
