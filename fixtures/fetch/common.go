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

// Package fetch downloads declared fixtures and extracts the binaries they
// point at into the fixtures root.
package fetch

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const (
	// CommonFilePermission is the default file permission used when creating files.
	CommonFilePermission os.FileMode = 0o600
	// CommonDirectoryPermission is the default permission used when creating directories.
	CommonDirectoryPermission os.FileMode = 0o755
	// CommonExecutablePermission is the permission given to extracted binaries.
	CommonExecutablePermission os.FileMode = 0o755
)

const (
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorReset  = "\033[39m"
)

// Reporter prints progress lines for a run.
type Reporter struct {
	Out     io.Writer
	NoColor bool
}

// NewReporter creates a reporter writing to out.
func NewReporter(out io.Writer, noColor bool) *Reporter {
	return &Reporter{Out: out, NoColor: noColor}
}

// DefaultReporter writes colored output to stderr. Output is muted while
// running under go test.
func DefaultReporter(noColor bool) *Reporter {
	if testing.Testing() {
		return NewReporter(io.Discard, noColor)
	}

	return NewReporter(os.Stderr, noColor)
}

// Msgf prints a success message.
func (reporter *Reporter) Msgf(format string, args ...any) {
	reporter.printf(colorGreen, format, args...)
}

// Warnf prints a warning.
func (reporter *Reporter) Warnf(format string, args ...any) {
	reporter.printf(colorYellow, format, args...)
}

// Errf prints an error message.
func (reporter *Reporter) Errf(format string, args ...any) {
	reporter.printf(colorRed, format, args...)
}

// Infof prints an uncolored message.
func (reporter *Reporter) Infof(format string, args ...any) {
	reporter.printf("", format, args...)
}

func (reporter *Reporter) printf(color, format string, args ...any) {
	if reporter == nil || reporter.Out == nil {
		return
	}

	if reporter.NoColor || color == "" {
		fmt.Fprintf(reporter.Out, format+"\n", args...)
		return
	}

	fmt.Fprintf(reporter.Out, color+format+colorReset+"\n", args...)
}

// EnsureDir creates a directory and its parents if missing.
func EnsureDir(path string) error {
	return os.MkdirAll(path, CommonDirectoryPermission)
}

// CopyFile copies src to dst with the given permissions, creating parent
// directories and replacing any existing file.
func CopyFile(src, dst string, perm os.FileMode) error {
	in, err := os.Open(src) //nolint:gosec // G304: src is inside our own scratch directory
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	if err := EnsureDir(filepath.Dir(dst)); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	return replaceFile(dst, perm, func(out io.Writer) error {
		_, err := io.Copy(out, in)
		return err
	})
}

// replaceFile writes dst through a sibling temp file that is renamed into
// place only after fill succeeds, so dst is never left half written.
func replaceFile(dst string, perm os.FileMode, fill func(io.Writer) error) error {
	tempFile, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", dst, err)
	}

	tempPath := tempFile.Name()

	if err := fill(tempFile); err != nil {
		tempFile.Close()
		os.Remove(tempPath)

		return fmt.Errorf("writing %s: %w", dst, err)
	}

	if err := tempFile.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("closing %s: %w", dst, err)
	}

	if err := os.Chmod(tempPath, perm); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("setting permissions on %s: %w", dst, err)
	}

	if err := os.Rename(tempPath, dst); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("renaming into %s: %w", dst, err)
	}

	return nil
}

// fileExists reports whether path names an existing non-directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// isPathWithinDir checks if the path is within the directory.
func isPathWithinDir(path, dir string) bool {
	cleanDir := filepath.Clean(dir)
	cleanPath := filepath.Clean(path)

	if cleanDir == cleanPath {
		return true
	}

	return strings.HasPrefix(cleanPath, cleanDir+string(os.PathSeparator))
}
