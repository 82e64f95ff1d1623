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
	"os/exec"
	"path/filepath"
	"strings"
)

// Installer unpacking tools.
const (
	ToolSevenZip    = "7z"
	ToolInnoextract = "innoextract"
)

var (
	// execCommandContext is a variable for exec.CommandContext to allow mocking in tests.
	execCommandContext = exec.CommandContext //nolint:gochecknoglobals // used for testing
	// execLookPath is a variable for exec.LookPath to allow mocking in tests.
	execLookPath = exec.LookPath //nolint:gochecknoglobals // used for testing

	// ErrToolUnavailable is returned when the installer tool is not on PATH.
	ErrToolUnavailable = errors.New("installer tool not available")
	// ErrUnknownTool is returned for a tool name the extractor cannot drive.
	ErrUnknownTool = errors.New("unknown installer tool")
	// ErrToolFailed is returned when the installer tool exits unsuccessfully.
	ErrToolFailed = errors.New("installer tool failed")
)

// PEExtractor pulls a single executable out of a Windows installer.
type PEExtractor struct {
	// Tool is the unpacker to run, 7z when empty.
	Tool string
	// ScratchRoot is the parent of the scratch directory, os.TempDir when empty.
	ScratchRoot string
}

// NewPEExtractor creates an extractor driving tool.
func NewPEExtractor(tool string) *PEExtractor {
	return &PEExtractor{Tool: tool}
}

// ToolName returns the configured tool, defaulting to 7z.
func (extractor *PEExtractor) ToolName() string {
	if extractor.Tool == "" {
		return ToolSevenZip
	}

	return extractor.Tool
}

// Available checks that the installer tool can be found.
func (extractor *PEExtractor) Available() error {
	_, err := extractor.lookPath()
	return err
}

// Extract unpacks installer into a scratch directory and copies the first
// file named like binary's base name (case-insensitive) to targetDir/binary.
// The installer and the scratch directory are removed on every path.
func (extractor *PEExtractor) Extract(ctx context.Context, targetDir, binary, installer string) error {
	defer os.Remove(installer)

	toolPath, err := extractor.lookPath()
	if err != nil {
		return err
	}

	scratch, err := os.MkdirTemp(extractor.ScratchRoot, "fetch-fixtures-pe-*")
	if err != nil {
		return fmt.Errorf("creating scratch directory: %w", err)
	}
	defer os.RemoveAll(scratch)

	cmd := execCommandContext(ctx, toolPath, extractor.args(installer, scratch)...)

	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s: %w: %s", ErrToolFailed, extractor.ToolName(), err, strings.TrimSpace(string(output)))
	}

	found, executables, err := findExecutable(scratch, filepath.Base(filepath.FromSlash(binary)))
	if err != nil {
		return fmt.Errorf("scanning extracted files: %w", err)
	}

	if found == "" {
		return fmt.Errorf("%w: %s (executables: %s)", ErrBinaryNotFound, binary, listing(executables))
	}

	dest := filepath.Join(targetDir, filepath.FromSlash(binary))
	if err := CopyFile(found, dest, CommonExecutablePermission); err != nil {
		return fmt.Errorf("copying %s: %w", binary, err)
	}

	return nil
}

// lookPath resolves the tool binary.
func (extractor *PEExtractor) lookPath() (string, error) {
	tool := extractor.ToolName()

	switch tool {
	case ToolSevenZip, ToolInnoextract:
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, tool)
	}

	path, err := execLookPath(tool)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrToolUnavailable, tool)
	}

	return path, nil
}

// args builds the unpack command line for the configured tool.
func (extractor *PEExtractor) args(installer, dest string) []string {
	if extractor.ToolName() == ToolInnoextract {
		return []string{"-s", "-d", dest, installer}
	}

	return []string{"x", "-y", "-o" + dest, installer}
}

// findExecutable walks root in lexical order and returns the first regular
// file whose name equals name ignoring case, plus every *.exe seen.
func findExecutable(root, name string) (string, []string, error) {
	var (
		found       string
		executables []string
	)

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		if found == "" && strings.EqualFold(entry.Name(), name) {
			found = path
		}

		if strings.EqualFold(filepath.Ext(entry.Name()), ".exe") {
			rel, err := filepath.Rel(root, path)
			if err != nil {
				return err
			}

			executables = append(executables, filepath.ToSlash(rel))
		}

		return nil
	})
	if err != nil {
		return "", nil, err
	}

	return found, executables, nil
}
