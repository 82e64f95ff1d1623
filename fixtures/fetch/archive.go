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
	"archive/tar"
	"archive/zip"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/h2non/filetype"
	"github.com/ulikunitz/xz"
)

const (
	// maxArchiveBytes caps the bytes written across all entries of one archive.
	maxArchiveBytes int64 = 1 << 30
	// maxArchiveFileBytes caps the bytes written for a single entry.
	maxArchiveFileBytes int64 = 512 << 20
)

// MIME types recognised by ExtractArchive.
const (
	mimeGzip = "application/gzip"
	mimeXz   = "application/x-xz"
	mimeZip  = "application/zip"
)

var (
	// ErrUnsupportedArchive is returned when a download is not a known archive type.
	ErrUnsupportedArchive = errors.New("unsupported archive type")
	// ErrUnsafeArchivePath is returned when an entry would land outside the destination.
	ErrUnsafeArchivePath = errors.New("archive entry escapes destination")
	// ErrArchiveTooLarge is returned when an archive exceeds the size limits.
	ErrArchiveTooLarge = errors.New("archive size limit exceeded")
)

// ExtractArchive sniffs the archive's content type and unpacks it into destDir.
// Gzip payloads are read as tar.gz and xz payloads as tar.xz.
func ExtractArchive(archivePath, destDir string) error {
	kind, err := filetype.MatchFile(archivePath)
	if err != nil {
		return fmt.Errorf("detecting archive type: %w", err)
	}

	switch kind.MIME.Value {
	case mimeGzip:
		return ExtractTarGz(archivePath, destDir)
	case mimeXz:
		return ExtractTarXz(archivePath, destDir)
	case mimeZip:
		return ExtractZip(archivePath, destDir)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedArchive, filepath.Base(archivePath))
	}
}

// ExtractTarGz extracts a .tar.gz file to the destination directory.
func ExtractTarGz(archivePath, destDir string) error {
	file, err := os.Open(archivePath) //nolint:gosec // G304: archive was downloaded by us
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	gzr, err := gzip.NewReader(file)
	if err != nil {
		return fmt.Errorf("creating gzip reader: %w", err)
	}
	defer gzr.Close()

	return extractTar(tar.NewReader(gzr), destDir)
}

// ExtractTarXz extracts a .tar.xz file to the destination directory.
func ExtractTarXz(archivePath, destDir string) error {
	file, err := os.Open(archivePath) //nolint:gosec // G304: archive was downloaded by us
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer file.Close()

	xzr, err := xz.NewReader(file)
	if err != nil {
		return fmt.Errorf("creating xz reader: %w", err)
	}

	return extractTar(tar.NewReader(xzr), destDir)
}

// ExtractZip extracts a .zip file to the destination directory.
func ExtractZip(archivePath, destDir string) error {
	reader, err := zip.OpenReader(archivePath)
	if errors.Is(err, zip.ErrInsecurePath) {
		reader.Close()
		return fmt.Errorf("%w: %w", ErrUnsafeArchivePath, err)
	}

	if err != nil {
		return fmt.Errorf("opening zip archive: %w", err)
	}
	defer reader.Close()

	budget := &archiveBudget{remaining: maxArchiveBytes}
	cleanDest := filepath.Clean(destDir)

	for _, entry := range reader.File {
		target, err := entryTarget(cleanDest, entry.Name)
		if err != nil {
			return err
		}

		if entry.FileInfo().IsDir() {
			if err := EnsureDir(target); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}

			continue
		}

		if entry.UncompressedSize64 > uint64(maxArchiveFileBytes) {
			return fmt.Errorf("%w: %s is %d bytes", ErrArchiveTooLarge, entry.Name, entry.UncompressedSize64)
		}

		rc, err := entry.Open()
		if err != nil {
			return fmt.Errorf("opening %s in archive: %w", entry.Name, err)
		}

		err = writeEntry(target, entry.Mode().Perm(), rc, budget)
		rc.Close()

		if err != nil {
			return err
		}
	}

	return nil
}

// extractTar writes every entry of a tar stream below destDir.
func extractTar(tr *tar.Reader, destDir string) error {
	budget := &archiveBudget{remaining: maxArchiveBytes}
	cleanDest := filepath.Clean(destDir)

	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("reading tar: %w", err)
		}

		target, err := entryTarget(cleanDest, header.Name)
		if err != nil {
			return err
		}

		switch header.Typeflag {
		case tar.TypeDir:
			if err := EnsureDir(target); err != nil {
				return fmt.Errorf("creating directory %s: %w", target, err)
			}

		case tar.TypeReg:
			if header.Size > maxArchiveFileBytes {
				return fmt.Errorf("%w: %s is %d bytes", ErrArchiveTooLarge, header.Name, header.Size)
			}

			if err := writeEntry(target, header.FileInfo().Mode().Perm(), tr, budget); err != nil {
				return err
			}

		case tar.TypeSymlink:
			if err := writeSymlink(cleanDest, target, header.Linkname); err != nil {
				return err
			}
		}
	}
}

// entryTarget resolves an archive entry name below destDir. Entries whose
// parent directories on disk pass through a symlink are rejected.
func entryTarget(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.Clean(filepath.FromSlash(name)))
	if !isPathWithinDir(target, destDir) {
		return "", fmt.Errorf("%w: %s", ErrUnsafeArchivePath, name)
	}

	if err := checkNoSymlinkParents(destDir, target); err != nil {
		return "", err
	}

	return target, nil
}

// checkNoSymlinkParents walks the existing directories between destDir and
// target's parent and fails if any of them is a symlink.
func checkNoSymlinkParents(destDir, target string) error {
	rel, err := filepath.Rel(destDir, filepath.Dir(target))
	if err != nil {
		return fmt.Errorf("%w: %s", ErrUnsafeArchivePath, target)
	}

	if rel == "." {
		return nil
	}

	current := destDir

	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		current = filepath.Join(current, part)

		info, err := os.Lstat(current)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("inspecting %s: %w", current, err)
		}

		if info.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("%w: %s passes through symlink %s", ErrUnsafeArchivePath, target, current)
		}
	}

	return nil
}

// writeEntry copies one archive member to target, charging it to budget.
// A failed write leaves no file at target.
func writeEntry(target string, perm os.FileMode, src io.Reader, budget *archiveBudget) error {
	if err := EnsureDir(filepath.Dir(target)); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if perm == 0 {
		perm = CommonFilePermission
	}

	return replaceFile(target, perm, func(out io.Writer) error {
		limited := &limitedWriter{w: out, budget: budget, fileRemaining: maxArchiveFileBytes}

		_, err := io.Copy(limited, src) //nolint:gosec // G110: bounded by limitedWriter

		return err
	})
}

// writeSymlink creates a relative symlink that stays inside destDir.
func writeSymlink(destDir, target, linkname string) error {
	if filepath.IsAbs(linkname) {
		return fmt.Errorf("%w: absolute link %s", ErrUnsafeArchivePath, linkname)
	}

	resolved := filepath.Join(filepath.Dir(target), filepath.FromSlash(linkname))
	if !isPathWithinDir(resolved, destDir) {
		return fmt.Errorf("%w: link %s -> %s", ErrUnsafeArchivePath, target, linkname)
	}

	if err := EnsureDir(filepath.Dir(target)); err != nil {
		return fmt.Errorf("creating parent directory: %w", err)
	}

	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("replacing %s: %w", target, err)
	}

	if err := os.Symlink(linkname, target); err != nil {
		return fmt.Errorf("creating symlink %s: %w", target, err)
	}

	return nil
}

// archiveBudget is the byte allowance shared by all entries of one archive.
type archiveBudget struct {
	remaining int64
}

// limitedWriter enforces the per-entry and per-archive size limits.
type limitedWriter struct {
	w             io.Writer
	budget        *archiveBudget
	fileRemaining int64
}

// Write implements io.Writer.
func (writer *limitedWriter) Write(buff []byte) (int, error) {
	allowed := min(int64(len(buff)), writer.fileRemaining, writer.budget.remaining)
	if allowed <= 0 && len(buff) > 0 {
		return 0, ErrArchiveTooLarge
	}

	written, err := writer.w.Write(buff[:allowed])

	writer.fileRemaining -= int64(written)
	writer.budget.remaining -= int64(written)

	if err != nil {
		return written, err
	}

	if written < len(buff) {
		return written, ErrArchiveTooLarge
	}

	return written, nil
}
