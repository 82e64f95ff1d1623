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

package mock

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/ulikunitz/xz"
)

const (
	// fileMode is the mode of regular entries in generated archives.
	fileMode os.FileMode = 0o755
	// dirMode is the mode of directory entries in generated archives.
	dirMode os.FileMode = 0o755
)

// TarGz builds a tar.gz payload holding files. Keys are slash-separated
// entry names; parent directories get their own entries.
func TarGz(files map[string]string) []byte {
	var buf bytes.Buffer

	gw := gzip.NewWriter(&buf)
	writeTar(gw, files)
	_ = gw.Close() //nolint:errcheck // bytes.Buffer writes cannot fail

	return buf.Bytes()
}

// TarXz builds a tar.xz payload holding files.
func TarXz(files map[string]string) []byte {
	var buf bytes.Buffer

	xw, err := xz.NewWriter(&buf)
	if err != nil {
		panic(err)
	}

	writeTar(xw, files)
	_ = xw.Close() //nolint:errcheck // bytes.Buffer writes cannot fail

	return buf.Bytes()
}

// Zip builds a zip payload holding files.
func Zip(files map[string]string) []byte {
	var buf bytes.Buffer

	zw := zip.NewWriter(&buf)

	for _, name := range sortedKeys(files) {
		fw, _ := zw.Create(name) //nolint:errcheck // bytes.Buffer writes cannot fail

		_, _ = fw.Write([]byte(files[name])) //nolint:errcheck // bytes.Buffer writes cannot fail
	}

	_ = zw.Close() //nolint:errcheck // bytes.Buffer writes cannot fail

	return buf.Bytes()
}

// writeTar writes files, preceded by their parent directories, as a tar stream.
func writeTar(w io.Writer, files map[string]string) {
	tw := tar.NewWriter(w)

	seen := make(map[string]bool)

	for _, name := range sortedKeys(files) {
		parts := strings.Split(name, "/")
		for i := 1; i < len(parts); i++ {
			dir := strings.Join(parts[:i], "/") + "/"
			if seen[dir] {
				continue
			}

			seen[dir] = true

			_ = tw.WriteHeader(&tar.Header{ //nolint:errcheck // bytes.Buffer writes cannot fail
				Name:     dir,
				Typeflag: tar.TypeDir,
				Mode:     int64(dirMode),
			})
		}

		content := files[name]

		_ = tw.WriteHeader(&tar.Header{ //nolint:errcheck // bytes.Buffer writes cannot fail
			Name:     name,
			Typeflag: tar.TypeReg,
			Mode:     int64(fileMode),
			Size:     int64(len(content)),
		})

		_, _ = tw.Write([]byte(content)) //nolint:errcheck // bytes.Buffer writes cannot fail
	}

	_ = tw.Close() //nolint:errcheck // bytes.Buffer writes cannot fail
}

// sortedKeys returns the map keys in lexical order.
func sortedKeys(files map[string]string) []string {
	keys := make([]string, 0, len(files))
	for name := range files {
		keys = append(keys, name)
	}

	slices.Sort(keys)

	return keys
}
