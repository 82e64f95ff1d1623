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

package fetch_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sumicare/fetch-fixtures/fixtures/fetch"
	"github.com/sumicare/fetch-fixtures/fixtures/github/mock"
)

var _ = Describe("MachOExtractor", func() {
	var (
		extractor fetch.MachOExtractor
		targetDir string
	)

	BeforeEach(func() {
		extractor = fetch.MachOExtractor{}
		targetDir = filepath.Join(GinkgoT().TempDir(), "tauri-macho")
		Expect(fetch.EnsureDir(targetDir)).To(Succeed())
	})

	download := func(name string, payload []byte) string {
		path := filepath.Join(targetDir, name)
		Expect(os.WriteFile(path, payload, fetch.CommonFilePermission)).To(Succeed())

		return path
	}

	It("needs no external tools", func() {
		Expect(extractor.Available()).To(Succeed())
	})

	It("extracts the bundle in place and removes the archive", func() {
		archive := download("app.app.tar.gz", mock.TarGz(bundleFiles))

		Expect(extractor.Extract(context.Background(), targetDir, "App.app/Contents/MacOS/App", archive)).To(Succeed())

		Expect(filepath.Join(targetDir, "App.app", "Contents", "MacOS", "App")).To(BeARegularFile())
		Expect(archive).NotTo(BeAnExistingFile())
	})

	It("creates the target directory when missing", func() {
		archive := filepath.Join(GinkgoT().TempDir(), "app.zip")
		Expect(os.WriteFile(archive, mock.Zip(bundleFiles), fetch.CommonFilePermission)).To(Succeed())

		nested := filepath.Join(targetDir, "nested")
		Expect(extractor.Extract(context.Background(), nested, "App.app/Contents/MacOS/App", archive)).To(Succeed())
		Expect(filepath.Join(nested, "App.app", "Contents", "MacOS", "App")).To(BeARegularFile())
	})

	It("lists the bundles it found when the binary is missing", func() {
		archive := download("other.tar.xz", mock.TarXz(map[string]string{
			"Other.app/Contents/MacOS/Other": "x",
			"Extra.app/Contents/MacOS/Extra": "y",
		}))

		err := extractor.Extract(context.Background(), targetDir, "App.app/Contents/MacOS/App", archive)
		Expect(err).To(MatchError(fetch.ErrBinaryNotFound))
		Expect(err.Error()).To(ContainSubstring("Extra.app, Other.app"))
		Expect(archive).NotTo(BeAnExistingFile())
	})

	It("reports when no bundle was extracted at all", func() {
		archive := download("flat.tar.gz", mock.TarGz(map[string]string{"README": "hi"}))

		err := extractor.Extract(context.Background(), targetDir, "App.app/Contents/MacOS/App", archive)
		Expect(err).To(MatchError(fetch.ErrBinaryNotFound))
		Expect(err.Error()).To(ContainSubstring("(none)"))
	})

	It("removes the download when it is not an archive", func() {
		archive := download("app.dmg", []byte("this is not an archive at all"))

		err := extractor.Extract(context.Background(), targetDir, "App.app/Contents/MacOS/App", archive)
		Expect(err).To(MatchError(fetch.ErrUnsupportedArchive))
		Expect(archive).NotTo(BeAnExistingFile())
	})

	It("stops on a cancelled context and still removes the download", func() {
		archive := download("app.tar.gz", mock.TarGz(bundleFiles))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		Expect(extractor.Extract(ctx, targetDir, "App.app/Contents/MacOS/App", archive)).To(MatchError(context.Canceled))
		Expect(archive).NotTo(BeAnExistingFile())
		Expect(filepath.Join(targetDir, "App.app")).NotTo(BeADirectory())
	})

	It("finds bundles nested one level down", func() {
		Expect(os.MkdirAll(filepath.Join(targetDir, "dist", "Nested.app", "Contents"), 0o755)).To(Succeed())
		Expect(os.MkdirAll(filepath.Join(targetDir, "Top.app"), 0o755)).To(Succeed())

		Expect(fetch.FindBundlesForTests(targetDir)).To(Equal([]string{"Top.app", "dist/Nested.app"}))
	})
})
