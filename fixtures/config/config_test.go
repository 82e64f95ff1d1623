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

package config_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sumicare/fetch-fixtures/fixtures/config"
)

const twoRecords = `
[[fixture]]
name = "a"
format = "macho"
repo = "o/r"
version = "v1"
pattern = "a.tar.gz"
extract_dir = "a"
binary = "A.app/Contents/MacOS/A"

[[fixture]]
name = "b"
format = "pe"
version = "v2"
pattern = "b.zip"
extract_dir = "b"
binary = "b.exe"
`

var _ = Describe("Config", func() {
	Describe("Load", func() {
		var tempDir string

		BeforeEach(func() {
			tempDir = GinkgoT().TempDir()
		})

		It("returns an empty configuration when the file is absent", func() {
			cfg, err := config.Load(filepath.Join(tempDir, "missing.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Count()).To(BeZero())
		})

		It("returns an empty configuration for a blank file", func() {
			path := filepath.Join(tempDir, "fixtures.toml")
			Expect(os.WriteFile(path, []byte("\n  \n"), 0o600)).To(Succeed())

			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Count()).To(BeZero())
			Expect(cfg.Path).To(Equal(path))
		})

		It("rejects a field repeated within one record", func() {
			_, err := config.Decode([]byte("[[fixture]]\nname = \"a\"\nname = \"b\"\n"), config.EncodingTOML)
			Expect(err).To(MatchError(config.ErrDecode))
		})

		It("rejects unquoted values for string fields", func() {
			path := filepath.Join(tempDir, "fixtures.toml")
			Expect(os.WriteFile(path, []byte("[[fixture]]\nname = 42\n"), 0o600)).To(Succeed())

			_, err := config.Load(path)
			Expect(err).To(MatchError(config.ErrDecode))
		})

		It("rejects malformed TOML", func() {
			path := filepath.Join(tempDir, "fixtures.toml")
			Expect(os.WriteFile(path, []byte("[[fixture]\nname = \"a\""), 0o600)).To(Succeed())

			_, err := config.Load(path)
			Expect(err).To(MatchError(config.ErrDecode))
		})

		It("rejects malformed YAML", func() {
			path := filepath.Join(tempDir, "fixtures.yml")
			Expect(os.WriteFile(path, []byte("fixture: [name: a"), 0o600)).To(Succeed())

			_, err := config.Load(path)
			Expect(err).To(MatchError(config.ErrDecode))
		})

		It("ignores keys it does not know", func() {
			cfg, err := config.Load(filepath.Join("testdata", "fixtures.toml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Field(0, "expected_asset_count")).To(BeEmpty())
		})
	})

	DescribeTable("EncodingFor",
		func(path string, expected config.Encoding) {
			Expect(config.EncodingFor(path)).To(Equal(expected))
		},
		Entry("toml", "fixtures.toml", config.EncodingTOML),
		Entry("yaml", "fixtures.yaml", config.EncodingYAML),
		Entry("yml upper case", "FIXTURES.YML", config.EncodingYAML),
		Entry("no extension", "fixtures", config.EncodingTOML),
	)

	Describe("Field", func() {
		var cfg *config.Config

		BeforeEach(func() {
			var err error
			cfg, err = config.Decode([]byte(twoRecords), config.EncodingTOML)
			Expect(err).NotTo(HaveOccurred())
		})

		It("counts records in declaration order", func() {
			Expect(cfg.Count()).To(Equal(2))
			Expect(cfg.Field(0, config.FieldName)).To(Equal("a"))
			Expect(cfg.Field(1, config.FieldName)).To(Equal("b"))
		})

		It("never returns a value from an adjacent record", func() {
			Expect(cfg.Field(0, config.FieldRepo)).To(Equal("o/r"))
			Expect(cfg.Field(1, config.FieldRepo)).To(BeEmpty())
			Expect(cfg.Field(1, config.FieldVersion)).To(Equal("v2"))
		})

		DescribeTable("returns every known field",
			func(name, expected string) {
				Expect(cfg.Field(0, name)).To(Equal(expected))
			},
			Entry(config.FieldName, config.FieldName, "a"),
			Entry(config.FieldFormat, config.FieldFormat, "macho"),
			Entry(config.FieldArch, config.FieldArch, ""),
			Entry(config.FieldRepo, config.FieldRepo, "o/r"),
			Entry(config.FieldVersion, config.FieldVersion, "v1"),
			Entry(config.FieldPattern, config.FieldPattern, "a.tar.gz"),
			Entry(config.FieldExtractDir, config.FieldExtractDir, "a"),
			Entry(config.FieldBinary, config.FieldBinary, "A.app/Contents/MacOS/A"),
			Entry("unknown", "checksum", ""),
		)

		It("returns empty strings for out of range indexes", func() {
			Expect(cfg.Field(-1, config.FieldName)).To(BeEmpty())
			Expect(cfg.Field(2, config.FieldName)).To(BeEmpty())
		})

		It("tolerates a nil configuration", func() {
			var empty *config.Config
			Expect(empty.Count()).To(BeZero())
			Expect(empty.Field(0, config.FieldName)).To(BeEmpty())
		})

		It("keeps duplicate names", func() {
			dup, err := config.Decode([]byte(twoRecords+"\n[[fixture]]\nname = \"a\"\n"), config.EncodingTOML)
			Expect(err).NotTo(HaveOccurred())
			Expect(dup.Count()).To(Equal(3))
			Expect(dup.Field(2, config.FieldName)).To(Equal("a"))
		})
	})

	Describe("Fixture paths", func() {
		fixture := config.Fixture{
			Name:       "a",
			Format:     config.FormatMachO,
			ExtractDir: "a",
			Binary:     "A.app/Contents/MacOS/A",
		}

		It("builds the display id", func() {
			Expect(fixture.ID()).To(Equal("a-macho"))

			withArch := fixture
			withArch.Arch = "aarch64"
			Expect(withArch.ID()).To(Equal("a-macho-aarch64"))
		})

		It("places the artifact under the fixtures root", func() {
			Expect(fixture.TargetDir("/fixtures")).To(Equal(filepath.Join("/fixtures", "a")))
			Expect(fixture.TargetPath("/fixtures")).To(Equal(
				filepath.Join("/fixtures", "a", "A.app", "Contents", "MacOS", "A"),
			))
		})
	})
})
