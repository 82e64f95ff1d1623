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
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sumicare/fetch-fixtures/fixtures/config"
	"github.com/sumicare/fetch-fixtures/fixtures/fetch"
)

// thinMachO returns a 64-bit arm64 executable header with no load commands.
func thinMachO() []byte {
	header := make([]byte, 64)

	binary.LittleEndian.PutUint32(header[0:], 0xfeedfacf)
	binary.LittleEndian.PutUint32(header[4:], 0x0100000c)
	binary.LittleEndian.PutUint32(header[12:], 2)

	return header
}

var _ = Describe("Inspect", func() {
	var dir string

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	write := func(name string, data []byte) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, data, fetch.CommonFilePermission)).To(Succeed())

		return path
	}

	It("reports missing files", func() {
		inspection := fetch.Inspect(filepath.Join(dir, "nope"), config.FormatMachO)
		Expect(inspection.Present).To(BeFalse())
		Expect(inspection.Valid).To(BeFalse())
		Expect(inspection.Detail).To(Equal("missing"))
	})

	It("does not treat directories as fixtures", func() {
		inspection := fetch.Inspect(dir, config.FormatPE)
		Expect(inspection.Present).To(BeFalse())
	})

	It("accepts a thin Mach-O executable", func() {
		inspection := fetch.Inspect(write("App", thinMachO()), config.FormatMachO)
		Expect(inspection.Present).To(BeTrue())
		Expect(inspection.Valid).To(BeTrue(), inspection.Detail)
		Expect(inspection.Detail).To(ContainSubstring("Arm64"))
	})

	DescribeTable("flags files that do not parse",
		func(format string) {
			inspection := fetch.Inspect(write("junk", []byte("definitely not an executable image, just text")), format)
			Expect(inspection.Present).To(BeTrue())
			Expect(inspection.Valid).To(BeFalse())
			Expect(inspection.Detail).NotTo(BeEmpty())
		},
		Entry("macho", config.FormatMachO),
		Entry("pe", config.FormatPE),
	)

	It("reports the thin parser error for files that are not mach-o", func() {
		inspection := fetch.Inspect(write("junk", []byte("definitely not an executable image, just text")), config.FormatMachO)
		Expect(inspection.Detail).To(HavePrefix("mach-o: "))
		Expect(inspection.Detail).To(ContainSubstring("invalid magic number"))
		Expect(inspection.Detail).NotTo(ContainSubstring("universal"))
	})

	It("leaves unknown formats unchecked", func() {
		inspection := fetch.Inspect(write("notes", []byte("x")), "elf")
		Expect(inspection.Present).To(BeTrue())
		Expect(inspection.Valid).To(BeFalse())
		Expect(inspection.Detail).To(ContainSubstring("not checked"))
	})
})
