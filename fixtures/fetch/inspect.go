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
	"debug/macho"
	"fmt"
	"os"
	"strings"

	"github.com/saferwall/pe"

	"github.com/sumicare/fetch-fixtures/fixtures/config"
)

// Inspection describes an extracted fixture on disk.
type Inspection struct {
	Path    string
	Present bool
	Valid   bool
	Detail  string
}

// Inspect checks that path exists and parses as the given format. Unknown
// formats are reported present but not validated.
func Inspect(path, format string) Inspection {
	inspection := Inspection{Path: path}

	info, err := os.Stat(path)
	if err != nil {
		inspection.Detail = "missing"
		return inspection
	}

	if info.IsDir() {
		inspection.Detail = "is a directory"
		return inspection
	}

	inspection.Present = true

	switch format {
	case config.FormatMachO:
		inspection.Detail, err = describeMachO(path)
	case config.FormatPE:
		inspection.Detail, err = describePE(path)
	default:
		inspection.Detail = fmt.Sprintf("format %q not checked", format)
		return inspection
	}

	if err != nil {
		inspection.Detail = err.Error()
		return inspection
	}

	inspection.Valid = true

	return inspection
}

func describeMachO(path string) (string, error) {
	fat, err := macho.OpenFat(path)
	if err == nil {
		defer fat.Close()

		cpus := make([]string, 0, len(fat.Arches))
		for _, arch := range fat.Arches {
			cpus = append(cpus, arch.Cpu.String())
		}

		return "universal " + strings.Join(cpus, ","), nil
	}

	// Thin images and non-Mach-O files both fail OpenFat; macho.Open gives
	// the more useful error for the latter.
	file, err := macho.Open(path)
	if err != nil {
		return "", fmt.Errorf("mach-o: %w", err)
	}
	defer file.Close()

	return fmt.Sprintf("%s %s", file.Cpu, file.Type), nil
}

func describePE(path string) (string, error) {
	file, err := pe.New(path, &pe.Options{Fast: true})
	if err != nil {
		return "", fmt.Errorf("pe: %w", err)
	}
	defer file.Close()

	if err := file.Parse(); err != nil {
		return "", fmt.Errorf("pe: %w", err)
	}

	bits := "pe32"
	if file.Is64 {
		bits = "pe32+"
	}

	kind := "exe"
	if file.IsDLL() {
		kind = "dll"
	}

	return bits + " " + kind, nil
}
