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

// Package config reads the declarative fixture list. A configuration is a
// sequence of [[fixture]] tables, each holding quoted string fields:
//
//	[[fixture]]
//	name = "app"
//	format = "macho"
//	repo = "owner/name"
//	version = "v1.0.0"
//	pattern = "app_*_aarch64.app.tar.gz"
//	extract_dir = "app-macho-aarch64"
//	binary = "App.app/Contents/MacOS/app"
//
// Files ending in .yaml or .yml are read as a YAML document with a top-level
// "fixture" list carrying the same keys.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Known fixture formats.
const (
	FormatMachO = "macho"
	FormatPE    = "pe"
)

// Field names accepted by Config.Field.
const (
	FieldName       = "name"
	FieldFormat     = "format"
	FieldArch       = "arch"
	FieldRepo       = "repo"
	FieldVersion    = "version"
	FieldPattern    = "pattern"
	FieldExtractDir = "extract_dir"
	FieldBinary     = "binary"
)

// Encoding selects the decoder used for a configuration file.
type Encoding int

const (
	// EncodingTOML decodes [[fixture]] tables.
	EncodingTOML Encoding = iota
	// EncodingYAML decodes a top-level "fixture" list.
	EncodingYAML
)

// ErrDecode wraps every parse failure of a present configuration file.
var ErrDecode = errors.New("decoding fixture configuration")

type (
	// Fixture is one declared test asset.
	Fixture struct {
		Name       string `toml:"name"        yaml:"name"`
		Format     string `toml:"format"      yaml:"format"`
		Arch       string `toml:"arch"        yaml:"arch"`
		Repo       string `toml:"repo"        yaml:"repo"`
		Version    string `toml:"version"     yaml:"version"`
		Pattern    string `toml:"pattern"     yaml:"pattern"`
		ExtractDir string `toml:"extract_dir" yaml:"extract_dir"`
		Binary     string `toml:"binary"      yaml:"binary"`
	}

	// Config is the ordered list of fixtures read from one file.
	Config struct {
		Path     string    `toml:"-"       yaml:"-"`
		Fixtures []Fixture `toml:"fixture" yaml:"fixture"`
	}
)

// EncodingFor picks the decoder from the file extension; anything that is not
// YAML is treated as TOML.
func EncodingFor(path string) Encoding {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return EncodingYAML
	default:
		return EncodingTOML
	}
}

// Load reads the configuration at path. A missing file is not an error and
// yields an empty configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is the configured fixture list
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{Path: path}, nil
		}

		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	cfg, err := Decode(data, EncodingFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	cfg.Path = path

	return cfg, nil
}

// Decode parses raw configuration bytes with the given encoding.
func Decode(data []byte, encoding Encoding) (*Config, error) {
	cfg := &Config{}

	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	switch encoding {
	case EncodingYAML:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	default:
		if _, err := toml.NewDecoder(bytes.NewReader(data)).Decode(cfg); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	}

	return cfg, nil
}

// Count returns the number of fixture records. It is 0 for a nil or empty
// configuration.
func (cfg *Config) Count() int {
	if cfg == nil {
		return 0
	}

	return len(cfg.Fixtures)
}

// At returns the index-th fixture in declaration order.
func (cfg *Config) At(index int) (Fixture, bool) {
	if index < 0 || index >= cfg.Count() {
		return Fixture{}, false
	}

	return cfg.Fixtures[index], true
}

// Field returns the named field of the index-th fixture, or an empty string
// when the index is out of range or the field is unknown.
func (cfg *Config) Field(index int, name string) string {
	fixture, ok := cfg.At(index)
	if !ok {
		return ""
	}

	return fixture.Field(name)
}

// Field returns the value of the named field.
func (fixture *Fixture) Field(name string) string {
	switch name {
	case FieldName:
		return fixture.Name
	case FieldFormat:
		return fixture.Format
	case FieldArch:
		return fixture.Arch
	case FieldRepo:
		return fixture.Repo
	case FieldVersion:
		return fixture.Version
	case FieldPattern:
		return fixture.Pattern
	case FieldExtractDir:
		return fixture.ExtractDir
	case FieldBinary:
		return fixture.Binary
	default:
		return ""
	}
}

// ID is the display label of a fixture: name-format, with -arch appended when
// an architecture is declared.
func (fixture *Fixture) ID() string {
	id := fixture.Name + "-" + fixture.Format
	if fixture.Arch != "" {
		id += "-" + fixture.Arch
	}

	return id
}

// RelPath is the artifact path relative to the fixtures root.
func (fixture *Fixture) RelPath() string {
	return filepath.Join(fixture.ExtractDir, filepath.FromSlash(fixture.Binary))
}

// TargetDir is the directory the fixture is extracted into.
func (fixture *Fixture) TargetDir(root string) string {
	return filepath.Join(root, fixture.ExtractDir)
}

// TargetPath is the location of the extracted artifact under root.
func (fixture *Fixture) TargetPath(root string) string {
	return filepath.Join(root, fixture.RelPath())
}
