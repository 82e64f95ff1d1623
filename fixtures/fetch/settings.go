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
	"os"
	"path/filepath"

	"github.com/sumicare/fetch-fixtures/fixtures/github"
)

// Environment variables read by SettingsFromEnv.
const (
	EnvRoot    = "FETCH_FIXTURES_ROOT"
	EnvConfig  = "FETCH_FIXTURES_CONFIG"
	EnvAPIBase = "FETCH_FIXTURES_API_BASE"
	EnvPETool  = "FETCH_FIXTURES_PE_TOOL"
	EnvNoColor = "NO_COLOR"
)

const (
	// DefaultRoot is the fixtures root relative to the working directory.
	DefaultRoot = "tests/fixtures"
	// DefaultConfigName is the configuration file looked up under the root.
	DefaultConfigName = "fixtures.toml"
)

// Settings holds everything a run needs from its environment.
type Settings struct {
	Root       string
	ConfigPath string
	APIURL     string
	PETool     string
	Token      string
	NoColor    bool
}

// SettingsFromEnv reads settings from the process environment.
func SettingsFromEnv() Settings {
	settings := Settings{
		Root:       os.Getenv(EnvRoot),
		ConfigPath: os.Getenv(EnvConfig),
		APIURL:     os.Getenv(EnvAPIBase),
		PETool:     os.Getenv(EnvPETool),
		Token:      github.TokenFromEnv(),
		NoColor:    os.Getenv(EnvNoColor) != "",
	}

	if settings.Root == "" {
		settings.Root = DefaultRoot
	}

	if settings.ConfigPath == "" {
		settings.ConfigPath = filepath.Join(settings.Root, DefaultConfigName)
	}

	if settings.APIURL == "" {
		settings.APIURL = github.DefaultAPIURL
	}

	if settings.PETool == "" {
		settings.PETool = ToolSevenZip
	}

	return settings
}

// NewClient builds a release client from the settings.
func (settings Settings) NewClient() *github.Client {
	client := github.NewClient()
	client.SetAPIURL(settings.APIURL)
	client.SetToken(settings.Token)

	return client
}
