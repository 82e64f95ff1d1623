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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/sumicare/fetch-fixtures/fixtures/config"
	"github.com/sumicare/fetch-fixtures/fixtures/fetch"
)

var (
	// errUnknownCommand is returned for unsupported top-level commands.
	errUnknownCommand = errors.New("unknown command")
	// errUnknownFormat is returned when a format filter looks like a flag.
	errUnknownFormat = errors.New("unknown format")
	// errFixturesMissing is returned by status when a fixture is absent or unreadable.
	errFixturesMissing = errors.New("fixtures missing or invalid")

	// version, commit and date are set via ldflags at build time by the release
	// tooling. These fields are surfaced via the "version" subcommand.
	version = "dev"
	// commit set via ldflags at build time by the release tooling.
	commit = "none" //nolint:gochecknoglobals // build metadata set via ldflags
	// date set via ldflags at build time by the release tooling.
	date = "unknown" //nolint:gochecknoglobals // build metadata set via ldflags
)

// main is the entry point for fetch-fixtures.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)

	stop()

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run parses command-line arguments and dispatches to the appropriate handler.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	command := ""
	if len(args) > 0 {
		command = args[0]
	}

	switch command {
	case "version", "--version", "-v":
		fmt.Fprintf(stdout, "fetch-fixtures %s (commit: %s, built: %s)\n", version, commit, date)
		return nil

	case "help", "--help", "-h":
		return printUsage(stdout)

	case "status":
		filter, err := formatFilter(args[1:])
		if err != nil {
			return err
		}

		return cmdStatus(fetch.SettingsFromEnv(), filter, stdout)

	default:
		// Any other word is a format filter, so new formats need no CLI change.
		if strings.HasPrefix(command, "-") {
			return fmt.Errorf("%w: %s", errUnknownCommand, command)
		}

		return cmdFetch(ctx, fetch.SettingsFromEnv(), command)
	}
}

// formatFilter reads the optional format argument of a subcommand.
func formatFilter(args []string) (string, error) {
	if len(args) == 0 {
		return "", nil
	}

	if strings.HasPrefix(args[0], "-") {
		return "", fmt.Errorf("%w: %s", errUnknownFormat, args[0])
	}

	return args[0], nil
}

// cmdFetch downloads every missing fixture matching filter.
func cmdFetch(ctx context.Context, settings fetch.Settings, filter string) error {
	reporter := fetch.DefaultReporter(settings.NoColor)

	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}

	if cfg.Count() == 0 {
		reporter.Warnf("no fixtures declared in %s", settings.ConfigPath)
		return nil
	}

	lock, err := fetch.AcquireRunLock(settings.Root, true)
	if err != nil {
		return err
	}
	defer lock.Release()

	client := settings.NewClient()
	client.SetUserAgent("fetch-fixtures/" + version)

	summary := fetch.NewRunner(settings, cfg, client, reporter).Run(ctx, filter)

	return summary.Err()
}

// cmdStatus prints whether each fixture is on disk and parses as its format.
func cmdStatus(settings fetch.Settings, filter string, stdout io.Writer) error {
	cfg, err := config.Load(settings.ConfigPath)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	bad := 0

	for index := range cfg.Count() {
		fixture, _ := cfg.At(index)
		if filter != "" && fixture.Format != filter {
			continue
		}

		inspection := fetch.Inspect(fixture.TargetPath(settings.Root), fixture.Format)

		state := "ok"

		switch {
		case !inspection.Present:
			state = "missing"
			bad++
		case !inspection.Valid && (fixture.Format == config.FormatMachO || fixture.Format == config.FormatPE):
			state = "invalid"
			bad++
		case !inspection.Valid:
			state = "unchecked"
		}

		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n", fixture.ID(), state, fixture.RelPath(), inspection.Detail)
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("writing status: %w", err)
	}

	if bad > 0 {
		return fmt.Errorf("%w: %d", errFixturesMissing, bad)
	}

	return nil
}

// printUsage prints the CLI usage summary.
func printUsage(stdout io.Writer) error {
	_, err := fmt.Fprintf(stdout, `fetch-fixtures downloads binary test fixtures from GitHub releases.

Usage:
  fetch-fixtures [format]            fetch missing fixtures, optionally of one format (macho, pe, ...)
  fetch-fixtures status [format]     show which fixtures are present and valid
  fetch-fixtures version             print version information
  fetch-fixtures help                show this help

Environment:
  %-24s fixtures root (default %s)
  %-24s configuration file (default <root>/%s)
  %-24s GitHub API base URL
  %-24s installer tool for pe fixtures: 7z or innoextract
  %-24s GitHub token (GITHUB_API_TOKEN is used as a fallback)
  %-24s disable colored output
`,
		fetch.EnvRoot, fetch.DefaultRoot,
		fetch.EnvConfig, fetch.DefaultConfigName,
		fetch.EnvAPIBase,
		fetch.EnvPETool,
		"GITHUB_TOKEN",
		fetch.EnvNoColor,
	)

	return err
}
