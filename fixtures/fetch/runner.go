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
	"os"
	"path/filepath"

	"github.com/sumicare/fetch-fixtures/fixtures/config"
)

// Fixture outcomes.
const (
	StatusSucceeded   Status = "succeeded"
	StatusCached      Status = "cached"
	StatusSkipped     Status = "skipped"
	StatusUnsupported Status = "unsupported"
	StatusFailed      Status = "failed"
)

var (
	// ErrInvalidFixture is returned for records that cannot name a target.
	ErrInvalidFixture = errors.New("invalid fixture")
	// ErrFixturesFailed is returned by Summary.Err when any fixture failed.
	ErrFixturesFailed = errors.New("fixtures failed")
)

type (
	// Status is the outcome of processing one fixture.
	Status string

	// Fetcher downloads a release asset into destDir and returns its path.
	Fetcher interface {
		Fetch(ctx context.Context, version, repo, pattern, destDir string) (string, error)
	}

	// Extractor turns a downloaded asset into targetDir/binary.
	Extractor interface {
		// Available reports whether the extractor's prerequisites are met.
		Available() error
		// Extract consumes the download; it is removed on return.
		Extract(ctx context.Context, targetDir, binary, download string) error
	}

	// Result records what happened to one fixture.
	Result struct {
		Fixture config.Fixture
		Status  Status
		Err     error
	}

	// Summary collects the results of a run in processing order.
	Summary struct {
		Results []Result
	}

	// Runner processes the fixtures of a configuration. Downloads land in a
	// per-fixture directory under WorkDir (os.TempDir when empty) that is
	// removed once the fixture is processed.
	Runner struct {
		Root       string
		WorkDir    string
		Config     *config.Config
		Fetcher    Fetcher
		Extractors map[string]Extractor
		Reporter   *Reporter
	}
)

// NewRunner creates a runner with the built-in macho and pe extractors.
func NewRunner(settings Settings, cfg *config.Config, fetcher Fetcher, reporter *Reporter) *Runner {
	return &Runner{
		Root:    settings.Root,
		Config:  cfg,
		Fetcher: fetcher,
		Extractors: map[string]Extractor{
			config.FormatMachO: MachOExtractor{},
			config.FormatPE:    NewPEExtractor(settings.PETool),
		},
		Reporter: reporter,
	}
}

// Run processes every fixture in declaration order. Fixtures whose format
// differs from a non-empty filter are left out of the summary. A failing
// fixture does not stop the run.
func (runner *Runner) Run(ctx context.Context, filter string) *Summary {
	summary := &Summary{}

	for index := range runner.Config.Count() {
		fixture, _ := runner.Config.At(index)

		if filter != "" && fixture.Format != filter {
			continue
		}

		result := runner.process(ctx, &fixture)
		if result.Status == StatusFailed {
			runner.Reporter.Errf("[%s] failed: %v", fixture.ID(), result.Err)
		}

		summary.Results = append(summary.Results, result)
	}

	runner.Reporter.Infof("%s", summary)

	return summary
}

// process handles one fixture.
func (runner *Runner) process(ctx context.Context, fixture *config.Fixture) Result {
	result := Result{Fixture: *fixture}
	id := fixture.ID()

	fail := func(err error) Result {
		result.Status = StatusFailed
		result.Err = err

		return result
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	if err := runner.validate(fixture); err != nil {
		return fail(err)
	}

	rel := filepath.ToSlash(fixture.RelPath())
	targetDir := fixture.TargetDir(runner.Root)

	if fileExists(fixture.TargetPath(runner.Root)) {
		runner.Reporter.Msgf("[%s] already exists: %s", id, rel)
		result.Status = StatusCached

		return result
	}

	extractor, ok := runner.Extractors[fixture.Format]
	if !ok {
		runner.Reporter.Warnf("[%s] unknown format %q, skipping", id, fixture.Format)
		result.Status = StatusUnsupported

		return result
	}

	if err := extractor.Available(); err != nil {
		return runner.skipOrFail(result, err)
	}

	workDir, err := os.MkdirTemp(runner.WorkDir, "fetch-fixtures-download-*")
	if err != nil {
		return fail(fmt.Errorf("creating download directory: %w", err))
	}
	defer os.RemoveAll(workDir)

	runner.Reporter.Infof("[%s] downloading %s from %s@%s", id, fixture.Pattern, fixture.Repo, fixture.Version)

	download, err := runner.Fetcher.Fetch(ctx, fixture.Version, fixture.Repo, fixture.Pattern, workDir)
	if err != nil {
		return fail(err)
	}

	if err := extractor.Extract(ctx, targetDir, fixture.Binary, download); err != nil {
		return runner.skipOrFail(result, err)
	}

	if !fileExists(fixture.TargetPath(runner.Root)) {
		return fail(fmt.Errorf("%w: %s", ErrBinaryNotFound, rel))
	}

	runner.Reporter.Msgf("[%s] extracted %s", id, rel)
	result.Status = StatusSucceeded

	return result
}

// skipOrFail maps a missing tool to a skip and anything else to a failure.
func (runner *Runner) skipOrFail(result Result, err error) Result {
	if errors.Is(err, ErrToolUnavailable) {
		runner.Reporter.Warnf("[%s] skipping: %v", result.Fixture.ID(), err)
		result.Status = StatusSkipped

		return result
	}

	result.Status = StatusFailed
	result.Err = err

	return result
}

// validate rejects records whose target is empty or escapes the root.
func (runner *Runner) validate(fixture *config.Fixture) error {
	for _, field := range []string{config.FieldExtractDir, config.FieldBinary} {
		if fixture.Field(field) == "" {
			return fmt.Errorf("%w: %s is empty", ErrInvalidFixture, field)
		}
	}

	root := filepath.Clean(runner.Root)
	targetDir := fixture.TargetDir(root)

	if targetDir == root || !isPathWithinDir(targetDir, root) {
		return fmt.Errorf("%w: extract_dir %q leaves %s", ErrInvalidFixture, fixture.ExtractDir, root)
	}

	target := fixture.TargetPath(root)
	if target == targetDir || !isPathWithinDir(target, targetDir) {
		return fmt.Errorf("%w: binary %q leaves %s", ErrInvalidFixture, fixture.Binary, fixture.ExtractDir)
	}

	return nil
}

// Count returns the number of results with the given status.
func (summary *Summary) Count(status Status) int {
	count := 0

	for _, result := range summary.Results {
		if result.Status == status {
			count++
		}
	}

	return count
}

// Failed returns the failed results.
func (summary *Summary) Failed() []Result {
	var failed []Result

	for _, result := range summary.Results {
		if result.Status == StatusFailed {
			failed = append(failed, result)
		}
	}

	return failed
}

// Err returns an error wrapping ErrFixturesFailed when any fixture failed.
func (summary *Summary) Err() error {
	failed := summary.Failed()
	if len(failed) == 0 {
		return nil
	}

	ids := make([]string, 0, len(failed))
	for _, result := range failed {
		ids = append(ids, result.Fixture.ID())
	}

	return fmt.Errorf("%w: %d of %d (%s)", ErrFixturesFailed, len(failed), len(summary.Results), listing(ids))
}

// String renders the one-line run summary.
func (summary *Summary) String() string {
	return fmt.Sprintf("%d succeeded, %d cached, %d skipped, %d unsupported, %d failed",
		summary.Count(StatusSucceeded),
		summary.Count(StatusCached),
		summary.Count(StatusSkipped),
		summary.Count(StatusUnsupported),
		summary.Count(StatusFailed),
	)
}
