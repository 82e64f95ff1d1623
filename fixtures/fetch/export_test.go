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
	"testing"
)

// Fake installer tool environment, for tests in fetch_test.
const (
	FakeToolFilesEnvForTests = fakeToolFilesEnv
	FakeToolExitEnvForTests  = fakeToolExitEnv
	FakeToolArgsEnvForTests  = fakeToolArgsEnv
)

// MockExecForTests routes tool execution to TestHelperProcess.
func MockExecForTests(t *testing.T, lookPath func(string) (string, error)) {
	t.Helper()
	mockExec(t, lookPath)
}

// IsPathWithinDirForTests exposes isPathWithinDir for tests.
func IsPathWithinDirForTests(path, dir string) bool {
	return isPathWithinDir(path, dir)
}

// FindBundlesForTests exposes findBundles for tests.
func FindBundlesForTests(root string) []string {
	return findBundles(root)
}

// ArgsForTests exposes the tool command line built by the extractor.
func (extractor *PEExtractor) ArgsForTests(installer, dest string) []string {
	return extractor.args(installer, dest)
}
