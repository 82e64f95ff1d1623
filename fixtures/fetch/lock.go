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
	"fmt"
	"os"
	"path/filepath"
)

// LockFileName is the lock file created in the fixtures root during a run.
const LockFileName = ".fetch-fixtures.lock"

// RunLock serialises runs sharing a fixtures root.
type RunLock struct {
	file *os.File
}

// AcquireRunLock blocks until it holds the lock for root, creating root
// when missing. Readers pass exclusive=false.
func AcquireRunLock(root string, exclusive bool) (*RunLock, error) {
	if err := EnsureDir(root); err != nil {
		return nil, fmt.Errorf("creating %s: %w", root, err)
	}

	path := filepath.Join(root, LockFileName)

	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, CommonFilePermission) //nolint:gosec // G304: lock file inside the fixtures root
	if err != nil {
		return nil, fmt.Errorf("opening lock %s: %w", path, err)
	}

	if err := lockFile(int(file.Fd()), exclusive); err != nil {
		file.Close()
		return nil, fmt.Errorf("locking %s: %w", path, err)
	}

	return &RunLock{file: file}, nil
}

// Release drops the lock. The lock file itself is left in place.
func (lock *RunLock) Release() error {
	if lock == nil || lock.file == nil {
		return nil
	}

	unlockErr := unlockFile(int(lock.file.Fd()))
	closeErr := lock.file.Close()
	lock.file = nil

	if unlockErr != nil {
		return fmt.Errorf("unlocking: %w", unlockErr)
	}

	return closeErr
}
