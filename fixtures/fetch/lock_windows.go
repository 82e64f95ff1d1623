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

//go:build windows

package fetch

import (
	"math"

	"golang.org/x/sys/windows"
)

// lockFile blocks until LockFileEx grants a lock over the whole lock file.
// Without exclusive the lock is shared between readers.
func lockFile(fd int, exclusive bool) error {
	var flags uint32
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}

	overlapped := new(windows.Overlapped)

	return windows.LockFileEx(windows.Handle(fd), flags, 0, math.MaxUint32, math.MaxUint32, overlapped)
}

// unlockFile releases the range taken by lockFile.
func unlockFile(fd int) error {
	overlapped := new(windows.Overlapped)

	return windows.UnlockFileEx(windows.Handle(fd), 0, math.MaxUint32, math.MaxUint32, overlapped)
}
