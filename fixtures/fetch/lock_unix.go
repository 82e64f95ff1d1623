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

//go:build !windows

package fetch

import "golang.org/x/sys/unix"

// lockFile blocks until the advisory flock on fd is granted. Status runs take
// it shared so they can overlap; fetch runs take it exclusive.
func lockFile(fd int, exclusive bool) error {
	how := unix.LOCK_SH
	if exclusive {
		how = unix.LOCK_EX
	}

	return unix.Flock(fd, how)
}

// unlockFile drops the flock taken by lockFile. Closing fd would drop it too.
func unlockFile(fd int) error {
	return unix.Flock(fd, unix.LOCK_UN)
}
