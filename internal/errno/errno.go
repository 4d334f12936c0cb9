//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package errno defines the kernel-compatible error kinds a handler may
// hand back to the dispatcher, and the logging-level policy that goes with
// each origin (guest-caused, backend-caused, or a supervisor bug).
package errno

import (
	"syscall"

	"github.com/sirupsen/logrus"
)

// Kind is a kernel errno family member a guest syscall may be failed with.
type Kind syscall.Errno

// Supported error kinds. Handlers never return errno values outside this
// set; the dispatcher forwards a handler's verdict without checking or
// narrowing its errno.
const (
	BADF  Kind = Kind(syscall.EBADF)
	SRCH  Kind = Kind(syscall.ESRCH)
	INVAL Kind = Kind(syscall.EINVAL)
	FAULT Kind = Kind(syscall.EFAULT)
	IO    Kind = Kind(syscall.EIO)
	NOENT Kind = Kind(syscall.ENOENT)
	NOSYS Kind = Kind(syscall.ENOSYS)
	PERM  Kind = Kind(syscall.EPERM)
)

// Errno converts a Kind to its positive syscall.Errno value; the guest
// syscall returns the negation of it.
func (k Kind) Errno() syscall.Errno {
	return syscall.Errno(k)
}

func (k Kind) Error() string {
	return syscall.Errno(k).Error()
}

// Origin classifies where an error kind came from, for logging purposes
// only; it never changes the kind returned to the guest.
type Origin int

const (
	// GuestCaused: bad fd, bad pointer, blocked path. Logged at info level.
	GuestCaused Origin = iota
	// BackendCaused: transient I/O, unsupported backend operation. Logged
	// at warn level.
	BackendCaused
)

// Log records an error kind at the level its origin dictates. Supervisor
// invariant violations never go through here: those panic at the call
// site instead of being logged and returned to the guest.
func Log(log *logrus.Logger, origin Origin, kind Kind, fields logrus.Fields) {
	entry := log.WithFields(fields).WithField("errno", kind.Error())
	switch origin {
	case GuestCaused:
		entry.Info("guest syscall rejected")
	case BackendCaused:
		entry.Warn("backend failed to service syscall")
	}
}
