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

// Package backend implements the File backend family (spec.md §4.3): the
// polymorphic {statx, ioctl, close-on-drop} capability set behind a
// virtual File, with event/passthrough/proc variants. Grounded on the
// teacher's tagged-dispatch design note (spec.md §9) and on
// handler/implementations/passThrough.go and procUptime.go for the
// concrete per-backend behavior.
package backend

import (
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
)

// Event wraps a host eventfd created on the guest's behalf (eventfd2
// handler, spec.md §4.2).
type Event struct {
	fd uint32 // host fd; unix.Eventfd returns an int, stored here narrowed to uint32
}

// NewEvent creates a host eventfd with the requested initial count and
// flags (EFD_CLOEXEC, EFD_NONBLOCK, EFD_SEMAPHORE bits as the guest
// passed them).
func NewEvent(count uint32, flags uint32) (*Event, error) {
	fd, err := unix.Eventfd(count, int(flags))
	if err != nil {
		return nil, err
	}
	return &Event{fd: uint32(fd)}, nil
}

func (e *Event) Tag() domain.BackendTag { return domain.BackendEvent }

func (e *Event) Statx() (*domain.ExtendedStat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(int(e.fd), &st); err != nil {
		return nil, err
	}
	return fromUnixStat(&st), nil
}

// Ioctl is not meaningful for an eventfd; no ioctl request this spec
// supports targets it.
func (e *Event) Ioctl(request uint32, argp uintptr) (int64, error) {
	return 0, syscall.ENOSYS
}

func (e *Event) HostFD() (int, bool) {
	return int(e.fd), true
}

func (e *Event) Close() error {
	return unix.Close(int(e.fd))
}

func fromUnixStat(st *unix.Stat_t) *domain.ExtendedStat {
	return &domain.ExtendedStat{
		Dev:     uint64(st.Dev),
		Ino:     st.Ino,
		Mode:    st.Mode,
		Nlink:   uint32(st.Nlink),
		Uid:     st.Uid,
		Gid:     st.Gid,
		Rdev:    uint64(st.Rdev),
		Size:    st.Size,
		Blksize: int64(st.Blksize),
		Blocks:  st.Blocks,
		Atime:   st.Atim,
		Mtime:   st.Mtim,
		Ctime:   st.Ctim,
	}
}
