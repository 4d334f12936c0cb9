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

// Package handlers implements the per-syscall virtualization policy
// (spec.md §4.2), grounded on the teacher's seccomp/tracer.go process*
// methods: resolve the caller, do the minimal work under the supervisor
// mutex, run anything that may block outside it, and return a verdict.
package handlers

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

const EFD_CLOEXEC = 0x80000 // same value as unix.O_CLOEXEC, which eventfd2 reuses for this flag

// Eventfd2 implements the eventfd2(count, flags) handler per spec.md §4.2.
type Eventfd2 struct{}

func (Eventfd2) Syscall() int32 { return int32(unix.SYS_EVENTFD2) }

func (Eventfd2) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	count := uint32(n.Args[0])
	flags := uint32(n.Args[1])

	backend, err := sv.NewEventBackend(count, flags)
	if err != nil {
		return domain.ErrorVerdict(errno.IO.Errno())
	}

	file := domain.NewFile(backend)
	cloexec := flags&EFD_CLOEXEC != 0

	sv.Lock()
	caller, ok := sv.GetThread(n.Pid)
	if !ok {
		sv.Unlock()
		// Nobody will ever reference this file now; release it.
		file.Unref()
		return domain.ErrorVerdict(errno.SRCH.Errno())
	}
	// Take a reference of our own for the addfd step below; the one
	// NewFile returned is handed over to the table by Insert.
	file.Ref()
	vfd := caller.FdTable.Insert(file, domain.InsertOpts{Cloexec: cloexec})
	sv.Unlock()
	defer file.Unref()

	hostFD, ok := backend.HostFD()
	if !ok {
		caller.FdTable.Rollback(vfd)
		return domain.ErrorVerdict(errno.IO.Errno())
	}

	// addfd may block on the kernel endpoint; it must run outside the
	// mutex (spec.md §5), and we hold our own reference taken before
	// Insert, so the file cannot be torn down underneath us.
	if err := sv.Notify().AddFD(n.Id, hostFD, vfd, cloexec); err != nil {
		caller.FdTable.Rollback(vfd)
		return domain.ErrorVerdict(errno.IO.Errno())
	}

	return domain.SuccessVerdict(int64(vfd))
}
