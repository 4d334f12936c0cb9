package handlers

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

// Close implements close(fd): drop the caller's FD-table entry and the
// reference it held. Supplements spec.md §4.2's named handlers so
// FileTable.Remove's refcount invariant (spec.md §8 Invariant 3) has a
// second caller besides tests exercising it directly.
type Close struct{}

func (Close) Syscall() int32 { return int32(unix.SYS_CLOSE) }

func (Close) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	vfd := int32(n.Args[0])

	sv.Lock()
	defer sv.Unlock()

	caller, ok := sv.GetThread(n.Pid)
	if !ok {
		return domain.ErrorVerdict(errno.SRCH.Errno())
	}

	if !caller.FdTable.Remove(vfd) {
		return domain.ErrorVerdict(errno.BADF.Errno())
	}

	return domain.SuccessVerdict(0)
}
