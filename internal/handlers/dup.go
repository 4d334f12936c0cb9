package handlers

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

// Dup implements dup(oldfd): duplicate a File reference under a new vfd.
// Linux semantics: dup never preserves the cloexec bit, regardless of the
// original fd's flag (unlike dup3, which this spec does not name).
type Dup struct{}

func (Dup) Syscall() int32 { return int32(unix.SYS_DUP) }

func (Dup) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	oldfd := int32(n.Args[0])

	sv.Lock()
	caller, ok := sv.GetThread(n.Pid)
	if !ok {
		sv.Unlock()
		return domain.ErrorVerdict(errno.SRCH.Errno())
	}

	file := caller.FdTable.GetRef(oldfd)
	if file == nil {
		sv.Unlock()
		return domain.ErrorVerdict(errno.BADF.Errno())
	}

	newfd := caller.FdTable.Insert(file, domain.InsertOpts{Cloexec: false})
	sv.Unlock()

	return domain.SuccessVerdict(int64(newfd))
}
