package handlers

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
	"github.com/nestybox/guestsup/internal/statx"
)

// Fstat implements the fstat(fd, statbuf_addr) handler per spec.md §4.2.
type Fstat struct{}

func (Fstat) Syscall() int32 { return int32(unix.SYS_FSTAT) }

func (Fstat) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	vfd := int32(n.Args[0])
	statbufAddr := n.Args[1]

	// FDs 0-2 are host stdio passthrough; the kernel handles these
	// directly (spec.md §4.2).
	if vfd >= 0 && vfd <= 2 {
		return domain.ContinueVerdict()
	}

	sv.Lock()
	caller, ok := sv.GetThread(n.Pid)
	if !ok {
		sv.Unlock()
		// Unknown caller is intentionally demoted to Continue for fstat,
		// not SRCH, per spec.md §9 open question (a): preserved exactly,
		// not changed without explicit guidance.
		return domain.ContinueVerdict()
	}
	file := caller.FdTable.GetRef(vfd)
	sv.Unlock()

	if file == nil {
		return domain.ErrorVerdict(errno.BADF.Errno())
	}
	defer file.Unref()

	est, err := file.Backend.Statx()
	if err != nil {
		return domain.ErrorVerdict(errno.IO.Errno())
	}

	buf := statx.Bytes(statx.Translate(est))
	if err := sv.Memory().WriteSlice(buf, n.Pid, statbufAddr); err != nil {
		return domain.ErrorVerdict(errno.FAULT.Errno())
	}

	return domain.SuccessVerdict(0)
}
