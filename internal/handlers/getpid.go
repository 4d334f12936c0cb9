package handlers

import (
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

// Getpid implements the getpid() handler per spec.md §4.2.
type Getpid struct{}

func (Getpid) Syscall() int32 { return int32(unix.SYS_GETPID) }

func (Getpid) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	sv.Lock()
	defer sv.Unlock()

	caller, ok := sv.GetThread(n.Pid)
	if !ok {
		return domain.ErrorVerdict(errno.SRCH.Errno())
	}

	leader := caller.ThreadGroup.Leader()
	if leader == nil {
		// ThreadGroup.Leader() is documented (spec.md §3) to never be nil
		// for a live group; seeing nil here means the registry let a
		// group exist without ever Join()-ing its leader thread, a
		// supervisor bug, not a guest-reachable condition.
		panic("guestsup: thread group has no leader")
	}

	nsTid, ok := leader.Namespace.GetNsTid(leader.Tid)
	if !ok {
		// A thread's own namespace not containing its leader violates the
		// Namespace invariant in spec.md §3 and must panic rather than
		// surface to the guest.
		panic(fmt.Sprintf("guestsup: namespace missing its own leader (tid %d)", leader.Tid))
	}

	return domain.SuccessVerdict(int64(nsTid))
}
