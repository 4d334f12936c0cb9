package handlers

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
	"github.com/nestybox/guestsup/internal/router"
	"github.com/nestybox/guestsup/internal/statx"
)

const atEmptyPath = 0x1000 // AT_EMPTY_PATH

// maxPathLen bounds the guest path buffer fstatat reads, per spec.md §9
// open question (b): a hard 256-byte cap, with truncation by the bridge
// for anything longer (unspecified behavior beyond that, as documented).
const maxPathLen = 256

// Fstatat implements the fstatat(dirfd, path_ptr, statbuf_addr, at_flags)
// handler per spec.md §4.2.
type Fstatat struct{}

func (Fstatat) Syscall() int32 { return int32(unix.SYS_NEWFSTATAT) }

func (h Fstatat) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	dirfd := int32(n.Args[0])
	pathAddr := n.Args[1]
	statbufAddr := n.Args[2]
	atFlags := n.Args[3]

	pathBuf := make([]byte, maxPathLen)
	pathStr, err := sv.Memory().ReadString(pathBuf, n.Pid, pathAddr)
	if err != nil {
		return domain.ErrorVerdict(errno.FAULT.Errno())
	}

	if atFlags&atEmptyPath != 0 && pathStr == "" {
		// Empty path + AT_EMPTY_PATH behaves as fstat(dirfd, statbuf_addr);
		// this shares fstat's unknown-caller-demoted-to-Continue exception
		// (spec.md §9 open question (a)).
		fstatN := n
		fstatN.Args[0] = uint64(dirfd)
		fstatN.Args[1] = statbufAddr
		return Fstat{}.Handle(fstatN, sv)
	}

	if _, ok := router.Normalize(pathStr); !ok {
		// Relative (or otherwise unnormalizable) paths are a known
		// limitation (spec.md §9): INVAL, not dirfd-relative resolution.
		return domain.ErrorVerdict(errno.INVAL.Errno())
	}

	verdict, err := sv.Router().Route(pathStr)
	if err != nil {
		return domain.ErrorVerdict(errno.INVAL.Errno())
	}
	if verdict.Block {
		return domain.ErrorVerdict(errno.PERM.Errno())
	}

	var caller *domain.Thread
	if verdict.Backend == domain.BackendProc {
		sv.Lock()
		c, ok := sv.GetThread(n.Pid)
		sv.Unlock()
		if !ok {
			return domain.ErrorVerdict(errno.SRCH.Errno())
		}
		caller = c

		if err := sv.SyncNewThreads(); err != nil {
			return domain.ErrorVerdict(errno.NOSYS.Errno())
		}
	}

	est, err := sv.StatxByPath(verdict.Backend, pathStr, caller)
	if err != nil {
		if isNotExist(err) {
			return domain.ErrorVerdict(errno.NOENT.Errno())
		}
		return domain.ErrorVerdict(errno.IO.Errno())
	}

	buf := statx.Bytes(statx.Translate(est))
	if err := sv.Memory().WriteSlice(buf, n.Pid, statbufAddr); err != nil {
		return domain.ErrorVerdict(errno.FAULT.Errno())
	}

	return domain.SuccessVerdict(0)
}
