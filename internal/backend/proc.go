package backend

import (
	"syscall"
	"time"

	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
)

// Proc is a synthetic procfs node: content sysbox-fs (and here, this
// supervisor) generates itself rather than reading from the host's real
// /proc, grounded on handler/implementations/procUptime.go and
// procMeminfo.go. It has no real host FD; statxByPath synthesizes a stat
// result instead of calling Fstat on anything.
type Proc struct {
	NodePath string
	Size     int64
	Mode     uint32 // e.g. 0444 for a read-only virtual node
	Uid      uint32
	Gid      uint32
}

// NewProc builds a Proc backend for a virtual node owned by uid/gid, with
// the default read-only mode the teacher's procfs substitutions use
// (procUptime.go, procMeminfo.go are all world-readable, owner-writable
// only where the handler explicitly emulates writes like
// procSysKernel.go's panic/panic_on_oops knobs).
func NewProc(path string, uid, gid uint32) *Proc {
	return &Proc{NodePath: path, Mode: 0444, Uid: uid, Gid: gid}
}

func (p *Proc) Tag() domain.BackendTag { return domain.BackendProc }

func (p *Proc) Statx() (*domain.ExtendedStat, error) {
	now := time.Now()
	ts := unix.NsecToTimespec(now.UnixNano())
	return &domain.ExtendedStat{
		Dev:     0,
		Ino:     0,
		Mode:    unix.S_IFREG | p.Mode,
		Nlink:   1,
		Uid:     p.Uid,
		Gid:     p.Gid,
		Rdev:    0,
		Size:    p.Size,
		Blksize: 4096,
		Blocks:  (p.Size + 511) / 512,
		Atime:   ts,
		Mtime:   ts,
		Ctime:   ts,
	}, nil
}

func (p *Proc) Ioctl(request uint32, argp uintptr) (int64, error) {
	return 0, syscall.ENOSYS
}

func (p *Proc) HostFD() (int, bool) {
	return -1, false
}

func (p *Proc) Close() error {
	return nil
}
