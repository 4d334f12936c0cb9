package backend

import (
	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
)

// Passthrough wraps a real host FD obtained by opening a router-approved
// path on the host's overlay view, per spec.md §4.3. It is the handler
// family's equivalent of the teacher's PassThrough_Handler, minus the
// nsenter round-trip: here the host FD was already opened by the caller
// (e.g. the overlay) before being wrapped.
type Passthrough struct {
	HostFd int
}

func NewPassthrough(hostFd int) *Passthrough {
	return &Passthrough{HostFd: hostFd}
}

func (p *Passthrough) Tag() domain.BackendTag { return domain.BackendPassthrough }

func (p *Passthrough) Statx() (*domain.ExtendedStat, error) {
	var st unix.Stat_t
	if err := unix.Fstat(p.HostFd, &st); err != nil {
		return nil, err
	}
	return fromUnixStat(&st), nil
}

// Ioctl forwards directly to the host FD via the raw ioctl syscall. request
// and argp are already decoded/bridged by the caller (ioctl handler,
// spec.md §4.2); this backend does not interpret the payload shape.
func (p *Passthrough) Ioctl(request uint32, argp uintptr) (int64, error) {
	ret, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(p.HostFd), uintptr(request), argp)
	if errno != 0 {
		return 0, errno
	}
	return int64(ret), nil
}

func (p *Passthrough) HostFD() (int, bool) {
	return p.HostFd, true
}

func (p *Passthrough) Close() error {
	return unix.Close(p.HostFd)
}
