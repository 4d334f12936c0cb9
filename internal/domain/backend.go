package domain

import (
	"golang.org/x/sys/unix"
)

// BackendTag names a File's concrete backend implementation. Modeled as a
// small fixed tagged variant per spec.md §4.3 / design note in spec.md §9
// ("dynamic dispatch over file backends"), mirroring the teacher's
// HandlerType enum in domain/handler.go.
type BackendTag int

const (
	BackendEvent BackendTag = iota
	BackendPassthrough
	BackendProc
)

func (t BackendTag) String() string {
	switch t {
	case BackendEvent:
		return "event"
	case BackendPassthrough:
		return "passthrough"
	case BackendProc:
		return "proc"
	default:
		return "unknown"
	}
}

// Backend is the capability set every File implementation exposes,
// grounded on domain.HandlerIface's Getattr/Open/Close shape but narrowed
// to the operations this spec's handlers actually invoke (statx, ioctl,
// close-on-drop).
type Backend interface {
	Tag() BackendTag

	// Statx produces an extended stat result for this backend's current
	// state. Handlers translate the result to the legacy stat ABI.
	Statx() (*ExtendedStat, error)

	// Ioctl invokes the backend's ioctl with the decoded request/arg. argp
	// is either an integer (size-0 requests) or a pointer to a host
	// buffer the handler has already bridged guest memory into/out of.
	Ioctl(request uint32, argp uintptr) (int64, error)

	// HostFD returns the real host file descriptor backing this File, if
	// any (used by eventfd2's addfd side effect). Backends with no real
	// host FD (e.g. a pure proc synthetic node) return (-1, false).
	HostFD() (int, bool)

	// Close tears down any backend-specific resource. Invoked exactly
	// once, when the File's refcount reaches zero.
	Close() error
}

// ExtendedStat is the internal statx-shaped result a Backend produces;
// statx.Translate (package statx) maps it onto the legacy unix.Stat_t ABI
// per spec.md §6.
type ExtendedStat struct {
	Dev     uint64
	Ino     uint64
	Mode    uint32
	Nlink   uint32
	Uid     uint32
	Gid     uint32
	Rdev    uint64
	Size    int64
	Blksize int64
	Blocks  int64
	Atime   unix.Timespec
	Mtime   unix.Timespec
	Ctime   unix.Timespec
}
