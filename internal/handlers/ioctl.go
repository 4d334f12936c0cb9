package handlers

import (
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

// maxIoctlPayload is a hard-coded supervisor policy, not a kernel limit
// (spec.md §9, open question (c)): it bounds the fixed host buffer used to
// bridge ioctl payloads so a single notification can never force an
// unbounded stack/heap allocation.
const maxIoctlPayload = 256

// ioctl request encoding bit layout (matches Linux's _IOC macros): the
// 14-bit "size" field sits at bits 16-29 and the direction field at bits
// 30-31 (only size and direction are decoded here); direction bits signal
// guest->host and/or host->guest payload copies.
const (
	iocSizeShift = 16
	iocSizeMask  = 0x3fff
	iocDirShift  = 30
	iocDirNone   = 0
	iocWrite     = 1 // guest writes into argp before the call: write-from-guest
	iocRead      = 2 // kernel writes into argp after the call: read-to-guest
)

func iocSize(request uint32) int {
	return int((request >> iocSizeShift) & iocSizeMask)
}

func iocDir(request uint32) int {
	return int(request >> iocDirShift)
}

// Ioctl implements the ioctl(fd, request, argp) handler per spec.md §4.2.
type Ioctl struct{}

func (Ioctl) Syscall() int32 { return int32(unix.SYS_IOCTL) }

func (Ioctl) Handle(n domain.Notification, sv domain.Supervisor) domain.Verdict {
	vfd := int32(n.Args[0])
	request := uint32(n.Args[1])
	argp := n.Args[2]

	sv.Lock()
	caller, ok := sv.GetThread(n.Pid)
	if !ok {
		sv.Unlock()
		return domain.ErrorVerdict(errno.SRCH.Errno())
	}
	file := caller.FdTable.GetRef(vfd)
	sv.Unlock()

	if file == nil {
		return domain.ErrorVerdict(errno.BADF.Errno())
	}
	defer file.Unref()

	size := iocSize(request)

	if size == 0 {
		ret, err := file.Backend.Ioctl(request, uintptr(argp))
		if err != nil {
			return domain.ErrorVerdict(errno.IO.Errno())
		}
		return domain.SuccessVerdict(ret)
	}

	if size > maxIoctlPayload {
		return domain.ErrorVerdict(errno.INVAL.Errno())
	}

	buf := make([]byte, size)

	dir := iocDir(request)
	if dir&iocWrite != 0 {
		if err := sv.Memory().ReadSlice(buf, n.Pid, argp); err != nil {
			return domain.ErrorVerdict(errno.FAULT.Errno())
		}
	}

	ret, err := file.Backend.Ioctl(request, uintptr(unsafe.Pointer(&buf[0])))
	if err != nil {
		return domain.ErrorVerdict(errno.IO.Errno())
	}

	if dir&iocRead != 0 {
		if err := sv.Memory().WriteSlice(buf, n.Pid, argp); err != nil {
			return domain.ErrorVerdict(errno.FAULT.Errno())
		}
	}

	return domain.SuccessVerdict(ret)
}
