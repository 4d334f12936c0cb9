package handlers

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

func writeGuestPath(mem *fakeMemory, pid domain.AbsTid, addr uint64, path string) {
	b := append([]byte(path), 0)
	copy(mem.space(pid)[addr:], b)
}

// S6: fstatat against an absolute path the router has blocked returns PERM,
// with no memory write (the caller's stat buffer is never touched).
func Test_Fstatat_S6_BlockedPathIsPermWithNoWrite(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)
	sv.router.verdict = domain.RouteVerdict{Block: true}

	writeGuestPath(sv.mem, 100, 0x1000, "/proc/kcore")

	n := domain.Notification{Pid: 100}
	n.Args[0] = uint64(^uint32(0)) // AT_FDCWD-ish, irrelevant for absolute paths
	n.Args[1] = 0x1000
	n.Args[2] = 0x2000

	before := make([]byte, 64)
	copy(before, sv.mem.space(100)[0x2000:0x2000+64])

	v := Fstatat{}.Handle(n, sv)

	require.Equal(t, domain.Error, v.Kind)
	assert.Equal(t, errno.PERM.Errno(), v.Err)
	assert.Equal(t, before, sv.mem.space(100)[0x2000:0x2000+64], "a blocked path must never reach the memory bridge write")
}

func Test_Fstatat_RelativePathIsInval(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)
	writeGuestPath(sv.mem, 100, 0x1000, "relative/path")

	n := domain.Notification{Pid: 100}
	n.Args[1] = 0x1000

	v := Fstatat{}.Handle(n, sv)
	assert.Equal(t, errno.INVAL.Errno(), v.Err)
}

func Test_Fstatat_EmptyPathWithAtEmptyPathDelegatesToFstat(t *testing.T) {
	sv := newFakeSupervisor()
	caller := sv.reg.Init(100)
	be := &statBackend{stat: &domain.ExtendedStat{}}
	vfd := openStatFile(t, sv, caller, be)

	writeGuestPath(sv.mem, 100, 0x1000, "")

	n := domain.Notification{Pid: 100}
	n.Args[0] = uint64(vfd)
	n.Args[1] = 0x1000
	n.Args[2] = 0x2000
	n.Args[3] = atEmptyPath

	v := Fstatat{}.Handle(n, sv)
	require.Equal(t, domain.Success, v.Kind)
	assert.Equal(t, 0, be.ioctlCalls, "delegating to fstat must reach Statx, not Ioctl")
}

func Test_Fstatat_NotExistMapsToNoent(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)
	sv.statxErr = os.ErrNotExist

	writeGuestPath(sv.mem, 100, 0x1000, "/missing")

	n := domain.Notification{Pid: 100}
	n.Args[1] = 0x1000

	v := Fstatat{}.Handle(n, sv)
	assert.Equal(t, errno.NOENT.Errno(), v.Err)
}

func Test_Fstatat_SuccessWritesStat(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)
	sv.statxResult = &domain.ExtendedStat{Size: 4096}

	writeGuestPath(sv.mem, 100, 0x1000, "/etc/hostname")

	n := domain.Notification{Pid: 100}
	n.Args[1] = 0x1000
	n.Args[2] = 0x4000

	v := Fstatat{}.Handle(n, sv)
	require.Equal(t, domain.Success, v.Kind)
}

func Test_Fstatat_ProcBackendSyncsNewThreadsFirst(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)
	sv.router.verdict = domain.RouteVerdict{Backend: domain.BackendProc}
	sv.statxResult = &domain.ExtendedStat{}

	writeGuestPath(sv.mem, 100, 0x1000, "/proc/uptime")

	n := domain.Notification{Pid: 100}
	n.Args[1] = 0x1000
	n.Args[2] = 0x4000

	v := Fstatat{}.Handle(n, sv)
	require.Equal(t, domain.Success, v.Kind)
}

func Test_Fstatat_ProcBackendSyncFailureIsNosys(t *testing.T) {
	sv := newFakeSupervisor()
	sv.reg.Init(100)
	sv.router.verdict = domain.RouteVerdict{Backend: domain.BackendProc}
	sv.syncErr = errHostCreationFailed

	writeGuestPath(sv.mem, 100, 0x1000, "/proc/uptime")

	n := domain.Notification{Pid: 100}
	n.Args[1] = 0x1000

	v := Fstatat{}.Handle(n, sv)
	assert.Equal(t, errno.NOSYS.Errno(), v.Err)
}
