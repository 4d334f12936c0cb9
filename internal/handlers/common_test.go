package handlers

import (
	"errors"
	"sync"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/registry"
)

// fakeMemory is an in-process stand-in for the guest memory bridge: it
// backs a notional address space with a plain byte slice, so handler tests
// never need a real /proc/<pid>/mem.
type fakeMemory struct {
	mu   sync.Mutex
	mem  map[domain.AbsTid][]byte
	fail bool
}

func newFakeMemory() *fakeMemory {
	return &fakeMemory{mem: make(map[domain.AbsTid][]byte)}
}

func (m *fakeMemory) space(pid domain.AbsTid) []byte {
	s, ok := m.mem[pid]
	if !ok {
		s = make([]byte, 65536)
		m.mem[pid] = s
	}
	return s
}

func (m *fakeMemory) ReadSlice(dst []byte, pid domain.AbsTid, addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("fake memory read failure")
	}
	copy(dst, m.space(pid)[addr:])
	return nil
}

func (m *fakeMemory) WriteSlice(src []byte, pid domain.AbsTid, addr uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("fake memory write failure")
	}
	copy(m.space(pid)[addr:], src)
	return nil
}

func (m *fakeMemory) ReadString(buf []byte, pid domain.AbsTid, addr uint64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", errors.New("fake memory read failure")
	}
	n := copy(buf, m.space(pid)[addr:])
	for i := 0; i < n; i++ {
		if buf[i] == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf[:n]), nil
}

// fakeNotify stands in for the kernel notification endpoint, recording
// AddFD calls so tests can assert on the addfd side effect without a real
// seccomp-notify fd.
type fakeNotify struct {
	addFDCalls []domain.AddFD
	addFDErr   error
}

func (n *fakeNotify) Recv() (domain.Notification, error) { return domain.Notification{}, errors.New("not implemented") }
func (n *fakeNotify) Reply(id uint64, v domain.Verdict) error { return nil }

func (n *fakeNotify) AddFD(id uint64, hostFD int, vfd int32, cloexec bool) error {
	if n.addFDErr != nil {
		return n.addFDErr
	}
	n.addFDCalls = append(n.addFDCalls, domain.AddFD{HostFD: hostFD, Vfd: vfd, Cloexec: cloexec})
	return nil
}

// fakeRouter lets tests pin a fixed verdict (or error) for every path,
// independent of package router's radix-tree behavior (covered by its own
// tests).
type fakeRouter struct {
	verdict domain.RouteVerdict
	err     error
}

func (r *fakeRouter) Route(path string) (domain.RouteVerdict, error) {
	return r.verdict, r.err
}

// fakeEventBackend is a Backend double for eventfd2 tests: it never opens a
// real host eventfd, so tests can run without CAP_SYS_ADMIN or even a Linux
// host.
type fakeEventBackend struct {
	hostFD     int
	hasHostFD  bool
	closed     bool
	closeErr   error
}

func (b *fakeEventBackend) Tag() domain.BackendTag { return domain.BackendEvent }
func (b *fakeEventBackend) Statx() (*domain.ExtendedStat, error) { return &domain.ExtendedStat{}, nil }
func (b *fakeEventBackend) Ioctl(request uint32, argp uintptr) (int64, error) { return 0, errors.New("ENOSYS") }
func (b *fakeEventBackend) HostFD() (int, bool) { return b.hostFD, b.hasHostFD }
func (b *fakeEventBackend) Close() error {
	b.closed = true
	return b.closeErr
}

// statBackend is a Backend double that returns a fixed Statx result and
// records Ioctl invocations, for fstat/fstatat/ioctl handler tests.
type statBackend struct {
	stat       *domain.ExtendedStat
	statErr    error
	ioctlRet   int64
	ioctlErr   error
	lastArgp   uintptr
	ioctlCalls int
}

func (b *statBackend) Tag() domain.BackendTag { return domain.BackendPassthrough }
func (b *statBackend) Statx() (*domain.ExtendedStat, error) { return b.stat, b.statErr }
func (b *statBackend) Ioctl(request uint32, argp uintptr) (int64, error) {
	b.ioctlCalls++
	b.lastArgp = argp
	return b.ioctlRet, b.ioctlErr
}
func (b *statBackend) HostFD() (int, bool) { return -1, false }
func (b *statBackend) Close() error        { return nil }

// fakeSupervisor implements domain.Supervisor over a real registry.Registry
// (already covered by package registry's own tests) plus test-controllable
// doubles for everything else a handler touches.
type fakeSupervisor struct {
	mu sync.Mutex

	reg *registry.Registry

	mem    *fakeMemory
	notify *fakeNotify
	router *fakeRouter

	eventBackend    domain.Backend
	eventBackendErr error

	statxResult *domain.ExtendedStat
	statxErr    error

	syncErr error
}

func newFakeSupervisor() *fakeSupervisor {
	sv := &fakeSupervisor{
		reg:    registry.New(),
		mem:    newFakeMemory(),
		notify: &fakeNotify{},
		router: &fakeRouter{verdict: domain.RouteVerdict{Backend: domain.BackendPassthrough}},
	}
	return sv
}

func (sv *fakeSupervisor) Lock()   { sv.mu.Lock() }
func (sv *fakeSupervisor) Unlock() { sv.mu.Unlock() }

func (sv *fakeSupervisor) GetThread(tid domain.AbsTid) (*domain.Thread, bool) {
	return sv.reg.Get(tid)
}

func (sv *fakeSupervisor) Memory() domain.MemoryBridge      { return sv.mem }
func (sv *fakeSupervisor) Notify() domain.NotifyEndpoint    { return sv.notify }
func (sv *fakeSupervisor) Router() domain.PathRouter        { return sv.router }

func (sv *fakeSupervisor) StatxByPath(tag domain.BackendTag, path string, caller *domain.Thread) (*domain.ExtendedStat, error) {
	return sv.statxResult, sv.statxErr
}

func (sv *fakeSupervisor) SyncNewThreads() error { return sv.syncErr }

func (sv *fakeSupervisor) NewEventBackend(count uint32, flags uint32) (domain.Backend, error) {
	return sv.eventBackend, sv.eventBackendErr
}
