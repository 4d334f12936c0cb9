package domain

// Notification is the decoded form of a kernel-delivered record describing
// a filtered guest syscall, per spec.md §3/§6. The wire decoding of the
// real seccomp-notify message is out of this core's scope (spec.md §1);
// callers (the out-of-scope transport) hand the core already-decoded
// Notifications, shaped the way libseccomp's ScmpNotifReq is in the
// teacher's seccomp/tracer.go.
type Notification struct {
	Id      uint64
	Pid     AbsTid
	Syscall int32
	Args    [6]uint64
}

// VerdictKind is the outcome a handler hands back to the dispatcher for a
// given notification.
type VerdictKind int

const (
	// Success: the guest syscall returns Value.
	Success VerdictKind = iota
	// Error: the guest syscall returns -Kind.
	Error
	// Continue: the kernel proceeds with the original syscall unmodified.
	Continue
)

// AddFD describes an addfd side effect: install hostFD into the guest's
// kernel FD table at vfd, with the given cloexec bit. Handlers perform it
// by calling NotifyEndpoint.AddFD themselves.
type AddFD struct {
	HostFD  int
	Vfd     int32
	Cloexec bool
}

// Verdict is the dispatcher's reply to the kernel for a given notification.
type Verdict struct {
	Kind  VerdictKind
	Value int64  // meaningful when Kind == Success
	Err   error  // meaningful when Kind == Error; a syscall.Errno from errno.Kind.Errno()
	FD    *AddFD // not acted on by Dispatcher.Run
}

func SuccessVerdict(value int64) Verdict {
	return Verdict{Kind: Success, Value: value}
}

func ErrorVerdict(err error) Verdict {
	return Verdict{Kind: Error, Err: err}
}

func ContinueVerdict() Verdict {
	return Verdict{Kind: Continue}
}

// NotifyEndpoint is the kernel notification transport's interface to the
// core, per spec.md §6. The core never decodes the raw wire format; it
// only calls Reply/AddFD against an endpoint handed to it at construction.
type NotifyEndpoint interface {
	// Recv blocks for the next notification.
	Recv() (Notification, error)
	// Reply sends the dispatcher's verdict back to the kernel for the
	// notification identified by id.
	Reply(id uint64, v Verdict) error
	// AddFD installs hostFD into the guest's kernel FD table at vfd. May
	// block on the kernel endpoint; callers must invoke it outside the
	// supervisor mutex (spec.md §5).
	AddFD(id uint64, hostFD int, vfd int32, cloexec bool) error
}

// Handler implements the virtualization policy for exactly one syscall
// number. Implementations run to completion per notification: they never
// yield mid-request (spec.md §4.2).
type Handler interface {
	// Syscall returns the syscall number this handler services.
	Syscall() int32
	// Handle processes one notification and returns the verdict to send
	// back to the kernel.
	Handle(n Notification, sv Supervisor) Verdict
}

// Supervisor is the minimal surface handlers need from the root aggregate:
// registries, memory bridge, overlay, and the notify endpoint for addfd.
// The concrete *supervisor.Supervisor satisfies this; it is expressed here
// as an interface so handler implementations (in package handlers) do not
// import package supervisor, avoiding an import cycle.
type Supervisor interface {
	// Lock/Unlock bound the critical section handlers use around
	// registry and FD-table work (spec.md §5). Callers must not perform
	// blocking I/O while holding the lock.
	Lock()
	Unlock()

	// GetThread resolves a caller by AbsTid. Must be called under Lock.
	GetThread(tid AbsTid) (*Thread, bool)

	// Memory is the guest memory bridge.
	Memory() MemoryBridge

	// Notify is the kernel notification endpoint, for addfd.
	Notify() NotifyEndpoint

	// Router classifies absolute paths for path-based handlers.
	Router() PathRouter

	// StatxByPath performs a path-based stat through the overlay/backend
	// family without opening a file (spec.md §4.3).
	StatxByPath(tag BackendTag, path string, caller *Thread) (*ExtendedStat, error)

	// SyncNewThreads lets a proc-backed handler ensure recently cloned
	// threads are visible before it enumerates them (spec.md §4.6).
	SyncNewThreads() error

	// NewEventBackend constructs a fresh event backend (eventfd2).
	NewEventBackend(count uint32, flags uint32) (Backend, error)
}

// RouteVerdict is the Path Router's result for a given absolute path.
type RouteVerdict struct {
	Block   bool
	Backend BackendTag
}

// PathRouter classifies absolute, normalized paths. Pure and deterministic
// per spec.md §4.4; the concrete routing table is policy and out of the
// core's scope.
type PathRouter interface {
	Route(path string) (RouteVerdict, error)
}

// MemoryBridge reads/writes a guest's address space by host PID, per
// spec.md §4.5.
type MemoryBridge interface {
	ReadSlice(dst []byte, pid AbsTid, addr uint64) error
	WriteSlice(src []byte, pid AbsTid, addr uint64) error
	ReadString(buf []byte, pid AbsTid, addr uint64) (string, error)
}
