package domain

import "sync"

// Thread is a guest thread as seen by the supervisor. It is created when
// the supervisor first observes the thread (init registration, or via
// registerChild on clone) and dropped from the registry when the thread
// exits (Registry.Remove). Mutated only under the supervisor mutex; callers
// never lock a Thread directly.
type Thread struct {
	Tid         AbsTid
	ThreadGroup *ThreadGroup
	Namespace   *Namespace
	FdTable     *FileTable
}

// ThreadGroup is a set of threads sharing a leader: the thread whose AbsTid
// equals the group's AbsTgid. Invariant: the leader is always reachable
// from every member; Leader() never returns nil for a live group.
type ThreadGroup struct {
	mu      sync.Mutex
	Tgid    AbsTgid
	leader  *Thread
	members map[AbsTid]*Thread

	// ProcRoPaths/ProcMaskPaths mirror the container-declared procfs
	// policy the original implementation tracks per container (see
	// domain.ContainerIface.ProcRoPaths/ProcMaskPaths in the teacher).
	// Nothing in this module populates or reads them.
	ProcRoPaths   []string
	ProcMaskPaths []string
}

// NewThreadGroup allocates an empty group for tgid. Its leader is the
// thread whose AbsTid equals tgid, once callers add it via Join.
func NewThreadGroup(tgid AbsTgid) *ThreadGroup {
	return &ThreadGroup{
		Tgid:    tgid,
		members: make(map[AbsTid]*Thread),
	}
}

// Join adds t as a member of the group. If t.Tid == group.Tgid, t becomes
// (or replaces) the leader.
func (g *ThreadGroup) Join(t *Thread) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[t.Tid] = t
	if AbsTgid(t.Tid) == g.Tgid {
		g.leader = t
	}
}

// Leave removes t from the group's membership.
func (g *ThreadGroup) Leave(tid AbsTid) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.members, tid)
}

// Leader returns the group's leader thread. Per the invariant in spec.md
// §3, this is never nil for a live group; a nil return here is a
// supervisor bug and callers should panic rather than propagate it to the
// guest.
func (g *ThreadGroup) Leader() *Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.leader
}

// Members returns a snapshot slice of the group's current member threads.
func (g *ThreadGroup) Members() []*Thread {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Thread, 0, len(g.members))
	for _, t := range g.members {
		out = append(out, t)
	}
	return out
}

// Namespace maps a Thread to the NsTid it is known by inside this
// namespace level. Invariant: every thread registered in a namespace is
// locatable via GetNsTid; violating this is a supervisor bug (panic).
type Namespace struct {
	mu     sync.Mutex
	Level  int
	parent *Namespace
	nsTids map[AbsTid]NsTid
	// nextFree is the next NsTid to hand out to a newly registered thread,
	// starting at 1 (pid 1 is reserved for the namespace's own init/leader
	// thread, matching Linux PID namespace semantics).
	nextFree NsTid
}

// NewNamespace allocates an empty namespace nested under parent (nil for
// the root/init namespace).
func NewNamespace(parent *Namespace) *Namespace {
	level := 0
	if parent != nil {
		level = parent.Level + 1
	}
	return &Namespace{
		Level:    level,
		parent:   parent,
		nsTids:   make(map[AbsTid]NsTid),
		nextFree: 1,
	}
}

// Register assigns the thread its namespaced id in this namespace level.
// The first thread registered in a freshly created namespace always
// receives NsTid 1 (it becomes that namespace's "init" thread), matching
// CLONE_NEWPID semantics.
func (ns *Namespace) Register(t AbsTid) NsTid {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	if existing, ok := ns.nsTids[t]; ok {
		return existing
	}
	id := ns.nextFree
	ns.nsTids[t] = id
	ns.nextFree++
	return id
}

// GetNsTid returns the namespaced id for thread t within this namespace.
// The bool is false only if t was never registered here, which the
// invariant in spec.md §3 says should never happen for a thread that is
// genuinely a member of this namespace; callers that rely on the
// invariant (e.g. getpid) should panic on false rather than propagate it.
func (ns *Namespace) GetNsTid(t AbsTid) (NsTid, bool) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	id, ok := ns.nsTids[t]
	return id, ok
}

// Unregister removes a thread's mapping (on thread exit).
func (ns *Namespace) Unregister(t AbsTid) {
	ns.mu.Lock()
	defer ns.mu.Unlock()
	delete(ns.nsTids, t)
}
