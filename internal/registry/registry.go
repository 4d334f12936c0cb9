//
// Copyright 2019-2020 Nestybox, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//

// Package registry tracks guest threads, thread groups, and PID
// namespaces (spec.md §4.6), the same bookkeeping role the teacher's
// state/containerDB.go plays for containers, adapted from per-container
// identity to per-thread identity. All mutation happens under the caller's
// lock (the supervisor mutex); this package itself is not safe for
// unsynchronized concurrent use, by design (spec.md §5: the coarse
// supervisor mutex is the only lock).
package registry

import (
	"fmt"

	"github.com/nestybox/guestsup/internal/domain"
)

// Registry is the thread/thread-group/namespace table. A Supervisor holds
// exactly one.
type Registry struct {
	threads map[domain.AbsTid]*domain.Thread
	groups  map[domain.AbsTgid]*domain.ThreadGroup
	rootNs  *domain.Namespace
}

// New allocates an empty registry with a fresh root (init) namespace.
func New() *Registry {
	return &Registry{
		threads: make(map[domain.AbsTid]*domain.Thread),
		groups:  make(map[domain.AbsTgid]*domain.ThreadGroup),
		rootNs:  domain.NewNamespace(nil),
	}
}

// RootNamespace returns the registry's top-level (init) namespace.
func (r *Registry) RootNamespace() *domain.Namespace {
	return r.rootNs
}

// Init registers the supervisor's initial guest thread as the leader of
// its own thread group in the root namespace. Called once, at supervisor
// construction.
func (r *Registry) Init(tid domain.AbsTid) *domain.Thread {
	tgid := domain.AbsTgid(tid)
	group := domain.NewThreadGroup(tgid)
	r.groups[tgid] = group

	t := &domain.Thread{
		Tid:         tid,
		ThreadGroup: group,
		Namespace:   r.rootNs,
		FdTable:     domain.NewFileTable(),
	}
	group.Join(t)
	r.threads[tid] = t
	r.rootNs.Register(tid)

	return t
}

// Get resolves a thread by its absolute tid. Returns (nil, false) for an
// unknown caller, which handlers map to errno.SRCH (or, for fstat and
// fstatat's AT_EMPTY_PATH branch, to Continue per the documented
// compatibility exception in spec.md §9).
func (r *Registry) Get(tid domain.AbsTid) (*domain.Thread, bool) {
	t, ok := r.threads[tid]
	return t, ok
}

// RegisterChild creates a new thread for childTid, wiring its thread group
// and namespace membership according to cloneFlags, per spec.md §4.6:
//
//   - CLONE_THREAD: child joins parent's thread group (and therefore its
//     existing namespace).
//   - CLONE_NEWPID: child starts a namespace nested one level under the
//     parent's, in which it receives NsTid 1.
//   - Neither: child becomes the leader of a new thread group of its own,
//     but inherits the parent's namespace.
func (r *Registry) RegisterChild(
	parent *domain.Thread,
	childTid domain.AbsTid,
	cloneFlags domain.CloneFlags,
) (*domain.Thread, error) {

	if parent == nil {
		return nil, fmt.Errorf("registry: nil parent for child tid %d", childTid)
	}

	child := &domain.Thread{Tid: childTid}

	if cloneFlags&domain.CLONE_THREAD != 0 {
		child.ThreadGroup = parent.ThreadGroup
	} else {
		tgid := domain.AbsTgid(childTid)
		group := domain.NewThreadGroup(tgid)
		r.groups[tgid] = group
		child.ThreadGroup = group
	}

	if cloneFlags&domain.CLONE_NEWPID != 0 {
		child.Namespace = domain.NewNamespace(parent.Namespace)
	} else {
		child.Namespace = parent.Namespace
	}

	child.FdTable = domain.NewFileTable()
	child.ThreadGroup.Join(child)
	child.Namespace.Register(childTid)

	r.threads[childTid] = child

	return child, nil
}

// Remove drops a thread on exit: it leaves its thread group and namespace
// and is dropped from the registry. It does not tear down the thread
// group or namespace themselves (other members may still reference them);
// those are garbage only in the sense that nothing reaches them once
// their last member exits, which Go's GC reclaims on its own.
func (r *Registry) Remove(tid domain.AbsTid) {
	t, ok := r.threads[tid]
	if !ok {
		return
	}
	t.ThreadGroup.Leave(tid)
	t.Namespace.Unregister(tid)
	delete(r.threads, tid)
}

// SyncNewThreads is the hook a proc-backed handler calls before
// enumerating threads so recently cloned ones are visible (spec.md §4.6).
// In this in-process supervisor, RegisterChild already makes a thread
// visible synchronously, so there is nothing to reconcile; the method
// exists so the proc backend has a stable seam to call regardless of how
// thread discovery is eventually wired (e.g. a future out-of-band
// notification channel).
func (r *Registry) SyncNewThreads() error {
	return nil
}
