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

// Package supervisor implements the root aggregate (spec.md §3/§6): it
// holds the mutex, registries, overlay, logger, and notify endpoint, and
// is the concrete type satisfying domain.Supervisor. Grounded on the
// teacher's fs.go/grpcServer.go Setup-wiring style: explicit constructor
// taking every collaborator, no package-level globals, no env var reads.
package supervisor

import (
	"fmt"
	"io"
	"sync"

	"github.com/nestybox/sysbox-libs/formatter"
	"github.com/sirupsen/logrus"

	"github.com/nestybox/guestsup/internal/backend"
	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/logging"
	"github.com/nestybox/guestsup/internal/memory"
	"github.com/nestybox/guestsup/internal/overlay"
	"github.com/nestybox/guestsup/internal/registry"
	"github.com/nestybox/guestsup/internal/router"
)

// Config holds everything a Supervisor is constructed with, per spec.md
// §6: allocator and IO context are implicit in Go (GC and the standard
// library), so Config carries the rest explicitly.
type Config struct {
	// SandboxID uniquely identifies this sandbox instance, used only for
	// log-line correlation.
	SandboxID string

	// Notify is the kernel notification transport endpoint.
	Notify domain.NotifyEndpoint

	// InitThread is the absolute tid of the guest's first observed thread.
	InitThread domain.AbsTid

	// Stdout/Stderr are the two log sinks spec.md §6 names.
	Stdout io.Writer
	Stderr io.Writer

	// Routes seeds the path router's routing table. Concrete routing
	// policy is out of this core's scope (spec.md §4.4); callers supply
	// it.
	Routes []router.Route
}

// Supervisor is the root aggregate: {mutex, registries, overlay, logger,
// notify endpoint} per spec.md §3.
type Supervisor struct {
	mu sync.Mutex

	sandboxID string
	notify    domain.NotifyEndpoint
	sinks     *logging.Sinks

	registry *registry.Registry
	router   *router.Router
	overlay  *overlay.Root
	mem      *memory.ProcfsBridge
}

var _ domain.Supervisor = (*Supervisor)(nil)

// New constructs a Supervisor, registers its initial guest thread, and
// returns it ready to have handlers registered against a dispatcher.
func New(cfg Config) *Supervisor {
	sv := &Supervisor{
		sandboxID: cfg.SandboxID,
		notify:    cfg.Notify,
		sinks:     logging.New(cfg.Stdout, cfg.Stderr),
		registry:  registry.New(),
		router:    router.New(cfg.Routes),
		overlay:   overlay.New(nil, nil),
		mem:       memory.New(),
	}

	sv.registry.Init(cfg.InitThread)

	sv.sinks.Out.WithField("sandbox", formatter.ContainerID{cfg.SandboxID}).
		Info("supervisor initialized")

	return sv
}

// SetOverlay replaces the overlay root (e.g. to wire a real afero.OsFs
// host layer plus a synthetic layer seeded by the caller). Exists so
// construction can stay infallible in New and overlay wiring can be done
// by whatever assembles the sandbox (out of this core's scope).
func (sv *Supervisor) SetOverlay(o *overlay.Root) {
	sv.overlay = o
}

func (sv *Supervisor) Lock()   { sv.mu.Lock() }
func (sv *Supervisor) Unlock() { sv.mu.Unlock() }

func (sv *Supervisor) GetThread(tid domain.AbsTid) (*domain.Thread, bool) {
	return sv.registry.Get(tid)
}

func (sv *Supervisor) Memory() domain.MemoryBridge {
	return sv.mem
}

func (sv *Supervisor) Notify() domain.NotifyEndpoint {
	return sv.notify
}

func (sv *Supervisor) Router() domain.PathRouter {
	return sv.router
}

func (sv *Supervisor) SyncNewThreads() error {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	return sv.registry.SyncNewThreads()
}

func (sv *Supervisor) NewEventBackend(count uint32, flags uint32) (domain.Backend, error) {
	return backend.NewEvent(count, flags)
}

// StatxByPath performs a path-based stat through the overlay/backend
// family without opening a file, per spec.md §4.3. For BackendProc it
// synthesizes a node whose uid and gid are both the caller's AbsTid value
// (0 when caller is nil); this core tracks no per-process uid/gid. For
// BackendPassthrough it delegates to the overlay.
func (sv *Supervisor) StatxByPath(tag domain.BackendTag, path string, caller *domain.Thread) (*domain.ExtendedStat, error) {
	switch tag {
	case domain.BackendPassthrough:
		return sv.overlay.StatxByPath(tag, path)
	case domain.BackendProc:
		var uid, gid uint32
		if caller != nil {
			uid, gid = uint32(caller.Tid), uint32(caller.Tid)
		}
		b := backend.NewProc(path, uid, gid)
		return b.Statx()
	default:
		return nil, fmt.Errorf("supervisor: unhandled backend tag %v for statxByPath", tag)
	}
}

// RegisterChild exposes registry.RegisterChild under the supervisor
// mutex, for the out-of-scope clone-notification collaborator to call
// when it observes a guest thread clone.
func (sv *Supervisor) RegisterChild(parent domain.AbsTid, childTid domain.AbsTid, flags domain.CloneFlags) (*domain.Thread, error) {
	sv.mu.Lock()
	defer sv.mu.Unlock()

	p, ok := sv.registry.Get(parent)
	if !ok {
		return nil, fmt.Errorf("supervisor: unknown parent thread %d", parent)
	}
	return sv.registry.RegisterChild(p, childTid, flags)
}

// RemoveThread exposes registry.Remove under the supervisor mutex, for
// the out-of-scope exit-notification collaborator.
func (sv *Supervisor) RemoveThread(tid domain.AbsTid) {
	sv.mu.Lock()
	defer sv.mu.Unlock()
	sv.registry.Remove(tid)
}

// Log returns the logger appropriate for level, per spec.md §7's
// guest-caused (info) / backend-caused (warn) / invariant-violation
// (panic) split.
func (sv *Supervisor) Log(level logrus.Level) *logrus.Logger {
	return sv.sinks.For(level)
}
