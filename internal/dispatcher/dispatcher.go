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

// Package dispatcher implements the Notification Dispatcher (spec.md
// §4.1): for each notification, select a handler by syscall number and
// send its verdict back to the kernel. Grounded on the teacher's
// seccomp/tracer.go connHandler/process loop, generalized from a
// hardcoded switch over a fixed syscall set to a pluggable handler
// registry (handler/handlerDB.go's RegisterHandler pattern, applied here
// to syscall numbers instead of FS paths).
package dispatcher

import (
	"github.com/sirupsen/logrus"

	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/errno"
)

// Dispatcher routes notifications to registered handlers and replies to
// the kernel notification endpoint.
type Dispatcher struct {
	sv       domain.Supervisor
	notify   domain.NotifyEndpoint
	log      *logrus.Logger
	handlers map[int32]domain.Handler
}

// New builds a Dispatcher bound to sv's notify endpoint and logger.
func New(sv domain.Supervisor, notify domain.NotifyEndpoint, log *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		sv:       sv,
		notify:   notify,
		log:      log,
		handlers: make(map[int32]domain.Handler),
	}
}

// Register associates a handler with the syscall number it reports via
// Handler.Syscall(). Registering a second handler for the same syscall
// number replaces the first, matching handlerDB's last-writer-wins
// RegisterHandler semantics for a given path.
func (d *Dispatcher) Register(h domain.Handler) {
	d.handlers[h.Syscall()] = h
}

// Dispatch processes exactly one notification and returns the verdict
// that was (or will be) sent to the kernel. Unregistered syscalls receive
// NOSYS, matching the teacher's default case in seccomp/tracer.go's
// process() switch.
func (d *Dispatcher) Dispatch(n domain.Notification) domain.Verdict {
	h, ok := d.handlers[n.Syscall]
	if !ok {
		d.log.WithField("syscall", n.Syscall).Warn("unsupported syscall notification received")
		return domain.ErrorVerdict(errno.NOSYS.Errno())
	}

	return h.Handle(n, d.sv)
}

// Run loops Recv/Dispatch/Reply until Recv returns an error (the seccomp
// fd closed, typically because the tracee exited), matching the teacher's
// connHandler loop.
func (d *Dispatcher) Run() error {
	for {
		n, err := d.notify.Recv()
		if err != nil {
			return err
		}

		v := d.Dispatch(n)

		if err := d.notify.Reply(n.Id, v); err != nil {
			d.log.WithError(err).Warn("failed to reply to notification")
		}
	}
}
