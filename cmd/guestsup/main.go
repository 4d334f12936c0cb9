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

// guestsup wires the core into a runnable daemon: CLI flags, log
// configuration, signal handling. Attaching to a real kernel
// seccomp-notify fd is a collaborator left to the integrator (spec.md §1
// scopes the wire transport out of this core); this binary exists to show
// how the pieces assemble and to exercise them end to end against a
// transport plugged in by whoever embeds guestsup.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/urfave/cli"

	"github.com/nestybox/guestsup/internal/dispatcher"
	"github.com/nestybox/guestsup/internal/domain"
	"github.com/nestybox/guestsup/internal/handlers"
	"github.com/nestybox/guestsup/internal/overlay"
	"github.com/nestybox/guestsup/internal/router"
	"github.com/nestybox/guestsup/internal/supervisor"
)

const usage = `guestsup syscall supervisor

guestsup virtualizes a subset of a guest's syscalls via seccomp user
notification: it resolves eventfd2, ioctl, fstat, fstatat, getpid, close,
and dup against a per-thread virtual FD table, a PID-namespace-aware
thread registry, and a path-routed overlay root, instead of letting the
kernel service them directly.
`

var version string // set at build time

func defaultRoutes() []router.Route {
	return []router.Route{
		{Prefix: "/proc", Backend: domain.BackendProc},
		{Prefix: "/proc/kcore", Block: true},
	}
}

func exitHandler(signalChan chan os.Signal, log *logrus.Logger) {
	s := <-signalChan
	log.Warnf("guestsup caught signal: %s", s)

	if s == syscall.SIGSEGV || s == syscall.SIGQUIT {
		stacktrace := make([]byte, 32768)
		length := runtime.Stack(stacktrace, true)
		log.Warnf("\n\n%s\n", string(stacktrace[:length]))
	}

	log.Info("Exiting ...")
	os.Exit(0)
}

func buildDispatcher(sv *supervisor.Supervisor, notify domain.NotifyEndpoint, log *logrus.Logger) *dispatcher.Dispatcher {
	d := dispatcher.New(sv, notify, log)
	d.Register(handlers.Eventfd2{})
	d.Register(handlers.Ioctl{})
	d.Register(handlers.Fstat{})
	d.Register(handlers.Fstatat{})
	d.Register(handlers.Getpid{})
	d.Register(handlers.Close{})
	d.Register(handlers.Dup{})
	return d
}

func main() {
	app := cli.NewApp()
	app.Name = "guestsup"
	app.Usage = usage
	app.Version = version

	app.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "init-pid",
			Usage: "host pid of the guest's initial thread",
		},
		cli.StringFlag{
			Name:  "sandbox-id",
			Usage: "identifier for this sandbox instance, used only for log correlation",
		},
		cli.StringFlag{
			Name:  "log-level",
			Value: "info",
			Usage: "log categories to include (debug, info, warning, error, fatal)",
		},
	}

	app.Action = func(ctx *cli.Context) error {
		level, err := logrus.ParseLevel(ctx.String("log-level"))
		if err != nil {
			return fmt.Errorf("invalid log-level: %w", err)
		}
		logrus.SetLevel(level)

		initPid := ctx.Int("init-pid")
		if initPid <= 0 {
			return fmt.Errorf("--init-pid is required and must be positive")
		}

		notify, err := attachNotifyEndpoint()
		if err != nil {
			return fmt.Errorf("failed to attach to the kernel notification endpoint: %w", err)
		}

		sv := supervisor.New(supervisor.Config{
			SandboxID:  ctx.String("sandbox-id"),
			Notify:     notify,
			InitThread: domain.AbsTid(initPid),
			Stdout:     os.Stdout,
			Stderr:     os.Stderr,
			Routes:     defaultRoutes(),
		})
		sv.SetOverlay(overlay.New(afero.NewMemMapFs(), afero.NewOsFs()))

		log := sv.Log(logrus.InfoLevel)
		log.SetLevel(level)
		d := buildDispatcher(sv, notify, log)

		exitChan := make(chan os.Signal, 1)
		signal.Notify(exitChan, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGSEGV, syscall.SIGQUIT)
		go exitHandler(exitChan, log)

		log.Info("guestsup ready, entering notification loop")
		return d.Run()
	}

	if err := app.Run(os.Args); err != nil {
		logrus.Fatal(err)
	}
}

// attachNotifyEndpoint constructs the kernel notification transport. The
// wire protocol for receiving a seccomp-notify fd and decoding
// ScmpNotifReq-shaped records is out of this core's scope (spec.md §1);
// integrators supply their own domain.NotifyEndpoint (e.g. backed by a
// real seccomp listener fd handed over a unix socket) in place of this
// stub.
func attachNotifyEndpoint() (domain.NotifyEndpoint, error) {
	return nil, fmt.Errorf("no kernel notification transport wired: attachNotifyEndpoint must be replaced with a real domain.NotifyEndpoint for this sandbox's seccomp-notify fd")
}
