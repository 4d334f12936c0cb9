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

// Package domain holds the core data model and interfaces shared by the
// registry, file table, path router, and dispatcher packages: identifiers,
// the virtual thread/namespace/file abstractions, and the notification
// protocol the dispatcher speaks to its handlers.
package domain

// AbsTid is the host-global identifier of a guest thread, stable for the
// lifetime of that thread.
type AbsTid uint32

// AbsTgid is the host-global identifier of a guest thread group.
type AbsTgid uint32

// NsTid is the identifier a thread sees through its own PID namespace.
type NsTid uint32

// NsTgid is the identifier a thread group's leader sees through its own PID
// namespace.
type NsTgid uint32

// CloneFlags narrows the handful of clone(2) bits the thread registry
// cares about when registering a child thread.
type CloneFlags uint64

const (
	CLONE_THREAD  CloneFlags = 0x00010000
	CLONE_NEWPID  CloneFlags = 0x20000000
	CLONE_VM      CloneFlags = 0x00000100
	CLONE_FS      CloneFlags = 0x00000200
	CLONE_FILES   CloneFlags = 0x00000400
)
