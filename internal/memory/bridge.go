//
// Copyright 2022 Nestybox, Inc.
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

// Package memory implements the guest memory bridge (spec.md §4.5) by
// reading and writing a tracee's "/proc/<pid>/mem" file, the same
// mechanism the teacher's seccomp/memParserProcfs.go and
// seccomp/tracer.go's processMemParse use. The tracee is assumed stopped
// for the duration of the notification (it is blocked in the kernel
// awaiting our verdict), so concurrent access to its address space from
// this side is safe.
package memory

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/nestybox/guestsup/internal/domain"
)

// ProcfsBridge implements domain.MemoryBridge over /proc/<pid>/mem.
type ProcfsBridge struct{}

// New returns a ProcfsBridge. There is no state to hold; every call opens
// and closes its own /proc/<pid>/mem handle, matching the teacher's
// per-call os.Open/defer Close discipline.
func New() *ProcfsBridge {
	return &ProcfsBridge{}
}

func memPath(pid domain.AbsTid) string {
	return fmt.Sprintf("/proc/%d/mem", pid)
}

// ReadSlice reads len(dst) bytes from the guest's address space at addr
// into dst.
func (b *ProcfsBridge) ReadSlice(dst []byte, pid domain.AbsTid, addr uint64) error {
	if len(dst) == 0 {
		return nil
	}

	name := memPath(pid)
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(addr), io.SeekStart); err != nil {
		return fmt.Errorf("seek of %s failed: %w", name, err)
	}

	if _, err := io.ReadFull(f, dst); err != nil {
		return fmt.Errorf("read of %s at offset %d failed: %w", name, addr, err)
	}

	return nil
}

// WriteSlice writes src into the guest's address space at addr.
func (b *ProcfsBridge) WriteSlice(src []byte, pid domain.AbsTid, addr uint64) error {
	if len(src) == 0 {
		return nil
	}

	name := memPath(pid)
	f, err := os.OpenFile(name, os.O_RDWR, 0)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(addr), io.SeekStart); err != nil {
		return fmt.Errorf("seek of %s failed: %w", name, err)
	}

	if _, err := f.Write(src); err != nil {
		return fmt.Errorf("write of %s at offset %d failed: %w", name, addr, err)
	}

	return nil
}

// ReadString reads up to len(buf) bytes from the guest's address space
// starting at addr, stopping at the first NUL. The returned string
// excludes the NUL terminator, matching strings.TrimSuffix(line, "\x00")
// in the teacher's memParserProcfs.go.
func (b *ProcfsBridge) ReadString(buf []byte, pid domain.AbsTid, addr uint64) (string, error) {
	if addr == 0 {
		return "", nil
	}
	if len(buf) == 0 {
		return "", nil
	}

	name := memPath(pid)
	f, err := os.Open(name)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer f.Close()

	if _, err := f.Seek(int64(addr), io.SeekStart); err != nil {
		return "", fmt.Errorf("seek of %s failed: %w", name, err)
	}

	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return "", fmt.Errorf("read of %s at offset %d failed: %w", name, addr, err)
	}

	if idx := strings.IndexByte(string(buf[:n]), 0); idx >= 0 {
		return string(buf[:idx]), nil
	}

	return string(buf[:n]), nil
}
