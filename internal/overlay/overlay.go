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

// Package overlay implements the OverlayRoot (spec.md §3/§4.3): an
// immutable-during-operation merged view consulted by path-based
// operations (fstatat's statxByPath). Grounded on the teacher's
// ioFileService, which already picks between afero.NewOsFs() (production)
// and afero.NewMemMapFs() (unit tests) behind the same seam; the overlay
// here layers that seam so a "synthetic" filesystem (holding
// supervisor-substituted nodes) takes priority over a "host" filesystem
// (the passthrough view of the real root).
package overlay

import (
	"os"

	"github.com/spf13/afero"

	"github.com/nestybox/guestsup/internal/domain"
)

// Root is the merged view: Synthetic entries shadow Host entries at the
// same path, matching NODE_SUBSTITUTION semantics in the teacher's
// domain.HandlerType (spec.md §9's design note on dynamic dispatch, here
// applied at the filesystem layer instead of the handler layer).
type Root struct {
	Synthetic afero.Fs
	Host      afero.Fs
}

// New builds a Root. synthetic is typically an afero.NewMemMapFs() seeded
// with the supervisor's emulated nodes; host is afero.NewOsFs() rooted at
// "/" for production use (or another MemMapFs in tests).
func New(synthetic, host afero.Fs) *Root {
	return &Root{Synthetic: synthetic, Host: host}
}

// Stat resolves path against the synthetic layer first, falling back to
// the host layer. Returns os.ErrNotExist (wrapped) if neither layer has
// the path, which callers map to errno.NOENT.
func (r *Root) Stat(path string) (os.FileInfo, error) {
	if r.Synthetic != nil {
		if info, err := r.Synthetic.Stat(path); err == nil {
			return info, nil
		}
	}
	return r.Host.Stat(path)
}

// Open resolves and opens path the same way Stat does, synthetic layer
// first.
func (r *Root) Open(path string) (afero.File, error) {
	if r.Synthetic != nil {
		if f, err := r.Synthetic.Open(path); err == nil {
			return f, nil
		}
	}
	return r.Host.Open(path)
}

// StatxByPath performs a path-based stat through the given backend family
// without opening a File, per spec.md §4.3. For a passthrough-routed path
// it stats the merged overlay view and translates the result; any other
// tag (including proc) is rejected with an error, since the overlay holds
// no synthetic procfs content.
func (r *Root) StatxByPath(tag domain.BackendTag, path string) (*domain.ExtendedStat, error) {
	if tag != domain.BackendPassthrough {
		return nil, errUnsupportedTag
	}

	info, err := r.Stat(path)
	if err != nil {
		return nil, err
	}

	st, ok := info.Sys().(*domain.ExtendedStat)
	if ok {
		return st, nil
	}

	return fromFileInfo(info), nil
}

var errUnsupportedTag = overlayError("statxByPath: backend tag not handled by overlay")

type overlayError string

func (e overlayError) Error() string { return string(e) }

func fromFileInfo(info os.FileInfo) *domain.ExtendedStat {
	mode := uint32(info.Mode().Perm())
	if info.IsDir() {
		mode |= 0040000
	} else {
		mode |= 0100000
	}
	return &domain.ExtendedStat{
		Mode: mode,
		Size: info.Size(),
	}
}
