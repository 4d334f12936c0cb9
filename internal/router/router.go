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

// Package router implements the Path Router (spec.md §4.4): a pure,
// deterministic function from an absolute, normalized path to a
// block/handle(backend) verdict. Grounded on handler/handlerDB.go's
// handlerTree, a radix tree keyed by path prefix and walked with
// LongestPrefix — here generalized from "which handler" to "which
// backend, or blocked".
package router

import (
	"path"
	"strings"

	iradix "github.com/hashicorp/go-immutable-radix"

	"github.com/nestybox/guestsup/internal/domain"
)

// Route is one routing-table entry: normalized paths that begin with
// Prefix route to Backend, unless Block is set (in which case the guest
// sees PERM). The match is on bytes, not path components, so "/proc" also
// matches "/procfoo".
type Route struct {
	Prefix  string
	Block   bool
	Backend domain.BackendTag
}

// Router is an immutable-after-build radix-tree path classifier. Safe for
// concurrent Route calls (the tree is never mutated after New returns).
type Router struct {
	tree *iradix.Tree
}

type routeEntry struct {
	block   bool
	backend domain.BackendTag
}

// New builds a Router from a routing table. The concrete table contents
// are policy and out of this core's scope (spec.md §4.4); callers (e.g.
// the supervisor's construction code) supply it.
func New(routes []Route) *Router {
	tree := iradix.New()
	for _, r := range routes {
		tree, _, _ = tree.Insert([]byte(r.Prefix), routeEntry{block: r.Block, backend: r.Backend})
	}
	return &Router{tree: tree}
}

// Route classifies an absolute path. Returns INVAL if the path cannot be
// normalized (spec.md §4.4); otherwise looks up the longest matching
// prefix and returns its verdict. An unmatched path is treated as
// block=false, backend=passthrough, the permissive default the teacher's
// "*" PassThrough_Handler entry expresses.
func (r *Router) Route(p string) (domain.RouteVerdict, error) {
	norm, ok := Normalize(p)
	if !ok {
		return domain.RouteVerdict{}, errInval
	}

	_, val, ok := r.tree.Root().LongestPrefix([]byte(norm))
	if !ok {
		return domain.RouteVerdict{Block: false, Backend: domain.BackendPassthrough}, nil
	}

	e := val.(routeEntry)
	return domain.RouteVerdict{Block: e.block, Backend: e.backend}, nil
}

var errInval = routerError("path cannot be normalized")

type routerError string

func (e routerError) Error() string { return string(e) }

// Normalize rejects anything that isn't an absolute path and collapses
// "." / ".." / duplicate separators via path.Clean, the minimum needed to
// make radix-tree prefix matching meaningful. It deliberately does not
// resolve symlinks (that belongs to the Overlay Root, which is stateful;
// this router is pure per spec.md §4.4).
func Normalize(p string) (string, bool) {
	if !strings.HasPrefix(p, "/") {
		return "", false
	}
	clean := path.Clean(p)
	if !strings.HasPrefix(clean, "/") {
		return "", false
	}
	return clean, true
}
