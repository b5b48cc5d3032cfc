// Copyright 2020 The EdgeQL Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ir

import (
	"sort"

	"github.com/mpvl/unique"
)

// A ScopeFence is a node in the scope tree. Paths registered under a
// fence do not correlate with occurrences of the same path id outside
// of it: the inner reference is semantically re-bound.
//
// Fences are created when entering a statement body, for OFFSET/LIMIT
// operands, EXISTS arguments, SET OF function arguments, membership
// tests, and shape elements with nested clauses.
type ScopeFence struct {
	parent *ScopeFence

	// Fenced marks a hard fence; non-fenced nodes are organizational
	// branches that still correlate with their parent.
	Fenced bool

	// UnnestFence prevents factoring paths out of the fence even when
	// they appear in the parent scope.
	UnnestFence bool

	// Namespaces records the weak path-id namespaces introduced for
	// views declared directly under this fence.
	Namespaces map[string]bool

	paths    map[string]PathId
	children []*ScopeFence

	collapsed bool
}

// NewScopeFence returns a new root fence.
func NewScopeFence() *ScopeFence {
	return &ScopeFence{Fenced: true, Namespaces: map[string]bool{}}
}

// Parent returns the enclosing fence, or nil at the root.
func (n *ScopeFence) Parent() *ScopeFence { return n.parent }

// AddFence creates a fenced child node.
func (n *ScopeFence) AddFence() *ScopeFence {
	c := &ScopeFence{parent: n, Fenced: true, Namespaces: map[string]bool{}}
	n.children = append(n.children, c)
	return c
}

// AddBranch creates a non-fenced child node.
func (n *ScopeFence) AddBranch() *ScopeFence {
	c := &ScopeFence{parent: n, Namespaces: map[string]bool{}}
	n.children = append(n.children, c)
	return c
}

// Add registers a path id, and all of its prefixes, at this node.
func (n *ScopeFence) Add(p PathId) {
	if n.paths == nil {
		n.paths = map[string]PathId{}
	}
	for _, prefix := range p.Prefixes() {
		n.paths[prefix.Key()] = prefix
	}
}

// Contains reports whether the path id is visible at this node: it is
// registered here or in an enclosing scope reachable without crossing
// a fence boundary downward.
func (n *ScopeFence) Contains(p PathId) bool {
	key := p.Key()
	for s := n; s != nil; s = s.parent {
		if _, ok := s.paths[key]; ok {
			return true
		}
	}
	return false
}

// OwnPaths returns the path ids registered directly at this node,
// sorted and with duplicates removed.
func (n *ScopeFence) OwnPaths() []PathId {
	keys := make([]string, 0, len(n.paths))
	for k := range n.paths {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]PathId, len(keys))
	for i, k := range keys {
		out[i] = n.paths[k]
	}
	return out
}

// AllPaths returns every path id registered at this node and below,
// with duplicates across sibling scopes removed.
func (n *ScopeFence) AllPaths() []PathId {
	byKey := map[string]PathId{}
	var keys []string
	n.walk(func(s *ScopeFence) {
		for k, p := range s.paths {
			byKey[k] = p
			keys = append(keys, k)
		}
	})
	sort.Strings(keys)
	unique.Strings(&keys)
	out := make([]PathId, len(keys))
	for i, k := range keys {
		out[i] = byKey[k]
	}
	return out
}

func (n *ScopeFence) walk(f func(*ScopeFence)) {
	f(n)
	for _, c := range n.children {
		c.walk(f)
	}
}

// Collapse merges this fence's paths back into its parent scope. It is
// applied to preemptive SET OF fences around function arguments whose
// matched parameter turned out not to be SET OF.
func (n *ScopeFence) Collapse() {
	if n.parent == nil || n.collapsed {
		return
	}
	n.collapsed = true
	n.Fenced = false
	for _, p := range n.OwnPaths() {
		n.parent.Add(p)
	}
	n.paths = nil
}

// Collapsed reports whether Collapse was applied.
func (n *ScopeFence) Collapsed() bool { return n.collapsed }

// StripWeakNamespaces rewrites the path ids of the entire subtree,
// removing weak namespace tags.
func (n *ScopeFence) StripWeakNamespaces() {
	n.walk(func(s *ScopeFence) {
		if len(s.paths) == 0 {
			return
		}
		stripped := make(map[string]PathId, len(s.paths))
		for _, p := range s.paths {
			sp := p.StripWeakNamespaces()
			stripped[sp.Key()] = sp
		}
		s.paths = stripped
	})
}
