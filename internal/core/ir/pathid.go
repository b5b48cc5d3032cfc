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
	"strings"

	"edgeql.org/go/edgeql/schema"
)

// A Namespace qualifies a PathId. Weak namespaces are introduced for
// view-local paths and stripped before the IR is handed to consumers.
type Namespace struct {
	Name string
	Weak bool
}

// A PathStep is a single pointer traversal in a PathId.
type PathStep struct {
	Ptr       string // fully-qualified pointer name
	Direction schema.PointerDirection
	Target    string // fully-qualified target type name
}

// A PathId canonically identifies a path expression irrespective of
// aliasing: a root type followed by a sequence of pointer traversals,
// optionally qualified by namespaces. PathId is a value type; all
// mutators return a new value.
type PathId struct {
	root      string
	rootType  schema.Type
	steps     []PathStep
	namespace []Namespace
}

// NewPathId returns the PathId of a root type reference.
func NewPathId(root schema.Type) PathId {
	return PathId{root: root.SchemaName().String(), rootType: root}
}

// NewExprPathId returns the PathId of a generated expression set. The
// alias keeps ids of distinct generated sets distinct; t records the
// expression type as the nominal root.
func NewExprPathId(alias string, t schema.Type) PathId {
	return PathId{root: "__expr__::" + alias, rootType: t}
}

// IsValid reports whether the id identifies anything.
func (p PathId) IsValid() bool { return p.root != "" }

// Root returns the root type of the path.
func (p PathId) Root() schema.Type { return p.rootType }

// Len returns the number of pointer steps.
func (p PathId) Len() int { return len(p.steps) }

// RootName returns the name of the path's root type.
func (p PathId) RootName() string { return p.root }

// Namespace returns the id's namespace qualification.
func (p PathId) Namespace() []Namespace { return p.namespace }

// Extend returns a new PathId with an additional traversal step.
func (p PathId) Extend(ptr *schema.Pointer, dir schema.PointerDirection, target schema.Type) PathId {
	steps := make([]PathStep, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	steps = append(steps, PathStep{
		Ptr:       ptr.SchemaName().String(),
		Direction: dir,
		Target:    target.SchemaName().String(),
	})
	return PathId{root: p.root, rootType: p.rootType, steps: steps, namespace: p.namespace}
}

// ExtendField returns a new PathId for a tuple-field indirection.
func (p PathId) ExtendField(name string, target schema.Type) PathId {
	steps := make([]PathStep, len(p.steps), len(p.steps)+1)
	copy(steps, p.steps)
	tname := "?"
	if target != nil {
		tname = target.SchemaName().String()
	}
	steps = append(steps, PathStep{
		Ptr:       "__tuple__." + name,
		Direction: schema.Outbound,
		Target:    tname,
	})
	return PathId{root: p.root, rootType: p.rootType, steps: steps, namespace: p.namespace}
}

// Prefixes returns every prefix of the path, shortest first, the full
// id included.
func (p PathId) Prefixes() []PathId {
	out := make([]PathId, 0, len(p.steps)+1)
	for i := 0; i <= len(p.steps); i++ {
		out = append(out, PathId{
			root:      p.root,
			rootType:  p.rootType,
			steps:     p.steps[:i:i],
			namespace: p.namespace,
		})
	}
	return out
}

// StartsWith reports whether prefix is a (non-strict) prefix of p and
// the namespaces match.
func (p PathId) StartsWith(prefix PathId) bool {
	if p.root != prefix.root || len(prefix.steps) > len(p.steps) {
		return false
	}
	if nsKey(p.namespace) != nsKey(prefix.namespace) {
		return false
	}
	for i, s := range prefix.steps {
		if p.steps[i] != s {
			return false
		}
	}
	return true
}

// WithNamespace returns the id qualified by ns.
func (p PathId) WithNamespace(ns ...Namespace) PathId {
	namespace := make([]Namespace, 0, len(p.namespace)+len(ns))
	namespace = append(namespace, p.namespace...)
	namespace = append(namespace, ns...)
	return PathId{root: p.root, rootType: p.rootType, steps: p.steps, namespace: namespace}
}

// ReplaceNamespace returns the id with its namespace replaced by ns.
func (p PathId) ReplaceNamespace(ns []Namespace) PathId {
	return PathId{root: p.root, rootType: p.rootType, steps: p.steps, namespace: ns}
}

// StripWeakNamespaces returns the id without any weak namespace tags.
func (p PathId) StripWeakNamespaces() PathId {
	if len(p.namespace) == 0 {
		return p
	}
	kept := make([]Namespace, 0, len(p.namespace))
	for _, ns := range p.namespace {
		if !ns.Weak {
			kept = append(kept, ns)
		}
	}
	if len(kept) == len(p.namespace) {
		return p
	}
	return PathId{root: p.root, rootType: p.rootType, steps: p.steps, namespace: kept}
}

// HasWeakNamespace reports whether any namespace tag is weak.
func (p PathId) HasWeakNamespace() bool {
	for _, ns := range p.namespace {
		if ns.Weak {
			return true
		}
	}
	return false
}

func nsKey(ns []Namespace) string {
	if len(ns) == 0 {
		return ""
	}
	var b strings.Builder
	for _, n := range ns {
		b.WriteString(n.Name)
		if n.Weak {
			b.WriteByte('~')
		}
		b.WriteByte('@')
	}
	return b.String()
}

// Key returns the canonical interning key for the id.
func (p PathId) Key() string {
	var b strings.Builder
	if k := nsKey(p.namespace); k != "" {
		b.WriteString(k)
		b.WriteByte('|')
	}
	b.WriteString(p.root)
	for _, s := range p.steps {
		b.WriteByte(' ')
		b.WriteString(string(s.Direction))
		b.WriteString(s.Ptr)
		b.WriteString("->")
		b.WriteString(s.Target)
	}
	return b.String()
}

// Equal reports whether two ids identify the same path.
func (p PathId) Equal(q PathId) bool { return p.Key() == q.Key() }

func (p PathId) String() string {
	var b strings.Builder
	b.WriteString(p.root)
	for _, s := range p.steps {
		if s.Direction == schema.Inbound {
			b.WriteString(".<")
		} else {
			b.WriteString(".>")
		}
		b.WriteString(s.Ptr)
	}
	return b.String()
}
