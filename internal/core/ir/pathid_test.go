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
	"testing"

	"github.com/go-quicktest/qt"

	"edgeql.org/go/edgeql/schema"
)

func testPath(t *testing.T) (PathId, *schema.ObjectType, *schema.Pointer) {
	t.Helper()
	cat := schema.NewCatalog()
	user := schema.NewObjectType(schema.NewName("default", "User"))
	cat.Module("default").AddType(user)
	strT := cat.MustGetType("std::str")
	name := schema.NewPointer(schema.NewName("default", "name"), schema.PropertyPointer, strT)
	user.AddPointer(name)
	return NewPathId(user), user, name
}

func TestPathIdExtend(t *testing.T) {
	root, _, name := testPath(t)

	qt.Assert(t, qt.Equals(root.Len(), 0))
	qt.Assert(t, qt.Equals(root.RootName(), "default::User"))

	ext := root.Extend(name, schema.Outbound, name.Target)
	qt.Assert(t, qt.Equals(ext.Len(), 1))

	// Extension does not mutate the receiver.
	qt.Assert(t, qt.Equals(root.Len(), 0))

	// Two identical extensions yield equal ids with equal keys.
	ext2 := root.Extend(name, schema.Outbound, name.Target)
	qt.Assert(t, qt.IsTrue(ext.Equal(ext2)))
	qt.Assert(t, qt.Equals(ext.Key(), ext2.Key()))
}

func TestPathIdPrefixes(t *testing.T) {
	root, _, name := testPath(t)
	ext := root.Extend(name, schema.Outbound, name.Target)

	prefixes := ext.Prefixes()
	qt.Assert(t, qt.Equals(len(prefixes), 2))
	qt.Assert(t, qt.IsTrue(prefixes[0].Equal(root)))
	qt.Assert(t, qt.IsTrue(prefixes[1].Equal(ext)))

	qt.Assert(t, qt.IsTrue(ext.StartsWith(root)))
	qt.Assert(t, qt.IsTrue(ext.StartsWith(ext)))
	qt.Assert(t, qt.IsFalse(root.StartsWith(ext)))
}

func TestPathIdNamespaces(t *testing.T) {
	root, _, _ := testPath(t)

	weak := root.WithNamespace(Namespace{Name: "ns1", Weak: true})
	strong := root.WithNamespace(Namespace{Name: "ns2"})

	// Namespaced ids do not collide with the bare id.
	qt.Assert(t, qt.IsFalse(weak.Equal(root)))
	qt.Assert(t, qt.IsFalse(weak.Equal(strong)))

	qt.Assert(t, qt.IsTrue(weak.HasWeakNamespace()))
	qt.Assert(t, qt.IsFalse(strong.HasWeakNamespace()))

	stripped := weak.StripWeakNamespaces()
	qt.Assert(t, qt.IsTrue(stripped.Equal(root)))

	// Strong namespaces survive the strip.
	mixed := strong.WithNamespace(Namespace{Name: "ns3", Weak: true})
	qt.Assert(t, qt.IsTrue(mixed.StripWeakNamespaces().Equal(strong)))
}

func TestScopeFence(t *testing.T) {
	root, _, name := testPath(t)
	ext := root.Extend(name, schema.Outbound, name.Target)

	scope := NewScopeFence()
	inner := scope.AddFence()
	inner.Add(ext)

	// Registration covers all prefixes.
	qt.Assert(t, qt.IsTrue(inner.Contains(root)))
	qt.Assert(t, qt.IsTrue(inner.Contains(ext)))

	// The fence isolates inner paths from the outer scope.
	qt.Assert(t, qt.IsFalse(scope.Contains(ext)))

	// Own paths are sorted and deduplicated.
	inner.Add(ext)
	qt.Assert(t, qt.Equals(len(inner.OwnPaths()), 2))

	// AllPaths spans the subtree.
	qt.Assert(t, qt.Equals(len(scope.AllPaths()), 2))
}

func TestScopeFenceCollapse(t *testing.T) {
	root, _, name := testPath(t)
	ext := root.Extend(name, schema.Outbound, name.Target)

	scope := NewScopeFence()
	fence := scope.AddFence()
	fence.Add(ext)

	fence.Collapse()
	qt.Assert(t, qt.IsTrue(fence.Collapsed()))

	// After collapse the paths belong to the parent scope.
	qt.Assert(t, qt.IsTrue(scope.Contains(ext)))
	qt.Assert(t, qt.Equals(len(fence.OwnPaths()), 0))
}
