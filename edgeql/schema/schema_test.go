// Copyright 2018 The EdgeQL Authors
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

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchema = `
modules:
  default:
    types:
      Named:
        abstract: true
        pointers:
          name: {target: std::str, required: true}
      User:
        bases: [Named]
        pointers:
          age: {target: std::int}
          friends:
            target: User
            kind: link
            cardinality: many
            properties:
              weight: {target: std::float}
          manager: {target: User, kind: link}
      Issue:
        pointers:
          number: {target: std::str}
          owner: {target: User, kind: link}
    views:
      Adults: SELECT User FILTER User.age > 18
    functions:
      - name: visible
        params:
          - {name: of, type: User, kind: set of}
        returns: std::bool
`

func loadTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	cat := NewCatalog()
	require.NoError(t, cat.LoadYAML([]byte(testSchema)))
	return cat
}

func TestCatalogGet(t *testing.T) {
	cat := loadTestCatalog(t)

	obj, err := cat.Get(ParseName("default::User"), nil)
	require.NoError(t, err)
	assert.Equal(t, "default::User", obj.SchemaName().String())

	// Unqualified names resolve in the default module, then std.
	obj, err = cat.Get(ParseName("User"), nil)
	require.NoError(t, err)
	assert.Equal(t, "default::User", obj.SchemaName().String())

	obj, err = cat.Get(ParseName("int"), nil)
	require.NoError(t, err)
	assert.Equal(t, "std::int", obj.SchemaName().String())

	_, err = cat.Get(ParseName("Missing"), nil)
	var notFound *ErrNotFound
	require.ErrorAs(t, err, &notFound)
}

func TestCatalogAliases(t *testing.T) {
	cat := loadTestCatalog(t)

	obj, err := cat.Get(ParseName("d::Issue"), map[string]string{"d": "default"})
	require.NoError(t, err)
	assert.Equal(t, "default::Issue", obj.SchemaName().String())

	// The empty alias overrides the default module.
	cat2 := loadTestCatalog(t)
	cat2.DefaultModule = "nonexistent"
	obj, err = cat2.Get(ParseName("User"), map[string]string{"": "default"})
	require.NoError(t, err)
	assert.Equal(t, "default::User", obj.SchemaName().String())
}

func TestSubclassing(t *testing.T) {
	cat := loadTestCatalog(t)

	named := cat.MustGetType("default::Named")
	user := cat.MustGetType("default::User")
	issue := cat.MustGetType("default::Issue")
	anyT := cat.MustGetType("std::any")

	assert.True(t, user.IsSubclassOf(named))
	assert.False(t, named.IsSubclassOf(user))
	assert.False(t, issue.IsSubclassOf(named))
	assert.True(t, user.IsSubclassOf(anyT))
	assert.True(t, issue.IsSubclassOf(anyT))
}

func TestNearestCommonAncestor(t *testing.T) {
	cat := loadTestCatalog(t)

	named := cat.MustGetType("default::Named")
	user := cat.MustGetType("default::User")
	issue := cat.MustGetType("default::Issue")
	intT := cat.MustGetType("std::int")

	assert.Equal(t, named, NearestCommonAncestor(user, named))
	assert.Equal(t, user, NearestCommonAncestor(user, user))

	// Unrelated concepts meet at their common std::Object base.
	obj := cat.MustGetType("std::Object")
	assert.Equal(t, obj, NearestCommonAncestor(user, issue))

	assert.Nil(t, NearestCommonAncestor(user, intT))
	assert.Equal(t, intT, NearestCommonAncestor(intT, intT))
}

func TestResolvePointer(t *testing.T) {
	cat := loadTestCatalog(t)

	user := cat.MustGetType("default::User").(*ObjectType)

	// Own pointer.
	age := user.ResolvePointer(cat, "age", Outbound, nil)
	require.NotNil(t, age)
	assert.Equal(t, "std::int", age.Target.SchemaName().String())

	// Inherited pointer.
	name := user.ResolvePointer(cat, "name", Outbound, nil)
	require.NotNil(t, name)
	assert.True(t, name.Required)

	// System pointer from std::Object.
	id := user.ResolvePointer(cat, "id", Outbound, nil)
	require.NotNil(t, id)
	assert.False(t, id.IsPureComputable())

	// Inbound resolution finds links targeting the type.
	owner := user.ResolvePointer(cat, "owner", Inbound, nil)
	require.NotNil(t, owner)
	assert.Equal(t, "default::Issue", owner.Source.SchemaName().String())

	assert.Nil(t, user.ResolvePointer(cat, "nonexistent", Outbound, nil))
}

func TestLinkProperties(t *testing.T) {
	cat := loadTestCatalog(t)

	user := cat.MustGetType("default::User").(*ObjectType)
	friends := user.ResolvePointer(cat, "friends", Outbound, nil)
	require.NotNil(t, friends)
	assert.Equal(t, ManyToMany, friends.Cardinality)

	weight := friends.ResolvePointer(cat, "weight", Outbound, nil)
	require.NotNil(t, weight)
	assert.Equal(t, "std::float", weight.Target.SchemaName().String())
}

func TestViews(t *testing.T) {
	cat := loadTestCatalog(t)

	adults := cat.MustGetType("default::Adults").(*ObjectType)
	assert.True(t, adults.IsView())
	assert.Contains(t, adults.Expr, "FILTER")
}

func TestFunctions(t *testing.T) {
	cat := loadTestCatalog(t)

	fns := cat.Functions(ParseName("visible"), nil)
	require.Len(t, fns, 1)
	assert.Equal(t, ParamSetOf, fns[0].Params[0].Kind)

	// Overloads from std.
	sums := cat.Functions(ParseName("std::sum"), nil)
	assert.Len(t, sums, 2)

	counts := cat.Functions(ParseName("count"), nil)
	require.Len(t, counts, 1)
	assert.True(t, counts[0].Aggregate)
	assert.Equal(t, "0", counts[0].InitialValue)
}

func TestPureComputable(t *testing.T) {
	strT := NewScalar(NewName("std", "str"))

	ptr := NewPointer(NewName("default", "display"), PropertyPointer, strT)
	assert.False(t, ptr.IsPureComputable())

	ptr.Default = "User.name"
	assert.True(t, ptr.IsPureComputable())

	ptr.ReadOnly = true
	assert.False(t, ptr.IsPureComputable())
}

func TestTupleTypes(t *testing.T) {
	cat := loadTestCatalog(t)
	strT := cat.MustGetType("std::str")
	intT := cat.MustGetType("std::int")

	tup := NewTuple(true, []string{"name", "age"}, []Type{strT, intT})
	et, ok := tup.ElementType("age")
	require.True(t, ok)
	assert.Equal(t, intT, et)
	_, ok = tup.ElementType("missing")
	assert.False(t, ok)

	other := NewTuple(true, []string{"name", "age"}, []Type{strT, intT})
	assert.True(t, tup.IsSubclassOf(other))

	shorter := NewTuple(false, []string{"0"}, []Type{strT})
	assert.False(t, tup.IsSubclassOf(shorter))
}
