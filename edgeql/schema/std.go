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

// bootstrapStd installs the std and schema modules: the base scalars,
// std::Object with its system pointers, and the standard function
// library used by the compiler tests.
func bootstrapStd(c *Catalog) {
	std := NewModule("std")
	c.AddModule(std)
	schemaMod := NewModule("schema")
	c.AddModule(schemaMod)

	anyT := NewScalar(NewName("std", "any"))
	anyT.Abstract = true
	std.AddType(anyT)

	intT := NewScalar(NewName("std", "int"))
	floatT := NewScalar(NewName("std", "float"))
	strT := NewScalar(NewName("std", "str"))
	boolT := NewScalar(NewName("std", "bool"))
	uuidT := NewScalar(NewName("std", "uuid"))
	datetimeT := NewScalar(NewName("std", "datetime"))
	nullT := NewScalar(NewName("std", "null"))
	for _, t := range []*Scalar{intT, floatT, strT, boolT, uuidT, datetimeT, nullT} {
		std.AddType(t)
	}

	// Aliases used by literals of wider numeric kinds.
	std.AddType(NewScalar(NewName("std", "decimal"), floatT))

	// The class metatype lives in the schema module.
	atomT := NewObjectType(NewName("schema", "Atom"))
	schemaMod.AddType(atomT)
	nameProp := NewPointer(NewName("std", "name"), PropertyPointer, strT)
	atomT.AddPointer(nameProp)

	objectT := NewObjectType(NewName("std", "Object"))
	std.AddType(objectT)

	idProp := NewPointer(NewName("std", "id"), PropertyPointer, uuidT)
	idProp.ReadOnly = true
	idProp.Required = true
	objectT.AddPointer(idProp)

	classLink := NewPointer(NewName("std", "__class__"), LinkPointer, atomT)
	classLink.ReadOnly = true
	objectT.AddPointer(classLink)

	// Base pointer classes that derived pointers specialize, and the
	// implicit `@target` property of link-targeted shapes.
	c.stdPointers = map[string]*Pointer{
		"link":     NewPointer(NewName("std", "link"), LinkPointer, objectT),
		"property": NewPointer(NewName("std", "property"), PropertyPointer, anyT),
		"target":   NewPointer(NewName("std", "target"), PropertyPointer, uuidT),
	}

	// Standard function library.
	std.AddFunction(NewFunction(
		NewName("std", "len"),
		[]*Param{{Name: "str", Type: strT}},
		intT,
	))

	count := NewFunction(
		NewName("std", "count"),
		[]*Param{{Name: "expression", Type: anyT, Kind: ParamSetOf}},
		intT,
	)
	count.Aggregate = true
	count.InitialValue = "0"
	std.AddFunction(count)

	sum := NewFunction(
		NewName("std", "sum"),
		[]*Param{{Name: "expression", Type: intT, Kind: ParamSetOf}},
		intT,
	)
	sum.Aggregate = true
	sum.InitialValue = "0"
	std.AddFunction(sum)

	sumf := NewFunction(
		NewName("std", "sum"),
		[]*Param{{Name: "expression", Type: floatT, Kind: ParamSetOf}},
		floatT,
	)
	sumf.Aggregate = true
	sumf.InitialValue = "0"
	std.AddFunction(sumf)

	for _, name := range []string{"min", "max"} {
		agg := NewFunction(
			NewName("std", name),
			[]*Param{{Name: "expression", Type: anyT, Kind: ParamSetOf}},
			anyT,
		)
		agg.Aggregate = true
		std.AddFunction(agg)
	}

	arrayAgg := NewFunction(
		NewName("std", "array_agg"),
		[]*Param{{Name: "expression", Type: anyT, Kind: ParamSetOf}},
		NewArray(anyT),
	)
	arrayAgg.Aggregate = true
	std.AddFunction(arrayAgg)

	std.AddFunction(NewFunction(
		NewName("std", "random"),
		nil,
		floatT,
	))

	lower := NewFunction(
		NewName("std", "lower"),
		[]*Param{{Name: "str", Type: strT}},
		strT,
	)
	std.AddFunction(lower)

	concat := NewFunction(
		NewName("std", "concat"),
		[]*Param{
			{Name: "first", Type: strT},
			{Name: "rest", Type: strT, Kind: ParamVariadic},
		},
		strT,
	)
	std.AddFunction(concat)
}

// StdObjectPointer returns one of the system pointers declared on
// std::Object.
func StdObjectPointer(s Schema, name string) *Pointer {
	obj, err := s.Get(NewName("std", "Object"), nil)
	if err != nil {
		return nil
	}
	t, ok := obj.(*ObjectType)
	if !ok {
		return nil
	}
	return t.getPointer(name)
}
