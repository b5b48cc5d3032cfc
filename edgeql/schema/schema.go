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

// Package schema defines the abstract schema consumed by the EdgeQL
// compiler - modules, types, pointers, functions, constraints - and
// provides an in-memory catalog implementation suitable for embedding
// and tests.
//
// The compiler only reads from a Schema; implementations must be safe
// for concurrent readers.
package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// ErrNotFound is reported when a name does not resolve to any schema
// object.
type ErrNotFound struct {
	Name string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("reference to a non-existent schema item: %s", e.Name)
}

// An Object is any named schema item.
type Object interface {
	// SchemaName returns the fully-qualified name of the object.
	SchemaName() Name

	// ObjectID returns the stable identity of the object.
	ObjectID() uuid.UUID
}

// A Type is a schema item usable as an expression type.
type Type interface {
	Object

	// IsSubclassOf reports whether the type is other, or a descendant
	// of other.
	IsSubclassOf(other Type) bool

	typeNode()
}

// A Source is a type that carries pointers (object types and links).
type Source interface {
	Object

	// ResolvePointer finds a pointer by short name in the given
	// direction, optionally constrained by the far endpoint.
	ResolvePointer(s Schema, name string, direction PointerDirection, farEndpoint Type) *Pointer
}

// Schema is the port boundary to the schema catalog.
type Schema interface {
	// Get resolves name under the given module aliases. The alias ""
	// names the default module. Get returns *ErrNotFound when the name
	// does not resolve.
	Get(name Name, aliases map[string]string) (Object, error)

	// Functions returns all overloads registered under name, or nil.
	Functions(name Name, aliases map[string]string) []*Function

	// Module returns the named module, or nil.
	Module(name string) *Module
}

// PointerDirection is the traversal direction of a pointer.
type PointerDirection string

const (
	Outbound PointerDirection = ">"
	Inbound  PointerDirection = "<"
)

// Cardinality describes a pointer or statement cardinality.
type Cardinality string

const (
	CardinalityDefault Cardinality = ""
	OneToOne           Cardinality = "11"
	OneToMany          Cardinality = "1*"
	ManyToOne          Cardinality = "*1"
	ManyToMany         Cardinality = "**"
)

// PointerKind discriminates links from link properties.
type PointerKind int

const (
	LinkPointer PointerKind = iota
	PropertyPointer
)

// ParamKind classifies a function parameter.
type ParamKind int

const (
	ParamDefault ParamKind = iota
	ParamOptional
	ParamVariadic
	ParamSetOf
)

// A Module is a named collection of schema items.
type Module struct {
	Name string

	types     map[string]Type
	functions map[string][]*Function
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		Name:      name,
		types:     map[string]Type{},
		functions: map[string][]*Function{},
	}
}

// AddType registers t in the module.
func (m *Module) AddType(t Type) {
	m.types[t.SchemaName().Name] = t
}

// AddFunction registers an overload of fn in the module.
func (m *Module) AddFunction(fn *Function) {
	m.functions[fn.Name.Name] = append(m.functions[fn.Name.Name], fn)
}

// Type returns the named type, or nil.
func (m *Module) Type(name string) Type { return m.types[name] }

// TypeNames returns the sorted names of all types in the module.
func (m *Module) TypeNames() []string {
	names := make([]string, 0, len(m.types))
	for n := range m.types {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// baseObject carries the identity shared by all schema items.
type baseObject struct {
	name Name
	id   uuid.UUID
}

func newBaseObject(name Name) baseObject {
	return baseObject{name: name, id: uuid.New()}
}

func (o *baseObject) SchemaName() Name    { return o.name }
func (o *baseObject) ObjectID() uuid.UUID { return o.id }

// A Scalar is a primitive type such as std::int or std::str.
type Scalar struct {
	baseObject
	Bases    []*Scalar
	Abstract bool
}

// NewScalar creates a scalar type deriving from the given bases.
func NewScalar(name Name, bases ...*Scalar) *Scalar {
	return &Scalar{baseObject: newBaseObject(name), Bases: bases}
}

func (*Scalar) typeNode() {}

func (t *Scalar) IsSubclassOf(other Type) bool {
	if isAnyType(other) {
		return true
	}
	o, ok := other.(*Scalar)
	if !ok {
		return false
	}
	if t == o {
		return true
	}
	for _, b := range t.Bases {
		if b.IsSubclassOf(o) {
			return true
		}
	}
	return false
}

// An ObjectType is a concept: a type with identity and pointers.
type ObjectType struct {
	baseObject
	Bases    []*ObjectType
	Abstract bool
	Virtual  bool

	// Pointers are the type's own pointers by short name; inherited
	// pointers are found through Bases.
	Pointers map[string]*Pointer

	// MaterialType links a view or derived type back to the concrete
	// type it was derived from.
	Material *ObjectType

	// Expr holds the definition of a view type, as EdgeQL text.
	Expr string
}

// NewObjectType creates an object type deriving from the given bases.
func NewObjectType(name Name, bases ...*ObjectType) *ObjectType {
	return &ObjectType{
		baseObject: newBaseObject(name),
		Bases:      bases,
		Pointers:   map[string]*Pointer{},
	}
}

func (*ObjectType) typeNode() {}

// IsView reports whether the type is a stored view.
func (t *ObjectType) IsView() bool { return t.Expr != "" }

// MaterialType returns the concrete type behind a view or derived
// type.
func (t *ObjectType) MaterialType() *ObjectType {
	if t.Material != nil {
		return t.Material.MaterialType()
	}
	return t
}

func (t *ObjectType) IsSubclassOf(other Type) bool {
	if isAnyType(other) {
		return true
	}
	o, ok := other.(*ObjectType)
	if !ok {
		return false
	}
	if t == o || t.MaterialType() == o.MaterialType() && t.Material != nil {
		return true
	}
	for _, b := range t.Bases {
		if b.IsSubclassOf(o) {
			return true
		}
	}
	return false
}

// AddPointer registers ptr as one of the type's own pointers.
func (t *ObjectType) AddPointer(ptr *Pointer) {
	t.Pointers[ptr.ShortName()] = ptr
	ptr.Source = t
}

// getPointer finds an own or inherited outbound pointer by short name.
func (t *ObjectType) getPointer(name string) *Pointer {
	if p, ok := t.Pointers[name]; ok {
		return p
	}
	for _, b := range t.Bases {
		if p := b.getPointer(name); p != nil {
			return p
		}
	}
	if t.Material != nil {
		return t.Material.getPointer(name)
	}
	return nil
}

// ResolvePointer implements Source. For the inbound direction it scans
// the schema for links targeting this type.
func (t *ObjectType) ResolvePointer(s Schema, name string, direction PointerDirection, farEndpoint Type) *Pointer {
	if direction == Outbound {
		p := t.getPointer(name)
		if p == nil {
			return nil
		}
		if farEndpoint != nil && p.Target != nil && !p.Target.IsSubclassOf(farEndpoint) {
			return nil
		}
		return p
	}

	cat, ok := s.(*Catalog)
	if !ok {
		return nil
	}
	for _, mod := range cat.moduleList() {
		for _, tn := range mod.TypeNames() {
			ot, ok := mod.Type(tn).(*ObjectType)
			if !ok {
				continue
			}
			for _, p := range ot.Pointers {
				if p.ShortName() != name {
					continue
				}
				if p.Target == nil || !t.IsSubclassOf(p.Target) {
					continue
				}
				if farEndpoint != nil && !ot.IsSubclassOf(farEndpoint) {
					continue
				}
				return p
			}
		}
	}
	return nil
}

// A Tuple is an ordered or named product type.
type Tuple struct {
	baseObject
	Named        bool
	ElementNames []string
	ElementTypes []Type
}

// NewTuple creates a tuple type. For unnamed tuples names are the
// element indexes.
func NewTuple(named bool, names []string, types []Type) *Tuple {
	t := &Tuple{
		baseObject:   newBaseObject(Name{Module: "std", Name: "tuple"}),
		Named:        named,
		ElementNames: names,
		ElementTypes: types,
	}
	return t
}

func (*Tuple) typeNode() {}

// ElementType returns the type of the named element and whether it
// exists.
func (t *Tuple) ElementType(name string) (Type, bool) {
	for i, n := range t.ElementNames {
		if n == name {
			return t.ElementTypes[i], true
		}
	}
	return nil, false
}

func (t *Tuple) IsSubclassOf(other Type) bool {
	if isAnyType(other) {
		return true
	}
	o, ok := other.(*Tuple)
	if !ok {
		return false
	}
	if len(t.ElementTypes) != len(o.ElementTypes) {
		return false
	}
	for i, et := range t.ElementTypes {
		if !et.IsSubclassOf(o.ElementTypes[i]) {
			return false
		}
	}
	return true
}

func (t *Tuple) String() string {
	var b strings.Builder
	b.WriteString("tuple<")
	for i, et := range t.ElementTypes {
		if i > 0 {
			b.WriteString(", ")
		}
		if t.Named {
			b.WriteString(t.ElementNames[i])
			b.WriteString(": ")
		}
		b.WriteString(et.SchemaName().String())
	}
	b.WriteString(">")
	return b.String()
}

// An Array is a homogeneous collection type.
type Array struct {
	baseObject
	Element Type
}

// NewArray creates an array type with the given element type. A nil
// element denotes an untyped empty array.
func NewArray(elem Type) *Array {
	return &Array{baseObject: newBaseObject(Name{Module: "std", Name: "array"}), Element: elem}
}

func (*Array) typeNode() {}

func (t *Array) IsSubclassOf(other Type) bool {
	if isAnyType(other) {
		return true
	}
	o, ok := other.(*Array)
	if !ok {
		return false
	}
	if t.Element == nil || o.Element == nil {
		return true
	}
	return t.Element.IsSubclassOf(o.Element)
}

// A Map is a key-value collection type.
type Map struct {
	baseObject
	Key   Type
	Value Type
}

// NewMap creates a map type. Nil key/value types denote an untyped
// empty mapping.
func NewMap(key, value Type) *Map {
	return &Map{baseObject: newBaseObject(Name{Module: "std", Name: "map"}), Key: key, Value: value}
}

func (*Map) typeNode() {}

func (t *Map) IsSubclassOf(other Type) bool {
	if isAnyType(other) {
		return true
	}
	o, ok := other.(*Map)
	if !ok {
		return false
	}
	if t.Key == nil || o.Key == nil {
		return true
	}
	return t.Key.IsSubclassOf(o.Key) && t.Value.IsSubclassOf(o.Value)
}

// An Enum is a scalar with a fixed set of values.
type Enum struct {
	baseObject
	Values []string
}

// NewEnum creates an enum type.
func NewEnum(name Name, values ...string) *Enum {
	return &Enum{baseObject: newBaseObject(name), Values: values}
}

func (*Enum) typeNode() {}

func (t *Enum) IsSubclassOf(other Type) bool {
	return t == other || isAnyType(other)
}

// isAnyType reports whether t is the std::any pseudo-type, which every
// type is a subclass of.
func isAnyType(t Type) bool {
	s, ok := t.(*Scalar)
	return ok && s.name == Name{Module: "std", Name: "any"}
}

// A Constraint restricts the values of a type or pointer.
type Constraint struct {
	baseObject
	Subject Object
	Expr    string
}

// An Annotation attaches schema metadata to an object.
type Annotation struct {
	baseObject
	Subject Object
	Value   string
}
