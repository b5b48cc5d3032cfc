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

// A Pointer is a link (inter-object) or link property (on-link)
// relation.
type Pointer struct {
	baseObject
	Kind   PointerKind
	Source Object
	Target Type

	Required    bool
	ReadOnly    bool
	Cardinality Cardinality

	// Default is the pointer's default expression as EdgeQL text. A
	// non-readonly pointer with a default is a pure computable.
	Default string

	// Properties are the link's own link properties by short name.
	Properties map[string]*Pointer

	// Derived marks pointers synthesized during compilation rather
	// than declared in the schema.
	Derived bool

	Constraints []*Constraint
}

// NewPointer creates a pointer with the given fully-qualified name.
func NewPointer(name Name, kind PointerKind, target Type) *Pointer {
	return &Pointer{
		baseObject: newBaseObject(name),
		Kind:       kind,
		Target:     target,
		Properties: map[string]*Pointer{},
	}
}

// ShortName returns the unqualified pointer name.
func (p *Pointer) ShortName() string { return p.name.Name }

// Rename sets the pointer's schema name. Used for pointers derived
// during compilation.
func (p *Pointer) Rename(name Name) { p.name = name }

// AddProperty registers a link property on the pointer.
func (p *Pointer) AddProperty(prop *Pointer) {
	p.Properties[prop.ShortName()] = prop
	prop.Source = p
}

// FarEndpoint returns the type at the far end of the pointer for the
// given traversal direction.
func (p *Pointer) FarEndpoint(direction PointerDirection) Type {
	if direction == Inbound {
		if t, ok := p.Source.(Type); ok {
			return t
		}
		return nil
	}
	return p.Target
}

// system pointers are materialized by the server and never treated as
// computables.
var systemPointers = map[string]bool{
	"std::id":     true,
	"std::linkid": true,
	"std::ctime":  true,
	"std::mtime":  true,
}

// IsPureComputable reports whether the pointer is fully derived from
// its default expression.
func (p *Pointer) IsPureComputable() bool {
	return p.Default != "" && !p.ReadOnly && !systemPointers[p.name.String()]
}

// ResolvePointer implements Source for link properties: the source of
// an `@prop` step is the enclosing link.
func (p *Pointer) ResolvePointer(s Schema, name string, direction PointerDirection, farEndpoint Type) *Pointer {
	if direction != Outbound {
		return nil
	}
	if prop, ok := p.Properties[name]; ok {
		return prop
	}
	return nil
}

// Derive creates a specialization of the pointer between the given
// endpoints. The derived pointer is not added to any schema.
func (p *Pointer) Derive(source Object, target Type, qual string) *Pointer {
	d := &Pointer{
		baseObject: baseObject{
			name: Name{
				Module: p.name.Module,
				Name:   SpecializedName(p.name, qual),
			},
			id: p.id,
		},
		Kind:        p.Kind,
		Source:      source,
		Target:      target,
		Required:    p.Required,
		ReadOnly:    p.ReadOnly,
		Cardinality: p.Cardinality,
		Default:     p.Default,
		Properties:  p.Properties,
		Derived:     true,
	}
	return d
}

// A Function is a callable schema item, possibly overloaded.
type Function struct {
	baseObject

	// Name repeats the schema name for convenient direct access.
	Name Name

	Params     []*Param
	ReturnType Type

	// SetOfReturn marks functions whose result is a whole set.
	SetOfReturn bool

	// Aggregate marks aggregate functions.
	Aggregate bool

	// InitialValue is the aggregate's initial value, as EdgeQL text.
	InitialValue string

	// VariadicIndex is the 1-based index of the VARIADIC parameter, or
	// 0 if there is none.
	VariadicIndex int
}

// NewFunction creates a function.
func NewFunction(name Name, params []*Param, ret Type) *Function {
	fn := &Function{
		baseObject: newBaseObject(name),
		Name:       name,
		Params:     params,
		ReturnType: ret,
	}
	for i, p := range params {
		if p.Kind == ParamVariadic {
			fn.VariadicIndex = i + 1
		}
	}
	return fn
}

// A Param is a single function parameter.
type Param struct {
	Name    string
	Type    Type
	Kind    ParamKind
	Default string // EdgeQL text, or ""
}
