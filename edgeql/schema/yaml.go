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
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// The YAML schema format mirrors the declarative module layout used by
// embedders and the test suites:
//
//	modules:
//	  default:
//	    types:
//	      User:
//	        bases: [std::Object]
//	        pointers:
//	          name: {target: std::str}
//	          friends:
//	            target: User
//	            kind: link
//	            cardinality: many
//	            properties:
//	              weight: {target: std::float}
//	    views:
//	      RecentUsers: SELECT User FILTER User.age > 30
//	    functions:
//	      - name: visible
//	        params:
//	          - {name: of, type: User, kind: "set of"}
//	        returns: std::bool

type yamlSchema struct {
	Modules map[string]yamlModule `yaml:"modules"`
}

type yamlModule struct {
	Types     map[string]yamlType `yaml:"types"`
	Views     map[string]string   `yaml:"views"`
	Functions []yamlFunction      `yaml:"functions"`
}

type yamlType struct {
	Bases    []string               `yaml:"bases"`
	Abstract bool                   `yaml:"abstract"`
	Virtual  bool                   `yaml:"virtual"`
	Pointers map[string]yamlPointer `yaml:"pointers"`
}

type yamlPointer struct {
	Target      string                 `yaml:"target"`
	Kind        string                 `yaml:"kind"` // "link" or "property"
	Required    bool                   `yaml:"required"`
	ReadOnly    bool                   `yaml:"readonly"`
	Cardinality string                 `yaml:"cardinality"` // "one" or "many"
	Default     string                 `yaml:"default"`
	Properties  map[string]yamlPointer `yaml:"properties"`
}

type yamlFunction struct {
	Name         string      `yaml:"name"`
	Params       []yamlParam `yaml:"params"`
	Returns      string      `yaml:"returns"`
	SetOfReturn  bool        `yaml:"set_of_return"`
	Aggregate    bool        `yaml:"aggregate"`
	InitialValue string      `yaml:"initial_value"`
}

type yamlParam struct {
	Name    string `yaml:"name"`
	Type    string `yaml:"type"`
	Kind    string `yaml:"kind"` // "", "optional", "variadic", "set of"
	Default string `yaml:"default"`
}

// LoadYAML populates the catalog from a declarative YAML document.
// Types may reference each other across modules; resolution happens in
// a second pass, so declaration order does not matter.
func (c *Catalog) LoadYAML(src []byte) error {
	var doc yamlSchema
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return fmt.Errorf("schema: cannot parse YAML: %v", err)
	}

	// First pass: declare all object types.
	for modName, mod := range doc.Modules {
		m := c.Module(modName)
		if m == nil {
			m = NewModule(modName)
			c.AddModule(m)
		}
		for typeName := range mod.Types {
			m.AddType(NewObjectType(NewName(modName, typeName)))
		}
		for viewName, expr := range mod.Views {
			v := NewObjectType(NewName(modName, viewName))
			v.Expr = expr
			m.AddType(v)
		}
	}

	// Second pass: bases, pointers, and functions.
	for modName, mod := range doc.Modules {
		m := c.Module(modName)
		for typeName, yt := range mod.Types {
			t := m.Type(typeName).(*ObjectType)

			t.Abstract = yt.Abstract
			t.Virtual = yt.Virtual

			bases := yt.Bases
			if len(bases) == 0 {
				bases = []string{"std::Object"}
			}
			for _, baseName := range bases {
				base, err := c.typeRef(modName, baseName)
				if err != nil {
					return err
				}
				ot, ok := base.(*ObjectType)
				if !ok {
					return fmt.Errorf("schema: base %s of %s is not an object type", baseName, typeName)
				}
				t.Bases = append(t.Bases, ot)
			}

			for ptrName, yp := range yt.Pointers {
				ptr, err := c.loadPointer(modName, ptrName, yp)
				if err != nil {
					return err
				}
				t.AddPointer(ptr)
			}
		}

		for _, yf := range mod.Functions {
			fn, err := c.loadFunction(modName, yf)
			if err != nil {
				return err
			}
			m.AddFunction(fn)
		}
	}
	return nil
}

func (c *Catalog) typeRef(defaultModule, name string) (Type, error) {
	n := ParseName(name)
	if !n.IsQualified() {
		// Prefer the declaring module over the catalog default.
		if m := c.Module(defaultModule); m != nil {
			if t := m.Type(n.Name); t != nil {
				return t, nil
			}
		}
	}
	obj, err := c.Get(n, nil)
	if err != nil {
		return nil, err
	}
	t, ok := obj.(Type)
	if !ok {
		return nil, fmt.Errorf("schema: %s is not a type", name)
	}
	return t, nil
}

func (c *Catalog) loadPointer(modName, ptrName string, yp yamlPointer) (*Pointer, error) {
	target, err := c.typeRef(modName, yp.Target)
	if err != nil {
		return nil, err
	}

	kind := PropertyPointer
	if strings.EqualFold(yp.Kind, "link") {
		kind = LinkPointer
	} else if yp.Kind == "" {
		if _, isObj := target.(*ObjectType); isObj {
			kind = LinkPointer
		}
	}

	ptr := NewPointer(NewName(modName, ptrName), kind, target)
	ptr.Required = yp.Required
	ptr.ReadOnly = yp.ReadOnly
	ptr.Default = yp.Default
	switch strings.ToLower(yp.Cardinality) {
	case "many":
		ptr.Cardinality = ManyToMany
	case "one", "":
		ptr.Cardinality = ManyToOne
	default:
		return nil, fmt.Errorf("schema: invalid cardinality %q on %s", yp.Cardinality, ptrName)
	}

	for propName, pp := range yp.Properties {
		prop, err := c.loadPointer(modName, propName, pp)
		if err != nil {
			return nil, err
		}
		ptr.AddProperty(prop)
	}
	return ptr, nil
}

func (c *Catalog) loadFunction(modName string, yf yamlFunction) (*Function, error) {
	if yf.Name == "" {
		return nil, fmt.Errorf("schema: function in module %s has no name", modName)
	}
	ret, err := c.typeRef(modName, yf.Returns)
	if err != nil {
		return nil, err
	}

	var params []*Param
	for _, yp := range yf.Params {
		pt, err := c.typeRef(modName, yp.Type)
		if err != nil {
			return nil, err
		}
		kind := ParamDefault
		switch strings.ToLower(strings.TrimSpace(yp.Kind)) {
		case "":
		case "optional":
			kind = ParamOptional
		case "variadic":
			kind = ParamVariadic
		case "set of", "setof", "set_of":
			kind = ParamSetOf
		default:
			return nil, fmt.Errorf("schema: invalid parameter kind %q", yp.Kind)
		}
		params = append(params, &Param{
			Name:    yp.Name,
			Type:    pt,
			Kind:    kind,
			Default: yp.Default,
		})
	}

	fn := NewFunction(NewName(modName, yf.Name), params, ret)
	fn.SetOfReturn = yf.SetOfReturn
	fn.Aggregate = yf.Aggregate
	fn.InitialValue = yf.InitialValue
	return fn, nil
}
