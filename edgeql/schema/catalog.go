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
	"sort"
)

// A Catalog is an in-memory Schema implementation. It is mutable
// during construction and must not be modified once compilations
// start.
type Catalog struct {
	modules map[string]*Module

	// DefaultModule is the module unqualified names resolve in before
	// falling back to std.
	DefaultModule string

	stdPointers map[string]*Pointer
}

// StdPointer returns one of the well-known std pointer classes:
// "link", "property", or "target".
func (c *Catalog) StdPointer(name string) *Pointer {
	return c.stdPointers[name]
}

// NewCatalog creates a catalog pre-populated with the std and schema
// modules.
func NewCatalog() *Catalog {
	c := &Catalog{
		modules:       map[string]*Module{},
		DefaultModule: "default",
	}
	c.AddModule(NewModule("default"))
	bootstrapStd(c)
	return c
}

// AddModule registers mod, replacing any module of the same name.
func (c *Catalog) AddModule(mod *Module) {
	c.modules[mod.Name] = mod
}

// Module returns the named module, or nil.
func (c *Catalog) Module(name string) *Module {
	return c.modules[name]
}

func (c *Catalog) moduleList() []*Module {
	names := make([]string, 0, len(c.modules))
	for n := range c.modules {
		names = append(names, n)
	}
	sort.Strings(names)
	mods := make([]*Module, len(names))
	for i, n := range names {
		mods[i] = c.modules[n]
	}
	return mods
}

// resolveModule maps a module reference through aliases. The alias ""
// names the default module.
func (c *Catalog) resolveModule(module string, aliases map[string]string) string {
	if module == "" {
		if m, ok := aliases[""]; ok {
			return m
		}
		return c.DefaultModule
	}
	if m, ok := aliases[module]; ok {
		return m
	}
	return module
}

// Get implements Schema.
func (c *Catalog) Get(name Name, aliases map[string]string) (Object, error) {
	if !name.IsQualified() {
		// Try the default module first, then std.
		for _, modName := range []string{c.resolveModule("", aliases), "std"} {
			if mod := c.modules[modName]; mod != nil {
				if t := mod.Type(name.Name); t != nil {
					return t, nil
				}
			}
		}
		return nil, &ErrNotFound{Name: name.String()}
	}

	modName := c.resolveModule(name.Module, aliases)
	mod := c.modules[modName]
	if mod == nil {
		return nil, &ErrNotFound{Name: name.String()}
	}
	if t := mod.Type(name.Name); t != nil {
		return t, nil
	}
	return nil, &ErrNotFound{Name: name.String()}
}

// Functions implements Schema.
func (c *Catalog) Functions(name Name, aliases map[string]string) []*Function {
	if !name.IsQualified() {
		for _, modName := range []string{c.resolveModule("", aliases), "std"} {
			if mod := c.modules[modName]; mod != nil {
				if fns := mod.functions[name.Name]; len(fns) > 0 {
					return fns
				}
			}
		}
		return nil
	}
	modName := c.resolveModule(name.Module, aliases)
	mod := c.modules[modName]
	if mod == nil {
		return nil
	}
	return mod.functions[name.Name]
}

// MustGetType fetches a type by qualified name, panicking if it is
// missing. Intended for bootstrap code and tests.
func (c *Catalog) MustGetType(name string) Type {
	obj, err := c.Get(ParseName(name), nil)
	if err != nil {
		panic(err)
	}
	t, ok := obj.(Type)
	if !ok {
		panic("schema object " + name + " is not a type")
	}
	return t
}

// NearestCommonAncestor computes the closest type both a and b are
// subclasses of, or nil if the types are unrelated.
func NearestCommonAncestor(a, b Type) Type {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.IsSubclassOf(b) {
		return b
	}
	if b.IsSubclassOf(a) {
		return a
	}
	for _, anc := range ancestors(a) {
		if b.IsSubclassOf(anc) {
			return anc
		}
	}
	return nil
}

func ancestors(t Type) []Type {
	var out []Type
	switch t := t.(type) {
	case *Scalar:
		for _, b := range t.Bases {
			out = append(out, b)
			out = append(out, ancestors(b)...)
		}
	case *ObjectType:
		if t.Material != nil {
			out = append(out, t.Material)
			out = append(out, ancestors(t.Material)...)
		}
		for _, b := range t.Bases {
			out = append(out, b)
			out = append(out, ancestors(b)...)
		}
	}
	return out
}
