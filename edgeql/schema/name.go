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
)

// A Name is a fully-qualified schema name: `module::name`.
type Name struct {
	Module string
	Name   string
}

// NewName returns the Name for the given module and local name.
func NewName(module, name string) Name {
	return Name{Module: module, Name: name}
}

// ParseName splits a possibly-qualified name string. A missing module
// part yields an empty Module.
func ParseName(s string) Name {
	if i := strings.Index(s, "::"); i >= 0 {
		return Name{Module: s[:i], Name: s[i+2:]}
	}
	return Name{Name: s}
}

// IsQualified reports whether the name carries a module part.
func (n Name) IsQualified() bool { return n.Module != "" }

func (n Name) String() string {
	if n.Module == "" {
		return n.Name
	}
	return n.Module + "::" + n.Name
}

// SpecializedName composes the name of a derived object, qualified by
// the name of the object it was derived for.
func SpecializedName(base Name, qual string) string {
	return fmt.Sprintf("%s@@%s", base.Name, strings.NewReplacer(":", "_", "@", "_").Replace(qual))
}
