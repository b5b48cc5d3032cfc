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

package inference

import (
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/ir"
)

// Result cardinality of an expression.
type Result int

const (
	// One marks expressions guaranteed to produce at most one element
	// per evaluation.
	One Result = iota
	// Many marks everything else.
	Many
)

// Singletons is the set of path ids known to be singular in the
// current scope, keyed by PathId.Key.
type Singletons map[string]bool

// Add records a path id as singular.
func (s Singletons) Add(p ir.PathId) { s[p.Key()] = true }

// Has reports whether the path id is known singular.
func (s Singletons) Has(p ir.PathId) bool { return s[p.Key()] }

// Clone returns a copy of the set.
func (s Singletons) Clone() Singletons {
	c := make(Singletons, len(s))
	for k, v := range s {
		c[k] = v
	}
	return c
}

// Cardinality infers whether e is guaranteed to be a singleton. The
// pass is conservative: Many is reported whenever singularity cannot
// be proven.
func Cardinality(e ir.Expr, singletons Singletons, s schema.Schema) Result {
	switch e := e.(type) {
	case *ir.Set:
		if singletons.Has(e.PathID) {
			return One
		}
		if e.Expr != nil {
			return Cardinality(e.Expr, singletons, s)
		}
		if e.RPtr != nil {
			if Cardinality(e.RPtr.Source, singletons, s) == Many {
				return Many
			}
			return pointerCardinality(e.RPtr)
		}
		// A root class reference.
		return Many

	case *ir.Constant, *ir.Parameter, *ir.EmptySet:
		return One

	case *ir.BinOp:
		return allOne(singletons, s, e.Left, e.Right)

	case *ir.UnaryOp:
		return Cardinality(e.Expr, singletons, s)

	case *ir.ExistPred:
		return One

	case *ir.TypeCast:
		return Cardinality(e.Expr, singletons, s)

	case *ir.TypeFilter:
		return Cardinality(e.Expr, singletons, s)

	case *ir.Tuple:
		args := make([]ir.Expr, len(e.Elements))
		for i, el := range e.Elements {
			args[i] = el.Val
		}
		return allOne(singletons, s, args...)

	case *ir.Array:
		return allOne(singletons, s, e.Elements...)

	case *ir.Mapping:
		if allOne(singletons, s, e.Keys...) == One {
			return allOne(singletons, s, e.Values...)
		}
		return Many

	case *ir.Coalesce:
		return allOne(singletons, s, e.Args...)

	case *ir.FunctionCall:
		if e.Func.Aggregate {
			return One
		}
		if e.Func.SetOfReturn {
			return Many
		}
		return allOne(singletons, s, e.Args...)

	case *ir.IndexIndirection:
		return allOne(singletons, s, e.Expr, e.Index)

	case *ir.SliceIndirection:
		return allOne(singletons, s, e.Expr, e.Start, e.Stop)

	case *ir.TupleIndirection:
		return Cardinality(e.Expr, singletons, s)

	case *ir.SelectStmt:
		if e.Limit != nil {
			if c, ok := e.Limit.Expr.(*ir.Constant); ok {
				if d := c.Decimal(); d != nil {
					if v, err := d.Int64(); err == nil && v <= 1 {
						return One
					}
				}
			}
		}
		return Many

	case *ir.Statement:
		return Cardinality(e.Expr, singletons, s)
	}

	return Many
}

func allOne(singletons Singletons, s schema.Schema, args ...ir.Expr) Result {
	for _, a := range args {
		if a == nil {
			continue
		}
		if Cardinality(a, singletons, s) == Many {
			return Many
		}
	}
	return One
}

func pointerCardinality(p *ir.Pointer) Result {
	ptr := p.PtrCls
	if ptr == nil {
		return Many
	}
	if ptr.Kind == schema.PropertyPointer {
		return One
	}
	if p.Direction == schema.Outbound {
		switch ptr.Cardinality {
		case schema.ManyToOne, schema.OneToOne, schema.CardinalityDefault:
			return One
		}
		return Many
	}
	switch ptr.Cardinality {
	case schema.OneToOne, schema.OneToMany:
		return One
	}
	return Many
}
