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

// Package inference implements the idempotent type and cardinality
// passes over compiled IR.
package inference

import (
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/edgeql/token"
	"edgeql.org/go/internal/core/ir"
)

// Type infers the result type of an IR expression. The pass is
// idempotent: repeated invocations return the same type.
func Type(e ir.Expr, s schema.Schema) (schema.Type, errors.Error) {
	switch e := e.(type) {
	case *ir.Set:
		if e.Scls != nil {
			return e.Scls, nil
		}
		if e.Expr == nil {
			return nil, errors.NewKindf(errors.InternalKind, e.Span(),
				"untyped set %s has no expression", e.PathID)
		}
		t, err := Type(e.Expr, s)
		if err != nil {
			return nil, err
		}
		e.Scls = t
		return t, nil

	case *ir.Constant:
		return e.Type, nil

	case *ir.Parameter:
		if e.Type == nil {
			return nil, errors.NewKindf(errors.TypeKind, e.Span(),
				"could not determine the type of parameter $%s", e.Name)
		}
		return e.Type, nil

	case *ir.EmptySet:
		return getType(s, "std::null", e.Span())

	case *ir.BinOp:
		return binOpType(e, s)

	case *ir.UnaryOp:
		if e.Op == token.NOT {
			return getType(s, "std::bool", e.Span())
		}
		return Type(e.Expr, s)

	case *ir.SetOp:
		lt, err := Type(e.Left, s)
		if err != nil {
			return nil, err
		}
		rt, err := Type(e.Right, s)
		if err != nil {
			return nil, err
		}
		t := schema.NearestCommonAncestor(lt, rt)
		if t == nil {
			return nil, errors.NewKindf(errors.TypeKind, e.Span(),
				"UNION operands %s and %s are not of related types",
				lt.SchemaName(), rt.SchemaName())
		}
		return t, nil

	case *ir.TypeCast:
		return typeFromRef(e.Type, s, e.Span())

	case *ir.TypeFilter:
		return typeFromRef(e.Type, s, e.Span())

	case *ir.TypeRef:
		return typeFromRef(e, s, e.Span())

	case *ir.Tuple:
		names := make([]string, len(e.Elements))
		types := make([]schema.Type, len(e.Elements))
		for i, el := range e.Elements {
			names[i] = el.Name
			t, err := Type(el.Val, s)
			if err != nil {
				return nil, err
			}
			types[i] = t
		}
		return schema.NewTuple(e.Named, names, types), nil

	case *ir.Array:
		var elem schema.Type
		for _, el := range e.Elements {
			t, err := Type(el, s)
			if err != nil {
				return nil, err
			}
			elem = schema.NearestCommonAncestor(elem, t)
			if elem == nil {
				return nil, errors.NewKindf(errors.TypeKind, e.Span(),
					"array elements are not of related types")
			}
		}
		return schema.NewArray(elem), nil

	case *ir.Mapping:
		var key, val schema.Type
		for i := range e.Keys {
			kt, err := Type(e.Keys[i], s)
			if err != nil {
				return nil, err
			}
			vt, err := Type(e.Values[i], s)
			if err != nil {
				return nil, err
			}
			key = schema.NearestCommonAncestor(key, kt)
			val = schema.NearestCommonAncestor(val, vt)
		}
		return schema.NewMap(key, val), nil

	case *ir.ExistPred:
		return getType(s, "std::bool", e.Span())

	case *ir.Coalesce:
		var t schema.Type
		for _, a := range e.Args {
			at, err := Type(a, s)
			if err != nil {
				return nil, err
			}
			if isNullType(at) {
				continue
			}
			t = schema.NearestCommonAncestor(t, at)
			if t == nil {
				return nil, errors.NewKindf(errors.TypeKind, e.Span(),
					"coalescing operands are not of related types")
			}
		}
		if t == nil {
			return getType(s, "std::null", e.Span())
		}
		return t, nil

	case *ir.FunctionCall:
		return callType(e, s)

	case *ir.IndexIndirection:
		return indexType(e, s)

	case *ir.SliceIndirection:
		return Type(e.Expr, s)

	case *ir.TupleIndirection:
		t, err := Type(e.Expr, s)
		if err != nil {
			return nil, err
		}
		tup, ok := t.(*schema.Tuple)
		if !ok {
			return nil, errors.NewKindf(errors.TypeKind, e.Span(),
				"%s is not a tuple", t.SchemaName())
		}
		et, ok := tup.ElementType(e.Name)
		if !ok {
			return nil, errors.NewKindf(errors.ReferenceKind, e.Span(),
				"%s is not a member of %s", e.Name, tup)
		}
		return et, nil

	case *ir.SelectStmt:
		return Type(e.Result, s)
	case *ir.GroupStmt:
		return Type(e.Result, s)
	case *ir.InsertStmt:
		return Type(e.Result, s)
	case *ir.UpdateStmt:
		return Type(e.Result, s)
	case *ir.DeleteStmt:
		return Type(e.Result, s)

	case *ir.Statement:
		return Type(e.Expr, s)
	}

	return nil, errors.NewKindf(errors.InternalKind, e.Span(),
		"no type inference handler for %T", e)
}

func getType(s schema.Schema, name string, pos token.Pos) (schema.Type, errors.Error) {
	obj, err := s.Get(schema.ParseName(name), nil)
	if err != nil {
		return nil, errors.NewKindf(errors.InternalKind, pos, "%v", err)
	}
	return obj.(schema.Type), nil
}

func isNullType(t schema.Type) bool {
	return t != nil && t.SchemaName() == schema.NewName("std", "null")
}

func typeFromRef(ref *ir.TypeRef, s schema.Schema, pos token.Pos) (schema.Type, errors.Error) {
	switch ref.MainType {
	case "array":
		if len(ref.SubTypes) > 0 {
			elem, err := typeFromRef(ref.SubTypes[0], s, pos)
			if err != nil {
				return nil, err
			}
			return schema.NewArray(elem), nil
		}
		return schema.NewArray(nil), nil

	case "map":
		if len(ref.SubTypes) == 2 {
			key, err := typeFromRef(ref.SubTypes[0], s, pos)
			if err != nil {
				return nil, err
			}
			val, err := typeFromRef(ref.SubTypes[1], s, pos)
			if err != nil {
				return nil, err
			}
			return schema.NewMap(key, val), nil
		}
		return schema.NewMap(nil, nil), nil

	case "tuple":
		var names []string
		var types []schema.Type
		for i, st := range ref.SubTypes {
			t, err := typeFromRef(st, s, pos)
			if err != nil {
				return nil, err
			}
			names = append(names, itoa(i))
			types = append(types, t)
		}
		return schema.NewTuple(false, names, types), nil
	}

	obj, err := s.Get(schema.ParseName(ref.MainType), nil)
	if err != nil {
		return nil, errors.NewKindf(errors.ReferenceKind, pos, "%v", err)
	}
	t, ok := obj.(schema.Type)
	if !ok {
		return nil, errors.NewKindf(errors.TypeKind, pos,
			"%s is not a type", ref.MainType)
	}
	return t, nil
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [8]byte
	n := len(b)
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	return string(b[n:])
}

var boolOps = map[token.Token]bool{
	token.EQL: true, token.NEQ: true,
	token.LSS: true, token.GTR: true, token.LEQ: true, token.GEQ: true,
	token.COALEQL: true, token.COALNEQ: true,
	token.IN: true, token.NOTIN: true,
	token.IS: true, token.ISNOT: true,
	token.LIKE: true, token.ILIKE: true,
	token.AND: true, token.OR: true,
}

func binOpType(e *ir.BinOp, s schema.Schema) (schema.Type, errors.Error) {
	if boolOps[e.Op] {
		return getType(s, "std::bool", e.Span())
	}

	lt, err := Type(e.Left, s)
	if err != nil {
		return nil, err
	}
	rt, err := Type(e.Right, s)
	if err != nil {
		return nil, err
	}
	t := schema.NearestCommonAncestor(lt, rt)
	if t == nil {
		return nil, errors.NewKindf(errors.TypeKind, e.Span(),
			"operator '%s' is not defined for %s and %s",
			e.Op, lt.SchemaName(), rt.SchemaName())
	}
	return t, nil
}

func callType(e *ir.FunctionCall, s schema.Schema) (schema.Type, errors.Error) {
	ret := e.Func.ReturnType

	// Polymorphic functions return the concrete argument type.
	if isAnyRef(ret) && len(e.Args) > 0 {
		at, err := Type(e.Args[0], s)
		if err != nil {
			return nil, err
		}
		return at, nil
	}
	if arr, ok := ret.(*schema.Array); ok && isAnyRef(arr.Element) && len(e.Args) > 0 {
		at, err := Type(e.Args[0], s)
		if err != nil {
			return nil, err
		}
		return schema.NewArray(at), nil
	}
	return ret, nil
}

func isAnyRef(t schema.Type) bool {
	return t != nil && t.SchemaName() == schema.NewName("std", "any")
}

func indexType(e *ir.IndexIndirection, s schema.Schema) (schema.Type, errors.Error) {
	t, err := Type(e.Expr, s)
	if err != nil {
		return nil, err
	}
	switch t := t.(type) {
	case *schema.Array:
		return t.Element, nil
	case *schema.Map:
		return t.Value, nil
	}
	if t.SchemaName() == schema.NewName("std", "str") {
		return t, nil
	}
	return nil, errors.NewKindf(errors.TypeKind, e.Span(),
		"%s cannot be indexed", t.SchemaName())
}
