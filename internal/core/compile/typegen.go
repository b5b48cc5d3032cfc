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

package compile

import (
	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/ir"
)

// collection type constructors are recognized by bare name.
var collectionTypeNames = map[string]bool{
	"array": true,
	"map":   true,
	"tuple": true,
}

// qlTypeNameToIRTypeRef resolves a syntactic type name into an IR type
// reference with fully-qualified names.
func qlTypeNameToIRTypeRef(ctx *context, t *ast.TypeName) (*ir.TypeRef, errors.Error) {
	main := t.MainType

	ref := &ir.TypeRef{}
	ref.SetSpan(t.Pos())

	if main.Module == "" && collectionTypeNames[main.Name] {
		ref.MainType = main.Name
	} else {
		obj, err := getSchemaObject(ctx, main)
		if err != nil {
			return nil, err
		}
		ref.MainType = obj.SchemaName().String()
	}

	for _, st := range t.SubTypes {
		sub, err := qlTypeNameToIRTypeRef(ctx, st)
		if err != nil {
			return nil, err
		}
		ref.SubTypes = append(ref.SubTypes, sub)
	}
	return ref, nil
}

// typeToQlTypeName renders a schema type as a syntactic type name.
func typeToQlTypeName(t schema.Type) *ast.TypeName {
	switch t := t.(type) {
	case *schema.Array:
		tn := &ast.TypeName{MainType: ast.NewClassRef("", "array")}
		if t.Element != nil {
			tn.SubTypes = []*ast.TypeName{typeToQlTypeName(t.Element)}
		}
		return tn
	case *schema.Map:
		tn := &ast.TypeName{MainType: ast.NewClassRef("", "map")}
		if t.Key != nil {
			tn.SubTypes = []*ast.TypeName{typeToQlTypeName(t.Key), typeToQlTypeName(t.Value)}
		}
		return tn
	case *schema.Tuple:
		tn := &ast.TypeName{MainType: ast.NewClassRef("", "tuple")}
		for _, et := range t.ElementTypes {
			tn.SubTypes = append(tn.SubTypes, typeToQlTypeName(et))
		}
		return tn
	}
	name := t.SchemaName()
	return &ast.TypeName{MainType: ast.NewClassRef(name.Module, name.Name)}
}

// processTypeRefExpr converts the IR of the right side of IS into a
// type reference, or an array of type references for tuple operands.
func processTypeRefExpr(ctx *context, x ir.Expr, src ast.Node) (ir.Expr, errors.Error) {
	s, ok := x.(*ir.Set)
	if !ok {
		return nil, ctx.errf(errors.SyntaxKind, src, "expecting a type reference")
	}

	if tuple, ok := s.Expr.(*ir.Tuple); ok {
		arr := &ir.Array{}
		arr.SetSpan(s.Span())
		for _, el := range tuple.Elements {
			ref, err := typeRefElem(ctx, el.Val, src)
			if err != nil {
				return nil, err
			}
			arr.Elements = append(arr.Elements, ref)
		}
		return arr, nil
	}

	return typeRefElem(ctx, s, src)
}

func typeRefElem(ctx *context, s *ir.Set, src ast.Node) (*ir.TypeRef, errors.Error) {
	if s.RPtr != nil || s.Scls == nil {
		return nil, ctx.errf(errors.SyntaxKind, src, "expecting a type reference")
	}
	ref := &ir.TypeRef{MainType: s.Scls.SchemaName().String()}
	ref.SetSpan(s.Span())
	return ref, nil
}
