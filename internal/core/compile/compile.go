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
	"edgeql.org/go/edgeql/token"
	"edgeql.org/go/internal/core/inference"
	"edgeql.org/go/internal/core/ir"
)

// Statement compiles a parsed statement into the IR root. The schema
// is consulted read-only; all mutable state lives in the compilation
// context.
func Statement(qlstmt ast.Statement, s schema.Schema, cfg *Config) (*ir.Statement, errors.Error) {
	ctx, err := initContext(s, cfg)
	if err != nil {
		return nil, err
	}

	result, err := compileExpr(ctx, qlstmt)
	if err != nil {
		return nil, err
	}

	return finiExpression(ctx, result)
}

// Fragment compiles a single expression without the top-level
// statement bookkeeping, for use in computed defaults and fragments.
func Fragment(x ast.Expr, s schema.Schema, cfg *Config) (ir.Expr, errors.Error) {
	ctx, err := initContext(s, cfg)
	if err != nil {
		return nil, err
	}
	return compileExpr(ctx, x)
}

func initContext(s schema.Schema, cfg *Config) (*context, errors.Error) {
	c := &compiler{
		schema:       s,
		aliasCounts:  map[string]int{},
		viewClassMap: map[schema.Object]*ir.Set{},
		viewNodes:    map[string]schema.Type{},
	}
	if cfg != nil {
		c.cfg = *cfg
	}

	ctx := newContext(c)
	ctx.PathScope = ir.NewScopeFence()

	for alias, mod := range c.cfg.ModAliases {
		ctx.Namespaces[alias] = mod
	}
	for name, t := range c.cfg.ArgTypes {
		ctx.Arguments[name] = t
	}
	if err := populateAnchors(ctx, c.cfg.Anchors); err != nil {
		return nil, err
	}
	ctx.ToplevelResultViewName = c.cfg.ResultViewName

	return ctx, nil
}

// populateAnchors pre-compiles the externally-provided anchors into IR
// sets.
func populateAnchors(ctx *context, anchors map[string]schema.Object) errors.Error {
	for anchor, obj := range anchors {
		var step *ir.Set

		switch obj := obj.(type) {
		case schema.Type:
			step = classSet(ctx, obj)

		case *schema.Pointer:
			src, _ := obj.Source.(schema.Type)
			if src == nil {
				o, err := ctx.c.schema.Get(schema.NewName("std", "Object"), nil)
				if err != nil {
					return errors.NewKindf(errors.InternalKind, token.NoPos, "%v", err)
				}
				src = o.(schema.Type)
			}
			root := classSet(ctx, src)
			target := obj.FarEndpoint(schema.Outbound)
			var err errors.Error
			step, err = extendPath(ctx, root, obj, schema.Outbound, target, nil)
			if err != nil {
				return err
			}

		default:
			return errors.NewKindf(errors.InternalKind, token.NoPos,
				"unexpected anchor object %T for %q", obj, anchor)
		}

		step.Anchor = anchor
		ctx.Anchors[anchor] = step
	}
	return nil
}

// finiExpression seals the compilation: weak namespaces are stripped
// from all recorded sets and scope nodes, and the result type is
// verified.
func finiExpression(ctx *context, result ir.Expr) (*ir.Statement, errors.Error) {
	res, err := ensureSet(ctx, result, nil)
	if err != nil {
		return nil, err
	}

	for _, s := range ctx.c.allSets {
		if s.PathID.HasWeakNamespace() {
			s.PathID = s.PathID.StripWeakNamespaces()
		}
	}

	var root *ir.ScopeFence
	for n := ctx.PathScope; n != nil; n = n.Parent() {
		root = n
	}
	if root != nil {
		root.StripWeakNamespaces()
	}

	stmt := &ir.Statement{
		Expr:   res,
		Params: ctx.Arguments,
		Views:  ctx.c.viewNodes,
		Scope:  root,
	}
	if _, err := inference.Type(stmt, ctx.c.schema); err != nil {
		return nil, err
	}
	return stmt, nil
}

// compileExpr is the single dispatch point lowering an AST node to IR.
// Dispatch is exhaustive over the expression variants.
func compileExpr(ctx *context, x ast.Expr) (ir.Expr, errors.Error) {
	switch x := x.(type) {
	case *ast.Path:
		return compilePath(ctx, x)

	case *ast.Constant:
		return compileConstant(ctx, x)

	case *ast.Parameter:
		return compileParameter(ctx, x)

	case *ast.BinExpr:
		return compileBinOp(ctx, x)

	case *ast.UnaryExpr:
		return compileUnaryOp(ctx, x)

	case *ast.IfElse:
		return compileIfElseExpr(ctx, x)

	case *ast.ExistsExpr:
		return compileExists(ctx, x)

	case *ast.Coalesce:
		return compileCoalesce(ctx, x)

	case *ast.TypeCast:
		return compileTypeCast(ctx, x)

	case *ast.TypeFilter:
		return compileTypeFilter(ctx, x)

	case *ast.Indirection:
		return compileIndirection(ctx, x)

	case *ast.TupleLit:
		return compileTuple(ctx, x)

	case *ast.NamedTupleLit:
		return compileNamedTuple(ctx, x)

	case *ast.ArrayLit:
		return compileArray(ctx, x)

	case *ast.MappingLit:
		return compileMapping(ctx, x)

	case *ast.SetLit:
		return compileSetLit(ctx, x)

	case *ast.FunctionCall:
		return compileFunctionCall(ctx, x)

	case *ast.Shape:
		return compileShapeExpr(ctx, x)

	case *ast.ParenExpr:
		return compileExpr(ctx, x.X)

	case *ast.SelectQuery:
		return compileSelect(ctx, x)

	case *ast.ForQuery:
		return compileFor(ctx, x)

	case *ast.GroupQuery:
		return compileGroup(ctx, x)

	case *ast.InsertQuery:
		return compileInsert(ctx, x)

	case *ast.UpdateQuery:
		return compileUpdate(ctx, x)

	case *ast.DeleteQuery:
		return compileDelete(ctx, x)

	case *ast.SessionStateDecl:
		return nil, ctx.errf(errors.ExpressionKind, x,
			"session state commands cannot be compiled to IR")

	case ast.DDL:
		return nil, ctx.errf(errors.ExpressionKind, x,
			"DDL statements cannot be compiled to expression IR")

	case *ast.BadExpr:
		return nil, ctx.errf(errors.SyntaxKind, x, "invalid expression")
	}

	return nil, ctx.errf(errors.InternalKind, x,
		"no compiler handler for %T", x)
}
