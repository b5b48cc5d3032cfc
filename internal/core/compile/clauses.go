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
	"edgeql.org/go/internal/core/ir"
)

// compileWhereClause compiles a FILTER expression inside a fence.
func compileWhereClause(ctx *context, where ast.Expr) (*ir.Set, errors.Error) {
	if where == nil {
		return nil, nil
	}

	subctx := ctx.newFenced()
	subctx.PathScope.UnnestFence = true
	subctx.Clause = "where"

	irExpr, err := compileExpr(subctx, where)
	if err != nil {
		return nil, err
	}

	boolType, err := getCtxType(subctx, "std::bool", where)
	if err != nil {
		return nil, err
	}
	s, err := ensureSet(subctx, irExpr, boolType)
	if err != nil {
		return nil, err
	}
	return scopedSet(subctx, s)
}

// compileOrderByClause compiles each ORDER BY item inside its own
// fence and enforces singleton cardinality on it.
func compileOrderByClause(ctx *context, sortExprs []*ast.SortExpr) ([]*ir.SortExpr, errors.Error) {
	if len(sortExprs) == 0 {
		return nil, nil
	}

	subctx := ctx.new()
	subctx.Clause = "orderby"

	var result []*ir.SortExpr
	for _, sortExpr := range sortExprs {
		exprctx := subctx.newFenced()
		exprctx.PathScope.UnnestFence = true

		irExpr, err := compileExpr(exprctx, sortExpr.Path)
		if err != nil {
			return nil, err
		}
		s, err := scopedSet(exprctx, irExpr)
		if err != nil {
			return nil, err
		}
		s.SetSpan(sortExpr.Pos())
		if err := enforceSingleton(exprctx, s, sortExpr.Pos()); err != nil {
			return nil, err
		}

		direction := string(sortExpr.Direction)
		if direction == "" {
			direction = string(ast.SortAsc)
		}
		result = append(result, &ir.SortExpr{
			Expr:       s,
			Direction:  direction,
			NonesOrder: string(sortExpr.NonesOrder),
		})
	}
	return result, nil
}

// compileLimitOffsetClause compiles an OFFSET or LIMIT operand. Both
// are SET OF parameters, so the operand compiles behind a fence and
// must be a singleton.
func compileLimitOffsetClause(ctx *context, expr ast.Expr) (*ir.Set, errors.Error) {
	if expr == nil {
		return nil, nil
	}

	subctx := ctx.newFenced()
	subctx.Clause = "offsetlimit"

	irExpr, err := compileExpr(subctx, expr)
	if err != nil {
		return nil, err
	}
	intType, err := getCtxType(subctx, "std::int", expr)
	if err != nil {
		return nil, err
	}
	s, err := ensureSet(subctx, irExpr, intType)
	if err != nil {
		return nil, err
	}
	s, err = scopedSet(subctx, s)
	if err != nil {
		return nil, err
	}
	s.SetSpan(expr.Pos())
	if err := enforceSingleton(subctx, s, expr.Pos()); err != nil {
		return nil, err
	}
	return s, nil
}
