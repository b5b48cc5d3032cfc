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
	"edgeql.org/go/edgeql/token"
	"edgeql.org/go/internal/core/ir"
)

// ensureQlStmt wraps a bare expression into a SELECT statement.
func ensureQlStmt(x ast.Expr) ast.Statement {
	x = unparen(x)
	if stmt, ok := x.(ast.Statement); ok {
		return stmt
	}
	return &ast.SelectQuery{Result: x, Implicit: true}
}

func unparen(x ast.Expr) ast.Expr {
	if px, ok := x.(*ast.ParenExpr); ok {
		return unparen(px.X)
	}
	return x
}

// extendQlBinOp conjoins expr onto cond with AND; a nil cond yields
// expr.
func extendQlBinOp(cond, expr ast.Expr) ast.Expr {
	if cond == nil {
		return expr
	}
	return &ast.BinExpr{Left: cond, Op: token.AND, Right: expr}
}

// isExistsSet reports whether the IR expression is a set wrapping an
// EXISTS predicate.
func isExistsSet(x ir.Expr) (*ir.ExistPred, bool) {
	s, ok := x.(*ir.Set)
	if !ok {
		return nil, false
	}
	p, ok := s.Expr.(*ir.ExistPred)
	return p, ok
}

// isSubquerySet reports whether the IR expression is a set wrapping a
// statement.
func isSubquerySet(x ir.Expr) (ir.Stmt, bool) {
	s, ok := x.(*ir.Set)
	if !ok {
		return nil, false
	}
	stmt, ok := s.Expr.(ir.Stmt)
	return stmt, ok
}

// isQlPath reports whether the AST expression is a plain path (a shape
// over a path counts).
func isQlPath(x ast.Expr) bool {
	if shape, ok := x.(*ast.Shape); ok {
		x = shape.Expr
	}
	path, ok := x.(*ast.Path)
	if !ok {
		return false
	}
	switch path.Steps[0].(type) {
	case *ast.ClassRef, *ast.Ptr:
		return true
	}
	return false
}

// isDegenerateSelect reports whether the SELECT carries nothing beyond
// a plain path result: no clauses, and the path root is not shadowed
// by one of the statement's own aliases. Below the top level such a
// statement compiles to just the path; at the top level it still
// compiles to a SelectStmt.
func isDegenerateSelect(x *ast.SelectQuery) bool {
	if !isQlPath(x.Result) {
		return false
	}

	result := x.Result
	if shape, ok := result.(*ast.Shape); ok {
		result = shape.Expr
	}
	start := result.(*ast.Path).Steps[0]

	if ref, ok := start.(*ast.ClassRef); ok && ref.Module == "" {
		for _, a := range x.Aliases {
			if ae, ok := a.(*ast.AliasedExpr); ok && ae.Alias.Name == ref.Name {
				return false
			}
		}
	}

	return x.Where == nil && x.OrderBy == nil && x.Offset == nil && x.Limit == nil
}

// schemaNameIsReserved reports whether a short name collides with a
// reserved keyword.
func schemaNameIsReserved(name string) bool {
	return token.IsReserved(name)
}

// flattenSetLit flattens nested set literals into one element list.
func flattenSetLit(x *ast.SetLit) []ast.Expr {
	var elements []ast.Expr
	for _, el := range x.Elements {
		if nested, ok := unparen(el).(*ast.SetLit); ok {
			elements = append(elements, flattenSetLit(nested)...)
		} else {
			elements = append(elements, el)
		}
	}
	return elements
}
