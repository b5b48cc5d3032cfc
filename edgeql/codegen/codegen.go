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

// Package codegen renders EdgeQL syntax trees back to canonical source
// text. Binary operations and statement clauses print in a normalized
// form: generating, re-parsing, and generating again is a fixpoint.
package codegen

import (
	"fmt"
	"strings"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/token"
)

// Node renders any expression node to EdgeQL source.
func Node(x ast.Expr) (string, error) {
	var g generator
	if err := g.expr(x); err != nil {
		return "", err
	}
	return g.String(), nil
}

// Statements renders a statement block, one statement per line,
// semicolon-terminated.
func Statements(stmts []ast.Statement) (string, error) {
	var b strings.Builder
	for _, s := range stmts {
		src, err := Node(s)
		if err != nil {
			return "", err
		}
		b.WriteString(src)
		b.WriteString(";\n")
	}
	return b.String(), nil
}

type generator struct {
	strings.Builder
}

func (g *generator) errf(format string, args ...interface{}) error {
	return fmt.Errorf("codegen: "+format, args...)
}

// ident quotes names that collide with reserved keywords.
func ident(name string) string {
	if token.IsReserved(name) {
		return "`" + name + "`"
	}
	return name
}

func classRef(ref *ast.ClassRef) string {
	if ref.Module != "" {
		return ref.Module + "::" + ident(ref.Name)
	}
	return ident(ref.Name)
}

func (g *generator) expr(x ast.Expr) error {
	switch x := x.(type) {
	case *ast.Constant:
		g.WriteString(x.Value)

	case *ast.Parameter:
		g.WriteString("$" + x.Name)

	case *ast.ClassRef:
		g.WriteString(classRef(x))

	case *ast.Ident:
		g.WriteString(ident(x.Name))

	case *ast.Path:
		return g.path(x)

	case *ast.ParenExpr:
		// Binary operations, conditionals, and coalescing render with
		// their own parentheses; adding another pair would break the
		// generate-parse-generate fixpoint.
		switch x.X.(type) {
		case *ast.BinExpr, *ast.IfElse, *ast.Coalesce:
			return g.expr(x.X)
		}
		g.WriteString("(")
		if err := g.expr(x.X); err != nil {
			return err
		}
		g.WriteString(")")

	case *ast.BinExpr:
		g.WriteString("(")
		if err := g.expr(x.Left); err != nil {
			return err
		}
		g.WriteString(" " + x.Op.String() + " ")
		if err := g.expr(x.Right); err != nil {
			return err
		}
		g.WriteString(")")

	case *ast.UnaryExpr:
		op := x.Op.String()
		g.WriteString(op)
		if x.Op == token.NOT || x.Op == token.DISTINCT {
			g.WriteString(" ")
		}
		return g.expr(x.Operand)

	case *ast.IfElse:
		g.WriteString("(")
		if err := g.expr(x.IfExpr); err != nil {
			return err
		}
		g.WriteString(" IF ")
		if err := g.expr(x.Condition); err != nil {
			return err
		}
		g.WriteString(" ELSE ")
		if err := g.expr(x.ElseExpr); err != nil {
			return err
		}
		g.WriteString(")")

	case *ast.ExistsExpr:
		g.WriteString("EXISTS ")
		return g.expr(x.Expr)

	case *ast.Coalesce:
		g.WriteString("(")
		for i, a := range x.Args {
			if i > 0 {
				g.WriteString(" ?? ")
			}
			if err := g.expr(a); err != nil {
				return err
			}
		}
		g.WriteString(")")

	case *ast.TypeCast:
		g.WriteString("<")
		g.typeName(x.Type)
		g.WriteString(">")
		return g.expr(x.Expr)

	case *ast.TypeFilter:
		if err := g.expr(x.Expr); err != nil {
			return err
		}
		g.WriteString("[IS " + classRef(x.Type) + "]")

	case *ast.Indirection:
		if err := g.expr(x.Arg); err != nil {
			return err
		}
		for _, el := range x.Elements {
			switch el := el.(type) {
			case *ast.Index:
				g.WriteString("[")
				if err := g.expr(el.Expr); err != nil {
					return err
				}
				g.WriteString("]")
			case *ast.Slice:
				g.WriteString("[")
				if el.Start != nil {
					if err := g.expr(el.Start); err != nil {
						return err
					}
				}
				g.WriteString(":")
				if el.Stop != nil {
					if err := g.expr(el.Stop); err != nil {
						return err
					}
				}
				g.WriteString("]")
			}
		}

	case *ast.TupleLit:
		g.WriteString("(")
		for i, el := range x.Elements {
			if i > 0 {
				g.WriteString(", ")
			}
			if err := g.expr(el); err != nil {
				return err
			}
		}
		if len(x.Elements) == 1 {
			g.WriteString(",")
		}
		g.WriteString(")")

	case *ast.NamedTupleLit:
		g.WriteString("(")
		for i, el := range x.Elements {
			if i > 0 {
				g.WriteString(", ")
			}
			g.WriteString(ident(el.Name.Name) + " := ")
			if err := g.expr(el.Val); err != nil {
				return err
			}
		}
		g.WriteString(")")

	case *ast.ArrayLit:
		g.WriteString("[")
		for i, el := range x.Elements {
			if i > 0 {
				g.WriteString(", ")
			}
			if err := g.expr(el); err != nil {
				return err
			}
		}
		g.WriteString("]")

	case *ast.MappingLit:
		g.WriteString("[")
		for i, el := range x.Elements {
			if i > 0 {
				g.WriteString(", ")
			}
			if err := g.expr(el.Key); err != nil {
				return err
			}
			g.WriteString(" -> ")
			if err := g.expr(el.Value); err != nil {
				return err
			}
		}
		g.WriteString("]")

	case *ast.SetLit:
		g.WriteString("{")
		for i, el := range x.Elements {
			if i > 0 {
				g.WriteString(", ")
			}
			if err := g.expr(el); err != nil {
				return err
			}
		}
		g.WriteString("}")

	case *ast.FunctionCall:
		g.WriteString(classRef(x.Func))
		g.WriteString("(")
		for i, a := range x.Args {
			if i > 0 {
				g.WriteString(", ")
			}
			if a.Name != nil {
				g.WriteString(ident(a.Name.Name) + " := ")
			}
			if err := g.expr(a.Expr); err != nil {
				return err
			}
			if a.Filter != nil {
				g.WriteString(" FILTER ")
				if err := g.expr(a.Filter); err != nil {
					return err
				}
			}
			if len(a.Sort) > 0 {
				g.WriteString(" ORDER BY ")
				if err := g.sortList(a.Sort); err != nil {
					return err
				}
			}
		}
		g.WriteString(")")

	case *ast.Shape:
		if x.Expr != nil {
			if err := g.expr(x.Expr); err != nil {
				return err
			}
			g.WriteString(" ")
		}
		return g.shape(x.Elements)

	case ast.Statement:
		return g.statement(x)

	default:
		return g.errf("unhandled node %T", x)
	}
	return nil
}

func (g *generator) path(x *ast.Path) error {
	for i, step := range x.Steps {
		switch step := step.(type) {
		case *ast.ClassRef:
			g.WriteString(classRef(step))

		case *ast.Ptr:
			switch {
			case step.Kind == ast.PtrProperty:
				g.WriteString("@")
			case step.Direction == ast.Inbound:
				g.WriteString(".<")
			default:
				if i > 0 || x.Partial {
					g.WriteString(".")
				}
			}
			g.WriteString(ident(step.Ptr.Name))
			if step.Target != nil {
				g.WriteString("[IS " + classRef(step.Target) + "]")
			}

		default:
			if i > 0 {
				return g.errf("unexpected non-first path step %T", step)
			}
			if err := g.expr(step); err != nil {
				return err
			}
		}
	}
	return nil
}

func (g *generator) typeName(t *ast.TypeName) {
	g.WriteString(classRef(t.MainType))
	if len(t.SubTypes) > 0 {
		g.WriteString("<")
		for i, st := range t.SubTypes {
			if i > 0 {
				g.WriteString(", ")
			}
			g.typeName(st)
		}
		g.WriteString(">")
	}
}

func (g *generator) shape(elements []*ast.ShapeElement) error {
	g.WriteString("{")
	for i, el := range elements {
		if i > 0 {
			g.WriteString(", ")
		}
		if err := g.shapeElement(el); err != nil {
			return err
		}
	}
	g.WriteString("}")
	return nil
}

func (g *generator) shapeElement(el *ast.ShapeElement) error {
	path := el.Expr
	if ref, ok := path.Steps[0].(*ast.ClassRef); ok && len(path.Steps) > 1 {
		// A leading class reference is the `[IS Type].` source qualifier.
		g.WriteString("[IS " + classRef(ref) + "].")
		path = &ast.Path{Steps: path.Steps[1:]}
	}
	if err := g.path(path); err != nil {
		return err
	}
	if el.Recurse {
		g.WriteString("*")
		if el.RecurseLimit != nil {
			if err := g.expr(el.RecurseLimit); err != nil {
				return err
			}
		}
	}
	if el.CompExpr != nil {
		g.WriteString(" := ")
		if err := g.expr(el.CompExpr); err != nil {
			return err
		}
	}
	if len(el.Elements) > 0 {
		g.WriteString(": ")
		if err := g.shape(el.Elements); err != nil {
			return err
		}
	}
	if el.Where != nil {
		g.WriteString(" FILTER ")
		if err := g.expr(el.Where); err != nil {
			return err
		}
	}
	if len(el.OrderBy) > 0 {
		g.WriteString(" ORDER BY ")
		if err := g.sortList(el.OrderBy); err != nil {
			return err
		}
	}
	if el.Offset != nil {
		g.WriteString(" OFFSET ")
		if err := g.expr(el.Offset); err != nil {
			return err
		}
	}
	if el.Limit != nil {
		g.WriteString(" LIMIT ")
		if err := g.expr(el.Limit); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) sortList(sorts []*ast.SortExpr) error {
	for i, s := range sorts {
		if i > 0 {
			g.WriteString(", ")
		}
		if err := g.expr(s.Path); err != nil {
			return err
		}
		// The default direction prints explicitly as ASC.
		dir := s.Direction
		if dir == ast.SortDefault {
			dir = ast.SortAsc
		}
		g.WriteString(" " + string(dir))
		switch s.NonesOrder {
		case ast.NonesFirst:
			g.WriteString(" EMPTY FIRST")
		case ast.NonesLast:
			g.WriteString(" EMPTY LAST")
		}
	}
	return nil
}

func (g *generator) withBlock(stmt ast.Statement) error {
	bindings := stmt.Bindings()
	if len(bindings) == 0 {
		return nil
	}
	g.WriteString("WITH ")
	for i, b := range bindings {
		if i > 0 {
			g.WriteString(", ")
		}
		switch b := b.(type) {
		case *ast.ModuleAliasDecl:
			if b.Alias != "" {
				g.WriteString(ident(b.Alias) + " AS ")
			}
			g.WriteString("MODULE " + b.Module)
		case *ast.AliasedExpr:
			g.WriteString(ident(b.Alias.Name) + " := ")
			if err := g.expr(b.Expr); err != nil {
				return err
			}
		}
	}
	g.WriteString(" ")
	return nil
}

func (g *generator) queryClauses(where ast.Expr, orderBy []*ast.SortExpr, offset, limit ast.Expr) error {
	if where != nil {
		g.WriteString(" FILTER ")
		if err := g.expr(where); err != nil {
			return err
		}
	}
	if len(orderBy) > 0 {
		g.WriteString(" ORDER BY ")
		if err := g.sortList(orderBy); err != nil {
			return err
		}
	}
	if offset != nil {
		g.WriteString(" OFFSET ")
		if err := g.expr(offset); err != nil {
			return err
		}
	}
	if limit != nil {
		g.WriteString(" LIMIT ")
		if err := g.expr(limit); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) statement(x ast.Statement) error {
	switch x := x.(type) {
	case *ast.SelectQuery:
		if x.Implicit && len(x.Aliases) == 0 {
			return g.expr(x.Result)
		}
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("SELECT ")
		if x.ResultAlias != "" {
			g.WriteString(ident(x.ResultAlias) + " := ")
		}
		if err := g.expr(x.Result); err != nil {
			return err
		}
		return g.queryClauses(x.Where, x.OrderBy, x.Offset, x.Limit)

	case *ast.ForQuery:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("FOR " + ident(x.IteratorAlias.Name) + " IN ")
		if err := g.expr(x.Iterator); err != nil {
			return err
		}
		g.WriteString(" UNION ")
		if x.ResultAlias != "" {
			g.WriteString(ident(x.ResultAlias) + " := ")
		}
		if err := g.expr(x.Result); err != nil {
			return err
		}
		return g.queryClauses(x.Where, x.OrderBy, x.Offset, x.Limit)

	case *ast.GroupQuery:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("GROUP ")
		if x.SubjectAlias != "" {
			g.WriteString(ident(x.SubjectAlias) + " := ")
		}
		if err := g.expr(x.Subject); err != nil {
			return err
		}
		g.WriteString(" USING ")
		for i, u := range x.Using {
			if i > 0 {
				g.WriteString(", ")
			}
			g.WriteString(ident(u.Alias.Name) + " := ")
			if err := g.expr(u.Expr); err != nil {
				return err
			}
		}
		g.WriteString(" BY ")
		for i, b := range x.By {
			if i > 0 {
				g.WriteString(", ")
			}
			if err := g.expr(b); err != nil {
				return err
			}
		}
		g.WriteString(" INTO " + ident(x.Into.Name))
		g.WriteString(" UNION ")
		if x.ResultAlias != "" {
			g.WriteString(ident(x.ResultAlias) + " := ")
		}
		if err := g.expr(x.Result); err != nil {
			return err
		}
		return g.queryClauses(x.Where, x.OrderBy, x.Offset, x.Limit)

	case *ast.InsertQuery:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("INSERT ")
		if err := g.expr(x.Subject); err != nil {
			return err
		}
		if len(x.Shape) > 0 {
			g.WriteString(" ")
			return g.shape(x.Shape)
		}
		return nil

	case *ast.UpdateQuery:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("UPDATE ")
		if err := g.expr(x.Subject); err != nil {
			return err
		}
		if x.Where != nil {
			g.WriteString(" FILTER ")
			if err := g.expr(x.Where); err != nil {
				return err
			}
		}
		g.WriteString(" SET ")
		return g.shape(x.Shape)

	case *ast.DeleteQuery:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("DELETE ")
		return g.expr(x.Subject)

	case *ast.SessionStateDecl:
		g.WriteString("SET ")
		for i, item := range x.Items {
			if i > 0 {
				g.WriteString(", ")
			}
			switch item := item.(type) {
			case *ast.ModuleAliasDecl:
				if item.Alias != "" {
					g.WriteString(ident(item.Alias) + " := MODULE " + item.Module)
				} else {
					g.WriteString("MODULE " + item.Module)
				}
			case *ast.AliasedExpr:
				g.WriteString(ident(item.Alias.Name) + " := ")
				if err := g.expr(item.Expr); err != nil {
					return err
				}
			}
		}
		return nil
	}

	return g.ddl(x)
}
