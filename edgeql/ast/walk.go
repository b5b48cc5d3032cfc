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

package ast

// Inspect traverses the AST depth-first, left to right, calling f for
// each node. If f returns false, the node's children are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	RewriteChildren(n, func(x Expr) Expr {
		Inspect(x, f)
		return x
	})
}

// RewriteExprs rewrites every expression in the tree bottom-up: f is
// applied to each child expression after its own children have been
// rewritten, and the result replaces the child in its parent.
func RewriteExprs(n Node, f func(Expr) Expr) {
	RewriteChildren(n, func(x Expr) Expr {
		if x == nil {
			return nil
		}
		RewriteExprs(x, f)
		return f(x)
	})
}

// RewriteChildren applies f to every direct child expression of n,
// storing the result back. A nil result keeps the original child.
func RewriteChildren(n Node, f func(Expr) Expr) {
	apply := func(x Expr) Expr {
		if x == nil {
			return nil
		}
		if r := f(x); r != nil {
			return r
		}
		return x
	}
	applySorts := func(sorts []*SortExpr) {
		for _, s := range sorts {
			s.Path = apply(s.Path)
		}
	}
	applyBindings := func(bindings []Binding) {
		for _, b := range bindings {
			if ae, ok := b.(*AliasedExpr); ok {
				ae.Expr = apply(ae.Expr)
			}
		}
	}
	applyShape := func(elements []*ShapeElement) {
		for _, el := range elements {
			if el.CompExpr != nil {
				el.CompExpr = apply(el.CompExpr)
			}
			if el.Where != nil {
				el.Where = apply(el.Where)
			}
			applySorts(el.OrderBy)
			if el.Offset != nil {
				el.Offset = apply(el.Offset)
			}
			if el.Limit != nil {
				el.Limit = apply(el.Limit)
			}
			RewriteChildren(el, f)
		}
	}

	switch n := n.(type) {
	case *Path:
		for i, s := range n.Steps {
			if _, ok := s.(*Ptr); !ok {
				n.Steps[i] = apply(s)
			}
		}

	case *BinExpr:
		n.Left = apply(n.Left)
		n.Right = apply(n.Right)

	case *UnaryExpr:
		n.Operand = apply(n.Operand)

	case *IfElse:
		n.IfExpr = apply(n.IfExpr)
		n.Condition = apply(n.Condition)
		n.ElseExpr = apply(n.ElseExpr)

	case *ExistsExpr:
		n.Expr = apply(n.Expr)

	case *Coalesce:
		for i := range n.Args {
			n.Args[i] = apply(n.Args[i])
		}

	case *TypeCast:
		n.Expr = apply(n.Expr)

	case *TypeFilter:
		n.Expr = apply(n.Expr)

	case *Indirection:
		n.Arg = apply(n.Arg)
		for _, el := range n.Elements {
			switch el := el.(type) {
			case *Index:
				el.Expr = apply(el.Expr)
			case *Slice:
				if el.Start != nil {
					el.Start = apply(el.Start)
				}
				if el.Stop != nil {
					el.Stop = apply(el.Stop)
				}
			}
		}

	case *TupleLit:
		for i := range n.Elements {
			n.Elements[i] = apply(n.Elements[i])
		}

	case *NamedTupleLit:
		for _, el := range n.Elements {
			el.Val = apply(el.Val)
		}

	case *ArrayLit:
		for i := range n.Elements {
			n.Elements[i] = apply(n.Elements[i])
		}

	case *MappingLit:
		for _, el := range n.Elements {
			el.Key = apply(el.Key)
			el.Value = apply(el.Value)
		}

	case *SetLit:
		for i := range n.Elements {
			n.Elements[i] = apply(n.Elements[i])
		}

	case *ParenExpr:
		n.X = apply(n.X)

	case *FunctionCall:
		for _, a := range n.Args {
			a.Expr = apply(a.Expr)
			if a.Filter != nil {
				a.Filter = apply(a.Filter)
			}
			applySorts(a.Sort)
		}

	case *Shape:
		if n.Expr != nil {
			n.Expr = apply(n.Expr)
		}
		applyShape(n.Elements)

	case *ShapeElement:
		applyShape(n.Elements)

	case *SelectQuery:
		applyBindings(n.Aliases)
		n.Result = apply(n.Result)
		if n.Where != nil {
			n.Where = apply(n.Where)
		}
		applySorts(n.OrderBy)
		if n.Offset != nil {
			n.Offset = apply(n.Offset)
		}
		if n.Limit != nil {
			n.Limit = apply(n.Limit)
		}

	case *ForQuery:
		applyBindings(n.Aliases)
		n.Iterator = apply(n.Iterator)
		n.Result = apply(n.Result)
		if n.Where != nil {
			n.Where = apply(n.Where)
		}
		applySorts(n.OrderBy)
		if n.Offset != nil {
			n.Offset = apply(n.Offset)
		}
		if n.Limit != nil {
			n.Limit = apply(n.Limit)
		}

	case *GroupQuery:
		applyBindings(n.Aliases)
		n.Subject = apply(n.Subject)
		for _, u := range n.Using {
			u.Expr = apply(u.Expr)
		}
		for i := range n.By {
			n.By[i] = apply(n.By[i])
		}
		n.Result = apply(n.Result)
		if n.Where != nil {
			n.Where = apply(n.Where)
		}
		applySorts(n.OrderBy)
		if n.Offset != nil {
			n.Offset = apply(n.Offset)
		}
		if n.Limit != nil {
			n.Limit = apply(n.Limit)
		}

	case *InsertQuery:
		applyBindings(n.Aliases)
		n.Subject = apply(n.Subject)
		applyShape(n.Shape)

	case *UpdateQuery:
		applyBindings(n.Aliases)
		n.Subject = apply(n.Subject)
		if n.Where != nil {
			n.Where = apply(n.Where)
		}
		applyShape(n.Shape)

	case *DeleteQuery:
		applyBindings(n.Aliases)
		n.Subject = apply(n.Subject)

	case *SessionStateDecl:
		applyBindings(n.Items)

	case *CreateObject:
		for _, cmd := range n.Commands {
			RewriteChildren(cmd, f)
		}
	case *AlterObject:
		for _, cmd := range n.Commands {
			RewriteChildren(cmd, f)
		}
	case *DropObject:
		for _, cmd := range n.Commands {
			RewriteChildren(cmd, f)
		}
	case *CreateFunction:
		for _, p := range n.Params {
			if p.Default != nil {
				p.Default = apply(p.Default)
			}
		}
		if n.InitialValue != nil {
			n.InitialValue = apply(n.InitialValue)
		}

	case *SetField:
		n.Value = apply(n.Value)
	}
}
