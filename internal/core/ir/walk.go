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

package ir

// Walk traverses the IR graph depth-first, left to right, calling f
// for each node. If f returns false, the node's children are skipped.
// Walk follows Set.Expr and RPtr.Source edges but never the RPtr
// back-edge target, keeping the traversal acyclic.
func Walk(n Node, f func(Node) bool) {
	if n == nil || !f(n) {
		return
	}
	switch n := n.(type) {
	case *Set:
		if n.Expr != nil {
			Walk(n.Expr, f)
		}
		if n.RPtr != nil && n.RPtr.Source != nil {
			Walk(n.RPtr.Source, f)
		}
		for _, el := range n.Shape {
			Walk(el, f)
		}

	case *SelectStmt:
		if n.IteratorStmt != nil {
			Walk(n.IteratorStmt, f)
		}
		Walk(n.Result, f)
		if n.Where != nil {
			Walk(n.Where, f)
		}
		for _, s := range n.OrderBy {
			Walk(s.Expr, f)
		}
		if n.Offset != nil {
			Walk(n.Offset, f)
		}
		if n.Limit != nil {
			Walk(n.Limit, f)
		}

	case *GroupStmt:
		Walk(n.Subject, f)
		for _, g := range n.GroupBy {
			Walk(g, f)
		}
		Walk(n.Result, f)

	case *InsertStmt:
		Walk(n.Subject, f)
		Walk(n.Result, f)

	case *UpdateStmt:
		Walk(n.Subject, f)
		if n.Where != nil {
			Walk(n.Where, f)
		}
		Walk(n.Result, f)

	case *DeleteStmt:
		Walk(n.Subject, f)
		if n.Where != nil {
			Walk(n.Where, f)
		}
		Walk(n.Result, f)

	case *BinOp:
		Walk(n.Left, f)
		Walk(n.Right, f)

	case *UnaryOp:
		Walk(n.Expr, f)

	case *SetOp:
		Walk(n.Left, f)
		Walk(n.Right, f)

	case *TypeCast:
		Walk(n.Expr, f)

	case *TypeFilter:
		Walk(n.Expr, f)

	case *Tuple:
		for _, el := range n.Elements {
			Walk(el.Val, f)
		}

	case *Array:
		for _, el := range n.Elements {
			Walk(el, f)
		}

	case *Mapping:
		for _, k := range n.Keys {
			Walk(k, f)
		}
		for _, v := range n.Values {
			Walk(v, f)
		}

	case *ExistPred:
		Walk(n.Expr, f)

	case *Coalesce:
		for _, a := range n.Args {
			Walk(a, f)
		}

	case *FunctionCall:
		for _, a := range n.Args {
			Walk(a, f)
		}
		for _, a := range n.KwArgs {
			Walk(a, f)
		}

	case *IndexIndirection:
		Walk(n.Expr, f)
		Walk(n.Index, f)

	case *SliceIndirection:
		Walk(n.Expr, f)
		Walk(n.Start, f)
		Walk(n.Stop, f)

	case *TupleIndirection:
		Walk(n.Expr, f)

	case *Statement:
		Walk(n.Expr, f)
	}
}

// WalkNoStmt is like Walk but does not descend into nested statement
// nodes. It is used for path extraction, where sub-statement paths are
// scoped independently.
func WalkNoStmt(n Node, f func(Node) bool) {
	Walk(n, func(m Node) bool {
		if m != n {
			if _, isStmt := m.(Stmt); isStmt {
				return false
			}
		}
		return f(m)
	})
}
