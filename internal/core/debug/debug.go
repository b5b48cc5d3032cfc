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

// Package debug prints compiled IR in a compact tree form for tests
// and diagnostics.
package debug

import (
	"fmt"
	"strings"

	"github.com/kr/pretty"

	"edgeql.org/go/internal/core/ir"
)

// NodeString renders a single IR node as a one-line summary.
func NodeString(n ir.Node) string {
	switch n := n.(type) {
	case *ir.Set:
		kind := "ref"
		if n.Expr != nil {
			kind = fmt.Sprintf("%T", n.Expr)
		}
		t := "?"
		if n.Scls != nil {
			t = n.Scls.SchemaName().String()
		}
		return fmt.Sprintf("Set(%s: %s, %s)", n.PathID, t, kind)
	case *ir.Constant:
		return fmt.Sprintf("Constant(%v)", n.Value)
	case *ir.BinOp:
		return fmt.Sprintf("BinOp(%s)", n.Op)
	case *ir.SetOp:
		return fmt.Sprintf("SetOp(%s, exclusive=%v)", n.Op, n.Exclusive)
	case *ir.ExistPred:
		return fmt.Sprintf("ExistPred(negated=%v)", n.Negated)
	case *ir.FunctionCall:
		return fmt.Sprintf("FunctionCall(%s)", n.Func.Name)
	}
	return fmt.Sprintf("%T", n)
}

// Dump renders the IR graph reachable from n, one node per line in
// depth-first order. Lines are not indented; nesting depth is not shown.
func Dump(n ir.Node) string {
	var b strings.Builder
	depth := 0
	ir.Walk(n, func(m ir.Node) bool {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(NodeString(m))
		b.WriteByte('\n')
		return true
	})
	return b.String()
}

// Pretty renders the node with full field detail. Intended for test
// failure output only.
func Pretty(n ir.Node) string {
	return pretty.Sprint(n)
}
