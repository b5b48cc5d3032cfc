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

package edgeql

import (
	"fmt"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/codegen"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/ir"
)

// InlineParameters substitutes every parameter reference in the tree
// with the corresponding argument expression. It reports an error for
// parameters missing from args.
func InlineParameters(qlExpr ast.Node, args map[string]ast.Expr) error {
	var missing string
	ast.RewriteExprs(qlExpr, func(x ast.Expr) ast.Expr {
		p, ok := x.(*ast.Parameter)
		if !ok {
			return x
		}
		arg, ok := args[p.Name]
		if !ok {
			if missing == "" {
				missing = p.Name
			}
			return x
		}
		return arg
	})
	if missing != "" {
		return fmt.Errorf("could not resolve $%s argument", missing)
	}
	return nil
}

// IndexParameters unpacks a named-tuple argument literal into a map of
// argument expressions, unwrapping implicit SELECT wrappers.
func IndexParameters(qlArgs ast.Expr) (map[string]ast.Expr, error) {
	if sel, ok := qlArgs.(*ast.SelectQuery); ok && sel.Implicit {
		qlArgs = sel.Result
	}

	tuple, ok := qlArgs.(*ast.NamedTupleLit)
	if !ok {
		return nil, fmt.Errorf("unable to unpack arguments: a named tuple was expected")
	}

	args := make(map[string]ast.Expr, len(tuple.Elements))
	for _, el := range tuple.Elements {
		val := el.Val
		if sel, ok := val.(*ast.SelectQuery); ok && sel.Implicit {
			val = sel.Result
		}
		args[el.Name.Name] = val
	}
	return args, nil
}

// NormalizeExpr parses, compiles (for validation), and regenerates an
// expression in canonical form.
func NormalizeExpr(text string, s schema.Schema, opts *CompileOptions) (string, error) {
	ql, _, err := normalizeTree(text, s, opts)
	if err != nil {
		return "", err
	}
	return codegen.Node(Optimize(ql))
}

func normalizeTree(text string, s schema.Schema, opts *CompileOptions) (ast.Statement, *ir.Statement, error) {
	ql, err := Parse(text, modAliasesOf(opts))
	if err != nil {
		return nil, nil, err
	}
	irStmt, err := CompileASTToIR(ql, s, opts)
	if err != nil {
		return nil, nil, err
	}
	return ql, irStmt, nil
}
