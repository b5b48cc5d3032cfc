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
	"edgeql.org/go/edgeql/ast"
)

// Optimize normalizes module references before serialization: the std
// prefix is stripped from qualified names, and references to modules
// aliased in the statement's WITH block are rewritten to use the
// alias.
func Optimize(stmt ast.Statement) ast.Statement {
	aliases := moduleAliases(stmt)

	rewriteRefs(stmt, func(ref *ast.ClassRef) {
		switch {
		case ref.Module == "std":
			ref.Module = ""
		case ref.Module != "":
			if alias, ok := aliases[ref.Module]; ok {
				ref.Module = alias
			}
		}
	})
	return stmt
}

// Deoptimize expands module aliases back into full module names. The
// std prefix that Optimize strips is not restored.
func Deoptimize(stmt ast.Statement) ast.Statement {
	expansions := map[string]string{}
	for module, alias := range moduleAliases(stmt) {
		expansions[alias] = module
	}

	rewriteRefs(stmt, func(ref *ast.ClassRef) {
		if ref.Module == "" {
			return
		}
		if module, ok := expansions[ref.Module]; ok {
			ref.Module = module
		}
	})
	return stmt
}

// moduleAliases collects module-alias declarations of the statement's
// WITH block, keyed by module name.
func moduleAliases(stmt ast.Statement) map[string]string {
	aliases := map[string]string{}
	for _, b := range stmt.Bindings() {
		if decl, ok := b.(*ast.ModuleAliasDecl); ok && decl.Alias != "" {
			aliases[decl.Module] = decl.Alias
		}
	}
	return aliases
}

func rewriteRefs(stmt ast.Statement, f func(*ast.ClassRef)) {
	rewrite := func(x ast.Expr) ast.Expr {
		switch x := x.(type) {
		case *ast.Path:
			for _, step := range x.Steps {
				switch step := step.(type) {
				case *ast.ClassRef:
					f(step)
				case *ast.Ptr:
					f(step.Ptr)
					if step.Target != nil {
						f(step.Target)
					}
				}
			}
		case *ast.FunctionCall:
			f(x.Func)
		case *ast.TypeCast:
			rewriteTypeName(x.Type, f)
		case *ast.TypeFilter:
			f(x.Type)
		}
		return x
	}
	ast.RewriteExprs(stmt, rewrite)
	rewrite(stmt)
}

func rewriteTypeName(t *ast.TypeName, f func(*ast.ClassRef)) {
	if t.MainType.Module != "" {
		f(t.MainType)
	}
	for _, st := range t.SubTypes {
		rewriteTypeName(st, f)
	}
}
