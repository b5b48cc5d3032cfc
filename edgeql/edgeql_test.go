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

package edgeql_test

import (
	"strings"
	"testing"

	"github.com/go-quicktest/qt"

	"edgeql.org/go/edgeql"
	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/codegen"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/edgeql/token"
)

const testSchema = `
modules:
  default:
    types:
      User:
        pointers:
          name: {target: std::str, required: true}
          age: {target: std::int}
`

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat := schema.NewCatalog()
	if err := cat.LoadYAML([]byte(testSchema)); err != nil {
		t.Fatal(err)
	}
	return cat
}

func TestParseWrapsExpressions(t *testing.T) {
	stmt, err := edgeql.Parse("40 + 2;", nil)
	qt.Assert(t, qt.IsNil(err))

	sel, ok := stmt.(*ast.SelectQuery)
	if !ok {
		t.Fatalf("got %T, want *ast.SelectQuery", stmt)
	}
	qt.Assert(t, qt.IsTrue(sel.Implicit))

	bin, ok := sel.Result.(*ast.BinExpr)
	if !ok {
		t.Fatalf("result is %T, want *ast.BinExpr", sel.Result)
	}
	qt.Assert(t, qt.Equals(bin.Op, token.ADD))
}

func TestParseBlock(t *testing.T) {
	stmts, err := edgeql.ParseBlock("SELECT 1; SELECT 2; SELECT 3;")
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(stmts), 3))
}

func TestParseModAliases(t *testing.T) {
	stmt, err := edgeql.Parse("SELECT Issue;", map[string]string{"t": "test"})
	qt.Assert(t, qt.IsNil(err))
	bindings := stmt.Bindings()
	qt.Assert(t, qt.Equals(len(bindings), 1))
	decl := bindings[0].(*ast.ModuleAliasDecl)
	qt.Assert(t, qt.Equals(decl.Alias, "t"))
	qt.Assert(t, qt.Equals(decl.Module, "test"))
}

func TestCompileToIR(t *testing.T) {
	stmt, err := edgeql.CompileToIR("SELECT User.name;", testCatalog(t), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNotNil(stmt))
	qt.Assert(t, qt.Equals(stmt.Expr.Scls.SchemaName().String(), "std::str"))
}

func TestCompileFragmentToIR(t *testing.T) {
	x, err := edgeql.CompileFragmentToIR("40 + 2", testCatalog(t), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNotNil(x))
}

func TestCompileErrors(t *testing.T) {
	_, err := edgeql.CompileToIR("SELECT Missing;", testCatalog(t), nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrReference)))

	_, err = edgeql.CompileToIR("SELECT ;", testCatalog(t), nil)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestOptimize(t *testing.T) {
	stmt, err := edgeql.Parse("SELECT std::len(User.name);", nil)
	qt.Assert(t, qt.IsNil(err))

	src, err := codegen.Node(edgeql.Optimize(stmt))
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(src, "SELECT len(User.name)"))
}

func TestOptimizeAliases(t *testing.T) {
	stmt, err := edgeql.Parse("WITH m AS MODULE mylib SELECT mylib::Foo;", nil)
	qt.Assert(t, qt.IsNil(err))

	src, err := codegen.Node(edgeql.Optimize(stmt))
	qt.Assert(t, qt.IsNil(err))
	if !strings.Contains(src, "m::Foo") {
		t.Errorf("aliased module not rewritten: %s", src)
	}

	src, err = codegen.Node(edgeql.Deoptimize(stmt))
	qt.Assert(t, qt.IsNil(err))
	if !strings.Contains(src, "mylib::Foo") {
		t.Errorf("alias not expanded back: %s", src)
	}
}

func TestInlineParameters(t *testing.T) {
	stmt, err := edgeql.Parse("$x + 1;", nil)
	qt.Assert(t, qt.IsNil(err))

	arg := &ast.Constant{Kind: token.INT, Value: "42"}
	qt.Assert(t, qt.IsNil(edgeql.InlineParameters(stmt, map[string]ast.Expr{"x": arg})))

	src, err := codegen.Node(stmt)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(src, "(42 + 1)"))

	// Missing arguments are reported.
	stmt, err = edgeql.Parse("$y;", nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.IsNotNil(edgeql.InlineParameters(stmt, nil)))
}

func TestIndexParameters(t *testing.T) {
	stmt, err := edgeql.Parse("(a := 1, b := 'x');", nil)
	qt.Assert(t, qt.IsNil(err))

	args, err := edgeql.IndexParameters(stmt)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(args), 2))
	if _, ok := args["a"].(*ast.Constant); !ok {
		t.Errorf("argument a is %T, want *ast.Constant", args["a"])
	}

	_, err = edgeql.IndexParameters(&ast.Constant{Kind: token.INT, Value: "1"})
	qt.Assert(t, qt.IsNotNil(err))
}

func TestNormalizeExpr(t *testing.T) {
	src, err := edgeql.NormalizeExpr("SELECT   User . name;", testCatalog(t), nil)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(src, "SELECT User.name"))
}
