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

package parser_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/codegen"
	"edgeql.org/go/edgeql/parser"
	"edgeql.org/go/edgeql/token"
)

// TestParse checks the parser through the canonical re-rendering of
// the resulting tree.
func TestParse(t *testing.T) {
	testCases := []struct{ desc, in, out string }{{
		"bare constant", "42", "42",
	}, {
		"addition", "40 + 2", "(40 + 2)",
	}, {
		"precedence: mul over add", "1 + 2 * 3", "(1 + (2 * 3))",
	}, {
		"precedence: pow right-assoc", "2 ^ 3 ^ 4", "(2 ^ (3 ^ 4))",
	}, {
		"union left-assoc", "SELECT 1 UNION 2 UNION 3", "SELECT ((1 UNION 2) UNION 3)",
	}, {
		"coalesce chain", "a ?? b ?? c", "(a ?? b ?? c)",
	}, {
		"coalesce binds tighter than if/else",
		"a IF c ELSE x ?? y",
		"(a IF c ELSE (x ?? y))",
	}, {
		"if/else right-assoc",
		"a IF c1 ELSE b IF c2 ELSE c",
		"(a IF c1 ELSE (b IF c2 ELSE c))",
	}, {
		"comparison", "SELECT User.age > 30", "SELECT (User.age > 30)",
	}, {
		"not in", "a NOT IN b", "(a NOT IN b)",
	}, {
		"is not", "a IS NOT b", "(a IS NOT b)",
	}, {
		"not folds comparisons", "NOT a = b AND c", "(NOT (a = b) AND c)",
	}, {
		"path", "SELECT User.friends.name", "SELECT User.friends.name",
	}, {
		"path directions", "SELECT User.<owner.>name", "SELECT User.<owner.name",
	}, {
		"link property", "SELECT User.friends@weight", "SELECT User.friends@weight",
	}, {
		"partial path", "SELECT User FILTER .age > 30", "SELECT User FILTER (.age > 30)",
	}, {
		"qualified name", "SELECT test::Issue.number", "SELECT test::Issue.number",
	}, {
		"type filter", "SELECT User[IS Employee]", "SELECT User[IS Employee]",
	}, {
		"step type filter", "SELECT User.pets[IS Dog].name", "SELECT User.pets[IS Dog].name",
	}, {
		"index", "SELECT User.name[0]", "SELECT User.name[0]",
	}, {
		"slice", "SELECT User.name[1:3]", "SELECT User.name[1:3]",
	}, {
		"open slice", "SELECT User.name[1:]", "SELECT User.name[1:]",
	}, {
		"tuple", "SELECT (1, 'a')", "SELECT (1, 'a')",
	}, {
		"single-element tuple", "SELECT (1,)", "SELECT (1,)",
	}, {
		"named tuple", "SELECT (a := 1, b := 2)", "SELECT (a := 1, b := 2)",
	}, {
		"tuple field access", "SELECT x.0.1", "SELECT x.0.1",
	}, {
		"array", "SELECT [1, 2, 3]", "SELECT [1, 2, 3]",
	}, {
		"mapping", "SELECT ['a' -> 1, 'b' -> 2]", "SELECT ['a' -> 1, 'b' -> 2]",
	}, {
		"set literal", "SELECT {1, 2, 3}", "SELECT {1, 2, 3}",
	}, {
		"empty set", "SELECT {}", "SELECT {}",
	}, {
		"type cast", "SELECT <int>'42'", "SELECT <int>'42'",
	}, {
		"parameterized cast", "SELECT <array<int>>[]", "SELECT <array<int>>[]",
	}, {
		"cast binds tighter than binary", "<int>a + 1", "(<int>a + 1)",
	}, {
		"exists", "SELECT EXISTS User.email", "SELECT EXISTS User.email",
	}, {
		"not exists", "SELECT NOT EXISTS User.email", "SELECT NOT EXISTS User.email",
	}, {
		"function call", "SELECT count(User)", "SELECT count(User)",
	}, {
		"function with named arg", "SELECT f(x := 1)", "SELECT f(x := 1)",
	}, {
		"aggregate modifiers",
		"SELECT array_agg(User.name ORDER BY User.name ASC)",
		"SELECT array_agg(User.name ORDER BY User.name ASC)",
	}, {
		"qualified function", "SELECT std::len(User.name)", "SELECT std::len(User.name)",
	}, {
		"shape", "SELECT User {name, age}", "SELECT User {name, age}",
	}, {
		"shape with computable", "SELECT User {total := 1 + 2}", "SELECT User {total := (1 + 2)}",
	}, {
		"nested shape", "SELECT User {friends: {name}}", "SELECT User {friends: {name}}",
	}, {
		"shape with link property", "SELECT User {@weight}", "SELECT User {@weight}",
	}, {
		"shape with qualifier", "SELECT Foo {[IS Bar].bar}", "SELECT Foo {[IS Bar].bar}",
	}, {
		"shape with clauses",
		"SELECT User {friends FILTER True ORDER BY User.name ASC LIMIT 5}",
		"SELECT User {friends FILTER True ORDER BY User.name ASC LIMIT 5}",
	}, {
		"select clauses",
		"SELECT User FILTER User.age > 30 ORDER BY User.name DESC OFFSET 5 LIMIT 10",
		"SELECT User FILTER (User.age > 30) ORDER BY User.name DESC OFFSET 5 LIMIT 10",
	}, {
		"order by empty last",
		"SELECT User ORDER BY User.name ASC EMPTY LAST",
		"SELECT User ORDER BY User.name ASC EMPTY LAST",
	}, {
		"with module",
		"WITH MODULE test SELECT Issue",
		"WITH MODULE test SELECT Issue",
	}, {
		"with alias",
		"WITH F := User.friends SELECT F.name",
		"WITH F := User.friends SELECT F.name",
	}, {
		"with module alias",
		"WITH lib AS MODULE std.extra SELECT lib::Obj",
		"WITH lib AS MODULE std.extra SELECT lib::Obj",
	}, {
		"select result alias",
		"SELECT x := User.name",
		"SELECT x := User.name",
	}, {
		"nested statement",
		"SELECT (INSERT Foo {bar := 42})",
		"SELECT (INSERT Foo {bar := 42})",
	}, {
		"for query",
		"FOR name IN {'a', 'b'} UNION (INSERT User {name := name})",
		"FOR name IN {'a', 'b'} UNION (INSERT User {name := name})",
	}, {
		"group query",
		"GROUP User USING G := User.name BY G INTO U UNION (name := G, num := count(U.tasks))",
		"GROUP User USING G := User.name BY G INTO U UNION (name := G, num := count(U.tasks))",
	}, {
		"insert", "INSERT Foo", "INSERT Foo",
	}, {
		"insert with shape", "INSERT Foo {bar := 42}", "INSERT Foo {bar := 42}",
	}, {
		"update",
		"UPDATE Foo FILTER Foo.bar = 24 SET {bar := 42}",
		"UPDATE Foo FILTER (Foo.bar = 24) SET {bar := 42}",
	}, {
		"delete", "DELETE Foo", "DELETE Foo",
	}, {
		"session state", "SET MODULE default", "SET MODULE default",
	}, {
		"session alias", "SET foo := MODULE default", "SET foo := MODULE default",
	}, {
		"backquoted identifier", "SELECT User.`select`", "SELECT User.`select`",
	}, {
		"parameter", "SELECT User.name LIMIT $1", "SELECT User.name LIMIT $1",
	}}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			stmt, err := parser.Parse("test.eql", tc.in+";")
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			got, err := codegen.Node(stmt)
			if err != nil {
				t.Fatalf("codegen error: %v", err)
			}
			if got != tc.out {
				t.Errorf("got  %s\nwant %s", got, tc.out)
			}
		})
	}
}

// TestParseRoundTrip verifies that rendering is a fixpoint: parsing
// the canonical output and rendering it again yields the same text.
func TestParseRoundTrip(t *testing.T) {
	queries := []string{
		"SELECT 40 + 2;",
		"SELECT User {name, friends: {name}} FILTER .age > 30;",
		"WITH MODULE test SELECT Issue {number} FILTER Issue.number = '1';",
		"FOR x IN {1, 2, 3} UNION x + 1;",
		"UPDATE Foo FILTER Foo.bar = 24 SET {bar := 42};",
		"SELECT 1 UNION 2 UNION 3;",
		"SELECT <map<str, int>>['a' -> 1];",
	}
	for _, q := range queries {
		stmt, err := parser.Parse("", q)
		if err != nil {
			t.Fatalf("%s: parse error: %v", q, err)
		}
		first, err := codegen.Node(stmt)
		if err != nil {
			t.Fatalf("%s: codegen error: %v", q, err)
		}
		stmt2, err := parser.Parse("", first+";")
		if err != nil {
			t.Fatalf("%s: reparse error: %v", first, err)
		}
		second, err := codegen.Node(stmt2)
		if err != nil {
			t.Fatalf("%s: second codegen error: %v", first, err)
		}
		if diff := cmp.Diff(first, second); diff != "" {
			t.Errorf("%s: not a fixpoint (-first +second):\n%s", q, diff)
		}
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		src    string
		substr string
	}{
		{"SELECT ;", "expected"},
		{"SELECT Foo {(bar)};", "expected"},
		{"SELECT Foo {};", ""}, // empty shape is fine
		{"WITH SELECT 1;", "WITH block"},
		{"SELECT $;", "parameter name"},
	}
	for _, tc := range testCases {
		t.Run(tc.src, func(t *testing.T) {
			_, err := parser.Parse("", tc.src)
			if tc.substr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected a parse error")
			}
			if !strings.Contains(err.Error(), tc.substr) {
				t.Errorf("error %q does not mention %q", err, tc.substr)
			}
		})
	}
}

// TestSpans verifies the lossless-span property on a representative
// statement: every node's span covers its descendants, and sibling
// spans are disjoint and in source order.
func TestSpans(t *testing.T) {
	src := "SELECT User.name FILTER User.age > 30;"
	stmt, err := parser.Parse("test.eql", src)
	if err != nil {
		t.Fatal(err)
	}

	ast.Inspect(stmt, func(n ast.Node) bool {
		if n == nil {
			return false
		}
		pos, end := n.Pos(), n.End()
		if !pos.IsValid() {
			return true
		}
		if end.Offset() < pos.Offset() {
			t.Errorf("%T: end %d before pos %d", n, end.Offset(), pos.Offset())
		}
		ast.RewriteChildren(n, func(child ast.Expr) ast.Expr {
			if child == nil || !child.Pos().IsValid() {
				return child
			}
			if child.Pos().Offset() < pos.Offset() || child.End().Offset() > end.Offset() {
				t.Errorf("%T at [%d,%d) not covered by parent %T [%d,%d)",
					child, child.Pos().Offset(), child.End().Offset(),
					n, pos.Offset(), end.Offset())
			}
			return child
		})
		return true
	})

	sel := stmt.(*ast.SelectQuery)
	if sel.Result.End().Offset() > sel.Where.Pos().Offset() {
		t.Error("result and filter spans overlap or are out of order")
	}
	_ = token.NoPos
}
