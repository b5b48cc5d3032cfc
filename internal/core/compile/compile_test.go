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

package compile_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/parser"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/compile"
	"edgeql.org/go/internal/core/debug"
	"edgeql.org/go/internal/core/ir"
)

const testSchema = `
modules:
  default:
    types:
      User:
        pointers:
          name: {target: std::str, required: true}
          age: {target: std::int}
          email: {target: std::str}
          friends:
            target: User
            kind: link
            cardinality: many
            properties:
              weight: {target: std::float}
          tasks: {target: Task, kind: link, cardinality: many}
      Task:
        pointers:
          title: {target: std::str}
    views:
      Adults: SELECT User FILTER User.age > 18
`

func testCatalog(t *testing.T) *schema.Catalog {
	t.Helper()
	cat := schema.NewCatalog()
	if err := cat.LoadYAML([]byte(testSchema)); err != nil {
		t.Fatal(err)
	}
	return cat
}

func compileQuery(t *testing.T, src string, cfg *compile.Config) *ir.Statement {
	t.Helper()
	stmt, err := compileQueryErr(t, src, cfg)
	if err != nil {
		t.Fatalf("%s: compile error: %v", src, err)
	}
	return stmt
}

func compileQueryErr(t *testing.T, src string, cfg *compile.Config) (*ir.Statement, errors.Error) {
	t.Helper()
	qlstmt, perr := parser.Parse("test.eql", src)
	if perr != nil {
		t.Fatalf("%s: parse error: %v", src, perr)
	}
	return compile.Statement(qlstmt, testCatalog(t), cfg)
}

// resultExpr unwraps the root statement down to its result expression.
func resultExpr(t *testing.T, stmt *ir.Statement) ir.Expr {
	t.Helper()
	sel, ok := stmt.Expr.Expr.(*ir.SelectStmt)
	if !ok {
		t.Fatalf("top-level expression is %T, not *ir.SelectStmt", stmt.Expr.Expr)
	}
	if sel.Result.Expr != nil {
		return sel.Result.Expr
	}
	return sel.Result
}

func TestConstantFolding(t *testing.T) {
	stmt := compileQuery(t, "SELECT 40 + 2;", nil)

	c, ok := resultExpr(t, stmt).(*ir.Constant)
	if !ok {
		t.Fatalf("result is %T, want *ir.Constant", resultExpr(t, stmt))
	}
	v, err := c.Decimal().Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, int64(42)))
	qt.Assert(t, qt.Equals(c.Type.SchemaName().String(), "std::int"))
}

func TestConstantFoldingReassociation(t *testing.T) {
	// 1 + (2 + User.age) folds the constants together.
	stmt := compileQuery(t, "SELECT 1 + (2 + User.age);", nil)

	op, ok := resultExpr(t, stmt).(*ir.BinOp)
	if !ok {
		t.Fatalf("result is %T, want *ir.BinOp", resultExpr(t, stmt))
	}
	c, ok := op.Left.(*ir.Constant)
	if !ok {
		t.Fatalf("left operand is %T, want folded constant", op.Left)
	}
	v, err := c.Decimal().Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, int64(3)))
}

func TestUnaryFolding(t *testing.T) {
	stmt := compileQuery(t, "SELECT -5;", nil)
	c, ok := resultExpr(t, stmt).(*ir.Constant)
	if !ok {
		t.Fatalf("result is %T, want *ir.Constant", resultExpr(t, stmt))
	}
	v, _ := c.Decimal().Int64()
	qt.Assert(t, qt.Equals(v, int64(-5)))

	stmt = compileQuery(t, "SELECT +5;", nil)
	c, ok = resultExpr(t, stmt).(*ir.Constant)
	if !ok {
		t.Fatalf("result is %T, want *ir.Constant", resultExpr(t, stmt))
	}
	v, _ = c.Decimal().Int64()
	qt.Assert(t, qt.Equals(v, int64(5)))
}

func TestPathInterning(t *testing.T) {
	stmt := compileQuery(t, "SELECT (User.name, User.name);", nil)

	tuple, ok := resultExpr(t, stmt).(*ir.Tuple)
	if !ok {
		t.Fatalf("result is %T, want *ir.Tuple", resultExpr(t, stmt))
	}
	qt.Assert(t, qt.Equals(len(tuple.Elements), 2))

	first := tuple.Elements[0].Val
	second := tuple.Elements[1].Val
	if first != second {
		t.Error("two occurrences of the same path must intern to one Set instance")
	}
	qt.Assert(t, qt.IsTrue(first.PathID.Equal(second.PathID)))
}

func TestRPtrBackLink(t *testing.T) {
	stmt := compileQuery(t, "SELECT User.name;", nil)

	sel := stmt.Expr.Expr.(*ir.SelectStmt)
	set := sel.Result
	if set.RPtr == nil {
		t.Fatal("path tip has no RPtr")
	}
	if set.RPtr.Target != set {
		t.Error("RPtr.Target must point back to the set itself")
	}
	qt.Assert(t, qt.Equals(set.RPtr.PtrCls.ShortName(), "name"))
	qt.Assert(t, qt.Equals(set.RPtr.Source.Scls.SchemaName().String(), "default::User"))
}

func TestExistsNegation(t *testing.T) {
	stmt := compileQuery(t, "SELECT NOT EXISTS User.email;", nil)

	pred, ok := resultExpr(t, stmt).(*ir.ExistPred)
	if !ok {
		t.Fatalf("result is %T, want a single *ir.ExistPred", resultExpr(t, stmt))
	}
	qt.Assert(t, qt.IsTrue(pred.Negated))

	// Double negation toggles back.
	stmt = compileQuery(t, "SELECT NOT NOT EXISTS User.email;", nil)
	pred = resultExpr(t, stmt).(*ir.ExistPred)
	qt.Assert(t, qt.IsFalse(pred.Negated))
}

// unwrapSet unwraps statement and set wrappers down to the first
// interesting expression node.
func unwrapSet(x ir.Expr) ir.Expr {
	for {
		switch n := x.(type) {
		case *ir.Set:
			if n.Expr == nil {
				return n
			}
			x = n.Expr
		case *ir.SelectStmt:
			x = n.Result
		default:
			return x
		}
	}
}

func TestUnionLeftAssociative(t *testing.T) {
	for _, src := range []string{
		"SELECT 1 UNION 2 UNION 3;",
		"SELECT {1, 2, 3};",
	} {
		stmt := compileQuery(t, src, nil)

		outer, ok := unwrapSet(resultExpr(t, stmt)).(*ir.SetOp)
		if !ok {
			t.Fatalf("%s: result is %T, want *ir.SetOp\n%s",
				src, unwrapSet(resultExpr(t, stmt)), debug.Dump(stmt))
		}

		inner, ok := unwrapSet(outer.Left).(*ir.SetOp)
		if !ok {
			t.Fatalf("%s: left branch is %T, want nested *ir.SetOp", src, unwrapSet(outer.Left))
		}

		leftConst := unwrapSet(inner.Left).(*ir.Constant)
		v, _ := leftConst.Decimal().Int64()
		qt.Assert(t, qt.Equals(v, int64(1)))

		rightConst := unwrapSet(outer.Right).(*ir.Constant)
		v, _ = rightConst.Decimal().Int64()
		qt.Assert(t, qt.Equals(v, int64(3)))
	}
}

func TestShapeCompilation(t *testing.T) {
	stmt := compileQuery(t, "SELECT User {name} FILTER .age > 30;", nil)

	sel := stmt.Expr.Expr.(*ir.SelectStmt)

	// The shape carries the implicit id element plus name.
	shape := sel.Result.Shape
	if len(shape) != 2 {
		t.Fatalf("shape has %d elements, want 2 (implicit id + name)", len(shape))
	}
	qt.Assert(t, qt.Equals(shape[0].RPtr.PtrCls.ShortName(), "id"))
	qt.Assert(t, qt.Equals(shape[1].RPtr.PtrCls.ShortName(), "name"))

	// The filter compiles the partial path against the result.
	if sel.Where == nil {
		t.Fatal("missing WHERE clause")
	}
	cmp, ok := sel.Where.Expr.(*ir.BinOp)
	if !ok {
		t.Fatalf("filter is %T, want *ir.BinOp", sel.Where.Expr)
	}
	agePath, ok := cmp.Left.(*ir.Set)
	if !ok {
		t.Fatalf("filter left is %T, want *ir.Set", cmp.Left)
	}
	qt.Assert(t, qt.Equals(agePath.RPtr.PtrCls.ShortName(), "age"))
}

func TestDegenerateSelect(t *testing.T) {
	explicit := compileQuery(t, "SELECT User.name;", nil)
	implicit := compileQuery(t, "User.name;", nil)

	e := explicit.Expr.Expr.(*ir.SelectStmt).Result
	i := implicit.Expr.Expr.(*ir.SelectStmt).Result
	qt.Assert(t, qt.IsTrue(e.PathID.Equal(i.PathID)))
	qt.Assert(t, qt.Equals(e.Scls.SchemaName().String(), i.Scls.SchemaName().String()))
}

func TestTypeCheckOp(t *testing.T) {
	stmt := compileQuery(t, "SELECT User IS User;", nil)

	op, ok := resultExpr(t, stmt).(*ir.BinOp)
	if !ok {
		t.Fatalf("result is %T, want *ir.BinOp", resultExpr(t, stmt))
	}

	// The left side stepped through std::__class__.
	left := op.Left.(*ir.Set)
	if left.RPtr == nil {
		t.Fatal("IS left side has no class step")
	}
	qt.Assert(t, qt.Equals(left.RPtr.PtrCls.ShortName(), "__class__"))

	ref, ok := op.Right.(*ir.TypeRef)
	if !ok {
		t.Fatalf("IS right side is %T, want *ir.TypeRef", op.Right)
	}
	qt.Assert(t, qt.Equals(ref.MainType, "default::User"))
}

func TestEquivalenceDesugaring(t *testing.T) {
	stmt := compileQuery(t, "SELECT User.email ?= User.email;", nil)

	op, ok := unwrapSet(resultExpr(t, stmt)).(*ir.SetOp)
	if !ok {
		t.Fatalf("result is %T, want the desugared exclusive union", unwrapSet(resultExpr(t, stmt)))
	}
	qt.Assert(t, qt.IsTrue(op.Exclusive))
}

func TestIfElse(t *testing.T) {
	stmt := compileQuery(t, "SELECT 1 IF True ELSE 2;", nil)
	op, ok := unwrapSet(resultExpr(t, stmt)).(*ir.SetOp)
	if !ok {
		t.Fatalf("result is %T, want *ir.SetOp", unwrapSet(resultExpr(t, stmt)))
	}
	qt.Assert(t, qt.IsTrue(op.Exclusive))

	// Unrelated branch types are rejected.
	_, err := compileQueryErr(t, "SELECT 1 IF True ELSE 'a';", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrType)))
}

func TestFunctionDispatch(t *testing.T) {
	stmt := compileQuery(t, "SELECT count(User.tasks);", nil)

	call, ok := resultExpr(t, stmt).(*ir.FunctionCall)
	if !ok {
		t.Fatalf("result is %T, want *ir.FunctionCall", resultExpr(t, stmt))
	}
	qt.Assert(t, qt.Equals(call.Func.Name.String(), "std::count"))
	if call.InitialValue == nil {
		t.Error("aggregate call is missing its compiled initial value")
	}

	// Overload selection: sum picks the int overload for ints.
	stmt = compileQuery(t, "SELECT sum(User.age);", nil)
	call = resultExpr(t, stmt).(*ir.FunctionCall)
	qt.Assert(t, qt.Equals(call.Func.ReturnType.SchemaName().String(), "std::int"))

	// No matching signature.
	_, err := compileQueryErr(t, "SELECT len(User.age);", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrReference)))

	// Unknown function name.
	_, err = compileQueryErr(t, "SELECT nonexistent(1);", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrReference)))
}

func TestVariadicDispatch(t *testing.T) {
	compileQuery(t, "SELECT concat(User.name);", nil)
	compileQuery(t, "SELECT concat(User.name, 'a', 'b');", nil)

	_, err := compileQueryErr(t, "SELECT concat(User.name, 1);", nil)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestReferenceErrors(t *testing.T) {
	_, err := compileQueryErr(t, "SELECT Missing;", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrReference)))

	_, err = compileQueryErr(t, "SELECT User.nonexistent;", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrReference)))

	// The error carries a span.
	positions := errors.Positions(err)
	if len(positions) == 0 {
		t.Fatal("reference error carries no position")
	}
}

func TestCardinalityEnforcement(t *testing.T) {
	// Ordering by a path reachable from the result is fine.
	compileQuery(t, "SELECT User ORDER BY User.name;", nil)

	// Ordering by a multi link is not.
	_, err := compileQueryErr(t, "SELECT User.name ORDER BY User.friends.name;", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrCardinality)))
}

func TestOffsetLimit(t *testing.T) {
	stmt := compileQuery(t, "SELECT User.name OFFSET 5 LIMIT 10;", nil)
	sel := stmt.Expr.Expr.(*ir.SelectStmt)
	if sel.Offset == nil || sel.Limit == nil {
		t.Fatal("missing OFFSET/LIMIT")
	}

	// Both operands live behind the statement fence.
	if sel.Offset.ScopeNode == nil || sel.Limit.ScopeNode == nil {
		t.Error("OFFSET/LIMIT operands must carry their fences")
	}
}

func TestMembershipScope(t *testing.T) {
	stmt := compileQuery(t, "SELECT User.name IN User.friends.name;", nil)
	set := stmt.Expr.Expr.(*ir.SelectStmt).Result
	if _, ok := set.Expr.(*ir.BinOp); !ok {
		t.Fatalf("result is %T, want the IN BinOp", set.Expr)
	}
	// The membership set is sealed with its traced scope.
	if len(set.PathScope) == 0 {
		t.Error("membership test lost its traced path scope")
	}
}

func TestInsert(t *testing.T) {
	stmt := compileQuery(t, "INSERT User {name := 'Alice'};", nil)

	ins, ok := stmt.Expr.Expr.(*ir.InsertStmt)
	if !ok {
		t.Fatalf("top-level is %T, want *ir.InsertStmt", stmt.Expr.Expr)
	}
	qt.Assert(t, qt.Equals(len(ins.Subject.Shape), 1))
	qt.Assert(t, qt.Equals(ins.Subject.Shape[0].RPtr.PtrCls.ShortName(), "name"))
	qt.Assert(t, qt.Equals(ins.Result.Scls.SchemaName().String(), "default::User"))

	// Non-concept subjects are rejected.
	_, err := compileQueryErr(t, "INSERT User.age;", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrExpression)))
}

func TestInsertTargetValidation(t *testing.T) {
	// Assigning an int to a str pointer in a mutation is an error.
	_, err := compileQueryErr(t, "INSERT User {name := 42};", nil)
	qt.Assert(t, qt.IsNotNil(err))
	qt.Assert(t, qt.IsTrue(errors.Is(err, errors.ErrExpression)))
}

func TestUpdateDelete(t *testing.T) {
	stmt := compileQuery(t, "UPDATE User FILTER User.age > 30 SET {name := 'x'};", nil)
	upd, ok := stmt.Expr.Expr.(*ir.UpdateStmt)
	if !ok {
		t.Fatalf("top-level is %T, want *ir.UpdateStmt", stmt.Expr.Expr)
	}
	if upd.Where == nil {
		t.Error("missing UPDATE filter")
	}

	stmt = compileQuery(t, "DELETE User;", nil)
	del, ok := stmt.Expr.Expr.(*ir.DeleteStmt)
	if !ok {
		t.Fatalf("top-level is %T, want *ir.DeleteStmt", stmt.Expr.Expr)
	}
	// The result set shares the subject's path id.
	qt.Assert(t, qt.IsTrue(del.Result.PathID.Equal(del.Subject.PathID)))

	_, err := compileQueryErr(t, "DELETE 42;", nil)
	qt.Assert(t, qt.IsNotNil(err))
}

func TestForQuery(t *testing.T) {
	stmt := compileQuery(t, "FOR x IN {1, 2} UNION x + 1;", nil)
	sel, ok := stmt.Expr.Expr.(*ir.SelectStmt)
	if !ok {
		t.Fatalf("top-level is %T, want *ir.SelectStmt", stmt.Expr.Expr)
	}
	if sel.IteratorStmt == nil {
		t.Fatal("FOR statement lost its iterator")
	}
}

func TestGroupQuery(t *testing.T) {
	stmt := compileQuery(t,
		"GROUP User USING G := User.name BY G INTO U UNION (name := G, num := count(U.tasks));", nil)
	grp, ok := stmt.Expr.Expr.(*ir.GroupStmt)
	if !ok {
		t.Fatalf("top-level is %T, want *ir.GroupStmt", stmt.Expr.Expr)
	}
	qt.Assert(t, qt.Equals(len(grp.GroupBy), 1))
	if !grp.GroupPathID.IsValid() {
		t.Error("missing synthetic group path id")
	}
}

func TestSchemaView(t *testing.T) {
	stmt := compileQuery(t, "SELECT Adults;", nil)
	qt.Assert(t, qt.IsNotNil(stmt))
	if len(stmt.Views) == 0 {
		t.Error("materializing a schema view must record it on the statement")
	}
}

func TestWithBlockViews(t *testing.T) {
	stmt := compileQuery(t, "WITH F := User.friends SELECT F.name;", nil)
	qt.Assert(t, qt.IsNotNil(stmt))

	// Weak view namespaces are stripped from the final IR.
	var weak int
	ir.Walk(stmt, func(n ir.Node) bool {
		if s, ok := n.(*ir.Set); ok && s.PathID.HasWeakNamespace() {
			weak++
		}
		return true
	})
	qt.Assert(t, qt.Equals(weak, 0))
}

func TestAnchors(t *testing.T) {
	cat := testCatalog(t)
	user := cat.MustGetType("default::User")

	qlstmt, perr := parser.Parse("", "SELECT self.name;")
	qt.Assert(t, qt.IsNil(perr))

	stmt, err := compile.Statement(qlstmt, cat, &compile.Config{
		Anchors: map[string]schema.Object{"self": user},
	})
	qt.Assert(t, qt.IsNil(err))
	sel := stmt.Expr.Expr.(*ir.SelectStmt)
	qt.Assert(t, qt.Equals(sel.Result.RPtr.PtrCls.ShortName(), "name"))
}

func TestParameters(t *testing.T) {
	cat := testCatalog(t)
	intT := cat.MustGetType("std::int")

	qlstmt, perr := parser.Parse("", "SELECT User.name LIMIT $max;")
	qt.Assert(t, qt.IsNil(perr))

	stmt, err := compile.Statement(qlstmt, cat, &compile.Config{
		ArgTypes: map[string]schema.Type{"max": intT},
	})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(stmt.Params["max"].SchemaName().String(), "std::int"))
}

func TestLinkProperty(t *testing.T) {
	stmt := compileQuery(t, "SELECT User.friends@weight;", nil)
	sel := stmt.Expr.Expr.(*ir.SelectStmt)
	qt.Assert(t, qt.Equals(sel.Result.RPtr.PtrCls.ShortName(), "weight"))
	qt.Assert(t, qt.Equals(sel.Result.Scls.SchemaName().String(), "std::float"))
}

func TestEmptySetCoalesce(t *testing.T) {
	stmt := compileQuery(t, "SELECT {} ?? {};", nil)
	if _, ok := unwrapSet(resultExpr(t, stmt)).(*ir.EmptySet); !ok {
		t.Fatalf("coalesce of empties is %T, want *ir.EmptySet", unwrapSet(resultExpr(t, stmt)))
	}
}

func TestTypeInference(t *testing.T) {
	stmt := compileQuery(t, "SELECT (User.name, User.age);", nil)

	tup, ok := stmt.Expr.Scls.(*schema.Tuple)
	if !ok {
		t.Fatalf("result type is %T, want *schema.Tuple", stmt.Expr.Scls)
	}
	qt.Assert(t, qt.Equals(tup.ElementTypes[0].SchemaName().String(), "std::str"))
	qt.Assert(t, qt.Equals(tup.ElementTypes[1].SchemaName().String(), "std::int"))
}
