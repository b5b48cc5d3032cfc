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
	"github.com/cockroachdb/apd/v3"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/literal"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/edgeql/token"
	"edgeql.org/go/internal/core/inference"
	"edgeql.org/go/internal/core/ir"
)

var apdCtx = apd.BaseContext.WithPrecision(34)

func compileConstant(ctx *context, x *ast.Constant) (ir.Expr, errors.Error) {
	c := &ir.Constant{}
	c.SetSpan(x.Pos())

	switch x.Kind {
	case token.INT, token.FLOAT:
		var num literal.NumInfo
		if err := literal.ParseNum(x.Value, &num); err != nil {
			return nil, ctx.errf(errors.SyntaxKind, x, "%v", err)
		}
		c.Value = num.Decimal()
		name := "std::int"
		if !num.IsInt() {
			name = "std::float"
		}
		t, err := getCtxType(ctx, name, x)
		if err != nil {
			return nil, err
		}
		c.Type = t

	case token.STRING:
		v, uerr := literal.Unquote(x.Value)
		if uerr != nil {
			return nil, ctx.errf(errors.SyntaxKind, x, "%v", uerr)
		}
		c.Value = v
		t, err := getCtxType(ctx, "std::str", x)
		if err != nil {
			return nil, err
		}
		c.Type = t

	case token.TRUE, token.FALSE:
		c.Value = x.Kind == token.TRUE
		t, err := getCtxType(ctx, "std::bool", x)
		if err != nil {
			return nil, err
		}
		c.Type = t

	default:
		return nil, ctx.errf(errors.InternalKind, x,
			"unexpected constant kind %s", x.Kind)
	}

	return c, nil
}

func getCtxType(ctx *context, name string, n ast.Node) (schema.Type, errors.Error) {
	obj, err := ctx.c.schema.Get(schema.ParseName(name), nil)
	if err != nil {
		return nil, ctx.errf(errors.InternalKind, n, "%v", err)
	}
	return obj.(schema.Type), nil
}

func compileParameter(ctx *context, x *ast.Parameter) (ir.Expr, errors.Error) {
	p := &ir.Parameter{Name: x.Name, Type: ctx.Arguments[x.Name]}
	p.SetSpan(x.Pos())
	return p, nil
}

func compileBinOp(ctx *context, x *ast.BinExpr) (ir.Expr, errors.Error) {
	switch x.Op {
	case token.IS, token.ISNOT:
		return compileTypeCheckOp(ctx, x)
	case token.UNION:
		return compileSetOp(ctx, x)
	case token.COALEQL, token.COALNEQ:
		return compileEquivalenceOp(ctx, x)
	case token.IN, token.NOTIN:
		return compileMembershipOp(ctx, x)
	}

	left, err := compileExpr(ctx, x.Left)
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(ctx, x.Right)
	if err != nil {
		return nil, err
	}

	op := &ir.BinOp{Left: left, Right: right, Op: x.Op}
	op.SetSpan(x.OpPos)

	folded, err := tryFoldBinOp(ctx, op)
	if err != nil {
		return nil, err
	}
	if folded != nil {
		return folded, nil
	}

	return generatedSet(ctx, op, ir.PathId{})
}

// compileTypeCheckOp lowers `expr IS Type`: the left side is stepped
// through std::__class__ and the right side evaluates as a type
// reference.
func compileTypeCheckOp(ctx *context, x *ast.BinExpr) (ir.Expr, errors.Error) {
	left, err := compileExpr(ctx, x.Left)
	if err != nil {
		return nil, err
	}

	subctx := ctx.new()
	subctx.PathAsType = true
	right, err := compileExpr(subctx, x.Right)
	if err != nil {
		return nil, err
	}

	leftSet, err := ensureSet(ctx, left, nil)
	if err != nil {
		return nil, err
	}
	ltype, err := inference.Type(leftSet, ctx.c.schema)
	if err != nil {
		return nil, err
	}

	step := &ast.Ptr{
		OpPos:     x.OpPos,
		Ptr:       &ast.ClassRef{NamePos: x.OpPos, Module: "std", Name: "__class__"},
		Direction: ast.Outbound,
	}
	classStep, _, err := pathStep(ctx, leftSet, ltype, step, schema.Outbound, nil)
	if err != nil {
		return nil, err
	}

	typeRef, err := processTypeRefExpr(ctx, right, x.Right)
	if err != nil {
		return nil, err
	}

	op := &ir.BinOp{Left: classStep, Right: typeRef, Op: x.Op}
	op.SetSpan(x.OpPos)
	return generatedSet(ctx, op, ir.PathId{})
}

// compileSetOp lowers UNION: both sides compile as statements and the
// result gets a fresh path id for its inferred type.
func compileSetOp(ctx *context, x *ast.BinExpr) (ir.Expr, errors.Error) {
	left, err := compileExpr(ctx, ensureQlStmt(x.Left))
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(ctx, ensureQlStmt(x.Right))
	if err != nil {
		return nil, err
	}

	leftSet, err := ensureSet(ctx, left, nil)
	if err != nil {
		return nil, err
	}
	rightSet, err := ensureSet(ctx, right, nil)
	if err != nil {
		return nil, err
	}

	op := &ir.SetOp{Left: leftSet.Expr, Right: rightSet.Expr, Op: token.UNION}
	if op.Left == nil {
		op.Left = leftSet
	}
	if op.Right == nil {
		op.Right = rightSet
	}
	op.SetSpan(x.OpPos)

	rtype, err := inference.Type(op, ctx.c.schema)
	if err != nil {
		return nil, err
	}
	registerPathScope(ctx, pathId(ctx, rtype))

	return generatedSet(ctx, op, ir.PathId{})
}

// compileEquivalenceOp desugars `a ?= b` into
// `a = b IF EXISTS a AND EXISTS b ELSE EXISTS a = EXISTS b`.
func compileEquivalenceOp(ctx *context, x *ast.BinExpr) (ir.Expr, errors.Error) {
	op := token.EQL
	if x.Op == token.COALNEQ {
		op = token.NEQ
	}

	exLeft := &ast.ExistsExpr{ExistsPos: x.OpPos, Expr: x.Left}
	exRight := &ast.ExistsExpr{ExistsPos: x.OpPos, Expr: x.Right}

	condition := &ast.BinExpr{Left: exLeft, Op: token.AND, Right: exRight}
	ifExpr := &ast.BinExpr{Left: x.Left, Op: op, Right: x.Right}
	elseExpr := &ast.BinExpr{Left: exLeft, Op: op, Right: exRight}

	return compileIfElse(ctx, condition, ifExpr, elseExpr, x)
}

// compileMembershipOp lowers [NOT] IN inside a traced fence: both
// operands are sets for the membership test.
func compileMembershipOp(ctx *context, x *ast.BinExpr) (ir.Expr, errors.Error) {
	scopectx := ctx.newTraced()

	left, err := compileExpr(scopectx, x.Left)
	if err != nil {
		return nil, err
	}
	right, err := compileExpr(scopectx, x.Right)
	if err != nil {
		return nil, err
	}

	op := &ir.BinOp{Left: left, Right: right, Op: x.Op}
	op.SetSpan(x.OpPos)

	s, err := ensureSet(scopectx, op, nil)
	if err != nil {
		return nil, err
	}
	s.PathScope = tracedPaths(scopectx)
	return s, nil
}

// tryFoldBinOp attempts constant folding: arithmetic on numeric
// constants, and the reassociation `C + (C' + X)` to `(C + C') + X`
// for addition and multiplication.
func tryFoldBinOp(ctx *context, op *ir.BinOp) (ir.Expr, errors.Error) {
	rtype, err := inference.Type(op, ctx.c.schema)
	if err != nil {
		return nil, err
	}
	if !isNumericType(rtype) {
		return nil, nil
	}

	left := unwrapSetExpr(op.Left)
	right := unwrapSetExpr(op.Right)

	lc, lok := left.(*ir.Constant)
	rc, rok := right.(*ir.Constant)

	if lok && rok {
		return foldArithmetic(ctx, op.Op, lc, rc, rtype)
	}

	if op.Op != token.ADD && op.Op != token.MUL {
		return nil, nil
	}

	// (CONST op (OTHER_CONST op X)) reassociates to
	// ((CONST op OTHER_CONST) op X).
	myConst, otherOp := left, right
	if rok {
		myConst, otherOp = right, left
	}
	c, ok := myConst.(*ir.Constant)
	if !ok {
		return nil, nil
	}
	inner, ok := otherOp.(*ir.BinOp)
	if !ok || inner.Op != op.Op {
		return nil, nil
	}

	innerConst := unwrapSetExpr(inner.Left)
	innerExpr := inner.Right
	if _, ok := innerConst.(*ir.Constant); !ok {
		innerConst = unwrapSetExpr(inner.Right)
		innerExpr = inner.Left
	}
	oc, ok := innerConst.(*ir.Constant)
	if !ok {
		return nil, nil
	}

	newConst, err := foldArithmetic(ctx, op.Op, oc, c, rtype)
	if err != nil || newConst == nil {
		return nil, err
	}
	folded := &ir.BinOp{Left: newConst, Right: innerExpr, Op: op.Op}
	folded.SetSpan(op.Span())
	return folded, nil
}

func unwrapSetExpr(x ir.Expr) ir.Expr {
	if s, ok := x.(*ir.Set); ok && s.Expr != nil {
		return s.Expr
	}
	return x
}

func isNumericType(t schema.Type) bool {
	if t == nil {
		return false
	}
	switch t.SchemaName() {
	case schema.NewName("std", "int"), schema.NewName("std", "float"):
		return true
	}
	return false
}

func foldArithmetic(ctx *context, op token.Token, left, right *ir.Constant, rtype schema.Type) (ir.Expr, errors.Error) {
	ld, rd := left.Decimal(), right.Decimal()
	if ld == nil || rd == nil {
		return nil, nil
	}

	bothInt := isIntType(left.Type) && isIntType(right.Type)

	res := new(apd.Decimal)
	var cond apd.Condition
	var aerr error
	switch op {
	case token.ADD:
		cond, aerr = apdCtx.Add(res, ld, rd)
	case token.SUB:
		cond, aerr = apdCtx.Sub(res, ld, rd)
	case token.MUL:
		cond, aerr = apdCtx.Mul(res, ld, rd)
	case token.QUO:
		if bothInt {
			cond, aerr = apdCtx.QuoInteger(res, ld, rd)
		} else {
			cond, aerr = apdCtx.Quo(res, ld, rd)
		}
	case token.REM:
		cond, aerr = apdCtx.Rem(res, ld, rd)
	case token.POW:
		cond, aerr = apdCtx.Pow(res, ld, rd)
	default:
		return nil, nil
	}
	if aerr != nil || cond.Any() {
		// Leave runtime errors such as division by zero to the
		// executing backend.
		return nil, nil
	}

	c := &ir.Constant{Value: res, Type: rtype}
	c.SetSpan(left.Span())
	return c, nil
}

func isIntType(t schema.Type) bool {
	return t != nil && t.SchemaName() == schema.NewName("std", "int")
}

func compileUnaryOp(ctx *context, x *ast.UnaryExpr) (ir.Expr, errors.Error) {
	operand, err := compileExpr(ctx, x.Operand)
	if err != nil {
		return nil, err
	}

	if x.Op == token.NOT {
		// NOT EXISTS toggles the predicate instead of wrapping it.
		if pred, ok := isExistsSet(operand); ok {
			pred.Negated = !pred.Negated
			return operand, nil
		}
	}

	unop := &ir.UnaryOp{Expr: operand, Op: x.Op}
	unop.SetSpan(x.OpPos)

	rtype, err := inference.Type(unop, ctx.c.schema)
	if err != nil {
		return nil, err
	}

	if c, ok := unwrapSetExpr(operand).(*ir.Constant); ok && isNumericType(rtype) {
		switch x.Op {
		case token.SUB:
			if d := c.Decimal(); d != nil {
				neg := new(apd.Decimal)
				neg.Neg(d)
				folded := &ir.Constant{Value: neg, Type: rtype}
				folded.SetSpan(x.Pos())
				return folded, nil
			}
		case token.ADD:
			return c, nil
		}
	}

	return generatedSet(ctx, unop, ir.PathId{})
}

func compileIfElseExpr(ctx *context, x *ast.IfElse) (ir.Expr, errors.Error) {
	op, err := compileIfElse(ctx, x.Condition, x.IfExpr, x.ElseExpr, x)
	if err != nil {
		return nil, err
	}
	return op, nil
}

// compileIfElse desugars the conditional into an exclusive UNION of
// two filtered statements.
func compileIfElse(ctx *context, condition, ifExpr, elseExpr ast.Expr, src ast.Node) (ir.Expr, errors.Error) {
	ifStmt := filteredStmt(ifExpr, condition)
	notCondition := &ast.UnaryExpr{OpPos: condition.Pos(), Op: token.NOT, Operand: condition}
	elseStmt := filteredStmt(elseExpr, notCondition)

	ifIR, err := compileExpr(ctx, ifStmt)
	if err != nil {
		return nil, err
	}
	elseIR, err := compileExpr(ctx, elseStmt)
	if err != nil {
		return nil, err
	}

	ifType, err := inference.Type(ifIR, ctx.c.schema)
	if err != nil {
		return nil, err
	}
	elseType, err := inference.Type(elseIR, ctx.c.schema)
	if err != nil {
		return nil, err
	}
	if schema.NearestCommonAncestor(ifType, elseType) == nil {
		return nil, ctx.errf(errors.TypeKind, src,
			"if/else clauses must be of related types, got: %s/%s",
			ifType.SchemaName(), elseType.SchemaName())
	}

	ifSet, err := ensureSet(ctx, ifIR, nil)
	if err != nil {
		return nil, err
	}
	elseSet, err := ensureSet(ctx, elseIR, nil)
	if err != nil {
		return nil, err
	}

	op := &ir.SetOp{Left: ifSet.Expr, Right: elseSet.Expr, Op: token.UNION, Exclusive: true}
	if op.Left == nil {
		op.Left = ifSet
	}
	if op.Right == nil {
		op.Right = elseSet
	}
	if src != nil {
		op.SetSpan(src.Pos())
	}
	return generatedSet(ctx, op, ir.PathId{})
}

// filteredStmt wraps expr into a statement whose filter includes cond.
func filteredStmt(expr, cond ast.Expr) ast.Statement {
	stmt := ensureQlStmt(expr)
	if sel, ok := stmt.(*ast.SelectQuery); ok {
		// Clone so the desugaring does not mutate the input AST.
		clone := *sel
		clone.Where = extendQlBinOp(clone.Where, cond)
		return &clone
	}
	return &ast.SelectQuery{
		Result:   expr,
		Where:    cond,
		Implicit: true,
	}
}

func compileExists(ctx *context, x *ast.ExistsExpr) (ir.Expr, errors.Error) {
	// EXISTS is a special aggregate and fences its argument like one.
	aggctx := ctx.newTraced()

	operand, err := compileExpr(aggctx, x.Expr)
	if err != nil {
		return nil, err
	}
	if stmt, ok := isSubquerySet(operand); ok {
		operand = stmt
	}

	pred := &ir.ExistPred{Expr: operand}
	pred.SetSpan(x.Pos())

	s, err := generatedSet(aggctx, pred, ir.PathId{})
	if err != nil {
		return nil, err
	}
	s.PathScope = tracedPaths(aggctx)
	return s, nil
}

func compileCoalesce(ctx *context, x *ast.Coalesce) (ir.Expr, errors.Error) {
	allEmpty := true
	for _, a := range x.Args {
		if set, ok := unparen(a).(*ast.SetLit); !ok || len(set.Elements) > 0 {
			allEmpty = false
			break
		}
	}
	if allEmpty {
		empty := &ir.EmptySet{}
		empty.SetSpan(x.Pos())
		return empty, nil
	}

	args := make([]ir.Expr, len(x.Args))
	for i, a := range x.Args {
		arg, err := compileExpr(ctx, a)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}
	co := &ir.Coalesce{Args: args}
	co.SetSpan(x.Pos())
	return generatedSet(ctx, co, ir.PathId{})
}

func compileTypeCast(ctx *context, x *ast.TypeCast) (ir.Expr, errors.Error) {
	mainName := x.Type.MainType.Name

	// Casting an empty collection literal synthesizes the empty value
	// directly.
	switch lit := unparen(x.Expr).(type) {
	case *ast.ArrayLit:
		if len(lit.Elements) == 0 && mainName == "array" {
			arr := &ir.Array{}
			arr.SetSpan(x.Pos())
			return arr, nil
		}
	case *ast.MappingLit:
		if len(lit.Elements) == 0 && mainName == "map" {
			m := &ir.Mapping{}
			m.SetSpan(x.Pos())
			return m, nil
		}
	}

	irExpr, err := compileExpr(ctx, x.Expr)
	if err != nil {
		return nil, err
	}
	return castExpr(ctx, x.Type, irExpr, x.Expr)
}

// castExpr applies a cast. Tuple-to-tuple casts expand element-wise,
// generating an indirection per element and a nested cast for each
// element whose type differs.
func castExpr(ctx *context, qlType *ast.TypeName, irExpr ir.Expr, src ast.Node) (ir.Expr, errors.Error) {
	origType, terr := inference.Type(irExpr, ctx.c.schema)
	if terr != nil {
		// The source expression may be untypable when it is empty or a
		// coalesce of empties.
		origType = nil
	}

	if origTuple, ok := origType.(*schema.Tuple); ok {
		newTypeRef, err := qlTypeNameToIRTypeRef(ctx, qlType)
		if err != nil {
			return nil, err
		}
		newType, err := inference.Type(newTypeRef, ctx.c.schema)
		if err != nil {
			return nil, err
		}
		newTuple, ok := newType.(*schema.Tuple)
		if !ok {
			return nil, ctx.errf(errors.ExpressionKind, src,
				"cannot cast tuple to %s", newType.SchemaName())
		}
		if len(origTuple.ElementTypes) != len(newTuple.ElementTypes) {
			return nil, ctx.errf(errors.ExpressionKind, src,
				"cannot cast to %s: number of elements is not the same", newTuple)
		}

		exprSet, err := ensureSet(ctx, irExpr, nil)
		if err != nil {
			return nil, err
		}

		elements := make([]*ir.TupleElement, len(origTuple.ElementTypes))
		for i, name := range origTuple.ElementNames {
			elType := origTuple.ElementTypes[i]
			ind := &ir.TupleIndirection{
				Expr:   exprSet,
				Name:   name,
				PathID: exprSet.PathID.ExtendField(name, elType),
			}
			val, err := generatedSet(ctx, ind, ind.PathID)
			if err != nil {
				return nil, err
			}

			newElName := newTuple.ElementNames[i]
			var elVal ir.Expr = val
			if elType != newTuple.ElementTypes[i] && i < len(qlType.SubTypes) {
				elVal, err = castExpr(ctx, qlType.SubTypes[i], val, src)
				if err != nil {
					return nil, err
				}
			}
			valSet, err := ensureSet(ctx, elVal, nil)
			if err != nil {
				return nil, err
			}
			elements[i] = &ir.TupleElement{Name: newElName, Val: valSet}
		}

		return &ir.Tuple{Named: newTuple.Named, Elements: elements}, nil
	}

	typeRef, err := qlTypeNameToIRTypeRef(ctx, qlType)
	if err != nil {
		return nil, err
	}
	cast := &ir.TypeCast{Expr: irExpr, Type: typeRef}
	if src != nil {
		cast.SetSpan(src.Pos())
	}
	return cast, nil
}

func compileTypeFilter(ctx *context, x *ast.TypeFilter) (ir.Expr, errors.Error) {
	arg, err := compileExpr(ctx, x.Expr)
	if err != nil {
		return nil, err
	}
	argSet, err := ensureSet(ctx, arg, nil)
	if err != nil {
		return nil, err
	}

	argType, err := inference.Type(argSet, ctx.c.schema)
	if err != nil {
		return nil, err
	}
	if _, ok := argType.(*schema.ObjectType); !ok {
		return nil, ctx.errf(errors.ExpressionKind, x.Expr,
			"invalid type filter operand: %s is not a concept",
			argType.SchemaName())
	}

	obj, err := getSchemaObject(ctx, x.Type)
	if err != nil {
		return nil, err
	}
	filterType, ok := obj.(*schema.ObjectType)
	if !ok {
		return nil, ctx.errf(errors.ExpressionKind, x.Type,
			"invalid type filter operand: %s is not a concept", x.Type)
	}

	tf := &ir.TypeFilter{
		PathID: argSet.PathID,
		Expr:   argSet,
		Type:   &ir.TypeRef{MainType: filterType.SchemaName().String()},
	}
	tf.SetSpan(x.Pos())
	return generatedSet(ctx, tf, ir.PathId{})
}

func compileIndirection(ctx *context, x *ast.Indirection) (ir.Expr, errors.Error) {
	node, err := compileExpr(ctx, x.Arg)
	if err != nil {
		return nil, err
	}

	intType, err := getCtxType(ctx, "std::int", x)
	if err != nil {
		return nil, err
	}

	for _, el := range x.Elements {
		switch el := el.(type) {
		case *ast.Index:
			idx, err := compileExpr(ctx, el.Expr)
			if err != nil {
				return nil, err
			}
			ind := &ir.IndexIndirection{Expr: node, Index: idx}
			ind.SetSpan(el.Pos())
			node = ind

		case *ast.Slice:
			var start, stop ir.Expr
			if el.Start != nil {
				start, err = compileExpr(ctx, el.Start)
				if err != nil {
					return nil, err
				}
			} else {
				start = &ir.Constant{Value: nil, Type: intType}
			}
			if el.Stop != nil {
				stop, err = compileExpr(ctx, el.Stop)
				if err != nil {
					return nil, err
				}
			} else {
				stop = &ir.Constant{Value: nil, Type: intType}
			}
			sl := &ir.SliceIndirection{Expr: node, Start: start, Stop: stop}
			sl.SetSpan(el.Pos())
			node = sl
		}
	}

	return node, nil
}

func compileTuple(ctx *context, x *ast.TupleLit) (ir.Expr, errors.Error) {
	elements := make([]*ir.TupleElement, len(x.Elements))
	for i, el := range x.Elements {
		v, err := compileExpr(ctx, el)
		if err != nil {
			return nil, err
		}
		val, err := ensureSet(ctx, v, nil)
		if err != nil {
			return nil, err
		}
		elements[i] = &ir.TupleElement{Name: itoa(i), Val: val}
	}
	tuple := &ir.Tuple{Elements: elements}
	tuple.SetSpan(x.Pos())
	return generatedSet(ctx, tuple, ir.PathId{})
}

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [8]byte
	n := len(b)
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	return string(b[n:])
}

func compileNamedTuple(ctx *context, x *ast.NamedTupleLit) (ir.Expr, errors.Error) {
	elements := make([]*ir.TupleElement, len(x.Elements))
	for i, el := range x.Elements {
		v, err := compileExpr(ctx, el.Val)
		if err != nil {
			return nil, err
		}
		val, err := ensureSet(ctx, v, nil)
		if err != nil {
			return nil, err
		}
		elements[i] = &ir.TupleElement{Name: el.Name.Name, Val: val}
	}
	tuple := &ir.Tuple{Named: true, Elements: elements}
	tuple.SetSpan(x.Pos())
	return generatedSet(ctx, tuple, ir.PathId{})
}

func compileArray(ctx *context, x *ast.ArrayLit) (ir.Expr, errors.Error) {
	elements := make([]ir.Expr, len(x.Elements))
	for i, el := range x.Elements {
		v, err := compileExpr(ctx, el)
		if err != nil {
			return nil, err
		}
		elements[i] = v
	}
	arr := &ir.Array{Elements: elements}
	arr.SetSpan(x.Pos())
	return arr, nil
}

func compileMapping(ctx *context, x *ast.MappingLit) (ir.Expr, errors.Error) {
	m := &ir.Mapping{}
	m.SetSpan(x.Pos())
	for _, el := range x.Elements {
		k, err := compileExpr(ctx, el.Key)
		if err != nil {
			return nil, err
		}
		v, err := compileExpr(ctx, el.Value)
		if err != nil {
			return nil, err
		}
		m.Keys = append(m.Keys, k)
		m.Values = append(m.Values, v)
	}
	return m, nil
}

// compileSetLit lowers a set literal: a single element compiles
// directly, two or more desugar into a left-deep chain of UNIONs, and
// the empty literal becomes EmptySet.
func compileSetLit(ctx *context, x *ast.SetLit) (ir.Expr, errors.Error) {
	if len(x.Elements) == 0 {
		empty := &ir.EmptySet{}
		empty.SetSpan(x.Pos())
		return empty, nil
	}

	elements := flattenSetLit(x)
	if len(elements) == 1 {
		return compileExpr(ctx, elements[0])
	}

	union := &ast.BinExpr{
		Left:  elements[0],
		OpPos: x.LBrace,
		Op:    token.UNION,
		Right: elements[1],
	}
	for _, el := range elements[2:] {
		union = &ast.BinExpr{
			Left:  union,
			OpPos: x.LBrace,
			Op:    token.UNION,
			Right: el,
		}
	}
	return compileExpr(ctx, union)
}
