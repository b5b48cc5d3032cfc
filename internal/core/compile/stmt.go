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
	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/parser"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/inference"
	"edgeql.org/go/internal/core/ir"
)

func compileSelect(ctx *context, expr *ast.SelectQuery) (ir.Expr, errors.Error) {
	if isDegenerateSelect(expr) && ctx.c.toplevelStmt != nil {
		// Compile an implicit "SELECT Path" as "Path".
		sctx := ctx.new()
		sctx.Namespaces = copyStrMap(ctx.Namespaces)
		sctx.Anchors = copySetMap(ctx.Anchors)
		sctx.AliasedViews = copyTypeMap(ctx.AliasedViews)
		if err := processWithBlock(sctx, expr, ctx); err != nil {
			return nil, err
		}
		return compileResultClause(sctx, expr.Result, expr.ResultAlias, ctx.ToplevelResultViewName)
	}

	sctx := ctx.subquery()
	stmt := &ir.SelectStmt{}
	stmt.SetSpan(expr.Pos())
	if err := initStmt(sctx, stmt, expr, ctx); err != nil {
		return nil, err
	}

	if ir.Stmt(stmt) != ctx.c.toplevelStmt {
		// Top-level statements own the root fence created in initStmt.
		sctx.PathScope = sctx.PathScope.AddFence()
	}

	bodyScope := sctx.PathScope
	if expr.Offset != nil || expr.Limit != nil {
		// LIMIT and OFFSET are infix operators with both operands
		// being SET OF, so the body compiles behind a fence.
		sctx.PathScope = sctx.PathScope.AddFence()
	}

	result, err := compileResultClause(sctx, expr.Result, expr.ResultAlias, ctx.ToplevelResultViewName)
	if err != nil {
		return nil, err
	}
	stmt.Result = result

	if stmt.Where, err = compileWhereClause(sctx, expr.Where); err != nil {
		return nil, err
	}
	if stmt.OrderBy, err = compileOrderByClause(sctx, expr.OrderBy); err != nil {
		return nil, err
	}

	if expr.Offset != nil || expr.Limit != nil {
		olctx := sctx.new()
		olctx.PathScope = bodyScope

		if stmt.Offset, err = compileLimitOffsetClause(olctx, expr.Offset); err != nil {
			return nil, err
		}
		if stmt.Limit, err = compileLimitOffsetClause(olctx, expr.Limit); err != nil {
			return nil, err
		}
	}

	return finiStmt(sctx, stmt, expr, ctx)
}

func compileFor(ctx *context, expr *ast.ForQuery) (ir.Expr, errors.Error) {
	sctx := ctx.subquery()
	stmt := &ir.SelectStmt{}
	stmt.SetSpan(expr.Pos())
	if err := initStmt(sctx, stmt, expr, ctx); err != nil {
		return nil, err
	}

	if ir.Stmt(stmt) != ctx.c.toplevelStmt {
		sctx.PathScope = sctx.PathScope.AddFence()
	}

	iterator := expr.Iterator
	if set, ok := unparen(iterator).(*ast.SetLit); ok && len(set.Elements) == 1 {
		iterator = set.Elements[0]
	}

	scopectx := sctx.newFenced()
	iterSet, err := declareView(scopectx, iterator, expr.IteratorAlias.Name, false)
	if err != nil {
		return nil, err
	}
	stmt.IteratorStmt, err = scopedSet(scopectx, iterSet)
	if err != nil {
		return nil, err
	}

	sctx.Singletons.Add(stmt.IteratorStmt.PathID)
	registerPathScope(sctx, stmt.IteratorStmt.PathID)

	result, err := compileResultClause(sctx, expr.Result, expr.ResultAlias, ctx.ToplevelResultViewName)
	if err != nil {
		return nil, err
	}
	stmt.Result = result

	if stmt.Where, err = compileWhereClause(sctx, expr.Where); err != nil {
		return nil, err
	}
	if stmt.OrderBy, err = compileOrderByClause(sctx, expr.OrderBy); err != nil {
		return nil, err
	}
	if stmt.Offset, err = compileLimitOffsetClause(sctx, expr.Offset); err != nil {
		return nil, err
	}
	if stmt.Limit, err = compileLimitOffsetClause(sctx, expr.Limit); err != nil {
		return nil, err
	}

	return finiStmt(sctx, stmt, expr, ctx)
}

func compileGroup(ctx *context, expr *ast.GroupQuery) (ir.Expr, errors.Error) {
	ictx := ctx.subquery()
	stmt := &ir.GroupStmt{}
	stmt.SetSpan(expr.Pos())
	if err := initStmt(ictx, stmt, expr, ctx); err != nil {
		return nil, err
	}

	// The grouping binds a synthetic concept derived from std::Object.
	baseObj, err := getCtxType(ictx, "std::Object", expr)
	if err != nil {
		return nil, err
	}
	group := schema.NewObjectType(
		schema.NewName("__group__", ctx.c.genAlias("Group")),
		baseObj.(*schema.ObjectType),
	)
	stmt.GroupPathID = pathId(ictx, group)
	registerPathScope(ictx, stmt.GroupPathID)

	subjctx := ictx.newFenced()
	subjctx.Clause = "input"

	subjIR, err := compileExpr(subjctx, expr.Subject)
	if err != nil {
		return nil, err
	}
	subjectSet, err := scopedSet(subjctx, subjIR)
	if err != nil {
		return nil, err
	}

	alias := expr.SubjectAlias
	if alias == "" {
		alias = subjectSet.PathID.RootName()
	}
	stmt.Subject = declareInlineView(ictx, subjectSet, alias)

	grpctx := subjctx.new()
	if err := processUsingClause(grpctx, expr.Using); err != nil {
		return nil, err
	}
	stmt.GroupBy, err = compileGroupByClause(grpctx, expr.By, ictx)
	if err != nil {
		return nil, err
	}

	// The result clause compiles as a nested SELECT over the grouped
	// input.
	isctx := ictx.subquery()
	sctx := isctx.newFenced()
	if expr.Into != nil {
		sctx.PathVars[expr.Into.Name] = stmt.Subject
	}
	oStmt := &ir.SelectStmt{}
	oStmt.SetSpan(expr.Pos())
	sctx.Stmt = oStmt
	oStmt.ParentStmt = stmt

	result, err := compileResultClause(sctx, expr.Result, expr.ResultAlias, ctx.ToplevelResultViewName)
	if err != nil {
		return nil, err
	}
	oStmt.Result = result

	if oStmt.Where, err = compileWhereClause(sctx, expr.Where); err != nil {
		return nil, err
	}
	if oStmt.OrderBy, err = compileOrderByClause(sctx, expr.OrderBy); err != nil {
		return nil, err
	}
	if oStmt.Offset, err = compileLimitOffsetClause(sctx, expr.Offset); err != nil {
		return nil, err
	}
	if oStmt.Limit, err = compileLimitOffsetClause(sctx, expr.Limit); err != nil {
		return nil, err
	}

	stmt.Result, err = scopedSet(sctx, oStmt)
	if err != nil {
		return nil, err
	}

	return finiStmt(ictx, stmt, expr, ctx)
}

// processUsingClause compiles GROUP ... USING aliases; each alias
// becomes a path variable visible to BY and the result clause.
func processUsingClause(ctx *context, using []*ast.AliasedExpr) errors.Error {
	for _, ae := range using {
		x, err := compileExpr(ctx, ae.Expr)
		if err != nil {
			return err
		}
		s, err := ensureSet(ctx, x, nil)
		if err != nil {
			return err
		}
		ctx.PathVars[ae.Alias.Name] = s
	}
	return nil
}

// compileGroupByClause compiles the BY expressions, each behind a
// fence, and records them as singletons for the result clause.
func compileGroupByClause(ctx *context, by []ast.Expr, outer *context) ([]*ir.Set, errors.Error) {
	var result []*ir.Set
	for _, groupExpr := range by {
		scopectx := ctx.newFenced()
		x, err := compileExpr(scopectx, groupExpr)
		if err != nil {
			return nil, err
		}
		s, err := scopedSet(scopectx, x)
		if err != nil {
			return nil, err
		}
		s.SetSpan(groupExpr.Pos())
		result = append(result, s)

		outer.Singletons.Add(s.PathID)
		outer.GroupPaths[s.PathID.Key()] = true
	}
	return result, nil
}

func compileInsert(ctx *context, expr *ast.InsertQuery) (ir.Expr, errors.Error) {
	ictx := ctx.subquery()
	stmt := &ir.InsertStmt{}
	stmt.SetSpan(expr.Pos())
	if err := initStmt(ictx, stmt, expr, ctx); err != nil {
		return nil, err
	}

	subjIR, err := compileExpr(ictx, expr.Subject)
	if err != nil {
		return nil, err
	}
	subject, err := ensureSet(ictx, subjIR, nil)
	if err != nil {
		return nil, err
	}

	subjType, ok := subject.Scls.(*schema.ObjectType)
	if !ok {
		return nil, ctx.errf(errors.ExpressionKind, expr.Subject,
			"cannot insert non-Concept objects")
	}

	stmt.Subject, err = compileQuerySubject(ictx, subject, expr.Shape, querySubjectOpts{
		isInsert:     true,
		compileViews: true,
	})
	if err != nil {
		return nil, err
	}

	stmt.Result = classSet(ictx, subjType.MaterialType())

	return finiStmt(ictx, stmt, expr, ctx)
}

func compileUpdate(ctx *context, expr *ast.UpdateQuery) (ir.Expr, errors.Error) {
	ictx := ctx.subquery()
	stmt := &ir.UpdateStmt{}
	stmt.SetSpan(expr.Pos())
	if err := initStmt(ictx, stmt, expr, ctx); err != nil {
		return nil, err
	}

	subjIR, err := compileExpr(ictx, expr.Subject)
	if err != nil {
		return nil, err
	}
	subject, err := ensureSet(ictx, subjIR, nil)
	if err != nil {
		return nil, err
	}

	subjType, err2 := inference.Type(subject, ictx.c.schema)
	if err2 != nil {
		return nil, err2
	}
	objType, ok := subjType.(*schema.ObjectType)
	if !ok {
		return nil, ctx.errf(errors.ExpressionKind, expr.Subject,
			"cannot update non-Concept objects")
	}

	stmt.Subject, err = compileQuerySubject(ictx, subject, expr.Shape, querySubjectOpts{
		isUpdate:     true,
		compileViews: true,
	})
	if err != nil {
		return nil, err
	}

	stmt.Result = classSet(ictx, objType.MaterialType())

	if stmt.Where, err = compileWhereClause(ictx, expr.Where); err != nil {
		return nil, err
	}

	return finiStmt(ictx, stmt, expr, ctx)
}

func compileDelete(ctx *context, expr *ast.DeleteQuery) (ir.Expr, errors.Error) {
	ictx := ctx.subquery()
	stmt := &ir.DeleteStmt{}
	stmt.SetSpan(expr.Pos())
	if err := initStmt(ictx, stmt, expr, ctx); err != nil {
		return nil, err
	}

	// DELETE Expr is delete(SET OF X): the subject needs a fence.
	scopectx := ictx.newFenced()
	subjIR, err := compileExpr(scopectx, expr.Subject)
	if err != nil {
		return nil, err
	}
	subject, err := scopedSet(scopectx, subjIR)
	if err != nil {
		return nil, err
	}

	subjType, err2 := inference.Type(subject, ictx.c.schema)
	if err2 != nil {
		return nil, err2
	}
	objType, ok := subjType.(*schema.ObjectType)
	if !ok {
		return nil, ctx.errf(errors.ExpressionKind, expr.Subject,
			"cannot delete non-Concept objects")
	}

	stmt.Subject = subject

	stmt.Result = classSet(ictx, objType.MaterialType())
	stmt.Result.PathID = subject.PathID

	return finiStmt(ictx, stmt, expr, ctx)
}

// initStmt is the shared statement prologue: it links the statement
// into the context, claims the top level if unclaimed, and processes
// the WITH block.
func initStmt(ctx *context, irstmt ir.Stmt, qlstmt ast.Statement, parentCtx *context) errors.Error {
	ctx.Stmt = irstmt
	if ctx.c.toplevelStmt == nil {
		ctx.c.toplevelStmt = irstmt
	}

	setParentStmt(irstmt, parentCtx.Stmt)

	return processWithBlock(ctx, qlstmt, parentCtx)
}

func setParentStmt(stmt, parent ir.Stmt) {
	switch s := stmt.(type) {
	case *ir.SelectStmt:
		s.ParentStmt = parent
	case *ir.GroupStmt:
		s.ParentStmt = parent
	case *ir.InsertStmt:
		s.ParentStmt = parent
	case *ir.UpdateStmt:
		s.ParentStmt = parent
	case *ir.DeleteStmt:
		s.ParentStmt = parent
	}
}

func setStmtCardinality(stmt ir.Stmt, cardinality string) {
	switch s := stmt.(type) {
	case *ir.SelectStmt:
		s.Cardinality = cardinality
	case *ir.GroupStmt:
		s.Cardinality = cardinality
	case *ir.InsertStmt:
		s.Cardinality = cardinality
	case *ir.UpdateStmt:
		s.Cardinality = cardinality
	case *ir.DeleteStmt:
		s.Cardinality = cardinality
	}
}

// processWithBlock applies the statement's WITH bindings: module
// aliases update the namespace map and aliased expressions declare
// views.
func processWithBlock(ctx *context, qlstmt ast.Statement, parentCtx *context) errors.Error {
	for _, entry := range qlstmt.Bindings() {
		switch entry := entry.(type) {
		case *ast.ModuleAliasDecl:
			ctx.Namespaces[entry.Alias] = entry.Module

		case *ast.AliasedExpr:
			scopectx := ctx.new()
			scopectx.ExprExposed = false
			if _, err := declareView(scopectx, entry.Expr, entry.Alias.Name, false); err != nil {
				return err
			}

		default:
			return ctx.errf(errors.InternalKind, entry,
				"unexpected expression in WITH block: %T", entry)
		}
	}
	return nil
}

// finiStmt is the shared statement epilogue: the statement type is
// inferred and, when a top-level result view was requested, the result
// path id is rewritten to the view.
func finiStmt(ctx *context, irstmt ir.Stmt, qlstmt ast.Statement, parentCtx *context) (ir.Expr, errors.Error) {
	setStmtCardinality(irstmt, stmtCardinality(qlstmt))

	t, err := inference.Type(irstmt, ctx.c.schema)
	if err != nil {
		return nil, err
	}

	viewName := parentCtx.ToplevelResultViewName

	var view schema.Type
	var pid ir.PathId
	if viewName != "" {
		if t.SchemaName().String() == viewName {
			// The statement contained a view declaration generating
			// the requested name.
			view = t
		} else {
			view = deriveViewType(parentCtx, t, viewName)
		}
		pid = pathId(parentCtx, view)
	}

	var result *ir.Set
	if ctx.Stmt == ctx.c.toplevelStmt {
		result, err = scopedSet(ctx, irstmt)
	} else {
		result, err = ensureSet(ctx, irstmt, nil)
	}
	if err != nil {
		return nil, err
	}

	if view != nil {
		result.PathID = pid
		result.Scls = view
		parentCtx.ViewSets[view] = result
	}

	return result, nil
}

func stmtCardinality(qlstmt ast.Statement) string {
	switch s := qlstmt.(type) {
	case *ast.SelectQuery:
		return s.WithBlock.Cardinality
	case *ast.ForQuery:
		return s.WithBlock.Cardinality
	case *ast.GroupQuery:
		return s.WithBlock.Cardinality
	case *ast.InsertQuery:
		return s.WithBlock.Cardinality
	case *ast.UpdateQuery:
		return s.WithBlock.Cardinality
	case *ast.DeleteQuery:
		return s.WithBlock.Cardinality
	}
	return ""
}

// deriveViewType creates a named view type over t. Non-object results
// keep their type; only the name binding is recorded.
func deriveViewType(ctx *context, t schema.Type, viewName string) schema.Type {
	ot, ok := t.(*schema.ObjectType)
	if !ok {
		ctx.c.viewNodes[viewName] = t
		return t
	}
	name := schema.ParseName(viewName)
	view := schema.NewObjectType(name, ot)
	view.Material = ot.MaterialType()
	ctx.c.viewNodes[viewName] = view
	return view
}

// compileResultClause compiles the result expression of a statement,
// splitting off a shape if present.
func compileResultClause(ctx *context, result ast.Expr, resultAlias, viewName string) (*ir.Set, errors.Error) {
	sctx := ctx.new()
	sctx.Clause = "result"
	if sctx.Stmt == sctx.c.toplevelStmt {
		sctx.ExprExposed = true
	}

	resultExpr := result
	var shape []*ast.ShapeElement
	if shapeExpr, ok := unparen(result).(*ast.Shape); ok {
		resultExpr = shapeExpr.Expr
		shape = shapeExpr.Elements
	}

	var expr *ir.Set
	if resultAlias != "" {
		viewSet, err := declareView(sctx, resultExpr, resultAlias, false)
		if err != nil {
			return nil, err
		}
		expr = viewSet
		registerPathScope(sctx, expr.PathID)
	} else {
		x, err := compileExpr(sctx, resultExpr)
		if err != nil {
			return nil, err
		}
		expr, err = ensureSet(sctx, x, nil)
		if err != nil {
			return nil, err
		}
	}

	// Partial paths in later clauses resolve against the result path.
	if path, ok := unparen(resultExpr).(*ast.Path); ok && !path.Partial {
		ctx.ResultPathSteps = path.Steps
	}

	res, err := compileQuerySubject(sctx, expr, shape, querySubjectOpts{
		viewName:     viewName,
		resultAlias:  resultAlias,
		compileViews: sctx.Stmt == sctx.c.toplevelStmt,
	})
	if err != nil {
		return nil, err
	}

	// Paths reached through the result are singular per result element
	// in later clauses.
	updateSingletons(ctx, res)

	return res, nil
}

type querySubjectOpts struct {
	viewName     string
	resultAlias  string
	isInsert     bool
	isUpdate     bool
	compileViews bool
}

// compileQuerySubject attaches the shape, if any, to the subject set
// and derives the corresponding view type.
func compileQuerySubject(ctx *context, expr *ir.Set, shape []*ast.ShapeElement, opts querySubjectOpts) (*ir.Set, errors.Error) {
	if shape == nil {
		return expr, nil
	}

	viewScls, err := compileShape(ctx, expr, shape, shapeOpts{
		viewName: opts.viewName,
		isInsert: opts.isInsert,
		isUpdate: opts.isUpdate,
		viewRPtr: ctx.ViewRPtr,
	})
	if err != nil {
		return nil, err
	}
	if viewScls != nil {
		expr.Scls = viewScls
	}
	return expr, nil
}

// declareView compiles a WITH-bound expression in a temporary fenced
// subcontext under a weak path-id namespace and registers the derived
// view under alias.
func declareView(ctx *context, expr ast.Expr, alias string, fullyDetached bool) (*ir.Set, errors.Error) {
	subctx := ctx.newFenced()

	if !fullyDetached {
		// Detach the view namespace and record the prefix in the
		// enclosing fence so outer path ids can be stripped of it.
		ns := ir.Namespace{Name: ctx.c.genAlias("ns"), Weak: true}
		subctx.PathIdNamespace = append(
			append([]ir.Namespace(nil), ctx.PathIdNamespace...), ns)
		if ctx.PathScope != nil {
			ctx.PathScope.Namespaces[ns.Name] = true
		}
	}

	viewName := schema.NewName("_",
		schema.SpecializedName(schema.ParseName(alias), ctx.c.genAlias("w")))
	subctx.ToplevelResultViewName = viewName.String()

	if ctx.Stmt != nil {
		subctx.Stmt = ctx.Stmt.Parent()
	}

	x, err := compileExpr(subctx, ensureQlStmt(expr))
	if err != nil {
		return nil, err
	}
	viewSet, err := ensureSet(subctx, x, nil)
	if err != nil {
		return nil, err
	}

	// The view path id itself stays in the outer namespace.
	viewSet.PathID = viewSet.PathID.ReplaceNamespace(ctx.PathIdNamespace)

	ctx.AliasedViews[alias] = viewSet.Scls
	ctx.Substmts[substmtKey{alias, ""}] = viewSet
	return viewSet, nil
}

// declareViewFromSchema materializes a stored schema view on first
// use. A placeholder enters the cache before the view body compiles,
// breaking definition cycles.
func declareViewFromSchema(ctx *context, viewcls *schema.ObjectType) (*ir.Set, errors.Error) {
	if vc, ok := ctx.c.viewClassMap[viewcls]; ok {
		return vc, nil
	}

	placeholder := newSet(ctx, pathId(ctx, viewcls), viewcls)
	ctx.c.viewClassMap[viewcls] = placeholder

	viewExpr, perr := parser.ParseFragment("", viewcls.Expr)
	if perr != nil {
		return nil, errors.Promote(perr, "invalid view expression")
	}

	subctx := ctx.detached()
	viewSet, err := declareView(subctx, viewExpr, viewcls.SchemaName().String(), true)
	if err != nil {
		delete(ctx.c.viewClassMap, viewcls)
		return nil, err
	}

	ctx.c.viewClassMap[viewcls] = viewSet
	ctx.c.viewNodes[viewcls.SchemaName().String()] = viewSet.Scls
	ctx.AliasedViews[viewcls.SchemaName().String()] = viewSet.Scls
	return viewSet, nil
}

// declareInlineView binds an already-compiled set under an alias in
// the current context.
func declareInlineView(ctx *context, set *ir.Set, alias string) *ir.Set {
	ctx.PathVars[alias] = set
	return set
}
