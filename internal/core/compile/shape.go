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
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/inference"
	"edgeql.org/go/internal/core/ir"
)

type shapeOpts struct {
	viewName string
	isInsert bool
	isUpdate bool
	viewRPtr *viewRPtr
	noImplicit bool
}

// compileShape builds the shape of sourceExpr from the given shape
// spec and derives the corresponding view type.
func compileShape(ctx *context, sourceExpr *ir.Set, elements []*ast.ShapeElement, opts shapeOpts) (schema.Type, errors.Error) {
	scls := sourceExpr.Scls

	spec := elements
	precompiled := map[*ast.ShapeElement]*ir.Set{}

	if !opts.noImplicit && !opts.isInsert && !opts.isUpdate {
		if _, isConcept := scls.(*schema.ObjectType); isConcept {
			// Plain concept shapes include std::id implicitly.
			idEl := implicitShapeElement("id", ast.PtrLink)
			spec = append([]*ast.ShapeElement{idEl}, spec...)
		} else if sourceExpr.RPtr != nil || opts.viewRPtr != nil {
			// Link-targeted shapes include @target implicitly.
			targetEl := implicitShapeElement("target", ast.PtrProperty)
			precompiled[targetEl] = sourceExpr
			spec = append([]*ast.ShapeElement{targetEl}, spec...)
		}
	}

	viewType := deriveShapeViewType(ctx, scls, opts.viewName)

	var shape []*ir.Set
	for _, el := range spec {
		elctx := ctx.newFenced()
		compiledEl, err := compileShapeElement(elctx, sourceExpr, el, scls, opts, precompiled[el])
		if err != nil {
			return nil, err
		}
		if compiledEl == nil {
			continue
		}
		sealed, err := scopedSet(elctx, compiledEl)
		if err != nil {
			return nil, err
		}
		shape = append(shape, sealed)

		if viewType != nil && sealed.RPtr != nil {
			// Register without AddPointer: the pointer may be a shared
			// schema object whose Source must not be rebound.
			viewType.Pointers[sealed.RPtr.PtrCls.ShortName()] = sealed.RPtr.PtrCls
		}
	}

	sourceExpr.Shape = shape
	if viewType != nil {
		return viewType, nil
	}
	return nil, nil
}

func implicitShapeElement(name string, kind ast.PtrKind) *ast.ShapeElement {
	module := "std"
	return &ast.ShapeElement{
		Expr: &ast.Path{
			Steps: []ast.Expr{&ast.Ptr{
				Ptr:       &ast.ClassRef{Module: module, Name: name},
				Direction: ast.Outbound,
				Kind:      kind,
			}},
		},
	}
}

// deriveShapeViewType creates the view type for a shaped concept.
func deriveShapeViewType(ctx *context, scls schema.Type, viewName string) *schema.ObjectType {
	ot, ok := scls.(*schema.ObjectType)
	if !ok {
		return nil
	}
	name := schema.ParseName(viewName)
	if viewName == "" {
		name = schema.NewName("__view__",
			schema.SpecializedName(ot.SchemaName(), ctx.c.genAlias("v")))
	}
	view := schema.NewObjectType(name, ot)
	view.Material = ot.MaterialType()
	return view
}

// compileShapeElement compiles a single shape element under its own
// fence.
func compileShapeElement(
	ctx *context, sourceExpr *ir.Set, el *ast.ShapeElement,
	scls schema.Type, opts shapeOpts, precompiled *ir.Set,
) (*ir.Set, errors.Error) {

	ctx.ResultPathSteps = append(ctx.ResultPathSteps, el.Expr.Steps...)

	steps := el.Expr.Steps
	var ptrSource schema.Object = scls
	var lexpr *ast.Ptr

	switch len(steps) {
	case 2:
		// Pointers qualified by the explicit source class, equivalent
		// to Expr[IS Type].
		ref, ok := steps[0].(*ast.ClassRef)
		if !ok {
			return nil, ctx.errf(errors.ExpressionKind, steps[0],
				"invalid shape element qualifier")
		}
		obj, err := getSchemaObject(ctx, ref)
		if err != nil {
			return nil, err
		}
		ptrSource = obj
		lexpr = steps[1].(*ast.Ptr)
	case 1:
		var ok bool
		lexpr, ok = steps[0].(*ast.Ptr)
		if !ok {
			return nil, ctx.errf(errors.ExpressionKind, steps[0],
				"invalid shape element")
		}
	default:
		return nil, ctx.errf(errors.ExpressionKind, el,
			"invalid shape element path")
	}

	isLinkProp := lexpr.Kind == ast.PtrProperty
	if isLinkProp {
		rptr := sourceExpr.RPtr
		if rptr == nil && opts.viewRPtr != nil {
			rptr = opts.viewRPtr.RPtr
		}
		if rptr == nil {
			return nil, ctx.errf(errors.ExpressionKind, lexpr,
				"invalid reference to link property in top level shape")
		}
		ptrSource = rptr.PtrCls
	}

	dir := schema.Outbound
	if lexpr.Direction == ast.Inbound {
		dir = schema.Inbound
	}

	var targetStep *ir.Set

	if el.CompExpr != nil || precompiled != nil {
		var err errors.Error
		targetStep, _, err = compileShapeCompExpr(
			ctx, sourceExpr, el, lexpr, ptrSource, isLinkProp, opts, precompiled)
		if err != nil {
			return nil, err
		}
	} else {
		var ptrTarget schema.Type
		if lexpr.Target != nil {
			obj, err := getSchemaObject(ctx, lexpr.Target)
			if err != nil {
				return nil, err
			}
			t, ok := obj.(*schema.ObjectType)
			if !ok {
				return nil, ctx.errf(errors.ExpressionKind, lexpr.Target,
					"invalid type filter operand: %s is not a concept", lexpr.Target)
			}
			ptrTarget = t
		}

		var err errors.Error
		targetStep, _, err = pathStep(ctx, sourceExpr, ptrSource, lexpr, dir, ptrTarget)
		if err != nil {
			return nil, err
		}
		ctx.Singletons.Add(targetStep.PathID)
	}

	registerPathScope(ctx, targetStep.PathID)

	// Nested shape.
	if len(el.Elements) > 0 {
		var err errors.Error
		switch {
		case opts.isInsert:
			targetStep, err = compileInsertNestedShape(ctx, targetStep, el.Elements)
		case opts.isUpdate:
			targetStep, err = compileUpdateNestedShape(ctx, targetStep, el.Elements)
		default:
			_, err = compileShape(ctx, targetStep, el.Elements, shapeOpts{})
		}
		if err != nil {
			return nil, err
		}
	}

	// Trailing clauses wrap the element in a sub-select.
	if el.Where != nil || len(el.OrderBy) > 0 || el.Offset != nil || el.Limit != nil {
		wrapped, err := wrapShapeElementStmt(ctx, targetStep, el)
		if err != nil {
			return nil, err
		}
		targetStep = wrapped
	}

	return targetStep, nil
}

// compileShapeCompExpr compiles a computable shape element. The
// computable compiles in a subcontext exposing the enclosing pointer
// so link-property references resolve against it.
func compileShapeCompExpr(
	ctx *context, sourceExpr *ir.Set, el *ast.ShapeElement, lexpr *ast.Ptr,
	ptrSource schema.Object, isLinkProp bool, opts shapeOpts,
	precompiled *ir.Set,
) (*ir.Set, *schema.Pointer, errors.Error) {

	ptrName := lexpr.Ptr.Name

	var compiled ir.Expr
	if precompiled != nil {
		compiled = precompiled
	} else {
		subctx := ctx.newFenced()
		subctx.ViewRPtr = &viewRPtr{
			Source:   sourceExpr.Scls,
			RPtr:     sourceExpr.RPtr,
			IsInsert: opts.isInsert,
			IsUpdate: opts.isUpdate,
		}
		var err errors.Error
		compiled, err = compileExpr(subctx, el.CompExpr)
		if err != nil {
			return nil, nil, err
		}
	}

	targetType, err := inference.Type(compiled, ctx.c.schema)
	if err != nil {
		return nil, nil, err
	}

	// Use the declared pointer when it exists; synthesize a derived
	// one otherwise.
	var ptrcls *schema.Pointer
	if src, ok := ptrSource.(schema.Source); ok {
		ptrcls = src.ResolvePointer(ctx.c.schema, ptrName, schema.Outbound, nil)
	}

	if ptrcls != nil && (opts.isInsert || opts.isUpdate) {
		// In mutating contexts the computed value must fit the
		// declared target. std::Object targets accept any concept.
		declared := ptrcls.Target
		if declared != nil &&
			declared.SchemaName() != schema.NewName("std", "Object") &&
			!targetType.IsSubclassOf(declared) {
			return nil, nil, ctx.errf(errors.ExpressionKind, el,
				"invalid target for %s: %s (expecting %s)",
				ptrName, targetType.SchemaName(), declared.SchemaName())
		}
	}

	if ptrcls == nil {
		ptrcls = deriveShapePointer(ctx, sourceExpr, ptrName, targetType, isLinkProp, compiled)
		if ptrcls == nil {
			return nil, nil, ctx.errf(errors.InternalKind, el,
				"cannot derive pointer %s", ptrName)
		}
	}

	pid := sourceExpr.PathID.Extend(ptrcls, schema.Outbound, targetType)

	var targetStep *ir.Set
	if precompiled != nil {
		targetStep = newSet(ctx, pid, targetType)
	} else {
		targetStep, err = generatedSet(ctx, compiled, pid)
		if err != nil {
			return nil, nil, err
		}
	}

	rptr := &ir.Pointer{
		Source:    sourceExpr,
		Target:    targetStep,
		PtrCls:    ptrcls,
		Direction: schema.Outbound,
	}
	targetStep.RPtr = rptr

	return targetStep, ptrcls, nil
}

// deriveShapePointer synthesizes a pointer class for a computable that
// has no schema counterpart, deriving from std::link or std::property.
func deriveShapePointer(
	ctx *context, sourceExpr *ir.Set, ptrName string,
	targetType schema.Type, isLinkProp bool, compiled ir.Expr,
) *schema.Pointer {

	cat, ok := ctx.c.schema.(*schema.Catalog)
	if !ok {
		return nil
	}
	baseName := "link"
	if isLinkProp {
		baseName = "property"
	}
	if _, isObj := targetType.(*schema.ObjectType); !isObj {
		baseName = "property"
	}
	base := cat.StdPointer(baseName)
	if base == nil {
		return nil
	}

	qual := ctx.c.cfg.DerivedTargetModule
	if qual == "" && sourceExpr.Scls != nil {
		qual = sourceExpr.Scls.SchemaName().String()
	}

	derived := base.Derive(sourceExpr.Scls, targetType, ctx.c.genAlias(qual))
	derived.Rename(schema.NewName(moduleOf(sourceExpr, ctx), ptrName))

	card := getStmtCardinality(ctx)
	if card == "" {
		if inference.Cardinality(compiled, ctx.Singletons, ctx.c.schema) == inference.One {
			card = string(schema.ManyToOne)
		} else {
			card = string(schema.ManyToMany)
		}
	}
	derived.Cardinality = schema.Cardinality(card)
	return derived
}

func moduleOf(sourceExpr *ir.Set, ctx *context) string {
	if ctx.c.cfg.DerivedTargetModule != "" {
		return ctx.c.cfg.DerivedTargetModule
	}
	if sourceExpr.Scls != nil {
		return sourceExpr.Scls.SchemaName().Module
	}
	return "__derived__"
}

func getStmtCardinality(ctx *context) string {
	switch s := ctx.Stmt.(type) {
	case *ir.SelectStmt:
		return s.Cardinality
	case *ir.GroupStmt:
		return s.Cardinality
	case *ir.InsertStmt:
		return s.Cardinality
	case *ir.UpdateStmt:
		return s.Cardinality
	case *ir.DeleteStmt:
		return s.Cardinality
	}
	return ""
}

// compileInsertNestedShape splits nested INSERT elements into the
// mutation shape (plain pointers) and the returning shape (link
// properties), emitting a nested InsertStmt for the former.
func compileInsertNestedShape(ctx *context, targetStep *ir.Set, elements []*ast.ShapeElement) (*ir.Set, errors.Error) {
	var mutation, returning []*ast.ShapeElement
	for _, el := range elements {
		if isLinkPropElement(el) {
			returning = append(returning, el)
		} else {
			mutation = append(mutation, el)
		}
	}

	result := targetStep

	if len(mutation) > 0 {
		subjType, ok := targetStep.Scls.(*schema.ObjectType)
		if !ok {
			return nil, ctx.errf(errors.ExpressionKind, mutation[0],
				"cannot insert into a non-Concept link target")
		}

		nested := &ir.InsertStmt{Subject: targetStep, ParentStmt: ctx.Stmt}
		nested.Result = classSet(ctx, subjType.MaterialType())

		ictx := ctx.new()
		ictx.Stmt = nested
		if _, err := compileShape(ictx, targetStep, mutation, shapeOpts{
			isInsert:   true,
			noImplicit: true,
		}); err != nil {
			return nil, err
		}

		result = newSet(ctx, targetStep.PathID, targetStep.Scls)
		result.Expr = nested
		result.RPtr = targetStep.RPtr
	}

	if len(returning) > 0 {
		if _, err := compileShape(ctx, result, returning, shapeOpts{
			noImplicit: true,
		}); err != nil {
			return nil, err
		}
	}
	return result, nil
}

// compileUpdateNestedShape compiles nested UPDATE elements; only link
// properties may be set through a nested update shape.
func compileUpdateNestedShape(ctx *context, targetStep *ir.Set, elements []*ast.ShapeElement) (*ir.Set, errors.Error) {
	for _, el := range elements {
		if !isLinkPropElement(el) {
			return nil, ctx.errf(errors.ExpressionKind, el,
				"only link properties may appear in a nested UPDATE shape")
		}
	}

	sel := &ir.SelectStmt{ParentStmt: ctx.Stmt}
	sel.Result = targetStep
	if _, err := compileShape(ctx, targetStep, elements, shapeOpts{
		noImplicit: true,
	}); err != nil {
		return nil, err
	}

	wrapped := newSet(ctx, targetStep.PathID, targetStep.Scls)
	wrapped.Expr = sel
	wrapped.RPtr = targetStep.RPtr
	return wrapped, nil
}

func isLinkPropElement(el *ast.ShapeElement) bool {
	if el.Expr == nil || len(el.Expr.Steps) == 0 {
		return false
	}
	last := el.Expr.Steps[len(el.Expr.Steps)-1]
	ptr, ok := last.(*ast.Ptr)
	return ok && ptr.Kind == ast.PtrProperty
}

// wrapShapeElementStmt wraps a shape element carrying FILTER, ORDER
// BY, OFFSET, or LIMIT clauses into a sub-select.
func wrapShapeElementStmt(ctx *context, targetStep *ir.Set, el *ast.ShapeElement) (*ir.Set, errors.Error) {
	sel := &ir.SelectStmt{ParentStmt: ctx.Stmt}
	sel.SetSpan(el.Pos())
	sel.Result = targetStep

	subctx := ctx.new()
	subctx.Stmt = sel
	subctx.ResultPathSteps = el.Expr.Steps

	var err errors.Error
	if sel.Where, err = compileWhereClause(subctx, el.Where); err != nil {
		return nil, err
	}
	if sel.OrderBy, err = compileOrderByClause(subctx, el.OrderBy); err != nil {
		return nil, err
	}
	if sel.Offset, err = compileLimitOffsetClause(subctx, el.Offset); err != nil {
		return nil, err
	}
	if sel.Limit, err = compileLimitOffsetClause(subctx, el.Limit); err != nil {
		return nil, err
	}
	if el.Recurse && el.RecurseLimit != nil {
		limit, err := compileLimitOffsetClause(subctx, el.RecurseLimit)
		if err != nil {
			return nil, err
		}
		if sel.Limit == nil {
			sel.Limit = limit
		}
	}

	wrapped := newSet(ctx, targetStep.PathID, targetStep.Scls)
	wrapped.Expr = sel
	wrapped.RPtr = targetStep.RPtr
	wrapped.SetSpan(el.Pos())
	return wrapped, nil
}

// compileShapeExpr lowers a standalone shape expression: the subject
// compiles first and the shape attaches to its set.
func compileShapeExpr(ctx *context, shape *ast.Shape) (ir.Expr, errors.Error) {
	x, err := compileExpr(ctx, shape.Expr)
	if err != nil {
		return nil, err
	}
	set, err := ensureSet(ctx, x, nil)
	if err != nil {
		return nil, err
	}

	viewScls, err := compileShape(ctx, set, shape.Elements, shapeOpts{
		viewRPtr: ctx.ViewRPtr,
	})
	if err != nil {
		return nil, err
	}
	if viewScls != nil {
		set.Scls = viewScls
	}
	return set, nil
}
