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

// newSet allocates a set and records it for the final namespace strip.
func newSet(ctx *context, pid ir.PathId, scls schema.Type) *ir.Set {
	s := &ir.Set{PathID: pid, Scls: scls}
	ctx.c.allSets = append(ctx.c.allSets, s)
	return s
}

// pathId builds the canonical id of a root type reference under the
// current path-id namespace.
func pathId(ctx *context, scls schema.Type) ir.PathId {
	pid := ir.NewPathId(scls)
	if len(ctx.PathIdNamespace) > 0 {
		pid = pid.WithNamespace(ctx.PathIdNamespace...)
	}
	return pid
}

// classSet returns the canonical set for a root type reference.
func classSet(ctx *context, scls schema.Type) *ir.Set {
	pid := pathId(ctx, scls)
	if s, ok := ctx.Sets[pid.Key()]; ok {
		registerPathScope(ctx, pid)
		return s
	}
	s := newSet(ctx, pid, scls)
	ctx.Sets[pid.Key()] = s
	registerPathScope(ctx, pid)
	return s
}

// generatedSet wraps a computed expression into a set with a fresh
// expression path id.
func generatedSet(ctx *context, expr ir.Expr, pid ir.PathId) (*ir.Set, errors.Error) {
	t, err := inference.Type(expr, ctx.c.schema)
	if err != nil {
		return nil, err
	}
	if !pid.IsValid() {
		pid = ir.NewExprPathId(ctx.c.genAlias("expr"), t)
		if len(ctx.PathIdNamespace) > 0 {
			pid = pid.WithNamespace(ctx.PathIdNamespace...)
		}
	}
	s := newSet(ctx, pid, t)
	s.Expr = expr
	s.SetSpan(expr.Span())
	return s, nil
}

// ensureSet returns expr itself when it already is a set, and wraps it
// otherwise. typehint supplies the element type when none can be
// inferred for the wrapped expression.
func ensureSet(ctx *context, expr ir.Expr, typehint schema.Type) (*ir.Set, errors.Error) {
	if s, ok := expr.(*ir.Set); ok {
		return s, nil
	}
	s, err := generatedSet(ctx, expr, ir.PathId{})
	if err != nil {
		return nil, err
	}
	if typehint != nil && s.Scls == nil {
		s.Scls = typehint
	}
	return s, nil
}

// scopedSet seals expr as a set carrying the current scope: the traced
// paths, the statement-local canonical sets, and the fence node.
func scopedSet(ctx *context, expr ir.Expr) (*ir.Set, errors.Error) {
	s, err := ensureSet(ctx, expr, nil)
	if err != nil {
		return nil, err
	}
	if ctx.PathScope != nil {
		s.ScopeNode = ctx.PathScope
		s.PathScope = ctx.PathScope.OwnPaths()
	}
	s.LocalScopeSets = localScopeSets(ctx)
	return s, nil
}

// compilePath lowers a path expression into its canonical set.
func compilePath(ctx *context, expr *ast.Path) (ir.Expr, errors.Error) {
	steps := expr.Steps
	if expr.Partial {
		if len(ctx.ResultPathSteps) == 0 {
			return nil, ctx.errf(errors.ExpressionKind, expr,
				"could not resolve partial path")
		}
		steps = append(append([]ast.Expr{}, ctx.ResultPathSteps...), steps...)
	}

	var pathTip *ir.Set

	for i, step := range steps {
		switch step := step.(type) {
		case *ast.ClassRef:
			if i > 0 {
				return nil, ctx.errf(errors.InternalKind, step,
					"unexpected reference as a non-first path item")
			}
			tip, err := compilePathRoot(ctx, step, pathTip)
			if err != nil {
				return nil, err
			}
			pathTip = tip

		case *ast.Ptr:
			if pathTip == nil {
				return nil, ctx.errf(errors.InternalKind, step,
					"pointer step without a path root")
			}
			var source schema.Object
			if step.Kind == ast.PtrProperty {
				// Link property reference; the source is the link
				// immediately preceding this step in the path.
				if pathTip.RPtr == nil {
					return nil, ctx.errf(errors.ExpressionKind, step,
						"invalid reference to link property %s: "+
							"no link in path", step.Ptr.Name)
				}
				source = pathTip.RPtr.PtrCls
			} else {
				source = pathTip.Scls
			}

			dir := schema.Outbound
			if step.Direction == ast.Inbound {
				dir = schema.Inbound
			}

			var ptrTarget schema.Type
			if step.Target != nil {
				obj, err := getSchemaObject(ctx, step.Target)
				if err != nil {
					return nil, err
				}
				t, ok := obj.(*schema.ObjectType)
				if !ok {
					return nil, ctx.errf(errors.ExpressionKind, step.Target,
						"invalid type filter operand: %s is not a concept",
						step.Target)
				}
				ptrTarget = t
			}

			tip, _, err := pathStep(ctx, pathTip, source, step, dir, ptrTarget)
			if err != nil {
				return nil, err
			}
			pathTip = tip

		default:
			// Arbitrary expression as the path root.
			if i > 0 {
				return nil, ctx.errf(errors.InternalKind, step,
					"unexpected expression as a non-first path item")
			}
			x, err := compileExpr(ctx, step)
			if err != nil {
				return nil, err
			}
			pathTip, err = ensureSet(ctx, x, nil)
			if err != nil {
				return nil, err
			}
		}
	}

	if pathTip != nil {
		registerPathScope(ctx, pathTip.PathID)
		pathTip.SetSpan(expr.Pos())
	}
	return pathTip, nil
}

// compilePathRoot resolves the first step of a path: anchors, path
// variables, WITH-bound subqueries, then schema classes (with views
// materialized on first use).
func compilePathRoot(ctx *context, step *ast.ClassRef, pathTip *ir.Set) (*ir.Set, errors.Error) {
	if step.Module == "" {
		if ref, ok := ctx.Anchors[step.Name]; ok {
			return ref, nil
		}
		if ref, ok := ctx.PathVars[step.Name]; ok {
			return ref, nil
		}

		srcPath := ""
		if pathTip != nil {
			srcPath = pathTip.PathID.Key()
		}
		if ref, ok := ctx.Substmts[substmtKey{step.Name, srcPath}]; ok {
			return ref, nil
		}
	}

	scls, err := getSchemaObject(ctx, step)
	if err != nil {
		return nil, err
	}

	if ot, ok := scls.(*schema.ObjectType); ok && ot.IsView() {
		return declareViewFromSchema(ctx, ot)
	}

	t, ok := scls.(schema.Type)
	if !ok {
		return nil, ctx.errf(errors.ReferenceKind, step,
			"%s is not a type", step)
	}
	return classSet(ctx, t), nil
}

// pathStep compiles one pointer traversal from pathTip.
func pathStep(
	ctx *context, pathTip *ir.Set, source schema.Object,
	step *ast.Ptr, dir schema.PointerDirection, ptrTarget schema.Type,
) (*ir.Set, *schema.Pointer, errors.Error) {

	ptrName := step.Ptr.Name

	// Tuple-typed tips turn pointer steps into tuple indirections.
	if tup, ok := pathTip.Scls.(*schema.Tuple); ok {
		elType, ok := tup.ElementType(ptrName)
		if !ok {
			return nil, nil, ctx.errf(errors.ReferenceKind, step,
				"%s is not a member of %s", ptrName, tup)
		}
		key := pathTip.PathID.Key() + "|el:" + ptrName
		if s, ok := ctx.Sets[key]; ok {
			return s, nil, nil
		}
		pid := pathTip.PathID.ExtendField(ptrName, elType)
		ind := &ir.TupleIndirection{Expr: pathTip, Name: ptrName, PathID: pid}
		ind.SetSpan(step.Pos())
		s, err := generatedSet(ctx, ind, pid)
		if err != nil {
			return nil, nil, err
		}
		ctx.Sets[key] = s
		return s, nil, nil
	}

	// Check if the tip of the path has an associated shape, as is the
	// case for views.
	var ptrcls *schema.Pointer
	var viewSource *ir.Set

	for _, shapeEl := range viewShape(pathTip) {
		if shapeEl.RPtr == nil {
			continue
		}
		shapePtr := shapeEl.RPtr.PtrCls
		if shapePtr.ShortName() == ptrName ||
			(step.Ptr.Module != "" && shapePtr.SchemaName().String() == step.Ptr.String()) {
			ptrcls = shapePtr
			if shapeEl.Expr != nil {
				viewSource = shapeEl
			}
			break
		}
	}

	if ptrcls == nil {
		var err errors.Error
		ptrcls, err = resolvePtr(ctx, source, step, dir, ptrTarget)
		if err != nil {
			return nil, nil, err
		}
	}

	target := ptrcls.FarEndpoint(dir)
	if target == nil {
		return nil, nil, ctx.errf(errors.PointerKind, step,
			"pointer %s has no %s endpoint", ptrName, dir)
	}

	tip, err := extendPath(ctx, pathTip, ptrcls, dir, target, step)
	if err != nil {
		return nil, nil, err
	}
	tip.ViewSource = viewSource

	// A type filter on a virtual target narrows the set in place.
	if ot, ok := target.(*schema.ObjectType); ok && ot.Virtual && ptrTarget != nil {
		key := tip.PathID.Key() + "|is:" + ptrTarget.SchemaName().String()
		if s, ok := ctx.Sets[key]; ok {
			tip = s
		} else {
			pf := &ir.TypeFilter{
				PathID: tip.PathID,
				Expr:   tip,
				Type:   &ir.TypeRef{MainType: ptrTarget.SchemaName().String()},
			}
			filtered, err := generatedSet(ctx, pf, ir.PathId{})
			if err != nil {
				return nil, nil, err
			}
			filtered.RPtr = tip.RPtr
			ctx.Sets[key] = filtered
			tip = filtered
		}
	}

	return tip, ptrcls, nil
}

// viewShape returns the shape to search for view pointers: the
// subquery result shape for view sets, the set's own shape otherwise.
func viewShape(tip *ir.Set) []*ir.Set {
	if stmt, ok := tip.Expr.(ir.Stmt); ok {
		if r := stmt.ResultSet(); r != nil {
			return r.Shape
		}
	}
	return tip.Shape
}

// resolvePtr resolves a pointer on the source through the schema. The
// special std::__class__ pointer resolves on any non-source
// expression by deriving it on schema::Atom.
func resolvePtr(
	ctx *context, nearEndpoint schema.Object, step *ast.Ptr,
	dir schema.PointerDirection, target schema.Type,
) (*schema.Pointer, errors.Error) {

	ptrName := step.Ptr.Name

	if src, ok := nearEndpoint.(schema.Source); ok {
		if ptr := src.ResolvePointer(ctx.c.schema, ptrName, dir, target); ptr != nil {
			return ptr, nil
		}
	} else if dir == schema.Outbound && ptrName == "__class__" {
		base := schema.StdObjectPointer(ctx.c.schema, "__class__")
		if base != nil {
			atom, err := ctx.c.schema.Get(schema.NewName("schema", "Atom"), nil)
			if err == nil {
				t, _ := nearEndpoint.(schema.Type)
				return base.Derive(t, atom.(schema.Type), ctx.c.genAlias("class")), nil
			}
		}
	}

	path := describePath(nearEndpoint, ptrName, dir)
	if target != nil {
		path += "[IS " + target.SchemaName().String() + "]"
	}
	return nil, ctx.errf(errors.ReferenceKind, step,
		"%s does not resolve to any known path", path)
}

func describePath(near schema.Object, ptrName string, dir schema.PointerDirection) string {
	if ptr, ok := near.(*schema.Pointer); ok {
		return "(" + ptr.SchemaName().String() + ")@(" + ptrName + ")"
	}
	name := "?"
	if near != nil {
		name = near.SchemaName().String()
	}
	return "(" + name + ")." + string(dir) + "(" + ptrName + ")"
}

// extendPath returns a set representing the new path tip. Sets are
// interned: a second traversal of the same canonical path yields the
// same instance.
func extendPath(
	ctx *context, source *ir.Set, ptrcls *schema.Pointer,
	dir schema.PointerDirection, target schema.Type, src ast.Node,
) (*ir.Set, errors.Error) {

	pid := source.PathID.Extend(ptrcls, dir, target)

	if source.Expr == nil || isViewSet(source) {
		if s, ok := ctx.Sets[pid.Key()]; ok {
			registerPathScope(ctx, pid)
			return s, nil
		}
	}

	targetSet := newSet(ctx, pid, target)
	if src != nil {
		targetSet.SetSpan(src.Pos())
	}

	ptr := &ir.Pointer{
		Source:    source,
		Target:    targetSet,
		PtrCls:    ptrcls,
		Direction: dir,
	}
	targetSet.RPtr = ptr

	if ptrcls.IsPureComputable() {
		computed, err := computablePtrSet(ctx, ptr, src)
		if err != nil {
			return nil, err
		}
		targetSet = computed
	}

	ctx.Sets[pid.Key()] = targetSet
	registerPathScope(ctx, pid)
	return targetSet, nil
}

// isViewSet reports whether the set is backed by a view subquery.
func isViewSet(s *ir.Set) bool {
	if stmt, ok := s.Expr.(ir.Stmt); ok {
		if sel, ok := stmt.(*ir.SelectStmt); ok {
			return sel.Result != nil && len(sel.Result.Shape) > 0
		}
	}
	return false
}

// computablePtrSet compiles the pointer's default expression. The
// computable is independent from the surrounding query except for the
// path of its source, which is exposed as the `self` anchor.
func computablePtrSet(ctx *context, rptr *ir.Pointer, src ast.Node) (*ir.Set, errors.Error) {
	ptrcls := rptr.PtrCls
	if ptrcls.Default == "" {
		return nil, ctx.errf(errors.InternalKind, src,
			"%s is not a computable pointer", ptrcls.ShortName())
	}

	defaultExpr, perr := parser.ParseFragment("", ptrcls.Default)
	if perr != nil {
		return nil, errors.Promote(perr, "invalid computable default")
	}

	subctx := ctx.detached()
	subctx.Anchors["self"] = rptr.Source
	subctx.PathIdNamespace = append(subctx.PathIdNamespace,
		ir.Namespace{Name: ctx.c.genAlias("ns"), Weak: true})

	substmt, err := compileExpr(subctx, defaultExpr)
	if err != nil {
		return nil, err
	}

	targetType, err := inference.Type(substmt, ctx.c.schema)
	if err != nil {
		return nil, err
	}

	pid := rptr.Source.PathID.Extend(ptrcls, schema.Outbound, targetType)
	s, err := generatedSet(ctx, substmt, pid)
	if err != nil {
		return nil, err
	}
	s.RPtr = rptr
	rptr.Target = s
	return s, nil
}

// getSchemaObject resolves a class reference through the context's
// namespaces.
func getSchemaObject(ctx *context, ref *ast.ClassRef) (schema.Object, errors.Error) {
	if ref.Module == "" && schemaNameIsReserved(ref.Name) {
		return nil, ctx.errf(errors.SyntaxKind, ref,
			"%q is a reserved keyword and cannot be used as a short name", ref.Name)
	}
	obj, err := ctx.c.schema.Get(schema.NewName(ref.Module, ref.Name), ctx.Namespaces)
	if err != nil {
		return nil, errors.NewKindf(errors.ReferenceKind, ref.Pos(), "%v", err)
	}
	return obj, nil
}
