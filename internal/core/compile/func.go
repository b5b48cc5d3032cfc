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

func compileFunctionCall(ctx *context, expr *ast.FunctionCall) (ir.Expr, errors.Error) {
	fctx := ctx.new()

	funcName := schema.NewName(expr.Func.Module, expr.Func.Name)
	funcs := fctx.c.schema.Functions(funcName, fctx.Namespaces)
	if len(funcs) == 0 {
		return nil, ctx.errf(errors.ReferenceKind, expr,
			"could not resolve function name %s", expr.Func)
	}

	fctx.InAggregate = anyAggregate(funcs)

	args, kwargs, argTypes, argScopes, err := processFuncArgs(fctx, expr, funcName)
	if err != nil {
		return nil, err
	}

	var fn *schema.Function
	for _, candidate := range funcs {
		if checkFunction(candidate, argTypes) {
			fn = candidate
			break
		}
	}
	if fn == nil {
		return nil, ctx.errf(errors.ReferenceKind, expr,
			"could not find a function variant %s", expr.Func)
	}

	collapseParamScopes(fn, args, kwargs, argScopes)

	node := &ir.FunctionCall{Func: fn, Args: args, KwArgs: kwargs}
	node.SetSpan(expr.Pos())

	if fn.InitialValue != "" {
		iv, err := compileInitialValue(fctx, fn, node)
		if err != nil {
			return nil, err
		}
		node.InitialValue = iv
	}

	return ensureSet(ctx, node, nil)
}

func anyAggregate(funcs []*schema.Function) bool {
	for _, fn := range funcs {
		if fn.Aggregate {
			return true
		}
	}
	return false
}

// processFuncArgs compiles each argument inside a preemptive SET OF
// fence (the matched parameter kind is unknown until dispatch) and
// collects the inferred argument types.
func processFuncArgs(ctx *context, expr *ast.FunctionCall, funcName schema.Name) (
	args []ir.Expr, kwargs map[string]ir.Expr,
	argTypes []schema.Type, argScopes map[ir.Expr]*ir.ScopeFence,
	err errors.Error,
) {
	kwargs = map[string]ir.Expr{}
	argScopes = map[ir.Expr]*ir.ScopeFence{}

	for i, a := range expr.Args {
		argQl := a.Expr

		if a.Filter != nil || len(a.Sort) > 0 {
			// Aggregate modifiers rewrite the argument into a
			// sub-select before compilation.
			stmt := ensureQlStmt(argQl)
			sel, ok := stmt.(*ast.SelectQuery)
			if !ok {
				return nil, nil, nil, nil, ctx.errf(errors.ExpressionKind, a.Expr,
					"argument modifiers require a simple argument expression")
			}
			clone := *sel
			if a.Filter != nil {
				clone.Where = extendQlBinOp(clone.Where, a.Filter)
			}
			if len(a.Sort) > 0 {
				clone.OrderBy = append(append([]*ast.SortExpr{}, a.Sort...), clone.OrderBy...)
			}
			argQl = &clone
		}

		fencectx := ctx.newFenced()
		compiled, cerr := compileExpr(fencectx, argQl)
		if cerr != nil {
			return nil, nil, nil, nil, cerr
		}
		arg, cerr := scopedSet(fencectx, compiled)
		if cerr != nil {
			return nil, nil, nil, nil, cerr
		}
		argScopes[arg] = fencectx.PathScope

		argName := ""
		if a.Name != nil {
			argName = a.Name.Name
			kwargs[argName] = arg
		} else {
			args = append(args, arg)
		}

		argType, terr := inference.Type(arg, ctx.c.schema)
		if terr != nil || argType == nil {
			label := argName
			if label == "" {
				label = itoa(i)
			}
			return nil, nil, nil, nil, ctx.errf(errors.TypeKind, a.Expr,
				"could not resolve the type of argument $%s of function %s",
				label, funcName)
		}
		argTypes = append(argTypes, argType)
	}

	return args, kwargs, argTypes, argScopes, nil
}

// checkFunction matches a candidate signature against the argument
// types: parameters and arguments walk in lock-step, with VARIADIC
// expansion on the parameter side and default-fill for missing
// trailing arguments.
func checkFunction(fn *schema.Function, argTypes []schema.Type) bool {
	if len(fn.Params) == 0 {
		return len(argTypes) == 0
	}

	if len(argTypes) == 0 {
		// A call without arguments matches only if every non-variadic
		// parameter has a default.
		for i, p := range fn.Params {
			if p.Default == "" && i+1 != fn.VariadicIndex {
				return false
			}
		}
		return true
	}

	n := len(fn.Params)
	if len(argTypes) > n {
		n = len(argTypes)
	}
	for i := 0; i < n; i++ {
		var paramType schema.Type
		var paramDefault string
		if i < len(fn.Params) {
			paramType = fn.Params[i].Type
			paramDefault = fn.Params[i].Default
		} else {
			// More arguments than parameters.
			if fn.VariadicIndex == 0 {
				return false
			}
			paramType = fn.Params[fn.VariadicIndex-1].Type
		}

		if i >= len(argTypes) {
			// Fewer arguments than parameters.
			if paramDefault == "" && i+1 != fn.VariadicIndex {
				return false
			}
			continue
		}

		if !argTypes[i].IsSubclassOf(paramType) {
			return false
		}
	}
	return true
}

// collapseParamScopes removes the preemptive SET OF fence from every
// argument whose matched parameter is not SET OF.
func collapseParamScopes(fn *schema.Function, args []ir.Expr, kwargs map[string]ir.Expr, argScopes map[ir.Expr]*ir.ScopeFence) {
	paramKind := func(i int) schema.ParamKind {
		if fn.VariadicIndex != 0 && i >= fn.VariadicIndex-1 {
			return fn.Params[fn.VariadicIndex-1].Kind
		}
		if i < len(fn.Params) {
			return fn.Params[i].Kind
		}
		return schema.ParamDefault
	}

	for i, arg := range args {
		if paramKind(i) != schema.ParamSetOf {
			if scope := argScopes[arg]; scope != nil {
				scope.Collapse()
				if s, ok := arg.(*ir.Set); ok {
					s.PathScope = nil
					s.ScopeNode = nil
				}
			}
		}
	}

	for name, arg := range kwargs {
		kind := schema.ParamDefault
		for _, p := range fn.Params {
			if p.Name == name {
				kind = p.Kind
				break
			}
		}
		if kind != schema.ParamSetOf {
			if scope := argScopes[arg]; scope != nil {
				scope.Collapse()
				if s, ok := arg.(*ir.Set); ok {
					s.PathScope = nil
					s.ScopeNode = nil
				}
			}
		}
	}
}

// compileInitialValue parses the aggregate's initial value, casts it
// to the call's inferred return type, and compiles it.
func compileInitialValue(ctx *context, fn *schema.Function, node *ir.FunctionCall) (ir.Expr, errors.Error) {
	rtype, err := inference.Type(node, ctx.c.schema)
	if err != nil {
		return nil, err
	}

	ivExpr, perr := parser.ParseFragment("", fn.InitialValue)
	if perr != nil {
		return nil, errors.Promote(perr, "invalid aggregate initial value")
	}

	cast := &ast.TypeCast{
		Type: typeToQlTypeName(rtype),
		Expr: ivExpr,
	}
	return compileExpr(ctx, cast)
}
