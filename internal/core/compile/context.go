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

// Package compile lowers EdgeQL syntax trees into the set-algebra IR,
// resolving names against a schema and tracking paths, scopes, and
// cardinality.
package compile

import (
	"fmt"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/edgeql/token"
	"edgeql.org/go/internal/core/inference"
	"edgeql.org/go/internal/core/ir"
)

// Config configures a compilation.
type Config struct {
	// Anchors maps externally-provided names to schema items; an
	// anchor resolves to a pre-compiled IR set.
	Anchors map[string]schema.Object

	// ArgTypes declares the types of statement parameters.
	ArgTypes map[string]schema.Type

	// ModAliases supplies module aliases; the alias "" names the
	// default module.
	ModAliases map[string]string

	// SecurityContext is accepted for the embedding application; the
	// compiler does not read it or copy it into the compiled statement.
	SecurityContext string

	// DerivedTargetModule qualifies types derived for computables.
	DerivedTargetModule string

	// ResultViewName requests a named view type for the top-level
	// result.
	ResultViewName string
}

// compiler holds compilation-wide state shared by all context levels.
type compiler struct {
	cfg    Config
	schema schema.Schema

	aliasCounts map[string]int

	toplevelStmt ir.Stmt

	// allSets records every canonical set for the final weak-namespace
	// strip.
	allSets []*ir.Set

	// viewClassMap caches materialized schema views; a placeholder is
	// inserted before the view body compiles, breaking cycles.
	viewClassMap map[schema.Object]*ir.Set

	viewNodes map[string]schema.Type
}

// genAlias produces a fresh internal name from a hint.
func (c *compiler) genAlias(hint string) string {
	if hint == "" {
		hint = "a"
	}
	c.aliasCounts[hint]++
	n := c.aliasCounts[hint]
	if n == 1 {
		return hint
	}
	return fmt.Sprintf("%s~%d", hint, n)
}

// substmtKey identifies a WITH-bound subquery by alias and the path id
// of the source it applies to.
type substmtKey struct {
	name    string
	srcPath string
}

// A context is one level of the compiler context stack. Child contexts
// are derived with new, subquery, newFenced, and newTraced; maps are
// shared or copied per derivation mode, matching the statement/
// subquery semantics of the language.
type context struct {
	c *compiler

	// Namespaces maps module aliases to module names.
	Namespaces map[string]string

	// Anchors maps anchor names to pre-compiled sets.
	Anchors map[string]*ir.Set

	// PathVars maps WITH-bound path aliases to sets.
	PathVars map[string]*ir.Set

	// Substmts maps WITH-bound subquery aliases to their view sets.
	Substmts map[substmtKey]*ir.Set

	// AliasedViews maps view aliases to their derived types.
	AliasedViews map[string]schema.Type

	// ViewSets maps derived view types to their compiled sets.
	ViewSets map[schema.Type]*ir.Set

	// Arguments maps parameter names to their declared types.
	Arguments map[string]schema.Type

	// Stmt is the IR statement currently being built.
	Stmt ir.Stmt

	// Sets interns canonical sets by path key.
	Sets map[string]*ir.Set

	// GroupPaths holds the path ids grouped over by the enclosing
	// GROUP statement; they are excluded from singleton extraction.
	GroupPaths map[string]bool

	// InAggregate is set while compiling aggregate arguments.
	InAggregate bool

	// ResultPathSteps prefixes partial paths inside shape elements.
	ResultPathSteps []ast.Expr

	// ViewScls is the view type a shape is being compiled for.
	ViewScls schema.Type

	// ViewRPtr describes the pointer a nested view hangs off.
	ViewRPtr *viewRPtr

	// Singletons is the set of path ids known to be singular.
	Singletons inference.Singletons

	// PathScope is the scope-fence node paths register under.
	PathScope *ir.ScopeFence

	// StmtLocalPathScope records path ids registered for the current
	// statement.
	StmtLocalPathScope map[string]ir.PathId

	// TracedPathScope collects path ids while compiling a traced
	// sub-expression (EXISTS, IN, aggregate arguments).
	TracedPathScope map[string]ir.PathId

	// PathIdNamespace qualifies all newly-created path ids.
	PathIdNamespace []ir.Namespace

	// PathAsType is set while compiling the right side of IS.
	PathAsType bool

	// ToplevelResultViewName requests a view type name for the result
	// of the statement being compiled.
	ToplevelResultViewName string

	// Clause names the statement clause being compiled.
	Clause string

	// ExprExposed is set when compiled values surface to the user.
	ExprExposed bool
}

// viewRPtr carries the pointer context a shape computable compiles
// under.
type viewRPtr struct {
	Source   schema.Type
	Ptr      *schema.Pointer
	RPtr     *ir.Pointer
	IsInsert bool
	IsUpdate bool
}

func newContext(c *compiler) *context {
	return &context{
		c:                  c,
		Namespaces:         map[string]string{},
		Anchors:            map[string]*ir.Set{},
		PathVars:           map[string]*ir.Set{},
		Substmts:           map[substmtKey]*ir.Set{},
		AliasedViews:       map[string]schema.Type{},
		ViewSets:           map[schema.Type]*ir.Set{},
		Arguments:          map[string]schema.Type{},
		Sets:               map[string]*ir.Set{},
		GroupPaths:         map[string]bool{},
		Singletons:         inference.Singletons{},
		StmtLocalPathScope: map[string]ir.PathId{},
	}
}

// new derives a child context sharing all maps: mutations are visible
// to the parent. Used for clause-level adjustments.
func (ctx *context) new() *context {
	child := *ctx
	if ctx.ResultPathSteps != nil {
		child.ResultPathSteps = append([]ast.Expr(nil), ctx.ResultPathSteps...)
	}
	return &child
}

// subquery derives a child context for a nested statement: alias maps
// are copied, the interning map and statement state reset.
func (ctx *context) subquery() *context {
	child := *ctx
	child.Namespaces = copyStrMap(ctx.Namespaces)
	child.Anchors = copySetMap(ctx.Anchors)
	child.PathVars = copySetMap(ctx.PathVars)
	child.Substmts = copySubstmtMap(ctx.Substmts)
	child.AliasedViews = copyTypeMap(ctx.AliasedViews)

	child.Stmt = nil
	child.Sets = map[string]*ir.Set{}
	child.GroupPaths = map[string]bool{}
	child.InAggregate = false
	child.ResultPathSteps = nil
	child.ViewScls = nil
	child.ViewRPtr = nil
	child.StmtLocalPathScope = map[string]ir.PathId{}
	child.ToplevelResultViewName = ""
	return &child
}

// newFenced derives a child context whose paths register under a fresh
// fence.
func (ctx *context) newFenced() *context {
	child := ctx.new()
	if child.PathScope != nil {
		child.PathScope = child.PathScope.AddFence()
	} else {
		child.PathScope = ir.NewScopeFence()
	}
	return child
}

// newTraced derives a fenced child context that records every path id
// compiled within, for attachment to the resulting set's PathScope.
func (ctx *context) newTraced() *context {
	child := ctx.newFenced()
	child.TracedPathScope = map[string]ir.PathId{}
	return child
}

// detached derives a fully-independent context against the same
// schema, used for computable pointers and stored views.
func (ctx *context) detached() *context {
	child := newContext(ctx.c)
	child.Namespaces = copyStrMap(ctx.Namespaces)
	child.Arguments = ctx.Arguments
	child.PathScope = ir.NewScopeFence()
	return child
}

func copyStrMap(m map[string]string) map[string]string {
	c := make(map[string]string, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copySetMap(m map[string]*ir.Set) map[string]*ir.Set {
	c := make(map[string]*ir.Set, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copySubstmtMap(m map[substmtKey]*ir.Set) map[substmtKey]*ir.Set {
	c := make(map[substmtKey]*ir.Set, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

func copyTypeMap(m map[string]schema.Type) map[string]schema.Type {
	c := make(map[string]schema.Type, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}

// errf formats a compilation error of the given kind at n's position.
func (ctx *context) errf(kind errors.Kind, n ast.Node, format string, args ...interface{}) errors.Error {
	pos := token.NoPos
	if n != nil {
		pos = n.Pos()
	}
	return errors.NewKindf(kind, pos, format, args...)
}
