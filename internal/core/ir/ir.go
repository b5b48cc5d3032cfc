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

// Package ir defines the intermediate representation produced by the
// EdgeQL compiler: a typed, scope-annotated, interned graph of Set,
// Stmt, and expression nodes.
package ir

import (
	"github.com/cockroachdb/apd/v3"

	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/edgeql/token"
)

// A Node is any IR node.
type Node interface {
	// Span returns the source span of the node, or token.NoPos.
	Span() token.Pos
}

// An Expr is any IR node usable in expression position.
type Expr interface {
	Node
	irExpr()
}

// A Stmt is a statement node.
type Stmt interface {
	Expr
	irStmt()

	// Parent returns the enclosing statement, or nil at the top level.
	Parent() Stmt

	// ResultSet returns the statement's result.
	ResultSet() *Set
}

func (*Set) irExpr()              {}
func (*BinOp) irExpr()            {}
func (*UnaryOp) irExpr()          {}
func (*SetOp) irExpr()            {}
func (*TypeCast) irExpr()         {}
func (*TypeFilter) irExpr()       {}
func (*TypeRef) irExpr()          {}
func (*Tuple) irExpr()            {}
func (*Array) irExpr()            {}
func (*Mapping) irExpr()          {}
func (*Constant) irExpr()         {}
func (*EmptySet) irExpr()         {}
func (*Parameter) irExpr()        {}
func (*ExistPred) irExpr()        {}
func (*Coalesce) irExpr()         {}
func (*FunctionCall) irExpr()     {}
func (*IndexIndirection) irExpr() {}
func (*SliceIndirection) irExpr() {}
func (*TupleIndirection) irExpr() {}

func (*SelectStmt) irExpr() {}
func (*GroupStmt) irExpr()  {}
func (*InsertStmt) irExpr() {}
func (*UpdateStmt) irExpr() {}
func (*DeleteStmt) irExpr() {}

func (*SelectStmt) irStmt() {}
func (*GroupStmt) irStmt()  {}
func (*InsertStmt) irStmt() {}
func (*UpdateStmt) irStmt() {}
func (*DeleteStmt) irStmt() {}

// base carries the span shared by all nodes.
type base struct {
	Src token.Pos
}

// Span implements Node.
func (b *base) Span() token.Pos { return b.Src }

// SetSpan records the source span of the node.
func (b *base) SetSpan(p token.Pos) { b.Src = p }

// A Set is the central value carrier: a reference to a set of values
// reached by a path, or computed by an expression.
type Set struct {
	base

	// PathID canonically identifies the set. Within one compilation
	// context there is a single canonical Set per path id.
	PathID PathId

	// Scls is the schema type of the set's elements.
	Scls schema.Type

	// Expr is nil for a root entity reference and non-nil for a
	// derived or computed set.
	Expr Expr

	// RPtr is the pointer traversal that produced this set, if any.
	// For the set created by the traversal RPtr.Target is the set
	// itself; a set that wraps another one shares the wrapped set's
	// RPtr.
	RPtr *Pointer

	// Shape lists the set's shape elements; each element is a Set
	// whose RPtr names the projected pointer.
	Shape []*Set

	// PathScope carries the traced scope of fenced sub-expressions
	// (EXISTS, membership tests, aggregate arguments).
	PathScope []PathId

	// LocalScopeSets are the canonical sets of the statement-local
	// scope at the time the set was sealed.
	LocalScopeSets []*Set

	// ScopeNode is the fence the set was compiled under, when the set
	// seals a fenced subtree.
	ScopeNode *ScopeFence

	// Anchor carries the name of the externally-provided anchor this
	// set resolves, if any.
	Anchor string

	// ViewSource is the shape element a view-path step resolved to.
	ViewSource *Set
}

// A Pointer is a traversal step embedded in the target Set's RPtr.
type Pointer struct {
	base
	Source    *Set
	Target    *Set
	PtrCls    *schema.Pointer
	Direction schema.PointerDirection
}

// A SortExpr is a compiled ORDER BY item.
type SortExpr struct {
	base
	Expr       *Set
	Direction  string // "ASC" or "DESC"
	NonesOrder string // "", "first", or "last"
}

// stmtBase carries fields shared by all statements.
type stmtBase struct {
	base

	// Result is the statement's result set.
	Result *Set

	// ParentStmt is the enclosing statement.
	ParentStmt Stmt

	// Cardinality is the declared statement cardinality, if any.
	Cardinality string
}

func (s *stmtBase) Parent() Stmt    { return s.ParentStmt }
func (s *stmtBase) ResultSet() *Set { return s.Result }

// A SelectStmt is a compiled SELECT or FOR statement.
type SelectStmt struct {
	stmtBase
	Where   *Set
	OrderBy []*SortExpr
	Offset  *Set
	Limit   *Set

	// IteratorStmt is the compiled FOR iterator, if any.
	IteratorStmt *Set
}

// A GroupStmt is a compiled GROUP statement.
type GroupStmt struct {
	stmtBase
	Subject *Set
	GroupBy []*Set

	// GroupPathID identifies the synthetic grouping type.
	GroupPathID PathId
}

// An InsertStmt is a compiled INSERT statement.
type InsertStmt struct {
	stmtBase
	Subject *Set
}

// An UpdateStmt is a compiled UPDATE statement.
type UpdateStmt struct {
	stmtBase
	Subject *Set
	Where   *Set
}

// A DeleteStmt is a compiled DELETE statement.
type DeleteStmt struct {
	stmtBase
	Subject *Set
	Where   *Set
}

// A BinOp is a scalar binary operation.
type BinOp struct {
	base
	Left  Expr
	Right Expr
	Op    token.Token
}

// A UnaryOp is a scalar unary operation.
type UnaryOp struct {
	base
	Expr Expr
	Op   token.Token
}

// A SetOp combines two statements with UNION semantics. Exclusive
// marks unions whose branches cannot both produce a row for the same
// binding (the IF/ELSE desugaring).
type SetOp struct {
	base
	Left      Expr
	Right     Expr
	Op        token.Token // token.UNION
	Exclusive bool
}

// A TypeRef names a type in the IR.
type TypeRef struct {
	base
	MainType string
	SubTypes []*TypeRef
}

// A TypeCast converts an expression to a named type.
type TypeCast struct {
	base
	Expr Expr
	Type *TypeRef
}

// A TypeFilter narrows a set to a subtype: `expr[IS T]`.
type TypeFilter struct {
	base
	PathID PathId
	Expr   *Set
	Type   *TypeRef
}

// A TupleElement is a single element of a Tuple.
type TupleElement struct {
	base
	Name string
	Val  *Set
}

// A Tuple is an ordered or named tuple constructor.
type Tuple struct {
	base
	Named    bool
	Elements []*TupleElement
}

// An Array is an array constructor.
type Array struct {
	base
	Elements []Expr
}

// A Mapping is a map constructor.
type Mapping struct {
	base
	Keys   []Expr
	Values []Expr
}

// A Constant is a literal value with its type. Numeric values are
// arbitrary-precision decimals; Value is nil for the typed null
// constant used in slice bounds.
type Constant struct {
	base
	Value interface{} // *apd.Decimal, string, bool, or nil
	Type  schema.Type
}

// Decimal returns the numeric value of the constant, or nil.
func (c *Constant) Decimal() *apd.Decimal {
	d, _ := c.Value.(*apd.Decimal)
	return d
}

// An EmptySet is the empty set literal.
type EmptySet struct {
	base
}

// A Parameter is a reference to an externally-supplied argument.
type Parameter struct {
	base
	Name string
	Type schema.Type
}

// An ExistPred tests a set for non-emptiness. Compiling `NOT EXISTS x`
// toggles Negated rather than wrapping the predicate.
type ExistPred struct {
	base
	Expr    Expr
	Negated bool
}

// A Coalesce is the `??` chain.
type Coalesce struct {
	base
	Args []Expr
}

// A FunctionCall is a dispatched call to a schema function.
type FunctionCall struct {
	base
	Func   *schema.Function
	Args   []Expr
	KwArgs map[string]Expr

	// InitialValue is the compiled initial value for aggregates.
	InitialValue Expr
}

// An IndexIndirection is `expr[i]`.
type IndexIndirection struct {
	base
	Expr  Expr
	Index Expr
}

// A SliceIndirection is `expr[a:b]`. Missing bounds are null
// constants.
type SliceIndirection struct {
	base
	Expr  Expr
	Start Expr
	Stop  Expr
}

// A TupleIndirection projects a single element out of a tuple-typed
// set.
type TupleIndirection struct {
	base
	Expr   *Set
	Name   string
	PathID PathId
}

// A Statement is the root of a compiled query: the top-level
// expression plus compilation-wide bookkeeping.
type Statement struct {
	base

	// Expr is the top-level result set.
	Expr *Set

	// Params maps parameter names to their types.
	Params map[string]schema.Type

	// Views lists the view types derived during compilation.
	Views map[string]schema.Type

	// Scope is the root of the scope-fence tree.
	Scope *ScopeFence
}

func (*Statement) irExpr() {}
