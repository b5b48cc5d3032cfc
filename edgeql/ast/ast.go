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

// Package ast declares the types used to represent syntax trees for
// EdgeQL queries and DDL.
package ast

import (
	"edgeql.org/go/edgeql/token"
)

// ----------------------------------------------------------------------------
// Interfaces
//
// There are three main classes of nodes: expressions, statements, and
// DDL nodes. Statements are themselves expressions: any statement can
// appear parenthesized in expression position.
//
// All nodes contain position information marking the beginning of the
// corresponding source text segment; it is accessible via the Pos
// accessor method. The End position is the position of the first
// character immediately after the node.

// A Node represents any node in the abstract syntax tree.
type Node interface {
	Pos() token.Pos // position of first character belonging to the node
	End() token.Pos // position of first character immediately after the node
}

// An Expr is implemented by all expression nodes.
type Expr interface {
	Node
	exprNode()
}

func (*BadExpr) exprNode()     {}
func (*Path) exprNode()        {}
func (*Constant) exprNode()    {}
func (*Parameter) exprNode()   {}
func (*BinExpr) exprNode()     {}
func (*UnaryExpr) exprNode()   {}
func (*IfElse) exprNode()      {}
func (*ExistsExpr) exprNode()  {}
func (*Coalesce) exprNode()    {}
func (*TypeCast) exprNode()    {}
func (*TypeFilter) exprNode()  {}
func (*Indirection) exprNode() {}
func (*TupleLit) exprNode()    {}
func (*NamedTupleLit) exprNode() {}
func (*ArrayLit) exprNode()    {}
func (*MappingLit) exprNode()  {}
func (*SetLit) exprNode()      {}
func (*FunctionCall) exprNode() {}
func (*Shape) exprNode()       {}
func (*ParenExpr) exprNode()   {}
func (*Ident) exprNode()       {}
func (*ClassRef) exprNode()    {}
func (*Ptr) exprNode()         {}
func (*TupleElement) exprNode() {}

// A Statement is implemented by all statement nodes. Statements double
// as expressions so they can be nested in parentheses.
type Statement interface {
	Expr
	stmtNode()

	// Bindings returns the statement's WITH block entries.
	Bindings() []Binding
}

func (*SelectQuery) exprNode()      {}
func (*ForQuery) exprNode()         {}
func (*GroupQuery) exprNode()       {}
func (*InsertQuery) exprNode()      {}
func (*UpdateQuery) exprNode()      {}
func (*DeleteQuery) exprNode()      {}
func (*SessionStateDecl) exprNode() {}

func (*SelectQuery) stmtNode()      {}
func (*ForQuery) stmtNode()         {}
func (*GroupQuery) stmtNode()       {}
func (*InsertQuery) stmtNode()      {}
func (*UpdateQuery) stmtNode()      {}
func (*DeleteQuery) stmtNode()      {}
func (*SessionStateDecl) stmtNode() {}

// A Binding is a single WITH-block entry: a module alias declaration
// or an aliased expression.
type Binding interface {
	Node
	bindingNode()
}

func (*ModuleAliasDecl) bindingNode() {}
func (*AliasedExpr) bindingNode()     {}

// A DDLCommand is implemented by subcommands appearing in braced DDL
// blocks.
type DDLCommand interface {
	Node
	ddlCommandNode()
}

func (*SetField) ddlCommandNode()       {}
func (*RenameTo) ddlCommandNode()       {}
func (*AlterAddBase) ddlCommandNode()   {}
func (*AlterDropBase) ddlCommandNode()  {}
func (*CreateObject) ddlCommandNode()   {}
func (*AlterObject) ddlCommandNode()    {}
func (*DropObject) ddlCommandNode()     {}
func (*CreateFunction) ddlCommandNode() {}

// ----------------------------------------------------------------------------
// Identifiers and references

// An Ident node represents an identifier.
type Ident struct {
	NamePos token.Pos
	Name    string
}

// A ClassRef is a possibly module-qualified reference to a schema
// class: `module::name` or `name`.
type ClassRef struct {
	NamePos token.Pos
	Module  string // or ""
	Name    string
}

// String returns the source form of the reference.
func (x *ClassRef) String() string {
	if x.Module != "" {
		return x.Module + "::" + x.Name
	}
	return x.Name
}

// ----------------------------------------------------------------------------
// Expressions

// A BadExpr node is a placeholder for expressions containing syntax
// errors for which no correct expression nodes can be created.
type BadExpr struct {
	From, To token.Pos
}

// A Constant node represents a literal of basic type.
type Constant struct {
	ValuePos token.Pos
	Kind     token.Token // INT, FLOAT, STRING, TRUE, or FALSE
	Value    string      // literal string; e.g. 42, 3.14, 'foo'
}

// A Parameter node represents a query parameter reference `$name`.
type Parameter struct {
	DollarPos token.Pos
	Name      string // without the leading '$'
}

// PtrKind discriminates the flavor of a pointer step.
type PtrKind int

const (
	// PtrLink is an ordinary link or property step.
	PtrLink PtrKind = iota
	// PtrProperty is a link-property step (`@prop`).
	PtrProperty
	// PtrTupleField is a tuple-field indirection step (`.0`, `.name`).
	PtrTupleField
)

// PtrDirection is the traversal direction of a pointer step.
type PtrDirection string

const (
	Outbound PtrDirection = ">"
	Inbound  PtrDirection = "<"
)

// A Ptr is a single pointer-traversal step in a path.
type Ptr struct {
	OpPos     token.Pos // position of '.', '.>', '.<', or '@'
	Ptr       *ClassRef
	Direction PtrDirection
	Kind      PtrKind
	Target    *ClassRef // [IS Target], or nil
	TargetEnd token.Pos // position just after ']' if Target != nil
}

// A Path represents a pointer-traversal expression. It has at least
// one step: the first step is an anchor, a class reference, or an
// arbitrary expression, and only the first step may be a type
// reference. All subsequent steps are *Ptr nodes.
type Path struct {
	Steps   []Expr
	Partial bool // leading-dot path: `.name`
	DotPos  token.Pos // position of the leading dot for partial paths
}

// A BinExpr node represents a binary expression.
type BinExpr struct {
	Left  Expr
	OpPos token.Pos
	Op    token.Token
	Right Expr
}

// A UnaryExpr node represents a unary expression.
type UnaryExpr struct {
	OpPos   token.Pos
	Op      token.Token // ADD, SUB, NOT, or DISTINCT
	Operand Expr
}

// An IfElse node represents `ifExpr IF condition ELSE elseExpr`.
// Chained forms are right-associative: the ELSE branch of
// `a IF c1 ELSE b IF c2 ELSE c` is itself an IfElse.
type IfElse struct {
	IfExpr    Expr
	IfPos     token.Pos
	Condition Expr
	ElsePos   token.Pos
	ElseExpr  Expr
}

// An ExistsExpr node represents an EXISTS predicate.
type ExistsExpr struct {
	ExistsPos token.Pos
	Expr      Expr
}

// A Coalesce node represents a `??` chain.
type Coalesce struct {
	Args []Expr // len(Args) >= 2
}

// A TypeName is a reference to a type, possibly parameterized:
// `array<int>`, `map<str, int>`, `tuple<str, int>`.
type TypeName struct {
	MainType *ClassRef
	LAngle   token.Pos // position of '<', if any
	SubTypes []*TypeName
	RAngle   token.Pos // position of '>', if any
}

// A TypeCast node represents `<Type> expr`.
type TypeCast struct {
	LAngle token.Pos
	Type   *TypeName
	Expr   Expr
}

// A TypeFilter node represents `expr[IS Type]`.
type TypeFilter struct {
	Expr   Expr
	LBrack token.Pos
	Type   *ClassRef
	RBrack token.Pos
}

// An IndirectionElem is an element of an Indirection: an index or a
// slice.
type IndirectionElem interface {
	Node
	indirectionNode()
}

func (*Index) indirectionNode() {}
func (*Slice) indirectionNode() {}

// An Index node represents `[expr]`.
type Index struct {
	LBrack token.Pos
	Expr   Expr
	RBrack token.Pos
}

// A Slice node represents `[start:stop]` with optional bounds.
type Slice struct {
	LBrack token.Pos
	Start  Expr // or nil
	Stop   Expr // or nil
	RBrack token.Pos
}

// An Indirection node represents one or more index or slice operations
// applied to an expression.
type Indirection struct {
	Arg      Expr
	Elements []IndirectionElem // len >= 1
}

// A TupleElement is a named element of a named tuple literal.
type TupleElement struct {
	Name    *Ident
	Assign  token.Pos // position of ":="
	Val     Expr
}

// A TupleLit node represents `(e1, e2, ...)` with at least one comma.
type TupleLit struct {
	LParen   token.Pos
	Elements []Expr
	RParen   token.Pos
}

// A NamedTupleLit node represents `(name := e, ...)`.
type NamedTupleLit struct {
	LParen   token.Pos
	Elements []*TupleElement
	RParen   token.Pos
}

// An ArrayLit node represents `[e1, e2, ...]`.
type ArrayLit struct {
	LBrack   token.Pos
	Elements []Expr
	RBrack   token.Pos
}

// A MappingElement is a `key -> value` pair in a mapping literal.
type MappingElement struct {
	Key   Expr
	Arrow token.Pos
	Value Expr
}

// A MappingLit node represents `[k1 -> v1, k2 -> v2, ...]`.
type MappingLit struct {
	LBrack   token.Pos
	Elements []*MappingElement
	RBrack   token.Pos
}

// A SetLit node represents a set literal `{e1, e2, ...}`; `{}` is the
// empty set.
type SetLit struct {
	LBrace   token.Pos
	Elements []Expr
	RBrace   token.Pos
}

// A ParenExpr node represents a parenthesized expression.
type ParenExpr struct {
	LParen token.Pos
	X      Expr
	RParen token.Pos
}

// A FuncArg is a single argument of a function call, with optional
// aggregate modifiers.
type FuncArg struct {
	Name   *Ident // named-only argument, or nil
	Assign token.Pos
	Expr   Expr
	Filter Expr        // aggregate FILTER clause, or nil
	Sort   []*SortExpr // aggregate ORDER BY clause, or nil
}

// A FunctionCall node represents `func(args...)`.
type FunctionCall struct {
	Func   *ClassRef
	LParen token.Pos
	Args   []*FuncArg
	RParen token.Pos
}

// A ShapeElement describes one element of a shape: a pointer to
// include, possibly with a computable, nested shape, or trailing
// clauses.
type ShapeElement struct {
	Expr     *Path // the pointer spec; at most two steps
	Required bool

	// Computable: `ptr := expr`.
	Assign   token.Pos
	CompExpr Expr

	// Nested shape.
	Elements []*ShapeElement
	RBrace   token.Pos // position of '}' for nested shapes

	// Clauses.
	Where   Expr
	OrderBy []*SortExpr
	Offset  Expr
	Limit   Expr

	// Recursion marker `*` with an optional depth limit.
	Recurse      bool
	RecurseLimit Expr

	EndPos token.Pos
}

// A Shape node represents `expr { elements }`.
type Shape struct {
	Expr     Expr // the shaped subject; nil for pure sub-shapes
	LBrace   token.Pos
	Elements []*ShapeElement
	RBrace   token.Pos
}

// NonesOrder specifies where empty values sort.
type NonesOrder string

const (
	NonesDefault NonesOrder = ""
	NonesFirst   NonesOrder = "first"
	NonesLast    NonesOrder = "last"
)

// SortDirection is an ORDER BY direction.
type SortDirection string

const (
	SortDefault SortDirection = ""
	SortAsc     SortDirection = "ASC"
	SortDesc    SortDirection = "DESC"
)

// A SortExpr is a single ORDER BY item.
type SortExpr struct {
	Path       Expr
	Direction  SortDirection
	NonesOrder NonesOrder
	EndPos     token.Pos
}

// A ModuleAliasDecl declares a module alias in a WITH block:
// `WITH MODULE foo` or `WITH bar AS MODULE foo`.
type ModuleAliasDecl struct {
	DeclPos token.Pos
	Alias   string // or "" for the default module
	Module  string
	EndPos  token.Pos
}

// An AliasedExpr binds an expression to a name in a WITH block:
// `WITH a := expr`.
type AliasedExpr struct {
	Alias  *Ident
	Assign token.Pos
	Expr   Expr
}

// ----------------------------------------------------------------------------
// Statements

type WithBlock struct {
	With    token.Pos
	Aliases []Binding

	// Cardinality is the declared statement cardinality from
	// `WITH CARDINALITY '...'`, or "".
	Cardinality string
}

func (w *WithBlock) Bindings() []Binding { return w.Aliases }

// A SelectQuery node represents a SELECT statement.
type SelectQuery struct {
	WithBlock
	Select      token.Pos
	Result      Expr
	ResultAlias string
	Where       Expr
	OrderBy     []*SortExpr
	Offset      Expr
	Limit       Expr
	EndPos      token.Pos

	// Implicit is set when a bare expression was wrapped into a
	// SELECT by the parser.
	Implicit bool
}

// A ForQuery node represents `FOR x IN {set} UNION result`.
type ForQuery struct {
	WithBlock
	For           token.Pos
	IteratorAlias *Ident
	Iterator      Expr
	Union         token.Pos
	Result        Expr
	ResultAlias   string
	Where         Expr
	OrderBy       []*SortExpr
	Offset        Expr
	Limit         Expr
	EndPos        token.Pos
}

// A GroupQuery node represents
// `GROUP subject USING aliases BY exprs INTO alias UNION result`.
type GroupQuery struct {
	WithBlock
	Group        token.Pos
	Subject      Expr
	SubjectAlias string
	Using        []*AliasedExpr
	By           []Expr
	Into         *Ident
	Result       Expr
	ResultAlias  string
	Where        Expr
	OrderBy      []*SortExpr
	Offset       Expr
	Limit        Expr
	EndPos       token.Pos
}

// An InsertQuery node represents an INSERT statement.
type InsertQuery struct {
	WithBlock
	Insert       token.Pos
	Subject      Expr
	SubjectAlias string
	Shape        []*ShapeElement
	EndPos       token.Pos
}

// An UpdateQuery node represents an UPDATE statement.
type UpdateQuery struct {
	WithBlock
	Update       token.Pos
	Subject      Expr
	SubjectAlias string
	Shape        []*ShapeElement
	Where        Expr
	EndPos       token.Pos
}

// A DeleteQuery node represents a DELETE statement.
type DeleteQuery struct {
	WithBlock
	Delete       token.Pos
	Subject      Expr
	SubjectAlias string
	EndPos       token.Pos
}

// A SessionStateDecl represents `SET MODULE ...` / `SET alias := ...`.
type SessionStateDecl struct {
	WithBlock
	Set    token.Pos
	Items  []Binding
	EndPos token.Pos
}

// ----------------------------------------------------------------------------
// DDL

// ObjectClass enumerates the schema object classes addressable by DDL.
type ObjectClass int

const (
	DatabaseClass ObjectClass = iota
	ModuleClass
	MigrationClass
	ActionClass
	ScalarTypeClass
	AttributeClass
	ConceptClass // TYPE
	ViewClass
	ConstraintClass
	LinkClass
	LinkPropertyClass
	EventClass
	FunctionClass
)

var objectClassNames = [...]string{
	DatabaseClass:     "DATABASE",
	ModuleClass:       "MODULE",
	MigrationClass:    "MIGRATION",
	ActionClass:       "ACTION",
	ScalarTypeClass:   "SCALAR TYPE",
	AttributeClass:    "ATTRIBUTE",
	ConceptClass:      "TYPE",
	ViewClass:         "VIEW",
	ConstraintClass:   "CONSTRAINT",
	LinkClass:         "LINK",
	LinkPropertyClass: "LINK PROPERTY",
	EventClass:        "EVENT",
	FunctionClass:     "FUNCTION",
}

func (c ObjectClass) String() string {
	if 0 <= int(c) && int(c) < len(objectClassNames) {
		return objectClassNames[c]
	}
	return "OBJECT"
}

// Language enumerates the source languages accepted in
// `FROM <language>` DDL clauses.
type Language string

const (
	LangSQL     Language = "SQL"
	LangEdgeQL  Language = "EDGEQL"
	LangPython  Language = "PYTHON"
	LangESchema Language = "ESCHEMA" // migrations only
)

// A DDL is implemented by all DDL statement nodes.
type DDL interface {
	Expr
	stmtNode()
	ddlNode()
}

func (*CreateObject) exprNode()   {}
func (*AlterObject) exprNode()    {}
func (*DropObject) exprNode()     {}
func (*CreateFunction) exprNode() {}

func (*CreateObject) stmtNode()   {}
func (*AlterObject) stmtNode()    {}
func (*DropObject) stmtNode()     {}
func (*CreateFunction) stmtNode() {}

func (*CreateObject) ddlNode()   {}
func (*AlterObject) ddlNode()    {}
func (*DropObject) ddlNode()     {}
func (*CreateFunction) ddlNode() {}

// A CreateObject node represents a CREATE statement for any object
// class except functions.
type CreateObject struct {
	WithBlock
	Create   token.Pos
	Class    ObjectClass
	Name     *ClassRef
	Abstract bool
	Final    bool
	Bases    []*ClassRef // INHERITING (a, b)

	// Migrations: `CREATE MIGRATION name TO <language> <code>`.
	Language Language
	Code     string

	Commands []DDLCommand
	EndPos   token.Pos
}

// An AlterObject node represents an ALTER statement: a sequence of
// subcommands in a braced block.
type AlterObject struct {
	WithBlock
	Alter    token.Pos
	Class    ObjectClass
	Name     *ClassRef
	Commands []DDLCommand
	EndPos   token.Pos
}

// A DropObject node represents a DROP statement.
type DropObject struct {
	WithBlock
	Drop     token.Pos
	Class    ObjectClass
	Name     *ClassRef
	Commands []DDLCommand
	EndPos   token.Pos
}

// ParamKind classifies a function parameter.
type ParamKind int

const (
	ParamDefault ParamKind = iota
	ParamOptional
	ParamVariadic
	ParamSetOf
)

func (k ParamKind) String() string {
	switch k {
	case ParamOptional:
		return "OPTIONAL"
	case ParamVariadic:
		return "VARIADIC"
	case ParamSetOf:
		return "SET OF"
	}
	return ""
}

// A FuncParam is a single parameter declaration of CREATE FUNCTION.
type FuncParam struct {
	NamePos token.Pos
	Name    string
	Kind    ParamKind
	Type    *TypeName
	Default Expr // or nil
}

// A FunctionCode carries the implementation clause of CREATE FUNCTION.
type FunctionCode struct {
	FromPos  token.Pos
	Language Language
	Code     string // inline code, or ""
	FromName string // FROM <language> FUNCTION <name> form, or ""
}

// A CreateFunction node represents a CREATE [AGGREGATE] FUNCTION
// statement.
type CreateFunction struct {
	WithBlock
	Create       token.Pos
	Name         *ClassRef
	Params       []*FuncParam
	Returns      *TypeName
	SetOfReturn  bool
	Aggregate    bool
	InitialValue Expr
	Code         *FunctionCode
	Commands     []DDLCommand
	EndPos       token.Pos
}

// A SetField subcommand sets an attribute or field:
// `SET name := value`.
type SetField struct {
	SetPos token.Pos
	Name   *ClassRef
	Value  Expr
}

// A RenameTo subcommand renames an object.
type RenameTo struct {
	RenamePos token.Pos
	NewName   *ClassRef
}

// An AlterAddBase subcommand extends the inheritance list.
type AlterAddBase struct {
	AddPos token.Pos
	Bases  []*ClassRef
	EndPos token.Pos
}

// An AlterDropBase subcommand shrinks the inheritance list.
type AlterDropBase struct {
	DropPos token.Pos
	Bases   []*ClassRef
	EndPos  token.Pos
}

// ----------------------------------------------------------------------------
// Pos and End implementations

func (x *Ident) Pos() token.Pos    { return x.NamePos }
func (x *Ident) End() token.Pos    { return x.NamePos.Add(len(x.Name)) }
func (x *ClassRef) Pos() token.Pos { return x.NamePos }
func (x *ClassRef) End() token.Pos { return x.NamePos.Add(len(x.String())) }

func (x *BadExpr) Pos() token.Pos   { return x.From }
func (x *BadExpr) End() token.Pos   { return x.To }
func (x *Constant) Pos() token.Pos  { return x.ValuePos }
func (x *Constant) End() token.Pos  { return x.ValuePos.Add(len(x.Value)) }
func (x *Parameter) Pos() token.Pos { return x.DollarPos }
func (x *Parameter) End() token.Pos { return x.DollarPos.Add(len(x.Name) + 1) }

func (x *Ptr) Pos() token.Pos { return x.OpPos }
func (x *Ptr) End() token.Pos {
	if x.Target != nil {
		return x.TargetEnd
	}
	return x.Ptr.End()
}

func (x *Path) Pos() token.Pos {
	if x.Partial {
		return x.DotPos
	}
	return x.Steps[0].Pos()
}
func (x *Path) End() token.Pos { return x.Steps[len(x.Steps)-1].End() }

func (x *BinExpr) Pos() token.Pos   { return x.Left.Pos() }
func (x *BinExpr) End() token.Pos   { return x.Right.End() }
func (x *UnaryExpr) Pos() token.Pos { return x.OpPos }
func (x *UnaryExpr) End() token.Pos { return x.Operand.End() }

func (x *IfElse) Pos() token.Pos { return x.IfExpr.Pos() }
func (x *IfElse) End() token.Pos { return x.ElseExpr.End() }

func (x *ExistsExpr) Pos() token.Pos { return x.ExistsPos }
func (x *ExistsExpr) End() token.Pos { return x.Expr.End() }

func (x *Coalesce) Pos() token.Pos { return x.Args[0].Pos() }
func (x *Coalesce) End() token.Pos { return x.Args[len(x.Args)-1].End() }

func (x *TypeName) Pos() token.Pos { return x.MainType.Pos() }
func (x *TypeName) End() token.Pos {
	if x.RAngle.IsValid() {
		return x.RAngle.Add(1)
	}
	return x.MainType.End()
}

func (x *TypeCast) Pos() token.Pos   { return x.LAngle }
func (x *TypeCast) End() token.Pos   { return x.Expr.End() }
func (x *TypeFilter) Pos() token.Pos { return x.Expr.Pos() }
func (x *TypeFilter) End() token.Pos { return x.RBrack.Add(1) }

func (x *Index) Pos() token.Pos       { return x.LBrack }
func (x *Index) End() token.Pos       { return x.RBrack.Add(1) }
func (x *Slice) Pos() token.Pos       { return x.LBrack }
func (x *Slice) End() token.Pos       { return x.RBrack.Add(1) }
func (x *Indirection) Pos() token.Pos { return x.Arg.Pos() }
func (x *Indirection) End() token.Pos { return x.Elements[len(x.Elements)-1].End() }

func (x *TupleElement) Pos() token.Pos  { return x.Name.Pos() }
func (x *TupleElement) End() token.Pos  { return x.Val.End() }
func (x *TupleLit) Pos() token.Pos      { return x.LParen }
func (x *TupleLit) End() token.Pos      { return x.RParen.Add(1) }
func (x *NamedTupleLit) Pos() token.Pos { return x.LParen }
func (x *NamedTupleLit) End() token.Pos { return x.RParen.Add(1) }
func (x *ArrayLit) Pos() token.Pos      { return x.LBrack }
func (x *ArrayLit) End() token.Pos      { return x.RBrack.Add(1) }

func (x *MappingElement) Pos() token.Pos { return x.Key.Pos() }
func (x *MappingElement) End() token.Pos { return x.Value.End() }
func (x *MappingLit) Pos() token.Pos     { return x.LBrack }
func (x *MappingLit) End() token.Pos     { return x.RBrack.Add(1) }

func (x *SetLit) Pos() token.Pos    { return x.LBrace }
func (x *SetLit) End() token.Pos    { return x.RBrace.Add(1) }
func (x *ParenExpr) Pos() token.Pos { return x.LParen }
func (x *ParenExpr) End() token.Pos { return x.RParen.Add(1) }

func (x *FuncArg) Pos() token.Pos {
	if x.Name != nil {
		return x.Name.Pos()
	}
	return x.Expr.Pos()
}
func (x *FuncArg) End() token.Pos {
	if n := len(x.Sort); n > 0 {
		return x.Sort[n-1].End()
	}
	if x.Filter != nil {
		return x.Filter.End()
	}
	return x.Expr.End()
}

func (x *FunctionCall) Pos() token.Pos { return x.Func.Pos() }
func (x *FunctionCall) End() token.Pos { return x.RParen.Add(1) }

func (x *ShapeElement) Pos() token.Pos { return x.Expr.Pos() }
func (x *ShapeElement) End() token.Pos {
	if x.EndPos.IsValid() {
		return x.EndPos
	}
	return x.Expr.End()
}

func (x *Shape) Pos() token.Pos {
	if x.Expr != nil {
		return x.Expr.Pos()
	}
	return x.LBrace
}
func (x *Shape) End() token.Pos { return x.RBrace.Add(1) }

func (x *SortExpr) Pos() token.Pos { return x.Path.Pos() }
func (x *SortExpr) End() token.Pos {
	if x.EndPos.IsValid() {
		return x.EndPos
	}
	return x.Path.End()
}

func (x *ModuleAliasDecl) Pos() token.Pos { return x.DeclPos }
func (x *ModuleAliasDecl) End() token.Pos { return x.EndPos }
func (x *AliasedExpr) Pos() token.Pos     { return x.Alias.Pos() }
func (x *AliasedExpr) End() token.Pos     { return x.Expr.End() }

func (x *SelectQuery) Pos() token.Pos {
	if x.With.IsValid() {
		return x.With
	}
	if x.Implicit {
		return x.Result.Pos()
	}
	return x.Select
}
func (x *SelectQuery) End() token.Pos {
	if x.EndPos.IsValid() {
		return x.EndPos
	}
	return x.Result.End()
}

func (x *ForQuery) Pos() token.Pos {
	if x.With.IsValid() {
		return x.With
	}
	return x.For
}
func (x *ForQuery) End() token.Pos { return x.EndPos }

func (x *GroupQuery) Pos() token.Pos {
	if x.With.IsValid() {
		return x.With
	}
	return x.Group
}
func (x *GroupQuery) End() token.Pos { return x.EndPos }

func (x *InsertQuery) Pos() token.Pos {
	if x.With.IsValid() {
		return x.With
	}
	return x.Insert
}
func (x *InsertQuery) End() token.Pos { return x.EndPos }

func (x *UpdateQuery) Pos() token.Pos {
	if x.With.IsValid() {
		return x.With
	}
	return x.Update
}
func (x *UpdateQuery) End() token.Pos { return x.EndPos }

func (x *DeleteQuery) Pos() token.Pos {
	if x.With.IsValid() {
		return x.With
	}
	return x.Delete
}
func (x *DeleteQuery) End() token.Pos { return x.EndPos }

func (x *SessionStateDecl) Pos() token.Pos { return x.Set }
func (x *SessionStateDecl) End() token.Pos { return x.EndPos }

func (x *CreateObject) Pos() token.Pos { return x.Create }
func (x *CreateObject) End() token.Pos { return x.EndPos }
func (x *AlterObject) Pos() token.Pos  { return x.Alter }
func (x *AlterObject) End() token.Pos  { return x.EndPos }
func (x *DropObject) Pos() token.Pos   { return x.Drop }
func (x *DropObject) End() token.Pos   { return x.EndPos }

func (x *FuncParam) Pos() token.Pos { return x.NamePos }
func (x *FuncParam) End() token.Pos {
	if x.Default != nil {
		return x.Default.End()
	}
	return x.Type.End()
}

func (x *FunctionCode) Pos() token.Pos { return x.FromPos }
func (x *FunctionCode) End() token.Pos {
	return x.FromPos.Add(len(x.Code) + len(x.FromName))
}

func (x *CreateFunction) Pos() token.Pos { return x.Create }
func (x *CreateFunction) End() token.Pos { return x.EndPos }

func (x *SetField) Pos() token.Pos { return x.SetPos }
func (x *SetField) End() token.Pos { return x.Value.End() }

func (x *RenameTo) Pos() token.Pos { return x.RenamePos }
func (x *RenameTo) End() token.Pos { return x.NewName.End() }

func (x *AlterAddBase) Pos() token.Pos  { return x.AddPos }
func (x *AlterAddBase) End() token.Pos  { return x.EndPos }
func (x *AlterDropBase) Pos() token.Pos { return x.DropPos }
func (x *AlterDropBase) End() token.Pos { return x.EndPos }

// ----------------------------------------------------------------------------
// Convenience functions

// NewIdent creates a new Ident without position.
func NewIdent(name string) *Ident {
	return &Ident{token.NoPos, name}
}

// NewClassRef creates a new ClassRef without position.
func NewClassRef(module, name string) *ClassRef {
	return &ClassRef{token.NoPos, module, name}
}

func (id *Ident) String() string {
	if id != nil {
		return id.Name
	}
	return "<nil>"
}

// IsStatement reports whether x is a statement node.
func IsStatement(x Expr) bool {
	_, ok := x.(Statement)
	return ok
}
