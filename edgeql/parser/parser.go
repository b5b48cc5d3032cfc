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

// Package parser implements a parser for EdgeQL source text. Input is
// provided as a string and the output is an abstract syntax tree
// representing the EdgeQL source. The parser is invoked through one of
// the Parse* functions in this package.
package parser

import (
	"fmt"
	"strings"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/scanner"
	"edgeql.org/go/edgeql/token"
)

// The parser structure holds the parser's internal state.
type parser struct {
	file    *token.File
	errors  errors.List
	scanner scanner.Scanner

	// Tracing/debugging
	mode      mode // parsing mode
	trace     bool // == (mode & traceMode != 0)
	panicking bool // set if we are bailing out due to too many errors.
	indent    int  // indentation used for tracing output

	// Next token
	pos token.Pos   // token position
	tok token.Token // one token look-ahead
	lit string      // token literal

	// Error recovery
	syncPos token.Pos // last synchronization position
	syncCnt int       // number of calls to sync without progress

	modAliases map[string]string

	// pendingLBrack carries a '[' consumed during path-step parsing
	// over to the indirection parser.
	pendingLBrack token.Pos
}

func (p *parser) init(filename string, src []byte, options []Option) {
	p.file = token.NewFile(filename, len(src))
	for _, f := range options {
		f(p)
	}
	eh := func(pos token.Pos, msg string, args ...interface{}) {
		p.errors.AddNewf(pos, msg, args...)
	}
	p.scanner.Init(p.file, src, eh, 0)

	p.trace = p.mode&traceMode != 0

	p.next()
}

// ----------------------------------------------------------------------------
// Parsing support

func (p *parser) printTrace(a ...interface{}) {
	const dots = ". . . . . . . . . . . . . . . . . . . . . . . . . . . . . . . . "
	const n = len(dots)
	pos := p.pos.Position()
	fmt.Printf("%5d:%3d: ", pos.Line, pos.Column)
	i := 2 * p.indent
	for i > n {
		fmt.Print(dots)
		i -= n
	}
	// i <= n
	fmt.Print(dots[0:i])
	fmt.Println(a...)
}

func trace(p *parser, msg string) *parser {
	p.printTrace(msg, "(")
	p.indent++
	return p
}

// Usage pattern: defer un(trace(p, "..."))
func un(p *parser) {
	p.indent--
	p.printTrace(")")
}

// Advance to the next token.
func (p *parser) next() {
	if p.trace && p.pos.IsValid() {
		s := p.tok.String()
		switch {
		case p.tok.IsLiteral():
			p.printTrace(s, p.lit)
		case p.tok.IsOperator(), p.tok.IsKeyword():
			p.printTrace("\"" + s + "\"")
		default:
			p.printTrace(s)
		}
	}

	for {
		p.pos, p.tok, p.lit = p.scanner.Scan()
		if p.tok != token.COMMENT {
			break
		}
	}
}

func (p *parser) errf(pos token.Pos, msg string, args ...interface{}) {
	// If AllErrors is not set, discard errors reported on the same line
	// as the last recorded error and stop parsing if there are more
	// than 10 errors.
	if p.mode&allErrorsMode == 0 {
		n := len(p.errors)
		if n > 0 && p.errors[n-1].Position().Line() == pos.Line() {
			return // discard - likely a spurious error
		}
		if n > 10 {
			p.panicking = true
		}
	}

	p.errors.AddNewf(pos, msg, args...)
}

func (p *parser) errorExpected(pos token.Pos, obj string) {
	if pos != p.pos {
		p.errf(pos, "expected %s", obj)
		return
	}
	// the error happened at the current position;
	// make the error message more specific
	if p.tok.IsLiteral() {
		p.errf(pos, "expected %s, found '%s'", obj, p.lit)
	} else {
		p.errf(pos, "expected %s, found '%s'", obj, p.tok)
	}
}

func (p *parser) expect(alt ...token.Token) token.Pos {
	pos := p.pos
	for _, tok := range alt {
		if p.tok == tok {
			if p.tok != token.EOF {
				p.next() // make progress
			}
			return pos
		}
	}
	p.errorExpected(pos, "'"+alt[0].String()+"'")
	if p.tok != token.EOF {
		p.next() // make progress
	}
	return pos
}

// sync advances to the next statement boundary.
// Used for synchronization after an error.
func (p *parser) sync() {
	for {
		switch p.tok {
		case token.SEMICOLON:
			// Return only if parser made some progress since last
			// sync or if it has not reached 10 sync calls without
			// progress. Otherwise consume at least one token to
			// avoid an endless parser loop.
			if p.pos == p.syncPos && p.syncCnt < 10 {
				p.syncCnt++
				return
			}
			if p.syncPos.Before(p.pos) {
				p.syncPos = p.pos
				p.syncCnt = 0
				return
			}
		case token.EOF:
			return
		}
		p.next()
	}
}

// ----------------------------------------------------------------------------
// Identifiers

// isIdent reports whether the current token can act as a plain
// identifier. Unreserved keywords double as identifiers.
func (p *parser) isIdent() bool {
	return p.tok == token.IDENT || p.tok.IsUnreserved()
}

func (p *parser) parseIdent() *ast.Ident {
	pos := p.pos
	name := "_"
	if p.isIdent() {
		name = p.lit
		p.next()
	} else {
		p.expect(token.IDENT) // use expect() error handling
	}
	return &ast.Ident{NamePos: pos, Name: name}
}

// parseModuleName parses a possibly dotted module name: `std`,
// `lib.extra`.
func (p *parser) parseModuleName() string {
	var b strings.Builder
	b.WriteString(p.parseIdent().Name)
	for p.tok == token.PERIOD {
		p.next()
		b.WriteByte('.')
		b.WriteString(p.parseIdent().Name)
	}
	return b.String()
}

// parseClassRef parses `name` or `module::name`.
func (p *parser) parseClassRef() *ast.ClassRef {
	pos := p.pos
	first := p.parseIdent()
	if p.tok != token.DOUBLECOLON {
		return &ast.ClassRef{NamePos: pos, Name: first.Name}
	}
	p.next()
	module := first.Name
	for p.tok == token.PERIOD {
		// A PERIOD directly after `::` extends the module name. A
		// dotted module written before `::` (`lib.extra::Obj`) is not
		// read here: `lib` ends the reference and `.extra` is a path step.
		p.next()
		module += "." + p.parseIdent().Name
	}
	name := p.parseIdent()
	return &ast.ClassRef{NamePos: pos, Module: module, Name: name.Name}
}

// ----------------------------------------------------------------------------
// Expressions

// parseOperand returns an operand expression.
// Callers must verify the result.
func (p *parser) parseOperand() (expr ast.Expr) {
	if p.trace {
		defer un(trace(p, "Operand"))
	}

	switch {
	case p.isIdent():
		return p.parseNameStart()

	case p.tok == token.INT, p.tok == token.FLOAT, p.tok == token.STRING,
		p.tok == token.TRUE, p.tok == token.FALSE:
		x := &ast.Constant{ValuePos: p.pos, Kind: p.tok, Value: p.lit}
		p.next()
		return x

	case p.tok == token.ARGUMENT:
		x := &ast.Parameter{DollarPos: p.pos, Name: p.lit[1:]}
		p.next()
		return x

	case p.tok == token.PERIOD, p.tok == token.DOTFW, p.tok == token.DOTBW,
		p.tok == token.AT:
		// Partial path: `.name`, `.<name`, `@prop`.
		return p.parsePartialPath()

	case p.tok == token.LPAREN:
		return p.parseParenOrTuple()

	case p.tok == token.LBRACK:
		return p.parseArrayOrMapping()

	case p.tok == token.LBRACE:
		return p.parseSetLit()

	case p.tok == token.LSS:
		return p.parseTypeCast()

	case p.tok == token.EXISTS:
		pos := p.pos
		p.next()
		return &ast.ExistsExpr{ExistsPos: pos, Expr: p.parseUnaryExpr()}

	case p.tok == token.DISTINCT:
		pos := p.pos
		p.next()
		return &ast.UnaryExpr{OpPos: pos, Op: token.DISTINCT, Operand: p.parseBinaryExpr(token.UnionPrec + 1)}

	case p.tok.IsKeyword() && isStatementKeyword(p.tok):
		// Nested statements appear parenthesized; tolerate the bare
		// form here so error recovery can proceed.
		return p.parseStatementOrExpr()
	}

	// we have an error
	pos := p.pos
	p.errorExpected(pos, "operand")
	p.sync()
	return &ast.BadExpr{From: pos, To: p.pos}
}

func isStatementKeyword(tok token.Token) bool {
	switch tok {
	case token.WITH, token.SELECT, token.FOR, token.GROUP,
		token.INSERT, token.UPDATE, token.DELETE, token.SET,
		token.CREATE, token.ALTER, token.DROP:
		return true
	}
	return false
}

// parseNameStart parses an expression starting with an identifier:
// a function call, or a path rooted at a class reference.
func (p *parser) parseNameStart() ast.Expr {
	ref := p.parseClassRef()

	if p.tok == token.LPAREN {
		return p.parseCall(ref)
	}

	return &ast.Path{Steps: []ast.Expr{ref}}
}

func (p *parser) parseCall(fun *ast.ClassRef) ast.Expr {
	if p.trace {
		defer un(trace(p, "Call"))
	}

	lparen := p.expect(token.LPAREN)
	var args []*ast.FuncArg
	for p.tok != token.RPAREN && p.tok != token.EOF {
		args = append(args, p.parseCallArg())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	rparen := p.expect(token.RPAREN)

	return &ast.FunctionCall{
		Func:   fun,
		LParen: lparen,
		Args:   args,
		RParen: rparen,
	}
}

func (p *parser) parseCallArg() *ast.FuncArg {
	arg := &ast.FuncArg{}

	x := p.parseRHS()
	if p.tok == token.ASSIGN {
		if name, ok := bareName(x); ok {
			arg.Name = name
			arg.Assign = p.pos
			p.next()
			x = p.parseRHS()
		} else {
			p.errf(p.pos, "unexpected ':=' in argument list")
			p.next()
			x = p.parseRHS()
		}
	}
	arg.Expr = x

	// Aggregate argument modifiers.
	if p.tok == token.FILTER {
		p.next()
		arg.Filter = p.parseRHS()
	}
	if p.tok == token.ORDER {
		p.next()
		p.expect(token.BY)
		arg.Sort = p.parseSortList()
	}
	return arg
}

// bareName reports whether x is a bare, unqualified identifier path
// and returns it as an Ident.
func bareName(x ast.Expr) (*ast.Ident, bool) {
	path, ok := x.(*ast.Path)
	if !ok || path.Partial || len(path.Steps) != 1 {
		return nil, false
	}
	ref, ok := path.Steps[0].(*ast.ClassRef)
	if !ok || ref.Module != "" {
		return nil, false
	}
	return &ast.Ident{NamePos: ref.NamePos, Name: ref.Name}, true
}

func (p *parser) parsePartialPath() ast.Expr {
	dot := p.pos
	path := &ast.Path{Partial: true, DotPos: dot}
	p.appendPathSteps(path)
	if len(path.Steps) == 0 {
		p.errorExpected(dot, "path step")
		return &ast.BadExpr{From: dot, To: p.pos}
	}
	return path
}

// appendPathSteps consumes as many pointer steps as possible and
// appends them to path.
func (p *parser) appendPathSteps(path *ast.Path) {
	for {
		switch p.tok {
		case token.PERIOD, token.DOTFW, token.DOTBW:
			opPos := p.pos
			dir := ast.Outbound
			if p.tok == token.DOTBW {
				dir = ast.Inbound
			}
			p.next()
			p.appendPtrStep(path, opPos, dir, ast.PtrLink)

		case token.AT:
			opPos := p.pos
			p.next()
			name := p.parseIdent()
			path.Steps = append(path.Steps, &ast.Ptr{
				OpPos:     opPos,
				Ptr:       &ast.ClassRef{NamePos: name.NamePos, Name: name.Name},
				Direction: ast.Outbound,
				Kind:      ast.PtrProperty,
			})

		default:
			return
		}
	}
}

// appendPtrStep parses the step name after a dot operator. Integer and
// float tokens appear for tuple indexing: `.0` and the nested `.0.1`
// (scanned as the float `0.1`).
func (p *parser) appendPtrStep(path *ast.Path, opPos token.Pos, dir ast.PtrDirection, kind ast.PtrKind) {
	switch p.tok {
	case token.INT:
		path.Steps = append(path.Steps, &ast.Ptr{
			OpPos:     opPos,
			Ptr:       &ast.ClassRef{NamePos: p.pos, Name: p.lit},
			Direction: dir,
			Kind:      ast.PtrTupleField,
		})
		p.next()

	case token.FLOAT:
		// `.0.1` scans as the float literal `0.1`: split it into two
		// consecutive tuple-field steps.
		parts := strings.SplitN(p.lit, ".", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			p.errorExpected(p.pos, "path step")
			p.next()
			return
		}
		path.Steps = append(path.Steps,
			&ast.Ptr{
				OpPos:     opPos,
				Ptr:       &ast.ClassRef{NamePos: p.pos, Name: parts[0]},
				Direction: dir,
				Kind:      ast.PtrTupleField,
			},
			&ast.Ptr{
				OpPos:     p.pos.Add(len(parts[0])),
				Ptr:       &ast.ClassRef{NamePos: p.pos.Add(len(parts[0]) + 1), Name: parts[1]},
				Direction: dir,
				Kind:      ast.PtrTupleField,
			})
		p.next()

	default:
		ref := p.parseClassRef()
		step := &ast.Ptr{
			OpPos:     opPos,
			Ptr:       ref,
			Direction: dir,
			Kind:      kind,
		}
		if p.tok == token.LBRACK {
			// Optional `[IS Target]` type filter on the step.
			lbrack := p.pos
			p.next()
			if p.tok == token.IS {
				p.next()
				step.Target = p.parseClassRef()
				step.TargetEnd = p.expect(token.RBRACK).Add(1)
			} else {
				// Not a type filter; re-route through an Indirection
				// by letting the caller's primary-expression loop
				// handle the bracket.
				path.Steps = append(path.Steps, step)
				p.reinterpretBracket(lbrack)
				return
			}
		}
		path.Steps = append(path.Steps, step)
	}
}

// reinterpretBracket records that a '[' was consumed while looking for
// a type filter. The current token stream already sits inside the
// bracketed expression, so primary-expression parsing resumes there.
func (p *parser) reinterpretBracket(lbrack token.Pos) {
	p.pendingLBrack = lbrack
}

func (p *parser) parseParenOrTuple() ast.Expr {
	if p.trace {
		defer un(trace(p, "ParenOrTuple"))
	}

	lparen := p.expect(token.LPAREN)

	if p.tok == token.RPAREN {
		// `()` is not a valid expression.
		p.errorExpected(p.pos, "expression")
		rparen := p.expect(token.RPAREN)
		return &ast.BadExpr{From: lparen, To: rparen.Add(1)}
	}

	first := p.parseRHS()

	switch p.tok {
	case token.ASSIGN:
		// Named tuple: `(name := expr, ...)`.
		name, ok := bareName(first)
		if !ok {
			p.errorExpected(first.Pos(), "element name")
			name = ast.NewIdent("_")
		}
		nt := &ast.NamedTupleLit{LParen: lparen}
		assign := p.pos
		p.next()
		val := p.parseRHS()
		nt.Elements = append(nt.Elements, &ast.TupleElement{Name: name, Assign: assign, Val: val})
		for p.tok == token.COMMA {
			p.next()
			if p.tok == token.RPAREN {
				break
			}
			elName := p.parseIdent()
			elAssign := p.expect(token.ASSIGN)
			elVal := p.parseRHS()
			nt.Elements = append(nt.Elements, &ast.TupleElement{Name: elName, Assign: elAssign, Val: elVal})
		}
		nt.RParen = p.expect(token.RPAREN)
		return nt

	case token.COMMA:
		// Tuple: `(a, b)` or `(a,)`.
		tuple := &ast.TupleLit{LParen: lparen, Elements: []ast.Expr{first}}
		for p.tok == token.COMMA {
			p.next()
			if p.tok == token.RPAREN {
				break
			}
			tuple.Elements = append(tuple.Elements, p.parseRHS())
		}
		tuple.RParen = p.expect(token.RPAREN)
		return tuple
	}

	rparen := p.expect(token.RPAREN)
	return &ast.ParenExpr{LParen: lparen, X: first, RParen: rparen}
}

func (p *parser) parseArrayOrMapping() ast.Expr {
	if p.trace {
		defer un(trace(p, "ArrayOrMapping"))
	}

	lbrack := p.expect(token.LBRACK)

	if p.tok == token.RBRACK {
		rbrack := p.expect(token.RBRACK)
		return &ast.ArrayLit{LBrack: lbrack, RBrack: rbrack}
	}

	first := p.parseRHS()

	if p.tok == token.ARROW {
		// Mapping literal: `[k -> v, ...]`.
		m := &ast.MappingLit{LBrack: lbrack}
		arrow := p.pos
		p.next()
		val := p.parseRHS()
		m.Elements = append(m.Elements, &ast.MappingElement{Key: first, Arrow: arrow, Value: val})
		for p.tok == token.COMMA {
			p.next()
			if p.tok == token.RBRACK {
				break
			}
			k := p.parseRHS()
			a := p.expect(token.ARROW)
			v := p.parseRHS()
			m.Elements = append(m.Elements, &ast.MappingElement{Key: k, Arrow: a, Value: v})
		}
		m.RBrack = p.expect(token.RBRACK)
		return m
	}

	arr := &ast.ArrayLit{LBrack: lbrack, Elements: []ast.Expr{first}}
	for p.tok == token.COMMA {
		p.next()
		if p.tok == token.RBRACK {
			break
		}
		arr.Elements = append(arr.Elements, p.parseRHS())
	}
	arr.RBrack = p.expect(token.RBRACK)
	return arr
}

func (p *parser) parseSetLit() ast.Expr {
	if p.trace {
		defer un(trace(p, "SetLit"))
	}

	lbrace := p.expect(token.LBRACE)
	set := &ast.SetLit{LBrace: lbrace}
	for p.tok != token.RBRACE && p.tok != token.EOF {
		set.Elements = append(set.Elements, p.parseRHS())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	set.RBrace = p.expect(token.RBRACE)
	return set
}

// parseTypeName parses `name`, `module::name`, or a parameterized form
// such as `array<int>`.
func (p *parser) parseTypeName() *ast.TypeName {
	ref := p.parseClassRef()
	t := &ast.TypeName{MainType: ref}
	if p.tok == token.LSS {
		t.LAngle = p.pos
		p.next()
		for {
			t.SubTypes = append(t.SubTypes, p.parseTypeName())
			if p.tok != token.COMMA {
				break
			}
			p.next()
		}
		t.RAngle = p.expect(token.GTR)
	}
	return t
}

// parseTypeCast parses `<Type> expr`.
func (p *parser) parseTypeCast() ast.Expr {
	langle := p.expect(token.LSS)
	typ := p.parseTypeName()
	p.expect(token.GTR)
	x := p.parseUnaryExpr()
	return &ast.TypeCast{LAngle: langle, Type: typ, Expr: x}
}

// checkExpr checks that x is an expression.
func (p *parser) checkExpr(x ast.Expr) ast.Expr {
	switch x.(type) {
	case *ast.Ident, *ast.ClassRef, *ast.Ptr, *ast.TupleElement:
		p.errorExpected(x.Pos(), "expression")
		return &ast.BadExpr{From: x.Pos(), To: x.End()}
	}
	return x
}

// unparen removes enclosing parentheses.
func unparen(x ast.Expr) ast.Expr {
	if px, isParen := x.(*ast.ParenExpr); isParen {
		return unparen(px.X)
	}
	return x
}

func (p *parser) parsePrimaryExpr() ast.Expr {
	if p.trace {
		defer un(trace(p, "PrimaryExpr"))
	}

	x := p.parseOperand()

L:
	for {
		if p.pendingLBrack.IsValid() {
			lbrack := p.pendingLBrack
			p.pendingLBrack = token.NoPos
			x = p.parseIndirectionFrom(x, lbrack)
			continue
		}

		switch p.tok {
		case token.PERIOD, token.DOTFW, token.DOTBW, token.AT:
			path, ok := x.(*ast.Path)
			if !ok {
				path = &ast.Path{Steps: []ast.Expr{p.checkExpr(x)}}
			}
			p.appendPathSteps(path)
			x = path

		case token.LBRACK:
			x = p.parseBracket(p.checkExpr(x))

		case token.LBRACE:
			if !isShapeSubject(x) {
				break L
			}
			x = p.parseShape(x)

		default:
			break L
		}
	}

	return x
}

// isShapeSubject reports whether a `{` following x opens a shape.
// Shapes attach to paths and parenthesized statements only.
func isShapeSubject(x ast.Expr) bool {
	switch x := unparen(x).(type) {
	case *ast.Path:
		return true
	case ast.Statement:
		return true
	case *ast.Shape:
		_ = x
		return false
	}
	return false
}

// parseBracket parses `x[...]`: a type filter `x[IS T]`, an index
// `x[i]`, or a slice `x[a:b]`.
func (p *parser) parseBracket(x ast.Expr) ast.Expr {
	lbrack := p.expect(token.LBRACK)

	if p.tok == token.IS {
		p.next()
		ref := p.parseClassRef()
		rbrack := p.expect(token.RBRACK)
		return &ast.TypeFilter{Expr: x, LBrack: lbrack, Type: ref, RBrack: rbrack}
	}

	return p.parseIndirectionFrom(x, lbrack)
}

// parseIndirectionFrom finishes an index or slice whose '[' has been
// consumed.
func (p *parser) parseIndirectionFrom(x ast.Expr, lbrack token.Pos) ast.Expr {
	var start, stop ast.Expr
	isSlice := false

	if p.tok != token.COLON {
		start = p.parseRHS()
	}
	if p.tok == token.COLON {
		isSlice = true
		p.next()
		if p.tok != token.RBRACK && p.tok != token.EOF {
			stop = p.parseRHS()
		}
	}
	rbrack := p.expect(token.RBRACK)

	var elem ast.IndirectionElem
	if isSlice {
		elem = &ast.Slice{LBrack: lbrack, Start: start, Stop: stop, RBrack: rbrack}
	} else {
		elem = &ast.Index{LBrack: lbrack, Expr: start, RBrack: rbrack}
	}

	if ind, ok := x.(*ast.Indirection); ok {
		ind.Elements = append(ind.Elements, elem)
		return ind
	}
	return &ast.Indirection{Arg: x, Elements: []ast.IndirectionElem{elem}}
}

func (p *parser) parseUnaryExpr() ast.Expr {
	if p.trace {
		defer un(trace(p, "UnaryExpr"))
	}

	switch p.tok {
	case token.ADD, token.SUB:
		pos, op := p.pos, p.tok
		p.next()
		// ^ binds tighter than unary + and -.
		return &ast.UnaryExpr{OpPos: pos, Op: op, Operand: p.parseBinaryExpr(token.UnaryPrec + 1)}

	case token.NOT:
		pos := p.pos
		p.next()
		return &ast.UnaryExpr{OpPos: pos, Op: token.NOT, Operand: p.parseBinaryExpr(token.NOT.Precedence() - 1)}
	}

	return p.parsePrimaryExpr()
}

func (p *parser) parseBinaryExpr(prec1 int) ast.Expr {
	if p.trace {
		defer un(trace(p, "BinaryExpr"))
	}

	x := p.parseUnaryExpr()

	for {
		op := p.tok
		prec := op.Precedence()
		if prec < prec1 {
			return x
		}

		switch op {
		case token.IF:
			// `x IF cond ELSE y`, right-associative.
			ifPos := p.pos
			p.next()
			cond := p.parseBinaryExpr(prec + 1)
			elsePos := p.expect(token.ELSE)
			elseExpr := p.parseBinaryExpr(prec)
			x = &ast.IfElse{
				IfExpr:    p.checkExpr(x),
				IfPos:     ifPos,
				Condition: p.checkExpr(cond),
				ElsePos:   elsePos,
				ElseExpr:  p.checkExpr(elseExpr),
			}

		case token.DOUBLEQMARK:
			p.next()
			y := p.parseBinaryExpr(prec) // right-associative
			if co, ok := y.(*ast.Coalesce); ok {
				co.Args = append([]ast.Expr{p.checkExpr(x)}, co.Args...)
				x = co
			} else {
				x = &ast.Coalesce{Args: []ast.Expr{p.checkExpr(x), p.checkExpr(y)}}
			}

		case token.NOT:
			// Binary position: must be `NOT IN`.
			pos := p.pos
			p.next()
			p.expect(token.IN)
			y := p.parseBinaryExpr(token.IN.Precedence() + 1)
			x = &ast.BinExpr{Left: p.checkExpr(x), OpPos: pos, Op: token.NOTIN, Right: p.checkExpr(y)}

		case token.IS:
			pos := p.pos
			p.next()
			isOp := token.IS
			if p.tok == token.NOT {
				p.next()
				isOp = token.ISNOT
			}
			y := p.parseBinaryExpr(prec + 1)
			x = &ast.BinExpr{Left: p.checkExpr(x), OpPos: pos, Op: isOp, Right: p.checkExpr(y)}

		default:
			pos := p.pos
			p.next()
			nextPrec := prec + 1
			if op.IsRightAssoc() {
				nextPrec = prec
			}
			y := p.parseBinaryExpr(nextPrec)
			x = &ast.BinExpr{Left: p.checkExpr(x), OpPos: pos, Op: op, Right: p.checkExpr(y)}
		}
	}
}

// parseRHS parses a full expression.
func (p *parser) parseRHS() ast.Expr {
	return p.checkExpr(p.parseBinaryExpr(token.LowestPrec + 1))
}

// ----------------------------------------------------------------------------
// Shapes

// parseShape parses `{ elem, elem, ... }` attached to subject.
func (p *parser) parseShape(subject ast.Expr) ast.Expr {
	if p.trace {
		defer un(trace(p, "Shape"))
	}

	shape := &ast.Shape{Expr: subject, LBrace: p.expect(token.LBRACE)}
	shape.Elements = p.parseShapeElementList()
	shape.RBrace = p.expect(token.RBRACE)
	return shape
}

func (p *parser) parseShapeElementList() []*ast.ShapeElement {
	var elements []*ast.ShapeElement
	for p.tok != token.RBRACE && p.tok != token.EOF {
		elements = append(elements, p.parseShapeElement())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	return elements
}

func (p *parser) parseShapeElement() *ast.ShapeElement {
	el := &ast.ShapeElement{}
	path := &ast.Path{}

	// Optional explicit source qualifier: `[IS Type].ptr`.
	if p.tok == token.LBRACK {
		p.next()
		p.expect(token.IS)
		ref := p.parseClassRef()
		p.expect(token.RBRACK)
		p.expect(token.PERIOD)
		path.Steps = append(path.Steps, ref)
	}

	kind := ast.PtrLink
	dir := ast.Outbound
	opPos := p.pos
	switch p.tok {
	case token.AT:
		kind = ast.PtrProperty
		p.next()
	case token.DOTBW:
		dir = ast.Inbound
		p.next()
	case token.DOTFW, token.PERIOD:
		p.next()
	}

	ref := p.parseClassRef()
	path.Steps = append(path.Steps, &ast.Ptr{
		OpPos:     opPos,
		Ptr:       ref,
		Direction: dir,
		Kind:      kind,
	})
	el.Expr = path
	el.EndPos = ref.End()

	// Recursion marker.
	if p.tok == token.MUL {
		p.next()
		el.Recurse = true
		if p.tok == token.INT {
			el.RecurseLimit = &ast.Constant{ValuePos: p.pos, Kind: token.INT, Value: p.lit}
			p.next()
		}
	}

	switch p.tok {
	case token.COLON:
		// Nested shape: `ptr: { ... }`.
		p.next()
		p.expect(token.LBRACE)
		el.Elements = p.parseShapeElementList()
		el.RBrace = p.expect(token.RBRACE)
		el.EndPos = el.RBrace.Add(1)

	case token.ASSIGN:
		// Computable: `ptr := expr`.
		el.Assign = p.pos
		p.next()
		el.CompExpr = p.parseRHS()
		el.EndPos = el.CompExpr.End()
	}

	// Trailing clauses.
	if p.tok == token.FILTER {
		p.next()
		el.Where = p.parseRHS()
		el.EndPos = el.Where.End()
	}
	if p.tok == token.ORDER {
		p.next()
		p.expect(token.BY)
		el.OrderBy = p.parseSortList()
		if n := len(el.OrderBy); n > 0 {
			el.EndPos = el.OrderBy[n-1].End()
		}
	}
	if p.tok == token.OFFSET {
		p.next()
		el.Offset = p.parseRHS()
		el.EndPos = el.Offset.End()
	}
	if p.tok == token.LIMIT {
		p.next()
		el.Limit = p.parseRHS()
		el.EndPos = el.Limit.End()
	}

	return el
}

// ----------------------------------------------------------------------------
// Clauses

func (p *parser) parseSortList() []*ast.SortExpr {
	var list []*ast.SortExpr
	for {
		list = append(list, p.parseSortExpr())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	return list
}

func (p *parser) parseSortExpr() *ast.SortExpr {
	s := &ast.SortExpr{}
	s.Path = p.parseRHS()
	s.EndPos = s.Path.End()
	switch p.tok {
	case token.ASC:
		s.Direction = ast.SortAsc
		s.EndPos = p.pos.Add(len(p.lit))
		p.next()
	case token.DESC:
		s.Direction = ast.SortDesc
		s.EndPos = p.pos.Add(len(p.lit))
		p.next()
	}
	if p.tok == token.EMPTY {
		p.next()
		switch p.tok {
		case token.FIRST:
			s.NonesOrder = ast.NonesFirst
			s.EndPos = p.pos.Add(len(p.lit))
			p.next()
		case token.LAST:
			s.NonesOrder = ast.NonesLast
			s.EndPos = p.pos.Add(len(p.lit))
			p.next()
		default:
			p.errorExpected(p.pos, "FIRST or LAST")
		}
	}
	return s
}

// maybeAliasedExpr parses `expr` or `alias := expr`, returning the
// alias name if present.
func (p *parser) maybeAliasedExpr() (string, ast.Expr) {
	x := p.parseRHS()
	if p.tok == token.ASSIGN {
		if name, ok := bareName(x); ok {
			p.next()
			return name.Name, p.parseRHS()
		}
		p.errf(p.pos, "unexpected ':='")
		p.next()
		return "", p.parseRHS()
	}
	return "", x
}

// ----------------------------------------------------------------------------
// Statements

// parseWithBlock parses an optional WITH block.
func (p *parser) parseWithBlock() ast.WithBlock {
	var w ast.WithBlock
	if p.tok != token.WITH {
		return w
	}
	w.With = p.pos
	p.next()

	for {
		switch {
		case p.tok == token.WITHMODULE:
			pos := p.pos
			p.next()
			mod := p.parseModuleName()
			w.Aliases = append(w.Aliases, &ast.ModuleAliasDecl{
				DeclPos: pos,
				Module:  mod,
				EndPos:  p.pos,
			})

		case p.isIdent() && strings.EqualFold(p.lit, "cardinality"):
			p.next()
			if p.tok == token.STRING {
				w.Cardinality = p.lit
				p.next()
			} else {
				p.errorExpected(p.pos, "cardinality literal")
			}

		case p.isIdent():
			alias := p.parseIdent()
			switch p.tok {
			case token.AS:
				p.next()
				p.expect(token.WITHMODULE)
				mod := p.parseModuleName()
				w.Aliases = append(w.Aliases, &ast.ModuleAliasDecl{
					DeclPos: alias.NamePos,
					Alias:   alias.Name,
					Module:  mod,
					EndPos:  p.pos,
				})
			case token.ASSIGN:
				assign := p.pos
				p.next()
				x := p.parseRHS()
				w.Aliases = append(w.Aliases, &ast.AliasedExpr{
					Alias:  alias,
					Assign: assign,
					Expr:   x,
				})
			default:
				p.errorExpected(p.pos, "':=' or 'AS MODULE'")
			}

		default:
			p.errorExpected(p.pos, "WITH block entry")
			p.sync()
			return w
		}

		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	return w
}

// parseStatementOrExpr parses one statement, or a bare expression.
func (p *parser) parseStatementOrExpr() ast.Expr {
	if p.trace {
		defer un(trace(p, "Statement"))
	}

	with := p.parseWithBlock()

	switch p.tok {
	case token.SELECT:
		return p.parseSelect(with)
	case token.FOR:
		return p.parseFor(with)
	case token.GROUP:
		return p.parseGroup(with)
	case token.INSERT:
		return p.parseInsert(with)
	case token.UPDATE:
		return p.parseUpdate(with)
	case token.DELETE:
		return p.parseDelete(with)
	case token.SET:
		return p.parseSessionState(with)
	case token.CREATE, token.ALTER, token.DROP:
		return p.parseDDL(with)
	}

	if with.With.IsValid() {
		p.errorExpected(p.pos, "statement after WITH block")
	}
	return p.parseRHS()
}

func (p *parser) parseSelect(with ast.WithBlock) ast.Statement {
	stmt := &ast.SelectQuery{WithBlock: with, Select: p.expect(token.SELECT)}

	stmt.ResultAlias, stmt.Result = p.maybeAliasedExpr()
	stmt.EndPos = stmt.Result.End()

	p.parseQueryClauses(&stmt.Where, &stmt.OrderBy, &stmt.Offset, &stmt.Limit, &stmt.EndPos)
	return stmt
}

func (p *parser) parseQueryClauses(where *ast.Expr, orderBy *[]*ast.SortExpr, offset, limit *ast.Expr, end *token.Pos) {
	if p.tok == token.FILTER {
		p.next()
		*where = p.parseRHS()
		*end = (*where).End()
	}
	if p.tok == token.ORDER {
		p.next()
		p.expect(token.BY)
		*orderBy = p.parseSortList()
		if n := len(*orderBy); n > 0 {
			*end = (*orderBy)[n-1].End()
		}
	}
	if p.tok == token.OFFSET {
		p.next()
		*offset = p.parseRHS()
		*end = (*offset).End()
	}
	if p.tok == token.LIMIT {
		p.next()
		*limit = p.parseRHS()
		*end = (*limit).End()
	}
}

func (p *parser) parseFor(with ast.WithBlock) ast.Statement {
	stmt := &ast.ForQuery{WithBlock: with, For: p.expect(token.FOR)}

	stmt.IteratorAlias = p.parseIdent()
	p.expect(token.IN)
	stmt.Iterator = p.parseUnaryExpr()
	stmt.Union = p.expect(token.UNION)
	stmt.ResultAlias, stmt.Result = p.maybeAliasedExpr()
	stmt.EndPos = stmt.Result.End()

	p.parseQueryClauses(&stmt.Where, &stmt.OrderBy, &stmt.Offset, &stmt.Limit, &stmt.EndPos)
	return stmt
}

func (p *parser) parseGroup(with ast.WithBlock) ast.Statement {
	stmt := &ast.GroupQuery{WithBlock: with, Group: p.expect(token.GROUP)}

	stmt.SubjectAlias, stmt.Subject = p.maybeAliasedExpr()

	p.expect(token.USING)
	for {
		alias := p.parseIdent()
		assign := p.expect(token.ASSIGN)
		x := p.parseRHS()
		stmt.Using = append(stmt.Using, &ast.AliasedExpr{Alias: alias, Assign: assign, Expr: x})
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}

	p.expect(token.BY)
	for {
		stmt.By = append(stmt.By, p.parseRHS())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}

	p.expect(token.INTO)
	stmt.Into = p.parseIdent()

	p.expect(token.UNION)
	stmt.ResultAlias, stmt.Result = p.maybeAliasedExpr()
	stmt.EndPos = stmt.Result.End()

	p.parseQueryClauses(&stmt.Where, &stmt.OrderBy, &stmt.Offset, &stmt.Limit, &stmt.EndPos)
	return stmt
}

func (p *parser) parseInsert(with ast.WithBlock) ast.Statement {
	stmt := &ast.InsertQuery{WithBlock: with, Insert: p.expect(token.INSERT)}

	subject := p.parsePrimaryExpr()
	stmt.EndPos = subject.End()

	// A trailing shape on the subject carries the insert values.
	if shape, ok := subject.(*ast.Shape); ok {
		stmt.Subject = shape.Expr
		stmt.Shape = shape.Elements
	} else {
		stmt.Subject = subject
	}

	switch p.tok {
	case token.FILTER, token.ORDER, token.OFFSET, token.LIMIT, token.GROUP:
		p.errf(p.pos, "INSERT statements cannot have a %s clause", p.tok)
		p.sync()
	}
	return stmt
}

func (p *parser) parseUpdate(with ast.WithBlock) ast.Statement {
	stmt := &ast.UpdateQuery{WithBlock: with, Update: p.expect(token.UPDATE)}

	stmt.Subject = p.parsePrimaryExpr()

	if p.tok == token.FILTER {
		p.next()
		stmt.Where = p.parseRHS()
	}

	p.expect(token.SET)
	p.expect(token.LBRACE)
	stmt.Shape = p.parseShapeElementList()
	stmt.EndPos = p.expect(token.RBRACE).Add(1)
	return stmt
}

func (p *parser) parseDelete(with ast.WithBlock) ast.Statement {
	stmt := &ast.DeleteQuery{WithBlock: with, Delete: p.expect(token.DELETE)}
	stmt.Subject = p.parsePrimaryExpr()
	stmt.EndPos = stmt.Subject.End()
	return stmt
}

func (p *parser) parseSessionState(with ast.WithBlock) ast.Statement {
	stmt := &ast.SessionStateDecl{WithBlock: with, Set: p.expect(token.SET)}

	for {
		switch {
		case p.tok == token.WITHMODULE:
			pos := p.pos
			p.next()
			mod := p.parseModuleName()
			stmt.Items = append(stmt.Items, &ast.ModuleAliasDecl{
				DeclPos: pos,
				Module:  mod,
				EndPos:  p.pos,
			})

		case p.isIdent():
			alias := p.parseIdent()
			assign := p.expect(token.ASSIGN)
			if p.tok == token.WITHMODULE {
				pos := p.pos
				p.next()
				mod := p.parseModuleName()
				stmt.Items = append(stmt.Items, &ast.ModuleAliasDecl{
					DeclPos: pos,
					Alias:   alias.Name,
					Module:  mod,
					EndPos:  p.pos,
				})
			} else {
				stmt.Items = append(stmt.Items, &ast.AliasedExpr{
					Alias:  alias,
					Assign: assign,
					Expr:   p.parseRHS(),
				})
			}

		default:
			p.errorExpected(p.pos, "session state item")
			p.sync()
			stmt.EndPos = p.pos
			return stmt
		}

		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	stmt.EndPos = p.pos
	return stmt
}
