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

package parser

import (
	"strings"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/token"
)

// DDL object classes and several clause introducers are soft keywords:
// plain identifiers that the grammar recognizes positionally.

// atSoftKw reports whether the current token is the given soft keyword.
func (p *parser) atSoftKw(kw string) bool {
	return p.tok == token.IDENT && strings.EqualFold(p.lit, kw)
}

// expectSoftKw consumes the given soft keyword, reporting an error if
// it is absent.
func (p *parser) expectSoftKw(kw string) token.Pos {
	pos := p.pos
	if !p.atSoftKw(kw) {
		p.errorExpected(pos, "'"+kw+"'")
		return pos
	}
	p.next()
	return pos
}

// parseObjectClass consumes the object-class keywords following
// CREATE/ALTER/DROP. The aggregate result is only meaningful for
// functions.
func (p *parser) parseObjectClass() (class ast.ObjectClass, aggregate, isFunction bool) {
	switch {
	case p.tok == token.WITHMODULE:
		p.next()
		return ast.ModuleClass, false, false
	case p.atSoftKw("database"):
		p.next()
		return ast.DatabaseClass, false, false
	case p.atSoftKw("migration"):
		p.next()
		return ast.MigrationClass, false, false
	case p.atSoftKw("action"):
		p.next()
		return ast.ActionClass, false, false
	case p.atSoftKw("scalar"):
		p.next()
		p.expectSoftKw("type")
		return ast.ScalarTypeClass, false, false
	case p.atSoftKw("attribute"):
		p.next()
		return ast.AttributeClass, false, false
	case p.atSoftKw("type"):
		p.next()
		return ast.ConceptClass, false, false
	case p.atSoftKw("view"):
		p.next()
		return ast.ViewClass, false, false
	case p.atSoftKw("constraint"):
		p.next()
		return ast.ConstraintClass, false, false
	case p.atSoftKw("link"):
		p.next()
		if p.atSoftKw("property") {
			p.next()
			return ast.LinkPropertyClass, false, false
		}
		return ast.LinkClass, false, false
	case p.atSoftKw("event"):
		p.next()
		return ast.EventClass, false, false
	case p.atSoftKw("aggregate"):
		p.next()
		p.expectSoftKw("function")
		return ast.FunctionClass, true, true
	case p.atSoftKw("function"):
		p.next()
		return ast.FunctionClass, false, true
	}
	p.errorExpected(p.pos, "schema object class")
	return ast.ConceptClass, false, false
}

// validLanguage validates a `FROM <language>` clause argument.
func (p *parser) validLanguage(pos token.Pos, name string, forMigration bool) ast.Language {
	switch strings.ToUpper(name) {
	case "SQL":
		return ast.LangSQL
	case "EDGEQL":
		return ast.LangEdgeQL
	case "PYTHON":
		return ast.LangPython
	case "ESCHEMA":
		if forMigration {
			return ast.LangESchema
		}
	}
	p.errf(pos, "%q is not a valid language", name)
	return ast.Language("")
}

func (p *parser) parseDDL(with ast.WithBlock) ast.Statement {
	if p.trace {
		defer un(trace(p, "DDL"))
	}

	switch p.tok {
	case token.CREATE:
		return p.parseCreate(with)
	case token.ALTER:
		return p.parseAlter(with)
	default:
		return p.parseDrop(with)
	}
}

func (p *parser) parseCreate(with ast.WithBlock) ast.Statement {
	createPos := p.expect(token.CREATE)

	abstract, final := false, false
	for {
		if p.atSoftKw("abstract") {
			abstract = true
			p.next()
			continue
		}
		if p.atSoftKw("final") {
			final = true
			p.next()
			continue
		}
		break
	}

	class, aggregate, isFunction := p.parseObjectClass()
	if isFunction {
		return p.parseCreateFunction(with, createPos, aggregate)
	}

	stmt := &ast.CreateObject{
		WithBlock: with,
		Create:    createPos,
		Class:     class,
		Abstract:  abstract,
		Final:     final,
		Name:      p.parseClassRef(),
	}
	stmt.EndPos = stmt.Name.End()

	if p.atSoftKw("inheriting") {
		p.next()
		stmt.Bases = p.parseClassRefList()
		if n := len(stmt.Bases); n > 0 {
			stmt.EndPos = stmt.Bases[n-1].End()
		}
	}

	if class == ast.MigrationClass && p.atSoftKw("to") {
		p.next()
		langPos := p.pos
		lang := p.parseIdent()
		stmt.Language = p.validLanguage(langPos, lang.Name, true)
		if p.tok == token.STRING {
			stmt.Code = p.lit
			stmt.EndPos = p.pos.Add(len(p.lit))
			p.next()
		} else {
			p.errorExpected(p.pos, "migration text")
		}
	}

	if p.tok == token.LBRACE {
		stmt.Commands = p.parseDDLCommandBlock()
		stmt.EndPos = p.pos
	}
	return stmt
}

func (p *parser) parseAlter(with ast.WithBlock) ast.Statement {
	stmt := &ast.AlterObject{WithBlock: with, Alter: p.expect(token.ALTER)}
	class, _, _ := p.parseObjectClass()
	stmt.Class = class
	stmt.Name = p.parseClassRef()
	stmt.EndPos = stmt.Name.End()

	if p.tok == token.LBRACE {
		stmt.Commands = p.parseDDLCommandBlock()
		stmt.EndPos = p.pos
	} else if cmd := p.parseDDLCommand(); cmd != nil {
		// Single-command form: `ALTER TYPE Foo RENAME TO Bar`.
		stmt.Commands = []ast.DDLCommand{cmd}
		stmt.EndPos = cmd.End()
	}
	return stmt
}

func (p *parser) parseDrop(with ast.WithBlock) ast.Statement {
	stmt := &ast.DropObject{WithBlock: with, Drop: p.expect(token.DROP)}
	class, _, _ := p.parseObjectClass()
	stmt.Class = class
	stmt.Name = p.parseClassRef()
	stmt.EndPos = stmt.Name.End()

	if p.tok == token.LBRACE {
		stmt.Commands = p.parseDDLCommandBlock()
		stmt.EndPos = p.pos
	}
	return stmt
}

func (p *parser) parseClassRefList() []*ast.ClassRef {
	var refs []*ast.ClassRef
	paren := false
	if p.tok == token.LPAREN {
		paren = true
		p.next()
	}
	for {
		refs = append(refs, p.parseClassRef())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	if paren {
		p.expect(token.RPAREN)
	}
	return refs
}

// parseDDLCommandBlock parses `{ command; command; ... }`.
func (p *parser) parseDDLCommandBlock() []ast.DDLCommand {
	p.expect(token.LBRACE)
	var commands []ast.DDLCommand
	for p.tok != token.RBRACE && p.tok != token.EOF {
		if p.tok == token.SEMICOLON {
			p.next()
			continue
		}
		cmd := p.parseDDLCommand()
		if cmd == nil {
			p.sync()
			continue
		}
		commands = append(commands, cmd)
		if p.tok != token.SEMICOLON && p.tok != token.RBRACE {
			p.errorExpected(p.pos, "';'")
			p.sync()
		}
	}
	p.expect(token.RBRACE)
	return commands
}

func (p *parser) parseDDLCommand() ast.DDLCommand {
	switch {
	case p.tok == token.SET:
		setPos := p.pos
		p.next()
		name := p.parseClassRef()
		p.expect(token.ASSIGN)
		return &ast.SetField{SetPos: setPos, Name: name, Value: p.parseRHS()}

	case p.atSoftKw("rename"):
		renamePos := p.pos
		p.next()
		p.expectSoftKw("to")
		return &ast.RenameTo{RenamePos: renamePos, NewName: p.parseClassRef()}

	case p.atSoftKw("add"):
		addPos := p.pos
		p.next()
		p.expectSoftKw("inheriting")
		bases := p.parseClassRefList()
		return &ast.AlterAddBase{AddPos: addPos, Bases: bases, EndPos: p.pos}

	case p.tok == token.DROP && p.peekIsSoftKw("inheriting"):
		dropPos := p.pos
		p.next()
		p.next() // INHERITING
		bases := p.parseClassRefList()
		return &ast.AlterDropBase{DropPos: dropPos, Bases: bases, EndPos: p.pos}

	case p.tok == token.CREATE:
		return p.parseCreate(ast.WithBlock{}).(ast.DDLCommand)

	case p.tok == token.ALTER:
		return p.parseAlter(ast.WithBlock{}).(ast.DDLCommand)

	case p.tok == token.DROP:
		return p.parseDrop(ast.WithBlock{}).(ast.DDLCommand)
	}

	p.errorExpected(p.pos, "DDL subcommand")
	return nil
}

// peekIsSoftKw looks one token ahead for a soft keyword. The scanner
// cannot back up, so this re-scans from a saved copy.
func (p *parser) peekIsSoftKw(kw string) bool {
	save := *p
	p.next()
	ok := p.atSoftKw(kw)
	*p = save
	return ok
}

func (p *parser) parseCreateFunction(with ast.WithBlock, createPos token.Pos, aggregate bool) ast.Statement {
	stmt := &ast.CreateFunction{
		WithBlock: with,
		Create:    createPos,
		Aggregate: aggregate,
		Name:      p.parseClassRef(),
	}

	p.expect(token.LPAREN)
	for p.tok != token.RPAREN && p.tok != token.EOF {
		stmt.Params = append(stmt.Params, p.parseFuncParam())
		if p.tok != token.COMMA {
			break
		}
		p.next()
	}
	p.expect(token.RPAREN)

	p.expect(token.ARROW)
	if p.tok == token.SET {
		p.next()
		p.expectSoftKw("of")
		stmt.SetOfReturn = true
	}
	stmt.Returns = p.parseTypeName()
	stmt.EndPos = stmt.Returns.End()

	for {
		switch {
		case p.atSoftKw("initial"):
			p.next()
			p.expectSoftKw("value")
			stmt.InitialValue = p.parseRHS()
			stmt.EndPos = stmt.InitialValue.End()

		case p.atSoftKw("from"):
			fromPos := p.pos
			p.next()
			langPos := p.pos
			lang := p.parseIdent()
			code := &ast.FunctionCode{
				FromPos:  fromPos,
				Language: p.validLanguage(langPos, lang.Name, false),
			}
			switch {
			case p.atSoftKw("function"):
				p.next()
				if p.tok == token.STRING {
					code.FromName = p.lit
					stmt.EndPos = p.pos.Add(len(p.lit))
					p.next()
				} else {
					p.errorExpected(p.pos, "function name literal")
				}
			case p.tok == token.STRING:
				code.Code = p.lit
				stmt.EndPos = p.pos.Add(len(p.lit))
				p.next()
			default:
				p.errorExpected(p.pos, "function code")
			}
			stmt.Code = code

		case p.tok == token.LBRACE:
			stmt.Commands = p.parseDDLCommandBlock()
			stmt.EndPos = p.pos

		// An INITIAL VALUE clause may be terminated by a semicolon
		// with the FROM clause following; tolerate that layout.
		case p.tok == token.SEMICOLON && p.peekIsSoftKw("from"):
			p.next()

		default:
			return stmt
		}
	}
}

func (p *parser) parseFuncParam() *ast.FuncParam {
	param := &ast.FuncParam{NamePos: p.pos}

	if p.tok == token.ARGUMENT {
		param.Name = p.lit[1:]
		p.next()
		p.expect(token.COLON)
	}

	for {
		switch {
		case p.tok == token.SET:
			p.next()
			p.expectSoftKw("of")
			param.Kind = ast.ParamSetOf
			continue
		case p.atSoftKw("optional"):
			p.next()
			param.Kind = ast.ParamOptional
			continue
		case p.atSoftKw("variadic"):
			p.next()
			param.Kind = ast.ParamVariadic
			continue
		}
		break
	}

	param.Type = p.parseTypeName()

	if p.tok == token.EQL {
		p.next()
		param.Default = p.parseRHS()
	}
	return param
}
