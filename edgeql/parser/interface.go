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

// This file contains the exported entry points for invoking the parser.

package parser

import (
	"sort"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/token"
)

// Option specifies a parse option.
type Option func(p *parser)

var (
	// Trace causes parsing to print a trace of parsed productions.
	Trace Option = func(p *parser) { p.mode |= traceMode }

	// AllErrors causes all errors to be reported (not just the first 10
	// on different lines).
	AllErrors Option = func(p *parser) { p.mode |= allErrorsMode }
)

// ModAliases seeds the parse result with externally-supplied module
// aliases: every parsed statement behaves as if its WITH block opened
// with the given alias declarations.
func ModAliases(aliases map[string]string) Option {
	return func(p *parser) {
		p.modAliases = aliases
	}
}

// A mode value is a set of flags (or 0). They control the amount of
// source code parsed and other optional parser functionality.
type mode uint

const (
	traceMode     mode = 1 << iota // print a trace of parsed productions
	allErrorsMode                  // report all errors
)

// Parse parses the source code of a single EdgeQL statement and
// returns the corresponding Statement node. A bare expression is
// wrapped into an implicit SELECT query.
func Parse(filename string, src string, options ...Option) (ast.Statement, error) {
	var p parser
	p.init(filename, []byte(src), options)
	x := p.parseStatementOrExpr()
	p.expect(token.SEMICOLON, token.EOF)
	stmt := p.toStatement(x)
	p.applyModAliases(stmt)
	return stmt, p.errors.Err()
}

// ParseFragment parses a single expression (or parenthesizable
// statement) and returns the AST without the implicit SELECT wrapper
// applied by Parse.
func ParseFragment(filename string, src string, options ...Option) (ast.Expr, error) {
	var p parser
	p.init(filename, []byte(src), options)
	x := p.parseStatementOrExpr()
	p.expect(token.SEMICOLON, token.EOF)
	if stmt, ok := x.(ast.Statement); ok {
		p.applyModAliases(stmt)
	}
	return x, p.errors.Err()
}

// ParseBlock parses a semicolon-separated sequence of statements.
func ParseBlock(filename string, src string, options ...Option) ([]ast.Statement, error) {
	var p parser
	p.init(filename, []byte(src), options)
	var stmts []ast.Statement
	for p.tok != token.EOF && !p.panicking {
		if p.tok == token.SEMICOLON {
			p.next()
			continue
		}
		x := p.parseStatementOrExpr()
		stmt := p.toStatement(x)
		p.applyModAliases(stmt)
		stmts = append(stmts, stmt)
		if p.tok != token.EOF {
			p.expect(token.SEMICOLON)
		}
	}
	return stmts, p.errors.Err()
}

// toStatement wraps a bare expression into an implicit SELECT query.
func (p *parser) toStatement(x ast.Expr) ast.Statement {
	if stmt, ok := x.(ast.Statement); ok {
		return stmt
	}
	return &ast.SelectQuery{Result: x, Implicit: true}
}

// applyModAliases prepends the externally-supplied module aliases to
// the statement's WITH block.
func (p *parser) applyModAliases(stmt ast.Statement) {
	if len(p.modAliases) == 0 || stmt == nil {
		return
	}
	names := make([]string, 0, len(p.modAliases))
	for alias := range p.modAliases {
		names = append(names, alias)
	}
	sort.Strings(names)

	decls := make([]ast.Binding, 0, len(names))
	for _, alias := range names {
		a := alias
		if a == "default" {
			a = ""
		}
		decls = append(decls, &ast.ModuleAliasDecl{
			Alias:  a,
			Module: p.modAliases[alias],
		})
	}

	switch s := stmt.(type) {
	case *ast.SelectQuery:
		s.Aliases = append(decls, s.Aliases...)
	case *ast.ForQuery:
		s.Aliases = append(decls, s.Aliases...)
	case *ast.GroupQuery:
		s.Aliases = append(decls, s.Aliases...)
	case *ast.InsertQuery:
		s.Aliases = append(decls, s.Aliases...)
	case *ast.UpdateQuery:
		s.Aliases = append(decls, s.Aliases...)
	case *ast.DeleteQuery:
		s.Aliases = append(decls, s.Aliases...)
	}
}
