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

// Package edgeql is the front end of the EdgeQL query language: it
// parses EdgeQL source text and compiles it into the typed,
// scope-annotated intermediate representation consumed by backends.
package edgeql

import (
	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/parser"
	"edgeql.org/go/edgeql/schema"
	"edgeql.org/go/internal/core/compile"
	"edgeql.org/go/internal/core/ir"
)

// CompileOptions configure a compilation.
type CompileOptions struct {
	// Anchors maps externally-provided names to schema objects.
	Anchors map[string]schema.Object

	// ArgTypes declares the types of statement parameters.
	ArgTypes map[string]schema.Type

	// ModAliases supplies module aliases; the alias "" names the
	// default module.
	ModAliases map[string]string

	// SecurityContext is recorded for the embedding application.
	SecurityContext string

	// DerivedTargetModule qualifies types derived for computables.
	DerivedTargetModule string

	// ResultViewName requests a named view type for the top-level
	// result.
	ResultViewName string
}

func (o *CompileOptions) config() *compile.Config {
	if o == nil {
		return nil
	}
	return &compile.Config{
		Anchors:             o.Anchors,
		ArgTypes:            o.ArgTypes,
		ModAliases:          o.ModAliases,
		SecurityContext:     o.SecurityContext,
		DerivedTargetModule: o.DerivedTargetModule,
		ResultViewName:      o.ResultViewName,
	}
}

// Parse parses a single EdgeQL statement. A bare expression is wrapped
// into an implicit SELECT query.
func Parse(text string, modAliases map[string]string) (ast.Statement, error) {
	var opts []parser.Option
	if modAliases != nil {
		opts = append(opts, parser.ModAliases(modAliases))
	}
	return parser.Parse("", text, opts...)
}

// ParseFragment parses a single expression without the implicit SELECT
// wrapper.
func ParseFragment(text string) (ast.Expr, error) {
	return parser.ParseFragment("", text)
}

// ParseBlock parses a semicolon-separated sequence of statements.
func ParseBlock(text string) ([]ast.Statement, error) {
	return parser.ParseBlock("", text)
}

// CompileToIR parses and compiles an EdgeQL statement against the
// schema.
func CompileToIR(text string, s schema.Schema, opts *CompileOptions) (*ir.Statement, error) {
	qlstmt, err := Parse(text, modAliasesOf(opts))
	if err != nil {
		return nil, err
	}
	return CompileASTToIR(qlstmt, s, opts)
}

// CompileASTToIR compiles an already-parsed statement against the
// schema.
func CompileASTToIR(qlstmt ast.Statement, s schema.Schema, opts *CompileOptions) (*ir.Statement, error) {
	res, err := compile.Statement(qlstmt, s, opts.config())
	if err != nil {
		return nil, attachContext(err, qlstmt)
	}
	return res, nil
}

// CompileFragmentToIR parses and compiles a single expression.
func CompileFragmentToIR(text string, s schema.Schema, opts *CompileOptions) (ir.Expr, error) {
	x, err := ParseFragment(text)
	if err != nil {
		return nil, err
	}
	return CompileASTFragmentToIR(x, s, opts)
}

// CompileASTFragmentToIR compiles an already-parsed expression.
func CompileASTFragmentToIR(x ast.Expr, s schema.Schema, opts *CompileOptions) (ir.Expr, error) {
	res, err := compile.Fragment(x, s, opts.config())
	if err != nil {
		return nil, attachContext(err, x)
	}
	return res, nil
}

func modAliasesOf(opts *CompileOptions) map[string]string {
	if opts == nil {
		return nil
	}
	return opts.ModAliases
}

// attachContext ensures the error carries a source position: a
// position-free error is anchored at the statement being compiled.
func attachContext(err errors.Error, n ast.Node) error {
	if err == nil {
		return nil
	}
	if n != nil {
		return errors.WithPos(err, n.Pos())
	}
	return err
}
