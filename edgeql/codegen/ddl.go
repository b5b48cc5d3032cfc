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

package codegen

import (
	"edgeql.org/go/edgeql/ast"
)

func (g *generator) ddl(x ast.Expr) error {
	switch x := x.(type) {
	case *ast.CreateObject:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("CREATE ")
		if x.Abstract {
			g.WriteString("ABSTRACT ")
		}
		if x.Final {
			g.WriteString("FINAL ")
		}
		g.WriteString(x.Class.String() + " " + classRef(x.Name))
		if len(x.Bases) > 0 {
			g.WriteString(" INHERITING (")
			for i, b := range x.Bases {
				if i > 0 {
					g.WriteString(", ")
				}
				g.WriteString(classRef(b))
			}
			g.WriteString(")")
		}
		if x.Language != "" {
			g.WriteString(" TO " + string(x.Language) + " " + x.Code)
		}
		return g.commandBlock(x.Commands)

	case *ast.AlterObject:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("ALTER " + x.Class.String() + " " + classRef(x.Name))
		return g.commandBlock(x.Commands)

	case *ast.DropObject:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("DROP " + x.Class.String() + " " + classRef(x.Name))
		return g.commandBlock(x.Commands)

	case *ast.CreateFunction:
		if err := g.withBlock(x); err != nil {
			return err
		}
		g.WriteString("CREATE ")
		if x.Aggregate {
			g.WriteString("AGGREGATE ")
		}
		g.WriteString("FUNCTION " + classRef(x.Name) + "(")
		for i, p := range x.Params {
			if i > 0 {
				g.WriteString(", ")
			}
			if p.Name != "" {
				g.WriteString("$" + p.Name + ": ")
			}
			if kind := p.Kind.String(); kind != "" {
				g.WriteString(kind + " ")
			}
			g.typeName(p.Type)
			if p.Default != nil {
				g.WriteString(" = ")
				if err := g.expr(p.Default); err != nil {
					return err
				}
			}
		}
		g.WriteString(") -> ")
		if x.SetOfReturn {
			g.WriteString("SET OF ")
		}
		g.typeName(x.Returns)
		if x.InitialValue != nil {
			g.WriteString(" INITIAL VALUE ")
			if err := g.expr(x.InitialValue); err != nil {
				return err
			}
		}
		if x.Code != nil {
			g.WriteString(" FROM " + string(x.Code.Language))
			if x.Code.FromName != "" {
				g.WriteString(" FUNCTION " + x.Code.FromName)
			} else if x.Code.Code != "" {
				g.WriteString(" " + x.Code.Code)
			}
		}
		return g.commandBlock(x.Commands)
	}

	return g.errf("unhandled statement %T", x)
}

func (g *generator) commandBlock(commands []ast.DDLCommand) error {
	if len(commands) == 0 {
		return nil
	}
	g.WriteString(" {")
	for i, cmd := range commands {
		if i > 0 {
			g.WriteString(";")
		}
		g.WriteString(" ")
		if err := g.ddlCommand(cmd); err != nil {
			return err
		}
	}
	g.WriteString(" }")
	return nil
}

func (g *generator) ddlCommand(cmd ast.DDLCommand) error {
	switch cmd := cmd.(type) {
	case *ast.SetField:
		g.WriteString("SET " + classRef(cmd.Name) + " := ")
		return g.expr(cmd.Value)

	case *ast.RenameTo:
		g.WriteString("RENAME TO " + classRef(cmd.NewName))
		return nil

	case *ast.AlterAddBase:
		g.WriteString("ADD INHERITING ")
		for i, b := range cmd.Bases {
			if i > 0 {
				g.WriteString(", ")
			}
			g.WriteString(classRef(b))
		}
		return nil

	case *ast.AlterDropBase:
		g.WriteString("DROP INHERITING ")
		for i, b := range cmd.Bases {
			if i > 0 {
				g.WriteString(", ")
			}
			g.WriteString(classRef(b))
		}
		return nil

	case ast.Expr:
		return g.ddl(cmd)
	}
	return g.errf("unhandled DDL command %T", cmd)
}
