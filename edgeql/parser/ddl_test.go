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

package parser_test

import (
	"testing"

	"edgeql.org/go/edgeql/ast"
	"edgeql.org/go/edgeql/codegen"
	"edgeql.org/go/edgeql/parser"
)

func TestParseDDL(t *testing.T) {
	testCases := []struct{ desc, in, out string }{{
		"create database",
		"CREATE DATABASE mydb",
		"CREATE DATABASE mydb",
	}, {
		"create module",
		"CREATE MODULE foo",
		"CREATE MODULE foo",
	}, {
		"drop database",
		"DROP DATABASE mydb",
		"DROP DATABASE mydb",
	}, {
		"create action",
		"CREATE ACTION sample",
		"CREATE ACTION sample",
	}, {
		"with module ddl",
		"WITH MODULE test CREATE ACTION sample",
		"WITH MODULE test CREATE ACTION sample",
	}, {
		"create scalar type",
		"CREATE ABSTRACT SCALAR TYPE std::sequence INHERITING (std::int)",
		"CREATE ABSTRACT SCALAR TYPE std::sequence INHERITING (std::int)",
	}, {
		"create type with commands",
		"CREATE TYPE User { SET title := 'User' }",
		"CREATE TYPE User { SET title := 'User' }",
	}, {
		"create final type",
		"CREATE FINAL TYPE Singleton",
		"CREATE FINAL TYPE Singleton",
	}, {
		"create attribute",
		"CREATE ATTRIBUTE title",
		"CREATE ATTRIBUTE title",
	}, {
		"create view",
		"CREATE VIEW Adults { SET expr := 'SELECT 1' }",
		"CREATE VIEW Adults { SET expr := 'SELECT 1' }",
	}, {
		"create constraint",
		"CREATE CONSTRAINT std::maxlength",
		"CREATE CONSTRAINT std::maxlength",
	}, {
		"create link",
		"CREATE LINK friends",
		"CREATE LINK friends",
	}, {
		"create link property",
		"CREATE LINK PROPERTY weight",
		"CREATE LINK PROPERTY weight",
	}, {
		"create event",
		"CREATE EVENT changed",
		"CREATE EVENT changed",
	}, {
		"alter rename",
		"ALTER TYPE User RENAME TO Person",
		"ALTER TYPE User { RENAME TO Person }",
	}, {
		"alter block",
		"ALTER TYPE User { RENAME TO Person; SET title := 'P' }",
		"ALTER TYPE User { RENAME TO Person; SET title := 'P' }",
	}, {
		"alter inheritance",
		"ALTER TYPE User { ADD INHERITING Named; DROP INHERITING Old }",
		"ALTER TYPE User { ADD INHERITING Named; DROP INHERITING Old }",
	}, {
		"nested ddl",
		"ALTER TYPE User { CREATE LINK nick }",
		"ALTER TYPE User { CREATE LINK nick }",
	}, {
		"create migration",
		"CREATE MIGRATION init TO eschema $$type User$$",
		"CREATE MIGRATION init TO ESCHEMA $$type User$$",
	}, {
		"drop migration",
		"DROP MIGRATION init",
		"DROP MIGRATION init",
	}, {
		"create function",
		"CREATE FUNCTION std::strlen($string: std::str) -> std::int FROM SQL FUNCTION 'strlen'",
		"CREATE FUNCTION std::strlen($string: std::str) -> std::int FROM SQL FUNCTION 'strlen'",
	}, {
		"create function bare param",
		"CREATE FUNCTION std::strlen(std::str) -> std::int FROM SQL FUNCTION 'strlen'",
		"CREATE FUNCTION std::strlen(std::str) -> std::int FROM SQL FUNCTION 'strlen'",
	}, {
		"create aggregate function",
		"CREATE AGGREGATE FUNCTION std::sum($v: SET OF std::int) -> std::int INITIAL VALUE 0 FROM SQL FUNCTION 'sum'",
		"CREATE AGGREGATE FUNCTION std::sum($v: SET OF std::int) -> std::int INITIAL VALUE 0 FROM SQL FUNCTION 'sum'",
	}, {
		"function with default",
		"CREATE FUNCTION pad($s: std::str, $n: std::int = 1) -> std::str FROM EdgeQL $$SELECT $s$$",
		"CREATE FUNCTION pad($s: std::str, $n: std::int = 1) -> std::str FROM EDGEQL $$SELECT $s$$",
	}, {
		"function set of return",
		"CREATE FUNCTION gen() -> SET OF std::int FROM SQL 'gen'",
		"CREATE FUNCTION gen() -> SET OF std::int FROM SQL 'gen'",
	}}

	for _, tc := range testCases {
		t.Run(tc.desc, func(t *testing.T) {
			stmt, err := parser.Parse("", tc.in+";")
			if err != nil {
				t.Fatalf("parse error: %v", err)
			}
			if _, ok := stmt.(ast.DDL); !ok {
				t.Fatalf("got %T, want a DDL node", stmt)
			}
			got, err := codegen.Node(stmt)
			if err != nil {
				t.Fatalf("codegen error: %v", err)
			}
			if got != tc.out {
				t.Errorf("got  %s\nwant %s", got, tc.out)
			}
		})
	}
}

func TestDDLObjectClasses(t *testing.T) {
	stmt, err := parser.Parse("", "CREATE SCALAR TYPE seq;")
	if err != nil {
		t.Fatal(err)
	}
	create := stmt.(*ast.CreateObject)
	if create.Class != ast.ScalarTypeClass {
		t.Errorf("got class %s, want SCALAR TYPE", create.Class)
	}

	stmt, err = parser.Parse("", "CREATE LINK PROPERTY weight;")
	if err != nil {
		t.Fatal(err)
	}
	create = stmt.(*ast.CreateObject)
	if create.Class != ast.LinkPropertyClass {
		t.Errorf("got class %s, want LINK PROPERTY", create.Class)
	}
}
