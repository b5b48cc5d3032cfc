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

package scanner

import (
	"fmt"
	"strings"
	"testing"

	"edgeql.org/go/edgeql/token"
)

type elt struct {
	tok token.Token
	lit string
}

func scanAll(t *testing.T, src string) (tokens []elt, errCount int) {
	t.Helper()
	var s Scanner
	eh := func(pos token.Pos, msg string, args ...interface{}) {
		errCount++
		t.Logf("error at %s: %s", pos, fmt.Sprintf(msg, args...))
	}
	s.Init(token.NewFile("test.eql", len(src)), []byte(src), eh, 0)
	for {
		_, tok, lit := s.Scan()
		if tok == token.EOF {
			break
		}
		tokens = append(tokens, elt{tok, lit})
	}
	return tokens, errCount
}

func TestScan(t *testing.T) {
	testCases := []struct {
		src  string
		want []elt
	}{
		{"SELECT User.name;", []elt{
			{token.SELECT, "SELECT"},
			{token.IDENT, "User"},
			{token.PERIOD, ""},
			{token.IDENT, "name"},
			{token.SEMICOLON, ""},
		}},
		{"User.>friends.<owner", []elt{
			{token.IDENT, "User"},
			{token.DOTFW, ""},
			{token.IDENT, "friends"},
			{token.DOTBW, ""},
			{token.IDENT, "owner"},
		}},
		{"a := b :: c : d", []elt{
			{token.IDENT, "a"},
			{token.ASSIGN, ""},
			{token.IDENT, "b"},
			{token.DOUBLECOLON, ""},
			{token.IDENT, "c"},
			{token.COLON, ""},
			{token.IDENT, "d"},
		}},
		{"1 + 2.5 * 3e2 % 4 ^ 5", []elt{
			{token.INT, "1"},
			{token.ADD, ""},
			{token.FLOAT, "2.5"},
			{token.MUL, ""},
			{token.FLOAT, "3e2"},
			{token.REM, ""},
			{token.INT, "4"},
			{token.POW, ""},
			{token.INT, "5"},
		}},
		{"a ?= b ?!= c ?? d", []elt{
			{token.IDENT, "a"},
			{token.COALEQL, ""},
			{token.IDENT, "b"},
			{token.COALNEQ, ""},
			{token.IDENT, "c"},
			{token.DOUBLEQMARK, ""},
			{token.IDENT, "d"},
		}},
		{"x <= y >= z != w -> v", []elt{
			{token.IDENT, "x"},
			{token.LEQ, ""},
			{token.IDENT, "y"},
			{token.GEQ, ""},
			{token.IDENT, "z"},
			{token.NEQ, ""},
			{token.IDENT, "w"},
			{token.ARROW, ""},
			{token.IDENT, "v"},
		}},
		{"$arg $0 $$text$$", []elt{
			{token.ARGUMENT, "$arg"},
			{token.ARGUMENT, "$0"},
			{token.STRING, "$$text$$"},
		}},
		{"'str' \"other\"", []elt{
			{token.STRING, "'str'"},
			{token.STRING, `"other"`},
		}},
		{"@prop [1]", []elt{
			{token.AT, ""},
			{token.IDENT, "prop"},
			{token.LBRACK, ""},
			{token.INT, "1"},
			{token.RBRACK, ""},
		}},
		{"# comment\nx", []elt{
			{token.IDENT, "x"},
		}},
		{"`select`", []elt{
			{token.IDENT, "select"},
		}},
		{"Foo.0.1", []elt{
			{token.IDENT, "Foo"},
			{token.PERIOD, ""},
			{token.FLOAT, "0.1"},
		}},
	}

	for _, tc := range testCases {
		t.Run(strings.ReplaceAll(tc.src, "\n", "_"), func(t *testing.T) {
			got, errCount := scanAll(t, tc.src)
			if errCount != 0 && tc.src != "`select`" {
				t.Fatalf("unexpected scan errors: %d", errCount)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("got %d tokens, want %d: %v", len(got), len(tc.want), got)
			}
			for i, w := range tc.want {
				if got[i].tok != w.tok {
					t.Errorf("token %d: got %s, want %s", i, got[i].tok, w.tok)
				}
				if w.lit != "" && got[i].lit != w.lit {
					t.Errorf("token %d: got lit %q, want %q", i, got[i].lit, w.lit)
				}
			}
		})
	}
}

func TestScanErrors(t *testing.T) {
	testCases := []string{
		"042",     // leading zero
		"1.",      // trailing dot
		"'abc",    // unterminated string
		"!x",      // bare '!'
		"?x",      // bare '?'
		"$ x",     // dollar without a name
		"\x00",    // NUL
	}
	for _, src := range testCases {
		t.Run(src, func(t *testing.T) {
			_, errCount := scanAll(t, src)
			if errCount == 0 {
				t.Errorf("expected a scan error for %q", src)
			}
		})
	}
}

func TestScanPositions(t *testing.T) {
	src := "SELECT\n  User;"
	var s Scanner
	s.Init(token.NewFile("test.eql", len(src)), []byte(src), nil, 0)

	type posTok struct {
		line, col int
		tok       token.Token
	}
	want := []posTok{
		{1, 1, token.SELECT},
		{2, 3, token.IDENT},
		{2, 7, token.SEMICOLON},
	}
	for _, w := range want {
		pos, tok, _ := s.Scan()
		p := pos.Position()
		if p.Line != w.line || p.Column != w.col || tok != w.tok {
			t.Errorf("got %d:%d %s, want %d:%d %s",
				p.Line, p.Column, tok, w.line, w.col, w.tok)
		}
	}
}
