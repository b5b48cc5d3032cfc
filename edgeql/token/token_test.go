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

package token

import "testing"

func TestPrecedenceLadder(t *testing.T) {
	// Loosest to tightest; every pair must be strictly ordered.
	ladder := [][]Token{
		{UNION},
		{IF},
		{OR},
		{AND},
		{EQL, NEQ, LSS, GTR, LEQ, GEQ, COALEQL, COALNEQ},
		{IN, NOTIN},
		{LIKE, ILIKE},
		{IS, ISNOT},
		{ADD, SUB},
		{DOUBLEQMARK},
		{MUL, QUO, REM},
		{POW},
	}
	for i := 1; i < len(ladder); i++ {
		for _, lo := range ladder[i-1] {
			for _, hi := range ladder[i] {
				if lo.Precedence() >= hi.Precedence() {
					t.Errorf("%s (prec %d) should bind looser than %s (prec %d)",
						lo, lo.Precedence(), hi, hi.Precedence())
				}
			}
		}
	}
}

func TestCoalescePrecedence(t *testing.T) {
	// ?? binds tighter than IF...ELSE and additive operators, looser
	// than multiplicative ones.
	if DOUBLEQMARK.Precedence() <= IF.Precedence() {
		t.Error("?? must bind tighter than IF...ELSE")
	}
	if DOUBLEQMARK.Precedence() <= ADD.Precedence() {
		t.Error("?? must bind tighter than +")
	}
	if DOUBLEQMARK.Precedence() >= MUL.Precedence() {
		t.Error("?? must bind looser than *")
	}
}

func TestRightAssociativity(t *testing.T) {
	for _, tok := range []Token{IF, DOUBLEQMARK, POW} {
		if !tok.IsRightAssoc() {
			t.Errorf("%s should be right-associative", tok)
		}
	}
	for _, tok := range []Token{UNION, ADD, MUL, AND, OR} {
		if tok.IsRightAssoc() {
			t.Errorf("%s should be left-associative", tok)
		}
	}
}

func TestLookup(t *testing.T) {
	testCases := []struct {
		in   string
		want Token
	}{
		{"select", SELECT},
		{"SELECT", SELECT},
		{"Select", SELECT},
		{"union", UNION},
		{"module", WITHMODULE},
		{"User", IDENT},
		{"name", IDENT},
	}
	for _, tc := range testCases {
		if got := Lookup(tc.in); got != tc.want {
			t.Errorf("Lookup(%q) = %s; want %s", tc.in, got, tc.want)
		}
	}
}

func TestIsReserved(t *testing.T) {
	for _, name := range []string{"select", "union", "filter", "exists"} {
		if !IsReserved(name) {
			t.Errorf("%q should be reserved", name)
		}
	}
	// Unreserved keywords double as identifiers.
	for _, name := range []string{"asc", "desc", "first", "last", "empty", "into", "using", "User"} {
		if IsReserved(name) {
			t.Errorf("%q should not be reserved", name)
		}
	}
}

func TestTokenString(t *testing.T) {
	testCases := []struct {
		tok  Token
		want string
	}{
		{ADD, "+"},
		{ASSIGN, ":="},
		{DOTFW, ".>"},
		{DOTBW, ".<"},
		{DOUBLECOLON, "::"},
		{DOUBLEQMARK, "??"},
		{COALEQL, "?="},
		{COALNEQ, "?!="},
		{ISNOT, "IS NOT"},
		{NOTIN, "NOT IN"},
		{SELECT, "SELECT"},
	}
	for _, tc := range testCases {
		if got := tc.tok.String(); got != tc.want {
			t.Errorf("Token(%d).String() = %q; want %q", tc.tok, got, tc.want)
		}
	}
}
