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

package literal

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	errSyntax       = fmt.Errorf("invalid string literal")
	errUnmatchedQuote = fmt.Errorf("unmatched quote")
)

// Unquote interprets s as an EdgeQL string literal, returning the
// string value that s represents. Single- and double-quoted strings
// process escape sequences; dollar-quoted strings ($tag$ ... $tag$)
// are taken verbatim.
func Unquote(s string) (string, error) {
	if len(s) >= 2 && s[0] == '$' {
		end := strings.IndexByte(s[1:], '$')
		if end < 0 {
			return "", errSyntax
		}
		tag := s[:end+2] // includes both '$'s
		if !strings.HasSuffix(s, tag) || len(s) < 2*len(tag) {
			return "", errUnmatchedQuote
		}
		return s[len(tag) : len(s)-len(tag)], nil
	}

	if len(s) < 2 {
		return "", errSyntax
	}
	quote := s[0]
	if quote != '\'' && quote != '"' {
		return "", errSyntax
	}
	if s[len(s)-1] != quote {
		return "", errUnmatchedQuote
	}
	s = s[1 : len(s)-1]

	if !strings.ContainsRune(s, '\\') {
		return s, nil
	}

	var b strings.Builder
	b.Grow(len(s))
	for len(s) > 0 {
		c, multibyte, rest, err := unquoteChar(s, quote)
		if err != nil {
			return "", err
		}
		s = rest
		if c < utf8.RuneSelf || !multibyte {
			b.WriteByte(byte(c))
		} else {
			b.WriteRune(c)
		}
	}
	return b.String(), nil
}

func unquoteChar(s string, quote byte) (value rune, multibyte bool, rest string, err error) {
	if s[0] != '\\' {
		r, size := utf8.DecodeRuneInString(s)
		return r, true, s[size:], nil
	}

	if len(s) < 2 {
		return 0, false, "", errSyntax
	}
	c := s[1]
	s = s[2:]

	switch c {
	case 'a':
		value = '\a'
	case 'b':
		value = '\b'
	case 'f':
		value = '\f'
	case 'n':
		value = '\n'
	case 'r':
		value = '\r'
	case 't':
		value = '\t'
	case 'v':
		value = '\v'
	case '\\':
		value = '\\'
	case quote:
		value = rune(quote)
	case 'x', 'u', 'U':
		n := 2
		if c == 'u' {
			n = 4
		} else if c == 'U' {
			n = 8
		}
		var v rune
		if len(s) < n {
			return 0, false, "", errSyntax
		}
		for j := 0; j < n; j++ {
			x, ok := unhex(s[j])
			if !ok {
				return 0, false, "", errSyntax
			}
			v = v<<4 | x
		}
		s = s[n:]
		if v > utf8.MaxRune || 0xD800 <= v && v < 0xE000 {
			return 0, false, "", fmt.Errorf("escape sequence is invalid Unicode code point")
		}
		value = v
		multibyte = true
	default:
		return 0, false, "", fmt.Errorf("unknown escape sequence \\%c", c)
	}
	return value, multibyte, s, nil
}

func unhex(b byte) (v rune, ok bool) {
	c := rune(b)
	switch {
	case '0' <= c && c <= '9':
		return c - '0', true
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10, true
	case 'A' <= c && c <= 'F':
		return c - 'A' + 10, true
	}
	return
}

// Quote renders s as a single-quoted EdgeQL string literal.
func Quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for _, r := range s {
		switch r {
		case '\'':
			b.WriteString(`\'`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}
