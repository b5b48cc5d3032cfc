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
	"testing"

	"github.com/go-quicktest/qt"
)

func TestUnquote(t *testing.T) {
	testCases := []struct {
		in   string
		want string
		err  bool
	}{
		{in: `'abc'`, want: "abc"},
		{in: `"abc"`, want: "abc"},
		{in: `''`, want: ""},
		{in: `'a\'b'`, want: "a'b"},
		{in: `"a\"b"`, want: `a"b`},
		{in: `'a\nb'`, want: "a\nb"},
		{in: `'a\tb'`, want: "a\tb"},
		{in: `'a\\b'`, want: `a\b`},
		{in: `'\x41'`, want: "A"},
		{in: `'é'`, want: "é"},
		{in: `$$raw \n string$$`, want: `raw \n string`},
		{in: `$tag$nested $$ dollars$tag$`, want: "nested $$ dollars"},
		{in: `'abc`, err: true},
		{in: `'a\qb'`, err: true},
		{in: `$$abc`, err: true},
		{in: `x`, err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Unquote(tc.in)
			if tc.err {
				qt.Assert(t, qt.IsNotNil(err))
				return
			}
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(got, tc.want))
		})
	}
}

func TestQuoteRoundTrip(t *testing.T) {
	for _, s := range []string{"", "abc", "a'b", `a\b`, "line\nbreak", "tab\there"} {
		got, err := Unquote(Quote(s))
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(got, s))
	}
}
