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

	"github.com/cockroachdb/apd/v3"
	"github.com/go-quicktest/qt"
)

func TestParseNum(t *testing.T) {
	testCases := []struct {
		in    string
		isInt bool
		str   string
		err   bool
	}{
		{in: "0", isInt: true, str: "0"},
		{in: "42", isInt: true, str: "42"},
		{in: "123456789012345678901234567", isInt: true, str: "123456789012345678901234567"},
		{in: "3.14", str: "3.14"},
		{in: "0.5", str: "0.5"},
		{in: "1e3", str: "1000"},
		{in: "1.5e-2", str: "0.015"},
		{in: "1E3", str: "1000"},
		{in: "042", err: true},
		{in: "1.", err: true},
		{in: "1.e3", err: true},
		{in: "1e", err: true},
		{in: "1e+", err: true},
		{in: "", err: true},
		{in: "abc", err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			var n NumInfo
			err := ParseNum(tc.in, &n)
			if tc.err {
				qt.Assert(t, qt.IsNotNil(err))
				return
			}
			qt.Assert(t, qt.IsNil(err))
			qt.Assert(t, qt.Equals(n.IsInt(), tc.isInt))
			qt.Assert(t, qt.Equals(n.String(), tc.in))

			want, _, werr := apd.NewFromString(tc.str)
			qt.Assert(t, qt.IsNil(werr))
			qt.Assert(t, qt.Equals(n.Decimal().Cmp(want), 0))
		})
	}
}

func TestInt64(t *testing.T) {
	var n NumInfo
	qt.Assert(t, qt.IsNil(ParseNum("42", &n)))
	v, err := n.Int64()
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(v, int64(42)))

	qt.Assert(t, qt.IsNil(ParseNum("3.5", &n)))
	_, err = n.Int64()
	qt.Assert(t, qt.IsNotNil(err))
}
