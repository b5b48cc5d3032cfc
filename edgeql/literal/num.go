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

// Package literal implements conversions of EdgeQL literal source text
// to and from Go values.
package literal

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

var baseContext = apd.BaseContext.WithPrecision(34)

// NumInfo contains information about a parsed numeric literal.
type NumInfo struct {
	src     string
	isFloat bool
	dec     apd.Decimal
}

// String returns the original source representation of the number.
func (n *NumInfo) String() string { return n.src }

// IsInt reports whether the literal is an integer literal.
func (n *NumInfo) IsInt() bool { return !n.isFloat }

// Decimal returns the value of the literal as an arbitrary-precision
// decimal.
func (n *NumInfo) Decimal() *apd.Decimal { return &n.dec }

// Int64 returns the value as an int64. It reports an error for float
// literals and on overflow.
func (n *NumInfo) Int64() (int64, error) {
	if n.isFloat {
		return 0, fmt.Errorf("%s is not an integer literal", n.src)
	}
	return n.dec.Int64()
}

// Float64 returns the value as a float64.
func (n *NumInfo) Float64() (float64, error) {
	return n.dec.Float64()
}

// ParseNum parses s as an EdgeQL numeric literal and stores the result
// in n. Integer literals may not have redundant leading zeros and a
// fraction requires digits on both sides of the decimal point.
func ParseNum(s string, n *NumInfo) error {
	*n = NumInfo{src: s}

	if s == "" {
		return fmt.Errorf("invalid number: empty literal")
	}

	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return fmt.Errorf("invalid number %q", s)
	}
	if s[0] == '0' && i > 1 {
		return fmt.Errorf("invalid number %q: leading zeros are not allowed", s)
	}

	if i < len(s) {
		n.isFloat = true
		switch s[i] {
		case '.':
			i++
			if i == len(s) || s[i] < '0' || s[i] > '9' {
				return fmt.Errorf("invalid number %q: expected digit after '.'", s)
			}
			for i < len(s) && s[i] >= '0' && s[i] <= '9' {
				i++
			}
			if i < len(s) && (s[i] == 'e' || s[i] == 'E') {
				if err := parseExponent(s, i); err != nil {
					return err
				}
				i = len(s)
			}
		case 'e', 'E':
			if err := parseExponent(s, i); err != nil {
				return err
			}
			i = len(s)
		default:
			return fmt.Errorf("invalid number %q", s)
		}
		if i != len(s) {
			return fmt.Errorf("invalid number %q", s)
		}
	}

	if _, _, err := baseContext.SetString(&n.dec, s); err != nil {
		return fmt.Errorf("invalid number %q: %v", s, err)
	}
	return nil
}

func parseExponent(s string, i int) error {
	i++ // consume 'e'
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	if i == len(s) {
		return fmt.Errorf("invalid number %q: exponent has no digits", s)
	}
	for ; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return fmt.Errorf("invalid number %q", s)
		}
	}
	return nil
}
