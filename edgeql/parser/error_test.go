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
	"strings"
	"testing"

	"github.com/rogpeppe/go-internal/txtar"

	"edgeql.org/go/edgeql/parser"
)

// TestErrorCorpus runs the parse-error archive: every .eql file must
// fail to parse with a message containing the sibling .want fragment.
func TestErrorCorpus(t *testing.T) {
	archive, err := txtar.ParseFile("testdata/errors.txtar")
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{}
	inputs := map[string]string{}
	for _, f := range archive.Files {
		switch {
		case strings.HasSuffix(f.Name, ".eql"):
			inputs[strings.TrimSuffix(f.Name, ".eql")] = string(f.Data)
		case strings.HasSuffix(f.Name, ".want"):
			want[strings.TrimSuffix(f.Name, ".want")] = strings.TrimSpace(string(f.Data))
		}
	}

	for name, src := range inputs {
		t.Run(name, func(t *testing.T) {
			fragment, ok := want[name]
			if !ok {
				t.Fatalf("missing .want entry for %s", name)
			}
			_, err := parser.Parse(name+".eql", src, parser.AllErrors)
			if err == nil {
				t.Fatalf("expected a parse error for %q", src)
			}
			if !strings.Contains(err.Error(), fragment) {
				t.Errorf("error %q does not contain %q", err.Error(), fragment)
			}
		})
	}
}
