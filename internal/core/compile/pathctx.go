// Copyright 2020 The EdgeQL Authors
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

package compile

import (
	"sort"

	"edgeql.org/go/edgeql/errors"
	"edgeql.org/go/edgeql/token"
	"edgeql.org/go/internal/core/inference"
	"edgeql.org/go/internal/core/ir"
)

// registerPathScope records the path id, and all of its prefixes, in
// the current scope fence, the traced scope, and the statement-local
// scope. Paths grouped over by the enclosing GROUP statement are
// skipped: their grouping binding is the only visible one.
func registerPathScope(ctx *context, pid ir.PathId) {
	if ctx.PathAsType || !pid.IsValid() {
		return
	}
	for _, prefix := range pid.Prefixes() {
		if startsAnyOf(prefix, ctx.GroupPaths) {
			continue
		}
		if ctx.PathScope != nil {
			ctx.PathScope.Add(prefix)
		}
		if ctx.TracedPathScope != nil {
			ctx.TracedPathScope[prefix.Key()] = prefix
		}
		ctx.StmtLocalPathScope[prefix.Key()] = prefix
	}
}

func startsAnyOf(pid ir.PathId, keys map[string]bool) bool {
	if len(keys) == 0 {
		return false
	}
	for _, prefix := range pid.Prefixes() {
		if keys[prefix.Key()] {
			return true
		}
	}
	return false
}

// tracedPaths returns the traced scope collected so far, sorted for
// determinism.
func tracedPaths(ctx *context) []ir.PathId {
	keys := make([]string, 0, len(ctx.TracedPathScope))
	for k := range ctx.TracedPathScope {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]ir.PathId, len(keys))
	for i, k := range keys {
		out[i] = ctx.TracedPathScope[k]
	}
	return out
}

// localScopeSets returns the canonical sets of the statement-local
// scope.
func localScopeSets(ctx *context) []*ir.Set {
	keys := make([]string, 0, len(ctx.StmtLocalPathScope))
	for k := range ctx.StmtLocalPathScope {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []*ir.Set
	for _, k := range keys {
		if s, ok := ctx.Sets[k]; ok {
			out = append(out, s)
		}
	}
	return out
}

// enforceSingleton verifies that expr cannot return more than one
// element in the current scope.
func enforceSingleton(ctx *context, expr ir.Expr, pos token.Pos) errors.Error {
	card := inference.Cardinality(expr, ctx.Singletons, ctx.c.schema)
	if card != inference.One {
		return errors.NewKindf(errors.CardinalityKind, pos,
			"possibly more than one element returned by an expression "+
				"where only singletons are allowed")
	}
	return nil
}

// updateSingletons records every path prefix reachable from expr as a
// known singleton for the enclosing scope. Type filters mark their
// argument singular as well.
func updateSingletons(ctx *context, expr ir.Expr) {
	for _, s := range extractPrefixes(expr, ctx.GroupPaths) {
		ctx.Singletons.Add(s.PathID)
		if tf, ok := s.Expr.(*ir.TypeFilter); ok {
			ctx.Singletons.Add(tf.Expr.PathID)
		}
	}
}

// extractPrefixes collects the sets referenced by expr, excluding
// nested statements and sets whose path id is listed in exclude.
func extractPrefixes(expr ir.Expr, exclude map[string]bool) []*ir.Set {
	var out []*ir.Set
	seen := map[*ir.Set]bool{}
	ir.WalkNoStmt(expr, func(n ir.Node) bool {
		s, ok := n.(*ir.Set)
		if !ok {
			return true
		}
		if seen[s] || exclude[s.PathID.Key()] {
			return true
		}
		seen[s] = true
		out = append(out, s)
		return true
	})
	return out
}
