// Copyright 2025 KrakLabs
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
//
// SPDX-License-Identifier: Apache-2.0

package toolregistry

import (
	"context"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/trigram"
)

func registerSearchTools(reg *Registry, res *Resources) {
	reg.register(&Tool{
		Name:        "search_calls",
		Description: "List a function's callers, callees, or both from the call graph.",
		Parameters: []Param{
			{Name: "function", Type: "string", Required: true},
			{Name: "direction", Type: "string"},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			fn := stringParam(params, "function")
			if fn == "" {
				return Fail("function is required"), nil
			}
			direction := stringParam(params, "direction")
			if direction == "" {
				direction = "both"
			}
			out := map[string]any{}
			if direction == "callers" || direction == "both" {
				out["callers"] = res.Index.Callers(fn)
			}
			if direction == "callees" || direction == "both" {
				out["callees"] = res.Index.Callees(fn)
			}
			return Ok(out), nil
		},
	})

	reg.register(&Tool{
		Name:        "search_index",
		Description: "Find symbols matching a name pattern in the code index, with optional type filter and fuzzy matching.",
		Parameters: []Param{
			{Name: "pattern", Type: "string", Required: true},
			{Name: "type", Type: "string"},
			{Name: "fuzzy", Type: "bool"},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			pattern := stringParam(params, "pattern")
			if pattern == "" {
				return Fail("pattern is required"), nil
			}
			typeFilter := stringParam(params, "type")
			fuzzy := boolParam(params, "fuzzy", false)
			lowerPattern := strings.ToLower(pattern)

			var hits []*model.Symbol
			for key, sym := range res.Index.QualifiedSymbols() {
				if !model.IsQualifiedKey(key) {
					continue
				}
				if typeFilter != "" && string(sym.Type) != typeFilter {
					continue
				}
				if strings.Contains(strings.ToLower(sym.Name), lowerPattern) {
					hits = append(hits, sym)
					continue
				}
				if fuzzy {
					score, err := edlib.StringsSimilarity(lowerPattern, strings.ToLower(sym.Name), edlib.Levenshtein)
					if err == nil && score >= 0.75 {
						hits = append(hits, sym)
					}
				}
			}
			sort.Slice(hits, func(i, j int) bool { return hits[i].Name < hits[j].Name })
			if len(hits) > 100 {
				hits = hits[:100]
			}
			return Ok(hits), nil
		},
	})

	reg.register(&Tool{
		Name:        "search_trigram",
		Description: "Substring search over the trigram index.",
		Parameters:  []Param{{Name: "pattern", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			pattern := stringParam(params, "pattern")
			if pattern == "" {
				return Fail("pattern is required"), nil
			}
			matches := res.Trigram.Search(pattern, trigram.SearchOptions{MaxResults: 50})
			return Ok(matches), nil
		},
	})

	reg.register(&Tool{
		Name:        "search_semantic",
		Description: "Semantic search over the vector index's TF-IDF embeddings.",
		Parameters:  []Param{{Name: "query", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			query := stringParam(params, "query")
			if query == "" {
				return Fail("query is required"), nil
			}
			matches := res.Vector.SearchVector(query, 20)
			return Ok(matches), nil
		},
	})

	reg.register(&Tool{
		Name:        "search_code",
		Description: "Combined index + trigram + semantic search across all phases; the preferred tool for implementation queries.",
		Parameters:  []Param{{Name: "query", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			query := stringParam(params, "query")
			if query == "" {
				return Fail("query is required"), nil
			}
			results := res.Pipeline.ComprehensiveSearch(query)
			return Ok(results), nil
		},
	})

	reg.register(&Tool{
		Name:        "get_function_context",
		Description: "Return a function's source (up to 100 lines, detected by indentation for Python and brace depth for C-family), plus its callers and callees.",
		Parameters:  []Param{{Name: "functionName", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			name := stringParam(params, "functionName")
			if name == "" {
				return Fail("functionName is required"), nil
			}
			sym, ok := res.Index.Symbol(name)
			if !ok {
				return Fail("function %q not found in the index", name), nil
			}
			body, _ := res.Content(sym.File)
			return Ok(map[string]any{
				"symbol":  sym,
				"source":  extractFunctionBody(body, sym),
				"callers": res.Index.Callers(sym.Name),
				"callees": res.Index.Callees(sym.Name),
			}), nil
		},
	})

	reg.register(&Tool{
		Name:        "get_symbol_info",
		Description: "Return the full symbol record for a name.",
		Parameters:  []Param{{Name: "symbolName", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			name := stringParam(params, "symbolName")
			sym, ok := res.Index.Symbol(name)
			if !ok {
				return Fail("symbol %q not found", name), nil
			}
			return Ok(sym), nil
		},
	})

	reg.register(&Tool{
		Name:        "get_call_graph",
		Description: "Breadth-first call graph expansion from a function, up to a depth.",
		Parameters: []Param{
			{Name: "functionName", Type: "string", Required: true},
			{Name: "depth", Type: "int"},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			fn := stringParam(params, "functionName")
			if fn == "" {
				return Fail("functionName is required"), nil
			}
			depth := intParam(params, "depth", 3)
			return Ok(bfsCallGraph(res, fn, depth)), nil
		},
	})

	reg.register(&Tool{
		Name:        "list_symbols",
		Description: "List every qualified symbol, optionally filtered by a name prefix.",
		Parameters:  []Param{{Name: "prefix", Type: "string"}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			prefix := stringParam(params, "prefix")
			var names []string
			for key := range res.Index.QualifiedSymbols() {
				if !model.IsQualifiedKey(key) {
					continue
				}
				if prefix == "" || strings.HasPrefix(key, prefix) {
					names = append(names, key)
				}
			}
			sort.Strings(names)
			return Ok(names), nil
		},
	})

	reg.register(&Tool{
		Name:        "analyze_code_structure",
		Description: "Summarize the indexed project's domain, file count, and symbol count.",
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			dom := res.Index.Domain()
			return Ok(map[string]any{
				"domain":      dom,
				"fileCount":   res.Index.FileCount(),
				"symbolCount": res.Index.SymbolCount(),
			}), nil
		},
	})
}

// bfsCallGraph walks callees breadth-first up to depth, returning an
// edge list rather than a nested structure so planner substitution
// ($stepN.edges) stays simple.
func bfsCallGraph(res *Resources, root string, depth int) map[string]any {
	type edge struct {
		From string `json:"from"`
		To   string `json:"to"`
	}
	seen := map[string]bool{root: true}
	frontier := []string{root}
	var edges []edge
	for d := 0; d < depth && len(frontier) > 0; d++ {
		var next []string
		for _, fn := range frontier {
			for _, callee := range res.Index.Callees(fn) {
				edges = append(edges, edge{From: fn, To: callee})
				if !seen[callee] {
					seen[callee] = true
					next = append(next, callee)
				}
			}
		}
		frontier = next
	}
	nodes := make([]string, 0, len(seen))
	for n := range seen {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)
	return map[string]any{"root": root, "nodes": nodes, "edges": edges}
}

// extractFunctionBody detects a function's body by brace depth (C-family)
// or indentation (Python-style), capped at 100 lines (spec §4.13
// "get_function_context").
func extractFunctionBody(content string, sym *model.Symbol) string {
	lines := strings.Split(content, "\n")
	start := sym.Line - 1
	if start < 0 || start >= len(lines) {
		return ""
	}
	const maxLines = 100

	if looksIndentationDelimited(lines, start) {
		indent := leadingWhitespace(lines[start])
		end := start + 1
		for end < len(lines) && end-start < maxLines {
			trimmed := strings.TrimRight(lines[end], " \t")
			if trimmed != "" && len(leadingWhitespace(lines[end])) <= len(indent) {
				break
			}
			end++
		}
		return strings.Join(lines[start:end], "\n")
	}

	depth := 0
	opened := false
	end := start
	for ; end < len(lines) && end-start < maxLines; end++ {
		for _, r := range lines[end] {
			switch r {
			case '{':
				depth++
				opened = true
			case '}':
				depth--
			}
		}
		if opened && depth <= 0 {
			end++
			break
		}
	}
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[start:end], "\n")
}

func looksIndentationDelimited(lines []string, start int) bool {
	return strings.HasSuffix(strings.TrimRight(lines[start], " \t"), ":") && !strings.Contains(lines[start], "{")
}

func leadingWhitespace(s string) string {
	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	return s[:i]
}
