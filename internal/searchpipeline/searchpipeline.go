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

// Package searchpipeline implements SearchPipeline (spec C11): the
// seven-phase comprehensiveSearch that merges and scores hits from the
// inverted-summary, filename/directory, symbol, trigram, grep-fallback,
// vector, call-graph, and fuzzy-symbol phases into one ranked result set.
package searchpipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/hbollon/go-edlib"

	"github.com/kraklabs/astra/internal/classifier"
	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/invertedindex"
	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/pathutil"
	"github.com/kraklabs/astra/internal/trigram"
	"github.com/kraklabs/astra/internal/vectorindex"
)

// Result is one scored hit, keyed conceptually by "file:line" (spec §4.10).
type Result struct {
	File    string
	Line    int
	Name    string
	Type    string
	Source  []string
	Score   float64
	Content string
}

// boosts is the per-query-type multiplier row of spec §4.10's boost table.
type boosts struct {
	summary     float64
	symbol      float64
	trigram     float64
	filenameDir float64
}

var boostTable = map[classifier.QueryType]boosts{
	classifier.TypeConcept:        {2.5, 1.2, 0.5, 1.0},
	classifier.TypeStructure:      {0.5, 3.0, 1.5, 0.8},
	classifier.TypeCallGraph:      {0.8, 2.5, 0.8, 0.5},
	classifier.TypeImplementation: {2.0, 2.5, 1.5, 1.2},
	classifier.TypeFlow:           {2.0, 1.5, 0.8, 1.0},
	classifier.TypeFilesTrace:     {1.5, 1.0, 0.8, 3.0},
	classifier.TypeCrossModule:    {1.0, 2.0, 0.5, 1.5},
	classifier.TypeGeneral:        {1.5, 1.2, 1.5, 1.0},
}

func boostsFor(t classifier.QueryType) boosts {
	if b, ok := boostTable[t]; ok {
		return b
	}
	return boostTable[classifier.TypeGeneral]
}

// Pipeline wires the indexes a query reads (read-only) during search (spec
// §3 "Ownership": "consumed by the SearchPipeline (read-only during
// queries)").
type Pipeline struct {
	Index      *codeindex.Index
	Trigram    *trigram.Index
	Vector     *vectorindex.Index
	Inverted   *invertedindex.Index
	Classifier *classifier.Classifier
}

// New returns a Pipeline over the given singleton indexes.
func New(idx *codeindex.Index, tri *trigram.Index, vec *vectorindex.Index, inv *invertedindex.Index, cls *classifier.Classifier) *Pipeline {
	return &Pipeline{Index: idx, Trigram: tri, Vector: vec, Inverted: inv, Classifier: cls}
}

var callGraphQueryRE = regexp.MustCompile(`(?i)\btrace|flow|calls?|calling|invokes?\b`)

// skipExtensions / skipBuildNames implement spec §4.10's skip-file predicate.
var skipExtensions = map[string]bool{
	".po": true, ".md": true, ".txt": true, ".json": true,
	".yaml": true, ".yml": true, ".css": true,
}

var skipBuildNames = map[string]bool{
	"makefile": true, "cmakelists.txt": true, "meson.build": true,
	"package.json": true, "cargo.toml": true, "tsconfig.json": true,
}

func skipFile(path string, keywords []string) bool {
	base := strings.ToLower(pathutil.Stem(path) + pathutil.Ext(path))
	for _, kw := range keywords {
		if kw != "" && strings.Contains(base, strings.ToLower(kw)) {
			return false
		}
	}
	ext := pathutil.Ext(path)
	if ext != "" && skipExtensions["."+ext] {
		return true
	}
	if skipBuildNames[base] || pathutil.IsBuildFile(path) {
		return true
	}
	return false
}

// ComprehensiveSearch runs the seven phases of spec §4.10 sequentially
// (spec §5: "Within a query, phases 0..7 of SearchPipeline run
// sequentially; there is no interleaving") and returns results sorted by
// descending score.
func (p *Pipeline) ComprehensiveSearch(query string) []Result {
	cls := p.Classifier.Classify(query)

	if cls.Intent != classifier.IntentNone {
		if out, ok := p.resolveIntent(cls); ok {
			return out
		}
	}

	b := boostsFor(cls.Type)
	keywords := cls.ExpandedTerms
	if len(keywords) == 0 {
		keywords = []string{query}
	}

	merged := map[string]*Result{}
	merge := func(key string, r Result) {
		if existing, ok := merged[key]; ok {
			existing.Score += r.Score
			existing.Source = unionSources(existing.Source, r.Source)
			if existing.Name == "" {
				existing.Name = r.Name
			}
			if existing.Type == "" {
				existing.Type = r.Type
			}
			return
		}
		cp := r
		merged[key] = &cp
	}
	keyOf := func(file string, line int) string { return file + ":" + itoa(line) }

	// Phase 0: inverted-summary / concept.
	p.phaseSummary(query, keywords, b.summary, merge, keyOf)

	// Phase 1: filename & directory match.
	p.phaseFilenameDir(keywords, cls, b.filenameDir, merge, keyOf)

	// Phase 2: symbol exact/partial.
	p.phaseSymbol(keywords, b.symbol, merge, keyOf)

	// Phase 3: trigram.
	p.phaseTrigram(keywords, b.trigram, merge, keyOf)

	// Phase 4: grep fallback (only runs when no trigram index is present).
	if p.Trigram == nil || p.Trigram.FileCount() == 0 {
		p.phaseGrepFallback(keywords, merge, keyOf)
	}

	// Phase 5: vector.
	p.phaseVector(query, merge, keyOf)

	// Phase 6: call-graph traversal.
	if callGraphQueryRE.MatchString(query) {
		p.phaseCallGraph(keywords, merge, keyOf)
	}

	out := make([]Result, 0, len(merged))
	for _, r := range merged {
		out = append(out, *r)
	}

	// Phase 7: fuzzy symbol search, last resort only if results are sparse.
	if len(out) < 5 {
		out = append(out, p.phaseFuzzy(keywords, out)...)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// resolveIntent answers the specialized COBOL intents directly from the
// classifier's precomputed indexes (spec §4.9: "Specialized COBOL intents
// route directly to precomputed indexes ... and short-circuit normal
// search"), bypassing the seven search phases entirely. The bool return is
// false when the intent has no matching precomputed data (e.g. an unknown
// module name), so the caller falls back to normal search.
func (p *Pipeline) resolveIntent(cls classifier.Classification) ([]Result, bool) {
	module := ""
	if len(cls.ModuleHints) > 0 {
		module = cls.ModuleHints[0]
	} else if len(cls.Entities) > 0 {
		module = cls.Entities[0]
	}

	switch cls.Intent {
	case classifier.IntentListTablesInModule:
		if module == "" {
			return nil, false
		}
		refs := p.Classifier.TablesInModule(module)
		if len(refs) == 0 {
			return nil, false
		}
		return tableRefResults(refs, "table"), true

	case classifier.IntentListAllTables:
		refs := p.Classifier.AllTables()
		if len(refs) == 0 {
			return nil, false
		}
		return tableRefResults(refs, "table"), true

	case classifier.IntentListSQLTables:
		refs := p.Classifier.SQLTables()
		if len(refs) == 0 {
			return nil, false
		}
		return tableRefResults(refs, "sql_table"), true

	case classifier.IntentModuleOverview:
		if module == "" {
			return nil, false
		}
		ov, ok := p.Classifier.ModuleOverview(module)
		if !ok {
			return nil, false
		}
		return moduleOverviewResults(ov), true
	}

	// The remaining COBOL intents (FIND_DEFINITION, FIND_CALLERS, ...) share
	// shape with general symbol/call-graph lookups and fall through to the
	// normal phased search instead of a dedicated precomputed index.
	return nil, false
}

func tableRefResults(refs []classifier.TableRef, typ string) []Result {
	out := make([]Result, 0, len(refs))
	for _, r := range refs {
		out = append(out, Result{
			File: r.File, Line: r.Line, Name: r.Name, Type: typ,
			Source: []string{"cobol_index"}, Score: 10.0,
			Content: r.Module,
		})
	}
	return out
}

func moduleOverviewResults(ov classifier.ModuleOverview) []Result {
	out := make([]Result, 0, len(ov.Files))
	for _, f := range ov.Files {
		out = append(out, Result{
			File: f, Line: 0, Name: ov.Module, Type: "module_overview",
			Source: []string{"cobol_index"}, Score: 10.0,
			Content: fmt.Sprintf("programs=%d sections=%d paragraphs=%d data_items=%d",
				len(ov.Programs), ov.Sections, ov.Paragraphs, ov.DataItems),
		})
	}
	return out
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

func unionSources(a, b []string) []string {
	seen := map[string]bool{}
	for _, s := range a {
		seen[s] = true
	}
	out := append([]string{}, a...)
	for _, s := range b {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// phaseSummary is phase 0: base score 2.0 + 0.3*rawScore (spec §4.10).
func (p *Pipeline) phaseSummary(query string, keywords []string, boost float64, merge func(string, Result), keyOf func(string, int) string) {
	if p.Inverted == nil {
		return
	}
	seen := map[string]bool{}
	queries := append([]string{query}, keywords...)
	for _, q := range queries {
		for _, e := range p.Inverted.SearchConcept(q, 20) {
			dedupKey := e.Symbol + "@" + e.File
			if seen[dedupKey] {
				continue
			}
			seen[dedupKey] = true
			score := (2.0 + 0.3*e.Score) * boost
			merge(keyOf(e.File, e.Line), Result{
				File: e.File, Line: e.Line, Name: e.Symbol, Type: "summary",
				Source: []string{"summary"}, Score: score,
			})
		}
	}
}

// phaseFilenameDir is phase 1: filename/directory matches plus FILES_TRACE
// intent results (spec §4.10).
func (p *Pipeline) phaseFilenameDir(keywords []string, cls classifier.Classification, boost float64, merge func(string, Result), keyOf func(string, int) string) {
	files := p.Index.AllFiles()
	for path := range files {
		dir := pathutil.Dir(path)
		stem := pathutil.Stem(path)
		segments := pathutil.Segments(path)
		for _, kw := range keywords {
			lkw := strings.ToLower(kw)
			if lkw == "" {
				continue
			}
			var score float64
			switch {
			case strings.Contains(strings.ToLower(dir), lkw):
				score = 1.7 * boost
			case strings.Contains(strings.ToLower(stem), lkw):
				score = 1.45 * boost
			case pathutil.CommonPrefixLen(strings.ToLower(stem), lkw) >= 4:
				score = 1.4 * boost
			default:
				for _, seg := range segments {
					if strings.Contains(strings.ToLower(seg), lkw) {
						score = 1.0 * boost
						break
					}
				}
			}
			if score > 0 {
				merge(keyOf(path, 1), Result{
					File: path, Line: 1, Name: stem, Type: "file",
					Source: []string{"filename"}, Score: score,
				})
			}
		}
	}
	if cls.Type == classifier.TypeFilesTrace {
		for path := range files {
			merge(keyOf(path, 1), Result{
				File: path, Line: 1, Name: pathutil.Stem(path), Type: "file",
				Source: []string{"files_trace"}, Score: 1.5,
			})
		}
	}
}

// phaseSymbol is phase 2: exact (1.3) / partial substring len>=3 (1.0)
// symbol-name matches (spec §4.10).
func (p *Pipeline) phaseSymbol(keywords []string, boost float64, merge func(string, Result), keyOf func(string, int) string) {
	for _, sym := range p.Index.QualifiedSymbols() {
		lname := strings.ToLower(sym.Name)
		for _, kw := range keywords {
			lkw := strings.ToLower(kw)
			if lkw == "" {
				continue
			}
			var score float64
			if lname == lkw {
				score = 1.3 * boost
			} else if len(lkw) >= 3 && strings.Contains(lname, lkw) {
				score = 1.0 * boost
			}
			if score > 0 {
				merge(keyOf(sym.File, sym.Line), Result{
					File: sym.File, Line: sym.Line, Name: sym.Name, Type: string(sym.Type),
					Source: []string{"symbol"}, Score: score,
				})
				break
			}
		}
	}
}

// phaseTrigram is phase 3: the top-3 keywords with len>=3, base 0.8 (spec
// §4.10).
func (p *Pipeline) phaseTrigram(keywords []string, boost float64, merge func(string, Result), keyOf func(string, int) string) {
	if p.Trigram == nil {
		return
	}
	count := 0
	for _, kw := range keywords {
		if len(kw) < 3 {
			continue
		}
		if count >= 3 {
			break
		}
		count++
		matches := p.Trigram.Search(kw, trigram.SearchOptions{MaxResults: 20, ContextChars: 80})
		for _, m := range matches {
			merge(keyOf(m.File, m.Line), Result{
				File: m.File, Line: m.Line, Name: kw, Type: "trigram",
				Source: []string{"trigram"}, Score: 0.8 * boost, Content: m.Context,
			})
		}
	}
}

// phaseGrepFallback is phase 4: a linear scan when the trigram index is
// absent, base score 0.6 (spec §4.10). It only finds anything for files
// whose content happens to still be held by the trigram index's content
// store (e.g. a lightweight-only build); with no content source at all
// there is nothing in-process to scan.
func (p *Pipeline) phaseGrepFallback(keywords []string, merge func(string, Result), keyOf func(string, int) string) {
	if p.Trigram == nil {
		return
	}
	for _, path := range p.Trigram.Paths() {
		if skipFile(path, keywords) {
			continue
		}
		content, ok := p.Trigram.Content(path)
		if !ok {
			continue
		}
		lines := strings.Split(content, "\n")
		for _, kw := range keywords {
			lkw := strings.ToLower(kw)
			if len(lkw) < 3 {
				continue
			}
			for i, line := range lines {
				if strings.Contains(strings.ToLower(line), lkw) {
					merge(keyOf(path, i+1), Result{
						File: path, Line: i + 1, Name: kw, Type: "grep",
						Source: []string{"grep"}, Score: 0.6, Content: line,
					})
				}
			}
		}
	}
}

// phaseVector is phase 5: hybrid top-20 vector search, base 0.5 +
// similarity*0.5 (spec §4.10).
func (p *Pipeline) phaseVector(query string, merge func(string, Result), keyOf func(string, int) string) {
	if p.Vector == nil {
		return
	}
	for _, m := range p.Vector.SearchVector(query, 20) {
		score := 0.5 + float64(m.Similarity)*0.5
		merge(keyOf(m.Chunk.File, m.Chunk.StartLine), Result{
			File: m.Chunk.File, Line: m.Chunk.StartLine, Name: m.Chunk.SymbolName, Type: "vector",
			Source: []string{"vector"}, Score: score, Content: m.Chunk.Text,
		})
	}
}

// phaseCallGraph is phase 6: direct callees/callers of exact-symbol
// keywords, base 0.7 (spec §4.10), only run for trace/flow/call-style
// queries.
func (p *Pipeline) phaseCallGraph(keywords []string, merge func(string, Result), keyOf func(string, int) string) {
	for _, kw := range keywords {
		sym, ok := p.Index.Symbol(kw)
		if !ok || !model.IsCallable(sym.Type) {
			continue
		}
		for _, callee := range p.Index.Callees(kw) {
			if cs, ok := p.Index.Symbol(callee); ok {
				merge(keyOf(cs.File, cs.Line), Result{
					File: cs.File, Line: cs.Line, Name: cs.Name, Type: string(cs.Type),
					Source: []string{"call_graph"}, Score: 0.7,
				})
			}
		}
		for _, caller := range p.Index.Callers(kw) {
			if cs, ok := p.Index.Symbol(caller); ok {
				merge(keyOf(cs.File, cs.Line), Result{
					File: cs.File, Line: cs.Line, Name: cs.Name, Type: string(cs.Type),
					Source: []string{"call_graph"}, Score: 0.7,
				})
			}
		}
	}
}

// phaseFuzzy is phase 7: fuzzy symbol matching as a last resort when
// results are sparse (spec §4.10), scored as min(similarity*0.5, 0.4), where
// similarity is edlib's normalized Levenshtein similarity in [0,1] (the
// score/100*0.5 normalization for a similarity expressed out of 100).
func (p *Pipeline) phaseFuzzy(keywords []string, existing []Result) []Result {
	already := map[string]bool{}
	for _, r := range existing {
		already[r.File+":"+itoa(r.Line)] = true
	}
	var out []Result
	for _, sym := range p.Index.QualifiedSymbols() {
		best := 0.0
		for _, kw := range keywords {
			if kw == "" {
				continue
			}
			sim, err := edlib.StringsSimilarity(strings.ToLower(sym.Name), strings.ToLower(kw), edlib.Levenshtein)
			if err != nil {
				continue
			}
			s := float64(sim)
			if s > best {
				best = s
			}
		}
		if best <= 0 {
			continue
		}
		score := best * 0.5
		if score > 0.4 {
			score = 0.4
		}
		key := sym.File + ":" + itoa(sym.Line)
		if already[key] || score <= 0 {
			continue
		}
		already[key] = true
		out = append(out, Result{
			File: sym.File, Line: sym.Line, Name: sym.Name, Type: string(sym.Type),
			Source: []string{"fuzzy"}, Score: score,
		})
	}
	return out
}
