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

package codeindex

import (
	"runtime"
	"sort"
	"time"

	"github.com/kraklabs/astra/internal/indexstate"
	"github.com/kraklabs/astra/internal/langdetect"
	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/parser"
	"github.com/kraklabs/astra/internal/taskcontrol"
	"github.com/kraklabs/astra/internal/tokenize"
)

// BatchSize is how many files buildAsync processes before yielding to the
// scheduler (spec §4.2: "yielding to the scheduler every BATCH_SIZE files").
const BatchSize = 50

// Lightweight caps (spec §4.2: "caps symbols and variables per file (e.g.
// 500/100) and skips call-graph construction for files > 50 KB").
const (
	LightweightMaxSymbols   = 500
	LightweightMaxVariables = 100
	LightweightCallGraphMax = 50 * 1024
)

// FileInput is one source file handed to a build, already read from disk.
type FileInput struct {
	Path     string
	Content  []byte
	Language string // detected by the caller; Unknown is skipped
}

// BuildOptions configures BuildAsync.
type BuildOptions struct {
	Lightweight  bool
	ForceRebuild bool
}

// BuildSync indexes a small file set (≤ BatchSize) synchronously, with no
// yielding and no progress events (spec §4.2: "buildSync(contextFiles) for
// small sets").
func (idx *Index) BuildSync(inputs []FileInput, reg *parser.Registry) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	for _, in := range inputs {
		idx.ingestFileLocked(in, reg, false)
	}
	idx.secondPassLocked()
	idx.lastUpdated = time.Now()
}

// BuildAsync indexes a large file set, yielding to the scheduler every
// BatchSize files, honoring cancellation at each yield point, and emitting
// progress events through onProgress (spec §4.2).
func (idx *Index) BuildAsync(
	inputs []FileInput,
	reg *parser.Registry,
	opts BuildOptions,
	tc *taskcontrol.Controller,
	onProgress func(indexstate.Event),
) error {
	if opts.ForceRebuild {
		idx.Clear()
	}

	total := len(inputs)
	for i, in := range inputs {
		if tc != nil {
			if err := tc.CheckPoint(); err != nil {
				return err
			}
		}

		idx.mu.Lock()
		idx.ingestFileLocked(in, reg, opts.Lightweight)
		symbolCount := len(idx.symbols)
		idx.mu.Unlock()

		if (i+1)%BatchSize == 0 || i == total-1 {
			if onProgress != nil {
				pct := 0
				if total > 0 {
					pct = ((i + 1) * 100) / total
				}
				onProgress(indexstate.Event{
					Phase:   indexstate.Parsing,
					Percent: pct,
					Counters: indexstate.Counters{
						FilesIndexed: i + 1,
						SymbolsFound: symbolCount,
					},
				})
			}
			runtime.Gosched()
		}
	}

	idx.mu.Lock()
	idx.secondPassLocked()
	idx.lastUpdated = time.Now()
	counters := indexstate.Counters{FilesIndexed: len(idx.files), SymbolsFound: len(idx.symbols)}
	idx.mu.Unlock()

	if onProgress != nil {
		onProgress(indexstate.Event{Phase: indexstate.Symbols, Percent: 100, Counters: counters})
	}
	return nil
}

// ingestFileLocked parses one file and folds its symbols, dependencies, and
// call edges into the index. Callers must hold idx.mu.
func (idx *Index) ingestFileLocked(in FileInput, reg *parser.Registry, lightweight bool) {
	if in.Language == "" || in.Language == langdetect.Unknown {
		return
	}
	result, err := reg.Parse(in.Path, in.Content, in.Language)
	if err != nil || result == nil {
		return
	}

	rec := result.File
	rec.Path = in.Path
	symbols := rec.Symbols

	if lightweight && len(symbols) > LightweightMaxSymbols {
		symbols = symbols[:LightweightMaxSymbols]
	}
	rec.Symbols = symbols
	idx.files[in.Path] = &rec

	for i := range symbols {
		sym := symbols[i]
		sym.File = in.Path
		key := sym.Key()
		idx.symbols[key] = &sym
		idx.symbols[sym.Name] = &sym // last-writer-wins bare alias
	}

	if len(result.Dependencies) > 0 {
		set := idx.dependencies[in.Path]
		if set == nil {
			set = map[string]bool{}
			idx.dependencies[in.Path] = set
		}
		for _, d := range result.Dependencies {
			set[d] = true
		}
	}

	skipCallGraph := lightweight && len(in.Content) > LightweightCallGraphMax
	if !skipCallGraph {
		for _, edge := range result.Calls {
			idx.addCallEdgeLocked(edge.Caller, edge.Callee)
		}
	}
}

// secondPassLocked computes variable accesses for every tracked variable
// symbol across its declaring file (spec §4.3). Callers must hold idx.mu.
func (idx *Index) secondPassLocked() {
	for _, rec := range idx.files {
		for _, sym := range rec.Symbols {
			if sym.Type != model.Variable && sym.Type != model.Field {
				continue
			}
			key := sym.Key()
			if _, exists := idx.variables[key]; exists {
				continue
			}
			idx.variables[key] = &model.VariableInfo{Symbol: sym}
		}
	}
}

// TrackVariableAccesses scans path's content for the occurrences of its
// declared variables (outside each declaration line) and classifies each as
// a read or write, per the language-specific assignment patterns in spec
// §4.3. Only the first LightweightMaxVariables variables of a file are
// scanned, whether or not the build was lightweight. It is invoked by the indexing orchestrator once raw file content is
// available (the second pass proper; secondPassLocked above only seeds the
// VariableInfo entries from declarations).
func (idx *Index) TrackVariableAccesses(path, content, language string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rec, ok := idx.files[path]
	if !ok {
		return
	}
	lines := splitLines(content)

	tracked := 0
	for _, sym := range rec.Symbols {
		if sym.Type != model.Variable && sym.Type != model.Field {
			continue
		}
		if tracked >= LightweightMaxVariables {
			break
		}
		tracked++
		key := sym.Key()
		info, ok := idx.variables[key]
		if !ok {
			info = &model.VariableInfo{Symbol: sym}
			idx.variables[key] = info
		}
		info.Accesses = scanAccesses(sym, lines, language)
	}
}

func scanAccesses(sym model.Symbol, lines []string, language string) []model.VariableAccess {
	var out []model.VariableAccess
	re := variableWordRE(sym.Name)
	for i, line := range lines {
		lineNo := i + 1
		if lineNo == sym.Line {
			continue
		}
		if !re.MatchString(line) {
			continue
		}
		typ := model.AccessRead
		if isWriteContext(line, sym.Name, language) {
			typ = model.AccessWrite
		}
		ctx := line
		if len(ctx) > 80 {
			ctx = ctx[:80]
		}
		out = append(out, model.VariableAccess{File: sym.File, Line: lineNo, Type: typ, Context: ctx})
	}
	return out
}

func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	var lines []string
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			lines = append(lines, content[start:i])
			start = i + 1
		}
	}
	lines = append(lines, content[start:])
	return lines
}

// DiscoverDomain derives a domain fingerprint from the indexed files and
// symbols: language histogram, top-30 weighted non-stopword symbol-name
// tokens, and top-15 directories by file count (spec §4.2).
func (idx *Index) DiscoverDomain() *model.DomainFingerprint {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	languages := map[string]int{}
	termFreq := map[string]int{}

	for _, rec := range idx.files {
		if rec.Language != "" {
			languages[rec.Language]++
		}
		for _, sym := range rec.Symbols {
			for _, tok := range tokenize.Split(sym.Name) {
				if tokenize.Stopwords[tok] {
					continue
				}
				termFreq[tok]++
			}
		}
	}

	keyTerms := topTerms(termFreq, 30)
	modules := topDirectories(idx.files, 15)
	fp := &model.DomainFingerprint{
		Languages:   languages,
		KeyTerms:    keyTerms,
		Modules:     modules,
		Description: describeDomain(languages, keyTerms),
	}
	idx.domain = fp
	return fp
}

func topTerms(freq map[string]int, n int) []string {
	type kv struct {
		k string
		v int
	}
	list := make([]kv, 0, len(freq))
	for k, v := range freq {
		list = append(list, kv{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].v != list[j].v {
			return list[i].v > list[j].v
		}
		return list[i].k < list[j].k
	})
	if len(list) > n {
		list = list[:n]
	}
	out := make([]string, len(list))
	for i, e := range list {
		out[i] = e.k
	}
	return out
}
