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

// Package invertedindex implements InvertedSummaryIndex (spec C7): a
// term -> symbol-occurrence index built from symbol names and their
// summaries, used for concept-level search over what the code does rather
// than what it is named.
package invertedindex

import (
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/astra/internal/tokenize"
)

// Entry is one (term -> symbol occurrence) posting (spec §3).
type Entry struct {
	Symbol string
	File   string
	Line   int
	Score  float64
}

// Document is one source document folded into the index: a symbol's name
// plus its summary (spec §4.8: "Built from every (symbol.name + ' ' +
// summary) document").
type Document struct {
	Symbol  string
	File    string
	Line    int
	Summary string
}

// Index is the InvertedSummaryIndex singleton.
type Index struct {
	mu    sync.RWMutex
	terms map[string][]Entry
}

// New returns an empty inverted summary index.
func New() *Index {
	return &Index{terms: map[string][]Entry{}}
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.terms = map[string][]Entry{}
}

// TermCount returns the number of distinct indexed terms.
func (idx *Index) TermCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.terms)
}

// Build replaces the index contents from a fresh set of documents,
// tokenizing each with the same camelCase/snake_case/kebab-case pipeline as
// §4.5 and weighting postings by tf * idfLight (spec §4.8).
func (idx *Index) Build(docs []Document) {
	docFreq := map[string]int{}
	docTokens := make([][]string, len(docs))
	for i, d := range docs {
		text := d.Symbol + " " + d.Summary
		toks := tokenize.Words(text)
		docTokens[i] = toks
		seen := map[string]bool{}
		for _, t := range toks {
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}
	n := len(docs)

	terms := map[string][]Entry{}
	for i, d := range docs {
		counts := map[string]int{}
		for _, t := range docTokens[i] {
			counts[t]++
		}
		for term, tf := range counts {
			idfLight := idfLight(docFreq[term], n)
			score := float64(tf) * idfLight
			terms[term] = append(terms[term], Entry{Symbol: d.Symbol, File: d.File, Line: d.Line, Score: score})
		}
	}

	idx.mu.Lock()
	idx.terms = terms
	idx.mu.Unlock()
}

func idfLight(df, n int) float64 {
	if df == 0 {
		return 0
	}
	return 1.0 + float64(n)/float64(df+1)/float64(n+1)
}

// SearchConcept returns the top-K symbols whose combined term-hit score for
// q's tokens is highest, boosting exact matches on the symbol name (spec
// §4.8).
func (idx *Index) SearchConcept(q string, maxResults int) []Entry {
	return idx.search(q, maxResults, true)
}

// SearchByKeyword performs the same ranking as SearchConcept without the
// exact symbol-name boost (spec §4.8). It does not restrict matching to
// summary text: symbol-name tokens are indexed together with summary tokens
// and match here as well.
func (idx *Index) SearchByKeyword(q string, maxResults int) []Entry {
	return idx.search(q, maxResults, false)
}

func (idx *Index) search(q string, maxResults int, boostNameMatch bool) []Entry {
	if maxResults <= 0 {
		maxResults = 20
	}
	tokens := tokenize.Words(q)
	if len(tokens) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := map[string]float64{}
	best := map[string]Entry{}
	for _, tok := range tokens {
		for _, e := range idx.terms[tok] {
			key := e.Symbol + "@" + e.File
			s := e.Score
			if boostNameMatch && strings.EqualFold(e.Symbol, q) {
				s *= 2.0
			}
			scores[key] += s
			if cur, ok := best[key]; !ok || e.Score > cur.Score {
				best[key] = e
			}
		}
	}

	type ranked struct {
		key   string
		score float64
	}
	var list []ranked
	for k, s := range scores {
		list = append(list, ranked{k, s})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].score != list[j].score {
			return list[i].score > list[j].score
		}
		return list[i].key < list[j].key
	})
	if len(list) > maxResults {
		list = list[:maxResults]
	}

	out := make([]Entry, 0, len(list))
	for _, r := range list {
		e := best[r.key]
		e.Score = r.score
		out = append(out, e)
	}
	return out
}
