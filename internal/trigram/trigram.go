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

// Package trigram implements TrigramIndex (spec C5): a Zoekt-style 3-gram
// inverted index used for fast literal substring search over indexed
// source files.
package trigram

import (
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/astra/internal/langdetect"
)

// MaxFileSize rejects files larger than this from indexing.
const MaxFileSize = 1 << 20 // 1 MiB

// MaxPositionsPerFile caps how many trigram occurrences are recorded per
// (trigram, file) pair, bounding posting-list growth on repetitive files.
const MaxPositionsPerFile = 200

// posting is one file's occurrence list for a trigram.
type posting struct {
	file      string
	positions []int
}

// Index is the TrigramIndex singleton.
type Index struct {
	mu          sync.RWMutex
	postings    map[string][]*posting // trigram -> postings, one per file
	postingByFT map[string]*posting   // "trigram\x00file" -> posting, for O(1) append
	fileContent map[string]string
}

// New returns an empty trigram index.
func New() *Index {
	return &Index{
		postings:    map[string][]*posting{},
		postingByFT: map[string]*posting{},
		fileContent: map[string]string{},
	}
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.postings = map[string][]*posting{}
	idx.postingByFT = map[string]*posting{}
	idx.fileContent = map[string]string{}
}

// FileCount returns how many files have been indexed.
func (idx *Index) FileCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.fileContent)
}

// Content returns the stored content for path, if it has been indexed.
// Retrieval (spec C12) and the grep-fallback search phase both load source
// text through this rather than re-reading from disk, since the trigram
// index already holds every indexed file's content in memory.
func (idx *Index) Content(path string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	c, ok := idx.fileContent[path]
	return c, ok
}

// Paths returns every indexed file path.
func (idx *Index) Paths() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([]string, 0, len(idx.fileContent))
	for p := range idx.fileContent {
		out = append(out, p)
	}
	return out
}

// IndexFile records content's trigrams for path. Files over MaxFileSize are
// rejected outright (spec §4.4).
func (idx *Index) IndexFile(path, content string) bool {
	if len(content) > MaxFileSize {
		return false
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.fileContent[path] = content
	lower := strings.ToLower(content)
	runes := []rune(lower)
	for i := 0; i+3 <= len(runes); i++ {
		tri := string(runes[i : i+3])
		if strings.TrimSpace(tri) == "" {
			continue // whitespace-only trigrams are skipped
		}
		idx.appendPostingLocked(tri, path, i)
	}
	return true
}

func (idx *Index) appendPostingLocked(tri, path string, pos int) {
	key := tri + "\x00" + path
	p, ok := idx.postingByFT[key]
	if !ok {
		p = &posting{file: path}
		idx.postingByFT[key] = p
		idx.postings[tri] = append(idx.postings[tri], p)
	}
	if len(p.positions) >= MaxPositionsPerFile {
		return
	}
	p.positions = append(p.positions, pos)
}

// Match is one literal-occurrence hit returned by Search.
type Match struct {
	File    string
	Line    int
	Context string
}

// SearchOptions configures Search.
type SearchOptions struct {
	CaseSensitive bool
	MaxResults    int
	ContextChars  int
}

// Search implements the six-step algorithm from spec §4.4: trigram the
// query, AND-intersect postings across trigrams, then literal-scan each
// surviving candidate file for the actual substring.
func (idx *Index) Search(q string, opts SearchOptions) []Match {
	if len(q) < 3 {
		return nil
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = 50
	}
	if opts.ContextChars <= 0 {
		opts.ContextChars = 40
	}

	lower := strings.ToLower(q)
	runes := []rune(lower)
	trigrams := make([]string, 0, len(runes)-2)
	for i := 0; i+3 <= len(runes); i++ {
		trigrams = append(trigrams, string(runes[i:i+3]))
	}
	if len(trigrams) == 0 {
		return nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var candidateSets []map[string]bool
	for _, tri := range trigrams {
		posts, ok := idx.postings[tri]
		if !ok || len(posts) == 0 {
			return nil // any empty posting list means no match is possible
		}
		set := make(map[string]bool, len(posts))
		for _, p := range posts {
			set[p.file] = true
		}
		candidateSets = append(candidateSets, set)
	}

	candidates := intersect(candidateSets)
	if len(candidates) == 0 {
		return nil
	}

	type fileMatches struct {
		file    string
		matches []Match
	}
	var perFile []fileMatches
	for file := range candidates {
		content := idx.fileContent[file]
		matches := scanLiteral(content, file, q, opts)
		if len(matches) > 0 {
			perFile = append(perFile, fileMatches{file: file, matches: matches})
		}
	}

	sort.Slice(perFile, func(i, j int) bool {
		if len(perFile[i].matches) != len(perFile[j].matches) {
			return len(perFile[i].matches) > len(perFile[j].matches)
		}
		return perFile[i].file < perFile[j].file
	})

	var out []Match
	for _, fm := range perFile {
		out = append(out, fm.matches...)
		if len(out) >= opts.MaxResults {
			break
		}
	}
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

func scanLiteral(content, file, q string, opts SearchOptions) []Match {
	haystack, needle := content, q
	if !opts.CaseSensitive {
		haystack = strings.ToLower(content)
		needle = strings.ToLower(q)
	}
	var matches []Match
	start := 0
	for len(matches) < 50 {
		i := strings.Index(haystack[start:], needle)
		if i < 0 {
			break
		}
		pos := start + i
		line := 1 + strings.Count(content[:pos], "\n")
		lo := pos - opts.ContextChars
		if lo < 0 {
			lo = 0
		}
		hi := pos + len(needle) + opts.ContextChars
		if hi > len(content) {
			hi = len(content)
		}
		matches = append(matches, Match{File: file, Line: line, Context: content[lo:hi]})
		start = pos + len(needle)
	}
	return matches
}

func intersect(sets []map[string]bool) map[string]bool {
	if len(sets) == 0 {
		return nil
	}
	smallest := sets[0]
	for _, s := range sets[1:] {
		if len(s) < len(smallest) {
			smallest = s
		}
	}
	out := map[string]bool{}
	for file := range smallest {
		inAll := true
		for _, s := range sets {
			if !s[file] {
				inAll = false
				break
			}
		}
		if inAll {
			out[file] = true
		}
	}
	return out
}

// BuildLightweightOptions configures BuildLightweight.
type BuildLightweightOptions struct {
	MaxFilesToIndex       int
	MaxFileSize           int
	PrioritizeByExtension bool
}

// CandidateFile is one file eligible for lightweight indexing.
type CandidateFile struct {
	Path    string
	Content string
}

// BuildLightweight preferentially indexes smaller code-extension files
// first, for a fast initial-startup index that can be upgraded to a full
// build later (spec §4.4).
func (idx *Index) BuildLightweight(files []CandidateFile, opts BuildLightweightOptions) int {
	if opts.MaxFilesToIndex <= 0 {
		opts.MaxFilesToIndex = 2000
	}
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = MaxFileSize
	}

	ordered := make([]CandidateFile, len(files))
	copy(ordered, files)
	sort.SliceStable(ordered, func(i, j int) bool {
		if opts.PrioritizeByExtension {
			ci, cj := langdetect.IsCode(ordered[i].Path), langdetect.IsCode(ordered[j].Path)
			if ci != cj {
				return ci
			}
		}
		return len(ordered[i].Content) < len(ordered[j].Content)
	})

	indexed := 0
	for _, f := range ordered {
		if indexed >= opts.MaxFilesToIndex {
			break
		}
		if len(f.Content) > opts.MaxFileSize {
			continue
		}
		if idx.IndexFile(f.Path, f.Content) {
			indexed++
		}
	}
	return indexed
}
