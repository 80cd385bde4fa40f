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

// Package retrieval implements Retrieval + Chunking (spec C12): loading
// source context around search hits, packing results into size-bounded
// chunks without splitting a single result, splitting large pre-built
// context at natural boundaries, and the hierarchical map-reduce reduction
// used when combined analyses outgrow a single LLM call.
package retrieval

import (
	"context"
	"strings"

	"github.com/kraklabs/astra/internal/searchpipeline"
)

// ContextLines is how many lines of source are loaded around a hit's line
// (spec §4.11: "40 lines of context around the hit's line").
const ContextLines = 40

// DefaultMaxChunkSize is chunkSearchResults' default (spec §4.11).
const DefaultMaxChunkSize = 10000

// DefaultMaxChunks caps how many chunks are analyzed for a very large
// result set (spec §4.11).
const DefaultMaxChunks = 8

// ContentSource loads the full text of a file, as held by whichever index
// already has it in memory (the trigram index's content store, in
// practice).
type ContentSource interface {
	Content(path string) (string, bool)
}

// LoadContext fills Content on every result that doesn't already have it,
// with ContextLines of surrounding source loaded from the owning file.
// Results whose file content cannot be found are dropped (spec §4.11:
// "Results without loadable content are dropped"). Hits in the same file
// reuse the already-split line slice rather than re-splitting.
func LoadContext(results []searchpipeline.Result, src ContentSource) []searchpipeline.Result {
	fileLines := map[string][]string{}
	out := make([]searchpipeline.Result, 0, len(results))
	for _, r := range results {
		if r.Content != "" {
			out = append(out, r)
			continue
		}
		lines, ok := fileLines[r.File]
		if !ok {
			content, found := src.Content(r.File)
			if !found {
				fileLines[r.File] = nil
				continue
			}
			lines = strings.Split(content, "\n")
			fileLines[r.File] = lines
		}
		if lines == nil {
			continue
		}
		r.Content = contextAround(lines, r.Line, ContextLines)
		out = append(out, r)
	}
	return out
}

func contextAround(lines []string, line, window int) string {
	if line < 1 {
		line = 1
	}
	idx := line - 1
	start := idx - window
	if start < 0 {
		start = 0
	}
	end := idx + window
	if end >= len(lines) {
		end = len(lines) - 1
	}
	if start > end || start >= len(lines) {
		return ""
	}
	return strings.Join(lines[start:end+1], "\n")
}

// Chunk is a packed group of results whose combined content fits within a
// chunkSearchResults size budget.
type Chunk struct {
	Results []searchpipeline.Result
	Size    int
}

// resultOverhead is the flat per-result metadata cost chunkSearchResults
// budgets alongside each result's content length (spec §4.11: "each ~
// |content| + 200 bytes for metadata").
const resultOverhead = 200

// ChunkSearchResults greedily packs results into chunks no larger than
// maxChunkSize, never splitting a single result across chunks, and caps
// the number of chunks analyzed at maxChunks for very large result sets
// (spec §4.11).
func ChunkSearchResults(results []searchpipeline.Result, maxChunkSize, maxChunks int) []Chunk {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultMaxChunkSize
	}
	if maxChunks <= 0 {
		maxChunks = DefaultMaxChunks
	}
	var chunks []Chunk
	var cur Chunk
	for _, r := range results {
		cost := len(r.Content) + resultOverhead
		if cur.Size > 0 && cur.Size+cost > maxChunkSize {
			chunks = append(chunks, cur)
			cur = Chunk{}
			if len(chunks) >= maxChunks {
				return chunks
			}
		}
		cur.Results = append(cur.Results, r)
		cur.Size += cost
	}
	if len(cur.Results) > 0 && len(chunks) < maxChunks {
		chunks = append(chunks, cur)
	}
	return chunks
}

// DefaultContextChunkSize is ChunkContext's default (spec §4.11).
const DefaultContextChunkSize = 18000

// minChunkFraction bounds how small a natural-boundary split may go before
// ChunkContext falls back to a hard cut (spec §4.11: "never below 50% of
// max").
const minChunkFraction = 0.5

// ChunkContext splits a large pre-built context string at natural
// boundaries: prefer "### " headers, then double newlines. A boundary is
// used only if the piece before it is at least half of maxChunkSize;
// otherwise the text is cut hard at maxChunkSize. Only the final piece can
// be shorter than half of maxChunkSize (spec §4.11).
func ChunkContext(text string, maxChunkSize int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = DefaultContextChunkSize
	}
	if len(text) <= maxChunkSize {
		return []string{text}
	}
	minSize := int(float64(maxChunkSize) * minChunkFraction)

	var pieces []string
	remaining := text
	for len(remaining) > maxChunkSize {
		cut := bestBoundary(remaining, maxChunkSize, minSize, "\n### ")
		if cut < 0 {
			cut = bestBoundary(remaining, maxChunkSize, minSize, "\n\n")
		}
		if cut < 0 {
			cut = maxChunkSize
		}
		pieces = append(pieces, remaining[:cut])
		remaining = remaining[cut:]
	}
	if len(remaining) > 0 {
		pieces = append(pieces, remaining)
	}
	return pieces
}

// bestBoundary finds the last occurrence of sep within [minSize,
// maxChunkSize] of text, or -1 if none qualifies.
func bestBoundary(text string, maxChunkSize, minSize int, sep string) int {
	window := text
	if len(window) > maxChunkSize {
		window = window[:maxChunkSize]
	}
	idx := strings.LastIndex(window, sep)
	if idx < minSize {
		return -1
	}
	return idx + len(sep)
}

// MaxBatchSize is the branching factor of the hierarchical map-reduce merge
// (spec §4.11: "MAX_BATCH_SIZE=3").
const MaxBatchSize = 3

// MaxMergeRounds is the safety cap on reduction rounds (spec §4.11).
const MaxMergeRounds = 5

// MergeFunc merges MAX_BATCH_SIZE (or fewer, for the tail batch) chunk
// analyses into one, preserving all specific references — the caller
// supplies the actual LLM-backed merge prompt.
type MergeFunc func(ctx context.Context, analyses []string) (string, error)

// ReduceHierarchical repeatedly merges groups of MaxBatchSize analyses
// until MaxBatchSize or fewer remain, or MaxMergeRounds is hit, whichever
// comes first (spec §4.11).
func ReduceHierarchical(ctx context.Context, analyses []string, merge MergeFunc) (string, error) {
	cur := analyses
	for round := 0; len(cur) > MaxBatchSize && round < MaxMergeRounds; round++ {
		var next []string
		for i := 0; i < len(cur); i += MaxBatchSize {
			end := i + MaxBatchSize
			if end > len(cur) {
				end = len(cur)
			}
			merged, err := merge(ctx, cur[i:end])
			if err != nil {
				return "", err
			}
			next = append(next, merged)
		}
		cur = next
	}
	if len(cur) == 1 {
		return cur[0], nil
	}
	return merge(ctx, cur)
}
