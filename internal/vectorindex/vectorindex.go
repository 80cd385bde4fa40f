// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package vectorindex implements VectorIndex and TFIDFVocab (spec C6): a
// hashed TF-IDF embedding scheme that approximates semantic search without
// requiring an embedding model, plus the symbol-aware chunker that feeds it
// (chunk.go).
package vectorindex

import (
	"math"
	"sort"
	"sync"
	"time"

	"github.com/kraklabs/astra/internal/tokenize"
)

// Dim is the embedding dimension (spec §4.5 "D = 384").
const Dim = 384

// SimilarityThreshold filters low-relevance matches out of search results.
const SimilarityThreshold = 0.3

// MinDF is the minimum document frequency a term needs to enter the
// vocabulary (spec §4.5: "keep terms with df >= 2 and df <= 0.8*N").
const MinDF = 2

// termStats tracks one vocabulary term's index and document frequency.
type termStats struct {
	index int
	df    int
}

// Vocab is TFIDFVocab (spec §3).
type Vocab struct {
	terms   map[string]termStats
	idf     []float32
	numDocs int
	built   bool
}

// Index is the VectorIndex singleton (spec §3).
type Index struct {
	mu          sync.RWMutex
	chunks      []Chunk
	embeddings  [][]float32 // one row per chunk, len Dim
	model       string      // "tfidf" | "hash"
	vocab       *Vocab
	lastUpdated time.Time
}

// New returns an empty vector index.
func New() *Index {
	return &Index{model: "hash"}
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.chunks = nil
	idx.embeddings = nil
	idx.vocab = nil
	idx.model = "hash"
}

// ChunkCount returns the number of indexed chunks.
func (idx *Index) ChunkCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.chunks)
}

// BuildVocab constructs the TF-IDF vocabulary from every chunk's tokens
// (spec §4.5: "iterate all chunk tokens; keep terms with df>=2 and
// df<=0.8*N; assign a contiguous index; idf = log((N+1)/(df+1)) + 1").
func (idx *Index) BuildVocab(chunks []Chunk) *Vocab {
	df := map[string]int{}
	for _, c := range chunks {
		seen := map[string]bool{}
		for _, tok := range tokenize.Words(c.Text) {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			df[tok]++
		}
	}

	n := len(chunks)
	maxDF := int(0.8 * float64(n))
	terms := map[string]termStats{}
	var kept []string
	for term, d := range df {
		if d >= MinDF && d <= maxDF {
			kept = append(kept, term)
		}
	}
	sort.Strings(kept)

	idf := make([]float32, len(kept))
	for i, term := range kept {
		d := df[term]
		terms[term] = termStats{index: i, df: d}
		idf[i] = float32(math.Log(float64(n+1)/float64(d+1)) + 1)
	}

	v := &Vocab{terms: terms, idf: idf, numDocs: n, built: true}
	idx.mu.Lock()
	idx.vocab = v
	idx.mu.Unlock()
	return v
}

// Embed computes the embedding vector for text, using the hashed-TF-IDF
// scheme when a vocabulary is built, falling back to a pure hashed bag of
// terms otherwise (spec §4.5).
func (idx *Index) Embed(text string) []float32 {
	idx.mu.RLock()
	v := idx.vocab
	idx.mu.RUnlock()

	if v == nil || !v.built {
		return simpleHashEmbedding(text)
	}
	return tfidfEmbedding(text, v)
}

func tfidfEmbedding(text string, v *Vocab) []float32 {
	emb := make([]float32, Dim)
	tokens := tokenize.Words(text)
	counts := map[string]int{}
	for _, t := range tokens {
		counts[t]++
	}

	for term, count := range counts {
		stats, ok := v.terms[term]
		if !ok {
			continue
		}
		tf := 1 + math.Log(float64(count))
		w := float32(tf) * v.idf[stats.index]
		scatter(emb, term, w)
	}
	l2Normalize(emb)
	return emb
}

// simpleHashEmbedding is the vocabulary-free fallback: every token in text
// scatters into the embedding with a flat weight, using the same scatter as
// the TF-IDF path (two term hashes plus one position per character trigram).
func simpleHashEmbedding(text string) []float32 {
	emb := make([]float32, Dim)
	for _, tok := range tokenize.Words(text) {
		scatter(emb, tok, 1.0)
	}
	l2Normalize(emb)
	return emb
}

// scatter folds term's weight into emb at hash1(term), hash2(term) (half
// weight), and every one of term's character trigrams (0.3 weight), per
// spec §4.5's three-way scatter.
func scatter(emb []float32, term string, w float32) {
	emb[hash1(term)%Dim] += w
	emb[hash2(term)%Dim] += 0.5 * w
	for _, tri := range tokenize.NGrams3(term) {
		emb[hash1(tri)%Dim] += 0.3 * w
	}
}

func l2Normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return
	}
	for i := range v {
		v[i] = float32(float64(v[i]) / norm)
	}
}

// IndexChunks replaces the index's chunk set and computes their embeddings.
func (idx *Index) IndexChunks(chunks []Chunk) {
	embeddings := make([][]float32, len(chunks))
	for i, c := range chunks {
		embeddings[i] = idx.Embed(c.Text)
	}
	idx.mu.Lock()
	idx.chunks = chunks
	idx.embeddings = embeddings
	if idx.vocab != nil && idx.vocab.built {
		idx.model = "tfidf"
	}
	idx.lastUpdated = time.Now()
	idx.mu.Unlock()
}

// VectorMatch is one ranked search hit.
type VectorMatch struct {
	Chunk      Chunk
	Similarity float32
}

// SearchVector scores every chunk by cosine similarity to q's embedding,
// filters by SimilarityThreshold, and returns the top-K (spec §4.5).
func (idx *Index) SearchVector(q string, topK int) []VectorMatch {
	qemb := idx.Embed(q)

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var matches []VectorMatch
	for i, c := range idx.chunks {
		sim := cosine(qemb, idx.embeddings[i])
		if sim >= SimilarityThreshold {
			matches = append(matches, VectorMatch{Chunk: c, Similarity: sim})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

// Snapshot is the persisted shape of a VectorIndex: metadata JSON plus a
// flat binary Float32Array of embeddings stored separately (spec §4.5
// "Persistence: metadata JSON + flat binary Float32Array"). Chunk text is
// intentionally omitted — it is reloaded on demand from file content.
type Snapshot struct {
	Model       string  `json:"model"`
	Dim         int     `json:"dim"`
	LastUpdated string  `json:"lastUpdated"`
	Chunks      []Chunk `json:"chunks"`
}

// Snapshot returns the metadata half of the persisted shape and the flat
// embeddings array (chunks*dim floats, row-major) to be written to the
// companion binary file.
func (idx *Index) Snapshot() (Snapshot, []float32) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	meta := Snapshot{
		Model: idx.model, Dim: Dim,
		LastUpdated: idx.lastUpdated.UTC().Format(time.RFC3339),
		Chunks:      idx.chunksWithoutText(),
	}
	flat := make([]float32, 0, len(idx.chunks)*Dim)
	for _, e := range idx.embeddings {
		flat = append(flat, e...)
	}
	return meta, flat
}

func (idx *Index) chunksWithoutText() []Chunk {
	out := make([]Chunk, len(idx.chunks))
	for i, c := range idx.chunks {
		c.Text = ""
		out[i] = c
	}
	return out
}

// RestoreSnapshot rebuilds the index from a Snapshot and its flat embeddings
// array, re-hydrating chunk text from the provided loader (spec §4.5: "chunk
// texts are intentionally not stored; they are reloaded on demand from
// file content").
func (idx *Index) RestoreSnapshot(meta Snapshot, flat []float32, loadText func(Chunk) string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.model = meta.Model
	idx.chunks = make([]Chunk, len(meta.Chunks))
	idx.embeddings = make([][]float32, len(meta.Chunks))
	for i, c := range meta.Chunks {
		if loadText != nil {
			c.Text = loadText(c)
		}
		idx.chunks[i] = c
		start := i * meta.Dim
		end := start + meta.Dim
		if end <= len(flat) {
			row := make([]float32, meta.Dim)
			copy(row, flat[start:end])
			idx.embeddings[i] = row
		} else {
			idx.embeddings[i] = make([]float32, meta.Dim)
		}
	}
	if t, err := time.Parse(time.RFC3339, meta.LastUpdated); err == nil {
		idx.lastUpdated = t
	}
}
