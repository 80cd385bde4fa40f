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

package vectorindex

import "time"

// Meta is the JSON side of the persisted index (spec §6:
// "vectors/index.json — metadata: {version, model, dimensions, chunkCount,
// lastUpdated, chunks:[...]}"). The embeddings themselves live in the
// paired embeddings.bin as a flat little-endian Float32Array.
type Meta struct {
	Version     int       `json:"version"`
	Model       string    `json:"model"`
	Dimensions  int       `json:"dimensions"`
	ChunkCount  int       `json:"chunkCount"`
	LastUpdated time.Time `json:"lastUpdated"`
	Chunks      []ChunkMeta `json:"chunks"`
}

// ChunkMeta is one chunk's metadata entry, omitting Text (the embeddings.bin
// companion carries the embedding; the source text is re-read from disk by
// path+line range when needed, keeping index.json small).
type ChunkMeta struct {
	ID         string    `json:"id"`
	File       string    `json:"file"`
	FileName   string    `json:"fileName"`
	StartLine  int       `json:"startLine"`
	EndLine    int       `json:"endLine"`
	Type       ChunkType `json:"type"`
	SymbolName string    `json:"symbolName,omitempty"`
	TextLength int       `json:"textLength"`
	Text       string    `json:"-"`
}

// CurrentVersion is the persisted index.json schema version.
const CurrentVersion = 1

// Meta returns the current index's metadata and a parallel chunk-text slice
// (not persisted in index.json, needed by the caller to rewrite
// embeddings.bin alongside it).
func (idx *Index) Meta() (Meta, []string) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	chunks := make([]ChunkMeta, len(idx.chunks))
	texts := make([]string, len(idx.chunks))
	for i, c := range idx.chunks {
		chunks[i] = ChunkMeta{
			ID: c.ID, File: c.File, FileName: c.FileName,
			StartLine: c.StartLine, EndLine: c.EndLine,
			Type: c.Type, SymbolName: c.SymbolName,
			TextLength: len(c.Text),
		}
		texts[i] = c.Text
	}
	return Meta{
		Version:     CurrentVersion,
		Model:       idx.model,
		Dimensions:  Dim,
		ChunkCount:  len(idx.chunks),
		LastUpdated: idx.lastUpdated,
		Chunks:      chunks,
	}, texts
}

// Embeddings returns a copy of every chunk's embedding vector, in the same
// order as Meta's chunks, for flattening into embeddings.bin.
func (idx *Index) Embeddings() [][]float32 {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	out := make([][]float32, len(idx.embeddings))
	copy(out, idx.embeddings)
	return out
}

// Restore replaces the index's chunks and embeddings from a persisted
// metadata+text set and their parallel embedding vectors (already
// deserialized from embeddings.bin by the caller), then rebuilds the TF-IDF
// vocabulary from the restored chunk text so subsequent queries embed
// consistently (spec §4.5).
func (idx *Index) Restore(meta Meta, texts []string, embeddings [][]float32) {
	chunks := make([]Chunk, len(meta.Chunks))
	for i, cm := range meta.Chunks {
		text := ""
		if i < len(texts) {
			text = texts[i]
		}
		chunks[i] = Chunk{
			ID: cm.ID, Text: text, File: cm.File, FileName: cm.FileName,
			StartLine: cm.StartLine, EndLine: cm.EndLine,
			Type: cm.Type, SymbolName: cm.SymbolName,
		}
	}

	idx.mu.Lock()
	idx.chunks = chunks
	idx.embeddings = embeddings
	idx.model = meta.Model
	idx.lastUpdated = meta.LastUpdated
	idx.mu.Unlock()

	if meta.Model == "tfidf" {
		idx.BuildVocab(chunks)
		idx.mu.Lock()
		idx.model = "tfidf"
		idx.mu.Unlock()
	}
}
