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

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kraklabs/astra/internal/model"
)

// MaxChunksPerFile caps the number of symbol-span chunks extracted from a
// single file (spec §4.5).
const MaxChunksPerFile = 40

const (
	maxSymbolSpanLines = 100
	slidingWindowLines = 30
	slidingOverlapLines = 5
	headerLines         = 50
)

// ChunkType classifies a Chunk's origin (spec §3 "Chunk").
type ChunkType string

const (
	ChunkFunction ChunkType = "function"
	ChunkClass    ChunkType = "class"
	ChunkMethod   ChunkType = "method"
	ChunkStruct   ChunkType = "struct"
	ChunkHeader   ChunkType = "header"
	ChunkBlock    ChunkType = "block"
)

// Chunk is one retrievable unit of source text (spec §3 "Chunk").
type Chunk struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	File       string    `json:"file"`
	FileName   string    `json:"fileName"`
	StartLine  int       `json:"startLine"`
	EndLine    int       `json:"endLine"`
	Type       ChunkType `json:"type"`
	SymbolName string    `json:"symbolName,omitempty"`
}

// ChunkFile splits one file's content into chunks: symbol-span chunks when
// callable symbols are available, else sliding windows, always prefixed
// with a header chunk (spec §4.5).
func ChunkFile(path, content string, symbols []model.Symbol) []Chunk {
	lines := strings.Split(content, "\n")
	var chunks []Chunk

	chunks = append(chunks, headerChunk(path, lines))

	callable := callableSymbols(symbols)
	if len(callable) > 0 {
		chunks = append(chunks, symbolSpanChunks(path, lines, callable)...)
	} else {
		chunks = append(chunks, slidingWindowChunks(path, lines)...)
	}
	return chunks
}

func headerChunk(path string, lines []string) Chunk {
	end := headerLines
	if end > len(lines) {
		end = len(lines)
	}
	text := strings.Join(lines[:end], "\n")
	return Chunk{
		ID: chunkID(path, 1, end), Text: text, File: path, FileName: filepath.Base(path),
		StartLine: 1, EndLine: end, Type: ChunkHeader,
	}
}

func callableSymbols(symbols []model.Symbol) []model.Symbol {
	var out []model.Symbol
	for _, s := range symbols {
		if model.IsCallable(s.Type) || s.Type == model.Class || s.Type == model.Struct {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Line < out[j].Line })
	return out
}

func symbolSpanChunks(path string, lines []string, symbols []model.Symbol) []Chunk {
	var chunks []Chunk
	for i, sym := range symbols {
		if len(chunks) >= MaxChunksPerFile {
			break
		}
		start := sym.Line
		end := start + maxSymbolSpanLines - 1
		if i+1 < len(symbols) {
			next := symbols[i+1].Line - 1
			if next < end {
				end = next
			}
		}
		if end > len(lines) {
			end = len(lines)
		}
		if end < start {
			end = start
		}
		if start < 1 || start > len(lines) {
			continue
		}
		text := strings.Join(lines[start-1:end], "\n")
		chunks = append(chunks, Chunk{
			ID: chunkID(path, start, end), Text: text, File: path, FileName: filepath.Base(path),
			StartLine: start, EndLine: end, Type: chunkTypeFor(sym.Type), SymbolName: sym.Name,
		})
	}
	return chunks
}

func chunkTypeFor(t model.SymbolType) ChunkType {
	switch t {
	case model.Class:
		return ChunkClass
	case model.Struct:
		return ChunkStruct
	case model.Method:
		return ChunkMethod
	default:
		return ChunkFunction
	}
}

func slidingWindowChunks(path string, lines []string) []Chunk {
	var chunks []Chunk
	step := slidingWindowLines - slidingOverlapLines
	for start := 1; start <= len(lines); start += step {
		if len(chunks) >= MaxChunksPerFile {
			break
		}
		end := start + slidingWindowLines - 1
		if end > len(lines) {
			end = len(lines)
		}
		text := strings.Join(lines[start-1:end], "\n")
		chunks = append(chunks, Chunk{
			ID: chunkID(path, start, end), Text: text, File: path, FileName: filepath.Base(path),
			StartLine: start, EndLine: end, Type: ChunkBlock,
		})
		if end == len(lines) {
			break
		}
	}
	return chunks
}

func chunkID(path string, start, end int) string {
	return fmt.Sprintf("%s:%d-%d", path, start, end)
}
