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

// Package parser extracts a uniform symbol/call-graph model from
// heterogeneous source text (spec C3, §4.1).
//
// Every language has a dedicated, pure, regex-pipeline extractor satisfying
// the Parser interface. Parsers must never panic or error on malformed
// input — unrecognized constructs are simply ignored. A Tree-sitter-backed
// implementation may replace any entry in the registry as long as it
// produces the same Symbol/CallEdge shape; parseGoTreeSitter (in
// treesitter_go.go) is one such alternate implementation for Go, mirroring the teacher's dual
// ParserMode (treesitter vs. simplified) strategy.
package parser

import (
	"github.com/kraklabs/astra/internal/langdetect"
	"github.com/kraklabs/astra/internal/model"
)

// Parser produces a ParseResult from one file's content. Implementations
// MUST be pure and MUST NOT panic on malformed input.
type Parser interface {
	Parse(path string, content []byte, language string) (*model.ParseResult, error)
}

// ParserFunc adapts a plain function to the Parser interface.
type ParserFunc func(path string, content []byte, language string) (*model.ParseResult, error)

// Parse implements Parser.
func (f ParserFunc) Parse(path string, content []byte, language string) (*model.ParseResult, error) {
	return f(path, content, language)
}

// Mode selects which underlying implementation a Registry prefers for a
// given language (spec DESIGN NOTES "regex parsers").
type Mode string

const (
	// ModeSimplified always uses the regex pipeline.
	ModeSimplified Mode = "simplified"
	// ModeTreeSitter prefers an AST-accurate implementation where one is
	// registered, falling back to simplified otherwise.
	ModeTreeSitter Mode = "treesitter"
	// ModeAuto is the default: tree-sitter where available, else simplified.
	ModeAuto Mode = "auto"
)

// Registry dispatches Parse calls to the language-specific extractor,
// optionally preferring a Tree-sitter-backed implementation.
type Registry struct {
	mode       Mode
	simplified map[string]Parser
	treesitter map[string]Parser
}

// NewRegistry builds the default registry: every supported language wired
// to its regex extractor, plus any Tree-sitter-backed overrides.
func NewRegistry(mode Mode) *Registry {
	if mode == "" {
		mode = ModeAuto
	}
	r := &Registry{
		mode:       mode,
		simplified: map[string]Parser{},
		treesitter: map[string]Parser{},
	}
	r.registerDefaults()
	return r
}

func (r *Registry) registerDefaults() {
	cfam := ParserFunc(parseCFamily)
	for _, lang := range []string{
		langdetect.C, langdetect.CPP, langdetect.Java, langdetect.Kotlin,
		langdetect.Scala, langdetect.CSharp, langdetect.Go, langdetect.Rust,
		langdetect.JavaScript, langdetect.TypeScript, langdetect.PHP,
		langdetect.Swift, langdetect.Ruby,
	} {
		r.simplified[lang] = cfam
	}
	r.simplified[langdetect.Python] = ParserFunc(parsePython)
	r.simplified[langdetect.COBOL] = ParserFunc(parseCOBOL)
	r.simplified[langdetect.TAL] = ParserFunc(parseTAL)
	r.simplified[langdetect.SQL] = ParserFunc(parseSQL)

	r.treesitter[langdetect.Go] = ParserFunc(parseGoTreeSitter)
}

// RegisterTreeSitter installs a Tree-sitter-backed implementation for lang,
// for callers that want to swap in additional grammars
// without touching the registry defaults.
func (r *Registry) RegisterTreeSitter(lang string, p Parser) {
	r.treesitter[lang] = p
}

// Parse extracts a ParseResult for path using the registry's configured
// mode. Unsupported languages return an empty, non-nil result rather than
// an error, consistent with "parsers MUST NOT throw on malformed input".
func (r *Registry) Parse(path string, content []byte, language string) (*model.ParseResult, error) {
	if r.mode != ModeSimplified {
		if p, ok := r.treesitter[language]; ok {
			if res, err := p.Parse(path, content, language); err == nil {
				return res, nil
			}
			// Tree-sitter path failed (e.g. malformed source the grammar
			// cannot recover from): fall through to the regex pipeline
			// rather than surfacing a ParseError for a recoverable case.
		}
	}
	if p, ok := r.simplified[language]; ok {
		return p.Parse(path, content, language)
	}
	return &model.ParseResult{File: model.FileRecord{Path: path, Language: language}}, nil
}
