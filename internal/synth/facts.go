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

// Package synth implements AnswerSynthesizer (spec C13): a two-stage
// pipeline that extracts a strict JSON fact record from an LLM call
// (Stage 1) and deterministically renders it into the fixed markdown
// answer template (Stage 2), plus an optional judge pass.
package synth

import (
	"encoding/json"
	"regexp"
	"strings"
)

// EntryPoint names the function a reader should start at.
type EntryPoint struct {
	Function string `json:"function"`
	File     string `json:"file"`
	Line     int    `json:"line"`
}

// DataStructure is one extracted type/struct/record fact.
type DataStructure struct {
	Name      string   `json:"name"`
	File      string   `json:"file"`
	Line      int      `json:"line"`
	Definition string  `json:"definition"`
	Purpose   string   `json:"purpose"`
	KeyFields []string `json:"key_fields"`
}

// KeyFunction is one extracted function fact.
type KeyFunction struct {
	Name      string `json:"name"`
	File      string `json:"file"`
	Line      int    `json:"line"`
	Signature string `json:"signature"`
	Purpose   string `json:"purpose"`
	KeyCode   string `json:"key_code"`
}

// CodeFlowEdge is one extracted caller->callee fact.
type CodeFlowEdge struct {
	Caller   string `json:"caller"`
	Callee   string `json:"callee"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	CallCode string `json:"call_code"`
	Purpose  string `json:"purpose"`
	Verified bool   `json:"-"`
}

// KeyFile is one extracted file-level fact.
type KeyFile struct {
	File      string   `json:"file"`
	Purpose   string   `json:"purpose"`
	Functions []string `json:"functions"`
}

// QAItem pairs a sub-question with its extracted answer and references.
type QAItem struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	References []string `json:"references"`
}

// ConfigOption is one extracted configuration knob fact.
type ConfigOption struct {
	Param  string   `json:"param"`
	Values []string `json:"values"`
	Effect string   `json:"effect"`
}

// Facts is the Stage 1 extraction record (spec §4.12's JSON schema).
type Facts struct {
	Summary       string          `json:"summary"`
	EntryPoint    *EntryPoint     `json:"entry_point"`
	DataStructures []DataStructure `json:"data_structures"`
	KeyFunctions  []KeyFunction   `json:"key_functions"`
	CodeFlow      []CodeFlowEdge  `json:"code_flow"`
	KeyFiles      []KeyFile       `json:"key_files"`
	Answers       []QAItem        `json:"answers"`
	ConfigOptions []ConfigOption  `json:"config_options"`
	Notes         []string        `json:"notes"`

	// Partial is set when ExtractFacts had to fall back to
	// tryExtractPartialFacts because Stage 1's JSON didn't parse cleanly.
	Partial bool
	// RawProse holds the model's raw response when JSON extraction failed
	// entirely but the prose looks substantial enough to show as-is
	// (spec §7 "JSONExtractionError").
	RawProse string
}

// ExtractionSchemaPrompt is appended to the Stage 1 prompt to demand the
// JSON shape verbatim (spec §4.12).
const ExtractionSchemaPrompt = `Respond with ONLY a single JSON object (no prose, no code fences) of this exact shape:
{
  "summary": "",
  "entry_point": {"function": "", "file": "", "line": 0} ,
  "data_structures": [{"name": "", "file": "", "line": 0, "definition": "", "purpose": "", "key_fields": []}],
  "key_functions": [{"name": "", "file": "", "line": 0, "signature": "", "purpose": "", "key_code": ""}],
  "code_flow": [{"caller": "", "callee": "", "file": "", "line": 0, "call_code": "", "purpose": ""}],
  "key_files": [{"file": "", "purpose": "", "functions": []}],
  "answers": [{"question": "", "answer": "", "references": []}],
  "config_options": [{"param": "", "values": [], "effect": ""}],
  "notes": []
}
Use [] or null for any section with nothing to report. entry_point may be null.`

var codeFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

// stripCodeFences removes a single leading/trailing fenced block, if any.
func stripCodeFences(s string) string {
	if m := codeFenceRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

// firstJSONObject extracts the first balanced `{ ... }` object in s,
// tolerating braces inside string literals.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// ExtractFacts implements Stage 1's parsing of the model's raw response (the
// caller makes the model call): strip fences, extract the first JSON
// object, and parse it. On parse failure it falls back to
// tryExtractPartialFacts (spec §4.12, §7 "JSONExtractionError").
func ExtractFacts(raw string, question string, subQuestions []string) *Facts {
	cleaned := strings.TrimSpace(stripCodeFences(raw))
	obj, ok := firstJSONObject(cleaned)
	if ok {
		var f Facts
		if err := json.Unmarshal([]byte(obj), &f); err == nil {
			return &f
		}
	}
	return tryExtractPartialFacts(raw, question, subQuestions)
}

var (
	summaryLineRE    = regexp.MustCompile(`(?im)^\s*(?:summary|overview)\s*[:\-]\s*(.+)$`)
	entryPointLineRE = regexp.MustCompile(`(?im)entry\s*point[^:\n]*[:\-]\s*([A-Za-z0-9_]+)\s*\(?.*?(?:in|at)?\s*([\w./\\-]+\.\w+)?(?:[:\s]+line\s*(\d+))?`)
	keyFileLineRE    = regexp.MustCompile(`(?im)^\s*[-*]\s*` + "`?" + `([\w./\\-]+\.\w+)` + "`?" + `\s*[:\-]\s*(.+)$`)
	keyFunctionLineRE = regexp.MustCompile(`(?im)^\s*[-*]\s*` + "`?" + `([A-Za-z_][A-Za-z0-9_]*)\(\)` + "`?" + `\s*[:\-]\s*(.+)$`)
)

// tryExtractPartialFacts salvages summary/entry_point/key_files/
// key_functions via regex over raw prose when JSON parsing fails, pairs
// question text to subQuestions, and marks the result as partial (spec
// §7 "JSONExtractionError"). If nothing useful could be salvaged but the
// raw text is substantial and looks like markdown, it is kept verbatim as
// RawProse rather than returning an empty template (spec §7: "if yield is
// poor but raw prose is substantial ... return the raw prose instead of an
// empty template").
func tryExtractPartialFacts(raw, question string, subQuestions []string) *Facts {
	f := &Facts{Partial: true}

	if m := summaryLineRE.FindStringSubmatch(raw); m != nil {
		f.Summary = strings.TrimSpace(m[1])
	}
	if m := entryPointLineRE.FindStringSubmatch(raw); m != nil && m[1] != "" {
		line := 0
		if m[3] != "" {
			for _, d := range m[3] {
				line = line*10 + int(d-'0')
			}
		}
		f.EntryPoint = &EntryPoint{Function: m[1], File: m[2], Line: line}
	}
	for _, m := range keyFileLineRE.FindAllStringSubmatch(raw, 10) {
		f.KeyFiles = append(f.KeyFiles, KeyFile{File: m[1], Purpose: strings.TrimSpace(m[2])})
	}
	for _, m := range keyFunctionLineRE.FindAllStringSubmatch(raw, 10) {
		f.KeyFunctions = append(f.KeyFunctions, KeyFunction{Name: m[1], Purpose: strings.TrimSpace(m[2])})
	}

	for _, sq := range subQuestions {
		ans := findAnswerFor(raw, sq)
		if ans != "" {
			f.Answers = append(f.Answers, QAItem{Question: sq, Answer: ans})
		}
	}

	yield := len(f.KeyFiles) + len(f.KeyFunctions) + len(f.Answers)
	if f.Summary != "" {
		yield++
	}
	if yield < 2 && len(raw) > 400 && looksLikeMarkdown(raw) {
		f.RawProse = strings.TrimSpace(raw)
	}
	f.Notes = append(f.Notes, "Partial data was extracted from an unstructured model response.")
	return f
}

// findAnswerFor does a best-effort paragraph match for a sub-question's
// text within raw prose.
func findAnswerFor(raw, question string) string {
	idx := strings.Index(strings.ToLower(raw), strings.ToLower(firstWords(question, 4)))
	if idx < 0 {
		return ""
	}
	rest := raw[idx:]
	end := strings.Index(rest, "\n\n")
	if end < 0 || end > 500 {
		end = len(rest)
		if end > 500 {
			end = 500
		}
	}
	return strings.TrimSpace(rest[:end])
}

func firstWords(s string, n int) string {
	fields := strings.Fields(s)
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}

func looksLikeMarkdown(s string) bool {
	return strings.Contains(s, "#") || strings.Contains(s, "```") || strings.Contains(s, "- ") || strings.Contains(s, "\n\n")
}
