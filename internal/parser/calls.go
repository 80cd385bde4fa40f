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

package parser

import (
	"regexp"
	"strings"

	"github.com/kraklabs/astra/internal/model"
)

// cFamilyCallBlacklist excludes language keywords and operator-like
// constructs from call-edge extraction (spec §4.1: "filtering language
// keywords and sizeof/typeof/new/delete/throw/await/yield/...").
var cFamilyCallBlacklist = map[string]bool{
	"if": true, "for": true, "while": true, "switch": true, "catch": true,
	"return": true, "sizeof": true, "typeof": true, "new": true,
	"delete": true, "throw": true, "await": true, "yield": true,
	"function": true, "class": true, "struct": true, "union": true,
	"enum": true, "interface": true, "namespace": true, "using": true,
	"typedef": true, "static": true, "const": true, "void": true,
	"int": true, "char": true, "float": true, "double": true, "bool": true,
	"defer": true, "go": true, "select": true, "range": true, "case": true,
	"match": true, "async": true, "do": true, "try": true, "finally": true,
}

// jsBuiltinBlacklist is the small blacklist of built-in methods excluded
// from JS/TS ".method(" call collection (spec §4.1).
var jsBuiltinBlacklist = map[string]bool{
	"log": true, "push": true, "pop": true, "slice": true, "splice": true,
	"map": true, "filter": true, "reduce": true, "forEach": true,
	"join": true, "split": true, "trim": true, "toString": true,
	"then": true, "catch": true, "finally": true, "includes": true,
}

var identifierCallRE = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
var methodCallRE = regexp.MustCompile(`\.([A-Za-z_][A-Za-z0-9_]*)\s*\(`)

// findCallsInBody scans body text for `identifier(` calls, excluding
// language keywords and the blacklist, and appends `.method(` calls when
// includeMethodCalls is set (JS/TS). This implements the "C family / Java /
// Python / JS / TS / Go / Rust / C#" branch of spec §4.1's findCalls.
func findCallsInBody(caller, body string, bodyStartLine int, includeMethodCalls bool) []model.CallEdge {
	var edges []model.CallEdge
	seen := map[string]bool{}

	for _, m := range identifierCallRE.FindAllStringSubmatchIndex(body, -1) {
		name := body[m[2]:m[3]]
		if cFamilyCallBlacklist[name] || name == caller {
			continue
		}
		key := name
		if seen[key] {
			continue
		}
		seen[key] = true
		line := bodyStartLine + strings.Count(body[:m[0]], "\n")
		edges = append(edges, model.CallEdge{Caller: caller, Callee: name, Line: line})
	}

	if includeMethodCalls {
		for _, m := range methodCallRE.FindAllStringSubmatchIndex(body, -1) {
			name := body[m[2]:m[3]]
			if jsBuiltinBlacklist[name] {
				continue
			}
			key := "." + name
			if seen[key] {
				continue
			}
			seen[key] = true
			line := bodyStartLine + strings.Count(body[:m[0]], "\n")
			edges = append(edges, model.CallEdge{Caller: caller, Callee: name, Line: line})
		}
	}
	return edges
}

// braceDepthBody returns the substring of content spanning the function
// body delimited by matching braces, starting the scan at the first "{"
// at or after offset. It returns ("", -1) if there is no "{" at or after
// offset; an unbalanced body runs to the end of content. Neither case
// panics, matching the "parsers MUST NOT throw on malformed input" contract.
func braceDepthBody(content string, fromOffset int) (body string, endOffset int) {
	start := strings.IndexByte(content[fromOffset:], '{')
	if start < 0 {
		return "", -1
	}
	start += fromOffset
	depth := 0
	inString := byte(0)
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'', '`':
			inString = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return content[start : i+1], i + 1
			}
		}
	}
	return content[start:], len(content)
}

// indentedBody returns the Python-style body of a `def`/`class` statement
// that begins at headerLine (0-based into lines), i.e. every subsequent
// line indented more than the header, stopping at the first line with
// indentation <= the header's (or EOF/blank-line-then-dedent).
func indentedBody(lines []string, headerLine int) (body string, endLine int) {
	headerIndent := indentOf(lines[headerLine])
	var b strings.Builder
	i := headerLine + 1
	for ; i < len(lines); i++ {
		line := lines[i]
		if strings.TrimSpace(line) == "" {
			b.WriteString(line)
			b.WriteByte('\n')
			continue
		}
		if indentOf(line) <= headerIndent {
			break
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String(), i
}

func indentOf(line string) int {
	n := 0
	for _, r := range line {
		if r == ' ' {
			n++
		} else if r == '\t' {
			n += 8
		} else {
			break
		}
	}
	return n
}
