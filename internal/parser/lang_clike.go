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

	"github.com/kraklabs/astra/internal/langdetect"
	"github.com/kraklabs/astra/internal/model"
)

// parseCFamily is the shared brace-delimited extractor for C, C++, Java,
// Kotlin, Scala, C#, Go, Rust, JS/TS, PHP, Swift and Ruby: their function,
// type, and variable declaration grammars are similar enough to extract
// with one set of regexes keyed by language (spec §4.1 "Shared extraction
// axes").
func parseCFamily(path string, content []byte, language string) (*model.ParseResult, error) {
	text := string(content)
	lines := strings.Split(text, "\n")

	rec := model.FileRecord{Path: path, Language: language, LineCount: len(lines)}
	var calls []model.CallEdge
	var deps []string

	funcs := extractCFamilyFunctions(text, lines, language)
	rec.Symbols = append(rec.Symbols, funcs...)

	rec.Symbols = append(rec.Symbols, extractCFamilyTypes(lines, language)...)
	rec.Symbols = append(rec.Symbols, extractCFamilyVariables(lines, language)...)

	includeMethodCalls := language == langdetect.JavaScript || language == langdetect.TypeScript
	for _, fn := range funcs {
		if !model.IsCallable(fn.Type) {
			continue
		}
		offset := offsetForLine(lines, fn.Line)
		body, _ := braceDepthBody(text, offset)
		if body == "" {
			continue
		}
		calls = append(calls, findCallsInBody(fn.Name, body, fn.Line, includeMethodCalls)...)
	}

	deps = append(deps, extractDependencyTokens(lines, language)...)

	return &model.ParseResult{File: rec, Calls: calls, Dependencies: deps}, nil
}

var cFamilyFuncPatterns = map[string]*regexp.Regexp{
	langdetect.Go: regexp.MustCompile(
		`^\s*func\s*(?:\([^)]*\)\s*)?([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))\s*([A-Za-z0-9_.\[\]\*\s,(){}]*)\s*\{`),
	langdetect.JavaScript: regexp.MustCompile(
		`^\s*(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][A-Za-z0-9_$]*)\s*(\([^)]*\))`),
	langdetect.TypeScript: regexp.MustCompile(
		`^\s*(?:export\s+)?(?:public\s+|private\s+|protected\s+)?(?:async\s+)?(?:function\s*\*?\s*)?([A-Za-z_$][A-Za-z0-9_$]*)\s*(\([^)]*\))\s*(?::\s*[A-Za-z0-9_<>\[\].\s|&]+)?\s*\{`),
	langdetect.Rust: regexp.MustCompile(
		`^\s*(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+([A-Za-z_][A-Za-z0-9_]*)\s*(?:<[^>]*>)?(\([^)]*\))\s*(?:->\s*([A-Za-z0-9_<>:,\[\]\s&'\*]+))?\s*\{`),
	langdetect.CSharp: regexp.MustCompile(
		`^\s*(?:public|private|protected|internal|static|virtual|override|async|sealed|\s)*\s+([A-Za-z0-9_<>\[\],\.\s\?]+?)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))\s*\{?`),
}

// extractCFamilyFunctions extracts top-level function/method declarations,
// defaulting to a C/C++/Java-like "returnType name(params) {" pattern for
// languages without a dedicated entry above.
func extractCFamilyFunctions(text string, lines []string, language string) []model.Symbol {
	var out []model.Symbol
	if re, ok := cFamilyFuncPatterns[language]; ok {
		for i, line := range lines {
			m := re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			var name, params, ret string
			switch language {
			case langdetect.CSharp:
				ret, name, params = m[1], m[2], m[3]
			case langdetect.Rust:
				name, params, ret = m[1], m[2], m[3]
			default:
				name, params = m[1], m[2]
				if len(m) > 3 {
					ret = strings.TrimSpace(m[3])
				}
			}
			typ := model.Function
			if language == langdetect.Go && receiverRE.MatchString(line) {
				typ = model.Method
			}
			out = append(out, model.Symbol{
				Name: name, Type: typ, File: "", Line: i + 1,
				Signature: strings.TrimSpace(line), Params: params, ReturnType: ret,
				Scope: model.ScopeGlobal,
			})
		}
		return out
	}
	return extractGenericCLikeFunctions(lines, language)
}

var receiverRE = regexp.MustCompile(`^\s*func\s*\([^)]*\)\s*[A-Za-z_]`)

// genericFuncRE matches C/C++/Java/Kotlin/Scala/PHP/Swift/Ruby-ish function
// headers: an optional modifier run, a return/void type, a name, and a
// parameter list followed by "{" (brace on the same or next line is
// tolerated by only requiring the parenthesized params).
var genericFuncRE = regexp.MustCompile(
	`^\s*(?:public|private|protected|static|final|virtual|override|inline|async|func|def|fn|sub)?\s*[A-Za-z_][A-Za-z0-9_<>\[\],\.\s\*&]*?\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))\s*\{?\s*$`)

var phpFuncRE = regexp.MustCompile(`^\s*(?:public|private|protected|static)?\s*function\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))`)
var swiftFuncRE = regexp.MustCompile(`^\s*(?:public|private|internal|fileprivate)?\s*func\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))`)
var rubyDefRE = regexp.MustCompile(`^\s*def\s+(self\.)?([A-Za-z_][A-Za-z0-9_!?]*)`)

func extractGenericCLikeFunctions(lines []string, language string) []model.Symbol {
	var out []model.Symbol
	for i, line := range lines {
		switch language {
		case langdetect.PHP:
			if m := phpFuncRE.FindStringSubmatch(line); m != nil {
				out = append(out, model.Symbol{Name: m[1], Type: model.Function, Line: i + 1, Params: m[2], Signature: strings.TrimSpace(line)})
				continue
			}
		case langdetect.Swift:
			if m := swiftFuncRE.FindStringSubmatch(line); m != nil {
				out = append(out, model.Symbol{Name: m[1], Type: model.Function, Line: i + 1, Params: m[2], Signature: strings.TrimSpace(line)})
				continue
			}
		case langdetect.Ruby:
			if m := rubyDefRE.FindStringSubmatch(line); m != nil {
				typ := model.Function
				if m[1] != "" {
					typ = model.Method
				}
				out = append(out, model.Symbol{Name: m[2], Type: typ, Line: i + 1, Signature: strings.TrimSpace(line)})
				continue
			}
		default:
			if m := genericFuncRE.FindStringSubmatch(line); m != nil {
				name := m[1]
				if cFamilyCallBlacklist[name] {
					continue
				}
				out = append(out, model.Symbol{Name: name, Type: model.Function, Line: i + 1, Params: m[2], Signature: strings.TrimSpace(line)})
			}
		}
	}
	return out
}

var typeDeclPatterns = []struct {
	re  *regexp.Regexp
	typ model.SymbolType
}{
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:public\s+)?(?:abstract\s+)?class\s+([A-Za-z_][A-Za-z0-9_]*)`), model.Class},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:public\s+)?interface\s+([A-Za-z_][A-Za-z0-9_]*)`), model.Interface},
	{regexp.MustCompile(`^\s*type\s+([A-Za-z_][A-Za-z0-9_]*)\s+struct\s*\{`), model.Struct},
	{regexp.MustCompile(`^\s*(?:typedef\s+)?struct\s+([A-Za-z_][A-Za-z0-9_]*)`), model.Struct},
	{regexp.MustCompile(`^\s*(?:pub\s+)?struct\s+([A-Za-z_][A-Za-z0-9_]*)`), model.Struct},
	{regexp.MustCompile(`^\s*(?:export\s+)?(?:public\s+)?enum\s+([A-Za-z_][A-Za-z0-9_]*)`), model.Enum},
	{regexp.MustCompile(`^\s*type\s+([A-Za-z_][A-Za-z0-9_]*)\s*=`), model.Typedef},
	{regexp.MustCompile(`^\s*(?:pub\s+)?trait\s+([A-Za-z_][A-Za-z0-9_]*)`), model.Interface},
	{regexp.MustCompile(`^\s*namespace\s+([A-Za-z_][A-Za-z0-9_:]*)`), model.Namespace},
	{regexp.MustCompile(`^\s*package\s+([A-Za-z_][A-Za-z0-9_.]*)`), model.Package},
}

func extractCFamilyTypes(lines []string, _ string) []model.Symbol {
	var out []model.Symbol
	for i, line := range lines {
		for _, p := range typeDeclPatterns {
			if m := p.re.FindStringSubmatch(line); m != nil {
				out = append(out, model.Symbol{Name: m[1], Type: p.typ, Line: i + 1, Signature: strings.TrimSpace(line), Scope: model.ScopeGlobal})
				break
			}
		}
	}
	return out
}

var varDeclPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^\s*(?:export\s+)?(?:const|let|var)\s+([A-Za-z_$][A-Za-z0-9_$]*)\s*(?::\s*([A-Za-z0-9_<>\[\].\s|&]+))?\s*(=)?`),
	regexp.MustCompile(`^\s*(?:pub\s+)?(?:const|static|let(?:\s+mut)?)\s+([A-Za-z_][A-Za-z0-9_]*)\s*:\s*([A-Za-z0-9_<>\[\]&'\s]+)\s*(=)?`),
	regexp.MustCompile(`^\s*(?:public|private|protected|static|final)*\s*([A-Za-z_][A-Za-z0-9_<>\[\],\.\s]*?)\s+([A-Za-z_][A-Za-z0-9_]*)\s*(=)?\s*;`),
}

func extractCFamilyVariables(lines []string, language string) []model.Symbol {
	var out []model.Symbol
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "//") || strings.HasPrefix(trimmed, "*") {
			continue
		}
		switch language {
		case langdetect.JavaScript, langdetect.TypeScript:
			if m := varDeclPatterns[0].FindStringSubmatch(line); m != nil {
				sym := model.Symbol{Name: m[1], Type: model.Variable, Line: i + 1, DataType: strings.TrimSpace(m[2]), Scope: model.ScopeLocal}
				if m[3] != "" {
					// initialized on the declaration line itself
				}
				out = append(out, sym)
			}
		case langdetect.Rust:
			if m := varDeclPatterns[1].FindStringSubmatch(line); m != nil {
				out = append(out, model.Symbol{Name: m[1], Type: model.Variable, Line: i + 1, DataType: strings.TrimSpace(m[2]), Scope: model.ScopeLocal})
			}
		case langdetect.C, langdetect.CPP, langdetect.Java, langdetect.CSharp:
			if m := varDeclPatterns[2].FindStringSubmatch(line); m != nil {
				name := m[2]
				if cFamilyCallBlacklist[name] || cFamilyCallBlacklist[strings.TrimSpace(m[1])] {
					continue
				}
				out = append(out, model.Symbol{Name: name, Type: model.Variable, Line: i + 1, DataType: strings.TrimSpace(m[1]), Scope: model.ScopeLocal})
			}
		}
	}
	return out
}

var importLikeRE = regexp.MustCompile(`^\s*(?:import|#include|using|require|use)\s+[<"']?([^;"'\s>]+)[>"']?`)

// extractDependencyTokens collects raw import/include/use tokens (spec §3
// "dependencies: Map<path, Set<string>> (raw import/include/copy tokens)").
func extractDependencyTokens(lines []string, _ string) []string {
	var deps []string
	for _, line := range lines {
		if m := importLikeRE.FindStringSubmatch(line); m != nil {
			deps = append(deps, m[1])
		}
	}
	return deps
}

func offsetForLine(lines []string, line int) int {
	if line <= 0 {
		return 0
	}
	offset := 0
	for i := 0; i < line-1 && i < len(lines); i++ {
		offset += len(lines[i]) + 1
	}
	return offset
}
