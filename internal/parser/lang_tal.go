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
	"strconv"
	"strings"

	"github.com/kraklabs/astra/internal/model"
)

var (
	talProcRE    = regexp.MustCompile(`(?i)^\s*(?:(INT|STRING|FIXED|REAL)\s+)?PROC\s+([A-Za-z_][A-Za-z0-9_^]*)\s*(\([^)]*\))?`)
	talSubprocRE = regexp.MustCompile(`(?i)^\s*SUBPROC\s+([A-Za-z_][A-Za-z0-9_^]*)\s*(\([^)]*\))?`)
	talStructRE  = regexp.MustCompile(`(?i)^\s*STRUCT\s+([A-Za-z_][A-Za-z0-9_^]*)`)
	talDefineRE  = regexp.MustCompile(`(?i)^\s*DEFINE\s+([A-Za-z_][A-Za-z0-9_^]*)`)
	talLiteralRE = regexp.MustCompile(`(?i)^\s*LITERAL\s+([A-Za-z_][A-Za-z0-9_^]*)\s*=\s*([^;]+)`)
	talFieldRE   = regexp.MustCompile(`(?i)^\s*(INT|STRING|FIXED|REAL|UNSIGNED)(\([0-9,]+\))?\s+([A-Za-z_][A-Za-z0-9_^]*)`)
	talAttrWords = []string{"MAIN", "FORWARD", "EXTERNAL", "RESIDENT", "PRIVATE", "INTERRUPT", "VARIABLE", "CALLABLE"}
	talCallRE      = regexp.MustCompile(`(?i)\b(?:CALL\s+)?([A-Za-z_][A-Za-z0-9_^]*)\s*\(`)
	talPcalRE      = regexp.MustCompile(`(?i)\bPCAL\s+([A-Za-z_][A-Za-z0-9_^]*)`)
	talBranchRE    = regexp.MustCompile(`(?i)\b(IF|WHILE|DO|CASE|FOR)\b`)
)

// parseTAL extracts PROC/SUBPROC headers, STRUCT field offsets,
// DEFINE/LITERAL declarations, call edges scanned between BEGIN...END;, and
// a cyclomatic complexity count per procedure (spec §4.1 "TAL"). Attribute
// clauses on a PROC/SUBPROC header (MAIN, FORWARD, EXTERNAL, ...) are not
// recorded: a procedure's Attributes hold only its complexity.
func parseTAL(path string, content []byte, language string) (*model.ParseResult, error) {
	text := string(content)
	lines := strings.Split(text, "\n")

	rec := model.FileRecord{Path: path, Language: language, LineCount: len(lines)}
	var calls []model.CallEdge

	i := 0
	var currentStruct string
	var structOffset int

	for i < len(lines) {
		line := lines[i]
		upper := strings.ToUpper(line)

		if m := talStructRE.FindStringSubmatch(line); m != nil {
			currentStruct = m[1]
			structOffset = 0
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: currentStruct, Type: model.Struct, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			i++
			continue
		}
		if currentStruct != "" {
			if strings.Contains(upper, "END") {
				currentStruct = ""
				i++
				continue
			}
			if m := talFieldRE.FindStringSubmatch(line); m != nil {
				size := talFieldSize(m[1], m[2])
				rec.Symbols = append(rec.Symbols, model.Symbol{
					Name: m[3], Type: model.Field, Line: i + 1, DataType: m[1] + m[2],
					Signature: strings.TrimSpace(line),
					Attributes: []string{"offset=" + strconv.Itoa(structOffset), "size=" + strconv.Itoa(size)},
				})
				structOffset += size
				i++
				continue
			}
		}

		if m := talDefineRE.FindStringSubmatch(line); m != nil {
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: m[1], Type: model.Define, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			i++
			continue
		}
		if m := talLiteralRE.FindStringSubmatch(line); m != nil {
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: m[1], Type: model.Literal, Line: i + 1, DataType: strings.TrimSpace(m[2]),
				Signature: strings.TrimSpace(line),
			})
			i++
			continue
		}

		if m := talSubprocRE.FindStringSubmatch(line); m != nil {
			name, endLine := collectTalAttributes(lines, i, m[1])
			body, bodyEnd := talBody(lines, endLine)
			complexity := cyclomaticComplexity(body)
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Subproc, Line: i + 1, Params: m[2],
				Signature: strings.TrimSpace(line),
				Attributes: []string{"complexity=" + strconv.Itoa(complexity)},
			})
			calls = append(calls, talCallsInBody(name, body, endLine+1)...)
			i = bodyEnd
			continue
		}

		if m := talProcRE.FindStringSubmatch(line); m != nil {
			name, endLine := collectTalAttributes(lines, i, m[2])
			body, bodyEnd := talBody(lines, endLine)
			complexity := cyclomaticComplexity(body)
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Procedure, Line: i + 1, Params: m[3], ReturnType: m[1],
				Signature: strings.TrimSpace(line),
				Attributes: []string{"complexity=" + strconv.Itoa(complexity)},
			})
			calls = append(calls, talCallsInBody(name, body, endLine+1)...)
			i = bodyEnd
			continue
		}

		i++
	}

	return &model.ParseResult{File: rec, Calls: calls}, nil
}

// collectTalAttributes scans forward from the PROC/SUBPROC header line
// through any attribute list (e.g. "PROC foo MAIN;" or a header continued
// across lines ending in ";") and returns the declared name and the index of
// the line containing the terminating semicolon.
func collectTalAttributes(lines []string, headerLine int, name string) (string, int) {
	end := headerLine
	for end < len(lines) && !strings.Contains(lines[end], ";") {
		end++
	}
	if end >= len(lines) {
		end = headerLine
	}
	return name, end
}

// talBody returns the procedure body between the next BEGIN and its matching
// END;, and the index of the line following that END;.
func talBody(lines []string, fromLine int) (string, int) {
	i := fromLine
	for i < len(lines) && !strings.Contains(strings.ToUpper(lines[i]), "BEGIN") {
		i++
		if i-fromLine > 5 {
			break // no BEGIN found nearby: treat as a forward/external declaration
		}
	}
	if i >= len(lines) || !strings.Contains(strings.ToUpper(lines[i]), "BEGIN") {
		return "", fromLine + 1
	}
	depth := 0
	start := i
	for ; i < len(lines); i++ {
		u := strings.ToUpper(lines[i])
		if strings.Contains(u, "BEGIN") {
			depth++
		}
		if strings.Contains(u, "END") {
			depth--
			if depth == 0 {
				return strings.Join(lines[start:i+1], "\n"), i + 1
			}
		}
	}
	return strings.Join(lines[start:], "\n"), len(lines)
}

func talCallsInBody(caller, body string, startLine int) []model.CallEdge {
	var edges []model.CallEdge
	seen := map[string]bool{}
	for _, m := range talCallRE.FindAllStringSubmatchIndex(body, -1) {
		name := body[m[2]:m[3]]
		if strings.EqualFold(name, caller) || seen[strings.ToUpper(name)] {
			continue
		}
		seen[strings.ToUpper(name)] = true
		line := startLine + strings.Count(body[:m[0]], "\n")
		edges = append(edges, model.CallEdge{Caller: caller, Callee: name, Line: line})
	}
	for _, m := range talPcalRE.FindAllStringSubmatchIndex(body, -1) {
		name := body[m[2]:m[3]]
		if seen[strings.ToUpper(name)] {
			continue
		}
		seen[strings.ToUpper(name)] = true
		line := startLine + strings.Count(body[:m[0]], "\n")
		edges = append(edges, model.CallEdge{Caller: caller, Callee: name, Line: line})
	}
	return edges
}

// cyclomaticComplexity counts decision points (IF/WHILE/DO/CASE/FOR) plus one,
// the standard McCabe approximation used when no control-flow graph is built.
func cyclomaticComplexity(body string) int {
	return len(talBranchRE.FindAllString(body, -1)) + 1
}

func talFieldSize(typ, dims string) int {
	base := 2
	switch strings.ToUpper(typ) {
	case "STRING", "UNSIGNED":
		base = 1
	case "FIXED", "REAL":
		base = 4
	}
	if dims == "" {
		return base
	}
	dims = strings.Trim(dims, "()")
	n, err := strconv.Atoi(strings.TrimSpace(dims))
	if err != nil || n <= 0 {
		return base
	}
	return base * n
}
