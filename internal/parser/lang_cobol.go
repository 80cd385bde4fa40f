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
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kraklabs/astra/internal/langdetect"
	"github.com/kraklabs/astra/internal/model"
)

var (
	cobolProgramIDRE = regexp.MustCompile(`(?i)^\s*PROGRAM-ID\.\s*([A-Za-z0-9_-]+)`)
	cobolSectionRE   = regexp.MustCompile(`(?i)^\s*([A-Za-z0-9_-]+)\s+SECTION\s*\.`)
	cobolParagraphRE = regexp.MustCompile(`(?i)^\s*([A-Za-z][A-Za-z0-9_-]*)\s*\.\s*$`)
	cobolLevelItemRE = regexp.MustCompile(`(?i)^\s*(\d{2})\s+([A-Za-z0-9_-]+)(.*)$`)
	cobolPicRE       = regexp.MustCompile(`(?i)PIC(?:TURE)?\s+(?:IS\s+)?([A-Za-z0-9()V.\-+S]+)`)
	cobolCompRE      = regexp.MustCompile(`(?i)COMP(?:UTATIONAL)?(-[0-9])?|PACKED-DECIMAL|BINARY`)
	cobolCopyRE      = regexp.MustCompile(`(?i)^\s*COPY\s+([A-Za-z0-9_-]+)`)
	cobolFdRE        = regexp.MustCompile(`(?i)^\s*FD\s+([A-Za-z0-9_-]+)`)
	cobolPerformRE   = regexp.MustCompile(`(?i)\bPERFORM\s+([A-Za-z0-9_-]+)`)
	cobolCallRE      = regexp.MustCompile(`(?i)\bCALL\s+['"]?([A-Za-z0-9_-]+)['"]?`)
	cobolGoToRE      = regexp.MustCompile(`(?i)\bGO\s+TO\s+([A-Za-z0-9_-]+)`)
	cobolOccursRE    = regexp.MustCompile(`(?i)OCCURS\s+(\d+)\s+TIMES(?:\s+INDEXED\s+BY\s+([A-Za-z0-9_-]+))?`)
	cobolExecSQLRE   = regexp.MustCompile(`(?is)EXEC\s+SQL(.*?)END-EXEC`)
	cobolSQLVerbRE   = regexp.MustCompile(`(?i)^\s*(SELECT|INSERT|UPDATE|DELETE)\b`)
	cobolSQLFromRE   = regexp.MustCompile(`(?i)\b(?:FROM|INTO|UPDATE)\s+([A-Za-z0-9_]+)`)
)

// parseCOBOL extracts PROGRAM-ID, SECTIONs, paragraphs, data items (with PIC
// clauses rendered as typed descriptors), and PERFORM/CALL/GO TO/COPY call
// edges. COBOL identifiers are normalized to upper case throughout, matching
// the language's case-insensitive reserved word and identifier conventions
// (spec §4.1 "COBOL").
func parseCOBOL(path string, content []byte, language string) (*model.ParseResult, error) {
	text := string(content)
	lines := strings.Split(text, "\n")

	rec := model.FileRecord{Path: path, Language: language, LineCount: len(lines)}
	var calls []model.CallEdge
	var deps []string

	var currentParagraph string
	var paragraphStart int
	var paragraphLines []string

	flushParagraph := func(endLine int) {
		if currentParagraph == "" {
			return
		}
		body := strings.Join(paragraphLines, "\n")
		calls = append(calls, cobolCallsInBody(currentParagraph, body, paragraphStart)...)
		paragraphLines = nil
	}

	for i, line := range lines {
		upper := strings.ToUpper(line)

		if m := cobolProgramIDRE.FindStringSubmatch(line); m != nil {
			name := langdetect.NormalizeCOBOLIdentifier(m[1])
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Program, Line: i + 1, Signature: strings.TrimSpace(line),
				Scope: model.ScopeGlobal,
			})
			continue
		}

		if m := cobolCopyRE.FindStringSubmatch(upper); m != nil {
			name := langdetect.NormalizeCOBOLIdentifier(m[1])
			deps = append(deps, name)
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Copybook, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			if currentParagraph != "" {
				calls = append(calls, model.CallEdge{Caller: currentParagraph, Callee: name, Line: i + 1})
			}
			continue
		}

		if m := cobolFdRE.FindStringSubmatch(upper); m != nil {
			name := langdetect.NormalizeCOBOLIdentifier(m[1])
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.FileSym, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			continue
		}

		if m := cobolSectionRE.FindStringSubmatch(line); m != nil && !isCobolReservedDivision(m[1]) {
			flushParagraph(i)
			name := langdetect.NormalizeCOBOLIdentifier(m[1])
			currentParagraph = name
			paragraphStart = i + 1
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Section, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			continue
		}

		if m := cobolLevelItemRE.FindStringSubmatch(line); m != nil {
			level, _ := strconv.Atoi(m[1])
			name := langdetect.NormalizeCOBOLIdentifier(m[2])
			rest := m[3]
			sym := model.Symbol{
				Name: name, Line: i + 1, Signature: strings.TrimSpace(line),
				DataType: cobolPicDescriptor(rest),
			}
			switch {
			case level == 88:
				sym.Type = model.Condition
			default:
				sym.Type = model.Field
			}
			if om := cobolOccursRE.FindStringSubmatch(rest); om != nil {
				sym.Attributes = append(sym.Attributes, fmt.Sprintf("OCCURS:%s", om[1]))
				if om[2] != "" {
					sym.Attributes = append(sym.Attributes, "INDEXED-BY:"+langdetect.NormalizeCOBOLIdentifier(om[2]))
				}
			}
			rec.Symbols = append(rec.Symbols, sym)
			continue
		}

		// A bare "NAME." at column-level starting a paragraph (not a
		// reserved division/section header, not inside the identifier
		// or environment division headers already matched above).
		if m := cobolParagraphRE.FindStringSubmatch(line); m != nil && !isCobolReservedDivision(m[1]) {
			flushParagraph(i)
			name := langdetect.NormalizeCOBOLIdentifier(m[1])
			currentParagraph = name
			paragraphStart = i + 1
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Paragraph, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			continue
		}

		if currentParagraph != "" {
			paragraphLines = append(paragraphLines, line)
		}
	}
	flushParagraph(len(lines))

	rec.Symbols = append(rec.Symbols, cobolEmbeddedSQLTables(text)...)

	return &model.ParseResult{File: rec, Calls: calls, Dependencies: deps}, nil
}

// cobolEmbeddedSQLTables scans EXEC SQL ... END-EXEC blocks for the table
// named in a SELECT/INSERT/UPDATE/DELETE statement, recording it as a
// model.Record symbol tagged with its SQL verb (spec §8 scenario 1:
// "ACCOUNTS (SQL, operations: SELECT)").
func cobolEmbeddedSQLTables(text string) []model.Symbol {
	var out []model.Symbol
	for _, m := range cobolExecSQLRE.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[2]:m[3]]
		line := strings.Count(text[:m[0]], "\n") + 1
		verb := "SQL"
		if vm := cobolSQLVerbRE.FindStringSubmatch(strings.TrimSpace(body)); vm != nil {
			verb = strings.ToUpper(vm[1])
		}
		tm := cobolSQLFromRE.FindStringSubmatch(body)
		if tm == nil {
			continue
		}
		out = append(out, model.Symbol{
			Name: strings.ToUpper(tm[1]), Type: model.Record, Line: line,
			Signature: strings.TrimSpace(body), Attributes: []string{"SQL", verb},
		})
	}
	return out
}

func cobolCallsInBody(caller, body string, startLine int) []model.CallEdge {
	var edges []model.CallEdge
	seen := map[string]bool{}
	add := func(name string, offset int) {
		name = langdetect.NormalizeCOBOLIdentifier(name)
		if seen[name] || name == caller {
			return
		}
		seen[name] = true
		line := startLine + strings.Count(body[:offset], "\n")
		edges = append(edges, model.CallEdge{Caller: caller, Callee: name, Line: line})
	}
	for _, m := range cobolPerformRE.FindAllStringSubmatchIndex(body, -1) {
		add(body[m[2]:m[3]], m[0])
	}
	for _, m := range cobolCallRE.FindAllStringSubmatchIndex(body, -1) {
		add(body[m[2]:m[3]], m[0])
	}
	for _, m := range cobolGoToRE.FindAllStringSubmatchIndex(body, -1) {
		add(body[m[2]:m[3]], m[0])
	}
	return edges
}

var cobolReservedDivisions = map[string]bool{
	"IDENTIFICATION": true, "ENVIRONMENT": true, "DATA": true,
	"PROCEDURE": true, "CONFIGURATION": true, "INPUT-OUTPUT": true,
	"WORKING-STORAGE": true, "LINKAGE": true, "FILE": true,
}

func isCobolReservedDivision(name string) bool {
	return cobolReservedDivisions[strings.ToUpper(name)]
}

// cobolPicDescriptor renders a PIC/USAGE clause into a typed descriptor, e.g.
// "PIC S9(5)V99 COMP-3" -> "PACKED-DECIMAL(5,2) SIGNED" and "PIC X(10)" ->
// "ALPHANUMERIC(10)" (spec §4.1 "PIC clause -> typed descriptor").
func cobolPicDescriptor(clause string) string {
	m := cobolPicRE.FindStringSubmatch(clause)
	if m == nil {
		return ""
	}
	pic := strings.ToUpper(m[1])
	signed := strings.Contains(pic, "S")
	intDigits, fracDigits := cobolPicDigits(pic)

	kind := "NUMERIC"
	switch {
	case strings.Contains(pic, "X"):
		kind = "ALPHANUMERIC"
	case strings.Contains(pic, "A") && !strings.Contains(pic, "9"):
		kind = "ALPHABETIC"
	case cobolCompRE.MatchString(clause):
		if strings.Contains(strings.ToUpper(clause), "PACKED-DECIMAL") || strings.Contains(strings.ToUpper(clause), "COMP-3") {
			kind = "PACKED-DECIMAL"
		} else {
			kind = "BINARY"
		}
	case strings.Contains(pic, "9"):
		if fracDigits > 0 {
			kind = "DECIMAL"
		} else {
			kind = "NUMERIC"
		}
	}

	var desc string
	if kind == "ALPHANUMERIC" || kind == "ALPHABETIC" {
		desc = fmt.Sprintf("%s(%d)", kind, intDigits)
	} else if fracDigits > 0 {
		desc = fmt.Sprintf("%s(%d,%d)", kind, intDigits, fracDigits)
	} else {
		desc = fmt.Sprintf("%s(%d)", kind, intDigits)
	}
	if signed {
		desc += " SIGNED"
	}
	return desc
}

var cobolDigitGroupRE = regexp.MustCompile(`([9XA])(?:\((\d+)\))?`)

func cobolPicDigits(pic string) (intDigits, fracDigits int) {
	parts := strings.SplitN(pic, "V", 2)
	intDigits = countPicPositions(parts[0])
	if len(parts) == 2 {
		fracDigits = countPicPositions(parts[1])
	}
	if intDigits == 0 {
		intDigits = 1
	}
	return
}

func countPicPositions(segment string) int {
	total := 0
	for _, m := range cobolDigitGroupRE.FindAllStringSubmatch(segment, -1) {
		if m[2] != "" {
			n, _ := strconv.Atoi(m[2])
			total += n
		} else {
			total++
		}
	}
	return total
}
