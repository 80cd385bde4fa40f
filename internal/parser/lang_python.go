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

var (
	pyDefRE     = regexp.MustCompile(`^(\s*)(?:async\s+)?def\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))\s*(?:->\s*([A-Za-z0-9_\[\]\.,\s'"]+))?\s*:`)
	pyClassRE   = regexp.MustCompile(`^(\s*)class\s+([A-Za-z_][A-Za-z0-9_]*)\s*(\([^)]*\))?\s*:`)
	pyAssignRE  = regexp.MustCompile(`^(\s*)([A-Za-z_][A-Za-z0-9_]*)\s*(?::\s*([A-Za-z0-9_\[\]\.,\s'"]+))?\s*=\s*[^=]`)
	pyImportRE  = regexp.MustCompile(`^\s*(?:from\s+([A-Za-z0-9_.]+)\s+import|import\s+([A-Za-z0-9_.]+))`)
	pyDecoratorRE = regexp.MustCompile(`^\s*@`)
)

// parsePython extracts functions, classes and module-level assignments using
// indentation to delimit bodies, since Python has no braces to balance
// (spec §4.1 "indentation-delimited body extraction").
func parsePython(path string, content []byte, language string) (*model.ParseResult, error) {
	text := string(content)
	lines := strings.Split(text, "\n")

	rec := model.FileRecord{Path: path, Language: language, LineCount: len(lines)}
	var calls []model.CallEdge
	var deps []string

	classStack := map[int]string{} // indent -> enclosing class name

	for i, line := range lines {
		if m := pyImportRE.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				deps = append(deps, m[1])
			} else if m[2] != "" {
				deps = append(deps, m[2])
			}
			continue
		}

		if m := pyClassRE.FindStringSubmatch(line); m != nil {
			indent := indentOf(line)
			name := m[2]
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Class, Line: i + 1,
				Signature: strings.TrimSpace(line), Scope: model.ScopeGlobal,
			})
			classStack[indent] = name
			continue
		}

		if m := pyDefRE.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			name := m[2]
			typ := model.Function
			scope := model.ScopeGlobal
			if owner, ok := enclosingClass(classStack, indent); ok {
				typ = model.Method
				scope = model.ScopeMember
				_ = owner
			}
			sym := model.Symbol{
				Name: name, Type: typ, Line: i + 1, Params: m[3], ReturnType: m[4],
				Signature: strings.TrimSpace(line), Scope: scope,
			}
			rec.Symbols = append(rec.Symbols, sym)

			body, _ := indentedBody(lines, i)
			calls = append(calls, findCallsInBody(name, body, i+2, false)...)
			continue
		}

		if pyDecoratorRE.MatchString(line) {
			continue
		}

		if m := pyAssignRE.FindStringSubmatch(line); m != nil {
			indent := len(m[1])
			if indent > 0 {
				continue // only module-level assignments are tracked as symbols
			}
			name := m[2]
			if name == "_" || strings.HasPrefix(name, "__") {
				continue
			}
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: model.Variable, Line: i + 1,
				DataType: strings.TrimSpace(m[3]), Scope: model.ScopeGlobal,
			})
		}
	}

	return &model.ParseResult{File: rec, Calls: calls, Dependencies: deps}, nil
}

// enclosingClass returns the nearest class whose body contains a def at the
// given indent, i.e. the deepest recorded class indent strictly less than it.
func enclosingClass(stack map[int]string, indent int) (string, bool) {
	best := -1
	var name string
	for ind, n := range stack {
		if ind < indent && ind > best {
			best = ind
			name = n
		}
	}
	return name, best >= 0
}
