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
	sqlCreateObjectRE = regexp.MustCompile(`(?i)^\s*CREATE\s+(?:OR\s+REPLACE\s+)?(PROCEDURE|FUNCTION|VIEW|TABLE|TRIGGER|INDEX|PACKAGE(?:\s+BODY)?)\s+(?:IF\s+NOT\s+EXISTS\s+)?([A-Za-z0-9_."\[\]]+)`)
	sqlCteRE          = regexp.MustCompile(`(?i)^\s*WITH\s+([A-Za-z0-9_]+)\s+AS\s*\(`)
	sqlCteMoreRE      = regexp.MustCompile(`(?i),\s*([A-Za-z0-9_]+)\s+AS\s*\(`)
	sqlExecRE         = regexp.MustCompile(`(?i)\bEXEC(?:UTE)?\s+(?:PROCEDURE\s+)?([A-Za-z0-9_.]+)`)
	sqlCallRE         = regexp.MustCompile(`(?i)\bCALL\s+([A-Za-z0-9_.]+)\s*\(`)
	sqlFuncCallRE     = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)\s*\(`)
)

// sqlKeywordBlacklist excludes SQL built-in functions and clause keywords
// from expression-level call extraction (spec §4.1 "SQL: excluding SQL
// keywords").
var sqlKeywordBlacklist = map[string]bool{
	"select": true, "from": true, "where": true, "group": true, "order": true,
	"having": true, "join": true, "on": true, "as": true, "and": true, "or": true,
	"not": true, "in": true, "exists": true, "between": true, "like": true,
	"count": true, "sum": true, "avg": true, "min": true, "max": true,
	"cast": true, "coalesce": true, "case": true, "when": true, "then": true,
	"else": true, "end": true, "nullif": true, "isnull": true, "convert": true,
	"substring": true, "trim": true, "upper": true, "lower": true, "replace": true,
	"concat": true, "round": true, "getdate": true, "now": true, "values": true,
}

// objectTypeSymbol maps a "CREATE X" keyword to its SymbolType.
var objectTypeSymbol = map[string]model.SymbolType{
	"PROCEDURE": model.Procedure, "FUNCTION": model.Function,
	"VIEW": model.View, "TABLE": model.Record, "TRIGGER": model.Trigger,
	"INDEX": model.IndexSym, "PACKAGE": model.Package, "PACKAGE BODY": model.Package,
}

// parseSQL extracts CREATE PROCEDURE/FUNCTION/VIEW/TABLE/TRIGGER/INDEX/
// PACKAGE declarations, WITH-CTE names, and call edges from
// EXEC[UTE]/CALL/expression-level function calls excluding SQL keywords
// (spec §4.1 "SQL").
func parseSQL(path string, content []byte, language string) (*model.ParseResult, error) {
	text := string(content)
	lines := strings.Split(text, "\n")

	rec := model.FileRecord{Path: path, Language: language, LineCount: len(lines)}
	var calls []model.CallEdge

	var currentObject string
	var objectStart int
	var bodyLines []string

	flush := func() {
		if currentObject == "" {
			return
		}
		body := strings.Join(bodyLines, "\n")
		calls = append(calls, sqlCallsInBody(currentObject, body, objectStart)...)
		bodyLines = nil
	}

	for i, line := range lines {
		if m := sqlCreateObjectRE.FindStringSubmatch(line); m != nil {
			flush()
			kind := strings.ToUpper(strings.Join(strings.Fields(m[1]), " "))
			name := trimSQLIdent(m[2])
			typ, ok := objectTypeSymbol[kind]
			if !ok {
				typ = model.Record
			}
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: name, Type: typ, Line: i + 1, Signature: strings.TrimSpace(line),
				Scope: model.ScopeGlobal,
			})
			if model.IsCallable(typ) {
				currentObject = name
				objectStart = i + 1
			} else {
				currentObject = ""
			}
			continue
		}

		if m := sqlCteRE.FindStringSubmatch(line); m != nil {
			rec.Symbols = append(rec.Symbols, model.Symbol{
				Name: m[1], Type: model.CTE, Line: i + 1, Signature: strings.TrimSpace(line),
			})
			for _, mm := range sqlCteMoreRE.FindAllStringSubmatch(line, -1) {
				rec.Symbols = append(rec.Symbols, model.Symbol{Name: mm[1], Type: model.CTE, Line: i + 1})
			}
			continue
		}

		if currentObject != "" {
			bodyLines = append(bodyLines, line)
		}
	}
	flush()

	return &model.ParseResult{File: rec, Calls: calls}, nil
}

func trimSQLIdent(s string) string {
	s = strings.Trim(s, `"[]`)
	if i := strings.LastIndexByte(s, '.'); i >= 0 {
		s = s[i+1:]
	}
	return strings.Trim(s, `"[]`)
}

func sqlCallsInBody(caller, body string, startLine int) []model.CallEdge {
	var edges []model.CallEdge
	seen := map[string]bool{}
	add := func(raw string, offset int) {
		name := trimSQLIdent(raw)
		key := strings.ToLower(name)
		if seen[key] || sqlKeywordBlacklist[key] || strings.EqualFold(name, caller) {
			return
		}
		seen[key] = true
		line := startLine + strings.Count(body[:offset], "\n")
		edges = append(edges, model.CallEdge{Caller: caller, Callee: name, Line: line})
	}
	for _, m := range sqlExecRE.FindAllStringSubmatchIndex(body, -1) {
		add(body[m[2]:m[3]], m[0])
	}
	for _, m := range sqlCallRE.FindAllStringSubmatchIndex(body, -1) {
		add(body[m[2]:m[3]], m[0])
	}
	for _, m := range sqlFuncCallRE.FindAllStringSubmatchIndex(body, -1) {
		add(body[m[2]:m[3]], m[0])
	}
	return edges
}
