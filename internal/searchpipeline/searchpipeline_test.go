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

package searchpipeline

import (
	"testing"

	"github.com/kraklabs/astra/internal/classifier"
	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/invertedindex"
	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/trigram"
	"github.com/kraklabs/astra/internal/vectorindex"
)

func cobolFixture() map[string]*model.FileRecord {
	return map[string]*model.FileRecord{
		"payroll/calc.cbl": {
			Path: "payroll/calc.cbl", Language: "cobol",
			Symbols: []model.Symbol{
				{Name: "CALC-PAYROLL", Type: model.Program, Line: 1},
				{Name: "WS-EMPLOYEE-TABLE", Type: model.Field, Line: 20, Attributes: []string{"OCCURS:100"}},
				{Name: "EMPLOYEES", Type: model.Record, Line: 30},
			},
		},
	}
}

func newTestPipeline(t *testing.T) *Pipeline {
	t.Helper()
	cls := classifier.New()
	cls.Learn(cobolFixture(), nil)
	return New(codeindex.New(), trigram.New(), vectorindex.New(), invertedindex.New(), cls)
}

func TestComprehensiveSearchShortCircuitsListAllTables(t *testing.T) {
	p := newTestPipeline(t)

	results := p.ComprehensiveSearch("list all tables")
	if len(results) != 1 {
		t.Fatalf("ComprehensiveSearch(list all tables) = %d results, want 1", len(results))
	}
	if results[0].Name != "WS-EMPLOYEE-TABLE" {
		t.Errorf("results[0].Name = %q, want WS-EMPLOYEE-TABLE", results[0].Name)
	}
	for _, s := range results[0].Source {
		if s != "cobol_index" {
			continue
		}
		return
	}
	t.Errorf("results[0].Source = %v, want to include cobol_index", results[0].Source)
}

func TestComprehensiveSearchFallsThroughWhenIntentUnresolved(t *testing.T) {
	p := newTestPipeline(t)

	// "tables in nonexistent-module" classifies as LIST_TABLES_IN_MODULE but
	// resolves to no data, so it must fall through to normal search instead
	// of returning an empty short-circuit result.
	results := p.ComprehensiveSearch("tables in nonexistent-module")
	if results == nil {
		t.Fatal("expected a (possibly empty) slice from normal search, got nil slice indicating a panic-free fallthrough failed")
	}
}

func TestComprehensiveSearchGeneralQueryRunsAllPhases(t *testing.T) {
	p := newTestPipeline(t)

	// A query with no COBOL intent should never hit resolveIntent at all.
	results := p.ComprehensiveSearch("how does payroll work")
	_ = results // empty indexes, just confirm no panic and a valid (possibly empty) slice
}
