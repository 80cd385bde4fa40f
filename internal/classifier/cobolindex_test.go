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

package classifier

import (
	"testing"

	"github.com/kraklabs/astra/internal/model"
)

func cobolFixture() map[string]*model.FileRecord {
	return map[string]*model.FileRecord{
		"payroll/calc.cbl": {
			Path:     "payroll/calc.cbl",
			Language: "cobol",
			Symbols: []model.Symbol{
				{Name: "CALC-PAYROLL", Type: model.Program, Line: 1},
				{Name: "MAIN-SECTION", Type: model.Section, Line: 5},
				{Name: "COMPUTE-GROSS", Type: model.Paragraph, Line: 10},
				{Name: "WS-EMPLOYEE-TABLE", Type: model.Field, Line: 20, Attributes: []string{"OCCURS:100"}},
				{Name: "WS-RATE", Type: model.Field, Line: 21},
				{Name: "EMPLOYEES", Type: model.Record, Line: 30},
			},
		},
		"payroll/report.cbl": {
			Path:     "payroll/report.cbl",
			Language: "cobol",
			Symbols: []model.Symbol{
				{Name: "CALC-REPORT", Type: model.Program, Line: 1},
				{Name: "WS-LINE-TABLE", Type: model.Field, Line: 15, Attributes: []string{"OCCURS:50"}},
			},
		},
		"billing/invoice.cbl": {
			Path:     "billing/invoice.cbl",
			Language: "cobol",
			Symbols: []model.Symbol{
				{Name: "GEN-INVOICE", Type: model.Program, Line: 1},
				{Name: "INVOICES", Type: model.Record, Line: 8},
			},
		},
	}
}

func TestLearnCOBOLIndexesBuildsTablesByModule(t *testing.T) {
	c := New()
	c.Learn(cobolFixture(), nil)

	refs := c.TablesInModule("payroll")
	if len(refs) != 2 {
		t.Fatalf("TablesInModule(payroll) = %d refs, want 2", len(refs))
	}
	if refs[0].Name != "WS-EMPLOYEE-TABLE" && refs[1].Name != "WS-EMPLOYEE-TABLE" {
		t.Errorf("expected WS-EMPLOYEE-TABLE among payroll tables, got %+v", refs)
	}

	if got := c.TablesInModule("billing"); len(got) != 0 {
		t.Errorf("TablesInModule(billing) = %+v, want none (billing has no OCCURS fields)", got)
	}
}

func TestLearnCOBOLIndexesAllTables(t *testing.T) {
	c := New()
	c.Learn(cobolFixture(), nil)

	all := c.AllTables()
	if len(all) != 2 {
		t.Fatalf("AllTables() = %d, want 2", len(all))
	}
}

func TestLearnCOBOLIndexesSQLTables(t *testing.T) {
	c := New()
	c.Learn(cobolFixture(), nil)

	sql := c.SQLTables()
	if len(sql) != 2 {
		t.Fatalf("SQLTables() = %d, want 2", len(sql))
	}
}

func TestLearnCOBOLIndexesModuleOverview(t *testing.T) {
	c := New()
	c.Learn(cobolFixture(), nil)

	ov, ok := c.ModuleOverview("payroll")
	if !ok {
		t.Fatal("ModuleOverview(payroll) not found")
	}
	if len(ov.Files) != 2 {
		t.Errorf("ov.Files = %v, want 2 entries", ov.Files)
	}
	if len(ov.Programs) != 2 {
		t.Errorf("ov.Programs = %v, want 2 entries", ov.Programs)
	}
	if ov.Sections != 1 {
		t.Errorf("ov.Sections = %d, want 1", ov.Sections)
	}
	if ov.Paragraphs != 1 {
		t.Errorf("ov.Paragraphs = %d, want 1", ov.Paragraphs)
	}

	if _, ok := c.ModuleOverview("nonexistent"); ok {
		t.Error("ModuleOverview(nonexistent) should not be found")
	}
}

func TestClassifyCOBOLIntents(t *testing.T) {
	c := New()
	c.Learn(cobolFixture(), nil)

	tests := []struct {
		query string
		want  Intent
	}{
		{"list all tables", IntentListAllTables},
		{"show sql tables", IntentListSQLTables},
		{"what copybooks are used", IntentFindCopybooks},
	}
	for _, tc := range tests {
		got := c.Classify(tc.query)
		if got.Intent != tc.want {
			t.Errorf("Classify(%q).Intent = %q, want %q", tc.query, got.Intent, tc.want)
		}
	}
}
