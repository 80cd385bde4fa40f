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
	"sort"
	"strings"

	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/pathutil"
)

// TableRef is one occurrence of a COBOL in-memory table or embedded-SQL
// table, as recorded in cobolTableIndex / sqlTableIndex (spec §4.9:
// "Specialized COBOL intents route directly to precomputed indexes
// (cobolTableIndex, sqlTableIndex, moduleIndex)").
type TableRef struct {
	Name   string
	File   string
	Line   int
	Module string
}

// ModuleOverview is the precomputed moduleIndex entry for one top-level
// module: its files, its COBOL programs, and symbol-kind counts, enough to
// answer a MODULE_OVERVIEW intent without a full search pass.
type ModuleOverview struct {
	Module     string
	Files      []string
	Programs   []string
	Sections   int
	Paragraphs int
	DataItems  int
}

// hasOccurs reports whether sym carries an "OCCURS:" attribute, marking it
// as a COBOL table (an array-shaped data item) rather than a scalar field.
func hasOccurs(sym model.Symbol) bool {
	for _, attr := range sym.Attributes {
		if strings.HasPrefix(attr, "OCCURS:") {
			return true
		}
	}
	return false
}

// learnCOBOLIndexes rebuilds cobolTableIndex, sqlTableIndex, and moduleIndex
// from the same file walk Learn already performs. Cheap relative to the
// term-cluster pass: one pass over each file's symbols, no co-occurrence
// counting.
func learnCOBOLIndexes(files map[string]*model.FileRecord) (tables map[string][]TableRef, sqlTables map[string][]TableRef, modules map[string]*ModuleOverview) {
	tables = map[string][]TableRef{}
	sqlTables = map[string][]TableRef{}
	modules = map[string]*ModuleOverview{}

	moduleOf := func(path string) *ModuleOverview {
		mod := pathutil.TopModules(path)
		if mod == "" {
			mod = "."
		}
		ov := modules[mod]
		if ov == nil {
			ov = &ModuleOverview{Module: mod}
			modules[mod] = ov
		}
		return ov
	}

	for path, rec := range files {
		ov := moduleOf(path)
		ov.Files = append(ov.Files, path)

		for _, sym := range rec.Symbols {
			switch sym.Type {
			case model.Program:
				ov.Programs = append(ov.Programs, sym.Name)
			case model.Section:
				ov.Sections++
			case model.Paragraph:
				ov.Paragraphs++
			case model.Field:
				ov.DataItems++
				if hasOccurs(sym) {
					ref := TableRef{Name: sym.Name, File: path, Line: sym.Line, Module: ov.Module}
					tables[sym.Name] = append(tables[sym.Name], ref)
				}
			case model.Record:
				ref := TableRef{Name: sym.Name, File: path, Line: sym.Line, Module: ov.Module}
				sqlTables[sym.Name] = append(sqlTables[sym.Name], ref)
			}
		}
	}

	for _, ov := range modules {
		sort.Strings(ov.Files)
		sort.Strings(ov.Programs)
	}
	return tables, sqlTables, modules
}

// TablesInModule returns the COBOL tables (OCCURS-clause data items)
// declared anywhere under the given top-level module, sorted by name.
func (c *Classifier) TablesInModule(module string) []TableRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []TableRef
	for _, refs := range c.cobolTables {
		for _, r := range refs {
			if r.Module == module {
				out = append(out, r)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AllTables returns every COBOL table known to the index, sorted by name.
func (c *Classifier) AllTables() []TableRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []TableRef
	for _, refs := range c.cobolTables {
		out = append(out, refs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// SQLTables returns every embedded-SQL table reference known to the index,
// sorted by name.
func (c *Classifier) SQLTables() []TableRef {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []TableRef
	for _, refs := range c.sqlTables {
		out = append(out, refs...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// ModuleOverview returns the precomputed overview for module, if any module
// with that name was seen during Learn.
func (c *Classifier) ModuleOverview(module string) (ModuleOverview, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ov, ok := c.moduleIndex[module]
	if !ok {
		return ModuleOverview{}, false
	}
	return *ov, true
}
