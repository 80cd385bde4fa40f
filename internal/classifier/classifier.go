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

// Package classifier implements QueryClassifier (spec C10): a learned
// module/term-cluster model plus a rule-based query-type and
// COBOL-intent classifier.
package classifier

import (
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/astra/internal/langdetect"
	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/pathutil"
	"github.com/kraklabs/astra/internal/tokenize"
)

// QueryType enumerates the general query categories (spec §4.9).
type QueryType string

const (
	TypeConcept        QueryType = "concept"
	TypeStructure      QueryType = "structure"
	TypeCallGraph      QueryType = "call_graph"
	TypeImplementation QueryType = "implementation"
	TypeFlow           QueryType = "flow"
	TypeFilesTrace     QueryType = "files_trace"
	TypeCrossModule    QueryType = "cross_module"
	TypeGeneral        QueryType = "general"
)

// Intent enumerates the specialized COBOL routing intents (spec §4.9).
type Intent string

const (
	IntentListTablesInModule Intent = "LIST_TABLES_IN_MODULE"
	IntentListAllTables      Intent = "LIST_ALL_TABLES"
	IntentListSQLTables      Intent = "LIST_SQL_TABLES"
	IntentModuleOverview     Intent = "MODULE_OVERVIEW"
	IntentFindDefinition     Intent = "FIND_DEFINITION"
	IntentFindCallers        Intent = "FIND_CALLERS"
	IntentFindCallees        Intent = "FIND_CALLEES"
	IntentFindDatabase       Intent = "FIND_DATABASE"
	IntentFindFileIO         Intent = "FIND_FILE_IO"
	IntentFindCopybooks      Intent = "FIND_COPYBOOKS"
	IntentFindValidation     Intent = "FIND_VALIDATION"
	IntentFindErrorHandling  Intent = "FIND_ERROR_HANDLING"
	IntentNone               Intent = ""
)

// Classification is the output of Classify (spec §4.9).
type Classification struct {
	Type          QueryType
	Intent        Intent
	Entities      []string
	ExpandedTerms []string
	ModuleHints   []string
	Confidence    float64
}

// Classifier holds the learned module map, term clusters, and synonym
// overlay, re-learned after indexing and after summaries (spec §4.9).
type Classifier struct {
	mu           sync.RWMutex
	moduleTokens map[string]map[string]bool // module -> token set
	clusters     map[string]map[string]bool // token -> co-occurring tokens
	synonyms     map[string][]string

	// Precomputed COBOL routing indexes (spec §4.9), rebuilt by Learn
	// alongside moduleTokens/clusters.
	cobolTables map[string][]TableRef
	sqlTables   map[string][]TableRef
	moduleIndex map[string]*ModuleOverview
}

// New returns a Classifier with the built-in base and COBOL synonym
// overlays already loaded; Learn must still be called once an index exists.
func New() *Classifier {
	c := &Classifier{
		moduleTokens: map[string]map[string]bool{},
		clusters:     map[string]map[string]bool{},
		synonyms:     map[string][]string{},
		cobolTables:  map[string][]TableRef{},
		sqlTables:    map[string][]TableRef{},
		moduleIndex:  map[string]*ModuleOverview{},
	}
	c.loadBaseSynonyms()
	c.loadCOBOLSynonyms()
	return c
}

// Learn rebuilds the module map and term clusters from the current
// CodeIndex contents (spec §4.9 "Learning phase").
func (c *Classifier) Learn(files map[string]*model.FileRecord, summaries map[string]*model.SummaryEntry) {
	moduleTokens := map[string]map[string]bool{}
	fileTokens := map[string]map[string]bool{}

	for path, rec := range files {
		mod := pathutil.TopModules(path)
		if mod == "" {
			continue
		}
		set := moduleTokens[mod]
		if set == nil {
			set = map[string]bool{}
			moduleTokens[mod] = set
		}
		toks := fileTokens[path]
		if toks == nil {
			toks = map[string]bool{}
			fileTokens[path] = toks
		}
		for _, sym := range rec.Symbols {
			for _, tok := range tokenize.Split(sym.Name) {
				set[tok] = true
				toks[tok] = true
			}
		}
	}
	for _, entry := range summaries {
		toks := fileTokens[entry.File]
		if toks == nil {
			toks = map[string]bool{}
			fileTokens[entry.File] = toks
		}
		for _, tok := range tokenize.Words(entry.Summary) {
			toks[tok] = true
		}
		if mod := pathutil.TopModules(entry.File); mod != "" {
			set := moduleTokens[mod]
			if set == nil {
				set = map[string]bool{}
				moduleTokens[mod] = set
			}
			for _, tok := range tokenize.Words(entry.Summary) {
				set[tok] = true
			}
		}
	}

	// Term clusters: tokens that co-occur in the same file, above a
	// minimal frequency threshold of 2 files, form an association.
	coFileCount := map[[2]string]int{}
	for _, toks := range fileTokens {
		list := make([]string, 0, len(toks))
		for t := range toks {
			list = append(list, t)
		}
		sort.Strings(list)
		for i := 0; i < len(list); i++ {
			for j := i + 1; j < len(list); j++ {
				coFileCount[[2]string{list[i], list[j]}]++
			}
		}
	}
	clusters := map[string]map[string]bool{}
	for pair, n := range coFileCount {
		if n < 2 {
			continue
		}
		addCluster(clusters, pair[0], pair[1])
		addCluster(clusters, pair[1], pair[0])
	}

	tables, sqlTables, modules := learnCOBOLIndexes(files)

	c.mu.Lock()
	c.moduleTokens = moduleTokens
	c.clusters = clusters
	c.cobolTables = tables
	c.sqlTables = sqlTables
	c.moduleIndex = modules
	c.mu.Unlock()
}

func addCluster(clusters map[string]map[string]bool, a, b string) {
	set := clusters[a]
	if set == nil {
		set = map[string]bool{}
		clusters[a] = set
	}
	set[b] = true
}

// typeSignals maps query-type signal keywords to the type they imply.
// Checked in this order; the first match with a non-zero hit count wins.
var typeSignals = []struct {
	typ      QueryType
	keywords []string
}{
	{TypeCallGraph, []string{"calls", "caller", "callee", "called by", "calls into", "invoked by", "invokes"}},
	{TypeStructure, []string{"struct", "class", "interface", "type", "field", "schema", "shape of"}},
	{TypeFlow, []string{"flow", "sequence", "order", "step", "pipeline", "lifecycle"}},
	{TypeFilesTrace, []string{"file", "files", "directory", "located", "where is"}},
	{TypeCrossModule, []string{"module", "package", "across", "between modules", "depends on"}},
	{TypeImplementation, []string{"how is", "how does", "implemented", "implementation of"}},
	{TypeConcept, []string{"what is", "what does", "purpose", "why", "concept", "explain"}},
}

// Classify implements the rule-based query-type/intent classification
// contract of spec §4.9.
func (c *Classifier) Classify(query string) Classification {
	lower := strings.ToLower(query)

	if intent, entities := c.classifyCOBOLIntent(lower); intent != IntentNone {
		return Classification{
			Type: TypeConcept, Intent: intent, Entities: entities,
			ExpandedTerms: c.ExpandTerms(query), ModuleHints: c.moduleHints(lower),
			Confidence: 0.9,
		}
	}

	typ := TypeGeneral
	confidence := 0.4
	for _, sig := range typeSignals {
		for _, kw := range sig.keywords {
			if strings.Contains(lower, kw) {
				typ = sig.typ
				confidence = 0.75
				break
			}
		}
		if typ != TypeGeneral {
			break
		}
	}

	return Classification{
		Type: typ, Intent: IntentNone, Entities: extractEntities(query),
		ExpandedTerms: c.ExpandTerms(query), ModuleHints: c.moduleHints(lower),
		Confidence: confidence,
	}
}

func (c *Classifier) moduleHints(lowerQuery string) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var hints []string
	for mod, toks := range c.moduleTokens {
		for t := range toks {
			if len(t) >= 3 && strings.Contains(lowerQuery, t) {
				hints = append(hints, mod)
				break
			}
		}
	}
	sort.Strings(hints)
	return hints
}

// extractEntities returns capitalized-looking or dotted/underscored tokens
// from the raw query as likely symbol-name entities.
func extractEntities(query string) []string {
	var out []string
	for _, tok := range strings.Fields(query) {
		tok = strings.Trim(tok, ".,?!:;\"'()")
		if tok == "" {
			continue
		}
		if strings.ContainsAny(tok, "_.") || (len(tok) > 1 && strings.ToUpper(tok) == tok) || hasInnerUpper(tok) {
			out = append(out, tok)
		}
	}
	return out
}

func hasInnerUpper(s string) bool {
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			return true
		}
	}
	return false
}

const maxExpandedTerms = 25

// ExpandTerms implements spec §4.9's expandTerms: camelCase-split tokens,
// module aliases, executor-style prefixes, domain dictionaries, and the
// synonym overlay, deduped and capped. Synonyms (base and COBOL alike) are
// added for every synonym key the query contains; whether the query is
// COBOL-flavored is not checked.
func (c *Classifier) ExpandTerms(query string) []string {
	seen := map[string]bool{}
	var out []string
	add := func(t string) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || tokenize.Stopwords[t] || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	for _, tok := range tokenize.Words(query) {
		add(tok)
	}

	lower := strings.ToLower(query)
	for alias, expansions := range moduleAliases {
		if strings.Contains(lower, alias) {
			for _, e := range expansions {
				add(e)
			}
		}
	}

	if strings.Contains(lower, "how") && strings.Contains(lower, "implement") {
		for _, tok := range tokenize.Words(query) {
			add("node" + tok)
			add("Exec" + strings.Title(tok))
		}
	}

	for phrase, expansions := range domainDictionary {
		if strings.Contains(lower, phrase) {
			for _, e := range expansions {
				add(e)
			}
		}
	}

	c.mu.RLock()
	for term, syns := range c.synonyms {
		if strings.Contains(lower, term) {
			for _, s := range syns {
				add(s)
			}
		}
	}
	c.mu.RUnlock()

	if len(out) > maxExpandedTerms {
		out = out[:maxExpandedTerms]
	}
	return out
}

// moduleAliases maps short colloquial names to likely file-stem prefixes
// (spec §4.9: "known module aliases (e.g. 'btree' -> file-stem prefixes)").
var moduleAliases = map[string][]string{
	"btree": {"nbtree", "btree"},
	"wal":   {"xlog", "walreceiver"},
	"auth":  {"authn", "authenticate", "authorization"},
}

// domainDictionary maps multi-word concepts to their canonical identifiers
// (spec §4.9: "hash join -> nodeHashjoin, ExecHashJoin, HashJoinState").
var domainDictionary = map[string][]string{
	"hash join":  {"nodehashjoin", "exechashjoin", "hashjoinstate"},
	"sort":       {"nodesort", "execsort", "tuplesort"},
	"merge join": {"nodemergejoin", "execmergejoin"},
}

func (c *Classifier) loadBaseSynonyms() {
	c.synonyms["error"] = []string{"exception", "failure", "fault"}
	c.synonyms["validate"] = []string{"check", "verify", "sanitize"}
	c.synonyms["database"] = []string{"db", "datastore", "repository"}
}

func (c *Classifier) loadCOBOLSynonyms() {
	c.synonyms["loop"] = []string{"PERFORM UNTIL", "PERFORM VARYING", "PERFORM TIMES"}
	c.synonyms["if"] = []string{"IF", "EVALUATE"}
	c.synonyms["call"] = []string{"CALL", "PERFORM"}
	c.synonyms["file"] = []string{"FD", "SELECT", "OPEN", "READ", "WRITE", "CLOSE"}
	c.synonyms["database"] = append(c.synonyms["database"], "EXEC SQL", "CURSOR")
	c.synonyms["error"] = append(c.synonyms["error"], "ON ERROR", "INVALID KEY", "AT END")
	c.synonyms["move"] = []string{"MOVE"}
	c.synonyms["table"] = []string{"OCCURS", "INDEXED BY", "SEARCH"}
	c.synonyms["copy"] = []string{"COPY", "COPYBOOK"}
}

// classifyCOBOLIntent recognizes the specialized COBOL intents (spec §4.9)
// by keyword matching; it returns IntentNone if lowerQuery doesn't match a
// COBOL-specific shape.
func (c *Classifier) classifyCOBOLIntent(lowerQuery string) (Intent, []string) {
	switch {
	case strings.Contains(lowerQuery, "tables in") || (strings.Contains(lowerQuery, "tables") && strings.Contains(lowerQuery, "module")):
		return IntentListTablesInModule, extractEntities(lowerQuery)
	case strings.Contains(lowerQuery, "all tables") || strings.Contains(lowerQuery, "list tables"):
		return IntentListAllTables, nil
	case strings.Contains(lowerQuery, "sql tables") || strings.Contains(lowerQuery, "sql table"):
		return IntentListSQLTables, nil
	case strings.Contains(lowerQuery, "overview of") && strings.Contains(lowerQuery, "module"):
		return IntentModuleOverview, extractEntities(lowerQuery)
	case strings.Contains(lowerQuery, "where is") && strings.Contains(lowerQuery, "defined"):
		return IntentFindDefinition, extractEntities(lowerQuery)
	case strings.Contains(lowerQuery, "who calls") || strings.Contains(lowerQuery, "callers of"):
		return IntentFindCallers, extractEntities(lowerQuery)
	case strings.Contains(lowerQuery, "what does") && strings.Contains(lowerQuery, "call"):
		return IntentFindCallees, extractEntities(lowerQuery)
	case strings.Contains(lowerQuery, "database") || strings.Contains(lowerQuery, "sql"):
		return IntentFindDatabase, nil
	case strings.Contains(lowerQuery, "file i/o") || strings.Contains(lowerQuery, "file io") || strings.Contains(lowerQuery, "read a file") || strings.Contains(lowerQuery, "write a file"):
		return IntentFindFileIO, nil
	case strings.Contains(lowerQuery, "copybook"):
		return IntentFindCopybooks, nil
	case strings.Contains(lowerQuery, "validation") || strings.Contains(lowerQuery, "validate"):
		return IntentFindValidation, nil
	case strings.Contains(lowerQuery, "error handling") || strings.Contains(lowerQuery, "exception handling"):
		return IntentFindErrorHandling, nil
	}
	return IntentNone, nil
}

// IsCOBOLContext reports whether a query or index majority language
// suggests COBOL-specific routing should apply.
func IsCOBOLContext(dominantLanguage string) bool {
	return langdetect.IsCOBOLDialect(dominantLanguage)
}
