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

package codeindex

import (
	"time"

	"github.com/kraklabs/astra/internal/model"
)

// CallEdgeRecord is one (caller,callee) pair, the snapshot form of the
// callGraph map (spec §6: "code-index/*.json — CodeIndex snapshot
// (symbols, call graph, reverse call graph, summaries, file summaries)").
type CallEdgeRecord struct {
	Caller string `json:"caller"`
	Callee string `json:"callee"`
}

// Snapshot is the on-disk form of an Index, restorable byte-for-byte in
// the round-trip invariant's terms: {symbols.size, callGraph edge count,
// summaries.size} (spec §8).
type Snapshot struct {
	Files         map[string]*model.FileRecord  `json:"files"`
	Symbols       map[string]*model.Symbol      `json:"symbols"`
	CallEdges     []CallEdgeRecord              `json:"callEdges"`
	Summaries     map[string]*model.SummaryEntry `json:"summaries"`
	FileSummaries map[string]string             `json:"fileSummaries"`
	OverallSummary string                       `json:"overallSummary,omitempty"`
	Domain        *model.DomainFingerprint      `json:"domain,omitempty"`
	LastUpdated   time.Time                     `json:"lastUpdated"`
}

// Snapshot captures the index's current state for persistence. Only
// qualified ("name@path") symbol keys are emitted; bare-name aliases are
// regenerated on Restore so they always point at the last-indexed
// occurrence (spec §3 invariant: "the bare alias is best-effort and MAY be
// overwritten").
func (idx *Index) Snapshot() Snapshot {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	files := make(map[string]*model.FileRecord, len(idx.files))
	for k, v := range idx.files {
		files[k] = v
	}

	symbols := make(map[string]*model.Symbol, len(idx.symbols))
	for k, s := range idx.symbols {
		if model.IsQualifiedKey(k) {
			symbols[k] = s
		}
	}

	var edges []CallEdgeRecord
	for caller, callees := range idx.callGraph {
		for callee := range callees {
			edges = append(edges, CallEdgeRecord{Caller: caller, Callee: callee})
		}
	}

	summaries := make(map[string]*model.SummaryEntry, len(idx.summaries))
	for k, v := range idx.summaries {
		summaries[k] = v
	}

	fileSummaries := make(map[string]string, len(idx.fileSummaries))
	for k, v := range idx.fileSummaries {
		fileSummaries[k] = v
	}

	return Snapshot{
		Files:          files,
		Symbols:        symbols,
		CallEdges:      edges,
		Summaries:      summaries,
		FileSummaries:  fileSummaries,
		OverallSummary: idx.overallSummary,
		Domain:         idx.domain,
		LastUpdated:    idx.lastUpdated,
	}
}

// Restore replaces the index's contents with snap's, regenerating bare-name
// aliases and both call-graph directions from the qualified symbols and
// edge list (spec §7 IndexCorruption: "Log and trigger full rebuild" is the
// caller's fallback if Restore's input looks inconsistent; Restore itself
// does not validate, it reconstructs).
func (idx *Index) Restore(snap Snapshot) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.reset()

	for k, v := range snap.Files {
		idx.files[k] = v
	}
	for k, s := range snap.Symbols {
		idx.symbols[k] = s
		if s.Name != "" {
			idx.symbols[s.Name] = s
		}
	}
	for _, e := range snap.CallEdges {
		idx.addCallEdgeLocked(e.Caller, e.Callee)
	}
	for k, v := range snap.Summaries {
		idx.summaries[k] = v
	}
	for k, v := range snap.FileSummaries {
		idx.fileSummaries[k] = v
	}
	idx.overallSummary = snap.OverallSummary
	idx.domain = snap.Domain
	idx.lastUpdated = snap.LastUpdated
}
