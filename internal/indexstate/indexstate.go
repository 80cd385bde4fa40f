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

// Package indexstate implements the indexing state machine every phase of
// indexing reports progress through, and the query-blocking contract the
// search pipeline consults before serving a query (spec C8).
package indexstate

import (
	"fmt"
	"sync"
	"time"
)

// Phase is one state of the indexing state machine (spec §3 "IndexingState").
type Phase string

const (
	Idle      Phase = "idle"
	Parsing   Phase = "parsing"
	Symbols   Phase = "symbols"
	Trigrams  Phase = "trigrams"
	Search    Phase = "search"
	Summaries Phase = "summaries"
	Inverted  Phase = "inverted"
	Ready     Phase = "ready"
)

// order is the unidirectional transition sequence (spec §4.6): "idle ->
// parsing -> symbols -> trigrams -> search -> (summaries -> inverted)? ->
// ready". summaries/inverted are optional — Search may transition straight
// to Ready when no LLM-backed summarization runs.
var order = map[Phase]int{
	Idle: 0, Parsing: 1, Symbols: 2, Trigrams: 3, Search: 4,
	Summaries: 5, Inverted: 6, Ready: 7,
}

// Counters tracks the running totals surfaced in progress events and
// blocking messages.
type Counters struct {
	FilesIndexed       int
	SymbolsFound       int
	SummariesGenerated int
	InvertedTerms      int
}

// Event is one progress notification (spec §4.6: "Every phase transition
// emits a progress event with the phase label, percentage, and counters").
type Event struct {
	Phase    Phase
	Percent  int
	Counters Counters
}

// Listener receives progress events as phases advance.
type Listener func(Event)

// Machine is the process-wide indexing state machine singleton.
type Machine struct {
	mu             sync.RWMutex
	phase          Phase
	progress       int
	counters       Counters
	isSummarizing  bool
	isReady        bool
	startedAt      time.Time
	completedAt    time.Time
	listeners      []Listener
}

// New returns a machine in the Idle phase.
func New() *Machine {
	return &Machine{phase: Idle}
}

// Subscribe registers l to receive subsequent progress events.
func (m *Machine) Subscribe(l Listener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

// Transition advances the machine to phase, clamping percent to [0,100] and
// emitting a progress event to every subscriber. Transitioning backwards in
// the phase order is a no-op, except for a transition to Idle (always
// accepted) and the explicit Reset.
func (m *Machine) Transition(phase Phase, percent int, counters Counters) {
	m.mu.Lock()
	if phase != Idle && order[phase] < order[m.phase] {
		m.mu.Unlock()
		return
	}
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	if m.phase == Idle && m.startedAt.IsZero() {
		m.startedAt = time.Now()
	}
	m.phase = phase
	m.progress = percent
	m.counters = counters
	listeners := append([]Listener(nil), m.listeners...)
	m.mu.Unlock()

	evt := Event{Phase: phase, Percent: percent, Counters: counters}
	for _, l := range listeners {
		l(evt)
	}
}

// Reset returns the machine to Idle, e.g. before a full rebuild.
func (m *Machine) Reset() {
	m.mu.Lock()
	m.phase = Idle
	m.progress = 0
	m.counters = Counters{}
	m.isReady = false
	m.isSummarizing = false
	m.startedAt = time.Time{}
	m.completedAt = time.Time{}
	m.mu.Unlock()
}

// Complete sets isReady=true, records completion time, and transitions to
// Ready. Persistence is triggered by the caller, not by the state machine
// (spec §4.6: "complete() sets isReady=true ... persistence is triggered by
// the caller").
func (m *Machine) Complete() {
	m.mu.Lock()
	m.isReady = true
	m.completedAt = time.Now()
	m.mu.Unlock()
	m.Transition(Ready, 100, m.Snapshot().Counters)
}

// SetSummarizing flags whether summarization is in flight. Summarization
// alone never blocks queries (spec §4.6: "shouldBlockQueries() is true iff
// isIndexing. Summarization alone does not block queries").
func (m *Machine) SetSummarizing(v bool) {
	m.mu.Lock()
	m.isSummarizing = v
	m.mu.Unlock()
}

// IsIndexing reports whether the machine is in a phase preceding Ready that
// is not itself Summaries/Inverted (those run after a base index is usable).
func (m *Machine) IsIndexing() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	switch m.phase {
	case Parsing, Symbols, Trigrams, Search:
		return true
	default:
		return false
	}
}

// ShouldBlockQueries implements the exact contract named in spec §4.6.
func (m *Machine) ShouldBlockQueries() bool {
	return m.IsIndexing()
}

// GetBlockingMessage returns a user-facing string describing why queries
// are blocked, including the current phase and counters.
func (m *Machine) GetBlockingMessage() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fmt.Sprintf(
		"Index is still building (%s, %d%%) — %d files indexed, %d symbols found so far. Try again shortly.",
		m.phase, m.progress, m.counters.FilesIndexed, m.counters.SymbolsFound,
	)
}

// Snapshot is a read-only copy of the machine's current state.
type Snapshot struct {
	Phase         Phase
	Progress      int
	Counters      Counters
	IsSummarizing bool
	IsReady       bool
	StartedAt     time.Time
	CompletedAt   time.Time
}

// Snapshot returns a consistent point-in-time copy of the machine's state.
func (m *Machine) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		Phase: m.phase, Progress: m.progress, Counters: m.counters,
		IsSummarizing: m.isSummarizing, IsReady: m.isReady,
		StartedAt: m.startedAt, CompletedAt: m.completedAt,
	}
}
