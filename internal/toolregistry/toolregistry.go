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

// Package toolregistry implements ToolRegistry (spec C14): a declarative set
// of named tools, each with typed parameters and an execute function
// returning a uniform success/data/error result, over the shared core
// indexes and an LLM provider.
package toolregistry

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kraklabs/astra/internal/classifier"
	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/invertedindex"
	"github.com/kraklabs/astra/internal/searchpipeline"
	"github.com/kraklabs/astra/internal/trigram"
	"github.com/kraklabs/astra/internal/vectorindex"
	"github.com/kraklabs/astra/pkg/llm"
)

// Result is the uniform {success, data?, error?} shape every tool returns
// (spec §4.13).
type Result struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Ok wraps a successful tool result.
func Ok(data any) *Result { return &Result{Success: true, Data: data} }

// Fail wraps a failed tool result.
func Fail(format string, args ...any) *Result {
	return &Result{Success: false, Error: fmt.Sprintf(format, args...)}
}

// Param describes one named, typed tool parameter.
type Param struct {
	Name     string
	Type     string // "string", "bool", "int", "string[]"
	Required bool
}

// Tool is one declarative entry in the registry (spec §4.13:
// "{name, description, parameters: {<name>: type}, execute(params)}").
type Tool struct {
	Name        string
	Description string
	Parameters  []Param
	Execute     func(ctx context.Context, params map[string]any) (*Result, error)
}

// Resources bundles the shared, single-writer core indexes and the LLM
// provider every tool body reads from (spec §5 "Shared resource policy").
type Resources struct {
	Index      *codeindex.Index
	Trigram    *trigram.Index
	Vector     *vectorindex.Index
	Inverted   *invertedindex.Index
	Classifier *classifier.Classifier
	Pipeline   *searchpipeline.Pipeline
	Provider   llm.Provider
	Model      string

	mu           sync.RWMutex
	contextFiles map[string]string
}

// NewResources wires a Resources bundle over already-built indexes.
func NewResources(idx *codeindex.Index, tri *trigram.Index, vec *vectorindex.Index, inv *invertedindex.Index, cls *classifier.Classifier, provider llm.Provider, model string) *Resources {
	return &Resources{
		Index:        idx,
		Trigram:      tri,
		Vector:       vec,
		Inverted:     inv,
		Classifier:   cls,
		Pipeline:     searchpipeline.New(idx, tri, vec, inv, cls),
		Provider:     provider,
		Model:        model,
		contextFiles: map[string]string{},
	}
}

// AddContextFile registers a user-attached file (spec §5: "contextFiles is
// mutated by user actions (add/remove/clear)").
func (r *Resources) AddContextFile(name, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contextFiles[name] = content
}

// RemoveContextFile drops a user-attached file.
func (r *Resources) RemoveContextFile(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.contextFiles, name)
}

// ClearContextFiles drops every user-attached file.
func (r *Resources) ClearContextFiles() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contextFiles = map[string]string{}
}

func (r *Resources) contextFile(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.contextFiles[name]
	return c, ok
}

func (r *Resources) contextFileNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.contextFiles))
	for n := range r.contextFiles {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// allContext concatenates every context file, bounded to maxBytes, for the
// "$context" substitution the executor performs (spec §4.14).
func (r *Resources) allContext(maxBytes int) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.contextFiles))
	for n := range r.contextFiles {
		names = append(names, n)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, n := range names {
		block := fmt.Sprintf("### %s\n\n%s\n\n", n, r.contextFiles[n])
		if maxBytes > 0 && sb.Len()+len(block) > maxBytes {
			break
		}
		sb.WriteString(block)
	}
	return sb.String()
}

// Content implements retrieval.ContentSource over the trigram index's
// resident text, falling back to user context files.
func (r *Resources) Content(path string) (string, bool) {
	if c, ok := r.Trigram.Content(path); ok {
		return c, true
	}
	return r.contextFile(path)
}

// Registry holds every named tool (spec §4.13).
type Registry struct {
	res   *Resources
	tools map[string]*Tool
	order []string
}

// New builds the full registry over res, registering every tool spec §4.13
// names (the required-tool list).
func New(res *Resources) *Registry {
	reg := &Registry{res: res, tools: map[string]*Tool{}}
	registerContextTools(reg, res)
	registerSearchTools(reg, res)
	registerLLMTools(reg, res)
	registerTranslateTools(reg, res)
	registerGenerateTools(reg, res)
	return reg
}

func (reg *Registry) register(t *Tool) {
	reg.tools[t.Name] = t
	reg.order = append(reg.order, t.Name)
}

// Get returns the named tool, if registered.
func (reg *Registry) Get(name string) (*Tool, bool) {
	t, ok := reg.tools[name]
	return t, ok
}

// Names returns every registered tool name, in registration order.
func (reg *Registry) Names() []string {
	out := make([]string, len(reg.order))
	copy(out, reg.order)
	return out
}

// Execute runs the named tool with the given parameters, returning a
// uniform failure Result rather than an error for an unknown tool name so
// plan execution (spec §4.14) can record it per-step without aborting.
func (reg *Registry) Execute(ctx context.Context, name string, params map[string]any) (*Result, error) {
	t, ok := reg.tools[name]
	if !ok {
		return Fail("unknown tool %q", name), nil
	}
	return t.Execute(ctx, params)
}

// Summary renders a short "name: description" listing for the planner
// prompt (spec §4.14: "the tool registry summary").
func (reg *Registry) Summary() string {
	var sb strings.Builder
	for _, name := range reg.order {
		t := reg.tools[name]
		sb.WriteString(fmt.Sprintf("- %s: %s\n", t.Name, t.Description))
	}
	return sb.String()
}

func stringParam(params map[string]any, name string) string {
	v, ok := params[name]
	if !ok {
		return ""
	}
	s, _ := v.(string)
	return s
}

func boolParam(params map[string]any, name string, def bool) bool {
	v, ok := params[name]
	if !ok {
		return def
	}
	b, ok := v.(bool)
	if !ok {
		return def
	}
	return b
}

func intParam(params map[string]any, name string, def int) int {
	v, ok := params[name]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return def
	}
}
