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

// Package planner implements Planner/Executor (spec C15): an LLM-authored
// JSON plan over the tool registry, a deterministic query preclassifier
// that feeds the planning prompt and enforces a mandatory tool mapping, and
// a step executor with reference substitution and non-aborting failure
// handling.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/toolregistry"
	"github.com/kraklabs/astra/pkg/llm"
)

// TaskType is analyzeQuery's deterministic task classification.
type TaskType string

const (
	TaskReview    TaskType = "REVIEW"
	TaskExplain   TaskType = "EXPLAIN"
	TaskTrace     TaskType = "TRACE"
	TaskSearch    TaskType = "SEARCH"
	TaskGenerate  TaskType = "GENERATE"
	TaskTranslate TaskType = "TRANSLATE"
	TaskDocument  TaskType = "DOCUMENT"
	TaskCompare   TaskType = "COMPARE"
)

// TargetType is the kind of thing a query names.
type TargetType string

const (
	TargetFile    TargetType = "file"
	TargetFunc    TargetType = "function"
	TargetConcept TargetType = "concept"
)

// Target is the subject of a query, as best identified by analyzeQuery.
type Target struct {
	Type   TargetType `json:"type"`
	Value  string     `json:"value"`
	Exists bool       `json:"exists"`
}

// Analysis is analyzeQuery's output (spec §4.14).
type Analysis struct {
	TaskType      TaskType `json:"taskType"`
	Target        Target   `json:"target"`
	Scope         string   `json:"scope"`
	SuggestedTool string   `json:"suggestedTool"`
	Keywords      []string `json:"keywords"`
	Confidence    float64  `json:"confidence"`
}

var (
	reviewRE    = regexp.MustCompile(`(?i)\breview\b`)
	exampleTraceRE = regexp.MustCompile(`(?i)\btrace|call flow|flows? through\b`)
	explainRE   = regexp.MustCompile(`(?i)\bexplain|what does|how does|understand\b`)
	generateRE  = regexp.MustCompile(`(?i)\bgenerate|create|write (a|an)\b`)
	translateRE = regexp.MustCompile(`(?i)\btranslate|port|convert (this|the)\b`)
	documentRE  = regexp.MustCompile(`(?i)\bdocument|documentation\b`)
	compareRE   = regexp.MustCompile(`(?i)\bcompare|difference between|versus|vs\.?\b`)
	fileRefRE   = regexp.MustCompile(`[\w./\\-]+\.\w+`)
	identRE     = regexp.MustCompile(`\b[A-Za-z_][A-Za-z0-9_]*\(\)|\b[A-Za-z_][A-Za-z0-9_]*\b`)
)

// AnalyzeQuery deterministically preclassifies a query before the model
// sees it (spec §4.14: "a deterministic preclassification").
func AnalyzeQuery(query string, idx *codeindex.Index) Analysis {
	a := Analysis{TaskType: TaskSearch, Scope: "project", Confidence: 0.5}

	switch {
	case reviewRE.MatchString(query):
		a.TaskType = TaskReview
		a.Confidence = 0.8
	case exampleTraceRE.MatchString(query):
		a.TaskType = TaskTrace
		a.Confidence = 0.75
	case translateRE.MatchString(query):
		a.TaskType = TaskTranslate
		a.Confidence = 0.75
	case documentRE.MatchString(query):
		a.TaskType = TaskDocument
		a.Confidence = 0.7
	case compareRE.MatchString(query):
		a.TaskType = TaskCompare
		a.Confidence = 0.6
	case generateRE.MatchString(query):
		a.TaskType = TaskGenerate
		a.Confidence = 0.7
	case explainRE.MatchString(query):
		a.TaskType = TaskExplain
		a.Confidence = 0.7
	}

	if m := fileRefRE.FindString(query); m != "" {
		_, exists := idx.File(m)
		a.Target = Target{Type: TargetFile, Value: m, Exists: exists}
	} else if m := firstKnownIdentifier(query, idx); m != "" {
		_, exists := idx.Symbol(m)
		a.Target = Target{Type: TargetFunc, Value: m, Exists: exists}
	} else {
		a.Target = Target{Type: TargetConcept, Value: strings.TrimSpace(query)}
	}

	a.Keywords = identRE.FindAllString(query, -1)
	a.SuggestedTool = mandatoryTool(a.TaskType, a.Target.Type)
	return a
}

func firstKnownIdentifier(query string, idx *codeindex.Index) string {
	for _, m := range identRE.FindAllString(query, -1) {
		name := strings.TrimSuffix(m, "()")
		if _, ok := idx.Symbol(name); ok {
			return name
		}
	}
	return ""
}

// mandatoryTool enforces spec §4.14's tool-mapping table.
func mandatoryTool(t TaskType, target TargetType) string {
	switch {
	case t == TaskReview && target == TargetFile:
		return "review_file"
	case t == TaskReview && target == TargetFunc:
		return "review_code"
	case t == TaskExplain && target == TargetFile:
		return "search_code"
	case t == TaskExplain && target == TargetFunc:
		return "get_function_context"
	case t == TaskTrace:
		return "search_code"
	case t == TaskSearch:
		return "search_code"
	default:
		return ""
	}
}

// Step is one planned tool invocation (spec §4.14).
type Step struct {
	Step       int            `json:"step"`
	Tool       string         `json:"tool"`
	Purpose    string         `json:"purpose"`
	Parameters map[string]any `json:"parameters"`
}

// Plan is the model's JSON response to createPlan (spec §4.14's schema).
type Plan struct {
	// PlanID correlates this plan's progress events and step results back
	// to a single CreatePlan call; it is assigned by CreatePlan, never by
	// the model, so it is excluded from the prompt/response JSON schema.
	PlanID                string `json:"-"`
	Domain                string `json:"domain"`
	DomainNotes           string `json:"domain_notes"`
	Understanding         string `json:"understanding"`
	Strategy              string `json:"strategy"`
	Steps                 []Step `json:"steps"`
	FinalOutput           string `json:"final_output"`
	NeedsClarification    bool   `json:"needs_clarification,omitempty"`
	ClarificationQuestion string `json:"clarification_question,omitempty"`
	Options               []string `json:"options,omitempty"`
}

const planPromptTemplate = `You are a planning engine for a code intelligence assistant. Given the query, the deterministic analysis below, and the available tools, produce a JSON execution plan.

Query: %s

Recent history:
%s

Deterministic analysis:
%s

Available tools:
%s

Respond with ONLY a JSON object of this exact shape:
{
  "domain": "",
  "domain_notes": "",
  "understanding": "",
  "strategy": "",
  "steps": [{"step": 1, "tool": "", "purpose": "", "parameters": {}}],
  "final_output": "",
  "needs_clarification": false,
  "clarification_question": "",
  "options": []
}

If the analysis names a required tool (suggestedTool), your plan's first step MUST use it.`

// CreatePlan prompts the model for a plan, then enforces the mandatory
// tool mapping by prepending a step that uses the required tool for this
// taskType/target pair when the model's plan does not already start with it (spec §4.14:
// "Mandatory tool mapping ... verified at executor entry").
func CreatePlan(ctx context.Context, provider llm.Provider, modelName string, reg *toolregistry.Registry, idx *codeindex.Index, query string, recentHistory []string) (*Plan, error) {
	analysis := AnalyzeQuery(query, idx)
	analysisJSON, _ := json.Marshal(analysis)
	prompt := fmt.Sprintf(planPromptTemplate, query, strings.Join(recentHistory, "\n"), string(analysisJSON), reg.Summary())

	resp, err := provider.Generate(ctx, llm.GenerateRequest{Model: modelName, Prompt: prompt})
	if err != nil {
		return nil, err
	}

	plan, err := parsePlan(resp.Text)
	if err != nil || plan == nil {
		plan = fallbackPlan(analysis, query)
	}
	enforceMandatoryTool(plan, analysis)
	plan.PlanID = "plan_" + uuid.NewString()[:8]
	return plan, nil
}

func parsePlan(raw string) (*Plan, error) {
	obj, ok := firstJSONObject(strings.TrimSpace(stripFences(raw)))
	if !ok {
		return nil, fmt.Errorf("no JSON object found in plan response")
	}
	var p Plan
	if err := json.Unmarshal([]byte(obj), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// fallbackPlan is used when the model's response can't be parsed at all
// (spec §7 LLMUnavailable: "planner falls back to a single answer_question
// over raw context").
func fallbackPlan(a Analysis, query string) *Plan {
	return &Plan{
		Domain:        "unknown",
		Understanding: "Falling back to a direct question-answering pass.",
		Strategy:      "single answer_question step over comprehensive search results",
		Steps: []Step{{
			Step:    1,
			Tool:    "answer_question",
			Purpose: "answer the query directly",
			Parameters: map[string]any{
				"question": query,
			},
		}},
		FinalOutput: "answer",
	}
}

func enforceMandatoryTool(plan *Plan, a Analysis) {
	if a.SuggestedTool == "" {
		return
	}
	if len(plan.Steps) > 0 && plan.Steps[0].Tool == a.SuggestedTool {
		return
	}
	required := Step{
		Step:    1,
		Tool:    a.SuggestedTool,
		Purpose: "mandatory tool for this task/target pair",
		Parameters: map[string]any{
			"question": a.Target.Value,
			"query":    a.Target.Value,
			"function": a.Target.Value,
			"file":     a.Target.Value,
		},
	}
	plan.Steps = append([]Step{required}, plan.Steps...)
	for i := range plan.Steps {
		plan.Steps[i].Step = i + 1
	}
}

var codeFenceRE = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)```")

func stripFences(s string) string {
	if m := codeFenceRE.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}

func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
