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

package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/kraklabs/astra/internal/toolregistry"
)

// StepResult records one executed step's outcome, success or failure (spec
// §4.14: "the executor does not abort; it records the error into
// stepResults[i]").
type StepResult struct {
	PlanID string              `json:"plan_id,omitempty"`
	Step   int                 `json:"step"`
	Tool   string              `json:"tool"`
	Result *toolregistry.Result `json:"result,omitempty"`
	Err    string              `json:"error,omitempty"`
}

// Executor runs a Plan's steps against a tool registry, substituting
// references between steps (spec §4.14).
type Executor struct {
	Registry *toolregistry.Registry
	// Context is the concatenation of every context file, used for the
	// "$context" substitution.
	Context string
}

var (
	stepRefRE = regexp.MustCompile(`\$step(\d+)(\.[\w.]+)?`)
	naturalRefRE = regexp.MustCompile(`(?i)result from step (\d+)|previous result`)
)

// ExecutePlan runs every step in order, substituting references before each
// execute call and auto-injecting plan.domain/domain_notes, never aborting
// on a step failure (spec §4.14). onProgress, if non-nil, receives one
// status line per step.
func (e *Executor) ExecutePlan(ctx context.Context, plan *Plan, onProgress func(string)) []StepResult {
	results := make([]StepResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		if onProgress != nil {
			onProgress(fmt.Sprintf("Step %d: %s (%s)", step.Step, step.Purpose, step.Tool))
		}

		params := e.substituteParams(step.Parameters, results, plan)
		res, err := e.Registry.Execute(ctx, step.Tool, params)
		sr := StepResult{PlanID: plan.PlanID, Step: step.Step, Tool: step.Tool}
		if err != nil {
			sr.Err = err.Error()
		} else {
			sr.Result = res
			if !res.Success {
				sr.Err = res.Error
			}
		}
		results = append(results, sr)
	}
	return results
}

// substituteParams resolves $context, $stepN.<path>, and natural-language
// step references, then auto-injects domain/domain_notes when the tool's
// parameters don't already set them (spec §4.14).
func (e *Executor) substituteParams(params map[string]any, prior []StepResult, plan *Plan) map[string]any {
	out := make(map[string]any, len(params)+2)
	for k, v := range params {
		out[k] = e.substituteValue(v, prior)
	}
	if _, ok := out["domain"]; !ok && plan.Domain != "" {
		out["domain"] = plan.Domain
	}
	if _, ok := out["domain_notes"]; !ok && plan.DomainNotes != "" {
		out["domain_notes"] = plan.DomainNotes
	}
	return out
}

func (e *Executor) substituteValue(v any, prior []StepResult) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	if s == "$context" {
		return e.Context
	}
	if m := stepRefRE.FindStringSubmatch(s); m != nil && m[0] == strings.TrimSpace(s) {
		n, _ := strconv.Atoi(m[1])
		return resolveStepRef(prior, n, strings.TrimPrefix(m[2], "."))
	}
	if m := naturalRefRE.FindStringSubmatch(s); m != nil {
		if m[1] != "" {
			n, _ := strconv.Atoi(m[1])
			return resolveStepRef(prior, n, "")
		}
		if len(prior) > 0 {
			return resolveStepRef(prior, prior[len(prior)-1].Step, "")
		}
	}
	return s
}

// resolveStepRef walks a dotted path into step n's result data. A []string
// leaf (grep-style results) is formatted into a readable block; anything
// else is JSON-marshaled.
func resolveStepRef(prior []StepResult, step int, path string) any {
	var data any
	for _, r := range prior {
		if r.Step == step && r.Result != nil {
			data = r.Result.Data
			break
		}
	}
	if data == nil {
		return ""
	}
	if path != "" {
		for _, key := range strings.Split(path, ".") {
			m, ok := data.(map[string]any)
			if !ok {
				break
			}
			data = m[key]
		}
	}
	if lines, ok := data.([]string); ok {
		return strings.Join(lines, "\n")
	}
	if s, ok := data.(string); ok {
		return s
	}
	b, err := json.Marshal(data)
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}

// synthesisKeys is the preference order for picking a successful step's
// primary output when assembling the final answer (spec §4.14).
var synthesisKeys = []string{"translatedCode", "translatedFiles", "documentation", "review", "explanation", "answer"}

// Synthesize selects a successful step's primary data output, preferring
// the keys spec §4.14 names, falling back to the last successful step's
// raw data, or an explanatory message if every step failed.
func Synthesize(results []StepResult) string {
	for i := len(results) - 1; i >= 0; i-- {
		r := results[i]
		if r.Result == nil || !r.Result.Success {
			continue
		}
		if m, ok := r.Result.Data.(map[string]any); ok {
			for _, key := range synthesisKeys {
				if v, ok := m[key]; ok {
					if s, ok := v.(string); ok {
						return s
					}
					b, _ := json.Marshal(v)
					return string(b)
				}
			}
		}
		if s, ok := r.Result.Data.(string); ok {
			return s
		}
		b, _ := json.Marshal(r.Result.Data)
		return string(b)
	}
	return "All plan steps failed; no answer could be produced."
}
