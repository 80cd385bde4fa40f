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
	"strings"
	"testing"

	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/toolregistry"
	"github.com/kraklabs/astra/pkg/llm"
)

func newTestRegistry() *toolregistry.Registry {
	return toolregistry.New(&toolregistry.Resources{})
}

func TestCreatePlanAssignsPlanID(t *testing.T) {
	provider := &llm.MockProvider{
		GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
			return &llm.GenerateResponse{Text: `{"domain":"go","understanding":"u","strategy":"s","steps":[{"step":1,"tool":"answer_question","purpose":"p","parameters":{}}]}`}, nil
		},
	}

	plan, err := CreatePlan(context.Background(), provider, "mock-model", newTestRegistry(), codeindex.New(), "how does auth work?", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.PlanID == "" || !strings.HasPrefix(plan.PlanID, "plan_") {
		t.Fatalf("expected a plan_-prefixed PlanID, got %q", plan.PlanID)
	}
}

func TestCreatePlanAssignsPlanIDOnFallback(t *testing.T) {
	provider := &llm.MockProvider{
		GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
			return &llm.GenerateResponse{Text: "not json at all"}, nil
		},
	}
	idx := codeindex.New()

	plan, err := CreatePlan(context.Background(), provider, "mock-model", newTestRegistry(), idx, "explain foo", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan.PlanID == "" {
		t.Fatalf("expected fallback plan to still receive a PlanID")
	}
}

func TestCreatePlanDistinctPlanIDs(t *testing.T) {
	provider := &llm.MockProvider{
		GenerateFunc: func(ctx context.Context, req llm.GenerateRequest) (*llm.GenerateResponse, error) {
			return &llm.GenerateResponse{Text: `{"domain":"go","steps":[{"step":1,"tool":"answer_question","parameters":{}}]}`}, nil
		},
	}
	reg := newTestRegistry()
	idx := codeindex.New()

	plan1, err := CreatePlan(context.Background(), provider, "mock-model", reg, idx, "explain foo", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	plan2, err := CreatePlan(context.Background(), provider, "mock-model", reg, idx, "explain foo", nil)
	if err != nil {
		t.Fatalf("CreatePlan: %v", err)
	}
	if plan1.PlanID == plan2.PlanID {
		t.Fatalf("expected distinct PlanIDs across CreatePlan calls, got %q twice", plan1.PlanID)
	}
}

func TestExecutePlanStampsStepResultsWithPlanID(t *testing.T) {
	plan := &Plan{
		PlanID: "plan_abc123",
		Steps: []Step{
			{Step: 1, Tool: "missing_tool", Purpose: "p", Parameters: map[string]any{}},
		},
	}
	exec := &Executor{Registry: newTestRegistry()}
	results := exec.ExecutePlan(context.Background(), plan, nil)
	if len(results) != 1 {
		t.Fatalf("expected 1 step result, got %d", len(results))
	}
	if results[0].PlanID != plan.PlanID {
		t.Fatalf("expected step result to carry plan.PlanID %q, got %q", plan.PlanID, results[0].PlanID)
	}
	if results[0].Err == "" {
		t.Fatalf("expected an error for an unregistered tool")
	}
}
