// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/bootstrap"
	"github.com/kraklabs/astra/internal/errors"
	"github.com/kraklabs/astra/internal/output"
	"github.com/kraklabs/astra/internal/planner"
	"github.com/kraklabs/astra/internal/synth"
)

// runAsk executes the 'ask' command: plans a tool sequence for a
// natural-language question, executes it against the indexed workspace, and
// renders a synthesized answer (spec's supplemented natural-language Q&A
// entrypoint over the planner/executor/synth pipeline).
func runAsk(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output the raw plan and step results as JSON")
	showCallGraph := fs.Bool("call-graph", false, "Include a call-graph section in the rendered answer")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra ask [options] <question>

Plans and executes a tool sequence to answer a natural-language question
about the indexed workspace.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: question argument required")
		fs.Usage()
		os.Exit(1)
	}
	question := strings.Join(fs.Args(), " ")

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cs, err := bootstrap.Open(bootstrap.ProjectConfig{WorkspaceDir: cwd}, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
		return
	}

	ctx := context.Background()
	modelName := cs.Config.ModelFor("analysis")

	spinner := NewSpinner(NewProgressConfig(globals), "Planning")
	plan, err := planner.CreatePlan(ctx, cs.Provider, modelName, cs.Tools, cs.Index, question, nil)
	finish(spinner)
	if err != nil {
		errors.FatalError(fmt.Errorf("create plan: %w", err), globals.JSON)
		return
	}

	cs.Tasks.Start(plan.PlanID)
	defer cs.Tasks.Finish()

	stepResults := cs.Planner.ExecutePlan(ctx, plan, func(status string) {
		if !globals.Quiet && !globals.JSON {
			fmt.Fprintln(os.Stderr, status)
		}
		logger.Debug("plan.step", "plan_id", plan.PlanID, "task_id", cs.Tasks.TaskID(), "status", status)
	})

	if *jsonOutput {
		_ = output.JSON(map[string]any{"plan": plan, "steps": stepResults})
		return
	}

	raw := planner.Synthesize(stepResults)
	facts := synth.ExtractFacts(raw, question, []string{question})
	synth.ValidateExtractedFacts(facts, cs.Index, nil)

	answer := synth.RenderAnswer(facts, synth.RenderOptions{
		SubQuestions:  []string{question},
		ShowCallGraph: *showCallGraph,
		Index:         cs.Index,
	})
	fmt.Println(answer)
}
