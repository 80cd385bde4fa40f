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

package synth

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/pathutil"
)

// RenderOptions configures Stage 2 rendering.
type RenderOptions struct {
	// SubQuestions are the decomposed questions answers[] should cover, in
	// the order "Direct Answers" should present them.
	SubQuestions []string
	// ShowCallGraph draws the Call Graph section from the index, not the
	// LLM — only for explain/trace-style queries (spec §4.12).
	ShowCallGraph bool
	Index         *codeindex.Index
	// ReducedFindings is the raw hierarchical-reduce output placed verbatim
	// in the collapsible "Detailed Technical Analysis" section.
	ReducedFindings string
}

var (
	emojiRE       = regexp.MustCompile(`[\x{1F300}-\x{1FAFF}\x{2600}-\x{27BF}]`)
	leadingBulletRE = regexp.MustCompile(`^[\s\-*•]+`)
)

// cleanFileName strips emoji, leading bullets, and path prefixes, then
// applies one stable emoji prefix (spec §4.12 "File names are cleaned ...
// a stable emoji prefix is then added uniformly"; spec §8 invariant:
// "never ... leading emoji prefixes more than one").
func cleanFileName(path string) string {
	name := pathutil.Stem(path)
	if ext := pathutil.Ext(path); ext != "" {
		name = name + "." + ext
	}
	name = emojiRE.ReplaceAllString(name, "")
	name = leadingBulletRE.ReplaceAllString(name, "")
	name = strings.TrimSpace(name)
	return "📄 " + name
}

// RenderAnswer deterministically assembles facts into the fixed markdown
// template (spec §4.12 "Stage 2 (Render)"): Direct Answers, Quick Summary,
// Key Files, Code Flow, Data Structures, Key Functions, Call Graph,
// Configurability, Where to Start, Related Topics, Notes, Detailed
// Technical Analysis, in that order.
func RenderAnswer(f *Facts, opts RenderOptions) string {
	if f.RawProse != "" {
		return f.RawProse
	}

	var sb strings.Builder

	renderDirectAnswers(&sb, f, opts.SubQuestions)
	renderQuickSummary(&sb, f)
	renderKeyFiles(&sb, f)
	renderCodeFlow(&sb, f)
	renderDataStructures(&sb, f)
	renderKeyFunctions(&sb, f)
	if opts.ShowCallGraph && opts.Index != nil {
		renderCallGraph(&sb, f, opts.Index)
	}
	renderConfigurability(&sb, f)
	renderWhereToStart(&sb, f)
	renderRelatedTopics(&sb, f)
	renderNotes(&sb, f)
	renderDetailedAnalysis(&sb, opts.ReducedFindings)

	return strings.TrimSpace(sb.String())
}

func renderDirectAnswers(sb *strings.Builder, f *Facts, subQuestions []string) {
	if len(f.Answers) == 0 {
		return
	}
	sb.WriteString("## Direct Answers\n\n")
	byQuestion := map[string]QAItem{}
	for _, a := range f.Answers {
		byQuestion[strings.ToLower(strings.TrimSpace(a.Question))] = a
	}
	order := subQuestions
	if len(order) == 0 {
		for _, a := range f.Answers {
			order = append(order, a.Question)
		}
	}
	for _, q := range order {
		a, ok := byQuestion[strings.ToLower(strings.TrimSpace(q))]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("**%s**\n\n%s\n", a.Question, a.Answer))
		if len(a.References) > 0 {
			sb.WriteString("References: " + strings.Join(a.References, ", ") + "\n")
		}
		sb.WriteString("\n")
	}
}

func renderQuickSummary(sb *strings.Builder, f *Facts) {
	sb.WriteString("## Quick Summary\n\n")
	if f.Summary != "" {
		sb.WriteString(f.Summary + "\n\n")
	}
	switch {
	case f.EntryPoint != nil:
		sb.WriteString(fmt.Sprintf("Entry point: `%s()` in %s:%d\n\n", f.EntryPoint.Function, f.EntryPoint.File, f.EntryPoint.Line))
	case len(f.KeyFunctions) > 0:
		top := f.KeyFunctions[0]
		sb.WriteString(fmt.Sprintf("Start at `%s()` in %s:%d\n\n", top.Name, top.File, top.Line))
	}
}

func renderKeyFiles(sb *strings.Builder, f *Facts) {
	if len(f.KeyFiles) == 0 {
		return
	}
	sb.WriteString("## Key Files\n\n")
	sb.WriteString("| File | Purpose | Functions |\n|---|---|---|\n")
	for _, kf := range f.KeyFiles {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", cleanFileName(kf.File), kf.Purpose, strings.Join(kf.Functions, ", ")))
	}
	sb.WriteString("\n")
}

func renderCodeFlow(sb *strings.Builder, f *Facts) {
	if len(f.CodeFlow) == 0 {
		return
	}
	sb.WriteString("## Code Flow\n\n```\n")
	edges := f.CodeFlow
	if len(edges) > 6 {
		edges = edges[:6]
	}
	for _, e := range edges {
		mark := ""
		if e.Verified {
			mark = " ✓"
		}
		sb.WriteString(fmt.Sprintf("%s\n  └─> %s  (%s:%d)%s\n", e.Caller, e.Callee, e.File, e.Line, mark))
	}
	sb.WriteString("```\n\n")
}

func renderDataStructures(sb *strings.Builder, f *Facts) {
	if len(f.DataStructures) == 0 {
		return
	}
	sb.WriteString("## Data Structures\n\n")
	sb.WriteString("| Name | File | Purpose |\n|---|---|---|\n")
	for _, ds := range f.DataStructures {
		sb.WriteString(fmt.Sprintf("| %s | %s:%d | %s |\n", ds.Name, ds.File, ds.Line, ds.Purpose))
	}
	sb.WriteString("\n")
	shown := 0
	for _, ds := range f.DataStructures {
		if ds.Definition == "" || shown >= 3 {
			continue
		}
		shown++
		sb.WriteString(fmt.Sprintf("```\n%s\n```\n\n", ds.Definition))
	}
}

func renderKeyFunctions(sb *strings.Builder, f *Facts) {
	if len(f.KeyFunctions) == 0 {
		return
	}
	sb.WriteString("## Key Functions\n\n")
	sb.WriteString("| Function | File | Purpose |\n|---|---|---|\n")
	for _, kf := range f.KeyFunctions {
		sb.WriteString(fmt.Sprintf("| `%s()` | %s:%d | %s |\n", kf.Name, kf.File, kf.Line, kf.Purpose))
	}
	sb.WriteString("\n")
	for _, kf := range f.KeyFunctions {
		if kf.KeyCode == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("**%s()**\n\n```\n%s\n```\n\n", kf.Name, kf.KeyCode))
	}
}

func renderCallGraph(sb *strings.Builder, f *Facts, idx *codeindex.Index) {
	var root string
	if f.EntryPoint != nil {
		root = f.EntryPoint.Function
	} else if len(f.KeyFunctions) > 0 {
		root = f.KeyFunctions[0].Name
	}
	if root == "" {
		return
	}
	callees := idx.Callees(root)
	if len(callees) == 0 {
		return
	}
	sb.WriteString("## Call Graph\n\n```\n" + root + "\n")
	for _, c := range callees {
		sb.WriteString("  └─> " + c + "\n")
	}
	sb.WriteString("```\n\n")
}

func renderConfigurability(sb *strings.Builder, f *Facts) {
	if len(f.ConfigOptions) == 0 {
		return
	}
	sb.WriteString("## Configurability\n\n")
	sb.WriteString("| Param | Values | Effect |\n|---|---|---|\n")
	for _, c := range f.ConfigOptions {
		sb.WriteString(fmt.Sprintf("| %s | %s | %s |\n", c.Param, strings.Join(c.Values, ", "), c.Effect))
	}
	sb.WriteString("\n")
}

func renderWhereToStart(sb *strings.Builder, f *Facts) {
	sb.WriteString("## Where to Start\n\n")
	switch {
	case f.EntryPoint != nil:
		sb.WriteString(fmt.Sprintf("Start reading at `%s()` in %s:%d.\n\n", f.EntryPoint.Function, f.EntryPoint.File, f.EntryPoint.Line))
	case len(f.KeyFiles) > 0:
		sb.WriteString(fmt.Sprintf("Start with %s.\n\n", cleanFileName(f.KeyFiles[0].File)))
	default:
		sb.WriteString("No single obvious entry point was identified from the retrieved context.\n\n")
	}
}

func renderRelatedTopics(sb *strings.Builder, f *Facts) {
	var refs []string
	for _, kfi := range f.KeyFiles {
		refs = append(refs, cleanFileName(kfi.File))
	}
	for _, kf := range f.KeyFunctions {
		refs = append(refs, kf.Name+"()")
	}
	if len(refs) == 0 {
		return
	}
	if len(refs) > 8 {
		refs = refs[:8]
	}
	sb.WriteString("## Related Topics\n\n" + strings.Join(refs, ", ") + "\n\n")
}

func renderNotes(sb *strings.Builder, f *Facts) {
	if len(f.Notes) == 0 {
		return
	}
	sb.WriteString("## Notes\n\n")
	for _, n := range f.Notes {
		sb.WriteString("- " + n + "\n")
	}
	sb.WriteString("\n")
}

func renderDetailedAnalysis(sb *strings.Builder, reduced string) {
	if reduced == "" {
		return
	}
	sb.WriteString("<details>\n<summary>Detailed Technical Analysis</summary>\n\n")
	sb.WriteString(reduced)
	sb.WriteString("\n\n</details>\n")
}
