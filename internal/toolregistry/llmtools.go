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

package toolregistry

import (
	"context"
	"fmt"
	"strings"

	"github.com/kraklabs/astra/internal/retrieval"
	"github.com/kraklabs/astra/internal/searchpipeline"
	"github.com/kraklabs/astra/internal/synth"
	"github.com/kraklabs/astra/pkg/llm"
)

func registerLLMTools(reg *Registry, res *Resources) {
	reg.register(&Tool{
		Name:        "explain_code",
		Description: "Explain a file or function's behavior, resolving it via search_code first.",
		Parameters:  []Param{{Name: "target", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			target := stringParam(params, "target")
			if target == "" {
				return Fail("target is required"), nil
			}
			results := res.Pipeline.ComprehensiveSearch(target)
			answer, err := runSynth(ctx, res, fmt.Sprintf("Explain %s", target), nil, results, false)
			if err != nil {
				return Fail("explain_code: %v", err), nil
			}
			return Ok(answer), nil
		},
	})

	reg.register(&Tool{
		Name:        "document_code",
		Description: "Generate documentation for a file.",
		Parameters:  []Param{{Name: "target", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			target := stringParam(params, "target")
			if target == "" {
				return Fail("target is required"), nil
			}
			content, ok := res.Content(target)
			if !ok {
				return Fail("file %q not found", target), nil
			}
			prompt := llm.CodePrompt{Task: "Generate documentation for this file.", Code: content}.Build()
			resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: llm.SystemPrompts.CodeDocument + "\n\n" + prompt})
			if err != nil {
				return Fail("document_code: %v", err), nil
			}
			return Ok(resp.Text), nil
		},
	})

	reg.register(&Tool{
		Name:        "generate_full_documentation",
		Description: "Generate whole-project documentation by hierarchically reducing per-file summaries.",
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			files := res.Index.AllFiles()
			var analyses []string
			for path := range files {
				summary, ok := res.Index.FileSummary(path)
				if !ok || summary == "" {
					continue
				}
				analyses = append(analyses, fmt.Sprintf("### %s\n\n%s", path, summary))
			}
			if len(analyses) == 0 {
				return Ok("No file summaries available yet; index the project first."), nil
			}
			merged, err := retrieval.ReduceHierarchical(ctx, analyses, func(ctx context.Context, batch []string) (string, error) {
				prompt := "Merge the following per-file documentation sections into one coherent section, preserving every specific file/function reference:\n\n" + strings.Join(batch, "\n\n")
				resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: prompt})
				if err != nil {
					return "", err
				}
				return resp.Text, nil
			})
			if err != nil {
				return Fail("generate_full_documentation: %v", err), nil
			}
			return Ok(merged), nil
		},
	})

	reg.register(&Tool{
		Name:        "review_code",
		Description: "Review a single function for bugs, security, performance, and style issues.",
		Parameters:  []Param{{Name: "function", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			name := stringParam(params, "function")
			sym, ok := res.Index.Symbol(name)
			if !ok {
				return Fail("function %q not found", name), nil
			}
			content, _ := res.Content(sym.File)
			body := extractFunctionBody(content, sym)
			prompt := llm.CodePrompt{Task: "Review this function.", Code: body}.Build()
			resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: llm.SystemPrompts.CodeReview + "\n\n" + prompt})
			if err != nil {
				return Fail("review_code: %v", err), nil
			}
			return Ok(resp.Text), nil
		},
	})

	reg.register(&Tool{
		Name:        "review_file",
		Description: "Review an entire file for bugs, security, performance, and style issues.",
		Parameters:  []Param{{Name: "file", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			file := stringParam(params, "file")
			content, ok := res.Content(file)
			if !ok {
				return Fail("file %q not found", file), nil
			}
			prompt := llm.CodePrompt{Task: "Review this file.", Code: content}.Build()
			resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: llm.SystemPrompts.CodeReview + "\n\n" + prompt})
			if err != nil {
				return Fail("review_file: %v", err), nil
			}
			return Ok(resp.Text), nil
		},
	})

	reg.register(&Tool{
		Name:        "trace_code",
		Description: "Trace a function's call flow through the codebase and explain it.",
		Parameters:  []Param{{Name: "function", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			fn := stringParam(params, "function")
			if fn == "" {
				return Fail("function is required"), nil
			}
			results := res.Pipeline.ComprehensiveSearch(fn)
			answer, err := runSynth(ctx, res, fmt.Sprintf("Trace the call flow of %s", fn), nil, results, true)
			if err != nil {
				return Fail("trace_code: %v", err), nil
			}
			return Ok(answer), nil
		},
	})

	reg.register(&Tool{
		Name:        "answer_question",
		Description: "Answer a question over the retrieved or provided context, the high-level Q&A tool used by most plans.",
		Parameters: []Param{
			{Name: "question", Type: "string", Required: true},
			{Name: "context", Type: "string"},
			{Name: "domain", Type: "string"},
			{Name: "requireCodeCitations", Type: "bool"},
			{Name: "useProvidedContext", Type: "bool"},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			question := stringParam(params, "question")
			if question == "" {
				return Fail("question is required"), nil
			}
			var results []searchpipeline.Result
			if boolParam(params, "useProvidedContext", false) {
				if c := stringParam(params, "context"); c != "" {
					results = []searchpipeline.Result{{File: "context", Content: c, Score: 1}}
				}
			}
			if len(results) == 0 {
				results = res.Pipeline.ComprehensiveSearch(question)
			}
			answer, err := runSynth(ctx, res, question, nil, results, callGraphQuery(question))
			if err != nil {
				return Fail("answer_question: %v", err), nil
			}
			return Ok(answer), nil
		},
	})
}

func callGraphQuery(q string) bool {
	lower := strings.ToLower(q)
	return strings.Contains(lower, "trace") || strings.Contains(lower, "call flow") || strings.Contains(lower, "calls")
}

// runSynth drives the full AnswerSynthesizer pipeline (spec §4.12) over
// already-scored search results: load context, chunk, extract facts per
// chunk, reduce, validate, render, and judge.
func runSynth(ctx context.Context, res *Resources, question string, subQuestions []string, results []searchpipeline.Result, showCallGraph bool) (string, error) {
	withContext := retrieval.LoadContext(results, res)
	if len(withContext) == 0 {
		return "No relevant context was found for this question.", nil
	}
	chunks := retrieval.ChunkSearchResults(withContext, retrieval.DefaultMaxChunkSize, retrieval.DefaultMaxChunks)

	contextFiles := map[string]bool{}
	var analyses []string
	for _, chunk := range chunks {
		var sb strings.Builder
		for _, r := range chunk.Results {
			contextFiles[r.File] = true
			sb.WriteString(fmt.Sprintf("### %s:%d\n\n%s\n\n", r.File, r.Line, r.Content))
		}
		prompt := sb.String() + "\n\nQuestion: " + question + "\n\n" + synth.ExtractionSchemaPrompt
		resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: prompt})
		if err != nil {
			return "", err
		}
		facts := synth.ExtractFacts(resp.Text, question, subQuestions)
		synth.ValidateExtractedFacts(facts, res.Index, contextFiles)
		analyses = append(analyses, synth.RenderAnswer(facts, synth.RenderOptions{SubQuestions: subQuestions, ShowCallGraph: showCallGraph, Index: res.Index}))
	}

	reduced, err := retrieval.ReduceHierarchical(ctx, analyses, func(ctx context.Context, batch []string) (string, error) {
		prompt := "Merge these partial answers into one, preserving every specific file/function reference and removing duplication:\n\n" + strings.Join(batch, "\n\n---\n\n")
		resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: prompt})
		if err != nil {
			return "", err
		}
		return resp.Text, nil
	})
	if err != nil {
		return "", err
	}

	fullContext := joinResultContent(withContext)
	return synth.ValidateAndRefineAnswer(ctx, res.Provider, res.Model, question, reduced, fullContext)
}

func joinResultContent(results []searchpipeline.Result) string {
	var sb strings.Builder
	for _, r := range results {
		sb.WriteString(r.Content)
		sb.WriteString("\n\n")
	}
	return sb.String()
}
