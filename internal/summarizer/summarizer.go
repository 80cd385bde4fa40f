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

// Package summarizer implements the Summarizer (spec C9): a name-based
// fallback that always succeeds, and an LLM-based batch summarizer with a
// three-cascading-strategy parser and a consecutive-failure circuit
// breaker.
package summarizer

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/pathutil"
	"github.com/kraklabs/astra/internal/tokenize"
	"github.com/kraklabs/astra/pkg/llm"
)

// Tunables (spec §4.7).
const (
	SummaryBatchSize      = 10
	MaxFunctionSize       = 5000
	ConsecutiveFailureCap = 5
)

// verbTable maps the first token of a split identifier to a summary verb
// phrase (spec §4.7 "summaryFromName").
var verbTable = map[string]string{
	"get": "Gets", "set": "Sets", "is": "Checks if", "has": "Checks whether",
	"init": "Initializes", "new": "Creates", "build": "Builds", "make": "Creates",
	"parse": "Parses", "validate": "Validates", "load": "Loads", "save": "Saves",
	"delete": "Deletes", "remove": "Removes", "update": "Updates", "create": "Creates",
	"find": "Finds", "search": "Searches for", "compute": "Computes",
	"fetch": "Fetches", "write": "Writes", "read": "Reads", "close": "Closes",
	"open": "Opens", "run": "Runs", "start": "Starts", "stop": "Stops",
	"handle": "Handles", "process": "Processes", "convert": "Converts",
	"format": "Formats", "render": "Renders", "calc": "Calculates",
	"calculate": "Calculates", "check": "Checks",
}

// SummaryFromName is the name-based path: it MUST always produce a
// non-empty string and is used when no LLM is available or as a
// last-resort per-function fallback (spec §4.7).
func SummaryFromName(name string) string {
	tokens := tokenize.Split(name)
	if len(tokens) == 0 {
		return "Handles " + name + "."
	}
	if verb, ok := verbTable[tokens[0]]; ok {
		rest := strings.Join(tokens[1:], " ")
		if rest == "" {
			return verb + "."
		}
		return verb + " " + rest + "."
	}
	return "Handles " + strings.Join(tokens, " ") + "."
}

// Function is one callable unit offered to the summarizer.
type Function struct {
	Name     string
	Key      string // name@path
	File     string
	Line     int
	Body     string
	Callers  int
	Callees  int
}

// priority implements spec §4.7's "functions scored by 2*|callers| +
// |callees|".
func priority(f Function) int { return 2*f.Callers + f.Callees }

// Result is one produced summary, keyed for direct CodeIndex.SetSummary use.
type Result struct {
	Key     string
	Entry   model.SummaryEntry
	FromLLM bool
}

// Summarizer drives name-based and LLM-based summarization.
type Summarizer struct {
	provider llm.Provider
	model    string
	group    singleflight.Group
}

// New builds a Summarizer. provider may be nil, in which case every
// function is summarized via the name-based path.
func New(provider llm.Provider, model string) *Summarizer {
	return &Summarizer{provider: provider, model: model}
}

// SummarizeAll prioritizes fns by call-graph centrality and summarizes up
// to maxFunctions (0 = unlimited) of them, batching SummaryBatchSize at a
// time through the LLM path and falling back to the name-based path for
// anything unmatched or once ConsecutiveFailureCap consecutive batches
// fail (spec §4.7).
func (s *Summarizer) SummarizeAll(ctx context.Context, fns []Function, maxFunctions int) []Result {
	ordered := make([]Function, len(fns))
	copy(ordered, fns)
	sort.SliceStable(ordered, func(i, j int) bool { return priority(ordered[i]) > priority(ordered[j]) })
	if maxFunctions > 0 && len(ordered) > maxFunctions {
		ordered = ordered[:maxFunctions]
	}

	results := make([]Result, 0, len(ordered))
	if s.provider == nil {
		for _, f := range ordered {
			results = append(results, fallbackResult(f))
		}
		return results
	}

	consecutiveFailures := 0
	llmDisabled := false

	for start := 0; start < len(ordered); start += SummaryBatchSize {
		end := start + SummaryBatchSize
		if end > len(ordered) {
			end = len(ordered)
		}
		batch := ordered[start:end]

		if llmDisabled {
			for _, f := range batch {
				results = append(results, fallbackResult(f))
			}
			continue
		}

		parsed, err := s.summarizeBatch(ctx, batch)
		if err != nil {
			consecutiveFailures++
			for _, f := range batch {
				results = append(results, fallbackResult(f))
			}
			if consecutiveFailures >= ConsecutiveFailureCap {
				llmDisabled = true
			}
			continue
		}
		consecutiveFailures = 0

		matched := 0
		for _, f := range batch {
			if summary, ok := parsed[f.Name]; ok && summary != "" {
				results = append(results, Result{
					Key: f.Key, FromLLM: true,
					Entry: model.SummaryEntry{Name: f.Name, File: f.File, Line: f.Line, Summary: summary},
				})
				matched++
			} else {
				results = append(results, fallbackResult(f))
			}
		}
		_ = matched
	}
	return results
}

func fallbackResult(f Function) Result {
	return Result{
		Key: f.Key,
		Entry: model.SummaryEntry{
			Name: f.Name, File: f.File, Line: f.Line, Summary: SummaryFromName(f.Name),
		},
	}
}

// summarizeBatch concatenates up to SummaryBatchSize truncated function
// bodies into one prompt, asks the model for "FUNCTION: name\nSUMMARY:
// ...\n---" blocks, and parses the response (spec §4.7).
func (s *Summarizer) summarizeBatch(ctx context.Context, batch []Function) (map[string]string, error) {
	key := batchKey(batch)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		prompt := buildBatchPrompt(batch)
		resp, err := s.provider.Generate(ctx, llm.GenerateRequest{
			Prompt: prompt, Model: s.model, Temperature: 0.2, MaxTokens: 1200,
		})
		if err != nil {
			return nil, err
		}
		return parseBatchResponse(resp.Text, batch), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]string), nil
}

func batchKey(batch []Function) string {
	var b strings.Builder
	for _, f := range batch {
		b.WriteString(f.Key)
		b.WriteByte(';')
	}
	return b.String()
}

func buildBatchPrompt(batch []Function) string {
	var b strings.Builder
	b.WriteString("Summarize each function below in 1-2 sentences. Respond using exactly this format per function:\nFUNCTION: <name>\nSUMMARY: <1-2 sentences>\n---\n\n")
	for _, f := range batch {
		body := f.Body
		if len(body) > MaxFunctionSize {
			body = body[:MaxFunctionSize]
		}
		fmt.Fprintf(&b, "### %s (%s:%d)\n%s\n\n", f.Name, pathutil.ToRelative(f.File, ""), f.Line, body)
	}
	return b.String()
}

var (
	functionAnchorRETemplate = `FUNCTION:\s*%s\s*\n+SUMMARY:\s*(.+?)(?:\n-{2,}|\n###|\nFUNCTION:|$)`
	orderedBlockRE           = regexp.MustCompile(`(?s)FUNCTION:\s*(\S+)\s*\n+SUMMARY:\s*(.+?)(?:\n-{2,}|\n###|\nFUNCTION:|$)`)
)

// parseBatchResponse implements the three cascading parse strategies (spec
// §4.7): (a) per-function regex anchored on the function name, (b)
// order-based split if fewer than half matched, (c) guaranteed name-based
// fallback for anything still unmatched (applied by the caller via
// fallbackResult, since this function only returns what it could parse).
func parseBatchResponse(text string, batch []Function) map[string]string {
	out := map[string]string{}

	for _, f := range batch {
		pattern := fmt.Sprintf(functionAnchorRETemplate, regexp.QuoteMeta(f.Name))
		re, err := regexp.Compile("(?si)" + pattern)
		if err != nil {
			continue
		}
		if m := re.FindStringSubmatch(text); m != nil {
			out[f.Name] = strings.TrimSpace(m[1])
		}
	}

	if 2*len(out) < len(batch) {
		for i, m := range orderedBlockRE.FindAllStringSubmatch(text, -1) {
			if i >= len(batch) {
				break
			}
			name := batch[i].Name
			summary := strings.TrimSpace(m[2])
			if _, exists := out[name]; !exists && summary != "" {
				out[name] = summary
			}
		}
	}

	return out
}

// BuildFileSummaries constructs fileSummaries structurally from per-symbol
// summaries, with no additional LLM calls (spec §4.7: "build fileSummaries
// structurally (list of member summaries, no LLM calls)").
func BuildFileSummaries(fileToSummaries map[string][]string) map[string]string {
	out := make(map[string]string, len(fileToSummaries))
	for file, summaries := range fileToSummaries {
		if len(summaries) == 0 {
			out[file] = "No summarized members."
			continue
		}
		out[file] = strings.Join(summaries, " ")
	}
	return out
}

// OverallSummary makes one LLM call for a whole-project summary, falling
// back to a structural description built from fileSummaries if the call
// fails or no provider is configured (spec §4.7).
func (s *Summarizer) OverallSummary(ctx context.Context, fileSummaries map[string]string, domainDescription string) string {
	if s.provider == nil {
		return structuralOverallSummary(fileSummaries, domainDescription)
	}

	var b strings.Builder
	b.WriteString("Write a 2-3 sentence overview of this codebase given the following per-file summaries:\n\n")
	count := 0
	for file, summary := range fileSummaries {
		fmt.Fprintf(&b, "%s: %s\n", file, summary)
		count++
		if count >= 200 {
			break
		}
	}
	resp, err := s.provider.Generate(ctx, llm.GenerateRequest{Prompt: b.String(), Model: s.model, Temperature: 0.3, MaxTokens: 300})
	if err != nil || strings.TrimSpace(resp.Text) == "" {
		return structuralOverallSummary(fileSummaries, domainDescription)
	}
	return strings.TrimSpace(resp.Text)
}

func structuralOverallSummary(fileSummaries map[string]string, domainDescription string) string {
	if domainDescription != "" {
		return domainDescription
	}
	return fmt.Sprintf("A codebase of %d indexed files.", len(fileSummaries))
}
