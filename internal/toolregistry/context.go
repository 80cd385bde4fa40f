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

	"github.com/kraklabs/astra/internal/trigram"
)

func registerContextTools(reg *Registry, res *Resources) {
	reg.register(&Tool{
		Name:        "read_context_file",
		Description: "Return the full content of a user-attached context file.",
		Parameters:  []Param{{Name: "fileName", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			name := stringParam(params, "fileName")
			content, ok := res.contextFile(name)
			if !ok {
				return Fail("no context file named %q", name), nil
			}
			return Ok(content), nil
		},
	})

	reg.register(&Tool{
		Name:        "list_context_files",
		Description: "List every user-attached context file name.",
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			return Ok(res.contextFileNames()), nil
		},
	})

	reg.register(&Tool{
		Name:        "grep_context",
		Description: "Search context files and the indexed project for a pattern, preferring the trigram index and falling back to a linear scan; returns merged code blocks rather than individual lines.",
		Parameters: []Param{
			{Name: "pattern", Type: "string", Required: true},
			{Name: "caseSensitive", Type: "bool"},
			{Name: "contextLines", Type: "int"},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			pattern := stringParam(params, "pattern")
			if pattern == "" {
				return Fail("pattern is required"), nil
			}
			caseSensitive := boolParam(params, "caseSensitive", false)
			lines := intParam(params, "contextLines", 5)

			var blocks []string
			if res.Trigram != nil && res.Trigram.FileCount() > 0 {
				matches := res.Trigram.Search(pattern, trigram.SearchOptions{CaseSensitive: caseSensitive, MaxResults: 50})
				blocks = append(blocks, blocksFromTrigramMatches(res, matches, lines)...)
			} else {
				blocks = append(blocks, linearGrepContextFiles(res, pattern, caseSensitive, lines)...)
			}
			if len(blocks) == 0 {
				blocks = linearGrepContextFiles(res, pattern, caseSensitive, lines)
			}
			if len(blocks) == 0 {
				return Ok("No matches found."), nil
			}
			return Ok(strings.Join(blocks, "\n\n---\n\n")), nil
		},
	})
}

func blocksFromTrigramMatches(res *Resources, matches []trigram.Match, context int) []string {
	byFile := map[string][]trigram.Match{}
	var order []string
	for _, m := range matches {
		if _, ok := byFile[m.File]; !ok {
			order = append(order, m.File)
		}
		byFile[m.File] = append(byFile[m.File], m)
	}
	var blocks []string
	for _, file := range order {
		content, ok := res.Content(file)
		if !ok {
			continue
		}
		fileLines := strings.Split(content, "\n")
		for _, m := range byFile[file] {
			blocks = append(blocks, formatGrepBlock(file, fileLines, m.Line, context))
		}
	}
	return blocks
}

func linearGrepContextFiles(res *Resources, pattern string, caseSensitive bool, context int) []string {
	needle := pattern
	if !caseSensitive {
		needle = strings.ToLower(pattern)
	}
	var blocks []string
	for _, name := range res.contextFileNames() {
		content, _ := res.contextFile(name)
		fileLines := strings.Split(content, "\n")
		for i, line := range fileLines {
			hay := line
			if !caseSensitive {
				hay = strings.ToLower(line)
			}
			if strings.Contains(hay, needle) {
				blocks = append(blocks, formatGrepBlock(name, fileLines, i+1, context))
			}
		}
	}
	return blocks
}

func formatGrepBlock(file string, lines []string, matchLine, context int) string {
	start := matchLine - 1 - context
	if start < 0 {
		start = 0
	}
	end := matchLine - 1 + context
	if end >= len(lines) {
		end = len(lines) - 1
	}
	return fmt.Sprintf("%s:%d\n%s", file, matchLine, strings.Join(lines[start:end+1], "\n"))
}
