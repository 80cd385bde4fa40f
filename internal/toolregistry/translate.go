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
	"regexp"
	"strings"

	"github.com/kraklabs/astra/pkg/llm"
)

// MaxCritiqueIterations bounds the translate critique loop (spec §4.13:
// "up to 10 iterations of critiqueTranslation -> fixTranslationIssues").
const MaxCritiqueIterations = 10

// MaxConsecutiveTranslationFailures triggers the name-based fallback fill-in
// (spec §7 TranslationCritiqueFailure: "MAX_CONSECUTIVE_FAILURES=5").
const MaxConsecutiveTranslationFailures = 5

var (
	placeholderPatternRE = regexp.MustCompile(`(?i)\b(TODO|FIXME|\.\.\.|not implemented|placeholder)\b`)
	decimalPicRE         = regexp.MustCompile(`PIC\s+[9S]\(?(\d+)\)?V(\d+)`)
)

func registerTranslateTools(reg *Registry, res *Resources) {
	reg.register(&Tool{
		Name:        "translate_code",
		Description: "Translate a code snippet into a target language, running an internal critique/fix loop.",
		Parameters: []Param{
			{Name: "code", Type: "string", Required: true},
			{Name: "sourceLanguage", Type: "string"},
			{Name: "targetLanguage", Type: "string", Required: true},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			code := stringParam(params, "code")
			target := stringParam(params, "targetLanguage")
			if code == "" || target == "" {
				return Fail("code and targetLanguage are required"), nil
			}
			source := stringParam(params, "sourceLanguage")
			out, err := translateWithCritique(ctx, res, code, source, target)
			if err != nil {
				return Fail("translate_code: %v", err), nil
			}
			return Ok(map[string]any{"translatedCode": out}), nil
		},
	})

	reg.register(&Tool{
		Name:        "translate_file",
		Description: "Translate an entire indexed or context file into a target language.",
		Parameters: []Param{
			{Name: "file", Type: "string", Required: true},
			{Name: "targetLanguage", Type: "string", Required: true},
		},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			file := stringParam(params, "file")
			target := stringParam(params, "targetLanguage")
			content, ok := res.Content(file)
			if !ok {
				return Fail("file %q not found", file), nil
			}
			out, err := translateWithCritique(ctx, res, content, "", target)
			if err != nil {
				return Fail("translate_file: %v", err), nil
			}
			return Ok(map[string]any{"translatedCode": out}), nil
		},
	})

	reg.register(&Tool{
		Name:        "translate_all_files",
		Description: "Translate every indexed file into a target language.",
		Parameters:  []Param{{Name: "targetLanguage", Type: "string", Required: true}},
		Execute: func(ctx context.Context, params map[string]any) (*Result, error) {
			target := stringParam(params, "targetLanguage")
			if target == "" {
				return Fail("targetLanguage is required"), nil
			}
			translated := map[string]string{}
			for path := range res.Index.AllFiles() {
				content, ok := res.Content(path)
				if !ok {
					continue
				}
				out, err := translateWithCritique(ctx, res, content, "", target)
				if err != nil {
					continue
				}
				translated[path] = out
			}
			return Ok(map[string]any{"translatedFiles": translated}), nil
		},
	})
}

// translateWithCritique runs the translation critique loop: translate, then
// up to MaxCritiqueIterations rounds of critique -> fix, enforcing zero
// placeholders, a roughly preserved line ratio, and preserved decimal
// precision (spec §4.13: "COBOL PIC 9(5)V99 -> DECIMAL(5,2)"). After
// MaxConsecutiveTranslationFailures consecutive critique failures a
// name-based fill-in is used instead of giving up (spec §7
// TranslationCritiqueFailure).
func translateWithCritique(ctx context.Context, res *Resources, code, source, target string) (string, error) {
	prompt := llm.CodePrompt{
		Task:     fmt.Sprintf("Translate this code to %s, preserving all logic and numeric precision exactly.", target),
		Language: source,
		Code:     code,
	}.Build()
	resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	translated := resp.Text
	consecutiveFailures := 0

	for i := 0; i < MaxCritiqueIterations; i++ {
		issues := critiqueTranslation(code, translated)
		if len(issues) == 0 {
			return translated, nil
		}
		fixed, err := fixTranslationIssues(ctx, res, code, translated, target, issues)
		if err != nil {
			consecutiveFailures++
			if consecutiveFailures >= MaxConsecutiveTranslationFailures {
				return nameBasedFillIn(translated, issues), nil
			}
			continue
		}
		consecutiveFailures = 0
		translated = fixed
	}
	return translated, nil
}

// critiqueTranslation checks a translated snippet against the structural
// invariants spec §4.13 names: zero placeholders, a roughly preserved line
// count, and decimal precision carried through from any PIC clauses in the
// source.
func critiqueTranslation(source, translated string) []string {
	var issues []string
	if placeholderPatternRE.MatchString(translated) {
		issues = append(issues, "translation contains placeholder markers (TODO/FIXME/not implemented)")
	}

	sourceLines := strings.Count(source, "\n") + 1
	translatedLines := strings.Count(translated, "\n") + 1
	if sourceLines > 0 {
		ratio := float64(translatedLines) / float64(sourceLines)
		if ratio < 0.3 {
			issues = append(issues, "translated code is suspiciously shorter than the source; likely truncated")
		}
	}

	for _, m := range decimalPicRE.FindAllStringSubmatch(source, -1) {
		digits, frac := m[1], fmt.Sprint(len(m[2]))
		decimalForm := fmt.Sprintf("DECIMAL(%s,%s)", digits, frac)
		if !strings.Contains(translated, decimalForm) && !strings.Contains(translated, fmt.Sprintf("decimal(%s, %s)", digits, frac)) {
			issues = append(issues, fmt.Sprintf("%s precision may not be preserved as %s in the translation", m[0], decimalForm))
		}
	}
	return issues
}

// fixTranslationIssues asks the model to correct specific named issues
// without re-translating from scratch.
func fixTranslationIssues(ctx context.Context, res *Resources, source, translated, target string, issues []string) (string, error) {
	prompt := fmt.Sprintf(`The following %s translation has issues. Fix them and return only the corrected code.

Original:
%s

Current translation:
%s

Issues to fix:
- %s`, target, source, translated, strings.Join(issues, "\n- "))

	resp, err := res.Provider.Generate(ctx, llm.GenerateRequest{Model: res.Model, Prompt: prompt})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// nameBasedFillIn is the last-resort fallback when the critique loop can't
// converge: it annotates the remaining issues as a trailing comment rather
// than silently shipping a known-bad translation (spec §7
// TranslationCritiqueFailure).
func nameBasedFillIn(translated string, issues []string) string {
	var sb strings.Builder
	sb.WriteString(translated)
	sb.WriteString("\n\n// Unresolved after repeated critique attempts:\n")
	for _, issue := range issues {
		sb.WriteString("// - " + issue + "\n")
	}
	return sb.String()
}
