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

// Package tokenize provides the camelCase/snake_case/kebab-case splitting
// shared by CodeIndex domain discovery, the TF-IDF vectorizer, the inverted
// summary index, the name-based summarizer, and the query classifier (spec
// §4.5: "Tokenization splits camelCase, snake_case, and kebab-case,
// lowercases, keeps tokens of length 2..30").
package tokenize

import (
	"strings"
	"unicode"

	"github.com/surgebase/porter2"
)

// Stopwords excludes common English function words from keyword-weighted
// ranking (domain discovery, classifier term expansion).
var Stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "and": true, "or": true, "but": true,
	"is": true, "are": true, "was": true, "were": true, "be": true, "been": true,
	"to": true, "of": true, "in": true, "on": true, "for": true, "with": true,
	"this": true, "that": true, "it": true, "as": true, "by": true, "at": true,
	"from": true, "into": true, "not": true, "no": true, "do": true, "does": true,
	"can": true, "will": true, "if": true, "then": true, "else": true,
}

// Split breaks an identifier into lowercase sub-tokens along camelCase,
// snake_case, and kebab-case boundaries, keeping tokens of length 2..30.
func Split(s string) []string {
	var parts []string
	var cur strings.Builder
	runes := []rune(s)
	flush := func() {
		if cur.Len() > 0 {
			parts = append(parts, cur.String())
			cur.Reset()
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == '.' || unicode.IsSpace(r):
			flush()
		case unicode.IsUpper(r):
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || (unicode.IsUpper(prev) && nextLower) {
					flush()
				}
			}
			cur.WriteRune(unicode.ToLower(r))
		default:
			cur.WriteRune(r)
		}
	}
	flush()

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(p)
		if len(p) >= 2 && len(p) <= 30 {
			out = append(out, p)
		}
	}
	return out
}

// Words tokenizes free text (summaries, queries) into lowercase words,
// stripping punctuation, then applies the same length filter as Split.
func Words(text string) []string {
	var out []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() == 0 {
			return
		}
		out = append(out, Split(cur.String())...)
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

// Stem reduces a word to its Porter2 stem, collapsing morphological variants
// (plurals, -ing/-ed). No other package calls it: the classifier, the
// vectorizer and the inverted index work on unstemmed tokens.
func Stem(word string) string {
	return porter2.Stem(word)
}

// NGrams3 returns the character trigrams of s (used by trigram indexing and
// by the hashed embedding's trigram scatter term).
func NGrams3(s string) []string {
	r := []rune(strings.ToLower(s))
	if len(r) < 3 {
		return nil
	}
	out := make([]string, 0, len(r)-2)
	for i := 0; i+3 <= len(r); i++ {
		out = append(out, string(r[i:i+3]))
	}
	return out
}
