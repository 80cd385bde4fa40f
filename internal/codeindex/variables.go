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

package codeindex

import (
	"regexp"
	"strings"
	"sync"

	"github.com/kraklabs/astra/internal/langdetect"
)

var wordRECache sync.Map // string -> *regexp.Regexp

func variableWordRE(name string) *regexp.Regexp {
	if v, ok := wordRECache.Load(name); ok {
		return v.(*regexp.Regexp)
	}
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\b`)
	wordRECache.Store(name, re)
	return re
}

var (
	genericAssignRE = regexp.MustCompile(`(\+\+|--|[+\-*/%&|^]?=[^=]|:=)`)
	cobolMoveToRE   = regexp.MustCompile(`(?i)\bMOVE\b.*\bTO\b`)
	cobolAddToRE    = regexp.MustCompile(`(?i)\bADD\b.*\bTO\b`)
	cobolComputeRE  = regexp.MustCompile(`(?i)\bCOMPUTE\b`)
	cobolIntoRE     = regexp.MustCompile(`(?i)\bINTO\b`)
	cobolAcceptRE   = regexp.MustCompile(`(?i)\bACCEPT\b`)
	cobolUnstringRE = regexp.MustCompile(`(?i)\bUNSTRING\b.*\bINTO\b`)
	talPointerRE    = regexp.MustCompile(`@\s*[A-Za-z_][A-Za-z0-9_^]*\s*:=`)
	sqlSetRE        = regexp.MustCompile(`(?i)\bSET\b\s+[A-Za-z0-9_.]+\s*=`)
	sqlSelectIntoRE = regexp.MustCompile(`(?i)\bSELECT\b.*\bINTO\b`)
	sqlFetchIntoRE  = regexp.MustCompile(`(?i)\bFETCH\b.*\bINTO\b`)
	pyForInRE       = regexp.MustCompile(`\bfor\s+\w+\s+in\b`)
)

// isWriteContext classifies an occurrence of name on line as a write
// (assignment target) versus a read, per the language-appropriate patterns
// enumerated in spec §4.3.
func isWriteContext(line, name, language string) bool {
	switch language {
	case langdetect.COBOL:
		if cobolMoveToRE.MatchString(line) && strings.Contains(afterTo(line), name) {
			return true
		}
		if cobolAddToRE.MatchString(line) && strings.Contains(afterTo(line), name) {
			return true
		}
		if cobolComputeRE.MatchString(line) {
			return true
		}
		if cobolIntoRE.MatchString(line) && strings.Contains(afterKeyword(line, "INTO"), name) {
			return true
		}
		if cobolAcceptRE.MatchString(line) {
			return true
		}
		if cobolUnstringRE.MatchString(line) {
			return true
		}
		return false
	case langdetect.TAL:
		if talPointerRE.MatchString(line) {
			return true
		}
		return genericAssignRE.MatchString(line)
	case langdetect.SQL:
		if sqlSetRE.MatchString(line) {
			return true
		}
		if sqlSelectIntoRE.MatchString(line) || sqlFetchIntoRE.MatchString(line) {
			return true
		}
		return false
	case langdetect.Python:
		if pyForInRE.MatchString(line) {
			return true
		}
		return genericAssignRE.MatchString(line)
	default:
		return genericAssignRE.MatchString(line)
	}
}

func afterTo(line string) string {
	idx := strings.LastIndex(strings.ToUpper(line), "TO")
	if idx < 0 {
		return line
	}
	return line[idx+2:]
}

func afterKeyword(line, kw string) string {
	idx := strings.LastIndex(strings.ToUpper(line), strings.ToUpper(kw))
	if idx < 0 {
		return line
	}
	return line[idx+len(kw):]
}
