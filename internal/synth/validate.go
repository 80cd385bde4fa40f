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
	"regexp"
	"strings"

	"github.com/kraklabs/astra/internal/codeindex"
)

// placeholderEntryPointRE matches hallucinated entry-point function names a
// model sometimes invents instead of citing a real symbol (spec §4.12
// "Validation").
var placeholderEntryPointRE = regexp.MustCompile(`(?i)^(main_\w*_function|entry_\w*|placeholder\w*|function_name|example_function)$`)

// ValidateExtractedFacts drops key_functions/data_structures entries whose
// name is not in the CodeIndex and whose file is not in contextFiles,
// key_files entries whose file is not in contextFiles, and code_flow edges
// whose non-empty file is not in contextFiles; it marks the remaining
// code_flow edges verified against the call graph and drops hallucinated or
// unknown entry-point names (spec §4.12 "Validation").
func ValidateExtractedFacts(f *Facts, idx *codeindex.Index, contextFiles map[string]bool) {
	if f == nil {
		return
	}

	if f.EntryPoint != nil {
		if placeholderEntryPointRE.MatchString(strings.TrimSpace(f.EntryPoint.Function)) || !knownFunction(idx, f.EntryPoint.Function, f.EntryPoint.File, contextFiles) {
			f.EntryPoint = nil
		}
	}

	kept := f.KeyFunctions[:0:0]
	for _, kf := range f.KeyFunctions {
		if knownFunction(idx, kf.Name, kf.File, contextFiles) {
			kept = append(kept, kf)
		}
	}
	f.KeyFunctions = kept

	keptFiles := f.KeyFiles[:0:0]
	for _, kfi := range f.KeyFiles {
		if contextFiles[kfi.File] {
			keptFiles = append(keptFiles, kfi)
		}
	}
	f.KeyFiles = keptFiles

	keptDS := f.DataStructures[:0:0]
	for _, ds := range f.DataStructures {
		if knownFunction(idx, ds.Name, ds.File, contextFiles) {
			keptDS = append(keptDS, ds)
		}
	}
	f.DataStructures = keptDS

	keptFlow := f.CodeFlow[:0:0]
	for _, cf := range f.CodeFlow {
		if !contextFiles[cf.File] && cf.File != "" {
			continue
		}
		cf.Verified = callGraphHasEdge(idx, cf.Caller, cf.Callee)
		keptFlow = append(keptFlow, cf)
	}
	f.CodeFlow = keptFlow
}

func knownFunction(idx *codeindex.Index, name, file string, contextFiles map[string]bool) bool {
	if name == "" {
		return false
	}
	if idx != nil {
		if file != "" {
			if _, ok := idx.Symbol(name + "@" + file); ok {
				return true
			}
		}
		if _, ok := idx.Symbol(name); ok {
			return true
		}
	}
	return file != "" && contextFiles[file]
}

func callGraphHasEdge(idx *codeindex.Index, caller, callee string) bool {
	if idx == nil || caller == "" || callee == "" {
		return false
	}
	for _, c := range idx.Callees(caller) {
		if c == callee {
			return true
		}
	}
	return false
}
