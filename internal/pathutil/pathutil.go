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

// Package pathutil provides cross-platform path manipulation shared by every
// other astra component: normalizing separators, converting between absolute
// and workspace-relative paths, and deriving the small path-shaped tokens
// (stem, directory components, module guess) the query classifier and search
// pipeline use for filename/directory matching.
package pathutil

import (
	"path"
	"path/filepath"
	"strings"
)

// Normalize converts OS-specific separators to forward slashes and cleans
// the result. Every index (trigram, vector, code) keys its maps by the
// normalized form so that Windows and POSIX builds agree on file identity.
func Normalize(p string) string {
	if p == "" {
		return p
	}
	p = filepath.ToSlash(p)
	return path.Clean(p)
}

// ToRelative converts an absolute path to one relative to root. It falls
// back to the original (normalized) path when conversion fails or the path
// escapes root, matching the behavior user-facing renderers need: never
// synthesize a misleading relative path.
func ToRelative(absPath, root string) string {
	if absPath == "" || root == "" {
		return Normalize(absPath)
	}
	absPath = Normalize(absPath)
	root = Normalize(root)
	if !path.IsAbs(absPath) {
		return absPath
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return absPath
	}
	rel = filepath.ToSlash(rel)
	if strings.HasPrefix(rel, "..") {
		return absPath
	}
	return rel
}

// Stem returns the file name without its extension.
// "internal/search/engine.go" -> "engine"
func Stem(p string) string {
	base := path.Base(Normalize(p))
	if ext := path.Ext(base); ext != "" {
		return strings.TrimSuffix(base, ext)
	}
	return base
}

// Ext returns the lowercase extension without the leading dot, or "" if none.
func Ext(p string) string {
	ext := path.Ext(Normalize(p))
	if ext == "" {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// Dir returns the normalized directory component.
func Dir(p string) string {
	return path.Dir(Normalize(p))
}

// Segments splits a normalized path into its directory components
// (excluding the file name itself).
func Segments(p string) []string {
	dir := Dir(p)
	if dir == "." || dir == "/" || dir == "" {
		return nil
	}
	parts := strings.Split(strings.Trim(dir, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, s := range parts {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// TopModules returns the top-two directory components of p, joined by "/",
// used by QueryClassifier to build its per-module token map (spec C10 §4.9
// "module map": "for every file, the top-two directory components produce a
// module token").
func TopModules(p string) string {
	segs := Segments(p)
	switch len(segs) {
	case 0:
		return ""
	case 1:
		return segs[0]
	default:
		return segs[0] + "/" + segs[1]
	}
}

// CommonPrefixLen returns the length of the longest common prefix of a and b,
// used by the SearchPipeline's filename-stem matching heuristic (spec C11
// §4.10 phase 1: "common 4-char prefix with stem").
func CommonPrefixLen(a, b string) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}

// IsBuildFile reports whether the base name of p matches a well-known build
// manifest that the SearchPipeline skips unless the file name itself
// contains a query keyword (spec C11 §4.10 "Skip-file predicate").
func IsBuildFile(p string) bool {
	base := strings.ToLower(path.Base(Normalize(p)))
	switch base {
	case "makefile", "cmakelists.txt", "meson.build", "package.json",
		"cargo.toml", "tsconfig.json", "go.sum", "go.mod", "pom.xml",
		"build.gradle", "requirements.txt", "poetry.lock":
		return true
	}
	return false
}
