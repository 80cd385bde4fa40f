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

// Package langdetect maps file extensions to the language tag parsers key
// off of, and recognizes binary/non-code content so it can be excluded from
// parsing and search (spec C2).
package langdetect

import (
	"bytes"
	"strings"

	"github.com/kraklabs/astra/internal/pathutil"
)

// Supported language tags (spec §6 "Vocabulary").
const (
	C          = "c"
	CPP        = "cpp"
	Java       = "java"
	Kotlin     = "kotlin"
	Scala      = "scala"
	CSharp     = "csharp"
	Python     = "python"
	JavaScript = "javascript"
	TypeScript = "typescript"
	Go         = "go"
	Rust       = "rust"
	Ruby       = "ruby"
	PHP        = "php"
	Swift      = "swift"
	COBOL      = "cobol"
	TAL        = "tal"
	SQL        = "sql"
	Unknown    = ""
)

// extensionLanguage is the canonical extension -> language table (spec §6:
// "c, h, cpp, cc, hpp, java, kt, scala, cs, py, js, jsx, mjs, ts, tsx, go,
// rs, rb, php, swift, cbl, cob, cpy, tal, sql, ddl, plsql").
var extensionLanguage = map[string]string{
	"c": C, "h": C,
	"cpp": CPP, "cc": CPP, "cxx": CPP, "hpp": CPP, "hh": CPP,
	"java": Java,
	"kt":   Kotlin, "kts": Kotlin,
	"scala": Scala,
	"cs":    CSharp,
	"py":    Python, "pyi": Python,
	"js": JavaScript, "jsx": JavaScript, "mjs": JavaScript, "cjs": JavaScript,
	"ts": TypeScript, "tsx": TypeScript,
	"go": Go,
	"rs": Rust,
	"rb": Ruby,
	"php": PHP,
	"swift": Swift,
	"cbl": COBOL, "cob": COBOL, "cpy": COBOL,
	"tal": TAL,
	"sql": SQL, "ddl": SQL, "plsql": SQL,
}

// nonCodeExtensions are recognized but deliberately excluded from parsing
// and search (spec §6: "Binary extensions and non-code text (md, json,
// yaml, ...) are recognized but excluded from parsing/search").
var nonCodeExtensions = map[string]bool{
	"md": true, "markdown": true, "txt": true, "json": true,
	"yaml": true, "yml": true, "toml": true, "xml": true, "html": true,
	"css": true, "csv": true, "log": true, "lock": true,
}

// binaryExtensions are never even read as text.
var binaryExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "gif": true, "bmp": true,
	"ico": true, "pdf": true, "zip": true, "tar": true, "gz": true,
	"exe": true, "dll": true, "so": true, "dylib": true, "o": true,
	"a": true, "class": true, "jar": true, "wasm": true, "bin": true,
	"woff": true, "woff2": true, "ttf": true, "eot": true,
}

// Detect returns the language tag for path p, or Unknown if unrecognized.
func Detect(p string) string {
	ext := pathutil.Ext(p)
	if lang, ok := extensionLanguage[ext]; ok {
		return lang
	}
	return Unknown
}

// IsCode reports whether p's extension maps to a supported source language.
func IsCode(p string) bool {
	return Detect(p) != Unknown
}

// IsNonCodeText reports whether p is a recognized but non-code text format
// (markdown, JSON, YAML, ...) that indexing should skip parsing.
func IsNonCodeText(p string) bool {
	return nonCodeExtensions[pathutil.Ext(p)]
}

// IsBinaryExt reports whether p's extension is a known binary format.
func IsBinaryExt(p string) bool {
	return binaryExtensions[pathutil.Ext(p)]
}

// LooksBinary heuristically detects binary content by scanning for a NUL
// byte in the first 8000 bytes, the same heuristic git and most code search
// tools use to decide whether a file is diffable/greppable text.
func LooksBinary(content []byte) bool {
	n := len(content)
	if n > 8000 {
		n = 8000
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

// Sniff combines extension and content heuristics: a file is excluded from
// parsing/search if its extension is a known binary type, if it has no
// recognized code extension, or if its code extension is recognized but its
// content looks binary.
func Sniff(p string, content []byte) (language string, skip bool) {
	if IsBinaryExt(p) {
		return Unknown, true
	}
	lang := Detect(p)
	if lang == Unknown {
		if IsNonCodeText(p) {
			return Unknown, true
		}
		if LooksBinary(content) {
			return Unknown, true
		}
		return Unknown, true // unrecognized extension: not code, skip parsing
	}
	if LooksBinary(content) {
		return lang, true
	}
	return lang, false
}

// IsCOBOLDialect reports whether lang is the COBOL tag, used by the
// classifier to switch on its specialized dialect handling (spec C10).
func IsCOBOLDialect(lang string) bool { return lang == COBOL }

// NormalizeCOBOLIdentifier upper-cases an identifier the way COBOL source
// conventionally is, since COBOL parsing normalizes identifiers to upper
// case before symbol extraction (spec §4.1).
func NormalizeCOBOLIdentifier(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
