// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package repoload walks a local workspace directory into the file set the
// code index builds from, applying exclude globs and skipping binary or
// oversized files before a single byte is parsed.
package repoload

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/kraklabs/astra/internal/langdetect"
)

// DefaultExcludeGlobs covers the directories no codebase wants indexed.
var DefaultExcludeGlobs = []string{
	".git/**",
	".astra/**",
	"node_modules/**",
	"vendor/**",
	"dist/**",
	"build/**",
	"**/*.min.js",
}

// File is a single source file discovered under the workspace root.
type File struct {
	Path     string // relative to root, slash-separated
	FullPath string
	Size     int64
	Language string
}

// Result summarizes a Load call.
type Result struct {
	RootPath    string
	Files       []File
	TotalSize   int64
	Languages   map[string]int
	SkipReasons map[string]int
}

// Options configures Load.
type Options struct {
	ExcludeGlobs []string
	MaxFileSize  int64 // 0 means no limit
}

// Load walks root and returns every file that survives the exclude globs,
// the size limit, and langdetect.IsBinaryExt. File content is not inspected,
// and files without a recognized code extension are kept as well.
func Load(root string, opts Options, logger *slog.Logger) (*Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	excludes := append(append([]string{}, DefaultExcludeGlobs...), opts.ExcludeGlobs...)

	var files []File
	skipReasons := make(map[string]int)
	languages := make(map[string]int)
	var totalSize int64

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warn("repoload.walk.error", "path", path, "err", err)
			return nil
		}
		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && matchesAny(rel, excludes) {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		if matchesAny(rel, excludes) {
			skipReasons["excluded"]++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}
		if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
			skipReasons["too_large"]++
			return nil
		}
		if langdetect.IsBinaryExt(rel) {
			skipReasons["binary"]++
			return nil
		}

		lang := langdetect.Detect(rel)
		files = append(files, File{Path: rel, FullPath: path, Size: info.Size(), Language: lang})
		totalSize += info.Size()
		if lang != "" {
			languages[lang]++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", absRoot, err)
	}

	return &Result{
		RootPath:    absRoot,
		Files:       files,
		TotalSize:   totalSize,
		Languages:   languages,
		SkipReasons: skipReasons,
	}, nil
}

// matchesAny reports whether path matches any glob in patterns, trying both
// the literal pattern and an implicit **/ prefix so "node_modules/**" excludes
// the directory no matter how deep the walk root is.
func matchesAny(path string, patterns []string) bool {
	for _, pattern := range patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		if !strings.HasPrefix(pattern, "**/") {
			if ok, _ := doublestar.Match("**/"+pattern, path); ok {
				return true
			}
		}
	}
	return false
}
