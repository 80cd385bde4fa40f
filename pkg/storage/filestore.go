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

package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/vectorindex"
)

// timestampLayout produces a filesystem-safe UTC timestamp for the
// generated-artifact filenames spec §6 names (no colons, which several
// filesystems reject).
const timestampLayout = "20060102T150405Z"

// FileStore is the only Store implementation: a plain directory tree under
// <workspace>/.astra, grounded on the teacher's EmbeddedBackend in spirit
// (a single mutex-guarded struct wrapping on-disk state) but with CozoDB
// replaced by JSON snapshots and a flat binary float array, since spec §6
// defines the persistence layout as files, not a Datalog store.
type FileStore struct {
	mu          sync.Mutex
	root        string // <workspace>/.astra
	projectName string
}

// NewFileStore creates (if absent) the .astra tree rooted at workspaceDir
// and returns a FileStore for it.
func NewFileStore(workspaceDir, projectName string) (*FileStore, error) {
	root := filepath.Join(workspaceDir, ".astra")
	for _, dir := range []string{root, filepath.Join(root, "vectors"), filepath.Join(root, "code-index"), filepath.Join(root, "generated")} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("storage: create %s: %w", dir, err)
		}
	}
	return &FileStore{root: root, projectName: projectName}, nil
}

// Root returns the .astra directory.
func (fs *FileStore) Root() string { return fs.root }

func (fs *FileStore) vectorsMetaPath() string { return filepath.Join(fs.root, "vectors", "index.json") }
func (fs *FileStore) vectorsBinPath() string  { return filepath.Join(fs.root, "vectors", "embeddings.bin") }
func (fs *FileStore) codeIndexPath() string {
	return filepath.Join(fs.root, "code-index", "snapshot.json")
}

// SaveCodeIndex writes idx's snapshot as code-index/snapshot.json (spec §6:
// "code-index/*.json — CodeIndex snapshot").
func (fs *FileStore) SaveCodeIndex(idx *codeindex.Index) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	snap := idx.Snapshot()
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal code index: %w", err)
	}
	return writeFileAtomic(fs.codeIndexPath(), b)
}

// LoadCodeIndex restores idx from code-index/snapshot.json.
func (fs *FileStore) LoadCodeIndex(idx *codeindex.Index) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	b, err := os.ReadFile(fs.codeIndexPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: read code index: %w", err)
	}
	var snap codeindex.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return false, fmt.Errorf("storage: unmarshal code index: %w", err)
	}
	idx.Restore(snap)
	return true, nil
}

// SaveVectors writes idx's metadata to vectors/index.json and its
// embeddings to the paired vectors/embeddings.bin, a flat little-endian
// Float32Array of chunks.length*dimensions entries (spec §6).
func (fs *FileStore) SaveVectors(idx *vectorindex.Index) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	meta, _ := idx.Meta()
	embeddings := idx.Embeddings()

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: marshal vector metadata: %w", err)
	}

	bin := make([]byte, 0, len(embeddings)*vectorindex.Dim*4)
	buf := make([]byte, 4)
	for _, row := range embeddings {
		for i := 0; i < vectorindex.Dim; i++ {
			var v float32
			if i < len(row) {
				v = row[i]
			}
			binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
			bin = append(bin, buf...)
		}
	}

	if err := writeFileAtomic(fs.vectorsMetaPath(), metaBytes); err != nil {
		return err
	}
	return writeFileAtomic(fs.vectorsBinPath(), bin)
}

// LoadVectors restores idx from vectors/index.json + vectors/embeddings.bin.
// Chunk text is not persisted in index.json (only textLength is); the
// restored chunks carry empty Text, which is acceptable since callers that
// need source text re-read it from disk by file+line range (spec §6's
// index.json omits full chunk text to stay small).
func (fs *FileStore) LoadVectors(idx *vectorindex.Index) (bool, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	metaBytes, err := os.ReadFile(fs.vectorsMetaPath())
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: read vector metadata: %w", err)
	}
	var meta vectorindex.Meta
	if err := json.Unmarshal(metaBytes, &meta); err != nil {
		return false, fmt.Errorf("storage: unmarshal vector metadata: %w", err)
	}

	binBytes, err := os.ReadFile(fs.vectorsBinPath())
	if err != nil {
		return false, fmt.Errorf("storage: read embeddings: %w", err)
	}
	dims := meta.Dimensions
	if dims == 0 {
		dims = vectorindex.Dim
	}
	wantLen := meta.ChunkCount * dims * 4
	if len(binBytes) < wantLen {
		return false, fmt.Errorf("storage: embeddings.bin truncated: have %d bytes, want %d", len(binBytes), wantLen)
	}

	embeddings := make([][]float32, meta.ChunkCount)
	for i := 0; i < meta.ChunkCount; i++ {
		row := make([]float32, dims)
		for j := 0; j < dims; j++ {
			off := (i*dims + j) * 4
			row[j] = math.Float32frombits(binary.LittleEndian.Uint32(binBytes[off : off+4]))
		}
		embeddings[i] = row
	}

	texts := make([]string, meta.ChunkCount)
	idx.Restore(meta, texts, embeddings)
	return true, nil
}

// SaveDocumentation writes a generated documentation report and deletes any
// prior report of either kind older than DocumentationMaxAge (spec §6).
func (fs *FileStore) SaveDocumentation(kind DocumentationKind, content string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if err := fs.cleanupStaleDocsLocked(); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s-%s-%s.md", fs.projectName, kind, time.Now().UTC().Format(timestampLayout))
	path := filepath.Join(fs.root, name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

// cleanupStaleDocsLocked deletes every "*-documentation-*.md" (both
// DocTechnical and DocBusiness suffixes are covered by the shared
// "-documentation-" substring) older than DocumentationMaxAge.
func (fs *FileStore) cleanupStaleDocsLocked() error {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return fmt.Errorf("storage: list %s: %w", fs.root, err)
	}
	cutoff := time.Now().Add(-DocumentationMaxAge)
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), "-documentation-") || !strings.HasSuffix(e.Name(), ".md") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			_ = os.Remove(filepath.Join(fs.root, e.Name()))
		}
	}
	return nil
}

// SaveGeneratedCode writes generated/<fileName>.<ext> (spec §6: "Generated
// code: .astra/generated/<fileName>.<ext>").
func (fs *FileStore) SaveGeneratedCode(fileName, ext, content string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	base := filepath.Base(fileName)
	ext = strings.TrimPrefix(ext, ".")
	name := base
	if ext != "" {
		name = fmt.Sprintf("%s.%s", base, ext)
	}
	path := filepath.Join(fs.root, "generated", name)
	if err := writeFileAtomic(path, []byte(content)); err != nil {
		return "", err
	}
	return path, nil
}

// SaveCallGraphHTML writes the interactive call-graph visualization (spec
// §6: ".astra/call-graph-<UTC-timestamp>.html").
func (fs *FileStore) SaveCallGraphHTML(html string) (string, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	name := fmt.Sprintf("call-graph-%s.html", time.Now().UTC().Format(timestampLayout))
	path := filepath.Join(fs.root, name)
	if err := writeFileAtomic(path, []byte(html)); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileAtomic writes b to a temp file in path's directory, then renames
// it into place, so a reader never observes a partially-written file.
func writeFileAtomic(path string, b []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("storage: rename into %s: %w", path, err)
	}
	return nil
}

// listDocFiles returns every generated documentation file's name, sorted
// newest first, for callers that want to inspect history (e.g. a CLI
// "show index stats" command).
func (fs *FileStore) listDocFiles() ([]string, error) {
	entries, err := os.ReadDir(fs.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.Contains(e.Name(), "-documentation-") && strings.HasSuffix(e.Name(), ".md") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

var _ Store = (*FileStore)(nil)
