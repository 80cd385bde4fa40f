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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/parser"
	"github.com/kraklabs/astra/internal/vectorindex"
)

func TestFileStoreInterface(t *testing.T) {
	var _ Store = &FileStore{}
}

func TestNewFileStoreCreatesLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	for _, sub := range []string{"vectors", "code-index", "generated"} {
		if _, err := os.Stat(filepath.Join(store.Root(), sub)); err != nil {
			t.Errorf("expected %s to exist: %v", sub, err)
		}
	}
}

func TestCodeIndexRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	idx := codeindex.New()
	idx.BuildSync([]codeindex.FileInput{{
		Path:     "main.go",
		Content:  []byte("package main\n\nfunc main() {\n\thelper()\n}\n\nfunc helper() {}\n"),
		Language: "go",
	}}, parser.NewRegistry(parser.ModeSimplified))

	if err := store.SaveCodeIndex(idx); err != nil {
		t.Fatalf("SaveCodeIndex: %v", err)
	}

	restored := codeindex.New()
	ok, err := store.LoadCodeIndex(restored)
	if err != nil {
		t.Fatalf("LoadCodeIndex: %v", err)
	}
	if !ok {
		t.Fatal("expected LoadCodeIndex to find a snapshot")
	}
	if restored.SymbolCount() != idx.SymbolCount() {
		t.Errorf("symbol count mismatch: got %d, want %d", restored.SymbolCount(), idx.SymbolCount())
	}
	if restored.FileCount() != idx.FileCount() {
		t.Errorf("file count mismatch: got %d, want %d", restored.FileCount(), idx.FileCount())
	}
}

func TestCodeIndexLoadMissingReturnsFalse(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ok, err := store.LoadCodeIndex(codeindex.New())
	if err != nil {
		t.Fatalf("LoadCodeIndex: %v", err)
	}
	if ok {
		t.Error("expected ok=false when no snapshot exists")
	}
}

func TestVectorsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	idx := vectorindex.New()
	chunks := []vectorindex.Chunk{
		{ID: "c1", Text: "func Foo() int { return 1 }", File: "a.go", FileName: "a.go", StartLine: 1, EndLine: 3, Type: vectorindex.ChunkFunction, SymbolName: "Foo"},
		{ID: "c2", Text: "func Bar() int { return 2 }", File: "b.go", FileName: "b.go", StartLine: 1, EndLine: 3, Type: vectorindex.ChunkFunction, SymbolName: "Bar"},
	}
	idx.BuildVocab(chunks)
	idx.IndexChunks(chunks)

	if err := store.SaveVectors(idx); err != nil {
		t.Fatalf("SaveVectors: %v", err)
	}

	restored := vectorindex.New()
	ok, err := store.LoadVectors(restored)
	if err != nil {
		t.Fatalf("LoadVectors: %v", err)
	}
	if !ok {
		t.Fatal("expected LoadVectors to find an index")
	}
	if restored.ChunkCount() != idx.ChunkCount() {
		t.Errorf("chunk count mismatch: got %d, want %d", restored.ChunkCount(), idx.ChunkCount())
	}

	matches := restored.SearchVector("Foo", 5)
	if len(matches) == 0 {
		t.Error("expected at least one search match after restore")
	}
}

func TestSaveDocumentationCleansUpStaleReports(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	stalePath := filepath.Join(store.Root(), "demo-documentation-20200101T000000Z.md")
	if err := os.WriteFile(stalePath, []byte("old"), 0o644); err != nil {
		t.Fatalf("write stale doc: %v", err)
	}
	staleTime := time.Now().Add(-5 * time.Hour)
	if err := os.Chtimes(stalePath, staleTime, staleTime); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	path, err := store.SaveDocumentation(DocTechnical, "# Docs")
	if err != nil {
		t.Fatalf("SaveDocumentation: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("expected new doc to exist: %v", err)
	}
	if _, err := os.Stat(stalePath); !os.IsNotExist(err) {
		t.Error("expected stale documentation file to be deleted")
	}
}

func TestSaveGeneratedCode(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path, err := store.SaveGeneratedCode("converted", "go", "package main\n")
	if err != nil {
		t.Fatalf("SaveGeneratedCode: %v", err)
	}
	if filepath.Base(path) != "converted.go" {
		t.Errorf("expected converted.go, got %s", filepath.Base(path))
	}
}

func TestSaveCallGraphHTML(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, "demo")
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	path, err := store.SaveCallGraphHTML("<html></html>")
	if err != nil {
		t.Fatalf("SaveCallGraphHTML: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read generated html: %v", err)
	}
	if string(b) != "<html></html>" {
		t.Errorf("unexpected html content: %s", b)
	}
}
