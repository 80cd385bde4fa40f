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

// Package storage provides the on-disk persistence layer for the indexed
// project state.
//
// FileStore is the only Store implementation: a directory tree rooted at
// <workspace>/.astra holding the vector index (split metadata/embeddings
// files), the CodeIndex snapshot, generated documentation reports, and
// generated/translated code.
//
// # Quick Start
//
//	store, err := storage.NewFileStore(workspaceDir, "myproject")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	if err := store.SaveCodeIndex(idx); err != nil {
//	    log.Fatal(err)
//	}
//	if err := store.SaveVectors(vecIdx); err != nil {
//	    log.Fatal(err)
//	}
//
// # Restore on open
//
//	ok, err := store.LoadCodeIndex(idx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if !ok {
//	    // no prior snapshot; a full rebuild is needed
//	}
//
// # Layout
//
//   - vectors/index.json + vectors/embeddings.bin: VectorIndex, split so
//     the bulk embedding data never round-trips through JSON encoding.
//   - code-index/snapshot.json: CodeIndex (symbols, call graph, reverse
//     call graph, summaries, file summaries).
//   - <projectName>-documentation-<timestamp>.md /
//     <projectName>-business-documentation-<timestamp>.md: generated
//     reports. Stale reports older than DocumentationMaxAge are deleted
//     on the next SaveDocumentation call.
//   - generated/<fileName>.<ext>: generated or translated code.
//   - call-graph-<timestamp>.html: the interactive call-graph
//     visualization.
//
// # Thread Safety
//
// FileStore is safe for concurrent use; each operation holds an internal
// mutex for the duration of its file writes.
package storage
