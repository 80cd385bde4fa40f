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

// Package storage implements the persistence layout under <workspace>/.astra
// (spec §6): the vector index's split metadata/embeddings files, the
// CodeIndex JSON snapshot, generated documentation with time-based cleanup,
// generated translated code, and the call-graph HTML visualization.
package storage

import (
	"time"

	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/vectorindex"
)

// Store is the persistence abstraction every core component reads from or
// writes into. FileStore is the only implementation; the interface exists
// so callers (bootstrap, CLI commands) don't depend on its on-disk layout
// directly, matching the Backend abstraction the teacher used to isolate
// CozoDB from the rest of the tool layer.
type Store interface {
	// SaveCodeIndex persists idx's snapshot to code-index/*.json.
	SaveCodeIndex(idx *codeindex.Index) error
	// LoadCodeIndex restores idx from a prior SaveCodeIndex, or reports
	// ok=false if no snapshot exists yet.
	LoadCodeIndex(idx *codeindex.Index) (ok bool, err error)

	// SaveVectors persists idx's metadata to vectors/index.json and its
	// embeddings to vectors/embeddings.bin.
	SaveVectors(idx *vectorindex.Index) error
	// LoadVectors restores idx from a prior SaveVectors, or reports
	// ok=false if no index exists yet.
	LoadVectors(idx *vectorindex.Index) (ok bool, err error)

	// SaveDocumentation writes a generated documentation report, naming it
	// per spec §6's "<projectName>-documentation-<UTC-timestamp>.md"
	// pattern (or the business variant), and deletes any prior report
	// older than DocumentationMaxAge.
	SaveDocumentation(kind DocumentationKind, content string) (path string, err error)

	// SaveGeneratedCode writes a generated/translated file under
	// generated/<fileName>.<ext>.
	SaveGeneratedCode(fileName, ext, content string) (path string, err error)

	// SaveCallGraphHTML writes the interactive call-graph visualization.
	SaveCallGraphHTML(html string) (path string, err error)

	// Root returns the workspace's .astra directory.
	Root() string
}

// DocumentationKind distinguishes the two documentation report flavors
// spec §6 names.
type DocumentationKind string

const (
	DocTechnical DocumentationKind = "documentation"
	DocBusiness  DocumentationKind = "business-documentation"
)

// DocumentationMaxAge is how long a stale "*-documentation-*.md" file is
// kept before a new documentation run deletes it (spec §6: "Files matching
// the pattern *-documentation-*.md older than 4 hours are automatically
// deleted during new documentation runs").
const DocumentationMaxAge = 4 * time.Hour
