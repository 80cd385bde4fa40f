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

package bootstrap

import (
	"testing"

	"github.com/kraklabs/astra/pkg/llm"
)

func TestInitThenOpen(t *testing.T) {
	dir := t.TempDir()
	pc := ProjectConfig{
		WorkspaceDir: dir,
		ProjectID:    "demo",
		LLMProvider:  llm.ProviderConfig{Type: "mock"},
	}

	cs, err := Init(pc, nil)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if cs.Index == nil || cs.Vector == nil || cs.Trigram == nil {
		t.Fatal("expected core indexes to be initialized")
	}
	if cs.Tools == nil {
		t.Fatal("expected tool registry to be initialized")
	}

	if err := cs.Persist(); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	opened, err := Open(pc, nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if opened.WorkspaceDir != dir {
		t.Errorf("expected workspace dir %q, got %q", dir, opened.WorkspaceDir)
	}
}

func TestOpenMissingProjectFails(t *testing.T) {
	dir := t.TempDir()
	pc := ProjectConfig{WorkspaceDir: dir, ProjectID: "demo"}
	if _, err := Open(pc, nil); err == nil {
		t.Fatal("expected Open to fail for an uninitialized workspace")
	}
}
