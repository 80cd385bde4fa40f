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

package config

import "testing"

func TestLoadMissingReturnsDefault(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.SearchMode != "detailed" {
		t.Errorf("expected default searchMode detailed, got %q", cfg.SearchMode)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default("demo")
	cfg.LLM.CodingModel = "gpt-4o"
	cfg.SystemPrompt = "Be concise."

	if err := Save(cfg, dir); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.LLM.CodingModel != "gpt-4o" {
		t.Errorf("expected coding model gpt-4o, got %q", loaded.LLM.CodingModel)
	}
	if loaded.SystemPrompt != "Be concise." {
		t.Errorf("expected system prompt roundtrip, got %q", loaded.SystemPrompt)
	}
}

func TestGetRecognizedOptions(t *testing.T) {
	cfg := Default("demo")
	cfg.LLM.AnalysisModel = "claude-haiku"
	cfg.DebugMode = true

	if v, ok := cfg.Get("llm.analysisModel"); !ok || v != "claude-haiku" {
		t.Errorf("Get(llm.analysisModel) = %q, %v", v, ok)
	}
	if v, ok := cfg.Get("debugMode"); !ok || v != "true" {
		t.Errorf("Get(debugMode) = %q, %v", v, ok)
	}
	if _, ok := cfg.Get("unknown.key"); ok {
		t.Error("expected unknown.key to return ok=false")
	}
}

func TestModelForFallsBackToDefault(t *testing.T) {
	cfg := Default("demo")
	cfg.LLM.DefaultModel = "gpt-4o-mini"
	if got := cfg.ModelFor("coding"); got != "gpt-4o-mini" {
		t.Errorf("expected fallback to default model, got %q", got)
	}
	cfg.LLM.CodingModel = "gpt-4o"
	if got := cfg.ModelFor("coding"); got != "gpt-4o" {
		t.Errorf("expected coding override, got %q", got)
	}
}
