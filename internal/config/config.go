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

// Package config loads <workspace>/.astra/project.yaml and exposes the
// dotted-key Get surface spec §6 describes for Config.get(key), mirroring
// the teacher's own flat-then-nested project.yaml shape.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/astra/pkg/llm"
)

// LLM holds provider/model selection (spec §6 "Config recognized options").
type LLM struct {
	DefaultModel        string            `yaml:"defaultModel"`
	CodingModel         string            `yaml:"codingModel"`
	AnalysisModel       string            `yaml:"analysisModel"`
	SummaryModel        string            `yaml:"summaryModel"`
	ClassificationModel string            `yaml:"classificationModel"`
	ProviderPriority     []string          `yaml:"providerPriority"`
	OpenAIAPIKey         string            `yaml:"openaiApiKey"`
	AnthropicAPIKey      string            `yaml:"anthropicApiKey"`
	ModelDisplayNames    map[string]string `yaml:"modelDisplayNames"`

	// ProviderType and BaseURL select and locate the pkg/llm.Provider
	// implementation (spec §6 treats the provider itself as external; these
	// two fields are the local wiring needed to construct one).
	ProviderType string `yaml:"providerType"`
	BaseURL      string `yaml:"baseUrl"`
}

// Indexing holds indexing-phase options.
type Indexing struct {
	EnableAutoSummary bool `yaml:"enableAutoSummary"`
}

// Config is the top-level project.yaml shape.
type Config struct {
	ProjectID    string   `yaml:"projectId"`
	SearchMode   string   `yaml:"searchMode"` // "overview" | "detailed"
	DebugMode    bool     `yaml:"debugMode"`
	SystemPrompt string   `yaml:"systemPrompt"`
	LLM          LLM      `yaml:"llm"`
	Indexing     Indexing `yaml:"indexing"`
}

// Default returns a Config with the documented defaults (spec §6 table).
func Default(projectID string) *Config {
	return &Config{
		ProjectID:  projectID,
		SearchMode: "detailed",
		LLM: LLM{
			DefaultModel: "gpt-4o-mini",
		},
		Indexing: Indexing{EnableAutoSummary: true},
	}
}

// Dir returns <workspaceDir>/.astra.
func Dir(workspaceDir string) string {
	return filepath.Join(workspaceDir, ".astra")
}

// Path returns <workspaceDir>/.astra/project.yaml.
func Path(workspaceDir string) string {
	return filepath.Join(Dir(workspaceDir), "project.yaml")
}

// Load reads and parses project.yaml, or returns a Default if absent.
func Load(workspaceDir string) (*Config, error) {
	path := Path(workspaceDir)
	b, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(filepath.Base(workspaceDir)), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return &cfg, nil
}

// Save writes cfg to <workspaceDir>/.astra/project.yaml, creating the
// directory if needed.
func Save(cfg *Config, workspaceDir string) error {
	if err := os.MkdirAll(Dir(workspaceDir), 0o750); err != nil {
		return fmt.Errorf("config: create %s: %w", Dir(workspaceDir), err)
	}
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.WriteFile(Path(workspaceDir), b, 0o640); err != nil {
		return fmt.Errorf("config: write %s: %w", Path(workspaceDir), err)
	}
	return nil
}

// Get resolves a dotted key against the documented recognized options
// (spec §6), returning ok=false for anything else — the "Config.get(key)"
// contract the spec treats as an external dependency.
func (c *Config) Get(key string) (string, bool) {
	switch key {
	case "llm.defaultModel":
		return c.LLM.DefaultModel, c.LLM.DefaultModel != ""
	case "llm.codingModel":
		return c.LLM.CodingModel, c.LLM.CodingModel != ""
	case "llm.analysisModel":
		return c.LLM.AnalysisModel, c.LLM.AnalysisModel != ""
	case "llm.summaryModel":
		return c.LLM.SummaryModel, c.LLM.SummaryModel != ""
	case "llm.classificationModel":
		return c.LLM.ClassificationModel, c.LLM.ClassificationModel != ""
	case "llm.openaiApiKey":
		return c.LLM.OpenAIAPIKey, c.LLM.OpenAIAPIKey != ""
	case "llm.anthropicApiKey":
		return c.LLM.AnthropicAPIKey, c.LLM.AnthropicAPIKey != ""
	case "searchMode":
		return c.SearchMode, c.SearchMode != ""
	case "systemPrompt":
		return c.SystemPrompt, c.SystemPrompt != ""
	case "debugMode":
		if c.DebugMode {
			return "true", true
		}
		return "false", true
	case "indexing.enableAutoSummary":
		if c.Indexing.EnableAutoSummary {
			return "true", true
		}
		return "false", true
	default:
		return "", false
	}
}

// ModelFor resolves the task-specific model override, falling back to
// DefaultModel (spec §6: "llm.codingModel / analysisModel / summaryModel /
// classificationModel | Per-task overrides").
func (c *Config) ModelFor(task string) string {
	switch task {
	case "coding":
		if c.LLM.CodingModel != "" {
			return c.LLM.CodingModel
		}
	case "analysis":
		if c.LLM.AnalysisModel != "" {
			return c.LLM.AnalysisModel
		}
	case "summary":
		if c.LLM.SummaryModel != "" {
			return c.LLM.SummaryModel
		}
	case "classification":
		if c.LLM.ClassificationModel != "" {
			return c.LLM.ClassificationModel
		}
	}
	return c.LLM.DefaultModel
}

// ProviderConfig builds the pkg/llm.ProviderConfig this project is wired to,
// choosing the API key by provider type.
func (c *Config) ProviderConfig() llm.ProviderConfig {
	apiKey := c.LLM.OpenAIAPIKey
	if c.LLM.ProviderType == "anthropic" || c.LLM.ProviderType == "claude" {
		apiKey = c.LLM.AnthropicAPIKey
	}
	return llm.ProviderConfig{
		Type:         c.LLM.ProviderType,
		BaseURL:      c.LLM.BaseURL,
		APIKey:       apiKey,
		DefaultModel: c.LLM.DefaultModel,
	}
}
