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

package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/config"
	"github.com/kraklabs/astra/internal/ui"
)

// runInit executes the 'init' command, creating .astra/project.yaml.
//
// Flags:
//   - --force: overwrite an existing configuration
//   - -y: non-interactive mode, accept all defaults
//   - --project-id: project identifier (default: directory name)
//   - --llm-provider: ollama, openai, anthropic, or mock
//   - --llm-url, --llm-model, --llm-api-key: provider connection details
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing configuration")
	nonInteractive := fs.BoolP("yes", "y", false, "Non-interactive mode (use defaults)")
	projectID := fs.String("project-id", "", "Project identifier")
	llmProvider := fs.String("llm-provider", "", "LLM provider: ollama, openai, anthropic, mock")
	llmURL := fs.String("llm-url", "", "LLM API base URL")
	llmModel := fs.String("llm-model", "", "Default model name")
	llmAPIKey := fs.String("llm-api-key", "", "LLM API key")
	noHook := fs.Bool("no-hook", false, "Skip git hook installation prompt")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra init [options]

Creates .astra/project.yaml.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	cfgPath := config.Path(cwd)
	if _, err := os.Stat(cfgPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", cfgPath)
		os.Exit(1)
	}

	pid := *projectID
	if pid == "" {
		pid = filepath.Base(cwd)
	}
	cfg := config.Default(pid)
	if *llmProvider != "" {
		cfg.LLM.ProviderType = *llmProvider
	}
	if *llmURL != "" {
		cfg.LLM.BaseURL = *llmURL
	}
	if *llmModel != "" {
		cfg.LLM.DefaultModel = *llmModel
	}
	if *llmAPIKey != "" {
		if cfg.LLM.ProviderType == "anthropic" || cfg.LLM.ProviderType == "claude" {
			cfg.LLM.AnthropicAPIKey = *llmAPIKey
		} else {
			cfg.LLM.OpenAIAPIKey = *llmAPIKey
		}
	}

	if !*nonInteractive {
		reader := bufio.NewReader(os.Stdin)
		runInteractiveConfig(reader, cfg)
	}

	if err := config.Save(cfg, cwd); err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot save configuration: %v\n", err)
		os.Exit(1)
	}
	ui.Successf("Created %s", cfgPath)
	addToGitignore(cwd)

	if !*noHook && !*nonInteractive {
		reader := bufio.NewReader(os.Stdin)
		answer := strings.ToLower(strings.TrimSpace(prompt(reader, "Install git hook for auto-indexing? (y/N)", "n")))
		if answer == "y" || answer == "yes" {
			installHookInteractive()
		}
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review .astra/project.yaml if needed")
	fmt.Println("  2. Run 'astra index' to index your repository")
	fmt.Println("  3. Run 'astra status' to verify indexing")
}

func runInteractiveConfig(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println()
	ui.Header("Astra Project Configuration")
	fmt.Println()

	cfg.ProjectID = prompt(reader, "Project ID", cfg.ProjectID)
	cfg.SearchMode = prompt(reader, "Search mode (overview/detailed)", cfg.SearchMode)

	fmt.Println()
	fmt.Println("LLM providers: ollama, openai, anthropic, mock")
	providerType := prompt(reader, "LLM provider", cfg.LLM.ProviderType)
	if providerType != "" {
		cfg.LLM.ProviderType = providerType
		cfg.LLM.BaseURL = prompt(reader, "Provider base URL (blank for default)", cfg.LLM.BaseURL)
		cfg.LLM.DefaultModel = prompt(reader, "Default model", cfg.LLM.DefaultModel)
		if providerType == "anthropic" || providerType == "claude" {
			cfg.LLM.AnthropicAPIKey = prompt(reader, "Anthropic API key (optional)", cfg.LLM.AnthropicAPIKey)
		} else if providerType == "openai" || providerType == "openai-compatible" {
			cfg.LLM.OpenAIAPIKey = prompt(reader, "OpenAI API key (optional)", cfg.LLM.OpenAIAPIKey)
		}
	}
	fmt.Println()
}

// prompt displays a label and reads a line from stdin, returning defaultValue
// if the user presses Enter without typing anything.
func prompt(reader *bufio.Reader, label, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", label, defaultValue)
	} else {
		fmt.Printf("%s: ", label)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultValue
	}
	return input
}

// addToGitignore adds .astra/ to the project's .gitignore, avoiding duplicates.
func addToGitignore(dir string) {
	gitignorePath := filepath.Join(dir, ".gitignore")

	content, err := os.ReadFile(gitignorePath) //nolint:gosec // G304: dir is the caller's own cwd
	if err != nil {
		return
	}

	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if line == ".astra/" || line == ".astra" || line == "/.astra/" || line == "/.astra" {
			return
		}
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_WRONLY, 0o600) //nolint:gosec // G304: dir is the caller's own cwd
	if err != nil {
		return
	}
	defer func() { _ = f.Close() }()

	if len(content) > 0 && content[len(content)-1] != '\n' {
		_, _ = f.WriteString("\n")
	}
	_, _ = f.WriteString("\n# astra index\n.astra/\n")
	ui.Info("Added .astra/ to .gitignore")
}
