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
	"fmt"
	"log/slog"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/bootstrap"
	"github.com/kraklabs/astra/internal/config"
	"github.com/kraklabs/astra/internal/errors"
	"github.com/kraklabs/astra/internal/output"
)

// StatusResult is the status command's output shape, JSON or printed.
type StatusResult struct {
	ProjectID    string    `json:"project_id"`
	WorkspaceDir string    `json:"workspace_dir"`
	Indexed      bool      `json:"indexed"`
	Files        int       `json:"files"`
	Symbols      int       `json:"symbols"`
	Summaries    int       `json:"summaries"`
	Chunks       int       `json:"chunks"`
	CallEdges    int       `json:"call_edges"`
	IndexState   string    `json:"index_state"`
	LastUpdated  time.Time `json:"last_updated"`
	Error        string    `json:"error,omitempty"`
}

// runStatus executes the 'status' command, reporting index statistics for
// the current workspace.
func runStatus(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra status [options]

Shows index statistics for the current workspace.

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

	result := &StatusResult{WorkspaceDir: cwd}

	if _, statErr := os.Stat(config.Dir(cwd)); os.IsNotExist(statErr) {
		result.Error = "project not indexed yet; run 'astra init' then 'astra index'"
		reportStatus(result, *jsonOutput)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cs, err := bootstrap.Open(bootstrap.ProjectConfig{WorkspaceDir: cwd}, logger)
	if err != nil {
		if *jsonOutput {
			result.Error = err.Error()
			reportStatus(result, true)
			os.Exit(1)
		}
		errors.FatalError(err, false)
		return
	}

	result.ProjectID = cs.Config.ProjectID
	result.Indexed = cs.Index.FileCount() > 0
	result.Files = cs.Index.FileCount()
	result.Symbols = cs.Index.SymbolCount()
	result.Summaries = cs.Index.SummaryCount()
	result.Chunks = cs.Vector.ChunkCount()
	result.CallEdges = cs.Index.CallEdgeCount()
	result.IndexState = string(cs.State.Snapshot().Phase)
	result.LastUpdated = cs.Index.LastUpdated()

	reportStatus(result, *jsonOutput)
}

func reportStatus(result *StatusResult, jsonOutput bool) {
	if jsonOutput {
		_ = output.JSON(result)
		return
	}

	fmt.Println("Astra Project Status")
	fmt.Println("=====================")
	fmt.Printf("Project ID:    %s\n", result.ProjectID)
	fmt.Printf("Workspace:     %s\n", result.WorkspaceDir)
	fmt.Println()
	fmt.Println("Index:")
	fmt.Printf("  Files:       %d\n", result.Files)
	fmt.Printf("  Symbols:     %d\n", result.Symbols)
	fmt.Printf("  Summaries:   %d\n", result.Summaries)
	fmt.Printf("  Vector Chunks: %d\n", result.Chunks)
	fmt.Printf("  Call Edges:  %d\n", result.CallEdges)
	if !result.LastUpdated.IsZero() {
		fmt.Printf("  Last Build:  %s\n", result.LastUpdated.Format(time.RFC3339))
	}
	if result.Error != "" {
		fmt.Printf("\nWarning: %s\n", result.Error)
	}
}
