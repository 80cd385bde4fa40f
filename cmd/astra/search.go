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
	"strings"
	"text/tabwriter"
	"time"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/bootstrap"
	"github.com/kraklabs/astra/internal/errors"
	"github.com/kraklabs/astra/internal/metrics"
	"github.com/kraklabs/astra/internal/output"
	"github.com/kraklabs/astra/internal/searchpipeline"
)

// runSearch executes the 'search' command, running the comprehensive
// multi-phase search pipeline over the indexed workspace.
func runSearch(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)
	jsonOutput := fs.Bool("json", globals.JSON, "Output as JSON")
	limit := fs.Int("limit", 20, "Maximum results to print")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra search [options] <query>

Runs the comprehensive search pipeline over the indexed workspace.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	if fs.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Error: query argument required")
		fs.Usage()
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	cs, err := bootstrap.Open(bootstrap.ProjectConfig{WorkspaceDir: cwd}, logger)
	if err != nil {
		errors.FatalError(err, globals.JSON)
		return
	}

	pipeline := searchpipeline.New(cs.Index, cs.Trigram, cs.Vector, cs.Inverted, cs.Classifier)

	start := time.Now()
	results := pipeline.ComprehensiveSearch(query)
	metrics.ObserveSearch(time.Since(start).Seconds())

	if len(results) > *limit {
		results = results[:*limit]
	}

	if *jsonOutput {
		_ = output.JSON(map[string]any{"query": query, "results": results, "count": len(results)})
		return
	}
	printSearchResults(results)
}

func printSearchResults(results []searchpipeline.Result) {
	if len(results) == 0 {
		fmt.Println("No results")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SCORE\tFILE\tLINE\tNAME\tTYPE\tSOURCE")
	fmt.Fprintln(w, "-----\t----\t----\t----\t----\t------")
	for _, r := range results {
		fmt.Fprintf(w, "%.2f\t%s\t%d\t%s\t%s\t%s\n",
			r.Score, r.File, r.Line, r.Name, r.Type, strings.Join(r.Source, "+"))
	}
	_ = w.Flush()
	fmt.Printf("\n(%d results)\n", len(results))
}
