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
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	flag "github.com/spf13/pflag"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kraklabs/astra/internal/bootstrap"
	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/errors"
	"github.com/kraklabs/astra/internal/indexstate"
	"github.com/kraklabs/astra/internal/metrics"
	"github.com/kraklabs/astra/internal/model"
	"github.com/kraklabs/astra/internal/parser"
	"github.com/kraklabs/astra/internal/repoload"
	"github.com/kraklabs/astra/internal/summarizer"
	"github.com/kraklabs/astra/internal/ui"
	"github.com/kraklabs/astra/internal/vectorindex"
	"github.com/kraklabs/astra/internal/watch"
)

// runIndex executes the 'index' command: loads (or initializes) the
// workspace, walks the repository, rebuilds the code/vector indexes, and
// persists the result. With --watch it stays running and rebuilds on a
// debounced filesystem change (spec §5 "Shared resource policy").
func runIndex(args []string, globals GlobalFlags) {
	fs := flag.NewFlagSet("index", flag.ExitOnError)
	full := fs.Bool("full", false, "Force a full reindex, clearing existing state first")
	debug := fs.Bool("debug", false, "Enable debug logging")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")
	watchFlag := fs.Bool("watch", false, "Keep running and reindex on file changes")
	maxFileSize := fs.Int64("max-file-size", 1<<20, "Skip files larger than this many bytes")
	summarize := fs.Bool("summarize", true, "Generate LLM summaries for indexed functions")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra index [options]

Indexes the current workspace using configuration from .astra/project.yaml.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr)
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	pc := bootstrap.ProjectConfig{WorkspaceDir: cwd}
	cs, err := bootstrap.Open(pc, logger)
	if err != nil {
		if uerr, ok := err.(*errors.UserError); ok && uerr.ExitCode == errors.ExitNotFound {
			cs, err = bootstrap.Init(pc, logger)
		}
		if err != nil {
			errors.FatalError(err, globals.JSON)
			return
		}
	}

	progressCfg := NewProgressConfig(globals)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("shutdown.signal")
		cancel()
	}()

	reg := parser.NewRegistry(parser.ModeAuto)

	runOneIndex := func() error {
		return buildIndex(ctx, cs, reg, cwd, *full, *maxFileSize, *summarize, progressCfg, logger)
	}

	if err := runOneIndex(); err != nil {
		errors.FatalError(err, globals.JSON)
		return
	}
	if !globals.JSON {
		ui.Successf("Indexed %d files, %d symbols.", cs.Index.FileCount(), cs.Index.SymbolCount())
	}

	if !*watchFlag {
		return
	}

	ui.Info("Watching for changes (Ctrl-C to stop)...")
	ignore := func(rel string, isDir bool) bool {
		if rel == "" {
			return false
		}
		for _, g := range repoload.DefaultExcludeGlobs {
			if ok, _ := doublestar.Match(g, rel); ok {
				return true
			}
		}
		return false
	}
	w, err := watch.New(cwd, watch.DefaultDebounce, ignore, logger)
	if err != nil {
		errors.FatalError(fmt.Errorf("start watcher: %w", err), globals.JSON)
		return
	}
	w.Run(ctx, func() {
		if err := runOneIndex(); err != nil {
			logger.Warn("index.watch.rebuild.error", "err", err)
			return
		}
		if err := cs.Persist(); err != nil {
			logger.Warn("index.watch.persist.error", "err", err)
		}
	})
}

// buildIndex walks the repository, rebuilds every in-memory index, and
// persists the result to disk.
func buildIndex(ctx context.Context, cs *bootstrap.CoreServices, reg *parser.Registry, root string, full bool, maxFileSize int64, summarize bool, progressCfg ProgressConfig, logger *slog.Logger) error {
	start := time.Now()

	result, err := repoload.Load(root, repoload.Options{MaxFileSize: maxFileSize}, logger)
	if err != nil {
		return fmt.Errorf("walk repository: %w", err)
	}

	inputs := make([]codeindex.FileInput, 0, len(result.Files))
	for _, f := range result.Files {
		content, err := os.ReadFile(f.FullPath) //nolint:gosec // G304: path comes from walking root itself
		if err != nil {
			metrics.RecordFileSkipped()
			continue
		}
		inputs = append(inputs, codeindex.FileInput{Path: f.Path, Content: content, Language: f.Language})
	}

	cs.Tasks.Start("index")
	defer cs.Tasks.Finish()

	bar := NewProgressBar(progressCfg, int64(len(inputs)), "Indexing")
	err = cs.Index.BuildAsync(inputs, reg, codeindex.BuildOptions{ForceRebuild: full}, cs.Tasks, func(ev indexstate.Event) {
		advance(bar, ev.Counters.FilesIndexed)
		cs.State.Transition(ev.Phase, ev.Percent, ev.Counters)
	})
	finish(bar)
	if err != nil {
		return fmt.Errorf("build code index: %w", err)
	}
	for _, in := range inputs {
		cs.Index.TrackVariableAccesses(in.Path, string(in.Content), in.Language)
	}
	for _, rec := range cs.Index.AllFiles() {
		metrics.RecordFileIndexed(len(rec.Symbols))
	}

	var chunks []vectorindex.Chunk
	for path, rec := range cs.Index.AllFiles() {
		content, err := os.ReadFile(filepath.Join(root, path)) //nolint:gosec // G304: path is relative to root itself
		if err != nil {
			continue
		}
		chunks = append(chunks, vectorindex.ChunkFile(path, string(content), rec.Symbols)...)
	}
	cs.Vector.BuildVocab(chunks)
	cs.Vector.IndexChunks(chunks)

	cs.Inverted.Build(invertedDocsFromSummaries(cs.Index))
	cs.Classifier.Learn(cs.Index.AllFiles(), cs.Index.AllSummaries())

	if summarize && cs.Config.Indexing.EnableAutoSummary {
		summarizeIndex(ctx, cs, progressCfg, logger)
	}

	if err := cs.Persist(); err != nil {
		return fmt.Errorf("persist index: %w", err)
	}

	metrics.ObserveIndexDuration(time.Since(start).Seconds())
	return nil
}

// summarizeIndex generates LLM summaries for the highest-priority functions
// (spec §4.5's "priority = 2*callers + callees" ranking).
func summarizeIndex(ctx context.Context, cs *bootstrap.CoreServices, progressCfg ProgressConfig, logger *slog.Logger) {
	s := summarizer.New(cs.Provider, cs.Config.ModelFor("summary"))

	var fns []summarizer.Function
	for key, sym := range cs.Index.QualifiedSymbols() {
		if !model.IsCallable(sym.Type) {
			continue
		}
		fns = append(fns, summarizer.Function{
			Name:    sym.Name,
			Key:     key,
			File:    sym.File,
			Line:    sym.Line,
			Body:    sym.Signature,
			Callers: len(cs.Index.Callers(sym.Name)),
			Callees: len(cs.Index.Callees(sym.Name)),
		})
	}

	spinner := NewSpinner(progressCfg, "Summarizing")
	results := s.SummarizeAll(ctx, fns, 200)
	finish(spinner)

	fileToSummaries := map[string][]string{}
	for _, r := range results {
		cs.Index.SetSummary(r.Key, r.Entry)
		fileToSummaries[r.Entry.File] = append(fileToSummaries[r.Entry.File], r.Entry.Summary)
		metrics.RecordSummarizeBatch(!r.FromLLM)
	}

	for file, summaries := range summarizer.BuildFileSummaries(fileToSummaries) {
		cs.Index.SetFileSummary(file, summaries)
	}

	logger.Info("index.summarize.done", "functions", len(results))
}
