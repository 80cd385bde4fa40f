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

// Package bootstrap wires every process-wide singleton into one CoreServices
// container (spec §9 DESIGN NOTES: "Inject them through a CoreServices
// container; do not use module-level mutable state in the rewrite") and
// handles opening/initializing a project's .astra workspace.
package bootstrap

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/kraklabs/astra/internal/classifier"
	"github.com/kraklabs/astra/internal/codeindex"
	"github.com/kraklabs/astra/internal/config"
	"github.com/kraklabs/astra/internal/errors"
	"github.com/kraklabs/astra/internal/indexstate"
	"github.com/kraklabs/astra/internal/invertedindex"
	"github.com/kraklabs/astra/internal/planner"
	"github.com/kraklabs/astra/internal/taskcontrol"
	"github.com/kraklabs/astra/internal/toolregistry"
	"github.com/kraklabs/astra/internal/trigram"
	"github.com/kraklabs/astra/internal/vectorindex"
	"github.com/kraklabs/astra/pkg/llm"
	"github.com/kraklabs/astra/pkg/storage"
)

// CoreServices holds every process-wide singleton (spec §9: CodeIndex,
// trigram/vector/inverted indexes, IndexingState, TaskController, and the
// persistence store). It holds no failed-models cache. One instance is
// created per opened project; nothing here is a package-level global.
type CoreServices struct {
	Logger *slog.Logger
	Config *config.Config
	Store  storage.Store

	Index      *codeindex.Index
	Trigram    *trigram.Index
	Vector     *vectorindex.Index
	Inverted   *invertedindex.Index
	Classifier *classifier.Classifier
	State      *indexstate.Machine
	Tasks      *taskcontrol.Controller

	Provider llm.Provider

	Tools    *toolregistry.Registry
	Planner  *planner.Executor
	Resources *toolregistry.Resources

	WorkspaceDir string
}

// ProjectConfig configures Open/Init (spec §6 "Config recognized options",
// adapted from the teacher's CozoDB-era ProjectConfig/ProjectInfo to the
// file-based persistence layout).
type ProjectConfig struct {
	WorkspaceDir string
	ProjectID    string
	LLMProvider  llm.ProviderConfig
}

// Init creates a new .astra workspace: the directory layout and a default
// project.yaml. No index snapshot is written. Idempotent.
func Init(pc ProjectConfig, logger *slog.Logger) (*CoreServices, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if pc.ProjectID == "" {
		pc.ProjectID = filepath.Base(pc.WorkspaceDir)
	}

	logger.Info("bootstrap.project.init.start", "project_id", pc.ProjectID, "workspace", pc.WorkspaceDir)

	store, err := storage.NewFileStore(pc.WorkspaceDir, pc.ProjectID)
	if err != nil {
		return nil, errors.NewPermissionError("cannot create .astra workspace", err.Error(), "check directory permissions", err)
	}

	cfg := config.Default(pc.ProjectID)
	if err := config.Save(cfg, pc.WorkspaceDir); err != nil {
		return nil, errors.NewConfigError("cannot write project.yaml", err.Error(), "check directory permissions", err)
	}

	cs := newCoreServices(logger, cfg, store, pc)
	logger.Info("bootstrap.project.init.success", "project_id", pc.ProjectID)
	return cs, nil
}

// Open opens an existing .astra workspace, restoring the code and vector
// indexes from their snapshots if present (spec §7 IndexCorruption). A
// restore failure is logged and the affected index is cleared, as if no
// snapshot existed, rather than returned as an error; Open does not rebuild
// the cleared index.
func Open(pc ProjectConfig, logger *slog.Logger) (*CoreServices, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if pc.ProjectID == "" {
		pc.ProjectID = filepath.Base(pc.WorkspaceDir)
	}

	astraDir := config.Dir(pc.WorkspaceDir)
	if _, err := os.Stat(astraDir); os.IsNotExist(err) {
		return nil, errors.NewNotFoundError(
			"project not found",
			fmt.Sprintf("%s does not exist", astraDir),
			"run 'astra init' first",
		)
	}

	cfg, err := config.Load(pc.WorkspaceDir)
	if err != nil {
		return nil, errors.NewConfigError("cannot load project.yaml", err.Error(), "check .astra/project.yaml for syntax errors", err)
	}

	store, err := storage.NewFileStore(pc.WorkspaceDir, pc.ProjectID)
	if err != nil {
		return nil, errors.NewPermissionError("cannot open .astra workspace", err.Error(), "check directory permissions", err)
	}

	cs := newCoreServices(logger, cfg, store, pc)

	if ok, err := store.LoadCodeIndex(cs.Index); err != nil {
		logger.Warn("bootstrap.codeindex.restore.failed", "err", err)
		cs.Index.Clear()
	} else if ok {
		logger.Info("bootstrap.codeindex.restored", "files", cs.Index.FileCount(), "symbols", cs.Index.SymbolCount())
	}

	if ok, err := store.LoadVectors(cs.Vector); err != nil {
		logger.Warn("bootstrap.vectors.restore.failed", "err", err)
		cs.Vector.Clear()
	} else if ok {
		logger.Info("bootstrap.vectors.restored", "chunks", cs.Vector.ChunkCount())
	}

	cs.Inverted.Build(invertedDocsFromSummaries(cs.Index))
	cs.Classifier.Learn(cs.Index.AllFiles(), cs.Index.AllSummaries())

	return cs, nil
}

func newCoreServices(logger *slog.Logger, cfg *config.Config, store storage.Store, pc ProjectConfig) *CoreServices {
	idx := codeindex.New()
	tri := trigram.New()
	vec := vectorindex.New()
	inv := invertedindex.New()
	cls := classifier.New()

	providerConfig := pc.LLMProvider
	if providerConfig.Type == "" {
		providerConfig = cfg.ProviderConfig()
	}
	provider, err := llm.NewProvider(providerConfig)
	if err != nil {
		logger.Warn("bootstrap.llm.provider.unavailable", "err", err)
		provider = &llm.MockProvider{}
	}

	res := toolregistry.NewResources(idx, tri, vec, inv, cls, provider, cfg.ModelFor("coding"))
	reg := toolregistry.New(res)

	return &CoreServices{
		Logger:       logger,
		Config:       cfg,
		Store:        store,
		Index:        idx,
		Trigram:      tri,
		Vector:       vec,
		Inverted:     inv,
		Classifier:   cls,
		State:        indexstate.New(),
		Tasks:        taskcontrol.New(),
		Provider:     provider,
		Tools:        reg,
		Resources:    res,
		Planner:      &planner.Executor{Registry: reg},
		WorkspaceDir: pc.WorkspaceDir,
	}
}

// invertedDocsFromSummaries adapts CodeIndex.AllSummaries into the
// Document shape invertedindex.Build expects, re-derived at every Open
// rather than persisted separately (the index is cheap to rebuild from
// summaries and spec §6 doesn't name a separate on-disk format for it).
func invertedDocsFromSummaries(idx *codeindex.Index) []invertedindex.Document {
	summaries := idx.AllSummaries()
	docs := make([]invertedindex.Document, 0, len(summaries))
	for _, s := range summaries {
		docs = append(docs, invertedindex.Document{
			Symbol:  s.Name,
			File:    s.File,
			Line:    s.Line,
			Summary: s.Summary,
		})
	}
	return docs
}

// Persist writes every in-memory index back to disk (spec §5 lifecycle:
// called after a rebuild completes and before a clean shutdown).
func (cs *CoreServices) Persist() error {
	if err := cs.Store.SaveCodeIndex(cs.Index); err != nil {
		return fmt.Errorf("persist code index: %w", err)
	}
	if err := cs.Store.SaveVectors(cs.Vector); err != nil {
		return fmt.Errorf("persist vectors: %w", err)
	}
	return nil
}

// ListProjects returns the names of every subdirectory of registryDir (an
// analogue of the teacher's multi-project registry); it does not check that
// a subdirectory is an initialized workspace. No CLI command calls it;
// astra's primary mode is one project per invocation.
func ListProjects(registryDir string) ([]string, error) {
	entries, err := os.ReadDir(registryDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", registryDir, err)
	}
	var projects []string
	for _, e := range entries {
		if e.IsDir() {
			projects = append(projects, e.Name())
		}
	}
	return projects, nil
}
