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
	"os"
	"path/filepath"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/ui"
)

const postCommitHookContent = `#!/bin/sh
# astra auto-index hook - runs an incremental index after each commit
# Installed by: astra install-hook
# Remove with: astra install-hook --remove

astra --quiet index >/dev/null 2>&1 &
`

const hookMarker = "# astra auto-index hook"

// runInstallHook executes the 'install-hook' CLI command, managing the git
// post-commit hook that triggers a background re-index after each commit.
func runInstallHook(args []string) {
	fs := flag.NewFlagSet("install-hook", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing hook")
	remove := fs.Bool("remove", false, "Remove the hook instead of installing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra install-hook [options]

Installs a git post-commit hook that runs 'astra index' in the background
after each commit.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	gitDir, err := findGitDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if *remove {
		if err := removeHook(hookPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		ui.Success("Git hook removed.")
		return
	}

	if err := installHook(hookPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ui.Successf("Git hook installed: %s", hookPath)
}

// installHookInteractive installs the hook with default settings, used by
// runInit's post-setup prompt. Failures are reported but non-fatal.
func installHookInteractive() {
	gitDir, err := findGitDir()
	if err != nil {
		ui.Warningf("skipping git hook: %v", err)
		return
	}
	hookPath := filepath.Join(gitDir, "hooks", "post-commit")
	if err := installHook(hookPath, false); err != nil {
		ui.Warningf("could not install git hook: %v", err)
		return
	}
	ui.Successf("Git hook installed: %s", hookPath)
}

// findGitDir walks up from the current directory looking for .git, resolving
// the gitdir file form used by worktrees.
func findGitDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	dir := cwd
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath) //nolint:gosec // G304: walking the caller's own tree
			if err != nil {
				return "", fmt.Errorf("cannot read .git file: %w", err)
			}
			var gitdir string
			if _, err := fmt.Sscanf(string(content), "gitdir: %s", &gitdir); err == nil {
				if filepath.IsAbs(gitdir) {
					return gitdir, nil
				}
				return filepath.Join(dir, gitdir), nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", fmt.Errorf("not a git repository (or any of the parent directories)")
}

func installHook(hookPath string, force bool) error {
	hookDir := filepath.Dir(hookPath)
	if err := os.MkdirAll(hookDir, 0o750); err != nil {
		return fmt.Errorf("cannot create hooks directory: %w", err)
	}

	if _, err := os.Stat(hookPath); err == nil {
		if !force {
			content, err := os.ReadFile(hookPath) //nolint:gosec // G304: fixed relative path under .git
			if err == nil && containsHookMarker(string(content)) {
				fmt.Println("astra hook already installed. Use --force to reinstall.")
				return nil
			}
			return fmt.Errorf("hook already exists at %s\nUse --force to overwrite", hookPath)
		}
	}

	if err := os.WriteFile(hookPath, []byte(postCommitHookContent), 0o750); err != nil { //nolint:gosec // G306: hook must be executable
		return fmt.Errorf("cannot write hook: %w", err)
	}
	return nil
}

func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath) //nolint:gosec // G304: fixed relative path under .git
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no hook found at %s", hookPath)
		}
		return fmt.Errorf("cannot read hook: %w", err)
	}
	if !containsHookMarker(string(content)) {
		return fmt.Errorf("hook at %s was not installed by astra\nManually remove it if needed", hookPath)
	}
	if err := os.Remove(hookPath); err != nil {
		return fmt.Errorf("cannot remove hook: %w", err)
	}
	return nil
}

func containsHookMarker(content string) bool {
	return strings.Contains(content, hookMarker)
}
