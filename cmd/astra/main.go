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

// Package main implements the astra CLI, a runnable demonstration harness
// for the code intelligence core (internal/bootstrap.CoreServices).
//
// Usage:
//
//	astra init                 Create .astra/project.yaml configuration
//	astra index [--watch]      Index the current workspace
//	astra status [--json]      Show index statistics
//	astra search <query>       Run the comprehensive search pipeline
//	astra ask <question>       Plan, execute, and synthesize an answer
//	astra reset --yes          Delete .astra and start over
package main

import (
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/ui"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// GlobalFlags carries flags recognized before the subcommand name.
type GlobalFlags struct {
	Quiet   bool
	NoColor bool
	JSON    bool
}

func main() {
	var (
		showVersion = flag.BoolP("version", "v", false, "Show version and exit")
		quiet       = flag.BoolP("quiet", "q", false, "Suppress progress output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		jsonOut     = flag.Bool("json", false, "Output machine-readable JSON where supported")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `astra - code intelligence CLI

Usage:
  astra <command> [options]

Commands:
  init      Create .astra/project.yaml configuration
  index     Index the current workspace (supports --watch)
  status    Show index statistics
  search    Run the comprehensive search pipeline over indexed code
  ask       Plan, execute, and synthesize a natural-language answer
  reset     Delete .astra and start over

Global Options:
  --json       Machine-readable output where the command supports it
  -q, --quiet  Suppress progress output
  --no-color   Disable colored output
  -v, --version  Show version and exit

`)
	}

	flag.CommandLine.SetInterspersed(false)
	flag.Parse()
	globals := GlobalFlags{Quiet: *quiet, NoColor: *noColor, JSON: *jsonOut}
	ui.InitColors(globals.NoColor)

	if *showVersion {
		fmt.Printf("astra version %s (commit %s, built %s)\n", version, commit, date)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command, cmdArgs := args[0], args[1:]
	switch command {
	case "init":
		runInit(cmdArgs)
	case "index":
		runIndex(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "search":
		runSearch(cmdArgs, globals)
	case "ask":
		runAsk(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs)
	case "completion":
		runCompletion(cmdArgs)
	case "install-hook":
		runInstallHook(cmdArgs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
