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

	flag "github.com/spf13/pflag"

	"github.com/kraklabs/astra/internal/config"
	"github.com/kraklabs/astra/internal/ui"
)

// runReset executes the 'reset' command, deleting the .astra workspace.
func runReset(args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: astra reset [options]

Deletes .astra, clearing all indexed data for the current workspace.
This is useful before a full re-index to ensure a clean slate.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		fmt.Fprintln(os.Stderr, "Error: you must pass --yes to confirm the reset")
		fmt.Fprintln(os.Stderr, "This will delete all indexed data for the workspace.")
		os.Exit(1)
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: cannot get current directory: %v\n", err)
		os.Exit(1)
	}

	astraDir := config.Dir(cwd)
	if _, err := os.Stat(astraDir); os.IsNotExist(err) {
		fmt.Println("No .astra workspace found; nothing to reset.")
		return
	}

	fmt.Printf("Resetting workspace (deleting %s)...\n", astraDir)
	if err := os.RemoveAll(astraDir); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to delete data: %v\n", err)
		os.Exit(1)
	}

	ui.Success("Reset complete. All local indexed data has been deleted.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  astra init && astra index")
}
