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
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/shade/internal/errors"
)

// runReset deletes the local cache and scan reports for the project.
// The cache is read-through and every report is recomputable, so this
// only costs the next scan a cold start.
func runReset(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade reset [options]

Deletes the project's cache and stored scan reports, forcing the next
scan to start cold.

WARNING: This operation is destructive and cannot be undone!

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		fmt.Fprintf(os.Stderr, "Error: you must pass --yes to confirm the reset\n")
		fmt.Fprintf(os.Stderr, "This will delete the cache and all stored scan reports.\n")
		os.Exit(1)
	}

	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		errors.FatalError(err, globals.JSON)
	}

	for _, dir := range []string{cfg.CacheDir, reportsDir(cfg.RepoRoot)} {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		fmt.Printf("Deleting %s...\n", dir)
		if err := os.RemoveAll(dir); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to delete %s: %v\n", dir, err)
			os.Exit(1)
		}
	}

	fmt.Println("Reset complete.")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  shade scan    Run a fresh full scan")
}
