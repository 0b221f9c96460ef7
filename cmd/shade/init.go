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
	"path/filepath"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/internal/ui"
	"github.com/kraklabs/shade/pkg/rules"
)

// runInit executes the 'init' CLI command, creating a .shade/project.yaml
// configuration file and, unless suppressed, a default rule file next to it.
//
// Flags:
//   - --force: Overwrite existing configuration (default: false)
//   - --no-rules: Skip writing the default rule file
//   - --workers: Worker pool size (default: 0 = logical CPU count)
//
// Examples:
//
//	shade init               Create configuration with defaults
//	shade init --force       Overwrite an existing configuration
func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing configuration")
	noRules := fs.Bool("no-rules", false, "Skip writing the default rule file")
	workers := fs.Int("workers", 0, "Worker pool size (0 = logical CPU count)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade init [options]

Creates .shade/project.yaml in the current directory, plus a default
rules.yaml holding the built-in rule set so thresholds can be tuned.

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

	configPath := config.Path(cwd)
	if _, err := os.Stat(configPath); err == nil && !*force {
		fmt.Fprintf(os.Stderr, "Error: %s already exists. Use --force to overwrite.\n", configPath)
		os.Exit(1)
	}

	cfg := config.Default(cwd)
	cfg.Concurrency.Workers = *workers

	rulesPath := filepath.Join(config.Dir(cwd), "rules.yaml")
	if !*noRules {
		cfg.RulesPath = rulesPath
	}

	if err := config.Save(cfg, configPath); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	ui.Successf("Created %s", configPath)

	if !*noRules {
		if err := rules.Save(rules.Default(), rulesPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: cannot write rule file: %v\n", err)
			os.Exit(1)
		}
		ui.Successf("Created %s (%d rules)", rulesPath, len(rules.Default().Rules))
	}

	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  shade scan       Run a full scan")
	fmt.Println("  shade status     Check last scan results")
}
