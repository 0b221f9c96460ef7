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

// Package main implements the shade CLI for scanning repositories and
// reporting shadow logic density.
//
// Usage:
//
//	shade init                    Create .shade/project.yaml configuration
//	shade scan                    Run a full scan of the current repository
//	shade scan --changed a.ts     Run an incremental scan over changed files
//	shade status [--json]         Show project status and last scan summary
//	shade rules validate <path>   Validate a rule file against the matcher vocabulary
//	shade daemon start|stop       Manage the watch-mode rescan daemon
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/kraklabs/shade/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"     // Version string
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// GlobalFlags holds flags that apply to every subcommand.
type GlobalFlags struct {
	JSON    bool
	NoColor bool
	Quiet   bool
}

func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to .shade/project.yaml (default: ./.shade/project.yaml)")
		jsonOutput  = flag.Bool("json", false, "Output as JSON")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
		quiet       = flag.Bool("q", false, "Suppress non-essential output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `shade - Shadow Logic Density Engine CLI

Usage:
  shade <command> [options]

Commands:
  init          Create .shade/project.yaml configuration
  scan          Scan the current repository (full or incremental)
  status        Show project status and last scan summary
  rules         Validate or export rule files
  reset         Delete local scan data and cache (destructive!)
  install-hook  Install git post-commit hook for auto-rescanning
  daemon        Start or stop the watch-mode rescan daemon

Global Options:
  --config      Path to .shade/project.yaml
  --json        Output as JSON
  --no-color    Disable colored output
  -q            Suppress non-essential output
  --version     Show version and exit

Examples:
  shade init                          Create configuration
  shade scan                          Full scan of the current repository
  shade scan --changed src/App.tsx    Incremental scan over one file
  shade status --json                 Machine-readable project status
  shade rules validate rules.yaml     Lint a rule file before scanning

Data Storage:
  Scan reports and the content-addressed cache live in .shade/ under
  the repository root.

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("shade version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := GlobalFlags{JSON: *jsonOutput, NoColor: *noColor, Quiet: *quiet || *jsonOutput}
	ui.InitColors(globals.NoColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs)
	case "scan":
		runScan(cmdArgs, *configPath, globals)
	case "status":
		runStatus(cmdArgs, *configPath, globals)
	case "rules":
		runRules(cmdArgs, globals)
	case "reset":
		runReset(cmdArgs, *configPath, globals)
	case "install-hook":
		runInstallHook(cmdArgs)
	case "daemon":
		runDaemon(cmdArgs, *configPath, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
