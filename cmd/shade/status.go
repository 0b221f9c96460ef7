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
	"time"

	"github.com/kraklabs/shade/internal/output"
	"github.com/kraklabs/shade/internal/ui"
)

// StatusResult represents the project status for JSON output.
type StatusResult struct {
	RepoRoot    string         `json:"repo_root"`
	CacheDir    string         `json:"cache_dir"`
	RulesPath   string         `json:"rules_path,omitempty"`
	Scanned     bool           `json:"scanned"`
	LastScan    *scanMetaJSON  `json:"last_scan,omitempty"`
	Summary     *summaryJSON   `json:"summary,omitempty"`
	ReportCount int            `json:"report_count"`
	Error       string         `json:"error,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// runStatus executes the 'status' CLI command, displaying the project
// configuration and the last scan's summary aggregates.
//
// Flags:
//   - --json: Output results as JSON (default: false)
//
// Examples:
//
//	shade status           Display formatted status
//	shade status --json    Output as JSON for programmatic use
func runStatus(args []string, configPath string, globals GlobalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	jsonOutput := fs.Bool("json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade status [options]

Shows the project configuration and the last scan's summary.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	asJSON := *jsonOutput || globals.JSON

	cfg, err := loadProjectConfig(configPath)
	if err != nil {
		if asJSON {
			_ = output.JSON(&StatusResult{Error: err.Error(), Timestamp: time.Now()})
		} else {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}

	result := &StatusResult{
		RepoRoot:  cfg.RepoRoot,
		CacheDir:  cfg.CacheDir,
		RulesPath: cfg.RulesPath,
		Timestamp: time.Now(),
	}

	entries, _ := os.ReadDir(reportsDir(cfg.RepoRoot))
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".json" && e.Name() != "latest.json" {
			result.ReportCount++
		}
	}

	if last := loadLatestReport(cfg.RepoRoot); last != nil {
		result.Scanned = true
		wire := toReportJSON(last)
		result.LastScan = &wire.Scan
		result.Summary = &wire.Summary
	}

	if asJSON {
		if err := output.JSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	ui.Header("Shade Project Status")
	fmt.Printf("%s %s\n", ui.Label("Repository:"), result.RepoRoot)
	fmt.Printf("%s %s\n", ui.Label("Cache:"), ui.DimText(result.CacheDir))
	if result.RulesPath != "" {
		fmt.Printf("%s %s\n", ui.Label("Rules:"), ui.DimText(result.RulesPath))
	}
	fmt.Printf("%s %s\n", ui.Label("Reports:"), ui.CountText(result.ReportCount))
	fmt.Println()

	if !result.Scanned {
		fmt.Println("Not scanned yet.")
		fmt.Println("Run 'shade scan' to scan the repository.")
		return
	}

	ui.SubHeader("Last scan:")
	fmt.Printf("  %s %s (%s) at %s\n", ui.Label("Scan:"), result.LastScan.ScanID[:8], result.LastScan.Kind,
		result.LastScan.Timestamp.Format(time.RFC3339))
	if result.LastScan.Commit != "" {
		fmt.Printf("  %s %s %s\n", ui.Label("Commit:"), ui.DimText(result.LastScan.Commit), result.LastScan.Branch)
	}
	fmt.Printf("  %s %s   %s %s   %s %.2f   %s %s\n",
		ui.Label("Units:"), ui.CountText(result.Summary.TotalUnits),
		ui.Label("Shadow:"), ui.CountText(result.Summary.ShadowUnits),
		ui.Label("Density:"), result.Summary.ShadowLogicDensity,
		ui.Label("Runway:"), result.Summary.RefactoringRunway)
}
