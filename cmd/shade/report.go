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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/internal/ui"
	"github.com/kraklabs/shade/pkg/model"
)

// The on-the-wire report shape: five top-level sections (scan metadata,
// summary aggregates, hotspot list, cluster list, findings list). Scores
// are integers in 0..100; density is a fraction; runway is an integer
// month count or the string "insufficient data".
type reportJSON struct {
	Scan     scanMetaJSON   `json:"scan"`
	Summary  summaryJSON    `json:"summary"`
	Hotspots []hotspotJSON  `json:"hotspots"`
	Clusters []clusterJSON  `json:"clusters"`
	Findings []findingJSON  `json:"findings"`
	Warnings []warningJSON  `json:"warnings,omitempty"`
}

type scanMetaJSON struct {
	ScanID    string    `json:"scan_id"`
	Kind      string    `json:"kind"`
	Repo      string    `json:"repo"`
	Commit    string    `json:"commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type summaryJSON struct {
	TotalUnits           int     `json:"total_units"`
	ShadowUnits          int     `json:"shadow_units"`
	ShadowLogicDensity   float64 `json:"shadow_logic_density"`
	AverageCognitiveLoad float64 `json:"average_cognitive_load"`
	RedundancyScore      float64 `json:"redundancy_score"`
	RefactoringRunway    string  `json:"refactoring_runway"`
}

type hotspotJSON struct {
	UnitID         string   `json:"unit_id"`
	File           string   `json:"file"`
	Name           string   `json:"name"`
	Kind           string   `json:"kind"`
	StartLine      int      `json:"start_line"`
	EndLine        int      `json:"end_line"`
	CognitiveLoad  int      `json:"cognitive_load"`
	ReviewEvidence int      `json:"review_evidence"`
	Shadow         bool     `json:"shadow"`
	Fragility      int      `json:"fragility"`
	Why            []string `json:"why"`
}

type clusterJSON struct {
	ID         string   `json:"id"`
	Members    []string `json:"members"`
	Suggestion string   `json:"suggestion"`
}

type findingJSON struct {
	UnitID          string `json:"unit_id"`
	RuleID          string `json:"rule_id"`
	Severity        string `json:"severity"`
	Explanation     string `json:"explanation"`
	SuggestedAction string `json:"suggested_action"`
}

type warningJSON struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Message string `json:"message"`
}

// toReportJSON converts a ScanReport to its wire shape.
func toReportJSON(r *model.ScanReport) reportJSON {
	out := reportJSON{
		Scan: scanMetaJSON{
			ScanID:    r.ScanID,
			Kind:      string(r.ScanKind),
			Repo:      r.Repo.Name,
			Commit:    r.Repo.Commit,
			Branch:    r.Repo.Branch,
			Timestamp: r.Timestamp,
		},
		Summary: summaryJSON{
			TotalUnits:           r.Summary.TotalUnits,
			ShadowUnits:          r.Summary.ShadowUnits,
			ShadowLogicDensity:   r.Summary.ShadowLogicDensity,
			AverageCognitiveLoad: r.Summary.AverageCognitiveLoad,
			RedundancyScore:      r.Summary.RedundancyScore,
			RefactoringRunway:    r.Summary.RefactoringRunway,
		},
	}
	for _, h := range r.Hotspots {
		out.Hotspots = append(out.Hotspots, hotspotJSON{
			UnitID:         h.Unit.ID,
			File:           h.Unit.FilePath,
			Name:           h.Unit.Name,
			Kind:           string(h.Unit.Kind),
			StartLine:      h.Unit.Span.StartLine,
			EndLine:        h.Unit.Span.EndLine,
			CognitiveLoad:  h.Scores.CognitiveLoad,
			ReviewEvidence: h.Scores.ReviewEvidence,
			Shadow:         h.Scores.Shadow,
			Fragility:      h.Scores.Fragility,
			Why:            h.Why,
		})
	}
	for _, c := range r.Clusters {
		out.Clusters = append(out.Clusters, clusterJSON{ID: c.ID, Members: c.Members, Suggestion: c.Suggestion})
	}
	for _, f := range r.Findings {
		out.Findings = append(out.Findings, findingJSON{
			UnitID:          f.UnitID,
			RuleID:          f.RuleID,
			Severity:        string(f.Severity),
			Explanation:     f.Explanation,
			SuggestedAction: f.SuggestedAction,
		})
	}
	for _, w := range r.Warnings {
		out.Warnings = append(out.Warnings, warningJSON{Kind: w.Kind, Path: w.Path, Message: w.Message})
	}
	return out
}

// shortID trims the "unit:"/"cluster-" prefixes and truncates the hash
// for terminal display. Wire output always carries the full identifier.
func shortID(id string) string {
	id = strings.TrimPrefix(id, "cluster-")
	id = strings.TrimPrefix(id, "unit:")
	if len(id) > 8 {
		id = id[:8]
	}
	return id
}

// printReport renders a ScanReport for terminal consumption.
func printReport(r *model.ScanReport) {
	ui.Header(fmt.Sprintf("Scan %s (%s)", r.ScanID[:8], r.ScanKind))
	fmt.Println()

	fmt.Printf("%s %s", ui.Label("Units:"), ui.CountText(r.Summary.TotalUnits))
	fmt.Printf("   %s %s", ui.Label("Shadow:"), ui.CountText(r.Summary.ShadowUnits))
	fmt.Printf("   %s %.2f", ui.Label("Density:"), r.Summary.ShadowLogicDensity)
	fmt.Printf("   %s %s", ui.Label("Avg load:"), ui.ScoreText(int(r.Summary.AverageCognitiveLoad)))
	fmt.Printf("   %s %.2f", ui.Label("Redundancy:"), r.Summary.RedundancyScore)
	fmt.Printf("   %s %s\n", ui.Label("Runway:"), r.Summary.RefactoringRunway)
	fmt.Println()

	if len(r.Hotspots) > 0 {
		ui.SubHeader("Hotspots:")
		for i, h := range r.Hotspots {
			fmt.Printf("%d. %s %s %s:%d-%d  load=%s evidence=%s [%s]\n",
				i+1, h.Unit.Name, ui.DimText(string(h.Unit.Kind)),
				h.Unit.FilePath, h.Unit.Span.StartLine, h.Unit.Span.EndLine,
				ui.ScoreText(h.Scores.CognitiveLoad), ui.ScoreText(h.Scores.ReviewEvidence),
				ui.ShadowText(h.Scores.Shadow))
			for _, why := range h.Why {
				fmt.Printf("   - %s\n", why)
			}
		}
		fmt.Println()
	}

	if len(r.Clusters) > 0 {
		ui.SubHeader(fmt.Sprintf("Redundancy clusters (%d):", len(r.Clusters)))
		for _, c := range r.Clusters {
			fmt.Printf("  %s: %d members, extract %s\n", ui.DimText(shortID(c.ID)), len(c.Members), c.Suggestion)
		}
		fmt.Println()
	}

	if len(r.Findings) > 0 {
		ui.SubHeader(fmt.Sprintf("Findings (%d):", len(r.Findings)))
		for _, f := range r.Findings {
			fmt.Printf("  [%s] %s %s: %s\n", ui.SeverityText(f.Severity), f.RuleID, ui.DimText(shortID(f.UnitID)), f.Explanation)
		}
		fmt.Println()
	}

	for _, w := range r.Warnings {
		ui.Warningf("%s: %s: %s", w.Kind, w.Path, w.Message)
	}
}

// reportsDir returns the append-only report directory under root.
func reportsDir(root string) string {
	return filepath.Join(config.Dir(root), "reports")
}

// saveReport persists the report twice: an append-only copy keyed by scan
// id, plus latest.json which the next scan reads for incremental cluster
// reuse and the runway formula. A failed-scan record gets only the
// append-only copy; latest.json keeps pointing at the last completed
// scan. Both writes are write-then-rename so a crashed scan never leaves
// a torn report behind.
func saveReport(root string, r *model.ScanReport) error {
	dir := reportsDir(root)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create reports dir: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	names := []string{r.ScanID + ".json", "latest.json"}
	if r.Failed {
		names = names[:1]
	}
	for _, name := range names {
		tmp := filepath.Join(dir, name+".tmp")
		if err := os.WriteFile(tmp, data, 0o640); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if err := os.Rename(tmp, filepath.Join(dir, name)); err != nil {
			return fmt.Errorf("commit report: %w", err)
		}
	}
	return nil
}

// loadLatestReport reads the previous scan's report, if any.
func loadLatestReport(root string) *model.ScanReport {
	data, err := os.ReadFile(filepath.Join(reportsDir(root), "latest.json")) //nolint:gosec // G304: path derived from operator config
	if err != nil {
		return nil
	}
	var r model.ScanReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil
	}
	return &r
}
