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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/shade/pkg/model"
)

func sampleReport() *model.ScanReport {
	return &model.ScanReport{
		ScanID:    "4f3a2b1c-0000-0000-0000-000000000000",
		ScanKind:  model.ScanFull,
		Repo:      model.RepoCoordinates{Name: "webapp", Commit: "abc123", Branch: "main"},
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		Summary: model.Aggregates{
			TotalUnits:           10,
			ShadowUnits:          2,
			ShadowLogicDensity:   0.2,
			AverageCognitiveLoad: 41.5,
			RedundancyScore:      0.1,
			RefactoringRunway:    "insufficient data",
		},
		Hotspots: []model.Hotspot{{
			Unit:   model.Unit{ID: "unit:deadbeef01", FilePath: "src/a.ts", Name: "refreshTokenIfExpired", Kind: model.KindFunction, Span: model.Span{StartLine: 3, EndLine: 40}},
			Scores: model.UnitScores{UnitID: "unit:deadbeef01", CognitiveLoad: 88, ReviewEvidence: 5, Shadow: true, Fragility: 88},
			Why:    []string{"cognitive load 88, review evidence 5"},
		}},
		Clusters: []model.Cluster{{ID: "cluster-unit:deadbeef01", Members: []string{"unit:deadbeef01", "unit:deadbeef02"}, Suggestion: "sharedFormat"}},
		Findings: []model.Finding{{UnitID: "unit:deadbeef01", RuleID: "STRUCT-001", Severity: model.SeverityHigh, Explanation: "nesting depth 6", SuggestedAction: "flatten"}},
		Warnings: []model.ScanWarning{{Kind: "parse", Path: "src/broken.ts", Message: "3 syntax errors"}},
	}
}

func TestToReportJSON_FiveSections(t *testing.T) {
	wire := toReportJSON(sampleReport())

	assert.Equal(t, "full", wire.Scan.Kind)
	assert.Equal(t, "webapp", wire.Scan.Repo)
	assert.Equal(t, 10, wire.Summary.TotalUnits)
	assert.InDelta(t, 0.2, wire.Summary.ShadowLogicDensity, 1e-9)
	assert.Equal(t, "insufficient data", wire.Summary.RefactoringRunway)

	require.Len(t, wire.Hotspots, 1)
	assert.Equal(t, 88, wire.Hotspots[0].CognitiveLoad)
	assert.True(t, wire.Hotspots[0].Shadow)

	require.Len(t, wire.Clusters, 1)
	assert.Equal(t, "sharedFormat", wire.Clusters[0].Suggestion)

	require.Len(t, wire.Findings, 1)
	assert.Equal(t, "high", wire.Findings[0].Severity)

	require.Len(t, wire.Warnings, 1)
	assert.Equal(t, "parse", wire.Warnings[0].Kind)
}

func TestSaveAndLoadLatestReport_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	report := sampleReport()

	require.NoError(t, saveReport(dir, report))

	loaded := loadLatestReport(dir)
	require.NotNil(t, loaded)
	assert.Equal(t, report.ScanID, loaded.ScanID)
	assert.Equal(t, report.Summary.TotalUnits, loaded.Summary.TotalUnits)
	assert.Equal(t, report.Clusters, loaded.Clusters)
}

func TestSaveReport_FailedRecordDoesNotReplaceLatest(t *testing.T) {
	dir := t.TempDir()
	good := sampleReport()
	require.NoError(t, saveReport(dir, good))

	failed := sampleReport()
	failed.ScanID = "ffffffff-0000-0000-0000-000000000000"
	failed.Failed = true
	failed.FailReason = "deadline exceeded after 60s in fan-out stage"
	require.NoError(t, saveReport(dir, failed))

	latest := loadLatestReport(dir)
	require.NotNil(t, latest)
	assert.Equal(t, good.ScanID, latest.ScanID, "latest.json keeps the last completed scan")

	_, err := os.Stat(filepath.Join(reportsDir(dir), failed.ScanID+".json"))
	assert.NoError(t, err, "the failed scan id is still recorded")
}

func TestLoadLatestReport_MissingDirYieldsNil(t *testing.T) {
	assert.Nil(t, loadLatestReport(t.TempDir()))
}

func TestShortID_TrimsPrefixesAndTruncates(t *testing.T) {
	assert.Equal(t, "deadbeef", shortID("unit:deadbeef0123"))
	assert.Equal(t, "deadbeef", shortID("cluster-unit:deadbeef0123"))
	assert.Equal(t, "abc", shortID("abc"))
}
