// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/pkg/cache"
	"github.com/kraklabs/shade/pkg/evidence"
	"github.com/kraklabs/shade/pkg/model"
	"github.com/kraklabs/shade/pkg/rules"
)

const deepNestedSource = `
function refreshTokenIfExpired(token) {
	if (token) {
		if (token.expired) {
			if (token.refreshable) {
				if (token.scope === "full") {
					if (token.retries < 3) {
						if (!token.locked) {
							doRefresh(token);
						}
					}
				}
			}
		}
	}
	return token;
}
`

func newTestPipeline(t *testing.T) (*Pipeline, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "auth.ts"), []byte(deepNestedSource), 0o644))

	store, err := cache.Open(filepath.Join(dir, ".shade-cache"))
	require.NoError(t, err)

	cfg := config.Default(dir)
	metrics := NewMetrics(prometheus.NewRegistry())
	p := New(cfg, evidence.NewFakeVCSClient(), rules.Default(), store, metrics, nil)
	return p, dir
}

func TestRun_FullScanProducesHotspotsAndSummary(t *testing.T) {
	p, dir := newTestPipeline(t)
	defer p.Close()

	report, err := p.Run(context.Background(), Request{Kind: model.ScanFull, RepoRoot: dir}, nil)
	require.NoError(t, err)

	require.NotEmpty(t, report.Hotspots)
	assert.Equal(t, 1, report.Summary.TotalUnits)
	assert.False(t, report.Failed)
	assert.NotEmpty(t, report.Hotspots[0].Why)
}

func TestRun_WarmCacheReusesExtraction(t *testing.T) {
	p, dir := newTestPipeline(t)
	defer p.Close()

	first, err := p.Run(context.Background(), Request{Kind: model.ScanFull, RepoRoot: dir}, nil)
	require.NoError(t, err)

	second, err := p.Run(context.Background(), Request{Kind: model.ScanFull, RepoRoot: dir}, first)
	require.NoError(t, err)

	assert.Equal(t, first.Summary.TotalUnits, second.Summary.TotalUnits)
}

func TestRun_IncrementalScanRestrictsToChangedFiles(t *testing.T) {
	p, dir := newTestPipeline(t)
	defer p.Close()

	full, err := p.Run(context.Background(), Request{Kind: model.ScanFull, RepoRoot: dir}, nil)
	require.NoError(t, err)

	report, err := p.Run(context.Background(), Request{
		Kind:         model.ScanIncremental,
		RepoRoot:     dir,
		ChangedFiles: []string{"auth.ts"},
	}, full)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Summary.TotalUnits)
}

func TestRun_IncrementalCoveringAllFilesMatchesFullScan(t *testing.T) {
	p, dir := newTestPipeline(t)
	defer p.Close()

	full, err := p.Run(context.Background(), Request{Kind: model.ScanFull, RepoRoot: dir}, nil)
	require.NoError(t, err)

	incr, err := p.Run(context.Background(), Request{
		Kind:         model.ScanIncremental,
		RepoRoot:     dir,
		ChangedFiles: []string{"auth.ts"},
	}, full)
	require.NoError(t, err)

	assert.Equal(t, full.Summary.TotalUnits, incr.Summary.TotalUnits)
	assert.Equal(t, full.Summary.ShadowUnits, incr.Summary.ShadowUnits)
	assert.Equal(t, full.Summary.ShadowLogicDensity, incr.Summary.ShadowLogicDensity)
	assert.Equal(t, full.Summary.RedundancyScore, incr.Summary.RedundancyScore)
	assert.Equal(t, full.Clusters, incr.Clusters)
	assert.Equal(t, full.Findings, incr.Findings)
}

func TestRun_DeadlineYieldsFailedRecordNamingStage(t *testing.T) {
	p, dir := newTestPipeline(t)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := p.Run(ctx, Request{Kind: model.ScanFull, RepoRoot: dir}, nil)
	require.NoError(t, err)

	assert.True(t, report.Failed)
	assert.Contains(t, report.FailReason, "deadline exceeded after")
	assert.Contains(t, report.FailReason, "stage")
	assert.Empty(t, report.Hotspots, "a failed scan publishes no partial results")
	assert.Empty(t, report.Clusters)
}
