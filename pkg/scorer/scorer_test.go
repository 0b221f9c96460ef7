// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package scorer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/kraklabs/shade/pkg/model"
)

func TestCognitiveLoad_ClampedAndBounded(t *testing.T) {
	u := model.Unit{
		Kind:              model.KindFunction,
		NestingDepth:      6,
		BranchCount:       18,
		TotalIdentCount:   10,
		RenderSideEffects: 0,
	}
	load := CognitiveLoad(u, DefaultWeights)
	assert.GreaterOrEqual(t, load, 0)
	assert.LessOrEqual(t, load, 100)
}

func TestCognitiveLoad_Monotone(t *testing.T) {
	base := model.Unit{Kind: model.KindFunction, NestingDepth: 1, BranchCount: 1}
	more := base
	more.NestingDepth = 4

	assert.GreaterOrEqual(t, CognitiveLoad(more, DefaultWeights), CognitiveLoad(base, DefaultWeights))
}

func TestShadowFunction_HighLoadLowEvidence(t *testing.T) {
	// Worst case: nesting depth 6, 18 branches, no cleanup, low evidence.
	u := model.Unit{
		ID:           "shadow1",
		Kind:         model.KindFunction,
		Name:         "refreshTokenIfExpired",
		NestingDepth: 6,
		BranchCount:  18,
	}
	ev := model.Evidence{ReviewEvidence: 0}

	scores := ComputeUnitScores(u, ev, DefaultWeights, DefaultThresholds)
	assert.GreaterOrEqual(t, scores.CognitiveLoad, 70)
	assert.LessOrEqual(t, scores.ReviewEvidence, 10)
	assert.True(t, scores.Shadow)
}

func TestCleanHook_WellReviewedIsNotShadow(t *testing.T) {
	// Well-reviewed case: complete deps + cleanup, two authors, recent touch.
	u := model.Unit{
		ID:   "hook1",
		Kind: model.KindHook,
		Name: "useDataFetch",
		HookEffects: []model.HookEffect{
			{Callee: "useEffect", DepsPresent: true, Deps: []string{"id"}, HasCleanup: true},
		},
	}
	ev := model.Evidence{
		ReviewEvidence:       70,
		DistinctAuthors:      2,
		TouchedAfterCreation: true,
	}

	scores := ComputeUnitScores(u, ev, DefaultWeights, DefaultThresholds)
	assert.GreaterOrEqual(t, scores.ReviewEvidence, 50)
	assert.False(t, scores.Shadow)
}

func TestFragility_UnavailableEvidenceBumpsScore(t *testing.T) {
	assert.Equal(t, 50, Fragility(50, model.Evidence{Unavailable: false}))
	assert.Equal(t, 60, Fragility(50, model.Evidence{Unavailable: true}))
	assert.Equal(t, 100, Fragility(95, model.Evidence{Unavailable: true}))
}

func TestComputeAggregates_EmptyRepo(t *testing.T) {
	agg := ComputeAggregates(nil, nil, nil, nil, time.Now(), RunwayInput{})
	assert.Equal(t, 0, agg.TotalUnits)
	assert.Equal(t, 0.0, agg.ShadowLogicDensity)
	assert.Equal(t, "insufficient data", agg.RefactoringRunway)
}

func TestComputeAggregates_FirstScanRunwayInsufficient(t *testing.T) {
	units := []model.Unit{{ID: "a"}}
	scores := map[string]model.UnitScores{"a": {UnitID: "a", Shadow: true}}
	agg := ComputeAggregates(units, scores, map[string]model.Evidence{}, nil, time.Now(), RunwayInput{HasPriorScan: false})
	assert.Equal(t, "insufficient data", agg.RefactoringRunway)
}

func TestComputeAggregates_RunwayWithPriorScan(t *testing.T) {
	now := time.Now()
	units := []model.Unit{{ID: "a"}, {ID: "b"}}
	scores := map[string]model.UnitScores{
		"a": {UnitID: "a", Shadow: true},
		"b": {UnitID: "b", Shadow: false},
	}
	evidences := map[string]model.Evidence{
		"a": {CreatedAt: now.Add(-5 * 24 * time.Hour)},
	}
	runway := RunwayInput{HasPriorScan: true, PriorShadow: map[string]bool{"b": true}}

	agg := ComputeAggregates(units, scores, evidences, nil, now, runway)
	assert.Equal(t, "1", agg.RefactoringRunway)
}

func TestRedundancyScore_AllSingletons(t *testing.T) {
	units := []model.Unit{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	score := redundancyScore(units, nil)
	assert.Equal(t, 0.0, score)
}

func TestRedundancyScore_OneCluster(t *testing.T) {
	units := []model.Unit{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	clusters := []model.Cluster{{ID: "c1", Members: []string{"a", "b"}}}
	// unique clusters = 1 (the pair) + 1 (c singleton) = 2; redundancy = 1 - 2/3
	score := redundancyScore(units, clusters)
	assert.InDelta(t, 1.0/3.0, score, 0.001)
}
