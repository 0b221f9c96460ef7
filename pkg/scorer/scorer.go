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

// Package scorer computes cognitive load, the shadow flag, fragility, and
// scan-wide aggregates from Units and their Evidence.
package scorer

import "github.com/kraklabs/shade/pkg/model"

// Weights are the default per-feature weights of the cognitive-load model. They sum
// to 75; the model is a weighted sum, not a weighted average, and is
// clamped to [0, 100] after adjustments.
type Weights struct {
	NestingDepth        float64
	BranchCount         float64
	BooleanComplexity   float64
	CallbackDepth       float64
	IdentifierAmbiguity float64
	ContextSwitches     float64
	ExceptionIrregular  float64
	SideEffectCount     float64
}

// DefaultWeights holds the stock weighting.
var DefaultWeights = Weights{
	NestingDepth:        15,
	BranchCount:         10,
	BooleanComplexity:   8,
	CallbackDepth:       12,
	IdentifierAmbiguity: 10,
	ContextSwitches:     5,
	ExceptionIrregular:  8,
	SideEffectCount:     7,
}

// Thresholds are the configurable shadow-flag cutoffs (Open
// Question default).
type Thresholds struct {
	ReviewEvidenceShadowMax int // shadow requires review_evidence < this
	CognitiveLoadShadowMin  int // shadow requires cognitive_load > this
}

// DefaultThresholds is the stock shadow predicate: review_evidence < 30, cognitive_load > 70.
var DefaultThresholds = Thresholds{ReviewEvidenceShadowMax: 30, CognitiveLoadShadowMin: 70}

// ComputeUnitScores derives a Unit's UnitScores from its structural
// features and its Evidence.
func ComputeUnitScores(u model.Unit, ev model.Evidence, w Weights, th Thresholds) model.UnitScores {
	load := CognitiveLoad(u, w)

	scores := model.UnitScores{
		UnitID:         u.ID,
		CognitiveLoad:  load,
		ReviewEvidence: ev.ReviewEvidence,
	}
	scores.Shadow = ev.ReviewEvidence < th.ReviewEvidenceShadowMax && load > th.CognitiveLoadShadowMin
	scores.Fragility = Fragility(load, ev)
	return scores
}

// CognitiveLoad is the weighted-sum load model plus its
// post-sum adjustments, clamped to [0, 100]. Monotone nondecreasing in
// every input feature, holding the others fixed, by construction: every
// term is a nonnegative weight times a nondecreasing normalization, and
// every adjustment only ever adds or is independent of the features it
// doesn't reference.
func CognitiveLoad(u model.Unit, w Weights) int {
	load := 0.0
	load += clampRatio(float64(u.NestingDepth), 8) * w.NestingDepth
	load += clampRatio(float64(u.BranchCount), 20) * w.BranchCount
	load += clampRatio(float64(u.BooleanOperators), 12) * w.BooleanComplexity
	load += clampRatio(float64(u.NestedCallbacks), 6) * w.CallbackDepth
	load += identifierAmbiguityPct(u) * w.IdentifierAmbiguity
	load += clampRatio(float64(u.ContextSwitches), 8) * w.ContextSwitches
	load += exceptionIrregularity(u) * w.ExceptionIrregular
	load += clampRatio(float64(u.RenderSideEffects), 6) * w.SideEffectCount

	if u.Kind == model.KindHook || u.Kind == model.KindComponent {
		if len(u.HookEffects) == 0 || u.HasUnstableEffect() {
			load += 15
		} else if u.AllEffectsStable() {
			load -= 5
		}
	}
	if u.RenderSideEffects > 0 {
		load += 20
	}

	return clampScore(load)
}

// clampRatio expresses a min(x, cap) / cap * 100 normalization.
func clampRatio(value, cap float64) float64 {
	if cap <= 0 {
		return 0
	}
	if value > cap {
		value = cap
	}
	return value / cap * 100
}

func identifierAmbiguityPct(u model.Unit) float64 {
	if u.TotalIdentCount == 0 {
		return 0
	}
	return float64(u.AmbiguousIdentCount) / float64(u.TotalIdentCount) * 100
}

func exceptionIrregularity(u model.Unit) float64 {
	if u.TryWithoutCatch {
		return 100
	}
	return 0
}

func clampScore(v float64) int {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return int(v + 0.5)
}

// Fragility is provisionally equal to
// cognitive_load, except when Evidence is unavailable, where it is
// min(100, cognitive_load + 10).
func Fragility(cognitiveLoad int, ev model.Evidence) int {
	if ev.Unavailable {
		v := cognitiveLoad + 10
		if v > 100 {
			v = 100
		}
		return v
	}
	return cognitiveLoad
}
