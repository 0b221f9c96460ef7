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

package scorer

import (
	"strconv"
	"time"

	"github.com/kraklabs/shade/pkg/model"
)

// RunwayInput carries the prior-scan state the runway formula needs: it
// cannot be derived from the current scan alone.
type RunwayInput struct {
	// HasPriorScan is false on a project's first scan; runway is then
	// reported as "insufficient data".
	HasPriorScan bool

	// PriorShadow maps unit ID -> whether the unit was shadow=true in the
	// immediately preceding scan.
	PriorShadow map[string]bool
}

// ComputeAggregates produces the scan-wide summary numbers:
// Shadow Logic Density, average cognitive load, redundancy score, and
// refactoring runway.
func ComputeAggregates(
	units []model.Unit,
	scores map[string]model.UnitScores,
	evidences map[string]model.Evidence,
	clusters []model.Cluster,
	now time.Time,
	runway RunwayInput,
) model.Aggregates {
	total := len(units)
	if total == 0 {
		return model.Aggregates{RefactoringRunway: "insufficient data"}
	}

	shadowCount := 0
	loadSum := 0
	for _, u := range units {
		s := scores[u.ID]
		loadSum += s.CognitiveLoad
		if s.Shadow {
			shadowCount++
		}
	}

	agg := model.Aggregates{
		TotalUnits:           total,
		ShadowUnits:          shadowCount,
		ShadowLogicDensity:   float64(shadowCount) / float64(total),
		AverageCognitiveLoad: float64(loadSum) / float64(total),
		RedundancyScore:      redundancyScore(units, clusters),
		RefactoringRunway:    computeRunway(units, scores, evidences, now, runway),
	}
	return agg
}

// redundancyScore is 1 - (unique_clusters / total_units), where every
// Unit not in a multi-member cluster counts as its own singleton cluster.
func redundancyScore(units []model.Unit, clusters []model.Cluster) float64 {
	if len(units) == 0 {
		return 0
	}
	clustered := map[string]bool{}
	uniqueClusters := len(clusters)
	for _, c := range clusters {
		for _, id := range c.Members {
			clustered[id] = true
		}
	}
	for _, u := range units {
		if !clustered[u.ID] {
			uniqueClusters++
		}
	}
	return 1 - float64(uniqueClusters)/float64(len(units))
}

// computeRunway implements the runway formula:
//
//	runway_months = current_shadow_units / max(K - H, 1)
//
// where K is shadow units created within the last 30 days and H is
// shadow units that were shadow=true in the prior scan but are shadow=
// false now. On a project's first scan H is undefined and runway is
// reported as "insufficient data".
func computeRunway(
	units []model.Unit,
	scores map[string]model.UnitScores,
	evidences map[string]model.Evidence,
	now time.Time,
	runway RunwayInput,
) string {
	if !runway.HasPriorScan {
		return "insufficient data"
	}

	currentShadow := 0
	k := 0
	for _, u := range units {
		s := scores[u.ID]
		if !s.Shadow {
			continue
		}
		currentShadow++
		if ev, ok := evidences[u.ID]; ok && now.Sub(ev.CreatedAt) <= 30*24*time.Hour {
			k++
		}
	}

	h := 0
	for id, wasShadow := range runway.PriorShadow {
		if !wasShadow {
			continue
		}
		if s, ok := scores[id]; ok && !s.Shadow {
			h++
		}
	}

	denom := k - h
	if denom < 1 {
		denom = 1
	}
	return strconv.Itoa(currentShadow / denom)
}
