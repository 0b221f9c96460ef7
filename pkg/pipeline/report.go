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

package pipeline

import (
	"fmt"
	"sort"

	"github.com/kraklabs/shade/pkg/model"
)

const hotspotCount = 5

// assembleHotspots implements the report's headline-list selection:
// sort Units by cognitive_load descending, take the top five that are
// also shadow=true, falling back to top-by-cognitive-load if fewer than
// five are shadow. Each Hotspot carries its Findings and cluster
// memberships as "why" bullets.
func assembleHotspots(units []model.Unit, scores map[string]model.UnitScores, findings []model.Finding, clusters []model.Cluster) []model.Hotspot {
	if len(units) == 0 {
		return nil
	}

	byUnit := map[string][]model.Finding{}
	for _, f := range findings {
		byUnit[f.UnitID] = append(byUnit[f.UnitID], f)
	}
	clusterByUnit := map[string][]string{}
	for _, c := range clusters {
		for _, m := range c.Members {
			clusterByUnit[m] = append(clusterByUnit[m], c.ID)
		}
	}

	sorted := make([]model.Unit, len(units))
	copy(sorted, units)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := scores[sorted[i].ID], scores[sorted[j].ID]
		if si.CognitiveLoad != sj.CognitiveLoad {
			return si.CognitiveLoad > sj.CognitiveLoad
		}
		return sorted[i].ID < sorted[j].ID
	})

	var shadowFirst []model.Unit
	for _, u := range sorted {
		if scores[u.ID].Shadow {
			shadowFirst = append(shadowFirst, u)
		}
	}

	selected := shadowFirst
	if len(selected) < hotspotCount {
		selected = sorted
	}
	if len(selected) > hotspotCount {
		selected = selected[:hotspotCount]
	}

	hotspots := make([]model.Hotspot, 0, len(selected))
	for _, u := range selected {
		unitFindings := byUnit[u.ID]
		clusterIDs := clusterByUnit[u.ID]
		hotspots = append(hotspots, model.Hotspot{
			Unit:       u,
			Scores:     scores[u.ID],
			Findings:   unitFindings,
			ClusterIDs: clusterIDs,
			Why:        whyBullets(u, scores[u.ID], unitFindings, clusterIDs),
		})
	}
	return hotspots
}

// whyBullets renders the human-readable reasons a Unit surfaced as a
// hotspot: its Findings' explanations plus cluster membership notes.
func whyBullets(u model.Unit, scores model.UnitScores, findings []model.Finding, clusterIDs []string) []string {
	var bullets []string
	bullets = append(bullets, fmt.Sprintf("cognitive load %d, review evidence %d", scores.CognitiveLoad, scores.ReviewEvidence))
	for _, f := range findings {
		bullets = append(bullets, fmt.Sprintf("%s: %s", f.RuleID, f.SuggestedAction))
	}
	for _, id := range clusterIDs {
		bullets = append(bullets, fmt.Sprintf("member of near-duplicate cluster %s", id))
	}
	return bullets
}
