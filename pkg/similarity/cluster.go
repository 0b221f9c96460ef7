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

package similarity

import (
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/kraklabs/shade/pkg/model"
)

// Thresholds are the Jaccard cutoffs, distinct per comparison kind:
// component-to-component pairs require the stricter bound because JSX
// markup shares more incidental structure than plain function bodies.
type Thresholds struct {
	Function  float64
	Component float64
}

// DefaultThresholds is the stock τ=0.70 (non-component) / τ=0.85
// (component-to-component).
var DefaultThresholds = Thresholds{Function: 0.70, Component: 0.85}

// unitRecord bundles a Unit with its shingle set and MinHash signature,
// computed once per scan.
type unitRecord struct {
	unit      model.Unit
	shingles  map[string]bool
	signature Signature
}

// Index holds prepared per-unit similarity data for a scan.
type Index struct {
	records map[string]*unitRecord
	order   []string // insertion order, for deterministic iteration
}

// Prepared is a Unit's cacheable similarity fingerprint: its shingle set
// and MinHash signature, keyed externally by (Unit identifier, normalizer
// version) so a caller can serve it from Cache.
type Prepared struct {
	Shingles  map[string]bool
	Signature Signature
}

// Prepare computes the cacheable fingerprint for one Unit. Callers wire
// this through Cache; NewIndex calls it directly when no cache is in play.
func Prepare(u model.Unit) Prepared {
	shingles := Shingles(Tokens(u.CodeText))
	return Prepared{Shingles: shingles, Signature: Compute(shingles)}
}

// NewIndex builds shingle sets and MinHash signatures for every Unit.
// Units whose CodeText shingles to the empty set (too short to carry
// signal) are skipped.
func NewIndex(units []model.Unit) *Index {
	prepared := make(map[string]Prepared, len(units))
	for _, u := range units {
		prepared[u.ID] = Prepare(u)
	}
	return NewPreparedIndex(units, prepared)
}

// NewPreparedIndex builds an Index from fingerprints computed elsewhere
// (typically read through Cache), avoiding recomputation on a warm cache.
func NewPreparedIndex(units []model.Unit, prepared map[string]Prepared) *Index {
	idx := &Index{records: map[string]*unitRecord{}}
	for _, u := range units {
		p, ok := prepared[u.ID]
		if !ok || len(p.Shingles) == 0 {
			continue
		}
		idx.records[u.ID] = &unitRecord{
			unit:      u,
			shingles:  p.Shingles,
			signature: p.Signature,
		}
		idx.order = append(idx.order, u.ID)
	}
	return idx
}

// candidatePair is a pair of unit IDs worth an exact Jaccard check.
type candidatePair struct {
	a, b string
}

// Candidates returns every pair to verify for a full scan: all-pairs over
// the index, which is quadratic but bounded by the per-scan Unit count.
func (idx *Index) Candidates() []candidatePair {
	var pairs []candidatePair
	for i := 0; i < len(idx.order); i++ {
		for j := i + 1; j < len(idx.order); j++ {
			pairs = append(pairs, candidatePair{idx.order[i], idx.order[j]})
		}
	}
	return pairs
}

// IncrementalCandidates restricts comparison to (changed Units) x (Units
// in the same directory subtree), to bound incremental rescans. Subtree
// containment, not exact-directory equality: a changed unit in src/ is
// still compared against units in src/utils/ and vice versa.
func (idx *Index) IncrementalCandidates(changedIDs map[string]bool) []candidatePair {
	var pairs []candidatePair
	for _, a := range idx.order {
		if !changedIDs[a] {
			continue
		}
		dirA := filepath.Dir(idx.records[a].unit.FilePath)
		for _, b := range idx.order {
			if a == b {
				continue
			}
			dirB := filepath.Dir(idx.records[b].unit.FilePath)
			if !sameSubtree(dirA, dirB) {
				continue
			}
			if a < b {
				pairs = append(pairs, candidatePair{a, b})
			} else {
				pairs = append(pairs, candidatePair{b, a})
			}
		}
	}
	return dedupePairs(pairs)
}

// sameSubtree reports whether one slash-separated directory lies within
// the subtree rooted at the other. "." is the repository root, whose
// subtree is everything.
func sameSubtree(a, b string) bool {
	if a == b || a == "." || b == "." {
		return true
	}
	return strings.HasPrefix(a, b+"/") || strings.HasPrefix(b, a+"/")
}

func dedupePairs(pairs []candidatePair) []candidatePair {
	seen := map[candidatePair]bool{}
	out := pairs[:0]
	for _, p := range pairs {
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

func (idx *Index) threshold(a, b string, th Thresholds) float64 {
	ra, rb := idx.records[a].unit, idx.records[b].unit
	if ra.Kind == model.KindComponent && rb.Kind == model.KindComponent {
		return th.Component
	}
	return th.Function
}

// union-find over unit IDs.
type unionFind struct {
	parent map[string]string
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{parent: map[string]string{}}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(x string) string {
	for uf.parent[x] != x {
		uf.parent[x] = uf.parent[uf.parent[x]]
		x = uf.parent[x]
	}
	return x
}

func (uf *unionFind) union(a, b string) {
	ra, rb := uf.find(a), uf.find(b)
	if ra == rb {
		return
	}
	if ra > rb {
		ra, rb = rb, ra
	}
	uf.parent[rb] = ra
}

// Cluster runs MinHash candidate generation followed by exact-Jaccard
// confirmation and union-find grouping, returning connected components
// with at least two members, deterministically ordered: clusters by
// smallest member ID, members within a cluster by ID.
func Cluster(idx *Index, pairs []candidatePair, th Thresholds) []model.Cluster {
	uf := newUnionFind(idx.order)
	for _, p := range pairs {
		ra, ok1 := idx.records[p.a]
		rb, ok2 := idx.records[p.b]
		if !ok1 || !ok2 {
			continue
		}
		estimate := EstimateJaccard(ra.signature, rb.signature)
		tau := idx.threshold(p.a, p.b, th)
		if estimate < tau-0.15 {
			// Far below threshold: skip the exact check, it cannot pass.
			continue
		}
		exact := ExactJaccard(ra.shingles, rb.shingles)
		if exact >= tau {
			uf.union(p.a, p.b)
		}
	}

	groups := map[string][]string{}
	for _, id := range idx.order {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	var clusters []model.Cluster
	for root, members := range groups {
		if len(members) < 2 {
			continue
		}
		sort.Strings(members)
		componentOnly := true
		var names []string
		for _, id := range members {
			u := idx.records[id].unit
			if u.Kind != model.KindComponent {
				componentOnly = false
			}
			names = append(names, u.Name)
		}
		clusters = append(clusters, model.Cluster{
			ID:            "cluster-" + root,
			Members:       members,
			Suggestion:    suggestName(names),
			ComponentOnly: componentOnly,
		})
	}

	sort.Slice(clusters, func(i, j int) bool {
		return clusters[i].Members[0] < clusters[j].Members[0]
	})
	return clusters
}

// suggestName derives a shared-name suggestion from the longest common
// prefix of a cluster's member names, lowerCamel-cased, falling back to
// "sharedLogic" when no meaningful prefix exists.
func suggestName(names []string) string {
	prefix := longestCommonPrefix(names)
	prefix = strings.TrimRightFunc(prefix, func(r rune) bool { return !unicode.IsLetter(r) && !unicode.IsDigit(r) })
	if len(prefix) < 3 {
		return "sharedLogic"
	}
	return "shared" + strings.ToUpper(prefix[:1]) + prefix[1:]
}

func longestCommonPrefix(names []string) string {
	if len(names) == 0 {
		return ""
	}
	prefix := names[0]
	for _, n := range names[1:] {
		prefix = commonPrefix(prefix, n)
		if prefix == "" {
			return ""
		}
	}
	return prefix
}

func commonPrefix(a, b string) string {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	i := 0
	for i < n && a[i] == b[i] {
		i++
	}
	return a[:i]
}
