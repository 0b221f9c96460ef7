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

package rules

import (
	"regexp"
	"sort"

	"github.com/kraklabs/shade/pkg/model"
)

// FileContext carries scan-wide aggregates a single Unit cannot compute in
// isolation: per-file string-literal counts for the magic-string
// repetition rule and, once Similarity has clustered the
// scan, per-Unit cluster membership.
type FileContext struct {
	StringCounts     map[string]map[string]int // file path -> literal -> count
	ClusterMembers   map[string]bool           // unit ID -> is a cluster member
}

// NewFileContext aggregates per-file string-literal counts from a set of
// Units. Clustering membership is merged in separately via
// SetClusterMembers once Similarity has run.
func NewFileContext(units []model.Unit) *FileContext {
	fc := &FileContext{
		StringCounts:   map[string]map[string]int{},
		ClusterMembers: map[string]bool{},
	}
	for _, u := range units {
		m, ok := fc.StringCounts[u.FilePath]
		if !ok {
			m = map[string]int{}
			fc.StringCounts[u.FilePath] = m
		}
		for _, s := range u.StringLiterals {
			m[s]++
		}
	}
	return fc
}

// SetClusterMembers records which Units belong to a redundancy cluster,
// for the REDUN-001 cross-cutting matcher.
func (fc *FileContext) SetClusterMembers(clusters []model.Cluster) {
	for _, c := range clusters {
		for _, id := range c.Members {
			fc.ClusterMembers[id] = true
		}
	}
}

var (
	typeEscapeRe      = regexp.MustCompile(`\bas\s+any\b|:\s*any\b|@ts-ignore|@ts-expect-error`)
	emptyCatchRe      = regexp.MustCompile(`catch\s*(\([^)]*\))?\s*\{\s*\}`)
	setterInLoopRe    = regexp.MustCompile(`(?s)(for\s*\([^)]*\)|while\s*\([^)]*\))\s*\{[^{}]*\bset[A-Z]\w*\s*\(`)
	unstableHandlerRe = regexp.MustCompile(`on[A-Z]\w*=\{\s*\([^)]*\)\s*=>`)
	propChainRe       = regexp.MustCompile(`\b\w+(\.\w+){2,}\b`)
	propChainGuardRe  = regexp.MustCompile(`\?\.|&&\s*$`)
	networkCallRe     = regexp.MustCompile(`\b(fetch|axios)\s*\(`)
)

// Evaluate runs every rule in rs against u, returning the Findings that
// fired, sorted by (severity desc, id asc) for presentation.
func Evaluate(rs RuleSet, u model.Unit, fc *FileContext) []model.Finding {
	var findings []model.Finding
	for _, r := range rs.Rules {
		if matches(r.Matcher, u, fc) {
			findings = append(findings, model.Finding{
				UnitID:          u.ID,
				RuleID:          r.ID,
				Severity:        model.Severity(r.Severity),
				Explanation:     r.Name,
				SuggestedAction: r.SuggestedAction,
			})
		}
	}
	sort.Slice(findings, func(i, j int) bool {
		si, sj := model.Severity(findings[i].Severity).Rank(), model.Severity(findings[j].Severity).Rank()
		if si != sj {
			return si > sj
		}
		return findings[i].RuleID < findings[j].RuleID
	})
	return findings
}

func matches(m Matcher, u model.Unit, fc *FileContext) bool {
	switch m.Kind {
	case MatcherFeatureThreshold:
		return compareOp(featureValue(m.Feature, u), m.Op, m.Threshold)
	case MatcherPredicate:
		return evalPredicate(m.Predicate, u, fc)
	case MatcherCrossCutting:
		return evalCrossCutting(m.CrossCutting, u, fc)
	default:
		return false
	}
}

func compareOp(v float64, op Op, threshold float64) bool {
	switch op {
	case OpGTE:
		return v >= threshold
	case OpGT:
		return v > threshold
	case OpLTE:
		return v <= threshold
	case OpLT:
		return v < threshold
	default:
		return false
	}
}

func featureValue(f Feature, u model.Unit) float64 {
	switch f {
	case FeatureNestingDepth:
		return float64(u.NestingDepth)
	case FeatureBranchCount:
		return float64(u.BranchCount)
	case FeatureBooleanOperators:
		return float64(u.BooleanOperators)
	case FeatureNestedCallbacks:
		return float64(u.NestedCallbacks)
	case FeatureRenderSideEffects:
		return float64(u.RenderSideEffects)
	case FeatureEarlyReturns:
		return float64(u.EarlyReturns)
	case FeatureTypeEscapeRatio:
		if u.LOC == 0 {
			return 0
		}
		return float64(len(typeEscapeRe.FindAllString(u.CodeText, -1))) / float64(u.LOC)
	default:
		return 0
	}
}

func evalPredicate(p PredicateID, u model.Unit, fc *FileContext) bool {
	switch p {
	case PredicateEffectDepsIncomplete:
		return u.HasUnstableEffect()
	case PredicateEffectMissingCleanup:
		for _, e := range u.HookEffects {
			if !e.HasCleanup {
				return true
			}
		}
		return false
	case PredicateSetterInLoop:
		return setterInLoopRe.MatchString(u.CodeText)
	case PredicatePropRedundancy:
		return hasPropRedundancy(u.CodeText)
	case PredicateNetworkUnguarded:
		return hasUnguardedNetworkCall(u.CodeText)
	case PredicateEmptyCatch:
		return u.TryCatchCount > 0 && emptyCatchRe.MatchString(u.CodeText)
	case PredicateUnguardedPropChain:
		return hasUnguardedPropertyChain(u.CodeText)
	case PredicateUnstableHandler:
		return unstableHandlerRe.MatchString(u.CodeText)
	case PredicateMagicStringRepeated:
		return hasMagicStringRepetition(u, fc)
	case PredicateLowCommentHighAmbig:
		return hasLowCommentHighAmbiguity(u)
	default:
		return false
	}
}

func evalCrossCutting(c CrossCuttingID, u model.Unit, fc *FileContext) bool {
	switch c {
	case CrossCuttingClusterMember:
		return fc != nil && fc.ClusterMembers[u.ID]
	default:
		return false
	}
}

// hasUnguardedNetworkCall reports a fetch/axios call with no nearby
// try/catch or .catch chained onto it, approximated over the unit's raw
// text; the analysis is structural, not semantic, so no
// guard-reachability is attempted.
func hasUnguardedNetworkCall(code string) bool {
	locs := networkCallRe.FindAllStringIndex(code, -1)
	if locs == nil {
		return false
	}
	hasTry := regexp.MustCompile(`\btry\b`).MatchString(code)
	for _, loc := range locs {
		tail := code[loc[1]:]
		end := tail
		if len(end) > 80 {
			end = end[:80]
		}
		if regexp.MustCompile(`^\s*\)?\s*\.catch\s*\(`).MatchString(end) {
			continue
		}
		if hasTry {
			continue
		}
		return true
	}
	return false
}

func hasUnguardedPropertyChain(code string) bool {
	matches := propChainRe.FindAllStringIndex(code, -1)
	for _, m := range matches {
		start := m[0]
		prefix := ""
		if start > 0 {
			from := start - 20
			if from < 0 {
				from = 0
			}
			prefix = code[from:start]
		}
		chain := code[m[0]:m[1]]
		if regexp.MustCompile(`\?\.`).MatchString(chain) {
			continue
		}
		if propChainGuardRe.MatchString(prefix) {
			continue
		}
		return true
	}
	return false
}

func hasPropRedundancy(code string) bool {
	propRe := regexp.MustCompile(`(\w+)=\{([^{}]{1,40})\}`)
	seen := map[string]int{}
	for _, m := range propRe.FindAllStringSubmatch(code, -1) {
		key := m[1] + "=" + m[2]
		seen[key]++
		if seen[key] >= 2 {
			return true
		}
	}
	return false
}

func hasMagicStringRepetition(u model.Unit, fc *FileContext) bool {
	if fc == nil {
		return false
	}
	counts := fc.StringCounts[u.FilePath]
	for _, s := range u.StringLiterals {
		if counts[s] >= 3 {
			return true
		}
	}
	return false
}

func hasLowCommentHighAmbiguity(u model.Unit) bool {
	if u.LOC == 0 {
		return false
	}
	commentRatio := float64(u.CommentLines) / float64(u.LOC)
	if u.TotalIdentCount == 0 {
		return false
	}
	ambigRatio := float64(u.AmbiguousIdentCount) / float64(u.TotalIdentCount)
	return commentRatio < 0.05 && ambigRatio > 0.15
}
