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
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kraklabs/shade/internal/contract"
)

// Load reads and parses a rule file from path.
func Load(path string) (RuleSet, error) {
	if info, err := os.Stat(path); err == nil {
		if res := contract.ValidateFileSize(path, info.Size()); !res.OK {
			return RuleSet{}, fmt.Errorf("rule file rejected: %s", res.Message)
		}
	}

	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied rule file location
	if err != nil {
		return RuleSet{}, fmt.Errorf("read rule file: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse rule file: %w", err)
	}
	return rs, nil
}

// Save writes rs as YAML to path.
func Save(rs RuleSet, path string) error {
	data, err := yaml.Marshal(rs)
	if err != nil {
		return fmt.Errorf("marshal rule set: %w", err)
	}
	return os.WriteFile(path, data, 0o640)
}

var validFeatures = map[Feature]bool{
	FeatureNestingDepth: true, FeatureBranchCount: true, FeatureBooleanOperators: true,
	FeatureNestedCallbacks: true, FeatureRenderSideEffects: true, FeatureTypeEscapeRatio: true,
	FeatureEarlyReturns: true,
}

var validPredicates = map[PredicateID]bool{
	PredicateEffectDepsIncomplete: true, PredicateEffectMissingCleanup: true,
	PredicateSetterInLoop: true, PredicatePropRedundancy: true, PredicateNetworkUnguarded: true,
	PredicateEmptyCatch: true, PredicateUnguardedPropChain: true, PredicateUnstableHandler: true,
	PredicateMagicStringRepeated: true, PredicateLowCommentHighAmbig: true,
}

var validCrossCutting = map[CrossCuttingID]bool{
	CrossCuttingClusterMember: true,
}

var validSeverity = map[SeverityLevel]bool{
	SeverityLow: true, SeverityMedium: true, SeverityHigh: true,
}

var validOps = map[Op]bool{OpGTE: true, OpGT: true, OpLTE: true, OpLT: true}

// ValidationError is one problem found in a rule file by Validate.
type ValidationError struct {
	RuleID string
	Reason string
}

func (e ValidationError) Error() string {
	if e.RuleID == "" {
		return e.Reason
	}
	return fmt.Sprintf("rule %s: %s", e.RuleID, e.Reason)
}

// Validate checks that every rule's matcher is drawn from the closed
// vocabulary and its severity is one of {low, medium, high}, before a
// scan ever runs (`shade rules validate`). It returns every problem
// found, not just the first, so a single invocation can fix a whole
// rule file.
func Validate(rs RuleSet) []ValidationError {
	var errs []ValidationError
	seenIDs := map[string]bool{}

	if rs.Version == "" {
		errs = append(errs, ValidationError{Reason: "rule set has no version"})
	}

	for _, r := range rs.Rules {
		if r.ID == "" {
			errs = append(errs, ValidationError{Reason: "rule has empty id"})
			continue
		}
		if seenIDs[r.ID] {
			errs = append(errs, ValidationError{RuleID: r.ID, Reason: "duplicate rule id"})
		}
		seenIDs[r.ID] = true

		if !validSeverity[r.Severity] {
			errs = append(errs, ValidationError{RuleID: r.ID, Reason: fmt.Sprintf("invalid severity %q", r.Severity)})
		}

		errs = append(errs, validateMatcher(r.ID, r.Matcher)...)
	}

	return errs
}

func validateMatcher(ruleID string, m Matcher) []ValidationError {
	var errs []ValidationError
	switch m.Kind {
	case MatcherFeatureThreshold:
		if !validFeatures[m.Feature] {
			errs = append(errs, ValidationError{RuleID: ruleID, Reason: fmt.Sprintf("unknown feature %q", m.Feature)})
		}
		if !validOps[m.Op] {
			errs = append(errs, ValidationError{RuleID: ruleID, Reason: fmt.Sprintf("unknown operator %q", m.Op)})
		}
	case MatcherPredicate:
		if !validPredicates[m.Predicate] {
			errs = append(errs, ValidationError{RuleID: ruleID, Reason: fmt.Sprintf("unknown predicate %q", m.Predicate)})
		}
	case MatcherCrossCutting:
		if !validCrossCutting[m.CrossCutting] {
			errs = append(errs, ValidationError{RuleID: ruleID, Reason: fmt.Sprintf("unknown cross-cutting predicate %q", m.CrossCutting)})
		}
	default:
		errs = append(errs, ValidationError{RuleID: ruleID, Reason: fmt.Sprintf("unknown matcher kind %q", m.Kind)})
	}
	return errs
}
