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

// Package rules evaluates a declarative ruleset against Units.
// Matchers are a closed, tagged-variant vocabulary, never dynamically
// interpreted code: a rule file only ever names one of the matcher
// kinds below plus its parameters.
package rules

// MatcherKind is the closed vocabulary of rule-matcher shapes.
type MatcherKind string

const (
	// MatcherFeatureThreshold compares a named structural feature against
	// a numeric threshold (e.g. "nesting_depth >= 5").
	MatcherFeatureThreshold MatcherKind = "feature_threshold"

	// MatcherPredicate evaluates one of the fixed syntactic predicates
	// (e.g. "empty catch block").
	MatcherPredicate MatcherKind = "predicate"

	// MatcherCrossCutting evaluates a predicate that depends on scan-wide
	// state rather than a single Unit in isolation (e.g. cluster
	// membership).
	MatcherCrossCutting MatcherKind = "cross_cutting"
)

// Op is a feature-threshold comparison operator.
type Op string

const (
	OpGTE Op = ">="
	OpGT  Op = ">"
	OpLTE Op = "<="
	OpLT  Op = "<"
)

// Feature is the closed vocabulary of Unit-derived numeric features a
// feature_threshold matcher may reference.
type Feature string

const (
	FeatureNestingDepth      Feature = "nesting_depth"
	FeatureBranchCount       Feature = "branch_count"
	FeatureBooleanOperators  Feature = "boolean_operators"
	FeatureNestedCallbacks   Feature = "nested_callbacks"
	FeatureRenderSideEffects Feature = "render_side_effects"
	FeatureTypeEscapeRatio   Feature = "type_escape_ratio"
	FeatureEarlyReturns      Feature = "early_returns"
)

// PredicateID is the closed vocabulary of per-Unit syntactic predicates.
type PredicateID string

const (
	PredicateEffectDepsIncomplete PredicateID = "effect_deps_incomplete"
	PredicateEffectMissingCleanup PredicateID = "effect_missing_cleanup"
	PredicateSetterInLoop        PredicateID = "setter_in_loop"
	PredicatePropRedundancy      PredicateID = "prop_redundancy"
	PredicateNetworkUnguarded    PredicateID = "network_call_unguarded"
	PredicateEmptyCatch          PredicateID = "empty_catch"
	PredicateUnguardedPropChain  PredicateID = "unguarded_property_chain"
	PredicateUnstableHandler     PredicateID = "unstable_inline_handler"
	PredicateMagicStringRepeated PredicateID = "magic_string_repeated"
	PredicateLowCommentHighAmbig PredicateID = "low_comment_high_ambiguity"
)

// CrossCuttingID is the closed vocabulary of scan-wide predicates.
type CrossCuttingID string

const (
	CrossCuttingClusterMember CrossCuttingID = "cluster_member"
)

// Matcher is the tagged-variant condition a Rule evaluates against a Unit.
// Exactly the fields relevant to Kind are populated; this mirrors a sum
// type using a discriminator field plus per-case payload, which is how
// Go expresses tagged variants without dynamic dispatch.
type Matcher struct {
	Kind MatcherKind `yaml:"kind"`

	// feature_threshold fields.
	Feature   Feature `yaml:"feature,omitempty"`
	Op        Op      `yaml:"op,omitempty"`
	Threshold float64 `yaml:"threshold,omitempty"`

	// predicate fields.
	Predicate PredicateID `yaml:"predicate,omitempty"`

	// cross_cutting fields.
	CrossCutting CrossCuttingID `yaml:"cross_cutting,omitempty"`
}

// Rule is one entry in the declarative ruleset.
type Rule struct {
	ID              string          `yaml:"id"`
	Name            string          `yaml:"name"`
	Language        string          `yaml:"language"`
	Severity        SeverityLevel   `yaml:"severity"`
	Matcher         Matcher         `yaml:"matcher"`
	SuggestedAction string          `yaml:"suggested_action"`
}

// SeverityLevel mirrors model.Severity in the rule-file's vocabulary so
// the YAML schema is self-contained.
type SeverityLevel string

const (
	SeverityLow    SeverityLevel = "low"
	SeverityMedium SeverityLevel = "medium"
	SeverityHigh   SeverityLevel = "high"
)

// RuleSet is a named, versioned collection of rules; the version is
// hashed into cache keys.
type RuleSet struct {
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}
