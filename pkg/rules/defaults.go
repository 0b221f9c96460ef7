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

// DefaultVersion tags the built-in ruleset embedded below.
const DefaultVersion = "shade-rules-v1"

// Default returns the fixed built-in 15-rule set. Thresholds
// here are defaults, not code: `shade rules validate` and project config
// can load a replacement YAML document with different thresholds over
// the same closed matcher vocabulary.
func Default() RuleSet {
	return RuleSet{
		Version: DefaultVersion,
		Rules: []Rule{
			{
				ID: "REACT-001", Name: "Render-time side effect", Language: "fel",
				Severity:        SeverityHigh,
				Matcher:         Matcher{Kind: MatcherFeatureThreshold, Feature: FeatureRenderSideEffects, Op: OpGTE, Threshold: 1},
				SuggestedAction: "Move the network/storage call into a useEffect with an explicit dependency array.",
			},
			{
				ID: "REACT-002", Name: "Incomplete reactive-effect dependencies", Language: "fel",
				Severity:        SeverityHigh,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateEffectDepsIncomplete},
				SuggestedAction: "List every captured identifier in the effect's dependency array, or memoize it.",
			},
			{
				ID: "PERF-001", Name: "State setter invoked inside a loop", Language: "fel",
				Severity:        SeverityMedium,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateSetterInLoop},
				SuggestedAction: "Batch updates outside the loop or switch to a reducer.",
			},
			{
				ID: "REACT-003", Name: "Prop redundancy", Language: "fel",
				Severity:        SeverityLow,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicatePropRedundancy},
				SuggestedAction: "Hoist the shared prop value into a single source of truth.",
			},
			{
				ID: "TYPE-001", Name: "Type escape hatch density", Language: "fel",
				Severity:        SeverityMedium,
				Matcher:         Matcher{Kind: MatcherFeatureThreshold, Feature: FeatureTypeEscapeRatio, Op: OpGTE, Threshold: 0.05},
				SuggestedAction: "Replace `any`/`@ts-ignore` with a precise type or a narrowing guard.",
			},
			{
				ID: "NET-001", Name: "Network call without error handling", Language: "fel",
				Severity:        SeverityHigh,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateNetworkUnguarded},
				SuggestedAction: "Wrap the call in try/catch or attach a .catch handler.",
			},
			{
				ID: "ERR-001", Name: "Empty catch block", Language: "fel",
				Severity:        SeverityHigh,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateEmptyCatch},
				SuggestedAction: "Log or rethrow instead of swallowing the error.",
			},
			{
				ID: "COMPLEX-001", Name: "Unguarded property chain", Language: "fel",
				Severity:        SeverityMedium,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateUnguardedPropChain},
				SuggestedAction: "Add optional chaining or a guard before the deep access.",
			},
			{
				ID: "COMPLEX-002", Name: "Boolean overload", Language: "fel",
				Severity:        SeverityMedium,
				Matcher:         Matcher{Kind: MatcherFeatureThreshold, Feature: FeatureBooleanOperators, Op: OpGTE, Threshold: 6},
				SuggestedAction: "Extract named boolean predicates instead of inlining compound conditions.",
			},
			{
				ID: "COMPLEX-003", Name: "Deep nesting", Language: "fel",
				Severity:        SeverityHigh,
				Matcher:         Matcher{Kind: MatcherFeatureThreshold, Feature: FeatureNestingDepth, Op: OpGTE, Threshold: 5},
				SuggestedAction: "Extract inner blocks into named helper functions.",
			},
			{
				ID: "REACT-004", Name: "Unstable inline handler", Language: "fel",
				Severity:        SeverityLow,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateUnstableHandler},
				SuggestedAction: "Hoist the handler with useCallback or a stable reference.",
			},
			{
				ID: "REDUN-001", Name: "Duplicate logic", Language: "fel",
				Severity:        SeverityMedium,
				Matcher:         Matcher{Kind: MatcherCrossCutting, CrossCutting: CrossCuttingClusterMember},
				SuggestedAction: "Extract the shared logic into the suggested utility and update both call sites.",
			},
			{
				ID: "STR-001", Name: "Magic string repetition", Language: "fel",
				Severity:        SeverityLow,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateMagicStringRepeated},
				SuggestedAction: "Hoist the repeated literal into a named constant.",
			},
			{
				ID: "DOC-001", Name: "Comment-to-code ratio with identifier ambiguity", Language: "fel",
				Severity:        SeverityLow,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateLowCommentHighAmbig},
				SuggestedAction: "Add a short comment explaining intent and rename generic identifiers (data/tmp/result).",
			},
			{
				ID: "EFFECT-001", Name: "Missing effect cleanup", Language: "fel",
				Severity:        SeverityMedium,
				Matcher:         Matcher{Kind: MatcherPredicate, Predicate: PredicateEffectMissingCleanup},
				SuggestedAction: "Return a teardown function from the effect to cancel subscriptions and timers.",
			},
		},
	}
}
