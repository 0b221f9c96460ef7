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

// Package model holds the data types shared by every stage of the shadow
// logic pipeline: Ingest, Extractor, Evidence, Rules, Scorer, Similarity,
// Cache and Pipeline all read and write these shapes rather than their own
// private structs.
package model

import "time"

// UnitKind classifies a promoted analysis unit.
type UnitKind string

const (
	KindComponent UnitKind = "component"
	KindHook      UnitKind = "hook"
	KindFunction  UnitKind = "function"
)

// Span is an inclusive, 1-indexed line range within a file.
type Span struct {
	StartLine int
	EndLine   int
}

// Unit is an analyzable code region: a component, a hook, or a standalone
// function, together with the structural features the scorer needs.
type Unit struct {
	ID       string
	FilePath string
	Name     string
	Kind     UnitKind
	Span     Span
	CodeText string

	LOC int

	NestingDepth      int
	BranchCount       int
	BooleanOperators  int
	NestedCallbacks   int
	EarlyReturns      int
	TryCatchCount     int
	TryWithoutCatch   bool

	// StringLiterals holds every string-literal value found in the unit's
	// body, in source order; Rules uses file-wide aggregates of this to
	// evaluate magic-string repetition.
	StringLiterals []string

	// CommentLines is the number of source lines covered by comments in
	// the unit's body, used by the comment-to-code-ratio rule.
	CommentLines int
	RenderSideEffects int

	// HookEffects holds one entry per reactive-effect call found in the
	// unit's body (useEffect/useLayoutEffect/useInsertionEffect).
	HookEffects []HookEffect

	// IdentifierCounts supports the identifier-ambiguity and
	// context-switches features; populated by the extractor during the
	// single subtree walk so the scorer never re-walks the AST.
	IdentifierCounts    map[string]int
	AmbiguousIdentCount int
	TotalIdentCount     int
	ContextSwitches     int

	// ReassignedIdents is the set of identifier names reassigned anywhere
	// in the unit's body, used to judge dependency-list staleness.
	ReassignedIdents map[string]bool
}

// HookEffect records one reactive-effect call site inside a Unit.
type HookEffect struct {
	Callee     string
	DepsPresent bool
	Deps        []string
	HasCleanup  bool
}

// AllEffectsStable reports whether every recorded hook effect has a
// present, non-stale dependency list and a cleanup function.
func (u *Unit) AllEffectsStable() bool {
	if len(u.HookEffects) == 0 {
		return false
	}
	for _, e := range u.HookEffects {
		if !e.DepsPresent || !e.HasCleanup {
			return false
		}
		for _, d := range e.Deps {
			if u.ReassignedIdents[d] {
				return false
			}
		}
	}
	return true
}

// HasUnstableEffect reports whether any hook effect is missing its
// dependency list or depends on an identifier reassigned in the unit.
func (u *Unit) HasUnstableEffect() bool {
	for _, e := range u.HookEffects {
		if !e.DepsPresent {
			return true
		}
		for _, d := range e.Deps {
			if u.ReassignedIdents[d] {
				return true
			}
		}
	}
	return false
}

// CommitSignal is a member of the fixed commit-message vocabulary.
type CommitSignal string

const (
	SignalRefactor CommitSignal = "refactor"
	SignalTest     CommitSignal = "test"
	SignalType     CommitSignal = "type"
	SignalFix      CommitSignal = "fix"
	SignalChore    CommitSignal = "chore"
	SignalFeat     CommitSignal = "feat"
)

// Evidence is the review-history signal attached to a Unit.
type Evidence struct {
	UnitID               string
	DistinctAuthors      int
	TouchedAfterCreation bool
	TouchCount30d        int
	TouchCount90d        int
	CommitSignals        []CommitSignal
	ReviewEvidence        int
	CreatedAt             time.Time
	LastTouchedAt         time.Time
	Unavailable           bool
}

// UnitScores is the per-Unit output of the Scorer.
type UnitScores struct {
	UnitID           string
	CognitiveLoad    int
	ReviewEvidence   int
	Shadow           bool
	Fragility        int
	RedundancyCluster string // empty means no cluster
}

// Cluster is a connected component of near-duplicate Units.
type Cluster struct {
	ID          string
	Members     []string // Unit IDs, sorted
	Suggestion  string
	ComponentOnly bool
}

// Severity is a Finding's severity tier.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRank = map[Severity]int{SeverityHigh: 2, SeverityMedium: 1, SeverityLow: 0}

// Rank returns a comparable integer, high severity sorting first.
func (s Severity) Rank() int { return severityRank[s] }

// Finding is a single rule match against a Unit.
type Finding struct {
	UnitID          string
	RuleID          string
	Severity        Severity
	Explanation     string
	SuggestedAction string
}

// ScanKind distinguishes full from incremental scans.
type ScanKind string

const (
	ScanFull        ScanKind = "full"
	ScanIncremental ScanKind = "incremental"
)

// RepoCoordinates identifies the repository state a scan ran against.
type RepoCoordinates struct {
	Name   string
	Commit string
	Branch string
}

// Aggregates holds the scan-wide summary numbers.
type Aggregates struct {
	TotalUnits          int
	ShadowUnits         int
	ShadowLogicDensity  float64
	AverageCognitiveLoad float64
	RedundancyScore     float64
	RefactoringRunway   string // integer months as string, or "insufficient data"
}

// Hotspot is a ranked, evidence-backed entry in the report's headline list.
type Hotspot struct {
	Unit       Unit
	Scores     UnitScores
	Findings   []Finding
	ClusterIDs []string
	Why        []string
}

// ScanWarning records a recoverable error that did not abort the scan.
type ScanWarning struct {
	Kind    string // "input", "parse", "history", "cache"
	Path    string
	Message string
}

// ScanReport is the immutable, append-only output of one scan.
type ScanReport struct {
	ScanID     string
	ScanKind   ScanKind
	Repo       RepoCoordinates
	Timestamp  time.Time
	Summary    Aggregates
	Hotspots   []Hotspot
	Clusters   []Cluster
	Findings   []Finding
	Warnings   []ScanWarning
	Failed     bool
	FailReason string
}
