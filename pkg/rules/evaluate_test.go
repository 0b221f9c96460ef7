// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/shade/pkg/model"
)

func TestEvaluate_RenderSideEffect(t *testing.T) {
	rs := Default()
	u := model.Unit{ID: "u1", FilePath: "a.tsx", RenderSideEffects: 1, LOC: 10}
	fc := NewFileContext([]model.Unit{u})

	findings := Evaluate(rs, u, fc)
	require.NotEmpty(t, findings)
	assert.Equal(t, "REACT-001", findings[0].RuleID)
	assert.Equal(t, model.SeverityHigh, findings[0].Severity)
}

func TestEvaluate_DeepNesting(t *testing.T) {
	rs := Default()
	u := model.Unit{ID: "u2", FilePath: "b.ts", NestingDepth: 6, LOC: 20}
	findings := Evaluate(rs, u, NewFileContext([]model.Unit{u}))

	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	assert.Contains(t, ids, "COMPLEX-003")
}

func TestEvaluate_EmptyCatch(t *testing.T) {
	rs := Default()
	u := model.Unit{
		ID: "u3", FilePath: "c.ts", LOC: 5, TryCatchCount: 1,
		CodeText: "function f() { try { doThing(); } catch (e) {} }",
	}
	findings := Evaluate(rs, u, NewFileContext([]model.Unit{u}))

	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	assert.Contains(t, ids, "ERR-001")
}

func TestEvaluate_MagicStringRepetition(t *testing.T) {
	a := model.Unit{ID: "a", FilePath: "x.ts", LOC: 5, StringLiterals: []string{"\"pending\""}}
	b := model.Unit{ID: "b", FilePath: "x.ts", LOC: 5, StringLiterals: []string{"\"pending\""}}
	c := model.Unit{ID: "c", FilePath: "x.ts", LOC: 5, StringLiterals: []string{"\"pending\""}}

	fc := NewFileContext([]model.Unit{a, b, c})
	findings := Evaluate(Default(), a, fc)

	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	assert.Contains(t, ids, "STR-001")
}

func TestEvaluate_ClusterMemberRule(t *testing.T) {
	u := model.Unit{ID: "u4", FilePath: "d.ts", LOC: 5}
	fc := NewFileContext([]model.Unit{u})
	fc.SetClusterMembers([]model.Cluster{{ID: "c1", Members: []string{"u4"}}})

	findings := Evaluate(Default(), u, fc)
	var ids []string
	for _, f := range findings {
		ids = append(ids, f.RuleID)
	}
	assert.Contains(t, ids, "REDUN-001")
}

func TestEvaluate_FindingsSortedBySeverityThenID(t *testing.T) {
	rs := Default()
	u := model.Unit{
		ID: "u5", FilePath: "e.ts", LOC: 10,
		NestingDepth: 6, BooleanOperators: 8, RenderSideEffects: 1,
	}
	findings := Evaluate(rs, u, NewFileContext([]model.Unit{u}))
	require.True(t, len(findings) >= 2)
	for i := 1; i < len(findings); i++ {
		prevRank := findings[i-1].Severity.Rank()
		curRank := findings[i].Severity.Rank()
		assert.True(t, prevRank > curRank || (prevRank == curRank && findings[i-1].RuleID < findings[i].RuleID))
	}
}

func TestValidate_RejectsUnknownVocabulary(t *testing.T) {
	rs := RuleSet{
		Version: "v1",
		Rules: []Rule{
			{ID: "BAD-001", Severity: "critical", Matcher: Matcher{Kind: "regex_match"}},
		},
	}
	errs := Validate(rs)
	require.NotEmpty(t, errs)
}

func TestValidate_AcceptsDefaultRuleSet(t *testing.T) {
	errs := Validate(Default())
	assert.Empty(t, errs)
}

func TestValidate_DuplicateID(t *testing.T) {
	rs := RuleSet{
		Version: "v1",
		Rules: []Rule{
			{ID: "X-1", Severity: SeverityLow, Matcher: Matcher{Kind: MatcherFeatureThreshold, Feature: FeatureNestingDepth, Op: OpGTE, Threshold: 1}},
			{ID: "X-1", Severity: SeverityLow, Matcher: Matcher{Kind: MatcherFeatureThreshold, Feature: FeatureNestingDepth, Op: OpGTE, Threshold: 1}},
		},
	}
	errs := Validate(rs)
	require.NotEmpty(t, errs)
}
