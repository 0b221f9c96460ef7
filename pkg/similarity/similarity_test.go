// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/shade/pkg/model"
)

const sampleA = `
function fetchUser(id) {
	if (!id) {
		throw new Error("missing id");
	}
	const response = fetch("/api/users/" + id);
	return response.json();
}
`

const sampleB = `
function fetchOrder(orderId) {
	if (!orderId) {
		throw new Error("missing id");
	}
	const response = fetch("/api/orders/" + orderId);
	return response.json();
}
`

const sampleC = `
function renderBanner(props) {
	return props.title + props.subtitle;
}
`

const sampleAWithOptions = `
function fetchUser(id) {
	if (!id) {
		throw new Error("missing id");
	}
	const response = fetch("/api/users/" + id, { cache: "no-store" });
	return response.json();
}
`

func TestTokens_NormalizesIdentifiersStringsAndNumbers(t *testing.T) {
	toks := Tokens(`const x = "hello"; const y = 42;`)
	joined := ""
	for _, tok := range toks {
		joined += tok + " "
	}
	assert.Contains(t, joined, "_STR")
	assert.Contains(t, joined, "_NUM")
	assert.Contains(t, joined, "_VAR")
	assert.Contains(t, joined, "const")
}

func TestEstimateJaccard_IdenticalSignaturesMatch(t *testing.T) {
	shingles := Shingles(Tokens(sampleA))
	sig := Compute(shingles)
	assert.Equal(t, 1.0, EstimateJaccard(sig, sig))
}

func TestExactJaccard_Bounds(t *testing.T) {
	a := Shingles(Tokens(sampleA))
	b := Shingles(Tokens(sampleB))
	c := Shingles(Tokens(sampleC))

	abScore := ExactJaccard(a, b)
	acScore := ExactJaccard(a, c)

	assert.Greater(t, abScore, acScore)
	assert.GreaterOrEqual(t, abScore, 0.0)
	assert.LessOrEqual(t, abScore, 1.0)
}

func TestCluster_RedundantPairSharesCluster(t *testing.T) {
	// A near-duplicate function pair clusters together and
	// gets a lowerCamel "shared"-prefixed suggestion.
	units := []model.Unit{
		{ID: "fetchUser", Name: "fetchUser", Kind: model.KindFunction, FilePath: "a.ts", CodeText: sampleA},
		{ID: "fetchOrder", Name: "fetchOrder", Kind: model.KindFunction, FilePath: "a.ts", CodeText: sampleB},
		{ID: "renderBanner", Name: "renderBanner", Kind: model.KindFunction, FilePath: "b.ts", CodeText: sampleC},
	}
	idx := NewIndex(units)
	clusters := Cluster(idx, idx.Candidates(), DefaultThresholds)

	require.Len(t, clusters, 1)
	assert.ElementsMatch(t, []string{"fetchOrder", "fetchUser"}, clusters[0].Members)
	assert.Contains(t, clusters[0].Suggestion, "shared")
	assert.False(t, clusters[0].ComponentOnly)
}

func TestCluster_ComponentPairsUseStricterThreshold(t *testing.T) {
	units := []model.Unit{
		{ID: "c1", Name: "CardOne", Kind: model.KindComponent, FilePath: "a.tsx", CodeText: sampleA},
		{ID: "c2", Name: "CardTwo", Kind: model.KindComponent, FilePath: "a.tsx", CodeText: sampleAWithOptions},
	}
	idx := NewIndex(units)

	// The two bodies differ only by a fetch option; their real Jaccard is
	// about 0.73, under the 0.95 component threshold used here, so the
	// component threshold must prevent clustering even though the
	// function threshold alone would allow it.
	loose := Thresholds{Function: 0.30, Component: 0.30}
	strict := Thresholds{Function: 0.30, Component: 0.95}

	looseClusters := Cluster(idx, idx.Candidates(), loose)
	strictClusters := Cluster(idx, idx.Candidates(), strict)

	assert.Len(t, looseClusters, 1)
	assert.Len(t, strictClusters, 0)
}

func TestCluster_SymmetricPairOrder(t *testing.T) {
	units := []model.Unit{
		{ID: "b", Name: "fetchOrder", Kind: model.KindFunction, FilePath: "a.ts", CodeText: sampleB},
		{ID: "a", Name: "fetchUser", Kind: model.KindFunction, FilePath: "a.ts", CodeText: sampleA},
	}
	idx := NewIndex(units)
	clusters := Cluster(idx, idx.Candidates(), DefaultThresholds)

	require.Len(t, clusters, 1)
	assert.Equal(t, []string{"a", "b"}, clusters[0].Members)
}

func TestIncrementalCandidates_RestrictsToChangedAndSameDirectory(t *testing.T) {
	units := []model.Unit{
		{ID: "a", Name: "fetchUser", Kind: model.KindFunction, FilePath: "pkg/x/a.ts", CodeText: sampleA},
		{ID: "b", Name: "fetchOrder", Kind: model.KindFunction, FilePath: "pkg/x/b.ts", CodeText: sampleB},
		{ID: "c", Name: "renderBanner", Kind: model.KindFunction, FilePath: "pkg/y/c.ts", CodeText: sampleC},
	}
	idx := NewIndex(units)
	pairs := idx.IncrementalCandidates(map[string]bool{"a": true})

	require.Len(t, pairs, 1)
	assert.Equal(t, candidatePair{"a", "b"}, pairs[0])
}

func TestSameSubtree(t *testing.T) {
	assert.True(t, sameSubtree("src", "src"))
	assert.True(t, sameSubtree("src", "src/nested"))
	assert.True(t, sameSubtree("src/nested/deep", "src"))
	assert.True(t, sameSubtree(".", "lib"))
	assert.False(t, sameSubtree("src", "srclib"))
	assert.False(t, sameSubtree("src", "lib"))
}

func TestIncrementalCandidates_SpanNestedSubdirectories(t *testing.T) {
	units := []model.Unit{
		{ID: "a", Name: "fetchUser", Kind: model.KindFunction, FilePath: "src/api.ts", CodeText: sampleA},
		{ID: "b", Name: "fetchOrder", Kind: model.KindFunction, FilePath: "src/nested/orders.ts", CodeText: sampleB},
		{ID: "c", Name: "renderBanner", Kind: model.KindFunction, FilePath: "lib/banner.ts", CodeText: sampleC},
	}
	idx := NewIndex(units)

	pairs := idx.IncrementalCandidates(map[string]bool{"a": true})

	assert.Contains(t, pairs, candidatePair{a: "a", b: "b"}, "nested subdirectory units are candidates")
	assert.NotContains(t, pairs, candidatePair{a: "a", b: "c"})
	assert.NotContains(t, pairs, candidatePair{a: "c", b: "a"})
}
