// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUnitID_Deterministic(t *testing.T) {
	a := GenerateUnitID("src/App.tsx", "App", 1, 10, 1, 2)
	b := GenerateUnitID("src/App.tsx", "App", 1, 10, 1, 2)
	assert.Equal(t, a, b)
	assert.Contains(t, a, "unit:")
}

func TestGenerateUnitID_DiffersOnSpan(t *testing.T) {
	a := GenerateUnitID("src/App.tsx", "App", 1, 10, 1, 2)
	b := GenerateUnitID("src/App.tsx", "App", 1, 11, 1, 2)
	assert.NotEqual(t, a, b)
}

func TestGenerateUnitID_PathNormalization(t *testing.T) {
	a := GenerateUnitID("./src/App.tsx", "App", 1, 10, 1, 2)
	b := GenerateUnitID("src/App.tsx", "App", 1, 10, 1, 2)
	assert.Equal(t, a, b)
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"./src/App.tsx": "src/App.tsx",
		"/src/App.tsx":  "src/App.tsx",
		"src/./App.tsx": "src/App.tsx",
	}
	for in, want := range cases {
		assert.Equal(t, want, normalizePath(in), in)
	}
}
