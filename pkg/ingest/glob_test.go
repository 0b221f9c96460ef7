// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-or-later

package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchesGlob(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		pattern string
		want    bool
	}{
		{"exact match", "foo.ts", "foo.ts", true},
		{"exact no match", "foo.ts", "bar.ts", false},
		{"star suffix", "foo.ts", "*.ts", true},
		{"doublestar any depth", "a/b/c/foo.ts", "**/*.ts", true},
		{"node_modules deep", "node_modules/lodash/index.js", "**/node_modules/**", true},
		{"min artifact", "vendor.min.js", "*.min.*", true},
		{"question mark", "foo.ts", "fo?.ts", true},
		{"char range", "file1.ts", "file[0-9].ts", true},
		{"char class no match", "foo.go", "foo.[ab]o", false},
		{"negated class", "foo.go", "foo.[!ab]o", true},
		{"dist match", "dist/bundle.js", "dist/**", true},
		{"fixtures dir", "src/__fixtures__/sample.ts", "**/__fixtures__/**", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, matchesGlob(tt.path, tt.pattern))
		})
	}
}

func TestExcludeSet_LastMatchWins(t *testing.T) {
	set := NewExcludeSet([]string{
		"**/dist/**",
		"!dist/config.ts",
	})

	assert.True(t, set.Excluded("dist/bundle.js"))
	assert.False(t, set.Excluded("dist/config.ts"))
	assert.False(t, set.Excluded("src/app.ts"))
}

func TestExcludeSet_SkipsCommentsAndBlanks(t *testing.T) {
	set := NewExcludeSet([]string{
		"# generated output",
		"",
		"  ",
		"generated/**",
	})

	assert.True(t, set.Excluded("generated/api.ts"))
	assert.False(t, set.Excluded("src/app.ts"))
}

func TestExcludeSet_PrunableOnlyWithoutNegations(t *testing.T) {
	plain := NewExcludeSet([]string{"**/dist/**"})
	assert.True(t, plain.Prunable("dist"))
	assert.False(t, plain.Prunable("src"))

	negated := NewExcludeSet([]string{"**/dist/**", "!dist/config.ts"})
	assert.False(t, negated.Prunable("dist"), "a negation may re-include a descendant")
}

func TestLoad_ShadeignoreMergesAndNegates(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "generated"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "dist"), 0o755))
	writeFile := func(rel, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644))
	}
	writeFile("app.ts", "const kept = 1;\n")
	writeFile("generated/api.ts", "const dropped = 1;\n")
	writeFile("dist/config.ts", "const reincluded = 1;\n")
	writeFile("dist/bundle.js", "const dropped = 2;\n")
	writeFile(IgnoreFileName, "# project ignores\ngenerated/**\n!dist/config.ts\n")

	l := NewLoader(nil)
	result, err := l.Load(dir, nil, 0)
	require.NoError(t, err)

	var paths []string
	for _, f := range result.Files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"app.ts", "dist/config.ts"}, paths)
}

func TestFilterChanged(t *testing.T) {
	changed := []string{
		"src/App.tsx",
		"src/index.ts",
		"node_modules/react/index.js",
		"README.md",
		"src/App.test.tsx",
	}

	got := FilterChanged("/repo", changed, nil)
	assert.Equal(t, []string{"src/App.test.tsx", "src/App.tsx", "src/index.ts"}, got)
}
