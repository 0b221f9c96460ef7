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

// Package config loads and saves .shade/project.yaml, the per-repository
// configuration: repository root, include/exclude globs, ruleset path,
// cache directory, concurrency settings, and scoring thresholds.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Thresholds holds the configurable cutoffs the scoring and clustering models default but
// allow a project to tune.
type Thresholds struct {
	ReviewEvidenceShadowMax int     `yaml:"review_evidence_shadow_max"`
	CognitiveLoadShadowMin  int     `yaml:"cognitive_load_shadow_min"`
	SimilarityTauFunction   float64 `yaml:"similarity_tau_function"`
	SimilarityTauComponent  float64 `yaml:"similarity_tau_component"`
}

// DefaultThresholds mirrors the stock shadow predicate and clustering τ values.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ReviewEvidenceShadowMax: 30,
		CognitiveLoadShadowMin:  70,
		SimilarityTauFunction:   0.70,
		SimilarityTauComponent:  0.85,
	}
}

// Concurrency holds the worker-pool sizing for scan fan-out.
type Concurrency struct {
	Workers int `yaml:"workers"`
}

// Deadlines holds the per-scan-kind hard scan deadlines.
type Deadlines struct {
	FullMinutes        int `yaml:"full_minutes"`
	IncrementalSeconds int `yaml:"incremental_seconds"`
}

// Project is the shape of .shade/project.yaml.
type Project struct {
	RepoRoot     string      `yaml:"repo_root"`
	IncludeGlobs []string    `yaml:"include_globs,omitempty"`
	ExcludeGlobs []string    `yaml:"exclude_globs,omitempty"`
	RulesPath    string      `yaml:"rules_path,omitempty"`
	CacheDir     string      `yaml:"cache_dir"`
	Concurrency  Concurrency `yaml:"concurrency"`
	Deadlines    Deadlines   `yaml:"deadlines"`
	Thresholds   Thresholds  `yaml:"thresholds"`
}

// Default builds a Project rooted at repoRoot with every default applied.
func Default(repoRoot string) *Project {
	return &Project{
		RepoRoot: repoRoot,
		CacheDir: filepath.Join(repoRoot, ".shade", "cache"),
		Concurrency: Concurrency{
			Workers: 0, // 0 means "logical CPU count"; resolved at scan time.
		},
		Deadlines: Deadlines{FullMinutes: 20, IncrementalSeconds: 60},
		Thresholds: DefaultThresholds(),
	}
}

// Dir returns the .shade directory under root.
func Dir(root string) string {
	return filepath.Join(root, ".shade")
}

// Path returns the project.yaml path under root.
func Path(root string) string {
	return filepath.Join(Dir(root), "project.yaml")
}

// Load reads and parses a project.yaml at path.
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is operator-supplied config location
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &p, nil
}

// Save writes p as YAML to path, creating parent directories as needed.
func Save(p *Project, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o640); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
