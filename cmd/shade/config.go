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

package main

import (
	"os"
	"os/exec"
	"strings"

	"github.com/kraklabs/shade/internal/config"
	"github.com/kraklabs/shade/internal/errors"
)

// loadProjectConfig loads .shade/project.yaml, from configPath if given
// or from the current directory otherwise.
func loadProjectConfig(configPath string) (*config.Project, error) {
	if configPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, errors.NewInputError("Cannot determine current directory", err.Error(), "")
		}
		configPath = config.Path(cwd)
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, errors.NewConfigError(
			"Cannot load project configuration",
			"No readable .shade/project.yaml was found",
			"Run 'shade init' to create one, or pass --config",
			err,
		)
	}
	return cfg, nil
}

// resolveCommit asks git for the SHA of ref (HEAD when empty) in root.
// An empty string means the repository has no resolvable history; the
// scan still runs, with Evidence degraded per the history error policy.
func resolveCommit(root, ref string) string {
	if ref == "" {
		ref = "HEAD"
	}
	out, err := exec.Command("git", "-C", root, "rev-parse", ref).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// resolveBranch asks git for the current branch name in root.
func resolveBranch(root string) string {
	out, err := exec.Command("git", "-C", root, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
