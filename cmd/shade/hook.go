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
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const postCommitHookContent = `#!/bin/sh
# shade auto-scan hook - runs an incremental scan over the commit's files
# Installed by: shade install-hook
# Remove with: shade install-hook --remove

CHANGED=$(git diff-tree --no-commit-id --name-only -r HEAD | paste -sd, -)
[ -n "$CHANGED" ] && shade -q scan --changed "$CHANGED" 2>/dev/null &
`

const hookMarker = "# shade auto-scan hook"

// runInstallHook executes the 'install-hook' CLI command, managing the
// git post-commit hook that keeps scan evidence fresh after each commit.
//
// Flags:
//   - --force: Overwrite existing hook (default: false)
//   - --remove: Remove the hook instead of installing (default: false)
//
// Examples:
//
//	shade install-hook           Install the post-commit hook
//	shade install-hook --force   Overwrite existing hook
//	shade install-hook --remove  Remove the hook
func runInstallHook(args []string) {
	fs := flag.NewFlagSet("install-hook", flag.ExitOnError)
	force := fs.Bool("force", false, "Overwrite existing hook")
	remove := fs.Bool("remove", false, "Remove the hook instead of installing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: shade install-hook [options]

Installs a git post-commit hook that runs an incremental scan over the
files touched by each commit, in the background, so review-evidence
signals stay current without manual rescans.

Options:
`)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	gitDir, err := findGitDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	hookPath := filepath.Join(gitDir, "hooks", "post-commit")

	if *remove {
		if err := removeHook(hookPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Git hook removed successfully.")
		return
	}

	if err := installHook(hookPath, *force); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Git hook installed: %s\n", hookPath)
}

// findGitDir finds the .git directory by walking up the directory tree.
// A .git file (worktree) is followed through its "gitdir:" pointer.
func findGitDir() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}

	dir := cwd
	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return gitPath, nil
			}
			content, err := os.ReadFile(gitPath) //nolint:gosec // G304: path found by repository walk
			if err != nil {
				return "", fmt.Errorf("cannot read .git file: %w", err)
			}
			var gitdir string
			if _, err := fmt.Sscanf(string(content), "gitdir: %s", &gitdir); err == nil {
				if filepath.IsAbs(gitdir) {
					return gitdir, nil
				}
				return filepath.Join(dir, gitdir), nil
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("not a git repository (or any of the parent directories)")
}

// installHook writes the shade post-commit hook to hookPath. An existing
// non-shade hook is never overwritten without force.
func installHook(hookPath string, force bool) error {
	hookDir := filepath.Dir(hookPath)
	if err := os.MkdirAll(hookDir, 0o755); err != nil {
		return fmt.Errorf("cannot create hooks directory: %w", err)
	}

	if _, err := os.Stat(hookPath); err == nil && !force {
		content, err := os.ReadFile(hookPath) //nolint:gosec // G304: hook path under the repo's .git
		if err == nil && strings.Contains(string(content), hookMarker) {
			fmt.Println("shade hook already installed. Use --force to reinstall.")
			return nil
		}
		return fmt.Errorf("hook already exists at %s\nUse --force to overwrite", hookPath)
	}

	if err := os.WriteFile(hookPath, []byte(postCommitHookContent), 0o755); err != nil { //nolint:gosec // G306: hooks must be executable
		return fmt.Errorf("cannot write hook: %w", err)
	}
	return nil
}

// removeHook deletes the hook only when it carries the shade marker, so a
// user-authored post-commit hook is never removed by accident.
func removeHook(hookPath string) error {
	content, err := os.ReadFile(hookPath) //nolint:gosec // G304: hook path under the repo's .git
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("no hook found at %s", hookPath)
		}
		return fmt.Errorf("cannot read hook: %w", err)
	}

	if !strings.Contains(string(content), hookMarker) {
		return fmt.Errorf("hook at %s was not installed by shade\nManually remove it if needed", hookPath)
	}

	if err := os.Remove(hookPath); err != nil {
		return fmt.Errorf("cannot remove hook: %w", err)
	}
	return nil
}
