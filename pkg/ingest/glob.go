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

package ingest

import (
	"os"
	"path/filepath"
	"strings"
)

// IgnoreFileName is the per-repository ignore file. Its lines are merged
// into the exclude set after the fixed defaults, so a project can both
// widen the excludes (generated bundles, vendored FEL trees) and narrow
// them with negations ("!dist/config.ts" keeps one file the dist rule
// would drop).
const IgnoreFileName = ".shadeignore"

// excludeRule is one compiled line of an exclude list.
type excludeRule struct {
	pattern string
	negate  bool
}

// ExcludeSet evaluates an ordered exclude list with gitignore-style
// semantics: a pattern starting with "!" re-includes paths an earlier
// pattern excluded, blank lines and "#" comments are skipped, and the
// last matching rule wins.
type ExcludeSet struct {
	rules     []excludeRule
	negations bool
}

// NewExcludeSet compiles patterns in order. Pattern sources with lower
// precedence (the fixed defaults) should come first so later sources
// (.shadeignore, project config) can override them.
func NewExcludeSet(patterns []string) *ExcludeSet {
	s := &ExcludeSet{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" || strings.HasPrefix(p, "#") {
			continue
		}
		negate := strings.HasPrefix(p, "!")
		if negate {
			p = strings.TrimPrefix(p, "!")
			s.negations = true
		}
		s.rules = append(s.rules, excludeRule{pattern: filepath.ToSlash(p), negate: negate})
	}
	return s
}

// Excluded reports whether path is excluded once every rule has had its
// say. "**/dist/**" followed by "!dist/config.ts" excludes dist except
// the one re-included file.
func (s *ExcludeSet) Excluded(path string) bool {
	path = filepath.ToSlash(path)
	excluded := false
	for _, r := range s.rules {
		if matchesGlob(path, r.pattern) {
			excluded = !r.negate
		}
	}
	return excluded
}

// Prunable reports whether the directory at path can be skipped without
// descending into it. A directory is only prunable when it is excluded
// and no negation rule exists: a negation anywhere in the set may
// re-include a descendant, so the walk must still visit the subtree and
// filter per file.
func (s *ExcludeSet) Prunable(path string) bool {
	return !s.negations && s.Excluded(path)
}

// readIgnoreFile loads the root's .shadeignore lines, if any. Comment and
// blank-line filtering happens in NewExcludeSet so the file's raw lines
// can be appended directly.
func readIgnoreFile(root string) []string {
	data, err := os.ReadFile(filepath.Join(root, IgnoreFileName)) //nolint:gosec // G304: path under validated repo root
	if err != nil {
		return nil
	}
	return strings.Split(string(data), "\n")
}

// matchesGlob performs full glob matching with support for:
//   - * : matches any sequence of non-separator characters
//   - ** : matches any sequence of characters including separators (any depth)
//   - ? : matches any single non-separator character
//   - [abc] : matches any character in the brackets
//   - [a-z] : matches any character in the range
//   - [!abc] or [^abc] : matches any character NOT in the brackets
//
// Negation ("!pattern") is handled one level up by ExcludeSet, which owns
// rule ordering; a bare pattern here never negates.
func matchesGlob(path, pattern string) bool {
	pattern = filepath.ToSlash(pattern)

	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimPrefix(strings.TrimSuffix(pattern, "/**"), "**/")
		if path == prefix || strings.HasPrefix(path, prefix+"/") {
			return true
		}
		parts := strings.Split(path, "/")
		for i := range parts {
			subpath := strings.Join(parts[i:], "/")
			if subpath == prefix || strings.HasPrefix(subpath, prefix+"/") {
				return true
			}
		}
	}

	if strings.HasPrefix(pattern, "*.") && !strings.Contains(pattern, "/") && !strings.ContainsAny(pattern[1:], "*?[") {
		ext := pattern[1:]
		return strings.HasSuffix(path, ext)
	}

	if strings.HasPrefix(pattern, "**/") {
		suffix := pattern[3:]
		if path == suffix || strings.HasSuffix(path, "/"+suffix) {
			return true
		}
		if matchGlobPattern(path, suffix) {
			return true
		}
		parts := strings.Split(path, "/")
		for i := range parts {
			subpath := strings.Join(parts[i:], "/")
			if matchGlobPattern(subpath, suffix) {
				return true
			}
		}
		return false
	}

	if !strings.Contains(pattern, "*") && !strings.Contains(pattern, "?") && !strings.Contains(pattern, "[") {
		return path == pattern || strings.HasSuffix(path, "/"+pattern) || strings.HasPrefix(path, pattern+"/")
	}

	if matchGlobPattern(path, pattern) {
		return true
	}

	parts := strings.Split(path, "/")
	for i := range parts {
		subpath := strings.Join(parts[i:], "/")
		if matchGlobPattern(subpath, pattern) {
			return true
		}
	}

	return false
}

func matchGlobPattern(path, pattern string) bool {
	return matchGlobRecursive(path, pattern, 0, 0)
}

func matchGlobRecursive(path, pattern string, pi, pti int) bool {
	for pi < len(path) || pti < len(pattern) {
		if pti >= len(pattern) {
			return false
		}

		if pti+1 < len(pattern) && pattern[pti] == '*' && pattern[pti+1] == '*' {
			nextPti := pti + 2
			if nextPti < len(pattern) && pattern[nextPti] == '/' {
				nextPti++
			}
			if nextPti >= len(pattern) {
				return true
			}
			for i := pi; i <= len(path); i++ {
				if matchGlobRecursive(path, pattern, i, nextPti) {
					return true
				}
			}
			return false
		}

		if pattern[pti] == '*' {
			nextPti := pti + 1
			if nextPti >= len(pattern) {
				for i := pi; i <= len(path); i++ {
					if i == len(path) || path[i] == '/' {
						if nextPti >= len(pattern) && i == len(path) {
							return true
						}
						if nextPti < len(pattern) && matchGlobRecursive(path, pattern, i, nextPti) {
							return true
						}
					}
				}
				if matchGlobRecursive(path, pattern, pi, nextPti) {
					return true
				}
				return false
			}
			for i := pi; i <= len(path); i++ {
				if i > pi && path[i-1] == '/' {
					break
				}
				if matchGlobRecursive(path, pattern, i, nextPti) {
					return true
				}
			}
			return false
		}

		if pattern[pti] == '?' {
			if pi >= len(path) || path[pi] == '/' {
				return false
			}
			pi++
			pti++
			continue
		}

		if pattern[pti] == '[' {
			if pi >= len(path) {
				return false
			}
			closeIdx := pti + 1
			if closeIdx < len(pattern) && (pattern[closeIdx] == '!' || pattern[closeIdx] == '^') {
				closeIdx++
			}
			if closeIdx < len(pattern) && pattern[closeIdx] == ']' {
				closeIdx++
			}
			for closeIdx < len(pattern) && pattern[closeIdx] != ']' {
				closeIdx++
			}
			if closeIdx >= len(pattern) {
				if path[pi] != '[' {
					return false
				}
				pi++
				pti++
				continue
			}

			classContent := pattern[pti+1 : closeIdx]
			if !matchCharClass(path[pi], classContent) {
				return false
			}
			pi++
			pti = closeIdx + 1
			continue
		}

		if pi >= len(path) {
			return false
		}
		if path[pi] != pattern[pti] {
			return false
		}
		pi++
		pti++
	}

	return pi == len(path) && pti == len(pattern)
}

func matchCharClass(c byte, class string) bool {
	if len(class) == 0 {
		return false
	}

	negated := false
	idx := 0
	if class[0] == '!' || class[0] == '^' {
		negated = true
		idx = 1
	}

	matched := false
	for idx < len(class) {
		if idx+2 < len(class) && class[idx+1] == '-' {
			low := class[idx]
			high := class[idx+2]
			if c >= low && c <= high {
				matched = true
			}
			idx += 3
			continue
		}
		if c == class[idx] {
			matched = true
		}
		idx++
	}

	if negated {
		return !matched
	}
	return matched
}
