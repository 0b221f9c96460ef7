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

// Package ingest enumerates FEL (.ts/.tsx/.js/.jsx) source files under a
// repository root, applying the fixed exclude set and, for incremental
// scans, intersecting with a caller-supplied changed-file set.
package ingest

import (
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// IncludedExtensions is the fixed FEL include set.
var IncludedExtensions = map[string]bool{
	".ts":  true,
	".tsx": true,
	".js":  true,
	".jsx": true,
}

// DefaultExcludeGlobs is the fixed excluded-path-fragment set.
var DefaultExcludeGlobs = []string{
	"**/node_modules/**",
	"**/dist/**",
	"**/build/**",
	"**/coverage/**",
	"*.min.*",
	"**/__fixtures__/**",
	"**/__mocks__/**",
	"**/.git/**",
}

var (
	validGitURLPattern    = regexp.MustCompile(`^(https?://|git@|ssh://|file://)[\w.\-@:/%]+$`)
	dangerousCharsPattern = regexp.MustCompile(`[;&|$` + "`" + `\n\r\\]`)
)

// FileInfo describes one candidate file surfaced by a Loader.
type FileInfo struct {
	Path     string // relative to repo root, slash-separated
	FullPath string
	Size     int64
}

// LoadResult is the output of one Load call.
type LoadResult struct {
	RootPath    string
	Files       []FileInfo
	SkipReasons map[string]int
	Warnings    []Warning
}

// Warning records a non-fatal input problem encountered during enumeration.
type Warning struct {
	Path    string
	Message string
}

// Loader enumerates FEL files under a root, optionally cloning a git URL
// to a temporary directory first.
type Loader struct {
	logger     *slog.Logger
	tempDirs   []string
	tempDirsMu sync.Mutex
}

// NewLoader constructs a Loader. A nil logger defaults to slog.Default().
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Close removes any temporary directories created by git clones.
func (l *Loader) Close() error {
	l.tempDirsMu.Lock()
	defer l.tempDirsMu.Unlock()

	var lastErr error
	for _, dir := range l.tempDirs {
		if err := os.RemoveAll(dir); err != nil {
			l.logger.Warn("ingest.cleanup.error", "dir", dir, "err", err)
			lastErr = err
		}
	}
	l.tempDirs = nil
	return lastErr
}

// Load enumerates FEL files under root (a local path or a git URL),
// layering excludes in override order: the fixed defaults, then the
// root's .shadeignore (which may negate defaults), then excludeGlobs
// from project config. Output is sorted lexicographically by relative
// path for reproducibility.
func (l *Loader) Load(root string, excludeGlobs []string, maxFileSize int64) (*LoadResult, error) {
	rootPath, err := l.resolveRoot(root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	l.logger.Info("ingest.load.start", "root", rootPath)

	globs := append([]string{}, DefaultExcludeGlobs...)
	globs = append(globs, readIgnoreFile(rootPath)...)
	globs = append(globs, excludeGlobs...)
	files, skipReasons, warnings, err := l.walk(rootPath, NewExcludeSet(globs), maxFileSize)
	if err != nil {
		return nil, fmt.Errorf("walk repository: %w", err)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	l.logger.Info("ingest.load.complete", "files", len(files), "warnings", len(warnings))

	return &LoadResult{
		RootPath:    rootPath,
		Files:       files,
		SkipReasons: skipReasons,
		Warnings:    warnings,
	}, nil
}

// FilterChanged intersects a caller-supplied changed-file set (relative to
// root) with the include filter, for incremental scans. The same exclude
// layering as Load applies, .shadeignore included.
func FilterChanged(root string, changed []string, excludeGlobs []string) []string {
	globs := append([]string{}, DefaultExcludeGlobs...)
	globs = append(globs, readIgnoreFile(root)...)
	globs = append(globs, excludeGlobs...)
	excludes := NewExcludeSet(globs)

	var out []string
	for _, rel := range changed {
		rel = filepath.ToSlash(rel)
		ext := strings.ToLower(filepath.Ext(rel))
		if !IncludedExtensions[ext] {
			continue
		}
		if excludes.Excluded(rel) {
			continue
		}
		out = append(out, rel)
	}
	sort.Strings(out)
	return out
}

func (l *Loader) resolveRoot(root string) (string, error) {
	if strings.HasPrefix(root, "https://") || strings.HasPrefix(root, "http://") ||
		strings.HasPrefix(root, "git@") || strings.HasPrefix(root, "ssh://") {
		return l.cloneGitRepo(root)
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve local path: %w", err)
	}
	if err := validateLocalPath(abs); err != nil {
		return "", fmt.Errorf("invalid local path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("stat local path: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("local path is not a directory: %s", abs)
	}
	return abs, nil
}

func validateGitURL(gitURL string) error {
	if gitURL == "" {
		return fmt.Errorf("git URL is empty")
	}
	if dangerousCharsPattern.MatchString(gitURL) {
		return fmt.Errorf("git URL contains dangerous characters")
	}

	if strings.HasPrefix(gitURL, "http://") || strings.HasPrefix(gitURL, "https://") {
		parsed, err := url.Parse(gitURL)
		if err != nil {
			return fmt.Errorf("invalid URL format: %w", err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("git URL missing host")
		}
		if parsed.User != nil {
			if _, hasPassword := parsed.User.Password(); hasPassword {
				return fmt.Errorf("git URL should not contain embedded password")
			}
		}
		return nil
	}

	if strings.HasPrefix(gitURL, "git@") || strings.HasPrefix(gitURL, "ssh://") {
		if !validGitURLPattern.MatchString(gitURL) {
			return fmt.Errorf("invalid SSH git URL format")
		}
		return nil
	}

	return fmt.Errorf("unsupported git URL protocol: must be https://, git@, or ssh://")
}

func (l *Loader) cloneGitRepo(gitURL string) (string, error) {
	if err := validateGitURL(gitURL); err != nil {
		return "", fmt.Errorf("invalid git URL: %w", err)
	}

	tmpDir, err := os.MkdirTemp("", "shade-ingest-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}

	// #nosec G204 - gitURL is validated above to prevent command injection
	cmd := exec.Command("git", "clone", "--depth", "1", "--quiet", gitURL, tmpDir)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	logURL := gitURL
	if parsed, perr := url.Parse(gitURL); perr == nil {
		parsed.RawQuery = ""
		if parsed.User != nil {
			parsed.User = url.User("***")
		}
		logURL = parsed.String()
	}

	l.logger.Info("ingest.clone.start", "url", logURL, "temp_dir", tmpDir)

	if err := cmd.Run(); err != nil {
		_ = os.RemoveAll(tmpDir)
		return "", fmt.Errorf("git clone failed: %w", err)
	}

	l.tempDirsMu.Lock()
	l.tempDirs = append(l.tempDirs, tmpDir)
	l.tempDirsMu.Unlock()

	return tmpDir, nil
}

func validateLocalPath(path string) error {
	cleaned := filepath.Clean(path)
	if cleaned != path {
		return fmt.Errorf("path contains traversal attempts: %s", path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("cannot resolve absolute path: %w", err)
	}
	if strings.Contains(absPath, "..") {
		return fmt.Errorf("path contains suspicious patterns after resolution: %s", absPath)
	}
	if absPath == "" || absPath == "/" {
		return fmt.Errorf("path is empty or root directory, which is not allowed")
	}

	sensitiveDirs := []string{"/etc", "/sys", "/proc", "/dev", "/boot"}
	for _, sensitive := range sensitiveDirs {
		if strings.HasPrefix(absPath, sensitive+"/") || absPath == sensitive {
			return fmt.Errorf("path is in sensitive system directory: %s", absPath)
		}
	}

	return nil
}

func (l *Loader) walk(rootPath string, excludes *ExcludeSet, maxFileSize int64) ([]FileInfo, map[string]int, []Warning, error) {
	var files []FileInfo
	var warnings []Warning
	skipReasons := make(map[string]int)

	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Path disappeared between enumeration and read: dropped silently.
			return nil
		}

		relPath, relErr := filepath.Rel(rootPath, path)
		if relErr != nil {
			return nil
		}
		relPath = filepath.ToSlash(relPath)

		if d.IsDir() {
			if relPath != "." && excludes.Prunable(relPath) {
				skipReasons["excluded_dir"]++
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(relPath))
		if !IncludedExtensions[ext] {
			return nil
		}
		if excludes.Excluded(relPath) {
			skipReasons["excluded"]++
			return nil
		}

		info, infoErr := d.Info()
		if infoErr != nil {
			return nil
		}

		if maxFileSize > 0 && info.Size() > maxFileSize {
			skipReasons["too_large"]++
			l.logger.Warn("ingest.walk.skip_large_file", "path", relPath, "size", info.Size())
			return nil
		}

		content, readErr := os.ReadFile(path) //nolint:gosec // G304: path built from validated repo root
		if readErr != nil {
			return nil
		}
		if !utf8.Valid(content) {
			warnings = append(warnings, Warning{Path: relPath, Message: "not valid UTF-8"})
			skipReasons["invalid_utf8"]++
			return nil
		}

		files = append(files, FileInfo{Path: relPath, FullPath: path, Size: info.Size()})
		return nil
	})

	return files, skipReasons, warnings, err
}

