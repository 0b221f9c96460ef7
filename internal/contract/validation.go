// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package contract

import (
	"fmt"
	"os"
	"strconv"
)

const (
	// DefaultSoftLimitBytes is the baseline soft limit for a rule file or
	// project config read from disk.
	DefaultSoftLimitBytes = 64 << 20 // 64 MiB
)

// SoftLimitBytes returns the effective soft limit for rule-file/config
// reads. Controlled via env SHADE_SOFT_LIMIT_BYTES; falls back to
// DefaultSoftLimitBytes.
func SoftLimitBytes() int64 {
	if v := os.Getenv("SHADE_SOFT_LIMIT_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return DefaultSoftLimitBytes
}

// ValidationResult represents the result of a validation check.
type ValidationResult struct {
	OK      bool
	Message string
}

// ValidateFileSize checks a file's size against the soft limit before the
// caller reads and parses it as YAML (rule file or project config).
func ValidateFileSize(path string, size int64) *ValidationResult {
	if size > SoftLimitBytes() {
		return &ValidationResult{
			OK:      false,
			Message: fmt.Sprintf("%s exceeds soft limit of %d bytes", path, SoftLimitBytes()),
		}
	}
	return &ValidationResult{OK: true}
}
