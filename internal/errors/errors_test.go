// Copyright 2025 KrakLabs
//
// SPDX-License-Identifier: AGPL-3.0-only

package errors

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want string
	}{
		{
			name: "with underlying error",
			err:  &UserError{Message: "Cannot open cache", Err: fmt.Errorf("file locked")},
			want: "Cannot open cache: file locked",
		},
		{
			name: "without underlying error",
			err:  &UserError{Message: "Invalid input", Err: nil},
			want: "Invalid input",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestUserError_Unwrap(t *testing.T) {
	underlying := fmt.Errorf("underlying error")
	wrapped := &UserError{Message: "test", Err: underlying}
	assert.Equal(t, underlying, wrapped.Unwrap())

	bare := &UserError{Message: "test"}
	assert.Nil(t, bare.Unwrap())
}

func TestExitCodes_Unique(t *testing.T) {
	codes := map[string]int{
		"ExitSuccess":    ExitSuccess,
		"ExitConfig":     ExitConfig,
		"ExitCache":      ExitCache,
		"ExitHistory":    ExitHistory,
		"ExitInput":      ExitInput,
		"ExitPermission": ExitPermission,
		"ExitNotFound":   ExitNotFound,
		"ExitDeadline":   ExitDeadline,
		"ExitInternal":   ExitInternal,
	}

	seen := make(map[int]string)
	for name, code := range codes {
		if other, ok := seen[code]; ok {
			t.Errorf("exit code %d reused by %s and %s", code, name, other)
		}
		seen[code] = name
	}
}

func TestConstructors(t *testing.T) {
	underlying := fmt.Errorf("underlying error")

	tests := []struct {
		name         string
		err          *UserError
		wantExitCode int
		wantHasErr   bool
	}{
		{"config", NewConfigError("msg", "cause", "fix", underlying), ExitConfig, true},
		{"history", NewHistoryError("msg", "cause", "fix", underlying), ExitHistory, true},
		{"cache", NewCacheError("msg", "cause", "fix", underlying), ExitCache, true},
		{"input", NewInputError("msg", "cause", "fix"), ExitInput, false},
		{"permission", NewPermissionError("msg", "cause", "fix", underlying), ExitPermission, true},
		{"not found", NewNotFoundError("msg", "cause", "fix"), ExitNotFound, false},
		{"deadline", NewDeadlineError("msg", "cause", "fix", underlying), ExitDeadline, true},
		{"internal", NewInternalError("msg", "cause", "fix", underlying), ExitInternal, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, "msg", tt.err.Message)
			assert.Equal(t, "cause", tt.err.Cause)
			assert.Equal(t, "fix", tt.err.Fix)
			assert.Equal(t, tt.wantExitCode, tt.err.ExitCode)
			assert.Equal(t, tt.wantHasErr, tt.err.Err != nil)
		})
	}
}

func TestErrorChain(t *testing.T) {
	sentinel := fmt.Errorf("sentinel error")
	wrapped := fmt.Errorf("wrapped: %w", sentinel)
	userErr := NewCacheError("cache error", "cause", "fix", wrapped)

	assert.True(t, errors.Is(userErr, sentinel))

	inner := NewConfigError("config error", "cause", "fix", nil)
	outer := NewCacheError("cache error", "cause", "fix", inner)

	var target *UserError
	require.True(t, errors.As(outer, &target))
	assert.Equal(t, ExitCache, target.ExitCode)
	require.True(t, errors.As(target.Err, &target))
	assert.Equal(t, ExitConfig, target.ExitCode)
}

func TestUserError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *UserError
		want []string
	}{
		{
			name: "full error",
			err: &UserError{
				Message: "Cannot open cache",
				Cause:   "The cache directory is locked",
				Fix:     "Close other shade instances",
			},
			want: []string{"Error: Cannot open cache", "Cause: The cache directory is locked", "Fix:   Close other shade instances"},
		},
		{
			name: "error without cause",
			err:  &UserError{Message: "Invalid input", Fix: "Use valid format"},
			want: []string{"Error: Invalid input", "Fix:   Use valid format"},
		},
		{
			name: "minimal error",
			err:  &UserError{Message: "Something failed"},
			want: []string{"Error: Something failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Format(true)
			for _, substr := range tt.want {
				assert.Contains(t, got, substr)
			}
		})
	}
}

func TestUserError_Format_NoColorEnv(t *testing.T) {
	old := os.Getenv("NO_COLOR")
	defer func() {
		if old != "" {
			os.Setenv("NO_COLOR", old)
		} else {
			os.Unsetenv("NO_COLOR")
		}
	}()

	os.Setenv("NO_COLOR", "1")
	err := &UserError{Message: "Test error", Cause: "Test cause", Fix: "Test fix"}
	output := err.Format(false)
	assert.False(t, strings.Contains(output, "\x1b["))
}

func TestUserError_ToJSON(t *testing.T) {
	err := &UserError{
		Message:  "Invalid configuration",
		Cause:    "Missing required field",
		Fix:      "Run: shade init",
		ExitCode: ExitConfig,
	}
	got := err.ToJSON()
	assert.Equal(t, "Invalid configuration", got.Error)
	assert.Equal(t, "Missing required field", got.Cause)
	assert.Equal(t, "Run: shade init", got.Fix)
	assert.Equal(t, ExitConfig, got.ExitCode)
}

func TestFatalError_NilDoesNothing(t *testing.T) {
	FatalError(nil, false)
}
