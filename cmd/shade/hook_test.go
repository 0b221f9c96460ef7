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
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInstallHook_WritesExecutableHook(t *testing.T) {
	hookPath := filepath.Join(t.TempDir(), "hooks", "post-commit")

	require.NoError(t, installHook(hookPath, false))

	info, err := os.Stat(hookPath)
	require.NoError(t, err)
	assert.NotZero(t, info.Mode()&0o111, "hook must be executable")

	content, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), hookMarker)
}

func TestInstallHook_RefusesForeignHookWithoutForce(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")
	require.NoError(t, os.WriteFile(hookPath, []byte("#!/bin/sh\necho mine\n"), 0o755))

	err := installHook(hookPath, false)
	assert.Error(t, err)

	require.NoError(t, installHook(hookPath, true))
	content, err := os.ReadFile(hookPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), hookMarker)
}

func TestRemoveHook_OnlyRemovesShadeHooks(t *testing.T) {
	dir := t.TempDir()
	hookPath := filepath.Join(dir, "post-commit")
	require.NoError(t, os.WriteFile(hookPath, []byte("#!/bin/sh\necho mine\n"), 0o755))

	assert.Error(t, removeHook(hookPath), "foreign hooks must be preserved")

	require.NoError(t, installHook(hookPath, true))
	require.NoError(t, removeHook(hookPath))
	_, err := os.Stat(hookPath)
	assert.True(t, os.IsNotExist(err))
}
