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

package extract

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
)

// GenerateUnitID produces the Unit's globally unique identifier: a hash
// of file path, symbol name, and byte span. Signature-shaped
// details (kind, features) are excluded so the ID stays stable across
// extractor improvements.
func GenerateUnitID(filePath, name string, startLine, endLine, startCol, endCol int) string {
	normalized := normalizePath(filePath)
	idStr := fmt.Sprintf("%s|%s|%d|%d|%d|%d", normalized, name, startLine, endLine, startCol, endCol)
	hash := sha256.Sum256([]byte(idStr))
	return fmt.Sprintf("unit:%s", hex.EncodeToString(hash[:]))
}

// normalizePath normalizes a file path for consistent ID generation:
// strips a leading "./", cleans redundant separators, normalizes to
// forward slashes, and drops a leading "/" so absolute and relative
// paths to the same file hash identically.
func normalizePath(path string) string {
	if len(path) >= 2 && path[0:2] == "./" {
		path = path[2:]
	}
	path = filepath.Clean(path)
	path = filepath.ToSlash(path)
	if len(path) > 0 && path[0] == '/' {
		path = path[1:]
	}
	return path
}
