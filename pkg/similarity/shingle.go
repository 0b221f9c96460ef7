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

package similarity

import "strings"

const shingleSize = 4

// Shingles returns the set of distinct 4-gram token shingles, each
// joined with a separator that cannot appear inside a single token.
func Shingles(tokens []string) map[string]bool {
	set := map[string]bool{}
	if len(tokens) < shingleSize {
		if len(tokens) > 0 {
			set[strings.Join(tokens, "\x1f")] = true
		}
		return set
	}
	for i := 0; i+shingleSize <= len(tokens); i++ {
		set[strings.Join(tokens[i:i+shingleSize], "\x1f")] = true
	}
	return set
}
