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

package evidence

import (
	"context"
	"time"
)

// BlameLine is one line's authorship as reported by blame.
type BlameLine struct {
	SHA       string
	Author    string // normalized e-mail local-part
	Timestamp time.Time
}

// CommitInfo is one commit touching a path, as reported by log.
type CommitInfo struct {
	SHA       string
	Author    string
	Timestamp time.Time
	Message   string
}

// VCSClient is the injected version-control boundary. A real
// implementation shells out to git; tests substitute a fake in-memory
// store so Evidence is testable without a real history.
type VCSClient interface {
	// Blame returns one entry per line in [startLine, endLine] (inclusive,
	// 1-indexed) of path's current content.
	Blame(ctx context.Context, path string, startLine, endLine int) ([]BlameLine, error)

	// Log returns commits touching path at or after since, newest first.
	Log(ctx context.Context, path string, since time.Time) ([]CommitInfo, error)
}
