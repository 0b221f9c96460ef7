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

// FakeVCSClient is an in-memory VCSClient for tests. Blame/Log results
// are keyed by path.
type FakeVCSClient struct {
	BlameByPath map[string][]BlameLine
	LogByPath   map[string][]CommitInfo
	BlameErr    error
	LogErr      error
}

// NewFakeVCSClient constructs an empty fake.
func NewFakeVCSClient() *FakeVCSClient {
	return &FakeVCSClient{
		BlameByPath: map[string][]BlameLine{},
		LogByPath:   map[string][]CommitInfo{},
	}
}

func (f *FakeVCSClient) Blame(_ context.Context, path string, startLine, endLine int) ([]BlameLine, error) {
	if f.BlameErr != nil {
		return nil, f.BlameErr
	}
	all := f.BlameByPath[path]
	var out []BlameLine
	for i, b := range all {
		line := i + 1
		if line >= startLine && line <= endLine {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *FakeVCSClient) Log(_ context.Context, path string, since time.Time) ([]CommitInfo, error) {
	if f.LogErr != nil {
		return nil, f.LogErr
	}
	var out []CommitInfo
	for _, c := range f.LogByPath[path] {
		if !c.Timestamp.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}
