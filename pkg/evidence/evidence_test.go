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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/shade/pkg/model"
)

func TestCompute_SingleAuthorOldUntouched(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	created := now.Add(-400 * 24 * time.Hour)

	vcs := NewFakeVCSClient()
	vcs.BlameByPath["token.ts"] = []BlameLine{
		{SHA: "a1", Author: "jane", Timestamp: created},
	}
	vcs.LogByPath["token.ts"] = []CommitInfo{
		{SHA: "a1", Author: "jane", Timestamp: created, Message: "initial commit"},
	}

	u := model.Unit{ID: "u1", FilePath: "token.ts", Span: model.Span{StartLine: 1, EndLine: 1}}
	ev, ok := Compute(context.Background(), vcs, u, now, DefaultWindows)
	require.True(t, ok)

	assert.Equal(t, 1, ev.DistinctAuthors)
	assert.False(t, ev.TouchedAfterCreation)
	assert.LessOrEqual(t, ev.ReviewEvidence, 10)
}

func TestCompute_TwoAuthorsRecentTouches(t *testing.T) {
	now := time.Date(2026, 7, 29, 0, 0, 0, 0, time.UTC)
	created := now.Add(-60 * 24 * time.Hour)
	recent := now.Add(-5 * 24 * time.Hour)

	vcs := NewFakeVCSClient()
	vcs.BlameByPath["hook.ts"] = []BlameLine{
		{SHA: "a1", Author: "jane", Timestamp: created},
		{SHA: "b2", Author: "bob", Timestamp: recent},
	}
	vcs.LogByPath["hook.ts"] = []CommitInfo{
		{SHA: "b2", Author: "bob", Timestamp: recent, Message: "refactor deps"},
		{SHA: "a1", Author: "jane", Timestamp: created, Message: "feat: add hook"},
	}

	u := model.Unit{ID: "u2", FilePath: "hook.ts", Span: model.Span{StartLine: 1, EndLine: 2}}
	ev, ok := Compute(context.Background(), vcs, u, now, DefaultWindows)
	require.True(t, ok)

	assert.Equal(t, 2, ev.DistinctAuthors)
	assert.True(t, ev.TouchedAfterCreation)
	assert.GreaterOrEqual(t, ev.TouchCount90d, 2)
	assert.GreaterOrEqual(t, ev.ReviewEvidence, 50)
}

func TestCompute_VCSUnavailable(t *testing.T) {
	vcs := NewFakeVCSClient()
	vcs.BlameErr = assertError{}

	u := model.Unit{ID: "u3", FilePath: "x.ts", Span: model.Span{StartLine: 1, EndLine: 5}}
	ev, ok := Compute(context.Background(), vcs, u, time.Now(), DefaultWindows)

	assert.False(t, ok)
	assert.True(t, ev.Unavailable)
	assert.Zero(t, ev.ReviewEvidence)
}

func TestNormalizeAuthor(t *testing.T) {
	assert.Equal(t, "jane", normalizeAuthor("<jane@example.com>"))
	assert.Equal(t, "jane.doe", normalizeAuthor("Jane.Doe@Example.com"))
}

func TestScoreReviewEvidenceClamped(t *testing.T) {
	ev := model.Evidence{
		DistinctAuthors:      3,
		TouchedAfterCreation: true,
		TouchCount90d:        10,
		CommitSignals:        []model.CommitSignal{model.SignalRefactor, model.SignalTest, model.SignalType},
	}
	assert.Equal(t, 80, scoreReviewEvidence(ev))
}

type assertError struct{}

func (assertError) Error() string { return "vcs unavailable" }
