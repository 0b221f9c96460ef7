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
	"regexp"
	"time"

	"github.com/kraklabs/shade/pkg/model"
)

// Windows are the configurable touch-count windows; defaults per
// spec are 30 and 90 days.
type Windows struct {
	Short time.Duration
	Long  time.Duration
}

// DefaultWindows is the stock 30d/90d pair.
var DefaultWindows = Windows{Short: 30 * 24 * time.Hour, Long: 90 * 24 * time.Hour}

// signalPatterns is the fixed commit-signal vocabulary, matched
// case-insensitively as whole words.
var signalPatterns = map[model.CommitSignal]*regexp.Regexp{
	model.SignalRefactor: regexp.MustCompile(`(?i)\brefactor\b`),
	model.SignalTest:     regexp.MustCompile(`(?i)\btest\b`),
	model.SignalType:     regexp.MustCompile(`(?i)\btype\b`),
	model.SignalFix:      regexp.MustCompile(`(?i)\bfix\b`),
	model.SignalChore:    regexp.MustCompile(`(?i)\bchore\b`),
	model.SignalFeat:     regexp.MustCompile(`(?i)\bfeat\b`),
}

// orderedSignals fixes iteration order so signal extraction is
// deterministic regardless of map ordering.
var orderedSignals = []model.CommitSignal{
	model.SignalRefactor, model.SignalTest, model.SignalType,
	model.SignalFix, model.SignalChore, model.SignalFeat,
}

// Compute attributes a Unit's span to commit history via vcs and produces
// its Evidence. now is the scan time the touch-count windows are
// measured against. A VCS error degrades to all-zero Evidence with
// Unavailable set and ok=false; the caller should record a ScanWarning
// rather than fail the scan.
func Compute(ctx context.Context, vcs VCSClient, u model.Unit, now time.Time, w Windows) (model.Evidence, bool) {
	blame, err := vcs.Blame(ctx, u.FilePath, u.Span.StartLine, u.Span.EndLine)
	if err != nil || len(blame) == 0 {
		return model.Evidence{UnitID: u.ID, Unavailable: true}, false
	}

	authors := map[string]bool{}
	var t0 time.Time
	for _, b := range blame {
		if b.Author != "" {
			authors[b.Author] = true
		}
		if t0.IsZero() || b.Timestamp.Before(t0) {
			t0 = b.Timestamp
		}
	}

	log, err := vcs.Log(ctx, u.FilePath, t0)
	if err != nil {
		return model.Evidence{UnitID: u.ID, Unavailable: true}, false
	}

	lastTouch := t0
	touch30, touch90 := 0, 0
	signalSet := map[model.CommitSignal]bool{}
	for _, c := range log {
		if c.Author != "" {
			authors[c.Author] = true
		}
		if c.Timestamp.After(lastTouch) {
			lastTouch = c.Timestamp
		}
		if now.Sub(c.Timestamp) <= w.Short {
			touch30++
		}
		if now.Sub(c.Timestamp) <= w.Long {
			touch90++
		}
		for _, sig := range orderedSignals {
			if signalPatterns[sig].MatchString(c.Message) {
				signalSet[sig] = true
			}
		}
	}

	var signals []model.CommitSignal
	for _, sig := range orderedSignals {
		if signalSet[sig] {
			signals = append(signals, sig)
		}
	}

	ev := model.Evidence{
		UnitID:               u.ID,
		DistinctAuthors:      len(authors),
		TouchedAfterCreation: lastTouch.After(t0.Add(24 * time.Hour)),
		TouchCount30d:        touch30,
		TouchCount90d:        touch90,
		CommitSignals:        signals,
		CreatedAt:            t0,
		LastTouchedAt:        lastTouch,
	}
	ev.ReviewEvidence = scoreReviewEvidence(ev)
	return ev, true
}

// scoreReviewEvidence implements the deterministic additive scoring model,
// clamped to [0, 100]. The 20-point external-PR-review addend is reserved
// at zero until an interface exists for it.
func scoreReviewEvidence(ev model.Evidence) int {
	score := 0
	if ev.DistinctAuthors >= 2 {
		score += 30
	}
	if ev.TouchedAfterCreation {
		score += 20
	}
	if ev.TouchCount90d >= 2 {
		score += 20
	}
	if hasAnySignal(ev.CommitSignals, model.SignalRefactor, model.SignalTest, model.SignalType) {
		score += 10
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}

func hasAnySignal(signals []model.CommitSignal, want ...model.CommitSignal) bool {
	set := map[model.CommitSignal]bool{}
	for _, s := range signals {
		set[s] = true
	}
	for _, w := range want {
		if set[w] {
			return true
		}
	}
	return false
}
