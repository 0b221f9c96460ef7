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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kraklabs/shade/pkg/model"
)

func extractSource(t *testing.T, path, source string) []model.Unit {
	t.Helper()
	p := NewParser(nil)
	units, err := ExtractFile(context.Background(), p, path, []byte(source))
	require.NoError(t, err)
	return units
}

func unitByName(t *testing.T, units []model.Unit, name string) model.Unit {
	t.Helper()
	for _, u := range units {
		if u.Name == name {
			return u
		}
	}
	t.Fatalf("no unit named %q in %d units", name, len(units))
	return model.Unit{}
}

const mixedTSX = `
import { useState, useEffect } from "react";

export function ProfileCard(props) {
	const [user, setUser] = useState(null);
	useEffect(() => {
		const sub = subscribe(props.id, setUser);
		return () => sub.close();
	}, [props]);
	return <div className="card">{user?.name}</div>;
}

export function useWindowWidth() {
	const [width, setWidth] = useState(0);
	return width;
}

function formatCurrency(amount, locale) {
	const formatter = new Intl.NumberFormat(locale);
	const value = formatter.format(amount);
	return value;
}

const tiny = (a) => a + 1;
`

func TestExtractFile_ClassifiesKinds(t *testing.T) {
	units := extractSource(t, "src/Profile.tsx", mixedTSX)

	assert.Equal(t, model.KindComponent, unitByName(t, units, "ProfileCard").Kind)
	assert.Equal(t, model.KindHook, unitByName(t, units, "useWindowWidth").Kind)
	assert.Equal(t, model.KindFunction, unitByName(t, units, "formatCurrency").Kind)

	for _, u := range units {
		assert.NotEqual(t, "tiny", u.Name, "one-line arrow must not be promoted")
	}
}

func TestExtractFile_NestedFunctionsAreNotPromoted(t *testing.T) {
	source := `
function outerHandler(payload) {
	const normalize = (entry) => {
		if (!entry) {
			return null;
		}
		return entry.value;
	};
	return payload.map(normalize);
}
`
	units := extractSource(t, "src/handler.ts", source)
	require.Len(t, units, 1)
	assert.Equal(t, "outerHandler", units[0].Name)
}

func TestExtractFile_StructuralFeatures(t *testing.T) {
	source := `
function resolveAccess(token, flags) {
	if (!token) {
		return false;
	}
	if (token.expired && flags.strict) {
		if (flags.retry || token.refreshable) {
			try {
				refresh(token);
			} catch (e) {
			}
		}
	}
	return token.valid ? true : false;
}
`
	units := extractSource(t, "src/access.ts", source)
	u := unitByName(t, units, "resolveAccess")

	assert.GreaterOrEqual(t, u.NestingDepth, 3)
	// Three ifs plus one ternary.
	assert.GreaterOrEqual(t, u.BranchCount, 4)
	// One && and one ||.
	assert.GreaterOrEqual(t, u.BooleanOperators, 2)
	assert.Equal(t, 1, u.EarlyReturns)
	assert.Equal(t, 1, u.TryCatchCount)
	assert.False(t, u.TryWithoutCatch)
}

func TestExtractFile_EffectDepsAndCleanup(t *testing.T) {
	source := `
export function useDataFetch(url) {
	const [data, setData] = useState(null);
	useEffect(() => {
		const controller = new AbortController();
		fetch(url, { signal: controller.signal }).then(setData);
		return () => controller.abort();
	}, [url]);
	return data;
}
`
	units := extractSource(t, "src/useDataFetch.ts", source)
	u := unitByName(t, units, "useDataFetch")

	require.Len(t, u.HookEffects, 1)
	eff := u.HookEffects[0]
	assert.Equal(t, "useEffect", eff.Callee)
	assert.True(t, eff.DepsPresent)
	assert.Equal(t, []string{"url"}, eff.Deps)
	assert.True(t, eff.HasCleanup)
	// The fetch lives inside the effect callback, so it is not a render
	// side effect even for component-shaped callers.
	assert.Equal(t, 0, u.RenderSideEffects)
}

func TestExtractFile_RenderSideEffectOutsideEffect(t *testing.T) {
	source := `
export function Dashboard(props) {
	fetch("/api/stats").then(props.onStats);
	return <section>{props.title}</section>;
}
`
	units := extractSource(t, "src/Dashboard.tsx", source)
	u := unitByName(t, units, "Dashboard")

	assert.Equal(t, model.KindComponent, u.Kind)
	assert.GreaterOrEqual(t, u.RenderSideEffects, 1)
}

func TestExtractFile_MissingDepsDetected(t *testing.T) {
	source := `
export function useTicker(interval) {
	useEffect(() => {
		setInterval(tick, interval);
	});
	return interval;
}
`
	units := extractSource(t, "src/useTicker.ts", source)
	u := unitByName(t, units, "useTicker")

	require.Len(t, u.HookEffects, 1)
	assert.False(t, u.HookEffects[0].DepsPresent)
	assert.True(t, u.HasUnstableEffect())
}

func TestExtractFile_MalformedInputYieldsPartialResult(t *testing.T) {
	source := `
function intactHelper(a, b) {
	const sum = a + b;
	const doubled = sum * 2;
	return doubled;
}

function broken(   {{{
`
	p := NewParser(nil)
	units, err := ExtractFile(context.Background(), p, "src/broken.ts", []byte(source))
	require.NoError(t, err, "malformed regions must not fail the scan")

	assert.Equal(t, "intactHelper", unitByName(t, units, "intactHelper").Name)
}

func TestExtractFile_CommentOnlyFileHasNoUnits(t *testing.T) {
	units := extractSource(t, "src/notes.ts", "// nothing here\n/* still nothing */\n")
	assert.Empty(t, units)
}
