// Copyright 2025 KrakLabs
// SPDX-License-Identifier: AGPL-3.0-or-later

package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Value string `json:"value"`
}

func TestPutGet_RoundTrips(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	key := Key("file-hash", "parser-v1", "extractor-v1")
	require.NoError(t, s.Put(key, sample{Value: "hello"}, time.Hour))

	var out sample
	hit, err := s.Get(key, &out)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "hello", out.Value)
}

func TestGet_MissReturnsFalse(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	var out sample
	hit, err := s.Get(Key("nonexistent"), &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGet_ExpiredEntryIsAMiss(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	key := Key("stale")
	require.NoError(t, s.Put(key, sample{Value: "x"}, -time.Second))

	var out sample
	hit, err := s.Get(key, &out)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestGetOrCompute_OnlyCallsFnOnMiss(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	key := Key("computed")
	calls := 0
	fn := func() (sample, error) {
		calls++
		return sample{Value: "computed-once"}, nil
	}

	first, err := GetOrCompute(s, key, time.Hour, fn)
	require.NoError(t, err)
	second, err := GetOrCompute(s, key, time.Hour, fn)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.Equal(t, first, second)
}

func TestKey_StableAndOrderSensitive(t *testing.T) {
	assert.Equal(t, Key("a", "b"), Key("a", "b"))
	assert.NotEqual(t, Key("a", "b"), Key("b", "a"))
	assert.NotEqual(t, Key("a", "b"), Key("ab"))
}

func TestPrune_RemovesExpiredOnly(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, s.Put(Key("fresh"), sample{Value: "keep"}, time.Hour))
	require.NoError(t, s.Put(Key("stale"), sample{Value: "drop"}, -time.Second))

	removed, err := s.Prune(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	var out sample
	hit, _ := s.Get(Key("fresh"), &out)
	assert.True(t, hit)
}

func TestKindTTL(t *testing.T) {
	assert.Equal(t, 7*24*time.Hour, KindUnitFeatures.TTL(true))
	assert.Equal(t, 24*time.Hour, KindUnitFeatures.TTL(false))
}
