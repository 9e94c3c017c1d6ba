// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPK(t *testing.T, v uint64) PrimaryKey {
	t.Helper()
	k, err := NewPrimaryKey(UintDatacell(TagUint64, v))
	require.NoError(t, err)
	return k
}

func TestRow_ApplyBumpsVersion(t *testing.T) {
	r := NewRow(testPK(t, 1), map[string]Datacell{"name": mustString(t, "a")})
	assert.Equal(t, uint64(1), r.Version())
	v := r.Apply(map[string]Datacell{"name": mustString(t, "b")})
	assert.Equal(t, uint64(2), v)
	got, ok := r.Get("name")
	require.True(t, ok)
	s, _ := got.String()
	assert.Equal(t, "b", s)
}

func TestRow_SnapshotIsIndependentCopy(t *testing.T) {
	r := NewRow(testPK(t, 1), map[string]Datacell{"bin": BinaryDatacell([]byte{1, 2, 3})})
	snap, version := r.Snapshot()
	assert.Equal(t, uint64(1), version)
	b, _ := snap["bin"].Bytes()
	b[0] = 0xFF
	live, _ := r.Get("bin")
	liveB, _ := live.Bytes()
	assert.Equal(t, byte(1), liveB[0])
}

func TestRow_MarkDeleted(t *testing.T) {
	r := NewRow(testPK(t, 1), map[string]Datacell{})
	assert.False(t, r.IsDeleted())
	r.MarkDeleted()
	assert.True(t, r.IsDeleted())
}

func TestRow_ConcurrentApplyIsRace_Free(t *testing.T) {
	r := NewRow(testPK(t, 1), map[string]Datacell{"n": UintDatacell(TagUint64, 0)})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			r.Apply(map[string]Datacell{"n": UintDatacell(TagUint64, n)})
		}(uint64(i))
	}
	wg.Wait()
	assert.Equal(t, uint64(51), r.Version())
}
