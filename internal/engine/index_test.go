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

func TestPrimaryIndex_InsertLookupDelete(t *testing.T) {
	idx := NewPrimaryIndex()
	pk := testPK(t, 1)
	row := NewRow(pk, map[string]Datacell{"n": UintDatacell(TagUint64, 1)})

	require.NoError(t, idx.Insert(row))
	assert.EqualValues(t, 1, idx.Count())

	got, ok := idx.Lookup(pk)
	require.True(t, ok)
	assert.Equal(t, row, got)

	_, err := idx.Delete(pk)
	require.NoError(t, err)
	_, ok = idx.Lookup(pk)
	assert.False(t, ok)
	assert.EqualValues(t, 0, idx.Count())
}

func TestPrimaryIndex_InsertDuplicateFails(t *testing.T) {
	idx := NewPrimaryIndex()
	pk := testPK(t, 1)
	require.NoError(t, idx.Insert(NewRow(pk, nil)))
	err := idx.Insert(NewRow(pk, nil))
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestPrimaryIndex_UpdateMissingFails(t *testing.T) {
	idx := NewPrimaryIndex()
	_, err := idx.Update(testPK(t, 99), map[string]Datacell{})
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestPrimaryIndex_DeleteMissingFails(t *testing.T) {
	idx := NewPrimaryIndex()
	_, err := idx.Delete(testPK(t, 99))
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestPrimaryIndex_RangeSkipsDeleted(t *testing.T) {
	idx := NewPrimaryIndex()
	for i := uint64(0); i < 5; i++ {
		require.NoError(t, idx.Insert(NewRow(testPK(t, i), nil)))
	}
	_, err := idx.Delete(testPK(t, 2))
	require.NoError(t, err)

	seen := 0
	idx.Range(func(row *Row) bool {
		seen++
		return true
	})
	assert.Equal(t, 4, seen)
}

func TestPrimaryIndex_ConcurrentDistinctKeys(t *testing.T) {
	idx := NewPrimaryIndex()
	var wg sync.WaitGroup
	for i := uint64(0); i < 200; i++ {
		wg.Add(1)
		go func(n uint64) {
			defer wg.Done()
			_ = idx.Insert(NewRow(testPK(t, n), map[string]Datacell{"n": UintDatacell(TagUint64, n)}))
		}(i)
	}
	wg.Wait()
	assert.EqualValues(t, 200, idx.Count())
}

func TestPrimaryIndex_LookupNotFoundForMissingKey(t *testing.T) {
	idx := NewPrimaryIndex()
	_, ok := idx.Lookup(testPK(t, 12345))
	assert.False(t, ok)
}
