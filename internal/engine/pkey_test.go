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
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPrimaryKey_RejectsNull(t *testing.T) {
	_, err := NewPrimaryKey(NullDatacell(TagUint32))
	assert.Error(t, err)
}

func TestNewPrimaryKey_RejectsList(t *testing.T) {
	_, err := NewPrimaryKey(ListDatacell(TagUint8, nil))
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestNewPrimaryKey_RejectsBool(t *testing.T) {
	_, err := NewPrimaryKey(BoolDatacell(true))
	assert.ErrorIs(t, err, ErrUnsupportedKeyType)
}

func TestPrimaryKey_EqualIgnoresWidth(t *testing.T) {
	a, err := NewPrimaryKey(UintDatacell(TagUint16, 5))
	require.NoError(t, err)
	b, err := NewPrimaryKey(UintDatacell(TagUint64, 5))
	require.NoError(t, err)
	assert.True(t, a.Equal(b))
}

func TestPrimaryKey_CompareOrdersStrings(t *testing.T) {
	a, _ := NewPrimaryKey(mustString(t, "alpha"))
	b, _ := NewPrimaryKey(mustString(t, "beta"))
	c, ok := a.Compare(b)
	require.True(t, ok)
	assert.Less(t, c, 0)
}

func TestPrimaryKey_HashKeyStable(t *testing.T) {
	a, _ := NewPrimaryKey(UintDatacell(TagUint32, 42))
	b, _ := NewPrimaryKey(UintDatacell(TagUint32, 42))
	assert.Equal(t, a.HashKey(), b.HashKey())
}

func TestPrimaryKey_WireRoundTrip(t *testing.T) {
	k, err := NewPrimaryKey(mustString(t, "row-key"))
	require.NoError(t, err)
	buf := EncodePrimaryKey(nil, k)
	got, err := DecodePrimaryKey(bytes.NewReader(buf))
	require.NoError(t, err)
	assert.True(t, k.Equal(got))
}

func mustString(t *testing.T, s string) Datacell {
	t.Helper()
	d, err := StringDatacell(s)
	require.NoError(t, err)
	return d
}
