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

func roundTrip(t *testing.T, d Datacell) Datacell {
	t.Helper()
	buf := EncodeDatacell(nil, d)
	r := bytes.NewReader(buf)
	got, err := DecodeDatacell(r)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Len(), "decoder must consume exactly the encoded bytes")
	return got
}

func TestDatacell_ScalarRoundTrip(t *testing.T) {
	cases := []Datacell{
		BoolDatacell(true),
		BoolDatacell(false),
		UintDatacell(TagUint8, 0xFF),
		UintDatacell(TagUint16, 0xBEEF),
		UintDatacell(TagUint32, 0xCAFEBABE),
		UintDatacell(TagUint64, 0x0123456789ABCDEF),
		SintDatacell(TagSint8, -1),
		SintDatacell(TagSint64, -9223372036854775808),
		FloatDatacell(TagFloat32, 3.5),
		FloatDatacell(TagFloat64, -2.718281828),
		BinaryDatacell([]byte{0x00, 0xFF, 0x10}),
	}
	for _, c := range cases {
		got := roundTrip(t, c)
		assert.True(t, c.Equal(got), "%v != %v", c, got)
	}
}

func TestDatacell_StringRoundTrip(t *testing.T) {
	d, err := StringDatacell("hello, world")
	require.NoError(t, err)
	got := roundTrip(t, d)
	s, ok := got.String()
	require.True(t, ok)
	assert.Equal(t, "hello, world", s)
}

func TestDatacell_StringRejectsInvalidUTF8(t *testing.T) {
	_, err := StringDatacell(string([]byte{0xff, 0xfe, 0xfd}))
	assert.Error(t, err)
}

func TestDatacell_NullRoundTrip(t *testing.T) {
	d := NullDatacell(TagUint32)
	got := roundTrip(t, d)
	assert.True(t, got.IsNull())
}

func TestDatacell_ListRoundTrip(t *testing.T) {
	items := []Datacell{
		UintDatacell(TagUint32, 1),
		UintDatacell(TagUint32, 2),
		UintDatacell(TagUint32, 3),
	}
	d := ListDatacell(TagUint32, items)
	got := roundTrip(t, d)
	list, ok := got.List()
	require.True(t, ok)
	require.Len(t, list, 3)
	for i, item := range list {
		assert.True(t, item.Equal(items[i]))
	}
}

func TestDatacell_NestedListRoundTrip(t *testing.T) {
	inner1 := ListDatacell(TagUint8, []Datacell{UintDatacell(TagUint8, 1)})
	inner2 := ListDatacell(TagUint8, []Datacell{UintDatacell(TagUint8, 2)})
	outer := ListDatacell(TagList(TagUint8), []Datacell{inner1, inner2})
	got := roundTrip(t, outer)
	list, ok := got.List()
	require.True(t, ok)
	require.Len(t, list, 2)
	assert.True(t, list[0].Equal(inner1))
}

func TestDatacell_Clone_DeepCopiesBuffers(t *testing.T) {
	d := BinaryDatacell([]byte{1, 2, 3})
	c := d.Clone()
	b, _ := d.Bytes()
	cb, _ := c.Bytes()
	b[0] = 0xFF
	assert.NotEqual(t, b[0], cb[0])
}

func TestDatacell_DecodeUnknownDiscriminant(t *testing.T) {
	_, err := DecodeDatacell(bytes.NewReader([]byte{0x7F}))
	assert.Error(t, err)
}

func TestDatacell_UintMasksToWidth(t *testing.T) {
	d := UintDatacell(TagUint8, 0x1FF)
	u, _ := d.Uint()
	assert.Equal(t, uint64(0xFF), u)
}
