// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package sdss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCRC64_Deterministic(t *testing.T) {
	a := Checksum([]byte("the quick brown fox"))
	b := Checksum([]byte("the quick brown fox"))
	assert.Equal(t, a, b)
}

func TestCRC64_DiffersOnSingleByte(t *testing.T) {
	a := Checksum([]byte("batch-0001"))
	b := Checksum([]byte("batch-0002"))
	assert.NotEqual(t, a, b)
}

func TestCRC64_IncrementalMatchesOneShot(t *testing.T) {
	data := []byte("insert primary_key=42 name=sayan")
	oneShot := Checksum(data)

	d := NewCRC64()
	d.Update(data[:10])
	d.Update(data[10:])
	require.Equal(t, oneShot, d.Sum())
}

func TestCRC64_ResetClearsState(t *testing.T) {
	d := NewCRC64()
	d.Update([]byte("abc"))
	first := d.Sum()
	d.Reset()
	d.Update([]byte("abc"))
	assert.Equal(t, first, d.Sum())
}

func TestCRC64_EmptyInput(t *testing.T) {
	d := NewCRC64()
	assert.Equal(t, d.Sum(), d.Sum(), "calling Sum twice must not mutate state")
}
