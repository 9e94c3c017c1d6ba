// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package sdss implements the Self-Describing Storage Substrate: the
// versioned, checksummed file container shared by the event log and the
// per-model batch journals.
package sdss

import "hash/crc64"

// crc64XZTable is the CRC-64/XZ polynomial. It happens to be the same
// polynomial Go's standard library ships as crc64.ECMA; what XZ adds on top
// is a non-zero init value and a non-zero final XOR (both all-ones), and
// crc64.Update already applies both on every call, so CRC64 carries the
// value crc64.Update returns through unchanged.
var crc64XZTable = crc64.MakeTable(crc64.ECMA)

// CRC64 is a running CRC-64/XZ digest. The zero value is ready to use.
type CRC64 struct {
	crc     uint64
	started bool
}

// NewCRC64 returns a fresh digest.
func NewCRC64() *CRC64 {
	return &CRC64{}
}

// Update folds b into the running digest.
func (c *CRC64) Update(b []byte) {
	c.started = true
	c.crc = crc64.Update(c.crc, crc64XZTable, b)
}

// Sum returns the finalized CRC-64/XZ checksum of everything folded in so
// far. Calling Sum does not consume the digest; further Update calls are
// valid and change the result.
func (c *CRC64) Sum() uint64 {
	return c.crc // zero before any Update: the CRC-64/XZ of empty input
}

// Reset clears the digest back to its zero state.
func (c *CRC64) Reset() {
	c.crc = 0
	c.started = false
}

// Checksum computes the CRC-64/XZ checksum of a single buffer in one call.
func Checksum(b []byte) uint64 {
	d := NewCRC64()
	d.Update(b)
	return d.Sum()
}
