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
	"fmt"

	"github.com/google/uuid"
)

// UUID is a 128-bit identifier assigned on entity birth (space, model) and
// immutable thereafter. It is encoded little-endian on disk, matching the
// layout the SDSS event log stores object identities in.
type UUID struct {
	data uuid.UUID
}

// NewUUID mints a fresh random UUID.
func NewUUID() UUID {
	return UUID{data: uuid.New()}
}

// UUIDFromBytes interprets 16 little-endian bytes as a UUID.
func UUIDFromBytes(b [16]byte) UUID {
	var be [16]byte
	for i := 0; i < 16; i++ {
		be[i] = b[15-i]
	}
	return UUID{data: uuid.UUID(be)}
}

// Bytes returns the 16-byte little-endian encoding of u.
func (u UUID) Bytes() [16]byte {
	be := [16]byte(u.data)
	var le [16]byte
	for i := 0; i < 16; i++ {
		le[i] = be[15-i]
	}
	return le
}

// String renders the canonical hyphenated form.
func (u UUID) String() string {
	return u.data.String()
}

// IsZero reports whether u is the all-zero UUID (the zero value of UUID).
func (u UUID) IsZero() bool {
	return u.data == uuid.Nil
}

func (u UUID) GoString() string {
	return fmt.Sprintf("UUID(%s)", u.data.String())
}
