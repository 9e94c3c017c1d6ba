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
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEpochGuard_SafeToReclaimWithNoReaders(t *testing.T) {
	g := NewEpochGuard()
	assert.True(t, g.SafeToReclaim(0))
}

func TestEpochGuard_NotSafeWhileReaderInFlight(t *testing.T) {
	g := NewEpochGuard()
	slot := g.Enter()
	retiredAt := g.Advance()
	assert.False(t, g.SafeToReclaim(retiredAt))
	g.Exit(slot)
	assert.True(t, g.SafeToReclaim(retiredAt))
}

func TestEpochGuard_AdvanceMonotonic(t *testing.T) {
	g := NewEpochGuard()
	a := g.Advance()
	b := g.Advance()
	assert.Less(t, a, b)
}
