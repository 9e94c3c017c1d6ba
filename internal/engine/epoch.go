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

import "sync/atomic"

// quiescentEpoch marks a reader slot as not currently in a read.
const quiescentEpoch = ^uint64(0)

const epochSlotCount = 128

// EpochGuard is a quiescent-state-based reclamation guard: readers announce
// the global epoch they observed on entry and clear that announcement on
// exit. A writer that has retired an object (a row removed by Delete) may
// treat it as safe to fully forget only once every announced reader epoch
// has advanced past the retirement point. PrimaryIndex uses this to let
// Lookup run with no per-read lock while a concurrent Delete swaps in a new
// bucket snapshot.
//
// This does not free memory itself — the garbage collector does that once
// nothing references a retired *Row — it exists so a retired row is never
// handed back out of a Lookup that raced a Delete, without making every
// read pay for a lock.
type EpochGuard struct {
	global uint64 // atomic
	slots  [epochSlotCount]atomic.Uint64
	next   atomic.Uint64
}

// NewEpochGuard returns a guard with every slot quiescent.
func NewEpochGuard() *EpochGuard {
	g := &EpochGuard{}
	for i := range g.slots {
		g.slots[i].Store(quiescentEpoch)
	}
	return g
}

// Enter announces the current global epoch in a reader slot and returns a
// token to pass to Exit.
func (g *EpochGuard) Enter() int {
	slot := int(g.next.Add(1) % epochSlotCount)
	g.slots[slot].Store(atomic.LoadUint64(&g.global))
	return slot
}

// Exit clears the reader slot acquired by Enter.
func (g *EpochGuard) Exit(slot int) {
	g.slots[slot].Store(quiescentEpoch)
}

// Advance bumps the global epoch, used after a writer retires an object so
// that subsequent readers announce a later epoch than the retirement.
func (g *EpochGuard) Advance() uint64 {
	return atomic.AddUint64(&g.global, 1)
}

// SafeToReclaim reports whether every announced reader epoch is at or past
// retiredAt, meaning no reader that could still observe the retired object
// is in flight.
func (g *EpochGuard) SafeToReclaim(retiredAt uint64) bool {
	for i := range g.slots {
		e := g.slots[i].Load()
		if e != quiescentEpoch && e < retiredAt {
			return false
		}
	}
	return true
}
