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

import "runtime"

// estimatedDeltaSizeBytes is a conservative guess at the in-memory
// footprint of one queued DataDelta (the Row pointer, the key, and a
// typical field snapshot), used only to turn a memory budget into a count.
const estimatedDeltaSizeBytes = 256

// defaultDeltaBudgetFraction is the share of currently-available heap
// space a single model's delta queue may occupy before backpressure
// kicks in. Conservative, since a server run with many models divides the
// same budget many times over.
const defaultDeltaBudgetFraction = 0.02

// MemoryStats is the subset of runtime.MemStats the cap computation reads,
// narrowed to an argument so ComputeDeltaCap is testable without
// depending on the live runtime heap.
type MemoryStats struct {
	// Sys is the total memory obtained from the OS, matching
	// runtime.MemStats.Sys.
	Sys uint64
	// HeapAlloc is bytes of allocated, reachable heap objects, matching
	// runtime.MemStats.HeapAlloc.
	HeapAlloc uint64
}

// CurrentMemoryStats snapshots the live Go runtime's memory stats.
func CurrentMemoryStats() MemoryStats {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemoryStats{Sys: m.Sys, HeapAlloc: m.HeapAlloc}
}

// ComputeDeltaCap derives a per-model delta-queue cap from free memory and
// the number of models sharing the budget. The result is never below
// minDeltaCap, so a memory-constrained host still makes forward progress
// rather than wedging every model's writes behind backpressure
// immediately at startup.
const minDeltaCap = 256

func ComputeDeltaCap(stats MemoryStats, modelCount int) int {
	if modelCount < 1 {
		modelCount = 1
	}
	var free uint64
	if stats.Sys > stats.HeapAlloc {
		free = stats.Sys - stats.HeapAlloc
	}
	budget := float64(free) * defaultDeltaBudgetFraction / float64(modelCount)
	deltaCap := int(budget / estimatedDeltaSizeBytes)
	if deltaCap < minDeltaCap {
		deltaCap = minDeltaCap
	}
	return deltaCap
}
