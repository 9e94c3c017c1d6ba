// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package engine is the in-memory namespace hierarchy and on-disk storage
// engine at the heart of the server: keyspace -> model -> row/field indexes,
// coupled to a Self-Describing Storage Substrate (SDSS) of an append-only
// event log plus per-model batch journals, and an executor that maps parsed
// DDL/DML/DCL statements onto that state.
//
// # Architecture
//
//	┌───────────────────────────────────────────────────────────────────┐
//	│                            Executor                                │
//	│        DDL          DML              DCL            Inspect        │
//	│  CreateSpace   Insert/Update/    CreateUser       global state      │
//	│  CreateModel   Delete/Select     AlterUser         view            │
//	│  AlterModel                      DropUser                          │
//	│  Drop*                                                              │
//	└───────────────────────────────┬──────────────────────────────────┘
//	                                │ validates, then commits
//	                                ▼
//	┌───────────────────────────────────────────────────────────────────┐
//	│                            GlobalNS                                 │
//	│   ┌─────────┐   ┌─────────┐         SystemDatabase (users)          │
//	│   │  Space  │...│  Space  │                                         │
//	│   └────┬────┘   └─────────┘                                        │
//	│        │ owns                                                      │
//	│   ┌────▼─────┐                                                     │
//	│   │ModelData │  schema + PrimaryIndex + DeltaState + batch journal  │
//	│   └────┬─────┘                                                     │
//	│        │ indexes                                                   │
//	│   ┌────▼─────┐                                                     │
//	│   │   Row    │  primary key (immutable) + field map (RWMutex)      │
//	│   └──────────┘                                                     │
//	└───────────────────────────────┬──────────────────────────────────┘
//	                                │ deltas enqueued on every mutation
//	                                ▼
//	┌───────────────────────────────────────────────────────────────────┐
//	│                     Delta state & flusher                          │
//	│   FIFO of {kind, row-ref, version} --> background persist loop      │
//	│   --> SDSS batch journal (per model) / event log (DDL, global)      │
//	└───────────────────────────────────────────────────────────────────┘
//
// # Concurrency
//
// GlobalNS uses a multi-reader/single-writer lock for the space map. Each
// ModelData's PrimaryIndex supports lock-free reads under an epoch guard and
// per-bucket write locks. The background flusher snapshots the
// pending-delta queue under that queue's own mutex (there is no separate
// model-level drain latch), so foreground writers are not blocked for the
// duration of a disk write. A row's
// field dictionary has its own reader-writer lock, independent of the index
// structure that owns it.
//
// # Durability
//
// Every state-changing operation is durable in the order it became visible:
// DDL/DCL append to the GNS event log before committing to memory; DML
// enqueues a delta that the background flusher later persists to the
// model's batch journal. A clean restart replays the event log to rebuild
// the namespace, then replays each model's batch journal to rebuild its
// rows.
package engine
