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

import "fmt"

// ApplyGNSEvents replays events (as returned by ReplayEventLog) into ns,
// reconstructing every space, model, and user account. ns must have been
// built with a nil event log (NewGlobalNS(nil, ...)) so replay never
// re-appends what it is reading back; call ns.AttachEventLog once replay
// finishes and the real log is ready to accept new writes.
//
// journalFactory opens the per-model batch journal a CreateModel event
// needs; it is the same factory an Executor uses for live CREATE MODEL
// calls.
func ApplyGNSEvents(ns *GlobalNS, events []GNSEvent, journalFactory JournalFactory) error {
	for i, ev := range events {
		if err := applyGNSEvent(ns, ev, journalFactory); err != nil {
			return fmt.Errorf("engine: replay event %d (%s): %w", i, ev.Opcode, err)
		}
	}
	return nil
}

func applyGNSEvent(ns *GlobalNS, ev GNSEvent, journalFactory JournalFactory) error {
	switch ev.Opcode {
	case OpCreateSpace:
		name, id, err := DecodeCreateSpacePayload(ev.Payload)
		if err != nil {
			return err
		}
		space, err := NewSpaceWithUUID(name, id, nil)
		if err != nil {
			return err
		}
		return ns.CreateSpace(space)

	case OpAlterSpace:
		name, key, value, err := DecodeAlterSpacePayload(ev.Payload)
		if err != nil {
			return err
		}
		return ns.AlterSpace(name, key, value)

	case OpDropSpace:
		name, err := DecodeDropSpacePayload(ev.Payload)
		if err != nil {
			return err
		}
		return ns.DropSpace(name)

	case OpCreateModel:
		spaceName, modelName, schema, err := DecodeModelEventPayload(ev.Payload)
		if err != nil {
			return err
		}
		var journal BatchJournalHandle
		if journalFactory != nil {
			journal, err = journalFactory(spaceName, modelName)
			if err != nil {
				return fmt.Errorf("open batch journal for %s.%s: %w", spaceName, modelName, err)
			}
		}
		deltaCap := 0
		if space, ok := ns.Space(spaceName); ok {
			deltaCap = ComputeDeltaCap(CurrentMemoryStats(), len(space.ModelNames())+1)
		}
		model, err := NewModelData(modelName, schema, journal, deltaCap)
		if err != nil {
			return err
		}
		return ns.CreateModel(spaceName, model)

	case OpAlterModel:
		spaceName, modelName, schema, err := DecodeModelEventPayload(ev.Payload)
		if err != nil {
			return err
		}
		return ns.AlterModelSchema(spaceName, modelName, schema)

	case OpDropModel:
		spaceName, modelName, err := DecodeDropModelPayload(ev.Payload)
		if err != nil {
			return err
		}
		_, err = ns.DropModel(spaceName, modelName)
		return err

	case OpCreateUser:
		username, hash, err := DecodeUserEventPayload(ev.Payload)
		if err != nil {
			return err
		}
		return ns.CreateUser(username, hash)

	case OpAlterUser:
		username, hash, err := DecodeUserEventPayload(ev.Payload)
		if err != nil {
			return err
		}
		return ns.AlterUser(username, hash)

	case OpDropUser:
		username, err := DecodeDropUserPayload(ev.Payload)
		if err != nil {
			return err
		}
		return ns.DropUser(RootUsername, username)

	default:
		return fmt.Errorf("unknown GNS opcode %d", ev.Opcode)
	}
}

// ApplyBatchEvents replays a model's batch-journal events (as returned by
// ReplayBatchJournal) into its in-memory primary index. Called once per
// model after ApplyGNSEvents has applied the whole event log, before the
// server accepts any live traffic.
func ApplyBatchEvents(model *ModelData, events []BatchEvent) error {
	for i, ev := range events {
		if err := applyBatchEvent(model, ev); err != nil {
			return fmt.Errorf("engine: replay batch event %d: %w", i, err)
		}
	}
	return nil
}

func applyBatchEvent(model *ModelData, ev BatchEvent) error {
	switch ev.Kind {
	case DeltaInsert:
		row := NewRow(ev.Key, ev.Fields)
		return model.Index().Insert(row)
	case DeltaUpdate:
		_, err := model.Index().Update(ev.Key, ev.Fields)
		return err
	case DeltaDelete:
		_, err := model.Index().Delete(ev.Key)
		return err
	default:
		return fmt.Errorf("unknown delta kind %d", ev.Kind)
	}
}
