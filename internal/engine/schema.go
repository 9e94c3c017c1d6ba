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

	"github.com/go-playground/validator/v10"

	"github.com/skytable/skytable-sub007/pkg/validation"
)

var structValidate = validator.New(validator.WithRequiredStructEnabled())

// Field is one named, typed column in a model's schema.
type Field struct {
	Name     string `validate:"required"`
	Tag      Tag
	Nullable bool
}

// Schema is a model's field layout: an ordered field list plus the name of
// the one field that serves as the primary key. Schema is immutable once a
// model is created; ALTER MODEL produces a new Schema value that replaces
// the old one under the model's write lock.
type Schema struct {
	PrimaryKeyField string
	Fields          []Field
	byName          map[string]Field
}

// NewSchema validates and builds a Schema. pkField must name a field
// present in fields whose tag is a valid primary-key class and which is
// not nullable.
func NewSchema(pkField string, fields []Field) (Schema, error) {
	if len(fields) == 0 {
		return Schema{}, fmt.Errorf("engine: schema must declare at least one field")
	}
	byName := make(map[string]Field, len(fields))
	for _, f := range fields {
		if err := validation.ValidateIdentifier(f.Name); err != nil {
			return Schema{}, fmt.Errorf("engine: field %q: %w", f.Name, err)
		}
		if err := structValidate.Struct(f); err != nil {
			return Schema{}, fmt.Errorf("engine: field %q: %w", f.Name, err)
		}
		if _, dup := byName[f.Name]; dup {
			return Schema{}, fmt.Errorf("engine: duplicate field name %q", f.Name)
		}
		byName[f.Name] = f
	}
	pk, ok := byName[pkField]
	if !ok {
		return Schema{}, fmt.Errorf("engine: primary key field %q not declared", pkField)
	}
	if pk.Nullable {
		return Schema{}, fmt.Errorf("engine: primary key field %q must not be nullable", pkField)
	}
	switch pk.Tag.Class {
	case TagClassUint, TagClassSint, TagClassBinary, TagClassString:
	default:
		return Schema{}, fmt.Errorf("engine: primary key field %q has unsupported type %s", pkField, pk.Tag)
	}
	return Schema{PrimaryKeyField: pkField, Fields: append([]Field(nil), fields...), byName: byName}, nil
}

// Field looks up a declared field by name.
func (s Schema) Field(name string) (Field, bool) {
	f, ok := s.byName[name]
	return f, ok
}

// PrimaryKeyTag returns the declared tag of the primary key field.
func (s Schema) PrimaryKeyTag() Tag {
	return s.byName[s.PrimaryKeyField].Tag
}

// ValidateRow checks that values contains exactly the schema's non-nullable
// fields (nullable fields may be omitted, meaning null) and that every
// present value's tag matches its field's declared tag exactly (storage
// width included — an insert that supplies a uint16 for a uint64 column is
// a schema violation, not an implicit widening).
func (s Schema) ValidateRow(values map[string]Datacell) error {
	for name, f := range s.byName {
		v, present := values[name]
		if !present {
			if !f.Nullable {
				return fmt.Errorf("engine: field %q is required", name)
			}
			continue
		}
		if v.IsNull() {
			if !f.Nullable {
				return fmt.Errorf("engine: field %q must not be null", name)
			}
			continue
		}
		if !v.Tag().Equal(f.Tag) {
			return fmt.Errorf("engine: field %q: expected %s, got %s", name, f.Tag, v.Tag())
		}
	}
	for name := range values {
		if _, declared := s.byName[name]; !declared {
			return fmt.Errorf("engine: field %q is not declared on this model", name)
		}
	}
	return nil
}

// WithField returns a copy of s with f added, used by ALTER MODEL ADD.
func (s Schema) WithField(f Field) (Schema, error) {
	fields := append(append([]Field(nil), s.Fields...), f)
	return NewSchema(s.PrimaryKeyField, fields)
}

// WithoutField returns a copy of s with the named field removed, used by
// ALTER MODEL REMOVE. Removing the primary key field is rejected.
func (s Schema) WithoutField(name string) (Schema, error) {
	if name == s.PrimaryKeyField {
		return Schema{}, fmt.Errorf("engine: cannot remove primary key field %q", name)
	}
	fields := make([]Field, 0, len(s.Fields))
	found := false
	for _, f := range s.Fields {
		if f.Name == name {
			found = true
			continue
		}
		fields = append(fields, f)
	}
	if !found {
		return Schema{}, fmt.Errorf("engine: field %q not declared", name)
	}
	return NewSchema(s.PrimaryKeyField, fields)
}
