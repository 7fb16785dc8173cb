package types

import (
	"fmt"
	"strings"

	"github.com/vvksh/SimpleDB/dberrors"
)

// Tuple is a schema plus a position-indexed sequence of field values of
// matching types. A tuple optionally carries a RecordId once placed on a
// page.
type Tuple struct {
	schema   *Schema
	fields   []Field
	recordID *RecordId
}

// NewTuple builds an unplaced tuple (no RecordId) from a schema and a
// matching field slice.
func NewTuple(schema *Schema, fields []Field) (*Tuple, error) {
	if schema.NumFields() != len(fields) {
		return nil, dberrors.NewIllegalArgument("tuple field count does not match schema")
	}
	for i, f := range fields {
		want, _ := schema.FieldType(i)
		if f.Type() != want {
			return nil, dberrors.NewIllegalArgument(fmt.Sprintf("tuple field type mismatch at index %d", i))
		}
	}
	cp := make([]Field, len(fields))
	copy(cp, fields)
	return &Tuple{schema: schema, fields: cp}, nil
}

// Schema returns the tuple's schema.
func (t *Tuple) Schema() *Schema { return t.schema }

// Field returns the value at index i.
func (t *Tuple) Field(i int) (Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, dberrors.NewNoSuchElement("field index out of range")
	}
	return t.fields[i], nil
}

// SetField overwrites the value at index i, in place.
func (t *Tuple) SetField(i int, f Field) error {
	if i < 0 || i >= len(t.fields) {
		return dberrors.NewNoSuchElement("field index out of range")
	}
	t.fields[i] = f
	return nil
}

// RecordID returns the tuple's location, or nil if it has not been placed.
func (t *Tuple) RecordID() *RecordId { return t.recordID }

// SetRecordID sets the tuple's location.
func (t *Tuple) SetRecordID(rid *RecordId) { t.recordID = rid }

// Clone returns a value copy of the tuple (its field slice and RecordId
// are copied; a Field value itself is immutable).
func (t *Tuple) Clone() *Tuple {
	fields := make([]Field, len(t.fields))
	copy(fields, t.fields)
	var rid *RecordId
	if t.recordID != nil {
		r := *t.recordID
		rid = &r
	}
	return &Tuple{schema: t.schema, fields: fields, recordID: rid}
}

func (t *Tuple) String() string {
	parts := make([]string, len(t.fields))
	for i, f := range t.fields {
		parts[i] = f.String()
	}
	return strings.Join(parts, "\t")
}
