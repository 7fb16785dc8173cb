package types

import "github.com/vvksh/SimpleDB/dberrors"

// FieldDesc is one (Type, optional name) slot in a Schema.
type FieldDesc struct {
	Type Type
	Name string
}

// Schema is an ordered, non-empty, immutable sequence of field
// descriptors. Two schemas are equal iff their type sequences match
// position-wise; names are not compared.
type Schema struct {
	fields []FieldDesc
}

// NewSchema builds a Schema from parallel types/names slices. names may
// be shorter than types or contain empty strings for unnamed fields.
func NewSchema(types []Type, names []string) (*Schema, error) {
	if len(types) == 0 {
		return nil, dberrors.NewIllegalArgument("schema must have at least one field")
	}
	fields := make([]FieldDesc, len(types))
	for i, t := range types {
		name := ""
		if i < len(names) {
			name = names[i]
		}
		fields[i] = FieldDesc{Type: t, Name: name}
	}
	return &Schema{fields: fields}, nil
}

// NumFields returns the number of fields in the schema.
func (s *Schema) NumFields() int { return len(s.fields) }

// FieldType returns the type of field i.
func (s *Schema) FieldType(i int) (Type, error) {
	if i < 0 || i >= len(s.fields) {
		return 0, dberrors.NewNoSuchElement("field index out of range")
	}
	return s.fields[i].Type, nil
}

// FieldName returns the name of field i.
func (s *Schema) FieldName(i int) (string, error) {
	if i < 0 || i >= len(s.fields) {
		return "", dberrors.NewNoSuchElement("field index out of range")
	}
	return s.fields[i].Name, nil
}

// FieldIndex returns the index of the first field with the given name.
func (s *Schema) FieldIndex(name string) (int, error) {
	for i, f := range s.fields {
		if f.Name == name {
			return i, nil
		}
	}
	return 0, dberrors.NewNoSuchElement("no field named " + name)
}

// ByteSize is the sum of the byte widths of every field.
func (s *Schema) ByteSize() int {
	total := 0
	for _, f := range s.fields {
		total += f.Type.Bytes()
	}
	return total
}

// Equal reports whether the two schemas' type sequences match
// position-wise. Names are not compared.
func (s *Schema) Equal(other *Schema) bool {
	if other == nil || len(s.fields) != len(other.fields) {
		return false
	}
	for i, f := range s.fields {
		if f.Type != other.fields[i].Type {
			return false
		}
	}
	return true
}

// Combine concatenates two schemas' field sequences: s's fields first,
// then other's. Field names are carried over unchanged.
func (s *Schema) Combine(other *Schema) *Schema {
	fields := make([]FieldDesc, 0, len(s.fields)+len(other.fields))
	fields = append(fields, s.fields...)
	fields = append(fields, other.fields...)
	return &Schema{fields: fields}
}

// Fields returns a copy of the underlying field descriptors.
func (s *Schema) Fields() []FieldDesc {
	out := make([]FieldDesc, len(s.fields))
	copy(out, s.fields)
	return out
}
