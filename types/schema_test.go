package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSchemaEqual(t *testing.T) {
	a := assert.New(t)

	s1, err := NewSchema([]Type{IntType, StringType}, []string{"a", "b"})
	a.NoError(err)
	s2, err := NewSchema([]Type{IntType, StringType}, []string{"x", "y"})
	a.NoError(err)
	s3, err := NewSchema([]Type{StringType, IntType}, []string{"a", "b"})
	a.NoError(err)

	a.True(s1.Equal(s2), "names are not compared")
	a.False(s1.Equal(s3))
}

func TestSchemaFieldIndexAndName(t *testing.T) {
	a := assert.New(t)

	s, err := NewSchema([]Type{IntType, StringType}, []string{"a", "b"})
	a.NoError(err)

	idx, err := s.FieldIndex("b")
	a.NoError(err)
	a.Equal(1, idx)

	_, err = s.FieldIndex("c")
	a.Error(err)

	name, err := s.FieldName(0)
	a.NoError(err)
	a.Equal("a", name)
}

func TestSchemaByteSize(t *testing.T) {
	a := assert.New(t)

	s, err := NewSchema([]Type{IntType, StringType}, []string{"a", "b"})
	a.NoError(err)
	a.Equal(IntBytes+StringBytes, s.ByteSize())
}

func TestSchemaCombine(t *testing.T) {
	a := assert.New(t)

	s1, err := NewSchema([]Type{IntType}, []string{"a"})
	a.NoError(err)
	s2, err := NewSchema([]Type{StringType}, []string{"b"})
	a.NoError(err)

	combined := s1.Combine(s2)
	a.Equal(2, combined.NumFields())
	ft, _ := combined.FieldType(0)
	a.Equal(IntType, ft)
	ft, _ = combined.FieldType(1)
	a.Equal(StringType, ft)
}

func TestNewSchemaRejectsEmpty(t *testing.T) {
	a := assert.New(t)
	_, err := NewSchema(nil, nil)
	a.Error(err)
}
