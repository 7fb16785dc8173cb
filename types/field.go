package types

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Op is a predicate comparison operator.
type Op int

const (
	Equals Op = iota
	NotEquals
	LessThan
	LessThanOrEq
	GreaterThan
	GreaterThanOrEq
	Like
)

func (op Op) String() string {
	switch op {
	case Equals:
		return "="
	case NotEquals:
		return "<>"
	case LessThan:
		return "<"
	case LessThanOrEq:
		return "<="
	case GreaterThan:
		return ">"
	case GreaterThanOrEq:
		return ">="
	case Like:
		return "LIKE"
	default:
		return "?"
	}
}

// Field is a tagged-variant field value: IntField or StringField. Modeled
// as a closed interface rather than a class hierarchy, per spec.md's
// guidance to avoid runtime dispatch over Field/Type.
type Field interface {
	Type() Type
	Compare(op Op, other Field) (bool, error)
	Serialize(buf []byte) error
	String() string
}

// IntField is a 32-bit signed integer field value.
type IntField int32

func (f IntField) Type() Type { return IntType }

func (f IntField) Compare(op Op, other Field) (bool, error) {
	o, ok := other.(IntField)
	if !ok {
		return false, errors.Errorf("types: cannot compare IntField to %T", other)
	}
	switch op {
	case Equals:
		return f == o, nil
	case NotEquals:
		return f != o, nil
	case LessThan:
		return f < o, nil
	case LessThanOrEq:
		return f <= o, nil
	case GreaterThan:
		return f > o, nil
	case GreaterThanOrEq:
		return f >= o, nil
	default:
		return false, errors.Errorf("types: operator %s not supported on IntField", op)
	}
}

func (f IntField) Serialize(buf []byte) error {
	if len(buf) < IntBytes {
		return errors.Errorf("types: buffer too small for IntField: need %d, have %d", IntBytes, len(buf))
	}
	binary.LittleEndian.PutUint32(buf, uint32(f))
	return nil
}

func (f IntField) String() string { return fmt.Sprintf("%d", int32(f)) }

// DecodeIntField decodes an IntField from buf[0:IntBytes].
func DecodeIntField(buf []byte) (IntField, error) {
	if len(buf) < IntBytes {
		return 0, errors.Errorf("types: buffer too small to decode IntField: need %d, have %d", IntBytes, len(buf))
	}
	return IntField(int32(binary.LittleEndian.Uint32(buf))), nil
}

// StringField is a fixed-length (StringMaxLen) byte string field value.
type StringField string

func (f StringField) Type() Type { return StringType }

func (f StringField) Compare(op Op, other Field) (bool, error) {
	o, ok := other.(StringField)
	if !ok {
		return false, errors.Errorf("types: cannot compare StringField to %T", other)
	}
	switch op {
	case Equals:
		return f == o, nil
	case NotEquals:
		return f != o, nil
	case LessThan:
		return f < o, nil
	case LessThanOrEq:
		return f <= o, nil
	case GreaterThan:
		return f > o, nil
	case GreaterThanOrEq:
		return f >= o, nil
	case Like:
		return strings.Contains(string(f), string(o)), nil
	default:
		return false, errors.Errorf("types: operator %s not supported on StringField", op)
	}
}

func (f StringField) Serialize(buf []byte) error {
	if len(buf) < StringBytes {
		return errors.Errorf("types: buffer too small for StringField: need %d, have %d", StringBytes, len(buf))
	}
	s := string(f)
	if len(s) > StringMaxLen {
		s = s[:StringMaxLen]
	}
	binary.LittleEndian.PutUint32(buf, uint32(len(s)))
	copy(buf[4:], s)
	for i := 4 + len(s); i < StringBytes; i++ {
		buf[i] = 0
	}
	return nil
}

func (f StringField) String() string { return string(f) }

// DecodeStringField decodes a StringField from buf[0:StringBytes].
func DecodeStringField(buf []byte) (StringField, error) {
	if len(buf) < StringBytes {
		return "", errors.Errorf("types: buffer too small to decode StringField: need %d, have %d", StringBytes, len(buf))
	}
	n := binary.LittleEndian.Uint32(buf)
	if n > StringMaxLen {
		return "", errors.Errorf("types: decoded string length %d exceeds max %d", n, StringMaxLen)
	}
	return StringField(buf[4 : 4+n]), nil
}
