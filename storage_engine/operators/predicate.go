package operators

import "github.com/vvksh/SimpleDB/types"

// Predicate compares a tuple's designated field against a constant
// under one of types.Op's comparison operators. Grounded on
// original_source's Predicate.java.
type Predicate struct {
	Field   int
	Op      types.Op
	Operand types.Field
}

// Eval reports whether t satisfies the predicate.
func (p Predicate) Eval(t *types.Tuple) (bool, error) {
	f, err := t.Field(p.Field)
	if err != nil {
		return false, err
	}
	return f.Compare(p.Op, p.Operand)
}
