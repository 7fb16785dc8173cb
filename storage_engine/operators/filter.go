package operators

import "github.com/vvksh/SimpleDB/types"

// Filter forwards only the tuples of child that satisfy predicate.
// Grounded on original_source's Filter.java.
type Filter struct {
	predicate Predicate
	child     Operator

	next    *types.Tuple
	hasNext bool
}

// NewFilter builds a Filter over child.
func NewFilter(predicate Predicate, child Operator) *Filter {
	return &Filter{predicate: predicate, child: child}
}

func (f *Filter) Open() error { return f.child.Open() }

func (f *Filter) advance() error {
	for {
		ok, err := f.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			f.hasNext = false
			f.next = nil
			return nil
		}
		t, err := f.child.Next()
		if err != nil {
			return err
		}
		pass, err := f.predicate.Eval(t)
		if err != nil {
			return err
		}
		if pass {
			f.hasNext = true
			f.next = t
			return nil
		}
	}
}

func (f *Filter) HasNext() (bool, error) {
	if f.next == nil {
		if err := f.advance(); err != nil {
			return false, err
		}
	}
	return f.hasNext, nil
}

func (f *Filter) Next() (*types.Tuple, error) {
	ok, err := f.HasNext()
	if err != nil {
		return nil, err
	}
	t := f.next
	f.next = nil
	if !ok {
		return nil, errExhausted
	}
	return t, nil
}

func (f *Filter) Rewind() error {
	f.next = nil
	return f.child.Rewind()
}

func (f *Filter) Close() { f.child.Close() }

func (f *Filter) Schema() *types.Schema { return f.child.Schema() }
