// Package operators implements the pull-based relational iterators of
// spec.md §4.5: SequentialScan, Filter, Insert, Delete, Aggregate.
// Grounded on original_source's OpIterator/Operator/SeqScan/Filter
// hierarchy, collapsed into a single Go interface per the teacher's
// preference for small interfaces over class hierarchies.
package operators

import "github.com/vvksh/SimpleDB/types"

// Operator is a pull-based tuple iterator: Open before the first Next,
// Rewind to restart, Close when done. Not safe for concurrent use by
// multiple goroutines.
type Operator interface {
	Open() error
	HasNext() (bool, error)
	Next() (*types.Tuple, error)
	Rewind() error
	Close()
	Schema() *types.Schema
}
