package operators

import (
	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/storage_engine/bufferpool"
	"github.com/vvksh/SimpleDB/types"
)

// Delete drains child and deletes every tuple it produces, on behalf of
// tid, through bp. It yields exactly one tuple -- the count of rows
// deleted -- then end-of-stream. Grounded on original_source's
// operators/Delete.java.
type Delete struct {
	tid   types.TransactionID
	child Operator
	bp    *bufferpool.BufferPool

	schema *types.Schema
	done   bool
	result *types.Tuple
}

// NewDelete builds a Delete of child's output.
func NewDelete(tid types.TransactionID, child Operator, bp *bufferpool.BufferPool) *Delete {
	return &Delete{tid: tid, child: child, bp: bp}
}

func (d *Delete) Open() error {
	schema, err := types.NewSchema([]types.Type{types.IntType}, []string{"count"})
	if err != nil {
		return err
	}
	d.schema = schema
	d.done = false
	d.result = nil
	return d.child.Open()
}

func (d *Delete) run() error {
	count := 0
	for {
		ok, err := d.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := d.child.Next()
		if err != nil {
			return err
		}
		if _, err := d.bp.DeleteTuple(d.tid, t); err != nil {
			return err
		}
		count++
	}
	result, err := types.NewTuple(d.schema, []types.Field{types.IntField(count)})
	if err != nil {
		return err
	}
	d.result = result
	return nil
}

func (d *Delete) HasNext() (bool, error) {
	if d.done {
		return false, nil
	}
	if d.result == nil {
		if err := d.run(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (d *Delete) Next() (*types.Tuple, error) {
	ok, err := d.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errExhausted
	}
	d.done = true
	return d.result, nil
}

func (d *Delete) Rewind() error {
	return dberrors.NewDbError("delete: not rewindable")
}

func (d *Delete) Close() { d.child.Close() }

func (d *Delete) Schema() *types.Schema { return d.schema }
