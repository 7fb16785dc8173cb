package operators

import (
	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/storage_engine/bufferpool"
	"github.com/vvksh/SimpleDB/storage_engine/catalog"
	"github.com/vvksh/SimpleDB/types"
)

// Insert drains child and inserts every tuple it produces into tableID,
// on behalf of tid, through bp. It yields exactly one tuple -- the count
// of rows inserted -- then end-of-stream. Grounded on
// original_source's operators/Insert.java.
type Insert struct {
	tid     types.TransactionID
	tableID int64
	child   Operator

	cat *catalog.Catalog
	bp  *bufferpool.BufferPool

	schema *types.Schema
	done   bool
	result *types.Tuple
}

// NewInsert builds an Insert of child's output into tableID.
func NewInsert(tid types.TransactionID, tableID int64, child Operator, cat *catalog.Catalog, bp *bufferpool.BufferPool) *Insert {
	return &Insert{tid: tid, tableID: tableID, child: child, cat: cat, bp: bp}
}

func (ins *Insert) Open() error {
	tableSchema, err := ins.cat.GetSchema(ins.tableID)
	if err != nil {
		return err
	}
	if !ins.child.Schema().Equal(tableSchema) {
		return dberrors.NewDbError("insert: child schema does not match table schema")
	}
	schema, err := types.NewSchema([]types.Type{types.IntType}, []string{"count"})
	if err != nil {
		return err
	}
	ins.schema = schema
	ins.done = false
	ins.result = nil
	return ins.child.Open()
}

func (ins *Insert) run() error {
	count := 0
	for {
		ok, err := ins.child.HasNext()
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		t, err := ins.child.Next()
		if err != nil {
			return err
		}
		if _, err := ins.bp.InsertTuple(ins.tid, ins.tableID, t); err != nil {
			return err
		}
		count++
	}
	result, err := types.NewTuple(ins.schema, []types.Field{types.IntField(count)})
	if err != nil {
		return err
	}
	ins.result = result
	return nil
}

func (ins *Insert) HasNext() (bool, error) {
	if ins.done {
		return false, nil
	}
	if ins.result == nil {
		if err := ins.run(); err != nil {
			return false, err
		}
	}
	return true, nil
}

func (ins *Insert) Next() (*types.Tuple, error) {
	ok, err := ins.HasNext()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errExhausted
	}
	ins.done = true
	return ins.result, nil
}

func (ins *Insert) Rewind() error {
	return dberrors.NewDbError("insert: not rewindable")
}

func (ins *Insert) Close() { ins.child.Close() }

func (ins *Insert) Schema() *types.Schema { return ins.schema }
