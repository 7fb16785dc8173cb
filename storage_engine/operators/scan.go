package operators

import (
	"github.com/vvksh/SimpleDB/storage_engine/catalog"
	"github.com/vvksh/SimpleDB/storage_engine/heapfile"
	"github.com/vvksh/SimpleDB/types"
)

// SequentialScan reads every tuple of a table, in on-disk order, as part
// of transaction tid. Its output schema's field names are prefixed
// "alias.fieldname", per original_source's SeqScan.getTupleDesc.
type SequentialScan struct {
	tid     types.TransactionID
	tableID int64
	alias   string

	cat *catalog.Catalog
	bp  heapfile.PageGetter

	schema *types.Schema
	it     *heapfile.FileIterator
}

// NewSequentialScan builds a scan of tableID under tid, using bp to pull
// pages and cat to resolve the table's file and schema. The output
// schema is computed eagerly, since callers such as Aggregate inspect a
// child's Schema before Open.
func NewSequentialScan(tid types.TransactionID, tableID int64, alias string, cat *catalog.Catalog, bp heapfile.PageGetter) (*SequentialScan, error) {
	base, err := cat.GetSchema(tableID)
	if err != nil {
		return nil, err
	}
	fields := base.Fields()
	fieldTypes := make([]types.Type, len(fields))
	fieldNames := make([]string, len(fields))
	for i, f := range fields {
		fieldTypes[i] = f.Type
		fieldNames[i] = alias + "." + f.Name
	}
	schema, err := types.NewSchema(fieldTypes, fieldNames)
	if err != nil {
		return nil, err
	}
	return &SequentialScan{tid: tid, tableID: tableID, alias: alias, cat: cat, bp: bp, schema: schema}, nil
}

func (s *SequentialScan) Open() error {
	file, err := s.cat.GetFile(s.tableID)
	if err != nil {
		return err
	}
	s.it = file.Iterator(s.tid, s.bp)
	return nil
}

func (s *SequentialScan) HasNext() (bool, error) { return s.it.HasNext() }

func (s *SequentialScan) Next() (*types.Tuple, error) { return s.it.Next() }

func (s *SequentialScan) Rewind() error {
	s.it.Rewind()
	return nil
}

func (s *SequentialScan) Close() { s.it = nil }

func (s *SequentialScan) Schema() *types.Schema { return s.schema }
