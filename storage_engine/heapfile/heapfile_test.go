package heapfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvksh/SimpleDB/storage_engine/page"
	"github.com/vvksh/SimpleDB/types"
)

func testSchema(t *testing.T) *types.Schema {
	s, err := types.NewSchema([]types.Type{types.IntType, types.IntType}, []string{"a", "b"})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

// directPool is a minimal PageGetter/PageReleaser that bypasses 2PL,
// reading pages straight off the HeapFile, for tests that only exercise
// heap-file mechanics and don't need the lock manager.
type directPool struct {
	hf *HeapFile
}

func (d *directPool) GetPage(_ types.TransactionID, pid types.PageId, _ types.Permission) (*page.HeapPage, error) {
	return d.hf.ReadPage(pid)
}

func (d *directPool) ReleasePage(types.TransactionID, types.PageId) {}

func newTestHeapFile(t *testing.T) *HeapFile {
	dir := t.TempDir()
	hf, err := Open(filepath.Join(dir, "t.dat"), testSchema(t))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hf.Close() })
	return hf
}

func TestOpenEmptyFileHasZeroPages(t *testing.T) {
	a := assert.New(t)
	hf := newTestHeapFile(t)
	a.Equal(0, hf.NumPages())
}

func TestInsertGrowsFileAndPersists(t *testing.T) {
	a := assert.New(t)
	hf := newTestHeapFile(t)
	pool := &directPool{hf: hf}
	tid := types.NewTransactionID()

	schema := testSchema(t)
	tup, err := types.NewTuple(schema, []types.Field{types.IntField(1), types.IntField(2)})
	a.NoError(err)

	pages, err := hf.InsertTuple(tid, pool, pool, tup)
	a.NoError(err)
	a.Len(pages, 1)
	a.NoError(hf.WritePage(pages[0]))
	a.Equal(1, hf.NumPages())

	reopened, err := Open(hf.path, schema)
	a.NoError(err)
	defer reopened.Close()
	a.Equal(1, reopened.NumPages())

	p, err := reopened.ReadPage(types.PageId{TableID: reopened.ID(), PageNum: 0})
	a.NoError(err)
	full := page.NumSlots(page.PageSize(), schema.ByteSize())
	a.Equal(full-1, p.GetNumEmptySlots(), "the inserted tuple is visible through a freshly opened handle")
}

func TestIteratorWalksAllInsertedTuples(t *testing.T) {
	a := assert.New(t)
	hf := newTestHeapFile(t)
	pool := &directPool{hf: hf}
	tid := types.NewTransactionID()
	schema := testSchema(t)

	n := page.NumSlots(page.PageSize(), schema.ByteSize())*2 + 3
	for i := 0; i < n; i++ {
		tup, err := types.NewTuple(schema, []types.Field{types.IntField(int32(i)), types.IntField(0)})
		a.NoError(err)
		pages, err := hf.InsertTuple(tid, pool, pool, tup)
		a.NoError(err)
		a.NoError(hf.WritePage(pages[0]))
	}

	it := hf.Iterator(tid, pool)
	seen := 0
	for {
		ok, err := it.HasNext()
		a.NoError(err)
		if !ok {
			break
		}
		_, err = it.Next()
		a.NoError(err)
		seen++
	}
	a.Equal(n, seen)
}

func TestDeleteTupleRemovesFromIteration(t *testing.T) {
	a := assert.New(t)
	hf := newTestHeapFile(t)
	pool := &directPool{hf: hf}
	tid := types.NewTransactionID()
	schema := testSchema(t)

	tup, err := types.NewTuple(schema, []types.Field{types.IntField(5), types.IntField(6)})
	a.NoError(err)
	pages, err := hf.InsertTuple(tid, pool, pool, tup)
	a.NoError(err)
	a.NoError(hf.WritePage(pages[0]))

	pages, err = hf.DeleteTuple(tid, pool, tup)
	a.NoError(err)
	a.NoError(hf.WritePage(pages[0]))

	it := hf.Iterator(tid, pool)
	ok, err := it.HasNext()
	a.NoError(err)
	a.False(ok)
}

func TestSmallPageSizeForcesMultiPageBoundary(t *testing.T) {
	a := assert.New(t)
	schema := testSchema(t)
	tupleBytes := schema.ByteSize()

	// Smallest page that still fits exactly two slots, so inserting a
	// handful of tuples (rather than hundreds) forces the file past a
	// page boundary.
	minBits := 2 * (tupleBytes*8 + 1)
	page.SetPageSizeForTest((minBits + 7) / 8)
	defer page.ResetPageSize()

	perPage := page.NumSlots(page.PageSize(), tupleBytes)
	a.Equal(2, perPage, "page size was chosen to hold exactly two slots")

	hf := newTestHeapFile(t)
	pool := &directPool{hf: hf}
	tid := types.NewTransactionID()

	n := perPage*2 + 1
	for i := 0; i < n; i++ {
		tup, err := types.NewTuple(schema, []types.Field{types.IntField(int32(i)), types.IntField(0)})
		a.NoError(err)
		pages, err := hf.InsertTuple(tid, pool, pool, tup)
		a.NoError(err)
		a.NoError(hf.WritePage(pages[0]))
	}
	a.Equal(3, hf.NumPages(), "five tuples at two slots per page must span three pages")

	it := hf.Iterator(tid, pool)
	seen := 0
	for {
		ok, err := it.HasNext()
		a.NoError(err)
		if !ok {
			break
		}
		_, err = it.Next()
		a.NoError(err)
		seen++
	}
	a.Equal(n, seen)
}

func TestPathIDStableAcrossReopen(t *testing.T) {
	a := assert.New(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "stable.dat")
	schema := testSchema(t)

	hf1, err := Open(p, schema)
	a.NoError(err)
	id1 := hf1.ID()
	a.NoError(hf1.Close())

	hf2, err := Open(p, schema)
	a.NoError(err)
	defer hf2.Close()
	a.Equal(id1, hf2.ID())
}

func TestOpenCreatesFileIfMissing(t *testing.T) {
	a := assert.New(t)
	dir := t.TempDir()
	p := filepath.Join(dir, "new.dat")
	_, err := os.Stat(p)
	a.True(os.IsNotExist(err))

	hf, err := Open(p, testSchema(t))
	a.NoError(err)
	defer hf.Close()

	_, err = os.Stat(p)
	a.NoError(err)
}
