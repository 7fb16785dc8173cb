package bufferpool

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/storage_engine/heapfile"
	"github.com/vvksh/SimpleDB/storage_engine/page"
	"github.com/vvksh/SimpleDB/types"
)

type fakeResolver struct {
	files map[int64]*heapfile.HeapFile
}

func (f *fakeResolver) GetFile(tableID int64) (*heapfile.HeapFile, error) {
	return f.files[tableID], nil
}

func newTestPool(t *testing.T, capacity int) (*BufferPool, *heapfile.HeapFile) {
	schema, err := types.NewSchema([]types.Type{types.IntType}, []string{"a"})
	if err != nil {
		t.Fatal(err)
	}
	hf, err := heapfile.Open(filepath.Join(t.TempDir(), "t.dat"), schema)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { hf.Close() })

	bp := New(Config{
		NumPages:     capacity,
		LockTimeout:  200 * time.Millisecond,
		FileResolver: &fakeResolver{files: map[int64]*heapfile.HeapFile{hf.ID(): hf}},
	})
	return bp, hf
}

func TestInsertThenCommitPersists(t *testing.T) {
	a := assert.New(t)
	bp, hf := newTestPool(t, 10)

	tid := types.NewTransactionID()
	schema := hf.Schema()
	tup, err := types.NewTuple(schema, []types.Field{types.IntField(1)})
	a.NoError(err)

	_, err = bp.InsertTuple(tid, hf.ID(), tup)
	a.NoError(err)
	a.NoError(bp.TransactionComplete(tid, true))

	p, err := hf.ReadPage(types.PageId{TableID: hf.ID(), PageNum: 0})
	a.NoError(err)
	a.Equal(1, page.NumSlots(page.PageSize(), schema.ByteSize())-p.GetNumEmptySlots())
}

func TestInsertThenAbortDiscards(t *testing.T) {
	a := assert.New(t)
	bp, hf := newTestPool(t, 10)

	tid := types.NewTransactionID()
	schema := hf.Schema()
	tup, err := types.NewTuple(schema, []types.Field{types.IntField(1)})
	a.NoError(err)

	pages, err := bp.InsertTuple(tid, hf.ID(), tup)
	a.NoError(err)
	pid := pages[0].ID()
	a.NoError(bp.TransactionComplete(tid, false))

	info, err := os.Stat(hf.Path())
	a.NoError(err)
	a.Zero(info.Size(), "an aborted insert's speculative page must never reach disk")

	tid2 := types.NewTransactionID()
	reread, err := bp.GetPage(tid2, pid, types.ReadOnly)
	a.NoError(err)
	a.Equal(page.NumSlots(page.PageSize(), schema.ByteSize()), reread.GetNumEmptySlots(), "abort must not leave the inserted tuple visible")
}

func TestGetPageCachesAcrossCalls(t *testing.T) {
	a := assert.New(t)
	bp, hf := newTestPool(t, 10)
	tid := types.NewTransactionID()

	tup, err := types.NewTuple(hf.Schema(), []types.Field{types.IntField(1)})
	a.NoError(err)
	pages, err := bp.InsertTuple(tid, hf.ID(), tup)
	a.NoError(err)
	a.NoError(bp.TransactionComplete(tid, true))

	tid2 := types.NewTransactionID()
	p1, err := bp.GetPage(tid2, pages[0].ID(), types.ReadOnly)
	a.NoError(err)
	p2, err := bp.GetPage(tid2, pages[0].ID(), types.ReadOnly)
	a.NoError(err)
	a.Same(p1, p2, "a second GetPage for the same page must hit the cache")
}

func TestEvictionSkipsDirtyPages(t *testing.T) {
	a := assert.New(t)
	bp, hf := newTestPool(t, 1)
	tid := types.NewTransactionID()

	dirty, err := bp.GetPage(tid, types.PageId{TableID: hf.ID(), PageNum: 0}, types.ReadWrite)
	a.NoError(err)
	tup, err := types.NewTuple(hf.Schema(), []types.Field{types.IntField(1)})
	a.NoError(err)
	a.NoError(dirty.InsertTuple(tup))
	dirty.MarkDirty(true, tid)

	// Pool capacity is 1 and already holds the dirty page; a second,
	// distinct page cannot be cached without a clean victim.
	_, err = bp.GetPage(tid, types.PageId{TableID: hf.ID(), PageNum: 1}, types.ReadWrite)
	a.Error(err, "no-steal: a pool with only a dirty page has no evictable victim")
}

func TestFlushAllPagesWritesDirtyPages(t *testing.T) {
	a := assert.New(t)
	bp, hf := newTestPool(t, 10)
	tid := types.NewTransactionID()
	schema := hf.Schema()

	touched := map[types.PageId]bool{}
	for i := 0; i < 3; i++ {
		tup, err := types.NewTuple(schema, []types.Field{types.IntField(int32(i))})
		a.NoError(err)
		pages, err := bp.InsertTuple(tid, hf.ID(), tup)
		a.NoError(err)
		touched[pages[0].ID()] = true
	}

	// No TransactionComplete: these pages are only dirty in the pool's
	// cache, never flushed by the commit path.
	a.NoError(bp.FlushAllPages())

	full := page.NumSlots(page.PageSize(), schema.ByteSize())
	occupied := 0
	for pid := range touched {
		p, err := hf.ReadPage(pid)
		a.NoError(err)
		occupied += full - p.GetNumEmptySlots()
	}
	a.Equal(3, occupied, "FlushAllPages must persist dirty pages outside the commit path")
}

func TestLockTimeoutSurfacesAsTransactionAborted(t *testing.T) {
	a := assert.New(t)
	bp, hf := newTestPool(t, 10)
	pid := types.PageId{TableID: hf.ID(), PageNum: 0}

	t1 := types.NewTransactionID()
	_, err := bp.GetPage(t1, pid, types.ReadWrite)
	a.NoError(err)

	t2 := types.NewTransactionID()
	_, err = bp.GetPage(t2, pid, types.ReadWrite)
	a.Error(err)
	var aborted *dberrors.TransactionAborted
	a.True(errors.As(err, &aborted), "a lock timeout must surface as TransactionAborted")
}
