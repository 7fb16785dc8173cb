package bufferpool

import (
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/storage_engine/page"
	"github.com/vvksh/SimpleDB/types"
)

// GetPage returns the page identified by pid, acquiring it under perm on
// behalf of tid through the lock manager first. A miss pulls the page
// from its backing heap file and, if the pool is at capacity, evicts the
// first clean page in insertion order (NO-STEAL: a dirty page can never
// be the victim, since it may belong to an as-yet-uncommitted
// transaction and this pool never writes a page back except at commit).
//
// bp.mu only ever guards the cache map and order slice -- lockMgr is what
// gives callers page-level exclusion, so the disk read below runs outside
// the lock and GetPage never globally serializes with another
// transaction's GetPage or TransactionComplete on an unrelated page.
func (bp *BufferPool) GetPage(tid types.TransactionID, pid types.PageId, perm types.Permission) (*page.HeapPage, error) {
	if !bp.lockMgr.Acquire(tid, pid, perm) {
		return nil, dberrors.NewTransactionAborted("bufferpool: lock acquire timed out for " + tid.String())
	}
	bp.markTouched(tid, pid)

	if p, ok := bp.cachedPage(pid); ok {
		return p, nil
	}

	file, err := bp.files.GetFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	p, err := file.ReadPage(pid)
	if err != nil {
		return nil, err
	}

	bp.mu.Lock()
	defer bp.mu.Unlock()
	// Two readers racing on the same uncached page both reach here; the
	// lock manager only excludes writers, so whichever lost the race
	// discards its own freshly read copy and adopts the page the winner
	// already inserted, rather than double-inserting.
	if existing, ok := bp.cache[pid]; ok {
		return existing, nil
	}
	if len(bp.cache) >= bp.capacity {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}
	bp.cache[pid] = p
	bp.order = append(bp.order, pid)
	return p, nil
}

func (bp *BufferPool) cachedPage(pid types.PageId) (*page.HeapPage, bool) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	p, ok := bp.cache[pid]
	return p, ok
}

// ReleasePage releases one acquired lock on pid, without waiting for the
// enclosing transaction to finish. Used by the speculative insert probe
// in heapfile.HeapFile.InsertTuple.
func (bp *BufferPool) ReleasePage(tid types.TransactionID, pid types.PageId) {
	if err := bp.lockMgr.Release(tid, pid); err != nil {
		logrus.WithFields(logrus.Fields{"tid": tid, "pid": pid, "err": err}).Debug("bufferpool: release failed")
	}
}

// InsertTuple inserts t into table tableID on behalf of tid, delegating
// to the table's heap file (which pulls pages back through this same
// pool under 2PL). Returns the pages the insert modified, already
// marked dirty, per spec.md §4.5's insert/delete side-effect contract.
func (bp *BufferPool) InsertTuple(tid types.TransactionID, tableID int64, t *types.Tuple) ([]*page.HeapPage, error) {
	file, err := bp.files.GetFile(tableID)
	if err != nil {
		return nil, err
	}
	return file.InsertTuple(tid, bp, bp, t)
}

// DeleteTuple deletes t, whose RecordId names the page and table it came
// from, on behalf of tid.
func (bp *BufferPool) DeleteTuple(tid types.TransactionID, t *types.Tuple) ([]*page.HeapPage, error) {
	rid := t.RecordID()
	if rid == nil {
		return nil, dberrors.NewDbError("bufferpool: tuple has no RecordId")
	}
	file, err := bp.files.GetFile(rid.PageID.TableID)
	if err != nil {
		return nil, err
	}
	return file.DeleteTuple(tid, bp, t)
}

// HoldsLock reports whether tid currently holds any lock on pid.
func (bp *BufferPool) HoldsLock(tid types.TransactionID, pid types.PageId) bool {
	return bp.lockMgr.HoldsLock(tid, pid)
}

// evictLocked removes the oldest clean page from the cache. bp.mu is
// already held. Fails if every cached page is dirty -- a pool sized too
// small for the write set of the active transactions, per spec.md §5's
// NO-STEAL eviction failure case.
func (bp *BufferPool) evictLocked() error {
	for i, pid := range bp.order {
		p := bp.cache[pid]
		if p.IsDirty() != nil {
			continue
		}
		delete(bp.cache, pid)
		bp.order = append(bp.order[:i], bp.order[i+1:]...)
		logrus.WithFields(logrus.Fields{"pid": pid, "pool_bytes": humanize.Bytes(uint64(len(bp.cache) * page.PageSize()))}).Debug("bufferpool: evicted clean page")
		return nil
	}
	return dberrors.NewDbError("bufferpool: no clean page available to evict")
}

// FlushAllPages writes every dirty cached page to disk, regardless of
// which transaction dirtied it. Used by tests and by callers that need a
// consistent on-disk snapshot outside the commit path. The cache is only
// locked long enough to snapshot the current set of pages; the actual
// log-write/force/write-page sequence for each runs unlocked.
func (bp *BufferPool) FlushAllPages() error {
	bp.mu.Lock()
	snapshot := make(map[types.PageId]*page.HeapPage, len(bp.cache))
	for pid, p := range bp.cache {
		snapshot[pid] = p
	}
	bp.mu.Unlock()

	for pid, p := range snapshot {
		if p.IsDirty() == nil {
			continue
		}
		if err := bp.flushPage(pid, p); err != nil {
			return err
		}
	}
	return nil
}

// flushPage runs the before-image-then-force-then-write commit sequence
// for one page. Touches neither bp.cache nor bp.order -- bp.files and
// bp.log are set once at construction and never mutated, and p guards its
// own state with its own mutex, so this never needs bp.mu.
func (bp *BufferPool) flushPage(pid types.PageId, p *page.HeapPage) error {
	file, err := bp.files.GetFile(pid.TableID)
	if err != nil {
		return err
	}
	dirtyBy := p.IsDirty()
	if dirtyBy == nil {
		return nil
	}
	if err := bp.log.LogWrite(*dirtyBy, p.GetBeforeImage(), p); err != nil {
		return err
	}
	if err := bp.log.Force(); err != nil {
		return err
	}
	if err := file.WritePage(p); err != nil {
		return err
	}
	p.MarkDirty(false, types.TransactionID{})
	p.SetBeforeImage()
	return nil
}

// DiscardPage evicts pid from the cache without flushing it, discarding
// any in-memory changes. Used on abort to force the next GetPage to
// re-read the page's on-disk image.
func (bp *BufferPool) DiscardPage(pid types.PageId) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if _, ok := bp.cache[pid]; !ok {
		return
	}
	delete(bp.cache, pid)
	for i, p := range bp.order {
		if p == pid {
			bp.order = append(bp.order[:i], bp.order[i+1:]...)
			break
		}
	}
}

// TransactionComplete ends tid's transaction. On commit, every page tid
// dirtied is logged and flushed to disk before locks are released --
// spec.md §6's before-image-then-force-then-write commit protocol. On
// abort, every page tid touched is discarded from the cache instead of
// flushed, so the next reader sees the unmodified on-disk image; the
// page's before-image is never consulted here, only by the log writer on
// a future commit.
func (bp *BufferPool) TransactionComplete(tid types.TransactionID, commit bool) error {
	pages := bp.touchedPages(tid)

	if commit {
		for _, pid := range pages {
			p, ok := bp.cachedPage(pid)
			if !ok || p.IsDirty() == nil {
				continue
			}
			if err := bp.flushPage(pid, p); err != nil {
				return err
			}
		}
	} else {
		for _, pid := range pages {
			bp.DiscardPage(pid)
		}
	}

	for _, pid := range pages {
		if err := bp.lockMgr.ReleaseAll(tid, pid); err != nil {
			logrus.WithFields(logrus.Fields{"tid": tid, "pid": pid, "err": err}).Debug("bufferpool: releaseAll failed on transaction complete")
		}
	}
	bp.clearTouched(tid)
	return nil
}

func (bp *BufferPool) markTouched(tid types.TransactionID, pid types.PageId) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	set, ok := bp.touched[tid]
	if !ok {
		set = make(map[types.PageId]struct{})
		bp.touched[tid] = set
	}
	set[pid] = struct{}{}
}

func (bp *BufferPool) touchedPages(tid types.TransactionID) []types.PageId {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	set := bp.touched[tid]
	pages := make([]types.PageId, 0, len(set))
	for pid := range set {
		pages = append(pages, pid)
	}
	return pages
}

func (bp *BufferPool) clearTouched(tid types.TransactionID) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.touched, tid)
}
