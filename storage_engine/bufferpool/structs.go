// Package bufferpool implements the bounded page cache of spec.md §4.3:
// the only path through which operators obtain pages, coordinating with
// lockmgr for 2PL and with a Catalog-shaped FileResolver for on-miss
// reads. Grounded on original_source's BufferPool.java for the exact
// commit/abort/evict semantics and on the teacher's
// storage_engine/bufferpool package for the Go map + insertion-order
// slice idiom (LRU there, NO-STEAL oldest-clean-first here).
package bufferpool

import (
	"sync"
	"time"

	"github.com/vvksh/SimpleDB/storage_engine/heapfile"
	"github.com/vvksh/SimpleDB/storage_engine/lockmgr"
	"github.com/vvksh/SimpleDB/storage_engine/page"
	"github.com/vvksh/SimpleDB/types"
)

// DefaultPages is the default buffer pool capacity in pages.
const DefaultPages = 50

// FileResolver resolves a table-id to the heap file backing it.
// catalog.Catalog satisfies this structurally -- bufferpool imports
// heapfile directly for the concrete type rather than Java's bare
// DbFile interface, since heapfile itself only ever defines its own
// narrow PageGetter/PageReleaser back toward bufferpool, so no cycle
// results.
type FileResolver interface {
	GetFile(tableID int64) (*heapfile.HeapFile, error)
}

// LogWriter is the narrow write-ahead-log interface spec.md §6
// describes: the core invokes logging through this but does not define
// its encoding. NopLogWriter below satisfies it for callers that accept
// the no-durability non-goal.
type LogWriter interface {
	LogWrite(tid types.TransactionID, before, after *page.HeapPage) error
	Force() error
}

// NopLogWriter is a LogWriter that does nothing and never fails.
type NopLogWriter struct{}

func (NopLogWriter) LogWrite(types.TransactionID, *page.HeapPage, *page.HeapPage) error { return nil }
func (NopLogWriter) Force() error                                                      { return nil }

// BufferPool is the bounded, insertion-ordered page cache fronting the
// heap files, coordinating eviction and commit/abort with the
// LockManager.
type BufferPool struct {
	mu       sync.Mutex
	capacity int
	cache    map[types.PageId]*page.HeapPage
	order    []types.PageId // insertion order; index 0 is oldest

	lockMgr *lockmgr.LockManager
	files   FileResolver
	log     LogWriter

	touched map[types.TransactionID]map[types.PageId]struct{}
}

// Config bundles the BufferPool's tunables (spec.md §6).
type Config struct {
	NumPages     int
	LockTimeout  time.Duration
	FileResolver FileResolver
	Log          LogWriter
}

// New builds a BufferPool per cfg. A zero NumPages defaults to
// DefaultPages; a zero LockTimeout defaults to lockmgr.DefaultTimeout; a
// nil Log defaults to NopLogWriter.
func New(cfg Config) *BufferPool {
	numPages := cfg.NumPages
	if numPages <= 0 {
		numPages = DefaultPages
	}
	timeout := cfg.LockTimeout
	if timeout <= 0 {
		timeout = lockmgr.DefaultTimeout
	}
	var log LogWriter = cfg.Log
	if log == nil {
		log = NopLogWriter{}
	}
	return &BufferPool{
		capacity: numPages,
		cache:    make(map[types.PageId]*page.HeapPage, numPages),
		lockMgr:  lockmgr.NewLockManager(timeout),
		files:    cfg.FileResolver,
		log:      log,
		touched:  make(map[types.TransactionID]map[types.PageId]struct{}),
	}
}
