package lockmgr

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vvksh/SimpleDB/dberrors"
	"github.com/vvksh/SimpleDB/types"
)

var (
	errNotHeld         = dberrors.NewDbError("lockmgr: released a lock not held by this transaction")
	errNegativeCounter = dberrors.NewDbError("lockmgr: lock counter went negative")
)

// LockManager maps page-id to PageLock and arbitrates acquire/release.
// Creating a PageLock for a never-before-seen page is serialized by mu;
// once created, a PageLock serializes its own state independently.
type LockManager struct {
	mu      sync.Mutex
	locks   map[types.PageId]*PageLock
	timeout time.Duration
}

// NewLockManager builds a LockManager with the given acquire timeout.
func NewLockManager(timeout time.Duration) *LockManager {
	return &LockManager{
		locks:   make(map[types.PageId]*PageLock),
		timeout: timeout,
	}
}

func (m *LockManager) lockFor(pid types.PageId) *PageLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locks[pid]
	if !ok {
		l = newPageLock(pid)
		m.locks[pid] = l
	}
	return l
}

// Acquire acquires pid under mode on behalf of tid, blocking up to the
// configured timeout. Returns false on timeout; the caller translates
// that into TransactionAborted.
func (m *LockManager) Acquire(tid types.TransactionID, pid types.PageId, mode types.Permission) bool {
	l := m.lockFor(pid)
	if mode == types.ReadOnly {
		return l.ReadLock(tid, m.timeout)
	}
	return l.WriteLock(tid, m.timeout)
}

// Release releases one acquired mode of tid's on pid.
func (m *LockManager) Release(tid types.TransactionID, pid types.PageId) error {
	l := m.lockForExisting(pid)
	if l == nil {
		return errNotHeld
	}
	err := l.ReleaseOne(tid)
	if err != nil {
		logrus.WithFields(logrus.Fields{"pid": pid, "tid": tid, "err": err}).Debug("lockmgr: release failed")
	}
	return err
}

// ReleaseAll releases every lock tid holds on pid.
func (m *LockManager) ReleaseAll(tid types.TransactionID, pid types.PageId) error {
	l := m.lockForExisting(pid)
	if l == nil {
		return errNotHeld
	}
	return l.ReleaseAll(tid)
}

// HoldsLock reports whether tid holds any lock on pid.
func (m *LockManager) HoldsLock(tid types.TransactionID, pid types.PageId) bool {
	l := m.lockForExisting(pid)
	if l == nil {
		return false
	}
	return l.HoldsLock(tid)
}

func (m *LockManager) lockForExisting(pid types.PageId) *PageLock {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locks[pid]
}
