// Package lockmgr implements the per-page shared/exclusive two-phase
// lock protocol described in spec.md §4.4 -- a direct translation of
// original_source's SimpleDbLock.java / LockManager.java into Go's
// sync.Mutex + sync.Cond monitor idiom.
package lockmgr

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/vvksh/SimpleDB/types"
)

// DefaultTimeout is the default lock-acquire timeout.
const DefaultTimeout = 500 * time.Millisecond

// Mode is an acquired lock mode, pushed onto a transaction's per-page
// stack so release is LIFO.
type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

// PageLock is the shared/exclusive lock state for one page: a count of
// read grants, a count of write grants (all held by at most one
// transaction; each reentrant write grant adds one), and a
// per-transaction stack of acquired modes supporting reentrant
// acquisition.
type PageLock struct {
	pid types.PageId

	mu   sync.Mutex
	cond *sync.Cond

	readCount  int
	writeCount int
	stacks     map[types.TransactionID][]Mode
}

func newPageLock(pid types.PageId) *PageLock {
	l := &PageLock{
		pid:    pid,
		stacks: make(map[types.TransactionID][]Mode),
	}
	l.cond = sync.NewCond(&l.mu)
	return l
}

func (l *PageLock) isWriteLocked() bool {
	return l.writeCount > 0
}

func (l *PageLock) isLocked() bool {
	return l.readCount > 0 || l.writeCount > 0
}

func (l *PageLock) holderCount() int {
	return len(l.stacks)
}

func (l *PageLock) soleHolder(tid types.TransactionID) bool {
	if len(l.stacks) != 1 {
		return false
	}
	_, ok := l.stacks[tid]
	return ok
}

// waitWithTimeout blocks on the condition variable until woken or the
// deadline passes. sync.Cond has no deadline parameter, so a timer
// goroutine calls Broadcast at the deadline -- the standard Go
// substitute for Java's wait(timeoutMillis).
func (l *PageLock) waitWithTimeout(deadline time.Time) {
	remaining := time.Until(deadline)
	if remaining <= 0 {
		return
	}
	timer := time.AfterFunc(remaining, func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer timer.Stop()
	l.cond.Wait()
}

// ReadLock grants a shared lock to tid, blocking up to timeout while a
// different transaction holds the write lock.
func (l *PageLock) ReadLock(tid types.TransactionID, timeout time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for l.isWriteLocked() {
		if l.transactionHasWrite(tid) {
			logrus.WithFields(logrus.Fields{"pid": l.pid, "tid": tid}).Debug("lockmgr: granting read lock via existing write (downgrade)")
			l.grantLocked(tid, ModeRead)
			return true
		}
		if time.Now().After(deadline) {
			logrus.WithFields(logrus.Fields{"pid": l.pid, "tid": tid}).Debug("lockmgr: read lock timed out")
			return false
		}
		logrus.WithFields(logrus.Fields{"pid": l.pid, "tid": tid}).Debug("lockmgr: read lock waiting on writer")
		l.waitWithTimeout(deadline)
	}
	l.grantLocked(tid, ModeRead)
	return true
}

// WriteLock grants an exclusive lock to tid, blocking up to timeout
// unless tid is already the sole holder of the page (in any mode), in
// which case it is granted immediately (upgrade or reentrant write).
func (l *PageLock) WriteLock(tid types.TransactionID, timeout time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	deadline := time.Now().Add(timeout)
	for l.isLocked() {
		if l.soleHolder(tid) {
			logrus.WithFields(logrus.Fields{"pid": l.pid, "tid": tid}).Debug("lockmgr: granting write lock, sole holder")
			l.grantLocked(tid, ModeWrite)
			return true
		}
		if time.Now().After(deadline) {
			logrus.WithFields(logrus.Fields{"pid": l.pid, "tid": tid}).Debug("lockmgr: write lock timed out")
			return false
		}
		logrus.WithFields(logrus.Fields{"pid": l.pid, "tid": tid}).Debug("lockmgr: write lock waiting")
		l.waitWithTimeout(deadline)
	}
	l.grantLocked(tid, ModeWrite)
	return true
}

func (l *PageLock) transactionHasWrite(tid types.TransactionID) bool {
	for _, m := range l.stacks[tid] {
		if m == ModeWrite {
			return true
		}
	}
	return false
}

func (l *PageLock) grantLocked(tid types.TransactionID, mode Mode) {
	l.stacks[tid] = append(l.stacks[tid], mode)
	if mode == ModeRead {
		l.readCount++
	} else {
		l.writeCount++
	}
}

// ReleaseOne pops the most recently acquired mode from tid's stack,
// decrementing the matching counter. Fails if tid holds no locks here.
func (l *PageLock) ReleaseOne(tid types.TransactionID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.releaseOneLocked(tid)
}

func (l *PageLock) releaseOneLocked(tid types.TransactionID) error {
	stack := l.stacks[tid]
	if len(stack) == 0 {
		return errNotHeld
	}
	mode := stack[len(stack)-1]
	stack = stack[:len(stack)-1]
	if len(stack) == 0 {
		delete(l.stacks, tid)
	} else {
		l.stacks[tid] = stack
	}
	if err := l.decrementLocked(mode); err != nil {
		return err
	}
	l.cond.Broadcast()
	return nil
}

// ReleaseAll drains tid's entire stack, decrementing counters per mode.
func (l *PageLock) ReleaseAll(tid types.TransactionID) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	stack, ok := l.stacks[tid]
	if !ok {
		return errNotHeld
	}
	for _, mode := range stack {
		if err := l.decrementLocked(mode); err != nil {
			return err
		}
	}
	delete(l.stacks, tid)
	l.cond.Broadcast()
	return nil
}

func (l *PageLock) decrementLocked(mode Mode) error {
	if mode == ModeRead {
		l.readCount--
	} else {
		l.writeCount--
	}
	if l.readCount < 0 || l.writeCount < 0 {
		return errNegativeCounter
	}
	return nil
}

// HoldsLock reports whether tid currently holds any lock on this page.
func (l *PageLock) HoldsLock(tid types.TransactionID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.stacks[tid]
	return ok
}
