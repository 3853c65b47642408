// Copyright (c) 2019 Uber Technologies, Inc.
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package wireup

import (
	"sync"
	"sync/atomic"
)

// reentrantLock is a mutex that the same owner may re-acquire without
// blocking on itself. The standard library has no such primitive (a
// sync.Mutex deadlocks on a second Lock from the same goroutine), so the
// build engine hand-rolls one: every holder identifies itself with the
// owner token carried on its *buildContext rather than relying on any
// goroutine-local state.
type reentrantLock struct {
	mu    sync.Mutex
	cond  *sync.Cond
	held  bool
	owner uint64
	depth int
}

func newReentrantLock() *reentrantLock {
	l := &reentrantLock{}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// tryLock attempts a non-blocking acquisition. It succeeds immediately if
// the lock is free or already held by owner.
func (l *reentrantLock) tryLock(owner uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held {
		l.held = true
		l.owner = owner
		l.depth = 1
		return true
	}
	if l.owner == owner {
		l.depth++
		return true
	}
	return false
}

// lock blocks until the lock is free or already held by owner.
func (l *reentrantLock) lock(owner uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for l.held && l.owner != owner {
		l.cond.Wait()
	}
	if l.held && l.owner == owner {
		l.depth++
		return
	}
	l.held = true
	l.owner = owner
	l.depth = 1
}

func (l *reentrantLock) unlock(owner uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.held || l.owner != owner {
		panic("wireup: unlock by non-owner")
	}
	l.depth--
	if l.depth == 0 {
		l.held = false
		l.owner = 0
		l.cond.Broadcast()
	}
}

// buildContext is the explicit, per-top-level-Build state the engine
// threads through every recursive Build call. Go offers no goroutine-local
// storage, so rather than emulate Python's contextvars/thread-locals, the
// context is passed as an ordinary parameter the whole way down instead.
//
// global is fixed for the lifetime of one buildContext: it is never
// flipped mid-flight. An optimistic attempt either finishes with global
// false throughout, or aborts with errLockUnavailable and is retried from
// Build under a brand new, global-true buildContext. This is what makes
// the two-tier scheme deadlock-free per spec.md §4.5/§5: an optimistic
// builder never blocks while holding a lock acquired earlier in the same
// call chain, it only ever gives up and unwinds.
type buildContext struct {
	owner  uint64
	stack  []string // names currently under construction, for cycle recovery
	global bool      // true for a build retried under the container-wide global lock
}

func (c *Container) newBuildContext() *buildContext {
	return &buildContext{owner: atomic.AddUint64(&c.ownerSeq, 1)}
}

func (bc *buildContext) onStack(name string) bool {
	for _, n := range bc.stack {
		if n == name {
			return true
		}
	}
	return false
}

func (bc *buildContext) push(name string) { bc.stack = append(bc.stack, name) }

func (bc *buildContext) pop() { bc.stack = bc.stack[:len(bc.stack)-1] }

// acquireEntry implements one tier of the two-tier locking discipline. In
// optimistic mode (bc.global false) it makes exactly one non-blocking
// attempt and, on contention, returns errLockUnavailable instead of
// spinning or blocking: the caller's own build frame then returns that
// error up through its normal return path, so every lock acquired earlier
// in the same call chain is released by its defer as the stack unwinds
// (spec.md §4.5 phase 3). Build is the one place that catches
// errLockUnavailable and retries the whole call under a fresh,
// global-true buildContext (phase 4).
//
// In global mode (bc.global true) the per-entry lock is acquired with a
// blocking wait instead. This can never deadlock: the container-wide
// global lock admits only one global-mode builder at a time, so whatever
// currently holds the contended entry lock is either that same builder
// (reentrant, returns immediately) or an optimistic-mode builder that will
// itself back off rather than block (spec.md §4.5 phase 5).
func (c *Container) acquireEntry(bc *buildContext, entry *reentrantLock) error {
	if bc.global {
		entry.lock(bc.owner)
		return nil
	}
	if entry.tryLock(bc.owner) {
		return nil
	}
	return errLockUnavailable
}

func (c *Container) releaseEntry(bc *buildContext, entry *reentrantLock) {
	entry.unlock(bc.owner)
}
