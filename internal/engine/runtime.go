// ///////////////////////////////////////////////////////////////////////////
//
// # tablediff
//
// Copyright (C) 2023 - 2026, pgEdge (https://www.pgedge.com/)
//
// This software is released under the PostgreSQL License:
// https://opensource.org/license/postgresql
//
// ///////////////////////////////////////////////////////////////////////////

package engine

import (
	"context"
	"sync"
	"sync/atomic"
)

// Runtime is the bounded worker pool shared by the HashDiff and JoinDiff
// orchestrators, grounded on the teacher's ExecuteTask worker-pool
// pattern (internal/core/table_diff.go), generalized to the spec's
// two-pool model (spec.md §4.8): a run against one table pair gets its
// own Runtime, with one bounded pool of connection slots per database
// side plus a generic task-fanout semaphore bounding how many segment
// tasks are in flight at once.
type Runtime struct {
	sem               chan struct{} // bounds in-flight rt.Go() segment tasks
	leftSem, rightSem chan struct{} // per-side connection-slot pools (§4.8)

	wg     sync.WaitGroup
	mu     sync.Mutex
	err    error
	cancel context.CancelFunc
	ctx    context.Context

	limit     int64 // 0 means unbounded
	emitted   int64
	limitOnce sync.Once
}

// NewRuntime creates a Runtime with workers as both the generic task
// fanout bound and the size of each side's connection-slot pool (spec.md
// §4.8's "threads_per_db", default 1), and an overall row-limit budget
// (0 disables the limit).
func NewRuntime(parent context.Context, workers int, limit int) *Runtime {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(parent)
	return &Runtime{
		sem:      make(chan struct{}, workers),
		leftSem:  make(chan struct{}, workers),
		rightSem: make(chan struct{}, workers),
		cancel:   cancel,
		ctx:      ctx,
		limit:    int64(limit),
	}
}

// Context is the run-scoped context; cancelled when Cancel is called, a
// task reports a fatal error, or the row limit is reached.
func (r *Runtime) Context() context.Context { return r.ctx }

// Go schedules fn to run on a bounded worker, blocking the caller when
// the pool is saturated (spec.md §5's backpressure requirement: callers
// never queue unbounded work ahead of available workers).
func (r *Runtime) Go(fn func(ctx context.Context) error) {
	select {
	case r.sem <- struct{}{}:
	case <-r.ctx.Done():
		return
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() { <-r.sem }()
		if r.ctx.Err() != nil {
			return
		}
		if err := fn(r.ctx); err != nil {
			r.fail(err)
		}
	}()
}

func (r *Runtime) fail(err error) {
	if IsCancelled(err) {
		return
	}
	r.mu.Lock()
	if r.err == nil {
		r.err = err
	}
	r.mu.Unlock()
	r.cancel()
}

// Wait blocks until every scheduled task has returned, then reports the
// first non-cancellation error observed, if any.
func (r *Runtime) Wait() error {
	r.wg.Wait()
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Cancel stops issuing new work and unblocks any task observing ctx.
func (r *Runtime) Cancel() { r.cancel() }

// ReserveEmit accounts n newly emitted rows against the run's limit
// (spec.md §7 LimitReached / §8 "no queries are issued after the limit
// is reached"): once the budget is exhausted it cancels the run and
// returns false, so callers stop emitting and stop scheduling further
// segment work without racing additional backend calls.
func (r *Runtime) ReserveEmit(n int) bool {
	if r.limit == 0 {
		return true
	}
	newTotal := atomic.AddInt64(&r.emitted, int64(n))
	if newTotal > r.limit {
		r.limitOnce.Do(func() {
			r.fail(LimitReachedError())
		})
		return newTotal-int64(n) < r.limit
	}
	return true
}

// Emitted returns the running count of rows accounted via ReserveEmit.
func (r *Runtime) Emitted() int64 { return atomic.LoadInt64(&r.emitted) }

// acquire blocks until sem has a free slot or the run is cancelled.
func (r *Runtime) acquire(sem chan struct{}) bool {
	select {
	case sem <- struct{}{}:
		return true
	case <-r.ctx.Done():
		return false
	}
}

func (r *Runtime) release(sem chan struct{}) { <-sem }

// AcquireSide blocks for one slot in the given side's connection-slot
// pool (spec.md §4.8: "a checksum task requires one slot in the pool of
// its side"). The returned release must be called exactly once; ok is
// false only when the run was cancelled before a slot became free.
func (r *Runtime) AcquireSide(left bool) (release func(), ok bool) {
	sem := r.rightSem
	if left {
		sem = r.leftSem
	}
	if !r.acquire(sem) {
		return func() {}, false
	}
	return func() { r.release(sem) }, true
}

// AcquireBothSides blocks for one slot on each side's pool for a
// local-fetch task (spec.md §4.8: "a local-fetch task requires one slot
// on each side"), acquired via LockSides's fixed global order so two
// concurrent local-fetch tasks can never deadlock each holding one side
// and waiting on the other's remaining slot.
func (r *Runtime) AcquireBothSides(leftFirst bool) (release func(), ok bool) {
	return LockSides(
		func() bool { return r.acquire(r.leftSem) }, func() { r.release(r.leftSem) },
		func() bool { return r.acquire(r.rightSem) }, func() { r.release(r.rightSem) },
		leftFirst,
	)
}

// LockSides acquires two side-scoped resources in a fixed global order
// (spec.md §4.8's deterministic side-order locking to avoid deadlock):
// always acquiring the same side first, regardless of which caller asks,
// means two goroutines each needing both sides can never form a cycle
// waiting on each other's remaining side. acquireLeft/acquireRight must
// return false without retrying if acquisition fails (e.g. cancellation);
// in that case any side already acquired is released before returning
// ok=false. The left side is always acquired first; leftFirst does not
// change the order.
func LockSides(acquireLeft func() bool, releaseLeft func(), acquireRight func() bool, releaseRight func(), leftFirst bool) (release func(), ok bool) {
	type side struct {
		acquire func() bool
		release func()
	}
	first, second := side{acquireLeft, releaseLeft}, side{acquireRight, releaseRight}
	if !first.acquire() {
		return func() {}, false
	}
	if !second.acquire() {
		first.release()
		return func() {}, false
	}
	return func() { second.release(); first.release() }, true
}
