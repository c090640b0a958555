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
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeBoundsConcurrency(t *testing.T) {
	rt := NewRuntime(context.Background(), 2, 0)
	var inflight, maxInflight int32
	for i := 0; i < 20; i++ {
		rt.Go(func(ctx context.Context) error {
			n := atomic.AddInt32(&inflight, 1)
			for {
				old := atomic.LoadInt32(&maxInflight)
				if n <= old || atomic.CompareAndSwapInt32(&maxInflight, old, n) {
					break
				}
			}
			atomic.AddInt32(&inflight, -1)
			return nil
		})
	}
	require.NoError(t, rt.Wait())
	assert.LessOrEqual(t, maxInflight, int32(2))
}

func TestRuntimeReserveEmitStopsAtLimit(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, 5)
	for i := 0; i < 5; i++ {
		assert.True(t, rt.ReserveEmit(1))
	}
	assert.False(t, rt.ReserveEmit(1))
	assert.Error(t, rt.Context().Err())
}

func TestRuntimeFirstErrorWins(t *testing.T) {
	rt := NewRuntime(context.Background(), 4, 0)
	rt.Go(func(ctx context.Context) error { return FatalBackendError("seg", assertErr{}) })
	rt.Go(func(ctx context.Context) error { return nil })
	err := rt.Wait()
	require.Error(t, err)
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }

func TestErrorKindExitCodes(t *testing.T) {
	assert.Equal(t, 2, KindConfigError.ExitCode())
	assert.Equal(t, 2, KindSchemaError.ExitCode())
	assert.Equal(t, 3, KindDuplicateKey.ExitCode())
	assert.Equal(t, 3, KindTransientBackendError.ExitCode())
	assert.Equal(t, 3, KindFatalBackendError.ExitCode())
	assert.Equal(t, 1, KindLimitReached.ExitCode())
}

func TestIsCancelled(t *testing.T) {
	assert.False(t, IsCancelled(LimitReachedError()))
	assert.True(t, IsCancelled(&Error{Kind: KindCancelled}))
}

func TestRuntimeAcquireSideBoundsPerSidePool(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, 0)
	release, ok := rt.AcquireSide(true)
	require.True(t, ok)

	acquired := make(chan bool, 1)
	go func() {
		r2, ok2 := rt.AcquireSide(true)
		if ok2 {
			r2()
		}
		acquired <- ok2
	}()

	select {
	case <-acquired:
		t.Fatal("second left-side acquire should have blocked while the first slot is held")
	default:
	}
	release()
	assert.True(t, <-acquired)
}

func TestRuntimeAcquireBothSidesOppositeOrderDoesNotDeadlock(t *testing.T) {
	rt := NewRuntime(context.Background(), 1, 0)
	done := make(chan struct{})
	go func() {
		release, ok := rt.AcquireBothSides(true)
		if ok {
			release()
		}
		done <- struct{}{}
	}()
	go func() {
		release, ok := rt.AcquireBothSides(false)
		if ok {
			release()
		}
		done <- struct{}{}
	}()
	<-done
	<-done
}
