// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package dispatch_test

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/wardenauth/warden/internal/auth/dispatch"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fixedWorkers(n int) dispatch.CoreCount {
	return func() int { return n }
}

func TestPool(t *testing.T) {
	t.Run("executes submitted jobs", func(t *testing.T) {
		p := dispatch.NewPool(dispatch.PoolConfig{Workers: fixedWorkers(4)})

		var ran atomic.Int64
		var wg sync.WaitGroup
		for range 100 {
			wg.Add(1)
			require.NoError(t, p.Submit(func() {
				defer wg.Done()
				ran.Add(1)
			}))
		}
		wg.Wait()
		p.Close()

		assert.Equal(t, int64(100), ran.Load())
	})

	t.Run("close drains queued jobs", func(t *testing.T) {
		p := dispatch.NewPool(dispatch.PoolConfig{Workers: fixedWorkers(1), QueueSize: 64})

		var ran atomic.Int64
		for range 50 {
			require.NoError(t, p.Submit(func() { ran.Add(1) }))
		}
		p.Close()

		assert.Equal(t, int64(50), ran.Load())
	})

	t.Run("submit after close returns ErrPoolClosed", func(t *testing.T) {
		p := dispatch.NewPool(dispatch.PoolConfig{Workers: fixedWorkers(1)})
		p.Close()

		err := p.Submit(func() { t.Error("job ran after close") })
		assert.ErrorIs(t, err, dispatch.ErrPoolClosed)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		p := dispatch.NewPool(dispatch.PoolConfig{Workers: fixedWorkers(2)})
		p.Close()
		p.Close()
	})

	t.Run("concurrent submitters", func(t *testing.T) {
		p := dispatch.NewPool(dispatch.PoolConfig{Workers: fixedWorkers(4), QueueSize: 8})

		var ran atomic.Int64
		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for range 25 {
					if err := p.Submit(func() { ran.Add(1) }); err != nil {
						t.Error(err)
						return
					}
				}
			}()
		}
		wg.Wait()
		p.Close()

		assert.Equal(t, int64(200), ran.Load())
	})
}

func TestSyncGate(t *testing.T) {
	t.Run("drain runs queued closures in order", func(t *testing.T) {
		g := dispatch.NewSyncGate(16)

		var order []int
		for i := range 5 {
			g.Hand(func() { order = append(order, i) })
		}

		assert.Equal(t, 5, g.Drain())
		assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("drain on an empty gate returns zero", func(t *testing.T) {
		g := dispatch.NewSyncGate(16)
		assert.Equal(t, 0, g.Drain())
	})

	t.Run("closures only run on the draining side", func(t *testing.T) {
		g := dispatch.NewSyncGate(16)

		var ran atomic.Bool
		done := make(chan struct{})
		go func() {
			defer close(done)
			g.Hand(func() { ran.Store(true) })
		}()
		<-done

		assert.False(t, ran.Load())
		assert.Equal(t, 1, g.Drain())
		assert.True(t, ran.Load())
	})
}
