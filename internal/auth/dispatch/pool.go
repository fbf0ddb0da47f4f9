// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package dispatch runs authentication work off the host's main thread.
//
// The host is a single-threaded event loop: it submits requests to a Pool
// of workers and drains completed side effects from a SyncGate on its own
// thread. Nothing in this package calls back into host state directly.
package dispatch

import (
	"runtime"
	"sync"

	"github.com/samber/oops"
)

// DefaultQueueSize bounds the pending job queue.
const DefaultQueueSize = 256

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = oops.Code("DISPATCH_POOL_CLOSED").Errorf("worker pool is closed")

// CoreCount returns the number of workers to run. Injected via PoolConfig
// so tests can pin a fixed value.
type CoreCount func() int

// PoolConfig configures a Pool.
type PoolConfig struct {
	// Workers determines the worker count. Nil means runtime.NumCPU.
	Workers CoreCount

	// QueueSize bounds pending jobs. Zero means DefaultQueueSize.
	QueueSize int
}

// Pool executes submitted jobs on a fixed set of worker goroutines.
// Close stops intake and waits for in-flight jobs to finish, so a job that
// is midway through a persistence write always completes.
type Pool struct {
	jobs chan func()
	wg   sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

// NewPool starts the workers.
func NewPool(cfg PoolConfig) *Pool {
	workers := runtime.NumCPU()
	if cfg.Workers != nil {
		if n := cfg.Workers(); n > 0 {
			workers = n
		}
	}
	queue := cfg.QueueSize
	if queue <= 0 {
		queue = DefaultQueueSize
	}

	p := &Pool{jobs: make(chan func(), queue)}
	p.wg.Add(workers)
	for range workers {
		go func() {
			defer p.wg.Done()
			for job := range p.jobs {
				job()
			}
		}()
	}
	return p
}

// Submit queues a job for execution. Blocks when the queue is full;
// returns ErrPoolClosed after Close.
func (p *Pool) Submit(job func()) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrPoolClosed
	}
	// Send under the lock so Close cannot close the channel between the
	// check and the send.
	p.jobs <- job
	p.mu.Unlock()
	return nil
}

// Close stops intake and blocks until every queued and in-flight job has
// finished. Safe to call more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()
	p.wg.Wait()
}
