// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package dispatch

// SyncGate hands completed work back to the host's single thread.
// Workers enqueue closures with Hand; the host calls Drain from its own
// loop to run whatever has accumulated. Closures therefore only ever
// execute on the draining thread.
type SyncGate struct {
	pending chan func()
}

// NewSyncGate creates a gate with the given buffer. Zero or negative uses
// DefaultQueueSize.
func NewSyncGate(buffer int) *SyncGate {
	if buffer <= 0 {
		buffer = DefaultQueueSize
	}
	return &SyncGate{pending: make(chan func(), buffer)}
}

// Hand enqueues a closure for the host thread. Blocks when the buffer is
// full, applying backpressure to the worker rather than dropping results.
func (g *SyncGate) Hand(fn func()) {
	g.pending <- fn
}

// Drain runs every closure currently queued and returns the number
// executed. Called from the host thread each tick.
func (g *SyncGate) Drain() int {
	count := 0
	for {
		select {
		case fn := <-g.pending:
			fn()
			count++
		default:
			return count
		}
	}
}
