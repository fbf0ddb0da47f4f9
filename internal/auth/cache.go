// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// Session marks one authenticated identity in the cache.
type Session struct {
	ID      ulid.ULID
	LoginAt time.Time
}

// SessionCache is the in-memory authority for currently authenticated
// identities. It is safe for concurrent use from worker goroutines and
// never touches I/O, so it can be consulted before any store call to
// short-circuit duplicate logins cheaply.
//
// Presence in the cache implies a credential record exists; entries are
// added on login and removed on logout, disconnect, or timeout.
type SessionCache struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewSessionCache creates an empty SessionCache.
func NewSessionCache() *SessionCache {
	return &SessionCache{sessions: make(map[string]Session)}
}

// IsAuthenticated reports whether the identity has an active session.
func (c *SessionCache) IsAuthenticated(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.sessions[NormalizeIdentity(name)]
	return ok
}

// AddSession marks the identity as authenticated. Adding an identity that
// is already present replaces its marker.
func (c *SessionCache) AddSession(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[NormalizeIdentity(name)] = Session{ID: ulid.Make(), LoginAt: time.Now()}
	ActiveSessions.Set(float64(len(c.sessions)))
}

// RemoveSession clears the identity's session marker, if any. Hosts call
// this directly on disconnect or timeout, so the gauge is kept here rather
// than in the login and logout pipelines.
func (c *SessionCache) RemoveSession(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, NormalizeIdentity(name))
	ActiveSessions.Set(float64(len(c.sessions)))
}

// ActiveCount returns the number of authenticated identities.
func (c *SessionCache) ActiveCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// Clear drops every session. Called at shutdown.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions = make(map[string]Session)
	ActiveSessions.Set(0)
}
