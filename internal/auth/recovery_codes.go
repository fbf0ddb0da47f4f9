// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"io"
	"sync"
	"time"
)

// Recovery defaults.
const (
	DefaultRecoveryCodeExpiry = 4 * time.Hour
	DefaultRecoveryCooldown   = 60 * time.Second
)

// RecoveryCodeConfig configures a RecoveryCodeService.
type RecoveryCodeConfig struct {
	// CodeLength is the recovery code length in characters. Zero disables
	// recovery codes entirely: recovery then proceeds without a code step.
	CodeLength int

	// Expiry is how long an issued code stays valid.
	// Zero means DefaultRecoveryCodeExpiry.
	Expiry time.Duration

	// Cooldown is the minimum time between successive recovery attempts
	// for the same identity. Zero means DefaultRecoveryCooldown.
	Cooldown time.Duration

	// Rand is the random source for code generation. Nil means crypto/rand.
	Rand io.Reader

	// Now is the clock. Nil means time.Now. Tests inject a fixed clock.
	Now func() time.Time
}

type recoveryCode struct {
	value     string
	expiresAt time.Time
}

// RecoveryCodeService issues, validates, and expires one-time recovery
// codes, and rate-limits recovery attempts per identity.
//
// At most one live code exists per identity; issuing a new code overwrites
// any prior unconsumed one, and the code plus its cooldown stamp are
// always updated together under one lock. The cooldown clock starts at
// issuance and is never reset by consumption or expiry.
type RecoveryCodeService struct {
	mu        sync.Mutex
	codes     map[string]recoveryCode
	cooldowns map[string]time.Time

	codeLength int
	expiry     time.Duration
	cooldown   time.Duration
	rand       io.Reader
	now        func() time.Time
}

// NewRecoveryCodeService creates the service with empty state.
func NewRecoveryCodeService(cfg RecoveryCodeConfig) *RecoveryCodeService {
	s := &RecoveryCodeService{
		codes:      make(map[string]recoveryCode),
		cooldowns:  make(map[string]time.Time),
		codeLength: cfg.CodeLength,
		expiry:     cfg.Expiry,
		cooldown:   cfg.Cooldown,
		rand:       cfg.Rand,
		now:        cfg.Now,
	}
	if s.expiry <= 0 {
		s.expiry = DefaultRecoveryCodeExpiry
	}
	if s.cooldown <= 0 {
		s.cooldown = DefaultRecoveryCooldown
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Required reports whether the recovery flow demands a code step.
func (s *RecoveryCodeService) Required() bool {
	return s.codeLength > 0
}

// Generate issues a fresh code for the identity, overwriting any live one,
// and stamps the cooldown. When the identity is still inside the cooldown
// window no code is issued and the remaining wait is returned instead.
func (s *RecoveryCodeService) Generate(identity string) (code string, wait time.Duration, err error) {
	identity = NormalizeIdentity(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if wait := s.remainingLocked(identity, now); wait > 0 {
		return "", wait, nil
	}

	code, err = generateAlphanumeric(s.rand, s.codeLength)
	if err != nil {
		return "", 0, err
	}

	s.codes[identity] = recoveryCode{value: code, expiresAt: now.Add(s.expiry)}
	s.cooldowns[identity] = now
	return code, 0, nil
}

// StampAttempt records a recovery attempt that issues no code (the direct
// new-password path), enforcing the same cooldown. Returns the remaining
// wait when the attempt is rejected; on zero the stamp was recorded.
func (s *RecoveryCodeService) StampAttempt(identity string) time.Duration {
	identity = NormalizeIdentity(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if wait := s.remainingLocked(identity, now); wait > 0 {
		return wait
	}
	s.cooldowns[identity] = now
	return 0
}

// remainingLocked returns the time left in the cooldown window.
// Caller holds s.mu.
func (s *RecoveryCodeService) remainingLocked(identity string, now time.Time) time.Duration {
	last, ok := s.cooldowns[identity]
	if !ok {
		return 0
	}
	if remaining := s.cooldown - now.Sub(last); remaining > 0 {
		return remaining
	}
	return 0
}

// IsValid reports whether a live, unexpired code exists for the identity
// and matches the candidate exactly. Codes are case-sensitive tokens.
func (s *RecoveryCodeService) IsValid(identity, candidate string) bool {
	identity = NormalizeIdentity(identity)

	s.mu.Lock()
	defer s.mu.Unlock()

	rc, ok := s.codes[identity]
	if !ok || s.now().After(rc.expiresAt) {
		return false
	}
	return rc.value == candidate
}

// Remove deletes the live code for the identity. Called immediately after
// a code is consumed so it can never be used twice. The cooldown stamp is
// left untouched.
func (s *RecoveryCodeService) Remove(identity string) {
	identity = NormalizeIdentity(identity)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.codes, identity)
}

// Clear drops all codes and cooldown stamps. Called at shutdown.
func (s *RecoveryCodeService) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes = make(map[string]recoveryCode)
	s.cooldowns = make(map[string]time.Time)
}
