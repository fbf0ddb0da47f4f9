// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package auth implements the Warden authentication core.
//
// # Domain Types
//
// CredentialRecord is the persisted registration of one identity. Identities
// are normalized lowercase player names and key every map and store lookup.
// The SessionCache is the sole authority for "is this identity currently
// authenticated"; the credential store is never consulted for that question.
//
// # Services
//
// Service coordinates the registration, login, and email-recovery flows
// against the CredentialStore, SessionCache, crypt.Security, and
// RecoveryCodeService. Every public operation returns a typed Outcome;
// no operation leaks errors across the component boundary in normal use.
//
// Async wraps Service for hosts with a single-threaded main loop: requests
// run on a worker pool and results are handed back through a SyncGate the
// host drains on its own thread.
package auth
