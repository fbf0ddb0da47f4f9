// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/wardenauth/warden/internal/crypt"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// NormalizeIdentity lowercases a player name into the canonical identity
// used as the key across the cache, the store, and the recovery maps.
func NormalizeIdentity(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// CredentialRecord is the persisted registration of one identity.
// A write either fully replaces the record or fails; readers never observe
// a torn update.
type CredentialRecord struct {
	Identity       string // normalized lowercase name, primary key
	RealName       string // name as originally typed
	Digest         crypt.Digest
	Email          string // empty when no email is stored
	RegistrationIP string
	RegisteredAt   time.Time
	LastLoginAt    *time.Time
}

// HasEmail reports whether an email address is stored for this record.
func (r *CredentialRecord) HasEmail() bool {
	return r.Email != ""
}

// EmailMatches reports whether the candidate matches the stored email,
// case-insensitively. Records without an email never match.
func (r *CredentialRecord) EmailMatches(candidate string) bool {
	return r.HasEmail() && strings.EqualFold(r.Email, candidate)
}

// CredentialStore is the persistence boundary for credential records.
// Implementations must provide read-committed reads and an atomic
// create-if-absent primitive for identity uniqueness; the core carries no
// locking of its own across store calls.
type CredentialStore interface {
	// Get retrieves the record for an identity, or an error wrapping
	// ErrNotFound when no record exists.
	Get(ctx context.Context, identity string) (*CredentialRecord, error)

	// Exists reports whether a record exists for the identity.
	Exists(ctx context.Context, identity string) (bool, error)

	// CreateIfAbsent atomically persists the record unless one already
	// exists for the identity. Returns false without error when it lost
	// the race to an existing record.
	CreateIfAbsent(ctx context.Context, record *CredentialRecord) (bool, error)

	// UpdatePassword replaces the stored digest for an identity.
	UpdatePassword(ctx context.Context, identity string, d crypt.Digest) error

	// UpdateEmail replaces the stored email for an identity.
	UpdateEmail(ctx context.Context, identity, email string) error

	// UpdateLastLogin refreshes the last-login timestamp.
	UpdateLastLogin(ctx context.Context, identity string, at time.Time) error

	// ListByIP returns the identities registered from the given IP.
	ListByIP(ctx context.Context, ip string) ([]string, error)
}

// PermissionChecker looks up host-side capabilities for an identity.
type PermissionChecker interface {
	// HasCapability reports whether the identity holds the capability.
	HasCapability(identity, capability string) bool
}

// CapabilityMultipleAccounts exempts an identity from the per-IP
// registration quota when granted.
const CapabilityMultipleAccounts = "warden.register.multiple"

// EmailTransport delivers recovery mail. The core never sees mail
// formatting or SMTP details; implementations live outside this package.
type EmailTransport interface {
	// SendRecoveryCode mails a recovery code to the player.
	SendRecoveryCode(ctx context.Context, identity, email, code string) error

	// SendNewPassword mails a freshly generated plaintext password.
	// The plaintext is never returned to the in-game caller.
	SendNewPassword(ctx context.Context, identity, email, password string) error
}
