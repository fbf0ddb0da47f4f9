// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package postgres implements auth.CredentialStore on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/crypt"
)

// poolIface is the subset of pgxpool.Pool the store uses. pgxmock
// satisfies it in tests.
type poolIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// CredentialStore persists credential records in the credentials table.
type CredentialStore struct {
	pool poolIface
}

// NewCredentialStore creates a new CredentialStore.
func NewCredentialStore(pool poolIface) *CredentialStore {
	return &CredentialStore{pool: pool}
}

const credentialColumns = `identity, real_name, password_hash, password_salt,
	       password_algorithm, email, registration_ip, registered_at, last_login_at`

// Get retrieves a credential record by normalized identity.
func (s *CredentialStore) Get(ctx context.Context, identity string) (*auth.CredentialRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+credentialColumns+`
		FROM credentials
		WHERE identity = $1
	`, identity)

	record, err := scanCredential(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CREDENTIAL_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("CREDENTIAL_GET_FAILED").
			With("identity", identity).
			Wrap(err)
	}
	return record, nil
}

// Exists reports whether a credential record exists for the identity.
func (s *CredentialStore) Exists(ctx context.Context, identity string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM credentials WHERE identity = $1)
	`, identity).Scan(&exists)
	if err != nil {
		return false, oops.Code("CREDENTIAL_EXISTS_FAILED").
			With("identity", identity).
			Wrap(err)
	}
	return exists, nil
}

// CreateIfAbsent inserts the record unless the identity is already taken.
// Returns false with nil error when another record holds the identity; the
// caller decides how to classify the lost race.
func (s *CredentialStore) CreateIfAbsent(ctx context.Context, record *auth.CredentialRecord) (bool, error) {
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO credentials (
			identity, real_name, password_hash, password_salt,
			password_algorithm, email, registration_ip, registered_at
		) VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		ON CONFLICT (identity) DO NOTHING
	`,
		record.Identity,
		record.RealName,
		record.Digest.Hash,
		record.Digest.Salt,
		record.Digest.Algorithm,
		record.Email,
		record.RegistrationIP,
		record.RegisteredAt,
	)
	if err != nil {
		// A unique violation outside the conflict target still means the
		// identity is taken, not a storage fault.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return false, nil
		}
		return false, oops.Code("CREDENTIAL_CREATE_FAILED").
			With("identity", record.Identity).
			Wrap(err)
	}
	return tag.RowsAffected() == 1, nil
}

// UpdatePassword replaces the stored digest for the identity.
func (s *CredentialStore) UpdatePassword(ctx context.Context, identity string, d crypt.Digest) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE credentials
		SET password_hash = $2, password_salt = $3, password_algorithm = $4
		WHERE identity = $1
	`, identity, d.Hash, d.Salt, d.Algorithm)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_PASSWORD_FAILED").
			With("identity", identity).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateEmail replaces the stored recovery email for the identity.
func (s *CredentialStore) UpdateEmail(ctx context.Context, identity, email string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE credentials SET email = NULLIF($2, '') WHERE identity = $1
	`, identity, email)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_EMAIL_FAILED").
			With("identity", identity).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateLastLogin stamps the identity's last successful authentication.
func (s *CredentialStore) UpdateLastLogin(ctx context.Context, identity string, at time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE credentials SET last_login_at = $2 WHERE identity = $1
	`, identity, at)
	if err != nil {
		return oops.Code("CREDENTIAL_UPDATE_LOGIN_FAILED").
			With("identity", identity).
			Wrap(err)
	}
	if tag.RowsAffected() == 0 {
		return oops.Code("CREDENTIAL_NOT_FOUND").
			With("identity", identity).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// ListByIP returns the identities registered from the given address.
func (s *CredentialStore) ListByIP(ctx context.Context, ip string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT identity FROM credentials WHERE registration_ip = $1
	`, ip)
	if err != nil {
		return nil, oops.Code("CREDENTIAL_LIST_BY_IP_FAILED").
			With("ip", ip).
			Wrap(err)
	}
	defer rows.Close()

	var identities []string
	for rows.Next() {
		var identity string
		if err := rows.Scan(&identity); err != nil {
			return nil, oops.Code("CREDENTIAL_LIST_BY_IP_FAILED").
				With("ip", ip).
				Wrap(err)
		}
		identities = append(identities, identity)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("CREDENTIAL_LIST_BY_IP_FAILED").
			With("ip", ip).
			Wrap(err)
	}
	return identities, nil
}

func scanCredential(row pgx.Row) (*auth.CredentialRecord, error) {
	var (
		record      auth.CredentialRecord
		email       *string
		lastLoginAt *time.Time
	)
	err := row.Scan(
		&record.Identity,
		&record.RealName,
		&record.Digest.Hash,
		&record.Digest.Salt,
		&record.Digest.Algorithm,
		&email,
		&record.RegistrationIP,
		&record.RegisteredAt,
		&lastLoginAt,
	)
	if err != nil {
		return nil, err
	}
	if email != nil {
		record.Email = *email
	}
	record.LastLoginAt = lastLoginAt
	return &record, nil
}
