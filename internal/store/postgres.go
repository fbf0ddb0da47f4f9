// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package store provides PostgreSQL connection and schema management for
// the credential database.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection retry defaults. The database is often still starting when the
// server comes up, so the first pings are retried with fibonacci backoff.
const (
	DefaultConnectAttempts = 5
	DefaultConnectBackoff  = 500 * time.Millisecond
)

// PoolConfig configures the connection pool.
type PoolConfig struct {
	// DSN is the PostgreSQL connection string.
	DSN string

	// ConnectAttempts caps the initial ping retries. Zero means
	// DefaultConnectAttempts.
	ConnectAttempts uint64

	// ConnectBackoff is the base backoff between pings. Zero means
	// DefaultConnectBackoff.
	ConnectBackoff time.Duration

	Logger *slog.Logger
}

// NewPool connects to PostgreSQL and verifies the connection with a ping,
// retrying while the database comes up. The caller owns the returned pool.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	attempts := cfg.ConnectAttempts
	if attempts == 0 {
		attempts = DefaultConnectAttempts
	}
	backoffBase := cfg.ConnectBackoff
	if backoffBase <= 0 {
		backoffBase = DefaultConnectBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, oops.Code("STORE_POOL_INIT_FAILED").Wrap(err)
	}

	backoff := retry.WithMaxRetries(attempts, retry.NewFibonacci(backoffBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := pool.Ping(ctx); err != nil {
			logger.Warn("database ping failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		pool.Close()
		return nil, oops.Code("STORE_POOL_PING_FAILED").
			With("attempts", attempts).
			Wrap(err)
	}

	return pool, nil
}
