package main

import (
	"context"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/observability"
	"github.com/wardenauth/warden/internal/store"
)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values use their default implementations.
type ServeDeps struct {
	// StoreFactory connects the credential store. The returned func
	// releases the underlying pool.
	// Default: store.NewPool + postgres.NewCredentialStore
	StoreFactory func(ctx context.Context, cfg store.PoolConfig) (auth.CredentialStore, func(), error)

	// MigratorFactory creates a schema migrator for auto-migration.
	// Default: store.NewMigrator
	MigratorFactory func(databaseURL string) (AutoMigrator, error)

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer

	// MailFactory creates the email transport. Default: mail.NewTransport.
	MailFactory func(cfg MailSettings) (auth.EmailTransport, error)
}

// AutoMigrator wraps the methods serve uses from store.Migrator.
type AutoMigrator interface {
	Up() error
	Close() error
}

// ObservabilityServer wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// MailSettings carries the SMTP parameters into MailFactory.
type MailSettings struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	ServerName string
}
