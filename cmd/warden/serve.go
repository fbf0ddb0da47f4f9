// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/auth/dispatch"
	"github.com/wardenauth/warden/internal/auth/postgres"
	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/crypt"
	"github.com/wardenauth/warden/internal/logging"
	"github.com/wardenauth/warden/internal/mail"
	"github.com/wardenauth/warden/internal/observability"
	"github.com/wardenauth/warden/internal/store"
	"github.com/wardenauth/warden/pkg/errutil"
)

// serveConfig holds command-line options for the serve command.
type serveConfig struct {
	autoMigrate  bool
	tickInterval time.Duration
}

// defaultTickInterval paces the outcome drain loop.
const defaultTickInterval = 50 * time.Millisecond

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	scfg := &serveConfig{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the authentication core",
		Long: `Start the authentication core: connect to the credential database,
run pending schema migrations, and serve metrics and health endpoints while
processing authentication requests.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, scfg, nil)
		},
	}

	cmd.Flags().BoolVar(&scfg.autoMigrate, "auto-migrate", true, "run pending schema migrations on startup")
	cmd.Flags().DurationVar(&scfg.tickInterval, "tick", defaultTickInterval, "outcome drain interval")

	// Config overrides, merged over the config file by key.
	cmd.Flags().String("database.url", "", "database connection URL")
	cmd.Flags().String("log.format", "", "log format (json or text)")
	cmd.Flags().String("log.level", "", "log level (debug, info, warn, error)")
	cmd.Flags().String("metrics.addr", "", "metrics/health HTTP address (empty = disabled)")

	return cmd
}

// runServeWithDeps starts the core with injectable dependencies. A nil
// deps uses production defaults.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, scfg *serveConfig, deps *ServeDeps) error {
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreFactory == nil {
		deps.StoreFactory = func(ctx context.Context, cfg store.PoolConfig) (auth.CredentialStore, func(), error) {
			pool, err := store.NewPool(ctx, cfg)
			if err != nil {
				return nil, nil, err
			}
			return postgres.NewCredentialStore(pool), pool.Close, nil
		}
	}
	if deps.MigratorFactory == nil {
		deps.MigratorFactory = func(databaseURL string) (AutoMigrator, error) {
			return store.NewMigrator(databaseURL)
		}
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, readinessChecker observability.ReadinessChecker) ObservabilityServer {
			return observability.NewServer(addr, readinessChecker)
		}
	}
	if deps.MailFactory == nil {
		deps.MailFactory = func(ms MailSettings) (auth.EmailTransport, error) {
			return mail.NewTransport(mail.Config{
				Host:       ms.Host,
				Port:       ms.Port,
				Username:   ms.Username,
				Password:   ms.Password,
				From:       ms.From,
				ServerName: ms.ServerName,
			}, slog.Default())
		}
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetDefault("warden", version, cfg.Log.Format, cfg.Log.Level)
	logger := slog.Default()

	logger.Info("starting authentication core",
		"registration_enabled", cfg.Auth.RegistrationEnabled,
		"algorithm", cfg.Auth.Algorithm,
	)

	if scfg.autoMigrate {
		if err := runAutoMigrate(deps, cfg.Database.URL, logger); err != nil {
			return err
		}
	}

	credStore, closeStore, err := deps.StoreFactory(ctx, store.PoolConfig{
		DSN:    cfg.Database.URL,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer closeStore()

	logger.Info("connected to database")

	server, err := buildServer(cfg, credStore, deps, logger)
	if err != nil {
		return err
	}

	// Observability server, when configured.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, func() bool { return true })
		obsErrChan, err := obsServer.Start()
		if err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		logger.Info("observability server started", "addr", obsServer.Addr())
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("Authentication core started")
	logger.Info("authentication core ready")

	// Host loop: deliver completed outcomes on this goroutine, the way an
	// embedding game server drains from its main thread.
	ticker := time.NewTicker(scfg.tickInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ticker.C:
			server.Gate.Drain()
		case sig := <-sigChan:
			logger.Info("received shutdown signal", "signal", sig)
			break loop
		case <-ctx.Done():
			logger.Info("context cancelled, shutting down")
			break loop
		}
	}

	logger.Info("shutting down...")
	server.Shutdown()

	if obsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", "error", err)
		}
	}

	logger.Info("shutdown complete")
	return nil
}

func runAutoMigrate(deps *ServeDeps, databaseURL string, logger *slog.Logger) error {
	migrator, err := deps.MigratorFactory(databaseURL)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		errutil.LogError(logger, "auto-migration failed", err)
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	logger.Info("schema migrations applied")
	return nil
}

// Server bundles the wired authentication stack. Embedding hosts submit
// requests through Auth and drain Gate from their main loop; the serve
// command runs the reference loop.
type Server struct {
	Auth *auth.Async
	Gate *dispatch.SyncGate

	svc      *auth.Service
	recovery *auth.RecoveryCodeService
	pool     *dispatch.Pool
	logger   *slog.Logger
}

// buildServer wires the authentication stack from config.
func buildServer(cfg *config.Config, credStore auth.CredentialStore, deps *ServeDeps, logger *slog.Logger) (*Server, error) {
	security, err := crypt.NewSecurity(crypt.Options{
		Algorithm:  cfg.Auth.Algorithm,
		SaltLength: cfg.Auth.SaltLength,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid hash configuration: %w", err)
	}

	recovery := auth.NewRecoveryCodeService(auth.RecoveryCodeConfig{
		CodeLength: cfg.Auth.Recovery.CodeLength,
		Expiry:     cfg.Auth.Recovery.CodeExpiry,
		Cooldown:   cfg.Auth.Recovery.Cooldown,
	})

	policy := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{
		MinLength:      cfg.Auth.Password.MinLength,
		MaxLength:      cfg.Auth.Password.MaxLength,
		AllowedPattern: cfg.Auth.Password.AllowedPattern,
		UnsafePatterns: cfg.Auth.Password.UnsafeList,
	}, logger)

	var transport auth.EmailTransport
	if cfg.Mail.Host != "" {
		transport, err = deps.MailFactory(MailSettings{
			Host:       cfg.Mail.Host,
			Port:       cfg.Mail.Port,
			Username:   cfg.Mail.Username,
			Password:   cfg.Mail.Password,
			From:       cfg.Mail.From,
			ServerName: cfg.Mail.ServerName,
		})
		if err != nil {
			return nil, fmt.Errorf("invalid mail configuration: %w", err)
		}
	}

	svc, err := auth.NewService(
		credStore,
		auth.NewSessionCache(),
		security,
		recovery,
		policy,
		nil, // no capability backend in the standalone server
		transport,
		auth.Settings{
			RegistrationEnabled:    cfg.Auth.RegistrationEnabled,
			MaxRegistrationsPerIP:  cfg.Auth.MaxRegistrationsPerIP,
			RecoveryPasswordLength: cfg.Auth.Recovery.PasswordLength,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build auth service: %w", err)
	}

	var workers dispatch.CoreCount
	if cfg.Auth.Workers > 0 {
		n := cfg.Auth.Workers
		workers = func() int { return n }
	}
	workPool := dispatch.NewPool(dispatch.PoolConfig{
		Workers:   workers,
		QueueSize: cfg.Auth.QueueSize,
	})
	gate := dispatch.NewSyncGate(cfg.Auth.QueueSize)

	async, err := auth.NewAsync(svc, workPool, gate, &logNotifier{logger: logger}, logger)
	if err != nil {
		workPool.Close()
		return nil, fmt.Errorf("failed to build async facade: %w", err)
	}

	return &Server{
		Auth:     async,
		Gate:     gate,
		svc:      svc,
		recovery: recovery,
		pool:     workPool,
		logger:   logger,
	}, nil
}

// Shutdown stops intake, finishes in-flight work, delivers the remaining
// outcomes, and clears session and recovery state.
func (s *Server) Shutdown() {
	s.pool.Close()
	s.Gate.Drain()
	s.svc.Cache().Clear()
	s.recovery.Clear()
}

// logNotifier reports outcomes through the structured log. Embedding hosts
// replace this with their own presentation layer.
type logNotifier struct {
	logger *slog.Logger
}

func (n *logNotifier) Notify(identity string, out auth.Outcome) {
	switch out.Class() {
	case auth.ClassError:
		n.logger.Error("auth outcome", "identity", identity, "outcome", fmt.Sprintf("%T", out))
	default:
		n.logger.Info("auth outcome", "identity", identity, "outcome", fmt.Sprintf("%T", out))
	}
}

// monitorServerErrors watches a server error channel and cancels the
// context on failure.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errChan <-chan error, name string) {
	select {
	case err, ok := <-errChan:
		if ok && err != nil {
			slog.Error("server failed", "server", name, "error", err)
			cancel()
		}
	case <-ctx.Done():
	}
}
