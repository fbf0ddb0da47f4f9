// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package main

import (
	"fmt"
	"strconv"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/wardenauth/warden/internal/config"
	"github.com/wardenauth/warden/internal/store"
)

// migrateRunner wraps the store.Migrator methods the migrate commands use.
type migrateRunner interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	AppliedMigrations() ([]uint, error)
	Close() error
}

// MigrateDeps contains injectable dependencies for the migrate commands.
type MigrateDeps struct {
	// MigratorFactory creates a schema migrator. Default: store.NewMigrator.
	MigratorFactory func(databaseURL string) (migrateRunner, error)
}

func (d *MigrateDeps) migrator(cmd *cobra.Command) (migrateRunner, error) {
	factory := d.MigratorFactory
	if factory == nil {
		factory = func(databaseURL string) (migrateRunner, error) {
			return store.NewMigrator(databaseURL)
		}
	}

	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	return factory(cfg.Database.URL)
}

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	return newMigrateCmdWithDeps(&MigrateDeps{})
}

func newMigrateCmdWithDeps(deps *MigrateDeps) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Run all pending schema migrations against the credential database.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateUp(cmd, deps)
		},
	}
	cmd.PersistentFlags().String("database.url", "", "database connection URL")

	cmd.AddCommand(newMigrateStatusCmd(deps))
	cmd.AddCommand(newMigrateDownCmd(deps))
	cmd.AddCommand(newMigrateForceCmd(deps))
	return cmd
}

func runMigrateUp(cmd *cobra.Command, deps *MigrateDeps) error {
	migrator, err := deps.migrator(cmd)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	pending, err := migrator.PendingMigrations()
	if err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "list pending").Wrap(err)
	}
	if len(pending) == 0 {
		cmd.Println("No pending migrations")
		return nil
	}

	cmd.Printf("Applying %d migration(s)...\n", len(pending))
	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "run migrations").Wrap(err)
	}
	cmd.Println("Migrations completed successfully")
	return nil
}

func newMigrateStatusCmd(deps *MigrateDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		Long:  `Show the current schema version and the applied and pending migrations.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMigrateStatus(cmd, deps)
		},
	}
}

func runMigrateStatus(cmd *cobra.Command, deps *MigrateDeps) error {
	migrator, err := deps.migrator(cmd)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	version, dirty, err := migrator.Version()
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
	}

	if version == 0 {
		cmd.Println("Current version: none")
	} else {
		cmd.Printf("Current version: %d%s\n", version, dirtySuffix(dirty))
	}

	applied, err := migrator.AppliedMigrations()
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
	}
	pending, err := migrator.PendingMigrations()
	if err != nil {
		return oops.Code("MIGRATION_STATUS_FAILED").Wrap(err)
	}

	cmd.Printf("Applied: %d\n", len(applied))
	for _, v := range applied {
		cmd.Printf("  %s\n", describeMigration(v))
	}
	cmd.Printf("Pending: %d\n", len(pending))
	for _, v := range pending {
		cmd.Printf("  %s\n", describeMigration(v))
	}
	return nil
}

func dirtySuffix(dirty bool) string {
	if dirty {
		return " (dirty)"
	}
	return ""
}

func describeMigration(version uint) string {
	name, err := store.MigrationName(version)
	if err != nil || name == "" {
		return fmt.Sprintf("%06d", version)
	}
	return name
}

func newMigrateDownCmd(deps *MigrateDeps) *cobra.Command {
	var confirmed bool

	cmd := &cobra.Command{
		Use:   "down",
		Short: "Roll back all migrations",
		Long:  `Roll back all applied schema migrations. Destroys all credential data.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !confirmed {
				return oops.Code("MIGRATION_NOT_CONFIRMED").
					Errorf("refusing to roll back without --yes")
			}
			return runMigrateDown(cmd, deps)
		},
	}
	cmd.Flags().BoolVar(&confirmed, "yes", false, "confirm the destructive rollback")
	return cmd
}

func runMigrateDown(cmd *cobra.Command, deps *MigrateDeps) error {
	migrator, err := deps.migrator(cmd)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	cmd.Println("Rolling back all migrations...")
	if err := migrator.Down(); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "roll back").Wrap(err)
	}
	cmd.Println("Rollback completed")
	return nil
}

func newMigrateForceCmd(deps *MigrateDeps) *cobra.Command {
	return &cobra.Command{
		Use:   "force <version>",
		Short: "Force the schema version",
		Long: `Set the recorded schema version without running migrations.
Use only to recover from a failed migration that left the schema dirty.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return oops.Code("MIGRATION_INVALID_VERSION").
					With("version", args[0]).
					Errorf("version must be an integer")
			}
			return runMigrateForce(cmd, deps, version)
		},
	}
}

func runMigrateForce(cmd *cobra.Command, deps *MigrateDeps, version int) error {
	migrator, err := deps.migrator(cmd)
	if err != nil {
		return err
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Force(version); err != nil {
		return oops.Code("MIGRATION_FAILED").With("operation", "force version").Wrap(err)
	}
	cmd.Printf("Schema version forced to %d\n", version)
	return nil
}
