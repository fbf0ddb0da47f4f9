// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package config loads server configuration from a YAML file with
// command-line flag overrides.
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/internal/crypt"
)

// Config is the root configuration for the warden server.
type Config struct {
	Database DatabaseConfig `koanf:"database"`
	Auth     AuthConfig     `koanf:"auth"`
	Mail     MailConfig     `koanf:"mail"`
	Log      LogConfig      `koanf:"log"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

// DatabaseConfig locates the credential database.
type DatabaseConfig struct {
	URL string `koanf:"url"`
}

// AuthConfig drives the authentication core.
type AuthConfig struct {
	RegistrationEnabled   bool   `koanf:"registration_enabled"`
	MaxRegistrationsPerIP int    `koanf:"max_registrations_per_ip"`
	Algorithm             string `koanf:"algorithm"`
	SaltLength            int    `koanf:"salt_length"`

	Password PasswordConfig `koanf:"password"`
	Recovery RecoveryConfig `koanf:"recovery"`

	Workers   int `koanf:"workers"`
	QueueSize int `koanf:"queue_size"`
}

// PasswordConfig bounds acceptable passwords.
type PasswordConfig struct {
	MinLength      int      `koanf:"min_length"`
	MaxLength      int      `koanf:"max_length"`
	AllowedPattern string   `koanf:"allowed_pattern"`
	UnsafeList     []string `koanf:"unsafe"`
}

// RecoveryConfig drives the email recovery flow.
type RecoveryConfig struct {
	CodeLength     int           `koanf:"code_length"`
	CodeExpiry     time.Duration `koanf:"code_expiry"`
	Cooldown       time.Duration `koanf:"cooldown"`
	PasswordLength int           `koanf:"password_length"`
}

// MailConfig configures the SMTP transport. An empty host disables mail
// delivery; recovery then reports an email failure.
type MailConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	Username   string `koanf:"username"`
	Password   string `koanf:"password"`
	From       string `koanf:"from"`
	ServerName string `koanf:"server_name"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Format string `koanf:"format"`
	Level  string `koanf:"level"`
}

// MetricsConfig configures the observability HTTP server. Empty addr
// disables it.
type MetricsConfig struct {
	Addr string `koanf:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Auth: AuthConfig{
			RegistrationEnabled: true,
			Algorithm:           crypt.Argon2ID,
			SaltLength:          crypt.DefaultSaltLength,
			Password: PasswordConfig{
				MinLength: auth.DefaultPasswordMinLength,
				MaxLength: auth.DefaultPasswordMaxLength,
			},
			Recovery: RecoveryConfig{
				CodeLength:     6,
				CodeExpiry:     auth.DefaultRecoveryCodeExpiry,
				Cooldown:       auth.DefaultRecoveryCooldown,
				PasswordLength: auth.DefaultRecoveryPasswordLength,
			},
		},
		Mail: MailConfig{Port: 25},
		Log:  LogConfig{Format: "json", Level: "info"},
	}
}

// Load reads configuration from the optional YAML file at path, then
// applies flag overrides. Either source may be absent; defaults fill the
// rest.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Only explicitly set flags override; unset flags carry zero-value
		// defaults that must not clobber file or built-in values.
		changed := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			if f := flags.Lookup(key); f == nil || !f.Changed {
				return "", nil
			}
			return key, value
		})
		if err := k.Load(changed, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("source", "flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_PARSE_FAILED").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that koanf cannot express.
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		return oops.Code("CONFIG_INVALID").
			Errorf("log.format must be 'json' or 'text', got %q", c.Log.Format)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return oops.Code("CONFIG_INVALID").
			Errorf("log.level must be one of debug, info, warn, error; got %q", c.Log.Level)
	}
	if c.Auth.Password.MinLength > c.Auth.Password.MaxLength {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.password.min_length %d exceeds max_length %d",
				c.Auth.Password.MinLength, c.Auth.Password.MaxLength)
	}
	if c.Auth.MaxRegistrationsPerIP < 0 {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.max_registrations_per_ip must be non-negative, got %d",
				c.Auth.MaxRegistrationsPerIP)
	}
	if c.Auth.Recovery.CodeLength < 0 {
		return oops.Code("CONFIG_INVALID").
			Errorf("auth.recovery.code_length must be non-negative, got %d",
				c.Auth.Recovery.CodeLength)
	}
	if c.Mail.Host != "" && c.Mail.From == "" {
		return oops.Code("CONFIG_INVALID").Errorf("mail.from is required when mail.host is set")
	}
	return nil
}
