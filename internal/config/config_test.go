// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/crypt"
	"github.com/wardenauth/warden/pkg/errutil"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "warden.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalYAML = `
database:
  url: postgres://localhost:5432/warden
`

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML), nil)
	require.NoError(t, err)

	assert.True(t, cfg.Auth.RegistrationEnabled)
	assert.Equal(t, crypt.Argon2ID, cfg.Auth.Algorithm)
	assert.Equal(t, 6, cfg.Auth.Recovery.CodeLength)
	assert.Equal(t, 60*time.Second, cfg.Auth.Recovery.Cooldown)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FileOverrides(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
database:
  url: postgres://localhost:5432/warden
auth:
  registration_enabled: false
  max_registrations_per_ip: 2
  algorithm: BCRYPT
  password:
    min_length: 8
    unsafe:
      - "password*"
      - "123456*"
  recovery:
    code_length: 10
    cooldown: 5m
log:
  format: text
  level: debug
mail:
  host: smtp.example.com
  from: noreply@example.com
`), nil)
	require.NoError(t, err)

	assert.False(t, cfg.Auth.RegistrationEnabled)
	assert.Equal(t, 2, cfg.Auth.MaxRegistrationsPerIP)
	assert.Equal(t, "BCRYPT", cfg.Auth.Algorithm)
	assert.Equal(t, 8, cfg.Auth.Password.MinLength)
	assert.Equal(t, []string{"password*", "123456*"}, cfg.Auth.Password.UnsafeList)
	assert.Equal(t, 10, cfg.Auth.Recovery.CodeLength)
	assert.Equal(t, 5*time.Minute, cfg.Auth.Recovery.Cooldown)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, "smtp.example.com", cfg.Mail.Host)
}

func TestLoad_FlagOverrides(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("log.level", "", "")
	flags.String("database.url", "", "")
	require.NoError(t, flags.Parse([]string{
		"--log.level=warn",
		"--database.url=postgres://flag-host:5432/warden",
	}))

	cfg, err := Load(writeConfig(t, minimalYAML), flags)
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "postgres://flag-host:5432/warden", cfg.Database.URL)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), nil)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_LOAD_FAILED")
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Database.URL = "postgres://localhost:5432/warden"
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing database url", func(c *Config) { c.Database.URL = "" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }},
		{"min above max", func(c *Config) { c.Auth.Password.MinLength = 50 }},
		{"negative quota", func(c *Config) { c.Auth.MaxRegistrationsPerIP = -1 }},
		{"negative code length", func(c *Config) { c.Auth.Recovery.CodeLength = -1 }},
		{"mail host without from", func(c *Config) { c.Mail.Host = "smtp.example.com" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			require.NoError(t, cfg.Validate())
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
		})
	}
}
