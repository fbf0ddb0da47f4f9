// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth_test

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/auth"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	logger := slog.New(slog.DiscardHandler)

	t.Run("defaults", func(t *testing.T) {
		p := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{}, logger)

		tests := []struct {
			name     string
			password string
			identity string
			reason   auth.PasswordReason // empty means acceptable
		}{
			{"acceptable", "s3cret!", "bobby", ""},
			{"minimum length", "abcde", "bobby", ""},
			{"too short", "abcd", "bobby", auth.PasswordTooShort},
			{"empty", "", "bobby", auth.PasswordTooShort},
			{"too long", "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa", "bobby", auth.PasswordTooLong},
			{"same as name", "bobby", "bobby", auth.PasswordSameAsUsername},
			{"same as name ignoring case", "BoBBy", "bobby", auth.PasswordSameAsUsername},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				rej := p.Validate(tt.password, tt.identity)
				if tt.reason == "" {
					assert.Nil(t, rej)
					return
				}
				require.NotNil(t, rej)
				assert.Equal(t, tt.reason, rej.Reason)
			})
		}
	})

	t.Run("length rejection carries the bounds", func(t *testing.T) {
		p := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{MinLength: 8, MaxLength: 16}, logger)

		rej := p.Validate("short", "bobby")
		require.NotNil(t, rej)
		assert.Equal(t, auth.PasswordTooShort, rej.Reason)
		assert.Equal(t, 8, rej.MinLength)
		assert.Equal(t, 16, rej.MaxLength)
	})

	t.Run("allowed pattern must match the whole password", func(t *testing.T) {
		p := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{AllowedPattern: `[a-zA-Z0-9_?]*`}, logger)

		assert.Nil(t, p.Validate("valid_09?", "bobby"))

		rej := p.Validate("has spaces", "bobby")
		require.NotNil(t, rej)
		assert.Equal(t, auth.PasswordBadCharacters, rej.Reason)
		assert.Equal(t, `[a-zA-Z0-9_?]*`, rej.Pattern)
	})

	t.Run("broken allowed pattern falls back to allowing everything", func(t *testing.T) {
		p := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{AllowedPattern: `[unclosed`}, logger)
		assert.Nil(t, p.Validate("any chars at all!", "bobby"))
	})

	t.Run("unsafe globs match case-insensitively", func(t *testing.T) {
		p := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{
			UnsafePatterns: []string{"password*", "qwerty"},
		}, logger)

		for _, banned := range []string{"password", "PASSWORD123", "Password!", "qwerty", "QWERTY"} {
			rej := p.Validate(banned, "bobby")
			require.NotNil(t, rej, "expected %q to be banned", banned)
			assert.Equal(t, auth.PasswordUnsafe, rej.Reason)
		}
		assert.Nil(t, p.Validate("qwerty1", "bobby"))
	})

	t.Run("unparseable unsafe pattern is skipped", func(t *testing.T) {
		p := auth.NewPasswordPolicy(auth.PasswordPolicyConfig{
			UnsafePatterns: []string{"[broken", "letmein"},
		}, logger)

		require.NotNil(t, p.Validate("letmein", "bobby"))
		assert.Nil(t, p.Validate("[broken", "bobby"))
	})
}
