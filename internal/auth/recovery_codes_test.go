// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wardenauth/warden/internal/auth"
)

func newRecoveryService(clock *fakeClock, codeLength int) *auth.RecoveryCodeService {
	return auth.NewRecoveryCodeService(auth.RecoveryCodeConfig{
		CodeLength: codeLength,
		Cooldown:   time.Minute,
		Now:        clock.Now,
	})
}

func TestRecoveryCodeService_Generate(t *testing.T) {
	t.Run("issues a code of the configured length", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		code, wait, err := s.Generate("bobby")
		require.NoError(t, err)
		assert.Zero(t, wait)
		assert.Len(t, code, 8)
		assert.True(t, s.IsValid("bobby", code))
	})

	t.Run("cooldown blocks a second issuance", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		_, _, err := s.Generate("bobby")
		require.NoError(t, err)

		clock.Advance(15 * time.Second)
		code, wait, err := s.Generate("bobby")
		require.NoError(t, err)
		assert.Empty(t, code)
		assert.Equal(t, 45*time.Second, wait)

		clock.Advance(46 * time.Second)
		code, wait, err = s.Generate("bobby")
		require.NoError(t, err)
		assert.Zero(t, wait)
		assert.NotEmpty(t, code)
	})

	t.Run("cooldowns are per identity", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		_, _, err := s.Generate("alice")
		require.NoError(t, err)

		code, wait, err := s.Generate("bob")
		require.NoError(t, err)
		assert.Zero(t, wait)
		assert.NotEmpty(t, code)
	})

	t.Run("new code replaces the previous one", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		first, _, err := s.Generate("bobby")
		require.NoError(t, err)

		clock.Advance(2 * time.Minute)
		second, _, err := s.Generate("bobby")
		require.NoError(t, err)

		assert.False(t, s.IsValid("bobby", first))
		assert.True(t, s.IsValid("bobby", second))
	})

	t.Run("identity is normalized", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		code, _, err := s.Generate("BoBBy")
		require.NoError(t, err)
		assert.True(t, s.IsValid("bobby", code))

		_, wait, err := s.Generate("BOBBY")
		require.NoError(t, err)
		assert.Positive(t, wait)
	})
}

func TestRecoveryCodeService_IsValid(t *testing.T) {
	t.Run("codes are case-sensitive and exact", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		code, _, err := s.Generate("bobby")
		require.NoError(t, err)

		assert.False(t, s.IsValid("bobby", code+"x"))
		assert.False(t, s.IsValid("bobby", ""))
		assert.False(t, s.IsValid("alice", code))
	})

	t.Run("expired codes are invalid", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := auth.NewRecoveryCodeService(auth.RecoveryCodeConfig{
			CodeLength: 8,
			Expiry:     time.Hour,
			Cooldown:   time.Minute,
			Now:        clock.Now,
		})

		code, _, err := s.Generate("bobby")
		require.NoError(t, err)

		clock.Advance(time.Hour - time.Second)
		assert.True(t, s.IsValid("bobby", code))

		clock.Advance(2 * time.Second)
		assert.False(t, s.IsValid("bobby", code))
	})

	t.Run("remove consumes the code but keeps the cooldown", func(t *testing.T) {
		clock := &fakeClock{now: time.Unix(1700000000, 0)}
		s := newRecoveryService(clock, 8)

		code, _, err := s.Generate("bobby")
		require.NoError(t, err)

		s.Remove("bobby")
		assert.False(t, s.IsValid("bobby", code))

		// Consumption does not open the cooldown window early.
		_, wait, err := s.Generate("bobby")
		require.NoError(t, err)
		assert.Positive(t, wait)
	})
}

func TestRecoveryCodeService_StampAttempt(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	s := newRecoveryService(clock, 0)

	assert.False(t, s.Required())
	assert.Zero(t, s.StampAttempt("bobby"))

	clock.Advance(30 * time.Second)
	assert.Equal(t, 30*time.Second, s.StampAttempt("bobby"))

	clock.Advance(31 * time.Second)
	assert.Zero(t, s.StampAttempt("bobby"))
}

func TestRecoveryCodeService_Clear(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	s := newRecoveryService(clock, 8)

	code, _, err := s.Generate("bobby")
	require.NoError(t, err)

	s.Clear()
	assert.False(t, s.IsValid("bobby", code))

	// Cooldown stamps are gone too.
	fresh, wait, err := s.Generate("bobby")
	require.NoError(t, err)
	assert.Zero(t, wait)
	assert.NotEmpty(t, fresh)
}
