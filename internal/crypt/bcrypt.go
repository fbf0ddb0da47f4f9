// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package crypt

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// BCryptName is the bcrypt algorithm identifier.
const BCryptName = "BCRYPT"

// bcryptCost matches the cost used by the legacy databases we stay
// compatible with.
const bcryptCost = 10

// BCryptAlgorithm hashes passwords with bcrypt.
type BCryptAlgorithm struct{}

// NewBCrypt creates the bcrypt algorithm.
func NewBCrypt() *BCryptAlgorithm { return &BCryptAlgorithm{} }

// Name returns the canonical algorithm identifier.
func (a *BCryptAlgorithm) Name() string { return BCryptName }

// HasSeparateSalt reports false: bcrypt embeds the salt in its output.
func (a *BCryptAlgorithm) HasSeparateSalt() bool { return false }

// ComputeHash produces a bcrypt digest.
func (a *BCryptAlgorithm) ComputeHash(password, _ string) (Digest, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return Digest{}, oops.Code("CRYPT_HASH_FAILED").
			With("algorithm", BCryptName).
			Wrap(err)
	}
	return Digest{Hash: string(hash), Algorithm: BCryptName}, nil
}

// Verify checks the password against a bcrypt digest. Malformed digests
// verify as false.
func (a *BCryptAlgorithm) Verify(password string, d Digest, _ string) bool {
	return bcrypt.CompareHashAndPassword([]byte(d.Hash), []byte(password)) == nil
}
