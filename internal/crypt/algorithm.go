// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package crypt implements password hashing for Warden.
//
// A closed family of Algorithm implementations covers the current scheme
// (argon2id) plus the legacy formats still present in long-lived credential
// databases. The Security facade selects the configured algorithm for new
// hashes and dispatches verification to whichever algorithm produced the
// stored digest, so credentials survive algorithm changes.
package crypt

import (
	"crypto/rand"
	"encoding/hex"
	"io"

	"github.com/samber/oops"
)

// DefaultSaltLength is the salt size in bytes for legacy salted variants.
const DefaultSaltLength = 8

// Digest is the stored representation of a password: the hash payload, an
// optional separate salt, and the name of the algorithm that produced it.
// Digests are opaque outside this package.
type Digest struct {
	Hash      string
	Salt      string // empty when the salt is embedded in Hash
	Algorithm string
}

// Algorithm computes and verifies password digests.
//
// ComputeHash is deterministic given identical inputs including the salt;
// salt generation itself draws from the configured random source. Verify
// must tolerate malformed stored digests: a digest that cannot be parsed
// is a verification failure, never a panic or an error.
type Algorithm interface {
	// Name returns the canonical algorithm identifier.
	Name() string

	// ComputeHash hashes the password. Identity is the normalized player
	// name; most algorithms ignore it, but formats that mix the username
	// into the hash input depend on it.
	ComputeHash(password, identity string) (Digest, error)

	// Verify reports whether the password matches the stored digest.
	Verify(password string, d Digest, identity string) bool

	// HasSeparateSalt reports whether the digest carries its salt in the
	// Salt field rather than embedded in the hash string.
	HasSeparateSalt() bool
}

// saltSource generates hex-encoded salts from an injectable random reader.
type saltSource struct {
	rand   io.Reader
	length int // bytes of entropy per salt
}

func newSaltSource(r io.Reader, length int) saltSource {
	if r == nil {
		r = rand.Reader
	}
	if length <= 0 {
		length = DefaultSaltLength
	}
	return saltSource{rand: r, length: length}
}

// hexSalt returns a hex-encoded random salt.
func (s saltSource) hexSalt() (string, error) {
	buf := make([]byte, s.length)
	if _, err := io.ReadFull(s.rand, buf); err != nil {
		return "", oops.Code("CRYPT_SALT_FAILED").
			With("requested_bytes", s.length).
			Wrap(err)
	}
	return hex.EncodeToString(buf), nil
}
