// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package crypt

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
)

// OWASP-recommended argon2id parameters.
const (
	argon2Time    = 1         // iterations
	argon2Memory  = 64 * 1024 // 64 MB
	argon2Threads = 4         // parallelism
	argon2SaltLen = 16        // salt length in bytes
	argon2KeyLen  = 32        // output length in bytes
)

// maxVerifyMemory caps the memory parameter accepted from a stored digest,
// in KiB (2 GiB). Verification allocates this much.
const maxVerifyMemory = 2 * 1024 * 1024

// Argon2ID is the name of the current default algorithm.
const Argon2ID = "ARGON2ID"

// Argon2idAlgorithm hashes passwords with argon2id in PHC string format.
type Argon2idAlgorithm struct {
	rand io.Reader
}

// NewArgon2id creates an argon2id algorithm drawing salts from r.
// A nil reader falls back to crypto/rand.
func NewArgon2id(r io.Reader) *Argon2idAlgorithm {
	return &Argon2idAlgorithm{rand: newSaltSource(r, argon2SaltLen).rand}
}

// Name returns the canonical algorithm identifier.
func (a *Argon2idAlgorithm) Name() string { return Argon2ID }

// HasSeparateSalt reports false: the salt is embedded in the PHC string.
func (a *Argon2idAlgorithm) HasSeparateSalt() bool { return false }

// ComputeHash produces an argon2id digest of the password.
func (a *Argon2idAlgorithm) ComputeHash(password, _ string) (Digest, error) {
	salt := make([]byte, argon2SaltLen)
	if _, err := io.ReadFull(a.rand, salt); err != nil {
		return Digest{}, oops.Code("CRYPT_SALT_FAILED").Wrap(err)
	}

	hash := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	// PHC string format: $argon2id$v=19$m=65536,t=1,p=4$<salt>$<hash>
	encoded := fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		argon2Memory,
		argon2Time,
		argon2Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	)

	return Digest{Hash: encoded, Algorithm: Argon2ID}, nil
}

// Verify checks the password against a PHC-encoded argon2id digest.
// Malformed digests verify as false.
func (a *Argon2idAlgorithm) Verify(password string, d Digest, _ string) bool {
	parts := strings.Split(d.Hash, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false
	}

	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil {
		return false
	}

	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return false
	}
	// Parameters come from the stored string; out-of-range values would
	// panic inside argon2.IDKey or drive an unbounded allocation.
	if time == 0 {
		return false
	}
	if memory == 0 || memory > maxVerifyMemory {
		return false
	}
	if threads == 0 || threads > 255 {
		return false
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false
	}
	keyLen := len(expected)
	if keyLen <= 0 || keyLen > 1<<30 {
		return false
	}

	computed := argon2.IDKey([]byte(password), salt, time, memory, uint8(threads), uint32(keyLen))
	return subtle.ConstantTimeCompare(computed, expected) == 1
}
