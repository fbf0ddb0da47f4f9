// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package crypt

import (
	"crypto/md5"  //nolint:gosec // legacy format compatibility, not new hashing
	"crypto/sha1" //nolint:gosec // legacy format compatibility, not new hashing
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// Legacy algorithm names.
const (
	SHA256Name     = "SHA256"
	Salted2MD5Name = "SALTED2MD5"
	PBKDF2Name     = "PBKDF2"
	SMFName        = "SMF"
	MD5Name        = "MD5"
)

const pbkdf2Iterations = 10000

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s)) //nolint:gosec // legacy format
	return hex.EncodeToString(sum[:])
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) //nolint:gosec // legacy format
	return hex.EncodeToString(sum[:])
}

func sha256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

func equalFold(a, b string) bool {
	// Hex digests may be stored upper- or lowercase by old converters.
	return subtle.ConstantTimeCompare([]byte(strings.ToLower(a)), []byte(strings.ToLower(b))) == 1
}

// SHA256Algorithm implements the double-SHA256 salted format
// $SHA$<salt>$<sha256(sha256(password)+salt)>.
type SHA256Algorithm struct {
	salts saltSource
}

// NewSHA256 creates the salted double-SHA256 algorithm.
func NewSHA256(r io.Reader, saltLength int) *SHA256Algorithm {
	return &SHA256Algorithm{salts: newSaltSource(r, saltLength)}
}

// Name returns the canonical algorithm identifier.
func (a *SHA256Algorithm) Name() string { return SHA256Name }

// HasSeparateSalt reports false: the salt travels inside the hash string.
func (a *SHA256Algorithm) HasSeparateSalt() bool { return false }

// ComputeHash produces a $SHA$salt$hash digest.
func (a *SHA256Algorithm) ComputeHash(password, _ string) (Digest, error) {
	salt, err := a.salts.hexSalt()
	if err != nil {
		return Digest{}, err
	}
	return Digest{
		Hash:      "$SHA$" + salt + "$" + sha256Hex(sha256Hex(password)+salt),
		Algorithm: SHA256Name,
	}, nil
}

// Verify checks the password against a $SHA$salt$hash digest.
func (a *SHA256Algorithm) Verify(password string, d Digest, _ string) bool {
	parts := strings.Split(d.Hash, "$")
	// ["", "SHA", salt, hash]
	if len(parts) != 4 || parts[1] != "SHA" {
		return false
	}
	return equalFold(parts[3], sha256Hex(sha256Hex(password)+parts[2]))
}

// Salted2MD5Algorithm implements md5(md5(password)+salt) with the salt
// stored separately from the hash.
type Salted2MD5Algorithm struct {
	salts saltSource
}

// NewSalted2MD5 creates the salted double-MD5 algorithm.
func NewSalted2MD5(r io.Reader, saltLength int) *Salted2MD5Algorithm {
	return &Salted2MD5Algorithm{salts: newSaltSource(r, saltLength)}
}

// Name returns the canonical algorithm identifier.
func (a *Salted2MD5Algorithm) Name() string { return Salted2MD5Name }

// HasSeparateSalt reports true: the salt is persisted alongside the hash.
func (a *Salted2MD5Algorithm) HasSeparateSalt() bool { return true }

// ComputeHash produces an md5(md5(password)+salt) digest with a fresh salt.
func (a *Salted2MD5Algorithm) ComputeHash(password, _ string) (Digest, error) {
	salt, err := a.salts.hexSalt()
	if err != nil {
		return Digest{}, err
	}
	return Digest{
		Hash:      md5Hex(md5Hex(password) + salt),
		Salt:      salt,
		Algorithm: Salted2MD5Name,
	}, nil
}

// Verify checks the password against the digest using its stored salt.
func (a *Salted2MD5Algorithm) Verify(password string, d Digest, _ string) bool {
	if d.Salt == "" {
		return false
	}
	return equalFold(d.Hash, md5Hex(md5Hex(password)+d.Salt))
}

// PBKDF2Algorithm implements pbkdf2_sha256$<iterations>$<salt>$<hash>.
type PBKDF2Algorithm struct {
	salts saltSource
}

// NewPBKDF2 creates the PBKDF2-SHA256 algorithm.
func NewPBKDF2(r io.Reader, saltLength int) *PBKDF2Algorithm {
	return &PBKDF2Algorithm{salts: newSaltSource(r, saltLength)}
}

// Name returns the canonical algorithm identifier.
func (a *PBKDF2Algorithm) Name() string { return PBKDF2Name }

// HasSeparateSalt reports false: the salt travels inside the hash string.
func (a *PBKDF2Algorithm) HasSeparateSalt() bool { return false }

// ComputeHash produces a pbkdf2_sha256$iterations$salt$hash digest.
func (a *PBKDF2Algorithm) ComputeHash(password, _ string) (Digest, error) {
	salt, err := a.salts.hexSalt()
	if err != nil {
		return Digest{}, err
	}
	key := pbkdf2.Key([]byte(password), []byte(salt), pbkdf2Iterations, sha256.Size, sha256.New)
	return Digest{
		Hash:      "pbkdf2_sha256$" + strconv.Itoa(pbkdf2Iterations) + "$" + salt + "$" + hex.EncodeToString(key),
		Algorithm: PBKDF2Name,
	}, nil
}

// Verify checks the password against a pbkdf2_sha256 digest, honoring the
// iteration count recorded in the stored string.
func (a *PBKDF2Algorithm) Verify(password string, d Digest, _ string) bool {
	parts := strings.Split(d.Hash, "$")
	// ["pbkdf2_sha256", iterations, salt, hash]
	if len(parts) != 4 || parts[0] != "pbkdf2_sha256" {
		return false
	}
	iterations, err := strconv.Atoi(parts[1])
	if err != nil || iterations <= 0 {
		return false
	}
	expected, err := hex.DecodeString(strings.ToLower(parts[3]))
	if err != nil || len(expected) == 0 {
		return false
	}
	key := pbkdf2.Key([]byte(password), []byte(parts[2]), iterations, len(expected), sha256.New)
	return subtle.ConstantTimeCompare(key, expected) == 1
}

// SMFAlgorithm implements the Simple Machines Forum format
// sha1(lower(username)+password). The username is part of the hash input,
// so compute and verify must normalize it identically.
type SMFAlgorithm struct{}

// NewSMF creates the SMF algorithm.
func NewSMF() *SMFAlgorithm { return &SMFAlgorithm{} }

// Name returns the canonical algorithm identifier.
func (a *SMFAlgorithm) Name() string { return SMFName }

// HasSeparateSalt reports false: the username acts as the salt.
func (a *SMFAlgorithm) HasSeparateSalt() bool { return false }

// ComputeHash produces sha1(lower(identity)+password).
func (a *SMFAlgorithm) ComputeHash(password, identity string) (Digest, error) {
	return Digest{
		Hash:      sha1Hex(strings.ToLower(identity) + password),
		Algorithm: SMFName,
	}, nil
}

// Verify checks the password using the same username normalization as
// ComputeHash.
func (a *SMFAlgorithm) Verify(password string, d Digest, identity string) bool {
	return equalFold(d.Hash, sha1Hex(strings.ToLower(identity)+password))
}

// MD5Algorithm implements the bare legacy md5 hex digest.
type MD5Algorithm struct{}

// NewMD5 creates the plain MD5 algorithm.
func NewMD5() *MD5Algorithm { return &MD5Algorithm{} }

// Name returns the canonical algorithm identifier.
func (a *MD5Algorithm) Name() string { return MD5Name }

// HasSeparateSalt reports false.
func (a *MD5Algorithm) HasSeparateSalt() bool { return false }

// ComputeHash produces an unsalted md5 hex digest.
func (a *MD5Algorithm) ComputeHash(password, _ string) (Digest, error) {
	return Digest{Hash: md5Hex(password), Algorithm: MD5Name}, nil
}

// Verify checks the password against an md5 hex digest.
func (a *MD5Algorithm) Verify(password string, d Digest, _ string) bool {
	return equalFold(d.Hash, md5Hex(password))
}
