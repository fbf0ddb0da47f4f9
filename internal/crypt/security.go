// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package crypt

import (
	"io"
	"strings"

	"github.com/samber/oops"
)

// Options configures the Security facade.
type Options struct {
	// Algorithm is the name of the algorithm used for new hashes.
	Algorithm string

	// SaltLength is the salt size in bytes for legacy salted variants.
	// Zero means DefaultSaltLength.
	SaltLength int

	// Rand is the random source for salt generation. Nil means crypto/rand.
	// Tests inject a deterministic reader here.
	Rand io.Reader
}

// Security selects the configured algorithm for new hashes and dispatches
// verification to the algorithm recorded on the stored digest.
//
// The algorithm table is resolved once at construction; an unknown
// configured name is a startup failure, not a runtime one.
type Security struct {
	algorithms map[string]Algorithm
	current    Algorithm
}

// NewSecurity builds the algorithm table and resolves the configured
// algorithm. Returns an error for an unknown algorithm name.
func NewSecurity(opts Options) (*Security, error) {
	table := []Algorithm{
		NewArgon2id(opts.Rand),
		NewBCrypt(),
		NewSHA256(opts.Rand, opts.SaltLength),
		NewSalted2MD5(opts.Rand, opts.SaltLength),
		NewPBKDF2(opts.Rand, opts.SaltLength),
		NewSMF(),
		NewMD5(),
	}

	algorithms := make(map[string]Algorithm, len(table))
	for _, a := range table {
		algorithms[a.Name()] = a
	}

	name := strings.ToUpper(strings.TrimSpace(opts.Algorithm))
	if name == "" {
		name = Argon2ID
	}
	current, ok := algorithms[name]
	if !ok {
		return nil, oops.Code("CRYPT_UNKNOWN_ALGORITHM").
			With("algorithm", opts.Algorithm).
			Errorf("unknown hash algorithm %q", opts.Algorithm)
	}

	return &Security{algorithms: algorithms, current: current}, nil
}

// AlgorithmName returns the name of the algorithm used for new hashes.
func (s *Security) AlgorithmName() string { return s.current.Name() }

// ComputeHash hashes the password under the configured algorithm.
func (s *Security) ComputeHash(password, identity string) (Digest, error) {
	d, err := s.current.ComputeHash(password, identity)
	if err != nil {
		return Digest{}, oops.Code("CRYPT_HASH_FAILED").
			With("algorithm", s.current.Name()).
			Wrap(err)
	}
	return d, nil
}

// Verify checks the password against the stored digest using the algorithm
// that produced it. A digest carrying an unknown or empty algorithm name
// fails verification; it is the caller's signal of a corrupt record, not a
// system error.
func (s *Security) Verify(password string, d Digest, identity string) bool {
	alg, ok := s.algorithms[strings.ToUpper(d.Algorithm)]
	if !ok {
		return false
	}
	return alg.Verify(password, d, identity)
}

// NeedsRehash reports whether the digest was produced under a different
// algorithm than the configured one. Callers re-hash opportunistically
// after a successful verification.
func (s *Security) NeedsRehash(d Digest) bool {
	return !strings.EqualFold(d.Algorithm, s.current.Name())
}
