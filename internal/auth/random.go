// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"crypto/rand"
	"io"
	"math/big"

	"github.com/samber/oops"
)

const alphanumeric = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// generateAlphanumeric returns a random alphanumeric token of length n,
// drawn from r (crypto/rand when nil). Used for recovery codes and
// generated passwords; tests inject a deterministic reader.
func generateAlphanumeric(r io.Reader, n int) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	max := big.NewInt(int64(len(alphanumeric)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(r, max)
		if err != nil {
			return "", oops.Code("AUTH_TOKEN_GENERATE_FAILED").
				With("requested_length", n).
				Wrap(err)
		}
		out[i] = alphanumeric[idx.Int64()]
	}
	return string(out), nil
}
