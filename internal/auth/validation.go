// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/gobwas/glob"
)

// Password policy defaults.
const (
	DefaultPasswordMinLength = 5
	DefaultPasswordMaxLength = 30
)

// CompilePatternOrDefault compiles the pattern, falling back to a
// match-everything expression when it does not parse. The fallback is
// logged as a warning so operators notice the misconfiguration without
// the core refusing to start.
func CompilePatternOrDefault(pattern string, logger *slog.Logger) *regexp.Regexp {
	re, err := regexp.Compile(pattern)
	if err != nil {
		if logger != nil {
			logger.Warn("failed to compile pattern, allowing everything",
				"pattern", pattern, "error", err)
		}
		return regexp.MustCompile(`.*`)
	}
	return re
}

// PasswordPolicyConfig configures a PasswordPolicy.
type PasswordPolicyConfig struct {
	// MinLength and MaxLength bound the password length in bytes.
	// Zero values use the package defaults.
	MinLength int
	MaxLength int

	// AllowedPattern is a regular expression every password must fully
	// match. Empty means any characters. A pattern that fails to compile
	// falls back to allowing everything.
	AllowedPattern string

	// UnsafePatterns lists glob patterns for banned passwords, e.g.
	// "password*" or "12345?". Matching is case-insensitive.
	UnsafePatterns []string
}

// PasswordPolicy validates candidate passwords at registration and
// recovery time. It is immutable after construction and safe for
// concurrent use.
type PasswordPolicy struct {
	minLength int
	maxLength int

	allowedPattern string
	allowed        *regexp.Regexp

	unsafe []glob.Glob
}

// NewPasswordPolicy builds a policy from config. Unsafe patterns that do
// not parse as globs are skipped with a warning; a broken allowed-pattern
// falls back to allowing everything.
func NewPasswordPolicy(cfg PasswordPolicyConfig, logger *slog.Logger) *PasswordPolicy {
	p := &PasswordPolicy{
		minLength:      cfg.MinLength,
		maxLength:      cfg.MaxLength,
		allowedPattern: cfg.AllowedPattern,
	}
	if p.minLength <= 0 {
		p.minLength = DefaultPasswordMinLength
	}
	if p.maxLength <= 0 {
		p.maxLength = DefaultPasswordMaxLength
	}
	if cfg.AllowedPattern != "" {
		// Anchored so the whole password must match, not a substring.
		p.allowed = CompilePatternOrDefault(`\A(?:`+cfg.AllowedPattern+`)\z`, logger)
	}
	for _, pattern := range cfg.UnsafePatterns {
		g, err := glob.Compile(strings.ToLower(pattern))
		if err != nil {
			if logger != nil {
				logger.Warn("skipping unparseable unsafe-password pattern",
					"pattern", pattern, "error", err)
			}
			continue
		}
		p.unsafe = append(p.unsafe, g)
	}
	return p
}

// Validate checks the password against the policy. It returns nil when the
// password is acceptable, otherwise the UnsafePassword rejection to report.
func (p *PasswordPolicy) Validate(password, identity string) *UnsafePassword {
	if len(password) < p.minLength {
		return &UnsafePassword{Reason: PasswordTooShort, MinLength: p.minLength, MaxLength: p.maxLength}
	}
	if len(password) > p.maxLength {
		return &UnsafePassword{Reason: PasswordTooLong, MinLength: p.minLength, MaxLength: p.maxLength}
	}
	if strings.EqualFold(password, identity) {
		return &UnsafePassword{Reason: PasswordSameAsUsername}
	}
	if p.allowed != nil && !p.allowed.MatchString(password) {
		return &UnsafePassword{Reason: PasswordBadCharacters, Pattern: p.allowedPattern}
	}
	lowered := strings.ToLower(password)
	for _, g := range p.unsafe {
		if g.Match(lowered) {
			return &UnsafePassword{Reason: PasswordUnsafe}
		}
	}
	return nil
}
