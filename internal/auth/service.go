// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/crypt"
	"github.com/wardenauth/warden/pkg/errutil"
)

// Loopback addresses exempt from the per-IP registration quota.
const (
	loopbackIPv4 = "127.0.0.1"
	loopbackName = "localhost"
)

// DefaultRecoveryPasswordLength is the length of generated passwords.
const DefaultRecoveryPasswordLength = 12

// Settings are the feature toggles and limits the Service consults.
// They come from configuration and are immutable for the Service lifetime.
type Settings struct {
	// RegistrationEnabled gates the register operation.
	RegistrationEnabled bool

	// MaxRegistrationsPerIP bounds registrations sharing one IP.
	// Zero means unlimited.
	MaxRegistrationsPerIP int

	// RecoveryPasswordLength is the length of generated recovery
	// passwords. Zero means DefaultRecoveryPasswordLength.
	RecoveryPasswordLength int
}

// CredentialBuilder produces the record persisted for a registration.
// The default builder stamps the IP and registration time; callers inject
// their own to carry extra host-side fields.
type CredentialBuilder func(req RegisterRequest, d crypt.Digest, now time.Time) *CredentialRecord

// RegisterRequest is one registration attempt.
type RegisterRequest struct {
	Name     string
	IP       string
	Password string
	Email    string // optional

	// PostPersist runs after the record is durably created, before the
	// success outcome is returned. Used by call sites for follow-up side
	// effects the generic pipeline should not know about.
	PostPersist func()
}

// LoginRequest is one authentication attempt.
type LoginRequest struct {
	Name     string
	Password string
}

// RecoverRequest is one email-recovery attempt. Code is empty on the
// initial request; when recovery codes are required the caller repeats
// the request with the mailed code.
type RecoverRequest struct {
	Name  string
	Email string
	Code  string
}

// Service orchestrates the registration, login, and recovery pipelines.
// All methods are safe for concurrent use; per-identity consistency comes
// from the SessionCache and RecoveryCodeService locks plus the store's
// atomic create-if-absent primitive.
type Service struct {
	store    CredentialStore
	cache    *SessionCache
	security *crypt.Security
	recovery *RecoveryCodeService
	policy   *PasswordPolicy
	perms    PermissionChecker
	mail     EmailTransport
	settings Settings
	logger   *slog.Logger

	builder CredentialBuilder
	now     func() time.Time
	rand    io.Reader
}

// ServiceOption customizes a Service.
type ServiceOption func(*Service)

// WithCredentialBuilder replaces the default record builder.
func WithCredentialBuilder(b CredentialBuilder) ServiceOption {
	return func(s *Service) { s.builder = b }
}

// WithClock injects a deterministic clock for tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

// WithRand injects a deterministic random source for tests.
func WithRand(r io.Reader) ServiceOption {
	return func(s *Service) { s.rand = r }
}

// NewService creates the Service. All collaborators are required except
// perms (nil means no capability ever granted) and mail (nil disables the
// recovery flow with an email failure outcome).
func NewService(
	store CredentialStore,
	cache *SessionCache,
	security *crypt.Security,
	recovery *RecoveryCodeService,
	policy *PasswordPolicy,
	perms PermissionChecker,
	mail EmailTransport,
	settings Settings,
	logger *slog.Logger,
	opts ...ServiceOption,
) (*Service, error) {
	if store == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("credential store is required")
	}
	if cache == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("session cache is required")
	}
	if security == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password security is required")
	}
	if recovery == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("recovery code service is required")
	}
	if policy == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("password policy is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		store:    store,
		cache:    cache,
		security: security,
		recovery: recovery,
		policy:   policy,
		perms:    perms,
		mail:     mail,
		settings: settings,
		logger:   logger,
		now:      time.Now,
	}
	s.builder = s.defaultBuilder
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Cache exposes the session cache for host-driven session teardown
// (disconnects, timeouts).
func (s *Service) Cache() *SessionCache { return s.cache }

func (s *Service) defaultBuilder(req RegisterRequest, d crypt.Digest, now time.Time) *CredentialRecord {
	return &CredentialRecord{
		Identity:       NormalizeIdentity(req.Name),
		RealName:       req.Name,
		Digest:         d,
		Email:          req.Email,
		RegistrationIP: req.IP,
		RegisteredAt:   now,
	}
}

// Register runs the registration pipeline: precondition gate, IP quota,
// then the atomic create. A duplicate discovered at persist time, after
// the precondition gate already passed, is a storage failure rather than
// a NameTaken rejection: it means a lost race, not user error.
func (s *Service) Register(ctx context.Context, req RegisterRequest) Outcome {
	out := s.register(ctx, req)
	recordOutcome(OpRegister, out)
	return out
}

func (s *Service) register(ctx context.Context, req RegisterRequest) Outcome {
	identity := NormalizeIdentity(req.Name)

	// Precondition gate: first failing check wins.
	if s.cache.IsAuthenticated(identity) {
		return AlreadyLoggedIn{}
	}
	if !s.settings.RegistrationEnabled {
		return RegistrationDisabled{}
	}
	exists, err := s.store.Exists(ctx, identity)
	if err != nil {
		errutil.LogError(s.logger, "registration existence check failed", err)
		return StorageFailure{Err: err}
	}
	if exists {
		return NameTaken{}
	}
	if rej := s.policy.Validate(req.Password, identity); rej != nil {
		return *rej
	}
	if out := s.checkIPQuota(ctx, identity, req.IP); out != nil {
		return out
	}

	digest, err := s.security.ComputeHash(req.Password, identity)
	if err != nil {
		errutil.LogError(s.logger, "registration hash computation failed", err)
		return InternalFailure{Err: err}
	}

	record := s.builder(req, digest, s.now())
	created, err := s.store.CreateIfAbsent(ctx, record)
	if err != nil {
		errutil.LogError(s.logger, "registration persistence failed", err)
		return StorageFailure{Err: err}
	}
	if !created {
		// Lost the race to a concurrent registration of the same name.
		err := oops.Code("AUTH_REGISTER_RACE").
			With("identity", identity).
			Errorf("credential appeared between precondition check and create")
		errutil.LogError(s.logger, "registration lost create race", err)
		return StorageFailure{Err: err}
	}

	s.logger.Info("registered new credential",
		"identity", identity, "ip", req.IP)

	if req.PostPersist != nil {
		req.PostPersist()
	}
	return Registered{}
}

// checkIPQuota returns a rejection outcome when the per-IP registration
// quota is exhausted, nil otherwise. Loopback addresses and identities
// holding the multiple-accounts capability are exempt.
func (s *Service) checkIPQuota(ctx context.Context, identity, ip string) Outcome {
	max := s.settings.MaxRegistrationsPerIP
	if max <= 0 {
		return nil
	}
	if ip == loopbackIPv4 || ip == loopbackName {
		return nil
	}
	if s.perms != nil && s.perms.HasCapability(identity, CapabilityMultipleAccounts) {
		return nil
	}

	names, err := s.store.ListByIP(ctx, ip)
	if err != nil {
		errutil.LogError(s.logger, "registration quota lookup failed", err)
		return StorageFailure{Err: err}
	}
	if len(names) >= max {
		return QuotaExceeded{Max: max, Count: len(names), Names: names}
	}
	return nil
}

// Login authenticates an identity. An already-authenticated identity is
// rejected identically regardless of password correctness, so the cache is
// consulted before any verification work.
func (s *Service) Login(ctx context.Context, req LoginRequest) Outcome {
	out := s.login(ctx, req)
	recordOutcome(OpLogin, out)
	return out
}

func (s *Service) login(ctx context.Context, req LoginRequest) Outcome {
	identity := NormalizeIdentity(req.Name)

	if s.cache.IsAuthenticated(identity) {
		return AlreadyLoggedIn{}
	}

	record, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Unregistered{}
		}
		errutil.LogError(s.logger, "login credential lookup failed", err)
		return StorageFailure{Err: err}
	}

	if !s.security.Verify(req.Password, record.Digest, identity) {
		s.logger.Info("login rejected: wrong password", "identity", identity)
		return WrongPassword{}
	}

	// Opportunistic upgrade: a hash verified under a legacy algorithm is
	// recomputed under the current one. Login succeeds regardless of the
	// upgrade's fate.
	if s.security.NeedsRehash(record.Digest) {
		if newDigest, err := s.security.ComputeHash(req.Password, identity); err == nil {
			if err := s.store.UpdatePassword(ctx, identity, newDigest); err != nil {
				errutil.LogError(s.logger, "hash upgrade persist failed", err)
			} else {
				s.logger.Info("upgraded legacy password hash",
					"identity", identity,
					"from", record.Digest.Algorithm,
					"to", s.security.AlgorithmName())
			}
		}
	}

	if err := s.store.UpdateLastLogin(ctx, identity, s.now()); err != nil {
		errutil.LogError(s.logger, "last-login refresh failed", err)
	}

	s.cache.AddSession(identity)
	return LoggedIn{}
}

// Logout clears the identity's session.
func (s *Service) Logout(identity string) Outcome {
	out := s.logout(identity)
	recordOutcome(OpLogout, out)
	return out
}

func (s *Service) logout(identity string) Outcome {
	identity = NormalizeIdentity(identity)
	if !s.cache.IsAuthenticated(identity) {
		return NotLoggedIn{}
	}
	s.cache.RemoveSession(identity)
	return LoggedOut{}
}

// RecoverByEmail runs the email recovery flow: ownership is proven by the
// stored email (and a one-time code when required), then a fresh password
// is generated, persisted, and mailed. The plaintext only ever leaves
// through the email channel.
func (s *Service) RecoverByEmail(ctx context.Context, req RecoverRequest) Outcome {
	out := s.recoverByEmail(ctx, req)
	recordOutcome(OpRecover, out)
	return out
}

func (s *Service) recoverByEmail(ctx context.Context, req RecoverRequest) Outcome {
	identity := NormalizeIdentity(req.Name)

	if s.cache.IsAuthenticated(identity) {
		return AlreadyLoggedIn{}
	}

	record, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Unregistered{}
		}
		errutil.LogError(s.logger, "recovery credential lookup failed", err)
		return StorageFailure{Err: err}
	}

	if !record.EmailMatches(req.Email) {
		s.logger.Info("recovery rejected: email mismatch", "identity", identity)
		return EmailMismatch{}
	}

	if s.recovery.Required() {
		if req.Code == "" {
			return s.issueRecoveryCode(ctx, identity, record.Email)
		}
		if !s.recovery.IsValid(identity, req.Code) {
			return InvalidCode{}
		}
		// Single use: consume before proceeding.
		s.recovery.Remove(identity)
	} else if wait := s.recovery.StampAttempt(identity); wait > 0 {
		return CooldownActive{Wait: DisplayOf(wait)}
	}

	return s.issueNewPassword(ctx, identity, record.Email)
}

func (s *Service) issueRecoveryCode(ctx context.Context, identity, email string) Outcome {
	code, wait, err := s.recovery.Generate(identity)
	if err != nil {
		errutil.LogError(s.logger, "recovery code generation failed", err)
		return InternalFailure{Err: err}
	}
	if wait > 0 {
		return CooldownActive{Wait: DisplayOf(wait)}
	}
	RecoveryCodesIssued.Inc()

	if s.mail == nil {
		return EmailFailure{Err: oops.Code("AUTH_MAIL_UNCONFIGURED").Errorf("no email transport configured")}
	}
	if err := s.mail.SendRecoveryCode(ctx, identity, email, code); err != nil {
		errutil.LogError(s.logger, "recovery code dispatch failed", err)
		return EmailFailure{Err: err}
	}

	s.logger.Info("recovery code sent", "identity", identity)
	return RecoveryCodeSent{Email: email}
}

// issueNewPassword generates, persists, and mails a fresh password. The
// password change is committed before the mail dispatch; a dispatch
// failure is reported as its own outcome after the commit.
func (s *Service) issueNewPassword(ctx context.Context, identity, email string) Outcome {
	length := s.settings.RecoveryPasswordLength
	if length <= 0 {
		length = DefaultRecoveryPasswordLength
	}
	password, err := generateAlphanumeric(s.rand, length)
	if err != nil {
		errutil.LogError(s.logger, "recovery password generation failed", err)
		return InternalFailure{Err: err}
	}

	digest, err := s.security.ComputeHash(password, identity)
	if err != nil {
		errutil.LogError(s.logger, "recovery password hash failed", err)
		return InternalFailure{Err: err}
	}
	if err := s.store.UpdatePassword(ctx, identity, digest); err != nil {
		errutil.LogError(s.logger, "recovery password persist failed", err)
		return StorageFailure{Err: err}
	}

	if s.mail == nil {
		return EmailFailure{Err: oops.Code("AUTH_MAIL_UNCONFIGURED").Errorf("no email transport configured")}
	}
	if err := s.mail.SendNewPassword(ctx, identity, email, password); err != nil {
		errutil.LogError(s.logger, "new password dispatch failed", err)
		return EmailFailure{Err: err}
	}

	s.logger.Info("recovery password sent", "identity", identity)
	return NewPasswordSent{Email: email}
}
