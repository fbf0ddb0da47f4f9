// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

// Class partitions outcomes into the three reporting categories: successes
// and rejections are user-facing, errors are system-caused and logged in
// full while the caller sees only a generic failure.
type Class int

// Outcome classes.
const (
	ClassSuccess Class = iota
	ClassRejection
	ClassError
)

// Outcome is the typed result of a core operation. Each concrete variant
// carries the interpolation data the Notifier needs to render a message;
// the core never formats user-facing text itself. Switching on the
// concrete type gives the presentation layer compile-time exhaustiveness.
type Outcome interface {
	Class() Class
}

// Notifier delivers an outcome to the originating caller for presentation.
type Notifier interface {
	Notify(identity string, o Outcome)
}

// Success outcomes.

// Registered reports a completed registration.
type Registered struct{}

// LoggedIn reports a successful authentication.
type LoggedIn struct{}

// LoggedOut reports a cleared session.
type LoggedOut struct{}

// RecoveryCodeSent reports that a recovery code was mailed.
type RecoveryCodeSent struct {
	Email string
}

// NewPasswordSent reports that a generated password was mailed.
type NewPasswordSent struct {
	Email string
}

func (Registered) Class() Class       { return ClassSuccess }
func (LoggedIn) Class() Class         { return ClassSuccess }
func (LoggedOut) Class() Class        { return ClassSuccess }
func (RecoveryCodeSent) Class() Class { return ClassSuccess }
func (NewPasswordSent) Class() Class  { return ClassSuccess }

// Rejection outcomes: expected, user-caused, never logged as errors.

// AlreadyLoggedIn rejects an operation on an authenticated identity.
type AlreadyLoggedIn struct{}

// NotLoggedIn rejects a logout without an active session.
type NotLoggedIn struct{}

// RegistrationDisabled rejects registration while the feature is off.
type RegistrationDisabled struct{}

// NameTaken rejects registration of an identity that already has a record.
type NameTaken struct{}

// QuotaExceeded rejects a registration past the per-IP maximum. It carries
// the configured maximum, the current count, and the existing account
// names sharing the IP for operator and user transparency.
type QuotaExceeded struct {
	Max   int
	Count int
	Names []string
}

// Unregistered rejects an operation on an identity without a record.
type Unregistered struct{}

// WrongPassword rejects authentication with a non-matching password.
type WrongPassword struct{}

// EmailMismatch rejects a recovery request whose email does not match the
// stored one. The stored email is deliberately not included.
type EmailMismatch struct{}

// InvalidCode rejects a recovery attempt with a wrong or expired code.
type InvalidCode struct{}

// CooldownActive rejects a recovery request inside the cooldown window.
type CooldownActive struct {
	Wait DisplayDuration
}

// PasswordReason identifies why a password was rejected.
type PasswordReason string

// Password rejection reasons.
const (
	PasswordTooShort       PasswordReason = "too_short"
	PasswordTooLong        PasswordReason = "too_long"
	PasswordBadCharacters  PasswordReason = "bad_characters"
	PasswordSameAsUsername PasswordReason = "same_as_username"
	PasswordUnsafe         PasswordReason = "unsafe"
)

// UnsafePassword rejects a password that fails the configured policy.
type UnsafePassword struct {
	Reason PasswordReason

	// MinLength and MaxLength are set for the length reasons.
	MinLength int
	MaxLength int

	// Pattern is set for PasswordBadCharacters.
	Pattern string
}

func (AlreadyLoggedIn) Class() Class      { return ClassRejection }
func (NotLoggedIn) Class() Class          { return ClassRejection }
func (RegistrationDisabled) Class() Class { return ClassRejection }
func (NameTaken) Class() Class            { return ClassRejection }
func (QuotaExceeded) Class() Class        { return ClassRejection }
func (Unregistered) Class() Class         { return ClassRejection }
func (WrongPassword) Class() Class        { return ClassRejection }
func (EmailMismatch) Class() Class        { return ClassRejection }
func (InvalidCode) Class() Class          { return ClassRejection }
func (CooldownActive) Class() Class       { return ClassRejection }
func (UnsafePassword) Class() Class       { return ClassRejection }

// Error outcomes: unexpected, system-caused, recoverable at request level.

// StorageFailure reports a persistence failure after preconditions passed.
type StorageFailure struct {
	Err error
}

// EmailFailure reports a failed mail dispatch. For recovery, the password
// change has already been committed when this is reported.
type EmailFailure struct {
	Err error
}

// InternalFailure reports any other unexpected failure.
type InternalFailure struct {
	Err error
}

func (StorageFailure) Class() Class  { return ClassError }
func (EmailFailure) Class() Class    { return ClassError }
func (InternalFailure) Class() Class { return ClassError }
