// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package mail delivers recovery codes and replacement passwords over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Send retry defaults. Transient SMTP failures are retried with fibonacci
// backoff before the failure surfaces to the caller.
const (
	DefaultSendAttempts = 3
	DefaultSendBackoff  = time.Second
)

// sendFunc matches net/smtp.SendMail. Tests inject a recorder.
type sendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// Config configures the SMTP transport.
type Config struct {
	// Host and Port locate the SMTP server.
	Host string
	Port int

	// Username and Password authenticate with the server. Empty username
	// disables authentication.
	Username string
	Password string

	// From is the sender address, e.g. "noreply@example.com".
	From string

	// ServerName is the name shown in message bodies. Empty means From.
	ServerName string

	// SendAttempts caps delivery retries. Zero means DefaultSendAttempts.
	SendAttempts uint64

	// SendBackoff is the base backoff between retries. Zero means
	// DefaultSendBackoff.
	SendBackoff time.Duration
}

// Transport sends recovery mail through an SMTP server. It implements
// auth.EmailTransport.
type Transport struct {
	cfg    Config
	send   sendFunc
	logger *slog.Logger
}

// Option customizes a Transport.
type Option func(*Transport)

// WithSendFunc injects the low-level send function. Tests use this to
// capture messages without a live server.
func WithSendFunc(fn sendFunc) Option {
	return func(t *Transport) { t.send = fn }
}

// NewTransport creates the SMTP transport.
func NewTransport(cfg Config, logger *slog.Logger, opts ...Option) (*Transport, error) {
	if cfg.Host == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("smtp host is required")
	}
	if cfg.From == "" {
		return nil, oops.Code("MAIL_CONFIG_INVALID").Errorf("sender address is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 25
	}
	if cfg.SendAttempts == 0 {
		cfg.SendAttempts = DefaultSendAttempts
	}
	if cfg.SendBackoff <= 0 {
		cfg.SendBackoff = DefaultSendBackoff
	}
	if cfg.ServerName == "" {
		cfg.ServerName = cfg.From
	}
	if logger == nil {
		logger = slog.Default()
	}

	t := &Transport{cfg: cfg, send: smtp.SendMail, logger: logger}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// SendRecoveryCode mails a one-time recovery code to the identity's
// registered address.
func (t *Transport) SendRecoveryCode(ctx context.Context, identity, email, code string) error {
	subject := "Your recovery code"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"A password recovery was requested for your account on %s.\r\n"+
			"Your recovery code is: %s\r\n\r\n"+
			"If you did not request this, you can ignore this message.\r\n",
		identity, t.cfg.ServerName, code)
	return t.deliver(ctx, email, subject, body)
}

// SendNewPassword mails a freshly generated replacement password.
func (t *Transport) SendNewPassword(ctx context.Context, identity, email, password string) error {
	subject := "Your new password"
	body := fmt.Sprintf(
		"Hello %s,\r\n\r\n"+
			"Your password on %s has been reset.\r\n"+
			"Your new password is: %s\r\n\r\n"+
			"Please log in and change it as soon as possible.\r\n",
		identity, t.cfg.ServerName, password)
	return t.deliver(ctx, email, subject, body)
}

func (t *Transport) deliver(ctx context.Context, email, subject, body string) error {
	msg := t.compose(email, subject, body)
	addr := net.JoinHostPort(t.cfg.Host, fmt.Sprintf("%d", t.cfg.Port))

	var auth smtp.Auth
	if t.cfg.Username != "" {
		auth = smtp.PlainAuth("", t.cfg.Username, t.cfg.Password, t.cfg.Host)
	}

	backoff := retry.WithMaxRetries(t.cfg.SendAttempts, retry.NewFibonacci(t.cfg.SendBackoff))
	err := retry.Do(ctx, backoff, func(_ context.Context) error {
		if err := t.send(addr, auth, t.cfg.From, []string{email}, msg); err != nil {
			t.logger.Warn("smtp delivery failed, retrying", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("MAIL_SEND_FAILED").
			With("smtp_addr", addr).
			Wrap(err)
	}
	return nil
}

func (t *Transport) compose(email, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", t.cfg.From)
	fmt.Fprintf(&b, "To: %s\r\n", email)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
