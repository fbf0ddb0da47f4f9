// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"log/slog"

	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wardenauth/warden/internal/auth/dispatch"
)

var tracer = otel.Tracer("warden/auth")

// Async is the entry point for hosts with a single-threaded main loop.
// Each request runs on the worker pool; the resulting Outcome is delivered
// to the Notifier through the SyncGate, never from a worker goroutine.
type Async struct {
	svc      *Service
	pool     *dispatch.Pool
	gate     *dispatch.SyncGate
	notifier Notifier
	logger   *slog.Logger
}

// NewAsync wires the async facade. All arguments are required.
func NewAsync(svc *Service, pool *dispatch.Pool, gate *dispatch.SyncGate, notifier Notifier, logger *slog.Logger) (*Async, error) {
	if svc == nil || pool == nil || gate == nil || notifier == nil {
		return nil, oops.Code("AUTH_NIL_DEPENDENCY").Errorf("service, pool, gate, and notifier are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Async{svc: svc, pool: pool, gate: gate, notifier: notifier, logger: logger}, nil
}

// Register dispatches a registration request.
func (a *Async) Register(req RegisterRequest) error {
	return a.submit("auth.register", req.Name, func(ctx context.Context) Outcome {
		return a.svc.Register(ctx, req)
	})
}

// Login dispatches an authentication request.
func (a *Async) Login(req LoginRequest) error {
	return a.submit("auth.login", req.Name, func(ctx context.Context) Outcome {
		return a.svc.Login(ctx, req)
	})
}

// RecoverByEmail dispatches an email-recovery request.
func (a *Async) RecoverByEmail(req RecoverRequest) error {
	return a.submit("auth.recover", req.Name, func(ctx context.Context) Outcome {
		return a.svc.RecoverByEmail(ctx, req)
	})
}

// Logout removes the session synchronously; it is pure cache work with no
// I/O, so the host may call it inline. The outcome is still delivered via
// the gate for uniform presentation.
func (a *Async) Logout(identity string) {
	out := a.svc.Logout(identity)
	a.gate.Hand(func() { a.notifier.Notify(identity, out) })
}

func (a *Async) submit(span, identity string, run func(context.Context) Outcome) error {
	err := a.pool.Submit(func() {
		ctx, sp := tracer.Start(context.Background(), span,
			trace.WithAttributes(attribute.String("auth.identity", NormalizeIdentity(identity))))
		out := run(ctx)
		sp.End()

		a.gate.Hand(func() { a.notifier.Notify(identity, out) })
	})
	if err != nil {
		a.logger.Warn("dropping request, worker pool closed",
			"operation", span, "identity", NormalizeIdentity(identity))
		return err
	}
	return nil
}
