// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Operation labels for metrics.
const (
	OpRegister = "register"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpRecover  = "recover"
)

// AuthOperations counts core operations by operation and outcome class.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_auth_operations_total",
		Help: "Total number of authentication core operations",
	},
	[]string{"operation", "class"},
)

// RecoveryCodesIssued counts issued recovery codes.
// Use RegisterMetrics to register this with a Prometheus registry.
var RecoveryCodesIssued = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "warden_recovery_codes_issued_total",
		Help: "Total number of recovery codes issued",
	},
)

// ActiveSessions tracks the number of authenticated identities.
// Use RegisterMetrics to register this with a Prometheus registry.
var ActiveSessions = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "warden_active_sessions",
		Help: "Number of currently authenticated identities",
	},
)

// RegisterMetrics registers auth package metrics with the given Prometheus
// registry. Call once at startup. Panics if registration fails (following
// prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthOperations)
	reg.MustRegister(RecoveryCodesIssued)
	reg.MustRegister(ActiveSessions)
}

func classLabel(c Class) string {
	switch c {
	case ClassSuccess:
		return "success"
	case ClassRejection:
		return "rejection"
	default:
		return "error"
	}
}

// recordOutcome bumps the operation counter for an outcome.
func recordOutcome(op string, o Outcome) {
	AuthOperations.WithLabelValues(op, classLabel(o.Class())).Inc()
}
