// Package metrics holds the Prometheus collectors of the ledger.
//
// Exposed series:
//
//	ledger_transfers_total{direction,outcome}
//	ledger_admin_adjustments_total{action,outcome}
//	ledger_accounts_created_total
//	ledger_pin_failures_total
//	ledger_audit_records_total{outcome}
//
// Collectors are registered in init() and served at /metrics by cmd/server.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

var (
	transfers = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_transfers_total",
			Help: "Wallet to trading account transfers",
		},
		[]string{"direction", "outcome"},
	)

	adminAdjustments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_admin_adjustments_total",
			Help: "Admin balance and credit adjustments",
		},
		[]string{"action", "outcome"},
	)

	accountsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_accounts_created_total",
			Help: "Trading accounts opened",
		},
	)

	pinFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_pin_failures_total",
			Help: "Rejected trading account PIN attempts",
		},
	)

	// outcome: persisted|retried|failed|dropped
	auditRecords = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ledger_audit_records_total",
			Help: "Admin audit records by delivery outcome",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(transfers, adminAdjustments)
	prometheus.MustRegister(accountsCreated, pinFailures)
	prometheus.MustRegister(auditRecords)
}

// Outcome classifies an operation error for labelling
func Outcome(err error, rejected func(error) bool) string {
	switch {
	case err == nil:
		return OutcomeOK
	case rejected != nil && rejected(err):
		return OutcomeRejected
	default:
		return OutcomeError
	}
}

// IncTransfer counts one transfer attempt in direction
func IncTransfer(direction, outcome string) { transfers.WithLabelValues(direction, outcome).Inc() }

// IncAdminAdjustment counts one admin money or settings change
func IncAdminAdjustment(action, outcome string) {
	adminAdjustments.WithLabelValues(action, outcome).Inc()
}

// IncAccountsCreated counts a trading account that was opened
func IncAccountsCreated() { accountsCreated.Inc() }

// IncPINFailure counts a PIN that did not match
func IncPINFailure() { pinFailures.Inc() }

// IncAuditRecord counts an audit record by delivery outcome
func IncAuditRecord(outcome string) { auditRecords.WithLabelValues(outcome).Inc() }
