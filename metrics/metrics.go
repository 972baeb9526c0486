// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// SessionDecisions counts Authorize results by reason.
	SessionDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kidquest",
		Name:      "session_decisions_total",
		Help:      "Device authorization decisions by reason.",
	}, []string{"reason"})

	// LedgerEntries counts appended ledger entries by kind.
	LedgerEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kidquest",
		Name:      "ledger_entries_total",
		Help:      "Appended ledger entries by kind.",
	}, []string{"kind"})

	// SpendRequests counts redemption transitions by resulting status.
	SpendRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kidquest",
		Name:      "spend_requests_total",
		Help:      "Spend request transitions by status.",
	}, []string{"status"})

	TxRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "kidquest",
		Name:      "tx_retries_total",
		Help:      "Transactions retried after a transient store error.",
	})

	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "kidquest",
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status code.",
	}, []string{"route", "code"})
)

// Registry is a private registry so tests can build several servers in one process.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		SessionDecisions,
		LedgerEntries,
		SpendRequests,
		TxRetries,
		HTTPRequests,
	)
}
