package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	returnRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "returns_requests_total",
			Help: "Return requests processed, by outcome",
		},
		[]string{"outcome"},
	)

	returnUnitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "returns_units_total",
			Help: "Units recorded in the return ledger",
		},
	)

	eligibilityChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "returns_eligibility_checks_total",
			Help: "Eligibility checks served, by outcome",
		},
		[]string{"outcome"},
	)
)

func outcomeLabel(err error) string {
	if err == nil {
		return "accepted"
	}
	if KindOf(err) == KindInternal {
		return "error"
	}
	return "rejected"
}
