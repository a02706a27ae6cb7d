// Package metrics exposes engine counters and gauges to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReadingsAccepted counts oracle readings that passed validation.
	ReadingsAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_oracle_readings_accepted_total",
		Help: "Oracle readings accepted into the registry.",
	})

	// ReadingsRejected counts readings that failed a validation stage.
	ReadingsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_oracle_readings_rejected_total",
		Help: "Oracle readings rejected, by error class.",
	}, []string{"class"})

	// PayoutsTriggered counts claims admitted to the payout queue.
	PayoutsTriggered = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payouts_triggered_total",
		Help: "Payouts admitted to the queue.",
	})

	// PayoutsExecuted counts settled claims.
	PayoutsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payouts_executed_total",
		Help: "Payouts settled against the treasury.",
	})

	// PayoutAmountSettled totals the amounts paid out.
	PayoutAmountSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "settlement_payout_amount_settled_total",
		Help: "Cumulative amount settled, in base units.",
	})

	// QueueDepth tracks non-terminal entries in the payout queue.
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_payout_queue_depth",
		Help: "Payout queue entries awaiting a terminal state.",
	})

	// ReserveRatio tracks the pool-wide reserve ratio in basis points.
	ReserveRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_treasury_reserve_ratio_bps",
		Help: "Treasury balance over coverage exposure, basis points.",
	})

	// TreasuryBalance tracks per-asset treasury balances.
	TreasuryBalance = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "settlement_treasury_balance",
		Help: "Treasury balance by asset class, in base units.",
	}, []string{"asset"})

	// ActivePolicies tracks the number of stored policies.
	ActivePolicies = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "settlement_policies_stored",
		Help: "Policies held in the store, all statuses.",
	})
)
