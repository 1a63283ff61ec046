package service

import "github.com/prometheus/client_golang/prometheus"

// Engine metrics, registered on the default registry served by the shared
// metrics server.
var (
	betsPlaced = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_bets_placed_total",
		Help: "Bets accepted by the engine",
	})
	betsCancelled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_bets_cancelled_total",
		Help: "Bets cancelled before settlement",
	})
	stakeVolume = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_stake_volume",
		Help: "Total stake accepted, in currency units",
	})
	roundsSettled = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_rounds_settled_total",
		Help: "Rounds settled",
	})
	escrowFunded = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_escrow_funded",
		Help: "Escrow funded at settlement for winning bets, in currency units",
	})
	claimsPaid = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "engine_claims_paid_total",
		Help: "Claims paid out",
	}, []string{"window"}) // exclusive | bounty
	poolsSwept = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "engine_round_pools_swept_total",
		Help: "Round pools swept back to the reserve",
	})
	reserveAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_reserve_available",
		Help: "Reserve available balance, in currency units",
	})
	reserveLocked = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "engine_reserve_locked",
		Help: "Reserve locked balance, in currency units",
	})
)

func init() {
	prometheus.MustRegister(
		betsPlaced, betsCancelled, stakeVolume,
		roundsSettled, escrowFunded, claimsPaid, poolsSwept,
		reserveAvailable, reserveLocked,
	)
}
