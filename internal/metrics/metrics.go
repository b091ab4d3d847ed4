package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	BetsPlaced        *prometheus.CounterVec
	StakeWagered      prometheus.Counter
	Balance           prometheus.Gauge
	MatchesSettled    prometheus.Counter
	MatchesImported   prometheus.Counter
	RecordsSkipped    prometheus.Counter
	Retrains          prometheus.Counter
	DecisionFallbacks prometheus.Counter
}

func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers the collectors on the given registerer. Tests pass a
// fresh registry so repeated construction doesn't collide.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		BetsPlaced: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saltboy_bets_placed_total",
			Help: "Wagers placed, labeled by side.",
		}, []string{"side"}),
		StakeWagered: factory.NewCounter(prometheus.CounterOpts{
			Name: "saltboy_stake_wagered_total",
			Help: "Total stake wagered across all bets.",
		}),
		Balance: factory.NewGauge(prometheus.GaugeOpts{
			Name: "saltboy_balance",
			Help: "Last observed account balance.",
		}),
		MatchesSettled: factory.NewCounter(prometheus.CounterOpts{
			Name: "saltboy_matches_settled_total",
			Help: "Matches recorded with a winner and applied to ratings.",
		}),
		MatchesImported: factory.NewCounter(prometheus.CounterOpts{
			Name: "saltboy_matches_imported_total",
			Help: "Historical matches backfilled from the stats API.",
		}),
		RecordsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "saltboy_records_skipped_total",
			Help: "Match records skipped as ineligible or malformed.",
		}),
		Retrains: factory.NewCounter(prometheus.CounterOpts{
			Name: "saltboy_retrains_total",
			Help: "Successful coefficient refits.",
		}),
		DecisionFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Name: "saltboy_decision_fallbacks_total",
			Help: "Decisions that fell back to the minimal stake after a store failure.",
		}),
	}
}
