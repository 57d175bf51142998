// Package metrics holds the process-wide prometheus collectors for the hunt lifecycle.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fallback stages.
const (
	StageClue         = "clue"
	StageFunFact      = "fun_fact"
	StageVerification = "verification"
	StagePayment      = "payment"
)

var (
	// HuntsStarted counts sessions created.
	HuntsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindminer_hunts_started_total",
		Help: "Total hunt sessions created",
	})

	// HuntOutcomes counts submission outcomes (won, lost, timeout, game_inactive, invalid_permalink).
	HuntOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindminer_hunt_outcomes_total",
		Help: "Total submission outcomes by outcome",
	}, []string{"outcome"})

	// Fallbacks counts upstream failures absorbed by a fallback.
	Fallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mindminer_fallbacks_total",
		Help: "Total upstream failures replaced by a fallback value, by stage",
	}, []string{"stage"})

	RewardMicroAlgos = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindminer_reward_microalgos_total",
		Help: "Total reward issued in microAlgos",
	})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "mindminer_sessions_expired_total",
		Help: "Total sessions moved to timeout by expiry",
	})
)
