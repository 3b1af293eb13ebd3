package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	SessionsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tictactoe_sessions_created_total",
			Help: "Sessions created",
		},
	)
	SessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tictactoe_sessions_active",
			Help: "Sessions held by the registry, by status",
		},
		[]string{"status"},
	)
	MovesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tictactoe_moves_total",
			Help: "Moves applied to a board",
		},
	)
	GamesFinished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tictactoe_games_finished_total",
			Help: "Games finished, by outcome",
		},
		[]string{"outcome"},
	)
	RuleViolations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tictactoe_rule_violations_total",
			Help: "Rejected player actions, by failure kind",
		},
		[]string{"kind"},
	)
	Replays = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tictactoe_replays_total",
			Help: "Sessions reset by the replay handshake",
		},
	)
	PointsAwardFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tictactoe_points_award_failures_total",
			Help: "Point updates that could not be stored",
		},
	)
	WSConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tictactoe_ws_connections",
			Help: "Open websocket connections",
		},
	)
)

// Game outcomes
const (
	OutcomeWin     = "win"
	OutcomeDraw    = "draw"
	OutcomeForfeit = "forfeit"
)

func init() {
	prometheus.MustRegister(
		SessionsCreated,
		SessionsActive,
		MovesApplied,
		GamesFinished,
		RuleViolations,
		Replays,
		PointsAwardFailures,
		WSConnections,
	)
}
