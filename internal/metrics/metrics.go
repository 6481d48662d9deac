package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const Namespace = "firewall_bot"

var (
	ProcessedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "processed_updates_total",
		Help:      "Group message updates run through the rule engine.",
	})

	DeletedMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "deleted_messages_total",
		Help:      "Messages removed by the bot, labelled by rule category.",
	}, []string{"reason"})

	ExecutedActions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "executed_actions_total",
		Help:      "Actions performed against the messenger API, by type and outcome.",
	}, []string{"type", "outcome"})

	UpdateProcessingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Name:      "update_processing_duration_seconds",
		Help:      "Time from dequeue to the last executed action.",
		Buckets:   prometheus.DefBuckets,
	})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "dispatch_queue_depth",
		Help:      "Tasks currently waiting in the dispatch queue.",
	})

	ThrottleDelay = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Name:      "throttle_delay_seconds",
		Help:      "Current adaptive delay applied between outbound actions.",
	})

	RateLimitPenalties = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "rate_limit_penalties_total",
		Help:      "Times the messenger API rate limited the bot.",
	})

	VoteMutesCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Name:      "vote_mutes_completed_total",
		Help:      "Vote-mute sessions that reached the required vote count.",
	})
)
