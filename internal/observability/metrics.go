package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CandidatesCollected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_candidates_collected_total",
		Help: "The total number of candidates collected, by source type",
	}, []string{"source"})

	DuplicatesDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_duplicates_detected_total",
		Help: "The total number of candidates dropped as duplicates, by reason",
	}, []string{"reason"})

	FilterDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_filter_decisions_total",
		Help: "Relevance filter decisions, by outcome (passed, rejected, fallback)",
	}, []string{"outcome"})

	Escalations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_escalations_total",
		Help: "Analysis backend submissions, by outcome",
	}, []string{"outcome"})

	BackendRotations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_backend_rotations_total",
		Help: "Rotations to the next analysis backend after quota exhaustion",
	}, []string{"from", "to"})

	AnalysisDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hunter_analysis_duration_seconds",
		Help:    "Duration of analysis backend requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	ExampleStoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hunter_example_store_size",
		Help: "Current number of labeled examples in the relevance filter store",
	})

	FeedbackEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_feedback_events_total",
		Help: "User feedback events received, by decision",
	}, []string{"decision"})

	NotificationsSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hunter_notifications_sent_total",
		Help: "Notifications delivered, by status",
	}, []string{"status"})

	CycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hunter_cycle_duration_seconds",
		Help:    "Duration in seconds of one full collection cycle",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600},
	})

	PendingRequeued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hunter_pending_requeued_total",
		Help: "Candidates re-queued from pending status at cycle start",
	})
)
