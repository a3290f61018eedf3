// Package metrics exposes Prometheus counters for call and answer outcomes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "voice_survey"

var (
	CallsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_started_total",
		Help:      "Calls that connected and received the first question",
	})

	CallsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "calls_completed_total",
		Help:      "Calls that answered every question in the catalog",
	})

	AnswersAccepted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_accepted_total",
		Help:      "Answers accepted by the judge and persisted",
	})

	FollowUps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "follow_ups_total",
		Help:      "Answers that required a clarifying follow-up",
	})

	EmptyTranscriptions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "empty_transcriptions_total",
		Help:      "Recordings that produced no recognizable speech",
	})

	ForcedAdvances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forced_advances_total",
		Help:      "Questions skipped after exhausting the retry limit",
	})

	CollaboratorErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "collaborator_errors_total",
		Help:      "Failures of external collaborators by kind",
	}, []string{"collaborator"})
)
