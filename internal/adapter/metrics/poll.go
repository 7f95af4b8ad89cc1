package metrics

import "github.com/prometheus/client_golang/prometheus"

// PollMetrics holds Prometheus metrics for poll sessions.
type PollMetrics struct {
	SessionsCreated  prometheus.Counter
	QuestionsCreated prometheus.Counter
	VotesTotal       *prometheus.CounterVec
	TokenLookups     *prometheus.CounterVec
}

// NewPollMetrics creates and registers poll metrics on the given registry.
func NewPollMetrics(reg prometheus.Registerer) *PollMetrics {
	m := &PollMetrics{
		SessionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "sessions_created_total",
			Help:      "Total number of poll sessions created.",
		}),
		QuestionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "questions_created_total",
			Help:      "Total number of poll questions created.",
		}),
		VotesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "votes_total",
			Help:      "Total number of votes, by result.",
		}, []string{"result"}),
		TokenLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "poll",
			Name:      "token_lookups_total",
			Help:      "Total number of room-access token lookups, by result.",
		}, []string{"result"}),
	}

	reg.MustRegister(m.SessionsCreated, m.QuestionsCreated, m.VotesTotal, m.TokenLookups)
	return m
}
