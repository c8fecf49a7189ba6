package metrics

import (
	"github.com/benvon/saveprompt/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for save prompts
type Metrics struct {
	// Prompts shown by title template bucket
	PromptsShown *prometheus.CounterVec

	// Decisions delivered to listeners by kind
	Decisions *prometheus.CounterVec

	// Teardown attempts on an already destroyed prompt
	InvalidTeardowns prometheus.Counter
}

// New creates Metrics registered with reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		PromptsShown: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saveprompt_prompts_shown_total",
			Help: "Total save prompts shown by title template",
		}, []string{"template"}), // template: "generic", "one", "two", "three"

		Decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "saveprompt_decisions_total",
			Help: "Total save prompt decisions delivered by kind",
		}, []string{"decision"}),

		InvalidTeardowns: factory.NewCounter(prometheus.CounterOpts{
			Name: "saveprompt_invalid_teardowns_total",
			Help: "Total destroy calls on prompts that were already destroyed",
		}),
	}
}

// IncrementShown records a prompt being shown
func (m *Metrics) IncrementShown(bucket models.TemplateBucket) {
	if m != nil {
		m.PromptsShown.WithLabelValues(bucket.String()).Inc()
	}
}

// IncrementDecision records a delivered decision
func (m *Metrics) IncrementDecision(kind models.DecisionKind) {
	if m != nil {
		m.Decisions.WithLabelValues(string(kind)).Inc()
	}
}

// IncrementInvalidTeardown records a destroy on a destroyed prompt
func (m *Metrics) IncrementInvalidTeardown() {
	if m != nil {
		m.InvalidTeardowns.Inc()
	}
}
