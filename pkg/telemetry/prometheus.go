package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "relay_match"

// PrometheusSink turns events into counters and histograms on a registry
type PrometheusSink struct {
	events   *prometheus.CounterVec
	counts   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusSink registers the event metrics on reg
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	factory := promauto.With(reg)

	return &PrometheusSink{
		events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "events_total",
				Help:      "Events emitted by the matching engine.",
			},
			[]string{"event", "label"},
		),
		counts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "event_items_total",
				Help:      "Items counted by engine events, e.g. pairs scored in a batch.",
			},
			[]string{"event", "item"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "engine",
				Name:      "event_duration_seconds",
				Help:      "Duration reported by engine events.",
				Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 300, 1800, 3600},
			},
			[]string{"event"},
		),
	}
}

func (p *PrometheusSink) Record(event Event) {
	p.events.WithLabelValues(event.Name, primaryLabel(event.Labels)).Inc()
	for item, n := range event.Counts {
		if n > 0 {
			p.counts.WithLabelValues(event.Name, item).Add(float64(n))
		}
	}
	if event.Duration > 0 {
		p.duration.WithLabelValues(event.Name).Observe(event.Duration.Seconds())
	}
}

// primaryLabel folds the first known label into one value to bound cardinality
func primaryLabel(labels map[string]string) string {
	for _, key := range []string{"reason", "status", "stage", "source", "frequency", "group_by", "type", "model", "weights"} {
		if v, ok := labels[key]; ok {
			return v
		}
	}
	return ""
}
