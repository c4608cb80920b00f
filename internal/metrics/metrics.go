package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the pipeline counters. Registered once at construction,
// exposed via promhttp on the webhook server.
type Metrics struct {
	Received     prometheus.Counter
	Unauthorized prometheus.Counter
	Malformed    prometheus.Counter
	Duplicates   prometheus.Counter
	Normalized   *prometheus.CounterVec
	Skipped      *prometheus.CounterVec
	Dispatched   *prometheus.CounterVec
	SentOK       *prometheus.CounterVec
	SendErrors   *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "webhooks_received_total",
			Help: "Webhook deliveries received.",
		}),
		Unauthorized: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "webhooks_unauthorized_total",
			Help: "Deliveries rejected for bad signatures.",
		}),
		Malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "webhooks_malformed_total",
			Help: "Deliveries whose body failed to parse.",
		}),
		Duplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "webhooks_duplicate_total",
			Help: "Deliveries suppressed by the dedup window.",
		}),
		Normalized: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "events_normalized_total",
			Help: "Events normalized into a typed variant.",
		}, []string{"kind"}),
		Skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "events_skipped_total",
			Help: "Recognized events skipped before dispatch.",
		}, []string{"reason"}),
		Dispatched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "notifications_dispatched_total",
			Help: "Notifications routed to a channel.",
		}, []string{"category"}),
		SentOK: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "notifications_sent_total",
			Help: "Notifications delivered.",
		}, []string{"category"}),
		SendErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "castfeed", Name: "notifications_send_errors_total",
			Help: "Notifications dropped after delivery retries.",
		}, []string{"category"}),
	}
	reg.MustRegister(
		m.Received, m.Unauthorized, m.Malformed, m.Duplicates,
		m.Normalized, m.Skipped, m.Dispatched, m.SentOK, m.SendErrors,
	)
	return m
}

// Sent / SendFailed implement notify.Observer.
func (m *Metrics) Sent(category string)       { m.SentOK.WithLabelValues(category).Inc() }
func (m *Metrics) SendFailed(category string) { m.SendErrors.WithLabelValues(category).Inc() }
