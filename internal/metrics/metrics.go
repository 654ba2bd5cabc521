// Package metrics exposes the service's Prometheus instruments.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

var Module = fx.Module("metrics",
	fx.Provide(New),
)

type Metrics struct {
	Pageviews        *prometheus.CounterVec
	WebhookEvents    *prometheus.CounterVec
	CheckoutSessions *prometheus.CounterVec
}

func New() *Metrics {
	return &Metrics{
		Pageviews: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "punchline",
			Name:      "pageviews_total",
			Help:      "Logged pageviews, split by bot classification.",
		}, []string{"bot"}),
		WebhookEvents: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "punchline",
			Name:      "webhook_events_total",
			Help:      "Inbound payment webhook deliveries by outcome.",
		}, []string{"outcome"}),
		CheckoutSessions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "punchline",
			Name:      "checkout_sessions_total",
			Help:      "Checkout sessions created, by result.",
		}, []string{"result"}),
	}
}

func (m *Metrics) CountPageview(bot bool) {
	if m == nil {
		return
	}
	label := "false"
	if bot {
		label = "true"
	}
	m.Pageviews.WithLabelValues(label).Inc()
}

func (m *Metrics) CountWebhook(outcome string) {
	if m == nil {
		return
	}
	m.WebhookEvents.WithLabelValues(outcome).Inc()
}

func (m *Metrics) CountCheckout(result string) {
	if m == nil {
		return
	}
	m.CheckoutSessions.WithLabelValues(result).Inc()
}
