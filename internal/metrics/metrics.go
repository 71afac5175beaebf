package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	UpdatesTotal     prometheus.Counter
	EventsTotal      prometheus.Counter
	DispatchesTotal  prometheus.Counter
	ProviderFailures *prometheus.CounterVec
	SecretsPurged    prometheus.Counter
}

var (
	once   sync.Once
	global *Metrics
)

func Global() *Metrics {
	once.Do(func() {
		global = &Metrics{
			UpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relaybot",
				Name:      "telegram_updates_total",
				Help:      "Total telegram updates received",
			}),
			EventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relaybot",
				Name:      "session_events_total",
				Help:      "Total semantic events handled by the session engine",
			}),
			DispatchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relaybot",
				Name:      "dispatches_total",
				Help:      "Total prompts forwarded to a provider adapter",
			}),
			ProviderFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "relaybot",
				Name:      "provider_failures_total",
				Help:      "Provider adapter failures by classification",
			}, []string{"kind"}),
			SecretsPurged: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "relaybot",
				Name:      "secret_messages_purged_total",
				Help:      "Messages carrying a secret deleted from the transport",
			}),
		}
		prometheus.MustRegister(
			global.UpdatesTotal,
			global.EventsTotal,
			global.DispatchesTotal,
			global.ProviderFailures,
			global.SecretsPurged,
		)
	})
	return global
}
