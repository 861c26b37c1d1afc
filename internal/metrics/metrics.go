package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus metrics (registered once).
var (
	EventsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskgate_events_processed_total",
			Help: "Total telemetry events processed",
		},
	)
	ParseFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskgate_parse_failures_total",
			Help: "Total telemetry payloads that failed to parse",
		},
	)
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_decisions_total",
			Help: "Total access decisions by outcome",
		},
		[]string{"decision"},
	)
	Alerts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_alerts_total",
			Help: "Alert gate outcomes for alert-eligible events",
		},
		[]string{"outcome"},
	)
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_notifications_total",
			Help: "Notification delivery attempts by channel and outcome",
		},
		[]string{"channel", "outcome"},
	)
	BehaviorAnomalies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskgate_behavior_anomalies_total",
			Help: "Behavior anomalies detected by type",
		},
		[]string{"type"},
	)
	BlockedIPs = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskgate_blocked_ips",
			Help: "Distinct source IPs that received a BLOCK decision",
		},
	)
)

func init() {
	prometheus.MustRegister(EventsProcessed)
	prometheus.MustRegister(ParseFailures)
	prometheus.MustRegister(Decisions)
	prometheus.MustRegister(Alerts)
	prometheus.MustRegister(Notifications)
	prometheus.MustRegister(BehaviorAnomalies)
	prometheus.MustRegister(BlockedIPs)
}

// Serve exposes /metrics on addr. It blocks until the server fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv.ListenAndServe()
}
