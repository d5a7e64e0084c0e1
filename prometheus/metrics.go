package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collector's Prometheus collectors on their own registry.
type Metrics struct {
	Registry *prometheus.Registry

	EventsReceived      *prometheus.CounterVec
	EventValidation     *prometheus.CounterVec
	AuthFailures        *prometheus.CounterVec
	CommandsDelivered   prometheus.Counter
	TestControlUpdates  *prometheus.CounterVec
	PendingCommandList  prometheus.GaugeFunc
	RequestDuration     *prometheus.HistogramVec
	NotFound            prometheus.Counter
	JournalWriteFailure prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		EventsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ves_events_received_total",
				Help: "Total requests received on event listener routes",
			},
			[]string{"path", "status_code"},
		),

		EventValidation: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ves_event_validation_total",
				Help: "Validation outcomes of request bodies",
			},
			[]string{"path", "result"},
		),

		AuthFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ves_auth_failures_total",
				Help: "Event listener requests rejected with 401",
			},
			[]string{"path"},
		),

		CommandsDelivered: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ves_commands_delivered_total",
				Help: "Pending command lists handed to an event source",
			},
		),

		TestControlUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ves_test_control_updates_total",
				Help: "Test control POSTs by outcome",
			},
			[]string{"result"},
		),

		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ves_request_duration_seconds",
				Help:    "Duration of collector requests in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method", "status_code"},
		),

		NotFound: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ves_not_found_total",
				Help: "Requests that matched no route",
			},
		),

		JournalWriteFailure: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ves_journal_write_failures_total",
				Help: "Journal records that could not be queued or written",
			},
		),
	}

	m.Registry.MustRegister(
		m.EventsReceived,
		m.EventValidation,
		m.AuthFailures,
		m.CommandsDelivered,
		m.TestControlUpdates,
		m.RequestDuration,
		m.NotFound,
		m.JournalWriteFailure,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records the duration and status of one request.
func (m *Metrics) ObserveRequest(path, method string, statusCode int, start time.Time) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(path, method, strconv.Itoa(statusCode)).Observe(time.Since(start).Seconds())
}

// TrackPending registers ves_pending_command_list. The value is read from
// pending on every scrape, so replicas sharing one store report the same.
func (m *Metrics) TrackPending(pending func() bool) {
	if m == nil || m.PendingCommandList != nil {
		return
	}
	m.PendingCommandList = prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "ves_pending_command_list",
			Help: "1 when a command list is waiting for delivery",
		},
		func() float64 {
			if pending() {
				return 1
			}
			return 0
		},
	)
	m.Registry.MustRegister(m.PendingCommandList)
}

func (m *Metrics) PromHTTPHandler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
