// Package metrics exports executor and sequencer activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/peterkuimelis/clash/internal/resolve"
	"github.com/peterkuimelis/clash/internal/sequence"
)

const namespace = "clash"

// Metrics owns one registry. It implements resolve.Observer and
// sequence.Observer so a single value can be handed to both.
type Metrics struct {
	registry *prometheus.Registry

	passes        prometheus.Counter
	passDuration  prometheus.Histogram
	nodes         *prometheus.CounterVec
	faults        *prometheus.CounterVec
	runaways      prometheus.Counter
	stackDepth    prometheus.Histogram
	animations    *prometheus.CounterVec
	animWait      *prometheus.HistogramVec
	animDuration  *prometheus.HistogramVec
	activeBattles prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

var (
	_ resolve.Observer  = (*Metrics)(nil)
	_ sequence.Observer = (*Metrics)(nil)
)

// New builds the collectors and registers them, plus the Go runtime
// collectors, on a private registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "passes_total",
			Help:      "Executor passes that ran to an empty stack, a suspension or an abort.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "pass_duration_seconds",
			Help:      "Wall time of one executor pass.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
		}),
		nodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "nodes_total",
			Help:      "Instruction outcomes per pass.",
		}, []string{"outcome"}),
		faults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "faults_total",
			Help:      "Instructions abandoned after an error or panic.",
		}, []string{"instruction"}),
		runaways: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "runaways_total",
			Help:      "Passes aborted by the depth or step ceiling.",
		}),
		stackDepth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "executor",
			Name:      "stack_depth",
			Help:      "Deepest stack observed per pass.",
			Buckets:   prometheus.LinearBuckets(1, 4, 8),
		}),
		animations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sequencer",
			Name:      "instructions_total",
			Help:      "Animation instructions by event and lifecycle phase.",
		}, []string{"event", "phase"}),
		animWait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sequencer",
			Name:      "wait_seconds",
			Help:      "Time an instruction spent blocked before starting.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event"}),
		animDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sequencer",
			Name:      "run_seconds",
			Help:      "Time from start to finish of an instruction.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"event", "timed_out"}),
		activeBattles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_battles",
			Help:      "Battles currently registered.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		}, []string{"method", "path", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
	}
	m.registry.MustRegister(
		m.passes, m.passDuration, m.nodes, m.faults, m.runaways, m.stackDepth,
		m.animations, m.animWait, m.animDuration, m.activeBattles,
		m.httpRequests, m.httpDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) PassFinished(stats resolve.Stats, elapsed time.Duration) {
	m.passes.Inc()
	m.passDuration.Observe(elapsed.Seconds())
	m.nodes.WithLabelValues("executed").Add(float64(stats.Executed))
	m.nodes.WithLabelValues("skipped").Add(float64(stats.Skipped))
	m.nodes.WithLabelValues("submitted").Add(float64(stats.Submitted))
	m.nodes.WithLabelValues("faulted").Add(float64(stats.Faulted))
	m.stackDepth.Observe(float64(stats.MaxDepth))
}

func (m *Metrics) NodeFaulted(name string) {
	m.faults.WithLabelValues(name).Inc()
}

func (m *Metrics) Runaway() {
	m.runaways.Inc()
}

func (m *Metrics) Enqueued(name string) {
	m.animations.WithLabelValues(name, "enqueued").Inc()
}

func (m *Metrics) Started(name string, waited time.Duration) {
	m.animations.WithLabelValues(name, "started").Inc()
	m.animWait.WithLabelValues(name).Observe(waited.Seconds())
}

func (m *Metrics) Finished(name string, ran time.Duration, timedOut bool) {
	m.animations.WithLabelValues(name, "finished").Inc()
	m.animDuration.WithLabelValues(name, strconv.FormatBool(timedOut)).Observe(ran.Seconds())
}

// BattleOpened and BattleClosed track the active battle gauge.
func (m *Metrics) BattleOpened() { m.activeBattles.Inc() }
func (m *Metrics) BattleClosed() { m.activeBattles.Dec() }

// RecordHTTPRequest counts one served request. path should be the route
// pattern, not the raw URL.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	statusLabel := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	m.httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
