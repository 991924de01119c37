package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"coachscribe/internal/smoothing"
)

type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal     *prometheus.CounterVec
	httpRequestDuration   *prometheus.HistogramVec
	upstreamRequestsTotal *prometheus.CounterVec
	upstreamDuration      *prometheus.HistogramVec
	heuristicHits         *prometheus.CounterVec
	movedWordsTotal       prometheus.Counter
	skippedUtterances     prometheus.Counter
	rewriteFallbacks      prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachscribe_http_requests_total",
				Help: "Total number of HTTP requests handled.",
			},
			[]string{"route", "method", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coachscribe_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method", "status"},
		),
		upstreamRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachscribe_upstream_requests_total",
				Help: "Total upstream LLM API requests.",
			},
			[]string{"endpoint", "status"},
		),
		upstreamDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "coachscribe_upstream_request_duration_seconds",
				Help:    "Upstream LLM request duration in seconds.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint", "status"},
		),
		heuristicHits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "coachscribe_smoothing_heuristic_hits_total",
				Help: "Boundary smoothing heuristic applications by heuristic.",
			},
			[]string{"heuristic"},
		),
		movedWordsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coachscribe_smoothing_moved_words_total",
				Help: "Words moved across segment boundaries by smoothing.",
			},
		),
		skippedUtterances: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coachscribe_smoothing_skipped_utterances_total",
				Help: "Malformed utterances skipped during smoothing.",
			},
		),
		rewriteFallbacks: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "coachscribe_rewrite_fallback_total",
				Help: "Optimization passes that fell back to smoothed text after rewrite failure.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.upstreamRequestsTotal,
		m.upstreamDuration,
		m.heuristicHits,
		m.movedWordsTotal,
		m.skippedUtterances,
		m.rewriteFallbacks,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(route, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unknown"
	}
	if method == "" {
		method = "UNKNOWN"
	}
	statusLabel := strconv.Itoa(status)
	m.httpRequestsTotal.WithLabelValues(route, method, statusLabel).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, statusLabel).Observe(duration.Seconds())
}

func (m *Metrics) ObserveUpstream(endpoint string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	if endpoint == "" {
		endpoint = "unknown"
	}
	statusLabel := strconv.Itoa(status)
	m.upstreamRequestsTotal.WithLabelValues(endpoint, statusLabel).Inc()
	m.upstreamDuration.WithLabelValues(endpoint, statusLabel).Observe(duration.Seconds())
}

// ObserveSmoothing records one run's heuristic hit counts.
func (m *Metrics) ObserveSmoothing(st smoothing.Stats) {
	if m == nil {
		return
	}
	m.heuristicHits.WithLabelValues("short_first_segment").Add(float64(st.Hits.ShortFirstSegment))
	m.heuristicHits.WithLabelValues("filler_word").Add(float64(st.Hits.FillerWord))
	m.heuristicHits.WithLabelValues("echo_backfill").Add(float64(st.Hits.EchoBackfill))
	m.heuristicHits.WithLabelValues("no_terminal_punctuation").Add(float64(st.Hits.NoTerminalPunctuation))
	m.movedWordsTotal.Add(float64(st.MovedWordCount))
	m.skippedUtterances.Add(float64(st.SkippedUtteranceCount))
}

func (m *Metrics) IncRewriteFallback() {
	if m == nil {
		return
	}
	m.rewriteFallbacks.Inc()
}
