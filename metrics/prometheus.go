package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	promNamespace       = "detour"
	promRouteSubsystem  = "route"
	promProxySubsystem  = "backend"
	promServeSubsystem  = "serve"
	promCustomSubsystem = "custom"
)

// Prometheus implements the prometheus metrics backend.
type Prometheus struct {
	planM          prometheus.Histogram
	rewriteDepthM  prometheus.Histogram
	backendM       *prometheus.HistogramVec
	backendErrorsM *prometheus.CounterVec
	serveM         *prometheus.HistogramVec
	customCounterM *prometheus.CounterVec

	registry *prometheus.Registry
	handler  http.Handler
}

// NewPrometheus returns a new prometheus metrics backend.
func NewPrometheus(o Options) *Prometheus {
	namespace := promNamespace
	if o.Prefix != "" {
		namespace = strings.TrimSuffix(o.Prefix, ".")
	}

	buckets := o.HistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	p := &Prometheus{
		planM: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promRouteSubsystem,
			Name:      "plan_duration_seconds",
			Help:      "Duration in seconds of planning a request.",
			Buckets:   buckets,
		}),
		rewriteDepthM: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promRouteSubsystem,
			Name:      "rewrite_depth",
			Help:      "Number of rewrites applied to a request.",
			Buckets:   []float64{0, 1, 2, 3, 5, 9},
		}),
		backendM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promProxySubsystem,
			Name:      "duration_seconds",
			Help:      "Duration in seconds of an upstream dispatch.",
			Buckets:   buckets,
		}, []string{"host"}),
		backendErrorsM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promProxySubsystem,
			Name:      "error_total",
			Help:      "The total of upstream dispatch errors.",
		}, []string{"host"}),
		serveM: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: promServeSubsystem,
			Name:      "duration_seconds",
			Help:      "Duration in seconds of serving a response.",
			Buckets:   buckets,
		}, []string{"outcome", "method", "code"}),
		customCounterM: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: promCustomSubsystem,
			Name:      "total",
			Help:      "Total number of custom events.",
		}, []string{"key"}),
		registry: prometheus.NewRegistry(),
	}

	p.registry.MustRegister(
		p.planM,
		p.rewriteDepthM,
		p.backendM,
		p.backendErrorsM,
		p.serveM,
		p.customCounterM,
	)

	if o.EnableRuntimeMetrics {
		p.registry.MustRegister(collectors.NewGoCollector())
		p.registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}

	p.handler = promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
	return p
}

func (p *Prometheus) MeasurePlan(start time.Time) {
	p.planM.Observe(time.Since(start).Seconds())
}

func (p *Prometheus) MeasureRewriteDepth(depth int) {
	p.rewriteDepthM.Observe(float64(depth))
}

func (p *Prometheus) MeasureBackend(host string, start time.Time) {
	p.backendM.WithLabelValues(host).Observe(time.Since(start).Seconds())
}

func (p *Prometheus) MeasureServe(outcome, method string, code int, start time.Time) {
	p.serveM.WithLabelValues(outcome, method, strconv.Itoa(code)).
		Observe(time.Since(start).Seconds())
}

func (p *Prometheus) IncCounter(key string) {
	p.customCounterM.WithLabelValues(key).Inc()
}

func (p *Prometheus) IncErrorsBackend(host string) {
	p.backendErrorsM.WithLabelValues(host).Inc()
}

func (p *Prometheus) RegisterHandler(path string, mux *http.ServeMux) {
	mux.Handle(path, p.handler)
}

func (p *Prometheus) Close() {}
