/*
Package metrics implements collection of the common performance metrics of
the route engine and the proxy.

Two backends are supported: a Prometheus backend and a Coda Hale backend,
selectable by flavour, with a fan-out combining both. The collected metrics
include the route plan duration, the depth of rewrite chains, the upstream
dispatch latency per backend host and the served response latency by routing
outcome. The values are exposed on a dedicated support listener.
*/
package metrics

import (
	"net/http"
	"time"
)

// Flavour selects the metrics backend.
type Flavour string

const (
	CodaHaleFlavour   Flavour = "codahale"
	PrometheusFlavour Flavour = "prometheus"
	AllFlavour        Flavour = "all"
)

// Options for initializing metrics collection.
type Options struct {

	// Flavour of the backend. Defaults to CodaHaleFlavour.
	Flavour Flavour

	// Prefix for the keys of the collected metrics.
	Prefix string

	// EnableRuntimeMetrics adds Go runtime metrics to the collection.
	EnableRuntimeMetrics bool

	// HistogramBuckets used by the Prometheus backend.
	HistogramBuckets []float64
}

// Metrics collects the performance metrics of the engine. Implementations
// are safe for concurrent use.
type Metrics interface {

	// MeasurePlan records the duration of planning one request.
	MeasurePlan(start time.Time)

	// MeasureRewriteDepth records the number of rewrites applied to one
	// request.
	MeasureRewriteDepth(depth int)

	// MeasureBackend records the upstream dispatch latency by host.
	MeasureBackend(host string, start time.Time)

	// MeasureServe records the served response latency by routing outcome
	// and status code.
	MeasureServe(outcome, method string, code int, start time.Time)

	// IncCounter increments a custom counter.
	IncCounter(key string)

	// IncErrorsBackend counts upstream dispatch failures by host.
	IncErrorsBackend(host string)

	// RegisterHandler mounts the exposition endpoint of the backend.
	RegisterHandler(path string, mux *http.ServeMux)

	// Close releases the backend resources.
	Close()
}

// Default is used when no explicit instance is configured.
var Default Metrics = NewVoid()

// New creates a metrics collection instance for the selected flavour.
func New(o Options) Metrics {
	switch o.Flavour {
	case PrometheusFlavour:
		return NewPrometheus(o)
	case AllFlavour:
		return NewAll(o)
	default:
		return NewCodaHale(o)
	}
}
