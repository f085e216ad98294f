package metrics

import (
	"net/http"
	"time"
)

// All fans out to the Prometheus and the Coda Hale backends.
type All struct {
	prometheus        *Prometheus
	codaHale          *CodaHale
	prometheusHandler http.Handler
	codaHaleHandler   http.Handler
}

// NewAll returns a metrics backend combining both flavours. The exposition
// endpoint serves the Coda Hale JSON when the Accept header asks for
// application/codahale+json, the Prometheus format otherwise.
func NewAll(o Options) *All {
	return &All{
		prometheus: NewPrometheus(o),
		codaHale:   NewCodaHale(o),
	}
}

func (a *All) MeasurePlan(start time.Time) {
	a.prometheus.MeasurePlan(start)
	a.codaHale.MeasurePlan(start)
}

func (a *All) MeasureRewriteDepth(depth int) {
	a.prometheus.MeasureRewriteDepth(depth)
	a.codaHale.MeasureRewriteDepth(depth)
}

func (a *All) MeasureBackend(host string, start time.Time) {
	a.prometheus.MeasureBackend(host, start)
	a.codaHale.MeasureBackend(host, start)
}

func (a *All) MeasureServe(outcome, method string, code int, start time.Time) {
	a.prometheus.MeasureServe(outcome, method, code, start)
	a.codaHale.MeasureServe(outcome, method, code, start)
}

func (a *All) IncCounter(key string) {
	a.prometheus.IncCounter(key)
	a.codaHale.IncCounter(key)
}

func (a *All) IncErrorsBackend(host string) {
	a.prometheus.IncErrorsBackend(host)
	a.codaHale.IncErrorsBackend(host)
}

func (a *All) RegisterHandler(path string, mux *http.ServeMux) {
	promMux := http.NewServeMux()
	a.prometheus.RegisterHandler(path, promMux)
	a.prometheusHandler = promMux

	codaHaleMux := http.NewServeMux()
	a.codaHale.RegisterHandler(path, codaHaleMux)
	a.codaHaleHandler = codaHaleMux

	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") == "application/codahale+json" {
			a.codaHaleHandler.ServeHTTP(w, r)
		} else {
			a.prometheusHandler.ServeHTTP(w, r)
		}
	})
}

func (a *All) Close() {
	a.prometheus.Close()
	a.codaHale.Close()
}
