/*
Package proxy implements the http.Handler executing routing decisions: it
plans each inbound request against the current routing table, injects the
matched response headers, and then redirects, serves a page or asset,
dispatches to an upstream origin, or responds with not found.

Per-request handling is stateless and read-only against the routing table,
safe for an arbitrary number of concurrent requests without locking. The
upstream dispatch is the only operation suspending on external I/O; closing
the inbound connection cancels the outbound request through the request
context.
*/
package proxy

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	ot "github.com/opentracing/opentracing-go"
	"github.com/opentracing/opentracing-go/ext"
	log "github.com/sirupsen/logrus"

	"github.com/detourhq/detour/flowid"
	"github.com/detourhq/detour/logging"
	"github.com/detourhq/detour/metrics"
	"github.com/detourhq/detour/rfc"
	"github.com/detourhq/detour/routing"
)

const (
	proxyBufferSize = 8192

	// DefaultIdleConnsPerHost is the default value set for
	// http.Transport.MaxIdleConnsPerHost.
	DefaultIdleConnsPerHost = 64

	// DefaultCloseIdleConnsPeriod is the default period at which the idle
	// connections are forcibly closed.
	DefaultCloseIdleConnsPeriod = 20 * time.Second

	// DefaultResponseHeaderTimeout is the default upstream response
	// header timeout.
	DefaultResponseHeaderTimeout = 60 * time.Second
)

// hop-by-hop headers, stripped in both directions
var hopHeaders = map[string]bool{
	"Te":                  true,
	"Connection":          true,
	"Proxy-Connection":    true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// Params to initialize a proxy instance.
type Params struct {

	// Routing provides the current routing table.
	Routing *routing.Routing

	// Metrics collection, defaults to the void backend.
	Metrics metrics.Metrics

	// FlowGenerator, when set, ensures a flow id header on every inbound
	// request.
	FlowGenerator flowid.Generator

	// FlowReuse keeps valid inbound flow ids instead of generating new
	// ones.
	FlowReuse bool

	// OpenTracer traces ingress and upstream dispatch spans. Defaults to
	// the noop tracer.
	OpenTracer ot.Tracer

	// IdleConnsPerHost of the upstream transport.
	IdleConnsPerHost int

	// CloseIdleConnsPeriod forces closing the idle upstream connections
	// periodically. Values below zero disable it.
	CloseIdleConnsPeriod time.Duration

	// ResponseHeaderTimeout of the upstream transport. Timeouts surface
	// as 504.
	ResponseHeaderTimeout time.Duration

	// EnableCompression negotiates response compression for locally
	// served pages and assets. Proxied responses are never re-encoded.
	EnableCompression bool

	// CompressMIME overrides the default set of compressible media types.
	CompressMIME []string
}

// Proxy instances implement the detour request handling. Initialize them
// with WithParams.
type Proxy struct {
	routing      *routing.Routing
	roundTripper *http.Transport
	metrics      metrics.Metrics
	flowGen      flowid.Generator
	flowReuse    bool
	tracer       ot.Tracer
	compression  *compressionConfig
	quit         chan struct{}
}

// proxyError wraps errors during the upstream dispatch and carries the
// status code of the response sent to the client.
type proxyError struct {
	err  error
	code int
}

func (e *proxyError) Error() string {
	return fmt.Sprintf("proxy error: %d: %v", e.code, e.err)
}

func (e *proxyError) Unwrap() error { return e.err }

// WithParams creates a proxy instance.
func WithParams(p Params) *Proxy {
	if p.Metrics == nil {
		p.Metrics = metrics.Default
	}

	if p.OpenTracer == nil {
		p.OpenTracer = &ot.NoopTracer{}
	}

	if p.IdleConnsPerHost <= 0 {
		p.IdleConnsPerHost = DefaultIdleConnsPerHost
	}

	if p.CloseIdleConnsPeriod == 0 {
		p.CloseIdleConnsPeriod = DefaultCloseIdleConnsPeriod
	}

	if p.ResponseHeaderTimeout <= 0 {
		p.ResponseHeaderTimeout = DefaultResponseHeaderTimeout
	}

	tr := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConnsPerHost:   p.IdleConnsPerHost,
		ResponseHeaderTimeout: p.ResponseHeaderTimeout,
	}

	pr := &Proxy{
		routing:      p.Routing,
		roundTripper: tr,
		metrics:      p.Metrics,
		flowGen:      p.FlowGenerator,
		flowReuse:    p.FlowReuse,
		tracer:       p.OpenTracer,
		quit:         make(chan struct{}),
	}

	if p.EnableCompression {
		pr.compression = newCompressionConfig(p.CompressMIME)
	}

	if p.CloseIdleConnsPeriod > 0 {
		go pr.closeIdleConns(p.CloseIdleConnsPeriod)
	}

	return pr
}

func (p *Proxy) closeIdleConns(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.roundTripper.CloseIdleConnections()
		case <-p.quit:
			return
		}
	}
}

// Close stops the background maintenance of the proxy.
func (p *Proxy) Close() error {
	close(p.quit)
	return nil
}

func copyHeaderExcluding(to, from http.Header, exclude map[string]bool) {
	for k, v := range from {
		if !exclude[k] {
			to[http.CanonicalHeaderKey(k)] = v
		}
	}
}

func cloneHeaderExcluding(h http.Header, exclude map[string]bool) http.Header {
	hh := make(http.Header)
	copyHeaderExcluding(hh, h, exclude)
	return hh
}

// copies a stream with flushing on every successful read operation
// (similar to io.Copy but with flushing)
func copyStream(to flushedResponseWriter, from io.Reader) error {
	b := make([]byte, proxyBufferSize)
	for {
		l, rerr := from.Read(b)
		if rerr != nil && rerr != io.EOF {
			return rerr
		}

		if l > 0 {
			if _, werr := to.Write(b[:l]); werr != nil {
				return werr
			}

			to.Flush()
		}

		if rerr == io.EOF {
			return nil
		}
	}
}

type flushedResponseWriter interface {
	io.Writer
	Flush()
}

// matchPath returns the request path in its escaped form, so that encoded
// reserved characters survive matching and interpolation unchanged.
func matchPath(u *url.URL) string {
	if u.RawPath != "" {
		return rfc.PatchPath(u.Path, u.RawPath)
	}

	return u.EscapedPath()
}

// fsPath returns the decoded form of an effective path for file serving.
func fsPath(p string) string {
	if u, err := url.PathUnescape(p); err == nil {
		return u
	}

	return p
}

// mapRequest creates the outgoing request forwarded to the upstream origin
// based on the inbound request and the planned backend URL.
func mapRequest(r *http.Request, plan *routing.Plan) (*http.Request, error) {
	u, err := url.Parse(plan.BackendURL)
	if err != nil {
		return nil, err
	}

	u.RawQuery = plan.Query.Encode()

	rr, err := http.NewRequestWithContext(r.Context(), r.Method, u.String(), r.Body)
	if err != nil {
		return nil, err
	}

	rr.ContentLength = r.ContentLength
	rr.Header = cloneHeaderExcluding(r.Header, hopHeaders)
	rr.Header.Set("X-Forwarded-Host", r.Host)
	if addr, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		if prior := rr.Header.Get("X-Forwarded-For"); prior != "" {
			addr = prior + ", " + addr
		}

		rr.Header.Set("X-Forwarded-For", addr)
	}

	return rr, nil
}

func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var flow string
	if p.flowGen != nil {
		flow = flowid.Set(r, p.flowGen, p.flowReuse)
	}

	span := p.tracer.StartSpan("ingress")
	ext.HTTPMethod.Set(span, r.Method)
	ext.HTTPUrl.Set(span, r.URL.String())
	defer span.Finish()
	r = r.WithContext(ot.ContextWithSpan(r.Context(), span))

	table := p.routing.Get()
	planStart := time.Now()
	plan, err := table.Plan(matchPath(r.URL), r.URL.Query())
	p.metrics.MeasurePlan(planStart)

	lw := &loggingResponseWriter{ResponseWriter: w}
	outcome := "error"
	if err != nil {
		// a cyclic rule configuration, internal, not user-triggerable
		// with acyclic rules
		log.Errorf("%s %s: %v", r.Method, r.URL.Path, err)
		ext.Error.Set(span, true)
		http.Error(lw, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	} else {
		outcome = plan.Outcome.String()
		for _, h := range plan.Headers {
			lw.Header().Add(h.Key, h.Value)
		}

		p.metrics.MeasureRewriteDepth(plan.RewriteDepth)
		p.serve(lw, r, table, plan, span)
	}

	span.SetTag("detour.outcome", outcome)
	if flow != "" {
		span.SetTag("flow_id", flow)
	}

	p.metrics.MeasureServe(outcome, r.Method, lw.statusCode(), start)
	logging.LogAccess(&logging.AccessEntry{
		Request:      r,
		StatusCode:   lw.statusCode(),
		ResponseSize: lw.size,
		Duration:     time.Since(start),
		RequestTime:  start,
		Outcome:      outcome,
	})
}

func (p *Proxy) serve(
	w *loggingResponseWriter,
	r *http.Request,
	table *routing.Table,
	plan *routing.Plan,
	span ot.Span,
) {
	switch plan.Outcome {
	case routing.Redirect:
		w.Header().Set("Location", plan.Location)
		if plan.Refresh {
			w.Header().Set("Refresh", fmt.Sprintf("0;url=%s", plan.Location))
		}

		w.WriteHeader(plan.Status)
	case routing.Asset:
		cw, done := p.compress(w, r)
		table.Pages().ServeAsset(cw, r, fsPath(plan.Path))
		done()
	case routing.Page, routing.API:
		r.URL.RawQuery = plan.Query.Encode()
		cw, done := p.compress(w, r)
		table.Pages().ServePage(cw, r, plan.Page)
		done()
	case routing.Proxy:
		p.serveBackend(w, r, plan, span)
	default:
		p.serveNotFound(w, r, table)
	}
}

func (p *Proxy) serveNotFound(w *loggingResponseWriter, r *http.Request, table *routing.Table) {
	if !table.Pages().Has404() {
		http.NotFound(w, r)
		return
	}

	f, err := table.Pages().Open("/404")
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	cw, done := p.compress(w, r)
	cw.Header().Set("Content-Type", "text/html; charset=utf-8")
	cw.WriteHeader(http.StatusNotFound)
	io.Copy(cw, f)
	done()
}

func (p *Proxy) serveBackend(w *loggingResponseWriter, r *http.Request, plan *routing.Plan, span ot.Span) {
	req, err := mapRequest(r, plan)
	if err != nil {
		log.Errorf("mapping the backend request failed: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	backendSpan := p.tracer.StartSpan("proxy", ot.ChildOf(span.Context()))
	ext.SpanKindRPCClient.Set(backendSpan)
	ext.HTTPUrl.Set(backendSpan, plan.BackendURL)
	defer backendSpan.Finish()
	p.tracer.Inject(backendSpan.Context(), ot.HTTPHeaders, ot.HTTPHeadersCarrier(req.Header))

	backendStart := time.Now()
	rsp, err := p.roundTripper.RoundTrip(req)
	if err != nil {
		perr := mapBackendError(err)
		p.metrics.IncErrorsBackend(req.URL.Host)
		ext.Error.Set(backendSpan, true)
		log.Errorf("upstream dispatch to %s failed: %v", req.URL.Host, err)

		// no retries, the error surfaces to the caller
		http.Error(w, http.StatusText(perr.code), perr.code)
		return
	}
	defer rsp.Body.Close()

	p.metrics.MeasureBackend(req.URL.Host, backendStart)
	ext.HTTPStatusCode.Set(backendSpan, uint16(rsp.StatusCode))

	copyHeaderExcluding(w.Header(), rsp.Header, hopHeaders)
	w.WriteHeader(rsp.StatusCode)
	if err := copyStream(w, rsp.Body); err != nil {
		log.Errorf("streaming the upstream response failed: %v", err)
	}
}

func mapBackendError(err error) *proxyError {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return &proxyError{err: err, code: http.StatusGatewayTimeout}
	}

	return &proxyError{err: err, code: http.StatusBadGateway}
}

// loggingResponseWriter records the status code and the response size for
// the access log and the metrics.
type loggingResponseWriter struct {
	http.ResponseWriter
	code int
	size int64
}

func (w *loggingResponseWriter) WriteHeader(code int) {
	if w.code == 0 {
		w.code = code
	}

	w.ResponseWriter.WriteHeader(code)
}

func (w *loggingResponseWriter) Write(b []byte) (int, error) {
	if w.code == 0 {
		w.code = http.StatusOK
	}

	n, err := w.ResponseWriter.Write(b)
	w.size += int64(n)
	return n, err
}

func (w *loggingResponseWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (w *loggingResponseWriter) statusCode() int {
	if w.code == 0 {
		return http.StatusOK
	}

	return w.code
}
