package metrics

import (
	"fmt"
	"net/http"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

const (
	keyPlan          = "route.plan"
	keyRewriteDepth  = "route.rewritedepth"
	keyBackend       = "backend.%s"
	keyBackendErrors = "backenderrors.%s"
	keyServe         = "serve.%s.%s.%d"
)

// CodaHale implements the Coda Hale metrics backend.
type CodaHale struct {
	prefix string
	reg    gometrics.Registry
	quit   chan struct{}
}

// NewCodaHale returns a new Coda Hale metrics backend.
func NewCodaHale(o Options) *CodaHale {
	c := &CodaHale{
		prefix: o.Prefix,
		reg:    gometrics.NewRegistry(),
		quit:   make(chan struct{}),
	}

	if o.EnableRuntimeMetrics {
		gometrics.RegisterRuntimeMemStats(c.reg)
		go c.captureRuntime()
	}

	return c
}

func (c *CodaHale) captureRuntime() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			gometrics.CaptureRuntimeMemStatsOnce(c.reg)
		case <-c.quit:
			return
		}
	}
}

func (c *CodaHale) getTimer(key string) gometrics.Timer {
	return c.reg.GetOrRegister(c.prefix+key, gometrics.NewTimer).(gometrics.Timer)
}

func (c *CodaHale) getCounter(key string) gometrics.Counter {
	return c.reg.GetOrRegister(c.prefix+key, gometrics.NewCounter).(gometrics.Counter)
}

func (c *CodaHale) getHistogram(key string) gometrics.Histogram {
	newHistogram := func() gometrics.Histogram {
		return gometrics.NewHistogram(gometrics.NewUniformSample(1024))
	}

	return c.reg.GetOrRegister(c.prefix+key, newHistogram).(gometrics.Histogram)
}

func (c *CodaHale) MeasurePlan(start time.Time) {
	c.getTimer(keyPlan).UpdateSince(start)
}

func (c *CodaHale) MeasureRewriteDepth(depth int) {
	c.getHistogram(keyRewriteDepth).Update(int64(depth))
}

func (c *CodaHale) MeasureBackend(host string, start time.Time) {
	c.getTimer(fmt.Sprintf(keyBackend, hostForKey(host))).UpdateSince(start)
}

func (c *CodaHale) MeasureServe(outcome, method string, code int, start time.Time) {
	c.getTimer(fmt.Sprintf(keyServe, outcome, method, code)).UpdateSince(start)
}

func (c *CodaHale) IncCounter(key string) {
	c.getCounter(key).Inc(1)
}

func (c *CodaHale) IncErrorsBackend(host string) {
	c.getCounter(fmt.Sprintf(keyBackendErrors, hostForKey(host))).Inc(1)
}

func (c *CodaHale) RegisterHandler(path string, mux *http.ServeMux) {
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		gometrics.WriteJSONOnce(c.reg, w)
	})
}

func (c *CodaHale) Close() {
	close(c.quit)
}

// hostForKey replaces the key separator characters of a host.
func hostForKey(h string) string {
	b := []byte(h)
	for i, c := range b {
		if c == '.' || c == ':' {
			b[i] = '_'
		}
	}

	return string(b)
}
