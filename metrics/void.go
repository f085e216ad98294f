package metrics

import (
	"net/http"
	"time"
)

// Void is the no-op metrics backend.
type Void struct{}

// NewVoid returns a metrics backend discarding all measurements.
func NewVoid() *Void { return &Void{} }

func (*Void) MeasurePlan(time.Time) {}
func (*Void) MeasureRewriteDepth(int) {}
func (*Void) MeasureBackend(string, time.Time) {}
func (*Void) MeasureServe(string, string, int, time.Time) {}
func (*Void) IncCounter(string) {}
func (*Void) IncErrorsBackend(string) {}
func (*Void) RegisterHandler(string, *http.ServeMux) {}
func (*Void) Close() {}
