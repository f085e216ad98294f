// Package flowid generates request tracing flow ids and sets them on
// inbound requests, so that a request can be followed through the rewrite
// chain, the access log and the upstream dispatch.
package flowid

import "net/http"

// HeaderName is the request header carrying the flow id.
const HeaderName = "X-Flow-Id"

// Generator types generate request tracing flow ids.
type Generator interface {

	// Generate returns a new flow id using the implementation specific
	// format, or an error in case of failure.
	Generate() (string, error)

	// MustGenerate behaves like Generate but panics on failure.
	MustGenerate() string

	// IsValid checks if the given flow id follows the format of this
	// generator.
	IsValid(string) bool
}

// Set ensures a flow id on the request. When reuse is set and the inbound
// header already carries a valid id, it is kept, otherwise a new one is
// generated. Returns the effective flow id.
func Set(r *http.Request, g Generator, reuse bool) string {
	if reuse {
		if id := r.Header.Get(HeaderName); id != "" && g.IsValid(id) {
			return id
		}
	}

	id, err := g.Generate()
	if err != nil {
		r.Header.Del(HeaderName)
		return ""
	}

	r.Header.Set(HeaderName, id)
	return id
}
