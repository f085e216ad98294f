package pattern

import (
	"net/url"
	"regexp"
	"strings"
)

var templateToken = regexp.MustCompile(`:(\w+)(\*)?`)

// Template is a parsed destination template. Templates substitute :name and
// :name* tokens in the path, the host and the query of the destination.
// Templates are immutable and safe for concurrent use.
type Template struct {
	raw      string
	external bool
	scheme   string
	host     string
	path     string
	query    []queryPair
}

type queryPair struct {
	key   string
	value string
}

// Destination is the result of applying a template to captured parameters.
type Destination struct {
	// Path of the destination. For external destinations it is the path
	// part of URL.
	Path string

	// Query contains the merged query: template-declared parameters take
	// precedence, the preserved request query fills the rest.
	Query url.Values

	// External is set when the template is an absolute URL. The request
	// must leave internal routing through a redirect or a proxy dispatch.
	External bool

	// URL is the substituted absolute URL without the query, only set for
	// external destinations.
	URL string

	// Used reports the parameter names consumed by the template.
	Used map[string]bool
}

// ParseTemplate parses a destination template: a path, a path with a query
// string, or an absolute URL.
func ParseTemplate(raw string) *Template {
	t := &Template{raw: raw}

	rest := raw
	if i := strings.Index(raw, "://"); i > 0 {
		t.external = true
		t.scheme = raw[:i]
		rest = raw[i+3:]
		if j := strings.IndexAny(rest, "/?"); j >= 0 {
			t.host = rest[:j]
			rest = rest[j:]
			if rest[0] == '?' {
				rest = "/" + rest
			}
		} else {
			t.host = rest
			rest = "/"
		}
	}

	if i := strings.IndexByte(rest, '?'); i >= 0 {
		t.path = rest[:i]
		for _, kv := range strings.Split(rest[i+1:], "&") {
			if kv == "" {
				continue
			}

			k, v, _ := strings.Cut(kv, "=")
			t.query = append(t.query, queryPair{key: k, value: v})
		}
	} else {
		t.path = rest
	}

	return t
}

// Raw returns the original template string.
func (t *Template) Raw() string { return t.raw }

// External reports whether the template is an absolute URL.
func (t *Template) External() bool { return t.external }

// Apply substitutes the captured parameters into the template and merges the
// preserved request query. Tokens without a matching parameter are left as
// literal text.
func (t *Template) Apply(params *Params, requestQuery url.Values) *Destination {
	used := map[string]bool{}
	sub := func(s string) string {
		return templateToken.ReplaceAllStringFunc(s, func(tok string) string {
			name := strings.TrimSuffix(strings.TrimPrefix(tok, ":"), "*")
			v, ok := params.Get(name)
			if !ok {
				return tok
			}

			used[name] = true
			return v
		})
	}

	d := &Destination{
		Path:     sub(t.path),
		Query:    url.Values{},
		External: t.external,
		Used:     used,
	}

	for _, qp := range t.query {
		d.Query.Add(sub(qp.key), sub(qp.value))
	}

	for k, vs := range requestQuery {
		if _, ok := d.Query[k]; !ok {
			d.Query[k] = vs
		}
	}

	if t.external {
		d.URL = t.scheme + "://" + sub(t.host) + d.Path
	}

	return d
}

// Substitute replaces :name and :name* tokens in s with the captured
// values, leaving unresolved tokens as literal text. Used for standalone
// substitution outside destination templates, e.g. in header values.
func Substitute(s string, params *Params) string {
	return templateToken.ReplaceAllStringFunc(s, func(tok string) string {
		name := strings.TrimSuffix(strings.TrimPrefix(tok, ":"), "*")
		if v, ok := params.Get(name); ok {
			return v
		}

		return tok
	})
}

// Location renders the destination as a redirect location, appending the
// merged query when present.
func (d *Destination) Location() string {
	loc := d.Path
	if d.External {
		loc = d.URL
	}

	if len(d.Query) > 0 {
		loc += "?" + d.Query.Encode()
	}

	return loc
}
