package routing

import (
	"net/url"

	"github.com/detourhq/detour/pattern"
	"github.com/detourhq/detour/rfc"
	"github.com/detourhq/detour/rules"
)

// Outcome is the terminal state of planning one request.
type Outcome int

const (
	// NotFound: no rule and no page matched.
	NotFound Outcome = iota

	// Redirect: a redirect rule matched, the client is sent to Location.
	Redirect

	// Asset: a static asset exists for the effective path.
	Asset

	// Page: an explicit or dynamic page serves the effective path.
	Page

	// API: like Page, for routes in the API subtree.
	API

	// Proxy: a rewrite resolved to an absolute URL, the request is
	// dispatched to the upstream origin.
	Proxy
)

func (o Outcome) String() string {
	switch o {
	case Redirect:
		return "redirect"
	case Asset:
		return "asset"
	case Page:
		return "page"
	case API:
		return "api"
	case Proxy:
		return "proxy"
	default:
		return "notfound"
	}
}

// Plan is the decision for one request: the injected response headers and
// the terminal state with its attributes. A plan is produced in a single
// deterministic pass and holds no reference to mutable state.
type Plan struct {
	Outcome Outcome

	// Headers are the response headers injected by all matching header
	// rules, in declaration order, values interpolated.
	Headers []rules.Header

	// Path and Query are the effective path and merged query after the
	// rewrite chain settled. For Redirect and Proxy they describe the
	// target.
	Path  string
	Query url.Values

	// Status and Refresh apply to Redirect outcomes. Refresh is set for
	// status 308 and instructs the handler to add a refresh header.
	Status  int
	Refresh bool

	// Location is the redirect target including the merged query.
	Location string

	// Page is the matched page route for Page and API outcomes, in
	// bracket form for dynamic routes.
	Page string

	// Params are the parameters captured by a dynamic route match.
	Params *pattern.Params

	// BackendURL is the absolute upstream URL for Proxy outcomes, without
	// the query.
	BackendURL string

	// RewriteDepth is the number of rewrite applications made.
	RewriteDepth int
}

// Plan decides the handling of a request path and query in a single pass:
// header injection, then redirects, then the bounded rewrite chain, then
// page and asset resolution. First match wins within each rule collection.
func (t *Table) Plan(path string, query url.Values) (*Plan, error) {
	p := &Plan{Query: query}

	path, inBase := t.stripBase(path)
	if !inBase {
		p.Path = path
		return p, nil
	}

	// 1. headers, cumulative, non-exclusive
	for _, h := range t.headers {
		params, ok := h.Pattern.Match(path)
		if !ok {
			continue
		}

		for _, hdr := range h.Rule.Headers {
			p.Headers = append(p.Headers, rules.Header{
				Key:   hdr.Key,
				Value: pattern.Substitute(hdr.Value, params),
			})
		}
	}

	// 2. redirects, first match terminates
	for _, r := range t.redirects {
		params, ok := r.Pattern.Match(path)
		if !ok {
			continue
		}

		d := r.template.Apply(params, query)
		p.Outcome = Redirect
		p.Status = r.Rule.StatusCode
		if p.Status == 0 {
			p.Status = DefaultRedirectStatus
		}

		p.Refresh = p.Status == 308
		if !d.External {
			d.Path = t.addBase(d.Path)
		}

		p.Path = d.Path
		p.Query = d.Query
		p.Location = d.Location()
		return p, nil
	}

	// 3. the rewrite chain, restarted from the top after every applied
	// rewrite; a concrete asset or page for the current path shadows any
	// further rewrite. Page and asset names are stored decoded on disk,
	// while pattern matching sees the escaped path, so lookups decode the
	// non-reserved escapes first.
	for {
		lookup := rfc.DecodePath(path)
		if t.pages.HasAsset(lookup) {
			p.Outcome = Asset
			p.Path = lookup
			return p, nil
		}

		if t.pages.Has(lookup) {
			p.Outcome = Page
			if t.pages.IsAPI(lookup) {
				p.Outcome = API
			}

			p.Path = lookup
			p.Page = lookup
			return p, nil
		}

		rw, params := t.matchRewrite(path)
		if rw == nil {
			break
		}

		if p.RewriteDepth >= t.maxRewrites {
			return nil, ErrRewriteLoop
		}

		p.RewriteDepth++
		d := rw.template.Apply(params, query)
		mergeParams(d, params)

		if d.External {
			p.Outcome = Proxy
			p.Path = d.Path
			p.Query = d.Query
			p.BackendURL = d.URL
			return p, nil
		}

		path = d.Path
		query = d.Query
		p.Query = query
	}

	// 4. dynamic route and API resolution
	if page, params, ok := t.pages.Match(rfc.DecodePath(path)); ok {
		p.Outcome = Page
		if t.pages.IsAPI(page) {
			p.Outcome = API
		}

		p.Path = path
		p.Page = page
		p.Params = params
		return p, nil
	}

	p.Path = path
	return p, nil
}

func (t *Table) matchRewrite(path string) (*CompiledRule, *pattern.Params) {
	for _, rw := range t.rewrites {
		if params, ok := rw.Pattern.Match(path); ok {
			return rw, params
		}
	}

	return nil, nil
}

// mergeParams forwards parameters captured by a rewrite source that the
// destination template did not consume, for query keys not already present.
func mergeParams(d *pattern.Destination, params *pattern.Params) {
	for _, name := range params.Names() {
		if d.Used[name] {
			continue
		}

		if _, ok := d.Query[name]; ok {
			continue
		}

		v, _ := params.Get(name)
		d.Query.Set(name, v)
	}
}
