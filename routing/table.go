package routing

import (
	"errors"
	"strings"

	"github.com/detourhq/detour/pages"
	"github.com/detourhq/detour/pattern"
	"github.com/detourhq/detour/rules"
)

// DefaultMaxRewrites is the default bound of the rewrite chain for a single
// request.
const DefaultMaxRewrites = 9

// DefaultRedirectStatus is used by redirect rules without an explicit status
// code.
const DefaultRedirectStatus = 307

// ErrRewriteLoop is returned when the rewrite chain of a request exceeds the
// configured bound. It indicates a cyclic rule configuration and surfaces as
// an internal server error, never as a client-visible routing outcome.
var ErrRewriteLoop = errors.New("rewrite loop bound exceeded")

// CompiledRule pairs a configured rule with its compiled source pattern.
type CompiledRule struct {
	Rule     *rules.Rule
	Pattern  *pattern.Pattern
	template *pattern.Template
}

// Table is the compiled, read-only routing table: the ordered rule
// collections, the page registry and the matching settings. Tables are
// immutable and safe for unlocked concurrent use.
type Table struct {
	basePath    string
	headers     []*CompiledRule
	redirects   []*CompiledRule
	rewrites    []*CompiledRule
	pages       *pages.Registry
	maxRewrites int
}

// NewTable compiles a rule configuration into a routing table. maxRewrites
// bounds the rewrite chain, zero applies DefaultMaxRewrites.
func NewTable(config *rules.Config, registry *pages.Registry, maxRewrites int) (*Table, error) {
	if maxRewrites <= 0 {
		maxRewrites = DefaultMaxRewrites
	}

	if registry == nil {
		registry, _ = pages.Scan(pages.Options{})
	}

	t := &Table{
		basePath:    config.BasePath,
		pages:       registry,
		maxRewrites: maxRewrites,
	}

	var err error
	if t.headers, err = compileRules(config.Headers); err != nil {
		return nil, err
	}

	if t.redirects, err = compileRules(config.Redirects); err != nil {
		return nil, err
	}

	if t.rewrites, err = compileRules(config.Rewrites); err != nil {
		return nil, err
	}

	return t, nil
}

func compileRules(rr []*rules.Rule) ([]*CompiledRule, error) {
	compiled := make([]*CompiledRule, 0, len(rr))
	for _, r := range rr {
		p, err := pattern.Compile(r.Source)
		if err != nil {
			return nil, err
		}

		c := &CompiledRule{Rule: r, Pattern: p}
		if r.Destination != "" {
			c.template = pattern.ParseTemplate(r.Destination)
		}

		compiled = append(compiled, c)
	}

	return compiled, nil
}

// BasePath returns the configured path prefix.
func (t *Table) BasePath() string { return t.basePath }

// Headers returns the ordered header rules.
func (t *Table) Headers() []*CompiledRule { return t.headers }

// Redirects returns the ordered redirect rules.
func (t *Table) Redirects() []*CompiledRule { return t.redirects }

// Rewrites returns the ordered rewrite rules.
func (t *Table) Rewrites() []*CompiledRule { return t.rewrites }

// Pages returns the page registry of the table.
func (t *Table) Pages() *pages.Registry { return t.pages }

// stripBase removes the base path prefix. The second return value reports
// whether the path is inside the base path.
func (t *Table) stripBase(p string) (string, bool) {
	if t.basePath == "" {
		return p, true
	}

	if p == t.basePath {
		return "/", true
	}

	if strings.HasPrefix(p, t.basePath+"/") {
		return p[len(t.basePath):], true
	}

	return p, false
}

// addBase prefixes internal destinations with the base path.
func (t *Table) addBase(p string) string {
	if t.basePath == "" || p == "" {
		return p
	}

	return t.basePath + p
}
