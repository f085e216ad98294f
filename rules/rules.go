/*
Package rules defines the route transformation rule model and loads rule
configuration from YAML or JSON files.

A rule file holds three ordered collections and optional routing settings:

	basePath: /docs
	redirects:
	  - source: /old/:path*
	    destination: /new/:path*
	    statusCode: 308
	rewrites:
	  - source: /proxied/:rest*
	    destination: https://origin.example.com/:rest*
	headers:
	  - source: /assets/:path*
	    headers:
	      - key: Cache-Control
	        value: public, max-age=31536000

Declaration order within a collection is preserved and drives first-match-wins
evaluation. Rules are compiled and validated once at configuration load and
are read-only afterwards.
*/
package rules

import (
	"fmt"

	"github.com/detourhq/detour/pattern"
)

// Header is one response header set by a header rule.
type Header struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// Rule is one route transformation rule. Redirects and rewrites carry a
// destination, header rules carry headers instead.
type Rule struct {
	Source      string   `json:"source" yaml:"source"`
	Destination string   `json:"destination,omitempty" yaml:"destination,omitempty"`
	StatusCode  int      `json:"statusCode,omitempty" yaml:"statusCode,omitempty"`
	Headers     []Header `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// Config is the parsed rule file.
type Config struct {
	BasePath  string  `json:"basePath,omitempty" yaml:"basePath,omitempty"`
	Redirects []*Rule `json:"redirects,omitempty" yaml:"redirects,omitempty"`
	Rewrites  []*Rule `json:"rewrites,omitempty" yaml:"rewrites,omitempty"`
	Headers   []*Rule `json:"headers,omitempty" yaml:"headers,omitempty"`
}

var validRedirectCodes = map[int]bool{
	301: true,
	302: true,
	303: true,
	307: true,
	308: true,
}

// Validate checks all rules and compiles every source pattern, returning the
// first error found. Configuration load aborts on any error.
func (c *Config) Validate() error {
	for i, r := range c.Redirects {
		if err := validateRule(r, "redirect", i); err != nil {
			return err
		}

		if r.StatusCode != 0 && !validRedirectCodes[r.StatusCode] {
			return fmt.Errorf("redirect %d (%s): invalid status code %d", i, r.Source, r.StatusCode)
		}
	}

	for i, r := range c.Rewrites {
		if err := validateRule(r, "rewrite", i); err != nil {
			return err
		}

		if r.StatusCode != 0 {
			return fmt.Errorf("rewrite %d (%s): status code not allowed", i, r.Source)
		}
	}

	for i, r := range c.Headers {
		if r.Source == "" {
			return fmt.Errorf("header rule %d: missing source", i)
		}

		if r.Destination != "" {
			return fmt.Errorf("header rule %d (%s): destination not allowed", i, r.Source)
		}

		if len(r.Headers) == 0 {
			return fmt.Errorf("header rule %d (%s): missing headers", i, r.Source)
		}

		for _, h := range r.Headers {
			if h.Key == "" {
				return fmt.Errorf("header rule %d (%s): empty header key", i, r.Source)
			}
		}

		if _, err := pattern.Compile(r.Source); err != nil {
			return err
		}
	}

	return nil
}

func validateRule(r *Rule, kind string, i int) error {
	if r.Source == "" {
		return fmt.Errorf("%s %d: missing source", kind, i)
	}

	if r.Destination == "" {
		return fmt.Errorf("%s %d (%s): missing destination", kind, i, r.Source)
	}

	if len(r.Headers) != 0 {
		return fmt.Errorf("%s %d (%s): headers not allowed", kind, i, r.Source)
	}

	if _, err := pattern.Compile(r.Source); err != nil {
		return err
	}

	return nil
}
