package pattern

import (
	"net/url"
	"testing"
)

func TestTemplateRoundTrip(t *testing.T) {
	p := MustCompile("/hello/:id/another")
	m, ok := p.Match("/hello/123/another")
	if !ok {
		t.Fatal("no match")
	}

	d := ParseTemplate("/blog/:id").Apply(m, nil)
	if d.Path != "/blog/123" {
		t.Errorf("path: %s", d.Path)
	}

	if d.External {
		t.Error("unexpected external destination")
	}
}

func TestTemplateCatchAll(t *testing.T) {
	p := MustCompile("/old/:path*")
	m, _ := p.Match("/old/docs/deep/page")

	d := ParseTemplate("/new/:path*").Apply(m, nil)
	if d.Path != "/new/docs/deep/page" {
		t.Errorf("path: %s", d.Path)
	}
}

func TestTemplateQueryMerge(t *testing.T) {
	p := MustCompile("/query-rewrite/:section/:name")
	m, ok := p.Match("/query-rewrite/hello/world")
	if !ok {
		t.Fatal("no match")
	}

	req := url.Values{"a": []string{"b"}}
	d := ParseTemplate("/with-params?first=:section&second=:name").Apply(m, req)

	if d.Path != "/with-params" {
		t.Errorf("path: %s", d.Path)
	}

	for k, v := range map[string]string{"first": "hello", "second": "world", "a": "b"} {
		if got := d.Query.Get(k); got != v {
			t.Errorf("query %s: %q, expected %q", k, got, v)
		}
	}

	if !d.Used["section"] || !d.Used["name"] {
		t.Error("section and name should be consumed by the template")
	}
}

func TestTemplateQueryPrecedence(t *testing.T) {
	p := MustCompile("/fixed")
	m, _ := p.Match("/fixed")

	req := url.Values{"first": []string{"request"}, "keep": []string{"yes"}}
	d := ParseTemplate("/target?first=template").Apply(m, req)

	if got := d.Query.Get("first"); got != "template" {
		t.Errorf("template query should win: %q", got)
	}

	if got := d.Query.Get("keep"); got != "yes" {
		t.Errorf("request query should be preserved: %q", got)
	}
}

func TestTemplateExternal(t *testing.T) {
	p := MustCompile("/proxy-me/:rest*")
	m, _ := p.Match("/proxy-me/api/list")

	d := ParseTemplate("https://example.com/upstream/:rest*").Apply(m, nil)
	if !d.External {
		t.Fatal("expected external destination")
	}

	if d.URL != "https://example.com/upstream/api/list" {
		t.Errorf("url: %s", d.URL)
	}
}

func TestTemplateExternalHostParam(t *testing.T) {
	p := MustCompile("/tenant/:sub/dashboard")
	m, _ := p.Match("/tenant/acme/dashboard")

	d := ParseTemplate("https://:sub.example.com/dashboard").Apply(m, nil)
	if d.URL != "https://acme.example.com/dashboard" {
		t.Errorf("url: %s", d.URL)
	}
}

func TestTemplateUnresolvedTokenPassthrough(t *testing.T) {
	p := MustCompile("/simple")
	m, _ := p.Match("/simple")

	d := ParseTemplate("/keep/:missing/here").Apply(m, nil)
	if d.Path != "/keep/:missing/here" {
		t.Errorf("path: %s", d.Path)
	}
}

func TestTemplateEscapedSegmentRoundTrip(t *testing.T) {
	p := MustCompile("/redirect/:dest")
	m, ok := p.Match("/redirect/%5Cgoogle.com")
	if !ok {
		t.Fatal("no match")
	}

	d := ParseTemplate("/go/:dest").Apply(m, nil)
	if d.Location() != "/go/%5Cgoogle.com" {
		t.Errorf("location: %s", d.Location())
	}
}

func TestDestinationLocationQuery(t *testing.T) {
	p := MustCompile("/catchall-redirect/:path*")
	m, ok := p.Match("/catchall-redirect/hello/world")
	if !ok {
		t.Fatal("no match")
	}

	d := ParseTemplate("/somewhere").Apply(m, nil)
	if d.Location() != "/somewhere" {
		t.Errorf("location: %s, expected plain /somewhere without residual query", d.Location())
	}
}
